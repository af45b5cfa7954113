package pdfa

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// forbiddenActions may not appear anywhere in a PDF/A document.
var forbiddenActions = map[string]bool{
	"Launch":      true,
	"Sound":       true,
	"Movie":       true,
	"ResetForm":   true,
	"ImportData":  true,
	"JavaScript":  true,
	"Hide":        true,
	"SetOCGState": true,
	"Rendition":   true,
	"Trans":       true,
	"GoTo3DView":  true,
}

func isForbiddenAnnotation(subtype string, target Conformance) bool {
	switch subtype {
	case "Movie", "Sound":
		return true
	case "Screen", "3D", "FileAttachment":
		return target.Part() == 1
	}
	return false
}

func annotationCategory(subtype string) EventCategory {
	switch subtype {
	case "Movie", "Sound", "Screen", "3D":
		return CategoryRemovedMultimedia
	default:
		return CategoryRemovedAnnotation
	}
}

// inspect runs every rule against doc and returns the violations in a
// stable order: document-level rules first, then page rules, then fonts.
func inspect(ctx context.Context, doc *Document, target Conformance) ([]Finding, error) {
	pctx := doc.ctx
	catalog, err := pctx.Catalog()
	if err != nil {
		return nil, &Error{Code: CodeCorrupt, Op: "analyze", Message: "failed to read catalog", Cause: err}
	}

	var findings []Finding
	add := func(f Finding) { findings = append(findings, f) }

	if doc.Encrypted() {
		add(Finding{Code: FindingEncrypted, Message: "Encryption is forbidden", Context: "Document", Repairable: true})
	}
	checkMetadata(doc, target, add)
	checkOutputIntents(pctx, catalog, add)
	if len(pctx.ID) == 0 {
		add(Finding{Code: FindingFileIDMissing, Message: "The trailer has no file identifier", Context: "Trailer", Repairable: true})
	}
	checkCatalogActions(pctx, catalog, add)
	checkForms(doc.form, add)
	if !target.AllowsOptionalContent() {
		if _, found := catalog.Find("OCProperties"); found {
			add(Finding{Code: FindingOptionalContent, Message: "Optional content is forbidden in " + target.String(), Context: "Catalog", Repairable: true})
		}
	}
	checkEmbeddedFiles(pctx, catalog, target, add)

	pages, err := collectPages(pctx)
	if err != nil {
		return nil, &Error{Code: CodeCorrupt, Op: "analyze", Message: "failed to read pages", Cause: err}
	}
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, errCancelled("analyze", err)
		}
		checkPage(pctx, p, target, add)
	}

	if err := ctx.Err(); err != nil {
		return nil, errCancelled("analyze", err)
	}
	checkFonts(doc, target, add)

	return findings, nil
}

func checkMetadata(doc *Document, target Conformance, add func(Finding)) {
	if _, ok := metadataPacket(doc.ctx); !ok {
		add(Finding{Code: FindingMetadataMissing, Message: "The document has no XMP metadata", Context: "Catalog", Repairable: true})
		return
	}
	if !doc.claim.Satisfies(target) {
		add(Finding{
			Code:       FindingMetadataClaim,
			Message:    fmt.Sprintf("The XMP metadata claims %s instead of %s", doc.claim, target),
			Context:    "Metadata",
			Repairable: true,
		})
	}
}

func checkOutputIntents(ctx *model.Context, catalog types.Dict, add func(Finding)) {
	intent := pdfaOutputIntent(ctx, catalog)
	if intent == nil {
		add(Finding{Code: FindingOutputIntentMissing, Message: "No PDF/A output intent is present", Context: "Catalog", Repairable: true})
		return
	}
	obj, found := intent.Find("DestOutputProfile")
	if !found {
		add(Finding{Code: FindingOutputIntentProfile, Message: "The output intent has no ICC profile", Context: "OutputIntent", Repairable: true})
		return
	}
	profile, ok := streamContent(ctx, obj)
	if !ok || !validICCHeader(profile) {
		add(Finding{Code: FindingOutputIntentProfile, Message: "The output intent ICC profile is invalid", Context: "OutputIntent", Repairable: true})
	}
}

// pdfaOutputIntent returns the first output intent with subtype GTS_PDFA1.
func pdfaOutputIntent(ctx *model.Context, catalog types.Dict) types.Dict {
	obj, found := catalog.Find("OutputIntents")
	if !found {
		return nil
	}
	intents, err := ctx.DereferenceArray(obj)
	if err != nil {
		return nil
	}
	for _, o := range intents {
		d, err := ctx.DereferenceDict(o)
		if err != nil || d == nil {
			continue
		}
		if nameEntry(ctx, d, "S") == "GTS_PDFA1" {
			return d
		}
	}
	return nil
}

func checkCatalogActions(ctx *model.Context, catalog types.Dict, add func(Finding)) {
	if open := dictEntry(ctx, catalog, "OpenAction"); open != nil {
		if s := nameEntry(ctx, open, "S"); forbiddenActions[s] {
			add(Finding{Code: FindingForbiddenAction, Message: s + " actions are forbidden", Context: "OpenAction", Repairable: true, subject: s})
		}
	}
	if _, found := catalog.Find("AA"); found {
		add(Finding{Code: FindingAdditionalActions, Message: "Additional actions are forbidden", Context: "Catalog", Repairable: true})
	}
	if names := dictEntry(ctx, catalog, "Names"); names != nil {
		if _, found := names.Find("JavaScript"); found {
			add(Finding{Code: FindingDocumentJavaScript, Message: "Document-level JavaScript is forbidden", Context: "Names", Repairable: true})
		}
	}
}

func checkForms(form formFeatures, add func(Finding)) {
	if form.xfa {
		add(Finding{Code: FindingXFA, Message: "XFA forms are forbidden", Context: "AcroForm", Repairable: true})
	}
	if form.needAppearances {
		add(Finding{Code: FindingNeedAppearances, Message: "NeedAppearances must not be true", Context: "AcroForm", Repairable: true})
	}
}

func checkEmbeddedFiles(ctx *model.Context, catalog types.Dict, target Conformance, add func(Finding)) {
	if target.AllowsArbitraryEmbeddedFiles() {
		return
	}
	names := dictEntry(ctx, catalog, "Names")
	if names == nil {
		return
	}
	tree := dictEntry(ctx, names, "EmbeddedFiles")
	if tree == nil {
		return
	}
	files := embeddedFileSpecs(ctx, tree, 0)
	if len(files) == 0 {
		return
	}
	if !target.AllowsEmbeddedFiles() {
		add(Finding{
			Code:       FindingEmbeddedFiles,
			Message:    fmt.Sprintf("Embedded files are forbidden in %s (%d found)", target, len(files)),
			Context:    "EmbeddedFiles",
			Repairable: true,
		})
		return
	}
	for _, name := range slices.Sorted(maps.Keys(files)) {
		if !isPDFAttachment(ctx, files[name]) {
			add(Finding{
				Code:       FindingNonPDFEmbeddedFile,
				Message:    fmt.Sprintf("Embedded file %q is not a PDF document", name),
				Context:    "EmbeddedFiles",
				Repairable: true,
			})
		}
	}
}

// embeddedFileSpecs flattens a name tree into name -> file specification.
func embeddedFileSpecs(ctx *model.Context, node types.Dict, depth int) map[string]types.Dict {
	out := map[string]types.Dict{}
	if depth > maxTreeDepth {
		return out
	}
	if obj, found := node.Find("Names"); found {
		if arr, err := ctx.DereferenceArray(obj); err == nil {
			for i := 0; i+1 < len(arr); i += 2 {
				name, err := ctx.DereferenceStringOrHexLiteral(arr[i], model.V10, nil)
				if err != nil {
					name = fmt.Sprintf("#%d", i/2)
				}
				if spec, err := ctx.DereferenceDict(arr[i+1]); err == nil && spec != nil {
					out[name] = spec
				}
			}
		}
	}
	if obj, found := node.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(obj); err == nil {
			for _, kid := range kids {
				if child, err := ctx.DereferenceDict(kid); err == nil && child != nil {
					for k, v := range embeddedFileSpecs(ctx, child, depth+1) {
						out[k] = v
					}
				}
			}
		}
	}
	return out
}

func isPDFAttachment(ctx *model.Context, spec types.Dict) bool {
	ef := dictEntry(ctx, spec, "EF")
	if ef == nil {
		return false
	}
	obj, found := ef.Find("F")
	if !found {
		return false
	}
	sd, _, err := ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return false
	}
	subtype := nameEntry(ctx, sd.Dict, "Subtype")
	return subtype == "application/pdf" || subtype == "application#2Fpdf"
}

func checkPage(ctx *model.Context, p page, target Conformance, add func(Finding)) {
	if _, found := p.dict.Find("AA"); found {
		add(Finding{Code: FindingAdditionalActions, Message: "Additional actions are forbidden", Context: "Page", Page: p.number, Repairable: true})
	}

	for _, annot := range pageAnnotations(ctx, p.dict) {
		subtype := nameEntry(ctx, annot, "Subtype")
		if isForbiddenAnnotation(subtype, target) {
			add(Finding{
				Code:       FindingForbiddenAnnotation,
				Message:    subtype + " annotations are forbidden in " + target.String(),
				Context:    "Annotation",
				Page:       p.number,
				Repairable: true,
				subject:    subtype,
			})
			continue
		}
		if action := dictEntry(ctx, annot, "A"); action != nil {
			if s := nameEntry(ctx, action, "S"); forbiddenActions[s] {
				add(Finding{Code: FindingForbiddenAction, Message: s + " actions are forbidden", Context: subtype + " annotation", Page: p.number, Repairable: true, subject: s})
			}
		}
		if _, found := annot.Find("AA"); found {
			add(Finding{Code: FindingAdditionalActions, Message: "Additional actions are forbidden", Context: subtype + " annotation", Page: p.number, Repairable: true})
		}
	}

	if !target.AllowsTransparency() {
		for _, where := range transparencyUses(ctx, p) {
			add(Finding{
				Code:    FindingTransparency,
				Message: "Transparency is forbidden in " + target.String(),
				Context: where,
				Page:    p.number,
			})
		}
	}
}

// pageAnnotations returns the dereferenced annotation dictionaries of a page.
func pageAnnotations(ctx *model.Context, pageDict types.Dict) []types.Dict {
	obj, found := pageDict.Find("Annots")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(obj)
	if err != nil {
		return nil
	}
	var annots []types.Dict
	for _, o := range arr {
		if d, err := ctx.DereferenceDict(o); err == nil && d != nil {
			annots = append(annots, d)
		}
	}
	return annots
}

// transparencyUses lists the resources of a page that introduce transparency,
// sorted by resource name within each category.
func transparencyUses(ctx *model.Context, p page) []string {
	var uses []string
	if group := dictEntry(ctx, p.dict, "Group"); group != nil && nameEntry(ctx, group, "S") == "Transparency" {
		uses = append(uses, "Page group")
	}
	states := resourceDicts(ctx, p.resources, "ExtGState")
	for _, name := range slices.Sorted(maps.Keys(states)) {
		if extGStateTransparent(ctx, states[name]) {
			uses = append(uses, "ExtGState "+name)
		}
	}
	xobjects := resourceDicts(ctx, p.resources, "XObject")
	for _, name := range slices.Sorted(maps.Keys(xobjects)) {
		xobj := xobjects[name]
		if _, found := xobj.Find("SMask"); found {
			uses = append(uses, "XObject "+name+" soft mask")
		}
		if group := dictEntry(ctx, xobj, "Group"); group != nil && nameEntry(ctx, group, "S") == "Transparency" {
			uses = append(uses, "XObject "+name+" group")
		}
	}
	return uses
}

func extGStateTransparent(ctx *model.Context, gs types.Dict) bool {
	if obj, found := gs.Find("SMask"); found {
		if name, ok := obj.(types.Name); !ok || name.Value() != "None" {
			return true
		}
	}
	for _, key := range []string{"CA", "ca"} {
		if alpha, ok := numberEntry(ctx, gs, key); ok && alpha < 1.0 {
			return true
		}
	}
	if bm := nameEntry(ctx, gs, "BM"); bm != "" && bm != "Normal" && bm != "Compatible" {
		return true
	}
	return false
}

func checkFonts(doc *Document, target Conformance, add func(Finding)) {
	reader, err := doc.fonts()
	var issues []fontIssue
	if err == nil {
		issues, err = inspectFonts(reader, target.RequiresUnicode())
	}
	if err != nil {
		add(Finding{
			Code:    FindingFontsNotInspected,
			Message: "Fonts could not be inspected: " + MessageOf(err),
			Context: "Fonts",
		})
		return
	}
	for _, issue := range issues {
		where := "Font " + strings.TrimPrefix(issue.resource, "/")
		switch issue.code {
		case FindingFontNotEmbedded:
			add(Finding{Code: issue.code, Message: fmt.Sprintf("Font %s is not embedded", issue.baseFont), Context: where, Page: issue.page})
		case FindingFontNoUnicode:
			add(Finding{Code: issue.code, Message: fmt.Sprintf("Font %s has no Unicode mapping", issue.baseFont), Context: where, Page: issue.page})
		}
	}
}
