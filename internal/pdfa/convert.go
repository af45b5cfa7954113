package pdfa

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ConversionOptions tune a conversion.
type ConversionOptions struct {
	// Optimize runs pdfcpu's optimizer before writing
	Optimize bool
	// CopyMetadata mirrors the document information dictionary into XMP
	CopyMetadata bool
	// Producer overrides the library's producer name
	Producer string
}

// DefaultConversionOptions mirrors document information into XMP.
func DefaultConversionOptions() ConversionOptions {
	return ConversionOptions{CopyMetadata: true}
}

// Converter turns analyzed documents into PDF/A documents.
type Converter struct {
	lib      *Library
	handlers []EventHandler
}

// NewConverter creates a converter bound to lib.
func NewConverter(lib *Library) *Converter {
	return &Converter{lib: lib}
}

// AddConversionEventHandler registers h. Handlers are called in
// registration order for every event of every later conversion.
func (c *Converter) AddConversionEventHandler(h EventHandler) {
	if h != nil {
		c.handlers = append(c.handlers, h)
	}
}

// Convert repairs a copy of doc so that it meets result.Conformance(),
// writes it to w and returns the written document re-opened. Violations
// that cannot be repaired are reported as Error events; the output is
// written regardless.
func (c *Converter) Convert(ctx context.Context, result *AnalysisResult, doc *Document, w io.Writer, opts ConversionOptions) (*Document, error) {
	if c == nil {
		return nil, errArgument("convert", "converter is nil")
	}
	if err := c.lib.usable("convert"); err != nil {
		return nil, err
	}
	if err := doc.usable("convert"); err != nil {
		return nil, err
	}
	if result == nil || result.doc != doc {
		return nil, errArgument("convert", "analysis result belongs to another document")
	}
	if w == nil {
		return nil, errArgument("convert", "output stream cannot be nil")
	}

	work, _, err := c.lib.readContext(doc.raw, doc.password)
	if err != nil {
		return nil, err
	}

	producer := opts.Producer
	if producer == "" {
		producer = c.lib.producer
	}
	conv := &conversion{
		pdf:      work,
		source:   doc,
		result:   result,
		target:   result.target,
		opts:     opts,
		producer: producer,
		now:      c.lib.now(),
	}
	if err := conv.repair(ctx); err != nil {
		return nil, err
	}

	for _, f := range result.findings {
		c.emit(eventFor(f))
	}

	if opts.Optimize {
		if err := api.OptimizeContext(work); err != nil {
			return nil, &Error{Code: CodeGeneric, Op: "convert", Message: "failed to optimize document", Cause: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, errCancelled("convert", err)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(work, &buf); err != nil {
		return nil, &Error{Code: CodeGeneric, Op: "convert", Message: "failed to write document", Cause: err}
	}
	out := buf.Bytes()
	if _, err := io.Copy(w, bytes.NewReader(out)); err != nil {
		return nil, &Error{Code: CodeIO, Op: "convert", Message: "failed to write output stream", Cause: err}
	}

	converted, err := c.lib.openBytes(out, "")
	if err != nil {
		return nil, &Error{Code: CodeGeneric, Op: "convert", Message: "failed to re-open converted document", Cause: err}
	}

	c.lib.logger.Debug("converted document",
		"target", result.target.String(),
		"findings", len(result.findings),
		"bytes", len(out))
	return converted, nil
}

func (c *Converter) emit(e Event) {
	c.lib.logger.Debug("conversion event",
		"severity", e.Severity.String(),
		"category", e.Category.String(),
		"code", e.Code.String(),
		"page", e.Page)
	for _, h := range c.handlers {
		h(e)
	}
}

// conversion holds the state of one Convert call.
type conversion struct {
	pdf      *model.Context
	source   *Document
	result   *AnalysisResult
	target   Conformance
	opts     ConversionOptions
	producer string
	now      time.Time
}

func (cv *conversion) repair(ctx context.Context) error {
	catalog, err := cv.pdf.Catalog()
	if err != nil {
		return &Error{Code: CodeCorrupt, Op: "convert", Message: "failed to read catalog", Cause: err}
	}

	if cv.result.has(FindingEncrypted) {
		dropEncryption(cv.pdf)
	}
	if cv.target.Part() == 1 {
		// PDF/A-1 predates object and cross-reference streams
		cv.pdf.WriteObjectStream = false
		cv.pdf.WriteXRefStream = false
	}
	if cv.result.has(FindingFileIDMissing) {
		sum := md5.Sum(cv.source.raw)
		id := types.HexLiteral(hex.EncodeToString(sum[:]))
		cv.pdf.ID = types.Array{id, id}
	}

	cv.removeCatalogActions(catalog)
	cv.repairForms(catalog)
	if cv.result.has(FindingOptionalContent) {
		delete(catalog, "OCProperties")
	}
	if cv.result.has(FindingEmbeddedFiles) || cv.result.has(FindingNonPDFEmbeddedFile) {
		if names := dictEntry(cv.pdf, catalog, "Names"); names != nil {
			delete(names, "EmbeddedFiles")
		}
	}

	pages, err := collectPages(cv.pdf)
	if err != nil {
		return &Error{Code: CodeCorrupt, Op: "convert", Message: "failed to read pages", Cause: err}
	}
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return errCancelled("convert", err)
		}
		cv.repairPage(p)
	}

	if cv.result.has(FindingOutputIntentMissing) || cv.result.has(FindingOutputIntentProfile) {
		if err := cv.addOutputIntent(catalog); err != nil {
			return err
		}
	}
	return cv.writeMetadata(catalog)
}

func (cv *conversion) removeCatalogActions(catalog types.Dict) {
	if open := dictEntry(cv.pdf, catalog, "OpenAction"); open != nil {
		if forbiddenActions[nameEntry(cv.pdf, open, "S")] {
			delete(catalog, "OpenAction")
		}
	}
	delete(catalog, "AA")
	if names := dictEntry(cv.pdf, catalog, "Names"); names != nil {
		delete(names, "JavaScript")
	}
}

func (cv *conversion) repairForms(catalog types.Dict) {
	form := dictEntry(cv.pdf, catalog, "AcroForm")
	if form == nil {
		return
	}
	delete(form, "XFA")
	delete(form, "NeedAppearances")
}

func (cv *conversion) repairPage(p page) {
	delete(p.dict, "AA")

	obj, found := p.dict.Find("Annots")
	if !found {
		return
	}
	refs, err := cv.pdf.DereferenceArray(obj)
	if err != nil {
		return
	}

	kept := types.Array{}
	for _, ref := range refs {
		annot, err := cv.pdf.DereferenceDict(ref)
		if err != nil || annot == nil {
			kept = append(kept, ref)
			continue
		}
		if isForbiddenAnnotation(nameEntry(cv.pdf, annot, "Subtype"), cv.target) {
			continue
		}
		if action := dictEntry(cv.pdf, annot, "A"); action != nil && forbiddenActions[nameEntry(cv.pdf, action, "S")] {
			delete(annot, "A")
		}
		delete(annot, "AA")
		kept = append(kept, ref)
	}
	if len(kept) == 0 {
		delete(p.dict, "Annots")
		return
	}
	p.dict["Annots"] = kept
}

// addOutputIntent replaces any PDF/A output intent with one carrying the
// generated sRGB profile. Intents for other standards are kept.
func (cv *conversion) addOutputIntent(catalog types.Dict) error {
	profile := SRGBProfile()
	profileDict := types.Dict{
		"N": types.Integer(3),
	}
	profileRef, err := cv.addStream(profileDict, profile)
	if err != nil {
		return err
	}

	intent := types.Dict{
		"Type":                      types.Name("OutputIntent"),
		"S":                         types.Name("GTS_PDFA1"),
		"OutputConditionIdentifier": types.StringLiteral("sRGB IEC61966-2.1"),
		"RegistryName":              types.StringLiteral("http://www.color.org"),
		"Info":                      types.StringLiteral("sRGB IEC61966-2.1"),
		"DestOutputProfile":         *profileRef,
	}
	intentRef, err := cv.pdf.IndRefForNewObject(intent)
	if err != nil {
		return &Error{Code: CodeGeneric, Op: "convert", Message: "failed to add output intent", Cause: err}
	}

	intents := types.Array{*intentRef}
	if obj, found := catalog.Find("OutputIntents"); found {
		if existing, err := cv.pdf.DereferenceArray(obj); err == nil {
			for _, o := range existing {
				d, err := cv.pdf.DereferenceDict(o)
				if err == nil && d != nil && nameEntry(cv.pdf, d, "S") == "GTS_PDFA1" {
					continue
				}
				intents = append(intents, o)
			}
		}
	}
	catalog["OutputIntents"] = intents
	return nil
}

// writeMetadata replaces the catalog metadata with a packet claiming the
// target conformance. The information dictionary is updated to match.
func (cv *conversion) writeMetadata(catalog types.Dict) error {
	m := Metadata{
		Conformance: cv.target,
		Producer:    cv.producer,
		ModDate:     cv.now,
	}
	info := cv.infoDict()
	if cv.opts.CopyMetadata && info != nil {
		m.Title = cv.infoString(info, "Title")
		m.Author = cv.infoString(info, "Author")
		m.Subject = cv.infoString(info, "Subject")
		m.Keywords = cv.infoString(info, "Keywords")
		m.Creator = cv.infoString(info, "Creator")
		if t, ok := types.DateTime(cv.infoString(info, "CreationDate"), true); ok {
			m.CreationDate = t
		}
	}
	if m.CreationDate.IsZero() {
		m.CreationDate = cv.now
	}
	if info != nil {
		info["Producer"] = types.StringLiteral(cv.producer)
		info["ModDate"] = types.StringLiteral(types.DateString(cv.now))
	}

	metaDict := types.Dict{
		"Type":    types.Name("Metadata"),
		"Subtype": types.Name("XML"),
	}
	ref, err := cv.addStream(metaDict, BuildXMP(m))
	if err != nil {
		return err
	}
	catalog["Metadata"] = *ref
	return nil
}

func (cv *conversion) infoDict() types.Dict {
	if cv.pdf.Info == nil {
		return nil
	}
	d, err := cv.pdf.DereferenceDict(*cv.pdf.Info)
	if err != nil {
		return nil
	}
	return d
}

func (cv *conversion) infoString(info types.Dict, key string) string {
	obj, found := info.Find(key)
	if !found || obj == nil {
		return ""
	}
	s, err := cv.pdf.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

// addStream registers an unfiltered stream object and returns its reference.
func (cv *conversion) addStream(d types.Dict, content []byte) (*types.IndirectRef, error) {
	length := int64(len(content))
	d["Length"] = types.Integer(len(content))
	sd := types.StreamDict{
		Dict:         d,
		StreamLength: &length,
		Content:      content,
		Raw:          content,
	}
	ref, err := cv.pdf.IndRefForNewObject(sd)
	if err != nil {
		return nil, &Error{Code: CodeGeneric, Op: "convert", Message: "failed to add stream object", Cause: err}
	}
	return ref, nil
}

// eventKind is the event a finding turns into once the converter handled it.
type eventKind struct {
	severity EventSeverity
	category EventCategory
	code     EventCode
}

var findingEvents = map[FindingCode]eventKind{
	FindingEncrypted:           {SeverityInformation, CategoryRemovedEncryption, CodeEventDecrypted},
	FindingMetadataMissing:     {SeverityInformation, CategoryRepairedCorruption, CodeEventWroteMetadata},
	FindingMetadataClaim:       {SeverityInformation, CategoryRemovedMetadata, CodeEventWroteMetadata},
	FindingOutputIntentMissing: {SeverityInformation, CategoryManagedColors, CodeEventAddedOutputIntent},
	FindingOutputIntentProfile: {SeverityInformation, CategoryManagedColors, CodeEventAddedOutputIntent},
	FindingFileIDMissing:       {SeverityInformation, CategoryRepairedCorruption, CodeEventAddedFileID},
	FindingForbiddenAnnotation: {SeverityWarning, CategoryRemovedAnnotation, CodeEventGeneric},
	FindingForbiddenAction:     {SeverityWarning, CategoryRemovedAction, CodeEventGeneric},
	FindingAdditionalActions:   {SeverityWarning, CategoryRemovedAction, CodeEventGeneric},
	FindingDocumentJavaScript:  {SeverityWarning, CategoryRemovedAction, CodeEventRemovedJavaScript},
	FindingXFA:                 {SeverityWarning, CategoryRemovedStructure, CodeEventRemovedXfa},
	FindingNeedAppearances:     {SeverityInformation, CategoryVisualDifferences, CodeEventGeneric},
	FindingOptionalContent:     {SeverityWarning, CategoryRemovedOptionalContent, CodeEventGeneric},
	FindingEmbeddedFiles:       {SeverityWarning, CategoryRemovedEmbeddedFile, CodeEventGeneric},
	FindingNonPDFEmbeddedFile:  {SeverityWarning, CategoryRemovedEmbeddedFile, CodeEventGeneric},
	FindingTransparency:        {SeverityError, CategoryRemovedTransparency, CodeEventTransparency},
	FindingFontNotEmbedded:     {SeverityError, CategorySubstitutedFont, CodeEventFontNotEmbedded},
	FindingFontNoUnicode:       {SeverityError, CategoryConvertedFont, CodeEventFontNoUnicode},
	FindingFontsNotInspected:   {SeverityError, CategoryConvertedFont, CodeEventUninspectedFonts},
}

// eventFor turns a finding the converter handled into the event reported
// to handlers.
func eventFor(f Finding) Event {
	kind, ok := findingEvents[f.Code]
	if !ok {
		kind = eventKind{SeverityWarning, CategoryRepairedCorruption, CodeEventGeneric}
	}
	if f.Code == FindingForbiddenAnnotation && annotationCategory(f.subject) == CategoryRemovedMultimedia {
		kind.category = CategoryRemovedMultimedia
	}
	if f.Code == FindingForbiddenAction && f.subject == "JavaScript" {
		kind.code = CodeEventRemovedJavaScript
	}

	msg := f.Message
	if f.Repairable {
		msg = repairedMessage(f)
	}
	return Event{
		Message:  msg,
		Severity: kind.severity,
		Category: kind.category,
		Code:     kind.code,
		Context:  f.Context,
		Page:     f.Page,
	}
}

func repairedMessage(f Finding) string {
	switch f.Code {
	case FindingEncrypted:
		return "Removed encryption"
	case FindingMetadataMissing:
		return "Created XMP metadata"
	case FindingMetadataClaim:
		return "Replaced XMP metadata"
	case FindingOutputIntentMissing, FindingOutputIntentProfile:
		return "Added sRGB output intent"
	case FindingFileIDMissing:
		return "Added file identifier"
	case FindingForbiddenAnnotation:
		return "Removed " + f.subject + " annotation"
	case FindingForbiddenAction:
		return "Removed " + f.subject + " action"
	case FindingAdditionalActions:
		return "Removed additional actions"
	case FindingDocumentJavaScript:
		return "Removed document-level JavaScript"
	case FindingXFA:
		return "Removed XFA form data"
	case FindingNeedAppearances:
		return "Removed NeedAppearances flag"
	case FindingOptionalContent:
		return "Removed optional content configuration"
	case FindingEmbeddedFiles, FindingNonPDFEmbeddedFile:
		return "Removed embedded files"
	default:
		return f.Message
	}
}
