package pdfa

import (
	"context"
	"fmt"
)

// FindingCode identifies a conformance rule a document violates.
type FindingCode string

const (
	FindingEncrypted           FindingCode = "ENC001"
	FindingMetadataMissing     FindingCode = "MET001"
	FindingMetadataClaim       FindingCode = "MET002"
	FindingOutputIntentMissing FindingCode = "INT001"
	FindingOutputIntentProfile FindingCode = "INT002"
	FindingFileIDMissing       FindingCode = "TRL001"
	FindingForbiddenAnnotation FindingCode = "ANN001"
	FindingForbiddenAction     FindingCode = "ACT001"
	FindingAdditionalActions   FindingCode = "ACT002"
	FindingDocumentJavaScript  FindingCode = "ACT003"
	FindingXFA                 FindingCode = "FRM001"
	FindingNeedAppearances     FindingCode = "FRM002"
	FindingOptionalContent     FindingCode = "LYR001"
	FindingEmbeddedFiles       FindingCode = "ATT001"
	FindingNonPDFEmbeddedFile  FindingCode = "ATT002"
	FindingTransparency        FindingCode = "TRN001"
	FindingFontNotEmbedded     FindingCode = "FNT001"
	FindingFontNoUnicode       FindingCode = "FNT002"
	FindingFontsNotInspected   FindingCode = "FNT000"
)

// Finding is one rule violation found by analysis.
type Finding struct {
	// Code identifies the violated rule
	Code FindingCode
	// Message is a human-readable description
	Message string
	// Context names the object concerned
	Context string
	// Page is the 1-based page, 0 for document-level findings
	Page int
	// Repairable reports whether the converter can fix the violation
	Repairable bool

	// subject is the annotation subtype or action type concerned
	subject string
}

func (f Finding) String() string {
	if f.Page > 0 {
		return fmt.Sprintf("%s %s (%s on page %d)", f.Code, f.Message, f.Context, f.Page)
	}
	return fmt.Sprintf("%s %s (%s)", f.Code, f.Message, f.Context)
}

// AnalysisOptions selects the conformance a document is checked against.
type AnalysisOptions struct {
	Conformance Conformance
}

// DefaultAnalysisOptions targets DefaultConformance.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{Conformance: DefaultConformance}
}

// AnalysisResult is the outcome of checking one document against one
// conformance. The converter consumes it to decide what to repair.
type AnalysisResult struct {
	doc      *Document
	target   Conformance
	claimed  Conformance
	findings []Finding
}

// Conformance returns the conformance the document was checked against.
func (r *AnalysisResult) Conformance() Conformance { return r.target }

// ClaimedConformance returns the conformance the document's metadata claims.
func (r *AnalysisResult) ClaimedConformance() Conformance { return r.claimed }

// IsConforming reports whether the document meets the target conformance.
func (r *AnalysisResult) IsConforming() bool { return r != nil && len(r.findings) == 0 }

// Findings returns a copy of the violations found.
func (r *AnalysisResult) Findings() []Finding {
	out := make([]Finding, len(r.findings))
	copy(out, r.findings)
	return out
}

func (r *AnalysisResult) has(code FindingCode) bool {
	for _, f := range r.findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Validator checks documents against a PDF/A conformance.
type Validator struct {
	lib *Library
}

// NewValidator creates a validator bound to lib.
func NewValidator(lib *Library) *Validator {
	return &Validator{lib: lib}
}

// Analyze checks doc against opts.Conformance.
func (v *Validator) Analyze(ctx context.Context, doc *Document, opts AnalysisOptions) (*AnalysisResult, error) {
	if v == nil {
		return nil, errArgument("analyze", "validator is nil")
	}
	if err := v.lib.usable("analyze"); err != nil {
		return nil, err
	}
	if err := doc.usable("analyze"); err != nil {
		return nil, err
	}
	target := opts.Conformance
	if target == ConformanceNone {
		target = DefaultConformance
	}
	if !target.IsTargetable() {
		return nil, errArgument("analyze", "conformance %s cannot be analyzed", target)
	}

	findings, err := inspect(ctx, doc, target)
	if err != nil {
		return nil, err
	}

	v.lib.logger.Debug("analyzed document",
		"target", target.String(),
		"claimed", doc.claim.String(),
		"findings", len(findings))

	return &AnalysisResult{
		doc:      doc,
		target:   target,
		claimed:  doc.claim,
		findings: findings,
	}, nil
}
