package pdfa

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdfa-convert/internal/pdfa/pdftest"
)

type convertRun struct {
	events []Event
	output *Document
	bytes  []byte
}

func convertFixture(t *testing.T, lib *Library, o pdftest.Options, target Conformance) convertRun {
	t.Helper()
	return convertDocument(t, lib, openFixture(t, lib, o), target)
}

func convertDocument(t *testing.T, lib *Library, doc *Document, target Conformance) convertRun {
	t.Helper()
	result, err := NewValidator(lib).Analyze(context.Background(), doc, AnalysisOptions{Conformance: target})
	require.NoError(t, err)

	var run convertRun
	converter := NewConverter(lib)
	converter.AddConversionEventHandler(func(e Event) { run.events = append(run.events, e) })

	var out bytes.Buffer
	run.output, err = converter.Convert(context.Background(), result, doc, &out, DefaultConversionOptions())
	require.NoError(t, err)
	t.Cleanup(func() { run.output.Close() })
	run.bytes = out.Bytes()
	return run
}

func reanalyze(t *testing.T, lib *Library, doc *Document, target Conformance) *AnalysisResult {
	t.Helper()
	result, err := NewValidator(lib).Analyze(context.Background(), doc, AnalysisOptions{Conformance: target})
	require.NoError(t, err)
	return result
}

func TestConverter_PlainDocument(t *testing.T) {
	lib := newTestLibrary(t)
	run := convertFixture(t, lib, pdftest.Options{Pages: 2, Title: "Annual Report"}, PDFA2B)

	require.NotEmpty(t, run.bytes)
	assert.True(t, bytes.HasPrefix(run.bytes, []byte("%PDF-")))
	assert.Equal(t, 2, run.output.PageCount())
	assert.Equal(t, PDFA2B, run.output.Conformance())

	for _, e := range run.events {
		assert.Equal(t, SeverityInformation, e.Severity, e.String())
	}

	result := reanalyze(t, lib, run.output, PDFA2B)
	assert.True(t, result.IsConforming(), "findings: %v", result.Findings())
}

func TestConverter_CopiesInfoIntoXMP(t *testing.T) {
	lib, err := NewLibrary(
		WithProducer("unit-test"),
		withClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
	require.NoError(t, err)
	defer lib.Close()

	run := convertFixture(t, lib, pdftest.Options{Title: "Annual Report"}, PDFA2B)
	packet, ok := metadataPacket(run.output.ctx)
	require.True(t, ok)
	assert.Contains(t, string(packet), "Annual Report")
	assert.Contains(t, string(packet), "<pdf:Producer>unit-test</pdf:Producer>")
	assert.Contains(t, string(packet), "2024-01-02T03:04:05Z")
}

func TestConverter_RemovesActiveContent(t *testing.T) {
	lib := newTestLibrary(t)
	o := pdftest.Options{
		OpenAction:           "app.alert('hi')",
		Annotation:           "Link",
		AnnotationJavaScript: true,
		XFA:                  true,
		NeedAppearances:      true,
	}
	run := convertFixture(t, lib, o, PDFA2B)

	var jsEvents, xfaEvents int
	for _, e := range run.events {
		if e.Code == CodeEventRemovedJavaScript {
			jsEvents++
			assert.Equal(t, SeverityWarning, e.Severity)
			assert.Equal(t, CategoryRemovedAction, e.Category)
		}
		if e.Code == CodeEventRemovedXfa {
			xfaEvents++
		}
	}
	assert.Equal(t, 2, jsEvents, "open action and link action")
	assert.Equal(t, 1, xfaEvents)

	result := reanalyze(t, lib, run.output, PDFA2B)
	assert.True(t, result.IsConforming(), "findings: %v", result.Findings())
}

func TestConverter_RemovesForbiddenAnnotation(t *testing.T) {
	lib := newTestLibrary(t)
	run := convertFixture(t, lib, pdftest.Options{Annotation: "Movie"}, PDFA2B)

	var found bool
	for _, e := range run.events {
		if e.Category == CategoryRemovedMultimedia {
			found = true
			assert.Equal(t, 1, e.Page)
			assert.Equal(t, "Removed Movie annotation", e.Message)
		}
	}
	assert.True(t, found)

	result := reanalyze(t, lib, run.output, PDFA2B)
	assert.True(t, result.IsConforming(), "findings: %v", result.Findings())
}

func TestConverter_UnrepairableFont(t *testing.T) {
	lib := newTestLibrary(t)
	run := convertFixture(t, lib, pdftest.Options{Font: "Helvetica", FontEncoding: "WinAnsiEncoding"}, PDFA2B)

	var errorsSeen int
	for _, e := range run.events {
		if e.Severity == SeverityError {
			errorsSeen++
			assert.Equal(t, CodeEventFontNotEmbedded, e.Code)
			assert.Equal(t, CategorySubstitutedFont, e.Category)
		}
	}
	assert.Equal(t, 1, errorsSeen)
	assert.NotEmpty(t, run.bytes, "output is written even when a font cannot be embedded")
}

func TestConverter_RemovesEncryption(t *testing.T) {
	lib := newTestLibrary(t)
	doc := openEncryptedFixture(t, lib, conforming(PDFA2B), "secret")
	run := convertDocument(t, lib, doc, PDFA2B)

	require.Len(t, run.events, 1)
	e := run.events[0]
	assert.Equal(t, SeverityInformation, e.Severity)
	assert.Equal(t, CategoryRemovedEncryption, e.Category)
	assert.Equal(t, CodeEventDecrypted, e.Code)
	assert.Equal(t, "Removed encryption", e.Message)

	assert.False(t, run.output.Encrypted())
	assert.Equal(t, PDFA2B, run.output.Conformance())
	result := reanalyze(t, lib, run.output, PDFA2B)
	assert.True(t, result.IsConforming(), "findings: %v", result.Findings())

	// the output opens without a password
	plain, err := lib.Open(bytes.NewReader(run.bytes), "")
	require.NoError(t, err)
	defer plain.Close()
	assert.False(t, plain.Encrypted())
}

func TestConverter_EncryptedUnembeddedFont(t *testing.T) {
	lib := newTestLibrary(t)
	o := conforming(PDFA2B)
	o.Font = "Helvetica"
	o.FontEncoding = "WinAnsiEncoding"
	run := convertDocument(t, lib, openEncryptedFixture(t, lib, o, "secret"), PDFA2B)

	var fontErrors int
	for _, e := range run.events {
		assert.NotEqual(t, CodeEventUninspectedFonts, e.Code, e.String())
		if e.Severity == SeverityError {
			fontErrors++
			assert.Equal(t, CodeEventFontNotEmbedded, e.Code)
		}
	}
	assert.Equal(t, 1, fontErrors)

	result := reanalyze(t, lib, run.output, PDFA2B)
	assert.Equal(t, []FindingCode{FindingFontNotEmbedded}, codes(result.Findings()))
}

func TestConverter_PDFA1BDropsOptionalContent(t *testing.T) {
	lib := newTestLibrary(t)
	run := convertFixture(t, lib, pdftest.Options{OptionalContent: true}, PDFA1B)

	result := reanalyze(t, lib, run.output, PDFA1B)
	assert.True(t, result.IsConforming(), "findings: %v", result.Findings())
	assert.Equal(t, PDFA1B, run.output.Conformance())
}

func TestConverter_InputUnchanged(t *testing.T) {
	lib := newTestLibrary(t)
	doc := openFixture(t, lib, pdftest.Options{OpenAction: "x()"})
	before := append([]byte(nil), doc.Bytes()...)

	result, err := NewValidator(lib).Analyze(context.Background(), doc, DefaultAnalysisOptions())
	require.NoError(t, err)
	_, err = NewConverter(lib).Convert(context.Background(), result, doc, &bytes.Buffer{}, DefaultConversionOptions())
	require.NoError(t, err)

	assert.Equal(t, before, doc.Bytes())
	again := reanalyze(t, lib, doc, PDFA2B)
	assert.Contains(t, codes(again.Findings()), FindingForbiddenAction)
}

func TestConverter_RejectsForeignResult(t *testing.T) {
	lib := newTestLibrary(t)
	a := openFixture(t, lib, pdftest.Options{})
	b := openFixture(t, lib, pdftest.Options{})

	result, err := NewValidator(lib).Analyze(context.Background(), a, DefaultAnalysisOptions())
	require.NoError(t, err)

	_, err = NewConverter(lib).Convert(context.Background(), result, b, &bytes.Buffer{}, DefaultConversionOptions())
	assert.Equal(t, CodeIllegalArgument, ErrorCodeOf(err))

	_, err = NewConverter(lib).Convert(context.Background(), result, a, nil, DefaultConversionOptions())
	assert.Equal(t, CodeIllegalArgument, ErrorCodeOf(err))
}

func TestConverter_Cancelled(t *testing.T) {
	lib := newTestLibrary(t)
	doc := openFixture(t, lib, pdftest.Options{})
	result, err := NewValidator(lib).Analyze(context.Background(), doc, DefaultAnalysisOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	_, err = NewConverter(lib).Convert(ctx, result, doc, &out, DefaultConversionOptions())
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Zero(t, out.Len())
}

func TestConverter_HandlersInOrder(t *testing.T) {
	lib := newTestLibrary(t)
	doc := openFixture(t, lib, pdftest.Options{})
	result, err := NewValidator(lib).Analyze(context.Background(), doc, DefaultAnalysisOptions())
	require.NoError(t, err)

	var order []string
	converter := NewConverter(lib)
	converter.AddConversionEventHandler(func(Event) { order = append(order, "first") })
	converter.AddConversionEventHandler(nil)
	converter.AddConversionEventHandler(func(Event) { order = append(order, "second") })

	out, err := converter.Convert(context.Background(), result, doc, &bytes.Buffer{}, DefaultConversionOptions())
	require.NoError(t, err)
	defer out.Close()

	require.NotEmpty(t, order)
	for i := 0; i < len(order); i += 2 {
		assert.Equal(t, []string{"first", "second"}, order[i:i+2])
	}
}
