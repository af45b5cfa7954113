// Package driver runs one validate-and-convert pass over a PDF file: open,
// analyze, convert when needed, and report the outcome.
package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/a3tai/pdfa-convert/internal/pdfa"
)

// Options configure a single Run.
type Options struct {
	InputPath   string
	OutputPath  string
	Conformance pdfa.Conformance
	Password    string
	Optimize    bool
	// MaxFileSize rejects larger inputs; zero disables the check
	MaxFileSize int64

	// Stdout receives the user-facing messages and the event listing
	Stdout io.Writer
	Logger *slog.Logger
	// Library is used when set; otherwise Run creates and closes its own
	Library *pdfa.Library
	// OnEvent receives every conversion event after it was printed
	OnEvent func(pdfa.Event)
}

func (o *Options) setDefaults() {
	if o.Conformance == pdfa.ConformanceNone {
		o.Conformance = pdfa.DefaultConformance
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Run converts opts.InputPath to opts.OutputPath unless the input already
// conforms. It prints the progress messages to opts.Stdout and returns the
// outcome together with a *StepError, or ErrCriticalEvents when the output
// was written but carries events of error severity.
func Run(ctx context.Context, opts Options) (Outcome, error) {
	opts.setDefaults()
	out := opts.Stdout
	log := opts.Logger.With("input", opts.InputPath, "conformance", opts.Conformance.String())

	lib := opts.Library
	if lib == nil {
		var err error
		lib, err = pdfa.NewLibrary(pdfa.WithLogger(opts.Logger))
		if err != nil {
			return OutcomeFailed, &StepError{Step: StepOpenDocument, Path: opts.InputPath, Err: err}
		}
		defer lib.Close()
	}

	in, err := openInput(opts.InputPath, opts.MaxFileSize)
	if err != nil {
		fmt.Fprintf(out, "Failed to open the input file \"%s\" for reading.\n", opts.InputPath)
		log.Debug("open input failed", "error", err)
		return OutcomeFailed, &StepError{Step: StepOpenInput, Path: opts.InputPath, Err: err}
	}
	defer in.Close()

	doc, err := lib.Open(in, opts.Password)
	if err != nil {
		fmt.Fprintf(out, "Failed to open document \"%s\". %s (ErrorCode: 0x%08x).\n",
			opts.InputPath, pdfa.MessageOf(err), uint32(pdfa.ErrorCodeOf(err)))
		return OutcomeFailed, &StepError{Step: StepOpenDocument, Path: opts.InputPath, Err: err}
	}
	defer doc.Close()

	result, err := pdfa.NewValidator(lib).Analyze(ctx, doc, pdfa.AnalysisOptions{Conformance: opts.Conformance})
	if err != nil {
		fmt.Fprintf(out, "Failed to analyze document. %s (ErrorCode: 0x%08x).\n",
			pdfa.MessageOf(err), uint32(pdfa.ErrorCodeOf(err)))
		return OutcomeFailed, &StepError{Step: StepAnalyze, Path: opts.InputPath, Err: err}
	}
	log.Info("analysis finished",
		"claimed", result.ClaimedConformance().String(),
		"findings", len(result.Findings()))

	if result.IsConforming() {
		fmt.Fprintf(out, "Document conforms to %s already.\n", result.Conformance())
		return OutcomeAlreadyConforming, nil
	}

	outFile, err := os.Create(opts.OutputPath)
	if err != nil {
		fmt.Fprintf(out, "Failed to create the output file \"%s\".\n", opts.OutputPath)
		return OutcomeFailed, &StepError{Step: StepCreateOutput, Path: opts.OutputPath, Err: err}
	}
	defer outFile.Close()

	worst := pdfa.SeverityInformation
	converter := pdfa.NewConverter(lib)
	converter.AddConversionEventHandler(func(e pdfa.Event) {
		fmt.Fprintln(out, e.String())
		if e.Severity > worst {
			worst = e.Severity
		}
		if opts.OnEvent != nil {
			opts.OnEvent(e)
		}
	})

	convOpts := pdfa.DefaultConversionOptions()
	convOpts.Optimize = opts.Optimize
	outDoc, err := converter.Convert(ctx, result, doc, outFile, convOpts)
	if err != nil {
		fmt.Fprintf(out, "Failed to convert document. %s (ErrorCode: 0x%08x).\n",
			pdfa.MessageOf(err), uint32(pdfa.ErrorCodeOf(err)))
		return OutcomeFailed, &StepError{Step: StepConvert, Path: opts.OutputPath, Err: err}
	}
	defer outDoc.Close()

	log.Info("conversion finished", "output", opts.OutputPath, "worst", worst.String())

	switch worst {
	case pdfa.SeverityInformation:
		fmt.Fprintf(out, "Successfully converted document to %s.\n", outDoc.Conformance())
		return OutcomeConverted, nil
	case pdfa.SeverityWarning:
		fmt.Fprintf(out, "Warnings occurred during the conversion of document to %s.\n", outDoc.Conformance())
		fmt.Fprintln(out, "Check the output file to decide if the result is acceptable.")
		return OutcomeConvertedWithWarnings, nil
	default:
		fmt.Fprintf(out, "Unable to convert document to %s because of critical conversion events.\n", result.Conformance())
		return OutcomeCriticalEvents, ErrCriticalEvents
	}
}

// openInput opens path for reading and rejects directories and files
// larger than maxSize.
func openInput(path string, maxSize int64) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		f.Close()
		return nil, fmt.Errorf("file size %d exceeds limit %d", info.Size(), maxSize)
	}
	return f, nil
}
