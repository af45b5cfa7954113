package driver

import (
	"errors"
	"fmt"
)

// Step names the stage of a conversion run that failed.
type Step string

const (
	StepOpenInput    Step = "open input"
	StepOpenDocument Step = "open document"
	StepAnalyze      Step = "analyze"
	StepCreateOutput Step = "create output"
	StepConvert      Step = "convert"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrOpenInput indicates the input file could not be opened for reading.
	ErrOpenInput = errors.New("failed to open input file")

	// ErrOpenDocument indicates the input could not be parsed as a document.
	ErrOpenDocument = errors.New("failed to open document")

	// ErrAnalyze indicates conformance analysis failed.
	ErrAnalyze = errors.New("failed to analyze document")

	// ErrCreateOutput indicates the output file could not be created.
	ErrCreateOutput = errors.New("failed to create output file")

	// ErrConvert indicates the conversion itself failed.
	ErrConvert = errors.New("failed to convert document")

	// ErrCriticalEvents indicates the conversion finished but reported
	// events of error severity.
	ErrCriticalEvents = errors.New("critical conversion events")
)

var stepSentinels = map[Step]error{
	StepOpenInput:    ErrOpenInput,
	StepOpenDocument: ErrOpenDocument,
	StepAnalyze:      ErrAnalyze,
	StepCreateOutput: ErrCreateOutput,
	StepConvert:      ErrConvert,
}

// StepError records which step of a run failed and why.
type StepError struct {
	// Step is the failing stage
	Step Step
	// Path is the file concerned, if any
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a human-readable error message.
func (e *StepError) Error() string {
	msg := string(e.Step)
	if e.Path != "" {
		msg += fmt.Sprintf(" %q", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failing step.
func (e *StepError) Is(target error) bool {
	return stepSentinels[e.Step] == target
}
