// Package report records the outcome of one conversion run as YAML.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/a3tai/pdfa-convert/internal/driver"
	"github.com/a3tai/pdfa-convert/internal/pdfa"
)

// Event is the YAML form of a conversion event.
type Event struct {
	Severity string `yaml:"severity"`
	Category string `yaml:"category"`
	Code     string `yaml:"code"`
	Message  string `yaml:"message"`
	Context  string `yaml:"context,omitempty"`
	Page     int    `yaml:"page,omitempty"`
}

// Report describes one run of the converter.
type Report struct {
	Input       string    `yaml:"input"`
	Output      string    `yaml:"output"`
	Conformance string    `yaml:"conformance"`
	StartedAt   time.Time `yaml:"started_at"`
	Duration    string    `yaml:"duration"`
	Outcome     string    `yaml:"outcome"`
	ExitCode    int       `yaml:"exit_code"`
	Step        string    `yaml:"failed_step,omitempty"`
	Error       string    `yaml:"error,omitempty"`
	Events      []Event   `yaml:"events"`
}

// New starts a report for a run.
func New(input, output string, conformance pdfa.Conformance, started time.Time) *Report {
	return &Report{
		Input:       input,
		Output:      output,
		Conformance: conformance.String(),
		StartedAt:   started.UTC(),
		Events:      []Event{},
	}
}

// Record appends e. It is meant to be passed as driver.Options.OnEvent.
func (r *Report) Record(e pdfa.Event) {
	r.Events = append(r.Events, Event{
		Severity: e.Severity.String(),
		Category: e.Category.String(),
		Code:     e.Code.String(),
		Message:  e.Message,
		Context:  e.Context,
		Page:     e.Page,
	})
}

// Finish stores the outcome and the error returned by driver.Run.
func (r *Report) Finish(outcome driver.Outcome, err error, finished time.Time) {
	r.Outcome = outcome.String()
	r.ExitCode = outcome.ExitCode()
	r.Duration = finished.Sub(r.StartedAt).Round(time.Millisecond).String()
	if err != nil {
		r.Error = err.Error()
		var stepErr *driver.StepError
		if errors.As(err, &stepErr) {
			r.Step = string(stepErr.Step)
		}
	}
}

// Encode writes the report as a YAML document to w.
func (r *Report) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(r)
}

// WriteFile writes the report to path.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding report: %w", err)
	}
	return f.Close()
}

// Read parses a report written by WriteFile.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}
