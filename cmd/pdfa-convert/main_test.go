package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdfa-convert/internal/pdfa"
	"github.com/a3tai/pdfa-convert/internal/pdfa/pdftest"
	"github.com/a3tai/pdfa-convert/internal/report"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_WrongArgumentCount(t *testing.T) {
	tests := [][]string{
		{},
		{"only-input.pdf"},
		{"a.pdf", "b.pdf", "c.pdf"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			code, stdout, _ := runCLI(t, args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stdout, "pdfa-convert [flags] <inputPath> <outputPath>")
		})
	}
}

func TestExecute_Version(t *testing.T) {
	original := version
	version = "1.2.3"
	t.Cleanup(func() { version = original })

	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "1.2.3")
}

func TestExecute_Converts(t *testing.T) {
	dir := t.TempDir()
	in := pdftest.WriteFile(t, dir, "in.pdf", pdftest.Options{Pages: 1})
	out := filepath.Join(dir, "out.pdf")

	code, stdout, _ := runCLI(t, in, out)
	assert.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, "Successfully converted document to PDF/A-2b.")

	_, err := os.Stat(out)
	require.NoError(t, err)
}

func TestExecute_AlreadyConforming(t *testing.T) {
	dir := t.TempDir()
	in := pdftest.WriteFile(t, dir, "in.pdf", pdftest.Options{
		Metadata:      pdfa.BuildXMP(pdfa.Metadata{Conformance: pdfa.PDFA1B}),
		OutputProfile: pdfa.SRGBProfile(),
		FileID:        true,
	})
	out := filepath.Join(dir, "out.pdf")

	code, stdout, _ := runCLI(t, "--conformance=pdfa-1b", in, out)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Document conforms to PDF/A-1b already.\n", stdout)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "no output expected for a conforming input")
}

func TestExecute_MissingInput(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pdf")

	code, stdout, _ := runCLI(t, missing, filepath.Join(dir, "out.pdf"))
	assert.Equal(t, 1, code)
	assert.Equal(t, "Failed to open the input file \""+missing+"\" for reading.\n", stdout)
}

func TestExecute_InvalidConformance(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI(t, "--conformance=pdfa-9z", filepath.Join(dir, "in.pdf"), filepath.Join(dir, "out.pdf"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
}

func TestExecute_ReportAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := pdftest.WriteFile(t, dir, "in.pdf", pdftest.Options{Font: "Helvetica"})
	out := filepath.Join(dir, "out.pdf")
	reportPath := filepath.Join(dir, "run.yaml")

	cfgPath := filepath.Join(dir, "pdfa.yaml")
	cfg := "conformance: pdfa-2u\nreport: " + reportPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	code, stdout, _ := runCLI(t, "--config="+cfgPath, in, out)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "because of critical conversion events")

	rep, err := report.Read(reportPath)
	require.NoError(t, err)
	assert.Equal(t, "PDF/A-2u", rep.Conformance)
	assert.Equal(t, "critical-events", rep.Outcome)
	assert.Equal(t, 1, rep.ExitCode)
	require.NotEmpty(t, rep.Events)

	var severities []string
	for _, e := range rep.Events {
		severities = append(severities, e.Severity)
	}
	assert.Contains(t, severities, "error")
}

func TestExecute_MissingExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI(t, "--config="+filepath.Join(dir, "nope.yaml"), "in.pdf", "out.pdf")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "reading config file")
}
