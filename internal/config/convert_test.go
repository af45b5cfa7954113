package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdfa-convert/internal/pdfa"
)

func loadConvert(t *testing.T, args ...string) (*ConvertConfig, error) {
	t.Helper()
	fs := pflag.NewFlagSet("pdfa-convert", pflag.ContinueOnError)
	v := viper.New()
	BindConvertFlags(fs, v)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return LoadConvert(v)
}

func TestLoadConvert_Defaults(t *testing.T) {
	cfg, err := loadConvert(t)
	if err != nil {
		t.Fatalf("LoadConvert() unexpected error: %v", err)
	}

	if cfg.Target() != pdfa.PDFA2B {
		t.Errorf("LoadConvert() Target = %v, want %v", cfg.Target(), pdfa.PDFA2B)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadConvert() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.Optimize || cfg.Password != "" || cfg.ReportPath != "" {
		t.Errorf("LoadConvert() unexpected non-default values: %s", cfg)
	}
}

func TestLoadConvert_Flags(t *testing.T) {
	cfg, err := loadConvert(t, "--conformance=PDF/A-3u", "--optimize", "--password=secret", "--report=run.yaml", "--maxfilesize=2048")
	if err != nil {
		t.Fatalf("LoadConvert() unexpected error: %v", err)
	}

	if cfg.Target() != pdfa.PDFA3U {
		t.Errorf("LoadConvert() Target = %v, want %v", cfg.Target(), pdfa.PDFA3U)
	}
	if !cfg.Optimize {
		t.Errorf("LoadConvert() Optimize = false, want true")
	}
	if cfg.Password != "secret" {
		t.Errorf("LoadConvert() Password = %q, want %q", cfg.Password, "secret")
	}
	if cfg.ReportPath != "run.yaml" {
		t.Errorf("LoadConvert() ReportPath = %q, want %q", cfg.ReportPath, "run.yaml")
	}
	if cfg.MaxFileSize != 2048 {
		t.Errorf("LoadConvert() MaxFileSize = %d, want %d", cfg.MaxFileSize, 2048)
	}
	if strings.Contains(cfg.String(), "secret") {
		t.Errorf("ConvertConfig.String() leaks the password: %s", cfg)
	}
}

func TestLoadConvert_Environment(t *testing.T) {
	t.Setenv("PDFA_CONFORMANCE", "pdfa-1b")
	t.Setenv("PDFA_OPTIMIZE", "true")

	cfg, err := loadConvert(t)
	if err != nil {
		t.Fatalf("LoadConvert() unexpected error: %v", err)
	}
	if cfg.Target() != pdfa.PDFA1B {
		t.Errorf("LoadConvert() Target = %v, want %v", cfg.Target(), pdfa.PDFA1B)
	}
	if !cfg.Optimize {
		t.Errorf("LoadConvert() Optimize = false, want true from environment")
	}

	cfg, err = loadConvert(t, "--conformance=2u")
	if err != nil {
		t.Fatalf("LoadConvert() unexpected error: %v", err)
	}
	if cfg.Target() != pdfa.PDFA2U {
		t.Errorf("LoadConvert() Target = %v, want flag to override env", cfg.Target())
	}
}

func TestLoadConvert_Invalid(t *testing.T) {
	tests := [][]string{
		{"--conformance=pdfa-7"},
		{"--conformance=pdfa-1a"},
		{"--loglevel=chatty"},
		{"--maxfilesize=0"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := loadConvert(t, args...); err == nil {
				t.Errorf("LoadConvert(%v) expected error", args)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %s", out)
	}

	if ParseLogLevel("debug") != slog.LevelDebug || ParseLogLevel("bogus") != slog.LevelWarn {
		t.Errorf("ParseLogLevel mapping is wrong")
	}
}
