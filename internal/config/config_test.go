package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/pdfa-convert/internal/pdfa"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.ServerName != "pdfa-mcp" {
		t.Errorf("Expected default server name to be 'pdfa-mcp', got '%s'", cfg.ServerName)
	}

	if cfg.Conformance != "pdfa-2b" {
		t.Errorf("Expected default conformance to be 'pdfa-2b', got '%s'", cfg.Conformance)
	}

	if cfg.Target() != pdfa.PDFA2B {
		t.Errorf("Expected default target PDF/A-2b, got %s", cfg.Target())
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	currentDir, _ := os.Getwd()
	if cfg.PDFDirectory != currentDir {
		t.Errorf("Expected default PDF directory to be '%s', got '%s'", currentDir, cfg.PDFDirectory)
	}
}

func validConfig(dir string) *Config {
	return &Config{
		Mode:         ModeStdio,
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: dir,
		Conformance:  "pdfa-2b",
		LogLevel:     "info",
		MaxFileSize:  1024,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid stdio config",
			modify: func(*Config) {},
		},
		{
			name:   "valid server config",
			modify: func(c *Config) { c.Mode = ModeServer },
		},
		{
			name:    "invalid mode",
			modify:  func(c *Config) { c.Mode = "invalid" },
			wantErr: "mode must be",
		},
		{
			name: "invalid port in server mode",
			modify: func(c *Config) {
				c.Mode = ModeServer
				c.Port = 70000
			},
			wantErr: "port must be",
		},
		{
			name:   "invalid port ignored in stdio mode",
			modify: func(c *Config) { c.Port = 0 },
		},
		{
			name:    "empty PDF directory",
			modify:  func(c *Config) { c.PDFDirectory = "" },
			wantErr: "PDF directory cannot be empty",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid max file size",
			modify:  func(c *Config) { c.MaxFileSize = 0 },
			wantErr: "maximum file size",
		},
		{
			name:    "unknown conformance",
			modify:  func(c *Config) { c.Conformance = "pdfa-9z" },
			wantErr: "invalid conformance",
		},
		{
			name:    "level a is not producible",
			modify:  func(c *Config) { c.Conformance = "pdfa-2a" },
			wantErr: "cannot be produced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t.TempDir())
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Config.Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Config.Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "archive")
	cfg := validConfig(dir)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() unexpected error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("expected directory to be created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", dir)
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "192.168.1.1", Port: 9090}

	if got := cfg.Address(); got != "192.168.1.1:9090" {
		t.Errorf("Config.Address() = %v, want %v", got, "192.168.1.1:9090")
	}
}

func TestConfigModes(t *testing.T) {
	cfg := &Config{Mode: ModeServer, LogLevel: "debug"}
	if !cfg.IsServerMode() || cfg.IsStdioMode() {
		t.Errorf("expected server mode for %q", cfg.Mode)
	}
	if !cfg.IsDebug() {
		t.Errorf("expected debug for log level %q", cfg.LogLevel)
	}

	cfg = &Config{Mode: ModeStdio, LogLevel: "warn"}
	if cfg.IsServerMode() || !cfg.IsStdioMode() {
		t.Errorf("expected stdio mode for %q", cfg.Mode)
	}
	if cfg.IsDebug() {
		t.Errorf("expected no debug for log level %q", cfg.LogLevel)
	}
}

func TestConfigString(t *testing.T) {
	cfg := validConfig("/srv/archive")
	s := cfg.String()

	for _, want := range []string{"Mode: stdio", "PDFDirectory: /srv/archive", "Conformance: pdfa-2b", "MaxFileSize: 1024"} {
		if !strings.Contains(s, want) {
			t.Errorf("Config.String() = %q, missing %q", s, want)
		}
	}
}
