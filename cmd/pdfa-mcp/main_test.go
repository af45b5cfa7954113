package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/a3tai/pdfa-convert/internal/config"
)

const testVersion = "1.2.3"

func capturePrintVersion(t *testing.T) string {
	t.Helper()
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2024-03-01_10:30:00"
	gitCommit = "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	output := capturePrintVersion(t)

	expectedStrings := []string{
		"PDF/A MCP Server",
		"Version: " + testVersion,
		"Build Time: 2024-03-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name      string
		config    *config.Config
		wantInfo  bool
		wantError bool
	}{
		{"stdio mode - debug enabled", &config.Config{Mode: "stdio", LogLevel: "debug"}, true, true},
		{"stdio mode - info", &config.Config{Mode: "stdio", LogLevel: "info"}, false, true},
		{"server mode - info", &config.Config{Mode: "server", LogLevel: "info"}, true, true},
		{"server mode - error", &config.Config{Mode: "server", LogLevel: "error"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := setupLogging(tt.config, &buf)
			logger.Info("info message")
			logger.Error("error message")

			out := buf.String()
			if got := strings.Contains(out, "info message"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v\n%s", got, tt.wantInfo, out)
			}
			if got := strings.Contains(out, "error message"); got != tt.wantError {
				t.Errorf("error logged = %v, want %v\n%s", got, tt.wantError, out)
			}
		})
	}
}

func TestRun_ServerModeShutdown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	cfg.Port = 0
	cfg.PDFDirectory = t.TempDir()

	var buf bytes.Buffer
	logger := setupLogging(cfg, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logger) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after the context was canceled")
	}
}

func TestRun_InvalidDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = "/definitely/not/here"

	err := run(context.Background(), cfg, setupLogging(cfg, io.Discard))
	if err == nil || !strings.Contains(err.Error(), "failed to create MCP server") {
		t.Errorf("run() error = %v, want MCP server creation failure", err)
	}
}
