package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/pdfa-convert/internal/config"
	"github.com/a3tai/pdfa-convert/internal/mcp"
	"github.com/a3tai/pdfa-convert/internal/pdfa"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the process logger. Logs always go to w, never to
// stdout, which carries the protocol in stdio mode. Stdio mode only reports
// errors unless debug logging was requested.
func setupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	level := config.ParseLogLevel(cfg.LogLevel)
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.IsServerMode() && cfg.IsDebug(),
	}))
}

// run serves until ctx is canceled or the server fails
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lib, err := pdfa.NewLibrary(pdfa.WithLogger(logger), pdfa.WithProducer(cfg.ServerName+" "+cfg.Version))
	if err != nil {
		return fmt.Errorf("failed to initialize PDF library: %w", err)
	}
	defer lib.Close()

	server, err := mcp.NewServer(cfg, lib, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg, os.Stderr)
	logger.Debug("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF/A MCP Server\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
