package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/pdfa-convert/internal/config"
	"github.com/a3tai/pdfa-convert/internal/descriptions"
	"github.com/a3tai/pdfa-convert/internal/driver"
	"github.com/a3tai/pdfa-convert/internal/pdfa"
	"github.com/a3tai/pdfa-convert/internal/security"
)

// Server exposes analysis and conversion as MCP tools
type Server struct {
	config    *config.Config
	library   *pdfa.Library
	paths     *security.PathValidator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, lib *pdfa.Library, logger *slog.Logger) (*Server, error) {
	if lib == nil {
		return nil, errors.New("library cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	paths, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		library:   lib,
		paths:     paths,
		logger:    logger,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"pdfa_analyze",
		mcp.WithDescription(descriptions.PDFAAnalyzeDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, relative to the working directory"),
		),
		mcp.WithString("conformance",
			mcp.Description("Target conformance such as pdfa-1b, pdfa-2b or pdfa-3u"),
		),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdfa_convert",
		mcp.WithDescription(descriptions.PDFAConvertDescription),
		mcp.WithString("input_path",
			mcp.Required(),
			mcp.Description("Path to the PDF file to convert"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Path the converted PDF/A file is written to"),
		),
		mcp.WithString("conformance",
			mcp.Description("Target conformance such as pdfa-1b, pdfa-2b or pdfa-3u"),
		),
		mcp.WithBoolean("optimize",
			mcp.Description("Optimize the output document"),
		),
	), s.handleConvert)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdfa_server_info",
		mcp.WithDescription(descriptions.PDFAServerInfoDescription),
	), s.handleServerInfo)
}

// target returns the conformance named by the optional "conformance" argument
func (s *Server) target(args map[string]any) (pdfa.Conformance, error) {
	name, _ := args["conformance"].(string)
	if name == "" {
		return s.config.Target(), nil
	}
	return config.ParseTarget(name)
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := s.target(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f, err := os.Open(resolved)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open %s: %v", path, err)), nil
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil && info.Size() > s.config.MaxFileSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max: %d)", info.Size(), s.config.MaxFileSize)), nil
	}

	doc, err := s.library.Open(f, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open document %s: %s (ErrorCode: 0x%08x)",
			path, pdfa.MessageOf(err), uint32(pdfa.ErrorCodeOf(err)))), nil
	}
	defer doc.Close()

	result, err := pdfa.NewValidator(s.library).Analyze(ctx, doc, pdfa.AnalysisOptions{Conformance: target})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to analyze %s: %s", path, pdfa.MessageOf(err))), nil
	}

	s.logger.Debug("analyzed document", "path", resolved, "findings", len(result.Findings()))
	return mcp.NewToolResultText(formatAnalysis(path, doc, result)), nil
}

func (s *Server) handleConvert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := request.RequireString("input_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	target, err := s.target(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	optimize, _ := args["optimize"].(bool)

	inPath, err := s.paths.Resolve(input)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outPath, err := s.paths.ResolveOutput(output)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if inPath == outPath {
		return mcp.NewToolResultError("output path must differ from input path"), nil
	}

	var transcript bytes.Buffer
	var events []pdfa.Event
	outcome, runErr := driver.Run(ctx, driver.Options{
		InputPath:   inPath,
		OutputPath:  outPath,
		Conformance: target,
		Optimize:    optimize,
		MaxFileSize: s.config.MaxFileSize,
		Stdout:      &transcript,
		Logger:      s.logger,
		Library:     s.library,
		OnEvent:     func(e pdfa.Event) { events = append(events, e) },
	})

	text := formatConversion(outcome, transcript.String(), events)
	if outcome == driver.OutcomeFailed {
		s.logger.Warn("conversion failed", "input", inPath, "error", runErr)
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "Working directory: %s\n", s.paths.Root())
	fmt.Fprintf(&b, "Default conformance: %s\n", s.config.Target())
	fmt.Fprintf(&b, "Max file size: %d MB\n", s.config.MaxFileSize/(1024*1024))

	targets := make([]string, 0, len(pdfa.TargetableConformances()))
	for _, c := range pdfa.TargetableConformances() {
		targets = append(targets, c.String())
	}
	fmt.Fprintf(&b, "Supported targets: %s\n", strings.Join(targets, ", "))

	b.WriteString("\nTools:\n")
	b.WriteString("• pdfa_analyze(path, conformance?)\n")
	b.WriteString("• pdfa_convert(input_path, output_path, conformance?, optimize?)\n")
	b.WriteString("• pdfa_server_info()\n")

	return mcp.NewToolResultText(b.String()), nil
}

func formatAnalysis(path string, doc *pdfa.Document, result *pdfa.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", path)
	fmt.Fprintf(&b, "Pages: %d\n", doc.PageCount())
	fmt.Fprintf(&b, "PDF version: %s\n", doc.Version())
	fmt.Fprintf(&b, "Claimed conformance: %s\n", result.ClaimedConformance())
	fmt.Fprintf(&b, "Target conformance: %s\n", result.Conformance())

	if result.IsConforming() {
		fmt.Fprintf(&b, "\nDocument conforms to %s.\n", result.Conformance())
		return b.String()
	}

	findings := result.Findings()
	repairable := 0
	for _, f := range findings {
		if f.Repairable {
			repairable++
		}
	}
	fmt.Fprintf(&b, "\n%d finding(s), %d repairable:\n", len(findings), repairable)
	for _, f := range findings {
		mark := "✗"
		if f.Repairable {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, f)
	}
	return b.String()
}

func formatConversion(outcome driver.Outcome, transcript string, events []pdfa.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome: %s\n", outcome)
	fmt.Fprintf(&b, "Events: %d\n\n", len(events))
	b.WriteString(transcript)
	return b.String()
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch s.config.Mode {
	case config.ModeServer:
		return s.runServerMode(ctx)
	case config.ModeStdio:
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Info("starting PDF/A MCP server in stdio mode", "directory", s.paths.Root())

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))
	s.logger.Info("starting PDF/A MCP server", "address", addr, "directory", s.paths.Root())

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}
