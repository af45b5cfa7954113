// Package main is the entry point of pdfa-convert, which validates a PDF
// against PDF/A and converts it when it does not conform.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/a3tai/pdfa-convert/internal/config"
	"github.com/a3tai/pdfa-convert/internal/driver"
	"github.com/a3tai/pdfa-convert/internal/pdfa"
	"github.com/a3tai/pdfa-convert/internal/report"
)

// version is set at build time via ldflags.
var version = "dev"

// exitError carries a non-zero exit status out of RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "pdfa-convert [flags] <inputPath> <outputPath>",
		Short: "Validate a PDF against PDF/A and convert it if needed",
		Long: `pdfa-convert checks whether the input document conforms to the requested
PDF/A level (PDF/A-2b by default). A conforming document is left alone.
Otherwise a converted copy is written to the output path and every change
made during the conversion is listed.

Exit status is 0 when the document conforms already or was converted, and 1
on any failure, including conversions that could not reach conformance.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				_ = cmd.Usage()
				return &exitError{code: 1}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, v, args[0], args[1], stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().String("config", "", "config file (default: ./pdfa-convert.yaml or ~/.config/pdfa-convert/config.yaml)")
	config.BindConvertFlags(cmd.Flags(), v)

	return cmd
}

// initConfig reads the optional config file into v. A missing default file
// is not an error; a missing explicit file is.
func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pdfa-convert")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pdfa-convert"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

func runConvert(cmd *cobra.Command, v *viper.Viper, input, output string, stdout, stderr io.Writer) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := initConfig(v, cfgFile); err != nil {
		return err
	}
	cfg, err := config.LoadConvert(v)
	if err != nil {
		return err
	}

	logger := config.NewLogger(stderr, cfg.LogLevel)
	if used := v.ConfigFileUsed(); used != "" {
		logger.Info("using config file", "path", used)
	}

	lib, err := pdfa.NewLibrary(pdfa.WithLogger(logger))
	if err != nil {
		return err
	}
	defer lib.Close()

	opts := driver.Options{
		InputPath:   input,
		OutputPath:  output,
		Conformance: cfg.Target(),
		Password:    cfg.Password,
		Optimize:    cfg.Optimize,
		MaxFileSize: cfg.MaxFileSize,
		Stdout:      stdout,
		Logger:      logger,
		Library:     lib,
	}

	var rep *report.Report
	if cfg.ReportPath != "" {
		rep = report.New(input, output, opts.Conformance, time.Now())
		opts.OnEvent = rep.Record
	}

	outcome, runErr := driver.Run(cmd.Context(), opts)
	if runErr != nil {
		logger.Debug("conversion run failed", "outcome", outcome.String(), "error", runErr)
	}

	if rep != nil {
		rep.Finish(outcome, runErr, time.Now())
		if err := rep.WriteFile(cfg.ReportPath); err != nil {
			logger.Error("failed to write report", "path", cfg.ReportPath, "error", err)
		}
	}

	if code := outcome.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// execute runs the command with args and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
