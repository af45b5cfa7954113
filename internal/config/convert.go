package config

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdfa-convert/internal/pdfa"
)

// EnvPrefix prefixes the environment variables read by the converter CLI.
const EnvPrefix = "PDFA"

// DefaultConvertLogLevel keeps the CLI quiet so only the driver's messages show.
const DefaultConvertLogLevel = "warn"

// ConvertConfig holds the settings of one pdfa-convert invocation.
type ConvertConfig struct {
	Conformance string
	Password    string
	Optimize    bool
	ReportPath  string
	LogLevel    string
	MaxFileSize int64
}

// DefaultConvertConfig returns the converter defaults.
func DefaultConvertConfig() *ConvertConfig {
	return &ConvertConfig{
		Conformance: DefaultConformance,
		LogLevel:    DefaultConvertLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// BindConvertFlags defines the converter flags on fs and binds them to v
// together with the PDFA_ environment variables.
func BindConvertFlags(fs *pflag.FlagSet, v *viper.Viper) {
	cfg := DefaultConvertConfig()

	fs.String("conformance", cfg.Conformance, "Target conformance (pdfa-1b, pdfa-2b, pdfa-2u, pdfa-3b, pdfa-3u)")
	fs.String("password", "", "Password of an encrypted input document")
	fs.Bool("optimize", false, "Optimize the output document")
	fs.String("report", "", "Write a YAML report of the run to this file")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("conformance", cfg.Conformance)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)

	for _, name := range []string{"conformance", "password", "optimize", "report", "loglevel", "maxfilesize"} {
		_ = v.BindPFlag(name, fs.Lookup(name))
	}
}

// LoadConvert reads the converter settings from v and validates them.
func LoadConvert(v *viper.Viper) (*ConvertConfig, error) {
	cfg := &ConvertConfig{
		Conformance: v.GetString("conformance"),
		Password:    v.GetString("password"),
		Optimize:    v.GetBool("optimize"),
		ReportPath:  v.GetString("report"),
		LogLevel:    v.GetString("loglevel"),
		MaxFileSize: v.GetInt64("maxfilesize"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the converter settings.
func (c *ConvertConfig) Validate() error {
	if _, err := ParseTarget(c.Conformance); err != nil {
		return err
	}
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	return validateLogLevel(c.LogLevel)
}

// Target returns the parsed target conformance.
func (c *ConvertConfig) Target() pdfa.Conformance {
	t, err := ParseTarget(c.Conformance)
	if err != nil {
		return pdfa.DefaultConformance
	}
	return t
}

// String omits the password.
func (c *ConvertConfig) String() string {
	return fmt.Sprintf("ConvertConfig{Conformance: %s, Optimize: %t, ReportPath: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Conformance, c.Optimize, c.ReportPath, c.LogLevel, c.MaxFileSize)
}
