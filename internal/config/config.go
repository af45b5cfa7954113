package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdfa-convert/internal/pdfa"
)

const (
	ModeStdio  = "stdio"
	ModeServer = "server"

	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultConformance = "pdfa-2b"
	DefaultMaxFileSize = 100 * 1024 * 1024

	// DefaultDirPerm is used when the working directory has to be created.
	DefaultDirPerm = 0o750
)

// ServerEnvPrefix prefixes the environment variables read by the MCP server.
const ServerEnvPrefix = "PDFA_MCP"

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds the settings of the PDF/A MCP server.
type Config struct {
	Mode string
	Host string
	Port int

	// PDFDirectory confines every path the tools accept
	PDFDirectory string
	// Conformance is the target used when a tool call names none
	Conformance string

	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64
}

// DefaultConfig serves the current directory over stdio.
func DefaultConfig() *Config {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return &Config{
		Mode:         ModeStdio,
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: dir,
		Conformance:  DefaultConformance,
		Version:      "1.0.0",
		ServerName:   "pdfa-mcp",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// serverSetting is one value that can come from a flag or the environment.
type serverSetting struct {
	key    string
	usage  string
	define func(fs *pflag.FlagSet, key string, cfg *Config, usage string)
	apply  func(v *viper.Viper, key string, cfg *Config)
}

var serverSettings = []serverSetting{
	{
		key:   "mode",
		usage: "Transport: 'stdio' for MCP over standard I/O, 'server' for HTTP/SSE",
		define: func(fs *pflag.FlagSet, key string, cfg *Config, usage string) {
			fs.String(key, cfg.Mode, usage)
		},
		apply: func(v *viper.Viper, key string, cfg *Config) { cfg.Mode = v.GetString(key) },
	},
	{
		key:   "host",
		usage: "Listen address in server mode",
		define: func(fs *pflag.FlagSet, key string, cfg *Config, usage string) {
			fs.String(key, cfg.Host, usage)
		},
		apply: func(v *viper.Viper, key string, cfg *Config) { cfg.Host = v.GetString(key) },
	},
	{
		key:   "port",
		usage: "Listen port in server mode",
		define: func(fs *pflag.FlagSet, key string, cfg *Config, usage string) {
			fs.Int(key, cfg.Port, usage)
		},
		apply: func(v *viper.Viper, key string, cfg *Config) { cfg.Port = v.GetInt(key) },
	},
	{
		key:   "dir",
		usage: "Working directory; tool paths are resolved inside it",
		define: func(fs *pflag.FlagSet, key string, cfg *Config, usage string) {
			fs.String(key, cfg.PDFDirectory, usage)
		},
		apply: func(v *viper.Viper, key string, cfg *Config) { cfg.PDFDirectory = v.GetString(key) },
	},
	{
		key:   "conformance",
		usage: "Target for calls that name none (pdfa-1b, pdfa-2b, pdfa-2u, pdfa-3b, pdfa-3u)",
		define: func(fs *pflag.FlagSet, key string, cfg *Config, usage string) {
			fs.String(key, cfg.Conformance, usage)
		},
		apply: func(v *viper.Viper, key string, cfg *Config) { cfg.Conformance = v.GetString(key) },
	},
	{
		key:   "loglevel",
		usage: "Log level (" + strings.Join(logLevels, ", ") + ")",
		define: func(fs *pflag.FlagSet, key string, cfg *Config, usage string) {
			fs.String(key, cfg.LogLevel, usage)
		},
		apply: func(v *viper.Viper, key string, cfg *Config) { cfg.LogLevel = v.GetString(key) },
	},
	{
		key:   "maxfilesize",
		usage: "Largest input document in bytes",
		define: func(fs *pflag.FlagSet, key string, cfg *Config, usage string) {
			fs.Int64(key, cfg.MaxFileSize, usage)
		},
		apply: func(v *viper.Viper, key string, cfg *Config) { cfg.MaxFileSize = v.GetInt64(key) },
	},
}

// BindServerFlags defines the server flags on fs with defaults from cfg and
// binds them to v together with the PDFA_MCP_ environment variables. A flag
// given on the command line wins over the environment.
func BindServerFlags(fs *pflag.FlagSet, v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(ServerEnvPrefix)
	v.AutomaticEnv()
	for _, s := range serverSettings {
		s.define(fs, s.key, cfg, s.usage)
		_ = v.BindPFlag(s.key, fs.Lookup(s.key))
	}
}

// LoadServer fills a default configuration from v and validates it.
func LoadServer(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	for _, s := range serverSettings {
		s.apply(v, s.key, cfg)
	}
	if cfg.PDFDirectory != "" {
		if abs, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = abs
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFlags reads the process arguments and environment into a
// validated configuration.
func LoadFromFlags() (*Config, error) {
	fs := pflag.CommandLine
	v := viper.GetViper()

	BindServerFlags(fs, v, DefaultConfig())
	fs.Usage = func() { writeServerUsage(os.Stderr, fs) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}
	return LoadServer(v)
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return ServerEnvPrefix + "_" + strings.ToUpper(key)
}

func writeServerUsage(w io.Writer, fs *pflag.FlagSet) {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage: %s [flags]\n\n", name)
	fmt.Fprintln(w, "Serves PDF/A analysis and conversion tools over the Model Context Protocol.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every flag can also be set in the environment:")
	for _, s := range serverSettings {
		fmt.Fprintf(w, "  %-24s --%s\n", EnvName(s.key), s.key)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s --dir=/srv/archive\n", name)
	fmt.Fprintf(w, "  %s --mode=server --port=9000 --conformance=pdfa-3b\n", name)
}

// Validate checks the settings and creates the working directory when it is
// missing.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeStdio:
	case ModeServer:
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
		}
	default:
		return fmt.Errorf("mode must be either '%s' or '%s', got %q", ModeStdio, ModeServer, c.Mode)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if _, err := ParseTarget(c.Conformance); err != nil {
		return err
	}
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	return ensureDirectory(c.PDFDirectory)
}

func ensureDirectory(dir string) error {
	if dir == "" {
		return errors.New("PDF directory cannot be empty")
	}
	_, err := os.Stat(dir)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", dir, err)
		}
		return nil
	default:
		return fmt.Errorf("cannot access PDF directory %s: %w", dir, err)
	}
}

// Target returns the parsed default conformance.
func (c *Config) Target() pdfa.Conformance {
	t, err := ParseTarget(c.Conformance)
	if err != nil {
		return pdfa.DefaultConformance
	}
	return t
}

// Address returns host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Conformance: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.Conformance, c.LogLevel, c.MaxFileSize)
}

// ParseTarget parses s and rejects levels the converter cannot produce.
func ParseTarget(s string) (pdfa.Conformance, error) {
	c, err := pdfa.ParseConformance(s)
	if err != nil {
		return pdfa.ConformanceNone, fmt.Errorf("invalid conformance: %s", s)
	}
	if !c.IsTargetable() {
		return pdfa.ConformanceNone, fmt.Errorf("conformance %s cannot be produced (level a requires a structure tree)", c)
	}
	return c, nil
}

func validateLogLevel(level string) error {
	if !slices.Contains(logLevels, level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(logLevels, ", "))
	}
	return nil
}
