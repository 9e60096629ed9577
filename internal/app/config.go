package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SuitePath string `toml:"suite"`  // .hcl file or directory
	Output    string `toml:"output"` // empty means stdout
	Format    string `toml:"format"`

	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`

	Workers  int       `toml:"workers"`
	From     time.Time `toml:"from"`
	To       time.Time `toml:"to"`
	NeverRun []string  `toml:"never_run"`
	MaxDepth int       `toml:"max_depth"`
	Verify   bool      `toml:"verify"`
	Expand   bool      `toml:"expand"`
}

var (
	formats    = []string{"yaml", "text"}
	logFormats = []string{"text", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// NewConfig fills in defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SuitePath == "" {
		return nil, errors.New("SuitePath is a required configuration field and cannot be empty")
	}

	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Format == "" {
		cfg.Format = "yaml"
	}
	if !slices.Contains(formats, cfg.Format) {
		return nil, fmt.Errorf("invalid format %q: must be 'yaml' or 'text'", cfg.Format)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth must not be negative, got %d", cfg.MaxDepth)
	}
	if !cfg.From.IsZero() && !cfg.To.IsZero() && cfg.To.Before(cfg.From) {
		return nil, fmt.Errorf("cycle range ends (%s) before it starts (%s)",
			cfg.To.Format(time.RFC3339), cfg.From.Format(time.RFC3339))
	}

	return &cfg, nil
}

// LoadFile reads settings from a TOML file. Keys the file does not set keep
// the values already in base. Unknown keys are an error.
func LoadFile(path string, base Config) (Config, error) {
	cfg := base
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}
