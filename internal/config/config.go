// Package config loads and validates client configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root client configuration.
type Config struct {
	Portal        PortalConfig        `yaml:"portal"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PortalConfig describes the portal backend the client talks to.
type PortalConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	DefaultLang string        `yaml:"default_lang"`
	SpecFile    string        `yaml:"spec_file"`
}

// StorageConfig describes where durable client state lives.
type StorageConfig struct {
	// StateDir holds the token file and wizard draft file. Defaults to
	// ~/.insaf when empty.
	StateDir string `yaml:"state_dir"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Portal: PortalConfig{
			Timeout:     30 * time.Second,
			DefaultLang: "ar",
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields. A missing file is not an error: defaults
// plus environment overrides are used instead.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to env overrides.
	default:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.Storage.StateDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Storage.StateDir = filepath.Join(home, ".insaf")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Portal.BaseURL == "" {
		errs = append(errs, "portal.base_url is required")
	}
	if c.Portal.Timeout < 0 {
		errs = append(errs, "portal.timeout must not be negative")
	}
	if lang := c.Portal.DefaultLang; lang != "" && lang != "ar" && lang != "en" {
		errs = append(errs, fmt.Sprintf("portal.default_lang must be ar or en, got %q", lang))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads INSAF_* environment variables and overrides config
// values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INSAF_PORTAL_BASE_URL"); v != "" {
		cfg.Portal.BaseURL = v
	}
	if v := os.Getenv("INSAF_PORTAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Portal.Timeout = d
		}
	}
	if v := os.Getenv("INSAF_PORTAL_LANG"); v != "" {
		cfg.Portal.DefaultLang = v
	}
	if v := os.Getenv("INSAF_STATE_DIR"); v != "" {
		cfg.Storage.StateDir = v
	}
	if v := os.Getenv("INSAF_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
