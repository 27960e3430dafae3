// Package config loads Wren client settings from a YAML file with
// environment-variable overrides, for CLI and service consumers of the
// library. Library users configure the client directly through options.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "5m", or from a plain integer nanosecond count.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a standard time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the client settings consumed by cmd/wrencli.
type Config struct {
	// BaseURL is the Wren API endpoint.
	BaseURL string `yaml:"base_url"`

	// LoginPath is where users are sent after a confirmed session loss.
	LoginPath string `yaml:"login_path"`

	// VerifyPath is the session-verification endpoint.
	VerifyPath string `yaml:"verify_path"`

	// RefreshTokenPath overrides where the refresh token is persisted.
	RefreshTokenPath string `yaml:"refresh_token_path"`

	// RequestTimeout bounds every HTTP request, including the session
	// verification call.
	RequestTimeout Duration `yaml:"request_timeout"`

	// CacheTTL is how long GET responses are served from cache. Zero
	// disables caching.
	CacheTTL Duration `yaml:"cache_ttl"`

	// CachePath is the SQLite cache database location. Empty selects the
	// in-memory store.
	CachePath string `yaml:"cache_path"`
}

func (c *Config) defaults() {
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	if c.VerifyPath == "" {
		c.VerifyPath = "/public/session"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(30 * time.Second)
	}
}

// applyEnv overrides file values with WREN_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("WREN_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("WREN_LOGIN_PATH"); v != "" {
		c.LoginPath = v
	}
	if v := os.Getenv("WREN_REFRESH_TOKEN_PATH"); v != "" {
		c.RefreshTokenPath = v
	}
	if v := os.Getenv("WREN_CACHE_PATH"); v != "" {
		c.CachePath = v
	}
}

// Validate reports configuration errors that cannot be defaulted away.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required (file or WREN_BASE_URL)")
	}
	return nil
}

// Load reads the YAML config at path, applies environment overrides and
// defaults, and validates the result. A missing file is not an error; the
// configuration then comes entirely from the environment and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.defaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
