package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wren.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "base_url: https://api.wren.example\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "https://api.wren.example" {
		t.Errorf("Unexpected base URL: %q", cfg.BaseURL)
	}
	if cfg.LoginPath != "/login" {
		t.Errorf("Expected default login path, got %q", cfg.LoginPath)
	}
	if cfg.VerifyPath != "/public/session" {
		t.Errorf("Expected default verify path, got %q", cfg.VerifyPath)
	}
	if cfg.RequestTimeout.Std() != 30*time.Second {
		t.Errorf("Expected default request timeout, got %v", cfg.RequestTimeout)
	}
}

func TestLoadParsesFullFile(t *testing.T) {
	path := writeConfigFile(t, `
base_url: https://api.wren.example
login_path: /signin
verify_path: /public/check
request_timeout: 10s
cache_ttl: 5m
cache_path: /tmp/wren-cache.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LoginPath != "/signin" || cfg.VerifyPath != "/public/check" {
		t.Errorf("Unexpected paths: %+v", cfg)
	}
	if cfg.RequestTimeout.Std() != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", cfg.RequestTimeout.Std())
	}
	if cfg.CacheTTL.Std() != 5*time.Minute {
		t.Errorf("Expected 5m cache TTL, got %v", cfg.CacheTTL.Std())
	}
	if cfg.CachePath != "/tmp/wren-cache.db" {
		t.Errorf("Unexpected cache path: %q", cfg.CachePath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "base_url: https://file.wren.example\n")
	t.Setenv("WREN_BASE_URL", "https://env.wren.example")
	t.Setenv("WREN_LOGIN_PATH", "/env-login")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "https://env.wren.example" {
		t.Errorf("Expected env override for base URL, got %q", cfg.BaseURL)
	}
	if cfg.LoginPath != "/env-login" {
		t.Errorf("Expected env override for login path, got %q", cfg.LoginPath)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("WREN_BASE_URL", "https://env.wren.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "https://env.wren.example" {
		t.Errorf("Expected env base URL, got %q", cfg.BaseURL)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Error("Expected validation error without a base URL")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "base_url: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error for malformed YAML")
	}
}
