package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jacobrobertsbaca/blockybird/internal/config"
)

func TestResolveConfigExample(t *testing.T) {
	cfg, err := resolveConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if len(cfg.CorsOrigins) != 2 {
		t.Fatalf("unexpected cors origins: %v", cfg.CorsOrigins)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.RequestTimeout != 0 {
		t.Fatalf("unexpected durations: ttl=%v timeout=%v", cfg.SessionTTL, cfg.RequestTimeout)
	}
	if cfg.RecoverOnFailure {
		t.Fatalf("expected recover_on_failure disabled")
	}
}

func TestResolveConfigEnvWins(t *testing.T) {
	t.Setenv("BLOCKYBIRD_ADDR", ":9999")
	t.Setenv("BLOCKYBIRD_RECOVER_ON_FAILURE", "true")

	cfg, err := resolveConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":9999" || !cfg.RecoverOnFailure {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestResolveConfigExplicitMissing(t *testing.T) {
	if _, err := resolveConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestResolveConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`session_ttl = "0s"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := resolveConfig(path); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
