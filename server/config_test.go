package server

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}
	if cfg.Addr != ":5000" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Fatalf("gateway timeout=%s", cfg.GatewayTimeout)
	}
	if cfg.FeedbackEnabled {
		t.Fatalf("expected feedback generation off by default")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("IBOT_ADDR", ":9999")
	t.Setenv("IBOT_GATEWAY_TIMEOUT", "5s")
	t.Setenv("IBOT_FEEDBACK_ENABLED", "true")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected overrides to load, got %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.GatewayTimeout != 5*time.Second {
		t.Fatalf("gateway timeout=%s", cfg.GatewayTimeout)
	}
	if !cfg.FeedbackEnabled {
		t.Fatalf("expected feedback generation enabled")
	}
}

func TestLoadFromEnvRejectsNonPositiveBodyLimit(t *testing.T) {
	t.Setenv("IBOT_MAX_BODY_BYTES", "-1")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected an error for a non-positive body limit")
	}
}
