package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the HTTP surface's operational settings. Everything is
// env-driven with sensible defaults so the server starts with nothing but an
// OpenAI key in the environment.
type Config struct {
	Addr string

	MaxBodyBytes int64

	// Bound on a single completion round-trip, applied by the registry.
	GatewayTimeout time.Duration

	// When set, ending a session also asks the gateway for a structured
	// feedback report.
	FeedbackEnabled bool

	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("IBOT_ADDR", ":5000"),
		MaxBodyBytes:        envInt64Or("IBOT_MAX_BODY_BYTES", 1<<20),
		GatewayTimeout:      envDurationOr("IBOT_GATEWAY_TIMEOUT", 30*time.Second),
		FeedbackEnabled:     envBoolOr("IBOT_FEEDBACK_ENABLED", false),
		ReadHeaderTimeout:   envDurationOr("IBOT_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("IBOT_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("IBOT_SHUTDOWN_GRACE_PERIOD", 15*time.Second),
	}

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("IBOT_MAX_BODY_BYTES must be > 0")
	}
	if cfg.GatewayTimeout <= 0 {
		return Config{}, fmt.Errorf("IBOT_GATEWAY_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 || cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("timeouts must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
