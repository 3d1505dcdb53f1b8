package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("port = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabasePath != "chat.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("rate limit window = %v", cfg.RateLimitWindow)
	}
	if cfg.NATSURL != "" {
		t.Errorf("NATS enabled by default: %q", cfg.NATSURL)
	}
	if cfg.PushEndpoint == "" {
		t.Error("push endpoint default missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	if cfg.ServerPort != "9000" {
		t.Errorf("port = %q", cfg.ServerPort)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.RateLimitRequests != 5 || cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("rate limit = %d / %v", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if !cfg.TracingEnabled {
		t.Error("tracing override ignored")
	}
}
