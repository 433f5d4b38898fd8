package config

import (
	"testing"
	"time"
)

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Mode != "release" {
		t.Fatalf("expected default mode release, got %q", cfg.Mode)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Fatalf("expected default ping period 54s, got %s", cfg.PingPeriod)
	}
	if cfg.SendBuffer != 64 || cfg.RateLimit != 20 || cfg.RateWindow != 10*time.Second {
		t.Fatalf("unexpected transport defaults: %+v", cfg)
	}
}
