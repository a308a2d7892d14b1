package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Fatalf("port=%q want 8080", cfg.HTTPPort)
	}
	if cfg.Ledger.MinSend != 50 || cfg.Ledger.CashOutFeeBps != 150 {
		t.Fatalf("ledger defaults = %+v", cfg.Ledger)
	}
	if cfg.Ledger.CashOutFeeMode != "passthrough" {
		t.Fatalf("fee mode=%q", cfg.Ledger.CashOutFeeMode)
	}
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("access ttl=%v", cfg.AccessTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("MIN_SEND", "10")
	t.Setenv("RECORD_FAILED_TRANSFERS", "true")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "not-a-number")

	cfg := Load()
	if cfg.HTTPPort != "9000" {
		t.Fatalf("port=%q", cfg.HTTPPort)
	}
	if cfg.Ledger.MinSend != 10 {
		t.Fatalf("min send=%d", cfg.Ledger.MinSend)
	}
	if !cfg.Ledger.RecordFailures {
		t.Fatal("record failures not set")
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl=%v", cfg.AccessTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins=%v", cfg.AllowedOrigins)
	}
	if cfg.Ledger.MaxAttempts != 5 {
		t.Fatalf("bad int should fall back to default, got %d", cfg.Ledger.MaxAttempts)
	}
}
