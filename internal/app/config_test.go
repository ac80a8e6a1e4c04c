package app

import (
	"reflect"
	"testing"
	"time"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "JWT_SECRET_KEY", "CORS_ORIGINS", "CLAIM_TX_TIMEOUT_MS", "PREVIEW_LIMIT",
		"REDIS_ADDR", "AUDIT_STREAM", "OUTBOX_POLL_INTERVAL_MS", "OUTBOX_BATCH_SIZE", "METRICS_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.Nop())

	if cfg.Port != "8080" {
		t.Fatalf("port: want 8080 got %q", cfg.Port)
	}
	if cfg.ClaimTxTimeout != 5*time.Second {
		t.Fatalf("claim timeout: want 5s got %v", cfg.ClaimTxTimeout)
	}
	if cfg.PreviewLimit != 100 {
		t.Fatalf("preview limit: want 100 got %d", cfg.PreviewLimit)
	}
	if cfg.AuditStream != "randomization-audit" {
		t.Fatalf("audit stream: got %q", cfg.AuditStream)
	}
	if cfg.Outbox.Interval != time.Second || cfg.Outbox.BatchSize != 100 {
		t.Fatalf("outbox defaults: got %+v", cfg.Outbox)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("metrics must be enabled by default")
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("cors origins: want none got %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CLAIM_TX_TIMEOUT_MS", "250")
	t.Setenv("OUTBOX_POLL_INTERVAL_MS", "20")
	t.Setenv("OUTBOX_BATCH_SIZE", "7")
	t.Setenv("CORS_ORIGINS", "https://a.example.org, ,https://b.example.org")
	t.Setenv("METRICS_ENABLED", "false")
	cfg := LoadConfig(logger.Nop())

	if cfg.Port != "9090" {
		t.Fatalf("port: want 9090 got %q", cfg.Port)
	}
	if cfg.ClaimTxTimeout != 250*time.Millisecond {
		t.Fatalf("claim timeout: want 250ms got %v", cfg.ClaimTxTimeout)
	}
	if cfg.Outbox.Interval != 20*time.Millisecond || cfg.Outbox.BatchSize != 7 {
		t.Fatalf("outbox: got %+v", cfg.Outbox)
	}
	want := []string{"https://a.example.org", "https://b.example.org"}
	if !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Fatalf("cors origins: want %v got %v", want, cfg.CORSOrigins)
	}
	if cfg.MetricsEnabled {
		t.Fatalf("METRICS_ENABLED=false must disable metrics")
	}
}
