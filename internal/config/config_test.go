package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %s", cfg.HTTPAddr)
	}
	if cfg.BlobBackend != "fs" {
		t.Fatalf("expected fs backend default, got %s", cfg.BlobBackend)
	}
	if cfg.AnchorTimeout() != 5*time.Second {
		t.Fatalf("expected 5s anchor timeout, got %s", cfg.AnchorTimeout())
	}
	if cfg.AnchorRetryMax != 5 || cfg.AnchorBreakerFailures != 5 {
		t.Fatalf("unexpected anchor retry defaults: %+v", cfg)
	}
	if cfg.SweepInterval() != time.Minute {
		t.Fatalf("expected 1m sweep interval, got %s", cfg.SweepInterval())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("ANCHOR_URL", "https://ledger.example.com")
	t.Setenv("ANCHOR_BREAKER_COOLDOWN_SECONDS", "90")
	t.Setenv("BLOB_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "seald-payloads")
	t.Setenv("RATE_LIMIT_REQUESTS", "120")

	cfg := FromEnv()
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("addr override lost: %s", cfg.HTTPAddr)
	}
	if cfg.AnchorURL != "https://ledger.example.com" {
		t.Fatalf("anchor url lost: %s", cfg.AnchorURL)
	}
	if cfg.AnchorBreakerCooldown() != 90*time.Second {
		t.Fatalf("cooldown override lost: %s", cfg.AnchorBreakerCooldown())
	}
	if cfg.BlobBackend != "s3" || cfg.S3Bucket != "seald-payloads" {
		t.Fatalf("s3 settings lost: %+v", cfg)
	}
	if cfg.RateLimitRequests != 120 {
		t.Fatalf("rate limit override lost: %d", cfg.RateLimitRequests)
	}
}

func TestEnvIntDefaultRejectsGarbage(t *testing.T) {
	t.Setenv("ANCHOR_RETRY_MAX", "not-a-number")
	t.Setenv("SWEEP_BATCH_SIZE", "-3")
	cfg := FromEnv()
	if cfg.AnchorRetryMax != 5 {
		t.Fatalf("garbage int must fall back to default, got %d", cfg.AnchorRetryMax)
	}
	if cfg.SweepBatchSize != 50 {
		t.Fatalf("negative int must fall back to default, got %d", cfg.SweepBatchSize)
	}
}
