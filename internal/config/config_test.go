package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"APP_ENV",
	"HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
	"LOG_LEVEL",
	"POSTGRES_DSN",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_REGION", "S3_BUCKET", "S3_USE_SSL",
	"QUEUE_CONCURRENCY",
	"RATE_PUBLISH_PER_WINDOW", "RATE_PUBLISH_BURST",
	"CLEANUP_INTERVAL", "CLEANUP_MEDIA_RETENTION",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
env: staging
http:
  addr: ":9090"
log:
  level: info
postgres:
  dsn: postgres://app:app@db:5432/statuses?sslmode=disable
redis:
  db: 3
queue:
  concurrency: 4
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Env != "staging" {
		t.Fatalf("unexpected env: %s", cfg.Env)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
	if cfg.Postgres.DSN != "postgres://app:app@db:5432/statuses?sslmode=disable" {
		t.Fatalf("unexpected postgres dsn: %s", cfg.Postgres.DSN)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("unexpected redis db: %d", cfg.Redis.DB)
	}
	if cfg.Queue.Concurrency != 4 {
		t.Fatalf("unexpected queue concurrency: %d", cfg.Queue.Concurrency)
	}

	// Untouched keys keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis addr default should survive: %s", cfg.Redis.Addr)
	}
	if cfg.S3.Bucket != "mastodon-media" {
		t.Fatalf("s3 bucket default should survive: %s", cfg.S3.Bucket)
	}
	if cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Fatalf("http read timeout default should survive: %s", cfg.HTTP.ReadTimeout)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected default log level: %s", cfg.Log.Level)
	}
	if cfg.Queue.Concurrency != 10 {
		t.Fatalf("unexpected default queue concurrency: %d", cfg.Queue.Concurrency)
	}
	if cfg.Rate.PublishPerWindow != 300 || cfg.Rate.PublishBurst != 30 {
		t.Fatalf("unexpected rate defaults: %d/%d", cfg.Rate.PublishPerWindow, cfg.Rate.PublishBurst)
	}
	if cfg.Cleanup.MediaRetention != 24*time.Hour {
		t.Fatalf("unexpected media retention default: %s", cfg.Cleanup.MediaRetention)
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("HTTP_READ_TIMEOUT", "15s")
	t.Setenv("QUEUE_CONCURRENCY", "32")
	t.Setenv("S3_USE_SSL", "true")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("redis:\n  addr: from-yaml:6379\n"), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("env must beat yaml: %s", cfg.Redis.Addr)
	}
	if cfg.HTTP.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Queue.Concurrency != 32 {
		t.Fatalf("unexpected queue concurrency: %d", cfg.Queue.Concurrency)
	}
	if !cfg.S3.UseSSL {
		t.Fatalf("expected s3 ssl enabled")
	}
}

func TestLoadRejectsMalformedOverride(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("QUEUE_CONCURRENCY", "many")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed QUEUE_CONCURRENCY")
	}
}
