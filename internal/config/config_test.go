package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "API_PORT", "LOG_LEVEL", "POSTGRES_DSN", "NATS_URL", "NATS_SUBJECT",
		"OLLAMA_URL", "OLLAMA_EMBED_MODEL", "STORAGE_PATH", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"API_RATE_LIMIT_RPS", "API_RATE_LIMIT_BURST", "API_MAX_CONCURRENT",
		"API_QUEUE_TIMEOUT_SECONDS", "WORKER_METRICS_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.NATSSubject != "documents.uploaded" {
		t.Fatalf("expected default subject documents.uploaded, got %q", cfg.NATSSubject)
	}
	if cfg.ChunkSize != 900 || cfg.ChunkOverlap != 150 {
		t.Fatalf("unexpected chunking defaults: size=%d overlap=%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.APIRateLimitRPS != 50 || cfg.APIRateLimitBurst != 100 {
		t.Fatalf("unexpected rate limit defaults: rps=%g burst=%d", cfg.APIRateLimitRPS, cfg.APIRateLimitBurst)
	}
}

func TestLoadAppliesYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("api_port: \"9000\"\nchunk_size: 500\napi_rate_limit_rps: 10\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("expected api port from file, got %q", cfg.APIPort)
	}
	if cfg.ChunkSize != 500 {
		t.Fatalf("expected chunk size from file, got %d", cfg.ChunkSize)
	}
	if cfg.APIRateLimitRPS != 10 {
		t.Fatalf("expected rate limit from file, got %g", cfg.APIRateLimitRPS)
	}
	// Untouched keys keep their defaults.
	if cfg.ChunkOverlap != 150 {
		t.Fatalf("expected default overlap, got %d", cfg.ChunkOverlap)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: \"9000\"\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "7070")
	t.Setenv("CHUNK_SIZE", "401")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "7070" {
		t.Fatalf("expected env to win over file, got %q", cfg.APIPort)
	}
	if cfg.ChunkSize != 401 {
		t.Fatalf("expected env chunk size, got %d", cfg.ChunkSize)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: [broken"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestLoadIgnoresUnparsableEnvNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkSize != 900 {
		t.Fatalf("expected default chunk size, got %d", cfg.ChunkSize)
	}
}
