package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OLLAMA_TIMEOUT", "")
	t.Setenv("EXTRACTION_TIMEOUT", "")
	t.Setenv("STORE_BACKEND", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OllamaTimeout != 120*time.Second {
		t.Fatalf("expected default ollama timeout 120s, got %v", cfg.OllamaTimeout)
	}
	if cfg.ExtractionTimeout != 5*time.Second {
		t.Fatalf("expected default extraction timeout 5s, got %v", cfg.ExtractionTimeout)
	}
	if cfg.ContentMaxChars != 100000 || cfg.MaxUploadBytes != 32<<20 {
		t.Fatalf("unexpected limits: %d %d", cfg.ContentMaxChars, cfg.MaxUploadBytes)
	}
	if cfg.StoreBackend != "localfs" || cfg.SaveDebounce != 200*time.Millisecond {
		t.Fatalf("unexpected store defaults: %q %v", cfg.StoreBackend, cfg.SaveDebounce)
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	content := `
store_backend: sqlite
ollama_timeout: 45s
content_max_chars: 5000
api_rate_limit_rps: 2.5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OLLAMA_TIMEOUT", "30s")
	t.Setenv("CONTENT_MAX_CHARS", "not-a-number")
	t.Setenv("STORE_BACKEND", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreBackend != "sqlite" {
		t.Fatalf("expected file value sqlite, got %q", cfg.StoreBackend)
	}
	if cfg.OllamaTimeout != 30*time.Second {
		t.Fatalf("expected env override 30s, got %v", cfg.OllamaTimeout)
	}
	if cfg.ContentMaxChars != 5000 {
		t.Fatalf("invalid env value must keep file value, got %d", cfg.ContentMaxChars)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadReportsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("ollama_timeout: [oops"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
