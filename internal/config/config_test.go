package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "LOG_FILE",
		"FW_PROVIDER", "FW_MODEL", "FW_API_KEY", "FW_OLLAMA_URL",
		"FW_IMAGE_PROVIDER", "FW_IMAGE_MODEL", "FW_IMAGE_API_KEY", "FW_IMAGE_DIR",
		"REDIS_URL", "FW_DATA_DIR", "FW_PC_FILE", "FW_RATING",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Provider != ProviderMock {
		t.Errorf("default provider = %q, want mock", cfg.Provider)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("default ollama url = %q", cfg.OllamaURL)
	}
	if cfg.Model != "mock" {
		t.Errorf("default model = %q", cfg.Model)
	}
	if cfg.ImageProvider != ImageProviderNone {
		t.Errorf("default image provider = %q, want none", cfg.ImageProvider)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("default log level = %v, want info", cfg.LogLevel)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("default data dir = %q", cfg.DataDir)
	}
	if cfg.Environment != "development" {
		t.Errorf("default environment = %q", cfg.Environment)
	}
}

func TestLoadProviderRequiresKey(t *testing.T) {
	t.Setenv("FW_PROVIDER", "anthropic")
	t.Setenv("FW_MODEL", "")
	t.Setenv("FW_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for anthropic provider without API key")
	}

	t.Setenv("FW_API_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model != "claude-sonnet-4-20250514" {
		t.Errorf("anthropic default model = %q", cfg.Model)
	}
}

func TestLoadOllamaNeedsNoKey(t *testing.T) {
	t.Setenv("FW_PROVIDER", "ollama")
	t.Setenv("FW_MODEL", "")
	t.Setenv("FW_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model != "llama3.2" {
		t.Errorf("ollama default model = %q", cfg.Model)
	}
}

func TestLoadImageKeyFallsBack(t *testing.T) {
	t.Setenv("FW_PROVIDER", "venice")
	t.Setenv("FW_API_KEY", "vk-test")
	t.Setenv("FW_IMAGE_PROVIDER", "venice")
	t.Setenv("FW_IMAGE_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ImageAPIKey != "vk-test" {
		t.Errorf("image API key should fall back to FW_API_KEY, got %q", cfg.ImageAPIKey)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("FW_PROVIDER", "gpt9000")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadRejectsUnknownRating(t *testing.T) {
	t.Setenv("FW_RATING", "r18")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown rating")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
