package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Provider names accepted by FW_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderVenice    = "venice"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
)

// Image provider names accepted by FW_IMAGE_PROVIDER.
const (
	ImageProviderVenice = "venice"
	ImageProviderNone   = "none"
)

type Config struct {
	Environment string
	LogLevel    slog.Level
	LogFile     string

	Provider  string
	Model     string
	APIKey    string
	OllamaURL string

	ImageProvider string
	ImageModel    string
	ImageAPIKey   string
	ImageDir      string

	RedisURL string
	DataDir  string
	PCFile   string
	Rating   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:     getEnv("LOG_FILE", defaultLogFile()),

		Provider:  strings.ToLower(getEnv("FW_PROVIDER", ProviderMock)),
		Model:     os.Getenv("FW_MODEL"),
		APIKey:    os.Getenv("FW_API_KEY"),
		OllamaURL: getEnv("FW_OLLAMA_URL", "http://localhost:11434"),

		ImageProvider: strings.ToLower(getEnv("FW_IMAGE_PROVIDER", ImageProviderNone)),
		ImageModel:    getEnv("FW_IMAGE_MODEL", "flux-dev"),
		ImageAPIKey:   os.Getenv("FW_IMAGE_API_KEY"),
		ImageDir:      getEnv("FW_IMAGE_DIR", defaultImageDir()),

		RedisURL: os.Getenv("REDIS_URL"),
		DataDir:  getEnv("FW_DATA_DIR", "./data"),
		PCFile:   os.Getenv("FW_PC_FILE"),
		Rating:   strings.ToLower(strings.TrimSpace(os.Getenv("FW_RATING"))),
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel(cfg.Provider)
	}
	if cfg.ImageAPIKey == "" {
		cfg.ImageAPIKey = cfg.APIKey
	}

	switch cfg.Provider {
	case ProviderAnthropic, ProviderVenice, ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("FW_API_KEY is required for provider %q", cfg.Provider)
		}
	case ProviderOllama, ProviderMock:
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	switch cfg.ImageProvider {
	case ImageProviderVenice:
		if cfg.ImageAPIKey == "" {
			return nil, fmt.Errorf("FW_IMAGE_API_KEY is required for image provider %q", cfg.ImageProvider)
		}
	case ImageProviderNone:
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}

	switch cfg.Rating {
	case "", "family", "adult":
	default:
		return nil, fmt.Errorf("unknown rating %q", cfg.Rating)
	}

	return cfg, nil
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderVenice:
		return "llama-3.3-70b"
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderOllama:
		return "llama3.2"
	default:
		return "mock"
	}
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "fateweaver.log"
	}
	return filepath.Join(dir, "fateweaver", "fateweaver.log")
}

func defaultImageDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "images"
	}
	return filepath.Join(dir, "fateweaver", "images")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
