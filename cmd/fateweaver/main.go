package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ejpembleton/fateweaver/internal/config"
	"github.com/ejpembleton/fateweaver/internal/logger"
	"github.com/ejpembleton/fateweaver/internal/services"
	"github.com/ejpembleton/fateweaver/internal/storage"
	"github.com/ejpembleton/fateweaver/pkg/player"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file.
	log, closeLog, err := logger.SetupFile(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	log.Info("Starting Fateweaver",
		"environment", cfg.Environment,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"image_provider", cfg.ImageProvider)

	generator, closeGenerator, err := buildGenerator(cfg, log)
	if err != nil {
		log.Error("Failed to create generator", "error", err, "provider", cfg.Provider)
		fmt.Fprintf(os.Stderr, "Failed to create %s generator: %v\n", cfg.Provider, err)
		os.Exit(1)
	}
	defer closeGenerator()

	// Initialize the model on startup
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	err = generator.InitModel(initCtx, cfg.Model)
	initCancel()
	if err != nil {
		log.Error("Failed to initialize model", "error", err, "model", cfg.Model)
		fmt.Fprintf(os.Stderr, "Failed to initialize model %q: %v\n", cfg.Model, err)
		os.Exit(1)
	}

	// Storage is optional. Without it the game runs, it just never saves.
	var store storage.Storage
	if cfg.RedisURL != "" {
		rs, err := storage.NewRedisStore(cfg.RedisURL, log)
		if err != nil {
			log.Warn("Storage unavailable, running without saves", "error", err)
		} else {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = rs.Ping(pingCtx)
			pingCancel()
			if err != nil {
				log.Warn("Storage unreachable, running without saves", "error", err)
				_ = rs.Close()
			} else {
				store = rs
				log.Info("Storage connection established")
			}
		}
	}

	var character *player.Character
	if cfg.PCFile != "" {
		character, err = player.Load(cfg.PCFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load character sheet: %v\n", err)
			os.Exit(1)
		}
	}

	p := tea.NewProgram(NewConsoleUI(cfg, log, generator, store, character),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithMouseAllMotion())
	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}

	if ui, ok := final.(ConsoleUI); ok {
		ui.shutdown()
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}

	log.Info("Session ended")
}

// buildGenerator constructs the narrator backend named by FW_PROVIDER.
// The returned closer releases provider resources and is a no-op for
// providers that hold none.
func buildGenerator(cfg *config.Config, log *slog.Logger) (services.Generator, func(), error) {
	noop := func() {}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return services.NewAnthropicService(cfg.APIKey, cfg.Model, log), noop, nil
	case config.ProviderVenice:
		return services.NewVeniceService(cfg.APIKey, cfg.Model), noop, nil
	case config.ProviderGemini:
		svc, err := services.NewGeminiService(context.Background(), cfg.APIKey, cfg.Model, log)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() {
			if err := svc.Close(); err != nil {
				log.Warn("Error closing Gemini client", "error", err)
			}
		}, nil
	case config.ProviderOllama:
		return services.NewOllamaService(cfg.OllamaURL, cfg.Model, log), noop, nil
	case config.ProviderMock:
		return services.NewMockGenerator(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
