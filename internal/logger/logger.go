package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ejpembleton/fateweaver/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	logger := slog.New(newHandler(os.Stdout, cfg))
	slog.SetDefault(logger)
	return logger
}

// SetupFile routes all logging to the configured log file. The TUI
// owns the terminal while it draws, so nothing may write to stdout or
// stderr once the program starts rendering. The returned closer
// flushes and closes the file.
func SetupFile(cfg *config.Config) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(newHandler(f, cfg))
	slog.SetDefault(logger)
	return logger, func() { _ = f.Close() }, nil
}

func newHandler(w io.Writer, cfg *config.Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	if cfg.Environment == "production" {
		// JSON format for production
		return slog.NewJSONHandler(w, opts)
	}
	// Text format for development
	return slog.NewTextHandler(w, opts)
}

// WithAdventureID adds the adventure ID to logger context
func WithAdventureID(logger *slog.Logger, id string) *slog.Logger {
	return logger.With("adventure_id", id)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
