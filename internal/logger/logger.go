package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fundflow-core/internal/config"
)

// parseLevel maps the configured level string to a slog.Level, defaulting
// to info for anything unrecognized
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process-wide structured logger. Output is JSON on
// stdout so log shippers can parse it; source locations are only attached
// at debug level to keep production lines small.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	log := slog.New(handler).With("app", cfg.Application.Name)
	log.Info("logger initialized", "level", level)
	return log
}
