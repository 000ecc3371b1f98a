// Package logging configures structured logging for FinanceFlow binaries.
//
// Development builds log in color with tint; production logs JSON so that log
// shippers can parse it.
//
// Usage:
//
//	logging.Setup("production")                 // level from LOG_LEVEL env
//	logging.SetupWithLevel("", slog.LevelDebug) // explicit level override
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger for env at the level specified by the
// LOG_LEVEL env var (default: INFO).
func Setup(env string) *slog.Logger {
	return SetupWithLevel(env, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// SetupWithLevel installs the default logger for env at the given level.
func SetupWithLevel(env string, level slog.Level) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, env, level))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns a JSON handler for production and a colored tint
// handler otherwise.
func NewHandler(w io.Writer, env string, level slog.Level) slog.Handler {
	if env == "production" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values are INFO.
func ParseLevel(s string) slog.Level {
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
