// Package logging builds the service's slog logger on a colored tint handler.
// The level comes from the LOG_LEVEL environment variable (debug, info, warn,
// error; default info).
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a logger writing colored output to stderr and installs it as
// the slog default, so package-level slog calls land in the same stream.
func New() *slog.Logger {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      Level(),
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)
	return logger
}

// Level resolves the log level from LOG_LEVEL.
func Level() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
