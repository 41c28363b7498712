package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	pkgzlog "github.com/go-pkgz/auth/logger"
)

// InitLogger initializes and configures the application logger based on environment
// Returns a configured slog.Logger instance
func InitLogger(environment string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	// In development, use more verbose logging and text handler
	if environment == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)

	// Set as default logger so it can be used throughout the application
	slog.SetDefault(logger)

	return logger
}

// AuthLogger bridges go-pkgz/auth's printf-style logger into slog.
// The library prefixes messages with a level tag such as "[WARN]".
func AuthLogger(l *slog.Logger) pkgzlog.L {
	return pkgzlog.Func(func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		switch {
		case strings.HasPrefix(msg, "[ERROR]"):
			l.Error(strings.TrimSpace(strings.TrimPrefix(msg, "[ERROR]")), "component", "auth")
		case strings.HasPrefix(msg, "[WARN]"):
			l.Warn(strings.TrimSpace(strings.TrimPrefix(msg, "[WARN]")), "component", "auth")
		default:
			l.Debug(strings.TrimSpace(strings.TrimPrefix(msg, "[DEBUG]")), "component", "auth")
		}
	})
}
