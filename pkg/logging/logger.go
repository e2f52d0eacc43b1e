// Package logging builds the slog logger shared by the CLI and the pipeline.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls structured logging settings.
type Config struct {
	Level  string
	Format string // text|json
	Writer io.Writer
}

// New builds a slog.Logger configured according to the provided logging config.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Level),
		ReplaceAttr: RedactSensitiveData,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var sensitiveKeys = map[string]bool{
	"key": true, "api_key": true, "apikey": true, "password": true,
	"token": true, "secret": true, "auth_token": true, "webhook": true,
	"credential": true, "neo4j_password": true,
}

// RedactSensitiveData scrubs sensitive keys from logs.
func RedactSensitiveData(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.Attr{Key: a.Key, Value: slog.StringValue("[REDACTED]")}
	}
	return a
}
