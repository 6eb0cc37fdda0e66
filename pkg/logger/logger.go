// Package logger builds the application's slog loggers: JSON or text
// output, optional Sentry fan-out, and context extractors that stamp every
// record with request- or job-scoped attributes (such as the dispatch job
// ID).
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls handler construction.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or text
	Level  string `env:"LOG_LEVEL" envDefault:"info"`  // debug, info, warn, error
}

// New creates a logger writing to stdout with optional context extractors.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewHandlerDecorator(newBaseHandler(os.Stdout, cfg), extractors...))
}

// NewNope creates a no-op logger that discards all output.
// Use this as a default when logging is not configured.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBaseHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

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
