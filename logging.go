package snapdiff

import (
	"context"
	"log/slog"
	"time"
)

// LogEvent describes the diff computed for one top-level field.
type LogEvent struct {
	Field    string
	Path     Path
	Records  int
	Duration time.Duration
	Err      error
}

// Logger records engine events.
type Logger interface {
	LogDiff(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogDiff implements Logger.
func (f LoggerFunc) LogDiff(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogDiff(LogEvent) {}

// WithLogger attaches a logger to the engine.
func WithLogger(logger Logger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// NewSlogLogger logs successful fields at debug and failures at warn.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return LoggerFunc(func(event LogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("field", event.Field),
			slog.Int("records", event.Records),
			slog.Duration("duration", event.Duration),
		}
		if len(event.Path) > 0 {
			attrs = append(attrs, slog.String("path", event.Path.String()))
		}
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "snapdiff field diff", attrs...)
	})
}
