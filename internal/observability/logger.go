package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	id "quartermaster/internal/utils/id"
)

// Logger wraps slog for structured logging with request/session context
// enrichment.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a structured logger from config. Output defaults to
// stderr so the CLI's stdout stays clean for results.
func NewLogger(config LoggingConfig, output io.Writer) *Logger {
	level := slog.LevelInfo
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(config.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}
	return &Logger{logger: slog.New(handler)}
}

// WithContext returns a logger annotated with the request and session IDs
// found on ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	ids := id.IDsFromContext(ctx)
	var args []any
	if ids.RequestID != "" {
		args = append(args, "request_id", ids.RequestID)
	}
	if ids.SessionID != "" {
		args = append(args, "session_id", ids.SessionID)
	}
	if len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...)}
}

// With adds additional fields to the logger.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// InfoContext logs at info level with context enrichment.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Info(msg, args...)
}

// ErrorContext logs at error level with context enrichment.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Error(msg, args...)
}

// SanitizeAPIKey masks an API key for log output.
func SanitizeAPIKey(key string) string {
	if len(key) <= 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
