// Package logger configures the process-wide slog logger and carries the
// request id through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// Setup installs the default logger on stdout. format is "json" or "text".
func Setup(level string, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter installs the default slog logger writing to w. Debug level
// also records the source position.
func SetupWriter(w io.Writer, level string, format string) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler).With("service", "nitisetu"))
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// RequestID returns the request id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromContext returns the default logger annotated with the request id, if
// ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	if requestID := RequestID(ctx); requestID != "" {
		return slog.Default().With("request_id", requestID)
	}
	return slog.Default()
}

// parseLevel accepts slog level names in any case ("debug", "WARN",
// "info+2"). Anything else is info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
