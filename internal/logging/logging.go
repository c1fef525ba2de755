// Package logging builds the process logger and carries request-scoped
// loggers through context.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidFormat is returned for an unknown log format.
var ErrInvalidFormat = errors.New("invalid log format")

// ErrInvalidLevel is returned for an unknown log level.
var ErrInvalidLevel = errors.New("invalid log level")

type contextKey struct{}

// New returns a logger writing to w at the given level ("debug", "info",
// "warn", "error") in text or JSON form. Empty values select info and text.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidFormat, format, FormatText, FormatJSON)
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}

	return lvl, nil
}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}

	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger attached to ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}
