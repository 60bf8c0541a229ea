// Package logging holds the logger helpers shared by every component.
//
// Loggers are injected, never global. A nil logger means "discard".
// main() is the only place that picks the output handler.
package logging

import (
	"context"
	"log/slog"
	"sync"
)

// discardHandler is a handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that discards all output.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns the provided logger if non-nil, otherwise a discard logger.
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// DeprecationLogger emits one WARN record per deprecation key.
type DeprecationLogger struct {
	logger *slog.Logger
	seen   sync.Map
}

// NewDeprecationLogger scopes the given logger for deprecation warnings.
func NewDeprecationLogger(logger *slog.Logger) *DeprecationLogger {
	return &DeprecationLogger{logger: Default(logger).With("component", "deprecation")}
}

// Deprecate logs msg under key unless that key was already reported.
// It reports whether a record was written.
func (d *DeprecationLogger) Deprecate(key, msg string) bool {
	if _, loaded := d.seen.LoadOrStore(key, struct{}{}); loaded {
		return false
	}
	d.logger.Warn(msg, "deprecation_key", key)
	return true
}
