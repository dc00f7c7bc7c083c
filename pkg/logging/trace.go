package logging

import (
	"context"
	"log/slog"
)

// LevelTrace sits below debug, for per-tick diagnostics.
const LevelTrace = slog.LevelDebug - 4

// EnableTrace is a variable to enable/disable trace logs.
// Default is false to reduce noise.
var EnableTrace = false

// Trace logs a message at LevelTrace, but only if EnableTrace is true.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Log(context.Background(), LevelTrace, msg, args...)
	}
}

// TraceDefault logs to the default logger if EnableTrace is true.
func TraceDefault(msg string, args ...any) {
	if EnableTrace {
		slog.Default().Log(context.Background(), LevelTrace, msg, args...)
	}
}
