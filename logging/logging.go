// Package logging provides the ambient structured logger used across
// process, checker, and fuzzer: a slog.Logger with a debug level gated by
// an environment variable, and timestamps stripped for terse CLI output.
package logging

import (
	"log/slog"
	"os"
)

// EnvDebug, when set to any non-empty value, raises the default logger's
// level from Info to Debug.
const EnvDebug = "TRIESTE_DEBUG"

// New builds a text logger writing to w (os.Stderr in normal use), with
// its level controlled by the TRIESTE_DEBUG environment variable.
func New(w *os.File) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(EnvDebug) != "" {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Default is the package-level logger used by components that don't take
// one explicitly.
var Default = New(os.Stderr)
