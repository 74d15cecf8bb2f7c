package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs the process-wide slog logger on stderr.
// debug forces debug level, otherwise LOG_LEVEL decides and errors-only is the default.
func Init(debug bool) {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(New(os.Stderr, level))
}

// New builds a text logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values fall back to error.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
