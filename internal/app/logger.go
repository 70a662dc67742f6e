package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger honouring LOG_FORMAT and LOG_LEVEL. An unknown level
// falls back to info.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	level := slog.LevelInfo
	if cfg != nil {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}

	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
