// Package logger provides the structured logger used across the
// runner. The logger travels in the context so that parallel branches
// keep their run-scoped attributes.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// File, when set, receives a copy of the log stream in addition to
	// stderr.
	File string
	// Quiet suppresses the stderr stream.
	Quiet bool
}

// New builds a slog.Logger according to cfg.
func New(cfg Config) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handlers []slog.Handler
	if !cfg.Quiet {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
	}

	closer := func() error { return nil }
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closer = f.Close
		handlers = append(handlers, slog.NewTextHandler(f, opts))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, opts)), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(slogmulti.Fanout(handlers...)), closer, nil
	}
}

func parseLevel(level string) slog.Level {
	switch level {
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
