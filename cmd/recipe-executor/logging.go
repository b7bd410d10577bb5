package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// buildLogger wires up the two sinks SPEC_FULL.md §4 describes: human
// readable info-and-above on stderr, plus (when --log-dir is set) a
// debug-level recipe.log in that directory. The returned closer flushes and
// closes the log file, if one was opened.
func buildLogger(logDir string) (*slog.Logger, func(), error) {
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})

	if logDir == "" {
		return slog.New(stderrHandler), func() {}, nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "recipe.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	fileHandler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(&multiHandler{handlers: []slog.Handler{stderrHandler, fileHandler}})
	return logger, func() { _ = f.Close() }, nil
}

// multiHandler fans every record out to each underlying handler, letting
// the CLI log at debug level to a file while only surfacing info-and-above
// on the terminal.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
