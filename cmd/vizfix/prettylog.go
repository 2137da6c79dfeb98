package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// PrettyHandlerOptions configures the development log handler.
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler is a human-friendly slog handler for development runs:
// colored level tags and attrs rendered as compact JSON.
type PrettyHandler struct {
	opts  PrettyHandlerOptions
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
}

// NewPrettyHandler creates a PrettyHandler writing to out.
func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{opts: opts, out: out, mu: &sync.Mutex{}}
}

// Enabled implements slog.Handler.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.SlogOpts.Level != nil {
		minLevel = h.opts.SlogOpts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler.
func (h *PrettyHandler) Handle(_ context.Context, record slog.Record) error {
	level := record.Level.String()
	switch record.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]any, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		fields[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields[attr.Key] = attr.Value.Any()
		return true
	})

	var suffix string
	if len(fields) > 0 {
		data, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		suffix = " " + color.WhiteString(string(data))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.out, "%s %s %s%s\n",
		record.Time.Format("15:04:05.000"), level, color.CyanString(record.Message), suffix)
	return err
}

// WithAttrs implements slog.Handler.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PrettyHandler{opts: h.opts, out: h.out, mu: h.mu, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened; good enough for
// a dev console.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return h
}
