package logging

import (
	"context"
	"log/slog"
)

// FieldRunID identifies one daemon process lifetime in the log stream.
const FieldRunID = "run_id"

// multiHandler delivers each record to every child that accepts its level.
type multiHandler []slog.Handler

func newMultiHandler(children ...slog.Handler) slog.Handler {
	var live multiHandler
	for _, child := range children {
		if child != nil {
			live = append(live, child)
		}
	}
	switch len(live) {
	case 0:
		return NoopHandler{}
	case 1:
		return live[0]
	}
	return live
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range m {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	last := len(m) - 1
	for i, child := range m {
		if !child.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if i != last {
			// children may append attrs; keep the shared record pristine
			rec = record.Clone()
		}
		if err := child.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m multiHandler) each(fn func(slog.Handler) slog.Handler) multiHandler {
	out := make(multiHandler, len(m))
	for i, child := range m {
		out[i] = fn(child)
	}
	return out
}

// stampHandler appends a fixed set of attributes to every record at
// Handle time, so they land inside any group opened through WithGroup.
type stampHandler struct {
	next  slog.Handler
	stamp []slog.Attr
}

func withStamp(next slog.Handler, stamp ...slog.Attr) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	if len(stamp) == 0 {
		return next
	}
	return &stampHandler{next: next, stamp: stamp}
}

func (h *stampHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *stampHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(h.stamp...)
	return h.next.Handle(ctx, record)
}

func (h *stampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stampHandler{next: h.next.WithAttrs(attrs), stamp: h.stamp}
}

func (h *stampHandler) WithGroup(name string) slog.Handler {
	return &stampHandler{next: h.next.WithGroup(name), stamp: h.stamp}
}
