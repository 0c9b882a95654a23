package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one log record as served by the daemon's log endpoint.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Step          string            `json:"step,omitempty"`
	JobID         int64             `json:"job_id,omitempty"`
	SourceID      string            `json:"source_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// StreamHub is a bounded ring of recent events. Readers either take a
// snapshot or block until something newer than their cursor is published.
type StreamHub struct {
	mu      sync.Mutex
	events  []LogEvent
	limit   int
	lastSeq uint64
	// changed is closed and replaced on every Publish.
	changed chan struct{}
}

// NewStreamHub returns a hub holding at most capacity events (512 when
// capacity is not positive).
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{limit: capacity, changed: make(chan struct{})}
}

// Publish assigns the next sequence number and stores evt, evicting the
// oldest event when full.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSeq++
	evt.Sequence = h.lastSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.events) >= h.limit {
		h.events = append(h.events[:0], h.events[len(h.events)-h.limit+1:]...)
	}
	h.events = append(h.events, evt)
	close(h.changed)
	h.changed = make(chan struct{})
}

// Fetch returns up to limit events with a sequence above since, plus the
// latest sequence. With wait set it blocks until such an event exists or
// ctx ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		h.mu.Lock()
		events, last := h.after(since, limit), h.lastSeq
		changed := h.changed
		h.mu.Unlock()

		if len(events) > 0 || !wait {
			return events, last, nil
		}
		select {
		case <-ctx.Done():
			return nil, last, ctx.Err()
		case <-changed:
		}
	}
}

// Tail returns the newest limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	limit = h.clampLimit(limit)
	start := max(len(h.events)-limit, 0)
	return cloneSlice(h.events[start:]), h.lastSeq
}

// FirstSequence is the oldest sequence still held, or the latest
// sequence when the hub is empty.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return h.lastSeq
	}
	return h.events[0].Sequence
}

func (h *StreamHub) after(since uint64, limit int) []LogEvent {
	limit = h.clampLimit(limit)
	for i, evt := range h.events {
		if evt.Sequence > since {
			end := min(i+limit, len(h.events))
			return cloneSlice(h.events[i:end])
		}
	}
	return nil
}

func (h *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > h.limit {
		return h.limit
	}
	return limit
}

// streamHandler publishes records into a StreamHub with the standard
// fields promoted onto LogEvent.
type streamHandler struct {
	hub   *StreamHub
	level slog.Leveler
	scope attrScope
}

func newStreamHandler(hub *StreamHub, level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &streamHandler{hub: hub, level: level}
}

func (h *streamHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.hub != nil && level >= h.level.Level()
}

func (h *streamHandler) Handle(_ context.Context, record slog.Record) error {
	if h.hub == nil {
		return nil
	}
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	for _, f := range h.scope.fields(record) {
		promoteField(&evt, f)
	}
	h.hub.Publish(evt)
	return nil
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.scope = h.scope.withAttrs(attrs)
	return &next
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.scope = h.scope.withGroup(name)
	return &next
}

func promoteField(evt *LogEvent, f field) {
	switch f.key {
	case FieldJobID:
		if f.value.Kind() == slog.KindInt64 {
			evt.JobID = f.value.Int64()
		}
	case FieldStep:
		evt.Step = attrString(f.value)
	case FieldSourceID:
		evt.SourceID = attrString(f.value)
	case FieldCorrelationID:
		evt.CorrelationID = attrString(f.value)
	case FieldComponent:
		evt.Component = attrString(f.value)
	default:
		if evt.Fields == nil {
			evt.Fields = make(map[string]string)
		}
		evt.Fields[f.key] = attrString(f.value)
	}
}
