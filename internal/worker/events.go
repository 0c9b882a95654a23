package worker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"meetflow/internal/logging"
	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
)

// EventKind identifies what happened.
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	// EventDrained fires once when the queue empties after processing work.
	EventDrained EventKind = "drained"
)

// Event is delivered to subscribers after the job store reflects it.
type Event struct {
	Kind   EventKind
	Job    *queue.Job
	Result *pipeline.Result
	Err    error
	At     time.Time

	// Drained summary: jobs finished since the queue last became active.
	Completed int
	Failed    int
	Elapsed   time.Duration
}

// Listener receives events synchronously on the worker goroutine.
type Listener func(Event) error

// Publisher is the subscription side of the event bus.
type Publisher interface {
	Subscribe(Listener) (unsubscribe func())
}

// Bus fans events out to listeners in subscription order.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	order     []int
	logger    *slog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{listeners: make(map[int]Listener), logger: logger}
}

// Subscribe registers l and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = l
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers evt to every current listener.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		b.deliver(l, evt)
	}
}

func (b *Bus) deliver(l Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(b.logger, "event listener panicked", "listener_panic",
				logging.String("event", string(evt.Kind)),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "fix the subscriber; the worker keeps running"),
			)
		}
	}()
	if err := l(evt); err != nil {
		b.logger.Warn("event listener failed",
			logging.String("event", string(evt.Kind)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "listener_failed"),
			logging.String(logging.FieldErrorHint, "check the subscriber's downstream service"),
			logging.String(logging.FieldImpact, "subscriber missed this event"),
		)
	}
}
