package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"meetflow/internal/config"
	"meetflow/internal/logging"
	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
)

// Processor runs the pipeline for one job.
type Processor interface {
	Process(ctx context.Context, sourceID, title string) (*pipeline.Result, error)
}

// Worker is the single-concurrency job scheduler.
type Worker struct {
	repo      queue.Repository
	processor Processor
	clock     Clock
	logger    *slog.Logger
	bus       *Bus

	pollInterval  time.Duration
	errorBackoff  time.Duration
	recentWindow  int
	pruneAge      time.Duration
	pruneInterval time.Duration

	mu           sync.RWMutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	lastErr      error
	lastPoll     time.Time
	lastPrune    time.Time
	backoffUntil time.Time

	queueActive bool
	queueStart  time.Time
	completed   int
	failed      int
}

// Option configures optional Worker behavior.
type Option func(*Worker)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(w *Worker) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithBus shares an existing event bus.
func WithBus(b *Bus) Option {
	return func(w *Worker) {
		if b != nil {
			w.bus = b
		}
	}
}

// New constructs a stopped worker.
func New(cfg *config.Config, repo queue.Repository, processor Processor, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "worker")
	w := &Worker{
		repo:          repo,
		processor:     processor,
		clock:         systemClock{},
		logger:        logger,
		pollInterval:  3 * time.Second,
		errorBackoff:  10 * time.Second,
		recentWindow:  10,
		pruneInterval: time.Hour,
	}
	if cfg != nil {
		if d := cfg.PollInterval(); d > 0 {
			w.pollInterval = d
		}
		if cfg.Worker.ErrorRetryInterval > 0 {
			w.errorBackoff = time.Duration(cfg.Worker.ErrorRetryInterval) * time.Second
		}
		if cfg.Worker.RecentWindow > 0 {
			w.recentWindow = cfg.Worker.RecentWindow
		}
		if cfg.Worker.PruneInterval > 0 {
			w.pruneInterval = time.Duration(cfg.Worker.PruneInterval) * time.Second
		}
		w.pruneAge = cfg.PruneAge()
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.bus == nil {
		w.bus = NewBus(logger)
	}
	return w
}

// Subscribe registers an event listener; see Bus.Subscribe.
func (w *Worker) Subscribe(l Listener) func() {
	return w.bus.Subscribe(l)
}

var _ Publisher = (*Worker)(nil)

func (w *Worker) setLastError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}
