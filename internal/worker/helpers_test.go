package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/records"
	"meetflow/internal/testsupport"
	"meetflow/internal/worker"
)

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *manualClock) NewTicker(time.Duration) worker.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = &manualTicker{ch: make(chan time.Time)}
	return c.ticker
}

// Tick blocks until the worker loop receives the tick.
func (c *manualClock) Tick(t *testing.T) {
	t.Helper()
	c.mu.Lock()
	ticker := c.ticker
	now := c.now
	c.mu.Unlock()
	select {
	case ticker.ch <- now:
	case <-time.After(5 * time.Second):
		t.Fatal("worker loop did not accept tick")
	}
}

type fakeProcessor struct {
	mu      sync.Mutex
	order   []string
	errs    map[string]error
	panicOn string
}

func (p *fakeProcessor) Process(_ context.Context, sourceID, title string) (*pipeline.Result, error) {
	p.mu.Lock()
	p.order = append(p.order, sourceID)
	err := p.errs[sourceID]
	p.mu.Unlock()
	if sourceID == p.panicOn {
		panic("boom")
	}
	if err != nil {
		return nil, err
	}
	return &pipeline.Result{
		SourceID: sourceID,
		Title:    title,
		CallType: pipeline.CallTechnical,
		Customer: &records.Customer{ID: 7, Name: "Acme"},
	}, nil
}

func (p *fakeProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

type countingRepo struct {
	queue.Repository
	mu     sync.Mutex
	prunes int
}

func (r *countingRepo) PruneCompletedOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	r.mu.Lock()
	r.prunes++
	r.mu.Unlock()
	return r.Repository.PruneCompletedOlderThan(ctx, age)
}

func (r *countingRepo) pruneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prunes
}

func newQueue(t *testing.T) *queue.Store {
	t.Helper()
	return testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
}

func mustEnqueue(t *testing.T, store *queue.Store, sourceID string) *queue.Job {
	t.Helper()
	job, err := store.Enqueue(context.Background(), sourceID, "Title "+sourceID)
	if err != nil {
		t.Fatalf("Enqueue %s failed: %v", sourceID, err)
	}
	return job
}

func collect(w *worker.Worker) (<-chan worker.Event, func()) {
	events := make(chan worker.Event, 32)
	unsubscribe := w.Subscribe(func(evt worker.Event) error {
		events <- evt
		return nil
	})
	return events, unsubscribe
}

func waitEvent(t *testing.T, events <-chan worker.Event) worker.Event {
	t.Helper()
	select {
	case evt := <-events:
		return evt
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for worker event")
		return worker.Event{}
	}
}
