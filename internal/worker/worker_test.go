package worker_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"meetflow/internal/queue"
	"meetflow/internal/services"
	"meetflow/internal/testsupport"
	"meetflow/internal/worker"
)

func TestPollOnceProcessesOldestFirst(t *testing.T) {
	store := newQueue(t)
	ctx := context.Background()
	a := mustEnqueue(t, store, "a")
	b := mustEnqueue(t, store, "b")

	proc := &fakeProcessor{}
	w := worker.New(nil, store, proc, nil)
	events, _ := collect(w)

	for i := 0; i < 2; i++ {
		processed, err := w.PollOnce(ctx)
		if err != nil || !processed {
			t.Fatalf("PollOnce %d: processed=%v err=%v", i, processed, err)
		}
	}
	if got := proc.processed(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected FIFO order, got %v", got)
	}

	for _, id := range []int64{a.ID, b.ID} {
		job, _ := store.Get(ctx, id)
		if job.Status != queue.StatusCompleted || job.CustomerID == nil || *job.CustomerID != 7 {
			t.Fatalf("unexpected job state: %+v", job)
		}
		if job.ResultSummary != "technical; customer Acme; 0 action items; no diagram" {
			t.Fatalf("unexpected summary %q", job.ResultSummary)
		}
	}
	first := waitEvent(t, events)
	if first.Kind != worker.EventCompleted || first.Job.ID != a.ID || first.Job.Status != queue.StatusCompleted {
		t.Fatalf("unexpected event %+v", first)
	}
}

func TestPollOnceIsNoOpWhileProcessing(t *testing.T) {
	store := newQueue(t)
	ctx := context.Background()
	a := mustEnqueue(t, store, "a")
	b := mustEnqueue(t, store, "b")
	if err := store.MarkProcessing(ctx, a.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	proc := &fakeProcessor{}
	w := worker.New(nil, store, proc, nil)
	processed, err := w.PollOnce(ctx)
	if err != nil || processed {
		t.Fatalf("expected no-op, got processed=%v err=%v", processed, err)
	}
	if job, _ := store.Get(ctx, b.ID); job.Status != queue.StatusPending {
		t.Fatalf("expected b to stay pending, got %s", job.Status)
	}
	if len(proc.processed()) != 0 {
		t.Fatal("processor must not run while a job is processing")
	}
}

func TestPollOnceIsNoOpOnEmptyQueue(t *testing.T) {
	w := worker.New(nil, newQueue(t), &fakeProcessor{}, nil)
	processed, err := w.PollOnce(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle poll, got processed=%v err=%v", processed, err)
	}
}

func TestFailedJobDoesNotStopWorker(t *testing.T) {
	store := newQueue(t)
	ctx := context.Background()
	a := mustEnqueue(t, store, "a")
	b := mustEnqueue(t, store, "b")

	failure := services.Wrap(services.ErrAnalysis, "analyze", "analyze transcript", "analyzer request failed", errors.New("timeout"))
	proc := &fakeProcessor{errs: map[string]error{"a": failure}}
	w := worker.New(nil, store, proc, nil)
	events, _ := collect(w)

	if _, err := w.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if _, err := w.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}

	failedJob, _ := store.Get(ctx, a.ID)
	if failedJob.Status != queue.StatusFailed || !strings.Contains(failedJob.Error, "timeout") {
		t.Fatalf("unexpected failed job: %+v", failedJob)
	}
	okJob, _ := store.Get(ctx, b.ID)
	if okJob.Status != queue.StatusCompleted {
		t.Fatalf("expected b completed, got %s", okJob.Status)
	}

	evt := waitEvent(t, events)
	if evt.Kind != worker.EventFailed || !errors.Is(evt.Err, services.ErrAnalysis) || evt.Job.Error == "" {
		t.Fatalf("unexpected failure event %+v", evt)
	}
}

func TestProcessorPanicMarksJobFailed(t *testing.T) {
	store := newQueue(t)
	ctx := context.Background()
	a := mustEnqueue(t, store, "a")

	w := worker.New(nil, store, &fakeProcessor{panicOn: "a"}, nil)
	processed, err := w.PollOnce(ctx)
	if err != nil || !processed {
		t.Fatalf("PollOnce: processed=%v err=%v", processed, err)
	}
	job, _ := store.Get(ctx, a.ID)
	if job.Status != queue.StatusFailed || !strings.Contains(job.Error, "panic") {
		t.Fatalf("expected panic recorded as failure, got %+v", job)
	}
}

func TestListenerFailuresAreIsolated(t *testing.T) {
	store := newQueue(t)
	mustEnqueue(t, store, "a")
	mustEnqueue(t, store, "b")

	w := worker.New(nil, store, &fakeProcessor{}, nil)
	w.Subscribe(func(worker.Event) error { panic("listener exploded") })
	w.Subscribe(func(worker.Event) error { return errors.New("ntfy down") })
	events, unsubscribe := collect(w)

	if _, err := w.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if evt := waitEvent(t, events); evt.Kind != worker.EventCompleted {
		t.Fatalf("unexpected event %+v", evt)
	}

	unsubscribe()
	unsubscribe()
	if _, err := w.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	select {
	case evt := <-events:
		t.Fatalf("unsubscribed listener received %+v", evt)
	default:
	}
}

func TestDrainedEventFiresOnceAfterWork(t *testing.T) {
	store := newQueue(t)
	ctx := context.Background()
	mustEnqueue(t, store, "a")

	w := worker.New(nil, store, &fakeProcessor{}, nil)
	events, _ := collect(w)

	_, _ = w.PollOnce(ctx)
	_, _ = w.PollOnce(ctx)
	_, _ = w.PollOnce(ctx)

	if evt := waitEvent(t, events); evt.Kind != worker.EventCompleted {
		t.Fatalf("expected completed first, got %s", evt.Kind)
	}
	drained := waitEvent(t, events)
	if drained.Kind != worker.EventDrained || drained.Completed != 1 || drained.Failed != 0 {
		t.Fatalf("unexpected drained event %+v", drained)
	}
	select {
	case evt := <-events:
		t.Fatalf("expected a single drained event, got extra %+v", evt)
	default:
	}
}

func TestStartResetsInterruptedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()
	orphan := mustEnqueue(t, store, "orphan")
	if err := store.MarkProcessing(ctx, orphan.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	w := worker.New(cfg, store, &fakeProcessor{}, nil, worker.WithClock(newManualClock()))
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()
	if err := w.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}

	job, _ := store.Get(ctx, orphan.ID)
	if job.Status != queue.StatusFailed || job.Error != queue.InterruptedMessage {
		t.Fatalf("expected interrupted failure, got %+v", job)
	}
}

func TestTickerDrivesPolling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)
	clock := newManualClock()
	proc := &fakeProcessor{}
	w := worker.New(cfg, store, proc, nil, worker.WithClock(clock))
	events, _ := collect(w)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	mustEnqueue(t, store, "a")
	clock.Tick(t)
	if evt := waitEvent(t, events); evt.Kind != worker.EventCompleted || evt.Job.SourceID != "a" {
		t.Fatalf("unexpected event %+v", evt)
	}

	status, err := w.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running || status.PendingCount != 0 || status.Current != nil || len(status.RecentTerminal) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	w.Stop()
	if status, _ := w.Status(context.Background()); status.Running {
		t.Fatal("expected stopped worker")
	}
}

func TestStatusReportsPendingAndCurrent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Worker.RecentWindow = 2
	store := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		job := mustEnqueue(t, store, id)
		_ = store.MarkProcessing(ctx, job.ID)
		_ = store.MarkCompleted(ctx, job.ID, "done", nil)
	}
	current := mustEnqueue(t, store, "d")
	_ = store.MarkProcessing(ctx, current.ID)
	mustEnqueue(t, store, "e")
	mustEnqueue(t, store, "f")

	w := worker.New(cfg, store, &fakeProcessor{}, nil)
	status, err := w.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.PendingCount != 2 || status.Current == nil || status.Current.ID != current.ID {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.RecentTerminal) != 2 {
		t.Fatalf("expected recent window of 2, got %d", len(status.RecentTerminal))
	}
}

func TestPruneRunsOncePerInterval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Worker.PruneCompletedDays = 1
	cfg.Worker.PruneInterval = 60
	repo := &countingRepo{Repository: testsupport.MustOpenQueue(t, cfg)}
	clock := newManualClock()

	w := worker.New(cfg, repo, &fakeProcessor{}, nil, worker.WithClock(clock))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	clock.Tick(t)
	clock.Tick(t)
	clock.Advance(2 * time.Minute)
	clock.Tick(t)
	// The third tick is only accepted after the second finished its prune check;
	// one more tick guarantees the third has completed.
	clock.Tick(t)

	if got := repo.pruneCount(); got != 2 {
		t.Fatalf("expected 2 prunes, got %d", got)
	}
}
