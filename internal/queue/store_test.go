package queue_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"meetflow/internal/queue"
	"meetflow/internal/testsupport"

	_ "modernc.org/sqlite"
)

func TestEnqueueAssignsPendingJob(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "https://rec.example.com/s/a", "Acme sync")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job.ID == 0 || job.Status != queue.StatusPending || job.Title != "Acme sync" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.CreatedAt.IsZero() || job.StartedAt != nil || job.CompletedAt != nil {
		t.Fatalf("unexpected timestamps: %+v", job)
	}

	fetched, err := store.GetBySource(ctx, "https://rec.example.com/s/a")
	if err != nil {
		t.Fatalf("GetBySource failed: %v", err)
	}
	if fetched == nil || fetched.ID != job.ID {
		t.Fatalf("expected to find job %d, got %+v", job.ID, fetched)
	}
}

func TestEnqueueRejectsDuplicateWhileActive(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "src-1", "first")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.Enqueue(ctx, "src-1", "again"); !errors.Is(err, queue.ErrAlreadyQueued) {
		t.Fatalf("expected ErrAlreadyQueued while pending, got %v", err)
	}

	if err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	existing, err := store.Enqueue(ctx, "src-1", "again")
	if !errors.Is(err, queue.ErrAlreadyQueued) {
		t.Fatalf("expected ErrAlreadyQueued while processing, got %v", err)
	}
	if existing == nil || existing.ID != job.ID {
		t.Fatalf("expected existing job to be returned, got %+v", existing)
	}
	if !queue.IsRejection(err) {
		t.Fatal("expected rejection classification")
	}
}

func TestEnqueueResetsFailedJobInPlace(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, _ := store.Enqueue(ctx, "src-f", "old title")
	if err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "transcript too short"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	again, err := store.Enqueue(ctx, "src-f", "new title")
	if err != nil {
		t.Fatalf("re-enqueue failed: %v", err)
	}
	if again.ID != job.ID {
		t.Fatalf("expected same job id %d, got %d", job.ID, again.ID)
	}
	if again.Status != queue.StatusPending || again.Error != "" || again.Title != "new title" {
		t.Fatalf("unexpected reset job: %+v", again)
	}
	if again.StartedAt != nil || again.CompletedAt != nil {
		t.Fatalf("expected cleared run timestamps: %+v", again)
	}
}

func TestEnqueueRejectsCompletedSource(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, _ := store.Enqueue(ctx, "src-c", "")
	_ = store.MarkProcessing(ctx, job.ID)
	if err := store.MarkCompleted(ctx, job.ID, "done", nil); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if _, err := store.Enqueue(ctx, "src-c", ""); !errors.Is(err, queue.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestNextPendingIsFIFO(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		job, err := store.Enqueue(ctx, fmt.Sprintf("src-%d", i), "")
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	for _, want := range ids {
		next, err := store.NextPending(ctx)
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if next == nil || next.ID != want {
			t.Fatalf("expected job %d next, got %+v", want, next)
		}
		if err := store.MarkProcessing(ctx, next.ID); err != nil {
			t.Fatalf("MarkProcessing failed: %v", err)
		}
		if err := store.MarkCompleted(ctx, next.ID, "ok", nil); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}
	}

	next, err := store.NextPending(ctx)
	if err != nil || next != nil {
		t.Fatalf("expected empty queue, got %+v err=%v", next, err)
	}
}

func TestMarkProcessingAllowsOnlyOneJob(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, "a", "")
	b, _ := store.Enqueue(ctx, "b", "")

	if err := store.MarkProcessing(ctx, a.ID); err != nil {
		t.Fatalf("MarkProcessing(a) failed: %v", err)
	}
	if err := store.MarkProcessing(ctx, b.ID); !errors.Is(err, queue.ErrProcessingActive) {
		t.Fatalf("expected ErrProcessingActive, got %v", err)
	}
	if err := store.MarkProcessing(ctx, a.ID); !errors.Is(err, queue.ErrNotPending) {
		t.Fatalf("expected ErrNotPending for re-claim, got %v", err)
	}
	if err := store.MarkProcessing(ctx, 9999); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	count, err := store.CountByStatus(ctx, queue.StatusProcessing)
	if err != nil || count != 1 {
		t.Fatalf("expected exactly one processing job, got %d err=%v", count, err)
	}
}

func TestSchemaRejectsSecondProcessingRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)
	ctx := context.Background()

	first, _ := store.Enqueue(ctx, "s1", "")
	second, _ := store.Enqueue(ctx, "s2", "")
	if err := store.MarkProcessing(ctx, first.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	raw, err := sql.Open("sqlite", cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("open raw connection: %v", err)
	}
	defer raw.Close()
	if _, err := raw.ExecContext(ctx, `UPDATE queue_jobs SET status = 'processing' WHERE id = ?`, second.ID); err == nil {
		t.Fatal("expected unique index to reject a second processing job")
	}
}

func TestConcurrentClaimsYieldSingleWinner(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 4; i++ {
		job, _ := store.Enqueue(ctx, fmt.Sprintf("c-%d", i), "")
		ids = append(ids, job.ID)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := store.MarkProcessing(ctx, id); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected a single successful claim, got %d", wins)
	}
}

func TestTerminalTransitionsRequireProcessing(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, _ := store.Enqueue(ctx, "t", "")
	if err := store.MarkCompleted(ctx, job.ID, "x", nil); !errors.Is(err, queue.ErrNotProcessing) {
		t.Fatalf("expected ErrNotProcessing, got %v", err)
	}
	if err := store.MarkFailed(ctx, 4242, "x"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = store.MarkProcessing(ctx, job.ID)
	customerID := int64(7)
	if err := store.MarkCompleted(ctx, job.ID, "Technical call for Acme", &customerID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	done, _ := store.Get(ctx, job.ID)
	if done.Status != queue.StatusCompleted || done.ResultSummary != "Technical call for Acme" {
		t.Fatalf("unexpected completed job: %+v", done)
	}
	if done.CustomerID == nil || *done.CustomerID != 7 {
		t.Fatalf("expected customer id 7, got %v", done.CustomerID)
	}
	if done.StartedAt == nil || done.CompletedAt == nil || done.Duration() < 0 {
		t.Fatalf("expected run timestamps: %+v", done)
	}
}

func TestCancelPendingOnlyForPending(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	pending, _ := store.Enqueue(ctx, "p", "")
	running, _ := store.Enqueue(ctx, "r", "")
	_ = store.MarkProcessing(ctx, running.ID)

	ok, err := store.CancelPending(ctx, running.ID)
	if ok || !errors.Is(err, queue.ErrNotPending) {
		t.Fatalf("expected ErrNotPending for processing job, got ok=%v err=%v", ok, err)
	}
	ok, err = store.CancelPending(ctx, 777)
	if ok || !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got ok=%v err=%v", ok, err)
	}
	ok, err = store.CancelPending(ctx, pending.ID)
	if !ok || err != nil {
		t.Fatalf("expected cancel to succeed, got ok=%v err=%v", ok, err)
	}
	if gone, _ := store.Get(ctx, pending.ID); gone != nil {
		t.Fatalf("expected cancelled job to be removed, got %+v", gone)
	}
}

func TestRetryFailed(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, _ := store.Enqueue(ctx, "rf", "")
	if ok, err := store.RetryFailed(ctx, job.ID); ok || !errors.Is(err, queue.ErrNotFailed) {
		t.Fatalf("expected ErrNotFailed for pending job, got ok=%v err=%v", ok, err)
	}
	_ = store.MarkProcessing(ctx, job.ID)
	_ = store.MarkFailed(ctx, job.ID, "boom")

	ok, err := store.RetryFailed(ctx, job.ID)
	if !ok || err != nil {
		t.Fatalf("RetryFailed: ok=%v err=%v", ok, err)
	}
	retried, _ := store.Get(ctx, job.ID)
	if retried.Status != queue.StatusPending || retried.Error != "" {
		t.Fatalf("unexpected retried job: %+v", retried)
	}
	if ok, err := store.RetryFailed(ctx, 31337); ok || !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got ok=%v err=%v", ok, err)
	}
}

func TestResetInterruptedFailsOrphans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	job, _ := first.Enqueue(ctx, "crash", "")
	_ = first.MarkProcessing(ctx, job.ID)
	_ = first.Close()

	store := testsupport.MustOpenQueue(t, cfg)
	count, err := store.ResetInterrupted(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected one interrupted job, got %d err=%v", count, err)
	}
	reset, _ := store.Get(ctx, job.ID)
	if reset.Status != queue.StatusFailed || reset.Error != queue.InterruptedMessage {
		t.Fatalf("unexpected reset job: %+v", reset)
	}
	current, _ := store.CurrentProcessing(ctx)
	if current != nil {
		t.Fatalf("expected no processing job, got %+v", current)
	}
}

func TestRecentTerminalAndPrune(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		job, _ := store.Enqueue(ctx, fmt.Sprintf("rt-%d", i), "")
		_ = store.MarkProcessing(ctx, job.ID)
		if i == 1 {
			_ = store.MarkFailed(ctx, job.ID, "boom")
		} else {
			_ = store.MarkCompleted(ctx, job.ID, "ok", nil)
		}
	}
	_, _ = store.Enqueue(ctx, "still-pending", "")

	recent, err := store.RecentTerminal(ctx, 2)
	if err != nil {
		t.Fatalf("RecentTerminal failed: %v", err)
	}
	if len(recent) != 2 || recent[0].SourceID != "rt-2" || recent[1].SourceID != "rt-1" {
		t.Fatalf("unexpected recent terminal jobs: %+v", recent)
	}

	if n, err := store.PruneCompletedOlderThan(ctx, time.Hour); err != nil || n != 0 {
		t.Fatalf("expected nothing old enough to prune, got %d err=%v", n, err)
	}
	time.Sleep(5 * time.Millisecond)
	n, err := store.PruneCompletedOlderThan(ctx, time.Millisecond)
	if err != nil || n != 2 {
		t.Fatalf("expected two completed jobs pruned, got %d err=%v", n, err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Failed != 1 || health.Pending != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()
	_, _ = store.Enqueue(ctx, "h", "")

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if len(health.MissingColumns) != 0 || health.TotalJobs != 1 {
		t.Fatalf("unexpected column/total state: %+v", health)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenQueue(t, testsupport.NewConfig(t))
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, "la", "")
	_, _ = store.Enqueue(ctx, "lb", "")
	_ = store.MarkProcessing(ctx, a.ID)

	all, err := store.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d err=%v", len(all), err)
	}
	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil || len(pending) != 1 || pending[0].SourceID != "lb" {
		t.Fatalf("unexpected pending list: %+v err=%v", pending, err)
	}
	if removed, _ := store.Remove(ctx, a.ID); removed {
		t.Fatal("processing job must not be removable")
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := queue.ParseStatus(" Failed "); !ok || s != queue.StatusFailed {
		t.Fatalf("unexpected parse: %v %v", s, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
