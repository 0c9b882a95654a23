package worker

import (
	"context"
	"fmt"
	"time"

	"meetflow/internal/queue"
)

// Status is the polling view of the worker and queue.
type Status struct {
	Running        bool
	PendingCount   int
	Current        *queue.Job
	RecentTerminal []*queue.Job
	LastError      string
	LastPoll       time.Time
}

// Status reads the pending count, current job and recent terminal window.
func (w *Worker) Status(ctx context.Context) (Status, error) {
	w.mu.RLock()
	status := Status{Running: w.running, LastPoll: w.lastPoll}
	if w.lastErr != nil {
		status.LastError = w.lastErr.Error()
	}
	window := w.recentWindow
	w.mu.RUnlock()

	pending, err := w.repo.CountByStatus(ctx, queue.StatusPending)
	if err != nil {
		return status, fmt.Errorf("count pending: %w", err)
	}
	current, err := w.repo.CurrentProcessing(ctx)
	if err != nil {
		return status, fmt.Errorf("current job: %w", err)
	}
	recent, err := w.repo.RecentTerminal(ctx, window)
	if err != nil {
		return status, fmt.Errorf("recent jobs: %w", err)
	}
	status.PendingCount = pending
	status.Current = current
	status.RecentTerminal = recent
	return status, nil
}
