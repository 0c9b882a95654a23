package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/records"
	"meetflow/internal/worker"
)

// JobStore is the queue persistence needed by QueueService.
type JobStore interface {
	queue.Repository
	Stats(ctx context.Context) (map[queue.Status]int, error)
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// SessionLookup reports whether a session already has a note.
type SessionLookup interface {
	GetSessionNote(ctx context.Context, sourceID string) (*records.SessionNote, error)
}

// StatusReader is the worker's polling view.
type StatusReader interface {
	Status(ctx context.Context) (worker.Status, error)
}

// QueueService exposes queue operations returning API DTOs.
type QueueService struct {
	jobs         JobStore
	sessions     SessionLookup
	worker       StatusReader
	recentWindow int
}

// QueueOption customizes a QueueService.
type QueueOption func(*QueueService)

// WithWorker makes Status report the live worker state.
func WithWorker(w StatusReader) QueueOption {
	return func(s *QueueService) {
		s.worker = w
	}
}

// WithRecentWindow bounds the recent terminal list when no worker is attached.
func WithRecentWindow(n int) QueueOption {
	return func(s *QueueService) {
		if n > 0 {
			s.recentWindow = n
		}
	}
}

// NewQueueService constructs a QueueService. sessions may be nil, in which
// case already processed sessions are only caught by the pipeline.
func NewQueueService(jobs JobStore, sessions SessionLookup, opts ...QueueOption) *QueueService {
	s := &QueueService{jobs: jobs, sessions: sessions, recentWindow: 10}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue queues one session. It rejects sessions that already have a note
// (ErrAlreadyProcessed), skip placeholders (ErrSkipped) and sessions with a
// pending or processing job (queue.ErrAlreadyQueued). A failed job for the
// same source is reset to pending.
func (s *QueueService) Enqueue(ctx context.Context, sourceID, title string) (*Job, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source id is required", ErrInvalidRequest)
	}
	if err := s.checkSession(ctx, sourceID); err != nil {
		return nil, err
	}
	return s.enqueue(ctx, sourceID, title)
}

func (s *QueueService) enqueue(ctx context.Context, sourceID, title string) (*Job, error) {
	job, err := s.jobs.Enqueue(ctx, sourceID, title)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

func (s *QueueService) checkSession(ctx context.Context, sourceID string) error {
	if s.sessions == nil {
		return nil
	}
	note, err := s.sessions.GetSessionNote(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("lookup session %q: %w", sourceID, err)
	}
	switch {
	case note == nil:
		return nil
	case note.Skipped:
		return pipeline.ErrSkipped
	default:
		return pipeline.ErrAlreadyProcessed
	}
}

// Get returns one job.
func (s *QueueService) Get(ctx context.Context, id int64) (*Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, queue.ErrNotFound
	}
	dto := FromJob(job)
	return &dto, nil
}

// List returns jobs filtered by status, oldest first.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	jobs, err := s.jobs.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Cancel removes a pending job. Jobs the worker already dequeued are
// rejected with queue.ErrNotPending.
func (s *QueueService) Cancel(ctx context.Context, id int64) error {
	_, err := s.jobs.CancelPending(ctx, id)
	return err
}

// Retry returns a failed job to pending with its error cleared.
func (s *QueueService) Retry(ctx context.Context, id int64) (*Job, error) {
	if _, err := s.jobs.RetryFailed(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Prune deletes completed jobs older than age.
func (s *QueueService) Prune(ctx context.Context, age time.Duration) (int64, error) {
	return s.jobs.PruneCompletedOlderThan(ctx, age)
}

// Status combines the worker view (when attached) with per-status counts.
func (s *QueueService) Status(ctx context.Context) (QueueStatus, error) {
	counts, err := s.jobs.Stats(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	if s.worker != nil {
		status, err := s.worker.Status(ctx)
		if err != nil {
			return QueueStatus{}, err
		}
		return FromWorkerStatus(status, counts), nil
	}

	current, err := s.jobs.CurrentProcessing(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	recent, err := s.jobs.RecentTerminal(ctx, s.recentWindow)
	if err != nil {
		return QueueStatus{}, err
	}
	return FromWorkerStatus(worker.Status{
		PendingCount:   counts[queue.StatusPending],
		Current:        current,
		RecentTerminal: recent,
	}, counts), nil
}

// Database returns queue database diagnostics.
func (s *QueueService) Database(ctx context.Context) (DatabaseHealth, error) {
	health, err := s.jobs.CheckHealth(ctx)
	if err != nil {
		return DatabaseHealth{}, err
	}
	return FromDatabaseHealth(health), nil
}
