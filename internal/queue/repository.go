package queue

import (
	"context"
	"time"
)

// Repository is the job persistence contract used by the worker and the API.
// Every mutation is a single conditional statement so concurrent callers
// observe one winner.
type Repository interface {
	Enqueue(ctx context.Context, sourceID, title string) (*Job, error)
	NextPending(ctx context.Context) (*Job, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64, summary string, customerID *int64) error
	MarkFailed(ctx context.Context, id int64, message string) error
	CancelPending(ctx context.Context, id int64) (bool, error)
	RetryFailed(ctx context.Context, id int64) (bool, error)
	ResetInterrupted(ctx context.Context) (int64, error)
	PruneCompletedOlderThan(ctx context.Context, age time.Duration) (int64, error)

	Get(ctx context.Context, id int64) (*Job, error)
	GetBySource(ctx context.Context, sourceID string) (*Job, error)
	List(ctx context.Context, statuses ...Status) ([]*Job, error)
	CurrentProcessing(ctx context.Context) (*Job, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	RecentTerminal(ctx context.Context, limit int) ([]*Job, error)
}

var _ Repository = (*Store)(nil)
