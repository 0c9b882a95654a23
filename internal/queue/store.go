package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"meetflow/internal/config"
	"meetflow/internal/sqlitedb"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db *sqlitedb.DB
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(context.Background(), cfg.QueueDBPath())
}

// OpenPath opens the queue database at an explicit location.
func OpenPath(ctx context.Context, path string) (*Store, error) {
	db, err := sqlitedb.Open(ctx, path, schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Enqueue inserts a pending job for sourceID. A failed job for the same
// source is reset to pending in place (same id, title updated, error
// cleared); a pending or processing one is rejected with ErrAlreadyQueued.
func (s *Store) Enqueue(ctx context.Context, sourceID, title string) (*Job, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, errors.New("enqueue: source id is required")
	}
	title = strings.TrimSpace(title)

	var id int64
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`INSERT INTO queue_jobs (source_id, title, status, created_at)
             VALUES (?, ?, ?, ?)
             ON CONFLICT(source_id) DO UPDATE SET
                 status = excluded.status,
                 title = COALESCE(excluded.title, queue_jobs.title),
                 error = NULL,
                 result_summary = NULL,
                 customer_id = NULL,
                 started_at = NULL,
                 completed_at = NULL
             WHERE queue_jobs.status = ?
             RETURNING id`,
			sourceID,
			sqlitedb.NullableString(title),
			StatusPending,
			sqlitedb.Now(),
			StatusFailed,
		).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetBySource(ctx, sourceID)
		if getErr != nil {
			return nil, getErr
		}
		if existing != nil && existing.Status == StatusCompleted {
			return existing, ErrAlreadyCompleted
		}
		return existing, ErrAlreadyQueued
	}
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return s.Get(ctx, id)
}

// NextPending returns the oldest pending job, or nil when none is waiting.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return job, nil
}

// MarkProcessing claims a pending job. The claim fails with
// ErrProcessingActive when another job is already processing.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE queue_jobs SET status = ?, started_at = ?, completed_at = NULL, error = NULL
         WHERE id = ? AND status = ?
           AND NOT EXISTS (SELECT 1 FROM queue_jobs WHERE status = ?)`,
		StatusProcessing, sqlitedb.Now(), id, StatusPending, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if affected > 0 {
		return nil
	}
	job, err := s.Get(ctx, id)
	switch {
	case err != nil:
		return err
	case job == nil:
		return ErrNotFound
	case job.Status != StatusPending:
		return ErrNotPending
	default:
		return ErrProcessingActive
	}
}

// MarkCompleted records a successful run.
func (s *Store) MarkCompleted(ctx context.Context, id int64, summary string, customerID *int64) error {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE queue_jobs SET status = ?, result_summary = ?, customer_id = ?, error = NULL, completed_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, sqlitedb.NullableString(summary), sqlitedb.NullableInt64(customerID), sqlitedb.Now(),
		id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return s.terminalMiss(ctx, id, affected)
}

// MarkFailed records a failed run with its error text.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE queue_jobs SET status = ?, error = ?, completed_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed, sqlitedb.NullableString(strings.TrimSpace(message)), sqlitedb.Now(),
		id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return s.terminalMiss(ctx, id, affected)
}

func (s *Store) terminalMiss(ctx context.Context, id int64, affected int64) error {
	if affected > 0 {
		return nil
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrNotFound
	}
	return ErrNotProcessing
}

// CancelPending removes a job that has not started yet.
func (s *Store) CancelPending(ctx context.Context, id int64) (bool, error) {
	affected, err := s.db.ExecAffected(ctx,
		`DELETE FROM queue_jobs WHERE id = ? AND status = ?`, id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	return false, s.missing(ctx, id, ErrNotPending)
}

// RetryFailed returns a failed job to pending with its error cleared.
func (s *Store) RetryFailed(ctx context.Context, id int64) (bool, error) {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE queue_jobs
         SET status = ?, error = NULL, result_summary = NULL, customer_id = NULL,
             started_at = NULL, completed_at = NULL
         WHERE id = ? AND status = ?`,
		StatusPending, id, StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("retry job: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	return false, s.missing(ctx, id, ErrNotFailed)
}

func (s *Store) missing(ctx context.Context, id int64, wrongState error) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrNotFound
	}
	return wrongState
}

// ResetInterrupted fails every job left in processing by a previous run.
// It must run before the worker starts polling.
func (s *Store) ResetInterrupted(ctx context.Context) (int64, error) {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE queue_jobs SET status = ?, error = ?, completed_at = ? WHERE status = ?`,
		StatusFailed, InterruptedMessage, sqlitedb.Now(), StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset interrupted jobs: %w", err)
	}
	return affected, nil
}

// PruneCompletedOlderThan deletes completed jobs that finished before now-age.
func (s *Store) PruneCompletedOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, nil
	}
	cutoff := sqlitedb.FormatTime(time.Now().Add(-age))
	affected, err := s.db.ExecAffected(ctx,
		`DELETE FROM queue_jobs WHERE status = ? AND completed_at IS NOT NULL AND completed_at < ?`,
		StatusCompleted, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune completed jobs: %w", err)
	}
	return affected, nil
}
