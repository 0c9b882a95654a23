package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Get fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM queue_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetBySource fetches the job for a source session id.
func (s *Store) GetBySource(ctx context.Context, sourceID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE source_id = ?`, strings.TrimSpace(sourceID))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by source: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM queue_jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, id`
	return s.queryJobs(ctx, query, args...)
}

// CurrentProcessing returns the job being processed, if any.
func (s *Store) CurrentProcessing(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE status = ? ORDER BY started_at LIMIT 1`, StatusProcessing)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current processing: %w", err)
	}
	return job, nil
}

// CountByStatus counts jobs in one status.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM queue_jobs WHERE status = ?`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// RecentTerminal returns up to limit completed or failed jobs, newest first.
func (s *Store) RecentTerminal(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE status IN (?, ?)
         ORDER BY completed_at DESC, id DESC LIMIT ?`,
		StatusCompleted, StatusFailed, limit,
	)
}

// Remove deletes a job regardless of status. Processing jobs are refused.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	affected, err := s.db.ExecAffected(ctx,
		`DELETE FROM queue_jobs WHERE id = ? AND status != ?`, id, StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
