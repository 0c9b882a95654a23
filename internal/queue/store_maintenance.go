package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// Stats counts jobs per status. Statuses with no jobs are absent.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("queue stats: %w", err)
		}
		stats[status] = n
	}
	return stats, rows.Err()
}

// Health folds Stats into a fixed summary.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Pending:    stats[StatusPending],
		Processing: stats[StatusProcessing],
		Failed:     stats[StatusFailed],
		Completed:  stats[StatusCompleted],
	}
	for _, n := range stats {
		summary.Total += n
	}
	return summary, nil
}

// CheckHealth inspects the database file, the queue_jobs schema and SQLite's
// integrity check. A missing file is reported, not treated as an error.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.db.Path(), SchemaVersion: schemaVersion}
	if health.DBPath == "" {
		return health, errors.New("queue database path is unknown")
	}
	switch info, err := os.Stat(health.DBPath); {
	case errors.Is(err, os.ErrNotExist):
		return health, nil
	case err != nil:
		return health, fmt.Errorf("stat queue database: %w", err)
	case info.IsDir():
		return health, fmt.Errorf("queue database path %q is a directory", health.DBPath)
	}
	health.DatabaseExists = true

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	fail := func(step string, err error) (DatabaseHealth, error) {
		health.Error = err.Error()
		return health, fmt.Errorf("%s: %w", step, err)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fail("ping queue database", err)
	}
	health.DatabaseReadable = true

	columns, err := s.jobColumns(ctx)
	if err != nil {
		return fail("read queue schema", err)
	}
	health.TableExists = len(columns) > 0
	if health.TableExists {
		health.ColumnsPresent = columns
		for _, col := range expectedColumns {
			if !slices.Contains(columns, col) {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_jobs`).Scan(&health.TotalJobs); err != nil {
			return fail("count queue jobs", err)
		}
	}

	var verdict string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&verdict); err != nil {
		return fail("integrity check", err)
	}
	health.IntegrityCheck = strings.EqualFold(verdict, "ok")
	return health, nil
}

// jobColumns lists queue_jobs columns; empty when the table does not exist.
func (s *Store) jobColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('queue_jobs') ORDER BY cid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}
