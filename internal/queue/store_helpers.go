package queue

import (
	"database/sql"

	"meetflow/internal/sqlitedb"
)

const jobColumns = "id, source_id, title, status, error, result_summary, customer_id, created_at, started_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          int64
		sourceID    string
		title       sql.NullString
		statusStr   string
		errorText   sql.NullString
		summary     sql.NullString
		customerID  sql.NullInt64
		createdRaw  sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&sourceID,
		&title,
		&statusStr,
		&errorText,
		&summary,
		&customerID,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		SourceID:      sourceID,
		Title:         title.String,
		Status:        Status(statusStr),
		Error:         errorText.String,
		ResultSummary: summary.String,
		StartedAt:     sqlitedb.ParseTimePtr(startedRaw.Valid, startedRaw.String),
		CompletedAt:   sqlitedb.ParseTimePtr(finishedRaw.Valid, finishedRaw.String),
	}
	if customerID.Valid {
		cid := customerID.Int64
		job.CustomerID = &cid
	}
	if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	return job, nil
}

func placeholders(count int) string {
	return sqlitedb.Placeholders(count)
}
