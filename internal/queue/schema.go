package queue

import (
	_ "embed"

	"meetflow/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 2

var schema = sqlitedb.Schema{Name: "queue", SQL: schemaSQL, Version: schemaVersion}

var expectedColumns = []string{
	"id",
	"source_id",
	"title",
	"status",
	"error",
	"result_summary",
	"customer_id",
	"created_at",
	"started_at",
	"completed_at",
}
