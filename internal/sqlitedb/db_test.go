package sqlitedb_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"meetflow/internal/sqlitedb"
)

const testSchema = `
CREATE TABLE schema_version (version INTEGER NOT NULL);
CREATE TABLE parents (id INTEGER PRIMARY KEY);
CREATE TABLE children (
    id INTEGER PRIMARY KEY,
    parent_id INTEGER NOT NULL REFERENCES parents(id) ON DELETE CASCADE
);
`

func TestOpenCreatesSchemaAndEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := sqlitedb.Open(ctx, path, sqlitedb.Schema{Name: "test", SQL: testSchema, Version: 1})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Fatalf("unexpected path %q", db.Path())
	}
	if _, err := db.Exec(ctx, `INSERT INTO children (parent_id) VALUES (99)`); err == nil {
		t.Fatal("expected foreign key violation")
	}
	if _, err := db.Exec(ctx, `INSERT INTO parents (id) VALUES (1)`); err != nil {
		t.Fatalf("insert parent: %v", err)
	}
	if _, err := db.Exec(ctx, `INSERT INTO children (parent_id) VALUES (1)`); err != nil {
		t.Fatalf("insert child: %v", err)
	}
	n, err := db.ExecAffected(ctx, `DELETE FROM parents WHERE id = 1`)
	if err != nil || n != 1 {
		t.Fatalf("delete parent: n=%d err=%v", n, err)
	}
	var remaining int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM children`).Scan(&remaining); err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected cascade delete, %d children remain", remaining)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlitedb.Open(ctx, path, sqlitedb.Schema{Name: "test", SQL: testSchema, Version: 1})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	db.Close()

	reopened, err := sqlitedb.Open(ctx, path, sqlitedb.Schema{Name: "test", SQL: testSchema, Version: 1})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	reopened.Close()

	_, err = sqlitedb.Open(ctx, path, sqlitedb.Schema{Name: "test", SQL: testSchema, Version: 2})
	if !errors.Is(err, sqlitedb.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := sqlitedb.RetryOnBusy(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected single attempt, got calls=%d err=%v", calls, err)
	}

	calls = 0
	err = sqlitedb.RetryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after retries, got calls=%d err=%v", calls, err)
	}
}

func TestParseTimeAcceptsBothLayouts(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if got, err := sqlitedb.ParseTime(sqlitedb.FormatTime(now)); err != nil || !got.Equal(now) {
		t.Fatalf("round trip failed: %v %v", got, err)
	}
	if _, err := sqlitedb.ParseTime("2026-03-04 05:06:07"); err != nil {
		t.Fatalf("sqlite layout rejected: %v", err)
	}
	if sqlitedb.ParseTimePtr(false, "x") != nil {
		t.Fatal("expected nil for invalid column")
	}
	if sqlitedb.Placeholders(3) != "?,?,?" {
		t.Fatalf("unexpected placeholders %q", sqlitedb.Placeholders(3))
	}
}
