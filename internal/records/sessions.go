package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meetflow/internal/sqlitedb"
)

// GetSessionNote returns the note for a source id or nil.
func (s *Store) GetSessionNote(ctx context.Context, sourceID string) (*SessionNote, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM session_notes WHERE source_id = ?`, strings.TrimSpace(sourceID))
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session note: %w", err)
	}
	return n, nil
}

// UpsertSessionNote writes the note for note.SourceID, overwriting an earlier
// note for the same session. A skip placeholder is never overwritten:
// ErrSessionSkipped is returned instead.
func (s *Store) UpsertSessionNote(ctx context.Context, note SessionNote) (*SessionNote, error) {
	note.SourceID = strings.TrimSpace(note.SourceID)
	if note.SourceID == "" {
		return nil, errors.New("upsert session note: source id is required")
	}
	now := sqlitedb.Now()
	var id int64
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`INSERT INTO session_notes (
                source_id, customer_id, call_type, title, summary,
                action_items_json, components_json, gaps_json, skipped, session_date,
                created_at, updated_at
             ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
             ON CONFLICT(source_id) DO UPDATE SET
                customer_id = excluded.customer_id,
                call_type = excluded.call_type,
                title = excluded.title,
                summary = excluded.summary,
                action_items_json = excluded.action_items_json,
                components_json = excluded.components_json,
                gaps_json = excluded.gaps_json,
                session_date = excluded.session_date,
                updated_at = excluded.updated_at
             WHERE session_notes.skipped = 0
             RETURNING id`,
			note.SourceID,
			sqlitedb.NullableInt64(note.CustomerID),
			sqlitedb.NullableString(note.CallType),
			sqlitedb.NullableString(note.Title),
			sqlitedb.NullableString(note.Summary),
			sqlitedb.NullableString(note.ActionItemsJSON),
			sqlitedb.NullableString(note.ComponentsJSON),
			sqlitedb.NullableString(note.GapsJSON),
			sqlitedb.NullableTime(note.SessionDate),
			now,
			now,
		).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionSkipped
	}
	if err != nil {
		return nil, fmt.Errorf("upsert session note: %w", err)
	}
	return s.GetSessionNote(ctx, note.SourceID)
}

// SkipSession stores a skip placeholder for sourceID. Skipping an already
// skipped session is a no-op; a session with a real note is rejected.
func (s *Store) SkipSession(ctx context.Context, sourceID, title string) (*SessionNote, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, errors.New("skip session: source id is required")
	}
	now := sqlitedb.Now()
	if _, err := s.db.Exec(ctx,
		`INSERT INTO session_notes (source_id, title, skipped, created_at, updated_at)
         VALUES (?, ?, 1, ?, ?)
         ON CONFLICT(source_id) DO NOTHING`,
		sourceID, sqlitedb.NullableString(strings.TrimSpace(title)), now, now,
	); err != nil {
		return nil, fmt.Errorf("skip session: %w", err)
	}
	note, err := s.GetSessionNote(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNotFound
	}
	if !note.Skipped {
		return note, ErrSessionExists
	}
	return note, nil
}

// UnskipSession deletes a skip placeholder. It reports false when sourceID has
// no placeholder.
func (s *Store) UnskipSession(ctx context.Context, sourceID string) (bool, error) {
	affected, err := s.db.ExecAffected(ctx,
		`DELETE FROM session_notes WHERE source_id = ? AND skipped = 1`, strings.TrimSpace(sourceID))
	if err != nil {
		return false, fmt.Errorf("unskip session: %w", err)
	}
	return affected > 0, nil
}

// ListSessionNotes returns a customer's processed notes, newest session first.
func (s *Store) ListSessionNotes(ctx context.Context, customerID int64) ([]*SessionNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM session_notes
         WHERE customer_id = ? AND skipped = 0
         ORDER BY COALESCE(session_date, created_at) DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list session notes: %w", err)
	}
	defer rows.Close()

	var out []*SessionNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
