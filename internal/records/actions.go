package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meetflow/internal/sqlitedb"
)

// ReplaceActionItems deletes every action item linked to the session note and
// inserts items in order. Re-processing a session therefore never duplicates
// its action items.
func (s *Store) ReplaceActionItems(ctx context.Context, note *SessionNote, customerID int64, items []NewActionItem) ([]*ActionItem, error) {
	if note == nil || note.ID == 0 {
		return nil, errors.New("replace action items: session note is required")
	}
	now := sqlitedb.Now()
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM action_items WHERE session_note_id = ?`, note.ID); err != nil {
			return fmt.Errorf("clear action items: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO action_items (
                customer_id, session_note_id, owner, text, completed, session_date, session_title, position, created_at
             ) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare action item insert: %w", err)
		}
		defer stmt.Close()
		for idx, item := range items {
			text := strings.TrimSpace(item.Text)
			if text == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				customerID,
				note.ID,
				sqlitedb.NullableString(strings.TrimSpace(item.Owner)),
				text,
				sqlitedb.NullableTime(note.SessionDate),
				sqlitedb.NullableString(note.Title),
				idx,
				now,
			); err != nil {
				return fmt.Errorf("insert action item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.queryActions(ctx,
		`SELECT `+actionColumns+` FROM action_items WHERE session_note_id = ? ORDER BY position, id`, note.ID)
}

// ListActionItems returns a customer's action items, open ones first. When
// includeCompleted is false only open items are returned.
func (s *Store) ListActionItems(ctx context.Context, customerID int64, includeCompleted bool) ([]*ActionItem, error) {
	query := `SELECT ` + actionColumns + ` FROM action_items WHERE customer_id = ?`
	if !includeCompleted {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY completed, COALESCE(session_date, created_at) DESC, position, id`
	return s.queryActions(ctx, query, customerID)
}

// ListOpenActionItems returns open action items across all customers,
// optionally restricted to one owner (case-insensitive).
func (s *Store) ListOpenActionItems(ctx context.Context, owner string) ([]*ActionItem, error) {
	owner = strings.TrimSpace(owner)
	query := `SELECT ` + actionColumns + ` FROM action_items WHERE completed = 0`
	var args []any
	if owner != "" {
		query += ` AND owner = ? COLLATE NOCASE`
		args = append(args, owner)
	}
	query += ` ORDER BY customer_id, COALESCE(session_date, created_at) DESC, position, id`
	return s.queryActions(ctx, query, args...)
}

// GetActionItem fetches an action item or nil.
func (s *Store) GetActionItem(ctx context.Context, id int64) (*ActionItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM action_items WHERE id = ?`, id)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action item: %w", err)
	}
	return a, nil
}

// ToggleActionItem flips completion. completed_at is set when the item
// becomes complete and cleared when it is reopened.
func (s *Store) ToggleActionItem(ctx context.Context, id int64) (*ActionItem, error) {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE action_items
         SET completed = 1 - completed,
             completed_at = CASE WHEN completed = 0 THEN ? ELSE NULL END
         WHERE id = ?`,
		sqlitedb.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("toggle action item: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetActionItem(ctx, id)
}

// MoveActionItem reassigns an action item to another customer. The session
// note link is kept.
func (s *Store) MoveActionItem(ctx context.Context, id, customerID int64) error {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE action_items SET customer_id = ?
         WHERE id = ? AND EXISTS (SELECT 1 FROM customers WHERE id = ?)`,
		customerID, id, customerID)
	if err != nil {
		return fmt.Errorf("move action item: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// EditActionItem updates owner, text or session date in place.
func (s *Store) EditActionItem(ctx context.Context, id int64, edit ActionItemEdit) (*ActionItem, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if edit.Owner != nil {
		sets = append(sets, "owner = ?")
		args = append(args, sqlitedb.NullableString(strings.TrimSpace(*edit.Owner)))
	}
	if edit.Text != nil {
		text := strings.TrimSpace(*edit.Text)
		if text == "" {
			return nil, errors.New("edit action item: text cannot be empty")
		}
		sets = append(sets, "text = ?")
		args = append(args, text)
	}
	if edit.SessionDate != nil {
		sets = append(sets, "session_date = ?")
		args = append(args, sqlitedb.NullableTime(edit.SessionDate))
	}
	if len(sets) == 0 {
		item, err := s.GetActionItem(ctx, id)
		if err == nil && item == nil {
			err = ErrNotFound
		}
		return item, err
	}
	args = append(args, id)
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE action_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("edit action item: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetActionItem(ctx, id)
}

func (s *Store) queryActions(ctx context.Context, query string, args ...any) ([]*ActionItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query action items: %w", err)
	}
	defer rows.Close()

	var out []*ActionItem
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
