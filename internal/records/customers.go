package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meetflow/internal/sqlitedb"
)

// CreateCustomer inserts a new customer row. Unknown customers are always
// new rows; they are never looked up or merged automatically.
func (s *Store) CreateCustomer(ctx context.Context, name string, unknown bool) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	res, err := s.db.Exec(ctx,
		`INSERT INTO customers (name, is_unknown, created_at) VALUES (?, ?, ?)`,
		name, sqlitedb.BoolToInt(unknown), sqlitedb.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCustomer(ctx, id)
}

// GetCustomer fetches a customer by id. A missing customer returns (nil, nil).
func (s *Store) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// FindKnownCustomer looks up a non-unknown customer by name: an exact match
// wins, otherwise the shortest name containing the query (case-sensitive).
func (s *Store) FindKnownCustomer(ctx context.Context, name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers
         WHERE is_unknown = 0 AND instr(name, ?) > 0
         ORDER BY (name = ?) DESC, length(name), id
         LIMIT 1`,
		name, name,
	)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return c, nil
}

// SearchCustomers returns customers whose name contains query, ignoring case.
// An empty query lists every customer.
func (s *Store) SearchCustomers(ctx context.Context, query string) ([]*Customer, error) {
	query = strings.TrimSpace(query)
	sqlText := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if query != "" {
		sqlText += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(query)+"%")
	}
	sqlText += ` ORDER BY is_unknown, name COLLATE NOCASE, id`

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	defer rows.Close()

	var out []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCustomerSummaries returns every customer with action item and diagram
// version counts.
func (s *Store) ListCustomerSummaries(ctx context.Context) ([]CustomerSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT c.id, c.name, c.is_unknown, c.created_at,
               (SELECT COUNT(1) FROM action_items a WHERE a.customer_id = c.id AND a.completed = 0),
               (SELECT COUNT(1) FROM action_items a WHERE a.customer_id = c.id),
               (SELECT COUNT(1) FROM diagram_versions v JOIN diagrams d ON d.id = v.diagram_id WHERE d.customer_id = c.id)
        FROM customers c
        ORDER BY c.is_unknown, c.name COLLATE NOCASE, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []CustomerSummary
	for rows.Next() {
		var (
			summary    CustomerSummary
			isUnknown  int
			createdRaw sql.NullString
		)
		if err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&isUnknown,
			&createdRaw,
			&summary.OpenActions,
			&summary.TotalActions,
			&summary.Versions,
		); err != nil {
			return nil, err
		}
		summary.IsUnknown = isUnknown != 0
		if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
			summary.CreatedAt = created
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// RenameCustomer changes a customer's display name. Renaming an unknown
// customer promotes it to a known one.
func (s *Store) RenameCustomer(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE customers SET name = ?, is_unknown = 0 WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename customer: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCustomer removes a customer together with its diagram history and
// action items. Session notes stay (detached) so their sessions are still
// recognised as processed.
func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	affected, err := s.db.ExecAffected(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MergeCustomers folds source into target: action items and session notes are
// reassigned, the diagram history is moved (or appended after target's latest
// version, renumbered), and source is deleted.
func (s *Store) MergeCustomers(ctx context.Context, sourceID, targetID int64) error {
	if sourceID == targetID {
		return ErrSameCustomer
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM customers WHERE id IN (?, ?)`, sourceID, targetID).Scan(&n); err != nil {
			return fmt.Errorf("check customers: %w", err)
		}
		if n != 2 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE action_items SET customer_id = ? WHERE customer_id = ?`, targetID, sourceID); err != nil {
			return fmt.Errorf("move action items: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE session_notes SET customer_id = ? WHERE customer_id = ?`, targetID, sourceID); err != nil {
			return fmt.Errorf("move session notes: %w", err)
		}
		if err := mergeDiagrams(ctx, tx, sourceID, targetID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, sourceID); err != nil {
			return fmt.Errorf("delete merged customer: %w", err)
		}
		return nil
	})
}

func mergeDiagrams(ctx context.Context, tx *sql.Tx, sourceID, targetID int64) error {
	var sourceDiagram, targetDiagram sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT (SELECT id FROM diagrams WHERE customer_id = ?), (SELECT id FROM diagrams WHERE customer_id = ?)`,
		sourceID, targetID,
	).Scan(&sourceDiagram, &targetDiagram); err != nil {
		return fmt.Errorf("lookup diagrams: %w", err)
	}
	switch {
	case !sourceDiagram.Valid:
		return nil
	case !targetDiagram.Valid:
		if _, err := tx.ExecContext(ctx,
			`UPDATE diagrams SET customer_id = ? WHERE id = ?`, targetID, sourceDiagram.Int64); err != nil {
			return fmt.Errorf("reassign diagram: %w", err)
		}
		return nil
	}

	var offset int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM diagram_versions WHERE diagram_id = ?`, targetDiagram.Int64,
	).Scan(&offset); err != nil {
		return fmt.Errorf("read target version: %w", err)
	}
	// Source versions keep their relative order and continue target's sequence.
	if _, err := tx.ExecContext(ctx,
		`UPDATE diagram_versions SET diagram_id = ?, version = version + ? WHERE diagram_id = ?`,
		targetDiagram.Int64, offset, sourceDiagram.Int64,
	); err != nil {
		return fmt.Errorf("append merged versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM diagrams WHERE id = ?`, sourceDiagram.Int64); err != nil {
		return fmt.Errorf("delete merged diagram: %w", err)
	}
	return nil
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}
