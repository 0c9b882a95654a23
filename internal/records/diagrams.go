package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meetflow/internal/sqlitedb"
)

// GetOrCreateDiagram returns the customer's diagram, creating it on first use.
func (s *Store) GetOrCreateDiagram(ctx context.Context, customerID int64) (*Diagram, error) {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO diagrams (customer_id, created_at)
         SELECT ?, ? WHERE EXISTS (SELECT 1 FROM customers WHERE id = ?)
         ON CONFLICT(customer_id) DO NOTHING`,
		customerID, sqlitedb.Now(), customerID,
	); err != nil {
		return nil, fmt.Errorf("create diagram: %w", err)
	}
	diagram, err := s.DiagramForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if diagram == nil {
		return nil, ErrNotFound
	}
	return diagram, nil
}

// DiagramForCustomer returns the customer's diagram or nil.
func (s *Store) DiagramForCustomer(ctx context.Context, customerID int64) (*Diagram, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+diagramColumns+` FROM diagrams WHERE customer_id = ?`, customerID)
	d, err := scanDiagram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get diagram: %w", err)
	}
	return d, nil
}

// GetDiagram fetches a diagram by id or returns nil.
func (s *Store) GetDiagram(ctx context.Context, id int64) (*Diagram, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+diagramColumns+` FROM diagrams WHERE id = ?`, id)
	d, err := scanDiagram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get diagram: %w", err)
	}
	return d, nil
}

// AppendVersion stores source as the next version of the diagram. The version
// number is computed in the insert itself so concurrent appends cannot
// collide or leave gaps.
func (s *Store) AppendVersion(ctx context.Context, diagramID int64, source, notes string) (*DiagramVersion, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("append version: empty diagram source")
	}
	var id int64
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`INSERT INTO diagram_versions (diagram_id, version, source, notes, created_at)
             SELECT d.id,
                    (SELECT COALESCE(MAX(v.version), 0) + 1 FROM diagram_versions v WHERE v.diagram_id = d.id),
                    ?, ?, ?
             FROM diagrams d WHERE d.id = ?
             RETURNING id`,
			source, sqlitedb.NullableString(strings.TrimSpace(notes)), sqlitedb.Now(), diagramID,
		).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("append diagram version: %w", err)
	}
	return s.GetVersion(ctx, id)
}

// GetVersion fetches a diagram version by id or returns nil.
func (s *Store) GetVersion(ctx context.Context, id int64) (*DiagramVersion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM diagram_versions WHERE id = ?`, id)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get diagram version: %w", err)
	}
	return v, nil
}

// SetVersionImage records the rendered image for a version.
func (s *Store) SetVersionImage(ctx context.Context, versionID int64, imagePath string) error {
	affected, err := s.db.ExecAffected(ctx,
		`UPDATE diagram_versions SET image_path = ? WHERE id = ?`,
		sqlitedb.NullableString(strings.TrimSpace(imagePath)), versionID)
	if err != nil {
		return fmt.Errorf("set version image: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVersions returns a diagram's history, oldest first.
func (s *Store) ListVersions(ctx context.Context, diagramID int64) ([]*DiagramVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM diagram_versions WHERE diagram_id = ? ORDER BY version`, diagramID)
	if err != nil {
		return nil, fmt.Errorf("list diagram versions: %w", err)
	}
	defer rows.Close()

	var out []*DiagramVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LatestVersion returns the newest version of a diagram or nil.
func (s *Store) LatestVersion(ctx context.Context, diagramID int64) (*DiagramVersion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM diagram_versions WHERE diagram_id = ? ORDER BY version DESC LIMIT 1`, diagramID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest diagram version: %w", err)
	}
	return v, nil
}

// DeleteDiagram removes a diagram and its versions. Action items are keyed to
// the customer, not the diagram, and are left untouched.
func (s *Store) DeleteDiagram(ctx context.Context, diagramID int64) error {
	affected, err := s.db.ExecAffected(ctx, `DELETE FROM diagrams WHERE id = ?`, diagramID)
	if err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
