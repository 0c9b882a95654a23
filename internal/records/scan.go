package records

import (
	"database/sql"

	"meetflow/internal/sqlitedb"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const customerColumns = "id, name, is_unknown, created_at"

func scanCustomer(scanner rowScanner) (*Customer, error) {
	var (
		c          Customer
		isUnknown  int
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&c.ID, &c.Name, &isUnknown, &createdRaw); err != nil {
		return nil, err
	}
	c.IsUnknown = isUnknown != 0
	if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
		c.CreatedAt = created
	}
	return &c, nil
}

const diagramColumns = "id, customer_id, created_at"

func scanDiagram(scanner rowScanner) (*Diagram, error) {
	var (
		d          Diagram
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&d.ID, &d.CustomerID, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
		d.CreatedAt = created
	}
	return &d, nil
}

const versionColumns = "id, diagram_id, version, source, image_path, notes, created_at"

func scanVersion(scanner rowScanner) (*DiagramVersion, error) {
	var (
		v          DiagramVersion
		imagePath  sql.NullString
		notes      sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&v.ID, &v.DiagramID, &v.Version, &v.Source, &imagePath, &notes, &createdRaw); err != nil {
		return nil, err
	}
	v.ImagePath = imagePath.String
	v.Notes = notes.String
	if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
		v.CreatedAt = created
	}
	return &v, nil
}

const noteColumns = "id, source_id, customer_id, call_type, title, summary, action_items_json, components_json, gaps_json, skipped, session_date, created_at, updated_at"

func scanNote(scanner rowScanner) (*SessionNote, error) {
	var (
		n           SessionNote
		customerID  sql.NullInt64
		callType    sql.NullString
		title       sql.NullString
		summary     sql.NullString
		itemsJSON   sql.NullString
		compsJSON   sql.NullString
		gapsJSON    sql.NullString
		skipped     int
		sessionDate sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&n.ID,
		&n.SourceID,
		&customerID,
		&callType,
		&title,
		&summary,
		&itemsJSON,
		&compsJSON,
		&gapsJSON,
		&skipped,
		&sessionDate,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	n.CustomerID = nullInt64Ptr(customerID)
	n.CallType = callType.String
	n.Title = title.String
	n.Summary = summary.String
	n.ActionItemsJSON = itemsJSON.String
	n.ComponentsJSON = compsJSON.String
	n.GapsJSON = gapsJSON.String
	n.Skipped = skipped != 0
	n.SessionDate = sqlitedb.ParseTimePtr(sessionDate.Valid, sessionDate.String)
	if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
		n.CreatedAt = created
	}
	if updated, err := sqlitedb.ParseTime(updatedRaw.String); err == nil {
		n.UpdatedAt = updated
	}
	return &n, nil
}

const actionColumns = "id, customer_id, session_note_id, owner, text, completed, completed_at, session_date, session_title, created_at"

func scanAction(scanner rowScanner) (*ActionItem, error) {
	var (
		a            ActionItem
		noteID       sql.NullInt64
		owner        sql.NullString
		completed    int
		completedRaw sql.NullString
		sessionDate  sql.NullString
		sessionTitle sql.NullString
		createdRaw   sql.NullString
	)
	if err := scanner.Scan(
		&a.ID,
		&a.CustomerID,
		&noteID,
		&owner,
		&a.Text,
		&completed,
		&completedRaw,
		&sessionDate,
		&sessionTitle,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	a.SessionNoteID = nullInt64Ptr(noteID)
	a.Owner = owner.String
	a.Completed = completed != 0
	a.CompletedAt = sqlitedb.ParseTimePtr(completedRaw.Valid, completedRaw.String)
	a.SessionDate = sqlitedb.ParseTimePtr(sessionDate.Valid, sessionDate.String)
	a.SessionTitle = sessionTitle.String
	if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
		a.CreatedAt = created
	}
	return &a, nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}
