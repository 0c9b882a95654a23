package records

import "time"

// Customer owns a diagram, session notes and action items.
type Customer struct {
	ID        int64
	Name      string
	IsUnknown bool
	CreatedAt time.Time
}

// Diagram is the single diagram a customer may have.
type Diagram struct {
	ID         int64
	CustomerID int64
	CreatedAt  time.Time
}

// DiagramVersion is one entry of a diagram's append-only history.
type DiagramVersion struct {
	ID        int64
	DiagramID int64
	Version   int
	Source    string
	ImagePath string
	Notes     string
	CreatedAt time.Time
}

// HasImage reports whether rendering produced an artifact for this version.
func (v DiagramVersion) HasImage() bool {
	return v.ImagePath != ""
}

// SessionNote records what the pipeline produced for one source session. A
// skipped note is a placeholder that blocks processing until removed.
type SessionNote struct {
	ID              int64
	SourceID        string
	CustomerID      *int64
	CallType        string
	Title           string
	Summary         string
	ActionItemsJSON string
	ComponentsJSON  string
	GapsJSON        string
	Skipped         bool
	SessionDate     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActionItem is a follow-up task tracked per customer.
type ActionItem struct {
	ID            int64
	CustomerID    int64
	SessionNoteID *int64
	Owner         string
	Text          string
	Completed     bool
	CompletedAt   *time.Time
	SessionDate   *time.Time
	SessionTitle  string
	CreatedAt     time.Time
}

// NewActionItem is the input shape for ReplaceActionItems.
type NewActionItem struct {
	Owner string
	Text  string
}

// ActionItemEdit carries the fields to change; nil leaves a field untouched.
type ActionItemEdit struct {
	Owner       *string
	Text        *string
	SessionDate *time.Time
}

// CustomerSummary is a customer with counts for list views.
type CustomerSummary struct {
	Customer
	OpenActions  int
	TotalActions int
	Versions     int
}
