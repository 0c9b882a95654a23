package pipeline

import (
	"fmt"
	"strings"

	"meetflow/internal/records"
)

// Result describes what one successful run produced.
type Result struct {
	SourceID    string
	Title       string
	CallType    CallType
	Customer    *records.Customer
	Diagram     *records.Diagram
	Version     *records.DiagramVersion
	Summary     string
	ActionItems []*records.ActionItem
	Note        *records.SessionNote
	HasDiagram  bool
	Rendered    bool
}

// CustomerID returns the resolved customer id, or nil.
func (r *Result) CustomerID() *int64 {
	if r == nil || r.Customer == nil {
		return nil
	}
	id := r.Customer.ID
	return &id
}

// Describe renders the one-line summary stored on the job.
func (r *Result) Describe() string {
	if r == nil {
		return ""
	}
	parts := []string{string(r.CallType)}
	if r.Customer != nil {
		parts = append(parts, "customer "+r.Customer.Name)
	}
	parts = append(parts, fmt.Sprintf("%d action items", len(r.ActionItems)))
	switch {
	case r.HasDiagram && r.Version != nil && r.Rendered:
		parts = append(parts, fmt.Sprintf("diagram v%d", r.Version.Version))
	case r.HasDiagram && r.Version != nil:
		parts = append(parts, fmt.Sprintf("diagram v%d (not rendered)", r.Version.Version))
	default:
		parts = append(parts, "no diagram")
	}
	return strings.Join(parts, "; ")
}
