package records

import (
	"fmt"

	"meetflow/internal/services"
)

var (
	// ErrNotFound reports a missing customer, diagram, version, note or action item.
	ErrNotFound = fmt.Errorf("%w: record", services.ErrNotFound)
	// ErrSessionSkipped rejects writing over a skip placeholder.
	ErrSessionSkipped = fmt.Errorf("%w: session is skipped", services.ErrValidation)
	// ErrSessionExists rejects skipping a session that already has a note.
	ErrSessionExists = fmt.Errorf("%w: session already has a note", services.ErrValidation)
	// ErrSameCustomer rejects merging a customer into itself.
	ErrSameCustomer = fmt.Errorf("%w: source and target customer are the same", services.ErrValidation)
	// ErrEmptyName rejects blank customer names.
	ErrEmptyName = fmt.Errorf("%w: customer name is required", services.ErrValidation)
)
