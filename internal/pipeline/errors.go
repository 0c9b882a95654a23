package pipeline

import (
	"fmt"

	"meetflow/internal/services"
)

var (
	// ErrAlreadyProcessed marks a session that already has a session note.
	ErrAlreadyProcessed = fmt.Errorf("%w: session already processed", services.ErrValidation)
	// ErrSkipped marks a session with a skip placeholder.
	ErrSkipped = fmt.Errorf("%w: session skipped", services.ErrValidation)
	// ErrNotConfigured is returned when the transcript source or analyzer is unavailable.
	ErrNotConfigured = fmt.Errorf("%w: pipeline collaborators not configured", services.ErrConfiguration)
	// ErrTranscriptTooShort is returned for empty or truncated transcripts.
	ErrTranscriptTooShort = fmt.Errorf("%w: transcript too short", services.ErrUpstreamFetch)
)

// Step names used for error context and log fields.
const (
	StepValidate = "validate"
	StepFetch    = "fetch"
	StepAnalyze  = "analyze"
	StepDiagram  = "diagram"
	StepRender   = "render"
	StepCustomer = "customer"
	StepPersist  = "persist"
)

// classify keeps an already-classified error and tags anything else with marker.
func classify(err error, marker error, step, operation, message string) error {
	if services.KindOf(err) != services.ErrorKindUnknown {
		return err
	}
	return services.Wrap(marker, step, operation, message, err)
}
