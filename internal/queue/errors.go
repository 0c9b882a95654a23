package queue

import (
	"errors"
	"fmt"

	"meetflow/internal/services"
)

var (
	// ErrAlreadyQueued rejects an enqueue while the source is pending or processing.
	ErrAlreadyQueued = fmt.Errorf("%w: session already queued", services.ErrValidation)
	// ErrNotFound reports an unknown job id.
	ErrNotFound = fmt.Errorf("%w: job", services.ErrNotFound)
	// ErrNotPending rejects cancelling a job that already left pending.
	ErrNotPending = fmt.Errorf("%w: job is not pending", services.ErrValidation)
	// ErrNotFailed rejects retrying a job that is not failed.
	ErrNotFailed = fmt.Errorf("%w: job is not failed", services.ErrValidation)
	// ErrAlreadyCompleted rejects an enqueue for a source whose job completed
	// and has not been pruned yet.
	ErrAlreadyCompleted = fmt.Errorf("%w: session already completed", services.ErrValidation)
	// ErrNotProcessing rejects a terminal transition for a job the worker does not own.
	ErrNotProcessing = errors.New("job is not processing")
	// ErrProcessingActive rejects claiming a job while another one is processing.
	ErrProcessingActive = errors.New("another job is processing")
)

// IsRejection reports whether err is one of the caller-correctable queue errors.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAlreadyQueued) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrNotFailed)
}
