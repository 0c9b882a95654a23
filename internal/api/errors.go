package api

import (
	"errors"
	"fmt"
	"net/http"

	"meetflow/internal/pipeline"
	"meetflow/internal/queue"
	"meetflow/internal/records"
	"meetflow/internal/services"
)

// ErrInvalidRequest rejects malformed input.
var ErrInvalidRequest = fmt.Errorf("%w: invalid request", services.ErrValidation)

// Error codes carried in ErrorResponse.Code.
const (
	CodeAlreadyQueued    = "already_queued"
	CodeAlreadyProcessed = "already_processed"
	CodeSkipped          = "skipped"
	CodeNotPending       = "not_pending"
	CodeNotFailed        = "not_failed"
	CodeNotFound         = "not_found"
	CodeInvalidRequest   = "invalid_request"
	CodeNotConfigured    = "not_configured"
	CodeUnauthorized     = "unauthorized"
	CodeInternal         = "internal"
)

// ErrorCode classifies err for API responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, queue.ErrAlreadyQueued):
		return CodeAlreadyQueued
	case errors.Is(err, pipeline.ErrAlreadyProcessed), errors.Is(err, queue.ErrAlreadyCompleted),
		errors.Is(err, records.ErrSessionExists):
		return CodeAlreadyProcessed
	case errors.Is(err, pipeline.ErrSkipped), errors.Is(err, records.ErrSessionSkipped):
		return CodeSkipped
	case errors.Is(err, queue.ErrNotPending):
		return CodeNotPending
	case errors.Is(err, queue.ErrNotFailed):
		return CodeNotFailed
	case errors.Is(err, services.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, services.ErrConfiguration):
		return CodeNotConfigured
	case errors.Is(err, services.ErrValidation):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// HTTPStatus maps err onto a response status: conflicts with existing work
// are 409, wrong-state transitions and bad input 400, unknown ids 404.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case "":
		return http.StatusOK
	case CodeAlreadyQueued, CodeAlreadyProcessed, CodeSkipped:
		return http.StatusConflict
	case CodeNotPending, CodeNotFailed, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotConfigured:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// CodeError rebuilds a classified error from a response code so callers on
// the far side of the API can still use errors.Is.
func CodeError(code, message string) error {
	var marker error
	switch code {
	case CodeAlreadyQueued:
		marker = queue.ErrAlreadyQueued
	case CodeAlreadyProcessed:
		marker = pipeline.ErrAlreadyProcessed
	case CodeSkipped:
		marker = pipeline.ErrSkipped
	case CodeNotPending:
		marker = queue.ErrNotPending
	case CodeNotFailed:
		marker = queue.ErrNotFailed
	case CodeNotFound:
		marker = services.ErrNotFound
	case CodeInvalidRequest:
		marker = ErrInvalidRequest
	case CodeNotConfigured:
		marker = services.ErrConfiguration
	default:
		return errors.New(message)
	}
	return fmt.Errorf("%w (%s)", marker, message)
}
