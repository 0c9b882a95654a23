package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstreamFetch = errors.New("upstream fetch error")
	ErrAnalysis      = errors.New("analysis error")
	ErrRender        = errors.New("render error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// ErrorKind is the short classification label attached to logged failures.
type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindUpstream      ErrorKind = "upstream"
	ErrorKindAnalysis      ErrorKind = "analysis"
	ErrorKindRender        ErrorKind = "render"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindTransient     ErrorKind = "transient"
	ErrorKindUnknown       ErrorKind = "unknown"
)

// ServiceError carries the step/operation context for a failure while
// matching both its marker and its cause with errors.Is.
type ServiceError struct {
	Marker    error
	Step      string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Step, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Marker, detail)
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// Wrap builds an error that includes step context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above, or an error that wraps one of them.
func Wrap(marker error, step, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Step:      strings.TrimSpace(step),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the flattened view of an error used by structured logging.
type ErrorDetails struct {
	Kind      ErrorKind
	Step      string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts classification and context from err.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: ErrorKindUnknown}
	}
	details := ErrorDetails{Kind: KindOf(err), Message: err.Error()}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Step = svcErr.Step
		details.Operation = svcErr.Operation
		details.Cause = svcErr.Cause
		if msg := svcErr.Message; msg != "" {
			details.Message = msg
			if svcErr.Cause != nil {
				details.Message = msg + ": " + svcErr.Cause.Error()
			}
		}
	}
	details.Hint = hintFor(details.Kind)
	return details
}

// KindOf maps err onto the error taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindUnknown
	case errors.Is(err, ErrValidation):
		return ErrorKindValidation
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(err, ErrUpstreamFetch):
		return ErrorKindUpstream
	case errors.Is(err, ErrAnalysis):
		return ErrorKindAnalysis
	case errors.Is(err, ErrRender):
		return ErrorKindRender
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrTransient):
		return ErrorKindTransient
	default:
		return ErrorKindUnknown
	}
}

func hintFor(kind ErrorKind) string {
	switch kind {
	case ErrorKindValidation:
		return "session already handled; unskip or inspect the session note"
	case ErrorKindConfiguration:
		return "check transcripts and llm sections of the config"
	case ErrorKindUpstream:
		return "verify the recording finished loading, then retry the job"
	case ErrorKindAnalysis:
		return "inspect the analyzer response; retry usually succeeds"
	case ErrorKindRender:
		return "check that mmdc is installed and the diagram source is valid"
	case ErrorKindNotFound:
		return "verify the identifier"
	default:
		return "check logs for details"
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
