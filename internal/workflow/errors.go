package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrJobNotFound is returned when the registry has no job under the requested id.
var ErrJobNotFound = errors.New("job not found")

// PreconditionError means the job is not in a state that permits the action.
// Missing names the prior checkpoint that is absent, or the condition that blocked the action.
type PreconditionError struct {
	Action  Action
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition not met: %s", e.Action, e.Missing)
}

// ValidationError is a single missing or malformed evidence field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every evidence problem found for one submission.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(parts, "; "))
}

// Fields lists the offending field names in order.
func (e ValidationErrors) Fields() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Field
	}
	return out
}

func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// InvalidRouteError means a proposed route order is not a permutation of the job's stops,
// or a reorder index is out of range.
type InvalidRouteError struct {
	Reason string
}

func (e *InvalidRouteError) Error() string {
	return "invalid route: " + e.Reason
}

// StorageError wraps a registry failure other than not-found.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Reason classifies err for metrics and logs.
func Reason(err error) string {
	var (
		pre   *PreconditionError
		route *InvalidRouteError
		val   ValidationErrors
		st    *StorageError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &pre):
		return "precondition"
	case errors.As(err, &val):
		return "validation"
	case errors.As(err, &route):
		return "invalid_route"
	case errors.Is(err, ErrJobNotFound):
		return "not_found"
	case errors.As(err, &st):
		return "storage"
	default:
		return "internal"
	}
}
