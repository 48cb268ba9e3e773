package records

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound        = errors.New("records: test not found")
	ErrUnavailable     = errors.New("records: host unreachable or transport failure")
	ErrUpstreamError   = errors.New("records: internal error (5xx)")
	ErrBadResponse     = errors.New("records: invalid response format or malformed data")
	ErrRequestRejected = errors.New("records: request rejected (4xx)")
	ErrTimeout         = errors.New("records: request timed out")
)

// APIError wraps the sentinel errors with request context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("records: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}
