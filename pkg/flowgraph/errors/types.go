package errors

import (
	"errors"
	"fmt"
)

// Kind names which side of a capability failed.
type Kind int

const (
	// KindCapabilityUnavailable: the capability is not configured or its
	// backend is missing. The assistant substitutes an apology or a
	// placeholder result.
	KindCapabilityUnavailable Kind = iota + 1

	// KindCapabilityError: the backend was reached and failed.
	KindCapabilityError

	// KindInputError: the request itself is unusable (missing file,
	// unsupported format, oversized document).
	KindInputError

	// KindModelError: the language model failed to produce text.
	KindModelError
)

func (k Kind) String() string {
	switch k {
	case KindCapabilityUnavailable:
		return "capability_unavailable"
	case KindCapabilityError:
		return "capability_error"
	case KindInputError:
		return "input_error"
	case KindModelError:
		return "model_error"
	default:
		return "unknown"
	}
}

// CapabilityError is a failure of one of the assistant's external
// capabilities: model, documents, or search.
type CapabilityError struct {
	Kind       Kind
	Capability string
	Err        error
}

// NewCapabilityError creates a CapabilityError.
func NewCapabilityError(kind Kind, capability string, err error) *CapabilityError {
	return &CapabilityError{Kind: kind, Capability: capability, Err: err}
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Capability, e.Kind)
	}
	return e.Err.Error()
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first CapabilityError in err's chain, or
// zero when there is none.
func KindOf(err error) Kind {
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return capErr.Kind
	}
	return 0
}

// HTTPError is a non-2xx response from an HTTP backend.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}
