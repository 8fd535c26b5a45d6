package event

import (
	"errors"
	"fmt"
)

var (
	// ErrBusClosed is returned by Publish and Subscribe after Close.
	ErrBusClosed = errors.New("event bus closed")

	// ErrTooManySubscribers is returned when MaxSubscribers is reached.
	ErrTooManySubscribers = errors.New("event bus subscriber limit reached")
)

// EventError describes a failure tied to a specific event.
type EventError struct {
	EventID string
	Message string
	Err     error
}

func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event %s: %s: %v", e.EventID, e.Message, e.Err)
	}
	return fmt.Sprintf("event %s: %s", e.EventID, e.Message)
}

func (e *EventError) Unwrap() error { return e.Err }
