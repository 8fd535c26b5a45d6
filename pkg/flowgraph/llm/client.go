// Package llm defines the chat-completion contract the assistant speaks and
// the adapters that fulfil it: a local Ollama server, the claude CLI, and an
// in-memory mock for tests.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client produces a completion for a conversation.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Error wraps a failed client operation and records whether retrying
// could help.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// NewError creates an Error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Retryable
}

// Transient lets generic error classifiers see the retry hint.
func (e *Error) Transient() bool { return e.Retryable }
