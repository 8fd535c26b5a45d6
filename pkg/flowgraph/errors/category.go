// Package errors classifies failures so callers can decide between retrying,
// degrading, and reporting. It backs the assistant's rule that a turn never
// fails: every capability failure is categorized, possibly retried, and then
// turned into text.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category says whether retrying an error can help.
type Category int

const (
	// CategoryTransient: retry will likely help (rate limits, timeouts,
	// a model server still starting).
	CategoryTransient Category = iota

	// CategoryPermanent: retry won't help (missing model, bad input).
	CategoryPermanent
)

func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and attempt count.
type CategorizedError struct {
	Err      error
	Category Category
	Retries  int
	Context  string
}

func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)", e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)", e.Err, e.Category, e.Retries)
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// Transient marks err as worth retrying.
func Transient(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Context: context}
}

// Permanent marks err as final.
func Permanent(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Context: context}
}

// transient is implemented by adapter errors that know whether they are
// worth retrying (llm.Error, search.Error).
type transient interface {
	Transient() bool
}

// Categorize determines how an error should be handled. Unknown errors are
// permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var capErr *CapabilityError
	if errors.As(err, &capErr) && capErr.Kind == KindCapabilityUnavailable {
		return CategoryPermanent
	}

	var t transient
	if errors.As(err, &t) {
		if t.Transient() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 429, httpErr.StatusCode >= 500:
			return CategoryTransient
		default:
			return CategoryPermanent
		}
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
