// Package search provides web search for the assistant: a DuckDuckGo HTML
// scraper and a placeholder used when search is switched off.
package search

import (
	"context"
	"errors"
	"fmt"
)

// Result is one search hit. Description may be empty.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Page is the readable text of a fetched web page.
type Page struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Error is a failed search or fetch.
type Error struct {
	Op         string
	StatusCode int
	Err        error
	retryable  bool
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether a retry might succeed.
func (e *Error) Transient() bool { return e.retryable }

// ErrUnavailable is returned by Unavailable.Fetch.
var ErrUnavailable = errors.New("web search is not available")

// Unavailable stands in when web search is disabled. Search answers with a
// single explanatory result instead of failing.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Search(_ context.Context, _ string, _ int) ([]Result, error) {
	reason := u.Reason
	if reason == "" {
		reason = "Web search is disabled in the current configuration."
	}
	return []Result{{
		Title:       "Web Search Not Available",
		Description: reason,
	}}, nil
}

func (Unavailable) Fetch(_ context.Context, url string) (Page, error) {
	return Page{URL: url}, ErrUnavailable
}
