package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests. Responses cycle; an error, when
// set, wins over responses. Safe for concurrent use.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error
	handler   func(CompletionRequest) (string, error)
	calls     []CompletionRequest
}

// NewMockClient returns a mock that always answers content.
func NewMockClient(content string) *MockClient {
	return &MockClient{responses: []string{content}}
}

// WithResponses replaces the scripted answers; they are returned in order
// and then repeat from the start.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.next = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithHandler computes each answer from the request.
func (m *MockClient) WithHandler(fn func(CompletionRequest) (string, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	err, handler := m.err, m.handler
	var content string
	if len(m.responses) > 0 {
		content = m.responses[m.next%len(m.responses)]
		m.next++
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if handler != nil {
		var herr error
		content, herr = handler(req)
		if herr != nil {
			return nil, herr
		}
	}
	return &CompletionResponse{Content: content, FinishReason: "stop", Model: "mock"}, nil
}

// CallCount returns the number of Complete calls so far.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of every request received.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.calls...)
}

// LastCall returns the most recent request, or nil.
func (m *MockClient) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	req := m.calls[len(m.calls)-1]
	return &req
}
