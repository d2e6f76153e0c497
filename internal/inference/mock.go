package inference

import (
	"context"
	"sync"
)

// MockClient is an in-memory Client implementation for tests.
type MockClient struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []Request
}

// NewMockClient creates a mock that returns the given response.
func NewMockClient(response string) *MockClient {
	return &MockClient{response: response}
}

// NewFailingClient creates a mock that always returns err.
func NewFailingClient(err error) *MockClient {
	return &MockClient{err: err}
}

// Generate records the request and returns the configured response or error.
func (m *MockClient) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// Calls returns a copy of all recorded requests.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
