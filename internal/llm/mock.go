package llm

import (
	"context"
	"sync"
)

// Mock is a scripted Completer for tests and offline runs.
// Handler, when set, decides every response. Otherwise Responses are returned in
// order and the last one repeats; with no responses, Default is returned.
type Mock struct {
	Handler   func(ctx context.Context, req Request) (string, error)
	Responses []string
	Default   string

	mu    sync.Mutex
	calls []Request
}

// NewMock returns a Mock that answers with the given responses in order.
func NewMock(responses ...string) *Mock {
	return &Mock{Responses: responses, Default: "This is a mock response."}
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Complete records the request and returns the scripted response.
func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	n := len(m.calls)
	handler := m.Handler
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if handler != nil {
		return handler(ctx, req)
	}
	if len(m.Responses) == 0 {
		if m.Default == "" {
			return "", ErrEmptyResponse
		}
		return m.Default, nil
	}
	if n > len(m.Responses) {
		n = len(m.Responses)
	}
	return m.Responses[n-1], nil
}

// Calls returns a copy of the recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}
