package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockProvider provides a simple mock implementation for testing and
// development. It recognizes the engine's prompt shapes and returns canned
// JSON; tests can also queue explicit responses or errors.
type MockProvider struct {
	mu        sync.Mutex
	available bool
	queued    []string
	err       error
	calls     int
}

// NewMockProvider creates a new mock generative-text provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{available: true}
}

// IsAvailable returns whether the mock provider is available.
func (m *MockProvider) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// SetAvailable controls whether the mock provider is available (for testing).
func (m *MockProvider) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// QueueResponse enqueues a raw response returned by the next Complete call.
// Queued responses win over pattern matching.
func (m *MockProvider) QueueResponse(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, raw)
}

// SetError makes every Complete call fail with err until cleared with nil.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many completions were requested.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete provides mock completions based on queued responses or prompt
// pattern matching.
func (m *MockProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.available {
		return "", fmt.Errorf("mock provider is not available")
	}
	if m.err != nil {
		return "", m.err
	}
	m.calls++

	if len(m.queued) > 0 {
		next := m.queued[0]
		m.queued = m.queued[1:]
		return next, nil
	}

	if strings.Contains(prompt, "non-technical project") {
		return fmt.Sprintf(`{"title": "Creative idea %d", "description": "A non-technical project built around recurring interests.", "reasoning": "These topics keep showing up in the user's notes."}`, m.calls), nil
	}

	if strings.Contains(prompt, "project idea generator") {
		return fmt.Sprintf(`{"title": "Generated project %d", "description": "A project combining the listed capabilities with a current interest.", "reasoning": "The capability set covers every part of the build."}`, m.calls), nil
	}

	return "", fmt.Errorf("unsupported prompt type")
}
