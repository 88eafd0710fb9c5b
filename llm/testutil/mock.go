// Package testutil provides oracle mocks for tests.
package testutil

import (
	"context"
	"sync"
)

// MockOracle is a thread-safe scripted oracle. Each Synthesize call returns
// the next configured response; when responses run out, the last one repeats.
// Err takes precedence over responses.
type MockOracle struct {
	mu        sync.Mutex
	Responses []string
	Err       error

	calls   int
	prompts []string
}

// Synthesize returns the next scripted response.
func (m *MockOracle) Synthesize(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.prompts = append(m.prompts, prompt)

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Calls returns how many times Synthesize was invoked.
func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns the prompts seen so far.
func (m *MockOracle) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
