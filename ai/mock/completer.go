package mock

import (
	"context"
	"fmt"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via a function field.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, uses default deterministic behavior.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	callCount int
	prompts   []string
}

// NewMockCompleter creates a mock completer with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the prompt and returns a deterministic answer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.callCount++
	m.prompts = append(m.prompts, prompt)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}

	return fmt.Sprintf("mock answer %d", m.callCount), nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return m.callCount
}

// Prompts returns the prompts received so far, in call order.
func (m *MockCompleter) Prompts() []string {
	return m.prompts
}

// LastPrompt returns the most recent prompt, or "" if none was received.
func (m *MockCompleter) LastPrompt() string {
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// Reset clears recorded calls and injected behavior.
func (m *MockCompleter) Reset() {
	m.callCount = 0
	m.prompts = nil
	m.CompleteFunc = nil
}
