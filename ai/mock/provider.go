package mock

import (
	"github.com/poiesic/docchat/ai"
)

// MockProvider is a test double for ai.Provider aggregating mock services.
type MockProvider struct {
	embedder  *MockEmbedder
	completer *MockCompleter
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a provider with default mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		completer: NewMockCompleter(),
	}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the mock completion service.
func (p *MockProvider) Completer() ai.Completer {
	return p.completer
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the concrete mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockCompleter returns the concrete mock completer for test assertions.
func (p *MockProvider) GetMockCompleter() *MockCompleter {
	return p.completer
}

// Factory returns an ai.Factory that hands out this provider for every
// credential. Useful for wiring mocks through session-scoped code paths.
func (p *MockProvider) Factory() ai.Factory {
	return func(credential string) (ai.Provider, error) {
		return p, nil
	}
}
