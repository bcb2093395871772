package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// The same embedder (service and model family) must be used at ingestion
// time and at query time; mixing embedding models across the two sides
// silently breaks similarity scores.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates text completions from a prompt.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends the prompt to the completion model and returns the
	// generated text. Returns an error if the completion call fails; no
	// partial output is returned on failure.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Completer
// instances, ensuring they share configuration and credentials.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the text completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// Factory creates providers bound to a credential. Sessions store their
// credential once at creation; the factory turns it into a ready provider
// for every downstream call.
type Factory func(credential string) (Provider, error)
