package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrVectorRepositoryRequired is returned when a vector repository is not provided.
	ErrVectorRepositoryRequired = errors.New("vector repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)

// Stage identifies the pipeline step at which ingestion failed.
type Stage string

const (
	// StageExtract is the text extraction step.
	StageExtract Stage = "extract"
	// StageChunk is the chunking step.
	StageChunk Stage = "chunk"
	// StageEmbed is the embedding step.
	StageEmbed Stage = "embed"
	// StageStore is the index publication / bookkeeping step.
	StageStore Stage = "store"
)

// IngestError reports an aborted ingestion run. Chunk is the sequence
// index of the offending chunk, or -1 when the failure is not tied to a
// specific chunk. The document stays unprocessed and the run is retryable.
type IngestError struct {
	Stage Stage
	Chunk int
	Err   error
}

// NewIngestError creates an IngestError for a failure not tied to a chunk.
func NewIngestError(stage Stage, err error) *IngestError {
	return &IngestError{Stage: stage, Chunk: -1, Err: err}
}

// NewChunkIngestError creates an IngestError tied to a specific chunk.
func NewChunkIngestError(stage Stage, chunk int, err error) *IngestError {
	return &IngestError{Stage: stage, Chunk: chunk, Err: err}
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("ingestion failed at stage %s, chunk %d: %v", e.Stage, e.Chunk, e.Err)
	}
	return fmt.Sprintf("ingestion failed at stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IngestError) Unwrap() error {
	return e.Err
}
