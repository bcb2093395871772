package storage

import (
	"context"

	"github.com/poiesic/docchat/core"
)

// Repository provides common operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// AddDocument stores a new document.
	// Sets CreatedAt if not already set.
	// Returns ErrDuplicateKey if a document with the same ID exists.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// SetProcessed updates the document's processed flag.
	// Returns ErrNotFound if the document doesn't exist.
	SetProcessed(ctx context.Context, id core.ID, processed bool) error

	// ListDocuments returns all stored documents, ordered by ID.
	ListDocuments(ctx context.Context) ([]*core.Document, error)
}

// SessionRepository provides operations for managing chat sessions.
type SessionRepository interface {
	Repository

	// AddSession stores a new chat session.
	// Sets CreatedAt if not already set.
	AddSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error)

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id core.ID) (*core.ChatSession, error)
}

// MessageRepository provides operations for managing session messages.
// Messages are append-only; there are no update or delete operations.
type MessageRepository interface {
	Repository

	// AppendMessage appends a message to its session's history.
	// Generates the message ID and sets CreatedAt. Ordering is by creation
	// time with insertion-order tie-break.
	AppendMessage(ctx context.Context, msg *core.Message) (*core.Message, error)

	// GetMessages retrieves all messages of a session, oldest first.
	// Returns an empty slice for a session with no messages.
	GetMessages(ctx context.Context, sessionID core.ID) ([]*core.Message, error)
}

// VectorRepository provides the per-document vector index.
//
// An index is published as a whole and is immutable between publications:
// readers observe either the previous complete index or the new one, never
// a partially written state. Similarity is cosine, computed as the dot
// product of L2-normalized vectors; insert and query sides must agree on
// this convention.
type VectorRepository interface {
	Repository

	// PublishIndex atomically replaces the document's index with the given
	// records and manifest. Any previously published entries are removed in
	// the same transaction. All record vectors must match
	// manifest.Dimension; a mismatch returns ErrDimensionMismatch and
	// nothing is written.
	PublishIndex(ctx context.Context, docID core.ID, manifest *core.IndexManifest, records []*core.ChunkRecord) error

	// QueryIndex returns up to k chunks of the document's index ordered by
	// descending similarity to the query vector; equal scores are broken by
	// lower sequence index. Returns ErrNotFound if no index has been
	// published for the document and ErrDimensionMismatch if the query
	// vector's dimension differs from the index's (empty indexes accept any
	// query and return no matches).
	QueryIndex(ctx context.Context, docID core.ID, vector []float32, k int) ([]core.ChunkMatch, error)

	// GetManifest retrieves the manifest of the document's published index.
	// Returns ErrNotFound if no index has been published.
	GetManifest(ctx context.Context, docID core.ID) (*core.IndexManifest, error)

	// DropIndex removes the document's index and manifest.
	// Dropping a non-existent index is a no-op.
	DropIndex(ctx context.Context, docID core.ID) error
}
