package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
// IDs are opaque UUID strings, generated at creation time.
type ID string

// NewID generates a new random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// ChecksumFromContent generates a deterministic checksum from text content
// using BLAKE2b hashing. Identical content always produces the same checksum.
func ChecksumFromContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Role identifies the author of a chat message.
type Role int

const (
	// RoleUser represents the human asking questions.
	RoleUser Role = iota + 1
	// RoleAssistant represents the generated replies.
	RoleAssistant
)

// String returns the wire name of the role ("user" or "assistant").
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Document represents an uploaded source document.
// Processed stays false until an ingestion run completes; only the
// ingestion pipeline mutates it.
type Document struct {
	Id        ID
	Filename  string
	FileRef   string // Reference to the raw content (path or external handle)
	Processed bool
	CreatedAt time.Time
}

// ChunkRef identifies a chunk as (document, sequence index).
type ChunkRef struct {
	DocumentId ID
	Seq        int
}

// Key renders the deterministic embedding-request key for the chunk.
func (r ChunkRef) Key() string {
	return fmt.Sprintf("%s_%d", r.DocumentId, r.Seq)
}

// ChunkRecord is one indexed chunk of a document.
// Records are immutable once published; Vector is L2-normalized and its
// dimension is constant within one index.
type ChunkRecord struct {
	Seq      int
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// IndexManifest describes a published vector index for one document.
// It is written last during publication; its presence marks the index
// as complete and queryable.
type IndexManifest struct {
	ChunkCount int
	Dimension  int
	Checksum   uint64 // Checksum of the source text the index was built from
	BuiltAt    time.Time
}

// ChatSession binds a conversation to exactly one document and one
// credential. The credential is stored at creation and never mutated.
type ChatSession struct {
	Id         ID
	DocumentId ID
	Credential string
	CreatedAt  time.Time
}

// Message is a single entry in a session's history.
// Messages are append-only and ordered by creation time.
type Message struct {
	Id        ID
	SessionId ID
	Role      Role
	Text      string
	CreatedAt time.Time
}

// ChunkMatch is a retrieval hit: a chunk with its similarity score.
type ChunkMatch struct {
	Ref   ChunkRef
	Text  string
	Score float32
}
