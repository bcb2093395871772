package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/docchat/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "doc"
	sessionPrefix  = "sess"
	messagePrefix  = "msg"
	messageIDSeq   = "msgseq"
	vectorPrefix   = "vec"
	manifestPrefix = "vecman"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeSessionKey generates a key for a chat session by ID.
func makeSessionKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", sessionPrefix, id))
}

// makeMessageKey generates a composite key for a session message.
// Format: prefix:sessionID:timestamp:seq
// Timestamp and sequence are written in BigEndian order so lexicographic
// iteration yields creation-time order with insertion-order tie-break.
func makeMessageKey(sessionID core.ID, timestampMicro int64, seq uint64) []byte {
	prefix := fmt.Sprintf("%s:%s:", messagePrefix, sessionID)
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for sequence
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestampMicro))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeMessagePrefix generates the iteration prefix for a session's messages.
func makeMessagePrefix(sessionID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:", messagePrefix, sessionID))
}

// makeVectorKey generates a composite key for one indexed chunk.
// Format: prefix:documentID:seq
// The sequence index is BigEndian so iteration follows reading order.
func makeVectorKey(docID core.ID, seq int) []byte {
	prefix := fmt.Sprintf("%s:%s:", vectorPrefix, docID)
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(seq))
	return buf
}

// makeVectorPrefix generates the iteration prefix for a document's index.
// Keys are scoped per document; a prefix scan can never observe another
// document's chunks.
func makeVectorPrefix(docID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorPrefix, docID))
}

// makeManifestKey generates a key for a document's index manifest.
func makeManifestKey(docID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", manifestPrefix, docID))
}
