package search

import "github.com/poiesic/docchat/core"

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during retrieval.
type Monitor interface {
	Start(documentID core.ID, question string)
	AfterEmbedding(dimension int)
	AfterIndexQuery(matches []core.ChunkMatch)
	Finish(results []core.ChunkMatch)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.ID, _ string)           {}
func (n *noopMonitor) AfterEmbedding(_ int)                {}
func (n *noopMonitor) AfterIndexQuery(_ []core.ChunkMatch) {}
func (n *noopMonitor) Finish(_ []core.ChunkMatch)          {}
