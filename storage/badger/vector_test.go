package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

func testManifest(chunkCount, dimension int) *core.IndexManifest {
	return &core.IndexManifest{
		ChunkCount: chunkCount,
		Dimension:  dimension,
		Checksum:   12345,
		BuiltAt:    time.Now().UTC(),
	}
}

func TestPublishAndQueryIndex(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	records := []*core.ChunkRecord{
		{Seq: 0, Text: "chunk zero", Vector: []float32{1, 0, 0}},
		{Seq: 1, Text: "chunk one", Vector: []float32{0, 1, 0}},
		{Seq: 2, Text: "chunk two", Vector: []float32{0, 0, 1}},
	}

	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(3, 3), records); err != nil {
		t.Fatalf("Failed to publish index: %v", err)
	}

	matches, err := repos.Vectors.QueryIndex(ctx, docID, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Failed to query index: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].Ref.Seq != 1 {
		t.Fatalf("Expected chunk 1 first, got %d", matches[0].Ref.Seq)
	}
	if matches[0].Text != "chunk one" {
		t.Fatalf("Expected 'chunk one', got '%s'", matches[0].Text)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("Expected descending scores: %f, %f", matches[0].Score, matches[1].Score)
	}
}

func TestQueryIndex_TieBreak(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	// Chunks 1 and 2 score identically against the query; the lower
	// sequence index must come first.
	records := []*core.ChunkRecord{
		{Seq: 0, Text: "off-topic", Vector: []float32{0, 0, 1}},
		{Seq: 1, Text: "same score a", Vector: []float32{1, 0, 0}},
		{Seq: 2, Text: "same score b", Vector: []float32{1, 0, 0}},
	}

	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(3, 3), records); err != nil {
		t.Fatalf("Failed to publish index: %v", err)
	}

	matches, err := repos.Vectors.QueryIndex(ctx, docID, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Failed to query index: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(matches))
	}
	if matches[0].Ref.Seq != 1 || matches[1].Ref.Seq != 2 {
		t.Fatalf("Tie-break failed: got sequence %d, %d", matches[0].Ref.Seq, matches[1].Ref.Seq)
	}
}

func TestQueryIndex_NotFound(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	_, err = repos.Vectors.QueryIndex(context.Background(), core.NewID(), []float32{1, 0, 0}, 3)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestQueryIndex_DimensionMismatch(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	records := []*core.ChunkRecord{
		{Seq: 0, Text: "chunk", Vector: []float32{1, 0, 0}},
	}
	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(1, 3), records); err != nil {
		t.Fatalf("Failed to publish index: %v", err)
	}

	_, err = repos.Vectors.QueryIndex(ctx, docID, []float32{1, 0}, 3)
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestQueryIndex_InvalidK(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	_, err = repos.Vectors.QueryIndex(context.Background(), core.NewID(), []float32{1}, 0)
	if !errors.Is(err, storage.ErrInvalidQuery) {
		t.Fatalf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestPublishIndex_DimensionMismatch(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	records := []*core.ChunkRecord{
		{Seq: 0, Text: "chunk", Vector: []float32{1, 0}},
	}
	err = repos.Vectors.PublishIndex(ctx, docID, testManifest(1, 3), records)
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}

	// Nothing must have been written.
	_, err = repos.Vectors.GetManifest(ctx, docID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after failed publish, got %v", err)
	}
}

func TestPublishIndex_ReplacesPrevious(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	first := []*core.ChunkRecord{
		{Seq: 0, Text: "old zero", Vector: []float32{1, 0}},
		{Seq: 1, Text: "old one", Vector: []float32{0, 1}},
		{Seq: 2, Text: "old two", Vector: []float32{1, 1}},
	}
	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(3, 2), first); err != nil {
		t.Fatalf("Failed to publish first index: %v", err)
	}

	// Republish with fewer chunks; the old entries beyond the new count
	// must be gone.
	second := []*core.ChunkRecord{
		{Seq: 0, Text: "new zero", Vector: []float32{1, 0}},
	}
	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(1, 2), second); err != nil {
		t.Fatalf("Failed to publish second index: %v", err)
	}

	matches, err := repos.Vectors.QueryIndex(ctx, docID, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Failed to query index: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match after republish, got %d", len(matches))
	}
	if matches[0].Text != "new zero" {
		t.Fatalf("Expected 'new zero', got '%s'", matches[0].Text)
	}
}

func TestPublishIndex_Empty(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(0, 0), nil); err != nil {
		t.Fatalf("Failed to publish empty index: %v", err)
	}

	// An empty index accepts any query dimension and returns no matches.
	matches, err := repos.Vectors.QueryIndex(ctx, docID, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Failed to query empty index: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("Expected no matches, got %d", len(matches))
	}
}

func TestDocumentIndexIsolation(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docA := core.NewID()
	docB := core.NewID()

	recordsA := []*core.ChunkRecord{
		{Seq: 0, Text: "from document A", Vector: []float32{1, 0}},
	}
	recordsB := []*core.ChunkRecord{
		{Seq: 0, Text: "from document B", Vector: []float32{1, 0}},
		{Seq: 1, Text: "also from B", Vector: []float32{0, 1}},
	}

	if err := repos.Vectors.PublishIndex(ctx, docA, testManifest(1, 2), recordsA); err != nil {
		t.Fatalf("Failed to publish index A: %v", err)
	}
	if err := repos.Vectors.PublishIndex(ctx, docB, testManifest(2, 2), recordsB); err != nil {
		t.Fatalf("Failed to publish index B: %v", err)
	}

	matches, err := repos.Vectors.QueryIndex(ctx, docA, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Failed to query index A: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match from document A, got %d", len(matches))
	}
	if matches[0].Text != "from document A" {
		t.Fatalf("Query leaked across documents: got '%s'", matches[0].Text)
	}
}

func TestGetManifest(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	_, err = repos.Vectors.GetManifest(ctx, docID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	records := []*core.ChunkRecord{
		{Seq: 0, Text: "chunk", Vector: []float32{1, 0, 0}},
	}
	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(1, 3), records); err != nil {
		t.Fatalf("Failed to publish index: %v", err)
	}

	manifest, err := repos.Vectors.GetManifest(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to get manifest: %v", err)
	}
	if manifest.ChunkCount != 1 || manifest.Dimension != 3 {
		t.Fatalf("Unexpected manifest: %+v", manifest)
	}
}

func TestDropIndex(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.NewID()

	records := []*core.ChunkRecord{
		{Seq: 0, Text: "chunk", Vector: []float32{1, 0, 0}},
	}
	if err := repos.Vectors.PublishIndex(ctx, docID, testManifest(1, 3), records); err != nil {
		t.Fatalf("Failed to publish index: %v", err)
	}

	if err := repos.Vectors.DropIndex(ctx, docID); err != nil {
		t.Fatalf("Failed to drop index: %v", err)
	}

	_, err = repos.Vectors.QueryIndex(ctx, docID, []float32{1, 0, 0}, 3)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after drop, got %v", err)
	}

	// Dropping again is a no-op.
	if err := repos.Vectors.DropIndex(ctx, docID); err != nil {
		t.Fatalf("Failed on repeated drop: %v", err)
	}
}
