package search

import (
	"context"
	"log/slog"
	"math"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// DefaultTopK is the number of chunks retrieved per question when none is
// configured.
const DefaultTopK = 3

// Searcher retrieves the document chunks most relevant to a question.
type Searcher struct {
	vectors  storage.VectorRepository
	embedder ai.Embedder
	topK     int
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithTopK sets the default number of chunks returned per question.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Searcher) error {
		if k <= 0 {
			return ErrInvalidTopK
		}
		s.topK = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	vectors storage.VectorRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		vectors:  vectors,
		embedder: embedder,
		topK:     DefaultTopK,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar retrieves the chunks of the document most similar to the
// question. maxHits limits the result count; pass 0 to use the configured
// default. Results are ranked by cosine similarity, highest first, with
// earlier chunks winning ties.
//
// A document whose index has not been published yet yields
// storage.ErrNotFound; callers deciding to answer without context should
// treat that the same as an empty result.
func (s *Searcher) FindSimilar(ctx context.Context, documentID core.ID, question string, maxHits int) ([]core.ChunkMatch, error) {
	return s.FindSimilarWithMonitor(ctx, documentID, question, maxHits, nil)
}

// FindSimilarWithMonitor retrieves relevant chunks with monitoring.
// The monitor receives callbacks at each stage of the retrieval process.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, documentID core.ID, question string, maxHits int, monitor Monitor) ([]core.ChunkMatch, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if maxHits <= 0 {
		maxHits = s.topK
	}

	monitor.Start(documentID, question)

	embedding, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		s.logger.Error("error generating embedding for question", "document", documentID, "err", err)
		return nil, err
	}
	normalize(embedding)
	monitor.AfterEmbedding(len(embedding))

	matches, err := s.vectors.QueryIndex(ctx, documentID, embedding, maxHits)
	if err != nil {
		s.logger.Error("error querying index", "document", documentID, "err", err)
		return nil, err
	}
	monitor.AfterIndexQuery(matches)

	s.logger.Debug("retrieval finished", "document", documentID, "hits", len(matches))
	monitor.Finish(matches)
	return matches, nil
}

// normalize scales the vector to unit length in place so that the dot
// products computed against the stored unit vectors equal cosine similarity.
func normalize(v []float32) {
	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	if sumSquares == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sumSquares)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
