package ingestion

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/chunker"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// Pipeline orchestrates the ingestion of one document: chunking the
// extracted text, embedding every chunk, and publishing the document's
// vector index atomically.
//
// Ingest is idempotent: re-running it for an already processed document
// rebuilds the index from scratch. A failure at any step leaves the
// document unprocessed and never exposes a partially populated index.
type Pipeline struct {
	documents storage.DocumentRepository
	vectors   storage.VectorRepository
	embedder  ai.Embedder
	pool      *ants.Pool
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunkSize sets the chunk length in characters.
// Default is chunker.DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return chunker.ErrInvalidSplit
		}
		p.chunkSize = size
		return nil
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks.
// Default is chunker.DefaultOverlap.
func WithChunkOverlap(overlap int) Option {
	return func(p *Pipeline) error {
		if overlap < 0 {
			return chunker.ErrInvalidSplit
		}
		p.overlap = overlap
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent embedding requests.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	vectors storage.VectorRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		pool:      pool,
		chunkSize: chunker.DefaultChunkSize,
		overlap:   chunker.DefaultOverlap,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest builds and publishes the vector index for the document from its
// extracted text, then marks the document processed. The returned error is
// always a *IngestError identifying the failed stage and, for embedding
// failures, the offending chunk index.
func (p *Pipeline) Ingest(ctx context.Context, doc *core.Document, text string) error {
	if err := core.ValidateDocument(doc); err != nil {
		return NewIngestError(StageStore, err)
	}

	// A rebuild starts from scratch; the document is unprocessed until the
	// new index is fully published.
	if err := p.documents.SetProcessed(ctx, doc.Id, false); err != nil {
		return NewIngestError(StageStore, err)
	}
	doc.Processed = false

	chunks, err := chunker.Split(text, p.chunkSize, p.overlap)
	if err != nil {
		return NewIngestError(StageChunk, err)
	}

	p.logger.Info("ingesting document",
		"document", doc.Id, "chunks", len(chunks), "chunkSize", p.chunkSize, "overlap", p.overlap)

	vectors, err := p.embedChunks(ctx, doc.Id, chunks)
	if err != nil {
		return err
	}

	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}

	records := make([]*core.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != dimension {
			return NewChunkIngestError(StageEmbed, i, storage.ErrDimensionMismatch)
		}
		normalize(vectors[i])
		records[i] = &core.ChunkRecord{
			Seq:    i,
			Text:   chunk,
			Vector: vectors[i],
			Metadata: map[string]string{
				"chunk": strconv.Itoa(i),
			},
		}
	}

	manifest := &core.IndexManifest{
		ChunkCount: len(records),
		Dimension:  dimension,
		Checksum:   core.ChecksumFromContent(text),
		BuiltAt:    time.Now().UTC(),
	}

	if err := p.vectors.PublishIndex(ctx, doc.Id, manifest, records); err != nil {
		return NewIngestError(StageStore, err)
	}

	if err := p.documents.SetProcessed(ctx, doc.Id, true); err != nil {
		return NewIngestError(StageStore, err)
	}
	doc.Processed = true

	p.logger.Info("document ingested", "document", doc.Id, "chunks", len(records), "dimension", dimension)
	return nil
}

// embedChunks requests one embedding per chunk on the worker pool. The
// request for chunk i carries the deterministic key "{documentID}_{i}". The
// lowest failing chunk index wins when several workers fail.
func (p *Pipeline) embedChunks(ctx context.Context, docID core.ID, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failed    = -1
		failedErr error
	)

	recordFailure := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if failed == -1 || i < failed {
			failed = i
			failedErr = err
		}
	}

	for i, chunk := range chunks {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				recordFailure(i, err)
				return
			}

			key := core.ChunkRef{DocumentId: docID, Seq: i}.Key()
			p.logger.Debug("embedding chunk", "key", key, "length", len(chunk))

			vector, err := p.embedder.EmbedText(ctx, chunk)
			if err != nil {
				recordFailure(i, err)
				return
			}
			vectors[i] = vector
		})
		if submitErr != nil {
			wg.Done()
			recordFailure(i, submitErr)
			break
		}
	}
	wg.Wait()

	if failed != -1 {
		p.logger.Error("embedding failed", "document", docID, "chunk", failed, "err", failedErr)
		return nil, NewChunkIngestError(StageEmbed, failed, failedErr)
	}
	return vectors, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// normalize scales the vector to unit length in place. Cosine similarity
// then reduces to a dot product on the query side. Zero vectors are left
// untouched.
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
