package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
//
// Similarity is cosine, computed as the dot product of L2-normalized
// vectors; the ingestion side normalizes chunk vectors before publication
// and the query side normalizes the question vector.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (storage.VectorRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &VectorRepository{backend: backend}, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *VectorRepository) Close() error {
	return nil
}

// PublishIndex atomically replaces the document's index.
// Old entries, new entries, and the manifest are written in one
// transaction; concurrent readers observe either the previous complete
// index or the new one.
func (r *VectorRepository) PublishIndex(ctx context.Context, docID core.ID, manifest *core.IndexManifest, records []*core.ChunkRecord) error {
	if manifest == nil {
		return storage.ErrInvalidQuery
	}
	for _, record := range records {
		if len(record.Vector) != manifest.Dimension {
			return storage.ErrDimensionMismatch
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Collect and remove previously published entries.
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(docID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			stale = append(stale, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		for _, record := range records {
			key := makeVectorKey(docID, record.Seq)
			if err := tx.Set(key, storage.MarshalChunkRecord(record)); err != nil {
				return err
			}
		}

		// The manifest marks the index complete; it is written in the same
		// transaction as the entries.
		if err := tx.Set(makeManifestKey(docID), storage.MarshalIndexManifest(manifest)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// QueryIndex returns up to k chunks ordered by descending similarity.
// Equal scores are broken by lower sequence index.
func (r *VectorRepository) QueryIndex(ctx context.Context, docID core.ID, vector []float32, k int) ([]core.ChunkMatch, error) {
	if k <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	manifest, err := r.GetManifest(ctx, docID)
	if err != nil {
		return nil, err
	}
	if manifest.ChunkCount == 0 {
		return []core.ChunkMatch{}, nil
	}
	if len(vector) != manifest.Dimension {
		return nil, storage.ErrDimensionMismatch
	}

	var matches []core.ChunkMatch

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(docID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.ChunkRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			matches = append(matches, core.ChunkMatch{
				Ref:   core.ChunkRef{DocumentId: docID, Seq: record.Seq},
				Text:  record.Text,
				Score: dotProduct(vector, record.Vector),
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, lower sequence index wins on ties.
	slices.SortFunc(matches, func(a, b core.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return a.Ref.Seq - b.Ref.Seq
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// GetManifest retrieves the manifest of the document's published index.
func (r *VectorRepository) GetManifest(ctx context.Context, docID core.ID) (*core.IndexManifest, error) {
	var manifest *core.IndexManifest

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeManifestKey(docID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			manifest, err = storage.UnmarshalIndexManifest(val)
			return err
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// DropIndex removes the document's index and manifest.
func (r *VectorRepository) DropIndex(ctx context.Context, docID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(docID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		err := tx.Delete(makeManifestKey(docID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Commit()
	}, true)
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
