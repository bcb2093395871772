package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
type SessionRepository struct {
	backend *Backend
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(backend *Backend) (storage.SessionRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &SessionRepository{backend: backend}, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *SessionRepository) Close() error {
	return nil
}

// AddSession stores a new chat session.
func (r *SessionRepository) AddSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error) {
	if err := core.ValidateSession(session); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(session.Id)

		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if session.CreatedAt.IsZero() {
			session.CreatedAt = time.Now().UTC()
		}

		if err := tx.Set(key, storage.MarshalSession(session)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id core.ID) (*core.ChatSession, error) {
	var session *core.ChatSession

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSessionKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			session, err = storage.UnmarshalSession(val)
			return err
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return session, nil
}
