package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// MessageRepository implements storage.MessageRepository for BadgerDB.
//
// Messages are stored under composite keys ordered by (creation time,
// insertion sequence), so history reads are plain prefix iterations with no
// sorting step.
type MessageRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) (storage.MessageRepository, error) {
	idSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		return nil, err
	}

	return &MessageRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the insertion sequence.
func (r *MessageRepository) Close() error {
	return r.idSeq.Release()
}

// AppendMessage appends a message to its session's history.
func (r *MessageRepository) AppendMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if err := core.ValidateMessage(msg); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		seq, err := r.idSeq.Next()
		if err != nil {
			return err
		}

		msg.Id = core.NewID()
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}

		key := makeMessageKey(msg.SessionId, msg.CreatedAt.UnixMicro(), seq)
		if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessages retrieves all messages of a session, oldest first.
func (r *MessageRepository) GetMessages(ctx context.Context, sessionID core.ID) ([]*core.Message, error) {
	messages := []*core.Message{}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var msg *core.Message
			err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return messages, nil
}
