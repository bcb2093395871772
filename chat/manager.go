package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// Manager owns chat sessions and their message history. It serializes
// writes per session so that concurrent questions on the same session
// append their turns in a consistent order.
type Manager struct {
	sessions  storage.SessionRepository
	messages  storage.MessageRepository
	documents storage.DocumentRepository
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[core.ID]*sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager) error

// WithManagerLogger sets a custom logger.
// Default is slog.Default().
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewManager creates a new session manager.
func NewManager(
	sessions storage.SessionRepository,
	messages storage.MessageRepository,
	documents storage.DocumentRepository,
	opts ...ManagerOption,
) (*Manager, error) {
	if sessions == nil {
		return nil, ErrSessionRepositoryRequired
	}
	if messages == nil {
		return nil, ErrMessageRepositoryRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}

	m := &Manager{
		sessions:  sessions,
		messages:  messages,
		documents: documents,
		logger:    slog.Default(),
		locks:     make(map[core.ID]*sync.Mutex),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// StartSession creates a chat session bound to the document. The credential
// is stored with the session and selects the AI provider for every question
// asked on it. Fails with storage.ErrNotFound if the document does not
// exist.
func (m *Manager) StartSession(ctx context.Context, documentID core.ID, credential string) (*core.ChatSession, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, core.ErrEmptyCredential
	}

	if _, err := m.documents.GetDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("document lookup: %w", err)
	}

	session := &core.ChatSession{
		Id:         core.NewID(),
		DocumentId: documentID,
		Credential: credential,
	}
	stored, err := m.sessions.AddSession(ctx, session)
	if err != nil {
		return nil, err
	}

	m.logger.Info("session started", "session", stored.Id, "document", documentID)
	return stored, nil
}

// Session returns the session by id.
func (m *Manager) Session(ctx context.Context, sessionID core.ID) (*core.ChatSession, error) {
	return m.sessions.GetSession(ctx, sessionID)
}

// AppendMessage records a turn on the session's history.
func (m *Manager) AppendMessage(ctx context.Context, sessionID core.ID, role core.Role, text string) (*core.Message, error) {
	msg := &core.Message{
		SessionId: sessionID,
		Role:      role,
		Text:      text,
	}
	return m.messages.AppendMessage(ctx, msg)
}

// History returns the session's messages in chronological order. A session
// with no messages yields an empty slice.
func (m *Manager) History(ctx context.Context, sessionID core.ID) ([]*core.Message, error) {
	if _, err := m.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.messages.GetMessages(ctx, sessionID)
}

// sessionLock returns the mutex serializing writes for the session,
// creating it on first use.
func (m *Manager) sessionLock(sessionID core.ID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
