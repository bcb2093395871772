package chat

import (
	"context"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *badger.Repositories) {
	t.Helper()

	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		repos.Close()
		backend.Close()
	})

	manager, err := NewManager(repos.Sessions, repos.Messages, repos.Documents)
	require.NoError(t, err)
	return manager, repos
}

func addManagedDocument(t *testing.T, repos *badger.Repositories) *core.Document {
	t.Helper()

	doc := &core.Document{Id: core.NewID(), Filename: "doc.txt"}
	_, err := repos.Documents.AddDocument(context.Background(), doc)
	require.NoError(t, err)
	return doc
}

func TestNewManager(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		repos.Close()
		backend.Close()
	}()

	t.Run("valid configuration", func(t *testing.T) {
		manager, err := NewManager(repos.Sessions, repos.Messages, repos.Documents)
		require.NoError(t, err)
		assert.NotNil(t, manager)
	})

	t.Run("nil session repository", func(t *testing.T) {
		_, err := NewManager(nil, repos.Messages, repos.Documents)
		assert.ErrorIs(t, err, ErrSessionRepositoryRequired)
	})

	t.Run("nil message repository", func(t *testing.T) {
		_, err := NewManager(repos.Sessions, nil, repos.Documents)
		assert.ErrorIs(t, err, ErrMessageRepositoryRequired)
	})

	t.Run("nil document repository", func(t *testing.T) {
		_, err := NewManager(repos.Sessions, repos.Messages, nil)
		assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	})
}

func TestStartSession(t *testing.T) {
	manager, repos := newTestManager(t)
	ctx := context.Background()

	doc := addManagedDocument(t, repos)

	session, err := manager.StartSession(ctx, doc.Id, "sk-test")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Id)
	assert.Equal(t, doc.Id, session.DocumentId)
	assert.Equal(t, "sk-test", session.Credential)
	assert.False(t, session.CreatedAt.IsZero())

	// The session must be retrievable.
	stored, err := manager.Session(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, stored.Id)
	assert.Equal(t, "sk-test", stored.Credential)
}

func TestStartSession_UnknownDocument(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.StartSession(context.Background(), core.NewID(), "sk-test")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStartSession_EmptyCredential(t *testing.T) {
	manager, repos := newTestManager(t)
	doc := addManagedDocument(t, repos)

	_, err := manager.StartSession(context.Background(), doc.Id, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyCredential)
}

func TestAppendMessageAndHistory(t *testing.T) {
	manager, repos := newTestManager(t)
	ctx := context.Background()

	doc := addManagedDocument(t, repos)
	session, err := manager.StartSession(ctx, doc.Id, "sk-test")
	require.NoError(t, err)

	turns := []struct {
		role core.Role
		text string
	}{
		{core.RoleUser, "What is the summary?"},
		{core.RoleAssistant, "It covers three topics."},
		{core.RoleUser, "Which topics?"},
		{core.RoleAssistant, "Revenue, costs, and outlook."},
	}

	for _, turn := range turns {
		msg, err := manager.AppendMessage(ctx, session.Id, turn.role, turn.text)
		require.NoError(t, err)
		assert.NotEmpty(t, msg.Id)
		assert.False(t, msg.CreatedAt.IsZero())
	}

	history, err := manager.History(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, history, len(turns))
	for i, turn := range turns {
		assert.Equal(t, turn.role, history[i].Role, "position %d", i)
		assert.Equal(t, turn.text, history[i].Text, "position %d", i)
	}
}

func TestHistory_EmptySession(t *testing.T) {
	manager, repos := newTestManager(t)
	ctx := context.Background()

	doc := addManagedDocument(t, repos)
	session, err := manager.StartSession(ctx, doc.Id, "sk-test")
	require.NoError(t, err)

	history, err := manager.History(ctx, session.Id)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestHistory_UnknownSession(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.History(context.Background(), core.NewID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionLock_SameInstance(t *testing.T) {
	manager, _ := newTestManager(t)

	id := core.NewID()
	first := manager.sessionLock(id)
	second := manager.sessionLock(id)
	assert.Same(t, first, second)

	other := manager.sessionLock(core.NewID())
	assert.NotSame(t, first, other)
}
