package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/storage"
)

// Assistant answers questions on a chat session by grounding the completion
// in chunks retrieved from the session's document.
//
// The session's credential selects the AI provider, so the question is
// embedded with the same models that built the document's index under that
// credential.
type Assistant struct {
	manager *Manager
	vectors storage.VectorRepository
	factory ai.Factory
	topK    int
	logger  *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant) error

// WithTopK sets the number of chunks retrieved per question.
// Default is search.DefaultTopK.
func WithTopK(k int) AssistantOption {
	return func(a *Assistant) error {
		if k <= 0 {
			return search.ErrInvalidTopK
		}
		a.topK = k
		return nil
	}
}

// WithAssistantLogger sets a custom logger.
// Default is slog.Default().
func WithAssistantLogger(logger *slog.Logger) AssistantOption {
	return func(a *Assistant) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAssistant creates a new assistant.
func NewAssistant(
	manager *Manager,
	vectors storage.VectorRepository,
	factory ai.Factory,
	opts ...AssistantOption,
) (*Assistant, error) {
	if manager == nil {
		return nil, ErrManagerRequired
	}
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if factory == nil {
		return nil, ErrProviderFactoryRequired
	}

	a := &Assistant{
		manager: manager,
		vectors: vectors,
		factory: factory,
		topK:    search.DefaultTopK,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Ask records the user's question on the session, retrieves the most
// relevant document chunks, and generates a grounded answer which is also
// recorded. Returns the assistant's message.
//
// The question is persisted before the completion is attempted; if the
// completion service fails, Ask returns a *CompletionError and the history
// keeps the unanswered question.
func (a *Assistant) Ask(ctx context.Context, sessionID core.ID, question string) (*core.Message, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	session, err := a.manager.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// One question at a time per session; interleaved turns from
	// concurrent callers would corrupt the user/assistant alternation.
	lock := a.manager.sessionLock(session.Id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := a.manager.AppendMessage(ctx, session.Id, core.RoleUser, question); err != nil {
		return nil, err
	}

	provider, err := a.factory(session.Credential)
	if err != nil {
		return nil, &CompletionError{Err: err}
	}

	matches, err := a.retrieve(ctx, session, provider, question)
	if err != nil {
		return nil, err
	}

	prompt := ComposePrompt(question, matches)
	a.logger.Debug("asking completion", "session", session.Id, "contextChunks", len(matches), "promptLength", len(prompt))

	answer, err := provider.Completer().Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("completion failed", "session", session.Id, "err", err)
		return nil, &CompletionError{Err: err}
	}

	reply, err := a.manager.AppendMessage(ctx, session.Id, core.RoleAssistant, answer)
	if err != nil {
		return nil, err
	}

	a.logger.Info("question answered", "session", session.Id, "contextChunks", len(matches))
	return reply, nil
}

// retrieve runs semantic retrieval against the session's document. A
// document with no published index yields no matches rather than an error;
// the answer then comes from the question alone.
func (a *Assistant) retrieve(ctx context.Context, session *core.ChatSession, provider ai.Provider, question string) ([]core.ChunkMatch, error) {
	searcher, err := search.NewSearcher(a.vectors, provider.Embedder(),
		search.WithTopK(a.topK), search.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	matches, err := searcher.FindSimilar(ctx, session.DocumentId, question, 0)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		a.logger.Warn("no index for document, answering without context",
			"session", session.Id, "document", session.DocumentId)
		return nil, nil
	}
	return matches, nil
}
