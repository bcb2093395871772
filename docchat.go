// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docchat

import (
	"context"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/chunker"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
)

// Assistant is the top-level entry point: a persistent store of documents,
// per-document vector indexes, and chat sessions, plus the machinery to
// ingest documents and answer questions about them.
type Assistant struct {
	backend   *badger.Backend
	repos     *badger.Repositories
	factory   ai.Factory
	extractor ingestion.TextExtractor
	manager   *chat.Manager
	assistant *chat.Assistant
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	aiConfig  *ai.Config
	factory   ai.Factory
	extractor ingestion.TextExtractor
	inMemory  bool
	chunkSize int
	overlap   int
	topK      int
	logger    *slog.Logger
}

// WithAIConfig sets the base AI service configuration. Per-session
// credentials replace its token; everything else is shared.
func WithAIConfig(config *ai.Config) AssistantOption {
	return func(o *assistantOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProviderFactory replaces the default OpenAI-compatible provider
// factory. Intended for tests.
func WithProviderFactory(factory ai.Factory) AssistantOption {
	return func(o *assistantOptions) {
		if factory != nil {
			o.factory = factory
		}
	}
}

// WithTextExtractor replaces the default file-reading text extractor.
func WithTextExtractor(extractor ingestion.TextExtractor) AssistantOption {
	return func(o *assistantOptions) {
		if extractor != nil {
			o.extractor = extractor
		}
	}
}

// WithInMemory opens the store in memory, discarding everything on Close.
// Intended for tests.
func WithInMemory() AssistantOption {
	return func(o *assistantOptions) {
		o.inMemory = true
	}
}

// WithChunking sets the chunk size and overlap used at ingestion time.
func WithChunking(chunkSize, overlap int) AssistantOption {
	return func(o *assistantOptions) {
		o.chunkSize = chunkSize
		o.overlap = overlap
	}
}

// WithTopK sets the number of chunks retrieved per question.
func WithTopK(k int) AssistantOption {
	return func(o *assistantOptions) {
		o.topK = k
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) AssistantOption {
	return func(o *assistantOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens (creating if needed) the store at filePath and wires the full
// assistant on top of it.
func Open(filePath string, opts ...AssistantOption) (*Assistant, error) {
	options := &assistantOptions{
		aiConfig:  ai.DefaultConfig(),
		extractor: &ingestion.FileExtractor{},
		chunkSize: chunker.DefaultChunkSize,
		overlap:   chunker.DefaultOverlap,
		topK:      search.DefaultTopK,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	factory := options.factory
	if factory == nil {
		factory = openai.NewFactory(options.aiConfig)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	manager, err := chat.NewManager(repos.Sessions, repos.Messages, repos.Documents,
		chat.WithManagerLogger(options.logger))
	if err != nil {
		repos.Close()
		backend.Close()
		return nil, err
	}

	assistant, err := chat.NewAssistant(manager, repos.Vectors, factory,
		chat.WithTopK(options.topK), chat.WithAssistantLogger(options.logger))
	if err != nil {
		repos.Close()
		backend.Close()
		return nil, err
	}

	return &Assistant{
		backend:   backend,
		repos:     repos,
		factory:   factory,
		extractor: options.extractor,
		manager:   manager,
		assistant: assistant,
		chunkSize: options.chunkSize,
		overlap:   options.overlap,
		logger:    options.logger,
	}, nil
}

// Close releases all resources. The Assistant must not be used afterwards.
func (a *Assistant) Close() error {
	if err := a.repos.Close(); err != nil {
		a.logger.Error("error closing repositories", "err", err)
		return err
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// IngestDocument registers the uploaded file and builds its vector index.
// The credential selects the AI provider used for embedding. The returned
// document has Processed set once the index is queryable; on ingestion
// failure the document record remains, unprocessed, and the error reports
// the failed stage.
func (a *Assistant) IngestDocument(ctx context.Context, filename, fileRef, credential string) (*core.Document, error) {
	doc := &core.Document{
		Id:       core.NewID(),
		Filename: filename,
		FileRef:  fileRef,
	}
	doc, err := a.repos.Documents.AddDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	if err := a.ingest(ctx, doc, credential); err != nil {
		return doc, err
	}
	return doc, nil
}

// Reingest rebuilds the document's vector index from its stored file
// reference, replacing the previous index atomically.
func (a *Assistant) Reingest(ctx context.Context, documentID core.ID, credential string) (*core.Document, error) {
	doc, err := a.repos.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := a.ingest(ctx, doc, credential); err != nil {
		return doc, err
	}
	return doc, nil
}

func (a *Assistant) ingest(ctx context.Context, doc *core.Document, credential string) error {
	text, err := a.extractor.Extract(ctx, doc.FileRef)
	if err != nil {
		return ingestion.NewIngestError(ingestion.StageExtract, err)
	}

	provider, err := a.factory(credential)
	if err != nil {
		return ingestion.NewIngestError(ingestion.StageEmbed, err)
	}

	pipeline, err := a.NewIngestionPipeline(provider.Embedder())
	if err != nil {
		return err
	}
	defer pipeline.Release()

	return pipeline.Ingest(ctx, doc, text)
}

// Document returns the document by id.
func (a *Assistant) Document(ctx context.Context, documentID core.ID) (*core.Document, error) {
	return a.repos.Documents.GetDocument(ctx, documentID)
}

// ListDocuments returns all known documents.
func (a *Assistant) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	return a.repos.Documents.ListDocuments(ctx)
}

// StartSession opens a chat session on the document. The credential is
// stored with the session and used for every question asked on it.
func (a *Assistant) StartSession(ctx context.Context, documentID core.ID, credential string) (*core.ChatSession, error) {
	return a.manager.StartSession(ctx, documentID, credential)
}

// Session returns the session by id.
func (a *Assistant) Session(ctx context.Context, sessionID core.ID) (*core.ChatSession, error) {
	return a.manager.Session(ctx, sessionID)
}

// Ask answers a question on the session, grounded in the session's
// document. Both the question and the answer are appended to the session's
// history; see chat.Assistant.Ask for failure semantics.
func (a *Assistant) Ask(ctx context.Context, sessionID core.ID, question string) (*core.Message, error) {
	return a.assistant.Ask(ctx, sessionID, question)
}

// History returns the session's messages in chronological order.
func (a *Assistant) History(ctx context.Context, sessionID core.ID) ([]*core.Message, error) {
	return a.manager.History(ctx, sessionID)
}

// DocumentRepository exposes the underlying document repository.
func (a *Assistant) DocumentRepository() storage.DocumentRepository {
	return a.repos.Documents
}

// VectorRepository exposes the underlying vector repository.
func (a *Assistant) VectorRepository() storage.VectorRepository {
	return a.repos.Vectors
}

// NewIngestionPipeline creates an ingestion pipeline bound to this store,
// using the assistant's configured chunking parameters.
func (a *Assistant) NewIngestionPipeline(embedder ai.Embedder, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithChunkSize(a.chunkSize),
		ingestion.WithChunkOverlap(a.overlap),
		ingestion.WithLogger(a.logger),
	}
	return ingestion.NewPipeline(a.repos.Documents, a.repos.Vectors, embedder, append(base, opts...)...)
}

// NewSearcher creates a searcher over this store's vector indexes.
func (a *Assistant) NewSearcher(embedder ai.Embedder, opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{search.WithLogger(a.logger)}
	return search.NewSearcher(a.repos.Vectors, embedder, append(base, opts...)...)
}
