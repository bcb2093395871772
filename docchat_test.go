package docchat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpen(t *testing.T) {
	t.Run("create new store", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		assistant, err := Open(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, assistant)
		defer assistant.Close()

		assert.NotNil(t, assistant.DocumentRepository())
		assert.NotNil(t, assistant.VectorRepository())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		assistant, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, assistant)
	})

	t.Run("in memory", func(t *testing.T) {
		assistant, err := Open("", WithInMemory())
		require.NoError(t, err)
		require.NotNil(t, assistant)
		assert.NoError(t, assistant.Close())
	})
}

func TestAssistant_EndToEnd(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.GetMockCompleter().CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return "The report covers revenue growth.", nil
	}

	assistant, err := Open("", WithInMemory(),
		WithProviderFactory(provider.Factory()),
		WithChunking(100, 20),
		WithTopK(2))
	require.NoError(t, err)
	defer assistant.Close()

	ctx := context.Background()

	content := strings.Repeat("Revenue grew by ten percent this quarter. ", 12)
	path := writeTestFile(t, "report.txt", content)

	doc, err := assistant.IngestDocument(ctx, "report.txt", path, "sk-test")
	require.NoError(t, err)
	assert.True(t, doc.Processed)

	// The document is listed and marked processed.
	docs, err := assistant.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Processed)

	session, err := assistant.StartSession(ctx, doc.Id, "sk-test")
	require.NoError(t, err)

	reply, err := assistant.Ask(ctx, session.Id, "How did revenue develop?")
	require.NoError(t, err)
	assert.Equal(t, "The report covers revenue growth.", reply.Text)

	// The completion prompt was grounded in the document.
	prompt := provider.GetMockCompleter().LastPrompt()
	assert.Contains(t, prompt, "Revenue grew by ten percent")
	assert.Contains(t, prompt, "Question: How did revenue develop?")

	history, err := assistant.History(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
}

func TestAssistant_IngestFailureLeavesDocumentPending(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	assistant, err := Open("", WithInMemory(), WithProviderFactory(provider.Factory()))
	require.NoError(t, err)
	defer assistant.Close()

	ctx := context.Background()
	path := writeTestFile(t, "doc.txt", "Some content to ingest.")

	doc, err := assistant.IngestDocument(ctx, "doc.txt", path, "sk-test")
	require.Error(t, err)

	var ingestErr *ingestion.IngestError
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, ingestion.StageEmbed, ingestErr.Stage)

	// The record exists but stays pending.
	require.NotNil(t, doc)
	stored, err := assistant.Document(ctx, doc.Id)
	require.NoError(t, err)
	assert.False(t, stored.Processed)
}

func TestAssistant_Reingest(t *testing.T) {
	provider := mock.NewMockProvider()

	assistant, err := Open("", WithInMemory(),
		WithProviderFactory(provider.Factory()),
		WithChunking(100, 20))
	require.NoError(t, err)
	defer assistant.Close()

	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("Initial version of the notes. ", 10)), 0644))

	doc, err := assistant.IngestDocument(ctx, "notes.txt", path, "sk-test")
	require.NoError(t, err)

	firstManifest, err := assistant.VectorRepository().GetManifest(ctx, doc.Id)
	require.NoError(t, err)

	// Update the file and rebuild the index from the stored reference.
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("Second version with new findings. ", 15)), 0644))

	updated, err := assistant.Reingest(ctx, doc.Id, "sk-test")
	require.NoError(t, err)
	assert.True(t, updated.Processed)

	secondManifest, err := assistant.VectorRepository().GetManifest(ctx, doc.Id)
	require.NoError(t, err)
	assert.NotEqual(t, firstManifest.Checksum, secondManifest.Checksum)
}

func TestAssistant_Reingest_UnknownDocument(t *testing.T) {
	assistant, err := Open("", WithInMemory(),
		WithProviderFactory(mock.NewMockProvider().Factory()))
	require.NoError(t, err)
	defer assistant.Close()

	_, err = assistant.Reingest(context.Background(), core.NewID(), "sk-test")
	assert.Error(t, err)
}

func TestAssistant_ExtractFailure(t *testing.T) {
	assistant, err := Open("", WithInMemory(),
		WithProviderFactory(mock.NewMockProvider().Factory()))
	require.NoError(t, err)
	defer assistant.Close()

	doc, err := assistant.IngestDocument(context.Background(), "missing.txt", "/nonexistent/missing.txt", "sk-test")
	require.Error(t, err)

	var ingestErr *ingestion.IngestError
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, ingestion.StageExtract, ingestErr.Stage)
	require.NotNil(t, doc)
}

func TestAssistant_HistoryPersists(t *testing.T) {
	provider := mock.NewMockProvider()
	dbPath := filepath.Join(t.TempDir(), "db")

	assistant, err := Open(dbPath, WithProviderFactory(provider.Factory()), WithChunking(100, 20))
	require.NoError(t, err)

	ctx := context.Background()
	path := writeTestFile(t, "doc.txt", strings.Repeat("Persistent content here. ", 10))

	doc, err := assistant.IngestDocument(ctx, "doc.txt", path, "sk-test")
	require.NoError(t, err)

	session, err := assistant.StartSession(ctx, doc.Id, "sk-test")
	require.NoError(t, err)

	_, err = assistant.Ask(ctx, session.Id, "A persistent question?")
	require.NoError(t, err)

	require.NoError(t, assistant.Close())

	// Reopen the same store: session, history, and index survive.
	reopened, err := Open(dbPath, WithProviderFactory(provider.Factory()))
	require.NoError(t, err)
	defer reopened.Close()

	history, err := reopened.History(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "A persistent question?", history[0].Text)

	reply, err := reopened.Ask(ctx, session.Id, "Still there?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)

	history, err = reopened.History(ctx, session.Id)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAssistant_CustomTextExtractor(t *testing.T) {
	provider := mock.NewMockProvider()

	extractor := extractorFunc(func(ctx context.Context, fileRef string) (string, error) {
		return "extracted from " + fileRef, nil
	})

	assistant, err := Open("", WithInMemory(),
		WithProviderFactory(provider.Factory()),
		WithTextExtractor(extractor))
	require.NoError(t, err)
	defer assistant.Close()

	ctx := context.Background()
	doc, err := assistant.IngestDocument(ctx, "virtual.txt", "ref-123", "sk-test")
	require.NoError(t, err)
	assert.True(t, doc.Processed)

	manifest, err := assistant.VectorRepository().GetManifest(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.ChunkCount)
	assert.Equal(t, core.ChecksumFromContent("extracted from ref-123"), manifest.Checksum)
}

type extractorFunc func(ctx context.Context, fileRef string) (string, error)

func (f extractorFunc) Extract(ctx context.Context, fileRef string) (string, error) {
	return f(ctx, fileRef)
}
