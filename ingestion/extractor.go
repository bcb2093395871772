package ingestion

import (
	"context"
	"fmt"
	"os"
)

// TextExtractor produces the extractable text of a source document.
// Extraction from rich formats (PDF, HTML, ...) is a collaborator concern;
// the pipeline only consumes the resulting string.
type TextExtractor interface {
	// Extract returns the full text of the document behind fileRef.
	// Returns an error for unreadable or corrupt input.
	Extract(ctx context.Context, fileRef string) (string, error)
}

// FileExtractor implements TextExtractor for plain text files on the local
// filesystem. The fileRef is a file path.
type FileExtractor struct{}

var _ TextExtractor = FileExtractor{}

// Extract reads the file behind fileRef as UTF-8 text.
func (FileExtractor) Extract(ctx context.Context, fileRef string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(fileRef)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", fileRef, err)
	}
	return string(data), nil
}
