// Package keyword provides the lexical chunk index used as the text-search
// fallback when vector search is unavailable.
package keyword

import (
	"context"

	"github.com/hyperjump/toiawase/internal/models"
)

// Result is a single keyword search hit. ID is a chunk ID; Score is the raw
// index score, not normalized.
type Result struct {
	ID    string
	Score float64
}

// Index defines lexical indexing and search over document chunks.
type Index interface {
	// IndexChunk indexes one chunk under its ID.
	IndexChunk(ctx context.Context, chunk *models.DocumentChunk) error
	// Search returns up to limit chunk hits for the query text.
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	// Delete removes a chunk from the index.
	Delete(ctx context.Context, id string) error
	// DeleteByDocument removes all chunks of a document.
	DeleteByDocument(ctx context.Context, docID string) error
	// DocCount returns the number of indexed chunks.
	DocCount() (uint64, error)
	Close() error
}
