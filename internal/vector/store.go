// Package vector provides vector store implementations for chunk embeddings.
package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/toiawase/internal/models"
)

// Result is a single vector search hit.
type Result struct {
	Chunk *models.DocumentChunk
	// Score is cosine similarity in [0,1].
	Score float64
}

// Store defines vector storage and similarity search over document chunks.
// Every stored embedding must match the collection's fixed dimensionality.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error
	// RecreateCollection drops and recreates the collection.
	RecreateCollection(ctx context.Context) error
	// Add stores chunks; each chunk must carry an embedding.
	Add(ctx context.Context, chunks []*models.DocumentChunk) error
	// Search returns up to k chunks ranked by similarity to the embedding.
	Search(ctx context.Context, embedding []float32, k int) ([]*Result, error)
	// Delete removes chunks by ID.
	Delete(ctx context.Context, ids []string) error
	// DeleteByDocument removes all chunks belonging to a document.
	DeleteByDocument(ctx context.Context, docID string) error
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
	Close() error
}

// New creates a vector store of the configured provider.
// Supported providers: "memory" (default), "chromem".
func New(provider string, path, collection string, dimensions int) (Store, error) {
	switch provider {
	case "memory", "":
		return NewMemoryStore(dimensions)
	case "chromem":
		return NewChromemStore(path, collection, dimensions)
	default:
		return nil, fmt.Errorf("unknown vector provider: %s (supported: memory, chromem)", provider)
	}
}
