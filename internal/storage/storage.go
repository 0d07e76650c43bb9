// Package storage persists documents and their chunks.
package storage

import (
	"context"

	"github.com/hyperjump/toiawase/internal/models"
)

// Store defines document and chunk persistence.
type Store interface {
	// SaveDocument stores a document and its chunks atomically.
	SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	// GetDocument returns a document by ID, or nil when absent.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// ListDocuments returns all documents ordered by creation time.
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
	// GetChunks returns all chunks of a document ordered by chunk index.
	GetChunks(ctx context.Context, documentID string) ([]*models.DocumentChunk, error)
	// GetChunkRange returns the chunks of a document whose index lies in
	// [from, to], ordered by chunk index.
	GetChunkRange(ctx context.Context, documentID string, from, to int) ([]*models.DocumentChunk, error)
	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
	Close() error
}
