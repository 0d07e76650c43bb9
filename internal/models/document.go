// Package models defines core data structures for documents, queries, intents,
// and search results.
package models

import "time"

// Document represents a stored document with metadata and its ordered chunks.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// DocumentChunk is a bounded slice of a document's text, the atomic unit of
// retrieval and scoring. Chunks within a document are ordered and
// non-overlapping: ChunkIndex increases monotonically, and so does
// StartPosition. [StartPosition, EndPosition) is a half-open character range
// into the document content.
type DocumentChunk struct {
	ID            string    `json:"id" db:"id"`
	DocumentID    string    `json:"document_id" db:"document_id"`
	Content       string    `json:"content" db:"content"`
	ChunkIndex    int       `json:"chunk_index" db:"chunk_index"`
	StartPosition int       `json:"start_position" db:"start_position"`
	EndPosition   int       `json:"end_position" db:"end_position"`
	Embedding     []float32 `json:"-" db:"-"`
	// RelevanceScore is populated only during a search; it is never persisted.
	RelevanceScore float64   `json:"relevance_score,omitempty" db:"-"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for creating or updating a document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
