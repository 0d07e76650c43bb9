package vector

import (
	"context"
	"fmt"
	"os"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hyperjump/toiawase/internal/models"
)

// ChromemStore is a persistent embedded vector store backed by chromem-go.
// Chunk provenance (document, index, offsets) travels in document metadata so
// search results can be rebuilt without touching the document store.
type ChromemStore struct {
	db         *chromem.DB
	collection string
	dimensions int
}

// NewChromemStore opens or creates a persistent chromem database at path.
func NewChromemStore(path, collection string, dimensions int) (*ChromemStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create vector store dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	return &ChromemStore{db: db, collection: collection, dimensions: dimensions}, nil
}

// embeddingFunc satisfies chromem's collection API. All chunks arrive with
// embeddings already attached, so this must never be invoked.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embeddings must be precomputed")
	}
}

// EnsureCollection creates the collection if it does not exist.
func (s *ChromemStore) EnsureCollection(ctx context.Context) error {
	_, err := s.db.GetOrCreateCollection(s.collection, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("ensure collection %s: %w", s.collection, err)
	}
	return nil
}

// RecreateCollection drops and recreates the collection.
func (s *ChromemStore) RecreateCollection(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.collection, err)
	}
	return s.EnsureCollection(ctx)
}

// Add stores chunks with their embeddings.
func (s *ChromemStore) Add(ctx context.Context, chunks []*models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	col, err := s.db.GetOrCreateCollection(s.collection, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}
	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		if len(ch.Embedding) != s.dimensions {
			return fmt.Errorf("chunk %s: embedding dimension mismatch: got %d, expected %d",
				ch.ID, len(ch.Embedding), s.dimensions)
		}
		docs[i] = chromem.Document{
			ID:        ch.ID,
			Content:   ch.Content,
			Embedding: ch.Embedding,
			Metadata: map[string]string{
				"document_id": ch.DocumentID,
				"chunk_index": strconv.Itoa(ch.ChunkIndex),
				"start":       strconv.Itoa(ch.StartPosition),
				"end":         strconv.Itoa(ch.EndPosition),
			},
		}
	}
	// Concurrency of 1: embeddings are precomputed, nothing to parallelize.
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Search returns the top-k chunks by similarity to the embedding.
func (s *ChromemStore) Search(ctx context.Context, embedding []float32, k int) ([]*Result, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(embedding), s.dimensions)
	}
	col := s.db.GetCollection(s.collection, s.embeddingFunc())
	if col == nil {
		return nil, fmt.Errorf("collection %s not found", s.collection)
	}
	count := col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	// chromem requires nResults <= document count.
	if k > count {
		k = count
	}
	hits, err := col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	results := make([]*Result, len(hits))
	for i, h := range hits {
		results[i] = &Result{
			Chunk: &models.DocumentChunk{
				ID:            h.ID,
				DocumentID:    h.Metadata["document_id"],
				Content:       h.Content,
				ChunkIndex:    atoiOrZero(h.Metadata["chunk_index"]),
				StartPosition: atoiOrZero(h.Metadata["start"]),
				EndPosition:   atoiOrZero(h.Metadata["end"]),
				Embedding:     h.Embedding,
			},
			Score: float64(h.Similarity),
		}
	}
	return results, nil
}

// Delete removes chunks by ID.
func (s *ChromemStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	col := s.db.GetCollection(s.collection, s.embeddingFunc())
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// DeleteByDocument removes all chunks belonging to docID.
func (s *ChromemStore) DeleteByDocument(ctx context.Context, docID string) error {
	col := s.db.GetCollection(s.collection, s.embeddingFunc())
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, map[string]string{"document_id": docID}, nil); err != nil {
		return fmt.Errorf("delete by document: %w", err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	col := s.db.GetCollection(s.collection, s.embeddingFunc())
	if col == nil {
		return 0, nil
	}
	return col.Count(), nil
}

// Close is a no-op; chromem persists writes as they happen.
func (s *ChromemStore) Close() error {
	return nil
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var _ Store = (*ChromemStore)(nil)
