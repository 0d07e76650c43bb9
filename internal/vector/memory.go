package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// MemoryStore is an in-memory vector store using brute-force cosine search.
// Suitable for tests and small collections.
type MemoryStore struct {
	dimensions int
	chunks     map[string]*models.DocumentChunk
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store with the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{
		dimensions: dimensions,
		chunks:     make(map[string]*models.DocumentChunk),
	}, nil
}

// EnsureCollection is a no-op for MemoryStore.
func (m *MemoryStore) EnsureCollection(ctx context.Context) error {
	return nil
}

// RecreateCollection drops all stored chunks.
func (m *MemoryStore) RecreateCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[string]*models.DocumentChunk)
	return nil
}

// Add stores chunks with their embeddings.
func (m *MemoryStore) Add(ctx context.Context, chunks []*models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range chunks {
		if len(ch.Embedding) != m.dimensions {
			return fmt.Errorf("chunk %s: embedding dimension mismatch: got %d, expected %d",
				ch.ID, len(ch.Embedding), m.dimensions)
		}
		cp := *ch
		cp.Embedding = make([]float32, m.dimensions)
		copy(cp.Embedding, ch.Embedding)
		m.chunks[ch.ID] = &cp
	}
	return nil
}

// Search returns the top-k chunks by cosine similarity. Returned chunks are
// copies: callers annotate them with relevance scores, and those writes must
// never reach the stored set shared across concurrent searches.
func (m *MemoryStore) Search(ctx context.Context, embedding []float32, k int) ([]*Result, error) {
	if len(embedding) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(embedding), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.chunks) == 0 {
		return nil, nil
	}
	results := make([]*Result, 0, len(m.chunks))
	for _, ch := range m.chunks {
		cp := *ch
		results = append(results, &Result{
			Chunk: &cp,
			Score: utils.CosineSimilarity(embedding, ch.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		// Deterministic tie order: document then chunk index.
		if results[i].Chunk.DocumentID != results[j].Chunk.DocumentID {
			return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
		}
		return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Delete removes chunks by ID.
func (m *MemoryStore) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.chunks, id)
	}
	return nil
}

// DeleteByDocument removes all chunks belonging to docID.
func (m *MemoryStore) DeleteByDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.chunks {
		if ch.DocumentID == docID {
			delete(m.chunks, id)
		}
	}
	return nil
}

// Count returns the number of stored chunks.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
