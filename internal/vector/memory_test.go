package vector

import (
	"context"
	"testing"

	"github.com/hyperjump/toiawase/internal/models"
)

func chunk(id, docID string, idx int, embedding []float32) *models.DocumentChunk {
	return &models.DocumentChunk{
		ID:         id,
		DocumentID: docID,
		Content:    "content " + id,
		ChunkIndex: idx,
		Embedding:  embedding,
	}
}

func TestMemoryStoreSearch(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(3)
	if err != nil {
		t.Fatal(err)
	}
	chunks := []*models.DocumentChunk{
		chunk("c1", "d1", 0, []float32{1, 0, 0}),
		chunk("c2", "d1", 1, []float32{0, 1, 0}),
		chunk("c3", "d2", 0, []float32{0.9, 0.1, 0}),
	}
	if err := store.Add(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "c1" {
		t.Errorf("top result = %s, want c1", results[0].Chunk.ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by descending score")
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %f outside [0,1]", r.Score)
		}
	}
}

func TestMemoryStoreSearchResultsAreCopies(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(3)
	_ = store.Add(ctx, []*models.DocumentChunk{chunk("c1", "d1", 0, []float32{1, 0, 0})})

	results, err := store.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	// Callers annotate hits in place; the stored chunk must not see it.
	results[0].Chunk.RelevanceScore = 0.75
	results[0].Chunk.Content = "mutated"

	again, err := store.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Chunk.RelevanceScore != 0 {
		t.Errorf("stored chunk picked up a relevance score: %f", again[0].Chunk.RelevanceScore)
	}
	if again[0].Chunk.Content != "content c1" {
		t.Errorf("stored chunk content mutated: %q", again[0].Chunk.Content)
	}
}

func TestMemoryStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(3)
	err := store.Add(ctx, []*models.DocumentChunk{chunk("c1", "d1", 0, []float32{1, 0})})
	if err == nil {
		t.Error("expected dimension mismatch error on Add")
	}
	if _, err := store.Search(ctx, []float32{1, 0}, 5); err == nil {
		t.Error("expected dimension mismatch error on Search")
	}
}

func TestMemoryStoreDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore(2)
	_ = store.Add(ctx, []*models.DocumentChunk{
		chunk("c1", "d1", 0, []float32{1, 0}),
		chunk("c2", "d1", 1, []float32{0, 1}),
		chunk("c3", "d2", 0, []float32{1, 1}),
	})
	if err := store.DeleteByDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("expected 1 chunk left, got %d", n)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("faiss", "", "", 3); err == nil {
		t.Error("expected error for unknown provider")
	}
}
