package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/keyword"
	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/storage"
	"github.com/hyperjump/toiawase/internal/vector"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Name() string { return "fixed" }
func (fixedEmbedder) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}
func (fixedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (fixedEmbedder) GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newTestIndexer(t *testing.T) (*Indexer, storage.Store, vector.Store, keyword.Index) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	vectors, err := vector.NewMemoryStore(3)
	if err != nil {
		t.Fatal(err)
	}
	keywords, err := keyword.NewMemOnlyBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		store.Close()
		keywords.Close()
	})
	idx := NewIndexer(store, fixedEmbedder{}, vectors, keywords, 50, zap.NewNop())
	return idx, store, vectors, keywords
}

func TestIndexDocumentWritesEverywhere(t *testing.T) {
	idx, store, vectors, keywords := newTestIndexer(t)
	ctx := context.Background()
	doc, err := idx.IndexDocument(ctx, &models.DocumentInput{
		Title:   "policy",
		Content: "Refunds are allowed within thirty days. Contact support to start one. Include the receipt.",
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := store.GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks stored")
	}
	n, _ := vectors.Count(ctx)
	if n != len(chunks) {
		t.Errorf("vector count = %d, chunk count = %d", n, len(chunks))
	}
	kc, _ := keywords.DocCount()
	if int(kc) != len(chunks) {
		t.Errorf("keyword count = %d, chunk count = %d", kc, len(chunks))
	}
}

func TestIndexDocumentReindexReplaces(t *testing.T) {
	idx, store, vectors, _ := newTestIndexer(t)
	ctx := context.Background()
	long := "Sentence one is here. Sentence two is here. Sentence three is here. Sentence four is here."
	doc, err := idx.IndexDocument(ctx, &models.DocumentInput{ID: "d1", Content: long})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IndexDocument(ctx, &models.DocumentInput{ID: "d1", Content: "Short now."}); err != nil {
		t.Fatal(err)
	}
	chunks, _ := store.GetChunks(ctx, doc.ID)
	if len(chunks) != 1 {
		t.Errorf("chunks after reindex = %d, want 1", len(chunks))
	}
	n, _ := vectors.Count(ctx)
	if n != 1 {
		t.Errorf("vector count after reindex = %d, want 1 (stale chunks left behind)", n)
	}
}

func TestIndexDocumentEmptyContent(t *testing.T) {
	idx, _, _, _ := newTestIndexer(t)
	if _, err := idx.IndexDocument(context.Background(), &models.DocumentInput{Content: "  "}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestDeleteDocumentRemovesEverywhere(t *testing.T) {
	idx, store, vectors, keywords := newTestIndexer(t)
	ctx := context.Background()
	doc, err := idx.IndexDocument(ctx, &models.DocumentInput{Content: "Some content to delete. It spans sentences."})
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetDocument(ctx, doc.ID); got != nil {
		t.Error("document still in store")
	}
	if n, _ := vectors.Count(ctx); n != 0 {
		t.Errorf("vector count = %d after delete", n)
	}
	if kc, _ := keywords.DocCount(); kc != 0 {
		t.Errorf("keyword count = %d after delete", kc)
	}
}

func TestIndexBytesSetsMetadata(t *testing.T) {
	idx, _, _, _ := newTestIndexer(t)
	doc, err := idx.IndexBytes(context.Background(), "notes.md", []byte("# Notes\nSome markdown text."))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata["format"] != "md" || doc.Metadata["filename"] != "notes.md" {
		t.Errorf("metadata = %v", doc.Metadata)
	}
	if doc.Title != "notes.md" {
		t.Errorf("title = %q", doc.Title)
	}
}
