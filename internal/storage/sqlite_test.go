package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/toiawase/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleDoc(id string, chunkCount int) (*models.Document, []*models.DocumentChunk) {
	now := time.Now().UTC().Truncate(time.Second)
	doc := &models.Document{
		ID:        id,
		Title:     "doc " + id,
		Content:   "full content of " + id,
		Metadata:  map[string]interface{}{"kind": "test"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	chunks := make([]*models.DocumentChunk, chunkCount)
	for i := range chunks {
		chunks[i] = &models.DocumentChunk{
			ID:            id + "-c" + string(rune('0'+i)),
			DocumentID:    id,
			Content:       "chunk content",
			ChunkIndex:    i,
			StartPosition: i * 10,
			EndPosition:   i*10 + 10,
			CreatedAt:     now,
		}
	}
	return doc, chunks
}

func TestSaveAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc, chunks := sampleDoc("d1", 3)
	if err := store.SaveDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Title != "doc d1" {
		t.Fatalf("got = %+v", got)
	}
	if got.Metadata["kind"] != "test" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	gotChunks, err := store.GetChunks(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(gotChunks) != 3 {
		t.Fatalf("chunks = %d", len(gotChunks))
	}
	for i, ch := range gotChunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d out of order: index %d", i, ch.ChunkIndex)
		}
	}
}

func TestGetDocumentMissing(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetDocument(context.Background(), "absent")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected nil for missing document")
	}
}

func TestSaveDocumentReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc, chunks := sampleDoc("d1", 3)
	if err := store.SaveDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}
	doc2, chunks2 := sampleDoc("d1", 2)
	doc2.Title = "updated"
	if err := store.SaveDocument(ctx, doc2, chunks2); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetDocument(ctx, "d1")
	if got.Title != "updated" {
		t.Errorf("Title = %q", got.Title)
	}
	n, _ := store.CountChunks(ctx)
	if n != 2 {
		t.Errorf("CountChunks = %d, want 2 after replace", n)
	}
}

func TestGetChunkRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc, chunks := sampleDoc("d1", 8)
	if err := store.SaveDocument(ctx, doc, chunks); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetChunkRange(ctx, "d1", 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("range size = %d, want 3", len(got))
	}
	for i, ch := range got {
		if ch.ChunkIndex != 3+i {
			t.Errorf("got index %d at position %d", ch.ChunkIndex, i)
		}
	}
	// Range clipped at document edges returns what exists.
	edge, err := store.GetChunkRange(ctx, "d1", -2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(edge) != 2 {
		t.Errorf("clipped range size = %d, want 2", len(edge))
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc, chunks := sampleDoc("d1", 2)
	_ = store.SaveDocument(ctx, doc, chunks)
	if err := store.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountChunks(ctx)
	if n != 0 {
		t.Errorf("chunks remained after delete: %d", n)
	}
	if err := store.DeleteDocument(ctx, "d1"); err == nil {
		t.Error("expected error deleting missing document")
	}
}

func TestListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		doc, chunks := sampleDoc(id, 1)
		_ = store.SaveDocument(ctx, doc, chunks)
	}
	docs, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("ListDocuments = %d", len(docs))
	}
	n, _ := store.CountDocuments(ctx)
	if n != 2 {
		t.Errorf("CountDocuments = %d", n)
	}
}
