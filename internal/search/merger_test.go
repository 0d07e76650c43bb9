package search

import (
	"testing"

	"github.com/hyperjump/toiawase/internal/models"
)

func chunkSource(docID string, start, end int, score float64) models.SearchSource {
	return models.SearchSource{
		Kind:       models.SourceKindChunk,
		SourceName: "documents",
		DocumentID: docID,
		StartPos:   start,
		EndPos:     end,
		Score:      score,
		Content:    docID,
	}
}

func rowSource(source, table, pk string, score float64) models.SearchSource {
	return models.SearchSource{
		Kind:       models.SourceKindRow,
		SourceName: source,
		Table:      table,
		PrimaryKey: pk,
		Score:      score,
		Content:    source + "/" + pk,
	}
}

func TestMergeSortsDescending(t *testing.T) {
	branches := [][]models.SearchSource{
		{chunkSource("d1", 0, 10, 0.4), chunkSource("d2", 0, 10, 0.9)},
		{rowSource("crm", "customers", "1", 0.7), rowSource("crm", "customers", "2", 0.5), rowSource("crm", "customers", "3", 0.6)},
	}
	merged := Merge(branches, 0)
	if len(merged) != 5 {
		t.Fatalf("len = %d, want 5", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Score > merged[i-1].Score {
			t.Errorf("not sorted at %d: %f > %f", i, merged[i].Score, merged[i-1].Score)
		}
	}
	if merged[0].DocumentID != "d2" {
		t.Errorf("top = %+v", merged[0])
	}
}

func TestMergeDeduplicatesChunks(t *testing.T) {
	branches := [][]models.SearchSource{
		{chunkSource("d1", 0, 10, 0.4)},
		{chunkSource("d1", 0, 10, 0.8)},
	}
	merged := Merge(branches, 0)
	if len(merged) != 1 {
		t.Fatalf("len = %d, want 1", len(merged))
	}
	if merged[0].Score != 0.8 {
		t.Errorf("kept score %f, want the higher 0.8", merged[0].Score)
	}
}

func TestMergeDeduplicatesRowsByPrimaryKey(t *testing.T) {
	branches := [][]models.SearchSource{
		{rowSource("crm", "customers", "1", 0.6)},
		{rowSource("crm", "customers", "1", 0.5), rowSource("billing", "customers", "1", 0.5)},
	}
	merged := Merge(branches, 0)
	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2 (same pk in different sources stays distinct)", len(merged))
	}
}

func TestMergeStableTieOrder(t *testing.T) {
	branches := [][]models.SearchSource{
		{chunkSource("a", 0, 1, 0.5), chunkSource("b", 0, 1, 0.5)},
		{rowSource("crm", "t", "1", 0.5)},
	}
	merged := Merge(branches, 0)
	if merged[0].DocumentID != "a" || merged[1].DocumentID != "b" || merged[2].PrimaryKey != "1" {
		t.Errorf("tie order not stable: %+v", merged)
	}
}

func TestMergeAppliesLimit(t *testing.T) {
	branches := [][]models.SearchSource{{
		chunkSource("d1", 0, 1, 0.9),
		chunkSource("d2", 0, 1, 0.8),
		chunkSource("d3", 0, 1, 0.7),
	}}
	merged := Merge(branches, 2)
	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2", len(merged))
	}
	if merged[1].DocumentID != "d2" {
		t.Errorf("limit kept wrong results: %+v", merged)
	}
}
