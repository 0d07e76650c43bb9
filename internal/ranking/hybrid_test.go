package ranking

import (
	"testing"

	"github.com/hyperjump/toiawase/internal/models"
)

func TestScoreBoundsWithEmbeddings(t *testing.T) {
	s := NewScorer(0.8, 0.2)
	queries := []struct {
		query string
		emb   []float32
		chunk *models.DocumentChunk
	}{
		{"billing report", []float32{1, 0}, &models.DocumentChunk{Content: "the billing report for march", Embedding: []float32{1, 0}}},
		{"billing report", []float32{1, 0}, &models.DocumentChunk{Content: "unrelated text", Embedding: []float32{-1, 0}}},
		{"", nil, &models.DocumentChunk{Content: ""}},
		{"x", []float32{0, 0}, &models.DocumentChunk{Content: "y", Embedding: []float32{0, 0}}},
	}
	for _, q := range queries {
		got := s.Score(q.query, q.emb, q.chunk)
		if got < 0 || got > 1 {
			t.Errorf("Score(%q) = %f, outside [0,1]", q.query, got)
		}
	}
}

func TestScoreFallsBackToLexical(t *testing.T) {
	s := NewScorer(0.8, 0.2)
	match := &models.DocumentChunk{Content: "quarterly billing report totals"}
	miss := &models.DocumentChunk{Content: "garden watering schedule"}
	// No embeddings on either side: semantic falls back to lexical.
	if s.Score("billing report", nil, match) <= s.Score("billing report", nil, miss) {
		t.Error("lexical fallback should rank the matching chunk higher")
	}
}

func TestScoreWeightsFusion(t *testing.T) {
	// Identical embeddings but different text: lexical component must separate them.
	s := NewScorer(0.8, 0.2)
	emb := []float32{1, 0}
	exact := &models.DocumentChunk{Content: "alpha beta gamma", Embedding: emb}
	none := &models.DocumentChunk{Content: "delta epsilon", Embedding: emb}
	if s.Score("alpha beta", emb, exact) <= s.Score("alpha beta", emb, none) {
		t.Error("lexical component did not contribute to the fused score")
	}
}

func TestRankOrdersAndIsStable(t *testing.T) {
	s := NewScorer(1.0, 0.0)
	emb := []float32{1, 0}
	chunks := []*models.DocumentChunk{
		{DocumentID: "d2", ChunkIndex: 0, Content: "c", Embedding: []float32{0, 1}},
		{DocumentID: "d1", ChunkIndex: 1, Content: "a", Embedding: emb},
		{DocumentID: "d1", ChunkIndex: 0, Content: "b", Embedding: emb},
	}
	ranked := s.Rank("q", emb, chunks)
	if ranked[0].DocumentID != "d1" || ranked[0].ChunkIndex != 0 {
		t.Errorf("ranked[0] = %s/%d", ranked[0].DocumentID, ranked[0].ChunkIndex)
	}
	if ranked[1].DocumentID != "d1" || ranked[1].ChunkIndex != 1 {
		t.Errorf("ranked[1] = %s/%d", ranked[1].DocumentID, ranked[1].ChunkIndex)
	}
	if ranked[2].DocumentID != "d2" {
		t.Errorf("ranked[2] = %s", ranked[2].DocumentID)
	}
	for _, ch := range ranked {
		if ch.RelevanceScore < 0 || ch.RelevanceScore > 1 {
			t.Errorf("RelevanceScore %f outside [0,1]", ch.RelevanceScore)
		}
	}
}

func TestLexicalScoreBounds(t *testing.T) {
	cases := [][2]string{
		{"", ""},
		{"hello", ""},
		{"", "hello"},
		{"hello world", "hello world"},
		{"hello world", "completely different text"},
	}
	for _, c := range cases {
		got := LexicalScore(c[0], c[1])
		if got < 0 || got > 1 {
			t.Errorf("LexicalScore(%q, %q) = %f, outside [0,1]", c[0], c[1], got)
		}
	}
	if LexicalScore("hello world", "hello world") <= LexicalScore("hello world", "something else entirely") {
		t.Error("exact match should outscore a miss")
	}
}
