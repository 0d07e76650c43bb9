// Package ranking fuses semantic and lexical relevance into one score.
package ranking

import (
	"sort"

	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// Scorer computes hybrid relevance. Weights are fixed at construction; the
// config layer guarantees they sum to 1.
type Scorer struct {
	semanticWeight float64
	lexicalWeight  float64
}

// NewScorer creates a Scorer with the given fusion weights.
func NewScorer(semanticWeight, lexicalWeight float64) *Scorer {
	return &Scorer{semanticWeight: semanticWeight, lexicalWeight: lexicalWeight}
}

// Score returns the fused relevance of a chunk for the query, always in
// [0,1]. The semantic part is cosine similarity when both embeddings are
// present; otherwise lexical similarity stands in for it, so scores stay
// comparable when the embedding pipeline is degraded.
func (s *Scorer) Score(query string, queryEmbedding []float32, chunk *models.DocumentChunk) float64 {
	lexical := LexicalScore(query, chunk.Content)
	semantic := lexical
	if len(queryEmbedding) > 0 && len(chunk.Embedding) > 0 {
		semantic = utils.CosineSimilarity(queryEmbedding, chunk.Embedding)
	}
	return utils.Clamp01(s.semanticWeight*semantic + s.lexicalWeight*lexical)
}

// Rank scores every chunk, writes the score into RelevanceScore, and returns
// the chunks sorted by descending score. Ties keep a stable order by document
// then chunk index so repeated runs rank identically.
func (s *Scorer) Rank(query string, queryEmbedding []float32, chunks []*models.DocumentChunk) []*models.DocumentChunk {
	for _, ch := range chunks {
		ch.RelevanceScore = s.Score(query, queryEmbedding, ch)
	}
	sorted := make([]*models.DocumentChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RelevanceScore != sorted[j].RelevanceScore {
			return sorted[i].RelevanceScore > sorted[j].RelevanceScore
		}
		if sorted[i].DocumentID != sorted[j].DocumentID {
			return sorted[i].DocumentID < sorted[j].DocumentID
		}
		return sorted[i].ChunkIndex < sorted[j].ChunkIndex
	})
	return sorted
}
