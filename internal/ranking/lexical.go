package ranking

import (
	"strings"

	"github.com/hyperjump/toiawase/pkg/utils"
)

// LexicalScore measures word-level similarity between query and content as a
// blend of token overlap and character trigram overlap, bounded to [0,1]. It
// needs no index and no embeddings, so it always has an answer.
func LexicalScore(query, content string) float64 {
	q := utils.UniqueTokens(utils.Tokenize(query))
	if len(q) == 0 || content == "" {
		return 0
	}
	overlap := utils.TokenOverlap(q, utils.Tokenize(content))
	tri := trigramOverlap(strings.ToLower(query), strings.ToLower(content))
	return utils.Clamp01(0.7*overlap + 0.3*tri)
}

// trigramOverlap returns the fraction of the query's distinct character
// trigrams found in the content.
func trigramOverlap(query, content string) float64 {
	qgrams := trigrams(query)
	if len(qgrams) == 0 {
		return 0
	}
	cgrams := trigrams(content)
	hits := 0
	for g := range qgrams {
		if cgrams[g] {
			hits++
		}
	}
	return float64(hits) / float64(len(qgrams))
}

func trigrams(s string) map[string]bool {
	runes := []rune(s)
	if len(runes) < 3 {
		if len(runes) == 0 {
			return nil
		}
		return map[string]bool{string(runes): true}
	}
	out := make(map[string]bool, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out[string(runes[i:i+3])] = true
	}
	return out
}
