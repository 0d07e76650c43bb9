package search

import (
	"context"
	"sort"
	"strings"

	"github.com/hyperjump/toiawase/internal/models"
)

// ChunkFetcher is the slice of the document store expansion needs.
type ChunkFetcher interface {
	GetChunkRange(ctx context.Context, documentID string, from, to int) ([]*models.DocumentChunk, error)
}

// enumerationMarkers widen the context window: queries asking for lists tend
// to need more surrounding text than point lookups.
var enumerationMarkers = map[string]bool{
	"list": true, "all": true, "every": true, "each": true,
	"enumerate": true, "overview": true, "summarize": true, "steps": true,
}

// DetermineWindow picks the context window for a query. Short queries take a
// tight window, enumerations and long queries a wide one, everything else the
// configured default. The result never exceeds max and never drops below 1.
func DetermineWindow(queryTokens []string, configured, max int) int {
	w := configured
	if len(queryTokens) <= 3 {
		w = 1
	} else if len(queryTokens) > 8 {
		w = 3
	} else {
		for _, t := range queryTokens {
			if enumerationMarkers[t] {
				w = 3
				break
			}
		}
	}
	if max > 0 && w > max {
		w = max
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Expand widens each hit to its surrounding chunks: for a hit at index i the
// range [i-window, i+window] is fetched, clipped at document bounds.
// Duplicates across overlapping ranges collapse to one entry. Neighbors score
// slightly below their anchor; the result is re-sorted by document then chunk
// index so expanded passages read in their original order. Ranking happens
// downstream on the scores the chunks carry.
func Expand(ctx context.Context, fetcher ChunkFetcher, hits []*models.DocumentChunk, window int) ([]*models.DocumentChunk, error) {
	if window <= 0 || fetcher == nil {
		return hits, nil
	}
	const neighborDecay = 0.9

	byID := make(map[string]*models.DocumentChunk, len(hits))
	for _, h := range hits {
		byID[h.ID] = h
	}
	for _, h := range hits {
		from := h.ChunkIndex - window
		if from < 0 {
			from = 0
		}
		neighbors, err := fetcher.GetChunkRange(ctx, h.DocumentID, from, h.ChunkIndex+window)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if existing, ok := byID[n.ID]; ok {
				// Keep the better score when ranges overlap.
				score := neighborScore(h, n, neighborDecay)
				if score > existing.RelevanceScore {
					existing.RelevanceScore = score
				}
				continue
			}
			n.RelevanceScore = neighborScore(h, n, neighborDecay)
			byID[n.ID] = n
		}
	}

	out := make([]*models.DocumentChunk, 0, len(byID))
	for _, ch := range byID {
		out = append(out, ch)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

// neighborScore decays the anchor's score by distance. The anchor itself
// keeps its own score.
func neighborScore(anchor, n *models.DocumentChunk, decay float64) float64 {
	if n.ID == anchor.ID {
		return anchor.RelevanceScore
	}
	dist := n.ChunkIndex - anchor.ChunkIndex
	if dist < 0 {
		dist = -dist
	}
	score := anchor.RelevanceScore
	for i := 0; i < dist; i++ {
		score *= decay
	}
	return score
}

// BuildLimitedContext concatenates ranked chunks into a prompt context capped
// at maxChars. Chunks are taken whole in rank order; one that would overflow
// the budget is dropped entirely, never split, and selection continues with
// lower-ranked chunks that still fit.
func BuildLimitedContext(chunks []*models.DocumentChunk, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 1 << 20
	}
	var b strings.Builder
	used := 0
	for _, ch := range chunks {
		need := len(ch.Content)
		if used > 0 {
			need += 2
		}
		if used+need > maxChars {
			continue
		}
		if used > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(ch.Content)
		used += need
	}
	return b.String()
}
