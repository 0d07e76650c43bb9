package search

import (
	"fmt"
	"sort"

	"github.com/hyperjump/toiawase/internal/models"
)

// Merge combines results from all branches into one ranked list. Chunk
// results deduplicate on (document, position range) and row results on
// (source, primary key), keeping the higher-scored duplicate. The output is
// sorted by descending score; ties keep branch arrival order, which is
// deterministic because branches are collected in configuration order.
func Merge(branches [][]models.SearchSource, limit int) []models.SearchSource {
	type keyed struct {
		source models.SearchSource
		order  int
	}
	best := map[string]keyed{}
	order := 0
	for _, branch := range branches {
		for _, src := range branch {
			k := dedupeKey(src)
			if prev, ok := best[k]; !ok || src.Score > prev.source.Score {
				o := order
				if ok {
					o = prev.order
				}
				best[k] = keyed{source: src, order: o}
			}
			order++
		}
	}

	merged := make([]keyed, 0, len(best))
	for _, v := range best {
		merged = append(merged, v)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].source.Score != merged[j].source.Score {
			return merged[i].source.Score > merged[j].source.Score
		}
		return merged[i].order < merged[j].order
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	out := make([]models.SearchSource, len(merged))
	for i, v := range merged {
		out[i] = v.source
	}
	return out
}

// dedupeKey identifies a result across branches. Rows without a primary key
// fall back to their content so identical rows still collapse.
func dedupeKey(s models.SearchSource) string {
	if s.Kind == models.SourceKindRow {
		if s.PrimaryKey != "" {
			return fmt.Sprintf("row|%s|%s|%s", s.SourceName, s.Table, s.PrimaryKey)
		}
		return fmt.Sprintf("row|%s|%s|%s", s.SourceName, s.Table, s.Content)
	}
	return fmt.Sprintf("chunk|%s|%d|%d", s.DocumentID, s.StartPos, s.EndPos)
}
