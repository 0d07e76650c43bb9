package search

import (
	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// Router picks the retrieval strategy for an information request by comparing
// the query's vocabulary against the schema vocabulary of the registered
// sources.
type Router struct {
	overlapThreshold float64
}

// NewRouter creates a Router with the configured overlap threshold.
func NewRouter(overlapThreshold float64) *Router {
	return &Router{overlapThreshold: overlapThreshold}
}

// Route decides the strategy. With no structured sources everything is
// document retrieval; with an empty document index everything is structured.
// Otherwise the query goes hybrid when its token overlap with at least one
// source's schema vocabulary reaches the threshold (ties favor hybrid, which
// degrades gracefully if one side contributes nothing), and document-only
// below it. Overlap is measured per source: tokens scattered across unrelated
// schemas must not add up to a structured route no single source would earn.
func (r *Router) Route(queryTokens []string, sourceTokens [][]string, sourceCount, documentChunks int) models.QueryStrategy {
	if sourceCount == 0 {
		return models.StrategyDocumentOnly
	}
	if documentChunks == 0 {
		return models.StrategyDatabaseOnly
	}
	best := 0.0
	for _, toks := range sourceTokens {
		if overlap := utils.TokenOverlap(queryTokens, toks); overlap > best {
			best = overlap
		}
	}
	if best >= r.overlapThreshold {
		return models.StrategyHybrid
	}
	return models.StrategyDocumentOnly
}
