package models

// QueryStrategy selects which retrieval branches run for a query.
type QueryStrategy string

const (
	// StrategyDatabaseOnly runs only structured-query branches.
	StrategyDatabaseOnly QueryStrategy = "database_only"
	// StrategyDocumentOnly runs only the vector-search branch.
	StrategyDocumentOnly QueryStrategy = "document_only"
	// StrategyHybrid runs structured and vector branches in parallel.
	StrategyHybrid QueryStrategy = "hybrid"
)

// HeuristicDecision is the three-way result of the fast classification pass.
type HeuristicDecision int

const (
	// DecisionUnknown means the heuristic was inconclusive and the classifier
	// escalates to the text-generation provider.
	DecisionUnknown HeuristicDecision = iota
	// DecisionConversation means the input is conversational.
	DecisionConversation
	// DecisionInformation means the input is an information request.
	DecisionInformation
)

// GenerationStatus tracks the lifecycle of one source's generated query text.
type GenerationStatus string

const (
	// GenerationPending means no query text has been produced yet.
	GenerationPending GenerationStatus = "pending"
	// GenerationValidated means the query text passed validation and may execute.
	GenerationValidated GenerationStatus = "validated"
	// GenerationRejected means validation found blocking errors.
	GenerationRejected GenerationStatus = "rejected"
	// GenerationFailed means query text generation itself failed.
	GenerationFailed GenerationStatus = "failed"
)

// GeneratedQuery holds the query text produced for one structured source,
// plus its validation outcome. It is never executed before Status is
// GenerationValidated.
type GeneratedQuery struct {
	SourceName string           `json:"source_name"`
	SQL        string           `json:"sql"`
	Status     GenerationStatus `json:"status"`
	Warnings   []string         `json:"warnings,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// QueryIntent is the classified form of an incoming query. It is created per
// request, immutable once the generation stage completes, and discarded after
// the response is produced.
type QueryIntent struct {
	Query          string                     `json:"query"`
	IsConversation bool                       `json:"is_conversation"`
	Confidence     float64                    `json:"confidence"`
	Tokens         []string                   `json:"tokens"`
	Strategy       QueryStrategy              `json:"strategy"`
	SourceQueries  map[string]*GeneratedQuery `json:"source_queries,omitempty"`
}
