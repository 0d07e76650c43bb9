package models

import "fmt"

// SourceKind distinguishes where a SearchSource came from.
type SourceKind string

const (
	// SourceKindChunk marks a result produced by document retrieval.
	SourceKindChunk SourceKind = "chunk"
	// SourceKindRow marks a result produced by structured-query execution.
	SourceKindRow SourceKind = "row"
)

// SearchSource is a ranked, deduplicated view of a chunk or row annotated
// with provenance. It is ephemeral and rebuilt every request.
type SearchSource struct {
	Kind       SourceKind             `json:"kind"`
	SourceName string                 `json:"source_name"`
	Content    string                 `json:"content"`
	Score      float64                `json:"score"`
	DocumentID string                 `json:"document_id,omitempty"`
	ChunkIndex int                    `json:"chunk_index,omitempty"`
	StartPos   int                    `json:"start_position,omitempty"`
	EndPos     int                    `json:"end_position,omitempty"`
	Table      string                 `json:"table,omitempty"`
	PrimaryKey string                 `json:"primary_key,omitempty"`
	Row        map[string]interface{} `json:"row,omitempty"`
}

// BranchState describes the outcome of one retrieval branch.
type BranchState string

const (
	// BranchOK means the branch completed and contributed results.
	BranchOK BranchState = "ok"
	// BranchSkipped means the branch was not eligible to run (failed
	// generation/validation, or excluded by strategy).
	BranchSkipped BranchState = "skipped"
	// BranchTimedOut means the branch exceeded its deadline and was excluded.
	BranchTimedOut BranchState = "timed_out"
	// BranchFailed means the branch ran and returned an error.
	BranchFailed BranchState = "failed"
)

// BranchStatus reports how one branch (a structured source or the document
// index) participated in a response.
type BranchStatus struct {
	Source string      `json:"source"`
	State  BranchState `json:"state"`
	Error  string      `json:"error,omitempty"`
}

// QueryRequest is an incoming natural-language query.
type QueryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	MaxResults     int    `json:"max_results,omitempty"`
}

// Validate ensures the request has a query and normalizes the result limit.
func (r *QueryRequest) Validate(defaultLimit, maxLimit int) error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.MaxResults <= 0 {
		r.MaxResults = defaultLimit
	}
	if r.MaxResults > maxLimit {
		r.MaxResults = maxLimit
	}
	return nil
}

// QueryResponse is the answer to a query, with the evidence that produced it
// and per-branch statuses so callers can see which sources contributed and
// which were skipped or degraded.
type QueryResponse struct {
	Answer         string         `json:"answer,omitempty"`
	Strategy       QueryStrategy  `json:"strategy"`
	IsConversation bool           `json:"is_conversation"`
	Sources        []SearchSource `json:"sources,omitempty"`
	Branches       []BranchStatus `json:"branches,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Cached         bool           `json:"cached,omitempty"`
	QueryTimeMs    int64          `json:"query_time_ms"`
}
