// Package search orchestrates retrieval: routing, parallel fan-out over
// document and structured branches, merging, context expansion, and answer
// generation.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/cache"
	"github.com/hyperjump/toiawase/internal/config"
	"github.com/hyperjump/toiawase/internal/dialect"
	"github.com/hyperjump/toiawase/internal/intent"
	"github.com/hyperjump/toiawase/internal/keyword"
	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/provider"
	"github.com/hyperjump/toiawase/internal/ranking"
	"github.com/hyperjump/toiawase/internal/schema"
	"github.com/hyperjump/toiawase/internal/sqlgen"
	"github.com/hyperjump/toiawase/internal/vector"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// ErrNoSources means the engine has nothing to search: no documents indexed
// and no relational sources registered. It is a configuration problem, not a
// bad request.
var ErrNoSources = errors.New("no searchable sources: no documents indexed and no relational sources registered")

// RelationalSource is the slice of a connector the engine needs. Connectors
// satisfy it; tests use fakes.
type RelationalSource interface {
	Name() string
	Type() dialect.SourceType
	MaxRows() int
	Query(ctx context.Context, query string) ([]map[string]interface{}, []string, error)
}

// documentBranchName labels the vector/keyword branch in branch statuses.
const documentBranchName = "documents"

// Engine wires all retrieval stages together. It is safe for concurrent use.
type Engine struct {
	cfg           config.SearchConfig
	classifier    *intent.Classifier
	router        *Router
	scorer        *ranking.Scorer
	generator     *sqlgen.Generator
	schemas       *schema.Indexer
	sources       []RelationalSource
	vectors       vector.Store
	keywords      keyword.Index
	chunks        ChunkFetcher
	ai            provider.Provider
	cache         *cache.Cache
	conversations *Conversations
	logger        *zap.Logger
}

// EngineOptions collects the engine's collaborators.
type EngineOptions struct {
	Config        config.SearchConfig
	Classifier    *intent.Classifier
	Generator     *sqlgen.Generator
	Schemas       *schema.Indexer
	Sources       []RelationalSource
	Vectors       vector.Store
	Keywords      keyword.Index
	Chunks        ChunkFetcher
	Provider      provider.Provider
	Cache         *cache.Cache
	Conversations *Conversations
	Logger        *zap.Logger
}

// NewEngine creates an Engine from its collaborators.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	conversations := opts.Conversations
	if conversations == nil {
		conversations = NewConversations(0, 0)
	}
	return &Engine{
		cfg:           opts.Config,
		classifier:    opts.Classifier,
		router:        NewRouter(opts.Config.OverlapThreshold),
		scorer:        ranking.NewScorer(opts.Config.SemanticWeight, opts.Config.LexicalWeight),
		generator:     opts.Generator,
		schemas:       opts.Schemas,
		sources:       opts.Sources,
		vectors:       opts.Vectors,
		keywords:      opts.Keywords,
		chunks:        opts.Chunks,
		ai:            opts.Provider,
		cache:         opts.Cache,
		conversations: conversations,
		logger:        logger,
	}
}

// Query answers one request end to end.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	started := time.Now()
	if err := req.Validate(e.cfg.DefaultLimit, e.cfg.MaxLimit); err != nil {
		return nil, err
	}

	query := req.Query
	forceConversation := false
	if kind, payload, ok := intent.TryParseCommand(query); ok {
		switch kind {
		case intent.CommandNewConversation:
			if req.ConversationID != "" {
				e.conversations.Reset(req.ConversationID)
			}
			req.ConversationID = e.conversations.Ensure("")
			if payload == "" {
				return &models.QueryResponse{
					Answer:         "Started a new conversation.",
					IsConversation: true,
					ConversationID: req.ConversationID,
					QueryTimeMs:    time.Since(started).Milliseconds(),
				}, nil
			}
			query = payload
		case intent.CommandForceConversation:
			forceConversation = true
			query = payload
			if query == "" {
				query = "hello"
			}
		}
	}

	convID := e.conversations.Ensure(req.ConversationID)

	isConversation := forceConversation
	if !forceConversation {
		ci := e.classifier.Classify(ctx, query)
		isConversation = ci.IsConversation
	}
	if isConversation {
		resp, err := e.converse(ctx, convID, query)
		if err != nil {
			return nil, err
		}
		resp.QueryTimeMs = time.Since(started).Milliseconds()
		return resp, nil
	}

	resp, err := e.retrieve(ctx, convID, query, req.MaxResults)
	if err != nil {
		return nil, err
	}
	resp.QueryTimeMs = time.Since(started).Milliseconds()
	return resp, nil
}

// converse answers conversationally with history, running no retrieval
// branches.
func (e *Engine) converse(ctx context.Context, convID, query string) (*models.QueryResponse, error) {
	prompt := query
	if history := e.conversations.History(convID); history != "" {
		prompt = fmt.Sprintf("Conversation so far:\n%s\nuser: %s\nassistant:", history, query)
	}
	answer, err := e.ai.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("conversation answer: %w", err)
	}
	e.conversations.Append(convID, query, answer)
	return &models.QueryResponse{
		Answer:         answer,
		IsConversation: true,
		ConversationID: convID,
	}, nil
}

// retrieve runs the information path: cache, routing, fan-out, merge, answer.
func (e *Engine) retrieve(ctx context.Context, convID, query string, maxResults int) (*models.QueryResponse, error) {
	sourceNames := make([]string, len(e.sources))
	for i, s := range e.sources {
		sourceNames[i] = s.Name()
	}
	key := cache.Fingerprint(query, maxResults, sourceNames)
	if e.cache != nil {
		if hit, ok := e.cache.Get(key); ok {
			cached := *hit
			cached.Cached = true
			cached.ConversationID = convID
			e.logger.Debug("cache hit", zap.String("query", query))
			return &cached, nil
		}
	}

	docChunks := 0
	if e.vectors != nil {
		if n, err := e.vectors.Count(ctx); err == nil {
			docChunks = n
		}
	}
	if len(e.sources) == 0 && docChunks == 0 {
		return nil, ErrNoSources
	}

	queryTokens := utils.Tokenize(query)
	var schemaTokens [][]string
	if e.schemas != nil {
		for _, toks := range e.schemas.TokensBySource() {
			schemaTokens = append(schemaTokens, toks)
		}
	}
	strategy := e.router.Route(queryTokens, schemaTokens, len(e.sources), docChunks)
	e.logger.Debug("strategy selected",
		zap.String("query", query), zap.String("strategy", string(strategy)))

	branches, statuses := e.fanOut(ctx, query, queryTokens, strategy)
	merged := Merge(branches, maxResults)

	resp := &models.QueryResponse{
		Strategy:       strategy,
		Sources:        merged,
		Branches:       statuses,
		ConversationID: convID,
	}

	if len(merged) > 0 {
		answer, err := e.answer(ctx, convID, query, merged)
		if err != nil {
			e.logger.Warn("answer generation failed", zap.Error(err))
		} else {
			resp.Answer = answer
			e.conversations.Append(convID, query, answer)
		}
	}

	if e.cache != nil {
		stored := *resp
		stored.ConversationID = ""
		e.cache.Put(key, &stored)
	}
	return resp, nil
}

// fanOut runs the eligible branches in parallel, each under its own timeout.
// A branch that misses its deadline is excluded and marked timed out; the
// response is built from whatever completed.
func (e *Engine) fanOut(ctx context.Context, query string, queryTokens []string, strategy models.QueryStrategy) ([][]models.SearchSource, []models.BranchStatus) {
	type branchResult struct {
		index   int
		status  models.BranchStatus
		sources []models.SearchSource
	}

	runDocs := strategy != models.StrategyDatabaseOnly
	runDBs := strategy != models.StrategyDocumentOnly

	// Generation happens before the fan-out so every database branch starts
	// with a validated statement or a skip status.
	var generated map[string]*models.GeneratedQuery
	if runDBs && e.generator != nil && e.schemas != nil {
		specs := make([]sqlgen.SourceSchema, 0, len(e.sources))
		for _, s := range e.sources {
			specs = append(specs, sqlgen.SourceSchema{
				Name:    s.Name(),
				Type:    s.Type(),
				MaxRows: s.MaxRows(),
				Schema:  e.schemas.Get(s.Name()),
			})
		}
		generated = e.generator.Generate(ctx, query, specs)
	}

	branchCount := len(e.sources) + 1
	results := make([]branchResult, 0, branchCount)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	collect := func(r branchResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	timeout := e.cfg.BranchTimeout.Std()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if runDocs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			sources, err := e.documentBranch(bctx, query, queryTokens)
			collect(branchResult{
				index:   0,
				status:  branchStatus(documentBranchName, err),
				sources: sources,
			})
		}()
	} else {
		collect(branchResult{index: 0, status: models.BranchStatus{
			Source: documentBranchName, State: models.BranchSkipped, Error: "excluded by strategy",
		}})
	}

	for i, src := range e.sources {
		idx := i + 1
		if !runDBs {
			collect(branchResult{index: idx, status: models.BranchStatus{
				Source: src.Name(), State: models.BranchSkipped, Error: "excluded by strategy",
			}})
			continue
		}
		gq := generated[src.Name()]
		if gq == nil || gq.Status != models.GenerationValidated {
			reason := "no query generated"
			if gq != nil {
				reason = gq.Reason
				if len(gq.Errors) > 0 {
					reason = strings.Join(gq.Errors, "; ")
				}
			}
			collect(branchResult{index: idx, status: models.BranchStatus{
				Source: src.Name(), State: models.BranchSkipped, Error: reason,
			}})
			continue
		}
		wg.Add(1)
		go func(idx int, src RelationalSource, sql string) {
			defer wg.Done()
			bctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			sources, err := e.databaseBranch(bctx, src, sql, query)
			collect(branchResult{
				index:   idx,
				status:  branchStatus(src.Name(), err),
				sources: sources,
			})
		}(idx, src, gq.SQL)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	branches := make([][]models.SearchSource, 0, len(results))
	statuses := make([]models.BranchStatus, 0, len(results))
	for _, r := range results {
		statuses = append(statuses, r.status)
		if r.status.State == models.BranchOK {
			branches = append(branches, r.sources)
		}
	}
	return branches, statuses
}

// branchStatus classifies a branch error: deadline hits become timed_out,
// everything else failed.
func branchStatus(source string, err error) models.BranchStatus {
	switch {
	case err == nil:
		return models.BranchStatus{Source: source, State: models.BranchOK}
	case errors.Is(err, context.DeadlineExceeded):
		return models.BranchStatus{Source: source, State: models.BranchTimedOut, Error: "branch timed out"}
	default:
		return models.BranchStatus{Source: source, State: models.BranchFailed, Error: err.Error()}
	}
}

// documentBranch retrieves chunks semantically, falling back to the keyword
// index when embeddings are unavailable, then ranks and expands them.
func (e *Engine) documentBranch(ctx context.Context, query string, queryTokens []string) ([]models.SearchSource, error) {
	topK := e.cfg.TopKCandidates
	if topK <= 0 {
		topK = 100
	}

	var (
		hits           []*models.DocumentChunk
		queryEmbedding []float32
	)
	if e.ai != nil && e.vectors != nil {
		emb, err := e.ai.GenerateEmbedding(ctx, query)
		if err == nil {
			queryEmbedding = emb
			results, serr := e.vectors.Search(ctx, emb, topK)
			if serr != nil {
				return nil, serr
			}
			for _, r := range results {
				r.Chunk.RelevanceScore = r.Score
				hits = append(hits, r.Chunk)
			}
		} else {
			e.logger.Warn("query embedding failed, falling back to keyword search", zap.Error(err))
		}
	}
	if queryEmbedding == nil {
		if e.keywords == nil {
			return nil, fmt.Errorf("no embedding and no keyword index available")
		}
		kw, err := e.keywords.Search(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		hits = e.resolveKeywordHits(ctx, kw)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ranked := e.scorer.Rank(query, queryEmbedding, hits)
	window := DetermineWindow(queryTokens, e.cfg.ContextWindow, e.cfg.MaxContextWindow)
	expanded, err := Expand(ctx, e.chunks, ranked, window)
	if err != nil {
		return nil, err
	}

	out := make([]models.SearchSource, len(expanded))
	for i, ch := range expanded {
		out[i] = models.SearchSource{
			Kind:       models.SourceKindChunk,
			SourceName: documentBranchName,
			Content:    ch.Content,
			Score:      ch.RelevanceScore,
			DocumentID: ch.DocumentID,
			ChunkIndex: ch.ChunkIndex,
			StartPos:   ch.StartPosition,
			EndPos:     ch.EndPosition,
		}
	}
	return out, nil
}

// resolveKeywordHits loads full chunks for keyword hits. Keyword results
// carry only IDs, so content is resolved through the document store.
func (e *Engine) resolveKeywordHits(ctx context.Context, kw []*keyword.Result) []*models.DocumentChunk {
	var hits []*models.DocumentChunk
	for _, r := range kw {
		docID, idx, ok := splitChunkID(r.ID)
		if !ok || e.chunks == nil {
			continue
		}
		chunks, err := e.chunks.GetChunkRange(ctx, docID, idx, idx)
		if err != nil || len(chunks) == 0 {
			continue
		}
		ch := chunks[0]
		ch.RelevanceScore = r.Score
		hits = append(hits, ch)
	}
	return hits
}

// databaseBranch executes a validated statement and wraps rows as sources.
func (e *Engine) databaseBranch(ctx context.Context, src RelationalSource, sql, query string) ([]models.SearchSource, error) {
	rows, cols, err := src.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	table := tableFromSQL(sql)
	pkCol := e.primaryKeyColumn(src.Name(), table)

	out := make([]models.SearchSource, len(rows))
	for i, row := range rows {
		content := renderRow(table, cols, row)
		pk := ""
		if pkCol != "" {
			if v, ok := row[pkCol]; ok {
				pk = fmt.Sprintf("%v", v)
			}
		}
		// Rows already matched the generated query, so they start from a
		// floor and lexical similarity separates them.
		score := 0.5 + 0.5*ranking.LexicalScore(query, content)
		out[i] = models.SearchSource{
			Kind:       models.SourceKindRow,
			SourceName: src.Name(),
			Content:    content,
			Score:      score,
			Table:      table,
			PrimaryKey: pk,
			Row:        row,
		}
	}
	return out, nil
}

// answer generates the final response text from the merged evidence.
func (e *Engine) answer(ctx context.Context, convID, query string, sources []models.SearchSource) (string, error) {
	chunks := make([]*models.DocumentChunk, len(sources))
	for i, s := range sources {
		chunks[i] = &models.DocumentChunk{Content: s.Content, RelevanceScore: s.Score}
	}
	contextText := BuildLimitedContext(chunks, e.cfg.MaxContextChars)

	var b strings.Builder
	b.WriteString("Answer the question using only the context below. If the context does not contain the answer, say so.\n\n")
	if history := e.conversations.History(convID); history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	return e.ai.GenerateText(ctx, b.String())
}

// primaryKeyColumn returns the first primary key column of table in source,
// or "".
func (e *Engine) primaryKeyColumn(source, table string) string {
	if e.schemas == nil || table == "" {
		return ""
	}
	info := e.schemas.Get(source)
	if info == nil {
		return ""
	}
	t := info.Table(table)
	if t == nil {
		return ""
	}
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			return c.Name
		}
	}
	return ""
}

// tableFromSQL extracts the first table referenced after FROM. Good enough
// for provenance labels; joins keep their first table.
func tableFromSQL(sql string) string {
	fields := strings.Fields(sql)
	for i, f := range fields {
		if strings.EqualFold(f, "FROM") && i+1 < len(fields) {
			return strings.Trim(fields[i+1], `"`+"`[]")
		}
	}
	return ""
}

// renderRow formats a row as "table: col=val, col=val" in column order.
func renderRow(table string, cols []string, row map[string]interface{}) string {
	var b strings.Builder
	if table != "" {
		b.WriteString(table)
		b.WriteString(": ")
	}
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", col, row[col])
	}
	return b.String()
}

// splitChunkID parses chunk IDs of the form "<docID>#<index>".
func splitChunkID(id string) (string, int, bool) {
	i := strings.LastIndex(id, "#")
	if i < 0 {
		return "", 0, false
	}
	var idx int
	if _, err := fmt.Sscanf(id[i+1:], "%d", &idx); err != nil {
		return "", 0, false
	}
	return id[:i], idx, true
}

