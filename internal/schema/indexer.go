// Package schema maintains the schema registry: introspected table metadata
// per relational source, plus searchable schema description chunks so the
// router can measure how well a query matches the structured world.
package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/provider"
	"github.com/hyperjump/toiawase/internal/vector"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// Introspector is the subset of a relational connector the indexer needs.
type Introspector interface {
	Name() string
	IntrospectSchema(ctx context.Context) (*models.DatabaseSchemaInfo, error)
}

// ChunkSink receives schema description chunks. The vector store satisfies
// it; tests use fakes.
type ChunkSink interface {
	Add(ctx context.Context, chunks []*models.DocumentChunk) error
	Delete(ctx context.Context, ids []string) error
	DeleteByDocument(ctx context.Context, docID string) error
}

// Indexer introspects sources and keeps their schemas available for query
// generation, validation, and routing.
type Indexer struct {
	embedder provider.Provider
	sink     ChunkSink
	logger   *zap.Logger

	mu      sync.RWMutex
	schemas map[string]*models.DatabaseSchemaInfo
	tokens  map[string][]string
}

// NewIndexer creates an Indexer. The sink may be nil when schema descriptions
// should not be vector-indexed (for example with no embedding provider).
func NewIndexer(embedder provider.Provider, sink ChunkSink, logger *zap.Logger) *Indexer {
	return &Indexer{
		embedder: embedder,
		sink:     sink,
		logger:   logger,
		schemas:  make(map[string]*models.DatabaseSchemaInfo),
		tokens:   make(map[string][]string),
	}
}

// MigrateAll refreshes every source and returns how many migrated. A failing
// source logs and is skipped so one unreachable database does not take the
// registry down; its previous schema, if any, stays in place.
func (x *Indexer) MigrateAll(ctx context.Context, sources []Introspector) (int, error) {
	migrated := 0
	for _, src := range sources {
		if err := x.MigrateOne(ctx, src); err != nil {
			x.logger.Warn("schema migration failed",
				zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		migrated++
	}
	if migrated == 0 && len(sources) > 0 {
		return 0, fmt.Errorf("all %d sources failed schema migration", len(sources))
	}
	return migrated, nil
}

// MigrateOne introspects one source and swaps its registry entry. New schema
// chunks are written before the old ones are removed, so a concurrent search
// never observes an empty schema for a live source.
func (x *Indexer) MigrateOne(ctx context.Context, src Introspector) error {
	info, err := src.IntrospectSchema(ctx)
	if err != nil {
		return fmt.Errorf("introspect %s: %w", src.Name(), err)
	}

	if x.sink != nil {
		newChunks, err := x.buildChunks(ctx, info)
		if err != nil {
			return err
		}
		x.mu.RLock()
		old := x.schemas[info.SourceName]
		x.mu.RUnlock()
		if err := x.sink.Add(ctx, newChunks); err != nil {
			return fmt.Errorf("index schema chunks for %s: %w", info.SourceName, err)
		}
		if old != nil {
			if err := x.deleteStale(ctx, old, newChunks); err != nil {
				x.logger.Warn("stale schema chunk cleanup failed",
					zap.String("source", info.SourceName), zap.Error(err))
			}
		}
	}

	x.mu.Lock()
	x.schemas[info.SourceName] = info
	x.tokens[info.SourceName] = schemaTokens(info)
	x.mu.Unlock()

	x.logger.Info("schema migrated",
		zap.String("source", info.SourceName),
		zap.Int("tables", len(info.Tables)))
	return nil
}

// UpdateOne refreshes a source that is already registered. Unlike MigrateOne
// it refuses unknown sources, so a typo in a source name surfaces instead of
// silently registering a new entry.
func (x *Indexer) UpdateOne(ctx context.Context, src Introspector) error {
	x.mu.RLock()
	_, known := x.schemas[src.Name()]
	x.mu.RUnlock()
	if !known {
		return fmt.Errorf("unknown source %q: migrate it first", src.Name())
	}
	return x.MigrateOne(ctx, src)
}

// deleteStale drops chunks for tables that no longer exist. Chunk IDs are
// keyed by table name, so the Add above already replaced surviving tables in
// place; only tables gone from the new generation leave stale entries, and
// only those IDs are deleted. The fresh set is never touched, so a concurrent
// reader always sees a populated schema for a live source.
func (x *Indexer) deleteStale(ctx context.Context, old *models.DatabaseSchemaInfo, fresh []*models.DocumentChunk) error {
	keep := make(map[string]bool, len(fresh))
	for _, ch := range fresh {
		keep[ch.ID] = true
	}
	var stale []string
	for _, t := range old.Tables {
		if id := schemaChunkID(old.SourceName, t.Name); !keep[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return x.sink.Delete(ctx, stale)
}

// Get returns the registered schema for a source, or nil.
func (x *Indexer) Get(source string) *models.DatabaseSchemaInfo {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.schemas[source]
}

// Sources returns the names of sources with a registered schema.
func (x *Indexer) Sources() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.schemas))
	for name := range x.schemas {
		out = append(out, name)
	}
	return out
}

// TokensBySource returns each source's schema vocabulary: table and column
// names split into normalized tokens. The router measures query overlap per
// source, so a query scattered thinly across unrelated schemas does not look
// like a structured question.
func (x *Indexer) TokensBySource() map[string][]string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make(map[string][]string, len(x.tokens))
	for name, toks := range x.tokens {
		cp := make([]string, len(toks))
		copy(cp, toks)
		out[name] = cp
	}
	return out
}

// buildChunks renders one description chunk per table and embeds them.
func (x *Indexer) buildChunks(ctx context.Context, info *models.DatabaseSchemaInfo) ([]*models.DocumentChunk, error) {
	docID := schemaDocID(info.SourceName)
	texts := make([]string, len(info.Tables))
	chunks := make([]*models.DocumentChunk, len(info.Tables))
	for i, t := range info.Tables {
		texts[i] = describeTable(info.SourceName, t)
		chunks[i] = &models.DocumentChunk{
			ID:         schemaChunkID(info.SourceName, t.Name),
			DocumentID: docID,
			Content:    texts[i],
			ChunkIndex: i,
			CreatedAt:  time.Now().UTC(),
		}
	}
	if x.embedder != nil && len(texts) > 0 {
		embeddings, err := x.embedder.GenerateEmbeddingsBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed schema descriptions: %w", err)
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}
	return chunks, nil
}

// describeTable renders a table as natural-ish text so both lexical and
// semantic matching work against it.
func describeTable(source string, t models.TableInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database %s, table %s with columns:", source, t.Name)
	for _, c := range t.Columns {
		fmt.Fprintf(&b, " %s (%s", c.Name, c.DataType)
		if c.IsPrimaryKey {
			b.WriteString(", primary key")
		}
		b.WriteString(")")
	}
	return b.String()
}

// schemaTokens extracts normalized tokens from table and column names,
// splitting snake_case identifiers into their words.
func schemaTokens(info *models.DatabaseSchemaInfo) []string {
	var raw []string
	add := func(ident string) {
		for _, part := range strings.FieldsFunc(ident, func(r rune) bool {
			return r == '_' || r == '-' || r == '.'
		}) {
			if t := utils.NormalizeToken(part); t != "" {
				raw = append(raw, t)
			}
		}
	}
	for _, t := range info.Tables {
		add(t.Name)
		for _, c := range t.Columns {
			add(c.Name)
		}
	}
	return utils.UniqueTokens(raw)
}

func schemaDocID(source string) string {
	return "schema:" + source
}

func schemaChunkID(source, table string) string {
	return fmt.Sprintf("%s:%s", schemaDocID(source), strings.ToLower(table))
}

var _ ChunkSink = (vector.Store)(nil)
