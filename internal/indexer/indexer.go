package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/extract"
	"github.com/hyperjump/toiawase/internal/keyword"
	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/provider"
	"github.com/hyperjump/toiawase/internal/storage"
	"github.com/hyperjump/toiawase/internal/vector"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// Indexer ingests documents: extract, chunk, embed, and write to the
// document store, vector store, and keyword index.
type Indexer struct {
	store     storage.Store
	embedder  provider.Provider
	vectors   vector.Store
	keywords  keyword.Index
	chunker   *Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewIndexer creates an Indexer. embedder may be nil, in which case chunks
// are stored and keyword-indexed but not vector-indexed.
func NewIndexer(
	store storage.Store,
	embedder provider.Provider,
	vectors vector.Store,
	keywords keyword.Index,
	chunkSize int,
	logger *zap.Logger,
) *Indexer {
	return &Indexer{
		store:     store,
		embedder:  embedder,
		vectors:   vectors,
		keywords:  keywords,
		chunker:   NewChunker(chunkSize),
		extractor: extract.NewExtractor(),
		logger:    logger,
	}
}

// IndexDocument ingests one document. Re-indexing an existing ID replaces its
// previous chunks everywhere.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("document content cannot be empty")
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	content := utils.NormalizeText(input.Content)
	title := input.Title
	if title == "" {
		title = utils.Truncate(content, 80)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:        input.ID,
		Title:     title,
		Content:   input.Content,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := idx.store.GetDocument(ctx, doc.ID); err == nil && existing != nil {
		doc.CreatedAt = existing.CreatedAt
	}

	chunks := idx.chunker.Chunk(doc.ID, input.Content)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", doc.ID)
	}

	if idx.embedder != nil {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Content
		}
		embeddings, err := idx.embedder.GenerateEmbeddingsBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	if err := idx.store.SaveDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	// Clear old index entries before adding: a shorter re-index must not
	// leave stale trailing chunks behind.
	if idx.vectors != nil {
		if err := idx.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
			idx.logger.Warn("vector cleanup before reindex failed",
				zap.String("document", doc.ID), zap.Error(err))
		}
		if idx.embedder != nil {
			if err := idx.vectors.Add(ctx, chunks); err != nil {
				return nil, fmt.Errorf("vector index: %w", err)
			}
		}
	}
	if idx.keywords != nil {
		if err := idx.keywords.DeleteByDocument(ctx, doc.ID); err != nil {
			idx.logger.Warn("keyword cleanup before reindex failed",
				zap.String("document", doc.ID), zap.Error(err))
		}
		for _, ch := range chunks {
			if err := idx.keywords.IndexChunk(ctx, ch); err != nil {
				return nil, fmt.Errorf("keyword index chunk %s: %w", ch.ID, err)
			}
		}
	}

	idx.logger.Info("document indexed",
		zap.String("document", doc.ID),
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// IndexFile extracts a file and indexes it as a document titled by filename.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (*models.Document, error) {
	text, err := idx.extractor.ExtractFile(path)
	if err != nil {
		return nil, err
	}
	return idx.IndexDocument(ctx, &models.DocumentInput{
		Title:   filepath.Base(path),
		Content: text,
		Metadata: map[string]interface{}{
			"filename": filepath.Base(path),
			"format":   strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		},
	})
}

// IndexBytes extracts uploaded content by extension and indexes it.
func (idx *Indexer) IndexBytes(ctx context.Context, filename string, content []byte) (*models.Document, error) {
	text, err := idx.extractor.Extract(content, strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return nil, err
	}
	return idx.IndexDocument(ctx, &models.DocumentInput{
		Title:   filename,
		Content: text,
		Metadata: map[string]interface{}{
			"filename": filename,
			"format":   strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		},
	})
}

// DeleteDocument removes a document from every index and the store.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if idx.vectors != nil {
		if err := idx.vectors.DeleteByDocument(ctx, id); err != nil {
			return fmt.Errorf("vector delete: %w", err)
		}
	}
	if idx.keywords != nil {
		if err := idx.keywords.DeleteByDocument(ctx, id); err != nil {
			return fmt.Errorf("keyword delete: %w", err)
		}
	}
	if err := idx.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	idx.logger.Info("document deleted", zap.String("document", id))
	return nil
}

