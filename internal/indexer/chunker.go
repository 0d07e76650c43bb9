// Package indexer turns raw document text into stored, embedded, and
// searchable chunks.
package indexer

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/toiawase/internal/models"
)

// Chunker splits document text into sentence-aligned chunks. Chunks are
// contiguous, non-overlapping character ranges of the original text:
// [StartPosition, EndPosition) slices reproduce the chunk content exactly,
// which context expansion relies on. Neighboring context comes from adjacent
// chunks at query time, not from overlap at index time.
type Chunker struct {
	chunkSize int
}

// NewChunker creates a chunker targeting chunkSize characters per chunk.
// Sentences are kept whole unless a single sentence exceeds the target.
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	return &Chunker{chunkSize: chunkSize}
}

// Chunk splits text into DocumentChunks for docID. Chunk IDs take the form
// "<docID>#<index>" so an ID round-trips to its document and position.
func (c *Chunker) Chunk(docID, text string) []*models.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	now := time.Now().UTC()
	var chunks []*models.DocumentChunk
	emit := func(start, end int) {
		content := text[start:end]
		if strings.TrimSpace(content) == "" {
			return
		}
		idx := len(chunks)
		chunks = append(chunks, &models.DocumentChunk{
			ID:            fmt.Sprintf("%s#%d", docID, idx),
			DocumentID:    docID,
			Content:       content,
			ChunkIndex:    idx,
			StartPosition: start,
			EndPosition:   end,
			CreatedAt:     now,
		})
	}

	start := 0
	cursor := 0
	for _, boundary := range sentenceBoundaries(text) {
		if boundary-start >= c.chunkSize {
			if cursor > start {
				// Close at the last sentence boundary that still fits.
				emit(start, cursor)
				start = cursor
			}
			// A single sentence longer than the target gets hard-split.
			for boundary-start >= c.chunkSize {
				end := splitPoint(text, start, start+c.chunkSize)
				emit(start, end)
				start = end
			}
		}
		cursor = boundary
	}
	if start < len(text) {
		emit(start, len(text))
	}
	return chunks
}

// sentenceBoundaries returns offsets just past each sentence end: after
// terminal punctuation followed by whitespace, or after a newline. The final
// boundary is len(text).
func sentenceBoundaries(text string) []int {
	var out []int
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
				out = append(out, i+1)
			}
		case '\n':
			out = append(out, i+1)
		}
	}
	if len(out) == 0 || out[len(out)-1] != len(text) {
		out = append(out, len(text))
	}
	return out
}

// splitPoint backs a hard split off to the nearest space before limit so
// words stay whole, falling back to limit itself; it never splits a UTF-8
// sequence.
func splitPoint(text string, start, limit int) int {
	if limit >= len(text) {
		return len(text)
	}
	for i := limit; i > start; i-- {
		if text[i-1] == ' ' {
			return i
		}
	}
	for limit > start && text[limit]&0xC0 == 0x80 {
		limit--
	}
	return limit
}
