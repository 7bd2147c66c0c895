// Package chunker splits extracted document text into overlapping
// windows sized for embedding. Cut points prefer natural boundaries:
// a paragraph break beats a sentence end, a sentence end beats a word
// boundary, and only featureless text is cut mid-word.
package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quarry-labs/recall/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Chunker splits text into overlapping chunks with boundary snapping.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker with the given options. The chunk size must be
// positive and strictly larger than the overlap; any other combination
// could never make forward progress and is rejected.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w",
			c.chunkSize, domain.ErrChunking)
	}
	if c.overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d: %w",
			c.overlap, domain.ErrChunking)
	}
	if c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d: %w",
			c.overlap, c.chunkSize, domain.ErrChunking)
	}

	return c, nil
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks the text for the given document. Offsets are rune
// offsets into the input, so Content always equals the input slice
// [StartOffset:EndOffset]. The final partial window is kept. Splitting
// is deterministic: the same text and configuration always produce the
// same chunk sequence (IDs aside).
func (c *Chunker) Split(docID, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text: %w", domain.ErrChunking)
	}

	runes := []rune(text)
	n := len(runes)

	estimated := n/(c.chunkSize-c.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	position := 0
	start := 0

	for start < n {
		end := start + c.chunkSize
		if end >= n {
			end = n
		} else {
			end = c.snap(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  docID,
			Content:     string(runes[start:end]),
			Position:    position,
			StartOffset: start,
			EndOffset:   end,
		})
		position++

		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			// Forward progress even when the overlap swallows the
			// whole snapped chunk.
			next = start + 1
		}
		start = next
	}

	return chunks, nil
}

// snap moves a cut point back to the nearest natural boundary. The
// search covers the tail half of the window so a snap never produces a
// chunk shorter than half the nominal size.
func (c *Chunker) snap(runes []rune, start, nominalEnd int) int {
	minEnd := start + c.chunkSize/2
	if minEnd < start+1 {
		minEnd = start + 1
	}

	if end, ok := lastParagraphBreak(runes, minEnd, nominalEnd); ok {
		return end
	}
	if end, ok := lastSentenceEnd(runes, minEnd, nominalEnd); ok {
		return end
	}
	if end, ok := lastWordBreak(runes, minEnd, nominalEnd); ok {
		return end
	}
	return nominalEnd
}

// lastParagraphBreak finds the latest "\n\n" ending at or before limit.
// The returned cut point sits just past the break so the blank line
// stays with the preceding chunk.
func lastParagraphBreak(runes []rune, minEnd, limit int) (int, bool) {
	for i := limit - 2; i >= minEnd-2 && i >= 1; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			end := i + 2
			if end >= minEnd && end <= limit {
				return end, true
			}
		}
	}
	return 0, false
}

// lastSentenceEnd finds the latest sentence terminator followed by
// whitespace. The cut point sits past the whitespace.
func lastSentenceEnd(runes []rune, minEnd, limit int) (int, bool) {
	for i := limit - 2; i >= minEnd-2 && i >= 0; i-- {
		if isSentenceEnd(runes[i]) && isWhitespace(runes[i+1]) {
			end := i + 2
			if end >= minEnd && end <= limit {
				return end, true
			}
		}
	}
	return 0, false
}

// lastWordBreak finds the latest whitespace rune. The cut point sits
// past it so the separator stays with the preceding chunk.
func lastWordBreak(runes []rune, minEnd, limit int) (int, bool) {
	for i := limit - 1; i >= minEnd-1 && i >= 0; i-- {
		if isWhitespace(runes[i]) {
			end := i + 1
			if end >= minEnd && end <= limit {
				return end, true
			}
		}
	}
	return 0, false
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
