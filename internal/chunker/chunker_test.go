package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/quarry-labs/recall/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, c.ChunkSize())
		}
		if c.Overlap() != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, c.Overlap())
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		c, err := New(WithChunkSize(500))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.ChunkSize() != 500 {
			t.Errorf("expected chunkSize 500, got %d", c.ChunkSize())
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		c, err := New(WithOverlap(100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Overlap() != 100 {
			t.Errorf("expected overlap 100, got %d", c.Overlap())
		}
	})

	t.Run("overlap equal to chunk size rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(100))
		if !errors.Is(err, domain.ErrChunking) {
			t.Errorf("expected ErrChunking, got %v", err)
		}
	})

	t.Run("overlap exceeding chunk size rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(50), WithOverlap(60))
		if !errors.Is(err, domain.ErrChunking) {
			t.Errorf("expected ErrChunking, got %v", err)
		}
	})

	t.Run("non-positive chunk size rejected", func(t *testing.T) {
		for _, size := range []int{0, -10} {
			_, err := New(WithChunkSize(size))
			if !errors.Is(err, domain.ErrChunking) {
				t.Errorf("WithChunkSize(%d): expected ErrChunking, got %v", size, err)
			}
		}
	})

	t.Run("negative overlap rejected", func(t *testing.T) {
		_, err := New(WithOverlap(-1))
		if !errors.Is(err, domain.ErrChunking) {
			t.Errorf("expected ErrChunking, got %v", err)
		}
	})
}

func TestChunker_Split_EmptyText(t *testing.T) {
	c, _ := New()

	for _, text := range []string{"", "   ", "\n\t \n"} {
		_, err := c.Split("doc-1", text)
		if !errors.Is(err, domain.ErrChunking) {
			t.Errorf("Split(%q): expected ErrChunking, got %v", text, err)
		}
	}
}

func TestChunker_Split_SmallText(t *testing.T) {
	c, _ := New(WithChunkSize(100), WithOverlap(20))

	chunks, err := c.Split("doc-1", "This is a small piece of content.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small text, got %d", len(chunks))
	}

	ch := chunks[0]
	if ch.DocumentID != "doc-1" {
		t.Errorf("expected DocumentID 'doc-1', got '%s'", ch.DocumentID)
	}
	if ch.Content != "This is a small piece of content." {
		t.Error("expected content to match input text")
	}
	if ch.Position != 0 {
		t.Errorf("expected position 0, got %d", ch.Position)
	}
	if ch.StartOffset != 0 || ch.EndOffset != len([]rune(ch.Content)) {
		t.Errorf("unexpected offsets (%d, %d)", ch.StartOffset, ch.EndOffset)
	}
}

func TestChunker_Split_WordBoundarySnapping(t *testing.T) {
	// 118 characters of plain prose: cuts snap to word boundaries.
	text := "The quick brown fox jumps over the lazy dog while the calm wind carries dust and dry leaves across the open field path"

	c, _ := New(WithChunkSize(50), WithOverlap(10))
	chunks, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantOffsets := [][2]int{{0, 50}, {40, 85}, {75, 118}}
	for i, ch := range chunks {
		if ch.StartOffset != wantOffsets[i][0] || ch.EndOffset != wantOffsets[i][1] {
			t.Errorf("chunk %d: offsets (%d, %d), want (%d, %d)",
				i, ch.StartOffset, ch.EndOffset, wantOffsets[i][0], wantOffsets[i][1])
		}
		if ch.Content != text[ch.StartOffset:ch.EndOffset] {
			t.Errorf("chunk %d: content does not match its offsets", i)
		}
		if ch.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, ch.Position)
		}
	}

	// Interior cuts landed on word boundaries.
	if !strings.HasSuffix(chunks[0].Content, "while ") {
		t.Errorf("chunk 0 should end on a word boundary, got %q", chunks[0].Content)
	}
}

func TestChunker_Split_ParagraphPreferred(t *testing.T) {
	text := "First paragraph about cells.\n\nSecond paragraph about energy and the way mitochondria convert sugars.\n\nThird paragraph about osmosis in plant roots."

	c, _ := New(WithChunkSize(60), WithOverlap(12))
	chunks, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "First paragraph about cells.\n\n" {
		t.Errorf("expected first cut at the paragraph break, got %q", chunks[0].Content)
	}
	if !strings.HasSuffix(chunks[2].Content, "sugars.\n\n") {
		t.Errorf("expected third cut at the paragraph break, got %q", chunks[2].Content)
	}
}

func TestChunker_Split_SentencePreferredOverWord(t *testing.T) {
	text := "Short sentence one. Short sentence two follows here. Third sentence arrives now. Fourth one ends the text."

	c, _ := New(WithChunkSize(50), WithOverlap(10))
	chunks, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	// The second window contains "arrives now. " so the cut snaps to
	// the sentence end rather than a later word boundary.
	if !strings.HasSuffix(chunks[1].Content, "now. ") {
		t.Errorf("expected sentence snap, got %q", chunks[1].Content)
	}
	if chunks[1].StartOffset != 37 || chunks[1].EndOffset != 81 {
		t.Errorf("chunk 1: offsets (%d, %d), want (37, 81)",
			chunks[1].StartOffset, chunks[1].EndOffset)
	}
}

func TestChunker_Split_FeaturelessTextHardCuts(t *testing.T) {
	content := strings.Repeat("x", 250)

	c, _ := New(WithChunkSize(100), WithOverlap(20))
	chunks, err := c.Split("doc-1", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOffsets := [][2]int{{0, 100}, {80, 180}, {160, 250}}
	if len(chunks) != len(wantOffsets) {
		t.Fatalf("expected %d chunks, got %d", len(wantOffsets), len(chunks))
	}
	for i, ch := range chunks {
		if ch.StartOffset != wantOffsets[i][0] || ch.EndOffset != wantOffsets[i][1] {
			t.Errorf("chunk %d: offsets (%d, %d), want (%d, %d)",
				i, ch.StartOffset, ch.EndOffset, wantOffsets[i][0], wantOffsets[i][1])
		}
	}
}

func TestChunker_Split_FinalPartialWindowKept(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"

	c, _ := New(WithChunkSize(20), WithOverlap(5))
	chunks, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := chunks[len(chunks)-1]
	if last.EndOffset != len(text) {
		t.Errorf("final chunk should reach the end of text, got %d", last.EndOffset)
	}
	if !strings.HasSuffix(last.Content, "kappa") {
		t.Errorf("final partial window dropped, got %q", last.Content)
	}
}

func TestChunker_Split_Deterministic(t *testing.T) {
	text := "Determinism matters. The same text must always produce the same chunk sequence, offsets included, run after run."

	c, _ := New(WithChunkSize(40), WithOverlap(8))

	first, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content ||
			first[i].StartOffset != second[i].StartOffset ||
			first[i].EndOffset != second[i].EndOffset {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunker_Split_UniqueIDs(t *testing.T) {
	c, _ := New(WithChunkSize(30), WithOverlap(5))

	chunks, err := c.Split("doc-1", strings.Repeat("words in a row ", 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	seen := make(map[string]bool)
	for _, ch := range chunks {
		if seen[ch.ID] {
			t.Errorf("duplicate chunk ID: %s", ch.ID)
		}
		seen[ch.ID] = true
	}
}

func TestChunker_Split_UnicodeOffsets(t *testing.T) {
	// Offsets count runes, not bytes.
	text := "Grüße aus Wien überall. Über den Dächern liegt Schnee und die Stadt wirkt ruhig."

	c, _ := New(WithChunkSize(30), WithOverlap(6))
	chunks, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runes := []rune(text)
	for i, ch := range chunks {
		if ch.Content != string(runes[ch.StartOffset:ch.EndOffset]) {
			t.Errorf("chunk %d: rune offsets do not reproduce content", i)
		}
	}
	if chunks[len(chunks)-1].EndOffset != len(runes) {
		t.Error("final chunk should end at the rune length of the text")
	}
}
