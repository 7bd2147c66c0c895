package document

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/recall/internal/core/domain"
)

// setupTestIndex creates a temporary document index for testing.
func setupTestIndex(t *testing.T) (*Index, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "recall-test-*")
	require.NoError(t, err)

	idx, err := New(tempDir)
	require.NoError(t, err)
	require.NotNil(t, idx)

	cleanup := func() {
		assert.NoError(t, idx.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return idx, cleanup
}

func testChunk(id string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: "doc-1",
		Content:    "content of " + id,
		Embedding:  embedding,
	}
}

func TestNew(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	assert.Equal(t, domain.BackendDocument, idx.BackendType())
	assert.NotEmpty(t, idx.Path())

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "recall-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	ctx := context.Background()

	idx, err := New(tempDir)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []domain.Chunk{testChunk("persisted", []float32{1, 0})}))
	require.NoError(t, idx.Close())

	// Reopen the same directory: data must survive.
	reopened, err := New(tempDir)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := reopened.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "persisted", hits[0].Chunk.ID)
}

func TestIndex_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("adds a batch", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		err := idx.Add(ctx, []domain.Chunk{
			testChunk("c1", []float32{1, 0, 0}),
			testChunk("c2", []float32{0, 1, 0}),
		})
		require.NoError(t, err)

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		dims, err := idx.Dimensions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, dims)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, nil))

		count, _ := idx.Count(ctx)
		assert.Equal(t, 0, count)
	})

	t.Run("rejects dimension mismatch", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{testChunk("c1", []float32{1, 0, 0})}))

		err := idx.Add(ctx, []domain.Chunk{testChunk("c2", []float32{1, 0})})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("batch is atomic on failure", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{testChunk("c1", []float32{1, 0})}))

		// Duplicate primary key fails the transaction; the valid
		// sibling must not land either.
		err := idx.Add(ctx, []domain.Chunk{
			testChunk("c2", []float32{0, 1}),
			testChunk("c1", []float32{1, 1}),
		})
		require.Error(t, err)

		count, _ := idx.Count(ctx)
		assert.Equal(t, 1, count)
	})

	t.Run("rejects chunk without embedding", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		err := idx.Add(ctx, []domain.Chunk{testChunk("c1", nil)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("returns most similar first", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{
			testChunk("east", []float32{1, 0}),
			testChunk("north", []float32{0, 1}),
			testChunk("northeast", []float32{1, 1}),
		}))

		hits, err := idx.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)

		assert.Equal(t, "east", hits[0].Chunk.ID)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
		assert.Equal(t, "northeast", hits[1].Chunk.ID)
		assert.Equal(t, "north", hits[2].Chunk.ID)
	})

	t.Run("ties break by insertion order", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{
			testChunk("first", []float32{1, 0}),
			testChunk("second", []float32{1, 0}),
			testChunk("third", []float32{2, 0}),
		}))

		hits, err := idx.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)

		assert.Equal(t, "first", hits[0].Chunk.ID)
		assert.Equal(t, "second", hits[1].Chunk.ID)
		assert.Equal(t, "third", hits[2].Chunk.ID)
	})

	t.Run("clamps k to index size", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{testChunk("only", []float32{1, 0})}))

		hits, err := idx.Search(ctx, []float32{1, 0}, 50)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("rejects k below 1", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		_, err := idx.Search(ctx, []float32{1, 0}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty index returns empty result", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		hits, err := idx.Search(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("hits carry offsets and no embedding", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		ch := testChunk("c1", []float32{1, 0})
		ch.StartOffset = 10
		ch.EndOffset = 25
		require.NoError(t, idx.Add(ctx, []domain.Chunk{ch}))

		hits, err := idx.Search(ctx, []float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, 10, hits[0].Chunk.StartOffset)
		assert.Equal(t, 25, hits[0].Chunk.EndOffset)
		assert.Nil(t, hits[0].Chunk.Embedding)
	})
}

func TestIndex_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes chunks natively", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{
			testChunk("c1", []float32{1, 0}),
			testChunk("c2", []float32{0, 1}),
			testChunk("c3", []float32{1, 1}),
		}))

		require.NoError(t, idx.Delete(ctx, []string{"c1", "c3"}))

		count, _ := idx.Count(ctx)
		assert.Equal(t, 1, count)

		hits, err := idx.Search(ctx, []float32{0, 1}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "c2", hits[0].Chunk.ID)
	})

	t.Run("unknown IDs are ignored", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{testChunk("c1", []float32{1, 0})}))
		require.NoError(t, idx.Delete(ctx, []string{"missing"}))

		count, _ := idx.Count(ctx)
		assert.Equal(t, 1, count)
	})

	t.Run("empty list is a no-op", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Delete(ctx, nil))
	})
}

func TestIndex_Clear(t *testing.T) {
	ctx := context.Background()

	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	require.NoError(t, idx.Add(ctx, []domain.Chunk{
		testChunk("c1", []float32{1, 0}),
		testChunk("c2", []float32{0, 1}),
	}))

	removed, err := idx.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, _ := idx.Count(ctx)
	assert.Equal(t, 0, count)

	// Dimensions reset along with the rows, so a differently sized
	// vector is accepted after a clear.
	require.NoError(t, idx.Add(ctx, []domain.Chunk{testChunk("wide", []float32{1, 0, 0})}))

	removed, err = idx.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestIndex_SnapshotRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip preserves state and order", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{
			testChunk("tie-a", []float32{1, 0}),
			testChunk("tie-b", []float32{1, 0}),
		}))

		blob, err := idx.Snapshot(ctx)
		require.NoError(t, err)

		target, targetCleanup := setupTestIndex(t)
		defer targetCleanup()

		require.NoError(t, target.Restore(ctx, blob))

		count, _ := target.Count(ctx)
		assert.Equal(t, 2, count)

		// Insertion order survived the round trip: tie-a still wins.
		hits, err := target.Search(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		assert.Equal(t, "tie-a", hits[0].Chunk.ID)
		assert.Equal(t, "tie-b", hits[1].Chunk.ID)
	})

	t.Run("restore replaces existing contents", func(t *testing.T) {
		source, sourceCleanup := setupTestIndex(t)
		defer sourceCleanup()

		require.NoError(t, source.Add(ctx, []domain.Chunk{testChunk("fresh", []float32{1, 0})}))
		blob, err := source.Snapshot(ctx)
		require.NoError(t, err)

		target, targetCleanup := setupTestIndex(t)
		defer targetCleanup()
		require.NoError(t, target.Add(ctx, []domain.Chunk{
			testChunk("stale-1", []float32{0, 1}),
			testChunk("stale-2", []float32{1, 1}),
		}))

		require.NoError(t, target.Restore(ctx, blob))

		count, _ := target.Count(ctx)
		assert.Equal(t, 1, count)

		hits, err := target.Search(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "fresh", hits[0].Chunk.ID)
	})

	t.Run("failed restore leaves state untouched", func(t *testing.T) {
		idx, cleanup := setupTestIndex(t)
		defer cleanup()

		require.NoError(t, idx.Add(ctx, []domain.Chunk{testChunk("keep", []float32{1, 0})}))

		err := idx.Restore(ctx, []byte("{broken"))
		require.Error(t, err)

		count, _ := idx.Count(ctx)
		assert.Equal(t, 1, count)
	})
}

func TestIndex_StorageBytes(t *testing.T) {
	idx, cleanup := setupTestIndex(t)
	defer cleanup()

	size, err := idx.StorageBytes(context.Background())
	require.NoError(t, err)
	assert.Greater(t, size, int64(0), "a migrated database file has non-zero size")
}
