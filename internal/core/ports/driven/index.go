package driven

import (
	"context"

	"github.com/quarry-labs/recall/internal/core/domain"
)

// VectorIndex stores chunk vectors and answers similarity queries.
// The interface is the capability contract shared by every backend;
// callers never branch on the backend identity, they call the same
// operations and let the implementation decide how to honour them.
//
// Implementations:
//   - flat: in-memory, rebuilds on delete, gone on process exit
//   - document: persistent sqlite-backed store with native delete
type VectorIndex interface {
	// Add inserts a batch of chunks with their embeddings. The batch
	// is atomic: on error no chunk from it is visible. All vectors in
	// a batch must share the dimensionality of the vectors already
	// indexed (domain.ErrDimensionMismatch otherwise).
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Search returns the k most similar chunks by cosine similarity,
	// best first. Ties are broken by insertion order, earlier first.
	// k greater than the index size is clamped; k < 1 is invalid.
	// An empty index returns an empty result and no error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Delete removes the given chunk IDs. Unknown IDs are ignored, so
	// the call is idempotent. Deleting many chunks in one call is
	// much cheaper than one call per chunk on backends that rebuild.
	Delete(ctx context.Context, chunkIDs []string) error

	// Clear removes every chunk, orphans included, and returns how
	// many were removed.
	Clear(ctx context.Context) (int, error)

	// Snapshot serialises the full index state into a blob that
	// Restore can consume.
	Snapshot(ctx context.Context) ([]byte, error)

	// Restore replaces the index state with the snapshot blob. The
	// swap is atomic: on failure the pre-restore state stays live.
	Restore(ctx context.Context, blob []byte) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// StorageBytes reports the approximate footprint of the index,
	// file size for persistent backends, vector memory for flat.
	StorageBytes(ctx context.Context) (int64, error)

	// Dimensions returns the vector dimensionality, 0 when empty.
	Dimensions(ctx context.Context) (int, error)

	// BackendType identifies the implementation.
	BackendType() domain.BackendType

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk. Embedding is not populated.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}
