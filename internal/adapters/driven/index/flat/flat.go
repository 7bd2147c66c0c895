// Package flat provides an in-memory vector index. Everything lives in
// process memory: search scans every vector, deletes rebuild the
// surviving set, and nothing survives process exit. In exchange it
// needs no setup and its rebuild-on-restore path is instant, which
// suits ephemeral sessions and tests.
package flat

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// snapshotVersion identifies the snapshot blob layout.
const snapshotVersion = 1

// Index is the in-memory flat vector index.
type Index struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
	norms  []float64
	byID   map[string]struct{}
	dims   int
	closed bool
}

// New creates an empty flat index.
func New() *Index {
	return &Index{
		byID: make(map[string]struct{}),
	}
}

// snapshot is the serialised form of the index state.
type snapshot struct {
	Version int            `json:"version"`
	Dims    int            `json:"dims"`
	Chunks  []domain.Chunk `json:"chunks"`
}

// Add inserts a batch of chunks. The whole batch is validated before
// anything is appended, so a failed Add leaves the index unchanged.
func (i *Index) Add(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrStoreClosed
	}

	dims := i.dims
	seen := make(map[string]struct{}, len(chunks))
	for _, ch := range chunks {
		if ch.ID == "" {
			return fmt.Errorf("chunk without ID: %w", domain.ErrInvalidInput)
		}
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding: %w", ch.ID, domain.ErrInvalidInput)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("chunk %s appears twice in batch: %w", ch.ID, domain.ErrInvalidInput)
		}
		if _, dup := i.byID[ch.ID]; dup {
			return fmt.Errorf("chunk %s already indexed: %w", ch.ID, domain.ErrInvalidInput)
		}
		seen[ch.ID] = struct{}{}

		if dims == 0 {
			dims = len(ch.Embedding)
		} else if len(ch.Embedding) != dims {
			return fmt.Errorf("chunk %s has %d dims, index has %d: %w",
				ch.ID, len(ch.Embedding), dims, domain.ErrDimensionMismatch)
		}
	}

	for _, ch := range chunks {
		i.chunks = append(i.chunks, ch)
		i.norms = append(i.norms, vectorNorm(ch.Embedding))
		i.byID[ch.ID] = struct{}{}
	}
	i.dims = dims
	return nil
}

// Search scans all vectors and returns the top k by cosine similarity.
// The stable sort preserves insertion order for equal scores.
func (i *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d: %w", k, domain.ErrInvalidInput)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, domain.ErrStoreClosed
	}
	if len(i.chunks) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != i.dims {
		return nil, fmt.Errorf("query has %d dims, index has %d: %w",
			len(query), i.dims, domain.ErrDimensionMismatch)
	}

	queryNorm := vectorNorm(query)

	type scored struct {
		pos   int
		score float64
	}
	results := make([]scored, len(i.chunks))
	for pos, ch := range i.chunks {
		results[pos] = scored{pos: pos, score: cosine(query, queryNorm, ch.Embedding, i.norms[pos])}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})

	if k > len(results) {
		k = len(results)
	}

	hits := make([]driven.VectorHit, 0, k)
	for _, r := range results[:k] {
		ch := i.chunks[r.pos]
		ch.Embedding = nil
		hits = append(hits, driven.VectorHit{Chunk: ch, Similarity: r.score})
	}
	return hits, nil
}

// Delete removes the given IDs by rebuilding the surviving set in one
// pass. Callers should batch deletions rather than loop over this.
func (i *Index) Delete(_ context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrStoreClosed
	}

	doomed := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		if _, ok := i.byID[id]; ok {
			doomed[id] = struct{}{}
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	survivingChunks := make([]domain.Chunk, 0, len(i.chunks)-len(doomed))
	survivingNorms := make([]float64, 0, len(i.chunks)-len(doomed))
	for pos, ch := range i.chunks {
		if _, gone := doomed[ch.ID]; gone {
			continue
		}
		survivingChunks = append(survivingChunks, ch)
		survivingNorms = append(survivingNorms, i.norms[pos])
	}

	i.chunks = survivingChunks
	i.norms = survivingNorms
	for id := range doomed {
		delete(i.byID, id)
	}
	if len(i.chunks) == 0 {
		i.dims = 0
	}
	return nil
}

// Clear drops every chunk and resets the dimensionality.
func (i *Index) Clear(_ context.Context) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, domain.ErrStoreClosed
	}

	removed := len(i.chunks)
	i.chunks = nil
	i.norms = nil
	i.byID = make(map[string]struct{})
	i.dims = 0
	return removed, nil
}

// Snapshot serialises the full index state.
func (i *Index) Snapshot(_ context.Context) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, domain.ErrStoreClosed
	}

	blob, err := json.Marshal(snapshot{
		Version: snapshotVersion,
		Dims:    i.dims,
		Chunks:  i.chunks,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding index snapshot: %w", err)
	}
	return blob, nil
}

// Restore replaces the index state with the snapshot. The blob is
// fully parsed and validated before the swap, so a failed restore
// leaves the live state untouched.
func (i *Index) Restore(_ context.Context, blob []byte) error {
	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return fmt.Errorf("decoding index snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d: %w", snap.Version, domain.ErrInvalidInput)
	}

	norms := make([]float64, len(snap.Chunks))
	byID := make(map[string]struct{}, len(snap.Chunks))
	for pos, ch := range snap.Chunks {
		if ch.ID == "" || len(ch.Embedding) == 0 {
			return fmt.Errorf("snapshot chunk %d is malformed: %w", pos, domain.ErrInvalidInput)
		}
		if snap.Dims != 0 && len(ch.Embedding) != snap.Dims {
			return fmt.Errorf("snapshot chunk %s has %d dims, snapshot has %d: %w",
				ch.ID, len(ch.Embedding), snap.Dims, domain.ErrDimensionMismatch)
		}
		norms[pos] = vectorNorm(ch.Embedding)
		byID[ch.ID] = struct{}{}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrStoreClosed
	}

	i.chunks = snap.Chunks
	i.norms = norms
	i.byID = byID
	i.dims = snap.Dims
	return nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, domain.ErrStoreClosed
	}
	return len(i.chunks), nil
}

// StorageBytes approximates the in-memory footprint: vector data plus
// chunk text.
func (i *Index) StorageBytes(_ context.Context) (int64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, domain.ErrStoreClosed
	}

	var total int64
	for _, ch := range i.chunks {
		total += int64(len(ch.Embedding))*4 + int64(len(ch.Content))
	}
	return total, nil
}

// Dimensions returns the vector dimensionality, 0 when empty.
func (i *Index) Dimensions(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, domain.ErrStoreClosed
	}
	return i.dims, nil
}

// BackendType identifies this implementation.
func (i *Index) BackendType() domain.BackendType {
	return domain.BackendFlat
}

// Close marks the index closed. Further operations fail with
// domain.ErrStoreClosed.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.chunks = nil
	i.norms = nil
	i.byID = nil
	return nil
}

// cosine computes cosine similarity given precomputed norms.
// Zero-norm vectors score 0 against everything.
func cosine(query []float32, queryNorm float64, vec []float32, vecNorm float64) float64 {
	if queryNorm == 0 || vecNorm == 0 {
		return 0
	}
	var dot float64
	for idx, q := range query {
		dot += float64(q) * float64(vec[idx])
	}
	return dot / (queryNorm * vecNorm)
}

// vectorNorm computes the L2 norm.
func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
