package domain

import "time"

// BackendType identifies an index backend implementation.
type BackendType string

const (
	// BackendFlat is the in-memory flat index. Fast, no persistence,
	// deletes rebuild the surviving set.
	BackendFlat BackendType = "flat"

	// BackendDocument is the persistent document-oriented index with
	// native delete support.
	BackendDocument BackendType = "document"
)

// IsValid reports whether the backend type is known.
func (b BackendType) IsValid() bool {
	return b == BackendFlat || b == BackendDocument
}

// SnapshotManifest describes one backup snapshot. It is written next
// to the captured state so a snapshot is self-describing and restore
// can validate compatibility before touching live data.
type SnapshotManifest struct {
	// ID is the unique snapshot identifier.
	ID string `json:"id"`

	// Label is the caller-supplied or generated label
	// (e.g. "pre-clear-2026-08-25T10:00:00Z").
	Label string `json:"label"`

	// CreatedAt is when the snapshot was captured.
	CreatedAt time.Time `json:"created_at"`

	// BackendType is the index backend the snapshot was taken from.
	// Restore requires the live backend to match.
	BackendType BackendType `json:"backend_type"`

	// DocumentCount is the number of registry entries captured.
	DocumentCount int `json:"document_count"`

	// ChunkCount is the number of index entries captured.
	ChunkCount int `json:"chunk_count"`

	// EmbeddingDims is the vector dimensionality of the captured
	// index, 0 when the index was empty.
	EmbeddingDims int `json:"embedding_dims"`

	// FormatVersion is the snapshot serialisation version.
	FormatVersion int `json:"format_version"`
}

// RecoveryReport records the outcome of the load-time integrity check.
type RecoveryReport struct {
	// Corrupted is true when the check found index/registry disagreement
	// or a backend load failure.
	Corrupted bool

	// Restored is true when a snapshot restore repaired the store.
	Restored bool

	// SnapshotID is the snapshot used for recovery, empty if none.
	SnapshotID string

	// Detail is a human-readable description of what was found.
	Detail string
}
