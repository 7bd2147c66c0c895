package driven

import (
	"context"

	"github.com/quarry-labs/recall/internal/core/domain"
)

// SnapshotPayload bundles the two parts of a consistent backup:
// the serialised index and the serialised registry, captured under
// the same read lock.
type SnapshotPayload struct {
	// Manifest describes the snapshot.
	Manifest domain.SnapshotManifest

	// IndexBlob is the index snapshot from VectorIndex.Snapshot.
	IndexBlob []byte

	// RegistryBlob is the registry export from RegistryStore.Export.
	RegistryBlob []byte
}

// BackupStore persists snapshots of the full memory state. A capture
// is atomic: either the snapshot becomes visible with both parts and
// its manifest, or nothing is left behind.
type BackupStore interface {
	// Capture persists the payload and returns the stored manifest.
	Capture(ctx context.Context, payload SnapshotPayload) (*domain.SnapshotManifest, error)

	// Load retrieves a snapshot by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Load(ctx context.Context, id string) (*SnapshotPayload, error)

	// List returns all snapshot manifests, newest first.
	List(ctx context.Context) ([]domain.SnapshotManifest, error)

	// Latest returns the most recent manifest.
	// Returns domain.ErrNotFound when no snapshots exist.
	Latest(ctx context.Context) (*domain.SnapshotManifest, error)

	// Delete removes a snapshot by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// Prune keeps the newest keep snapshots and deletes the rest,
	// returning the IDs that were removed.
	Prune(ctx context.Context, keep int) ([]string, error)
}
