package driven

import (
	"context"

	"github.com/quarry-labs/recall/internal/core/domain"
)

// RegistryStore persists document registry entries. The registry is
// the authority on which documents are active and which chunks belong
// to them; every chunk ID it references must exist in the index.
type RegistryStore interface {
	// Save stores a registry entry, replacing any entry with the
	// same ID.
	Save(ctx context.Context, entry domain.DocumentEntry) error

	// Get retrieves an entry by document ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, docID string) (*domain.DocumentEntry, error)

	// FindByFingerprint retrieves the active entry with the given
	// content fingerprint. Returns domain.ErrNotFound if none.
	FindByFingerprint(ctx context.Context, fingerprint string) (*domain.DocumentEntry, error)

	// List returns entries passing the filter, ordered by ingest time
	// then ID for entries sharing a timestamp.
	List(ctx context.Context, filter domain.ListFilter) ([]domain.DocumentEntry, error)

	// Delete removes an entry by document ID.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, docID string) error

	// DeleteAll removes every entry and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)

	// Count returns the number of active entries.
	Count(ctx context.Context) (int, error)

	// Export serialises all entries into a blob for backup.
	Export(ctx context.Context) ([]byte, error)

	// Import replaces all entries with the exported blob. The swap is
	// atomic: on failure the pre-import state stays live.
	Import(ctx context.Context, blob []byte) error

	// Close releases resources.
	Close() error
}
