package driving

import (
	"context"

	"github.com/quarry-labs/recall/internal/core/domain"
)

// MemoryService is the full document memory API offered to serving
// adapters (CLI, MCP). One implementation lives in core/services.
type MemoryService interface {
	// Ingest stores one uploaded file: extract, dedupe, chunk, embed,
	// index, register. Duplicate content returns
	// domain.ErrDuplicateContent without touching the embedder.
	Ingest(ctx context.Context, file domain.FileUpload) (*domain.IngestReceipt, error)

	// Query embeds the text and returns the k most similar chunks
	// with source document metadata attached.
	Query(ctx context.Context, text string, k int) ([]domain.QueryHit, error)

	// RemoveDocuments removes documents by ID, reporting a per-ID
	// outcome, after capturing an implicit snapshot. Failed documents
	// keep their registry entries.
	RemoveDocuments(ctx context.Context, docIDs []string) (*domain.RemovalReport, error)

	// ClearAll wipes the store after capturing an implicit snapshot.
	ClearAll(ctx context.Context) (*domain.ClearReport, error)

	// ReplaceAll atomically swaps the store contents for the given
	// batch. Per-file failures are reported, not fatal; cancellation
	// between files leaves earlier files committed.
	ReplaceAll(ctx context.Context, files []domain.FileUpload) (*domain.ReplaceReport, error)

	// ListDocuments returns active registry entries passing the filter.
	ListDocuments(ctx context.Context, filter domain.ListFilter) ([]domain.DocumentEntry, error)

	// Stats summarises the store.
	Stats(ctx context.Context) (*domain.StoreStats, error)

	// HealthCheck runs probe queries against the live index and pings
	// the embedder.
	HealthCheck(ctx context.Context, probes []string) (*domain.HealthReport, error)

	// CreateBackup captures a consistent snapshot under the label.
	CreateBackup(ctx context.Context, label string) (*domain.SnapshotManifest, error)

	// ListBackups returns stored snapshot manifests, newest first.
	ListBackups(ctx context.Context) ([]domain.SnapshotManifest, error)

	// PruneBackups keeps the newest keep snapshots and deletes the
	// rest, returning the IDs that were removed.
	PruneBackups(ctx context.Context, keep int) ([]string, error)

	// RestoreBackup swaps live state for the snapshot. On failure the
	// pre-restore state stays live.
	RestoreBackup(ctx context.Context, id string) error
}
