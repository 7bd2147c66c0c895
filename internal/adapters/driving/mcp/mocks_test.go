package mcp

import (
	"context"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driving"
)

// Ensure the mock satisfies the interface.
var _ driving.MemoryService = (*mockMemoryService)(nil)

// mockMemoryService is a mock implementation of driving.MemoryService.
// Result fields are returned as-is; err is returned by every call.
type mockMemoryService struct {
	receipt   *domain.IngestReceipt
	hits      []domain.QueryHit
	removal   *domain.RemovalReport
	clearRep  *domain.ClearReport
	replace   *domain.ReplaceReport
	entries   []domain.DocumentEntry
	stats     *domain.StoreStats
	health    *domain.HealthReport
	manifest  *domain.SnapshotManifest
	manifests []domain.SnapshotManifest
	pruned    []string
	err       error

	// Captured arguments for assertions.
	lastUpload domain.FileUpload
	lastQuery  string
	lastLimit  int
	lastFilter domain.ListFilter
}

func (m *mockMemoryService) Ingest(_ context.Context, file domain.FileUpload) (*domain.IngestReceipt, error) {
	m.lastUpload = file
	return m.receipt, m.err
}

func (m *mockMemoryService) Query(_ context.Context, text string, k int) ([]domain.QueryHit, error) {
	m.lastQuery = text
	m.lastLimit = k
	return m.hits, m.err
}

func (m *mockMemoryService) RemoveDocuments(_ context.Context, _ []string) (*domain.RemovalReport, error) {
	return m.removal, m.err
}

func (m *mockMemoryService) ClearAll(_ context.Context) (*domain.ClearReport, error) {
	return m.clearRep, m.err
}

func (m *mockMemoryService) ReplaceAll(_ context.Context, _ []domain.FileUpload) (*domain.ReplaceReport, error) {
	return m.replace, m.err
}

func (m *mockMemoryService) ListDocuments(_ context.Context, filter domain.ListFilter) ([]domain.DocumentEntry, error) {
	m.lastFilter = filter
	return m.entries, m.err
}

func (m *mockMemoryService) Stats(_ context.Context) (*domain.StoreStats, error) {
	return m.stats, m.err
}

func (m *mockMemoryService) HealthCheck(_ context.Context, _ []string) (*domain.HealthReport, error) {
	return m.health, m.err
}

func (m *mockMemoryService) CreateBackup(_ context.Context, _ string) (*domain.SnapshotManifest, error) {
	return m.manifest, m.err
}

func (m *mockMemoryService) ListBackups(_ context.Context) ([]domain.SnapshotManifest, error) {
	return m.manifests, m.err
}

func (m *mockMemoryService) PruneBackups(_ context.Context, _ int) ([]string, error) {
	return m.pruned, m.err
}

func (m *mockMemoryService) RestoreBackup(_ context.Context, _ string) error {
	return m.err
}
