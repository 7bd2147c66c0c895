// Package local stores memory snapshots as directories on the local
// filesystem. Each snapshot is a directory named by its ID holding the
// manifest, the serialised index, and the serialised registry. A
// capture is staged in a temporary directory and renamed into place,
// so a crash mid-capture never leaves a half-written snapshot visible.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BackupStore = (*Store)(nil)

const (
	manifestFile = "manifest.json"
	indexFile    = "index.blob"
	registryFile = "registry.json"

	// tmpPrefix marks staging directories. They are never listed as
	// snapshots and stale ones are overwritten by the next capture.
	tmpPrefix = ".tmp-"
)

// Store is a filesystem implementation of driven.BackupStore.
type Store struct {
	mu      sync.Mutex
	rootDir string
}

// New creates or opens a backup store rooted at the given directory.
// An empty rootDir defaults to ~/.recall/backups.
func New(rootDir string) (*Store, error) {
	if rootDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		rootDir = filepath.Join(home, ".recall", "backups")
	}

	if err := os.MkdirAll(rootDir, 0700); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	return &Store{rootDir: rootDir}, nil
}

// Capture persists the payload as a new snapshot directory. The
// manifest's CreatedAt is filled in when zero. The write is staged
// under a temporary name and renamed into place once complete.
func (s *Store) Capture(_ context.Context, payload driven.SnapshotPayload) (*domain.SnapshotManifest, error) {
	manifest := payload.Manifest
	if manifest.ID == "" {
		return nil, fmt.Errorf("snapshot without ID: %w", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(manifest.ID, `/\`) {
		return nil, fmt.Errorf("snapshot ID %q contains path separators: %w", manifest.ID, domain.ErrInvalidInput)
	}
	if len(payload.IndexBlob) == 0 || len(payload.RegistryBlob) == 0 {
		return nil, fmt.Errorf("snapshot payload missing index or registry part: %w", domain.ErrInvalidInput)
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	finalDir := filepath.Join(s.rootDir, manifest.ID)
	if _, err := os.Stat(finalDir); err == nil {
		return nil, fmt.Errorf("snapshot %s already exists: %w", manifest.ID, domain.ErrSnapshot)
	}

	tmpDir := filepath.Join(s.rootDir, tmpPrefix+manifest.ID)
	if err := os.RemoveAll(tmpDir); err != nil {
		return nil, fmt.Errorf("clearing stale staging directory: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	if err := s.writeParts(tmpDir, manifest, payload); err != nil {
		os.RemoveAll(tmpDir) //nolint:errcheck
		return nil, err
	}

	if err := os.Rename(tmpDir, finalDir); err != nil {
		os.RemoveAll(tmpDir) //nolint:errcheck
		return nil, fmt.Errorf("publishing snapshot %s: %w", manifest.ID, err)
	}

	return &manifest, nil
}

// writeParts writes the three snapshot files into dir.
func (s *Store) writeParts(dir string, manifest domain.SnapshotManifest, payload driven.SnapshotPayload) error {
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{indexFile, payload.IndexBlob},
		{registryFile, payload.RegistryBlob},
		{manifestFile, manifestData},
	}
	for _, part := range parts {
		if err := os.WriteFile(filepath.Join(dir, part.name), part.data, 0600); err != nil {
			return fmt.Errorf("writing snapshot part %s: %w", part.name, err)
		}
	}
	return nil
}

// Load retrieves a snapshot by ID.
func (s *Store) Load(_ context.Context, id string) (*driven.SnapshotPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.rootDir, id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("checking snapshot %s: %w", id, err)
	}

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}

	indexBlob, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, fmt.Errorf("reading index part of snapshot %s: %w", id, err)
	}
	registryBlob, err := os.ReadFile(filepath.Join(dir, registryFile))
	if err != nil {
		return nil, fmt.Errorf("reading registry part of snapshot %s: %w", id, err)
	}

	return &driven.SnapshotPayload{
		Manifest:     *manifest,
		IndexBlob:    indexBlob,
		RegistryBlob: registryBlob,
	}, nil
}

// List returns all snapshot manifests, newest first. Directories
// without a readable manifest are not snapshots and are skipped.
func (s *Store) List(_ context.Context) ([]domain.SnapshotManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked()
}

// listLocked scans the root directory for snapshot manifests.
// Callers must hold the lock.
func (s *Store) listLocked() ([]domain.SnapshotManifest, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	manifests := make([]domain.SnapshotManifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}
		manifest, err := readManifest(filepath.Join(s.rootDir, entry.Name()))
		if err != nil {
			continue
		}
		manifests = append(manifests, *manifest)
	}

	sort.Slice(manifests, func(a, b int) bool {
		if manifests[a].CreatedAt.Equal(manifests[b].CreatedAt) {
			return manifests[a].ID > manifests[b].ID
		}
		return manifests[a].CreatedAt.After(manifests[b].CreatedAt)
	})
	return manifests, nil
}

// Latest returns the most recent manifest.
func (s *Store) Latest(ctx context.Context) (*domain.SnapshotManifest, error) {
	manifests, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, fmt.Errorf("no snapshots: %w", domain.ErrNotFound)
	}
	return &manifests[0], nil
}

// Delete removes a snapshot by ID.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(id)
}

// deleteLocked removes one snapshot directory. Callers must hold the
// lock.
func (s *Store) deleteLocked(id string) error {
	dir := filepath.Join(s.rootDir, id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("checking snapshot %s: %w", id, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing snapshot %s: %w", id, err)
	}
	return nil
}

// Prune keeps the newest keep snapshots and deletes the rest,
// returning the IDs that were removed.
func (s *Store) Prune(_ context.Context, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("negative retention %d: %w", keep, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	manifests, err := s.listLocked()
	if err != nil {
		return nil, err
	}
	if len(manifests) <= keep {
		return nil, nil
	}

	removed := make([]string, 0, len(manifests)-keep)
	for _, manifest := range manifests[keep:] {
		if err := s.deleteLocked(manifest.ID); err != nil {
			return removed, fmt.Errorf("pruning: %w", err)
		}
		removed = append(removed, manifest.ID)
	}
	return removed, nil
}

// readManifest parses the manifest file inside a snapshot directory.
func readManifest(dir string) (*domain.SnapshotManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var manifest domain.SnapshotManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &manifest, nil
}
