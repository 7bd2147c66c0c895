// Package memory provides an in-memory document registry for
// ephemeral runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RegistryStore = (*Store)(nil)

// formatVersion matches the file registry export layout so backups
// restored across registry implementations stay compatible.
const formatVersion = 1

type registryExport struct {
	Version   int                    `json:"version"`
	Documents []domain.DocumentEntry `json:"documents"`
}

// Store is an in-memory implementation of driven.RegistryStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]domain.DocumentEntry
}

// New creates an empty in-memory registry.
func New() *Store {
	return &Store{
		entries: make(map[string]domain.DocumentEntry),
	}
}

// cloneEntry copies an entry so stored state never shares the
// ChunkIDs slice with callers.
func cloneEntry(entry domain.DocumentEntry) domain.DocumentEntry {
	if entry.ChunkIDs != nil {
		entry.ChunkIDs = append([]string(nil), entry.ChunkIDs...)
	}
	return entry
}

// sortedEntries returns all entries ordered by ingest time, then ID.
// Callers must hold at least a read lock.
func (s *Store) sortedEntries() []domain.DocumentEntry {
	entries := make([]domain.DocumentEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].IngestedAt.Equal(entries[b].IngestedAt) {
			return entries[a].ID < entries[b].ID
		}
		return entries[a].IngestedAt.Before(entries[b].IngestedAt)
	})
	return entries
}

// Save stores a registry entry, replacing any entry with the same ID.
func (s *Store) Save(_ context.Context, entry domain.DocumentEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("entry without ID: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

// Get retrieves an entry by document ID.
func (s *Store) Get(_ context.Context, docID string) (*domain.DocumentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	found := cloneEntry(entry)
	return &found, nil
}

// FindByFingerprint retrieves the active entry with the fingerprint.
func (s *Store) FindByFingerprint(_ context.Context, fingerprint string) (*domain.DocumentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if entry.Fingerprint == fingerprint {
			found := cloneEntry(entry)
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns entries passing the filter, ordered by ingest time.
func (s *Store) List(_ context.Context, filter domain.ListFilter) ([]domain.DocumentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedEntries()
	result := make([]domain.DocumentEntry, 0, len(all))
	for _, entry := range all {
		if filter.Matches(entry) {
			result = append(result, entry)
		}
	}
	return result, nil
}

// Delete removes an entry by document ID.
func (s *Store) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[docID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.entries, docID)
	return nil
}

// DeleteAll removes every entry.
func (s *Store) DeleteAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.entries)
	s.entries = make(map[string]domain.DocumentEntry)
	return removed, nil
}

// Count returns the number of active entries.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Export serialises all entries for backup.
func (s *Store) Export(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, err := json.Marshal(registryExport{
		Version:   formatVersion,
		Documents: s.sortedEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding registry export: %w", err)
	}
	return blob, nil
}

// Import replaces all entries with the exported blob. The blob is
// parsed before the swap, so a malformed blob changes nothing.
func (s *Store) Import(_ context.Context, blob []byte) error {
	var re registryExport
	if err := json.Unmarshal(blob, &re); err != nil {
		return fmt.Errorf("parsing registry import: %w", err)
	}
	if re.Version != formatVersion {
		return fmt.Errorf("unsupported registry version %d: %w", re.Version, domain.ErrInvalidInput)
	}

	entries := make(map[string]domain.DocumentEntry, len(re.Documents))
	for _, entry := range re.Documents {
		if entry.ID == "" {
			return fmt.Errorf("imported entry without ID: %w", domain.ErrInvalidInput)
		}
		entries[entry.ID] = entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}
