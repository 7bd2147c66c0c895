// Package file provides the durable document registry: a single JSON
// record file rewritten atomically on every mutation. The registry is
// small (one record per document, no vectors), so rewrite-on-change
// keeps the format human-inspectable without a database dependency.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RegistryStore = (*Store)(nil)

// formatVersion identifies the registry file layout.
const formatVersion = 1

// registryFile is the on-disk form of the registry.
type registryFile struct {
	Version   int                    `json:"version"`
	Documents []domain.DocumentEntry `json:"documents"`
}

// Store is the file-backed document registry.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string]domain.DocumentEntry
}

// New creates a registry store at dataDir/registry.json, loading any
// existing records. If dataDir is empty, defaults to ~/.recall/data.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		path:    filepath.Join(dataDir, "registry.json"),
		entries: make(map[string]domain.DocumentEntry),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the registry file path.
func (s *Store) Path() string {
	return s.path
}

// load reads the registry file into memory. A missing file is an
// empty registry.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading registry file: %w", err)
	}

	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("parsing registry file: %w", err)
	}

	for _, entry := range rf.Documents {
		s.entries[entry.ID] = entry
	}
	return nil
}

// persist writes the registry to a temp file and renames it over the
// live one, so a crash mid-write never corrupts the registry.
func (s *Store) persist() error {
	rf := registryFile{
		Version:   formatVersion,
		Documents: s.sortedEntries(),
	}

	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing registry temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
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

	previous, existed := s.entries[entry.ID]
	s.entries[entry.ID] = entry

	if err := s.persist(); err != nil {
		// Roll the in-memory state back so memory and disk agree.
		if existed {
			s.entries[entry.ID] = previous
		} else {
			delete(s.entries, entry.ID)
		}
		return err
	}
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
	return &entry, nil
}

// FindByFingerprint retrieves the active entry with the fingerprint.
func (s *Store) FindByFingerprint(_ context.Context, fingerprint string) (*domain.DocumentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if entry.Fingerprint == fingerprint {
			found := entry
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

	entry, ok := s.entries[docID]
	if !ok {
		return domain.ErrNotFound
	}

	delete(s.entries, docID)
	if err := s.persist(); err != nil {
		s.entries[docID] = entry
		return err
	}
	return nil
}

// DeleteAll removes every entry.
func (s *Store) DeleteAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.entries)
	previous := s.entries
	s.entries = make(map[string]domain.DocumentEntry)

	if err := s.persist(); err != nil {
		s.entries = previous
		return 0, err
	}
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

	blob, err := json.Marshal(registryFile{
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
	var rf registryFile
	if err := json.Unmarshal(blob, &rf); err != nil {
		return fmt.Errorf("parsing registry import: %w", err)
	}
	if rf.Version != formatVersion {
		return fmt.Errorf("unsupported registry version %d: %w", rf.Version, domain.ErrInvalidInput)
	}

	entries := make(map[string]domain.DocumentEntry, len(rf.Documents))
	for _, entry := range rf.Documents {
		if entry.ID == "" {
			return fmt.Errorf("imported entry without ID: %w", domain.ErrInvalidInput)
		}
		entries[entry.ID] = entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.entries
	s.entries = entries
	if err := s.persist(); err != nil {
		s.entries = previous
		return err
	}
	return nil
}

// Close releases resources. The file store holds no open handles.
func (s *Store) Close() error {
	return nil
}
