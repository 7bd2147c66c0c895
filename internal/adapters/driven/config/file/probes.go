package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// probesFile is the filename inside the config directory.
const probesFile = "probes.txt"

// defaultProbes seed the file so a fresh install has something to run.
// They are generic on purpose: any study corpus should score on at
// least one of them once documents are ingested.
var defaultProbes = []string{
	"What are the main topics covered in these documents?",
	"What key terms are defined?",
	"What examples or case studies are given?",
}

// ProbeStore keeps the saved health probes in a user-editable file,
// one probe question per line. Lines starting with '#' are comments.
//
// The store uses lazy initialisation - the file is only created when
// first accessed, not in the constructor. This makes testing easier
// and avoids unexpected I/O.
type ProbeStore struct {
	mu       sync.Mutex
	path     string
	initOnce sync.Once
	initErr  error
}

// NewProbeStore creates a probe store rooted in configDir. No I/O
// happens until the first Load or Add.
func NewProbeStore(configDir string) *ProbeStore {
	return &ProbeStore{
		path: filepath.Join(configDir, probesFile),
	}
}

// Load returns the saved probes in file order. On first call the file
// is created with the default probes.
func (s *ProbeStore) Load() ([]string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return nil, fmt.Errorf("probe store init failed: %w", s.initErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading probes: %w", err)
	}

	var probes []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		probes = append(probes, line)
	}
	return probes, nil
}

// Add appends a probe to the file. Probes already present are left
// alone, so saving the same probe twice is harmless.
func (s *ProbeStore) Add(probe string) error {
	probe = strings.TrimSpace(probe)
	if probe == "" {
		return errors.New("probe must not be empty")
	}
	if strings.ContainsAny(probe, "\r\n") {
		return errors.New("probe must be a single line")
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fmt.Errorf("probe store init failed: %w", s.initErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading probes: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == probe {
			return nil
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening probes for append: %w", err)
	}
	defer f.Close() //nolint:errcheck // Close error after successful write is benign

	if len(data) > 0 && data[len(data)-1] != '\n' {
		probe = "\n" + probe
	}
	if _, err := f.WriteString(probe + "\n"); err != nil {
		return fmt.Errorf("appending probe: %w", err)
	}
	return nil
}

// Path returns the probes file path.
func (s *ProbeStore) Path() string {
	return s.path
}

// initialise creates the config directory and seeds the probes file.
// Called once on first access.
func (s *ProbeStore) initialise() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.initErr = fmt.Errorf("create config directory: %w", err)
		return
	}

	if _, err := os.Stat(s.path); err == nil {
		return
	} else if !os.IsNotExist(err) {
		s.initErr = fmt.Errorf("stat probes file: %w", err)
		return
	}

	var b strings.Builder
	b.WriteString("# Saved health probes for 'recall health'.\n")
	b.WriteString("# One probe question per line; lines starting with '#' are ignored.\n")
	for _, probe := range defaultProbes {
		b.WriteString(probe)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0600); err != nil {
		s.initErr = fmt.Errorf("create probes file: %w", err)
	}
}
