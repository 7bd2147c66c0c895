// Package watch drives the memory service from filesystem events: it
// observes one directory and ingests supported files as they appear or
// change, and removes their documents when the files disappear. Bursts
// of write events for the same file are debounced into a single ingest.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driving"
	"github.com/quarry-labs/recall/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is
// ingested. Editors and downloads touch a file several times in quick
// succession; debouncing folds that into one ingest of the final state.
const DefaultDebounce = 500 * time.Millisecond

// kind classifies what a filesystem event means for the store.
type kind int

const (
	kindSkip kind = iota
	kindIngest
	kindRemove
)

// Watcher ingests documents from a watched directory.
type Watcher struct {
	memory   driving.MemoryService
	dir      string
	debounce time.Duration
	initial  bool

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a changed file is
// ingested. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithInitialScan makes Run ingest the files already present in the
// directory before waiting for events.
func WithInitialScan(scan bool) Option {
	return func(w *Watcher) {
		w.initial = scan
	}
}

// New creates a watcher over dir. The directory must exist.
func New(memory driving.MemoryService, dir string, opts ...Option) (*Watcher, error) {
	if memory == nil {
		return nil, errors.New("watch: memory service is required")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", dir)
	}

	w := &Watcher{
		memory:   memory,
		dir:      dir,
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches the directory until the context is cancelled. Events for
// unsupported or hidden files are ignored. Returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			logger.Warn("Closing watcher: %v", err)
		}
		w.stopTimers()
	}()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Info("Watching %s", w.dir)

	if w.initial {
		w.scanExisting(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			switch classify(event) {
			case kindIngest:
				w.scheduleIngest(event.Name)
			case kindRemove:
				w.cancelPending(event.Name)
				w.removeByName(ctx, filepath.Base(event.Name))
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case path := <-w.ready:
			w.ingestFile(ctx, path)
		}
	}
}

// classify maps a filesystem event to the store action it implies.
// Hidden files, directories, and unsupported extensions are skipped.
func classify(event fsnotify.Event) kind {
	if isHidden(event.Name) {
		return kindSkip
	}
	if _, err := domain.FileTypeFromName(event.Name); err != nil {
		return kindSkip
	}

	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		// A removed path cannot be stat'ed, so the directory check
		// only applies here.
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return kindSkip
		}
		return kindIngest
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		return kindRemove
	default:
		return kindSkip
	}
}

// isHidden reports whether any path element starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// scheduleIngest (re)arms the debounce timer for the path. The path is
// ingested once no further events arrive within the quiet period.
func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		default:
			logger.Warn("Dropping change for %s: ingest queue full", path)
		}
	})
}

// cancelPending drops a not-yet-fired debounce timer for the path.
func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

// stopTimers stops every armed timer. Called on shutdown.
func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// scanExisting ingests the supported files already in the directory.
func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("Initial scan of %s failed: %v", w.dir, err)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		if _, err := domain.FileTypeFromName(entry.Name()); err != nil {
			continue
		}
		w.ingestFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// ingestFile reads the path and stores it. Duplicate content and
// vanished files are normal here, not failures.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("Skipping %s: %v", path, err)
		return
	}

	receipt, err := w.memory.Ingest(ctx, domain.FileUpload{
		Filename: filepath.Base(path),
		Content:  content,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateContent):
		logger.Debug("Skipping %s: content already stored", path)
	case err != nil:
		logger.Warn("Ingesting %s failed: %v", path, err)
	default:
		logger.Info("Ingested %s: %d chunks", receipt.Filename, receipt.ChunkCount)
	}
}

// removeByName removes every document whose filename matches name.
// Under replace-by-save workflows there is at most one.
func (w *Watcher) removeByName(ctx context.Context, name string) {
	docs, err := w.memory.ListDocuments(ctx, domain.ListFilter{NameContains: name})
	if err != nil {
		logger.Warn("Looking up %s for removal failed: %v", name, err)
		return
	}

	var ids []string
	for _, doc := range docs {
		if doc.Filename == name {
			ids = append(ids, doc.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	report, err := w.memory.RemoveDocuments(ctx, ids)
	if err != nil {
		logger.Warn("Removing %s failed: %v", name, err)
		return
	}
	logger.Info("Removed %d documents for deleted file %s", report.Removed, name)
}
