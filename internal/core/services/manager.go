package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
	"github.com/quarry-labs/recall/internal/core/ports/driving"
	"github.com/quarry-labs/recall/internal/fingerprint"
	"github.com/quarry-labs/recall/internal/logger"
)

// Ensure Manager implements the interface.
var _ driving.MemoryService = (*Manager)(nil)

// DefaultHealthThreshold is the similarity a probe's top hit must
// reach for the probe to pass.
const DefaultHealthThreshold = 0.35

// DefaultBackupRetention is how many snapshots explicit backups keep.
const DefaultBackupRetention = 5

// embedRetryDelay is the pause before the single embed retry.
const embedRetryDelay = 500 * time.Millisecond

// snapshotFormatVersion is written into every captured manifest.
const snapshotFormatVersion = 1

// Splitter cuts extracted text into embedding-sized chunks.
// chunker.Chunker satisfies it.
type Splitter interface {
	Split(docID, text string) ([]domain.Chunk, error)
}

// Manager orchestrates the document memory store: extraction,
// chunking, embedding, indexing, registry bookkeeping, and backups.
// Mutations hold the write lock; queries share the read lock. A single
// ingest embeds outside the write lock, a replace batch holds it for
// the whole run.
type Manager struct {
	mu sync.RWMutex

	index      driven.VectorIndex
	registry   driven.RegistryStore
	embedder   driven.EmbeddingService
	backups    driven.BackupStore
	splitter   Splitter
	extractors map[domain.FileType]driven.Extractor

	threshold float64
	retention int
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithHealthThreshold sets the probe similarity cutoff.
// Non-positive values keep the default.
func WithHealthThreshold(threshold float64) Option {
	return func(m *Manager) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// WithBackupRetention sets how many snapshots CreateBackup keeps when
// pruning. Non-positive values keep the default.
func WithBackupRetention(keep int) Option {
	return func(m *Manager) {
		if keep > 0 {
			m.retention = keep
		}
	}
}

// WithClock sets the time source. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates the memory manager. Extractors are registered
// under the file type they report; a later extractor wins a collision.
func NewManager(
	index driven.VectorIndex,
	registry driven.RegistryStore,
	embedder driven.EmbeddingService,
	backups driven.BackupStore,
	splitter Splitter,
	extractors []driven.Extractor,
	opts ...Option,
) *Manager {
	m := &Manager{
		index:      index,
		registry:   registry,
		embedder:   embedder,
		backups:    backups,
		splitter:   splitter,
		extractors: make(map[domain.FileType]driven.Extractor, len(extractors)),
		threshold:  DefaultHealthThreshold,
		retention:  DefaultBackupRetention,
		now:        time.Now,
	}
	for _, e := range extractors {
		m.extractors[e.FileType()] = e
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open runs the load-time integrity check: every chunk the registry
// references must exist in the index. On disagreement it attempts a
// restore of the most recent snapshot. The report describes what was
// found either way; corruption that could not be repaired returns the
// report together with an ErrIndexCorrupted-wrapped error.
func (m *Manager) Open(ctx context.Context) (*domain.RecoveryReport, error) {
	logger.Section("Store Open")

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.registry.List(ctx, domain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing registry: %w", err)
	}
	referenced := 0
	for _, entry := range entries {
		referenced += len(entry.ChunkIDs)
	}

	report := &domain.RecoveryReport{}

	indexed, err := m.index.Count(ctx)
	switch {
	case err != nil:
		report.Corrupted = true
		report.Detail = fmt.Sprintf("index backend failed to load: %v", err)
	case indexed != referenced:
		report.Corrupted = true
		report.Detail = fmt.Sprintf("registry references %d chunks, index holds %d", referenced, indexed)
	}

	if !report.Corrupted {
		logger.Debug("Integrity check passed: %d chunks", indexed)
		return report, nil
	}
	logger.Warn("Integrity check failed: %s", report.Detail)

	latest, err := m.backups.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		report.Detail += "; no snapshot available for recovery"
		return report, fmt.Errorf("%s: %w", report.Detail, domain.ErrIndexCorrupted)
	}
	if err != nil {
		report.Detail += fmt.Sprintf("; finding latest snapshot failed: %v", err)
		return report, fmt.Errorf("%s: %w", report.Detail, domain.ErrIndexCorrupted)
	}

	payload, err := m.backups.Load(ctx, latest.ID)
	if err != nil {
		report.Detail += fmt.Sprintf("; loading snapshot %s failed: %v", latest.ID, err)
		return report, fmt.Errorf("%s: %w", report.Detail, domain.ErrIndexCorrupted)
	}
	if err := m.restoreLocked(ctx, payload); err != nil {
		report.Detail += fmt.Sprintf("; restore failed: %v", err)
		return report, fmt.Errorf("%s: %w", report.Detail, domain.ErrIndexCorrupted)
	}

	report.Restored = true
	report.SnapshotID = latest.ID
	report.Detail += fmt.Sprintf("; restored snapshot %s", latest.ID)
	logger.Info("Recovered from snapshot %s", latest.ID)
	return report, nil
}

// Ingest stores one uploaded file. Duplicate content is rejected
// before any embedding happens; a registry failure after indexing is
// compensated by removing the just-added chunks.
func (m *Manager) Ingest(ctx context.Context, file domain.FileUpload) (*domain.IngestReceipt, error) {
	logger.Section("Document Ingest")

	prep, err := m.prepareUpload(ctx, file)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	existing, err := m.findDuplicate(ctx, prep.fingerprint)
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Info("Rejected %s: duplicate of %s", prep.filename, existing.Filename)
		return nil, duplicateError(existing)
	}

	// Chunk and embed outside the write lock; only the commit is
	// exclusive.
	docID := uuid.New().String()
	chunks, err := m.splitAndEmbed(ctx, docID, prep.text)
	if err != nil {
		return nil, fmt.Errorf("preparing %s: %w", prep.filename, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(ctx, docID, prep, chunks)
}

// Query embeds the text and returns the k best chunks with their
// source document metadata. Chunks whose document has vanished from
// the registry are dropped from the result.
func (m *Manager) Query(ctx context.Context, text string, k int) ([]domain.QueryHit, error) {
	logger.Section("Memory Query")

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d: %w", k, domain.ErrInvalidInput)
	}
	logger.Debug("Query: %q, k=%d", text, k)

	vectors, err := m.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits, err := m.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	results := make([]domain.QueryHit, 0, len(hits))
	for _, hit := range hits {
		entry, err := m.registry.Get(ctx, hit.Chunk.DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Dropping chunk %s: document %s no longer registered", hit.Chunk.ID, hit.Chunk.DocumentID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading document %s: %w", hit.Chunk.DocumentID, err)
		}
		results = append(results, domain.QueryHit{
			Chunk:    hit.Chunk,
			Score:    hit.Similarity,
			Filename: entry.Filename,
			FileType: entry.FileType,
		})
	}

	logger.Debug("Returning %d of %d hits", len(results), len(hits))
	return results, nil
}

// RemoveDocuments removes documents by ID with a per-ID outcome. Once
// at least one requested ID resolves to a document, an implicit
// snapshot is captured before anything is deleted; a failed capture
// aborts the removal. The chunk IDs of every known document are
// deleted in one index call; only when that batch fails does it fall
// back to per-document deletes so one bad document cannot block the
// rest. A document whose chunks could not be deleted keeps its
// registry entry.
func (m *Manager) RemoveDocuments(ctx context.Context, docIDs []string) (*domain.RemovalReport, error) {
	logger.Section("Document Removal")

	report := &domain.RemovalReport{Outcomes: make([]domain.RemovalOutcome, 0, len(docIDs))}
	if len(docIDs) == 0 {
		return report, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	type target struct {
		entry *domain.DocumentEntry
		slot  int
	}
	var targets []target
	var union []string
	seen := make(map[string]bool, len(docIDs))

	for _, id := range docIDs {
		outcome := domain.RemovalOutcome{DocumentID: id}
		if seen[id] {
			outcome.Status = domain.RemovalNotFound
			outcome.Reason = "already removed in this request"
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}
		seen[id] = true

		entry, err := m.registry.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			outcome.Status = domain.RemovalNotFound
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading document %s: %w", id, err)
		}

		report.Outcomes = append(report.Outcomes, outcome)
		targets = append(targets, target{entry: entry, slot: len(report.Outcomes) - 1})
		union = append(union, entry.ChunkIDs...)
	}

	if len(targets) == 0 {
		return report, nil
	}

	label := "pre-remove-" + m.now().UTC().Format(time.RFC3339)
	manifest, err := m.captureLocked(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("capturing pre-remove snapshot: %w", err)
	}
	report.SnapshotID = manifest.ID

	batchErr := m.index.Delete(ctx, union)
	if batchErr != nil {
		logger.Warn("Batch delete of %d chunks failed, falling back to per-document deletes: %v", len(union), batchErr)
	}

	for _, t := range targets {
		outcome := &report.Outcomes[t.slot]
		if batchErr != nil {
			if err := m.index.Delete(ctx, t.entry.ChunkIDs); err != nil {
				outcome.Status = domain.RemovalFailed
				outcome.Reason = err.Error()
				continue
			}
		}
		if err := m.registry.Delete(ctx, t.entry.ID); err != nil {
			logger.Warn("Registry delete failed for %s after its chunks were removed: %v", t.entry.ID, err)
			outcome.Status = domain.RemovalFailed
			outcome.Reason = err.Error()
			continue
		}
		outcome.Status = domain.RemovalRemoved
		report.Removed++
	}

	logger.Info("Removed %d of %d requested documents, snapshot %s", report.Removed, len(docIDs), manifest.ID)
	return report, nil
}

// ClearAll captures an implicit timestamped snapshot and then wipes
// the index and the registry. A failed capture aborts the clear.
func (m *Manager) ClearAll(ctx context.Context) (*domain.ClearReport, error) {
	logger.Section("Clear All")

	m.mu.Lock()
	defer m.mu.Unlock()

	label := "pre-clear-" + m.now().UTC().Format(time.RFC3339)
	manifest, err := m.captureLocked(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("capturing pre-clear snapshot: %w", err)
	}

	chunksRemoved, err := m.index.Clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("clearing index: %w", err)
	}
	docsRemoved, err := m.registry.DeleteAll(ctx)
	if err != nil {
		logger.Warn("Registry clear failed after the index was emptied: %v", err)
		return nil, fmt.Errorf("clearing registry: %w", err)
	}

	logger.Info("Cleared %d documents (%d chunks), snapshot %s", docsRemoved, chunksRemoved, manifest.ID)
	return &domain.ClearReport{
		SnapshotID:       manifest.ID,
		DocumentsRemoved: docsRemoved,
		ChunksRemoved:    chunksRemoved,
	}, nil
}

// ReplaceAll swaps the store contents for the given batch under one
// write lock: implicit snapshot, wipe, then sequential ingest. A
// per-file failure is recorded and the batch continues. Cancellation
// is honoured between files; earlier files stay committed and the
// remainder is marked skipped.
func (m *Manager) ReplaceAll(ctx context.Context, files []domain.FileUpload) (*domain.ReplaceReport, error) {
	logger.Section("Replace All")

	if len(files) == 0 {
		return nil, fmt.Errorf("no files given: %w", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	label := "pre-replace-" + m.now().UTC().Format(time.RFC3339)
	manifest, err := m.captureLocked(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("capturing pre-replace snapshot: %w", err)
	}

	if _, err := m.index.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clearing index: %w", err)
	}
	if _, err := m.registry.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clearing registry: %w", err)
	}

	report := &domain.ReplaceReport{
		SnapshotID: manifest.ID,
		Files:      make([]domain.FileOutcome, 0, len(files)),
	}

	for i, file := range files {
		if ctx.Err() != nil {
			logger.Warn("Replace cancelled after %d of %d files", i, len(files))
			for _, rest := range files[i:] {
				report.Files = append(report.Files, domain.FileOutcome{Filename: rest.Filename, Skipped: true})
			}
			break
		}

		outcome := m.replaceOne(ctx, file)
		report.Files = append(report.Files, outcome)
		if outcome.Receipt != nil {
			report.Ingested++
		} else {
			report.Failed++
		}
	}

	logger.Info("Replaced store contents: %d ingested, %d failed, snapshot %s",
		report.Ingested, report.Failed, manifest.ID)
	return report, nil
}

// ListDocuments returns active registry entries passing the filter.
func (m *Manager) ListDocuments(ctx context.Context, filter domain.ListFilter) ([]domain.DocumentEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.List(ctx, filter)
}

// Stats summarises the store.
func (m *Manager) Stats(ctx context.Context) (*domain.StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docCount, err := m.registry.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	chunkCount, err := m.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	storageBytes, err := m.index.StorageBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("sizing index: %w", err)
	}

	return &domain.StoreStats{
		DocumentCount: docCount,
		ChunkCount:    chunkCount,
		BackendType:   m.index.BackendType(),
		StorageBytes:  storageBytes,
	}, nil
}

// HealthCheck pings the embedder and runs each probe through the live
// retrieval path. A probe passes when its top hit reaches the
// threshold; against an empty store every probe fails.
func (m *Manager) HealthCheck(ctx context.Context, probes []string) (*domain.HealthReport, error) {
	logger.Section("Health Check")

	report := &domain.HealthReport{
		Probes:    make([]domain.ProbeResult, 0, len(probes)),
		Threshold: m.threshold,
	}

	if err := m.embedder.Ping(ctx); err != nil {
		logger.Warn("Embedder ping failed: %v", err)
	} else {
		report.EmbedderOK = true
	}

	for _, probe := range probes {
		report.Probes = append(report.Probes, m.runProbe(ctx, probe))
	}
	return report, nil
}

// CreateBackup captures a consistent snapshot under the label, or a
// generated "backup-<timestamp>" label when none is given, and prunes
// the store to the retention count.
func (m *Manager) CreateBackup(ctx context.Context, label string) (*domain.SnapshotManifest, error) {
	logger.Section("Backup")

	if strings.TrimSpace(label) == "" {
		label = "backup-" + m.now().UTC().Format(time.RFC3339)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	manifest, err := m.captureLocked(ctx, label)
	if err != nil {
		return nil, err
	}

	// Retention applies to explicit backups only; the implicit
	// pre-remove, pre-clear and pre-replace snapshots never trigger
	// a prune.
	removed, err := m.backups.Prune(ctx, m.retention)
	if err != nil {
		logger.Warn("Pruning backups to %d failed: %v", m.retention, err)
	} else if len(removed) > 0 {
		logger.Debug("Pruned %d snapshots past retention %d", len(removed), m.retention)
	}

	return manifest, nil
}

// ListBackups returns stored snapshot manifests, newest first.
func (m *Manager) ListBackups(ctx context.Context) ([]domain.SnapshotManifest, error) {
	return m.backups.List(ctx)
}

// PruneBackups keeps the newest keep snapshots and deletes the rest.
// The live store is untouched, so no store lock is taken.
func (m *Manager) PruneBackups(ctx context.Context, keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d: %w", keep, domain.ErrInvalidInput)
	}
	removed, err := m.backups.Prune(ctx, keep)
	if err != nil {
		return nil, fmt.Errorf("pruning backups: %w", err)
	}
	if len(removed) > 0 {
		logger.Info("Pruned %d snapshots past retention %d", len(removed), keep)
	}
	return removed, nil
}

// RestoreBackup swaps live state for the snapshot. Validation and the
// swap order guarantee the pre-restore state stays live on failure.
func (m *Manager) RestoreBackup(ctx context.Context, id string) error {
	logger.Section("Restore")

	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("empty snapshot id: %w", domain.ErrInvalidInput)
	}

	payload, err := m.backups.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreLocked(ctx, payload)
}

// Close releases the index, registry, and embedder.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing index: %w", err))
	}
	if err := m.registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing registry: %w", err))
	}
	if err := m.embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing embedder: %w", err))
	}
	return errors.Join(errs...)
}

// preparedUpload carries the extraction products of one upload into
// the locked commit step.
type preparedUpload struct {
	filename    string
	fileType    domain.FileType
	text        string
	fingerprint string
	byteSize    int64
}

// prepareUpload validates the upload and extracts its text. No locks
// are taken; nothing here touches store state.
func (m *Manager) prepareUpload(ctx context.Context, file domain.FileUpload) (preparedUpload, error) {
	var prep preparedUpload

	filename := strings.TrimSpace(file.Filename)
	if filename == "" {
		return prep, fmt.Errorf("empty filename: %w", domain.ErrInvalidInput)
	}
	if len(file.Content) == 0 {
		return prep, fmt.Errorf("%s is empty: %w", filename, domain.ErrInvalidInput)
	}

	fileType, err := domain.FileTypeFromName(filename)
	if err != nil {
		return prep, fmt.Errorf("%s: %w", filename, err)
	}
	extractor, ok := m.extractors[fileType]
	if !ok {
		return prep, fmt.Errorf("no extractor registered for %s files: %w", fileType, domain.ErrUnsupportedType)
	}

	text, err := extractor.Extract(ctx, filename, file.Content)
	if err != nil {
		return prep, fmt.Errorf("extracting %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return prep, fmt.Errorf("%s contains no extractable text: %w", filename, domain.ErrInvalidInput)
	}

	prep = preparedUpload{
		filename:    filename,
		fileType:    fileType,
		text:        text,
		fingerprint: fingerprint.Sum(text),
		byteSize:    int64(len(file.Content)),
	}
	logger.Debug("Prepared %s: type=%s, %d bytes, fingerprint %.12s", filename, fileType, prep.byteSize, prep.fingerprint)
	return prep, nil
}

// findDuplicate returns the active entry sharing the fingerprint, or
// nil when the content is new. The caller holds a lock.
func (m *Manager) findDuplicate(ctx context.Context, fp string) (*domain.DocumentEntry, error) {
	existing, err := m.registry.FindByFingerprint(ctx, fp)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking fingerprint: %w", err)
	}
	return existing, nil
}

func duplicateError(existing *domain.DocumentEntry) error {
	return fmt.Errorf("content matches %s (%s): %w", existing.Filename, existing.ID, domain.ErrDuplicateContent)
}

// splitAndEmbed chunks the text and attaches one embedding per chunk,
// produced by a single batch call.
func (m *Manager) splitAndEmbed(ctx context.Context, docID, text string) ([]domain.Chunk, error) {
	chunks, err := m.splitter.Split(docID, text)
	if err != nil {
		return nil, err
	}
	logger.Debug("Split into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := m.embedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return chunks, nil
}

// embedTexts embeds a batch, retrying exactly once after a short
// backoff. A second failure surfaces ErrEmbeddingUnavailable.
func (m *Manager) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("Embedding failed, retrying once: %v", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(embedRetryDelay):
		}
		vectors, err = m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding service failed twice: %s: %w", err, domain.ErrEmbeddingUnavailable)
		}
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts: %w", len(vectors), len(texts), domain.ErrEmbedding)
	}
	return vectors, nil
}

// commitLocked re-checks the fingerprint and writes the chunks and the
// registry entry. The caller holds the write lock. A registry failure
// after a successful index add is compensated by deleting the chunks
// again before reporting the error.
func (m *Manager) commitLocked(ctx context.Context, docID string, prep preparedUpload, chunks []domain.Chunk) (*domain.IngestReceipt, error) {
	// Another writer may have stored the same content while this
	// ingest was embedding.
	existing, err := m.findDuplicate(ctx, prep.fingerprint)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicateError(existing)
	}

	if err := m.index.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", prep.filename, err)
	}

	chunkIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
	}

	entry := domain.DocumentEntry{
		ID:          docID,
		Filename:    prep.filename,
		Fingerprint: prep.fingerprint,
		FileType:    prep.fileType,
		ChunkIDs:    chunkIDs,
		ByteSize:    prep.byteSize,
		IngestedAt:  m.now().UTC(),
	}
	if err := m.registry.Save(ctx, entry); err != nil {
		logger.Warn("Registry save failed for %s, removing %d indexed chunks: %v", prep.filename, len(chunkIDs), err)
		if delErr := m.index.Delete(ctx, chunkIDs); delErr != nil {
			logger.Warn("Compensating delete failed, index holds %d orphaned chunks: %v", len(chunkIDs), delErr)
		}
		return nil, fmt.Errorf("registering %s: %s: %w", prep.filename, err, domain.ErrIndexOperation)
	}

	logger.Info("Ingested %s: %d chunks", prep.filename, len(chunks))
	return &domain.IngestReceipt{
		DocumentID:  docID,
		Filename:    prep.filename,
		FileType:    prep.fileType,
		ChunkCount:  len(chunks),
		Fingerprint: prep.fingerprint,
		ByteSize:    prep.byteSize,
		IngestedAt:  entry.IngestedAt,
	}, nil
}

// replaceOne ingests a single file of a replace batch. The caller
// holds the write lock for the whole batch, so unlike Ingest the
// embedding happens inside the lock.
func (m *Manager) replaceOne(ctx context.Context, file domain.FileUpload) domain.FileOutcome {
	outcome := domain.FileOutcome{Filename: file.Filename}

	prep, err := m.prepareUpload(ctx, file)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}

	// In-batch duplicate probe, still ahead of any embedding.
	existing, err := m.findDuplicate(ctx, prep.fingerprint)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}
	if existing != nil {
		outcome.Err = duplicateError(existing).Error()
		return outcome
	}

	docID := uuid.New().String()
	chunks, err := m.splitAndEmbed(ctx, docID, prep.text)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}

	receipt, err := m.commitLocked(ctx, docID, prep, chunks)
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}
	outcome.Receipt = receipt
	return outcome
}

// runProbe embeds one probe and checks its best hit against the
// threshold. One embed attempt, no retry.
func (m *Manager) runProbe(ctx context.Context, probe string) domain.ProbeResult {
	result := domain.ProbeResult{Probe: probe}

	vector, err := m.embedder.Embed(ctx, probe)
	if err != nil {
		logger.Warn("Probe %q: embed failed: %v", probe, err)
		return result
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits, err := m.index.Search(ctx, vector, 1)
	if err != nil {
		logger.Warn("Probe %q: search failed: %v", probe, err)
		return result
	}
	if len(hits) == 0 {
		return result
	}

	top := hits[0]
	result.TopScore = top.Similarity
	result.Passed = top.Similarity >= m.threshold
	if entry, err := m.registry.Get(ctx, top.Chunk.DocumentID); err == nil {
		result.Matched = entry.Filename
	}
	return result
}

// captureLocked snapshots the index and exports the registry under
// the lock the caller already holds, then hands both blobs and a
// fresh manifest to the backup store.
func (m *Manager) captureLocked(ctx context.Context, label string) (*domain.SnapshotManifest, error) {
	indexBlob, err := m.index.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting index: %w", err)
	}
	registryBlob, err := m.registry.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting registry: %w", err)
	}

	docCount, err := m.registry.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	chunkCount, err := m.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	dims, err := m.index.Dimensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index dimensions: %w", err)
	}

	manifest, err := m.backups.Capture(ctx, driven.SnapshotPayload{
		Manifest: domain.SnapshotManifest{
			ID:            uuid.New().String(),
			Label:         label,
			CreatedAt:     m.now().UTC(),
			BackendType:   m.index.BackendType(),
			DocumentCount: docCount,
			ChunkCount:    chunkCount,
			EmbeddingDims: dims,
			FormatVersion: snapshotFormatVersion,
		},
		IndexBlob:    indexBlob,
		RegistryBlob: registryBlob,
	})
	if err != nil {
		return nil, fmt.Errorf("capturing snapshot: %w", err)
	}

	logger.Debug("Captured snapshot %s (%q): %d documents, %d chunks", manifest.ID, label, docCount, chunkCount)
	return manifest, nil
}

// restoreLocked swaps live state for the snapshot payload. The caller
// holds the write lock. The registry is swapped first so that an index
// failure can roll it back from the pre-restore export; a registry
// import failure changes nothing at all.
func (m *Manager) restoreLocked(ctx context.Context, payload *driven.SnapshotPayload) error {
	manifest := payload.Manifest

	if manifest.BackendType != m.index.BackendType() {
		return fmt.Errorf("snapshot %s was taken from a %s backend, live backend is %s: %w",
			manifest.ID, manifest.BackendType, m.index.BackendType(), domain.ErrInvalidInput)
	}
	if manifest.EmbeddingDims != 0 && manifest.EmbeddingDims != m.embedder.Dimensions() {
		return fmt.Errorf("snapshot %s holds %d-dimensional vectors, embedder produces %d: %w",
			manifest.ID, manifest.EmbeddingDims, m.embedder.Dimensions(), domain.ErrDimensionMismatch)
	}

	previous, err := m.registry.Export(ctx)
	if err != nil {
		return fmt.Errorf("exporting pre-restore registry: %w", err)
	}

	if err := m.registry.Import(ctx, payload.RegistryBlob); err != nil {
		return fmt.Errorf("restoring registry from %s: %w", manifest.ID, err)
	}
	if err := m.index.Restore(ctx, payload.IndexBlob); err != nil {
		if rbErr := m.registry.Import(ctx, previous); rbErr != nil {
			logger.Warn("Registry rollback failed after index restore error: %v", rbErr)
		}
		return fmt.Errorf("restoring index from %s: %w", manifest.ID, err)
	}

	if count, err := m.index.Count(ctx); err == nil && count != manifest.ChunkCount {
		logger.Warn("Restored index holds %d chunks, manifest recorded %d", count, manifest.ChunkCount)
	}

	logger.Info("Restored snapshot %s (%q): %d documents, %d chunks",
		manifest.ID, manifest.Label, manifest.DocumentCount, manifest.ChunkCount)
	return nil
}
