package domain

import "time"

// IngestReceipt is returned after a successful ingest.
type IngestReceipt struct {
	// DocumentID is the ID assigned to the stored document.
	DocumentID string `json:"document_id"`

	// Filename is the original filename.
	Filename string `json:"filename"`

	// FileType is the detected format.
	FileType FileType `json:"file_type"`

	// ChunkCount is how many chunks the document produced.
	ChunkCount int `json:"chunk_count"`

	// Fingerprint is the content hash used for deduplication.
	Fingerprint string `json:"fingerprint"`

	// ByteSize is the uploaded content size.
	ByteSize int64 `json:"byte_size"`

	// IngestedAt is when the document was committed.
	IngestedAt time.Time `json:"ingested_at"`
}

// RemovalStatus classifies the outcome for one document in a removal.
type RemovalStatus string

const (
	// RemovalRemoved means index entries and registry record are gone.
	RemovalRemoved RemovalStatus = "removed"
	// RemovalNotFound means the ID matched no active document.
	RemovalNotFound RemovalStatus = "not_found"
	// RemovalFailed means the index delete failed; the registry record
	// was kept so the store stays consistent.
	RemovalFailed RemovalStatus = "failed"
)

// RemovalOutcome is the per-document result of RemoveDocuments.
type RemovalOutcome struct {
	DocumentID string        `json:"document_id"`
	Status     RemovalStatus `json:"status"`
	Reason     string        `json:"reason,omitempty"`
}

// RemovalReport summarises a RemoveDocuments call.
type RemovalReport struct {
	// SnapshotID is the implicit pre-remove snapshot. Empty when no
	// requested ID matched a document and nothing was deleted.
	SnapshotID string `json:"snapshot_id,omitempty"`

	// Outcomes holds one entry per requested ID, in request order.
	Outcomes []RemovalOutcome `json:"outcomes"`

	// Removed is the count of successfully removed documents.
	Removed int `json:"removed"`
}

// ClearReport summarises a ClearAll call.
type ClearReport struct {
	// SnapshotID is the implicit pre-clear snapshot.
	SnapshotID string `json:"snapshot_id"`

	// DocumentsRemoved and ChunksRemoved count what was wiped.
	DocumentsRemoved int `json:"documents_removed"`
	ChunksRemoved    int `json:"chunks_removed"`
}

// FileOutcome is the per-file result of a ReplaceAll batch.
type FileOutcome struct {
	Filename string `json:"filename"`

	// Receipt is set when the file ingested successfully.
	Receipt *IngestReceipt `json:"receipt,omitempty"`

	// Err is the failure reason, empty on success.
	Err string `json:"error,omitempty"`

	// Skipped is true when cancellation stopped the batch before
	// this file was attempted.
	Skipped bool `json:"skipped,omitempty"`
}

// ReplaceReport summarises a ReplaceAll call. A partially failed batch
// still succeeds overall; failed files are listed with reasons.
type ReplaceReport struct {
	// SnapshotID is the implicit pre-replace snapshot.
	SnapshotID string `json:"snapshot_id"`

	// Files holds one outcome per submitted file, in order.
	Files []FileOutcome `json:"files"`

	// Ingested is the count of files stored successfully.
	Ingested int `json:"ingested"`

	// Failed is the count of files that could not be stored.
	Failed int `json:"failed"`
}

// ProbeResult is the outcome of one health probe query.
type ProbeResult struct {
	// Probe is the probe text.
	Probe string `json:"probe"`

	// Passed is true when the top hit met the similarity threshold.
	Passed bool `json:"passed"`

	// TopScore is the best similarity found, 0 when the store is empty.
	TopScore float64 `json:"top_score"`

	// Matched is the filename of the top hit, empty when none.
	Matched string `json:"matched,omitempty"`
}

// HealthReport summarises a HealthCheck call.
type HealthReport struct {
	// EmbedderOK is true when the embedding service answered a ping.
	EmbedderOK bool `json:"embedder_ok"`

	// Probes holds per-probe outcomes, in request order.
	Probes []ProbeResult `json:"probes"`

	// Threshold is the similarity cutoff applied to the probes.
	Threshold float64 `json:"threshold"`
}

// FileUpload is one file submitted to Ingest or ReplaceAll.
type FileUpload struct {
	// Filename is the original name, used for type detection.
	Filename string

	// Content is the raw file bytes.
	Content []byte
}
