package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type outside the pdf/txt/docx set.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrDuplicateContent indicates content whose fingerprint already exists
	// in the registry. Informational: the caller is pointed at the existing
	// document rather than failing the store.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrChunking indicates the chunker could not split the input,
	// either because of invalid configuration or empty text.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbedding indicates the embedding provider returned a failure
	// or malformed response for a specific request.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmbeddingUnavailable indicates the embedding service could not be
	// reached even after retry. Retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexOperation indicates an index backend mutation failed.
	ErrIndexOperation = errors.New("index operation failed")

	// ErrIndexCorrupted indicates the index and registry disagree or the
	// backend failed its load-time check. Recovery restores the most
	// recent snapshot.
	ErrIndexCorrupted = errors.New("index corrupted")

	// ErrSnapshot indicates a backup capture or restore failed.
	// A failed restore leaves the pre-restore state untouched.
	ErrSnapshot = errors.New("snapshot operation failed")

	// ErrDimensionMismatch indicates a vector whose dimensionality differs
	// from the vectors already held by the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store closed")
)
