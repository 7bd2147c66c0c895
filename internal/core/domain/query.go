package domain

// QueryHit is a single retrieval result: a chunk, its similarity to
// the query, and the registry metadata of its source document.
type QueryHit struct {
	// Chunk is the matched chunk. Its Embedding is not populated
	// on the read path.
	Chunk Chunk

	// Score is the cosine similarity to the query, in [-1, 1].
	Score float64

	// Filename is the source document's original filename.
	Filename string

	// FileType is the source document's format.
	FileType FileType
}

// StoreStats summarises the current state of the memory store.
type StoreStats struct {
	// DocumentCount is the number of active documents.
	DocumentCount int `json:"document_count"`

	// ChunkCount is the number of indexed chunks.
	ChunkCount int `json:"chunk_count"`

	// BackendType identifies the index backend in use.
	BackendType BackendType `json:"backend_type"`

	// StorageBytes approximates the on-disk or in-memory footprint
	// of the index.
	StorageBytes int64 `json:"storage_bytes"`
}
