package domain

// Chunk represents a searchable unit within a document.
// Documents are split into overlapping chunks so retrieval can
// return focused passages instead of whole files.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// DocumentID links to the owning DocumentEntry.
	DocumentID string `json:"document_id"`

	// Content is the text content of this chunk.
	Content string `json:"content"`

	// Position is the ordinal position within the document.
	Position int `json:"position"`

	// StartOffset is the rune offset of the chunk start in the
	// extracted document text.
	StartOffset int `json:"start_offset"`

	// EndOffset is the rune offset one past the chunk end.
	EndOffset int `json:"end_offset"`

	// Embedding is the vector representation for similarity search.
	Embedding []float32 `json:"embedding"`
}
