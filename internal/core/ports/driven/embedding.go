package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches
// vectors. EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - OpenAI-compatible HTTP endpoints (text-embedding-3-small, ...)
//   - The built-in deterministic hashing embedder
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// Embedding the same text twice yields the same vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one
	// request. The result preserves input order: result[i] embeds
	// texts[i]. More efficient than calling Embed in a loop. An empty
	// batch fails with domain.ErrEmbedding.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 256, 1536).
	// This is determined by the model and must match the index.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request. Used by health checks.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
