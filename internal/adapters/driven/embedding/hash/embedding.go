// Package hash provides a deterministic, fully local embedding service
// based on signed token feature hashing. The same text always produces
// the same vector, so retrieval behaviour is reproducible without a
// network dependency or an API key. It is the default service for
// offline use and the one exercised by tests.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 256

// tokenPattern matches words (with inner apostrophes) and digit runs.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// EmbeddingService folds token counts into a fixed number of signed
// buckets. Unigrams carry full weight and adjacent token pairs half
// weight, so word order has some influence on similarity.
type EmbeddingService struct {
	dimensions int
	name       string
}

// Option configures the embedding service.
type Option func(*EmbeddingService)

// WithDimensions sets the vector size. Non-positive values are ignored.
func WithDimensions(dims int) Option {
	return func(s *EmbeddingService) {
		if dims > 0 {
			s.dimensions = dims
		}
	}
}

// NewEmbeddingService creates a feature hashing embedding service.
func NewEmbeddingService(opts ...Option) *EmbeddingService {
	s := &EmbeddingService{dimensions: DefaultDimensions}
	for _, opt := range opts {
		opt(s)
	}
	s.name = fmt.Sprintf("feature-hash-%d", s.dimensions)
	return s
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vectorise(text), nil
}

// EmbedBatch generates embeddings for multiple texts. The result
// preserves input order; an empty batch is rejected.
func (s *EmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed: %w", domain.ErrEmbedding)
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = s.vectorise(text)
	}
	return embeddings, nil
}

// vectorise folds the text's token features into signed buckets and
// L2 normalises the result. Texts with no tokens map to a fixed unit
// vector so the output is never the zero vector.
func (s *EmbeddingService) vectorise(text string) []float32 {
	vec := make([]float64, s.dimensions)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	for _, tok := range tokens {
		s.fold(vec, tok, 1.0)
	}
	for i := 0; i+1 < len(tokens); i++ {
		s.fold(vec, tokens[i]+" "+tokens[i+1], 0.5)
	}
	if len(tokens) == 0 {
		vec[0] = 1
	}

	// L2 normalise
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

// fold adds a single feature to the vector. The bucket comes from the
// low bits of the token hash and the sign from the top bit, so the two
// are close to independent.
func (s *EmbeddingService) fold(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(s.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.name
}

// Ping always succeeds: the service is local and has no dependencies.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
