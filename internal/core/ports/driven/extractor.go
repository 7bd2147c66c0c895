package driven

import (
	"context"

	"github.com/quarry-labs/recall/internal/core/domain"
)

// Extractor turns raw uploaded bytes of one file format into plain
// text ready for chunking. Extraction is the only format-specific
// step; everything downstream sees plain text.
type Extractor interface {
	// FileType returns the format this extractor handles.
	FileType() domain.FileType

	// Extract converts raw bytes into plain text.
	Extract(ctx context.Context, filename string, content []byte) (string, error)
}
