// Package plaintext extracts text from plain text files.
package plaintext

import (
	"bytes"
	"context"
	"strings"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// utf8BOM is the byte order mark some editors prepend to text files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileType returns the file type this extractor handles.
func (e *Extractor) FileType() domain.FileType {
	return domain.FileTypeTXT
}

// Extract returns the file content as text. A leading BOM is stripped,
// Windows and old Mac line endings become \n, and invalid UTF-8
// sequences are replaced with the replacement character.
func (e *Extractor) Extract(_ context.Context, _ string, content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	text := string(content)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ToValidUTF8(text, "�"), nil
}
