package domain

import (
	"strings"
	"time"
)

// FileType identifies the supported source document formats.
type FileType string

const (
	// FileTypePDF is a PDF document.
	FileTypePDF FileType = "pdf"
	// FileTypeTXT is a plain text document.
	FileTypeTXT FileType = "txt"
	// FileTypeDOCX is a Word document.
	FileTypeDOCX FileType = "docx"
)

// IsValid reports whether the file type is one of the supported formats.
func (f FileType) IsValid() bool {
	switch f {
	case FileTypePDF, FileTypeTXT, FileTypeDOCX:
		return true
	}
	return false
}

// String returns the lowercase extension form of the file type.
func (f FileType) String() string {
	return string(f)
}

// FileTypeFromName derives the file type from a filename extension.
// Returns ErrUnsupportedType for anything outside the supported set.
func FileTypeFromName(name string) (FileType, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", ErrUnsupportedType
	}
	ft := FileType(strings.ToLower(name[idx+1:]))
	if !ft.IsValid() {
		return "", ErrUnsupportedType
	}
	return ft, nil
}

// DocumentEntry is the registry record for an ingested document.
// It is the authority on which documents exist and which chunks
// belong to them; the index holds the vectors.
type DocumentEntry struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Filename is the original filename as uploaded.
	Filename string `json:"filename"`

	// Fingerprint is the 256-bit content hash, hex encoded.
	// Unique among active entries; two filenames with identical
	// content share one entry.
	Fingerprint string `json:"fingerprint"`

	// FileType is the source format (pdf, txt, docx).
	FileType FileType `json:"file_type"`

	// ChunkIDs lists the chunks derived from this document,
	// in chunk order.
	ChunkIDs []string `json:"chunk_ids"`

	// ByteSize is the size of the uploaded content in bytes.
	ByteSize int64 `json:"byte_size"`

	// IngestedAt is when the document was stored.
	IngestedAt time.Time `json:"ingested_at"`
}

// ListFilter narrows a document listing.
type ListFilter struct {
	// FileType restricts results to one format when set.
	FileType FileType

	// NameContains keeps entries whose filename contains the
	// substring, case-insensitively, when non-empty.
	NameContains string
}

// Matches reports whether the entry passes the filter.
func (f ListFilter) Matches(e DocumentEntry) bool {
	if f.FileType != "" && e.FileType != f.FileType {
		return false
	}
	if f.NameContains != "" &&
		!strings.Contains(strings.ToLower(e.Filename), strings.ToLower(f.NameContains)) {
		return false
	}
	return true
}
