// Package fingerprint produces stable content fingerprints for
// deduplication. Two uploads whose text differs only in whitespace,
// case or control characters map to the same fingerprint, so renamed
// copies of a document are recognised before any embedding work.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalise canonicalises text for fingerprinting: leading and trailing
// whitespace is trimmed, internal whitespace runs collapse to a single
// space, letters are lowercased and non-printing control characters are
// dropped. Normalising an already normalised string is a no-op.
func Normalise(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inRun := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inRun = true
		case unicode.IsControl(r):
			// Non-space control characters carry no content.
		default:
			if inRun && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inRun = false
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Sum returns the 256-bit fingerprint of the normalised text as
// lowercase hex.
func Sum(text string) string {
	digest := sha256.Sum256([]byte(Normalise(text)))
	return hex.EncodeToString(digest[:])
}
