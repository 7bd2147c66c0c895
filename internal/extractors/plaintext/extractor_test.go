package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/recall/internal/core/domain"
)

func TestExtractor_FileType(t *testing.T) {
	assert.Equal(t, domain.FileTypeTXT, New().FileType())
}

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		expected string
	}{
		{
			name:     "plain content passes through",
			content:  []byte("First line.\nSecond line.\n"),
			expected: "First line.\nSecond line.\n",
		},
		{
			name:     "strips UTF-8 BOM",
			content:  []byte{0xEF, 0xBB, 0xBF, 'h', 'i'},
			expected: "hi",
		},
		{
			name:     "normalises CRLF line endings",
			content:  []byte("one\r\ntwo\r\n\r\nthree"),
			expected: "one\ntwo\n\nthree",
		},
		{
			name:     "normalises bare CR line endings",
			content:  []byte("one\rtwo"),
			expected: "one\ntwo",
		},
		{
			name:     "replaces invalid UTF-8",
			content:  []byte{'o', 'k', 0xFF, '!'},
			expected: "ok�!",
		},
		{
			name:     "empty content",
			content:  nil,
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, err := New().Extract(context.Background(), "file.txt", tc.content)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, text)
		})
	}
}
