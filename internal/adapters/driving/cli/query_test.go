package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [text]", queryCmd.Use)
}

func TestQueryCmd_Short(t *testing.T) {
	assert.Equal(t, "Search the memory store", queryCmd.Short)
}

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_HasLimitFlag(t *testing.T) {
	flag := queryCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestQueryCmd_PrintsHits(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	fake := defaultFake()
	memoryService = fake

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "cell energy"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Results (2):")
	assert.Contains(t, buf.String(), "[1] notes.txt (0.920)")
	assert.Contains(t, buf.String(), "mitochondria")
	assert.Equal(t, "cell energy", fake.lastQuery)
	assert.Equal(t, 5, fake.lastLimit)
}

func TestQueryCmd_PassesLimitFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	fake := defaultFake()
	memoryService = fake

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "-k", "3", "cell energy"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryLimit = 5 // Reset flag
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, 3, fake.lastLimit)
}

func TestQueryCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	fake := defaultFake()
	fake.hits = nil
	memoryService = fake

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "nothing matches this"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No results found.")
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "--json", "cell energy"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryJSON = false // Reset flag
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"score\": 0.92")
	assert.Contains(t, buf.String(), "\"filename\": \"notes.txt\"")
	assert.Contains(t, buf.String(), "\"file_type\": \"pdf\"")
}

func TestQueryCmd_QueryFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	fake := defaultFake()
	fake.err = errors.New("index unavailable")
	memoryService = fake

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "cell energy"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "Short text unchanged",
			input:    "short text",
			maxLen:   20,
			expected: "short text",
		},
		{
			name:     "Whitespace flattened",
			input:    "line one\n\tline two",
			maxLen:   40,
			expected: "line one line two",
		},
		{
			name:     "Long text truncated with ellipsis",
			input:    strings.Repeat("word ", 50),
			maxLen:   10,
			expected: "word word ...",
		},
		{
			name:     "Exact length kept",
			input:    "abcde",
			maxLen:   5,
			expected: "abcde",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, snippet(tt.input, tt.maxLen))
		})
	}
}
