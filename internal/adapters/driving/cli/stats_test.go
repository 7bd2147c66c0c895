package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCmd_Use(t *testing.T) {
	assert.Equal(t, "stats", statsCmd.Use)
}

func TestStatsCmd_Short(t *testing.T) {
	assert.Equal(t, "Show store statistics", statsCmd.Short)
}

func TestStatsCmd_PrintsStats(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Store statistics:")
	assert.Contains(t, buf.String(), "Documents: 2")
	assert.Contains(t, buf.String(), "Chunks:    4")
	assert.Contains(t, buf.String(), "Backend:   flat")
	assert.Contains(t, buf.String(), "89.1 KiB")
}

func TestStatsCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
		statsJSON = false // Reset flag
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"document_count\": 2")
	assert.Contains(t, buf.String(), "\"backend_type\": \"flat\"")
}

func TestStatsCmd_StatsFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	fake := defaultFake()
	fake.err = errors.New("index unavailable")
	memoryService = fake

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading stats")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{
			name:     "Bytes",
			input:    512,
			expected: "512 B",
		},
		{
			name:     "Exactly one KiB",
			input:    1024,
			expected: "1.0 KiB",
		},
		{
			name:     "Fractional KiB",
			input:    1536,
			expected: "1.5 KiB",
		},
		{
			name:     "MiB",
			input:    5 * 1024 * 1024,
			expected: "5.0 MiB",
		},
		{
			name:     "GiB",
			input:    3 * 1024 * 1024 * 1024,
			expected: "3.0 GiB",
		},
		{
			name:     "Zero",
			input:    0,
			expected: "0 B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatBytes(tt.input))
		})
	}
}
