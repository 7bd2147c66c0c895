package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrDuplicateContent", ErrDuplicateContent},
		{"ErrChunking", ErrChunking},
		{"ErrEmbedding", ErrEmbedding},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrIndexOperation", ErrIndexOperation},
		{"ErrIndexCorrupted", ErrIndexCorrupted},
		{"ErrSnapshot", ErrSnapshot},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrStoreClosed", ErrStoreClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnsupportedType,
		ErrDuplicateContent,
		ErrChunking,
		ErrEmbedding,
		ErrEmbeddingUnavailable,
		ErrIndexOperation,
		ErrIndexCorrupted,
		ErrSnapshot,
		ErrDimensionMismatch,
		ErrStoreClosed,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}

// TestErrors_WithWrapping tests error wrapping behaviour
func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("ingesting notes.txt: %w", ErrDuplicateContent)

	assert.True(t, errors.Is(wrapped, ErrDuplicateContent))
	assert.Contains(t, wrapped.Error(), "duplicate content")
	assert.False(t, errors.Is(wrapped, ErrInvalidInput))
}

// TestErrors_InSwitchStatement tests using errors in switch statements
func TestErrors_InSwitchStatement(t *testing.T) {
	testErr := fmt.Errorf("probe: %w", ErrIndexCorrupted)

	var result string
	switch {
	case errors.Is(testErr, ErrIndexCorrupted):
		result = "corrupted"
	case errors.Is(testErr, ErrSnapshot):
		result = "snapshot"
	default:
		result = "unknown"
	}

	assert.Equal(t, "corrupted", result)
}
