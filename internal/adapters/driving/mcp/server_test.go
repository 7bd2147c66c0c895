package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/recall/internal/session"
)

func TestNewServer(t *testing.T) {
	t.Run("nil memory service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingMemoryService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Memory: &mockMemoryService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("creates a tracker when none is injected", func(t *testing.T) {
		ports := &Ports{
			Memory: &mockMemoryService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server.sessions)
	})

	t.Run("uses the injected tracker", func(t *testing.T) {
		tracker := session.NewTracker()
		tracker.Append("s1", session.Turn{Query: "seeded"})

		ports := &Ports{
			Memory:   &mockMemoryService{},
			Sessions: tracker,
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.Same(t, tracker, server.sessions)
		assert.Len(t, server.sessions.History("s1"), 1)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil memory service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingMemoryService)
	})

	t.Run("memory only is valid", func(t *testing.T) {
		ports := &Ports{
			Memory: &mockMemoryService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Memory:   &mockMemoryService{},
			Sessions: session.NewTracker(),
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}
