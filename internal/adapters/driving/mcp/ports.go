package mcp

import (
	"github.com/quarry-labs/recall/internal/core/ports/driving"
	"github.com/quarry-labs/recall/internal/session"
)

// Ports aggregates everything the MCP server needs.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Memory is the document memory service backing every tool.
	Memory driving.MemoryService

	// Sessions tracks per-session query history. Optional: when nil,
	// NewServer creates a fresh tracker.
	Sessions *session.Tracker
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Memory == nil {
		return ErrMissingMemoryService
	}
	return nil
}
