// Package mcp provides an MCP (Model Context Protocol) server adapter for Recall.
// It enables AI assistants like Claude to ingest and query the local document memory.
package mcp

import "errors"

// ErrMissingMemoryService is returned when the memory service is not provided.
var ErrMissingMemoryService = errors.New("mcp: memory service is required")
