package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/session"
)

// defaultQueryLimit matches the CLI default.
const defaultQueryLimit = 5

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	Filename      string `json:"filename" jsonschema:"the filename including extension, used to detect the format (pdf, txt, docx)"`
	Content       string `json:"content,omitempty" jsonschema:"the document text for plain-text files"`
	ContentBase64 string `json:"content_base64,omitempty" jsonschema:"base64-encoded bytes for binary formats like PDF and DOCX"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	DocumentID string `json:"document_id,omitempty"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// QueryInput is the input schema for the query_memory tool.
type QueryInput struct {
	Query     string `json:"query" jsonschema:"the question or text to search the memory for"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	SessionID string `json:"session_id,omitempty" jsonschema:"optional session identifier; queries with a session are recorded in its history"`
}

// QueryOutput is the output schema for the query_memory tool.
type QueryOutput struct {
	Results []QueryResultOutput `json:"results"`
	Count   int                 `json:"count"`
}

// QueryResultOutput represents a single retrieved chunk.
type QueryResultOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	FileType   string  `json:"file_type"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// ListInput is the input schema for the list_documents tool.
type ListInput struct {
	FileType string `json:"file_type,omitempty" jsonschema:"restrict to one format: pdf, txt, or docx"`
	Search   string `json:"search,omitempty" jsonschema:"keep documents whose filename contains this substring"`
}

// ListOutput is the output schema for the list_documents tool.
type ListOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo summarises one stored document.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	ChunkCount int       `json:"chunk_count"`
	ByteSize   int64     `json:"byte_size"`
	IngestedAt time.Time `json:"ingested_at"`
}

// StatusInput is the input schema for the memory_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the memory_status tool.
type StatusOutput struct {
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
	Backend       string `json:"backend"`
	StorageBytes  int64  `json:"storage_bytes"`
}

// ClearSessionInput is the input schema for the clear_session tool.
type ClearSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session whose history should be dropped"`
}

// ClearSessionOutput is the output schema for the clear_session tool.
type ClearSessionOutput struct {
	SessionID string `json:"session_id"`
	Removed   int    `json:"removed"`
}

// SessionStatusInput is the input schema for the session_status tool.
type SessionStatusInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to inspect"`
}

// SessionStatusOutput is the output schema for the session_status tool.
type SessionStatusOutput struct {
	SessionID string              `json:"session_id"`
	Turns     int                 `json:"turns"`
	MaxTurns  int                 `json:"max_turns"`
	Recent    []SessionTurnOutput `json:"recent,omitempty"`
}

// SessionTurnOutput is one recorded query turn.
type SessionTurnOutput struct {
	Query string    `json:"query"`
	Hits  int       `json:"hits"`
	At    time.Time `json:"at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Store a document in the memory for later retrieval. Content is deduplicated.",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_memory",
		Description: "Search the stored documents for passages similar to a query",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents currently held in the memory",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "memory_status",
		Description: "Report document and chunk counts and the storage footprint",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_session",
		Description: "Forget the query history of one session",
	}, s.handleClearSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_status",
		Description: "Inspect the recorded query history of one session",
	}, s.handleSessionStatus)
}

// handleIngest handles the ingest_document tool invocation. Duplicate
// content is reported in the output rather than as a tool error, so
// assistants can keep going without special error handling.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Filename == "" {
		return nil, IngestOutput{}, errors.New("filename is required")
	}

	content, err := decodeContent(input)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	receipt, err := s.ports.Memory.Ingest(ctx, domain.FileUpload{
		Filename: input.Filename,
		Content:  content,
	})
	if errors.Is(err, domain.ErrDuplicateContent) {
		return nil, IngestOutput{
			Filename:  input.Filename,
			Duplicate: true,
			Detail:    err.Error(),
		}, nil
	}
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentID: receipt.DocumentID,
		Filename:   receipt.Filename,
		ChunkCount: receipt.ChunkCount,
	}, nil
}

// decodeContent returns the raw bytes from whichever content field is
// set. Exactly one must be present.
func decodeContent(input IngestInput) ([]byte, error) {
	switch {
	case input.Content != "" && input.ContentBase64 != "":
		return nil, errors.New("provide content or content_base64, not both")
	case input.Content != "":
		return []byte(input.Content), nil
	case input.ContentBase64 != "":
		data, err := base64.StdEncoding.DecodeString(input.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding content_base64: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("content or content_base64 is required")
	}
}

// handleQuery handles the query_memory tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	hits, err := s.ports.Memory.Query(ctx, input.Query, limit)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	if input.SessionID != "" {
		s.sessions.Append(input.SessionID, session.Turn{
			Query: input.Query,
			Hits:  len(hits),
		})
	}

	output := QueryOutput{
		Results: make([]QueryResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		output.Results[i] = QueryResultOutput{
			DocumentID: hits[i].Chunk.DocumentID,
			Filename:   hits[i].Filename,
			FileType:   string(hits[i].FileType),
			Position:   hits[i].Chunk.Position,
			Score:      hits[i].Score,
			Content:    hits[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleList handles the list_documents tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	filter := domain.ListFilter{NameContains: input.Search}
	if input.FileType != "" {
		ft := domain.FileType(input.FileType)
		if !ft.IsValid() {
			return nil, ListOutput{}, fmt.Errorf("unknown file_type %q (want pdf, txt, or docx)", input.FileType)
		}
		filter.FileType = ft
	}

	entries, err := s.ports.Memory.ListDocuments(ctx, filter)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]DocumentInfo, len(entries)),
		Count:     len(entries),
	}
	for i := range entries {
		output.Documents[i] = DocumentInfo{
			ID:         entries[i].ID,
			Filename:   entries[i].Filename,
			FileType:   string(entries[i].FileType),
			ChunkCount: len(entries[i].ChunkIDs),
			ByteSize:   entries[i].ByteSize,
			IngestedAt: entries[i].IngestedAt,
		}
	}

	return nil, output, nil
}

// handleStatus handles the memory_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	stats, err := s.ports.Memory.Stats(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	return nil, StatusOutput{
		DocumentCount: stats.DocumentCount,
		ChunkCount:    stats.ChunkCount,
		Backend:       string(stats.BackendType),
		StorageBytes:  stats.StorageBytes,
	}, nil
}

// handleClearSession handles the clear_session tool invocation.
func (s *Server) handleClearSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ClearSessionInput,
) (*mcp.CallToolResult, ClearSessionOutput, error) {
	if input.SessionID == "" {
		return nil, ClearSessionOutput{}, errors.New("session_id is required")
	}

	removed := s.sessions.Clear(input.SessionID)
	return nil, ClearSessionOutput{
		SessionID: input.SessionID,
		Removed:   removed,
	}, nil
}

// handleSessionStatus handles the session_status tool invocation.
func (s *Server) handleSessionStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SessionStatusInput,
) (*mcp.CallToolResult, SessionStatusOutput, error) {
	if input.SessionID == "" {
		return nil, SessionStatusOutput{}, errors.New("session_id is required")
	}

	status := s.sessions.Status(input.SessionID)
	history := s.sessions.History(input.SessionID)

	output := SessionStatusOutput{
		SessionID: status.SessionID,
		Turns:     status.Turns,
		MaxTurns:  status.MaxTurns,
	}
	if len(history) > 0 {
		output.Recent = make([]SessionTurnOutput, len(history))
		for i, turn := range history {
			output.Recent[i] = SessionTurnOutput{
				Query: turn.Query,
				Hits:  turn.Hits,
				At:    turn.At,
			}
		}
	}

	return nil, output, nil
}
