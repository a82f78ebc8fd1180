package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/pagesense/internal/content"
	"github.com/dshills/pagesense/internal/session"
	"github.com/dshills/pagesense/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeSessionNotFound = -32001 // No open session under the given ID
	ErrorCodeNotReady        = -32002 // Session is still extracting/embedding
	ErrorCodeEmptyPage       = -32003 // Page has no searchable content
	ErrorCodeQueryTooShort   = -32004 // Query below the minimum length
)

// resultTextLimit bounds the chunk text echoed back per match.
const resultTextLimit = 200

// handleOpenPage handles the open_page tool invocation
func (s *Server) handleOpenPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	doc, err := loadDocument(ctx, args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to load page", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	cfg := session.Config{
		Cache:  s.cache,
		Logger: s.logger,
	}
	if raw, ok := args["exclude_selectors"].([]interface{}); ok {
		selectors := content.DefaultExcludeSelectors()
		for _, v := range raw {
			if sel, ok := v.(string); ok && sel != "" {
				selectors = append(selectors, sel)
			}
		}
		cfg.Snapshot.ExcludeSelectors = selectors
	}

	ctrl := session.New(doc, s.emb, cfg)
	if err := ctrl.Open(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open page", map[string]interface{}{
			"error": err.Error(),
		})
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &pageSession{controller: ctrl, url: doc.URL()}
	s.mu.Unlock()

	status := ctrl.Status()
	response := map[string]interface{}{
		"session_id":  id,
		"url":         doc.URL(),
		"status":      status.Phase.String(),
		"detail":      status.Detail,
		"chunk_count": status.ChunkCount,
		"model":       status.Model,
		"fell_back":   status.FellBack,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchPage handles the search_page tool invocation
func (s *Server) handleSearchPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	ps, mcpErr := s.sessionFromArgs(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	results, err := ps.controller.Query(ctx, query)
	if err != nil {
		return nil, queryError(err)
	}

	status := ps.controller.Status()
	matches := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		matches = append(matches, map[string]interface{}{
			"chunk_id":     r.Chunk.ID,
			"text":         truncate(r.Chunk.Text, resultTextLimit),
			"score":        r.Score,
			"order":        r.ResolvedOrder,
			"vertical_pos": r.VerticalPos,
			"visible":      r.Visible,
		})
	}
	response := map[string]interface{}{
		"matches":     matches,
		"match_count": status.MatchCount,
		"detail":      status.Detail,
		"degraded":    status.Degraded,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleNavigate handles the navigate tool invocation
func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	ps, mcpErr := s.sessionFromArgs(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	var (
		result *types.SearchResult
		err    error
	)
	if _, hasIndex := args["index"]; hasIndex {
		result, err = ps.controller.JumpTo(getIntDefault(args, "index", 0))
	} else {
		switch getStringDefault(args, "direction", "next") {
		case "prev":
			result, err = ps.controller.Prev()
		default:
			result, err = ps.controller.Next()
		}
	}
	if err != nil {
		if errors.Is(err, types.ErrNoMatches) {
			return nil, newMCPError(ErrorCodeInvalidParams, "no matches to navigate", nil)
		}
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	}

	status := ps.controller.Status()
	response := map[string]interface{}{
		"chunk_id":     result.Chunk.ID,
		"text":         truncate(result.Chunk.Text, resultTextLimit),
		"score":        result.Score,
		"vertical_pos": result.VerticalPos,
		"cursor":       status.Cursor,
		"match_count":  status.MatchCount,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePageStatus handles the page_status tool invocation
func (s *Server) handlePageStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	ps, mcpErr := s.sessionFromArgs(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	status := ps.controller.Status()
	response := map[string]interface{}{
		"url":         ps.url,
		"status":      status.Phase.String(),
		"detail":      status.Detail,
		"chunk_count": status.ChunkCount,
		"match_count": status.MatchCount,
		"cursor":      status.Cursor,
		"model":       status.Model,
		"model_state": map[string]interface{}{
			"status":   string(status.ModelState.Status),
			"progress": status.ModelState.Progress,
			"error":    status.ModelState.ErrorDetail,
		},
		"fell_back": status.FellBack,
		"degraded":  status.Degraded,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClosePage handles the close_page tool invocation
func (s *Server) handleClosePage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["session_id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "session_id parameter is required", nil)
	}

	s.mu.Lock()
	ps, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, newMCPError(ErrorCodeSessionNotFound, "no open session with that ID", nil)
	}
	ps.controller.Reset()

	response := map[string]interface{}{
		"closed":     true,
		"session_id": id,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// loadDocument resolves the page source from open_page arguments: exactly
// one of url, file, or html.
func loadDocument(ctx context.Context, args map[string]interface{}) (*content.Document, error) {
	url, _ := args["url"].(string)
	file, _ := args["file"].(string)
	raw, _ := args["html"].(string)

	given := 0
	for _, v := range []string{url, file, raw} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return nil, fmt.Errorf("exactly one of url, file, or html is required")
	}

	switch {
	case url != "":
		return content.Fetch(ctx, url, nil)
	case file != "":
		return content.LoadFile(file)
	default:
		return content.ParseString(raw, "inline:"+uuid.NewString())
	}
}

// sessionFromArgs resolves the session_id argument to an open session.
func (s *Server) sessionFromArgs(args map[string]interface{}) (*pageSession, error) {
	id, ok := args["session_id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "session_id parameter is required", map[string]interface{}{
			"param":  "session_id",
			"reason": "missing or empty",
		})
	}
	ps, ok := s.session(id)
	if !ok {
		return nil, newMCPError(ErrorCodeSessionNotFound, "no open session with that ID", map[string]interface{}{
			"session_id": id,
		})
	}
	return ps, nil
}

// queryError maps controller errors to MCP errors with the right codes.
func queryError(err error) error {
	switch {
	case errors.Is(err, types.ErrQueryTooShort):
		return newMCPError(ErrorCodeQueryTooShort, err.Error(), nil)
	case errors.Is(err, types.ErrExtractionEmpty):
		return newMCPError(ErrorCodeEmptyPage, "page has no searchable content", nil)
	case errors.Is(err, types.ErrNotReady):
		return newMCPError(ErrorCodeNotReady, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// newMCPError creates an MCP protocol error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a response map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
