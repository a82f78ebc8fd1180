package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// openPageTool returns the tool definition for open_page
func openPageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "open_page",
		Description: "Open an HTML page for semantic search: extract its visible text, segment it, and embed the chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "HTTP(S) URL of the page to open",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a local HTML file",
				},
				"html": map[string]interface{}{
					"type":        "string",
					"description": "Raw HTML to search (alternative to url/file)",
				},
				"exclude_selectors": map[string]interface{}{
					"type":        "array",
					"description": "Extra CSS-like selectors (tag, .class, #id, [attr]) to exclude from extraction",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
		},
	}
}

// searchPageTool returns the tool definition for search_page
func searchPageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_page",
		Description: "Search an open page by meaning and return ranked, located matches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID returned by open_page",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query (minimum 3 characters)",
				},
			},
			Required: []string{"session_id", "query"},
		},
	}
}

// navigateTool returns the tool definition for navigate
func navigateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "navigate",
		Description: "Move the active match cursor over the current result list",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID returned by open_page",
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"description": "Cursor movement: next or prev (ignored when index is given)",
					"enum":        []string{"next", "prev"},
				},
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "Jump directly to this match index (0-based, document order)",
					"minimum":     0,
				},
			},
			Required: []string{"session_id"},
		},
	}
}

// pageStatusTool returns the tool definition for page_status
func pageStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "page_status",
		Description: "Report the session phase, match counts, and embedding model state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID returned by open_page",
				},
			},
			Required: []string{"session_id"},
		},
	}
}

// closePageTool returns the tool definition for close_page
func closePageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "close_page",
		Description: "Close an open page session, removing its highlights and releasing its chunk set",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID returned by open_page",
				},
			},
			Required: []string{"session_id"},
		},
	}
}
