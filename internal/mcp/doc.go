// Package mcp implements the Model Context Protocol (MCP) server for
// pagesense.
//
// The server exposes five tools over stdio:
//   - open_page: Load an HTML page, extract and embed its visible text
//   - search_page: Search an open page by meaning
//   - navigate: Move the active match cursor (next/prev/jump)
//   - page_status: Report phase, counts, and embedding model state
//   - close_page: Tear down a session and its highlights
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport; stdout is reserved
// for protocol messages, so all logging goes to stderr.
//
// # Tool: open_page
//
// Exactly one of url, file, or html selects the page source:
//
//	Request:
//	{
//	  "name": "open_page",
//	  "arguments": {
//	    "url": "https://example.com/article",
//	    "exclude_selectors": [".comments"]
//	  }
//	}
//
//	Response:
//	{
//	  "session_id": "4b2f...",
//	  "status": "ready",
//	  "chunk_count": 42,
//	  "model": "pagesense-backend-v1",
//	  "fell_back": false
//	}
//
// The returned session_id keys every follow-up call. Re-opening the same
// URL creates an independent session.
//
// # Tool: search_page
//
// Returns ranked matches with their resolved document positions:
//
//	Request:
//	{
//	  "name": "search_page",
//	  "arguments": {
//	    "session_id": "4b2f...",
//	    "query": "how the payment flow handles refunds"
//	  }
//	}
//
//	Response:
//	{
//	  "matches": [
//	    {"chunk_id": "c0007-a1b2c3d4e5f6", "score": 0.81,
//	     "order": 12, "vertical_pos": 5840, "visible": true, "text": "..."}
//	  ],
//	  "match_count": 3,
//	  "degraded": false
//	}
//
// An empty matches list is the normal no-results outcome, not an error.
//
// # Error codes
//
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error
//   - -32001: Session not found
//   - -32002: Session not ready (still extracting/embedding)
//   - -32003: Page has no searchable content
//   - -32004: Query below the minimum length
package mcp
