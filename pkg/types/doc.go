// Package types provides shared type definitions for pagesense.
//
// This package defines the domain types used across the semantic page-search
// components: text chunks, search results, model state, and the error
// taxonomy.
//
// # Core Types
//
// TextChunk represents a bounded unit of extracted page text that is embedded
// and ranked independently:
//
//	chunk := &types.TextChunk{
//	    ID:          uuid.NewString(),
//	    Text:        paragraphText,
//	    SourceOrder: 12,
//	}
//
// SearchResult combines a chunk with its similarity score and its re-resolved
// position in the live content tree:
//
//	result := &types.SearchResult{
//	    Chunk:         chunk,
//	    Score:         0.82,
//	    ResolvedOrder: 12,
//	    VerticalPos:   3941,
//	    Visible:       true,
//	}
//
// Scores are cosine similarities of unit vectors, normalized to [0, 1] for
// display; a ranked result list is non-increasing in score.
//
// # Model State
//
// ModelState tracks the embedding provider's lifecycle (unloaded, loading,
// ready, failed) together with a 0-100 progress figure. Progress is capped at
// 99 until the provider reports readiness, at which point it snaps to 100.
//
// # Errors
//
// The sentinel errors in this package distinguish recoverable transport
// conditions (which trigger a permanent fallback to the local embedding
// provider) from terminal-but-normal outcomes such as an empty page or a
// query with no matches above threshold. Callers compare with errors.Is.
package types
