package types

// SearchResult represents a single ranked match for a query, enriched by the
// locator with its position in the live content tree.
type SearchResult struct {
	// Chunk is the matched text unit from the session's chunk set.
	Chunk *TextChunk

	// Score is the cosine similarity against the query embedding, in [0,1].
	Score float64

	// ResolvedOrder is the document-order index of the content node the
	// chunk re-resolved to, or -1 when unresolved. Unresolved results are
	// excluded from the navigable set.
	ResolvedOrder int

	// VerticalPos is the resolved node's cumulative text offset in document
	// order. Navigation sorts by it so results read top to bottom.
	VerticalPos int

	// Visible reports whether the resolved node is currently visible.
	// Resolved-but-hidden results are kept out of the navigable set.
	Visible bool
}

// Navigable reports whether the result can participate in next/previous
// navigation.
func (r *SearchResult) Navigable() bool {
	return r.ResolvedOrder >= 0 && r.Visible
}

// Validate checks if the search result is well formed.
func (r *SearchResult) Validate() error {
	if r.Chunk == nil {
		return ErrMissingChunk
	}
	if r.Score < 0 || r.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}
