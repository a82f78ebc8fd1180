package types

import "errors"

// Domain errors. Transport and model failures are recovered internally by
// provider fallback; they reach callers only when the fallback also fails.
var (
	// ErrExtractionEmpty signals that a page yielded no qualifying text.
	// Terminal but non-fatal: the session reports "nothing to search".
	ErrExtractionEmpty = errors.New("no qualifying text content")

	// ErrModelUnavailable signals that the embedding backend is not usable.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrTransportFailure signals a channel error talking to the backend.
	// It triggers a permanent switch to the local provider for the session.
	ErrTransportFailure = errors.New("backend transport failure")

	// ErrEmbeddingFormat signals a backend payload from which no numeric
	// vector could be extracted after exhausting known shapes.
	ErrEmbeddingFormat = errors.New("malformed embedding payload")

	// ErrDimensionMismatch signals vectors of unequal length reaching the
	// ranker. A contract violation, not an expected runtime condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNoMatches is the valid "no results above threshold" outcome.
	ErrNoMatches = errors.New("no matches above threshold")

	// ErrNotReady rejects query submissions while extraction or embedding
	// is still in progress. Submissions are rejected, never queued.
	ErrNotReady = errors.New("session not ready yet")

	// ErrQueryTooShort rejects queries under the minimum length.
	ErrQueryTooShort = errors.New("query too short")

	// Result validation errors
	ErrMissingChunk = errors.New("search result requires a chunk")
	ErrInvalidScore = errors.New("score must be between 0 and 1")
)
