package types

import (
	"errors"
	"strings"
)

// TextChunk represents a bounded unit of extracted page text eligible for
// independent embedding and ranking.
type TextChunk struct {
	// Identification
	ID string // Opaque unique token within a session

	// Content
	Text string

	// Source linkage. SourceOrder is the document-order index of the
	// originating content node at extraction time; SourceSelector is a
	// coarse descriptor (tag path) kept for diagnostics. Neither is
	// trusted at result time - chunks are re-resolved against a fresh
	// snapshot before highlighting.
	SourceOrder    int
	SourceSelector string

	// Embedding is nil until the provider attaches a unit vector.
	// Once set it is never replaced within a session.
	Embedding []float32
}

// HasEmbedding reports whether an embedding has been attached.
func (c *TextChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// AttachEmbedding sets the chunk's embedding. Attaching twice or attaching an
// empty vector is an error.
func (c *TextChunk) AttachEmbedding(vec []float32) error {
	if len(vec) == 0 {
		return errors.New("embedding cannot be empty")
	}
	if c.Embedding != nil {
		return errors.New("embedding already attached")
	}
	c.Embedding = vec
	return nil
}

// Validate performs basic validation of the chunk.
func (c *TextChunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.SourceOrder < 0 {
		return errors.New("source order must be non-negative")
	}
	return nil
}
