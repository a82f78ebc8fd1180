package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextChunk_AttachEmbedding(t *testing.T) {
	chunk := &TextChunk{ID: "c1", Text: "hello"}
	assert.False(t, chunk.HasEmbedding())

	require.NoError(t, chunk.AttachEmbedding([]float32{0.6, 0.8}))
	assert.True(t, chunk.HasEmbedding())

	// Immutable once attached.
	err := chunk.AttachEmbedding([]float32{1, 0})
	assert.Error(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, chunk.Embedding)
}

func TestTextChunk_AttachEmptyEmbedding(t *testing.T) {
	chunk := &TextChunk{ID: "c1", Text: "hello"}
	assert.Error(t, chunk.AttachEmbedding(nil))
	assert.False(t, chunk.HasEmbedding())
}

func TestTextChunk_Validate(t *testing.T) {
	tests := []struct {
		name    string
		chunk   TextChunk
		wantErr bool
	}{
		{"valid", TextChunk{ID: "c1", Text: "body text", SourceOrder: 0}, false},
		{"missing id", TextChunk{Text: "body text"}, true},
		{"blank text", TextChunk{ID: "c1", Text: "   "}, true},
		{"negative order", TextChunk{ID: "c1", Text: "x", SourceOrder: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chunk.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModelState_Clamp(t *testing.T) {
	tests := []struct {
		name  string
		state ModelState
		want  int
	}{
		{"negative progress", ModelState{Status: ModelLoading, Progress: -5}, 0},
		{"loading capped at 99", ModelState{Status: ModelLoading, Progress: 150}, 99},
		{"ready snaps to 100", ModelState{Status: ModelReady, Progress: 40}, 100},
		{"failed keeps progress", ModelState{Status: ModelFailed, Progress: 60}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Clamp().Progress)
		})
	}
}

func TestModelState_Usable(t *testing.T) {
	assert.True(t, ModelState{Status: ModelReady}.Usable())
	assert.False(t, ModelState{Status: ModelLoading, Progress: 99}.Usable())
	assert.False(t, ModelState{Status: ModelFailed}.Usable())
}
