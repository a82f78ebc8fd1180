package ranker

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pagesense/pkg/types"
)

func TestSimilarity_SelfIsOne(t *testing.T) {
	v := []float32{0.3, -0.2, 0.9, 0.1}
	score, err := Similarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)
}

func TestSimilarity_ZeroVectorIsExactlyZero(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{0.5, 0.5, 0.5}

	score, err := Similarity(zero, v)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.False(t, math.IsNaN(score))

	score, err = Similarity(v, zero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestSimilarity_DimensionMismatch(t *testing.T) {
	_, err := Similarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSimilarity_Orthogonal(t *testing.T) {
	score, err := Similarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-6)
}

func TestSimilarity_Opposite(t *testing.T) {
	score, err := Similarity([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-6)
}

func chunkWithVec(id string, vec []float32) *types.TextChunk {
	return &types.TextChunk{ID: id, Text: "text for " + id, Embedding: vec}
}

func TestRank_SortedDescendingAndThresholded(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []*types.TextChunk{
		chunkWithVec("low", []float32{0.2, 0.98, 0}),  // ~0.2, below threshold
		chunkWithVec("high", []float32{0.99, 0.1, 0}), // ~0.995
		chunkWithVec("mid", []float32{0.6, 0.8, 0}),   // 0.6
		chunkWithVec("negative", []float32{-1, 0, 0}), // -1
	}

	results, err := Rank(query, chunks, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "high", results[0].Chunk.ID)
	assert.Equal(t, "mid", results[1].Chunk.ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.Greater(t, r.Score, DefaultThreshold)
		assert.Equal(t, -1, r.ResolvedOrder)
	}
}

func TestRank_TruncatesToTopK(t *testing.T) {
	query := []float32{1, 0}
	var chunks []*types.TextChunk
	for i := 0; i < 30; i++ {
		chunks = append(chunks, chunkWithVec(fmt.Sprintf("c%02d", i), []float32{1, 0}))
	}

	results, err := Rank(query, chunks, Options{TopK: 5})
	require.NoError(t, err)
	assert.Len(t, results, 5)

	// Stable sort: equal scores keep original chunk order.
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("c%02d", i), r.Chunk.ID)
	}
}

func TestRank_SkipsChunksWithoutEmbeddings(t *testing.T) {
	query := []float32{1, 0}
	chunks := []*types.TextChunk{
		{ID: "bare", Text: "never embedded"},
		chunkWithVec("embedded", []float32{1, 0}),
	}

	results, err := Rank(query, chunks, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "embedded", results[0].Chunk.ID)
}

func TestRank_NoMatchesIsEmptyNotError(t *testing.T) {
	query := []float32{1, 0}
	chunks := []*types.TextChunk{
		chunkWithVec("far", []float32{0, 1}),
	}

	results, err := Rank(query, chunks, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRank_ExactThresholdExcluded(t *testing.T) {
	query := []float32{1, 0}
	chunks := []*types.TextChunk{
		chunkWithVec("edge", []float32{1, 1}),
	}

	// Retention requires strictly exceeding the threshold, so a score
	// exactly at it is excluded.
	score, err := Similarity(query, chunks[0].Embedding)
	require.NoError(t, err)

	results, err := Rank(query, chunks, Options{Threshold: &score})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRank_ExplicitZeroThreshold(t *testing.T) {
	query := []float32{1, 0}
	chunks := []*types.TextChunk{
		chunkWithVec("weak", []float32{1, 10}), // score ~0.0995, under the default
		chunkWithVec("anti", []float32{-1, 0}), // negative score
		chunkWithVec("ortho", []float32{0, 1}), // exactly zero
	}

	// A zero threshold is a real setting, not "use the default": weak
	// positive matches are retained while zero and negative stay out.
	zero := 0.0
	results, err := Rank(query, chunks, Options{Threshold: &zero})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "weak", results[0].Chunk.ID)
}

func TestRank_ScoresClampedToUnitRange(t *testing.T) {
	query := []float32{1, 1, 1}
	chunks := []*types.TextChunk{
		chunkWithVec("same", []float32{1, 1, 1}),
	}

	results, err := Rank(query, chunks, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.LessOrEqual(t, results[0].Score, 1.0)
	assert.GreaterOrEqual(t, results[0].Score, 0.0)
}
