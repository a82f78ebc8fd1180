package ranker

import (
	"math"
	"sort"

	"github.com/dshills/pagesense/pkg/types"
)

const (
	// DefaultThreshold is the minimum similarity a chunk must exceed to be
	// retained in ranked output.
	DefaultThreshold = 0.3

	// DefaultTopK is the ranked-result truncation limit.
	DefaultTopK = 10
)

// Options controls ranking. Zero values take the package defaults.
type Options struct {
	// Threshold overrides DefaultThreshold. Zero is a meaningful setting
	// (retain anything with positive similarity), so unset is nil rather
	// than 0.
	Threshold *float64
	TopK      int
}

func (o Options) withDefaults() Options {
	if o.Threshold == nil {
		def := float64(DefaultThreshold)
		o.Threshold = &def
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	return o
}

// Similarity computes the cosine similarity of two vectors: their dot
// product over the product of their L2 norms. Vectors must have equal
// length. When either vector has zero magnitude the result is exactly 0,
// never NaN.
func Similarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, types.ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Rank scores every embedded chunk against the query embedding, retains
// those whose similarity exceeds the threshold, and returns them sorted by
// score descending with ties broken by original chunk order. The list is
// truncated to TopK. Chunks without an embedding are silently excluded, not
// treated as zero-score matches. An empty return is the valid "no matches"
// outcome, not an error.
func Rank(query []float32, chunks []*types.TextChunk, opts Options) ([]*types.SearchResult, error) {
	opts = opts.withDefaults()

	results := make([]*types.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			continue
		}
		score, err := Similarity(query, chunk.Embedding)
		if err != nil {
			return nil, err
		}
		if score <= *opts.Threshold {
			continue
		}
		results = append(results, &types.SearchResult{
			Chunk:         chunk,
			Score:         clampScore(score),
			ResolvedOrder: -1,
		})
	}

	// Stable sort keeps original chunk order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	return results, nil
}

// clampScore bounds a cosine similarity into the displayable [0, 1] range.
// Values above the ranking threshold are always positive; the clamp guards
// against float drift pushing unit-vector similarities past 1.
func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}
