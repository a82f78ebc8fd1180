package embedder

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/dshills/pagesense/pkg/types"
)

const (
	// LocalDimension is the local model's embedding dimension.
	LocalDimension = 384

	localModelName = "pagesense-local-v1"
)

// LocalProvider is the in-process fallback model. It derives a deterministic
// unit vector from content hashes: not semantically meaningful embeddings,
// but stable, cheap, and always available, which keeps search usable when
// the backend is unreachable.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a local embedder.
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{
		model: localModelName,
		cache: cache,
	}
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	key := CacheKey(l.model, text)
	if l.cache != nil {
		if vec, ok := l.cache.Get(key); ok {
			return vec, nil
		}
	}

	vec := hashVector(text, LocalDimension)

	if l.cache != nil {
		l.cache.Set(key, vec)
	}
	return vec, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := l.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// State reports the local model as permanently ready - there is nothing to
// load.
func (l *LocalProvider) State() types.ModelState {
	return types.ModelState{Status: types.ModelReady, Progress: 100}
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashVector expands counter-chained SHA-256 digests of the text into a unit
// vector of the requested dimension, each byte mapped into [-1, 1].
func hashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	var block [1]byte
	for i := 0; i < dim; i += sha256.Size {
		block[0] = byte(i / sha256.Size)
		sum := sha256.Sum256(append([]byte(text), block[0]))
		for j := 0; j < sha256.Size && i+j < dim; j++ {
			vec[i+j] = float32(sum[j])/127.5 - 1
		}
	}
	return Normalize(vec)
}
