package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/pagesense/pkg/types"
)

// Common errors
var (
	ErrEmptyText        = errors.New("text cannot be empty")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownProvider  = errors.New("unknown embedding provider")
	ErrProviderFailed   = errors.New("embedding provider failed")
	ErrProviderRequired = errors.New("embedding provider required")
)

// Embedder is the embedding provider contract. Embed returns an
// L2-normalized vector; repeated calls for identical text and model return
// the cached vector rather than recomputing.
type Embedder interface {
	// Embed generates a unit vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates unit vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// State reports the provider's current model state.
	State() types.ModelState

	// Dimension returns the embedding dimension, or 0 if not yet known.
	Dimension() int

	// Model returns the model identity used for cache keying.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// cacheKeyPrefixLen bounds the text portion of a cache key.
const cacheKeyPrefixLen = 256

// CacheKey derives the embedding cache key: model identity plus a
// whitespace-collapsed prefix of the text.
func CacheKey(model, text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) > cacheKeyPrefixLen {
		collapsed = collapsed[:cacheKeyPrefixLen]
	}
	return model + "\x00" + collapsed
}

// Cache provides in-memory LRU caching of embeddings. It is shared for the
// lifetime of one page session; entries are never invalidated within a
// session. Concurrent writers for the same uncached key may each compute and
// store independently - last write wins, which is safe because embeddings
// are deterministic for a given model.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 4096
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Only reachable with a non-positive size; fall back to default.
		cache, _ = lru.New[string, []float32](4096)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector. The copy prevents caller
// mutations from polluting cached values.
func (c *Cache) Get(key string) ([]float32, bool) {
	vec, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector with automatic LRU eviction.
func (c *Cache) Set(key string, vec []float32) {
	c.cache.Add(key, vec)
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Purge()
}

// Normalize scales v to unit length in place and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// validateText rejects empty or whitespace-only input.
func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// validateBatch rejects empty batches and empty members.
func validateBatch(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
