package embedder

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_CollapsesWhitespace(t *testing.T) {
	a := CacheKey("m", "some   text\n\twith spacing")
	b := CacheKey("m", "some text with spacing")
	assert.Equal(t, a, b)
}

func TestCacheKey_ModelSeparatesEntries(t *testing.T) {
	assert.NotEqual(t, CacheKey("model-a", "text"), CacheKey("model-b", "text"))
}

func TestCacheKey_LongTextUsesBoundedPrefix(t *testing.T) {
	long := strings.Repeat("word ", 200)
	longer := long + "extra trailing content beyond the keyed prefix"
	assert.Equal(t, CacheKey("m", long), CacheKey("m", longer))

	shortA := CacheKey("m", "alpha")
	shortB := CacheKey("m", "beta")
	assert.NotEqual(t, shortA, shortB)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := NewCache(0)
	c.Set("k", []float32{1, 2, 3})

	vec, ok := c.Get("k")
	require.True(t, ok)
	vec[0] = 99

	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, float32(1), again[0])
}

func TestCache_Miss(t *testing.T) {
	c := NewCache(0)
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestNormalize_UnitLength(t *testing.T) {
	v := Normalize([]float32{3, 4})
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestLocalProvider_DeterministicUnitVectors(t *testing.T) {
	local := NewLocalProvider(nil)
	ctx := context.Background()

	a, err := local.Embed(ctx, "the same input text")
	require.NoError(t, err)
	b, err := local.Embed(ctx, "the same input text")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, LocalDimension)

	var norm float64
	for _, x := range a {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	other, err := local.Embed(ctx, "completely different input")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestLocalProvider_EmptyTextRejected(t *testing.T) {
	local := NewLocalProvider(nil)
	_, err := local.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProvider_CachePopulatedOnce(t *testing.T) {
	cache := NewCache(0)
	local := NewLocalProvider(cache)
	ctx := context.Background()

	_, err := local.Embed(ctx, "cached text")
	require.NoError(t, err)
	require.Equal(t, 1, cache.Size())

	_, err = local.Embed(ctx, "cached text")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())
}

func TestLocalProvider_AlwaysReady(t *testing.T) {
	local := NewLocalProvider(nil)
	state := local.State()
	assert.True(t, state.Usable())
	assert.Equal(t, 100, state.Progress)
}

func TestLocalProvider_EmbedBatch(t *testing.T) {
	local := NewLocalProvider(NewCache(0))
	vecs, err := local.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.NotEqual(t, vecs[0], vecs[1])
}
