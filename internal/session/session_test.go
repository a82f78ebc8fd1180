package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pagesense/internal/content"
	"github.com/dshills/pagesense/internal/embedder"
	"github.com/dshills/pagesense/internal/store"
	"github.com/dshills/pagesense/pkg/types"
)

// topicEmbedder maps texts onto axis-aligned vectors by topic keyword, so
// ranking behaves semantically without a real model. It counts calls for
// cache-reuse assertions.
type topicEmbedder struct {
	calls atomic.Int32
}

var topicAxes = map[string]int{
	"cooking":   0,
	"astronomy": 1,
	"football":  2,
}

func (e *topicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	vec := make([]float32, 4)
	lower := strings.ToLower(text)
	matched := false
	for keyword, axis := range topicAxes {
		if strings.Contains(lower, keyword) {
			vec[axis] = 1
			matched = true
		}
	}
	if !matched {
		vec[3] = 1
	}
	return embedder.Normalize(vec), nil
}

func (e *topicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *topicEmbedder) State() types.ModelState {
	return types.ModelState{Status: types.ModelReady, Progress: 100}
}
func (e *topicEmbedder) Dimension() int { return 4 }
func (e *topicEmbedder) Model() string  { return "topic-test-v1" }
func (e *topicEmbedder) Close() error   { return nil }

const threeTopicPage = `<html><body>
	<div><p>A long discussion of cooking techniques, knife skills, and how slow braising develops deep flavor in tough cuts of meat.</p></div>
	<div><p>An astronomy overview covering telescopes, planetary orbits, and how astronomers measure the distance to nearby stars.</p></div>
	<div><p>Notes from the football season, including transfers, league standings, and a summary of the championship match.</p></div>
</body></html>`

func newTestController(t *testing.T, page string, emb embedder.Embedder, cfg Config) *Controller {
	t.Helper()
	doc, err := content.ParseString(page, "test://session")
	require.NoError(t, err)
	return New(doc, emb, cfg)
}

func TestOpen_ReachesReady(t *testing.T) {
	emb := &topicEmbedder{}
	c := newTestController(t, threeTopicPage, emb, Config{})

	require.NoError(t, c.Open(context.Background()))

	status := c.Status()
	assert.Equal(t, Ready, status.Phase)
	assert.Equal(t, 3, status.ChunkCount)
	assert.Equal(t, int32(3), emb.calls.Load())
}

func TestOpen_ReadySessionIsReused(t *testing.T) {
	emb := &topicEmbedder{}
	c := newTestController(t, threeTopicPage, emb, Config{})
	ctx := context.Background()

	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Open(ctx))

	// Re-opening did not trigger a second embedding pass.
	assert.Equal(t, int32(3), emb.calls.Load())
}

func TestQuery_RanksMatchingTopicFirst(t *testing.T) {
	// Scenario: three paragraphs on distinct topics; a query on the second
	// topic surfaces only that chunk.
	c := newTestController(t, threeTopicPage, &topicEmbedder{}, Config{})
	ctx := context.Background()
	require.NoError(t, c.Open(ctx))

	results, err := c.Query(ctx, "telescopes and astronomy")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Text, "astronomy")
	assert.Greater(t, results[0].Score, 0.3)
	assert.True(t, results[0].Navigable())

	status := c.Status()
	assert.Equal(t, Ready, status.Phase)
	assert.Equal(t, 1, status.MatchCount)
}

func TestQuery_NoMatchesIsEmptyAndReady(t *testing.T) {
	c := newTestController(t, threeTopicPage, &topicEmbedder{}, Config{})
	ctx := context.Background()
	require.NoError(t, c.Open(ctx))

	results, err := c.Query(ctx, "something entirely unrelated")
	require.NoError(t, err)
	assert.Empty(t, results)

	status := c.Status()
	assert.Equal(t, Ready, status.Phase)
	assert.Equal(t, "no matches", status.Detail)
}

func TestQuery_TooShortRejectedAndSessionStaysReady(t *testing.T) {
	c := newTestController(t, threeTopicPage, &topicEmbedder{}, Config{})
	ctx := context.Background()
	require.NoError(t, c.Open(ctx))

	_, err := c.Query(ctx, "ab")
	assert.ErrorIs(t, err, types.ErrQueryTooShort)

	_, err = c.Query(ctx, "  a  ")
	assert.ErrorIs(t, err, types.ErrQueryTooShort)

	assert.Equal(t, Ready, c.Status().Phase)
}

func TestQuery_BeforeOpenRejected(t *testing.T) {
	c := newTestController(t, threeTopicPage, &topicEmbedder{}, Config{})

	_, err := c.Query(context.Background(), "cooking techniques")
	assert.ErrorIs(t, err, types.ErrNotReady)
}

func TestOpen_EmptyPageReadyWithNothingToSearch(t *testing.T) {
	// Scenario: zero qualifying content reaches a ready state without
	// failing, and queries are rejected gracefully.
	c := newTestController(t, `<html><body><nav>chrome only</nav></body></html>`,
		&topicEmbedder{}, Config{})
	ctx := context.Background()

	require.NoError(t, c.Open(ctx))

	status := c.Status()
	assert.Equal(t, Ready, status.Phase)
	assert.Equal(t, "nothing to search", status.Detail)
	assert.Equal(t, 0, status.ChunkCount)

	_, err := c.Query(ctx, "anything at all")
	assert.ErrorIs(t, err, types.ErrExtractionEmpty)
}

func TestQuery_ChunkEmbeddingsReusedAcrossQueries(t *testing.T) {
	// Scenario: two sequential queries trigger exactly one embedding pass
	// over the chunk set.
	emb := &topicEmbedder{}
	c := newTestController(t, threeTopicPage, emb, Config{})
	ctx := context.Background()

	require.NoError(t, c.Open(ctx))
	afterOpen := emb.calls.Load()

	_, err := c.Query(ctx, "cooking and braising")
	require.NoError(t, err)
	_, err = c.Query(ctx, "football standings")
	require.NoError(t, err)

	// Each query costs one embed call for the query text itself, nothing
	// for the chunks.
	assert.Equal(t, afterOpen+2, emb.calls.Load())
}

func TestNavigation_WrapsInVerticalOrder(t *testing.T) {
	page := `<html><body>
		<div><p>First cooking paragraph about braising and knife skills.</p></div>
		<div><p>Unrelated filler text in the middle of the page.</p></div>
		<div><p>Second cooking paragraph about stocks, sauces, and pan technique.</p></div>
	</body></html>`
	c := newTestController(t, page, &topicEmbedder{}, Config{})
	ctx := context.Background()
	require.NoError(t, c.Open(ctx))

	results, err := c.Query(ctx, "cooking")
	require.NoError(t, err)
	require.Len(t, results, 2)

	first, err := c.Current()
	require.NoError(t, err)
	assert.Contains(t, first.Chunk.Text, "First cooking")

	second, err := c.Next()
	require.NoError(t, err)
	assert.Contains(t, second.Chunk.Text, "Second cooking")
	assert.Greater(t, second.VerticalPos, first.VerticalPos)

	wrapped, err := c.Next()
	require.NoError(t, err)
	assert.Same(t, first, wrapped)

	back, err := c.Prev()
	require.NoError(t, err)
	assert.Same(t, second, back)

	jumped, err := c.JumpTo(0)
	require.NoError(t, err)
	assert.Same(t, first, jumped)

	_, err = c.JumpTo(5)
	assert.Error(t, err)
}

func TestNavigation_NoResults(t *testing.T) {
	c := newTestController(t, threeTopicPage, &topicEmbedder{}, Config{})
	require.NoError(t, c.Open(context.Background()))

	_, err := c.Next()
	assert.ErrorIs(t, err, types.ErrNoMatches)
}

func TestReset_ReturnsToIdleAndDropsState(t *testing.T) {
	c := newTestController(t, threeTopicPage, &topicEmbedder{}, Config{})
	ctx := context.Background()
	require.NoError(t, c.Open(ctx))
	_, err := c.Query(ctx, "cooking and braising")
	require.NoError(t, err)

	c.Reset()

	status := c.Status()
	assert.Equal(t, Idle, status.Phase)
	assert.Equal(t, 0, status.ChunkCount)
	assert.Equal(t, 0, status.MatchCount)

	_, err = c.Query(ctx, "cooking and braising")
	assert.ErrorIs(t, err, types.ErrNotReady)
}

// gatedEmbedder blocks every Embed until released, so tests can interleave
// a reset with an in-flight embedding pass.
type gatedEmbedder struct {
	topicEmbedder
	started   chan struct{}
	gate      chan struct{}
	startOnce sync.Once
}

func (e *gatedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.startOnce.Do(func() { close(e.started) })
	<-e.gate
	return e.topicEmbedder.Embed(ctx, text)
}

func (e *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func TestReset_DiscardsStaleEmbeddingCompletion(t *testing.T) {
	emb := &gatedEmbedder{
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	c := newTestController(t, threeTopicPage, emb, Config{})

	done := make(chan error, 1)
	go func() { done <- c.Open(context.Background()) }()

	<-emb.started
	c.Reset()
	close(emb.gate)

	// The stale completion is swallowed, not surfaced.
	require.NoError(t, <-done)

	status := c.Status()
	assert.Equal(t, Idle, status.Phase)
	assert.Equal(t, 0, status.ChunkCount)
}

func TestOpen_RestoresFromPageCache(t *testing.T) {
	cache := store.NewMemoryStore()
	ctx := context.Background()

	first := &topicEmbedder{}
	c1 := newTestController(t, threeTopicPage, first, Config{Cache: cache})
	require.NoError(t, c1.Open(ctx))
	require.Equal(t, int32(3), first.calls.Load())

	// A fresh session over the same page and model skips re-embedding.
	second := &topicEmbedder{}
	c2 := newTestController(t, threeTopicPage, second, Config{Cache: cache})
	require.NoError(t, c2.Open(ctx))
	assert.Equal(t, int32(0), second.calls.Load())

	// The restored embeddings still rank correctly.
	results, err := c2.Query(ctx, "astronomy telescopes")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Text, "astronomy")
}

func TestQuery_HighlightsActiveMatch(t *testing.T) {
	c := newTestController(t, threeTopicPage, &topicEmbedder{}, Config{})
	ctx := context.Background()
	require.NoError(t, c.Open(ctx))

	results, err := c.Query(ctx, "football championship")
	require.NoError(t, err)
	require.Len(t, results, 1)

	var sb strings.Builder
	require.NoError(t, c.doc.Render(&sb))
	rendered := sb.String()
	assert.Contains(t, rendered, "data-pagesense=")
	assert.Contains(t, rendered, "pagesense-active")

	// A follow-up query replaces the highlights entirely.
	_, err = c.Query(ctx, "cooking and braising")
	require.NoError(t, err)
	sb.Reset()
	require.NoError(t, c.doc.Render(&sb))
	assert.Equal(t, 1, strings.Count(sb.String(), "pagesense-active"))
}

// failingRemote serves fixed three-dimensional vectors until its budget is
// spent, then fails every call with a transport error. Wrapped in the
// fallback provider it reproduces a backend dying mid-session.
type failingRemote struct {
	mu     sync.Mutex
	budget int
}

func (e *failingRemote) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.budget <= 0 {
		return nil, types.ErrTransportFailure
	}
	e.budget--
	return []float32{1, 0, 0}, nil
}

func (e *failingRemote) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *failingRemote) State() types.ModelState {
	return types.ModelState{Status: types.ModelReady, Progress: 100}
}
func (e *failingRemote) Dimension() int { return 3 }
func (e *failingRemote) Model() string  { return "dying-remote-v1" }
func (e *failingRemote) Close() error   { return nil }

func TestOpen_ReembedsWhenBackendDiesMidPass(t *testing.T) {
	remote := &failingRemote{budget: 2}
	emb := embedder.NewFallbackProvider(remote, embedder.NewLocalProvider(embedder.NewCache(0)), nil)
	ctrl := newTestController(t, threeTopicPage, emb, Config{})

	require.NoError(t, ctrl.Open(context.Background()))

	status := ctrl.Status()
	assert.Equal(t, Ready, status.Phase)
	assert.True(t, status.FellBack)
	assert.Equal(t, 3, status.ChunkCount)

	// Every surviving embedding carries the local model's dimension; none
	// of the remote vectors remain to poison ranking.
	for _, chunk := range ctrl.chunks {
		require.True(t, chunk.HasEmbedding())
		assert.Len(t, chunk.Embedding, embedder.LocalDimension)
	}

	query := ctrl.chunks[0].Text
	results, err := ctrl.Query(context.Background(), query)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, query, results[0].Chunk.Text)
	assert.Equal(t, Ready, ctrl.Status().Phase)
}

func TestQuery_ReembedsWhenBackendDiesAfterOpen(t *testing.T) {
	remote := &failingRemote{budget: 3}
	emb := embedder.NewFallbackProvider(remote, embedder.NewLocalProvider(embedder.NewCache(0)), nil)
	ctrl := newTestController(t, threeTopicPage, emb, Config{})

	require.NoError(t, ctrl.Open(context.Background()))
	require.False(t, ctrl.Status().FellBack)

	// The backend dies between activation and the first query: the query
	// embedding comes from the local model while the chunks still carry
	// remote vectors. The session recovers instead of failing.
	query := ctrl.chunks[1].Text
	results, err := ctrl.Query(context.Background(), query)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, query, results[0].Chunk.Text)

	status := ctrl.Status()
	assert.Equal(t, Ready, status.Phase)
	assert.True(t, status.FellBack)
	for _, chunk := range ctrl.chunks {
		assert.Len(t, chunk.Embedding, embedder.LocalDimension)
	}
}
