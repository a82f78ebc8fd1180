package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dshills/pagesense/internal/content"
	"github.com/dshills/pagesense/internal/embedder"
	"github.com/dshills/pagesense/internal/locator"
	"github.com/dshills/pagesense/internal/ranker"
	"github.com/dshills/pagesense/internal/segmenter"
	"github.com/dshills/pagesense/internal/store"
	"github.com/dshills/pagesense/pkg/types"
)

// Phase is the controller's position in its lifecycle.
type Phase int

const (
	Idle Phase = iota
	Extracting
	Embedding
	Ready
	Searching
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Extracting:
		return "extracting"
	case Embedding:
		return "embedding"
	case Ready:
		return "ready"
	case Searching:
		return "searching"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// DefaultBatchSize is the number of chunks embedded per batch.
	DefaultBatchSize = 5
	// DefaultMinQueryLength is the minimum query length in runes.
	DefaultMinQueryLength = 3
)

// errStale marks a completion that arrived after a reset. It never leaves
// the package; stale completions are discarded without touching state.
var errStale = errors.New("stale epoch")

// ProgressFunc receives phase and percent updates during activation.
type ProgressFunc func(phase Phase, percent int)

// Config configures a search session.
type Config struct {
	Segmenter      segmenter.Config
	Snapshot       content.SnapshotConfig
	Ranker         ranker.Options
	BatchSize      int
	MinQueryLength int
	Cache          store.PageCache // optional durable page cache
	OnProgress     ProgressFunc    // optional
	Logger         *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = DefaultMinQueryLength
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Controller is the search session state machine for one page. It owns all
// mutable session state: phase, chunk set, current results, and the
// navigation cursor. Exactly one controller exists per open page; a reset
// bumps the epoch so completions of in-flight work are discarded rather
// than resurrecting a closed session.
type Controller struct {
	cfg       Config
	logger    *slog.Logger
	doc       *content.Document
	seg       *segmenter.Segmenter
	emb       embedder.Embedder
	highlight *locator.Highlighter

	mu        sync.Mutex
	phase     Phase
	detail    string // short status text for the current phase
	epoch     uint64
	snapshot  []content.Node
	chunks    []*types.TextChunk
	results   []*types.SearchResult
	navigable []*types.SearchResult
	cursor    int
	lastErr   error
}

// New creates an idle session controller over doc using emb for embeddings.
func New(doc *content.Document, emb embedder.Embedder, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:       cfg,
		logger:    cfg.Logger,
		doc:       doc,
		seg:       segmenter.New(cfg.Segmenter),
		emb:       emb,
		highlight: locator.NewHighlighter(doc),
		phase:     Idle,
		detail:    "idle",
	}
}

// Status is a point-in-time view of the session.
type Status struct {
	Phase      Phase
	Detail     string
	ChunkCount int
	MatchCount int
	Cursor     int
	Model      string
	ModelState types.ModelState
	FellBack   bool
	Degraded   bool
}

// fallbackReporter is implemented by the provider wrapper that tracks
// permanent fallback and degraded-results state.
type fallbackReporter interface {
	FellBack() bool
	Degraded() bool
}

// Status reports the session's current phase, counts, and model state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Phase:      c.phase,
		Detail:     c.detail,
		ChunkCount: len(c.chunks),
		MatchCount: len(c.navigable),
		Cursor:     c.cursor,
		Model:      c.emb.Model(),
		ModelState: c.emb.State(),
	}
	if fr, ok := c.emb.(fallbackReporter); ok {
		st.FellBack = fr.FellBack()
		st.Degraded = fr.Degraded()
	}
	return st
}

// Results returns the current ranked result set.
func (c *Controller) Results() []*types.SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}

// Reset returns the session to Idle: highlights are removed, the chunk set
// and results are dropped, and the epoch advances so any in-flight work is
// discarded when it completes.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.highlight.RemoveAll()
	c.snapshot = nil
	c.chunks = nil
	c.results = nil
	c.navigable = nil
	c.cursor = 0
	c.lastErr = nil
	c.phase = Idle
	c.detail = "idle"
}

// stale reports whether the session was reset after epoch was captured.
func (c *Controller) stale(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch != epoch
}

// fail transitions to Failed with a short status, unless the completion is
// stale, in which case the error is swallowed.
func (c *Controller) fail(epoch uint64, detail string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return errStale
	}
	c.phase = Failed
	c.detail = detail
	c.lastErr = err
	c.logger.Error("session failed", "detail", detail, "error", err)
	return err
}

func (c *Controller) report(phase Phase, percent int) {
	if c.cfg.OnProgress != nil {
		c.cfg.OnProgress(phase, percent)
	}
}
