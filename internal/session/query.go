package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/pagesense/internal/locator"
	"github.com/dshills/pagesense/internal/ranker"
	"github.com/dshills/pagesense/pkg/types"
)

// Query embeds the query text, ranks it against the session's chunk set,
// and re-resolves and highlights the matches. The chunk embeddings computed
// at activation are reused; only the query itself is embedded. An empty
// result slice with a nil error is the normal no-matches outcome.
func (c *Controller) Query(ctx context.Context, query string) ([]*types.SearchResult, error) {
	trimmed := strings.TrimSpace(query)

	c.mu.Lock()
	if c.phase != Ready {
		phase := c.phase
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: session is %s", types.ErrNotReady, phase)
	}
	if len(c.chunks) == 0 {
		c.mu.Unlock()
		return nil, types.ErrExtractionEmpty
	}
	if utf8.RuneCountInString(trimmed) < c.cfg.MinQueryLength {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: need at least %d characters",
			types.ErrQueryTooShort, c.cfg.MinQueryLength)
	}
	epoch := c.epoch
	chunks := c.chunks
	c.phase = Searching
	c.detail = "searching"
	c.mu.Unlock()

	queryVec, err := c.emb.Embed(ctx, trimmed)
	if err != nil {
		if fErr := c.fail(epoch, "query embedding failed", err); !errors.Is(fErr, errStale) {
			return nil, fErr
		}
		return nil, fmt.Errorf("%w: session was reset", types.ErrNotReady)
	}

	// The provider may have switched permanently since activation, leaving
	// the chunk embeddings in the old model's dimension. Re-embed with the
	// surviving provider before ranking.
	if !c.uniformDimension(chunks) {
		chunks, err = c.reembed(ctx, epoch)
		if err != nil {
			if errors.Is(err, errStale) {
				return nil, fmt.Errorf("%w: session was reset", types.ErrNotReady)
			}
			if fErr := c.fail(epoch, "embedding failed", err); !errors.Is(fErr, errStale) {
				return nil, fErr
			}
			return nil, fmt.Errorf("%w: session was reset", types.ErrNotReady)
		}
	}

	results, err := ranker.Rank(queryVec, chunks, c.cfg.Ranker)
	if err != nil {
		if fErr := c.fail(epoch, "ranking failed", err); !errors.Is(fErr, errStale) {
			return nil, fErr
		}
		return nil, fmt.Errorf("%w: session was reset", types.ErrNotReady)
	}

	// Resolve against a fresh snapshot so matches survive content drift.
	snapshot := c.doc.Snapshot(c.cfg.Snapshot)
	locator.Resolve(results, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, fmt.Errorf("%w: session was reset", types.ErrNotReady)
	}

	c.highlight.RemoveAll()
	c.highlight.HighlightAll(results, snapshot)
	c.snapshot = snapshot
	c.results = results
	c.navigable = locator.NavigableOrder(results)
	c.cursor = 0
	if len(c.navigable) > 0 {
		c.highlight.SetActive(c.navigable[0].Chunk.ID)
		c.detail = fmt.Sprintf("%d matches", len(c.navigable))
	} else {
		c.highlight.SetActive("")
		c.detail = "no matches"
	}
	c.phase = Ready
	return results, nil
}

// Next advances the navigation cursor, wrapping past the last match, and
// moves the active highlight with it.
func (c *Controller) Next() (*types.SearchResult, error) {
	return c.move(+1)
}

// Prev moves the navigation cursor backward, wrapping before the first
// match.
func (c *Controller) Prev() (*types.SearchResult, error) {
	return c.move(-1)
}

func (c *Controller) move(delta int) (*types.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.navigable)
	if n == 0 {
		return nil, types.ErrNoMatches
	}
	c.cursor = ((c.cursor+delta)%n + n) % n
	result := c.navigable[c.cursor]
	c.highlight.SetActive(result.Chunk.ID)
	return result, nil
}

// JumpTo moves the cursor to the given index in the navigable list.
func (c *Controller) JumpTo(index int) (*types.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.navigable) == 0 {
		return nil, types.ErrNoMatches
	}
	if index < 0 || index >= len(c.navigable) {
		return nil, fmt.Errorf("index %d out of range [0,%d)", index, len(c.navigable))
	}
	c.cursor = index
	result := c.navigable[c.cursor]
	c.highlight.SetActive(result.Chunk.ID)
	return result, nil
}

// Current returns the result under the navigation cursor.
func (c *Controller) Current() (*types.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.navigable) == 0 {
		return nil, types.ErrNoMatches
	}
	return c.navigable[c.cursor], nil
}
