package session

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/pagesense/internal/embedder"
	"github.com/dshills/pagesense/internal/store"
	"github.com/dshills/pagesense/pkg/types"
)

// Open activates the session: extract and segment the page, wait for the
// embedding provider, then embed every chunk. A completed chunk/embedding
// set is reused, so calling Open on a Ready session is a no-op; only Reset
// or a new controller forces recomputation.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case Ready, Searching:
		c.mu.Unlock()
		return nil
	case Extracting, Embedding:
		c.mu.Unlock()
		return fmt.Errorf("%w: activation already in progress", types.ErrNotReady)
	}
	epoch := c.epoch
	c.phase = Extracting
	c.detail = "extracting page content"
	c.mu.Unlock()
	c.report(Extracting, 0)

	// Provider readiness overlaps with extraction. The fallback wrapper
	// absorbs backend failures here, so an error is a hard one.
	readyCh := make(chan error, 1)
	go func() {
		if w, ok := c.emb.(embedder.ReadyWaiter); ok {
			readyCh <- w.WaitReady(ctx)
			return
		}
		readyCh <- nil
	}()

	snapshot := c.doc.Snapshot(c.cfg.Snapshot)
	chunks := c.seg.Segment(snapshot)

	if err := <-readyCh; err != nil {
		if fErr := c.fail(epoch, "embedding model unavailable", err); !errors.Is(fErr, errStale) {
			return fErr
		}
		return nil
	}

	if len(chunks) == 0 {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch {
			return nil
		}
		c.snapshot = snapshot
		c.chunks = nil
		c.phase = Ready
		c.detail = "nothing to search"
		return nil
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil
	}
	c.snapshot = snapshot
	c.chunks = chunks
	c.phase = Embedding
	c.detail = "embedding page content"
	c.mu.Unlock()

	fresh := false
	if !c.restoreFromCache(ctx, chunks) {
		if err := c.embedAll(ctx, epoch, chunks); err != nil {
			if errors.Is(err, errStale) {
				return nil
			}
			if fErr := c.fail(epoch, "embedding failed", err); !errors.Is(fErr, errStale) {
				return fErr
			}
			return nil
		}
		// A provider switch mid-pass strands earlier chunks with the old
		// model's dimension. The switch is permanent, so one rebuilt pass
		// embeds everything with the surviving provider.
		if !c.uniformDimension(chunks) {
			rebuilt, err := c.reembed(ctx, epoch)
			if err != nil {
				if errors.Is(err, errStale) {
					return nil
				}
				if fErr := c.fail(epoch, "embedding failed", err); !errors.Is(fErr, errStale) {
					return fErr
				}
				return nil
			}
			chunks = rebuilt
		}
		fresh = true
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil
	}
	c.phase = Ready
	c.detail = fmt.Sprintf("ready, %d chunks", len(chunks))
	c.mu.Unlock()
	c.report(Ready, 100)

	if fresh {
		c.writeCache(ctx, chunks)
	}
	return nil
}

// embedAll embeds chunks in fixed-size batches: requests within a batch fan
// out concurrently, batches run sequentially with a cooperative yield in
// between. Progress is reported per completed batch. A reset mid-pass stops
// the loop with errStale.
func (c *Controller) embedAll(ctx context.Context, epoch uint64, chunks []*types.TextChunk) error {
	total := len(chunks)
	for start := 0; start < total; start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, total)

		g, gctx := errgroup.WithContext(ctx)
		for _, chunk := range chunks[start:end] {
			g.Go(func() error {
				vec, err := c.emb.Embed(gctx, chunk.Text)
				if err != nil {
					return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
				}
				return chunk.AttachEmbedding(vec)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if c.stale(epoch) {
			return errStale
		}
		c.report(Embedding, end*100/total)
		runtime.Gosched()
	}
	return nil
}

// uniformDimension reports whether every embedded chunk matches the
// provider's current dimension. A zero dimension means the provider has not
// locked one in yet (nothing embedded), which is not drift.
func (c *Controller) uniformDimension(chunks []*types.TextChunk) bool {
	dim := c.emb.Dimension()
	if dim == 0 {
		return true
	}
	for _, chunk := range chunks {
		if chunk.HasEmbedding() && len(chunk.Embedding) != dim {
			return false
		}
	}
	return true
}

// reembed rebuilds the chunk set from a fresh snapshot and embeds it with
// the active provider. Embeddings are immutable once attached, so when a
// permanent provider switch leaves chunks carrying the old model's
// dimension the chunks are rebuilt rather than patched.
func (c *Controller) reembed(ctx context.Context, epoch uint64) ([]*types.TextChunk, error) {
	snapshot := c.doc.Snapshot(c.cfg.Snapshot)
	chunks := c.seg.Segment(snapshot)
	if err := c.embedAll(ctx, epoch, chunks); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, errStale
	}
	c.snapshot = snapshot
	c.chunks = chunks
	return chunks, nil
}

// restoreFromCache loads a previously persisted embedding set for this page
// and model. The record must cover the current chunk set exactly; any
// mismatch or cache error falls through to a fresh embedding pass.
func (c *Controller) restoreFromCache(ctx context.Context, chunks []*types.TextChunk) bool {
	if c.cfg.Cache == nil {
		return false
	}
	key := store.PageKey(c.doc.URL(), c.emb.Model())
	record, err := c.cfg.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("page cache read failed", "error", err)
		}
		return false
	}
	if record.Model != c.emb.Model() || len(record.Entries) != len(chunks) {
		return false
	}

	vectors := make(map[string][]float32, len(record.Entries))
	for _, entry := range record.Entries {
		vec := store.DecodeVector(entry.Vector)
		if len(vec) != record.Dimension {
			return false
		}
		vectors[entry.ChunkID] = vec
	}
	// Verify full coverage before attaching anything.
	for _, chunk := range chunks {
		if _, ok := vectors[chunk.ID]; !ok {
			return false
		}
	}
	for _, chunk := range chunks {
		if err := chunk.AttachEmbedding(vectors[chunk.ID]); err != nil {
			return false
		}
	}
	c.logger.Debug("restored embeddings from page cache",
		"url", c.doc.URL(), "chunks", len(chunks))
	return true
}

// writeCache persists the freshly embedded chunk set. The cache is
// advisory; failures are logged and ignored.
func (c *Controller) writeCache(ctx context.Context, chunks []*types.TextChunk) {
	if c.cfg.Cache == nil {
		return
	}
	record := &store.PageRecord{
		URL:       c.doc.URL(),
		Model:     c.emb.Model(),
		Dimension: c.emb.Dimension(),
		CreatedAt: time.Now().UTC(),
		Entries:   make([]store.PageEntry, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			return
		}
		record.Entries = append(record.Entries, store.PageEntry{
			ChunkID: chunk.ID,
			Vector:  store.EncodeVector(chunk.Embedding),
		})
	}
	key := store.PageKey(c.doc.URL(), c.emb.Model())
	if err := c.cfg.Cache.Put(ctx, key, record); err != nil {
		c.logger.Warn("page cache write failed", "error", err)
	}
}
