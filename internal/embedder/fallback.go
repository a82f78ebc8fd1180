package embedder

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/dshills/pagesense/pkg/types"
)

// FallbackProvider routes calls to a remote embedder until the first
// transport-class failure, then permanently switches to the local model for
// the remainder of the session. The remote path is never retried once the
// switch happens.
type FallbackProvider struct {
	remote   Embedder
	local    Embedder
	logger   *slog.Logger
	fellBack atomic.Bool
	degraded atomic.Bool
}

// NewFallbackProvider wraps remote with a permanent local fallback.
func NewFallbackProvider(remote, local Embedder, logger *slog.Logger) *FallbackProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackProvider{
		remote: remote,
		local:  local,
		logger: logger.With("provider", "fallback"),
	}
}

// ReadyWaiter is implemented by providers that load a model asynchronously.
// The session controller blocks on it before batch-embedding.
type ReadyWaiter interface {
	WaitReady(ctx context.Context) error
}

// WaitReady blocks until the active provider can serve embeddings. A remote
// readiness failure flips the fallback switch instead of propagating: the
// local model is always ready.
func (f *FallbackProvider) WaitReady(ctx context.Context) error {
	if f.fellBack.Load() {
		return nil
	}
	w, ok := f.remote.(ReadyWaiter)
	if !ok {
		return nil
	}
	if err := w.WaitReady(ctx); err != nil {
		if f.shouldFallBack(ctx, err) {
			return nil
		}
		return err
	}
	return nil
}

// FellBack reports whether the provider has switched to the local model.
func (f *FallbackProvider) FellBack() bool {
	return f.fellBack.Load()
}

// Degraded reports whether the switch was caused by a malformed backend
// payload rather than a transport failure. Surfaced to the user as a
// degraded-results warning.
func (f *FallbackProvider) Degraded() bool {
	return f.degraded.Load()
}

func (f *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fellBack.Load() {
		return f.local.Embed(ctx, text)
	}
	vec, err := f.remote.Embed(ctx, text)
	if err != nil && f.shouldFallBack(ctx, err) {
		return f.local.Embed(ctx, text)
	}
	return vec, err
}

func (f *FallbackProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fellBack.Load() {
		return f.local.EmbedBatch(ctx, texts)
	}
	vecs, err := f.remote.EmbedBatch(ctx, texts)
	if err != nil && f.shouldFallBack(ctx, err) {
		return f.local.EmbedBatch(ctx, texts)
	}
	return vecs, err
}

func (f *FallbackProvider) State() types.ModelState {
	if f.fellBack.Load() {
		return f.local.State()
	}
	return f.remote.State()
}

func (f *FallbackProvider) Dimension() int {
	if f.fellBack.Load() {
		return f.local.Dimension()
	}
	return f.remote.Dimension()
}

func (f *FallbackProvider) Model() string {
	if f.fellBack.Load() {
		return f.local.Model()
	}
	return f.remote.Model()
}

func (f *FallbackProvider) Close() error {
	rerr := f.remote.Close()
	lerr := f.local.Close()
	if rerr != nil {
		return rerr
	}
	return lerr
}

// shouldFallBack classifies err and flips the sticky switch for transport
// failures, unavailable models, and format errors. Context cancellation and
// input validation errors are the caller's problem and do not flip.
func (f *FallbackProvider) shouldFallBack(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, types.ErrTransportFailure), errors.Is(err, types.ErrModelUnavailable):
		f.logger.Warn("backend unusable, switching to local model for this session", "err", err)
	case errors.Is(err, types.ErrEmbeddingFormat):
		f.degraded.Store(true)
		f.logger.Warn("backend payload malformed, switching to local model for this session", "err", err)
	default:
		return false
	}
	f.fellBack.Store(true)
	return true
}
