package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/pagesense/internal/backend"
	"github.com/dshills/pagesense/pkg/types"
)

const (
	remoteModelName = "pagesense-backend-v1"

	// statusPollInterval paces readiness polls while the backend loads.
	statusPollInterval = 500 * time.Millisecond
)

// RemoteProvider delegates embedding to the external backend over its
// message-passing channel. It owns the externally visible ModelState,
// including the synthesized progress estimate for backends that load without
// reporting usable progress.
type RemoteProvider struct {
	client *backend.Client
	model  string
	cache  *Cache
	logger *slog.Logger

	mu    sync.Mutex
	state types.ModelState
	dim   int
}

// NewRemoteProvider creates a backend-delegating embedder.
func NewRemoteProvider(client *backend.Client, cache *Cache, logger *slog.Logger) *RemoteProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteProvider{
		client: client,
		model:  remoteModelName,
		cache:  cache,
		logger: logger.With("provider", "remote"),
		state:  types.ModelState{Status: types.ModelUnloaded},
	}
}

// WaitReady polls backend status until the model is ready, the backend
// fails, or ctx is done. Observed progress is capped at 99 until readiness;
// when the backend reports no forward motion the provider synthesizes a slow
// incremental estimate so callers always see progress advance.
func (r *RemoteProvider) WaitReady(ctx context.Context) error {
	r.setStatus(types.ModelLoading, 0, "")

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		status, err := r.client.Status(ctx)
		if err != nil {
			r.setStatus(types.ModelFailed, 0, err.Error())
			return err
		}

		switch {
		case status.Error != "":
			r.setStatus(types.ModelFailed, 0, status.Error)
			return fmt.Errorf("%w: %s", types.ErrModelUnavailable, status.Error)
		case status.Ready:
			r.setStatus(types.ModelReady, 100, "")
			return nil
		default:
			r.advanceProgress(status.Progress)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	key := CacheKey(r.model, text)
	if r.cache != nil {
		if vec, ok := r.cache.Get(key); ok {
			return vec, nil
		}
	}

	raw, err := r.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	vec, err := CoerceVector(raw)
	if err != nil {
		return nil, err
	}
	vec = Normalize(vec)

	if err := r.checkDimension(len(vec)); err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Set(key, vec)
	}
	return vec, nil
}

func (r *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := r.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (r *RemoteProvider) State() types.ModelState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *RemoteProvider) Dimension() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dim
}

func (r *RemoteProvider) Model() string {
	return r.model
}

func (r *RemoteProvider) Close() error {
	return r.client.Close()
}

func (r *RemoteProvider) setStatus(status types.ModelStatus, progress int, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = types.ModelState{Status: status, Progress: progress, ErrorDetail: detail}.Clamp()
}

// advanceProgress folds a backend progress report into the visible state.
// Reported progress wins when it moves forward; otherwise the estimate
// creeps by one so the caller still observes motion. Either way the value
// stays under 100 until the backend confirms readiness.
func (r *RemoteProvider) advanceProgress(reported int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.state.Progress
	if reported > next {
		next = reported
	} else if next < 99 {
		next++
	}
	r.state = types.ModelState{Status: types.ModelLoading, Progress: next}.Clamp()
}

// checkDimension locks in the backend's dimensionality on first use and
// rejects later drift: within one session all stored embeddings must share
// one dimension.
func (r *RemoteProvider) checkDimension(got int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dim == 0 {
		r.dim = got
		return nil
	}
	if got != r.dim {
		return fmt.Errorf("%w: backend returned %d, expected %d", types.ErrDimensionMismatch, got, r.dim)
	}
	return nil
}
