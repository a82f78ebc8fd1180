package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pagesense/pkg/types"
)

// newTestBackend runs a WebSocket backend that answers each request via
// handler. Returning nil drops the request, simulating a stalled backend.
func newTestBackend(t *testing.T, handler func(req request) *response) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := handler(req)
			if resp == nil {
				continue
			}
			resp.ID = req.ID
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestClient_Status(t *testing.T) {
	url := newTestBackend(t, func(req request) *response {
		require.Equal(t, "status", req.Op)
		return &response{Status: &Status{Ready: true, Progress: 100}}
	})

	c := New(Config{URL: url})
	defer func() { _ = c.Close() }()

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Equal(t, 100, status.Progress)
}

func TestClient_EmbedReturnsRawVector(t *testing.T) {
	url := newTestBackend(t, func(req request) *response {
		require.Equal(t, "embed", req.Op)
		return &response{Vector: json.RawMessage(`[0.1, 0.2, 0.3]`)}
	})

	c := New(Config{URL: url})
	defer func() { _ = c.Close() }()

	raw, err := c.Embed(context.Background(), "some text")
	require.NoError(t, err)

	var vec []float64
	require.NoError(t, json.Unmarshal(raw, &vec))
	assert.Len(t, vec, 3)
}

func TestClient_BackendErrorIsModelUnavailable(t *testing.T) {
	url := newTestBackend(t, func(req request) *response {
		return &response{Error: "model crashed during load"}
	})

	c := New(Config{URL: url})
	defer func() { _ = c.Close() }()

	_, err := c.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, types.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestClient_CallTimeoutIsTransportFailure(t *testing.T) {
	url := newTestBackend(t, func(req request) *response {
		return nil // never answer
	})

	c := New(Config{URL: url, CallTimeout: 50 * time.Millisecond})
	defer func() { _ = c.Close() }()

	_, err := c.Status(context.Background())
	assert.ErrorIs(t, err, types.ErrTransportFailure)
}

func TestClient_DialFailureIsMemoized(t *testing.T) {
	// Nothing listens here; provisioning fails and the channel is marked
	// broken for the rest of the session.
	c := New(Config{
		URL:         "ws://127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		Retry:       fastRetry(),
	})
	defer func() { _ = c.Close() }()

	start := time.Now()
	_, err := c.Status(context.Background())
	assert.ErrorIs(t, err, types.ErrTransportFailure)

	// The second call fails immediately without re-dialing.
	_, err = c.Status(context.Background())
	assert.ErrorIs(t, err, types.ErrTransportFailure)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_ConcurrentCallsCorrelate(t *testing.T) {
	url := newTestBackend(t, func(req request) *response {
		// Answer with a vector derived from the request so a crossed
		// correlation would be visible.
		return &response{Vector: json.RawMessage(fmt.Sprintf("[%d]", len(req.Text)))}
	})

	c := New(Config{URL: url})
	defer func() { _ = c.Close() }()

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			text := strings.Repeat("x", n)
			raw, err := c.Embed(context.Background(), text)
			require.NoError(t, err)

			var vec []int
			require.NoError(t, json.Unmarshal(raw, &vec))
			require.Len(t, vec, 1)
			assert.Equal(t, n, vec[0])
		}(i)
	}
	wg.Wait()
}

func TestClient_CanceledContext(t *testing.T) {
	url := newTestBackend(t, func(req request) *response {
		return nil
	})

	c := New(Config{URL: url})
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	// Provision first so cancellation hits the call wait, not the dial.
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Status(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithBackoff_EventuallySucceeds(t *testing.T) {
	attempts := 0
	result, err := retryWithBackoff(context.Background(), RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Multiplier:  1,
	}, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, fmt.Errorf("attempt %d failed", attempts)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := retryWithBackoff(context.Background(), RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Multiplier:  1,
	}, func() (int, error) {
		attempts++
		return 0, fmt.Errorf("always fails")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}
