package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dshills/pagesense/pkg/types"
)

const (
	// DefaultCallTimeout bounds every request/response exchange. The
	// backend offers no hard cancellation primitive, so expiry abandons
	// the correlation ID and reports a transport failure.
	DefaultCallTimeout = 10 * time.Second

	// DefaultDialTimeout bounds a single provisioning attempt.
	DefaultDialTimeout = 5 * time.Second
)

// Status is the backend's readiness report.
type Status struct {
	Ready    bool   `json:"ready"`
	Loading  bool   `json:"loading"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// request is one correlated message sent to the backend.
type request struct {
	ID   string `json:"id"`
	Op   string `json:"op"`
	Text string `json:"text,omitempty"`
}

// response is one correlated message received from the backend. Vector is
// kept raw: backends disagree on payload shape and the embedder owns the
// coercion rules.
type response struct {
	ID     string          `json:"id"`
	Error  string          `json:"error,omitempty"`
	Status *Status         `json:"status,omitempty"`
	Vector json.RawMessage `json:"vector,omitempty"`
}

// Config configures a backend client.
type Config struct {
	URL         string
	CallTimeout time.Duration
	DialTimeout time.Duration
	Retry       RetryConfig
	Logger      *slog.Logger
}

// Client is the RPC client for the embedding backend: a single WebSocket
// message-passing channel with request correlation IDs. Provisioning (the
// dial) happens once and is memoized; a failed channel is never re-dialed
// within a session - callers react to transport failures by falling back to
// the local provider permanently.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	pending     map[string]chan response
	provisioned bool
	broken      error

	writeMu sync.Mutex
}

// New creates a backend client. The channel is not dialed until first use.
func New(cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		logger:  logger.With("component", "backend"),
		pending: make(map[string]chan response),
	}
}

// Status queries backend readiness.
func (c *Client) Status(ctx context.Context) (Status, error) {
	resp, err := c.call(ctx, request{Op: "status"})
	if err != nil {
		return Status{}, err
	}
	if resp.Status == nil {
		return Status{}, fmt.Errorf("%w: status response missing body", types.ErrEmbeddingFormat)
	}
	return *resp.Status, nil
}

// Embed requests an embedding for text. The raw payload is returned for the
// caller to coerce; a backend-reported error surfaces as ErrModelUnavailable.
func (c *Client) Embed(ctx context.Context, text string) (json.RawMessage, error) {
	resp, err := c.call(ctx, request{Op: "embed", Text: text})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrModelUnavailable, resp.Error)
	}
	if len(resp.Vector) == 0 {
		return nil, fmt.Errorf("%w: embed response missing vector", types.ErrEmbeddingFormat)
	}
	return resp.Vector, nil
}

// Close tears down the channel and fails outstanding calls.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	if c.broken == nil {
		c.broken = fmt.Errorf("%w: client closed", types.ErrTransportFailure)
	}
	c.failPendingLocked()
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// call performs one correlated request/response exchange with a deadline.
func (c *Client) call(ctx context.Context, req request) (response, error) {
	conn, err := c.provision(ctx)
	if err != nil {
		return response{}, err
	}

	req.ID = uuid.NewString()
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.broken != nil {
		err := c.broken
		c.mu.Unlock()
		return response{}, err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err = conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.fail(fmt.Errorf("%w: write: %v", types.ErrTransportFailure, err))
		return response{}, fmt.Errorf("%w: write: %v", types.ErrTransportFailure, err)
	}

	timer := time.NewTimer(c.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return response{}, fmt.Errorf("%w: channel closed", types.ErrTransportFailure)
		}
		return resp, nil
	case <-timer.C:
		return response{}, fmt.Errorf("%w: call timed out after %s", types.ErrTransportFailure, c.cfg.CallTimeout)
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// provision dials the channel once, with bounded retry and backoff, and
// memoizes the outcome. "Backend not yet created" is a provisioning concern
// handled here, not a per-call race.
func (c *Client) provision(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	if c.broken != nil {
		err := c.broken
		c.mu.Unlock()
		return nil, err
	}
	if c.provisioned {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	conn, err := retryWithBackoff(ctx, c.cfg.Retry, func() (*websocket.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
		return conn, err
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provisioned {
		// Another caller won the race; prefer its channel.
		if conn != nil && conn != c.conn {
			_ = conn.Close()
		}
		return c.conn, c.broken
	}

	c.provisioned = true
	if err != nil {
		c.broken = fmt.Errorf("%w: dial %s: %v", types.ErrTransportFailure, c.cfg.URL, err)
		return nil, c.broken
	}

	c.conn = conn
	go c.readLoop(conn)
	c.logger.Debug("backend channel provisioned", "url", c.cfg.URL)
	return conn, nil
}

// readLoop dispatches responses to waiting calls by correlation ID until the
// channel breaks.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			c.fail(fmt.Errorf("%w: read: %v", types.ErrTransportFailure, err))
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if !ok {
			// Stale or unsolicited; drop it.
			continue
		}

		select {
		case ch <- resp:
		default:
		}
	}
}

// fail marks the channel permanently broken and wakes outstanding calls.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken == nil {
		c.broken = err
		c.logger.Warn("backend channel failed", "err", err)
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.failPendingLocked()
}

// failPendingLocked wakes every outstanding call by closing its channel.
// Callers observe the closure as a transport failure.
func (c *Client) failPendingLocked() {
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
