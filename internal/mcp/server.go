package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/pagesense/internal/embedder"
	"github.com/dshills/pagesense/internal/session"
	"github.com/dshills/pagesense/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "pagesense"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies. It holds one
// search session per open page, keyed by session ID.
type Server struct {
	mcp    *server.MCPServer
	emb    embedder.Embedder
	cache  store.PageCache // nil when page caching is disabled
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*pageSession
}

// pageSession pairs a controller with the page identity it was opened for.
type pageSession struct {
	controller *session.Controller
	url        string
}

// Config configures the MCP server.
type Config struct {
	// CacheDir is the directory for the durable page cache. Empty
	// disables caching.
	CacheDir string
	Logger   *slog.Logger
}

// NewServer creates a new MCP server instance. The embedding provider is
// resolved from the environment.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emb, err := embedder.NewFromEnv(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var cache store.PageCache
	if cfg.CacheDir != "" {
		dir := cfg.CacheDir
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		cache, err = store.NewBadgerStore(store.BadgerConfig{Path: filepath.Join(dir, "pages")})
		if err != nil {
			return nil, fmt.Errorf("failed to open page cache: %w", err)
		}
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		emb:      emb,
		cache:    cache,
		logger:   logger,
		sessions: make(map[string]*pageSession),
	}

	s.registerTools()

	return s, nil
}

// Serve runs the MCP server on stdio until ctx is canceled or stdin closes,
// then tears down sessions, the page cache, and the embedder.
func (s *Server) Serve(ctx context.Context) error {
	defer s.closeAll()
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(openPageTool(), s.handleOpenPage)
	s.mcp.AddTool(searchPageTool(), s.handleSearchPage)
	s.mcp.AddTool(navigateTool(), s.handleNavigate)
	s.mcp.AddTool(pageStatusTool(), s.handlePageStatus)
	s.mcp.AddTool(closePageTool(), s.handleClosePage)
}

func (s *Server) session(id string) (*pageSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.sessions[id]
	return ps, ok
}

func (s *Server) closeAll() {
	s.mu.Lock()
	for id, ps := range s.sessions {
		ps.controller.Reset()
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("failed to close page cache", "error", err)
		}
	}
	if err := s.emb.Close(); err != nil {
		s.logger.Warn("failed to close embedder", "error", err)
	}
}
