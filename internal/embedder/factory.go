package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dshills/pagesense/internal/backend"
)

// Provider names
const (
	ProviderBackend = "backend"
	ProviderOpenAI  = "openai"
	ProviderLocal   = "local"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvProvider   = "PAGESENSE_EMBEDDING_PROVIDER"
	EnvBackendURL = "PAGESENSE_BACKEND_URL"
	EnvOpenAIKey  = "OPENAI_API_KEY"
)

// Config holds embedder configuration.
type Config struct {
	Provider    string
	BackendURL  string
	APIKey      string
	Model       string
	CacheSize   int
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// New creates an embedder with explicit configuration. Remote providers are
// wrapped so the first transport failure switches the session to the local
// model permanently.
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)
	local := NewLocalProvider(cache)

	switch strings.ToLower(cfg.Provider) {
	case ProviderLocal, "":
		return local, nil

	case ProviderBackend:
		if cfg.BackendURL == "" {
			return nil, fmt.Errorf("%w: backend URL not set", ErrProviderRequired)
		}
		client := backend.New(backend.Config{
			URL:         cfg.BackendURL,
			CallTimeout: cfg.CallTimeout,
			Logger:      cfg.Logger,
		})
		remote := NewRemoteProvider(client, cache, cfg.Logger)
		return NewFallbackProvider(remote, local, cfg.Logger), nil

	case ProviderOpenAI:
		remote, err := NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
		if err != nil {
			return nil, err
		}
		return NewFallbackProvider(remote, local, cfg.Logger), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. PAGESENSE_EMBEDDING_PROVIDER (backend, openai, local)
//  2. PAGESENSE_BACKEND_URL set -> backend
//  3. OPENAI_API_KEY set -> openai
//  4. Default to local
func NewFromEnv(logger *slog.Logger) (Embedder, error) {
	return New(Config{
		Provider:   DetectProvider(),
		BackendURL: os.Getenv(EnvBackendURL),
		APIKey:     os.Getenv(EnvOpenAIKey),
		Logger:     logger,
	})
}

// DetectProvider returns the provider that NewFromEnv would select.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvBackendURL) != "" {
		return ProviderBackend
	}
	if os.Getenv(EnvOpenAIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
