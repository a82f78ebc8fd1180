package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dshills/pagesense/pkg/types"
)

const (
	// DefaultOpenAIModel is the embedding model used when none is given.
	DefaultOpenAIModel = "text-embedding-3-small"

	// OpenAIDimension is the dimension of the default model.
	OpenAIDimension = 1536
)

// OpenAIProvider embeds through an OpenAI-compatible HTTP embedding service.
// An alternative remote path for deployments without the native backend.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
	cache  *Cache
}

// NewOpenAIProvider creates an OpenAI-backed embedder.
func NewOpenAIProvider(apiKey, model string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrProviderRequired)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	dim := OpenAIDimension
	if model == "text-embedding-3-large" {
		dim = 3072
	}

	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		dim:    dim,
		cache:  cache,
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	key := CacheKey(o.model, text)
	if o.cache != nil {
		if vec, ok := o.cache.Get(key); ok {
			return vec, nil
		}
	}

	vectors, err := o.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		o.cache.Set(key, vectors[0])
	}
	return vectors[0], nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}

	// Serve what the cache already has; request the rest in one call.
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if o.cache != nil {
			if vec, ok := o.cache.Get(CacheKey(o.model, text)); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vectors, err := o.request(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, vec := range vectors {
			out[missingIdx[j]] = vec
			if o.cache != nil {
				o.cache.Set(CacheKey(o.model, missing[j]), vec)
			}
		}
	}

	return out, nil
}

// request performs one embeddings API call for the given inputs.
func (o *OpenAIProvider) request(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.model),
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTransportFailure, err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			types.ErrEmbeddingFormat, len(inputs), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range",
				types.ErrEmbeddingFormat, data.Index)
		}
		src := data.Embedding
		vec := make([]float32, len(src))
		for i := range src {
			vec[i] = float32(src[i])
		}
		vectors[data.Index] = Normalize(vec)
	}
	return vectors, nil
}

// State reports an HTTP embedding service as ready once constructed; call
// failures are routed through the fallback wrapper instead.
func (o *OpenAIProvider) State() types.ModelState {
	return types.ModelState{Status: types.ModelReady, Progress: 100}
}

func (o *OpenAIProvider) Dimension() int {
	return o.dim
}

func (o *OpenAIProvider) Model() string {
	return "openai-" + o.model
}

func (o *OpenAIProvider) Close() error {
	return nil
}
