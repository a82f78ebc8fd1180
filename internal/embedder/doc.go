// Package embedder provides the embedding provider for pagesense: text in,
// L2-normalized unit vector out.
//
// # Providers
//
// Three implementations of the Embedder interface exist:
//
//   - RemoteProvider delegates to the external embedding backend over its
//     message-passing channel and owns the visible ModelState, including the
//     synthesized loading-progress estimate.
//   - OpenAIProvider uses an OpenAI-compatible HTTP embedding service.
//   - LocalProvider derives deterministic hash-based unit vectors in
//     process; always available, never loading.
//
// FallbackProvider composes a remote path with the local one: the first
// transport failure, model-unavailable report, or malformed payload switches
// the session to the local model permanently. The remote path is not retried
// again within the session.
//
// The factory selects a provider from explicit configuration or environment:
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:   embedder.ProviderBackend,
//	    BackendURL: "ws://localhost:8731/embed",
//	})
//
// # Caching
//
// Embeddings are deterministic and idempotent per model version, so every
// provider consults a shared LRU cache keyed by model identity plus a
// whitespace-collapsed text prefix. Repeated Embed calls for identical text
// return the cached vector without recomputation. Concurrent misses on the
// same key may each compute and store; last write wins.
//
// # Payload Coercion
//
// Backend responses arrive in divergent shapes: plain numeric arrays, typed
// buffers encoded as base64, or wrapper objects with a conventional field
// name. CoerceVector normalizes all known shapes and reports
// types.ErrEmbeddingFormat only after exhausting them.
package embedder
