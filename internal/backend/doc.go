// Package backend implements the RPC client for the embedding backend: an
// external model host reachable only through an asynchronous message-passing
// channel with no latency bound and no hard cancellation primitive.
//
// The channel is a WebSocket carrying JSON messages correlated by request ID:
//
//	-> {"id": "...", "op": "status"}
//	<- {"id": "...", "status": {"ready": true, "progress": 100}}
//
//	-> {"id": "...", "op": "embed", "text": "..."}
//	<- {"id": "...", "vector": [0.12, -0.03, ...]}
//
// Embedding payloads are returned raw (json.RawMessage): backends disagree on
// vector shape and the embedder package owns the coercion rules.
//
// Provisioning of the channel happens once, with bounded retry and
// exponential backoff, and the outcome is memoized. Every call carries an
// explicit timeout; expiry, a write error, or a read-loop failure marks the
// channel permanently broken and surfaces types.ErrTransportFailure, which
// the embedding provider answers by switching to the local model for the
// remainder of the session. A broken channel is never re-dialed.
package backend
