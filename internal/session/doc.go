// Package session orchestrates semantic in-page search for one page.
//
// The Controller is a small state machine (Idle, Extracting, Embedding,
// Ready, Searching, Failed) that drives segmentation and embedding at
// activation, serves queries out of the embedded chunk set, and owns the
// navigation cursor over located matches. Chunk embeddings are computed
// once per session and reused across queries; a reset advances the session
// epoch so completions of in-flight work are silently discarded instead of
// mutating a closed session.
package session
