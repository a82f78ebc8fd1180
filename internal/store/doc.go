// Package store persists page embedding records so that re-opening a page
// under the same model skips re-embedding.
//
// The production backend is an embedded Badger database with a TTL on every
// record; MemoryStore provides the same interface without touching disk.
// Vectors are stored as little-endian float32 blobs.
package store
