package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store is closed")
)

// PageRecord is the durable embedding set for one page under one model.
// Re-opening a page whose record is present skips re-embedding entirely.
type PageRecord struct {
	URL       string      `json:"url"`
	Model     string      `json:"model"`
	Dimension int         `json:"dimension"`
	CreatedAt time.Time   `json:"created_at"`
	Entries   []PageEntry `json:"entries"`
}

// PageEntry pairs a chunk ID with its serialized embedding vector.
type PageEntry struct {
	ChunkID string `json:"chunk_id"`
	Vector  []byte `json:"vector"`
}

// PageCache persists page embedding records keyed by page and model.
type PageCache interface {
	Get(ctx context.Context, key string) (*PageRecord, error)
	Put(ctx context.Context, key string, record *PageRecord) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PageKey derives the cache key for a page URL and embedding model. Records
// from different models never collide, so a provider fallback mid-session
// cannot surface vectors of the wrong dimension.
func PageKey(url, model string) string {
	sum := sha256.Sum256([]byte(url + "\x00" + model))
	return hex.EncodeToString(sum[:])
}

// EncodeVector converts a float32 vector to a little-endian byte blob.
func EncodeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// DecodeVector converts a byte blob back to a float32 vector.
func DecodeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}
