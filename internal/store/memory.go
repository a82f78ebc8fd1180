package store

import (
	"context"
	"sync"
)

// MemoryStore implements PageCache in process memory. It backs sessions
// configured without a cache directory and keeps tests off the filesystem.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*PageRecord
	closed  bool
}

// NewMemoryStore creates an empty in-memory page cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*PageRecord)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*PageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	record, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, record *PageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records[key] = record
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
