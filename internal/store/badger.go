package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// DefaultTTL bounds how long a page record stays valid. Pages change; a
// stale embedding set past this age is worse than re-embedding.
const DefaultTTL = 24 * time.Hour

// BadgerStore implements PageCache on an embedded Badger database.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// BadgerConfig configures the on-disk page cache.
type BadgerConfig struct {
	Path string
	TTL  time.Duration // zero means DefaultTTL
}

// NewBadgerStore opens (creating if needed) the page cache at cfg.Path.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open page cache: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

// Get retrieves the record for key, or ErrNotFound.
func (s *BadgerStore) Get(ctx context.Context, key string) (*PageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var record PageRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page record: %w", err)
	}
	return &record, nil
}

// Put stores the record under key with the configured TTL.
func (s *BadgerStore) Put(ctx context.Context, key string, record *PageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode page record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("failed to write page record: %w", err)
	}
	return nil
}

// Delete removes the record for key. Missing keys are not an error.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("failed to delete page record: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
