// Package badger implements the attempt ledger key-value store on an embedded
// BadgerDB. Expiry is native: entries are written with a TTL and vanish from
// reads once it passes.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sagarc03/davgate"
)

// Store is a davgate.KVStore backed by BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a database in dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}

	return &Store{db: db}, nil
}

// Get returns the value at key. Expired keys report davgate.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, davgate.ErrNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	return value, nil
}

// Put writes value at key with the given ttl.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Purge runs value log garbage collection until nothing more can be reclaimed.
// Expired keys are already invisible, so the count is always zero.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("purge: %w", err)
		}
	}
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
