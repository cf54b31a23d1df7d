// Package postgres implements the attempt ledger key-value store on PostgreSQL.
//
// Rows carry an expires_at timestamp. Expired rows are invisible to Get and
// are removed by Purge; nothing sweeps them in the background.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/davgate"
)

// Store is a davgate.KVStore backed by one PostgreSQL table.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a Store over tables.Attempts. The table must already exist.
func NewStore(pool *pgxpool.Pool, tables davgate.Tables, opts ...Option) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new postgres store: %w", err)
	}

	s := &Store{
		pool:      pool,
		tableName: pgx.Identifier{tables.Attempts}.Sanitize(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Get returns the value at key unless it is absent or expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`
		SELECT value FROM %s
		WHERE key = $1 AND expires_at > $2
	`, s.tableName)

	var value []byte
	err := s.pool.QueryRow(ctx, query, key, s.now()).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, davgate.ErrNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	return value, nil
}

// Put inserts or replaces the value at key and resets its expiry.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query, key, value, now.Add(ttl), now); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.tableName)
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, s.tableName)
	tag, err := s.pool.Exec(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
