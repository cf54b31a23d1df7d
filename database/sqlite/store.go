// Package sqlite implements the attempt ledger key-value store on SQLite.
//
// SQLite has no native TTL, so every row carries an expires_at column.
// Expired rows are invisible to Get; Purge deletes them.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/davgate"
)

// Store is a davgate.KVStore backed by one SQLite table.
type Store struct {
	db        *sql.DB
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
func NewStore(db *sql.DB, tables davgate.Tables, opts ...Option) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new sqlite store: %w", err)
	}

	s := &Store{
		db:        db,
		tableName: quoteIdentifier(tables.Attempts),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the value at key unless it is absent or expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT value FROM %s WHERE key = ? AND expires_at > ?`, s.tableName)

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key, s.now().UnixMilli()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, davgate.ErrNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	return value, nil
}

// Put inserts or replaces the value at key and resets its expiry.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		key, value, now.Add(ttl).UnixMilli(), now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.tableName) //nolint:gosec // table name is validated
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, s.tableName) //nolint:gosec // table name is validated
	res, err := s.db.ExecContext(ctx, query, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge: rows affected: %w", err)
	}
	return n, nil
}
