package davgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// MaxFailedAttempts is the failure count that triggers a ban.
	MaxFailedAttempts = 5
	// LockoutDuration is how long a ban lasts.
	LockoutDuration = 30 * time.Minute
	// RetentionWindow is the TTL applied to a record on every write.
	RetentionWindow = 30 * time.Minute
	// UnknownUsername stands in for a username that could not be decoded.
	UnknownUsername = "unknown"
	// DefaultKeyPrefix namespaces ledger keys in a shared key-value store.
	DefaultKeyPrefix = "login:"
)

// AttemptLedger persists one AttemptRecord per (identity, username) pair in a KVStore.
//
// Updates are read-modify-write without any atomic primitive: concurrent
// failures from the same pair can read the same count and under-count.
type AttemptLedger struct {
	kv     KVStore
	prefix string
	now    func() time.Time
}

// LedgerOption configures an AttemptLedger.
type LedgerOption func(*AttemptLedger)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) LedgerOption {
	return func(l *AttemptLedger) {
		l.prefix = prefix
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *AttemptLedger) {
		l.now = now
	}
}

// NewAttemptLedger creates a ledger on top of kv.
func NewAttemptLedger(kv KVStore, opts ...LedgerOption) (*AttemptLedger, error) {
	if kv == nil {
		return nil, fmt.Errorf("new attempt ledger: %w: kv store cannot be nil", ErrInvalidInput)
	}

	l := &AttemptLedger{
		kv:     kv,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Now returns the ledger's current time.
func (l *AttemptLedger) Now() time.Time {
	return l.now()
}

// Key returns the store key for (identity, username). Both parts are query
// escaped so a "||" inside either one cannot collide with another pair.
func (l *AttemptLedger) Key(identity, username string) string {
	return l.prefix + url.QueryEscape(identity) + "||" + url.QueryEscape(username)
}

// Lookup returns the record for (identity, username). A missing or expired
// record is returned as the zero AttemptRecord.
func (l *AttemptLedger) Lookup(ctx context.Context, identity, username string) (AttemptRecord, error) {
	key := l.Key(identity, username)

	raw, err := l.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return AttemptRecord{}, nil
	}
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("lookup attempts: %w: %w", ErrStoreUnavailable, err)
	}

	var rec AttemptRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Treat a corrupt record as absent.
		return AttemptRecord{}, nil
	}

	return rec, nil
}

// RecordFailure increments the failure count for (identity, username) and
// bans the pair once it reaches MaxFailedAttempts. prev is the record the
// caller already looked up. The updated record is returned.
func (l *AttemptLedger) RecordFailure(ctx context.Context, identity, username string, prev AttemptRecord) (AttemptRecord, error) {
	now := l.now()

	rec := AttemptRecord{FailureCount: prev.FailureCount + 1}
	ttl := RetentionWindow

	if rec.FailureCount >= MaxFailedAttempts {
		until := now.Add(LockoutDuration).UTC()
		rec.BannedUntil = &until
		if d := until.Sub(now); d > ttl {
			ttl = d
		}
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("record failure: %w", err)
	}

	if err := l.kv.Put(ctx, l.Key(identity, username), raw, ttl); err != nil {
		return AttemptRecord{}, fmt.Errorf("record failure: %w: %w", ErrStoreUnavailable, err)
	}

	return rec, nil
}

// Clear removes the record for (identity, username).
func (l *AttemptLedger) Clear(ctx context.Context, identity, username string) error {
	if err := l.kv.Delete(ctx, l.Key(identity, username)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear attempts: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
