package davgate

import (
	"context"
	"io"
	"time"
)

// ObjectStore is a flat, key-addressed object store backing one bucket.
// There are no native directories: a collection is the set of keys sharing a
// "name/" prefix, optionally anchored by a marker object whose key ends in "/".
//
// Individual operations must be atomic per key. Nothing is atomic across keys.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Head returns metadata for key.
	//
	// Returns:
	//   - ObjectInfo: metadata of the object or marker
	//   - error: ErrNotFound if key does not exist, or other storage errors
	Head(ctx context.Context, key string) (ObjectInfo, error)

	// Get opens key for reading. The caller must close the returned body.
	// Stores that can serve ranges should return a body implementing io.Seeker.
	//
	// Returns:
	//   - ObjectInfo: metadata of the object
	//   - io.ReadCloser: object content
	//   - error: ErrNotFound if key does not exist, or other storage errors
	Get(ctx context.Context, key string) (ObjectInfo, io.ReadCloser, error)

	// Put writes content at key, replacing any existing object. A key ending in
	// "/" creates a collection marker and content is ignored.
	//
	// Implementations should never expose a partially written object.
	Put(ctx context.Context, key string, contentType string, content io.Reader) (ObjectInfo, error)

	// Delete removes key. Returns ErrNotFound if key does not exist.
	Delete(ctx context.Context, key string) error

	// List returns every key beginning with prefix, markers included, sorted by key.
	// Returns an empty slice (not nil) when nothing matches.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// KVStore is the durable key-value store behind the attempt ledger.
// It provides per-key TTL and nothing stronger: there is no compare-and-swap
// and no atomic increment.
type KVStore interface {
	// Get returns the value stored at key. Returns ErrNotFound if the key is
	// absent or its TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value at key, replacing any previous value and resetting its TTL.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// CredentialStore supplies the configured credential and the public-read flag.
type CredentialStore interface {
	// Credential returns the configured credential and whether one is set.
	Credential(ctx context.Context) (Credential, bool)

	// PublicRead reports whether GET, HEAD and PROPFIND skip authentication.
	PublicRead() bool
}
