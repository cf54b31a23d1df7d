// Package davgate provides a WebDAV gateway over object-storage buckets,
// guarded by HTTP Basic authentication with brute-force lockout.
//
// Object stores are flat: a key such as "photos/2024/a.jpg" is just a name.
// Bucket layers WebDAV collections on top, treating a key as a collection when
// a marker object "key/" exists or when any object lives beneath it.
//
// # Key Components
//
//   - Bucket: collection semantics (Stat, Children, Put, Mkcol, Delete) over an ObjectStore
//   - Copy, Move: prefix-rewriting transfers within or across buckets
//   - AttemptLedger: failed-login records with TTL in a KVStore
//   - Guard: Basic credential check consulting the ledger before comparing
//   - IdentityPolicy: which proxy header, if any, identifies the client
//
// # Lockout
//
// Each (identity, username) pair gets one JSON record. The fifth consecutive
// failure bans the pair for LockoutDuration. While banned, every request from
// the pair is denied before the credential is compared, even a correct one.
//
// # Example Usage
//
//	bucket, err := davgate.NewBucket("docs", store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ledger, _ := davgate.NewAttemptLedger(kv)
//	guard, _ := davgate.NewGuard(creds, ledger, slog.Default())
//
//	res, err := guard.Authenticate(ctx, davgate.AuthRequest{
//	    Method:        "GET",
//	    Authorization: r.Header.Get("Authorization"),
//	    Identity:      davgate.IdentityPolicy{}.Identify(r.Header, r.RemoteAddr),
//	})
//
// See the http package for the WebDAV handlers, storage for object store
// backends and database for ledger backends.
package davgate
