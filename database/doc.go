// Package database connects the attempt ledger to a key-value backend.
//
// Every backend implements davgate.KVStore: Get, Put with a TTL, and Delete.
// Connect picks one by type and, for SQL backends, runs migrations and
// validates the schema before returning.
//
// # Supported Backends
//
//   - memory: process-local map, lost on restart
//   - badger: embedded BadgerDB with native TTL
//   - redis: shared Redis with SET EX expiry
//   - sqlite: single-file SQL table, lazy expiry, Purge
//   - postgres: pgx connection pool, lazy expiry, Purge
//
// # Usage
//
//	cfg := database.Config{
//	    Type:  "sqlite",
//	    DSN:   "davgate.db",
//	    Table: "davgate_attempts",
//	}
//
//	kv, cleanup, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
//	ledger, err := davgate.NewAttemptLedger(kv)
//
// SQL backends keep expired rows until an operator runs Purge (exposed as
// "davgate purge"); backends implementing Purger can be type-asserted for it.
package database
