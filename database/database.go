package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/database/badger"
	"github.com/sagarc03/davgate/database/memory"
	"github.com/sagarc03/davgate/database/postgres"
	"github.com/sagarc03/davgate/database/redis"
	"github.com/sagarc03/davgate/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds the configuration for connecting to a ledger backend.
type Config struct {
	// Type specifies the backend: "memory", "badger", "redis", "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=memory badger redis sqlite postgres"`
	// DSN is the data source name (sqlite, postgres) or redis:// URL
	DSN string `mapstructure:"dsn"`
	// Path is the badger data directory. Empty keeps badger in memory.
	Path string `mapstructure:"path"`
	// Table is the name of the attempts table for SQL backends
	Table string `mapstructure:"table"`
	// KeyPrefix namespaces ledger keys
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Purger is implemented by backends whose expired entries must be removed explicitly.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// IsSQL reports whether the backend keeps its entries in a migrated table.
func (c Config) IsSQL() bool {
	return c.Type == "sqlite" || c.Type == "postgres"
}

// Connect establishes a connection to the configured ledger backend and
// returns a ready KVStore. SQL backends are migrated and their schema
// validated first. The returned cleanup function closes the connection.
func Connect(ctx context.Context, cfg Config) (davgate.KVStore, func(), error) {
	tables := davgate.Tables{Attempts: cfg.Table}

	switch cfg.Type {
	case "memory":
		return memory.New(), func() {}, nil
	case "badger":
		return connectBadger(cfg.Path)
	case "redis":
		return connectRedis(ctx, cfg.DSN)
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN, tables)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN, tables)
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// Migrate creates the attempts table for SQL backends. Other backends need
// no schema and return nil.
func Migrate(ctx context.Context, cfg Config) error {
	if !cfg.IsSQL() {
		return nil
	}

	_, cleanup, err := Connect(ctx, cfg)
	if err != nil {
		return err
	}
	cleanup()
	return nil
}

func connectBadger(path string) (davgate.KVStore, func(), error) {
	store, err := badger.Open(path)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
	}

	return store, cleanup, nil
}

func connectRedis(ctx context.Context, url string) (davgate.KVStore, func(), error) {
	store, err := redis.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
	}

	return store, cleanup, nil
}

func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one connection keeps ":memory:" a single database and serializes writers
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// the CLI writes to the same file while the server runs
	if _, err = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return db, nil
}

func connectSQLite(ctx context.Context, dsn string, tables davgate.Tables) (davgate.KVStore, func(), error) {
	db, err := openSQLite(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err = sqlite.Migrate(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if err = sqlite.ValidateSchema(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	store, err := sqlite.NewStore(db, tables)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create sqlite store: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return store, cleanup, nil
}

func connectPostgres(ctx context.Context, dsn string, tables davgate.Tables) (davgate.KVStore, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = postgres.Migrate(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	if err = postgres.ValidateSchema(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	store, err := postgres.NewStore(pool, tables)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres store: %w", err)
	}

	return store, pool.Close, nil
}
