package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/database/sqlite"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // SQLite driver
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open")
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

// setupTestStore creates a store with a unique table name for test isolation
func setupTestStore(t *testing.T) (*sqlite.Store, *sql.DB, davgate.Tables, *clock) {
	t.Helper()
	ctx := context.Background()

	db := openDB(t)
	tables := davgate.Tables{Attempts: fmt.Sprintf("attempts_%s", getRandomString(t))}
	require.NoError(t, sqlite.Migrate(ctx, db, tables), "failed to migrate")

	c := &clock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	store, err := sqlite.NewStore(db, tables, sqlite.WithClock(c.Now))
	require.NoError(t, err)

	return store, db, tables, c
}
