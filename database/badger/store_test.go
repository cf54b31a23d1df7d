package badger_test

import (
	"context"
	"testing"
	"time"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/database/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dir string) *badger.Store {
	t.Helper()
	s, err := badger.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	_, err := s.Get(ctx, "login:missing")
	assert.ErrorIs(t, err, davgate.ErrNotFound)

	require.NoError(t, s.Put(ctx, "login:a", []byte("one"), time.Hour))
	got, err := s.Get(ctx, "login:a")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, s.Put(ctx, "login:a", []byte("two"), time.Hour))
	got, err = s.Get(ctx, "login:a")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, s.Delete(ctx, "login:a"))
	require.NoError(t, s.Delete(ctx, "login:a"))
	_, err = s.Get(ctx, "login:a")
	assert.ErrorIs(t, err, davgate.ErrNotFound)
}

func TestStore_TTL(t *testing.T) {
	s := openStore(t, "")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "login:short", []byte("v"), time.Second))

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, "login:short")
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := badger.Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "login:a", []byte("kept"), time.Hour))
	require.NoError(t, s.Close())

	s = openStore(t, dir)
	got, err := s.Get(ctx, "login:a")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got))
}

func TestStore_CanceledContext(t *testing.T) {
	s := openStore(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Put(ctx, "k", []byte("v"), time.Hour), context.Canceled)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
