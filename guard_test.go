package davgate_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/sagarc03/davgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type staticCreds struct {
	cred       davgate.Credential
	publicRead bool
}

func (s staticCreds) Credential(context.Context) (davgate.Credential, bool) {
	return s.cred, s.cred.IsSet()
}

func (s staticCreds) PublicRead() bool { return s.publicRead }

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingKV) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingKV) Delete(context.Context, string) error { return nil }

func (failingKV) Close() error { return nil }

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

type guardFixture struct {
	guard    *davgate.Guard
	ledger   *davgate.AttemptLedger
	clock    *fakeClock
	compares int
}

func newGuard(t *testing.T, creds davgate.CredentialStore) *guardFixture {
	t.Helper()
	l, _, clock := newLedger(t)
	g, err := davgate.NewGuard(creds, l, nil)
	require.NoError(t, err)

	f := &guardFixture{guard: g, ledger: l, clock: clock}
	davgate.SetCompare(g, func(a, b []byte) bool {
		f.compares++
		return davgate.ConstantTimeEqual(a, b)
	})
	return f
}

var aliceCreds = staticCreds{cred: davgate.Credential{Username: "alice", Password: "s3cret"}}

func TestNewGuard(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := davgate.NewGuard(nil, l, nil)
	assert.ErrorIs(t, err, davgate.ErrInvalidInput)

	_, err = davgate.NewGuard(aliceCreds, nil, nil)
	assert.ErrorIs(t, err, davgate.ErrInvalidInput)
}

func TestGuard_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled when no credential configured", func(t *testing.T) {
		f := newGuard(t, staticCreds{})
		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("a", "b"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.DeniedDisabled, res.Decision)
	})

	t.Run("public read skips ledger", func(t *testing.T) {
		f := newGuard(t, staticCreds{cred: aliceCreds.cred, publicRead: true})

		for _, m := range []string{"GET", "HEAD", "PROPFIND"} {
			res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: m, Authorization: basic("alice", "wrong"), Identity: "ip"})
			require.NoError(t, err)
			assert.Equal(t, davgate.Allowed, res.Decision, m)
		}

		rec, err := f.ledger.Lookup(ctx, "ip", "alice")
		require.NoError(t, err)
		assert.Zero(t, rec.FailureCount)
		assert.Zero(t, f.compares)

		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.DeniedUnauthorized, res.Decision)
	})

	t.Run("missing or non-basic header is not a failed attempt", func(t *testing.T) {
		f := newGuard(t, aliceCreds)

		for _, h := range []string{"", "Bearer abc", "Basic"} {
			res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: h, Identity: "ip"})
			require.NoError(t, err)
			assert.Equal(t, davgate.DeniedUnauthorized, res.Decision, "header %q", h)
		}

		rec, err := f.ledger.Lookup(ctx, "ip", davgate.UnknownUsername)
		require.NoError(t, err)
		assert.Zero(t, rec.FailureCount)
		assert.Zero(t, f.compares)
	})

	t.Run("correct credentials", func(t *testing.T) {
		f := newGuard(t, aliceCreds)
		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: basic("alice", "s3cret"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.Allowed, res.Decision)
		assert.Equal(t, "alice", res.Username)
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		f := newGuard(t, aliceCreds)
		h := "basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: h, Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.Allowed, res.Decision)
	})

	t.Run("failures below threshold count up", func(t *testing.T) {
		f := newGuard(t, aliceCreds)

		for i := 1; i < davgate.MaxFailedAttempts; i++ {
			res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("alice", "wrong"), Identity: "ip"})
			require.NoError(t, err)
			assert.Equal(t, davgate.DeniedUnauthorized, res.Decision)

			rec, err := f.ledger.Lookup(ctx, "ip", "alice")
			require.NoError(t, err)
			assert.Equal(t, i, rec.FailureCount)
		}
	})

	t.Run("fifth failure bans and correct password is refused without comparison", func(t *testing.T) {
		f := newGuard(t, aliceCreds)

		var res davgate.AuthResult
		for i := 0; i < davgate.MaxFailedAttempts; i++ {
			var err error
			res, err = f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("alice", "wrong"), Identity: "ip"})
			require.NoError(t, err)
		}
		assert.Equal(t, davgate.DeniedBanned, res.Decision)
		assert.WithinDuration(t, f.clock.now.Add(davgate.LockoutDuration), res.BannedUntil, time.Second)
		assert.Equal(t, davgate.LockoutDuration, res.RetryAfter)

		before := f.compares
		f.clock.Advance(10 * time.Minute)
		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: basic("alice", "s3cret"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.DeniedBanned, res.Decision)
		assert.Equal(t, davgate.LockoutDuration-10*time.Minute, res.RetryAfter)
		assert.Equal(t, before, f.compares, "credential must not be compared while banned")

		// A different identity is unaffected.
		res, err = f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: basic("alice", "s3cret"), Identity: "other"})
		require.NoError(t, err)
		assert.Equal(t, davgate.Allowed, res.Decision)
	})

	t.Run("ban expires and success clears the record", func(t *testing.T) {
		f := newGuard(t, aliceCreds)

		for i := 0; i < davgate.MaxFailedAttempts; i++ {
			_, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("alice", "wrong"), Identity: "ip"})
			require.NoError(t, err)
		}

		f.clock.Advance(davgate.LockoutDuration - time.Minute)
		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: basic("alice", "wrong"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.DeniedBanned, res.Decision)

		f.clock.Advance(2 * time.Minute)
		res, err = f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: basic("alice", "s3cret"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.Allowed, res.Decision)

		rec, err := f.ledger.Lookup(ctx, "ip", "alice")
		require.NoError(t, err)
		assert.Equal(t, davgate.AttemptRecord{}, rec)
	})

	t.Run("success after failures resets count", func(t *testing.T) {
		f := newGuard(t, aliceCreds)

		for i := 0; i < 3; i++ {
			_, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("alice", "wrong"), Identity: "ip"})
			require.NoError(t, err)
		}

		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("alice", "s3cret"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.Allowed, res.Decision)

		rec, err := f.ledger.Lookup(ctx, "ip", "alice")
		require.NoError(t, err)
		assert.Zero(t, rec.FailureCount)
	})

	t.Run("malformed encoding counts against unknown", func(t *testing.T) {
		f := newGuard(t, aliceCreds)

		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: "Basic !!!not-base64", Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.DeniedUnauthorized, res.Decision)
		assert.Equal(t, davgate.UnknownUsername, res.Username)

		noColon := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice"))
		_, err = f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: noColon, Identity: "ip"})
		require.NoError(t, err)

		rec, err := f.ledger.Lookup(ctx, "ip", davgate.UnknownUsername)
		require.NoError(t, err)
		assert.Equal(t, 2, rec.FailureCount)
	})

	t.Run("ledger failure fails closed", func(t *testing.T) {
		l, err := davgate.NewAttemptLedger(failingKV{})
		require.NoError(t, err)
		g, err := davgate.NewGuard(aliceCreds, l, nil)
		require.NoError(t, err)

		_, err = g.Authenticate(ctx, davgate.AuthRequest{Method: "GET", Authorization: basic("alice", "s3cret"), Identity: "ip"})
		assert.ErrorIs(t, err, davgate.ErrStoreUnavailable)
	})

	t.Run("bcrypt hashed password", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		require.NoError(t, err)
		f := newGuard(t, staticCreds{cred: davgate.Credential{Username: "alice", PasswordBcrypt: string(hash)}})

		res, err := f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("alice", "s3cret"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.Allowed, res.Decision)

		res, err = f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("alice", "wrong"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.DeniedUnauthorized, res.Decision)

		res, err = f.guard.Authenticate(ctx, davgate.AuthRequest{Method: "PUT", Authorization: basic("mallory", "s3cret"), Identity: "ip"})
		require.NoError(t, err)
		assert.Equal(t, davgate.DeniedUnauthorized, res.Decision)

		rec, err := f.ledger.Lookup(ctx, "ip", "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, rec.FailureCount)
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, davgate.ConstantTimeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, davgate.ConstantTimeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, davgate.ConstantTimeEqual([]byte("abc"), []byte("abcd")))
	assert.True(t, davgate.ConstantTimeEqual(nil, []byte{}))
}

func TestIsReadMethod(t *testing.T) {
	assert.True(t, davgate.IsReadMethod("GET"))
	assert.True(t, davgate.IsReadMethod("HEAD"))
	assert.True(t, davgate.IsReadMethod("PROPFIND"))
	assert.False(t, davgate.IsReadMethod("PUT"))
	assert.False(t, davgate.IsReadMethod("OPTIONS"))
}
