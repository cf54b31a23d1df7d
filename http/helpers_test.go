package http_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/credential"
	kvmemory "github.com/sagarc03/davgate/database/memory"
	davhttp "github.com/sagarc03/davgate/http"
	objmemory "github.com/sagarc03/davgate/storage/memory"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "alice"
	testPassword = "s3cret"
	testIdentity = "192.0.2.1"
)

type fixture struct {
	t       *testing.T
	router  http.Handler
	docs    *davgate.Bucket
	archive *davgate.Bucket
	ledger  *davgate.AttemptLedger
}

type fixtureOptions struct {
	creds    davgate.CredentialStore
	kv       davgate.KVStore
	basePath string
	config   davhttp.HandlerConfig
	clock    func() time.Time
}

func newFixture(t *testing.T, configure ...func(*fixtureOptions)) *fixture {
	t.Helper()

	opts := fixtureOptions{
		creds: credential.NewStaticStore(davgate.Credential{Username: testUser, Password: testPassword}, false),
		kv:    kvmemory.New(),
	}
	for _, c := range configure {
		c(&opts)
	}

	docs, err := davgate.NewBucket("docs", objmemory.New())
	require.NoError(t, err)
	archive, err := davgate.NewBucket("archive", objmemory.New())
	require.NoError(t, err)

	var ledgerOpts []davgate.LedgerOption
	if opts.clock != nil {
		ledgerOpts = append(ledgerOpts, davgate.WithClock(opts.clock))
	}
	ledger, err := davgate.NewAttemptLedger(opts.kv, ledgerOpts...)
	require.NoError(t, err)
	guard, err := davgate.NewGuard(opts.creds, ledger, nil)
	require.NoError(t, err)

	resolver, err := davhttp.NewResolver(opts.basePath, []*davgate.Bucket{docs, archive})
	require.NoError(t, err)

	handler, err := davhttp.NewHandler(&opts.config, guard, resolver)
	require.NoError(t, err)

	return &fixture{t: t, router: handler.Router(), docs: docs, archive: archive, ledger: ledger}
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// do sends an authenticated request. headers are key/value pairs.
func (f *fixture) do(method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	return f.doAs(basicAuth(testUser, testPassword), method, target, body, headers...)
}

// doAs sends a request with the given Authorization header; "" sends none.
func (f *fixture) doAs(authorization, method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()

	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = testIdentity + ":41234"
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) put(target, content string) {
	f.t.Helper()
	rec := f.do(http.MethodPut, target, strings.NewReader(content))
	require.Contains(f.t, []int{http.StatusCreated, http.StatusNoContent}, rec.Code, rec.Body.String())
}

func (f *fixture) mkcol(target string) {
	f.t.Helper()
	rec := f.do(davhttp.MethodMkcol, target, nil)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (f *fixture) failures(username string) int {
	f.t.Helper()
	rec, err := f.ledger.Lookup(context.Background(), testIdentity, username)
	require.NoError(f.t, err)
	return rec.FailureCount
}
