package http_test

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/sagarc03/davgate"
	davhttp "github.com/sagarc03/davgate/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type multistatus struct {
	Responses []struct {
		Href     string `xml:"href"`
		Propstat struct {
			Prop struct {
				DisplayName   string `xml:"displayname"`
				ContentLength string `xml:"getcontentlength"`
				ContentType   string `xml:"getcontenttype"`
				ETag          string `xml:"getetag"`
				ResourceType  struct {
					Collection *struct{} `xml:"collection"`
				} `xml:"resourcetype"`
			} `xml:"prop"`
			Status string `xml:"status"`
		} `xml:"propstat"`
	} `xml:"response"`
}

func decodeMultistatus(t *testing.T, body []byte) multistatus {
	t.Helper()
	var ms multistatus
	require.NoError(t, xml.Unmarshal(body, &ms))
	return ms
}

func hrefs(ms multistatus) []string {
	out := make([]string, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		out = append(out, r.Href)
	}
	return out
}

func TestHandler_Options(t *testing.T) {
	f := newFixture(t)

	rec := f.doAs("", http.MethodOptions, "/docs/anything", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("DAV"))
	allow := rec.Header().Get("Allow")
	for _, m := range []string{"OPTIONS", "GET", "HEAD", "PUT", "DELETE", "POST", "MKCOL", "COPY", "MOVE", "PROPFIND"} {
		assert.Contains(t, allow, m)
	}
	assert.Equal(t, davhttp.AllowedMethods(), allow)
	assert.Zero(t, f.failures(davgate.UnknownUsername))
}

func TestHandler_UnknownVerb(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{"LOCK", "UNLOCK", "PROPPATCH", "TRACE"} {
		rec := f.doAs(basicAuth(testUser, "wrong"), method, "/docs/a.json", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Empty(t, rec.Body.String(), method)
	}
	assert.Zero(t, f.failures(testUser), "405 must not consume attempts")
}

func TestHandler_PutGetHead(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/docs/notes/today.json", strings.NewReader(`{"a":1}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	rec = f.do(http.MethodPut, "/docs/notes/today.json", strings.NewReader(`{"a":2}`))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/docs/notes/today.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"a":2}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "7", rec.Header().Get("Content-Length"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = f.do(http.MethodHead, "/docs/notes/today.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = f.do(http.MethodGet, "/docs/notes/today.json", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = f.do(http.MethodGet, "/docs/notes/today.json", nil, "Range", "bytes=1-3")
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, `"a"`, rec.Body.String())
}

func TestHandler_PutDeclaredContentType(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/docs/readme", strings.NewReader("hello"), "Content-Type", "text/markdown")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/docs/readme", nil)
	assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
}

func TestHandler_PutSniffsContentType(t *testing.T) {
	f := newFixture(t)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	rec := f.do(http.MethodPut, "/docs/picture", bytes.NewReader(png))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/docs/picture", nil)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestHandler_PutConditional(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/a.json", "{}")

	rec := f.do(http.MethodPut, "/docs/a.json", strings.NewReader("{}"), "If-None-Match", "*")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = f.do(http.MethodPut, "/docs/a.json", strings.NewReader("{}"), "If-Match", `"nope"`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	etag := f.do(http.MethodHead, "/docs/a.json", nil).Header().Get("ETag")
	rec = f.do(http.MethodPut, "/docs/a.json", strings.NewReader("[]"), "If-Match", etag)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_PutOntoCollection(t *testing.T) {
	f := newFixture(t)
	f.mkcol("/docs/dir")

	rec := f.do(http.MethodPut, "/docs/dir", strings.NewReader("x"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = f.do(http.MethodPut, "/docs/", strings.NewReader("x"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_PutTooLarge(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) { o.config.MaxUploadSize = 4 })

	rec := f.do(http.MethodPut, "/docs/big.json", strings.NewReader(`{"too":"big"}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = f.do(http.MethodGet, "/docs/big.json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetMissing(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/docs/missing.json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestHandler_GetCollectionIndex(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/dir/a.json", "{}")
	f.put("/docs/dir/sub/b.json", "{}")

	rec := f.do(http.MethodGet, "/docs/dir", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `href="/docs/dir/a.json"`)
	assert.Contains(t, body, `href="/docs/dir/sub/"`)
	assert.Contains(t, body, `href="/docs/"`)
	assert.NotContains(t, body, "b.json")
}

func TestHandler_Delete(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/dir/a.json", "{}")
	f.put("/docs/dir/sub/b.json", "{}")

	rec := f.do(http.MethodDelete, "/docs/dir", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, p := range []string{"/docs/dir", "/docs/dir/a.json", "/docs/dir/sub/b.json"} {
		assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, p, nil).Code, p)
	}

	rec = f.do(http.MethodDelete, "/docs/never-existed.json", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "delete is idempotent")

	rec = f.do(http.MethodDelete, "/docs/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bucket root cannot be deleted")
}

func TestHandler_Mkcol(t *testing.T) {
	f := newFixture(t)

	rec := f.do(davhttp.MethodMkcol, "/docs/photos", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(davhttp.MethodMkcol, "/docs/photos", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = f.do(davhttp.MethodMkcol, "/docs/missing/child", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(davhttp.MethodMkcol, "/docs/withbody", strings.NewReader("<x/>"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHandler_Propfind(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/dir/a.json", `{"k":"v"}`)
	f.put("/docs/dir/sub/deep.json", "{}")
	f.mkcol("/docs/dir/empty")

	t.Run("depth 0", func(t *testing.T) {
		rec := f.do(davhttp.MethodPropfind, "/docs/dir", nil, "Depth", "0")
		require.Equal(t, http.StatusMultiStatus, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")

		ms := decodeMultistatus(t, rec.Body.Bytes())
		require.Len(t, ms.Responses, 1)
		assert.Equal(t, "/docs/dir/", ms.Responses[0].Href)
		assert.NotNil(t, ms.Responses[0].Propstat.Prop.ResourceType.Collection)
		assert.Equal(t, "HTTP/1.1 200 OK", ms.Responses[0].Propstat.Status)
	})

	t.Run("depth 1 lists immediate children only", func(t *testing.T) {
		rec := f.do(davhttp.MethodPropfind, "/docs/dir", nil, "Depth", "1")
		require.Equal(t, http.StatusMultiStatus, rec.Code)

		ms := decodeMultistatus(t, rec.Body.Bytes())
		assert.Equal(t, []string{"/docs/dir/", "/docs/dir/a.json", "/docs/dir/empty/", "/docs/dir/sub/"}, hrefs(ms))

		file := ms.Responses[1].Propstat.Prop
		assert.Equal(t, "a.json", file.DisplayName)
		assert.Equal(t, "9", file.ContentLength)
		assert.Equal(t, "application/json", file.ContentType)
		assert.NotEmpty(t, file.ETag)
		assert.Nil(t, file.ResourceType.Collection)
	})

	t.Run("depth infinity is served as depth 1", func(t *testing.T) {
		for _, depth := range []string{"infinity", ""} {
			rec := f.do(davhttp.MethodPropfind, "/docs/dir", nil, "Depth", depth)
			require.Equal(t, http.StatusMultiStatus, rec.Code)
			ms := decodeMultistatus(t, rec.Body.Bytes())
			assert.Len(t, ms.Responses, 4)
		}
	})

	t.Run("resource with depth 1", func(t *testing.T) {
		rec := f.do(davhttp.MethodPropfind, "/docs/dir/a.json", nil, "Depth", "1")
		require.Equal(t, http.StatusMultiStatus, rec.Code)
		assert.Len(t, decodeMultistatus(t, rec.Body.Bytes()).Responses, 1)
	})

	t.Run("bucket root", func(t *testing.T) {
		rec := f.do(davhttp.MethodPropfind, "/docs/", nil, "Depth", "1")
		require.Equal(t, http.StatusMultiStatus, rec.Code)
		ms := decodeMultistatus(t, rec.Body.Bytes())
		assert.Equal(t, []string{"/docs/", "/docs/dir/"}, hrefs(ms))
		assert.Equal(t, "docs", ms.Responses[0].Propstat.Prop.DisplayName)
	})

	t.Run("allprop body", func(t *testing.T) {
		body := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`
		rec := f.do(davhttp.MethodPropfind, "/docs/dir", strings.NewReader(body), "Depth", "0")
		assert.Equal(t, http.StatusMultiStatus, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := f.do(davhttp.MethodPropfind, "/docs/dir", strings.NewReader("<nope"), "Depth", "0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid depth", func(t *testing.T) {
		rec := f.do(davhttp.MethodPropfind, "/docs/dir", nil, "Depth", "2")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := f.do(davhttp.MethodPropfind, "/docs/nothing", nil, "Depth", "0")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Copy(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/src/a.json", `{"a":1}`)
	f.put("/docs/src/nested/b.json", `{"b":2}`)

	rec := f.do(davhttp.MethodCopy, "/docs/src", nil, "Destination", "http://example.com/docs/dst")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, name := range []string{"a.json", "nested/b.json"} {
		orig := f.do(http.MethodGet, "/docs/src/"+name, nil)
		copied := f.do(http.MethodGet, "/docs/dst/"+name, nil)
		require.Equal(t, http.StatusOK, copied.Code, name)
		assert.Equal(t, orig.Body.Bytes(), copied.Body.Bytes(), name)
	}

	rec = f.do(davhttp.MethodCopy, "/docs/src", nil, "Destination", "/docs/dst", "Overwrite", "F")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = f.do(davhttp.MethodCopy, "/docs/src", nil, "Destination", "/docs/dst")
	assert.Equal(t, http.StatusNoContent, rec.Code, "overwrite defaults to T")
}

func TestHandler_CopyDepthZero(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/src/a.json", "{}")

	rec := f.do(davhttp.MethodCopy, "/docs/src", nil, "Destination", "/docs/shell", "Depth", "0")
	require.Equal(t, http.StatusCreated, rec.Code)

	ms := decodeMultistatus(t, f.do(davhttp.MethodPropfind, "/docs/shell", nil, "Depth", "1").Body.Bytes())
	assert.Equal(t, []string{"/docs/shell/"}, hrefs(ms))
}

func TestHandler_CopyAcrossBuckets(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/report.json", `{"q":3}`)

	rec := f.do(davhttp.MethodCopy, "/docs/report.json", nil, "Destination", "/archive/2026/report.json")
	assert.Equal(t, http.StatusConflict, rec.Code, "destination parent must exist")

	f.mkcol("/archive/2026")
	rec = f.do(davhttp.MethodCopy, "/docs/report.json", nil, "Destination", "/archive/2026/report.json")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"q":3}`, f.do(http.MethodGet, "/archive/2026/report.json", nil).Body.String())
}

func TestHandler_CopyErrors(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/src/a.json", "{}")

	tests := []struct {
		name    string
		source  string
		headers []string
		want    int
	}{
		{"missing destination", "/docs/src", nil, http.StatusBadRequest},
		{"missing source", "/docs/nope", []string{"Destination", "/docs/x"}, http.StatusNotFound},
		{"unknown destination bucket", "/docs/src", []string{"Destination", "/nobucket/x"}, http.StatusNotFound},
		{"into itself", "/docs/src", []string{"Destination", "/docs/src/inner"}, http.StatusBadRequest},
		{"onto itself", "/docs/src", []string{"Destination", "/docs/src"}, http.StatusBadRequest},
		{"bad overwrite", "/docs/src", []string{"Destination", "/docs/x", "Overwrite", "maybe"}, http.StatusBadRequest},
		{"depth 1", "/docs/src", []string{"Destination", "/docs/x", "Depth", "1"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(davhttp.MethodCopy, tt.source, nil, tt.headers...)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_Move(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/old/a.json", `{"a":1}`)
	f.put("/docs/old/deep/b.json", `{"b":2}`)

	rec := f.do(davhttp.MethodMove, "/docs/old", nil, "Destination", "/docs/new")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, `{"a":1}`, f.do(http.MethodGet, "/docs/new/a.json", nil).Body.String())
	assert.Equal(t, `{"b":2}`, f.do(http.MethodGet, "/docs/new/deep/b.json", nil).Body.String())
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/docs/old/a.json", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(davhttp.MethodPropfind, "/docs/old", nil, "Depth", "0").Code)

	rec = f.do(davhttp.MethodMove, "/docs/new", nil, "Destination", "/docs/other", "Depth", "0")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "MOVE only supports depth infinity")
}

func TestHandler_MoveOverwrite(t *testing.T) {
	f := newFixture(t)
	f.put("/docs/a.json", `"a"`)
	f.put("/docs/b.json", `"b"`)

	rec := f.do(davhttp.MethodMove, "/docs/a.json", nil, "Destination", "/docs/b.json", "Overwrite", "F")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, `"a"`, f.do(http.MethodGet, "/docs/a.json", nil).Body.String())

	rec = f.do(davhttp.MethodMove, "/docs/a.json", nil, "Destination", "/docs/b.json")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, `"a"`, f.do(http.MethodGet, "/docs/b.json", nil).Body.String())
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/docs/a.json", nil).Code)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("note", "ignored"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandler_PostUpload(t *testing.T) {
	f := newFixture(t)

	body, contentType := multipartBody(t, map[string]string{"one.json": `{"n":1}`, "two.json": `{"n":2}`})
	rec := f.do(http.MethodPost, "/docs/uploads", body, "Content-Type", contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created []davgate.ResourceEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created, 2)

	assert.Equal(t, `{"n":1}`, f.do(http.MethodGet, "/docs/uploads/one.json", nil).Body.String())
	assert.Equal(t, `{"n":2}`, f.do(http.MethodGet, "/docs/uploads/two.json", nil).Body.String())
}

func TestHandler_PostRejectsNonMultipart(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/docs/uploads", strings.NewReader(`{}`), "Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType := multipartBody(t, nil)
	rec = f.do(http.MethodPost, "/docs/uploads", body, "Content-Type", contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no file parts")
}

func TestHandler_BasePath(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) { o.basePath = "/webdav/" })

	rec := f.do(http.MethodPut, "/webdav/docs/a.json", strings.NewReader("{}"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(davhttp.MethodPropfind, "/webdav/docs", nil, "Depth", "1")
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Equal(t, []string{"/webdav/docs/", "/webdav/docs/a.json"}, hrefs(decodeMultistatus(t, rec.Body.Bytes())))

	rec = f.do(http.MethodGet, "/docs/a.json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/webdavdocs/a.json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RateLimit(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) { o.config.RateLimit = 2 })

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/docs/a.json", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/docs/a.json", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/docs/a.json", nil).Code)
}

func TestNewHandler_Validation(t *testing.T) {
	resolver, err := davhttp.NewResolver("/", nil)
	require.NoError(t, err)

	_, err = davhttp.NewHandler(&davhttp.HandlerConfig{}, nil, resolver)
	assert.ErrorIs(t, err, davgate.ErrInvalidInput)
}
