package http

import (
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/sagarc03/davgate"
)

// handleGet serves GET and HEAD. Collections get an HTML index of their members.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}

	entry, err := t.Bucket.Stat(r.Context(), t.Key)
	if err != nil {
		HandleError(w, err)
		return
	}

	if entry.IsCollection {
		h.serveIndex(w, r, t)
		return
	}

	entry, body, err := t.Bucket.Open(r.Context(), t.Key)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	if entry.ETag != "" {
		w.Header().Set("ETag", quoteETag(entry.ETag))
	}
	w.Header().Set("Content-Type", entry.ContentType)

	if rs, seekable := body.(io.ReadSeeker); seekable {
		http.ServeContent(w, r, entry.Name(), entry.LastModified, rs)
		return
	}

	if !entry.LastModified.IsZero() {
		w.Header().Set("Last-Modified", entry.LastModified.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Content-Length", strconv.FormatInt(entry.Size, 10))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, body)
	}
}

func quoteETag(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag
	}
	return `"` + etag + `"`
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Index of {{.Title}}</title></head>
<body>
<h1>Index of {{.Title}}</h1>
<ul>
{{- if .Parent}}
<li><a href="{{.Parent}}">../</a></li>
{{- end}}
{{- range .Items}}
<li><a href="{{.Href}}">{{.Name}}</a>{{if not .IsCollection}} ({{.Size}} bytes){{end}}</li>
{{- end}}
</ul>
</body>
</html>
`))

type indexItem struct {
	Href         string
	Name         string
	IsCollection bool
	Size         int64
}

type indexPage struct {
	Title  string
	Parent string
	Items  []indexItem
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request, t Target) {
	children, err := t.Bucket.Children(r.Context(), t.Key)
	if err != nil {
		HandleError(w, err)
		return
	}

	page := indexPage{Title: "/" + t.Bucket.Name() + "/" + t.Key}
	if t.Key != "" {
		page.Parent = h.resolver.Href(t.Bucket.Name(), davgate.ParentKey(t.Key), true)
	}

	for _, c := range children {
		name := c.Name()
		if c.IsCollection {
			name += "/"
		}
		page.Items = append(page.Items, indexItem{
			Href:         h.resolver.Href(t.Bucket.Name(), c.Path, c.IsCollection),
			Name:         name,
			IsCollection: c.IsCollection,
			Size:         c.Size,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if err := indexTemplate.Execute(w, page); err != nil {
		h.logger.Error("render collection index", "error", err)
	}
}
