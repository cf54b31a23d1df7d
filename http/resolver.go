package http

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/sagarc03/davgate"
)

// Target is the per-request resolution of a URL: which bucket and which key
// inside it. The empty key is the bucket root.
type Target struct {
	Bucket *davgate.Bucket
	Key    string
}

type targetKey struct{}

// WithTarget stores t in ctx.
func WithTarget(ctx context.Context, t Target) context.Context {
	return context.WithValue(ctx, targetKey{}, t)
}

// TargetFromContext returns the Target stored by ResolveMiddleware.
func TargetFromContext(ctx context.Context) (Target, bool) {
	t, ok := ctx.Value(targetKey{}).(Target)
	return t, ok
}

// Resolver maps request paths onto buckets. The first segment after the
// base path names the bucket; the rest is the object key.
type Resolver struct {
	basePath string
	buckets  map[string]*davgate.Bucket
}

// NewResolver creates a resolver mounted at basePath ("/" or e.g. "/webdav").
func NewResolver(basePath string, buckets []*davgate.Bucket) (*Resolver, error) {
	r := &Resolver{
		basePath: cleanBasePath(basePath),
		buckets:  make(map[string]*davgate.Bucket, len(buckets)),
	}

	for _, b := range buckets {
		if _, dup := r.buckets[b.Name()]; dup {
			return nil, fmt.Errorf("new resolver: %w: duplicate bucket %q", davgate.ErrInvalidInput, b.Name())
		}
		r.buckets[b.Name()] = b
	}

	return r, nil
}

func cleanBasePath(p string) string {
	p = "/" + davgate.NormalizeKey(p)
	if p == "/" {
		return ""
	}
	return p
}

// BasePath returns the normalized mount point, "" for the server root.
func (r *Resolver) BasePath() string {
	return r.basePath
}

// Buckets returns the configured buckets sorted by name.
func (r *Resolver) Buckets() []*davgate.Bucket {
	out := make([]*davgate.Bucket, 0, len(r.buckets))
	for _, b := range r.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Resolve maps a decoded URL path to a Target.
func (r *Resolver) Resolve(urlPath string) (Target, error) {
	rest, ok := strings.CutPrefix(urlPath, r.basePath)
	if !ok || (rest != "" && rest[0] != '/') {
		return Target{}, fmt.Errorf("resolve %s: %w", urlPath, davgate.ErrBucketUnresolved)
	}

	name, key, _ := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
	bucket, ok := r.buckets[name]
	if !ok {
		return Target{}, fmt.Errorf("resolve %s: %w", urlPath, davgate.ErrBucketUnresolved)
	}

	key = davgate.NormalizeKey(key)
	if !davgate.IsValidKey(key) {
		return Target{}, fmt.Errorf("resolve %s: %w: invalid key", urlPath, davgate.ErrInvalidInput)
	}

	return Target{Bucket: bucket, Key: key}, nil
}

// ResolveDestination resolves a Destination header. Absolute URIs and
// absolute paths are accepted; the host part is not checked.
func (r *Resolver) ResolveDestination(header string) (Target, error) {
	if header == "" {
		return Target{}, fmt.Errorf("destination: %w: header missing", davgate.ErrInvalidInput)
	}

	u, err := url.Parse(header)
	if err != nil {
		return Target{}, fmt.Errorf("destination: %w: %w", davgate.ErrInvalidInput, err)
	}

	if u.Path == "" || u.Path[0] != '/' {
		return Target{}, fmt.Errorf("destination %s: %w: not an absolute path", header, davgate.ErrInvalidInput)
	}

	return r.Resolve(u.Path)
}

// Href builds the escaped URL path for key in bucket. Collections get a trailing slash.
func (r *Resolver) Href(bucket, key string, collection bool) string {
	segments := []string{r.basePath, url.PathEscape(bucket)}
	if key != "" {
		for _, s := range strings.Split(key, "/") {
			segments = append(segments, url.PathEscape(s))
		}
	}

	href := path.Join(segments...)
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	if collection {
		href += "/"
	}
	return href
}
