package davgate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Bucket layers WebDAV collection semantics over a flat ObjectStore.
type Bucket struct {
	name  string
	store ObjectStore
}

// NewBucket creates a Bucket named name backed by store.
func NewBucket(name string, store ObjectStore) (*Bucket, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return nil, fmt.Errorf("new bucket: %w: invalid bucket name %q", ErrInvalidInput, name)
	}
	if store == nil {
		return nil, fmt.Errorf("new bucket %s: %w: store cannot be nil", name, ErrInvalidInput)
	}
	return &Bucket{name: name, store: store}, nil
}

// Name returns the bucket identifier used as the first URL path segment.
func (b *Bucket) Name() string {
	return b.name
}

// Store returns the underlying object store.
func (b *Bucket) Store() ObjectStore {
	return b.store
}

// storeErr tags a backend failure as ErrStoreUnavailable, leaving ErrNotFound intact.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Stat resolves key to a resource or a collection.
//
// A key is a collection when it is the bucket root, when a marker object
// "key/" exists, or when any object lives under "key/" (stores such as S3
// often hold keys without markers). Returns ErrNotFound otherwise.
func (b *Bucket) Stat(ctx context.Context, key string) (ResourceEntry, error) {
	if err := ctx.Err(); err != nil {
		return ResourceEntry{}, fmt.Errorf("stat: %w", err)
	}

	if key == "" {
		return ResourceEntry{IsCollection: true, ContentType: CollectionContentType}, nil
	}

	if !IsValidKey(key) {
		return ResourceEntry{}, fmt.Errorf("stat %s: %w", key, ErrInvalidInput)
	}

	info, err := b.store.Head(ctx, key)
	if err == nil && !info.IsMarker() {
		return resourceFromInfo(info), nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ResourceEntry{}, storeErr("stat "+key, err)
	}

	marker, err := b.store.Head(ctx, MarkerKey(key))
	if err == nil {
		return ResourceEntry{
			Path:         key,
			IsCollection: true,
			ContentType:  CollectionContentType,
			LastModified: marker.LastModified,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return ResourceEntry{}, storeErr("stat "+key, err)
	}

	members, err := b.store.List(ctx, ChildPrefix(key))
	if err != nil {
		return ResourceEntry{}, storeErr("stat "+key, err)
	}
	if len(members) > 0 {
		return ResourceEntry{Path: key, IsCollection: true, ContentType: CollectionContentType}, nil
	}

	return ResourceEntry{}, fmt.Errorf("stat %s: %w", key, ErrNotFound)
}

// Children lists the immediate members of the collection at key.
// Deeper descendants are folded into their top-level collection.
func (b *Bucket) Children(ctx context.Context, key string) ([]ResourceEntry, error) {
	prefix := ChildPrefix(key)
	objs, err := b.store.List(ctx, prefix)
	if err != nil {
		return nil, storeErr("children "+key, err)
	}

	collections := make(map[string]ResourceEntry)
	var entries []ResourceEntry

	for _, o := range objs {
		rest := strings.TrimPrefix(o.Key, prefix)
		if rest == "" {
			continue
		}

		name, tail, nested := strings.Cut(rest, "/")
		if !nested {
			entries = append(entries, resourceFromInfo(o))
			continue
		}

		childKey := prefix + name
		c, seen := collections[childKey]
		if !seen {
			c = ResourceEntry{Path: childKey, IsCollection: true, ContentType: CollectionContentType}
		}
		if tail == "" {
			c.LastModified = o.LastModified
		}
		collections[childKey] = c
	}

	for _, c := range collections {
		// A file and a collection cannot share a name; the file wins.
		if hasPath(entries, c.Path) {
			continue
		}
		entries = append(entries, c)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	if entries == nil {
		entries = []ResourceEntry{}
	}
	return entries, nil
}

func hasPath(entries []ResourceEntry, p string) bool {
	for _, e := range entries {
		if e.Path == p {
			return true
		}
	}
	return false
}

// Open returns the content of the resource at key.
// Returns ErrNotFound when key is absent and ErrMethodNotAllowed for collections.
func (b *Bucket) Open(ctx context.Context, key string) (ResourceEntry, io.ReadCloser, error) {
	if key == "" || !IsValidKey(key) {
		return ResourceEntry{}, nil, fmt.Errorf("open %s: %w", key, ErrInvalidInput)
	}

	info, body, err := b.store.Get(ctx, key)
	if err != nil {
		return ResourceEntry{}, nil, storeErr("open "+key, err)
	}

	return resourceFromInfo(info), body, nil
}

// PutOptions carries the request-level conditions of a PUT.
type PutOptions struct {
	ContentType string
	// IfMatch, when set, requires the current ETag to match.
	IfMatch string
	// IfNoneMatchAny rejects the write when the target exists.
	IfNoneMatchAny bool
}

// Put writes content at key and creates missing parent collections.
// The returned bool is true when key did not exist before.
func (b *Bucket) Put(ctx context.Context, key string, opts PutOptions, content io.Reader) (ResourceEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return ResourceEntry{}, false, fmt.Errorf("put: %w", err)
	}

	if key == "" || !IsValidKey(key) {
		return ResourceEntry{}, false, fmt.Errorf("put %s: %w", key, ErrInvalidInput)
	}

	existing, err := b.Stat(ctx, key)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ResourceEntry{}, false, fmt.Errorf("put: %w", err)
	}

	if exists && existing.IsCollection {
		return ResourceEntry{}, false, fmt.Errorf("put %s: %w: target is a collection", key, ErrMethodNotAllowed)
	}

	if opts.IfNoneMatchAny && exists {
		return ResourceEntry{}, false, fmt.Errorf("put %s: %w: target exists", key, ErrPreconditionFailed)
	}

	if opts.IfMatch != "" && opts.IfMatch != "*" {
		if !exists || !etagMatches(opts.IfMatch, existing.ETag) {
			return ResourceEntry{}, false, fmt.Errorf("put %s: %w: etag mismatch", key, ErrPreconditionFailed)
		}
	}
	if opts.IfMatch == "*" && !exists {
		return ResourceEntry{}, false, fmt.Errorf("put %s: %w: target missing", key, ErrPreconditionFailed)
	}

	if err := b.ensureCollection(ctx, ParentKey(key)); err != nil {
		return ResourceEntry{}, false, fmt.Errorf("put %s: %w", key, err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	info, err := b.store.Put(ctx, key, contentType, content)
	if err != nil {
		return ResourceEntry{}, false, storeErr("put "+key, err)
	}

	return resourceFromInfo(info), !exists, nil
}

// ensureCollection makes key and every ancestor a collection, writing markers
// where none exist. It fails with ErrCollectionConflict if a resource is in the way.
func (b *Bucket) ensureCollection(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	segments := strings.Split(key, "/")
	for i := range segments {
		ancestor := strings.Join(segments[:i+1], "/")

		entry, err := b.Stat(ctx, ancestor)
		if err == nil {
			if !entry.IsCollection {
				return fmt.Errorf("%w: %s is not a collection", ErrCollectionConflict, ancestor)
			}
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if _, err := b.store.Put(ctx, MarkerKey(ancestor), CollectionContentType, bytes.NewReader(nil)); err != nil {
			return storeErr("create collection "+ancestor, err)
		}
	}

	return nil
}

// Mkcol creates an empty collection at key. The parent must already be a collection.
func (b *Bucket) Mkcol(ctx context.Context, key string) (ResourceEntry, error) {
	if key == "" {
		return ResourceEntry{}, fmt.Errorf("mkcol: %w: bucket root", ErrAlreadyExists)
	}

	if !IsValidKey(key) {
		return ResourceEntry{}, fmt.Errorf("mkcol %s: %w", key, ErrInvalidInput)
	}

	_, err := b.Stat(ctx, key)
	if err == nil {
		return ResourceEntry{}, fmt.Errorf("mkcol %s: %w", key, ErrAlreadyExists)
	}
	if !errors.Is(err, ErrNotFound) {
		return ResourceEntry{}, fmt.Errorf("mkcol: %w", err)
	}

	parent, err := b.Stat(ctx, ParentKey(key))
	if errors.Is(err, ErrNotFound) || (err == nil && !parent.IsCollection) {
		return ResourceEntry{}, fmt.Errorf("mkcol %s: %w", key, ErrCollectionConflict)
	}
	if err != nil {
		return ResourceEntry{}, fmt.Errorf("mkcol: %w", err)
	}

	info, err := b.store.Put(ctx, MarkerKey(key), CollectionContentType, bytes.NewReader(nil))
	if err != nil {
		return ResourceEntry{}, storeErr("mkcol "+key, err)
	}

	return ResourceEntry{
		Path:         key,
		IsCollection: true,
		ContentType:  CollectionContentType,
		LastModified: info.LastModified,
	}, nil
}

// Delete removes the resource at key, or the collection at key together with
// everything beneath it. Deleting a missing key succeeds.
//
// Members are removed deepest first so a partial failure never leaves a
// descendant whose collection marker is already gone. Re-running Delete after
// a failure finishes the job.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if key == "" {
		return fmt.Errorf("delete: %w: cannot delete bucket root", ErrInvalidInput)
	}

	if !IsValidKey(key) {
		return fmt.Errorf("delete %s: %w", key, ErrInvalidInput)
	}

	members, err := b.store.List(ctx, ChildPrefix(key))
	if err != nil {
		return storeErr("delete "+key, err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, m.Key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	keys = append(keys, key)

	for _, k := range keys {
		if err := b.store.Delete(ctx, k); err != nil && !errors.Is(err, ErrNotFound) {
			return storeErr("delete "+k, err)
		}
	}

	return nil
}

func resourceFromInfo(info ObjectInfo) ResourceEntry {
	return ResourceEntry{
		Path:         info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
	}
}

// etagMatches compares an If-Match header value against an ETag.
// It accepts quoted, unquoted and comma separated lists.
func etagMatches(header, etag string) bool {
	if etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == strings.Trim(etag, `"`) {
			return true
		}
	}
	return false
}
