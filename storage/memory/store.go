// Package memory provides an in-process object store for davgate.
// Data lives only as long as the process; it backs tests and scratch buckets.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sagarc03/davgate"
)

type object struct {
	info davgate.ObjectInfo
	data []byte
}

// Store is a map-backed davgate.ObjectStore. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		objects: make(map[string]object),
		now:     time.Now,
	}
}

// Head returns metadata for key.
func (s *Store) Head(ctx context.Context, key string) (davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return davgate.ObjectInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return davgate.ObjectInfo{}, davgate.ErrNotFound
	}
	return obj.info, nil
}

// Get returns a seekable reader over a snapshot of key's content.
func (s *Store) Get(ctx context.Context, key string) (davgate.ObjectInfo, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return davgate.ObjectInfo{}, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok || obj.info.IsMarker() {
		return davgate.ObjectInfo{}, nil, davgate.ErrNotFound
	}

	return obj.info, readSeekNopCloser{bytes.NewReader(obj.data)}, nil
}

// Put stores content at key. The content is fully read before the object
// becomes visible.
func (s *Store) Put(ctx context.Context, key string, contentType string, content io.Reader) (davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return davgate.ObjectInfo{}, err
	}

	var data []byte
	if !strings.HasSuffix(key, "/") {
		var err error
		data, err = io.ReadAll(content)
		if err != nil {
			return davgate.ObjectInfo{}, fmt.Errorf("read content: %w", err)
		}
	} else {
		contentType = davgate.CollectionContentType
	}

	sum := sha256.Sum256(data)
	info := davgate.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: s.now().UTC().Truncate(time.Second),
	}

	s.mu.Lock()
	s.objects[key] = object{info: info, data: data}
	s.mu.Unlock()

	return info, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return davgate.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

// List returns every key beginning with prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]davgate.ObjectInfo, 0)
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, obj.info)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})

	return out, nil
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }
