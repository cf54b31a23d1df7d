// Package filesystem provides a local directory object store for davgate.
// Writes are atomic through a temp file and rename, collection markers are
// directories, and content types come from the file extension or, failing
// that, from sniffing the first bytes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sagarc03/davgate"
)

const tmpFilePrefix = ".davgate-tmp-"

// Store provides object storage on top of a directory tree.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Open creates dir if needed and returns a Store rooted at it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open storage root: %w", err)
	}

	return NewFileStorage(root), nil
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

func fsPath(key string) string {
	return filepath.FromSlash(strings.TrimSuffix(key, "/"))
}

// Head returns metadata for key. A key ending in "/" matches a directory,
// any other key matches a regular file.
func (s *Store) Head(ctx context.Context, key string) (davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return davgate.ObjectInfo{}, err
	}

	if isTmpKey(key) {
		return davgate.ObjectInfo{}, davgate.ErrNotFound
	}

	fi, err := s.root.Stat(fsPath(key))
	if err != nil {
		if isMissing(err) || errors.Is(err, fs.ErrInvalid) {
			return davgate.ObjectInfo{}, davgate.ErrNotFound
		}
		return davgate.ObjectInfo{}, fmt.Errorf("stat file: %w", err)
	}

	marker := strings.HasSuffix(key, "/")
	if fi.IsDir() != marker {
		return davgate.ObjectInfo{}, davgate.ErrNotFound
	}

	return s.objectInfo(key, fi), nil
}

// Get opens key for reading. The returned *os.File supports seeking.
func (s *Store) Get(ctx context.Context, key string) (davgate.ObjectInfo, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return davgate.ObjectInfo{}, nil, err
	}

	if strings.HasSuffix(key, "/") || isTmpKey(key) {
		return davgate.ObjectInfo{}, nil, davgate.ErrNotFound
	}

	f, err := s.root.Open(fsPath(key))
	if err != nil {
		if isMissing(err) {
			return davgate.ObjectInfo{}, nil, davgate.ErrNotFound
		}
		return davgate.ObjectInfo{}, nil, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return davgate.ObjectInfo{}, nil, fmt.Errorf("stat file: %w", err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return davgate.ObjectInfo{}, nil, davgate.ErrNotFound
	}

	return s.objectInfo(key, fi), f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content to key using a temp file and rename, creating
// intermediate directories as needed. A key ending in "/" creates a directory.
// The content type is not persisted; it is derived again on every read.
func (s *Store) Put(ctx context.Context, key string, contentType string, content io.Reader) (davgate.ObjectInfo, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return davgate.ObjectInfo{}, ctxErr
	}

	if strings.HasSuffix(key, "/") {
		if err := s.root.MkdirAll(fsPath(key), 0o755); err != nil {
			return davgate.ObjectInfo{}, fmt.Errorf("could not create directory: %w", err)
		}
		return s.Head(ctx, key)
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(t, &ctxReader{ctx: ctx, r: content}); err != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("could not sync written file: %w", err)
	}

	dest := fsPath(key)
	if destDir := filepath.Dir(dest); destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return davgate.ObjectInfo{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, dest); renameErr != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}
	success = true

	fi, err := s.root.Stat(dest)
	if err != nil {
		return davgate.ObjectInfo{}, fmt.Errorf("stat written file: %w", err)
	}

	return s.objectInfo(key, fi), nil
}

// Delete removes a file or an empty directory. Returns davgate.ErrNotFound if
// neither exists.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.Head(ctx, key); err != nil {
		return err
	}

	if err := s.root.Remove(fsPath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return davgate.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// List walks the directory holding prefix and returns every file and
// directory whose key starts with prefix. Directories are reported as markers.
func (s *Store) List(ctx context.Context, prefix string) ([]davgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := "."
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		start = prefix[:i]
	}

	entries := make([]davgate.ObjectInfo, 0)

	// The directory named by a "dir/" prefix is itself a match.
	if strings.HasSuffix(prefix, "/") {
		marker, err := s.Head(ctx, prefix)
		if err == nil {
			entries = append(entries, marker)
		} else if !errors.Is(err, davgate.ErrNotFound) {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
	}

	err := s.walkDir(ctx, start, prefix, &entries)
	if err != nil && !isMissing(err) {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return entries, nil
}

func (s *Store) walkDir(ctx context.Context, dir, prefix string, entries *[]davgate.ObjectInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), filepath.ToSlash(dir))
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if strings.HasPrefix(entry.Name(), tmpFilePrefix) {
			continue
		}

		key := entry.Name()
		if dir != "." {
			key = path.Join(filepath.ToSlash(dir), entry.Name())
		}
		if entry.IsDir() {
			key += "/"
		}

		// Descend only into directories that can still contain matches.
		if !strings.HasPrefix(key, prefix) && !strings.HasPrefix(prefix, key) {
			continue
		}

		if strings.HasPrefix(key, prefix) {
			info, err := entry.Info()
			if err != nil {
				return fmt.Errorf("walk dir: %w", err)
			}
			*entries = append(*entries, s.objectInfo(key, info))
		}

		if entry.IsDir() {
			if err := s.walkDir(ctx, strings.TrimSuffix(key, "/"), prefix, entries); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Store) objectInfo(key string, fi fs.FileInfo) davgate.ObjectInfo {
	info := davgate.ObjectInfo{
		Key:          key,
		LastModified: fi.ModTime().UTC(),
		ETag:         fmt.Sprintf("%x-%x", fi.ModTime().UnixNano(), fi.Size()),
	}

	if fi.IsDir() {
		info.ContentType = davgate.CollectionContentType
		return info
	}

	info.Size = fi.Size()
	info.ContentType = s.detectContentType(key)
	return info
}

func byExtension(key string) string {
	return mime.TypeByExtension(path.Ext(key))
}

// detectContentType uses the extension when it is known and sniffs the file
// content otherwise.
func (s *Store) detectContentType(key string) string {
	if ct := byExtension(key); ct != "" {
		return ct
	}

	f, err := s.root.Open(fsPath(key))
	if err != nil {
		return davgate.DefaultContentType
	}
	defer func() { _ = f.Close() }()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return davgate.DefaultContentType
	}
	return mt.String()
}

// isMissing reports whether err means no such entry. A path that runs
// through a regular file fails with ENOTDIR rather than ENOENT.
func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func isTmpKey(key string) bool {
	return strings.HasPrefix(path.Base(strings.TrimSuffix(key, "/")), tmpFilePrefix)
}

func tmpFileName() string {
	return tmpFilePrefix + uuid.New().String()
}
