package filesystem_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/storage/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*filesystem.Store, string) {
	t.Helper()
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = osDir.Close() })
	return filesystem.NewFileStorage(osDir), tempDir
}

func TestStore_Get_Success(t *testing.T) {
	store, tempDir := newStore(t)

	content := []byte("test content")
	err := os.WriteFile(filepath.Join(tempDir, "test.txt"), content, 0o644)
	require.NoError(t, err)

	info, body, err := store.Get(context.Background(), "test.txt")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	assert.Equal(t, "test.txt", info.Key)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "text/plain; charset=utf-8", info.ContentType)
	assert.NotEmpty(t, info.ETag)

	_, ok := body.(io.Seeker)
	assert.True(t, ok, "file body should be seekable")

	readContent, err := io.ReadAll(body)
	assert.NoError(t, err)
	assert.Equal(t, content, readContent)
}

func TestStore_Get_ContextCanceled(t *testing.T) {
	store, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, body, err := store.Get(ctx, "test.txt")
	assert.Nil(t, body)
	assert.Equal(t, context.Canceled, err)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, tempDir := newStore(t)
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "dir"), 0o755))

	for _, key := range []string{"nonexistent.txt", "dir", "dir/"} {
		_, body, err := store.Get(context.Background(), key)
		assert.Nil(t, body)
		assert.ErrorIs(t, err, davgate.ErrNotFound, key)
	}
}

func TestStore_Head(t *testing.T) {
	store, tempDir := newStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "dir", "a.json"), []byte(`{}`), 0o644))

	info, err := store.Head(ctx, "dir/")
	require.NoError(t, err)
	assert.True(t, info.IsMarker())
	assert.Equal(t, davgate.CollectionContentType, info.ContentType)

	_, err = store.Head(ctx, "dir")
	assert.ErrorIs(t, err, davgate.ErrNotFound, "directory must not match a file key")

	_, err = store.Head(ctx, "dir/a.json/")
	assert.ErrorIs(t, err, davgate.ErrNotFound, "file must not match a marker key")

	info, err = store.Head(ctx, "dir/a.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType)
}

func TestStore_Put_Success(t *testing.T) {
	store, tempDir := newStore(t)

	content := []byte("hello world")
	info, err := store.Put(context.Background(), "test.txt", "text/plain", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)

	written, err := os.ReadFile(filepath.Join(tempDir, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, written)
}

func TestStore_Put_WithSubdirectory(t *testing.T) {
	store, tempDir := newStore(t)

	_, err := store.Put(context.Background(), "a/b/c.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tempDir, "a", "b", "c.txt"))
	assert.NoError(t, err)
}

func TestStore_Put_Marker(t *testing.T) {
	store, tempDir := newStore(t)

	info, err := store.Put(context.Background(), "photos/2024/", davgate.CollectionContentType, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "photos/2024/", info.Key)

	fi, err := os.Stat(filepath.Join(tempDir, "photos", "2024"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestStore_Put_SniffsUnknownExtension(t *testing.T) {
	store, _ := newStore(t)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	info, err := store.Put(context.Background(), "image", "", bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
}

func TestStore_Put_ContextCanceledBefore(t *testing.T) {
	store, tempDir := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, "test.txt", "", strings.NewReader("x"))
	assert.Equal(t, context.Canceled, err)

	_, statErr := os.Stat(filepath.Join(tempDir, "test.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_Put_ContextCanceledDuringCopy(t *testing.T) {
	store, tempDir := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())

	slowReader := &slowReader{
		data:   []byte("test content"),
		cancel: cancel,
	}

	_, err := store.Put(ctx, "test.txt", "", slowReader)
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be removed")
}

type slowReader struct {
	data   []byte
	pos    int
	cancel context.CancelFunc
}

func (r *slowReader) Read(p []byte) (n int, err error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	r.cancel()
	n = copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestStore_Delete(t *testing.T) {
	store, tempDir := newStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "dir/a.txt", "", strings.NewReader("x"))
	require.NoError(t, err)

	assert.ErrorIs(t, store.Delete(ctx, "missing.txt"), davgate.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "dir"), davgate.ErrNotFound)
	assert.Error(t, store.Delete(ctx, "dir/"), "non-empty directory")

	require.NoError(t, store.Delete(ctx, "dir/a.txt"))
	require.NoError(t, store.Delete(ctx, "dir/"))

	_, err = os.Stat(filepath.Join(tempDir, "dir"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Delete_ContextCanceled(t *testing.T) {
	store, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, context.Canceled, store.Delete(ctx, "test.txt"))
}

func TestStore_List(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"top.txt", "dir/a.txt", "dir/sub/b.txt", "dirty.txt"} {
		_, err := store.Put(ctx, key, "", strings.NewReader(key))
		require.NoError(t, err)
	}
	_, err := store.Put(ctx, "empty/", "", nil)
	require.NoError(t, err)

	keys := func(prefix string) []string {
		entries, err := store.List(ctx, prefix)
		require.NoError(t, err)
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Key)
		}
		return out
	}

	assert.Equal(t, []string{"dir/", "dir/a.txt", "dir/sub/", "dir/sub/b.txt", "dirty.txt", "empty/", "top.txt"}, keys(""))
	assert.Equal(t, []string{"dir/", "dir/a.txt", "dir/sub/", "dir/sub/b.txt"}, keys("dir/"))
	assert.Equal(t, []string{"dir/sub/", "dir/sub/b.txt"}, keys("dir/sub/"))
	assert.Equal(t, []string{"dir/", "dir/a.txt", "dir/sub/", "dir/sub/b.txt", "dirty.txt"}, keys("dir"))
	assert.Equal(t, []string{}, keys("nothing/"))
}

func TestStore_List_ContextCanceled(t *testing.T) {
	store, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.List(ctx, "")
	assert.Equal(t, context.Canceled, err)
}

func TestStore_List_SkipsTempFiles(t *testing.T) {
	store, tempDir := newStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".davgate-tmp-abc"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "real.txt"), []byte("x"), 0o644))

	entries, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "real.txt", entries[0].Key)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	done := make(chan bool, 10)
	for i := range 10 {
		go func(n int) {
			content := fmt.Appendf(nil, "content-%d", n)
			key := fmt.Sprintf("file-%d.txt", n)
			_, err := store.Put(ctx, key, "", bytes.NewReader(content))
			assert.NoError(t, err)
			done <- true
		}(i)
	}

	for range 10 {
		<-done
	}

	entries, err := store.List(ctx, "")
	assert.NoError(t, err)
	assert.Len(t, entries, 10)
}

func TestBucketOnFilesystem(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	b, err := davgate.NewBucket("files", store)
	require.NoError(t, err)

	_, _, err = b.Put(ctx, "docs/report.txt", davgate.PutOptions{}, strings.NewReader("q3"))
	require.NoError(t, err)

	_, err = davgate.Move(ctx, b, "docs", b, "archive", davgate.TransferOptions{Overwrite: true})
	require.NoError(t, err)

	_, body, err := b.Open(ctx, "archive/report.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	_ = body.Close()
	assert.Equal(t, "q3", string(data))

	_, err = b.Stat(ctx, "docs")
	assert.ErrorIs(t, err, davgate.ErrNotFound)
}

func TestStore_KeyBelowFile(t *testing.T) {
	store, tempDir := newStore(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "c.txt"), []byte("c"), 0o644))

	_, err := store.Head(ctx, "c.txt/child")
	assert.ErrorIs(t, err, davgate.ErrNotFound)

	_, _, err = store.Get(ctx, "c.txt/child")
	assert.ErrorIs(t, err, davgate.ErrNotFound)

	entries, err := store.List(ctx, "c.txt/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBucketOnFilesystem_Resources(t *testing.T) {
	ctx := context.Background()

	newFSBucket := func(t *testing.T) *davgate.Bucket {
		t.Helper()
		store, _ := newStore(t)
		b, err := davgate.NewBucket("files", store)
		require.NoError(t, err)
		return b
	}
	put := func(t *testing.T, b *davgate.Bucket, key, content string) {
		t.Helper()
		_, _, err := b.Put(ctx, key, davgate.PutOptions{}, strings.NewReader(content))
		require.NoError(t, err)
	}
	read := func(t *testing.T, b *davgate.Bucket, key string) string {
		t.Helper()
		_, body, err := b.Open(ctx, key)
		require.NoError(t, err)
		defer func() { _ = body.Close() }()
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		return string(data)
	}

	t.Run("delete file", func(t *testing.T) {
		b := newFSBucket(t)
		put(t, b, "a.txt", "a")

		require.NoError(t, b.Delete(ctx, "a.txt"))

		_, err := b.Stat(ctx, "a.txt")
		assert.ErrorIs(t, err, davgate.ErrNotFound)
	})

	t.Run("move file", func(t *testing.T) {
		b := newFSBucket(t)
		put(t, b, "src.txt", "moved")

		res, err := davgate.Move(ctx, b, "src.txt", b, "dst.txt", davgate.TransferOptions{})
		require.NoError(t, err)
		assert.True(t, res.Created)

		_, err = b.Stat(ctx, "src.txt")
		assert.ErrorIs(t, err, davgate.ErrNotFound)
		assert.Equal(t, "moved", read(t, b, "dst.txt"))
	})

	t.Run("copy overwrites file", func(t *testing.T) {
		b := newFSBucket(t)
		put(t, b, "a.txt", "new")
		put(t, b, "b.txt", "old")

		res, err := davgate.Copy(ctx, b, "a.txt", b, "b.txt", davgate.TransferOptions{Overwrite: true})
		require.NoError(t, err)
		assert.False(t, res.Created)
		assert.Equal(t, "new", read(t, b, "b.txt"))
		assert.Equal(t, "new", read(t, b, "a.txt"))
	})

	t.Run("put below file conflicts", func(t *testing.T) {
		b := newFSBucket(t)
		put(t, b, "c.txt", "c")

		_, _, err := b.Put(ctx, "c.txt/child", davgate.PutOptions{}, strings.NewReader("x"))
		assert.ErrorIs(t, err, davgate.ErrCollectionConflict)
		assert.Equal(t, "c", read(t, b, "c.txt"))
	})

	t.Run("stat below file is not found", func(t *testing.T) {
		b := newFSBucket(t)
		put(t, b, "c.txt", "c")

		_, err := b.Stat(ctx, "c.txt/x")
		assert.ErrorIs(t, err, davgate.ErrNotFound)

		_, _, err = b.Open(ctx, "c.txt/x")
		assert.ErrorIs(t, err, davgate.ErrNotFound)
	})

	t.Run("mkcol below file conflicts", func(t *testing.T) {
		b := newFSBucket(t)
		put(t, b, "c.txt", "c")

		_, err := b.Mkcol(ctx, "c.txt/sub")
		assert.ErrorIs(t, err, davgate.ErrCollectionConflict)
	})
}
