package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*Store, *LocalBackend) {
	t.Helper()
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	store, err := NewStore(backend, ChecksumSHA256)
	require.NoError(t, err)
	return store, backend
}

func TestNewStore_UnknownAlgorithm(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	_, err = NewStore(backend, "crc32")
	require.Error(t, err)
}

func TestStore_SaveOpenVerify(t *testing.T) {
	ctx := context.Background()
	store, backend := newLocalStore(t)

	obj, err := store.Save(ctx, Destination{Owner: "alice", Dir: []string{"docs"}, Name: "hello.txt"}, strings.NewReader("hello"), 5)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "alice/docs/"))
	assert.True(t, strings.HasSuffix(obj.Key, "_hello.txt"))
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", obj.Checksum)

	_, err = os.Stat(filepath.Join(backend.Root(), filepath.FromSlash(obj.Key)))
	require.NoError(t, err)

	rc, err := store.Open(ctx, obj.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Verify(ctx, obj.Key, obj.Checksum))

	ok, err := store.Exists(ctx, obj.Key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_SaveUnknownSize(t *testing.T) {
	store, _ := newLocalStore(t)

	obj, err := store.Save(context.Background(), Destination{Owner: "alice", Name: "a.bin"}, bytes.NewReader(make([]byte, 1000)), -1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), obj.Size)
}

func TestStore_SaveSizeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		declared int64
	}{
		{"shorter", "abc", 10},
		{"longer", "abcdef", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, backend := newLocalStore(t)

			_, err := store.Save(context.Background(), Destination{Owner: "alice", Name: "x.txt"}, strings.NewReader(tt.content), tt.declared)
			require.ErrorIs(t, err, common.ErrSizeMismatch)

			entries, err := os.ReadDir(filepath.Join(backend.Root(), "alice"))
			require.NoError(t, err)
			assert.Empty(t, entries, "partial object must be removed")
		})
	}
}

func TestStore_SaveInvalidNames(t *testing.T) {
	store, _ := newLocalStore(t)

	_, err := store.Save(context.Background(), Destination{Owner: "alice", Name: ".."}, strings.NewReader(""), 0)
	require.ErrorIs(t, err, common.ErrInvalidName)

	_, err = store.Save(context.Background(), Destination{Owner: "", Name: "a"}, strings.NewReader(""), 0)
	require.ErrorIs(t, err, common.ErrInvalidName)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newLocalStore(t)

	obj, err := store.Save(ctx, Destination{Owner: "alice", Name: "a.txt"}, strings.NewReader("a"), 1)
	require.NoError(t, err)

	ok, err := store.Delete(ctx, obj.Key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, obj.Key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Delete(ctx, "/")
	require.ErrorIs(t, err, common.ErrInvalidName)
}

func TestStore_DeleteDirectoryRecursively(t *testing.T) {
	ctx := context.Background()
	store, _ := newLocalStore(t)

	dir, err := store.CreateDir(ctx, "alice", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "alice/a/b", dir)

	obj, err := store.Save(ctx, Destination{Owner: "alice", Dir: []string{"a", "b"}, Name: "f.txt"}, strings.NewReader("f"), 1)
	require.NoError(t, err)

	ok, err := store.Delete(ctx, "alice/a")
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := store.Exists(ctx, obj.Key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_OpenMissing(t *testing.T) {
	store, _ := newLocalStore(t)

	_, err := store.Open(context.Background(), "alice/nothing")
	require.ErrorIs(t, err, common.ErrStorageRead)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_VerifyMismatch(t *testing.T) {
	ctx := context.Background()
	store, backend := newLocalStore(t)

	obj, err := store.Save(ctx, Destination{Owner: "alice", Name: "a.txt"}, strings.NewReader("original"), 8)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(backend.Root(), filepath.FromSlash(obj.Key)), []byte("tampered"), 0o600))

	err = store.Verify(ctx, obj.Key, obj.Checksum)
	require.ErrorIs(t, err, common.ErrChecksumMismatch)

	err = store.Verify(ctx, obj.Key, "garbage")
	require.ErrorIs(t, err, common.ErrChecksumMismatch)
}

func TestStore_URLNotSupported(t *testing.T) {
	store, _ := newLocalStore(t)

	_, err := store.URL(context.Background(), "alice/a", time.Minute)
	require.ErrorIs(t, err, common.ErrNotSupported)
}

func TestStore_Blake2b(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	store, err := NewStore(backend, ChecksumBlake2b)
	require.NoError(t, err)
	assert.Equal(t, ChecksumBlake2b, store.Algorithm())

	obj, err := store.Save(context.Background(), Destination{Owner: "alice", Name: "a"}, strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "blake2b-256:324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf", obj.Checksum)
}
