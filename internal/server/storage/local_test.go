package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_RefusesEscapes(t *testing.T) {
	ctx := context.Background()
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", ".", "..", "../outside", "a/../../outside"} {
		err := b.Save(ctx, key, strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, common.ErrInvalidName, key)

		_, err = b.Delete(ctx, key)
		assert.ErrorIs(t, err, common.ErrInvalidName, key)
	}

	_, err = os.Stat(filepath.Join(filepath.Dir(b.Root()), "outside"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalBackend_SaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, b.Save(ctx, "alice/f.txt", strings.NewReader("data"), 4))

	entries, err := os.ReadDir(filepath.Join(b.Root(), "alice"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f.txt", entries[0].Name())
}

func TestLocalBackend_SaveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	err = b.Save(ctx, "alice/f.txt", strings.NewReader("data"), 4)
	require.ErrorIs(t, err, context.Canceled)

	ok, err := b.Exists(context.Background(), "alice/f.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalBackend_MakeDir(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, b.MakeDir(context.Background(), "alice/x/y"))

	info, err := os.Stat(filepath.Join(b.Root(), "alice", "x", "y"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_PruneDir(t *testing.T) {
	ctx := context.Background()
	store, backend := newLocalStore(t)

	_, err := store.CreateDir(ctx, "alice", []string{"empty"})
	require.NoError(t, err)
	_, err = store.Save(ctx, Destination{Owner: "alice", Dir: []string{"full"}, Name: "f"}, strings.NewReader("f"), 1)
	require.NoError(t, err)

	removed, err := store.PruneDir(ctx, "alice", []string{"empty"})
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.PruneDir(ctx, "alice", []string{"full"})
	require.NoError(t, err)
	assert.False(t, removed)
	_, err = os.Stat(filepath.Join(backend.Root(), "alice", "full"))
	require.NoError(t, err)

	removed, err = store.PruneDir(ctx, "alice", []string{"never"})
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.CreateDir(ctx, "alice", []string{"old", "name"})
	require.NoError(t, err)
	removed, err = store.PruneKeyDir(ctx, "alice/old/name")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.DirExists(t, filepath.Join(backend.Root(), "alice", "old"))
}
