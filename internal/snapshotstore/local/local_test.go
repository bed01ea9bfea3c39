package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/feestatement/internal/snapshotstore"
)

func TestLocalSnapshotStorePutAndGet(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalSnapshotStore(tmpdir)
	require.NoError(t, err)

	ctx := context.Background()
	key := snapshotstore.StatementKey("p1")

	require.NoError(t, store.Put(ctx, key, strings.NewReader(`{"projectId":"p1"}`)))

	reader, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, `{"projectId":"p1"}`, string(data))

	_, err = os.Stat(filepath.Join(tmpdir, "statement-p1.json"))
	assert.NoError(t, err)
}

func TestLocalSnapshotStorePutOverwrites(t *testing.T) {
	store, err := NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", strings.NewReader("first version, longer")))
	require.NoError(t, store.Put(ctx, "k", strings.NewReader("second")))

	reader, err := store.Get(ctx, "k")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalSnapshotStorePutLeavesNoTempFiles(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalSnapshotStore(tmpdir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "k", strings.NewReader("x")))

	entries, err := os.ReadDir(tmpdir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())
}

func TestLocalSnapshotStoreDelete(t *testing.T) {
	store, err := NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", strings.NewReader("x")))

	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, snapshotstore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "k"), snapshotstore.ErrNotFound)
}

func TestLocalSnapshotStoreNotFound(t *testing.T) {
	store, err := NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "statement-nobody")
	assert.ErrorIs(t, err, snapshotstore.ErrNotFound)
}

func TestLocalSnapshotStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"../../etc/passwd", "a/b", `a\b`, ""} {
		_, err := store.Get(ctx, key)
		assert.Error(t, err, key)
		assert.NotErrorIs(t, err, snapshotstore.ErrNotFound, key)
		assert.Error(t, store.Put(ctx, key, strings.NewReader("x")), key)
	}
}
