package storage_test

import (
	"context"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasihost/p1/internal/fstest"
	"github.com/wasihost/p1/storage"
	"github.com/wasihost/p1/storage/memfs"
)

func TestGetFileCreate(t *testing.T) {
	ctx := context.Background()
	root := memfs.New()

	_, err := root.GetFile(ctx, "new.txt", false)
	require.ErrorIs(t, err, fs.ErrNotExist)

	f, err := root.GetFile(ctx, "new.txt", true)
	require.NoError(t, err)

	w, err := f.Writer(ctx, false)
	require.NoError(t, err)
	n, err := w.WriteAt(ctx, []byte("hi"), 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, w.Close())

	buf := make([]byte, 16)
	n, err = f.ReadAt(ctx, buf, 0)
	require.ErrorIs(t, err, io.EOF) // short read: fewer than len(buf) bytes remain
	require.Equal(t, "hi", string(buf[:n]))
}

func TestGetFileOnDirectory(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.FromFS(fstest.FS)
	require.NoError(t, err)

	_, err = root.GetFile(ctx, "sub", false)
	require.ErrorIs(t, err, storage.ErrIsDir)
}

func TestGetDirectoryOnFile(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.FromFS(fstest.FS)
	require.NoError(t, err)

	_, err = root.GetDirectory(ctx, "input.txt", false)
	require.ErrorIs(t, err, storage.ErrNotDir)
}

func TestRemoveEntryNotEmpty(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.FromFS(fstest.FS)
	require.NoError(t, err)

	err = root.RemoveEntry(ctx, "listing", false)
	require.ErrorIs(t, err, storage.ErrNotEmpty)

	require.NoError(t, root.RemoveEntry(ctx, "listing", true))
}

func TestEntriesListing(t *testing.T) {
	ctx := context.Background()
	root, err := memfs.FromFS(fstest.FS)
	require.NoError(t, err)

	dir, err := root.GetDirectory(ctx, "listing", false)
	require.NoError(t, err)

	it, err := dir.Entries(ctx)
	require.NoError(t, err)

	var names []string
	for {
		e, err := it.Next(ctx)
		if storage.IsIteratorDone(err) {
			break
		}
		require.NoError(t, err)
		names = append(names, e.Name)
	}
	require.ElementsMatch(t, []string{"a", "b", "c"}, names)
}
