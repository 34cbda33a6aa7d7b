package pathresolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasihost/p1/pathresolve"
	"github.com/wasihost/p1/storage"
	"github.com/wasihost/p1/storage/memfs"
)

func preopen(path string) pathresolve.Preopen {
	return pathresolve.Preopen{Path: path, Dir: memfs.New()}
}

func TestSelectPreopenLongestPrefixReverseOrder(t *testing.T) {
	a := preopen("/a")
	ab := preopen("/a/b")

	selected, remainder, err := pathresolve.SelectPreopen([]pathresolve.Preopen{a, ab}, "/a/b/c")
	require.NoError(t, err)
	require.Equal(t, "/a/b", selected.Path)
	require.Equal(t, "c", remainder)

	selected, remainder, err = pathresolve.SelectPreopen([]pathresolve.Preopen{ab, a}, "/a/b/c")
	require.NoError(t, err)
	require.Equal(t, "/a/b", selected.Path)
	require.Equal(t, "c", remainder)
}

func TestSelectPreopenComponentBoundary(t *testing.T) {
	a := preopen("/a")
	_, _, err := pathresolve.SelectPreopen([]pathresolve.Preopen{a}, "/ab")
	require.ErrorIs(t, err, pathresolve.ErrNoPreopen)
}

func TestSelectPreopenNoMatch(t *testing.T) {
	_, _, err := pathresolve.SelectPreopen([]pathresolve.Preopen{preopen("/a")}, "/b/c")
	require.ErrorIs(t, err, pathresolve.ErrNoPreopen)
}

func TestResolveDotDotEscape(t *testing.T) {
	root := memfs.New()
	_, _, err := pathresolve.Resolve(context.Background(), root, "../etc/passwd")
	require.ErrorIs(t, err, pathresolve.ErrNotCapable)
}

func TestResolveRoot(t *testing.T) {
	root := memfs.New()
	parent, name, err := pathresolve.Resolve(context.Background(), root, ".")
	require.NoError(t, err)
	require.Equal(t, storage.Dir(root), parent)
	require.Equal(t, "", name)
}

func TestResolveLeafAndDotSkip(t *testing.T) {
	ctx := context.Background()
	root := memfs.New()
	_, err := root.GetDirectory(ctx, "sub", true)
	require.NoError(t, err)

	parent, name, err := pathresolve.Resolve(ctx, root, "./sub/./file.txt")
	require.NoError(t, err)
	require.Equal(t, "file.txt", name)

	_, err = parent.GetFile(ctx, name, true)
	require.NoError(t, err)
}
