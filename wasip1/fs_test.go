package wasip1_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/internal/fstest"
	"github.com/wasihost/p1/storage/memfs"
	"github.com/wasihost/p1/wasip1"
)

func instantiate(t *testing.T, preopenPath string) (*fakeBuilder, *fakeModule) {
	t.Helper()
	root, err := memfs.FromFS(fstest.FS)
	require.NoError(t, err)

	builder := newFakeBuilder()
	err = wasip1.Instantiate(context.Background(), builder, wasip1.Config{
		Preopens: []wasip1.PreopenConfig{{Path: preopenPath, Dir: root}},
	})
	require.NoError(t, err)
	return builder, newFakeModule(65536)
}

// TestHelloWrite mirrors spec.md §8's "Hello write": path_open(CREATE),
// fd_write, fd_close round-trips a new file's contents.
func TestHelloWrite(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")

	const pathPtr = 0
	p := "/sandbox/hi.txt"
	mod.mem.Write(context.Background(), pathPtr, []byte(p))

	const outFD = 100
	errno := call(mod, b, "path_open", []uint64{
		3, 0, pathPtr, uint64(len(p)), uint64(wasip1.OflagsCreat), 0, 0, 0, outFD,
	})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	fd, _ := mod.mem.ReadUint32Le(context.Background(), outFD)

	const ioBuf, iovecs, nwritten = 200, 300, 400
	mod.mem.Write(context.Background(), ioBuf, []byte("hi"))
	mod.mem.WriteUint32Le(context.Background(), iovecs, ioBuf)
	mod.mem.WriteUint32Le(context.Background(), iovecs+4, 2)

	errno = call(mod, b, "fd_write", []uint64{uint64(fd), iovecs, 1, nwritten})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	n, _ := mod.mem.ReadUint32Le(context.Background(), nwritten)
	require.Equal(t, uint32(2), n)

	errno = call(mod, b, "fd_close", []uint64{uint64(fd)})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
}

// TestReadBack mirrors spec.md §8's "Read back" example against the fixture
// tree's input.txt.
func TestReadBack(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	const pathPtr = 0
	p := "/sandbox/input.txt"
	mod.mem.Write(ctx, pathPtr, []byte(p))

	const outFD = 100
	errno := call(mod, b, "path_open", []uint64{3, 0, pathPtr, uint64(len(p)), 0, 0, 0, 0, outFD})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	fd, _ := mod.mem.ReadUint32Le(ctx, outFD)

	const buf, iovecs, nread = 200, 300, 400
	mod.mem.WriteUint32Le(ctx, iovecs, buf)
	mod.mem.WriteUint32Le(ctx, iovecs+4, 4096)

	errno = call(mod, b, "fd_read", []uint64{uint64(fd), iovecs, 1, nread})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	n, _ := mod.mem.ReadUint32Le(ctx, nread)
	require.Equal(t, uint32(21), n)
	got, _ := mod.mem.Read(ctx, buf, n)
	require.Equal(t, "hello from input.txt\n", string(got))
}

// TestFdReadOnDirectoryIsIsdir covers spec.md §8's "fd_read on a directory
// -> ISDIR" edge case.
func TestFdReadOnDirectoryIsIsdir(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	p := "/sandbox/emptydir"
	mod.mem.Write(ctx, 0, []byte(p))
	const outFD = 100
	errno := call(mod, b, "path_open", []uint64{3, 0, 0, uint64(len(p)), uint64(wasip1.OflagsDirectory), 0, 0, 0, outFD})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	fd, _ := mod.mem.ReadUint32Le(ctx, outFD)

	const iovecs = 300
	mod.mem.WriteUint32Le(ctx, iovecs, 500)
	mod.mem.WriteUint32Le(ctx, iovecs+4, 16)
	errno = call(mod, b, "fd_read", []uint64{uint64(fd), iovecs, 1, 400})
	require.Equal(t, wasip1.ErrnoIsdir, errno)
}

// TestDirectoryListingResumption mirrors spec.md §8's cookie-based
// fd_readdir resumption example against the fixture tree's listing/
// directory (entries a, b, c).
func TestDirectoryListingResumption(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	p := "/sandbox/listing"
	mod.mem.Write(ctx, 0, []byte(p))
	const outFD = 100
	errno := call(mod, b, "path_open", []uint64{3, 0, 0, uint64(len(p)), uint64(wasip1.OflagsDirectory), 0, 0, 0, outFD})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	fd, _ := mod.mem.ReadUint32Le(ctx, outFD)

	const buf, usedOut = 1000, 2000
	seen := map[string]bool{}
	var cookie uint64
	for i := 0; i < 4; i++ {
		errno = call(mod, b, "fd_readdir", []uint64{uint64(fd), buf, 32, cookie, usedOut})
		require.Equal(t, wasip1.ErrnoSuccess, errno)
		used, _ := mod.mem.ReadUint32Le(ctx, usedOut)
		if used == 0 {
			break
		}
		next, _ := mod.mem.ReadUint64Le(ctx, buf)
		nameOff := buf + abi.Dirent.Size
		nlenOff, _ := abi.Dirent.Off("d_namlen")
		nlen, _ := mod.mem.ReadUint32Le(ctx, buf+nlenOff)
		name, _ := mod.mem.Read(ctx, nameOff, nlen)
		seen[string(name)] = true
		cookie = next
	}
	require.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, seen)
}

// TestPathEscapeDenied mirrors spec.md §8's escape-denied example: a
// relative path climbing above the preopen root is rejected NOTCAPABLE.
func TestPathEscapeDenied(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	p := "../etc/passwd"
	mod.mem.Write(ctx, 0, []byte(p))
	errno := call(mod, b, "path_open", []uint64{3, 0, 0, uint64(len(p)), 0, 0, 0, 0, 100})
	require.Equal(t, wasip1.ErrnoNotcapable, errno)
}

// TestFdReaddirBufferTooSmall covers spec.md §8's "too-small buffer writes 0
// bytes, returns success" edge case.
func TestFdReaddirBufferTooSmall(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	p := "/sandbox/listing"
	mod.mem.Write(ctx, 0, []byte(p))
	const outFD = 100
	errno := call(mod, b, "path_open", []uint64{3, 0, 0, uint64(len(p)), uint64(wasip1.OflagsDirectory), 0, 0, 0, outFD})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	fd, _ := mod.mem.ReadUint32Le(ctx, outFD)

	errno = call(mod, b, "fd_readdir", []uint64{uint64(fd), 1000, 1, 0, 2000})
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	used, _ := mod.mem.ReadUint32Le(ctx, 2000)
	require.Equal(t, uint32(0), used)
}
