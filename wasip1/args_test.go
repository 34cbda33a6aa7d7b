package wasip1_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasihost/p1/wasip1"
)

// TestArgsRoundTrip mirrors spec §8's argv example: args_sizes_get followed
// by args_get must agree on count and byte size, and the guest must observe
// the conventional program name prepended at position 0 (spec 4.E).
func TestArgsRoundTrip(t *testing.T) {
	_, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	const argc, argvBufLen = 0, 4

	builder := newFakeBuilder()
	err := wasip1.Instantiate(ctx, builder, wasip1.Config{
		Args: []string{"one", "two"},
	})
	require.NoError(t, err)

	errno := call(mod, builder, "args_sizes_get", []uint64{argc, argvBufLen})
	require.Equal(t, wasip1.ErrnoSuccess, errno)

	gotArgc, _ := mod.mem.ReadUint32Le(ctx, argc)
	require.Equal(t, uint32(3), gotArgc) // progName + "one" + "two"
	bufLen, _ := mod.mem.ReadUint32Le(ctx, argvBufLen)
	require.Equal(t, uint32(len("wasi\x00one\x00two\x00")), bufLen)

	const argv, argvBuf = 100, 200
	errno = call(mod, builder, "args_get", []uint64{argv, argvBuf})
	require.Equal(t, wasip1.ErrnoSuccess, errno)

	firstPtr, _ := mod.mem.ReadUint32Le(ctx, argv)
	firstStr, _ := mod.mem.Read(ctx, firstPtr, 5)
	require.Equal(t, "wasi\x00", string(firstStr))
}

// TestEnvironRoundTrip mirrors the argv round-trip for environ_sizes_get /
// environ_get, covering the sorted "KEY=VALUE" packing.
func TestEnvironRoundTrip(t *testing.T) {
	_, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	builder := newFakeBuilder()
	err := wasip1.Instantiate(ctx, builder, wasip1.Config{
		Environ: map[string]string{"B": "2", "A": "1"},
	})
	require.NoError(t, err)

	const count, bufLen = 0, 4
	errno := call(mod, builder, "environ_sizes_get", []uint64{count, bufLen})
	require.Equal(t, wasip1.ErrnoSuccess, errno)

	gotCount, _ := mod.mem.ReadUint32Le(ctx, count)
	require.Equal(t, uint32(2), gotCount)
	gotBufLen, _ := mod.mem.ReadUint32Le(ctx, bufLen)
	require.Equal(t, uint32(len("A=1\x00B=2\x00")), gotBufLen)

	const environ, environBuf = 100, 200
	errno = call(mod, builder, "environ_get", []uint64{environ, environBuf})
	require.Equal(t, wasip1.ErrnoSuccess, errno)

	firstPtr, _ := mod.mem.ReadUint32Le(ctx, environ)
	firstStr, _ := mod.mem.Read(ctx, firstPtr, 4)
	require.Equal(t, "A=1\x00", string(firstStr))
}
