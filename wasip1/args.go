package wasip1

import (
	"context"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/api"
)

// argsSizesGet implements args_sizes_get: publishes the argv collection's
// count and packed byte size.
func (b *Bindings) argsSizesGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	argc, argvBufLen := uint32(stack[0]), uint32(stack[1])
	if !mem.WriteU32(ctx, argc, uint32(b.argv.Len())) {
		return errSimple(ErrnoFault)
	}
	if !mem.WriteU32(ctx, argvBufLen, b.argv.Size()) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// argsGet implements args_get: writes the offsets array and packed
// NUL-terminated argv strings.
func (b *Bindings) argsGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	argv, argvBuf := uint32(stack[0]), uint32(stack[1])
	if !b.argv.Write(ctx, mem, argv, argvBuf) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// environSizesGet implements environ_sizes_get, generalizing argsSizesGet's
// pattern to the KEY=VALUE environ collection (spec 4.E names this call but
// the teacher's source file covering it was not retrievable from the
// pack -- see SPEC_FULL.md 4.E).
func (b *Bindings) environSizesGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	count, bufLen := uint32(stack[0]), uint32(stack[1])
	if !mem.WriteU32(ctx, count, uint32(b.environ.Len())) {
		return errSimple(ErrnoFault)
	}
	if !mem.WriteU32(ctx, bufLen, b.environ.Size()) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// environGet implements environ_get.
func (b *Bindings) environGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	environ, environBuf := uint32(stack[0]), uint32(stack[1])
	if !b.environ.Write(ctx, mem, environ, environBuf) {
		return errSimple(ErrnoFault)
	}
	return nil
}
