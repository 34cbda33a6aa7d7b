package wasip1

import (
	"context"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/api"
)

// unsupported implements a call handler for a WASI function this runtime
// recognizes but does not implement, returning errno without touching
// memory or the module. Sockets (sock_*), symlinks, hard links, and
// fdstat/filestat mutation are all out of scope: see SPEC_FULL.md's
// Non-goals.
func unsupported(errno Errno) func(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return func(context.Context, abi.Memory, api.Module, []uint64) error {
		return errSimple(errno)
	}
}

// pathLink implements path_link: hard links are not supported by the
// storage backends this runtime targets.
func (b *Bindings) pathLink(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// pathSymlink implements path_symlink.
func (b *Bindings) pathSymlink(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// pathReadlink implements path_readlink.
func (b *Bindings) pathReadlink(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// pathRename implements path_rename. The afero-backed storage layer has no
// atomic cross-directory rename primitive that preserves WASI's semantics
// (fails rather than clobbering a non-empty destination directory), so
// this is left unimplemented rather than approximated unsafely.
func (b *Bindings) pathRename(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// fdFdstatSetFlags implements fd_fdstat_set_flags.
func (b *Bindings) fdFdstatSetFlags(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// fdFdstatSetRights implements fd_fdstat_set_rights. Preview-1 rights are a
// capability narrowing mechanism this runtime does not enforce beyond the
// preopen boundary (spec 4.D), so shrinking them further is a no-op the
// guest cannot observe; reporting NOSYS is honest about that gap rather
// than silently accepting a request it can't act on.
func (b *Bindings) fdFdstatSetRights(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// fdAdvise implements fd_advise: a pure performance hint with no portable
// afero equivalent.
func (b *Bindings) fdAdvise(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// fdAllocate implements fd_allocate.
func (b *Bindings) fdAllocate(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// fdFilestatSetTimes implements fd_filestat_set_times.
func (b *Bindings) fdFilestatSetTimes(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// pathFilestatSetTimes implements path_filestat_set_times.
func (b *Bindings) pathFilestatSetTimes(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// schedYield implements sched_yield: a single-goroutine host call handler
// has no scheduler to yield to, so this always succeeds.
func (b *Bindings) schedYield(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return nil
}

// sockAccept implements sock_accept. Sockets are an explicit Non-goal.
func (b *Bindings) sockAccept(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNotsup)(ctx, mem, mod, stack)
}

// sockRecv implements sock_recv.
func (b *Bindings) sockRecv(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNotsup)(ctx, mem, mod, stack)
}

// sockSend implements sock_send.
func (b *Bindings) sockSend(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNotsup)(ctx, mem, mod, stack)
}

// sockShutdown implements sock_shutdown.
func (b *Bindings) sockShutdown(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNotsup)(ctx, mem, mod, stack)
}

// fdPread implements fd_pread: positional scatter-read without disturbing
// the descriptor's current offset. Not named by spec.md, registered for
// import-resolution completeness alongside the rest of the stubs above.
func (b *Bindings) fdPread(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// fdPwrite implements fd_pwrite.
func (b *Bindings) fdPwrite(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}

// procRaise implements proc_raise: this host has no signal delivery
// mechanism for a guest to target.
func (b *Bindings) procRaise(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error {
	return unsupported(ErrnoNosys)(ctx, mem, mod, stack)
}
