package wasip1

import (
	"context"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/api"
)

// ModuleName is the import module name a guest's compiled imports expect
// these functions to be exported under.
const ModuleName = "wasi_snapshot_preview1"

const (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// handler is the shape of every call handler method on *Bindings: derive
// abi.Memory from mod, do the work, return a rich error or nil.
type handler func(ctx context.Context, mem abi.Memory, mod api.Module, stack []uint64) error

// wrap adapts a handler to api.GoModuleFunction, implementing spec 7's
// three-layer error handling end to end: it runs the handler against the
// Bindings' own host-supplied cancel signal (the engine's per-call ctx is
// not used; this runtime has no use for engine-local tracing context), then
// funnels the result through guardErrno and writes the resulting errno into
// the single i32 result slot every WASI call returns through.
func (b *Bindings) wrap(name string, fn handler) api.GoModuleFunction {
	return api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
		mem := abi.NewMemory(mod)
		err := fn(b.ctx, mem, mod, stack)
		stack[0] = uint64(guardErrno(b.ctx, b.logger, name, err))
	})
}

// export registers one call handler under name with the given parameter
// and result shapes, always returning a single i32 errno (procExit is the
// only call that instead unwinds via panic, handled separately by recover in
// the embedder's run loop, not here).
func (b *Bindings) export(builder api.HostModuleBuilder, name string, fn handler, params ...api.ValueType) {
	builder.NewFunctionBuilder().
		WithGoModuleFunction(b.wrap(name, fn), params, []api.ValueType{i32}).
		Export(name)
}

// Instantiate builds a Bindings value from cfg and registers every
// wasi_snapshot_preview1 function against builder, so the resulting host
// module is a complete import module: every function a guest compiled
// against preview-1 might import resolves to something, even when that
// something is an NOSYS/ENOTSUP stub (spec 4.E). ctx is the host-supplied
// cancel signal observed by poll_oneoff's clock wait and directory
// enumeration; it takes precedence over any ctx already set on cfg.
func Instantiate(ctx context.Context, builder api.HostModuleBuilder, cfg Config) error {
	cfg.Context = ctx
	b := NewBindings(cfg)

	b.export(builder, "args_get", b.argsGet, i32, i32)
	b.export(builder, "args_sizes_get", b.argsSizesGet, i32, i32)
	b.export(builder, "environ_get", b.environGet, i32, i32)
	b.export(builder, "environ_sizes_get", b.environSizesGet, i32, i32)

	b.export(builder, "clock_res_get", b.clockResGet, i32, i32)
	b.export(builder, "clock_time_get", b.clockTimeGet, i32, i64, i32)

	b.export(builder, "fd_advise", b.fdAdvise, i32, i64, i64, i32)
	b.export(builder, "fd_allocate", b.fdAllocate, i32, i64, i64)
	b.export(builder, "fd_close", b.fdClose, i32)
	b.export(builder, "fd_datasync", b.fdDatasync, i32)
	b.export(builder, "fd_fdstat_get", b.fdFdstatGet, i32, i32)
	b.export(builder, "fd_fdstat_set_flags", b.fdFdstatSetFlags, i32, i32)
	b.export(builder, "fd_fdstat_set_rights", b.fdFdstatSetRights, i32, i64, i64)
	b.export(builder, "fd_filestat_get", b.fdFilestatGet, i32, i32)
	b.export(builder, "fd_filestat_set_size", b.fdFilestatSetSize, i32, i64)
	b.export(builder, "fd_filestat_set_times", b.fdFilestatSetTimes, i32, i64, i64, i32)
	b.export(builder, "fd_pread", b.fdPread, i32, i32, i32, i64, i32)
	b.export(builder, "fd_prestat_get", b.fdPrestatGet, i32, i32)
	b.export(builder, "fd_prestat_dir_name", b.fdPrestatDirName, i32, i32, i32)
	b.export(builder, "fd_pwrite", b.fdPwrite, i32, i32, i32, i64, i32)
	b.export(builder, "fd_read", b.fdRead, i32, i32, i32, i32)
	b.export(builder, "fd_readdir", b.fdReaddir, i32, i32, i32, i64, i32)
	b.export(builder, "fd_renumber", b.fdRenumber, i32, i32)
	b.export(builder, "fd_seek", b.fdSeek, i32, i64, i32, i32)
	b.export(builder, "fd_sync", b.fdSync, i32)
	b.export(builder, "fd_tell", b.fdTell, i32, i32)
	b.export(builder, "fd_write", b.fdWrite, i32, i32, i32, i32)

	b.export(builder, "path_create_directory", b.pathCreateDirectory, i32, i32, i32)
	b.export(builder, "path_filestat_get", b.pathFilestatGet, i32, i32, i32, i32, i32)
	b.export(builder, "path_filestat_set_times", b.pathFilestatSetTimes, i32, i32, i32, i32, i64, i64, i32)
	b.export(builder, "path_link", b.pathLink, i32, i32, i32, i32, i32, i32, i32)
	b.export(builder, "path_open", b.pathOpen, i32, i32, i32, i32, i32, i64, i64, i32, i32)
	b.export(builder, "path_readlink", b.pathReadlink, i32, i32, i32, i32, i32, i32)
	b.export(builder, "path_remove_directory", b.pathRemoveDirectory, i32, i32, i32)
	b.export(builder, "path_rename", b.pathRename, i32, i32, i32, i32, i32, i32)
	b.export(builder, "path_symlink", b.pathSymlink, i32, i32, i32, i32, i32)
	b.export(builder, "path_unlink_file", b.pathUnlinkFile, i32, i32, i32)

	b.export(builder, "poll_oneoff", b.pollOneoff, i32, i32, i32, i32)

	b.export(builder, "proc_exit", b.procExit, i32)
	b.export(builder, "proc_raise", b.procRaise, i32)

	b.export(builder, "random_get", b.randomGet, i32, i32)
	b.export(builder, "sched_yield", b.schedYield)

	b.export(builder, "sock_accept", b.sockAccept, i32, i32, i32)
	b.export(builder, "sock_recv", b.sockRecv, i32, i32, i32, i32, i32, i32)
	b.export(builder, "sock_send", b.sockSend, i32, i32, i32, i32, i32)
	b.export(builder, "sock_shutdown", b.sockShutdown, i32, i32)

	return nil
}
