package wasip1

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/api"
	"github.com/wasihost/p1/fdtable"
	"github.com/wasihost/p1/internal/logging"
	"github.com/wasihost/p1/pathresolve"
	"github.com/wasihost/p1/storage"
)

// composedPath implements the "composed path" of spec 4.C's open
// operation: {preopen.path}/{relative_path}, used only for OpenFile/
// OpenDirectory.Path() diagnostics and prefix matching, never for backend
// lookups (those always go through the storage.Dir the preopen already
// holds).
func composedPath(preopenPath, rel string) string {
	if rel == "." {
		return preopenPath
	}
	return path.Join(preopenPath, rel)
}

// resolvePreopenFor implements spec 4.D's two path-resolution entry points
// as a single dispatch: a guest path beginning with "/" is matched against
// the whole preopen table by longest prefix (4.D.2), independent of dirfd
// -- the host-side equivalent of what wasi-libc itself does client-side
// before ever reaching path_open when a caller hands it an absolute path.
// A relative path instead resolves against dirfd's own preopen (4.D.1).
func (b *Bindings) resolvePreopenFor(dirfd fdtable.FD, guestPath string) (preopenPath string, root storage.Dir, relPath string, err error) {
	if path.IsAbs(guestPath) {
		pre, rem, err := pathresolve.SelectPreopen(b.preopens, guestPath)
		if err != nil {
			return "", nil, "", err
		}
		return pre.Path, pre.Dir, rem, nil
	}
	pre, err := b.table.GetPreopen(dirfd)
	if err != nil {
		return "", nil, "", err
	}
	return pre.Path(), pre.Dir(), guestPath, nil
}

// fdPrestatGet implements fd_prestat_get: writes {type=dir, name_len} for a
// preopen descriptor, BADF otherwise.
func (b *Bindings) fdPrestatGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	out := uint32(stack[1])

	pre, err := b.table.GetPreopen(fd)
	if err != nil {
		return err
	}
	typeOff, _ := abi.Prestat.Off("type")
	lenOff, _ := abi.Prestat.Off("name_len")
	if !mem.WriteByte(ctx, out+typeOff, 0) { // 0 = __WASI_PREOPENTYPE_DIR
		return errSimple(ErrnoFault)
	}
	if !mem.WriteU32(ctx, out+lenOff, uint32(len(pre.Path()))) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// fdPrestatDirName implements fd_prestat_dir_name: writes the preopen path
// bytes, BADF if fd is not a preopen.
func (b *Bindings) fdPrestatDirName(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	buf, bufLen := uint32(stack[1]), uint32(stack[2])

	pre, err := b.table.GetPreopen(fd)
	if err != nil {
		return err
	}
	if uint32(len(pre.Path())) > bufLen {
		return errSimple(ErrnoInval)
	}
	if !mem.Write(ctx, buf, []byte(pre.Path())) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// pathOpen implements path_open per spec 4.E.
func (b *Bindings) pathOpen(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	dirfd := fdtable.FD(uint32(stack[0]))
	pathPtr, pathLen := uint32(stack[2]), uint32(stack[3])
	oflags := uint16(stack[4])
	fdflags := uint16(stack[7])
	outFD := uint32(stack[8])

	if fdflags&FdflagsNonblock != 0 {
		b.log(logging.ScopeFilesystem, "path_open: NONBLOCK requested, clearing (backend is always blocking)")
		fdflags &^= FdflagsNonblock
	}
	if fdflags != 0 {
		return errSimple(ErrnoNosys)
	}

	relPath, ok := mem.ReadString(ctx, pathPtr, pathLen)
	if !ok {
		return errSimple(ErrnoFault)
	}

	preopenPath, root, resolvedPath, err := b.resolvePreopenFor(dirfd, relPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}

	wantDir := oflags&OflagsDirectory != 0
	create := oflags&OflagsCreat != 0
	excl := oflags&OflagsExcl != 0
	trunc := oflags&OflagsTrunc != 0

	if wantDir && trunc {
		return errPath(ErrnoInval, relPath, nil)
	}

	parent, name, err := pathresolve.Resolve(ctx, root, resolvedPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}

	if name == "" {
		// The preopen root itself (spec 4.D.1's empty-remainder case).
		if create && excl {
			return errPath(ErrnoInval, relPath, nil)
		}
		if trunc {
			return errPath(ErrnoIsdir, relPath, nil)
		}
		fd := b.table.AddDir(composedPath(preopenPath, resolvedPath), parent)
		if !mem.WriteU32(ctx, outFD, uint32(fd)) {
			return errSimple(ErrnoFault)
		}
		return nil
	}

	full := composedPath(preopenPath, resolvedPath)

	if wantDir {
		d, err := openDirTarget(ctx, parent, name, create, excl)
		if err != nil {
			return errPath(classify(err), relPath, err)
		}
		fd := b.table.AddDir(full, d)
		if !mem.WriteU32(ctx, outFD, uint32(fd)) {
			return errSimple(ErrnoFault)
		}
		return nil
	}

	f, err := openFileTarget(ctx, parent, name, create, excl)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	if trunc {
		w, err := f.Writer(ctx, false)
		if err != nil {
			return errPath(classify(err), relPath, err)
		}
		if err := w.Close(); err != nil {
			return errPath(classify(err), relPath, err)
		}
	}
	fd := b.table.AddFile(full, f)
	if !mem.WriteU32(ctx, outFD, uint32(fd)) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// openFileTarget implements spec 4.E's CREATE/EXCLUSIVE combination rules
// for a file target: CREATE+EXCLUSIVE probes without creating (EXIST if
// present), CREATE alone creates-if-absent, and without CREATE absence is
// NOENT (storage.Dir.GetFile already implements the last two cases).
func openFileTarget(ctx context.Context, parent storage.Dir, name string, create, excl bool) (storage.File, error) {
	if create && excl {
		if _, err := parent.GetFile(ctx, name, false); err == nil {
			return nil, errSimple(ErrnoExist)
		} else if !errors.Is(err, storage.ErrIsDir) && classify(err) != ErrnoNoent {
			return nil, err
		}
	}
	return parent.GetFile(ctx, name, create)
}

func openDirTarget(ctx context.Context, parent storage.Dir, name string, create, excl bool) (storage.Dir, error) {
	if create && excl {
		if _, err := parent.GetDirectory(ctx, name, false); err == nil {
			return nil, errSimple(ErrnoExist)
		} else if classify(err) != ErrnoNoent {
			return nil, err
		}
	}
	return parent.GetDirectory(ctx, name, create)
}

// fdClose implements fd_close: flush (for a file) and remove from the
// table.
func (b *Bindings) fdClose(ctx context.Context, _ abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	return b.table.Close(ctx, fd)
}

// fdRenumber implements fd_renumber per spec 4.C.
func (b *Bindings) fdRenumber(ctx context.Context, _ abi.Memory, _ api.Module, stack []uint64) error {
	from := fdtable.FD(uint32(stack[0]))
	to := fdtable.FD(uint32(stack[1]))
	return b.table.Renumber(ctx, from, to)
}

// fdRead implements fd_read: iterate scatter vectors, filling from stdin
// (fd=0) or the file, stopping after the first short read.
func (b *Bindings) fdRead(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	iovsPtr, iovsLen := uint32(stack[1]), uint32(stack[2])
	nreadOut := uint32(stack[3])

	var read func(p []byte) (int, error)
	var of *fdtable.OpenFile

	switch fd {
	case fdtable.Stdin:
		if b.stdin == nil {
			return errSimple(ErrnoBadf)
		}
		read = b.stdin.Read
	default:
		h, err := b.table.Get(fd)
		if err != nil {
			return err
		}
		var ok bool
		of, ok = h.(*fdtable.OpenFile)
		if !ok {
			return errSimple(ErrnoIsdir)
		}
		read = func(p []byte) (int, error) {
			n, err := of.File().ReadAt(ctx, p, of.Position())
			if n > 0 {
				of.SetPosition(of.Position() + int64(n))
			}
			return n, err
		}
	}

	var total uint32
	for i := uint32(0); i < iovsLen; i++ {
		bufOff, _ := abi.Iovec.Off("buf")
		lenOff, _ := abi.Iovec.Off("buf_len")
		base := iovsPtr + i*abi.Iovec.Size
		bufPtr, ok := mem.ReadU32(ctx, base+bufOff)
		if !ok {
			return errSimple(ErrnoFault)
		}
		bufLen, ok := mem.ReadU32(ctx, base+lenOff)
		if !ok {
			return errSimple(ErrnoFault)
		}
		dst, ok := mem.Read(ctx, bufPtr, bufLen)
		if !ok {
			return errSimple(ErrnoFault)
		}
		n, err := read(dst)
		total += uint32(n)
		if err != nil && !errors.Is(err, io.EOF) {
			return errFD(classify(err), fd, err)
		}
		if uint32(n) < bufLen {
			break // short read: stop (spec 4.E)
		}
	}
	if !mem.WriteU32(ctx, nreadOut, total) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// fdWrite implements fd_write, symmetric to fdRead.
func (b *Bindings) fdWrite(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	iovsPtr, iovsLen := uint32(stack[1]), uint32(stack[2])
	nwrittenOut := uint32(stack[3])

	var write func(p []byte) (int, error)
	var of *fdtable.OpenFile

	switch fd {
	case fdtable.Stdout:
		if b.stdout == nil {
			return errSimple(ErrnoBadf)
		}
		write = b.stdout.Write
	case fdtable.Stderr:
		if b.stderr == nil {
			return errSimple(ErrnoBadf)
		}
		write = b.stderr.Write
	default:
		h, err := b.table.Get(fd)
		if err != nil {
			return err
		}
		var ok bool
		of, ok = h.(*fdtable.OpenFile)
		if !ok {
			return errSimple(ErrnoIsdir)
		}
		w, err := of.Writer(ctx)
		if err != nil {
			return errFD(classify(err), fd, err)
		}
		write = func(p []byte) (int, error) {
			n, err := w.WriteAt(ctx, p, of.Position())
			if n > 0 {
				of.SetPosition(of.Position() + int64(n))
			}
			return n, err
		}
	}

	var total uint32
	for i := uint32(0); i < iovsLen; i++ {
		bufOff, _ := abi.Iovec.Off("buf")
		lenOff, _ := abi.Iovec.Off("buf_len")
		base := iovsPtr + i*abi.Iovec.Size
		bufPtr, ok := mem.ReadU32(ctx, base+bufOff)
		if !ok {
			return errSimple(ErrnoFault)
		}
		bufLen, ok := mem.ReadU32(ctx, base+lenOff)
		if !ok {
			return errSimple(ErrnoFault)
		}
		src, ok := mem.Read(ctx, bufPtr, bufLen)
		if !ok {
			return errSimple(ErrnoFault)
		}
		n, err := write(src)
		total += uint32(n)
		if err != nil {
			return errFD(classify(err), fd, err)
		}
	}
	if !mem.WriteU32(ctx, nwrittenOut, total) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// fdSeek implements fd_seek.
func (b *Bindings) fdSeek(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	offset := int64(stack[1])
	whence := uint8(stack[2])
	out := uint32(stack[3])

	h, err := b.table.Get(fd)
	if err != nil {
		return err
	}
	of, ok := h.(*fdtable.OpenFile)
	if !ok {
		return errSimple(ErrnoIsdir)
	}

	var base int64
	switch whence {
	case WhenceSet:
		base = 0
	case WhenceCur:
		base = of.Position()
	case WhenceEnd:
		snap, err := of.File().Stat(ctx)
		if err != nil {
			return errFD(classify(err), fd, err)
		}
		base = snap.Size
	default:
		return errSimple(ErrnoInval)
	}

	pos := base + offset
	if pos < 0 {
		return errSimple(ErrnoInval)
	}
	of.SetPosition(pos)
	if !mem.WriteU64(ctx, out, uint64(pos)) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// fdTell implements fd_tell.
func (b *Bindings) fdTell(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	out := uint32(stack[1])

	h, err := b.table.Get(fd)
	if err != nil {
		return err
	}
	of, ok := h.(*fdtable.OpenFile)
	if !ok {
		return errSimple(ErrnoIsdir)
	}
	if !mem.WriteU64(ctx, out, uint64(of.Position())) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// writeFilestat writes abi.Filestat at out: dev/ino/nlink always 0 (spec
// 4.E: "ino=0 is a deliberate simplification").
func writeFilestat(ctx context.Context, mem abi.Memory, out uint32, filetype uint8, size int64, modNanos uint64) bool {
	devOff, _ := abi.Filestat.Off("dev")
	inoOff, _ := abi.Filestat.Off("ino")
	ftOff, _ := abi.Filestat.Off("filetype")
	nlinkOff, _ := abi.Filestat.Off("nlink")
	sizeOff, _ := abi.Filestat.Off("size")
	atimOff, _ := abi.Filestat.Off("atim")
	mtimOff, _ := abi.Filestat.Off("mtim")
	ctimOff, _ := abi.Filestat.Off("ctim")

	ok := mem.WriteU64(ctx, out+devOff, 0)
	ok = ok && mem.WriteU64(ctx, out+inoOff, 0)
	ok = ok && mem.WriteByte(ctx, out+ftOff, filetype)
	ok = ok && mem.WriteU64(ctx, out+nlinkOff, 0)
	ok = ok && mem.WriteU64(ctx, out+sizeOff, uint64(size))
	ok = ok && mem.WriteU64(ctx, out+atimOff, modNanos)
	ok = ok && mem.WriteU64(ctx, out+mtimOff, modNanos)
	ok = ok && mem.WriteU64(ctx, out+ctimOff, modNanos)
	return ok
}

// fdFilestatGet implements fd_filestat_get.
func (b *Bindings) fdFilestatGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	out := uint32(stack[1])

	h, err := b.table.Get(fd)
	if err != nil {
		return err
	}
	switch v := h.(type) {
	case *fdtable.OpenFile:
		snap, err := v.File().Stat(ctx)
		if err != nil {
			return errFD(classify(err), fd, err)
		}
		if !writeFilestat(ctx, mem, out, FiletypeRegularFile, snap.Size, uint64(snap.ModTime.UnixNano())) {
			return errSimple(ErrnoFault)
		}
	case *fdtable.OpenDirectory:
		if !writeFilestat(ctx, mem, out, FiletypeDirectory, 0, 0) {
			return errSimple(ErrnoFault)
		}
	}
	return nil
}

// statTarget resolves relPath under root and returns its filetype/size/
// modtime, discriminating file vs directory the way path_filestat_get and
// path_open's TRUNCATE-on-root case must agree (spec 9's open question).
func statTarget(ctx context.Context, root storage.Dir, relPath string) (filetype uint8, size int64, modNanos uint64, err error) {
	parent, name, err := pathresolve.Resolve(ctx, root, relPath)
	if err != nil {
		return 0, 0, 0, err
	}
	if name == "" {
		if _, err := parent.Stat(ctx); err != nil {
			return 0, 0, 0, err
		}
		return FiletypeDirectory, 0, 0, nil
	}
	f, err := parent.GetFile(ctx, name, false)
	if errors.Is(err, storage.ErrIsDir) {
		return FiletypeDirectory, 0, 0, nil
	}
	if err != nil {
		return 0, 0, 0, err
	}
	snap, err := f.Stat(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return FiletypeRegularFile, snap.Size, uint64(snap.ModTime.UnixNano()), nil
}

// pathFilestatGet implements path_filestat_get.
func (b *Bindings) pathFilestatGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	dirfd := fdtable.FD(uint32(stack[0]))
	pathPtr, pathLen := uint32(stack[2]), uint32(stack[3])
	out := uint32(stack[4])

	relPath, ok := mem.ReadString(ctx, pathPtr, pathLen)
	if !ok {
		return errSimple(ErrnoFault)
	}
	_, root, resolvedPath, err := b.resolvePreopenFor(dirfd, relPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	filetype, size, modNanos, err := statTarget(ctx, root, resolvedPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	if !writeFilestat(ctx, mem, out, filetype, size, modNanos) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// fdFdstatGet implements fd_fdstat_get.
func (b *Bindings) fdFdstatGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	out := uint32(stack[1])

	var filetype uint8
	if fd.IsStd() {
		filetype = FiletypeCharacterDevice
	} else {
		h, err := b.table.Get(fd)
		if err != nil {
			return err
		}
		switch h.(type) {
		case *fdtable.OpenFile:
			filetype = FiletypeRegularFile
		case *fdtable.OpenDirectory:
			filetype = FiletypeDirectory
		}
	}

	ftOff, _ := abi.Fdstat.Off("filetype")
	flagsOff, _ := abi.Fdstat.Off("fdflags")
	baseOff, _ := abi.Fdstat.Off("fs_rights_base")
	inheritOff, _ := abi.Fdstat.Off("fs_rights_inheriting")

	ok := mem.WriteByte(ctx, out+ftOff, filetype)
	ok = ok && mem.WriteU16(ctx, out+flagsOff, 0)
	ok = ok && mem.WriteU64(ctx, out+baseOff, rightsAll)
	ok = ok && mem.WriteU64(ctx, out+inheritOff, rightsAll&^rightsPathSymlink)
	if !ok {
		return errSimple(ErrnoFault)
	}
	return nil
}

// rightsPathSymlink is the WASI PATH_SYMLINK right bit, masked out of
// fs_rights_inheriting per spec 4.E (symlinks are a Non-goal).
const rightsPathSymlink uint64 = 1 << 24

// fdFilestatSetSize implements fd_filestat_set_size.
func (b *Bindings) fdFilestatSetSize(ctx context.Context, _ abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	size := int64(stack[1])

	h, err := b.table.Get(fd)
	if err != nil {
		return err
	}
	of, ok := h.(*fdtable.OpenFile)
	if !ok {
		return errSimple(ErrnoIsdir)
	}
	w, err := of.Writer(ctx)
	if err != nil {
		return errFD(classify(err), fd, err)
	}
	if err := w.Truncate(ctx, size); err != nil {
		return errFD(classify(err), fd, err)
	}
	return nil
}

// fdDatasync implements fd_datasync: closes the active writer for a file
// (a cheap flush); ISDIR for a directory.
func (b *Bindings) fdDatasync(ctx context.Context, _ abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	h, err := b.table.Get(fd)
	if err != nil {
		return err
	}
	of, ok := h.(*fdtable.OpenFile)
	if !ok {
		return errSimple(ErrnoIsdir)
	}
	return of.DiscardWriter(ctx)
}

// fdSync implements fd_sync: flush for a file, no-op for a directory.
func (b *Bindings) fdSync(ctx context.Context, _ abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	h, err := b.table.Get(fd)
	if err != nil {
		return err
	}
	if of, ok := h.(*fdtable.OpenFile); ok {
		return of.DiscardWriter(ctx)
	}
	return nil
}

// pathCreateDirectory implements path_create_directory: open-or-create
// with CREATE|DIRECTORY|EXCLUSIVE.
func (b *Bindings) pathCreateDirectory(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	dirfd := fdtable.FD(uint32(stack[0]))
	pathPtr, pathLen := uint32(stack[1]), uint32(stack[2])

	relPath, ok := mem.ReadString(ctx, pathPtr, pathLen)
	if !ok {
		return errSimple(ErrnoFault)
	}
	_, root, resolvedPath, err := b.resolvePreopenFor(dirfd, relPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	parent, name, err := pathresolve.Resolve(ctx, root, resolvedPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	if name == "" {
		return errPath(ErrnoAcces, relPath, nil)
	}
	if _, err := openDirTarget(ctx, parent, name, true, true); err != nil {
		return errPath(classify(err), relPath, err)
	}
	return nil
}

// pathRemoveDirectory implements path_remove_directory.
func (b *Bindings) pathRemoveDirectory(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	dirfd := fdtable.FD(uint32(stack[0]))
	pathPtr, pathLen := uint32(stack[1]), uint32(stack[2])

	relPath, ok := mem.ReadString(ctx, pathPtr, pathLen)
	if !ok {
		return errSimple(ErrnoFault)
	}
	_, root, resolvedPath, err := b.resolvePreopenFor(dirfd, relPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	parent, name, err := pathresolve.Resolve(ctx, root, resolvedPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	if name == "" {
		return errPath(ErrnoAcces, relPath, nil)
	}
	if _, err := parent.GetDirectory(ctx, name, false); err != nil {
		return errPath(classify(err), relPath, err)
	}
	if err := parent.RemoveEntry(ctx, name, false); err != nil {
		return errPath(classify(err), relPath, err)
	}
	return nil
}

// pathUnlinkFile implements path_unlink_file.
func (b *Bindings) pathUnlinkFile(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	dirfd := fdtable.FD(uint32(stack[0]))
	pathPtr, pathLen := uint32(stack[1]), uint32(stack[2])

	relPath, ok := mem.ReadString(ctx, pathPtr, pathLen)
	if !ok {
		return errSimple(ErrnoFault)
	}
	_, root, resolvedPath, err := b.resolvePreopenFor(dirfd, relPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	parent, name, err := pathresolve.Resolve(ctx, root, resolvedPath)
	if err != nil {
		return errPath(classify(err), relPath, err)
	}
	if name == "" {
		return errPath(ErrnoAcces, relPath, nil)
	}
	if _, err := parent.GetFile(ctx, name, false); err != nil {
		return errPath(classify(err), relPath, err)
	}
	if err := parent.RemoveEntry(ctx, name, false); err != nil {
		return errPath(classify(err), relPath, err)
	}
	return nil
}

// fdReaddir implements fd_readdir's cookie-based resumption per spec 4.E.
func (b *Bindings) fdReaddir(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	fd := fdtable.FD(uint32(stack[0]))
	buf, bufLen := uint32(stack[1]), uint32(stack[2])
	cookie := stack[3]
	usedOut := uint32(stack[4])

	h, err := b.table.Get(fd)
	if err != nil {
		return err
	}
	dir, ok := h.(*fdtable.OpenDirectory)
	if !ok {
		return errSimple(ErrnoNotdir)
	}

	enum, err := dir.GetEnumerator(ctx, cookie)
	if err != nil {
		return errFD(classify(err), fd, err)
	}

	nextOff, _ := abi.Dirent.Off("d_next")
	inoOff, _ := abi.Dirent.Off("d_ino")
	namlenOff, _ := abi.Dirent.Off("d_namlen")
	typeOff, _ := abi.Dirent.Off("d_type")

	var used uint32
	for used < bufLen {
		if err := ctx.Err(); err != nil {
			return errFD(classify(err), fd, err)
		}
		entry, err := enum.Next(ctx)
		if err != nil {
			if storage.IsIteratorDone(err) {
				break
			}
			return errFD(classify(err), fd, err)
		}

		entrySize := abi.Dirent.Size + uint32(len(entry.Name))
		if used+entrySize > bufLen {
			enum.PushBack(entry)
			break
		}

		base := buf + used
		filetype := uint8(FiletypeRegularFile)
		if entry.Kind == storage.KindDirectory {
			filetype = FiletypeDirectory
		}
		ok := mem.WriteU64(ctx, base+nextOff, enum.Position())
		ok = ok && mem.WriteU64(ctx, base+inoOff, 0)
		ok = ok && mem.WriteU32(ctx, base+namlenOff, uint32(len(entry.Name)))
		ok = ok && mem.WriteByte(ctx, base+typeOff, filetype)
		ok = ok && mem.Write(ctx, base+abi.Dirent.Size, []byte(entry.Name))
		if !ok {
			return errSimple(ErrnoFault)
		}
		used += entrySize
	}

	if !mem.WriteU32(ctx, usedOut, used) {
		return errSimple(ErrnoFault)
	}
	return nil
}
