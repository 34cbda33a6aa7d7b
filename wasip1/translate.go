package wasip1

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/wasihost/p1/fdtable"
	"github.com/wasihost/p1/pathresolve"
	"github.com/wasihost/p1/storage"
)

// wasiError is the rich internal error carrier of spec 7 layer 1: a WASI
// errno plus optional context (the offending path or descriptor) for
// local recovery and diagnostics. Handler bodies that already know the
// precise errno (e.g. distinguishing EXIST from a bare create failure
// during CREATE|EXCLUSIVE) construct one of these directly instead of
// relying on classify's guesswork.
type wasiError struct {
	errno Errno
	path  string
	fd    fdtable.FD
	cause error
}

func (e *wasiError) Error() string {
	msg := ErrnoName(e.errno)
	if e.path != "" {
		msg += " path=" + e.path
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *wasiError) Unwrap() error { return e.cause }

// fail constructs a wasiError wrapping cause with call-site context via
// github.com/pkg/errors, so a failed path_open reports which path and
// errno without losing the underlying cause in a debug log.
func fail(errno Errno, path string, fd fdtable.FD, cause error) error {
	if cause != nil {
		cause = pkgerrors.WithStack(cause)
	}
	return &wasiError{errno: errno, path: path, fd: fd, cause: cause}
}

func errPath(errno Errno, path string, cause error) error { return fail(errno, path, 0, cause) }
func errFD(errno Errno, fd fdtable.FD, cause error) error  { return fail(errno, "", fd, cause) }
func errSimple(errno Errno) error                          { return fail(errno, "", 0, nil) }

// guardErrno is the boundary-wrap adapter of spec 7 layer 2: every handler
// registered in Instantiate is funneled through this single point, which
// classifies any non-nil returned error into an Errno. It does not recover
// panics: procExit's *ExitError (layer 3, propagated out of band) passes
// through to the embedder's run loop.
func guardErrno(ctx context.Context, logger *slog.Logger, name string, err error) (errno Errno) {
	if err == nil {
		return ErrnoSuccess
	}
	var we *wasiError
	if errors.As(err, &we) {
		return we.errno
	}
	errno = classify(err)
	if errno == ErrnoIo && logger != nil {
		// classify's fallback case is reserved for conditions the
		// classification table does not recognize: a programmer error
		// somewhere upstream, worth a log line since it will otherwise
		// surface to the guest as an opaque EIO.
		logger.Warn("wasip1: unclassified error", "call", name, "err", err)
	}
	return errno
}

// classify implements spec 7 layer 2's backend-exception classification
// table: fs.ErrNotExist-family -> NOENT, "not allowed"/security -> ACCES,
// "invalid modification" -> NOTEMPTY, "abort" -> CANCELED, argument
// range/type -> INVAL, anything else is IO (and logged by guardErrno as a
// likely programmer error).
func classify(err error) Errno {
	var badFD fdtable.ErrBadFD
	switch {
	case errors.As(err, &badFD):
		return ErrnoBadf
	case errors.Is(err, pathresolve.ErrNotCapable):
		return ErrnoNotcapable
	case errors.Is(err, pathresolve.ErrNoPreopen):
		return ErrnoNoent
	case errors.Is(err, storage.ErrIsDir):
		return ErrnoIsdir
	case errors.Is(err, storage.ErrNotDir):
		return ErrnoNotdir
	case errors.Is(err, storage.ErrNotEmpty):
		return ErrnoNotempty
	case errors.Is(err, fs.ErrNotExist):
		return ErrnoNoent
	case errors.Is(err, fs.ErrExist):
		return ErrnoExist
	case errors.Is(err, fs.ErrPermission):
		return ErrnoAcces
	case errors.Is(err, fs.ErrInvalid):
		return ErrnoInval
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrnoCanceled
	}
	if errno, ok := classifyUnixErrno(err); ok {
		return errno
	}
	return ErrnoIo
}

// classifyUnixErrno recognizes a syscall.Errno surfaced by storage/osfs
// (afero's OsFs backend, which returns *fs.PathError wrapping a raw
// unix.Errno on Linux/macOS/BSD). golang.org/x/sys/unix gives this runtime
// the same POSIX errno symbols as the real host OS instead of duplicating
// that table by hand.
func classifyUnixErrno(err error) (Errno, bool) {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return 0, false
	}
	switch errno {
	case unix.EACCES, unix.EPERM:
		return ErrnoAcces, true
	case unix.ENOTDIR:
		return ErrnoNotdir, true
	case unix.EISDIR:
		return ErrnoIsdir, true
	case unix.ENOENT:
		return ErrnoNoent, true
	case unix.EEXIST:
		return ErrnoExist, true
	case unix.ENOTEMPTY:
		return ErrnoNotempty, true
	case unix.EBADF:
		return ErrnoBadf, true
	case unix.EINVAL:
		return ErrnoInval, true
	case unix.ENOSYS:
		return ErrnoNosys, true
	default:
		return ErrnoIo, true
	}
}
