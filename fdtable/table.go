// Package fdtable is the open-file table: it maps WASI descriptors to open
// file or directory state, issues new descriptors, and segregates the
// preopen range used for capability-based path resolution.
package fdtable

import (
	"context"
	"fmt"
	"sync"

	"github.com/wasihost/p1/storage"
)

// FD is a WASI file descriptor: a non-negative 32-bit integer. 0, 1, 2 are
// reserved for stdin/stdout/stderr and are never present in the table.
type FD uint32

const (
	Stdin  FD = 0
	Stdout FD = 1
	Stderr FD = 2

	// firstFD is the first descriptor value handed to a preopen.
	firstFD FD = 3
)

// IsStd reports whether fd is one of the reserved stdin/stdout/stderr
// descriptors (spec 3: "0, 1, 2 ... are never present in the open-file
// table"), the set fd_fdstat_get reports as CHARACTER_DEVICE.
func (fd FD) IsStd() bool { return fd < firstFD }

// ErrBadFD reports an operation against a descriptor not in the table.
type ErrBadFD FD

func (e ErrBadFD) Error() string { return fmt.Sprintf("fdtable: bad file descriptor %d", FD(e)) }

// Handle is the tagged union of table entries: every entry is either an
// *OpenFile or an *OpenDirectory.
type Handle interface {
	Path() string
}

// PreopenEntry is an *OpenDirectory exposed at its descriptor, in the order
// it was registered. Bindings.NewBindings projects these into
// pathresolve.Preopen values for SelectPreopen's absolute-path lookup.
type PreopenEntry struct {
	FD   FD
	Path string
	Dir  *OpenDirectory
}

// Table is the open-file table described by spec component C. Descriptor
// values are strictly increasing and never reused once closed.
type Table struct {
	mu sync.Mutex

	preopens          []PreopenEntry
	firstNonPreopenFD FD

	handles map[FD]Handle
	nextFD  FD
}

// NewTable builds a table whose preopens are registered in the given order
// (order matters: the Preopens() it returns feed pathresolve.SelectPreopen,
// which walks them in reverse, so later entries here shadow earlier ones at
// equal prefix length).
func NewTable(preopens []struct {
	Path string
	Dir  storage.Dir
}) *Table {
	t := &Table{handles: make(map[FD]Handle)}
	fd := firstFD
	for _, p := range preopens {
		od := &OpenDirectory{path: p.Path, dir: p.Dir}
		t.preopens = append(t.preopens, PreopenEntry{FD: fd, Path: p.Path, Dir: od})
		t.handles[fd] = od
		fd++
	}
	t.firstNonPreopenFD = fd
	t.nextFD = fd
	return t
}

// FirstNonPreopenFD returns the first descriptor available for Add.
func (t *Table) FirstNonPreopenFD() FD { return t.firstNonPreopenFD }

// Preopens returns the preopen entries in registration order.
func (t *Table) Preopens() []PreopenEntry { return t.preopens }

// AddFile registers an open file at path and returns its new descriptor.
func (t *Table) AddFile(path string, f storage.File) FD {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.nextFD
	t.nextFD++
	t.handles[fd] = &OpenFile{path: path, file: f}
	return fd
}

// AddDir registers an open directory at path and returns its new
// descriptor.
func (t *Table) AddDir(path string, d storage.Dir) FD {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.nextFD
	t.nextFD++
	t.handles[fd] = &OpenDirectory{path: path, dir: d}
	return fd
}

// Get returns the handle at fd, or ErrBadFD if absent.
func (t *Table) Get(fd FD) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[fd]
	if !ok {
		return nil, ErrBadFD(fd)
	}
	return h, nil
}

// GetPreopen returns the preopen directory at fd, or ErrBadFD if fd is
// outside the preopen range [firstFD, firstNonPreopenFD).
func (t *Table) GetPreopen(fd FD) (*OpenDirectory, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < firstFD || fd >= t.firstNonPreopenFD {
		return nil, ErrBadFD(fd)
	}
	return t.handles[fd].(*OpenDirectory), nil
}

// Close flushes (for a file) and removes fd from the table.
func (t *Table) Close(ctx context.Context, fd FD) error {
	t.mu.Lock()
	h, ok := t.handles[fd]
	if !ok {
		t.mu.Unlock()
		return ErrBadFD(fd)
	}
	delete(t.handles, fd)
	t.mu.Unlock()

	if of, ok := h.(*OpenFile); ok {
		return of.flush(ctx)
	}
	return nil
}

// Renumber closes to (if open) then atomically moves the handle at from
// onto to. to must not be in the preopen range: preopens are not
// renumberable targets in this runtime.
func (t *Table) Renumber(ctx context.Context, from, to FD) error {
	t.mu.Lock()
	h, ok := t.handles[from]
	if !ok {
		t.mu.Unlock()
		return ErrBadFD(from)
	}
	if to < t.firstNonPreopenFD {
		t.mu.Unlock()
		return ErrBadFD(to)
	}
	existing, hadExisting := t.handles[to]
	delete(t.handles, from)
	t.handles[to] = h
	t.mu.Unlock()

	if hadExisting {
		if of, ok := existing.(*OpenFile); ok {
			return of.flush(ctx)
		}
	}
	return nil
}
