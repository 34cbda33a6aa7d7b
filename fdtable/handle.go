package fdtable

import (
	"context"

	"github.com/wasihost/p1/storage"
)

// OpenFile owns a backend file handle, a logical path (diagnostics and
// prefix matching only), a byte position, and a lazily-opened writable
// stream kept across contiguous writes.
type OpenFile struct {
	path     string
	file     storage.File
	position int64
	writer   storage.Writer
}

func (f *OpenFile) Path() string        { return f.path }
func (f *OpenFile) File() storage.File   { return f.file }
func (f *OpenFile) Position() int64      { return f.position }
func (f *OpenFile) SetPosition(pos int64) { f.position = pos }

// Writer returns the file's currently-open writable stream, opening one if
// none is active. At most one writable stream exists at a time per
// OpenFile.
func (f *OpenFile) Writer(ctx context.Context) (storage.Writer, error) {
	if f.writer != nil {
		return f.writer, nil
	}
	w, err := f.file.Writer(ctx, true)
	if err != nil {
		return nil, err
	}
	f.writer = w
	return w, nil
}

// flush closes and discards the active writer, if any.
func (f *OpenFile) flush(ctx context.Context) error {
	if f.writer == nil {
		return nil
	}
	w := f.writer
	f.writer = nil
	return w.Close()
}

// DiscardWriter closes and discards the active writer without the Table
// lock, used by fd_sync/fd_datasync which flush without closing the fd.
func (f *OpenFile) DiscardWriter(ctx context.Context) error { return f.flush(ctx) }

// OpenDirectory owns a backend directory handle, a path, and an optional
// resumable enumerator for cookie-based fd_readdir continuation.
type OpenDirectory struct {
	path string
	dir  storage.Dir
	enum *Enumerator
}

func (d *OpenDirectory) Path() string     { return d.path }
func (d *OpenDirectory) Dir() storage.Dir { return d.dir }

// Enumerator is the resumable directory iterator described in spec 3
// ("OpenDirectory ... may hold a resumable enumerator: a tuple (position,
// underlying iterator, optional one-element pushback slot)").
type Enumerator struct {
	position uint64
	it       storage.EntryIterator
	pushback *storage.Entry
}

// Position returns the cookie of the next entry this enumerator will
// yield.
func (e *Enumerator) Position() uint64 { return e.position }

// GetEnumerator returns the directory's enumerator positioned at cookie,
// creating or fast-forwarding it as needed: if the stored enumerator is
// already at cookie, it is reused; otherwise it is discarded and recreated,
// then advanced cookie steps (spec 3's invariant for OpenDirectory).
func (d *OpenDirectory) GetEnumerator(ctx context.Context, cookie uint64) (*Enumerator, error) {
	if d.enum != nil && d.enum.position == cookie {
		return d.enum, nil
	}
	it, err := d.dir.Entries(ctx)
	if err != nil {
		return nil, err
	}
	e := &Enumerator{it: it}
	for e.position < cookie {
		if _, err := e.Next(ctx); err != nil {
			if storage.IsIteratorDone(err) {
				break
			}
			return nil, err
		}
	}
	d.enum = e
	return e, nil
}

// Next returns the next entry, consuming the pushback slot first if set.
func (e *Enumerator) Next(ctx context.Context) (storage.Entry, error) {
	if e.pushback != nil {
		entry := *e.pushback
		e.pushback = nil
		e.position++
		return entry, nil
	}
	entry, err := e.it.Next(ctx)
	if err != nil {
		return storage.Entry{}, err
	}
	e.position++
	return entry, nil
}

// PushBack stashes entry to be re-emitted by the next call to Next,
// without advancing position. Used when an entry does not fit in the
// caller's buffer.
func (e *Enumerator) PushBack(entry storage.Entry) {
	e.position--
	e.pushback = &entry
}
