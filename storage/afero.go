package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
)

// NewAferoDir adapts root (a path within afs) to Dir. Both storage/memfs and
// storage/osfs construct their backend this way: afero.Fs already walks
// both an in-memory tree (afero.MemMapFs) and a real OS directory
// (afero.OsFs via afero.BasePathFs) with the same API, so the Dir/File
// translation only needs to be written once.
func NewAferoDir(afs afero.Fs, root string) Dir {
	return aferoDir{afs: afs, path: path.Clean(root)}
}

type aferoDir struct {
	afs  afero.Fs
	path string
}

func (d aferoDir) join(name string) string { return path.Join(d.path, name) }

func (d aferoDir) Stat(ctx context.Context) (Snapshot, error) {
	return statPath(d.afs, d.path)
}

func (d aferoDir) GetFile(ctx context.Context, name string, create bool) (File, error) {
	p := d.join(name)
	info, err := d.afs.Stat(p)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, ErrIsDir
		}
		return aferoFile{afs: d.afs, path: p}, nil
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return nil, fs.ErrNotExist
		}
		f, err := d.afs.Create(p)
		if err != nil {
			return nil, err
		}
		f.Close()
		return aferoFile{afs: d.afs, path: p}, nil
	default:
		return nil, err
	}
}

func (d aferoDir) GetDirectory(ctx context.Context, name string, create bool) (Dir, error) {
	p := d.join(name)
	info, err := d.afs.Stat(p)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, ErrNotDir
		}
		return aferoDir{afs: d.afs, path: p}, nil
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return nil, fs.ErrNotExist
		}
		if err := d.afs.MkdirAll(p, 0o755); err != nil {
			return nil, err
		}
		return aferoDir{afs: d.afs, path: p}, nil
	default:
		return nil, err
	}
}

func (d aferoDir) RemoveEntry(ctx context.Context, name string, recursive bool) error {
	p := d.join(name)
	info, err := d.afs.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return d.afs.Remove(p)
	}
	if !recursive {
		entries, err := afero.ReadDir(d.afs, p)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return ErrNotEmpty
		}
	}
	return d.afs.RemoveAll(p)
}

func (d aferoDir) Entries(ctx context.Context) (EntryIterator, error) {
	infos, err := afero.ReadDir(d.afs, d.path)
	if err != nil {
		return nil, err
	}
	return &sliceIterator{infos: infos}, nil
}

type sliceIterator struct {
	infos []fs.FileInfo
	pos   int
}

func (it *sliceIterator) Next(ctx context.Context) (Entry, error) {
	if it.pos >= len(it.infos) {
		return Entry{}, errIteratorDone
	}
	info := it.infos[it.pos]
	it.pos++
	kind := KindFile
	if info.IsDir() {
		kind = KindDirectory
	}
	return Entry{Name: info.Name(), Kind: kind}, nil
}

// errIteratorDone is returned by EntryIterator.Next once exhausted.
// Callers compare with errors.Is(err, io.EOF)-style usage isn't applicable
// here since this isn't an io.Reader; wasip1 checks it by identity via
// IsIteratorDone.
var errIteratorDone = errors.New("storage: no more entries")

// IsIteratorDone reports whether err is the EntryIterator exhaustion
// sentinel.
func IsIteratorDone(err error) bool { return errors.Is(err, errIteratorDone) }

type aferoFile struct {
	afs  afero.Fs
	path string
}

func (f aferoFile) Stat(ctx context.Context) (Snapshot, error) { return statPath(f.afs, f.path) }

func (f aferoFile) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	fh, err := f.afs.Open(f.path)
	if err != nil {
		return 0, err
	}
	defer fh.Close()
	return fh.ReadAt(p, off)
}

func (f aferoFile) Writer(ctx context.Context, keepExistingData bool) (Writer, error) {
	flag := os.O_WRONLY
	if !keepExistingData {
		flag |= os.O_TRUNC
	}
	fh, err := f.afs.OpenFile(f.path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	return aferoWriter{fh}, nil
}

type aferoWriter struct {
	fh afero.File
}

func (w aferoWriter) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	return w.fh.WriteAt(p, off)
}

func (w aferoWriter) Truncate(ctx context.Context, size int64) error {
	return w.fh.Truncate(size)
}

func (w aferoWriter) Close() error { return w.fh.Close() }

func statPath(afs afero.Fs, p string) (Snapshot, error) {
	info, err := afs.Stat(p)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}
