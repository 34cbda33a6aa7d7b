// Package storage is the backend abstraction a Bindings operates against:
// DirHandle/FileHandle-shaped interfaces with async (context-carrying)
// open/read/write/truncate/enumerate/remove, translated from the
// FileSystemAccess-style API this runtime's capability model is modeled on
// into idiomatic Go (context.Context and (T, error) instead of promises).
//
// The core treats these purely behaviourally: it makes no assumption about
// a particular OS or storage medium. Two backends are provided in
// sub-packages: storage/memfs (in-memory, used by this module's own tests)
// and storage/osfs (a real host directory tree), both built on
// github.com/spf13/afero so neither duplicates filesystem-walking logic.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors classified by the error translator (package wasip1). Most
// backend failures are expected to be io/fs sentinels (fs.ErrNotExist,
// fs.ErrExist, fs.ErrPermission, fs.ErrInvalid); the three below have no
// stdlib equivalent.
var (
	// ErrNotEmpty is returned by RemoveEntry for a non-empty directory
	// without recursive=true.
	ErrNotEmpty = errors.New("storage: directory not empty")
	// ErrIsDir is returned when a file operation is attempted on a
	// directory.
	ErrIsDir = errors.New("storage: is a directory")
	// ErrNotDir is returned when a directory operation is attempted on a
	// file, or a path component that should be a directory is not one.
	ErrNotDir = errors.New("storage: not a directory")
)

// EntryKind distinguishes the two kinds of directory entry this runtime
// recognizes (symlinks are a Non-goal).
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

// Entry is one result of Dir.Entries.
type Entry struct {
	Name string
	Kind EntryKind
}

// EntryIterator yields directory entries in backend order. Once exhausted,
// Next returns an error for which IsIteratorDone reports true.
type EntryIterator interface {
	Next(ctx context.Context) (Entry, error)
}

// Snapshot is a point-in-time read view of a File's metadata, named after
// FileHandle.get_snapshot: storage never hands out a live fs.FileInfo, since
// the original API this is modeled on does not either.
type Snapshot struct {
	Size     int64
	ModTime  time.Time
	IsDir    bool
}

// Writer is a positioned writer over a File, obtained via File.Writer.
// Exactly one Writer may be open per File at a time (enforced by fdtable,
// not here).
type Writer interface {
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)
	Truncate(ctx context.Context, size int64) error
	io.Closer
}

// File is a backend file handle.
type File interface {
	Stat(ctx context.Context) (Snapshot, error)
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Writer opens a writable stream. If keepExistingData is false, the
	// file's existing content is discarded (spec's TRUNCATE semantics).
	Writer(ctx context.Context, keepExistingData bool) (Writer, error)
}

// Dir is a backend directory handle.
type Dir interface {
	Stat(ctx context.Context) (Snapshot, error)

	// GetFile resolves name within this directory. If create is true and
	// no entry exists, a new empty file is created. Returns ErrIsDir if
	// name names a directory, fs.ErrNotExist if absent and !create.
	GetFile(ctx context.Context, name string, create bool) (File, error)

	// GetDirectory resolves name within this directory as a
	// subdirectory, creating it if create is true and absent. Returns
	// ErrNotDir if name names a file.
	GetDirectory(ctx context.Context, name string, create bool) (Dir, error)

	// RemoveEntry removes name from this directory. A non-empty
	// directory without recursive returns ErrNotEmpty.
	RemoveEntry(ctx context.Context, name string, recursive bool) error

	// Entries lists this directory's contents.
	Entries(ctx context.Context) (EntryIterator, error)
}
