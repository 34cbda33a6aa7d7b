// Package memfs is an in-memory storage.Dir backend, built on
// github.com/spf13/afero's MemMapFs. This is the backend exercised by this
// module's own tests, so `go test` never touches the real filesystem.
package memfs

import (
	"io/fs"

	"github.com/spf13/afero"

	"github.com/wasihost/p1/storage"
)

// New returns an empty in-memory root directory.
func New() storage.Dir {
	afs := afero.NewMemMapFs()
	return storage.NewAferoDir(afs, "/")
}

// FromFS copies the contents of src (for example internal/fstest.FS) into a
// fresh in-memory root directory.
func FromFS(src fs.FS) (storage.Dir, error) {
	afs := afero.NewMemMapFs()
	if err := fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == "." {
			return err
		}
		if d.IsDir() {
			return afs.MkdirAll("/"+p, 0o755)
		}
		data, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		return afero.WriteFile(afs, "/"+p, data, 0o644)
	}); err != nil {
		return nil, err
	}
	return storage.NewAferoDir(afs, "/"), nil
}
