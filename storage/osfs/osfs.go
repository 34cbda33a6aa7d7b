// Package osfs is a real-filesystem storage.Dir backend, built on
// github.com/spf13/afero's OsFs wrapped in a BasePathFs jail. The jail means
// a bug in the path resolver that somehow let a ".." through still cannot
// reach outside root; this is defense in depth underneath the capability
// guarantee pathresolve already provides.
package osfs

import (
	"github.com/spf13/afero"

	"github.com/wasihost/p1/storage"
)

// New returns a storage.Dir rooted at root on the real filesystem. root must
// already exist.
func New(root string) storage.Dir {
	afs := afero.NewBasePathFs(afero.NewOsFs(), root)
	return storage.NewAferoDir(afs, "/")
}
