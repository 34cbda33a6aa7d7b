// Package fstest defines the fixture file tree exercised by storage and
// wasip1 tests: a small "/sandbox" directory matching the end-to-end
// scenarios described for this runtime (a readable file, an empty
// directory, and a three-entry directory used to test cookie-based
// fd_readdir resumption).
package fstest

import (
	"io/fs"
	"os"
	"path"
	"testing/fstest"
)

var files = []struct {
	name string
	file *fstest.MapFile
}{
	{name: "empty.txt", file: &fstest.MapFile{Mode: 0o600}},
	{name: "input.txt", file: &fstest.MapFile{Data: []byte("hello from input.txt\n"), Mode: 0o644}},
	{name: "emptydir", file: &fstest.MapFile{Mode: fs.ModeDir | 0o755}},
	{name: "listing", file: &fstest.MapFile{Mode: fs.ModeDir | 0o755}},
	{name: "listing/a", file: &fstest.MapFile{Data: []byte("a"), Mode: 0o644}},
	{name: "listing/b", file: &fstest.MapFile{Data: []byte("b"), Mode: 0o644}},
	{name: "listing/c", file: &fstest.MapFile{Data: []byte("c"), Mode: 0o644}},
	{name: "sub", file: &fstest.MapFile{Mode: fs.ModeDir | 0o755}},
	{name: "sub/nested.txt", file: &fstest.MapFile{Data: []byte("nested\n"), Mode: 0o444}},
}

// FS is the fixture tree as a fs.ReadDirFS, suitable for
// storage/memfs.FromFS.
var FS = func() fs.ReadDirFS {
	testFS := make(fstest.MapFS, len(files))
	for _, nf := range files {
		testFS[nf.name] = nf.file
	}
	return testFS
}()

// WriteTestFiles materializes the fixture tree under tmpDir, for tests of
// storage/osfs.
func WriteTestFiles(tmpDir string) (err error) {
	// Iterate in declaration order, not a map: directories must exist
	// before the files nested under them are created.
	for _, nf := range files {
		if err = writeTestFile(tmpDir, nf.name, nf.file); err != nil {
			return
		}
	}
	return
}

// TestFS runs the standard library's fstest.TestFS validation against
// testfs, which must either be FS or a filesystem populated by
// WriteTestFiles.
func TestFS(testfs fs.FS) error {
	expected := make([]string, 0, len(files))
	for _, nf := range files {
		expected = append(expected, nf.name)
	}
	return fstest.TestFS(testfs, expected...)
}

func writeTestFile(tmpDir, name string, file *fstest.MapFile) error {
	fullPath := path.Join(tmpDir, name)
	if mode := file.Mode; mode&fs.ModeDir != 0 {
		return os.Mkdir(fullPath, mode)
	}
	return os.WriteFile(fullPath, file.Data, file.Mode)
}
