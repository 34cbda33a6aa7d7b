// Package pathresolve implements the two algorithms that turn a guest path
// into a backend object: longest-prefix matching of an absolute path against
// the registered preopens, and `.`/`..`-normalizing relative resolution
// within a single preopen with escape detection.
package pathresolve

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wasihost/p1/storage"
)

// ErrNotCapable is raised when a `..` component would walk above the
// preopen root: the sandbox's core capability guarantee.
var ErrNotCapable = errors.New("pathresolve: escapes preopen root")

// ErrNoPreopen is raised when no preopen matches an absolute path in
// SelectPreopen.
var ErrNoPreopen = errors.New("pathresolve: no preopen matches path")

// normalize applies Unicode NFC normalization to a path component so that
// two byte-distinct but canonically-equivalent spellings (combining-mark
// sequences) compare equal, the way a filesystem that stores normalized
// names would. WASI's own spec is silent on this; component-boundary
// matching below is otherwise a byte-exact comparison.
func normalize(s string) string { return norm.NFC.String(s) }

// Preopen is the minimal view pathresolve needs of a registered preopen:
// its mount path and its backend directory.
type Preopen struct {
	Path string
	Dir  storage.Dir
}

// SelectPreopen implements 4.D.2: given an absolute path and the preopen
// table (in registration order), returns the longest-prefix-matching
// preopen and the path's remainder relative to it.
//
// preopens is walked in reverse order, so later-registered mounts shadow
// earlier ones at equal prefix length. A prefix matches when path equals it
// exactly, or starts with it followed immediately by '/' (trailing slashes
// on the registered prefix are ignored for this boundary check) — so
// prefix "/a" never matches path "/ab".
func SelectPreopen(preopens []Preopen, path string) (Preopen, string, error) {
	path = normalize(path)

	var best Preopen
	bestLen := -1
	found := false

	for i := len(preopens) - 1; i >= 0; i-- {
		p := preopens[i]
		prefix := strings.TrimRight(normalize(p.Path), "/")

		matches := path == prefix || strings.HasPrefix(path, prefix+"/")
		if !matches {
			continue
		}
		if len(prefix) > bestLen {
			best, bestLen, found = p, len(prefix), true
		}
	}

	if !found {
		return Preopen{}, "", ErrNoPreopen
	}

	prefix := strings.TrimRight(normalize(best.Path), "/")
	remainder := strings.TrimPrefix(path, prefix)
	remainder = strings.TrimPrefix(remainder, "/")
	if remainder == "" {
		remainder = "."
	}
	return best, remainder, nil
}

// Resolve implements 4.D.1: walks relPath component by component from root,
// skipping `.`, popping the accumulated stack on `..` (failing with
// ErrNotCapable if the stack is already empty), and returns the parent
// directory handle plus the leaf name. If relPath is empty or "." (the
// preopen root itself), parent is root and name is "".
func Resolve(ctx context.Context, root storage.Dir, relPath string) (parent storage.Dir, name string, err error) {
	components, err := splitAndNormalize(relPath)
	if err != nil {
		return nil, "", err
	}
	if len(components) == 0 {
		return root, "", nil
	}

	dir := root
	for _, c := range components[:len(components)-1] {
		dir, err = dir.GetDirectory(ctx, c, false)
		if err != nil {
			return nil, "", err
		}
	}
	return dir, components[len(components)-1], nil
}

// splitAndNormalize splits relPath on '/', resolving `.` and `..`
// components against an in-progress stack, and returns the remaining
// components to walk. An empty or "." path yields no components (the root
// itself).
func splitAndNormalize(relPath string) ([]string, error) {
	var stack []string
	for _, raw := range strings.Split(relPath, "/") {
		c := normalize(raw)
		switch c {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return nil, ErrNotCapable
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, c)
		}
	}
	return stack, nil
}
