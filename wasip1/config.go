package wasip1

import (
	"context"
	"io"
	"log/slog"

	"github.com/wasihost/p1/internal/logging"
	"github.com/wasihost/p1/storage"
)

// Config is the construction-time configuration of a Bindings value (spec
// 6, "Configuration at construction"). Every field is captured once by
// Instantiate; there is no reloading at runtime.
type Config struct {
	// Preopens lists the guest-visible mount points (each an absolute path,
	// e.g. "/sandbox") and the backend directory each is rooted at. Slice
	// order is registration order, which is also shadowing order: see
	// PreopenConfig.
	Preopens []PreopenConfig

	Stdin          io.Reader
	Stdout, Stderr io.Writer

	// Args is the guest's argv, excluding the program name: Bindings
	// prepends a conventional program name automatically (spec 4.E).
	Args []string

	// Environ is the guest's environment, serialized as "KEY=VALUE" pairs
	// sorted by key, so the guest sees a deterministic order regardless of
	// map iteration order.
	Environ map[string]string

	// Logger receives structured per-call trace lines gated by LogScopes.
	// A nil Logger disables logging regardless of LogScopes.
	Logger *slog.Logger
	// LogScopes selects which call categories are traced.
	LogScopes logging.Scopes

	// Context, if set, is checked for cancellation by long-running
	// handlers (poll_oneoff's clock wait, directory enumeration). A nil
	// Context defaults to context.Background at Instantiate.
	Context context.Context
}

// PreopenConfig names one preopen: the guest-visible mount point and its
// backend directory. Order matters: pathresolve.SelectPreopen walks
// registered preopens in reverse, so a later PreopenConfig in this slice
// shadows an earlier one at equal prefix length.
type PreopenConfig struct {
	Path string
	Dir  storage.Dir
}
