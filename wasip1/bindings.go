package wasip1

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/fdtable"
	"github.com/wasihost/p1/internal/logging"
	"github.com/wasihost/p1/pathresolve"
	"github.com/wasihost/p1/storage"
	"github.com/wasihost/p1/stream"
)

// Bindings is the single value that owns all state for one guest run (spec
// 9, "Global mutable state does not exist in the core; all state is owned
// by a single Bindings value"). There is no package-level mutable state
// anywhere in this package; every handler is a method on *Bindings.
type Bindings struct {
	table     *fdtable.Table
	preopens  []pathresolve.Preopen
	stdin     stream.Reader
	stdout    stream.Writer
	stderr    stream.Writer
	argv      abi.StringCollection
	environ   abi.StringCollection
	logger    *slog.Logger
	logScopes logging.Scopes
	ctx       context.Context
	startedAt time.Time
}

// progName is prepended to argv, matching spec 4.E's "guest observes
// program name prepended automatically at position 0".
const progName = "wasi"

// NewBindings builds the Bindings value a guest run is driven against,
// capturing cfg once (spec 6: "all fields are captured once; no reloading
// at runtime").
func NewBindings(cfg Config) *Bindings {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	b := &Bindings{
		logger:    cfg.Logger,
		logScopes: cfg.LogScopes,
		ctx:       ctx,
		startedAt: time.Now(),
	}

	fdPreopens := make([]struct {
		Path string
		Dir  storage.Dir
	}, len(cfg.Preopens))
	for i, p := range cfg.Preopens {
		fdPreopens[i].Path = p.Path
		fdPreopens[i].Dir = p.Dir
	}
	b.table = fdtable.NewTable(fdPreopens)

	for _, entry := range b.table.Preopens() {
		b.preopens = append(b.preopens, pathresolve.Preopen{Path: entry.Path, Dir: entry.Dir.Dir()})
	}

	if cfg.Stdin != nil {
		b.stdin = stream.NewReader(cfg.Stdin)
	}
	if cfg.Stdout != nil {
		b.stdout = stream.NewPassthroughWriter(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		b.stderr = stream.NewPassthroughWriter(cfg.Stderr)
	}

	argv := make([]string, 0, len(cfg.Args)+1)
	argv = append(argv, progName)
	argv = append(argv, cfg.Args...)
	b.argv = abi.NewStringCollection(argv)

	keys := make([]string, 0, len(cfg.Environ))
	for k := range cfg.Environ {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+cfg.Environ[k])
	}
	b.environ = abi.NewStringCollection(env)

	return b
}

func (b *Bindings) log(scope logging.Scopes, msg string, args ...any) {
	if b.logger == nil || !b.logScopes.IsEnabled(scope) {
		return
	}
	b.logger.Debug(msg, args...)
}
