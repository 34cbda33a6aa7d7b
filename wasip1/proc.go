package wasip1

import (
	"context"
	"fmt"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/api"
)

// ExitError carries a proc_exit status code out of band from the errno
// channel (spec 4.E: "unwind the call stack with a dedicated 'exit'
// signal carrying code"; spec 7 layer 3). procExit panics with one instead
// of returning it as an error, since returning normally would let the
// engine resume guest execution, which spec 4.E forbids ("Must not resume
// guest execution").
type ExitError struct {
	ModuleName string
	Code       uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("wasip1: module %q exited with code %d", e.ModuleName, e.Code)
}

// RecoverExitCode inspects the value recovered from a panic (as captured
// by a deferred recover() in the embedder's outer run loop, spec 7's
// "outer run function [that] returns the process exit code") and reports
// the exit code if r is an *ExitError. Any other recovered value is not
// ours to handle; callers should re-panic it.
func RecoverExitCode(r any) (code uint32, ok bool) {
	if e, isExit := r.(*ExitError); isExit {
		return e.Code, true
	}
	return 0, false
}

// procExit implements proc_exit.
func (b *Bindings) procExit(ctx context.Context, _ abi.Memory, mod api.Module, stack []uint64) error {
	code := uint32(stack[0])
	_ = mod.CloseWithExitCode(ctx, code)
	// Prevent any code from executing after this call: some compilers
	// (LLVM among them) emit unreachable instructions immediately after a
	// call to exit, relying on the host never returning control.
	panic(&ExitError{ModuleName: mod.Name(), Code: code})
}
