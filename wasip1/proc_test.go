package wasip1_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasihost/p1/wasip1"
)

// TestProcExitPanicsWithExitError mirrors spec §7 layer 3: proc_exit must
// unwind out of band via panic rather than returning an errno, so an
// embedder's run loop can recover it and report a process exit code.
func TestProcExitPanicsWithExitError(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		call(mod, b, "proc_exit", []uint64{42})
	}()

	require.NotNil(t, recovered)
	code, ok := wasip1.RecoverExitCode(recovered)
	require.True(t, ok)
	require.Equal(t, uint32(42), code)
	require.True(t, mod.closed)
	require.Equal(t, uint32(42), mod.exitCode)
}

// TestRecoverExitCodeRejectsOtherPanics covers the "any other recovered
// value is not ours to handle" contract.
func TestRecoverExitCodeRejectsOtherPanics(t *testing.T) {
	_, ok := wasip1.RecoverExitCode("some unrelated panic")
	require.False(t, ok)
}

// TestProcRaiseIsNosys covers proc_raise's stub status: this runtime does
// not deliver POSIX signals to a guest.
func TestProcRaiseIsNosys(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	errno := call(mod, b, "proc_raise", []uint64{6})
	require.Equal(t, wasip1.ErrnoNosys, errno)
}
