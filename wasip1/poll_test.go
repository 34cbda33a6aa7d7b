package wasip1_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wasihost/p1/wasip1"
)

// TestPollOneoffNSubscriptionsZero covers spec.md §8's "poll_oneoff with
// n = 0 -> argument error" edge case.
func TestPollOneoffNSubscriptionsZero(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	errno := call(mod, b, "poll_oneoff", []uint64{0, 100, 0, 200})
	require.Equal(t, wasip1.ErrnoInval, errno)
}

// TestPollOneoffClockSleep mirrors spec.md §8's "Clock sleep" example: one
// relative CLOCK subscription, expect poll_oneoff to block roughly that
// long and emit exactly one success event carrying the submitted userdata.
func TestPollOneoffClockSleep(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	const subs, events, nevents = 0, 1000, 2000
	const userdata = uint64(0xdeadbeef)
	mod.mem.WriteUint64Le(ctx, subs, userdata)  // userdata
	mod.mem.WriteByte(ctx, subs+8, 0)           // tag = eventtype CLOCK
	mod.mem.WriteUint32Le(ctx, subs+16, wasip1.ClockidMonotonic)
	mod.mem.WriteUint64Le(ctx, subs+24, uint64(50*time.Millisecond)) // relative timeout
	mod.mem.WriteUint64Le(ctx, subs+32, 0) // precision
	writeU16(mod.mem, subs+40, 0)          // flags = relative

	start := time.Now()
	errno := call(mod, b, "poll_oneoff", []uint64{subs, events, 1, nevents})
	elapsed := time.Since(start)
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)

	n, _ := mod.mem.ReadUint32Le(ctx, nevents)
	require.Equal(t, uint32(1), n)

	gotUserdata, _ := mod.mem.ReadUint64Le(ctx, events)
	require.Equal(t, userdata, gotUserdata)
	require.Equal(t, uint16(wasip1.ErrnoSuccess), readU16(mod.mem, events+8))
}

// TestPollOneoffFDSubscriptionNosys covers the FD_READ/FD_WRITE
// subscription case: since no async readiness notification is wired to the
// storage backends, these resolve immediately with a NOSYS event.
func TestPollOneoffFDSubscriptionNosys(t *testing.T) {
	b, mod := instantiate(t, "/sandbox")
	ctx := context.Background()

	const subs, events, nevents = 0, 1000, 2000
	mod.mem.WriteUint64Le(ctx, subs, 42) // userdata
	mod.mem.WriteByte(ctx, subs+8, 1)    // tag = eventtype FD_READ
	mod.mem.WriteUint32Le(ctx, subs+16, 3)

	errno := call(mod, b, "poll_oneoff", []uint64{subs, events, 1, nevents})
	require.Equal(t, wasip1.ErrnoSuccess, errno)

	n, _ := mod.mem.ReadUint32Le(ctx, nevents)
	require.Equal(t, uint32(1), n)
	gotErrno := readU16(mod.mem, events+8)
	require.Equal(t, uint16(wasip1.ErrnoNosys), gotErrno)
}
