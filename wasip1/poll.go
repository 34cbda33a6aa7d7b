package wasip1

import (
	"context"
	"sort"
	"time"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/api"
	"github.com/wasihost/p1/internal/logging"
)

// Subscription/event tags, per spec 6 ("tagged unions for subscriptions/
// events are first-class sum types with explicit discriminants").
const (
	eventtypeClock   uint8 = 0
	eventtypeFDRead  uint8 = 1
	eventtypeFDWrite uint8 = 2
)

// subclockflagsAbstime marks a clock subscription's timeout as an absolute
// deadline rather than a relative duration.
const subclockflagsAbstime uint16 = 1

func namedField(f abi.Field, name string) abi.Field {
	f.Name = name
	return f
}

// subscriptionClock, subscriptionFDReadwrite and subscriptionUnion
// implement spec 4.A's tagged-union layout algorithm for the two
// subscription variants this runtime supports.
var (
	subscriptionClock       = abi.NewStruct(namedField(abi.U32, "id"), namedField(abi.U64, "timeout"), namedField(abi.U64, "precision"), namedField(abi.U16, "flags"))
	subscriptionFDReadwrite = abi.NewStruct(namedField(abi.U32, "fd"))
	subscriptionUnion       = abi.NewUnion(abi.U8,
		abi.Field{Size: subscriptionClock.Size, Align: subscriptionClock.Align},
		abi.Field{Size: subscriptionFDReadwrite.Size, Align: subscriptionFDReadwrite.Align},
	)

	subscriptionTagOffset   = uint32(8) // past the leading userdata u64
	subscriptionUnionOffset = subscriptionTagOffset + subscriptionUnion.UnionOffset
	subscriptionSize        = subscriptionTagOffset + subscriptionUnion.Size
)

// eventHeader and eventFDReadwrite implement the event struct's layout:
// {userdata, error, type} followed by a union of fd_readwrite variants
// (only ever written with NOSYS here, since async FD readiness is a
// Non-goal, but the layout is still computed honestly).
var (
	eventHeader      = abi.NewStruct(namedField(abi.U64, "userdata"), namedField(abi.U16, "error"), namedField(abi.U8, "type"))
	eventFDReadwrite = abi.NewStruct(namedField(abi.U64, "nbytes"), namedField(abi.U16, "flags"))
	eventSize        = eventHeader.Size + eventFDReadwrite.Size
)

type clockSubscription struct {
	subIndex       uint32
	userdata       uint64
	wait           time.Duration
	precisionNanos uint64
}

// pollOneoff implements poll_oneoff per spec 4.E.
func (b *Bindings) pollOneoff(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	subsPtr, eventsPtr := uint32(stack[0]), uint32(stack[1])
	n := uint32(stack[2])
	outNevents := uint32(stack[3])

	if n == 0 {
		return errSimple(ErrnoInval)
	}

	writeEvent := func(i uint32, userdata uint64, errno Errno, etype uint8) bool {
		base := eventsPtr + i*eventSize
		userdataOff, _ := eventHeader.Off("userdata")
		errorOff, _ := eventHeader.Off("error")
		typeOff, _ := eventHeader.Off("type")
		ok := mem.WriteU64(ctx, base+userdataOff, userdata)
		ok = ok && mem.WriteU16(ctx, base+errorOff, uint16(errno))
		ok = ok && mem.WriteByte(ctx, base+typeOff, etype)
		return ok
	}

	var clocks []clockSubscription
	var emitted uint32

	idOff, _ := subscriptionClock.Off("id")
	timeoutOff, _ := subscriptionClock.Off("timeout")
	precisionOff, _ := subscriptionClock.Off("precision")
	flagsOff, _ := subscriptionClock.Off("flags")
	fdOff, _ := subscriptionFDReadwrite.Off("fd")

	for i := uint32(0); i < n; i++ {
		base := subsPtr + i*subscriptionSize
		userdata, ok := mem.ReadU64(ctx, base)
		if !ok {
			return errSimple(ErrnoFault)
		}
		tag, ok := mem.ReadByte(ctx, base+subscriptionTagOffset)
		if !ok {
			return errSimple(ErrnoFault)
		}
		unionBase := base + subscriptionUnionOffset

		switch tag {
		case eventtypeClock:
			id, _ := mem.ReadU32(ctx, unionBase+idOff)
			timeout, _ := mem.ReadU64(ctx, unionBase+timeoutOff)
			precision, _ := mem.ReadU64(ctx, unionBase+precisionOff)
			flags, _ := mem.ReadU16(ctx, unionBase+flagsOff)

			var wait time.Duration
			switch flags {
			case 0:
				wait = time.Duration(timeout)
			case subclockflagsAbstime:
				now := b.clockNanos(ClockidRealtime)
				if id == ClockidMonotonic {
					now = b.clockNanos(ClockidMonotonic)
				}
				wait = time.Duration(int64(timeout) - now)
			default:
				return errSimple(ErrnoInval)
			}
			clocks = append(clocks, clockSubscription{subIndex: i, userdata: userdata, wait: wait, precisionNanos: precision})

		case eventtypeFDRead, eventtypeFDWrite:
			fd, _ := mem.ReadU32(ctx, unionBase+fdOff)
			b.log(logging.ScopePoll, "poll_oneoff: fd readiness unsupported", "fd", fd)
			if !writeEvent(i, userdata, ErrnoNosys, tag) {
				return errSimple(ErrnoFault)
			}
			emitted++

		default:
			return errSimple(ErrnoInval)
		}
	}

	if emitted == 0 && len(clocks) > 0 {
		sort.Slice(clocks, func(i, j int) bool { return clocks[i].wait < clocks[j].wait })
		wait := clocks[0].wait
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return errSimple(ErrnoCanceled)
		case <-timer.C:
		}

		for _, c := range clocks {
			threshold := c.wait + time.Duration(c.precisionNanos)
			if threshold <= wait+time.Duration(c.precisionNanos) {
				if !writeEvent(c.subIndex, c.userdata, ErrnoSuccess, eventtypeClock) {
					return errSimple(ErrnoFault)
				}
				emitted++
			}
		}
	}

	if !mem.WriteU32(ctx, outNevents, emitted) {
		return errSimple(ErrnoFault)
	}
	return nil
}

// clockNanos returns the current reading of the named clock, used by
// pollOneoff to resolve an ABSOLUTE subscription's deadline into a
// relative wait.
func (b *Bindings) clockNanos(id uint32) int64 {
	if id == ClockidMonotonic {
		return time.Since(b.startedAt).Nanoseconds()
	}
	return time.Now().UnixNano()
}
