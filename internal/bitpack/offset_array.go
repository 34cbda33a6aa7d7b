// Package bitpack packs the monotonically increasing byte offsets of an
// abi.StringCollection's packed strings, using delta encoding so argv/environ
// offset tables don't pay for a full []uint64 entry per string.
package bitpack

import "math"

// OffsetArray is a read-only view over a packed sequence of offsets.
type OffsetArray interface {
	// Index returns the value at i.
	Index(i int) uint64
	// Len returns the number of offsets in the array.
	Len() int
}

// OffsetArrayLen returns array's length, treating a nil array as empty.
func OffsetArrayLen(array OffsetArray) int {
	if array == nil {
		return 0
	}
	return array.Len()
}

// NewOffsetArray packs values into the smallest representation that holds
// them. abi.StringCollection's offsets are byte positions within a packed
// argv/environ buffer: the delta between consecutive offsets is just the
// length of the preceding string, which is overwhelmingly likely to fit in
// a uint32, so a single delta tier covers every realistic case. Only a
// single packed string exceeding 4GiB falls back to a plain uint64 slice.
func NewOffsetArray(values []uint64) OffsetArray {
	if len(values) == 0 {
		return rawOffsetArray(nil)
	}

	maxDelta := uint64(0)
	last := values[0]
	for _, v := range values[1:] {
		if delta := v - last; delta > maxDelta {
			maxDelta = delta
		}
		last = v
	}

	if maxDelta > math.MaxUint32 {
		return rawOffsetArray(append([]uint64(nil), values...))
	}
	return newDeltaArray(values)
}

// rawOffsetArray is the fallback tier: an uncompressed copy of values.
type rawOffsetArray []uint64

func (a rawOffsetArray) Index(i int) uint64 { return a[i] }
func (a rawOffsetArray) Len() int           { return len(a) }

// deltaArray stores the first offset plus the uint32 delta to each
// following one, trading an O(i) Index walk for roughly a quarter of the
// memory a []uint64 would need.
type deltaArray struct {
	deltas []uint32
	first  uint64
}

func newDeltaArray(values []uint64) *deltaArray {
	a := &deltaArray{deltas: make([]uint32, len(values)-1), first: values[0]}
	last := values[0]
	for i, v := range values[1:] {
		a.deltas[i] = uint32(v - last)
		last = v
	}
	return a
}

func (a *deltaArray) Index(i int) uint64 {
	v := a.first
	for _, delta := range a.deltas[:i] {
		v += uint64(delta)
	}
	return v
}

func (a *deltaArray) Len() int { return len(a.deltas) + 1 }
