package abi

import (
	"context"

	"github.com/wasihost/p1/internal/bitpack"
)

// StringCollection is a packed NUL-terminated concatenation of strings
// together with the byte offset of each string within the packing, used
// once per Bindings construction for argv and environ (spec 3, "used once
// per Bindings construction").
//
// The offsets are kept as a bitpack.OffsetArray rather than a bare []uint64:
// argv/environ offsets are monotonically increasing by construction, which
// is exactly the case the teacher's delta-encoded offset array compresses
// well.
type StringCollection struct {
	offsets bitpack.OffsetArray
	packed  []byte
}

// NewStringCollection packs values as NUL-terminated UTF-8 strings and
// records the byte offset of each within the packing.
func NewStringCollection(values []string) StringCollection {
	offsets := make([]uint64, len(values))
	var packed []byte
	for i, v := range values {
		offsets[i] = uint64(len(packed))
		packed = append(packed, v...)
		packed = append(packed, 0)
	}
	return StringCollection{offsets: bitpack.NewOffsetArray(offsets), packed: packed}
}

// Len returns the number of strings.
func (c StringCollection) Len() int { return bitpack.OffsetArrayLen(c.offsets) }

// Size returns the total size in bytes of the packed NUL-terminated
// concatenation.
func (c StringCollection) Size() uint32 { return uint32(len(c.packed)) }

// Write writes the offsets (rebased by offsetsPtr's argv/argv_buf
// convention: offsets[i] + packedPtr) as little-endian uint32s at
// offsetsPtr, and the packed bytes at packedPtr.
func (c StringCollection) Write(ctx context.Context, mem Memory, offsetsPtr, packedPtr uint32) bool {
	n := c.Len()
	for i := 0; i < n; i++ {
		if !mem.WriteU32(ctx, offsetsPtr+uint32(i*4), packedPtr+uint32(c.offsets.Index(i))) {
			return false
		}
	}
	return mem.Write(ctx, packedPtr, c.packed)
}
