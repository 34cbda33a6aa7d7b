// Package abi marshals C-ABI-compatible primitives, strings, structs and
// tagged unions at a guest pointer in WebAssembly linear memory.
package abi

import (
	"context"
	"unicode/utf8"

	"github.com/wasihost/p1/api"
)

// Memory wraps api.Memory. It never caches a slice across a call boundary:
// every method re-derives its view from the wrapped api.Memory, because the
// guest may grow memory (and relocate the backing buffer) between any two
// calls into the host.
type Memory struct {
	mod api.Module
}

// NewMemory wraps mod's memory. mod is captured, not mod.Memory(), so that a
// Memory value remains valid across a guest memory.grow.
func NewMemory(mod api.Module) Memory { return Memory{mod: mod} }

func (m Memory) raw(ctx context.Context) api.Memory { return m.mod.Memory() }

// ReadU32 reads a little-endian uint32 at offset.
func (m Memory) ReadU32(ctx context.Context, offset uint32) (uint32, bool) {
	return m.raw(ctx).ReadUint32Le(ctx, offset)
}

// ReadU64 reads a little-endian uint64 at offset.
func (m Memory) ReadU64(ctx context.Context, offset uint32) (uint64, bool) {
	return m.raw(ctx).ReadUint64Le(ctx, offset)
}

// ReadByte reads a single byte at offset.
func (m Memory) ReadByte(ctx context.Context, offset uint32) (byte, bool) {
	return m.raw(ctx).ReadByte(ctx, offset)
}

// ReadU16 reads a little-endian uint16 at offset.
func (m Memory) ReadU16(ctx context.Context, offset uint32) (uint16, bool) {
	b, ok := m.Read(ctx, offset, 2)
	if !ok {
		return 0, false
	}
	return uint16(b[0]) | uint16(b[1])<<8, true
}

// WriteU16 writes a little-endian uint16 at offset.
func (m Memory) WriteU16(ctx context.Context, offset uint32, v uint16) bool {
	return m.Write(ctx, offset, []byte{byte(v), byte(v >> 8)})
}

// WriteU32 writes a little-endian uint32 at offset.
func (m Memory) WriteU32(ctx context.Context, offset, v uint32) bool {
	return m.raw(ctx).WriteUint32Le(ctx, offset, v)
}

// WriteU64 writes a little-endian uint64 at offset.
func (m Memory) WriteU64(ctx context.Context, offset uint32, v uint64) bool {
	return m.raw(ctx).WriteUint64Le(ctx, offset, v)
}

// WriteByte writes a single byte at offset.
func (m Memory) WriteByte(ctx context.Context, offset uint32, v byte) bool {
	return m.raw(ctx).WriteByte(ctx, offset, v)
}

// Read returns byteCount bytes starting at offset, live-view (write-through)
// per api.Memory's contract. Callers must not retain the result across a
// point where the guest could grow memory.
func (m Memory) Read(ctx context.Context, offset, byteCount uint32) ([]byte, bool) {
	return m.raw(ctx).Read(ctx, offset, byteCount)
}

// Write copies v into memory at offset.
func (m Memory) Write(ctx context.Context, offset uint32, v []byte) bool {
	return m.raw(ctx).Write(ctx, offset, v)
}

// ReadString decodes a UTF-8 string of byteLen bytes at offset.
func (m Memory) ReadString(ctx context.Context, offset, byteLen uint32) (string, bool) {
	b, ok := m.Read(ctx, offset, byteLen)
	if !ok {
		return "", false
	}
	return string(b), true
}

// WriteString encodes s as UTF-8 at offset. It fails (returns false) if s
// would not fit in capacity bytes; capacity is the buffer size the guest
// handed the host, not the string length.
func (m Memory) WriteString(ctx context.Context, offset, capacity uint32, s string) bool {
	if uint32(len(s)) > capacity {
		return false
	}
	if !utf8.ValidString(s) {
		return false
	}
	return m.Write(ctx, offset, []byte(s))
}
