// Package api includes the constants and interfaces shared between this
// module and whatever WebAssembly engine instantiates it. The engine itself
// (compiler, interpreter, guest module format) is out of scope: this package
// only describes the boundary a host module author needs, mirroring the
// shape most embedders (wazero included) already expose.
package api

import (
	"context"
	"fmt"
)

// ValueType describes a numeric type used in WebAssembly 1.0. Function
// parameters and results are only definable as one of these.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
)

// ValueTypeName returns the type name of the given ValueType, matching the
// names used in the WebAssembly text format. Returns "unknown" for an
// undefined value.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	}
	return "unknown"
}

// Module is the surface of an instantiated guest exposed to host functions:
// enough to read/write its memory and to force an exit.
//
// This is an interface for decoupling from a specific engine, not for
// third-party implementations of the engine itself.
type Module interface {
	fmt.Stringer

	// Name is the name this module was instantiated with.
	Name() string

	// Memory returns the memory defined in this module, or nil if none was.
	Memory() Memory

	// CloseWithExitCode releases resources held by this module and records
	// exitCode for any caller that observes it after this call returns.
	// When ctx is nil, it defaults to context.Background.
	CloseWithExitCode(ctx context.Context, exitCode uint32) error
}

// Memory allows restricted access to a module's linear memory.
//
// # Notes
//
//   - All functions accept a context.Context, which when nil defaults to
//     context.Background.
//   - Every value is little-endian encoded, matching the WebAssembly core
//     specification.
//   - Implementations must treat the slice returned by Read as a live view:
//     writes to it are visible to the guest, and the guest's own writes are
//     visible through it. A call to Grow may relocate the backing buffer,
//     invalidating any slice obtained before the call. Callers must not
//     retain a Read result across a point where the guest could have grown
//     memory.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#storage%E2%91%A0
type Memory interface {
	// Size returns the size in bytes available. Ex. if the underlying
	// memory has 1 page: 65536.
	Size(ctx context.Context) uint32

	// ReadByte reads a single byte at offset, or false if out of range.
	ReadByte(ctx context.Context, offset uint32) (byte, bool)

	// ReadUint32Le reads a little-endian uint32 at offset, or false if out
	// of range.
	ReadUint32Le(ctx context.Context, offset uint32) (uint32, bool)

	// ReadUint64Le reads a little-endian uint64 at offset, or false if out
	// of range.
	ReadUint64Le(ctx context.Context, offset uint32) (uint64, bool)

	// Read returns byteCount bytes from offset, or false if out of range.
	// See the Notes above: this is a write-through view, not a copy.
	Read(ctx context.Context, offset, byteCount uint32) ([]byte, bool)

	// WriteByte writes v at offset, or false if out of range.
	WriteByte(ctx context.Context, offset uint32, v byte) bool

	// WriteUint32Le writes v little-endian at offset, or false if out of
	// range.
	WriteUint32Le(ctx context.Context, offset, v uint32) bool

	// WriteUint64Le writes v little-endian at offset, or false if out of
	// range.
	WriteUint64Le(ctx context.Context, offset uint32, v uint64) bool

	// Write writes v at offset, or false if out of range.
	Write(ctx context.Context, offset uint32, v []byte) bool
}

// HostFunctionBuilder describes and exports a single host function. It is
// the narrow slice of an engine's module-builder API this module depends on
// to register each WASI call.
type HostFunctionBuilder interface {
	// WithGoModuleFunction registers fn, typed by params/results, to be
	// exported as name. fn receives the raw uint64 stack: params first,
	// results overwrite the same slots in order.
	WithGoModuleFunction(fn GoModuleFunction, params, results []ValueType) HostFunctionBuilder

	// Export finalizes registration of the function under name within the
	// enclosing HostModuleBuilder.
	Export(name string) HostModuleBuilder
}

// GoModuleFunction is a host function bound to the calling Module and its
// raw value stack.
type GoModuleFunction interface {
	Call(ctx context.Context, mod Module, stack []uint64)
}

// GoModuleFunc adapts a plain function to GoModuleFunction.
type GoModuleFunc func(ctx context.Context, mod Module, stack []uint64)

// Call implements GoModuleFunction.
func (f GoModuleFunc) Call(ctx context.Context, mod Module, stack []uint64) { f(ctx, mod, stack) }

// HostModuleBuilder accumulates host functions to be instantiated as a
// single importable module (ex. "wasi_snapshot_preview1").
type HostModuleBuilder interface {
	// NewFunctionBuilder begins describing the next host function to
	// export from this module.
	NewFunctionBuilder() HostFunctionBuilder
}

// EncodeI32 encodes input as a ValueTypeI32 stack entry.
func EncodeI32(input int32) uint64 { return uint64(uint32(input)) }

// EncodeU32 encodes input as a ValueTypeI32 stack entry.
func EncodeU32(input uint32) uint64 { return uint64(input) }

// EncodeI64 encodes input as a ValueTypeI64 stack entry.
func EncodeI64(input int64) uint64 { return uint64(input) }

// DecodeI32 decodes a ValueTypeI32 stack entry to int32.
func DecodeI32(input uint64) int32 { return int32(uint32(input)) }

// DecodeU32 decodes a ValueTypeI32 stack entry to uint32.
func DecodeU32(input uint64) uint32 { return uint32(input) }
