package wasip1_test

import (
	"context"
	"encoding/binary"

	"github.com/wasihost/p1/api"
)

// fakeMemory is a minimal api.Memory backed by a plain byte slice, enough to
// drive the handlers registered by wasip1.Instantiate without any real
// WebAssembly engine.
type fakeMemory struct {
	buf []byte
}

func newFakeMemory(size int) *fakeMemory { return &fakeMemory{buf: make([]byte, size)} }

func (m *fakeMemory) Size(context.Context) uint32 { return uint32(len(m.buf)) }

func (m *fakeMemory) ReadByte(_ context.Context, offset uint32) (byte, bool) {
	if int(offset) >= len(m.buf) {
		return 0, false
	}
	return m.buf[offset], true
}

func (m *fakeMemory) ReadUint32Le(_ context.Context, offset uint32) (uint32, bool) {
	if int(offset)+4 > len(m.buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.buf[offset:]), true
}

func (m *fakeMemory) ReadUint64Le(_ context.Context, offset uint32) (uint64, bool) {
	if int(offset)+8 > len(m.buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m.buf[offset:]), true
}

func (m *fakeMemory) Read(_ context.Context, offset, byteCount uint32) ([]byte, bool) {
	if int(offset)+int(byteCount) > len(m.buf) {
		return nil, false
	}
	return m.buf[offset : offset+byteCount], true
}

func (m *fakeMemory) WriteByte(_ context.Context, offset uint32, v byte) bool {
	if int(offset) >= len(m.buf) {
		return false
	}
	m.buf[offset] = v
	return true
}

func (m *fakeMemory) WriteUint32Le(_ context.Context, offset, v uint32) bool {
	if int(offset)+4 > len(m.buf) {
		return false
	}
	binary.LittleEndian.PutUint32(m.buf[offset:], v)
	return true
}

func (m *fakeMemory) WriteUint64Le(_ context.Context, offset uint32, v uint64) bool {
	if int(offset)+8 > len(m.buf) {
		return false
	}
	binary.LittleEndian.PutUint64(m.buf[offset:], v)
	return true
}

func (m *fakeMemory) Write(_ context.Context, offset uint32, v []byte) bool {
	if int(offset)+len(v) > len(m.buf) {
		return false
	}
	copy(m.buf[offset:], v)
	return true
}

// fakeModule is a minimal api.Module wrapping a fakeMemory, tracking the
// exit code a procExit call records via CloseWithExitCode.
type fakeModule struct {
	name     string
	mem      *fakeMemory
	exitCode uint32
	closed   bool
}

func newFakeModule(memSize int) *fakeModule {
	return &fakeModule{name: "guest", mem: newFakeMemory(memSize)}
}

func (m *fakeModule) String() string        { return m.name }
func (m *fakeModule) Name() string          { return m.name }
func (m *fakeModule) Memory() api.Memory    { return m.mem }
func (m *fakeModule) CloseWithExitCode(_ context.Context, exitCode uint32) error {
	m.closed = true
	m.exitCode = exitCode
	return nil
}

// fakeBuilder implements api.HostModuleBuilder/api.HostFunctionBuilder,
// capturing every exported function by name so a test can invoke it
// directly without an engine in between.
type fakeBuilder struct {
	fns map[string]api.GoModuleFunction
}

func newFakeBuilder() *fakeBuilder { return &fakeBuilder{fns: map[string]api.GoModuleFunction{}} }

func (b *fakeBuilder) NewFunctionBuilder() api.HostFunctionBuilder {
	return &fakeFunctionBuilder{b: b}
}

type fakeFunctionBuilder struct {
	b  *fakeBuilder
	fn api.GoModuleFunction
}

func (f *fakeFunctionBuilder) WithGoModuleFunction(fn api.GoModuleFunction, _, _ []api.ValueType) api.HostFunctionBuilder {
	f.fn = fn
	return f
}

func (f *fakeFunctionBuilder) Export(name string) api.HostModuleBuilder {
	f.b.fns[name] = f.fn
	return f.b
}

// writeU16 and readU16 mirror abi.Memory's little-endian u16 helpers, which
// have no counterpart on the narrower api.Memory interface fakeMemory
// implements.
func writeU16(m *fakeMemory, offset uint32, v uint16) {
	m.Write(context.Background(), offset, []byte{byte(v), byte(v >> 8)})
}

func readU16(m *fakeMemory, offset uint32) uint16 {
	b, _ := m.Read(context.Background(), offset, 2)
	return uint16(b[0]) | uint16(b[1])<<8
}

// call invokes the function registered as name, returning the errno it
// wrote to stack[0]. stack must be pre-sized by the caller to hold every
// parameter the target function reads.
func call(mod *fakeModule, b *fakeBuilder, name string, stack []uint64) uint32 {
	fn, ok := b.fns[name]
	if !ok {
		panic("wasip1 test: no function registered as " + name)
	}
	fn.Call(context.Background(), mod, stack)
	return uint32(stack[0])
}
