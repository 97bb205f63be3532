package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
)

// Memory provides bounds-checked access to a guest's linear memory.
//
// Writes go through the guest's allocate export: the host never picks
// addresses itself, so every region it fills belongs to the guest
// allocator and can be handed over as an owned buffer.
type Memory struct {
	name  string
	mem   api.Memory
	alloc api.Function
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{
		name:  module.Name(),
		mem:   module.Memory(),
		alloc: module.ExportedFunction(abi.ExportAllocate),
	}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// ReadBytes returns a view of length bytes at ptr. The view aliases guest
// memory and is only valid until the guest runs again.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, bool) {
	if m.mem == nil {
		return nil, false
	}
	return m.mem.Read(ptr, length)
}

// ReadString copies length bytes at ptr into a string.
func (m *Memory) ReadString(ptr uint32, length uint32) (string, bool) {
	if length == 0 {
		return "", true
	}
	buf, ok := m.ReadBytes(ptr, length)
	if !ok {
		return "", false
	}
	return string(buf), true
}

// ReadUint32Le reads a little-endian uint32 at ptr.
func (m *Memory) ReadUint32Le(ptr uint32) (uint32, bool) {
	if m.mem == nil {
		return 0, false
	}
	return m.mem.ReadUint32Le(ptr)
}

// WriteUint32Le writes a little-endian uint32 at ptr.
func (m *Memory) WriteUint32Le(ptr uint32, v uint32) bool {
	if m.mem == nil {
		return false
	}
	return m.mem.WriteUint32Le(ptr, v)
}

// WriteBytes allocates len(data) bytes in the guest and copies data there.
// Empty data is not allocated and yields (0, 0).
func (m *Memory) WriteBytes(ctx context.Context, data []byte) (uint32, uint32, error) {
	length := uint32(len(data))
	if length == 0 {
		return 0, 0, nil
	}

	if m.alloc == nil {
		return 0, 0, &FunctionNotFoundError{ModuleName: m.name, FunctionName: abi.ExportAllocate}
	}
	if m.mem == nil {
		return 0, 0, &MissingMemoryError{ModuleName: m.name, MemoryName: abi.ExportMemory}
	}

	res, err := m.alloc.Call(ctx, uint64(length))
	if err != nil {
		return 0, 0, &MemoryAccessError{Operation: "allocate", Length: length, Err: err}
	}

	ptr := uint32(res[0])
	if !m.mem.Write(ptr, data) {
		return 0, 0, &MemoryAccessError{Operation: "write", Address: ptr, Length: length, Err: ErrOutOfBounds}
	}

	return ptr, length, nil
}

// WriteString writes s into guest memory. See WriteBytes.
func (m *Memory) WriteString(ctx context.Context, s string) (uint32, uint32, error) {
	return m.WriteBytes(ctx, []byte(s))
}
