// Package boundarytest provides test doubles for the boundary package: a
// linear-memory arena allocator and a host that writes its values into it.
package boundarytest

import (
	"github.com/woxQAQ/orgcreds-wasm/internal/boundary"
)

const (
	// ZeroAddr is returned for zero-sized allocations.
	ZeroAddr uintptr = 1

	// base is the first address handed out. Addresses below it are never
	// valid, which keeps 0 free to mean null.
	base uint32 = 8
)

// Arena is a bump allocator over a fixed byte slice, addressed by offset
// like a wasm linear memory. Released regions are reused by later
// allocations of the same size.
type Arena struct {
	mem  []byte
	next uint32
	live map[uint32]uint32   // offset -> size
	free map[uint32][]uint32 // size -> offsets
}

var _ boundary.Allocator = (*Arena)(nil)

// NewArena creates an arena of size bytes.
func NewArena(size uint32) *Arena {
	return &Arena{
		mem:  make([]byte, size),
		next: base,
		live: make(map[uint32]uint32),
		free: make(map[uint32][]uint32),
	}
}

// Allocate implements boundary.Allocator.
func (a *Arena) Allocate(size uint32) uintptr {
	if size == 0 {
		return ZeroAddr
	}

	if offs := a.free[size]; len(offs) > 0 {
		off := offs[len(offs)-1]
		a.free[size] = offs[:len(offs)-1]
		a.live[off] = size
		return uintptr(off)
	}

	end := uint64(a.next) + uint64(size)
	if end > uint64(len(a.mem)) {
		panic(&boundary.ExhaustedError{
			Requested: size,
			Live:      uint64(a.LiveBytes()),
			Limit:     uint64(len(a.mem)),
		})
	}

	off := a.next
	a.next = uint32(end)
	a.live[off] = size
	return uintptr(off)
}

// Deallocate implements boundary.Allocator.
func (a *Arena) Deallocate(addr uintptr) {
	off := uint32(addr)
	size, ok := a.live[off]
	if !ok {
		return
	}
	delete(a.live, off)
	clear(a.mem[off : off+size])
	a.free[size] = append(a.free[size], off)
}

// Take implements boundary.Allocator. The returned slice is a copy so the
// arena can reuse the region.
func (a *Arena) Take(addr uintptr, length uint32) ([]byte, error) {
	off := uint32(addr)
	size, ok := a.live[off]
	if !ok {
		if length == 0 {
			return nil, nil
		}
		if addr == 0 {
			return nil, &boundary.NullBufferError{Len: length}
		}
		return nil, &boundary.LengthMismatchError{Addr: addr, Claimed: length}
	}
	if size != length {
		return nil, &boundary.LengthMismatchError{Addr: addr, Claimed: length, Allocated: size}
	}

	out := make([]byte, size)
	copy(out, a.mem[off:off+size])
	a.Deallocate(addr)
	return out, nil
}

// Write copies p into the region at addr. It panics if p does not fit.
func (a *Arena) Write(addr uintptr, p []byte) {
	off := uint32(addr)
	if len(p) == 0 {
		return
	}
	if size := a.live[off]; uint32(len(p)) > size {
		panic("boundarytest: write outside live region")
	}
	copy(a.mem[off:], p)
}

// Bytes returns a view of length bytes at addr.
func (a *Arena) Bytes(addr uintptr, length uint32) []byte {
	off := uint32(addr)
	return a.mem[off : off+length]
}

// Live returns the number of live regions.
func (a *Arena) Live() int {
	return len(a.live)
}

// LiveBytes returns the total size of all live regions.
func (a *Arena) LiveBytes() int {
	n := 0
	for _, size := range a.live {
		n += int(size)
	}
	return n
}
