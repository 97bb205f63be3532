package boundary

import (
	"unsafe"

	"go.uber.org/zap"
)

// Allocator is the memory capability behind allocate and deallocate.
//
// Addresses are plain integers so the same contract holds for linear memory
// offsets (wasm32) and for test doubles that hand out synthetic addresses.
type Allocator interface {
	// Allocate returns the start of a fresh byte-aligned region of exactly
	// size bytes. It panics with *ExhaustedError when the request cannot be
	// satisfied.
	Allocate(size uint32) uintptr

	// Deallocate releases a region previously returned by Allocate.
	// Releasing anything else, or releasing twice, is out of contract.
	Deallocate(addr uintptr)

	// Take transfers ownership of the region at addr to the caller. After
	// Take the region is no longer live in the allocator and must not be
	// deallocated.
	Take(addr uintptr, length uint32) ([]byte, error)
}

// zeroSentinel answers every zero-sized request so allocate(0) never
// returns null. uint64 keeps its address 8-byte aligned.
var zeroSentinel struct {
	_ uint64
}

func zeroAddr() uintptr {
	return uintptr(unsafe.Pointer(&zeroSentinel))
}

// HeapAllocator hands out Go heap memory and pins each live region in a
// registry keyed by its address. The registry lets Deallocate recover the
// layout from the address alone.
//
// It is not safe for concurrent use.
type HeapAllocator struct {
	live      map[uintptr][]byte
	liveBytes uint64
	limit     uint64
	logger    *zap.Logger
}

// HeapOption configures a HeapAllocator.
type HeapOption func(*HeapAllocator)

// WithLimit caps the number of live bytes. Zero means no limit.
func WithLimit(limit uint64) HeapOption {
	return func(h *HeapAllocator) {
		h.limit = limit
	}
}

// WithAllocatorLogger sets the logger used for out-of-contract calls.
func WithAllocatorLogger(logger *zap.Logger) HeapOption {
	return func(h *HeapAllocator) {
		h.logger = logger
	}
}

// NewHeapAllocator creates an empty heap allocator.
func NewHeapAllocator(opts ...HeapOption) *HeapAllocator {
	h := &HeapAllocator{
		live:   make(map[uintptr][]byte),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("component", "heap-allocator"))
	return h
}

// Allocate implements Allocator.
func (h *HeapAllocator) Allocate(size uint32) uintptr {
	if size == 0 {
		return zeroAddr()
	}

	if h.limit > 0 && h.liveBytes+uint64(size) > h.limit {
		panic(&ExhaustedError{Requested: size, Live: h.liveBytes, Limit: h.limit})
	}

	buf := make([]byte, size)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	h.live[addr] = buf
	h.liveBytes += uint64(size)

	return addr
}

// Deallocate implements Allocator.
func (h *HeapAllocator) Deallocate(addr uintptr) {
	if addr == zeroAddr() {
		return
	}

	buf, ok := h.live[addr]
	if !ok {
		h.logger.Debug("Deallocate of unknown address", zap.Uintptr("addr", addr))
		return
	}

	delete(h.live, addr)
	h.liveBytes -= uint64(len(buf))
}

// Take implements Allocator.
//
// Regions this allocator produced are checked against their recorded size.
// Any other non-null address is trusted to be a region of length bytes.
func (h *HeapAllocator) Take(addr uintptr, length uint32) ([]byte, error) {
	if buf, ok := h.live[addr]; ok {
		if uint32(len(buf)) != length {
			return nil, &LengthMismatchError{Addr: addr, Claimed: length, Allocated: uint32(len(buf))}
		}
		delete(h.live, addr)
		h.liveBytes -= uint64(len(buf))
		return buf, nil
	}

	if length == 0 {
		return nil, nil
	}

	switch addr {
	case 0:
		return nil, &NullBufferError{Len: length}
	case zeroAddr():
		return nil, &LengthMismatchError{Addr: addr, Claimed: length}
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length), nil
}

// Live returns the number of live regions.
func (h *HeapAllocator) Live() int {
	return len(h.live)
}

// LiveBytes returns the total size of all live regions.
func (h *HeapAllocator) LiveBytes() uint64 {
	return h.liveBytes
}
