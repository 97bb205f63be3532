package boundary_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/orgcreds-wasm/internal/boundary"
	"github.com/woxQAQ/orgcreds-wasm/internal/boundary/boundarytest"
)

func TestHeapAllocator_AllocateDeallocateCycle(t *testing.T) {
	h := boundary.NewHeapAllocator(boundary.WithAllocatorLogger(zaptest.NewLogger(t)))

	for _, size := range []uint32{0, 1, 5, 64, 4096, 1 << 20} {
		addr := h.Allocate(size)
		require.NotZero(t, addr, "size %d", size)
		h.Deallocate(addr)

		again := h.Allocate(size)
		require.NotZero(t, again, "size %d", size)
		h.Deallocate(again)
	}

	require.Zero(t, h.Live())
	require.Zero(t, h.LiveBytes())
}

func TestHeapAllocator_ZeroSize(t *testing.T) {
	h := boundary.NewHeapAllocator()

	a := h.Allocate(0)
	b := h.Allocate(0)
	require.NotZero(t, a)
	require.Equal(t, a, b, "zero-sized allocations share the sentinel")
	require.Zero(t, h.Live())

	h.Deallocate(a)
	require.Zero(t, h.Live())
}

func TestHeapAllocator_RegionIsWritable(t *testing.T) {
	h := boundary.NewHeapAllocator()

	addr := h.Allocate(5)
	region := unsafe.Slice((*byte)(unsafe.Pointer(addr)), 5)
	copy(region, "hello")

	require.Equal(t, 1, h.Live())
	require.Equal(t, uint64(5), h.LiveBytes())

	b, err := h.Take(addr, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))
	require.Zero(t, h.Live(), "take transfers ownership out of the allocator")
}

func TestHeapAllocator_LiveRegionsDoNotOverlap(t *testing.T) {
	h := boundary.NewHeapAllocator()

	type region struct{ start, end uintptr }
	var regions []region
	for i := 0; i < 32; i++ {
		size := uint32(i*7 + 1)
		addr := h.Allocate(size)
		regions = append(regions, region{addr, addr + uintptr(size)})
	}

	for i, a := range regions {
		for j, b := range regions {
			if i == j {
				continue
			}
			require.False(t, a.start < b.end && b.start < a.end, "regions %d and %d overlap", i, j)
		}
	}
}

func TestHeapAllocator_TakeLengthMismatch(t *testing.T) {
	h := boundary.NewHeapAllocator()

	addr := h.Allocate(8)
	_, err := h.Take(addr, 4)

	var mismatch *boundary.LengthMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, uint32(4), mismatch.Claimed)
	require.Equal(t, uint32(8), mismatch.Allocated)
	require.Equal(t, 1, h.Live(), "a rejected take leaves the region live")
}

func TestHeapAllocator_TakeNull(t *testing.T) {
	h := boundary.NewHeapAllocator()

	b, err := h.Take(0, 0)
	require.NoError(t, err)
	require.Empty(t, b)

	_, err = h.Take(0, 3)
	var null *boundary.NullBufferError
	require.ErrorAs(t, err, &null)
}

func TestHeapAllocator_TakeForeignRegion(t *testing.T) {
	h := boundary.NewHeapAllocator()

	foreign := []byte("foreign")
	addr := uintptr(unsafe.Pointer(&foreign[0]))

	b, err := h.Take(addr, uint32(len(foreign)))
	require.NoError(t, err)
	require.Equal(t, "foreign", string(b))
}

func TestHeapAllocator_Exhausted(t *testing.T) {
	h := boundary.NewHeapAllocator(boundary.WithLimit(16))

	h.Allocate(10)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		exhausted, ok := r.(*boundary.ExhaustedError)
		require.True(t, ok, "panic value %T", r)
		require.Equal(t, uint32(10), exhausted.Requested)
		require.Equal(t, uint64(10), exhausted.Live)
		require.Equal(t, uint64(16), exhausted.Limit)
	}()
	h.Allocate(10)
}

// Deallocating twice is out of contract. Correct callers never do it, so
// this only documents that the registry ignores the second release.
func TestHeapAllocator_DoubleDeallocateIsOutOfContract(t *testing.T) {
	h := boundary.NewHeapAllocator(boundary.WithAllocatorLogger(zaptest.NewLogger(t)))

	addr := h.Allocate(4)
	h.Deallocate(addr)
	h.Deallocate(addr)

	require.Zero(t, h.Live())
}

func TestArena_ReusesReleasedRegions(t *testing.T) {
	arena := boundarytest.NewArena(64)

	for i := 0; i < 100; i++ {
		addr := arena.Allocate(16)
		require.NotZero(t, addr)
		arena.Deallocate(addr)
	}

	require.Zero(t, arena.Live())
}

func TestArena_Exhausted(t *testing.T) {
	arena := boundarytest.NewArena(32)

	require.Panics(t, func() {
		arena.Allocate(64)
	})
}
