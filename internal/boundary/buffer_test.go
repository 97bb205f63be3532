package boundary_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/woxQAQ/orgcreds-wasm/internal/boundary"
)

func writeHeap(heap *boundary.HeapAllocator, s string) boundary.RawBuffer {
	addr := heap.Allocate(uint32(len(s)))
	if len(s) > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(s)), s)
	}
	return boundary.RawBuffer{Addr: addr, Len: uint32(len(s))}
}

func TestRawBuffer_IsNull(t *testing.T) {
	require.True(t, boundary.RawBuffer{}.IsNull())
	require.False(t, boundary.RawBuffer{Addr: 8, Len: 0}.IsNull())
}

func TestOwnedText_ValidateSetsFlag(t *testing.T) {
	heap := boundary.NewHeapAllocator()
	a := boundary.New(heap, boundary.HostFuncs{}, boundary.WithTrustedHost())

	text, err := a.Claim(writeHeap(heap, "plain"))
	require.NoError(t, err)
	require.False(t, text.Validated())
	require.Equal(t, 5, text.Len())

	text, err = text.Validate()
	require.NoError(t, err)
	require.True(t, text.Validated())
	require.Equal(t, "plain", text.String())
}

func TestOwnedText_ClaimValidatesByDefault(t *testing.T) {
	heap := boundary.NewHeapAllocator()
	a := boundary.New(heap, boundary.HostFuncs{})

	text, err := a.Claim(writeHeap(heap, "checked"))
	require.NoError(t, err)
	require.True(t, text.Validated())
}

func TestOwnedText_StringOutlivesAllocator(t *testing.T) {
	heap := boundary.NewHeapAllocator()
	a := boundary.New(heap, boundary.HostFuncs{})

	s, err := a.Reconstruct(writeHeap(heap, "survives"))
	require.NoError(t, err)

	// Churn the allocator; the owned string must be unaffected.
	for i := 0; i < 64; i++ {
		heap.Deallocate(heap.Allocate(8))
	}
	require.Equal(t, "survives", s)
}

func TestOwnedText_TruncatedSequence(t *testing.T) {
	heap := boundary.NewHeapAllocator()
	a := boundary.New(heap, boundary.HostFuncs{})

	// First two bytes of a three-byte sequence.
	buf := writeHeap(heap, "ab\xe2\x82")
	_, err := a.Claim(buf)

	var decodeErr *boundary.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, 2, decodeErr.Offset)
	require.Equal(t, buf.Addr, decodeErr.Addr)
}
