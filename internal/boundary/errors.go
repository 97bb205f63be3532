package boundary

import (
	"fmt"
)

// ExhaustedError is the panic value raised when an allocator cannot satisfy a
// request. It is never returned: running out of memory aborts the module.
type ExhaustedError struct {
	Requested uint32
	Live      uint64
	Limit     uint64
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("allocator exhausted: requested %d bytes with %d live (limit %d)",
		e.Requested, e.Live, e.Limit)
}

// DecodeError occurs when a claimed buffer is not valid UTF-8.
type DecodeError struct {
	Addr   uintptr
	Len    uint32
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("buffer at 0x%x (len=%d) is not valid UTF-8 at byte %d",
		e.Addr, e.Len, e.Offset)
}

// LengthMismatchError occurs when a buffer is claimed with a length that
// differs from the size it was allocated with.
type LengthMismatchError struct {
	Addr      uintptr
	Claimed   uint32
	Allocated uint32
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("buffer at 0x%x claimed with length %d but allocated with %d",
		e.Addr, e.Claimed, e.Allocated)
}

// NullBufferError occurs when the host returns a null address with a
// non-zero length.
type NullBufferError struct {
	Len uint32
}

func (e *NullBufferError) Error() string {
	return fmt.Sprintf("null buffer returned with length %d", e.Len)
}

// AccessorError wraps a failure to reconstruct the value of a host accessor.
type AccessorError struct {
	Accessor string
	Err      error
}

func (e *AccessorError) Error() string {
	return fmt.Sprintf("host accessor '%s' failed: %v", e.Accessor, e.Err)
}

func (e *AccessorError) Unwrap() error {
	return e.Err
}
