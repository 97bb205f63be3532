package boundary

import (
	"unicode/utf8"
	"unsafe"
)

// RawBuffer is a region handed across the boundary: a start address and a
// byte length. Whoever receives it owns it.
type RawBuffer struct {
	Addr uintptr
	Len  uint32
}

// IsNull reports whether the buffer has no address.
func (b RawBuffer) IsNull() bool {
	return b.Addr == 0
}

// OwnedText is a claimed buffer holding text. Its bytes belong to the
// module and are independent of the allocator it came from.
type OwnedText struct {
	src       RawBuffer
	data      []byte
	validated bool
}

// Len returns the byte length.
func (t OwnedText) Len() int {
	return len(t.data)
}

// Validated reports whether the bytes have been checked to be UTF-8.
func (t OwnedText) Validated() bool {
	return t.validated
}

// Validate checks the bytes are UTF-8 and returns the text marked as
// validated.
func (t OwnedText) Validate() (OwnedText, error) {
	if t.validated {
		return t, nil
	}
	if off := invalidUTF8At(t.data); off >= 0 {
		return t, &DecodeError{Addr: t.src.Addr, Len: t.src.Len, Offset: off}
	}
	t.validated = true
	return t, nil
}

// String returns the text without copying. The bytes are not checked;
// call Validate first unless the producer is trusted.
func (t OwnedText) String() string {
	if len(t.data) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(t.data), len(t.data))
}

// invalidUTF8At returns the offset of the first invalid sequence, or -1.
func invalidUTF8At(b []byte) int {
	if utf8.Valid(b) {
		return -1
	}
	for off := 0; off < len(b); {
		r, size := utf8.DecodeRune(b[off:])
		if r == utf8.RuneError && size <= 1 {
			return off
		}
		off += size
	}
	return -1
}
