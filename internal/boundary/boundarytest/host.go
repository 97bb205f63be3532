package boundarytest

import (
	"github.com/woxQAQ/orgcreds-wasm/internal/boundary"
)

// Host allocates its values in an Arena and hands them over the way a real
// host would: allocate, write, return the (address, length) pair.
type Host struct {
	Arena       *Arena
	AccessToken []byte
	InstanceURL []byte

	// Calls counts accessor invocations.
	Calls int
}

var _ boundary.Host = (*Host)(nil)

// NewHost creates a host backed by arena that serves token and url.
func NewHost(arena *Arena, token, url string) *Host {
	return &Host{
		Arena:       arena,
		AccessToken: []byte(token),
		InstanceURL: []byte(url),
	}
}

// GetAccessToken implements boundary.Host.
func (h *Host) GetAccessToken() boundary.RawBuffer {
	return h.hand(h.AccessToken)
}

// GetInstanceURL implements boundary.Host.
func (h *Host) GetInstanceURL() boundary.RawBuffer {
	return h.hand(h.InstanceURL)
}

func (h *Host) hand(p []byte) boundary.RawBuffer {
	h.Calls++
	addr := h.Arena.Allocate(uint32(len(p)))
	h.Arena.Write(addr, p)
	return boundary.RawBuffer{Addr: addr, Len: uint32(len(p))}
}
