package boundary

// Host is the pair of accessors the host runtime supplies. Each returns a
// buffer obtained from this module's allocator, with ownership transferred
// to the module.
type Host interface {
	GetAccessToken() RawBuffer
	GetInstanceURL() RawBuffer
}

// HostFuncs adapts two functions to Host. A nil function yields a null
// buffer.
type HostFuncs struct {
	AccessToken func() RawBuffer
	InstanceURL func() RawBuffer
}

// GetAccessToken implements Host.
func (h HostFuncs) GetAccessToken() RawBuffer {
	if h.AccessToken == nil {
		return RawBuffer{}
	}
	return h.AccessToken()
}

// GetInstanceURL implements Host.
func (h HostFuncs) GetInstanceURL() RawBuffer {
	if h.InstanceURL == nil {
		return RawBuffer{}
	}
	return h.InstanceURL()
}
