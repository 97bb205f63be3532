//go:build wasip1

package boundary

//go:wasmimport env get_access_token
func hostGetAccessToken(ptr *uint32, length *uint32)

//go:wasmimport env get_instance_url
func hostGetInstanceURL(ptr *uint32, length *uint32)

type platformHost struct{}

func (platformHost) GetAccessToken() RawBuffer {
	var ptr, length uint32
	hostGetAccessToken(&ptr, &length)
	return RawBuffer{Addr: uintptr(ptr), Len: length}
}

func (platformHost) GetInstanceURL() RawBuffer {
	var ptr, length uint32
	hostGetInstanceURL(&ptr, &length)
	return RawBuffer{Addr: uintptr(ptr), Len: length}
}

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	return uint32(defaultAdapter.Allocate(size))
}

//go:wasmexport deallocate
func deallocate(ptr uint32) {
	defaultAdapter.Deallocate(uintptr(ptr))
}
