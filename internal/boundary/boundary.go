package boundary

// defaultAdapter backs the module exports. platformHost is the real host
// import pair on wasip1 and a stub elsewhere.
var defaultAdapter = New(NewHeapAllocator(), platformHost{})

// Default returns the adapter the module exports are bound to.
func Default() *Adapter {
	return defaultAdapter
}

// AccessToken returns the access token supplied by the host.
func AccessToken() (string, error) {
	return defaultAdapter.AccessToken()
}

// InstanceURL returns the instance URL supplied by the host.
func InstanceURL() (string, error) {
	return defaultAdapter.InstanceURL()
}
