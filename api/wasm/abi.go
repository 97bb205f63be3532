package wasm

// Names shared by the guest and the host side of the credential boundary.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a 32-bit
// linear memory model. All Wasm memory addresses are represented as 32-bit integers.
const (
	// ABIVersion is the boundary contract revision guests declare in their manifest.
	ABIVersion = "1"

	// ImportModule is the module name the host registers its functions under.
	ImportModule = "env"

	// WASIModule is tolerated as an extra import because Go guests link against it.
	WASIModule = "wasi_snapshot_preview1"

	ExportMemory     = "memory"
	ExportAllocate   = "allocate"
	ExportDeallocate = "deallocate"

	// ExportInitialize is run on instantiation when present (reactor modules).
	ExportInitialize = "_initialize"

	ImportGetAccessToken = "get_access_token"
	ImportGetInstanceURL = "get_instance_url"
)

// HostImports lists every function a guest may import from ImportModule.
var HostImports = []string{ImportGetAccessToken, ImportGetInstanceURL}
