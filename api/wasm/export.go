//go:build wasm

package wasm

// This file documents the Wasm export interface of a credential guest.
// Guests implement these functions using //go:wasmexport.
//
// //go:wasmexport allocate
// func allocate(size uint32) uint32
//
// //go:wasmexport deallocate
// func deallocate(ptr uint32)
//
// And import the host accessors, which write the address and length of a
// buffer obtained from allocate into the two out-parameters:
//
// //go:wasmimport env get_access_token
// func getAccessToken(ptr *uint32, length *uint32)
//
// //go:wasmimport env get_instance_url
// func getInstanceURL(ptr *uint32, length *uint32)
