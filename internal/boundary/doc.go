// Package boundary is the guest side of the credential boundary.
//
// It exports an allocator to the host (allocate/deallocate) and wraps the
// host's get_access_token and get_instance_url imports, turning the
// (address, length) pair they hand back into an owned Go string.
//
// Ownership moves with the address: once a region crosses the boundary the
// producer must not touch it again and the receiver is responsible for
// releasing it. The host is expected to obtain the buffers it returns from
// this module's allocate export.
//
// The ABI glue only exists when building for wasip1. On other platforms a
// stub host returning empty buffers is linked in so the package can be
// exercised by ordinary tests with an injected Allocator and Host.
package boundary
