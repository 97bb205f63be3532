package boundary

import (
	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
	"go.uber.org/zap"
)

// Adapter binds an Allocator to a Host. It backs the allocate and
// deallocate exports and reconstructs the host accessor results.
//
// Calls are synchronous and an Adapter is not safe for concurrent use; the
// host is expected to make one call at a time.
type Adapter struct {
	alloc   Allocator
	host    Host
	trusted bool
	logger  *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTrustedHost skips UTF-8 validation of host buffers.
func WithTrustedHost() Option {
	return func(a *Adapter) {
		a.trusted = true
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an adapter over alloc and host.
func New(alloc Allocator, host Host, opts ...Option) *Adapter {
	a := &Adapter{
		alloc:  alloc,
		host:   host,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "boundary-adapter"))
	return a
}

// Allocator returns the allocator capability the adapter was built with.
func (a *Adapter) Allocator() Allocator {
	return a.alloc
}

// Allocate reserves size bytes and returns the start address.
func (a *Adapter) Allocate(size uint32) uintptr {
	return a.alloc.Allocate(size)
}

// Deallocate releases a region returned by Allocate.
func (a *Adapter) Deallocate(addr uintptr) {
	a.alloc.Deallocate(addr)
}

// Claim takes ownership of buf. Unless the host is trusted the bytes are
// validated as UTF-8.
func (a *Adapter) Claim(buf RawBuffer) (OwnedText, error) {
	data, err := a.alloc.Take(buf.Addr, buf.Len)
	if err != nil {
		return OwnedText{}, err
	}

	text := OwnedText{src: buf, data: data}
	if a.trusted {
		return text, nil
	}
	return text.Validate()
}

// Reconstruct claims buf and returns its contents as a string.
func (a *Adapter) Reconstruct(buf RawBuffer) (string, error) {
	text, err := a.Claim(buf)
	if err != nil {
		return "", err
	}
	return text.String(), nil
}

// AccessToken calls get_access_token and returns the token.
func (a *Adapter) AccessToken() (string, error) {
	return a.accessor(abi.ImportGetAccessToken, a.host.GetAccessToken)
}

// InstanceURL calls get_instance_url and returns the instance URL.
func (a *Adapter) InstanceURL() (string, error) {
	return a.accessor(abi.ImportGetInstanceURL, a.host.GetInstanceURL)
}

func (a *Adapter) accessor(name string, get func() RawBuffer) (string, error) {
	buf := get()

	s, err := a.Reconstruct(buf)
	if err != nil {
		a.logger.Debug("Failed to reconstruct host buffer",
			zap.String("accessor", name),
			zap.Uintptr("addr", buf.Addr),
			zap.Uint32("length", buf.Len),
			zap.Error(err),
		)
		return "", &AccessorError{Accessor: name, Err: err}
	}

	return s, nil
}
