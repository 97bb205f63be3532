package wasm

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
)

var errNoCredentialSource = errors.New("no credential source configured")

// HostFunctionsImpl implements the env host functions for guests.
type HostFunctionsImpl struct {
	logger *zap.Logger
	creds  abi.CredentialSource
}

// NewHostFunctions creates a new host functions implementation backed by
// creds.
func NewHostFunctions(logger *zap.Logger, creds abi.CredentialSource) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
		creds:  creds,
	}
}

// getAccessToken is called by guests to obtain the access token.
// Signature: get_access_token(addr_out, len_out)
func (h *HostFunctionsImpl) getAccessToken(ctx context.Context, mod api.Module, addrOut uint32, lenOut uint32) {
	var get func(context.Context) (string, error)
	if h.creds != nil {
		get = h.creds.AccessToken
	}
	h.handOver(ctx, mod, abi.ImportGetAccessToken, get, addrOut, lenOut)
}

// getInstanceURL is called by guests to obtain the instance URL.
// Signature: get_instance_url(addr_out, len_out)
func (h *HostFunctionsImpl) getInstanceURL(ctx context.Context, mod api.Module, addrOut uint32, lenOut uint32) {
	var get func(context.Context) (string, error)
	if h.creds != nil {
		get = h.creds.InstanceURL
	}
	h.handOver(ctx, mod, abi.ImportGetInstanceURL, get, addrOut, lenOut)
}

// handOver writes the value into a guest-allocated buffer and stores its
// address and length in the out-parameters. The contract has no error
// channel, so on failure the guest receives an empty buffer.
func (h *HostFunctionsImpl) handOver(
	ctx context.Context,
	mod api.Module,
	name string,
	get func(context.Context) (string, error),
	addrOut, lenOut uint32,
) {
	mem := NewMemory(mod)

	var ptr, length uint32
	if err := func() error {
		if get == nil {
			return errNoCredentialSource
		}
		value, err := get(ctx)
		if err != nil {
			return err
		}
		ptr, length, err = mem.WriteString(ctx, value)
		return err
	}(); err != nil {
		h.logger.Error("Host function failed",
			zap.Error(&HostFunctionError{FunctionName: name, Err: err}),
		)
		ptr, length = 0, 0
	}

	if !mem.WriteUint32Le(addrOut, ptr) || !mem.WriteUint32Le(lenOut, length) {
		h.logger.Error("Failed to write out-parameters to Wasm memory",
			zap.String("function", name),
			zap.Uint32("addr_out", addrOut),
			zap.Uint32("len_out", lenOut),
		)
		return
	}

	h.logger.Debug("Handed buffer to guest",
		zap.String("function", name),
		zap.Uint32("ptr", ptr),
		zap.Uint32("length", length),
	)
}
