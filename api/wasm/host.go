//go:build !wasm

package wasm

import (
	"context"
)

// CredentialSource supplies the values behind get_access_token and
// get_instance_url.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)
	InstanceURL(ctx context.Context) (string, error)
}
