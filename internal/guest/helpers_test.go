package guest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/woxQAQ/orgcreds-wasm/internal/credentials"
	"github.com/woxQAQ/orgcreds-wasm/internal/wasm"
	"github.com/woxQAQ/orgcreds-wasm/internal/wasm/wasmtest"
)

// writeGuest lays out <base>/<name>/{manifest.yaml,guest.wasm}.
func writeGuest(t *testing.T, base, name, abiVersion string, bin []byte) string {
	t.Helper()

	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	manifest := fmt.Sprintf(`name: %s
version: 0.1.0
abi_version: "%s"
description: test guest
wasm:
  file: guest.wasm
`, name, abiVersion)

	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if bin != nil {
		if err := os.WriteFile(filepath.Join(dir, "guest.wasm"), bin, 0o644); err != nil {
			t.Fatalf("write wasm: %v", err)
		}
	}
	return dir
}

func newRuntime(t *testing.T) *wasm.Runtime {
	t.Helper()

	ctx := context.Background()
	runtime, err := wasm.NewRuntime(ctx, zap.NewNop(), wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(func() { runtime.Close(ctx) })
	return runtime
}

func newHostFuncs() *wasm.HostFunctionsImpl {
	return wasm.NewHostFunctions(zap.NewNop(), &credentials.Static{
		Token: "00Dxx!token",
		URL:   "https://example.my.salesforce.com",
	})
}

var conformingWasm = wasmtest.ConformingGuest()
