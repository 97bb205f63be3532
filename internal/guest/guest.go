package guest

import (
	"time"

	"github.com/woxQAQ/orgcreds-wasm/internal/wasm"
)

// Guest is a loaded guest module with its manifest, compiled module and
// static ABI checks.
type Guest struct {
	// Manifest is the parsed guest metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// Checks holds the static ABI checks run at load time
	Checks []wasm.Check

	// LoadedAt is the timestamp when the guest was loaded
	LoadedAt time.Time
}

// Name returns the guest name.
func (g *Guest) Name() string {
	return g.Manifest.Name
}

// Version returns the guest version.
func (g *Guest) Version() string {
	return g.Manifest.Version
}

// ABIVersion returns the boundary contract revision the guest declares.
func (g *Guest) ABIVersion() string {
	return g.Manifest.ABIVersion
}

// Conforms reports whether every static ABI check passed.
func (g *Guest) Conforms() bool {
	for _, c := range g.Checks {
		if !c.Passed() {
			return false
		}
	}
	return true
}
