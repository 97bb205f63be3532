package guest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
)

// ManifestFile is the manifest name looked up in each guest directory.
const ManifestFile = "manifest.yaml"

// Manifest represents the guest manifest.yaml structure.
type Manifest struct {
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	ABIVersion  string     `yaml:"abi_version"`
	Description string     `yaml:"description"`
	Author      string     `yaml:"author"`
	Wasm        WasmConfig `yaml:"wasm"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration.
type WasmConfig struct {
	File string `yaml:"file"`
	Size int    `yaml:"size"` // KB, upper bound on the binary size
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	if m.ABIVersion != abi.ABIVersion {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "abi_version",
			Message: fmt.Sprintf("unsupported abi_version: %q (must be %q)", m.ABIVersion, abi.ABIVersion),
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	info, err := os.Stat(m.WasmPath())
	if os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}
	if err != nil {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: err.Error(),
		}
	}

	if m.Wasm.Size > 0 && info.Size() > int64(m.Wasm.Size)*1024 {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.size",
			Message: fmt.Sprintf("%s is %d bytes, exceeds declared %d KB", m.Wasm.File, info.Size(), m.Wasm.Size),
		}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
