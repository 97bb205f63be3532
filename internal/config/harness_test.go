package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadHarnessConfigDefaults(t *testing.T) {
	cfg, err := LoadHarnessConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Default log level mismatch: got %s, want info", cfg.LogLevel)
	}

	if cfg.ReportFormat != "json" {
		t.Errorf("Default report format mismatch: got %s, want json", cfg.ReportFormat)
	}

	if len(cfg.GuestPaths) != 1 || cfg.GuestPaths[0] != "./guests" {
		t.Errorf("Default guest paths mismatch: got %v, want [./guests]", cfg.GuestPaths)
	}

	if cfg.Wasm.MemoryPages != 256 {
		t.Errorf("Default memory pages mismatch: got %d, want 256", cfg.Wasm.MemoryPages)
	}

	if cfg.Wasm.Timeout() != 30*time.Second {
		t.Errorf("Default timeout mismatch: got %s, want 30s", cfg.Wasm.Timeout())
	}

	if len(cfg.Probe.Sizes) != 4 {
		t.Errorf("Default probe sizes mismatch: got %v", cfg.Probe.Sizes)
	}
}

func TestLoadHarnessConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abicheck.yaml")

	configContent := `
log_level: debug
report_format: yaml
guest_paths:
  - ./a
  - ./b
credentials:
  org_file: ./org.yaml
  instance_url: https://override.my.salesforce.com
wasm:
  memory_pages: 32
  execution_timeout: 5
probe:
  sizes: [3, 7]
`
	if err := os.WriteFile(path, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadHarnessConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Log level mismatch: got %s, want debug", cfg.LogLevel)
	}

	if len(cfg.GuestPaths) != 2 {
		t.Errorf("Guest paths mismatch: got %v", cfg.GuestPaths)
	}

	if cfg.Credentials.OrgFile != "./org.yaml" {
		t.Errorf("Org file mismatch: got %s", cfg.Credentials.OrgFile)
	}

	if cfg.Credentials.InstanceURL != "https://override.my.salesforce.com" {
		t.Errorf("Instance URL mismatch: got %s", cfg.Credentials.InstanceURL)
	}

	if cfg.Wasm.MemoryPages != 32 {
		t.Errorf("Memory pages mismatch: got %d, want 32", cfg.Wasm.MemoryPages)
	}

	if cfg.Wasm.Timeout() != 5*time.Second {
		t.Errorf("Timeout mismatch: got %s, want 5s", cfg.Wasm.Timeout())
	}

	if len(cfg.Probe.Sizes) != 2 || cfg.Probe.Sizes[0] != 3 || cfg.Probe.Sizes[1] != 7 {
		t.Errorf("Probe sizes mismatch: got %v", cfg.Probe.Sizes)
	}
}

func TestLoadHarnessConfigEnvOverride(t *testing.T) {
	t.Setenv("ORGCREDS_LOG_LEVEL", "warn")
	t.Setenv("ORGCREDS_CREDENTIALS_ACCESS_TOKEN", "00Dxx!env")
	t.Setenv("ORGCREDS_WASM_MAX_INSTANCES", "7")

	cfg, err := LoadHarnessConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("Log level mismatch: got %s, want warn", cfg.LogLevel)
	}

	if cfg.Credentials.AccessToken != "00Dxx!env" {
		t.Errorf("Access token mismatch: got %s", cfg.Credentials.AccessToken)
	}

	if cfg.Wasm.MaxInstances != 7 {
		t.Errorf("Max instances mismatch: got %d, want 7", cfg.Wasm.MaxInstances)
	}
}

func TestLoadHarnessConfigMissingFile(t *testing.T) {
	if _, err := LoadHarnessConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
