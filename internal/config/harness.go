package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ORGCREDS_WASM_MEMORY_PAGES.
const EnvPrefix = "ORGCREDS"

type HarnessConfig struct {
	GuestPaths   []string          `mapstructure:"guest_paths"`
	LogLevel     string            `mapstructure:"log_level"`
	ReportFormat string            `mapstructure:"report_format"`
	Credentials  CredentialsConfig `mapstructure:"credentials"`
	Wasm         WasmConfig        `mapstructure:"wasm"`
	Probe        ProbeConfig       `mapstructure:"probe"`
}

// CredentialsConfig selects what the host hands to guests.
// OrgFile wins over the inline token; InstanceURL overrides either.
type CredentialsConfig struct {
	OrgFile     string `mapstructure:"org_file"`
	AccessToken string `mapstructure:"access_token"`
	InstanceURL string `mapstructure:"instance_url"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Forward guest stdout/stderr.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory. Empty keeps the cache in memory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Guest call timeout (seconds).
	ExecutionTimeout int `mapstructure:"execution_timeout"`
}

// Timeout returns ExecutionTimeout as a duration.
func (w WasmConfig) Timeout() time.Duration {
	return time.Duration(w.ExecutionTimeout) * time.Second
}

// ProbeConfig drives the dynamic allocator checks.
type ProbeConfig struct {
	Sizes []uint32 `mapstructure:"sizes"`
}

func LoadHarnessConfig(configPath string) (*HarnessConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("guest_paths", []string{"./guests"})
	v.SetDefault("log_level", "info")
	v.SetDefault("report_format", "json")

	v.SetDefault("credentials.org_file", "")
	v.SetDefault("credentials.access_token", "")
	v.SetDefault("credentials.instance_url", "")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30)

	v.SetDefault("probe.sizes", []uint32{1, 5, 64, 4096})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg HarnessConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
