package guest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/orgcreds-wasm/internal/wasm"
)

// Manager manages guest lifecycle.
type Manager struct {
	paths       []string
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new guest manager over the given guest directories.
func NewManager(
	paths []string,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		paths:       paths,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		logger:      logger.With(zap.String("component", "guest-manager")),
	}
}

// LoadAll discovers and loads all guests from the configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("guests already loaded")
	}

	m.logger.Info("Loading guests", zap.Strings("paths", m.paths))

	guests, err := m.loader.DiscoverGuests(ctx, m.paths)
	if err != nil {
		var none *NoGuestsFoundError
		if errors.As(err, &none) {
			m.logger.Warn("No guests found in configured paths", zap.Strings("paths", m.paths))
			m.loaded = true
			return nil
		}
		return err
	}

	for _, g := range guests {
		if err := m.registry.Register(g); err != nil {
			m.logger.Error("Failed to register guest",
				zap.String("name", g.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Guests loaded successfully", zap.Int("count", len(guests)))

	return nil
}

// Register loads a single guest directory and registers it.
func (m *Manager) Register(ctx context.Context, dir string) (*Guest, error) {
	g, err := m.loader.LoadGuest(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := m.registry.Register(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Get retrieves a guest by name.
func (m *Manager) Get(name string) (*Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.registry.Get(name)
	if !ok {
		return nil, &NotFoundError{GuestName: name}
	}

	return g, nil
}

// FindForABI finds a guest declaring the given ABI version.
func (m *Manager) FindForABI(version string) (*Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	guests := m.registry.LookupByABI(version)
	if len(guests) == 0 {
		return nil, fmt.Errorf("no guest found for abi version '%s'", version)
	}

	return guests[0], nil
}

// Instantiate creates a new instance of a guest.
func (m *Manager) Instantiate(ctx context.Context, name string) (*wasm.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.registry.Get(name)
	if !ok {
		return nil, &NotFoundError{GuestName: name}
	}

	return m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: g.Compiled.Name,
	})
}

// Shutdown gracefully shuts down all guests.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down guest manager")

	// Runtime close handles instance cleanup
	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("Guest manager shutdown complete")
	return nil
}

// Registry returns the guest registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether guests have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
