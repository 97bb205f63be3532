package guest

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded guests.
type Registry struct {
	sync.RWMutex
	guests map[string]*Guest   // name -> guest
	byABI  map[string][]*Guest // abi version -> guests
	logger *zap.Logger
}

// NewRegistry creates a new guest registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		guests: make(map[string]*Guest),
		byABI:  make(map[string][]*Guest),
		logger: logger.With(zap.String("component", "guest-registry")),
	}
}

// Register adds a guest to the registry.
func (r *Registry) Register(g *Guest) error {
	r.Lock()
	defer r.Unlock()

	name := g.Manifest.Name

	if _, exists := r.guests[name]; exists {
		return &AlreadyRegisteredError{GuestName: name}
	}

	r.guests[name] = g

	version := g.Manifest.ABIVersion
	r.byABI[version] = append(r.byABI[version], g)

	r.logger.Info("Guest registered",
		zap.String("name", name),
		zap.String("abi_version", version),
	)

	return nil
}

// Get retrieves a guest by name.
func (r *Registry) Get(name string) (*Guest, bool) {
	r.RLock()
	defer r.RUnlock()

	g, ok := r.guests[name]
	return g, ok
}

// LookupByABI finds guests declaring an ABI version.
func (r *Registry) LookupByABI(version string) []*Guest {
	r.RLock()
	defer r.RUnlock()

	guests := r.byABI[version]
	// Return copy to avoid race conditions
	result := make([]*Guest, len(guests))
	copy(result, guests)
	return result
}

// List returns all registered guests sorted by name.
func (r *Registry) List() []*Guest {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Guest, 0, len(r.guests))
	for _, g := range r.guests {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// Unregister removes a guest from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	g, ok := r.guests[name]
	if !ok {
		return
	}

	version := g.Manifest.ABIVersion
	guests := r.byABI[version]
	for i, other := range guests {
		if other.Manifest.Name == name {
			r.byABI[version] = append(guests[:i], guests[i+1:]...)
			break
		}
	}

	delete(r.guests, name)

	r.logger.Info("Guest unregistered", zap.String("name", name))
}

// Count returns the number of registered guests.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.guests)
}
