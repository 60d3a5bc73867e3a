package platform

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages named adapter factories and cached instances.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Adapter
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Adapter),
	}
}

// RegisterFactory registers a named factory for creating adapters.
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates an adapter using the named factory and config, and
// caches the instance.
func (r *Registry) Create(name string, cfg map[string]any) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("platform factory %q not registered", name)
	}

	adapter, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.instances[name] = adapter
	r.mu.Unlock()
	return adapter, nil
}

// Get returns a cached adapter instance by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// List returns sorted names of all registered factories.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
