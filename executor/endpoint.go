package executor

import (
	"sync"

	"github.com/syncforge/migratekit/cache"
	"github.com/syncforge/migratekit/resilience"
)

// EndpointConfig bundles the per-endpoint resilience and memoization
// settings. Name fields are filled in from the endpoint name on creation.
type EndpointConfig struct {
	RateLimiter    resilience.RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Cache          cache.Config                    `yaml:"cache" mapstructure:"cache"`
}

// DefaultEndpointConfig returns sensible defaults.
func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		RateLimiter:    resilience.DefaultRateLimiterConfig(""),
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(""),
	}
}

// Endpoint owns the limiter, breaker, and read cache for one remote
// endpoint. All concurrent operations targeting the endpoint share the same
// handle; state is never shared across endpoints.
type Endpoint struct {
	name    string
	Limiter *resilience.RateLimiter
	Breaker *resilience.CircuitBreaker
	Cache   *cache.Cache[any]
}

// Name returns the endpoint name.
func (ep *Endpoint) Name() string { return ep.name }

func newEndpoint(name string, cfg EndpointConfig) *Endpoint {
	cfg.RateLimiter.Name = name
	cfg.CircuitBreaker.Name = name
	cfg.Cache.Name = name

	return &Endpoint{
		name:    name,
		Limiter: resilience.NewRateLimiter(cfg.RateLimiter),
		Breaker: resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		Cache:   cache.New[any](cfg.Cache),
	}
}

// Registry hands out per-endpoint handles. Endpoints are created lazily from
// the default config, or explicitly with Register for endpoints that need
// their own budgets.
type Registry struct {
	mu        sync.Mutex
	defaults  EndpointConfig
	endpoints map[string]*Endpoint
}

// NewRegistry creates a registry that builds endpoints from defaults.
func NewRegistry(defaults EndpointConfig) *Registry {
	return &Registry{
		defaults:  defaults,
		endpoints: make(map[string]*Endpoint),
	}
}

// Register creates an endpoint with an explicit config, replacing any
// existing handle with that name.
func (r *Registry) Register(name string, cfg EndpointConfig) *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep := newEndpoint(name, cfg)
	r.endpoints[name] = ep
	return ep
}

// Get returns the handle for name, creating it from the defaults if needed.
func (r *Registry) Get(name string) *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ep, ok := r.endpoints[name]; ok {
		return ep
	}
	ep := newEndpoint(name, r.defaults)
	r.endpoints[name] = ep
	return ep
}

// Names returns the registered endpoint names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	return names
}

// Reset restores every endpoint's limiter and breaker to their initial state
// and clears the caches.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ep := range r.endpoints {
		ep.Limiter.Reset()
		ep.Breaker.Reset()
		ep.Cache.Clear()
	}
}
