package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/syncforge/migratekit/cache"
	"github.com/syncforge/migratekit/executor"
	"github.com/syncforge/migratekit/logger"
	"github.com/syncforge/migratekit/resilience"
)

// Config aggregates every engine section. Endpoint-level settings act as
// defaults for all endpoints; entries under Endpoints override them for
// specific remotes.
type Config struct {
	Logging        logger.Config               `yaml:"logging" mapstructure:"logging"`
	RateLimiter    RateLimiterSettings         `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	CircuitBreaker CircuitBreakerSettings      `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Retry          RetrySettings               `yaml:"retry" mapstructure:"retry"`
	Cache          CacheSettings               `yaml:"cache" mapstructure:"cache"`
	Executor       ExecutorSettings            `yaml:"executor" mapstructure:"executor"`
	Endpoints      map[string]EndpointSettings `yaml:"endpoints" mapstructure:"endpoints"`
}

// RateLimiterSettings configures the per-endpoint adaptive rate limiter.
type RateLimiterSettings struct {
	MaxRequestsPerMinute int           `yaml:"max_requests_per_minute" mapstructure:"max_requests_per_minute" validate:"gte=1"`
	InitialDelay         time.Duration `yaml:"initial_delay" mapstructure:"initial_delay" validate:"gt=0"`
	MaxDelay             time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gt=0"`
	BackoffFactor        float64       `yaml:"backoff_factor" mapstructure:"backoff_factor" validate:"gt=1"`
	BackoffThreshold     float64       `yaml:"backoff_threshold" mapstructure:"backoff_threshold" validate:"gt=0,lte=1"`
}

// CircuitBreakerSettings configures the per-endpoint circuit breaker.
type CircuitBreakerSettings struct {
	Threshold    int           `yaml:"threshold" mapstructure:"threshold" validate:"gte=1"`
	ResetTimeout time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout" validate:"gt=0"`
}

// RetrySettings configures the retry engine shared by all operations.
type RetrySettings struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gt=0"`
}

// CacheSettings configures the per-endpoint read cache.
type CacheSettings struct {
	DefaultTTL             time.Duration `yaml:"default_ttl" mapstructure:"default_ttl" validate:"gte=0"`
	MaxSize                int           `yaml:"max_size" mapstructure:"max_size" validate:"gte=0"`
	ResetTTLOnGet          bool          `yaml:"reset_ttl_on_get" mapstructure:"reset_ttl_on_get"`
	PrioritizeRecentlyUsed bool          `yaml:"prioritize_recently_used" mapstructure:"prioritize_recently_used"`
}

// ExecutorSettings configures plan execution.
type ExecutorSettings struct {
	MaxConcurrentRequests int `yaml:"max_concurrent_requests" mapstructure:"max_concurrent_requests" validate:"gte=1"`
}

// EndpointSettings overrides the engine-wide endpoint defaults for one
// remote. Nil sections fall back to the engine-wide values.
type EndpointSettings struct {
	RateLimiter    *RateLimiterSettings    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	CircuitBreaker *CircuitBreakerSettings `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Cache          *CacheSettings          `yaml:"cache" mapstructure:"cache"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()

	if c.RateLimiter.MaxRequestsPerMinute == 0 {
		c.RateLimiter.MaxRequestsPerMinute = 300
	}
	if c.RateLimiter.InitialDelay == 0 {
		c.RateLimiter.InitialDelay = 100 * time.Millisecond
	}
	if c.RateLimiter.MaxDelay == 0 {
		c.RateLimiter.MaxDelay = 10 * time.Second
	}
	if c.RateLimiter.BackoffFactor == 0 {
		c.RateLimiter.BackoffFactor = 1.5
	}
	if c.RateLimiter.BackoffThreshold == 0 {
		c.RateLimiter.BackoffThreshold = 0.7
	}

	if c.CircuitBreaker.Threshold == 0 {
		c.CircuitBreaker.Threshold = 5
	}
	if c.CircuitBreaker.ResetTimeout == 0 {
		c.CircuitBreaker.ResetTimeout = 60 * time.Second
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = 500 * time.Millisecond
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 30 * time.Second
	}

	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 5 * time.Minute
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}

	if c.Executor.MaxConcurrentRequests == 0 {
		c.Executor.MaxConcurrentRequests = 5
	}
}

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

// getValidator returns the singleton validator instance. Field names in
// error messages use the mapstructure tag so they match the YAML keys.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return structValidator
}

// Validate checks struct tags plus the cross-field constraints tags cannot
// express. Call after ApplyDefaults.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := getValidator().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q constraint", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.RateLimiter.MaxDelay < c.RateLimiter.InitialDelay {
		return fmt.Errorf("rate_limiter.max_delay must be >= rate_limiter.initial_delay")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.base_delay")
	}

	return nil
}

// ExecutorConfig converts the executor and retry sections into the runtime
// form.
func (c *Config) ExecutorConfig() executor.Config {
	return executor.Config{
		MaxConcurrentRequests: c.Executor.MaxConcurrentRequests,
		Retry: resilience.RetryConfig{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   c.Retry.BaseDelay,
			MaxDelay:    c.Retry.MaxDelay,
		},
	}
}

// EndpointConfig returns the effective endpoint config for name, applying
// any per-endpoint override on top of the engine-wide defaults.
func (c *Config) EndpointConfig(name string) executor.EndpointConfig {
	rl := c.RateLimiter
	cb := c.CircuitBreaker
	ch := c.Cache

	if override, ok := c.Endpoints[name]; ok {
		if override.RateLimiter != nil {
			rl = *override.RateLimiter
		}
		if override.CircuitBreaker != nil {
			cb = *override.CircuitBreaker
		}
		if override.Cache != nil {
			ch = *override.Cache
		}
	}

	return executor.EndpointConfig{
		RateLimiter: resilience.RateLimiterConfig{
			MaxRequestsPerMinute: rl.MaxRequestsPerMinute,
			InitialDelay:         rl.InitialDelay,
			MaxDelay:             rl.MaxDelay,
			BackoffFactor:        rl.BackoffFactor,
			BackoffThreshold:     rl.BackoffThreshold,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Threshold:    cb.Threshold,
			ResetTimeout: cb.ResetTimeout,
		},
		Cache: cache.Config{
			DefaultTTL:             ch.DefaultTTL,
			MaxSize:                ch.MaxSize,
			ResetTTLOnGet:          ch.ResetTTLOnGet,
			PrioritizeRecentlyUsed: ch.PrioritizeRecentlyUsed,
		},
	}
}

// Registry builds an endpoint registry seeded with every configured
// endpoint override. Endpoints not listed are created lazily from the
// engine-wide defaults.
func (c *Config) Registry() *executor.Registry {
	r := executor.NewRegistry(c.EndpointConfig(""))
	for name := range c.Endpoints {
		r.Register(name, c.EndpointConfig(name))
	}
	return r
}
