package platform

import (
	"context"
	"fmt"

	"github.com/syncforge/migratekit/executor"
)

// Adapter exposes one remote platform as opaque operation callables.
type Adapter interface {
	// Name returns the platform's unique name.
	Name() string
	// Endpoint returns the endpoint key scoping the platform's rate
	// limiter, circuit breaker, and cache.
	Endpoint() string
	// Operations returns the platform's callables keyed by operation type.
	Operations() map[string]executor.Operation
}

// Factory creates an adapter instance from configuration.
type Factory func(cfg map[string]any) (Adapter, error)

// Call adapts a typed platform call into an opaque operation on the given
// endpoint.
func Call[O any](endpoint string, fn func(ctx context.Context) (O, error)) executor.Operation {
	return executor.Operation{
		Endpoint: endpoint,
		Run: func(ctx context.Context) (any, error) {
			return fn(ctx)
		},
	}
}

// Bind adapts a typed platform call by fixing its input, so a client method
// taking (ctx, I) becomes an opaque operation.
func Bind[I, O any](endpoint string, input I, fn func(ctx context.Context, in I) (O, error)) executor.Operation {
	return executor.Operation{
		Endpoint: endpoint,
		Run: func(ctx context.Context) (any, error) {
			return fn(ctx, input)
		},
	}
}

// Memoize marks op as an idempotent read cached under key on its endpoint.
func Memoize(op executor.Operation, key string) executor.Operation {
	op.CacheKey = key
	return op
}

// Operations merges the callables of several adapters into one map for
// executor.Run. Two adapters declaring the same operation type is an error.
func Operations(adapters ...Adapter) (map[string]executor.Operation, error) {
	merged := make(map[string]executor.Operation)
	owners := make(map[string]string)

	for _, a := range adapters {
		for opType, op := range a.Operations() {
			if owner, dup := owners[opType]; dup {
				return nil, fmt.Errorf("operation %q declared by both %s and %s", opType, owner, a.Name())
			}
			if op.Endpoint == "" {
				op.Endpoint = a.Endpoint()
			}
			owners[opType] = a.Name()
			merged[opType] = op
		}
	}
	return merged, nil
}
