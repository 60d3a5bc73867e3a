package executor

import (
	"context"
	"time"

	apperrors "github.com/syncforge/migratekit/errors"
)

// Operation is an opaque callable supplied by a provider adapter, plus the
// metadata the engine needs to route and memoize it.
type Operation struct {
	// Endpoint names the remote endpoint whose limiter and breaker govern
	// this call. Empty means the default endpoint.
	Endpoint string
	// Run performs the remote call. Failures should be *errors.AppError so
	// the engine can classify them; anything else is treated as not
	// retryable.
	Run func(ctx context.Context) (any, error)
	// CacheKey, when set, memoizes the result in the endpoint's read cache.
	// Only idempotent reads should set it.
	CacheKey string
	// CacheTTL overrides the cache's default TTL for this entry.
	CacheTTL time.Duration
}

// DefaultEndpoint is used for operations that do not name an endpoint.
const DefaultEndpoint = "default"

// retryable is the provider-aware retryability predicate: server, network,
// timeout, and rate-limit class errors retry; validation class errors and
// the breaker's own fast-fail do not.
func retryable(err error) bool {
	return apperrors.IsRetryable(err)
}
