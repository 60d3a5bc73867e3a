// Package resilience provides the fault-tolerance primitives the migration
// engine wraps around every remote API call.
//
// This package includes:
//   - CircuitBreaker: isolates a failing remote endpoint by failing fast
//   - Retry: retries transient failures with jittered exponential backoff
//   - Bulkhead: bounds concurrent calls to a shared resource
//   - RateLimiter: adaptive trailing-window throttling per remote endpoint
//
// The executor combines them per endpoint:
//
//	rl := resilience.NewRateLimiter(resilience.DefaultRateLimiterConfig("jira"))
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("jira"))
//
//	if !cb.Allow() {
//	    return resilience.ErrCircuitOpen
//	}
//	if err := rl.Throttle(ctx); err != nil {
//	    return err
//	}
//	_, err := resilience.Retry(ctx, retryCfg, call)
package resilience
