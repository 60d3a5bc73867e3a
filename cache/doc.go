// Package cache provides short-lived memoization of idempotent read results.
//
// Entries expire by TTL (a default or a per-call override) and the cache
// enforces a capacity bound by evicting exactly one entry per insert once
// full, either oldest-by-insertion (FIFO) or least-recently-used (LRU).
//
// GetOrCompute serializes concurrent misses on the same key so a result is
// computed once:
//
//	c := cache.New[[]Project](cache.Config{DefaultTTL: 5 * time.Minute, MaxSize: 100})
//	projects, err := c.GetOrCompute(ctx, "projects:jira", func(ctx context.Context) ([]Project, error) {
//	    return client.ListProjects(ctx)
//	})
package cache
