// Package executor walks a resolved execution plan, invoking each operation
// through its endpoint's rate limiter, circuit breaker, and the retry engine,
// and aggregates the outcomes into a run report.
//
// Operations within one stage run concurrently, bounded by
// MaxConcurrentRequests; stages execute strictly in resolved order. An
// operation never starts before every declared dependency has reached a
// terminal state, and a dependent of a failed or skipped dependency is
// itself skipped without being attempted.
//
//	registry := executor.NewRegistry(executor.DefaultEndpointConfig())
//	exec := executor.New(executor.Config{MaxConcurrentRequests: 5}, registry)
//
//	report := exec.Run(ctx, p, map[string]executor.Operation{
//	    "authenticate": {Endpoint: "jira", Run: auth},
//	    "get_projects": {Endpoint: "jira", Run: fetchProjects, CacheKey: "projects"},
//	})
package executor
