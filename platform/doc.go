// Package platform bridges remote test-management platforms and the
// execution engine.
//
// An Adapter exposes one platform (Jira, TestRail, Zephyr, ...) as a set of
// opaque operation callables keyed by operation type. The engine never sees
// transport details; it receives executor.Operation values and schedules
// them through the platform's endpoint budgets.
//
// Typed platform calls are wrapped with Call or Bind:
//
//	op := platform.Bind("jira", projectKey, client.FetchProject)
//
// Adapters for several platforms are merged with Operations and handed to
// executor.Run. A Registry supports config-driven adapter construction.
package platform
