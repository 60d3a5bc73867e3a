package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/syncforge/migratekit/errors"
	"github.com/syncforge/migratekit/plan"
	"github.com/syncforge/migratekit/resilience"
)

// testEndpointConfig keeps throttle and backoff delays negligible.
func testEndpointConfig() EndpointConfig {
	return EndpointConfig{
		RateLimiter: resilience.RateLimiterConfig{
			MaxRequestsPerMinute: 100000,
			InitialDelay:         time.Microsecond,
			MaxDelay:             time.Millisecond,
			BackoffFactor:        2.0,
			BackoffThreshold:     0.99,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Threshold:    5,
			ResetTimeout: time.Minute,
		},
	}
}

func testExecutor(maxConcurrent int) *Executor {
	return New(Config{
		MaxConcurrentRequests: maxConcurrent,
		Retry: resilience.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		},
	}, NewRegistry(testEndpointConfig()))
}

func mustResolve(t *testing.T, descriptors []plan.Descriptor) *plan.Plan {
	t.Helper()
	p, err := plan.Resolve(descriptors)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	return p
}

func succeed(output any) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) { return output, nil }
}

func migrationChain(t *testing.T) *plan.Plan {
	return mustResolve(t, []plan.Descriptor{
		{Type: "authenticate", Required: true},
		{Type: "get_projects", DependsOn: []string{"authenticate"}, Required: true},
		{Type: "get_test_cases", DependsOn: []string{"get_projects"}, Required: true},
	})
}

func TestExecutor_LinearChainSuccess(t *testing.T) {
	p := migrationChain(t)
	exec := testExecutor(2)

	var mu sync.Mutex
	var order []string
	track := func(name string, output any) Operation {
		return Operation{Run: func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return output, nil
		}}
	}

	report := exec.Run(context.Background(), p, map[string]Operation{
		"authenticate":   track("authenticate", "token"),
		"get_projects":   track("get_projects", []string{"PROJ"}),
		"get_test_cases": track("get_test_cases", 120),
	})

	if report.Status != RunSuccess {
		t.Errorf("expected SUCCESS, got %s", report.Status)
	}
	if report.PlanID != p.ID {
		t.Errorf("expected report tied to plan %s, got %s", p.ID, report.PlanID)
	}

	want := []string{"authenticate", "get_projects", "get_test_cases"}
	for i, w := range want {
		if order[i] != w {
			t.Errorf("execution order[%d]: expected %s, got %s", i, w, order[i])
		}
		if report.Results[i].Type != w {
			t.Errorf("results[%d]: expected %s, got %s", i, w, report.Results[i].Type)
		}
		if report.Results[i].Status != StatusSuccess {
			t.Errorf("results[%d]: expected SUCCESS, got %s", i, report.Results[i].Status)
		}
	}

	res, _ := report.Result("authenticate")
	if res.Output != "token" {
		t.Errorf("expected output preserved, got %v", res.Output)
	}
	if res.StartedAt.IsZero() || res.FinishedAt.Before(res.StartedAt) {
		t.Errorf("expected sane timestamps, got %+v", res)
	}
}

func TestExecutor_RequiredFailureSkipsDependents(t *testing.T) {
	p := migrationChain(t)
	exec := testExecutor(2)

	var projectCalls, caseCalls int32
	report := exec.Run(context.Background(), p, map[string]Operation{
		"authenticate": succeedOp(),
		"get_projects": {Run: func(ctx context.Context) (any, error) {
			atomic.AddInt32(&projectCalls, 1)
			return nil, apperrors.Validation("malformed project filter")
		}},
		"get_test_cases": {Run: func(ctx context.Context) (any, error) {
			atomic.AddInt32(&caseCalls, 1)
			return nil, nil
		}},
	})

	if report.Status != RunFailure {
		t.Errorf("expected FAILURE, got %s", report.Status)
	}

	auth, _ := report.Result("authenticate")
	if auth.Status != StatusSuccess {
		t.Errorf("expected authenticate SUCCESS, got %s", auth.Status)
	}

	projects, _ := report.Result("get_projects")
	if projects.Status != StatusFailure {
		t.Errorf("expected get_projects FAILURE, got %s", projects.Status)
	}
	if !apperrors.IsCode(projects.Err, apperrors.ErrCodeValidation) {
		t.Errorf("expected cause chain preserved, got %v", projects.Err)
	}

	cases, _ := report.Result("get_test_cases")
	if cases.Status != StatusSkipped {
		t.Errorf("expected get_test_cases SKIPPED, got %s", cases.Status)
	}
	if cases.Err == nil {
		t.Error("expected skip reason recorded")
	}

	if projectCalls != 1 {
		t.Errorf("expected validation error not retried, got %d calls", projectCalls)
	}
	if caseCalls != 0 {
		t.Errorf("expected skipped operation never attempted, got %d calls", caseCalls)
	}
}

func succeedOp() Operation {
	return Operation{Run: succeed(nil)}
}

func TestExecutor_OptionalFailurePlanContinues(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{
		{Type: "authenticate", Required: true},
		{Type: "get_projects", DependsOn: []string{"authenticate"}, Required: true},
		{Type: "get_attachments", DependsOn: []string{"authenticate"}, Required: false},
		{Type: "get_attachment_meta", DependsOn: []string{"get_attachments"}, Required: false},
	})
	exec := testExecutor(2)

	report := exec.Run(context.Background(), p, map[string]Operation{
		"authenticate": succeedOp(),
		"get_projects": succeedOp(),
		"get_attachments": {Run: func(ctx context.Context) (any, error) {
			return nil, apperrors.NotFound("attachment store", "")
		}},
		"get_attachment_meta": succeedOp(),
	})

	if report.Status != RunPartialSuccess {
		t.Errorf("expected PARTIAL_SUCCESS, got %s", report.Status)
	}

	projects, _ := report.Result("get_projects")
	if projects.Status != StatusSuccess {
		t.Errorf("expected required branch to continue, got %s", projects.Status)
	}

	meta, _ := report.Result("get_attachment_meta")
	if meta.Status != StatusSkipped {
		t.Errorf("expected dependent of failed optional op SKIPPED, got %s", meta.Status)
	}
}

func TestExecutor_PartialSuccessWhenOneBranchDelivers(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{
		{Type: "authenticate", Required: true},
		{Type: "get_projects", DependsOn: []string{"authenticate"}, Required: true},
		{Type: "get_users", DependsOn: []string{"authenticate"}, Required: true},
	})
	exec := testExecutor(2)

	report := exec.Run(context.Background(), p, map[string]Operation{
		"authenticate": succeedOp(),
		"get_projects": succeedOp(),
		"get_users": {Run: func(ctx context.Context) (any, error) {
			return nil, apperrors.Validation("users endpoint gone")
		}},
	})

	if report.Status != RunPartialSuccess {
		t.Errorf("expected PARTIAL_SUCCESS when one required branch delivered, got %s", report.Status)
	}
}

func TestExecutor_RetriesTransientFailures(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{{Type: "flaky", Required: true}})
	exec := testExecutor(1)

	var calls int32
	report := exec.Run(context.Background(), p, map[string]Operation{
		"flaky": {Run: func(ctx context.Context) (any, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, apperrors.Server(503, "warming up")
			}
			return "done", nil
		}},
	})

	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if report.Status != RunSuccess {
		t.Errorf("expected SUCCESS after retries, got %s", report.Status)
	}
}

func TestExecutor_RetryExhaustionSurfacesLastError(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{{Type: "down", Required: true}})
	exec := testExecutor(1)

	var calls int32
	report := exec.Run(context.Background(), p, map[string]Operation{
		"down": {Run: func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return nil, apperrors.ServiceUnavailable("zephyr")
		}},
	})

	if calls != 3 {
		t.Errorf("expected MaxAttempts calls, got %d", calls)
	}

	res, _ := report.Result("down")
	var exhausted *resilience.ExhaustedError
	if !errors.As(res.Err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", res.Err)
	}
	if !apperrors.IsCode(res.Err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("expected underlying cause in chain, got %v", res.Err)
	}
}

func TestExecutor_CircuitOpenFailsFast(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{{Type: "blocked", Required: true}})
	exec := testExecutor(1)

	// Trip the breaker for the endpoint before the run.
	ep := exec.Registry().Get("jira")
	for i := 0; i < 5; i++ {
		ep.Breaker.RecordFailure()
	}

	called := false
	report := exec.Run(context.Background(), p, map[string]Operation{
		"blocked": {Endpoint: "jira", Run: func(ctx context.Context) (any, error) {
			called = true
			return nil, nil
		}},
	})

	if called {
		t.Error("expected body not called while circuit open")
	}

	res, _ := report.Result("blocked")
	if res.Status != StatusFailure {
		t.Errorf("expected circuit-open counted as FAILURE, got %s", res.Status)
	}
	if !errors.Is(res.Err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", res.Err)
	}
}

func TestExecutor_BreakerScopedPerEndpoint(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{
		{Type: "jira_op", Required: false},
		{Type: "testrail_op", Required: false},
	})
	exec := testExecutor(2)

	for i := 0; i < 5; i++ {
		exec.Registry().Get("jira").Breaker.RecordFailure()
	}

	report := exec.Run(context.Background(), p, map[string]Operation{
		"jira_op":     {Endpoint: "jira", Run: succeed(nil)},
		"testrail_op": {Endpoint: "testrail", Run: succeed("ok")},
	})

	jiraRes, _ := report.Result("jira_op")
	if jiraRes.Status != StatusFailure {
		t.Errorf("expected jira blocked, got %s", jiraRes.Status)
	}

	trRes, _ := report.Result("testrail_op")
	if trRes.Status != StatusSuccess {
		t.Errorf("expected testrail unaffected, got %s", trRes.Status)
	}
}

func TestExecutor_RateLimitSignalParksLimiter(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{{Type: "listed", Required: true}})

	var limitSignals int32
	cfg := testEndpointConfig()
	cfg.RateLimiter.OnLimit = func(name string) { atomic.AddInt32(&limitSignals, 1) }

	registry := NewRegistry(testEndpointConfig())
	registry.Register("jira", cfg)

	exec := New(Config{
		MaxConcurrentRequests: 1,
		Retry: resilience.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
		},
	}, registry)

	var calls int32
	report := exec.Run(context.Background(), p, map[string]Operation{
		"listed": {Endpoint: "jira", Run: func(ctx context.Context) (any, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, apperrors.RateLimited(5 * time.Millisecond)
			}
			return "ok", nil
		}},
	})

	if report.Status != RunSuccess {
		t.Errorf("expected SUCCESS after rate-limit retry, got %s", report.Status)
	}
	if limitSignals != 1 {
		t.Errorf("expected limiter parked once, got %d signals", limitSignals)
	}
}

func TestExecutor_ConcurrencyBounded(t *testing.T) {
	var descriptors []plan.Descriptor
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, n := range names {
		descriptors = append(descriptors, plan.Descriptor{Type: n})
	}
	p := mustResolve(t, descriptors)
	exec := testExecutor(2)

	var current, peak int64
	ops := make(map[string]Operation, len(names))
	for _, n := range names {
		ops[n] = Operation{Run: func(ctx context.Context) (any, error) {
			v := atomic.AddInt64(&current, 1)
			for {
				prev := atomic.LoadInt64(&peak)
				if v <= prev || atomic.CompareAndSwapInt64(&peak, prev, v) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return nil, nil
		}}
	}

	exec.Run(context.Background(), p, ops)

	if peak > 2 {
		t.Errorf("expected at most 2 concurrent operations, observed %d", peak)
	}
}

func TestExecutor_CancellationLetsInflightFinish(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{
		{Type: "slow", Required: true},
		{Type: "after", DependsOn: []string{"slow"}, Required: true},
	})
	exec := testExecutor(2)

	ctx, cancel := context.WithCancel(context.Background())

	report := make(chan *Report, 1)
	go func() {
		report <- exec.Run(ctx, p, map[string]Operation{
			"slow": {Run: func(opCtx context.Context) (any, error) {
				cancel()
				// The body's context must not be cancelled mid-call.
				select {
				case <-opCtx.Done():
					return nil, opCtx.Err()
				case <-time.After(30 * time.Millisecond):
					return "finished", nil
				}
			}},
			"after": succeedOp(),
		})
	}()

	r := <-report

	slow, _ := r.Result("slow")
	if slow.Status != StatusSuccess {
		t.Errorf("expected in-flight operation to finish naturally, got %s (%v)", slow.Status, slow.Err)
	}

	after, _ := r.Result("after")
	if after.Status != StatusCancelled {
		t.Errorf("expected un-started operation CANCELLED, got %s", after.Status)
	}

	if r.Status != RunCancelled {
		t.Errorf("expected run CANCELLED, got %s", r.Status)
	}
}

func TestExecutor_CacheMemoizesIdempotentReads(t *testing.T) {
	p := mustResolve(t, []plan.Descriptor{
		{Type: "get_projects", Required: true},
		{Type: "get_projects_again", DependsOn: []string{"get_projects"}, Required: true},
	})

	cfg := testEndpointConfig()
	cfg.Cache.DefaultTTL = time.Minute
	cfg.Cache.MaxSize = 10

	exec := New(DefaultConfig(), NewRegistry(cfg))

	var fetches int32
	fetch := Operation{
		Endpoint: "jira",
		CacheKey: "projects",
		Run: func(ctx context.Context) (any, error) {
			atomic.AddInt32(&fetches, 1)
			return []string{"PROJ"}, nil
		},
	}

	report := exec.Run(context.Background(), p, map[string]Operation{
		"get_projects":       fetch,
		"get_projects_again": fetch,
	})

	if report.Status != RunSuccess {
		t.Fatalf("expected SUCCESS, got %s", report.Status)
	}
	if fetches != 1 {
		t.Errorf("expected one remote fetch, got %d", fetches)
	}

	again, _ := report.Result("get_projects_again")
	projects, ok := again.Output.([]string)
	if !ok || len(projects) != 1 || projects[0] != "PROJ" {
		t.Errorf("expected memoized output, got %v", again.Output)
	}
}

func TestExecutor_MissingBodyFailsOperation(t *testing.T) {
	p := migrationChain(t)
	exec := testExecutor(1)

	report := exec.Run(context.Background(), p, map[string]Operation{
		"authenticate": succeedOp(),
		// get_projects body missing
		"get_test_cases": succeedOp(),
	})

	projects, _ := report.Result("get_projects")
	if projects.Status != StatusFailure {
		t.Errorf("expected FAILURE for missing body, got %s", projects.Status)
	}

	cases, _ := report.Result("get_test_cases")
	if cases.Status != StatusSkipped {
		t.Errorf("expected dependent SKIPPED, got %s", cases.Status)
	}
}

func TestExecutor_EmptyPlan(t *testing.T) {
	p := mustResolve(t, nil)
	exec := testExecutor(1)

	report := exec.Run(context.Background(), p, nil)
	if report.Status != RunSuccess {
		t.Errorf("expected empty run SUCCESS, got %s", report.Status)
	}
	if len(report.Results) != 0 {
		t.Errorf("expected no results, got %d", len(report.Results))
	}
}

func TestReport_Counts(t *testing.T) {
	r := &Report{Results: []Result{
		{Type: "a", Status: StatusSuccess},
		{Type: "b", Status: StatusSuccess},
		{Type: "c", Status: StatusFailure},
		{Type: "d", Status: StatusSkipped},
	}}

	counts := r.Counts()
	if counts[StatusSuccess] != 2 || counts[StatusFailure] != 1 || counts[StatusSkipped] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
