package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/syncforge/migratekit/errors"
	"github.com/syncforge/migratekit/logger"
	"github.com/syncforge/migratekit/plan"
	"github.com/syncforge/migratekit/resilience"
	"github.com/syncforge/migratekit/version"
)

// Config configures an executor.
type Config struct {
	// MaxConcurrentRequests bounds in-flight operations within a stage.
	MaxConcurrentRequests int `yaml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`
	// Retry configures the retry engine wrapped around every call. RetryIf
	// defaults to the provider-aware classification.
	Retry resilience.RetryConfig `yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentRequests: 5,
		Retry:                 resilience.DefaultRetryConfig(),
	}
}

// Option customizes an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithMetrics enables metric recording for every operation outcome.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// Executor walks a resolved plan stage by stage, invoking each operation
// through its endpoint's rate limiter, circuit breaker, and the retry
// engine.
type Executor struct {
	config   Config
	registry *Registry
	log      *logger.Logger
	metrics  *Metrics
}

// New creates an executor. A nil registry gets default per-endpoint budgets.
func New(config Config, registry *Registry, opts ...Option) *Executor {
	if config.MaxConcurrentRequests <= 0 {
		config.MaxConcurrentRequests = 5
	}
	if registry == nil {
		registry = NewRegistry(DefaultEndpointConfig())
	}

	e := &Executor{
		config:   config,
		registry: registry,
		log:      logger.Get("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the endpoint registry backing this executor.
func (e *Executor) Registry() *Registry { return e.registry }

// Run executes the plan. Operations within one stage run concurrently,
// bounded by MaxConcurrentRequests; stages execute strictly in order.
//
// Cancelling ctx stops dequeuing new operations immediately but lets
// in-flight operations finish naturally; un-started operations are reported
// CANCELLED. Every operation's outcome appears in the report.
func (e *Executor) Run(ctx context.Context, p *plan.Plan, ops map[string]Operation) *Report {
	startedAt := time.Now()

	e.log.Info("run started", logger.Fields(
		logger.FieldPlanID, p.ID,
		"operations", p.Len(),
		"stages", len(p.Stages),
		"engine_version", version.Short(),
	))

	results := make(map[string]*Result, p.Len())
	skips := make(map[string]error)
	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "executor",
		MaxConcurrent: e.config.MaxConcurrentRequests,
	})

	cancelled := false

	for stageIdx, stage := range p.Stages {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		e.runStage(ctx, bulkhead, stageIdx, stage, ops, results, skips)

		// Cascade: any non-success dooms every transitive dependent before
		// the next stage dispatches.
		for _, d := range stage {
			res := results[d.Type]
			if res == nil || res.Status == StatusSuccess {
				continue
			}
			reason := fmt.Errorf("dependency %s did not succeed (%s)", d.Type, res.Status)
			for _, dep := range p.TransitiveDependents(d.Type) {
				if _, doomed := skips[dep]; !doomed {
					skips[dep] = reason
				}
			}
		}
	}

	// Anything without a result at this point was never dequeued.
	for _, d := range p.Operations() {
		if results[d.Type] == nil {
			results[d.Type] = &Result{
				Type:   d.Type,
				Status: StatusCancelled,
				Err:    apperrors.Cancelled(d.Type),
			}
		}
	}

	report := &Report{
		PlanID:    p.ID,
		StartedAt: startedAt,
	}
	for _, d := range p.Operations() {
		report.Results = append(report.Results, *results[d.Type])
	}
	report.Status = aggregate(p, results, cancelled)
	report.FinishedAt = time.Now()

	e.log.Info("run finished", logger.Fields(
		logger.FieldPlanID, p.ID,
		logger.FieldStatus, string(report.Status),
		logger.FieldDuration, report.FinishedAt.Sub(startedAt).Milliseconds(),
	))

	return report
}

// runStage dispatches one stage's operations and waits for all of them.
func (e *Executor) runStage(ctx context.Context, bulkhead *resilience.Bulkhead, stageIdx int, stage []plan.Descriptor, ops map[string]Operation, results map[string]*Result, skips map[string]error) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, d := range stage {
		if reason, doomed := skips[d.Type]; doomed {
			mu.Lock()
			results[d.Type] = &Result{
				Type:   d.Type,
				Status: StatusSkipped,
				Err:    reason,
			}
			mu.Unlock()
			e.log.Warn("operation skipped", logger.Fields(
				logger.FieldOperation, d.Type,
				logger.FieldStage, stageIdx,
				logger.FieldError, reason.Error(),
			))
			continue
		}

		op, declared := ops[d.Type]
		if !declared {
			mu.Lock()
			results[d.Type] = &Result{
				Type:   d.Type,
				Status: StatusFailure,
				Err:    apperrors.Internal(fmt.Sprintf("no operation body supplied for %q", d.Type), nil),
			}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(d plan.Descriptor, op Operation) {
			defer wg.Done()
			res := e.executeOne(ctx, bulkhead, d, op)
			mu.Lock()
			results[d.Type] = res
			mu.Unlock()
		}(d, op)
	}

	wg.Wait()
}

// executeOne runs a single operation through the full resilience chain and
// finalizes its result.
func (e *Executor) executeOne(ctx context.Context, bulkhead *resilience.Bulkhead, d plan.Descriptor, op Operation) *Result {
	if err := bulkhead.Acquire(ctx); err != nil {
		return &Result{Type: d.Type, Status: StatusCancelled, Err: apperrors.Cancelled(d.Type).WithCause(err)}
	}
	defer bulkhead.Release()

	// Last cancellation check before the operation counts as started.
	if ctx.Err() != nil {
		return &Result{Type: d.Type, Status: StatusCancelled, Err: apperrors.Cancelled(d.Type).WithCause(ctx.Err())}
	}

	startedAt := time.Now()

	// In-flight operations finish naturally; the run-level cancel only
	// stops operations that have not started.
	opCtx := context.WithoutCancel(ctx)

	output, err := e.invoke(opCtx, d, op)
	finishedAt := time.Now()

	res := &Result{
		Type:       d.Type,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Output:     output,
	}

	endpoint := op.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if err != nil {
		res.Status = StatusFailure
		res.Err = err
		e.log.Error("operation failed", logger.Fields(
			logger.FieldOperation, d.Type,
			logger.FieldEndpoint, endpoint,
			logger.FieldError, err.Error(),
			logger.FieldDuration, finishedAt.Sub(startedAt).Milliseconds(),
		))
	} else {
		res.Status = StatusSuccess
		e.log.Debug("operation completed", logger.Fields(
			logger.FieldOperation, d.Type,
			logger.FieldEndpoint, endpoint,
			logger.FieldDuration, finishedAt.Sub(startedAt).Milliseconds(),
		))
	}

	e.metrics.recordOperation(ctx, d.Type, endpoint, string(res.Status), finishedAt.Sub(startedAt))

	return res
}

// invoke routes the call through the endpoint's read cache when the
// operation is memoizable.
func (e *Executor) invoke(ctx context.Context, d plan.Descriptor, op Operation) (any, error) {
	name := op.Endpoint
	if name == "" {
		name = DefaultEndpoint
	}
	ep := e.registry.Get(name)

	ctx, span := startSpan(ctx, d.Type, name)
	defer span.End()

	call := func(ctx context.Context) (any, error) {
		return e.callResilient(ctx, ep, d, op)
	}

	var out any
	var err error
	if op.CacheKey != "" {
		if op.CacheTTL > 0 {
			out, err = ep.Cache.GetOrComputeTTL(ctx, op.CacheKey, op.CacheTTL, call)
		} else {
			out, err = ep.Cache.GetOrCompute(ctx, op.CacheKey, call)
		}
	} else {
		out, err = call(ctx)
	}

	if err != nil {
		recordSpanError(span, err)
	}
	return out, err
}

// callResilient applies breaker, limiter, and retry around the operation
// body. Each attempt re-checks the breaker and pays the throttle.
func (e *Executor) callResilient(ctx context.Context, ep *Endpoint, d plan.Descriptor, op Operation) (any, error) {
	// Fail fast before entering the retry loop: an open breaker is a normal
	// operation failure for plan continuation, not something to wait out.
	if !ep.Breaker.Allow() {
		return nil, resilience.ErrCircuitOpen
	}

	cfg := e.config.Retry
	if cfg.RetryIf == nil {
		cfg.RetryIf = retryable
	}
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		e.metrics.recordRetry(ctx, d.Type, ep.Name())
		e.log.Warn("operation retrying", logger.Fields(
			logger.FieldOperation, d.Type,
			logger.FieldEndpoint, ep.Name(),
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff_ms", backoff.Milliseconds(),
		))
	}

	return resilience.Retry(ctx, cfg, func() (any, error) {
		if !ep.Breaker.Allow() {
			return nil, resilience.ErrCircuitOpen
		}
		if err := ep.Limiter.Throttle(ctx); err != nil {
			return nil, err
		}

		out, err := op.Run(ctx)
		if err != nil {
			ep.Breaker.RecordFailure()
			// An explicit provider rate-limit signal parks the limiter
			// before the error surfaces to the retry engine.
			if hint, ok := apperrors.RetryAfterHint(err); ok {
				ep.Limiter.HandleRateLimitResponse(hint)
			}
			return nil, err
		}

		ep.Breaker.RecordSuccess()
		return out, nil
	})
}

// aggregate derives the run status. Required operations drive the outcome,
// and a required operation only counts as delivered when every required
// operation depending on it also succeeded: succeeding at a prerequisite
// whose dependents then failed delivered nothing.
func aggregate(p *plan.Plan, results map[string]*Result, cancelled bool) RunStatus {
	if cancelled {
		return RunCancelled
	}

	total, succeeded := 0, 0
	reqTotal, reqSucceeded := 0, 0
	delivered := false

	for _, d := range p.Operations() {
		res := results[d.Type]
		// A cancel landing mid-stage leaves un-started operations CANCELLED
		// without tripping the stage-loop check.
		if res.Status == StatusCancelled {
			return RunCancelled
		}
		total++
		if res.Status == StatusSuccess {
			succeeded++
		}
		if !d.Required {
			continue
		}
		reqTotal++
		if res.Status != StatusSuccess {
			continue
		}
		reqSucceeded++

		chainIntact := true
		for _, depType := range p.TransitiveDependents(d.Type) {
			dep, _ := p.Descriptor(depType)
			if dep.Required && results[depType].Status != StatusSuccess {
				chainIntact = false
				break
			}
		}
		if chainIntact {
			delivered = true
		}
	}

	switch {
	case succeeded == total:
		return RunSuccess
	case reqTotal == 0:
		if succeeded > 0 {
			return RunPartialSuccess
		}
		return RunFailure
	case reqSucceeded == reqTotal:
		// Only optional work failed.
		return RunPartialSuccess
	case delivered:
		return RunPartialSuccess
	default:
		return RunFailure
	}
}
