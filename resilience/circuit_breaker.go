package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows requests through to probe recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker denies a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string
	// Threshold is the number of consecutive failures before opening the circuit.
	Threshold int
	// ResetTimeout is how long to wait after the last failure before probing
	// recovery in half-open state.
	ResetTimeout time.Duration
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		Threshold:    5,
		ResetTimeout: 30 * time.Second,
	}
}

// CircuitBreaker isolates a failing remote endpoint by failing fast instead
// of repeatedly paying network latency against a known-bad target.
//
// States:
//   - Closed: normal operation, requests pass through
//   - Open: endpoint is unhealthy, requests are denied immediately
//   - Half-Open: ResetTimeout elapsed, requests pass to probe recovery
//
// The open→half-open transition is evaluated lazily on query, not by a timer.
// One instance is scoped per remote endpoint and never shared across
// endpoints, since failure causality is endpoint-specific.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	lastFailureAt time.Time

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Allow reports whether a request may proceed. It is false only while the
// circuit is open; half-open requests pass so recovery can be probed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState() != StateOpen
}

// RecordSuccess records a successful call. In half-open state the first
// success closes the circuit and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.toState(StateClosed)
	}
}

// RecordFailure records a failed call. Threshold consecutive failures in
// closed state open the circuit; any failure in half-open state re-opens it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureAt = cb.now()

	switch cb.currentState() {
	case StateClosed:
		if cb.failures >= cb.config.Threshold {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		cb.toState(StateOpen)
	}
}

// Execute runs the given function through the circuit breaker.
// Returns ErrCircuitOpen if the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset restores the breaker to the closed state with a clean failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
}

// currentState returns the current state, handling the lazy open→half-open
// transition. Callers hold mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailureAt) >= cb.config.ResetTimeout {
			cb.toState(StateHalfOpen)
		}
	}
	return cb.state
}

// toState transitions to a new state. Callers hold mu.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	if to == StateClosed {
		cb.failures = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
