package resilience

import (
	"context"
	"sync"
	"time"
)

// window is the trailing interval used to bound the request-rate calculation.
const window = time.Minute

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// MaxRequestsPerMinute is the request budget over the trailing window.
	MaxRequestsPerMinute int
	// InitialDelay is the floor delay applied between requests.
	InitialDelay time.Duration
	// MaxDelay caps the adaptive delay.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay when load crosses BackoffThreshold.
	BackoffFactor float64
	// BackoffThreshold is the window load (0.0 to 1.0) above which the delay grows.
	BackoffThreshold float64
	// OnLimit is called when an explicit provider rate-limit signal is recorded.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:                 name,
		MaxRequestsPerMinute: 300,
		InitialDelay:         100 * time.Millisecond,
		MaxDelay:             10 * time.Second,
		BackoffFactor:        1.5,
		BackoffThreshold:     0.7,
	}
}

// RateLimiterMetrics is a snapshot of the limiter's observable state.
type RateLimiterMetrics struct {
	CurrentDelay       time.Duration
	RequestsLastMinute int
	IsRateLimited      bool
}

// RateLimiter throttles outbound calls against one remote endpoint using a
// trailing-window counter and an adaptive delay. Under light load it settles
// at InitialDelay; as the window fills past BackoffThreshold the delay grows
// geometrically, and it decays back once load subsides.
//
// One instance is owned per remote endpoint and shared by all concurrent
// operations targeting it.
type RateLimiter struct {
	config RateLimiterConfig

	mu               sync.Mutex
	timestamps       []time.Time
	currentDelay     time.Duration
	isRateLimited    bool
	rateLimitResetAt time.Time

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxRequestsPerMinute <= 0 {
		config.MaxRequestsPerMinute = 300
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 10 * time.Second
	}
	if config.BackoffFactor <= 1.0 {
		config.BackoffFactor = 1.5
	}
	if config.BackoffThreshold <= 0 || config.BackoffThreshold > 1.0 {
		config.BackoffThreshold = 0.7
	}

	return &RateLimiter{
		config:       config,
		currentDelay: config.InitialDelay,
		now:          time.Now,
	}
}

// Throttle blocks until it is safe to issue the next request, or the context
// is cancelled. The wait is the sum of any provider-imposed rate-limit hold,
// any time needed for the trailing window to drop below the hard budget, and
// the current adaptive delay.
func (rl *RateLimiter) Throttle(ctx context.Context) error {
	wait := rl.reserve()
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	rl.record()
	return nil
}

// HandleRateLimitResponse records an explicit provider rate-limit signal.
// Until retryAfter elapses every Throttle call holds, overriding normal decay.
func (rl *RateLimiter) HandleRateLimitResponse(retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.isRateLimited = true
	rl.rateLimitResetAt = rl.now().Add(retryAfter)

	// A provider pushback also means the adaptive delay was too optimistic.
	rl.currentDelay = rl.grow(rl.currentDelay)

	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}

// Reset restores the limiter to its initial state.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.timestamps = nil
	rl.currentDelay = rl.config.InitialDelay
	rl.isRateLimited = false
	rl.rateLimitResetAt = time.Time{}
}

// Metrics returns a snapshot of the limiter's observable state.
func (rl *RateLimiter) Metrics() RateLimiterMetrics {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	return RateLimiterMetrics{
		CurrentDelay:       rl.currentDelay,
		RequestsLastMinute: len(rl.timestamps),
		IsRateLimited:      rl.limited(now),
	}
}

// reserve computes the wait for the next request and adjusts the adaptive
// delay based on current window load.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	var wait time.Duration

	// Provider-imposed hold wins over everything else.
	if rl.limited(now) {
		wait = rl.rateLimitResetAt.Sub(now)
	}

	// Hard budget: with a full window the next slot opens when the oldest
	// timestamp ages out.
	if len(rl.timestamps) >= rl.config.MaxRequestsPerMinute {
		slotOpens := rl.timestamps[0].Add(window).Sub(now)
		if slotOpens > wait {
			wait = slotOpens
		}
	}

	load := float64(len(rl.timestamps)) / float64(rl.config.MaxRequestsPerMinute)
	if load >= rl.config.BackoffThreshold {
		rl.currentDelay = rl.grow(rl.currentDelay)
	} else {
		rl.currentDelay = rl.decay(rl.currentDelay)
	}

	if rl.currentDelay > wait {
		wait = rl.currentDelay
	}
	return wait
}

// record appends the request timestamp after the wait completed.
func (rl *RateLimiter) record() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.isRateLimited && !now.Before(rl.rateLimitResetAt) {
		rl.isRateLimited = false
		rl.rateLimitResetAt = time.Time{}
	}
	rl.timestamps = append(rl.timestamps, now)
}

// prune drops timestamps older than the trailing window. Callers hold mu.
func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(rl.timestamps) && !rl.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.timestamps = rl.timestamps[i:]
	}
}

// limited reports whether a provider-imposed hold is active. Callers hold mu.
func (rl *RateLimiter) limited(now time.Time) bool {
	return rl.isRateLimited && now.Before(rl.rateLimitResetAt)
}

func (rl *RateLimiter) grow(d time.Duration) time.Duration {
	grown := time.Duration(float64(d) * rl.config.BackoffFactor)
	if grown > rl.config.MaxDelay {
		return rl.config.MaxDelay
	}
	return grown
}

func (rl *RateLimiter) decay(d time.Duration) time.Duration {
	decayed := time.Duration(float64(d) / rl.config.BackoffFactor)
	if decayed < rl.config.InitialDelay {
		return rl.config.InitialDelay
	}
	return decayed
}
