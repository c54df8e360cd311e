package respondersdk

import (
	"time"

	"go.uber.org/atomic"
)

// ──────────────────────────────────────────────
// Circuit Breaker — closed/open/half-open failure isolation per strategy
// ──────────────────────────────────────────────

// BreakerState is the observable circuit state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Guarded strategy breaker names.
const (
	BreakerGenerativeAssist = "generative_assist"
	BreakerContextFetch     = "context_fetch"
)

// CircuitBreaker isolates a failing collaborator. State is derived lazily
// from atomic counters on every call — no background timers. Multiple
// concurrent requests may record failures simultaneously.
type CircuitBreaker struct {
	name      string
	threshold int32
	cooldown  time.Duration

	consecutiveFailures atomic.Int32
	lastFailureAt       atomic.Int64 // unix nanos, 0 = never
}

// NewCircuitBreaker creates a closed breaker that opens after threshold
// consecutive failures and half-opens once the cooldown elapses.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:      name,
		threshold: int32(threshold),
		cooldown:  cooldown,
	}
}

// NewGenerativeAssistBreaker returns the breaker guarding the generative
// assist collaborator: opens after 3 failures, 5 minute cooldown.
func NewGenerativeAssistBreaker() *CircuitBreaker {
	return NewCircuitBreaker(BreakerGenerativeAssist, 3, 5*time.Minute)
}

// NewContextFetchBreaker returns the breaker guarding context-dependent
// templating: opens after 5 failures, 2 minute cooldown.
func NewContextFetchBreaker() *CircuitBreaker {
	return NewCircuitBreaker(BreakerContextFetch, 5, 2*time.Minute)
}

// Name returns the breaker's name.
func (b *CircuitBreaker) Name() string { return b.name }

// State reports the current circuit state as of now.
func (b *CircuitBreaker) State(now time.Time) BreakerState {
	failures := b.consecutiveFailures.Load()
	if failures < b.threshold {
		return BreakerClosed
	}
	last := b.lastFailureAt.Load()
	if last == 0 || now.Sub(time.Unix(0, last)) >= b.cooldown {
		return BreakerHalfOpen
	}
	return BreakerOpen
}

// Allow reports whether a call may proceed: true when closed or half-open.
// Half-open is treated as closed for selection; the next failure reopens
// the circuit immediately and the next success fully resets it.
func (b *CircuitBreaker) Allow(now time.Time) bool {
	return b.State(now) != BreakerOpen
}

// RecordFailure counts a failure (timeouts included) and stamps it.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.consecutiveFailures.Inc()
	b.lastFailureAt.Store(now.UnixNano())
}

// RecordSuccess resets the consecutive failure count to zero.
func (b *CircuitBreaker) RecordSuccess() {
	b.consecutiveFailures.Store(0)
	b.lastFailureAt.Store(0)
}

// ConsecutiveFailures returns the current failure streak.
func (b *CircuitBreaker) ConsecutiveFailures() int {
	return int(b.consecutiveFailures.Load())
}
