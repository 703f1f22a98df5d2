package retry

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by CircuitBreaker.Allow when the breaker is
// tripped and not yet due for a half-open probe.
var ErrCircuitOpen = errors.New("retry: circuit open")

// breakerState mirrors the teacher's BreakerClosed/Open/HalfOpen trio.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// CircuitBreaker trips after a run of consecutive failures and holds the
// scanner backend at arm's length for a cooldown window, the way the
// teacher's connectivity.CircuitBreaker protects a flaky upstream. Here
// it guards Result Poller calls into the scanner backend so one wedged
// backend doesn't spend every tick retrying a doomed call.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold    int
	resetTimeout time.Duration
	halfOpenMax  int
	now          func() time.Time

	state       breakerState
	failures    int
	halfOpenTry int
	openedAt    time.Time
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

func WithBreakerThreshold(n int) BreakerOption {
	return func(b *CircuitBreaker) { b.threshold = n }
}

func WithResetTimeout(d time.Duration) BreakerOption {
	return func(b *CircuitBreaker) { b.resetTimeout = d }
}

func WithHalfOpenMax(n int) BreakerOption {
	return func(b *CircuitBreaker) { b.halfOpenMax = n }
}

// WithClock overrides the breaker's time source, for deterministic tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) { b.now = now }
}

// NewCircuitBreaker constructs a breaker that trips after 5 consecutive
// failures and cools down for 30s, absent overrides.
func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		threshold:    5,
		resetTimeout: 30 * time.Second,
		halfOpenMax:  1,
		now:          time.Now,
		state:        breakerClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may proceed, transitioning Open to
// HalfOpen once the cooldown has elapsed.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if b.now().Sub(b.openedAt) >= b.resetTimeout {
			b.state = breakerHalfOpen
			b.halfOpenTry = 0
			return nil
		}
		return ErrCircuitOpen
	case breakerHalfOpen:
		if b.halfOpenTry >= b.halfOpenMax {
			return ErrCircuitOpen
		}
		b.halfOpenTry++
		return nil
	}
	return nil
}

// Success records a successful call, closing the breaker.
func (b *CircuitBreaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

// Failure records a failed call, tripping the breaker once threshold
// consecutive failures accumulate, or immediately re-opening from
// HalfOpen.
func (b *CircuitBreaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = b.now()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

// Call runs op if the breaker allows it, recording the outcome.
func (b *CircuitBreaker) Call(op func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := op(); err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}
