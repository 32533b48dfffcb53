package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// Breaker fails fast once a service has failed repeatedly, letting one probe
// call through after the reset timeout. The chat model sits behind one: when
// it is down, expansion and reranking should degrade instantly instead of
// burning the full model timeout on every request.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithMaxFailures sets the consecutive-failure count that opens the circuit.
func WithMaxFailures(n int) BreakerOption {
	return func(b *Breaker) { b.maxFailures = n }
}

// WithResetTimeout sets how long the circuit stays open before a probe.
func WithResetTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.resetTimeout = d }
}

// NewBreaker creates a breaker. Default: 5 failures, 30 second reset.
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:         name,
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, accounting for reset-timeout expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// currentState must be called with the lock held.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && time.Since(b.lastFailure) > b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Do runs fn through the breaker. An open circuit returns ErrCircuitOpen
// without calling fn; a half-open circuit lets fn through as the probe.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T

	b.mu.Lock()
	state := b.currentState()
	if state == StateOpen {
		b.mu.Unlock()
		return zero, ErrCircuitOpen
	}
	if state == StateHalfOpen {
		b.state = StateHalfOpen
	}
	b.mu.Unlock()

	result, err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.failures >= b.maxFailures || state == StateHalfOpen {
			b.state = StateOpen
		}
		return zero, err
	}
	b.failures = 0
	b.state = StateClosed
	return result, nil
}
