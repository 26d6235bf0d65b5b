// Package circuitbreaker stops calling a failing dependency until it has had
// time to recover.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	Closed   State = iota // Normal operation.
	Open                  // Calls are rejected immediately.
	HalfOpen              // One trial call is let through.
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	probing         bool
	maxFailures     int
	resetTimeout    time.Duration
	lastFailureTime time.Time

	tripOn func(error) bool
	now    func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithTripOn sets which errors count as failures. By default every non-nil
// error does; caller mistakes such as validation errors usually should not.
func WithTripOn(fn func(error) bool) Option {
	return func(b *Breaker) { b.tripOn = fn }
}

// New creates a Breaker that opens after maxFailures consecutive failures
// and lets a trial call through after resetTimeout.
func New(maxFailures int, resetTimeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		state:        Closed,
		maxFailures:  max(maxFailures, 1),
		resetTimeout: resetTimeout,
		tripOn:       func(err error) bool { return err != nil },
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs fn through the breaker. While open, or while a half-open trial call
// is in flight, ErrCircuitOpen is returned without calling fn. Context
// cancellation by the caller is not counted as a failure.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	switch {
	case err != nil && ctx.Err() != nil:
		// Canceled by the caller: says nothing about the dependency.
		if b.state == HalfOpen {
			b.state = Open
		}
	case err != nil && b.tripOn(err):
		b.failures++
		b.lastFailureTime = b.now()
		if b.state == HalfOpen || b.failures >= b.maxFailures {
			b.state = Open
		}
	default:
		b.failures = 0
		b.state = Closed
	}
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.now().Sub(b.lastFailureTime) < b.resetTimeout {
			return ErrCircuitOpen
		}
		b.state = HalfOpen
		b.probing = true
	case HalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

// GetState returns the current state of the breaker.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
