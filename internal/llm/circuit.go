package llm

import (
	"errors"
	"sync"
	"time"
)

// Breaker defaults, applied when the provider config leaves them zero.
const (
	defaultBreakerFailures   = 5
	defaultBreakerRecoveries = 2
	defaultBreakerCooldown   = 30 * time.Second
)

// ErrCircuitOpen is returned while a provider's breaker is open. The Router
// treats it as a fallback trigger rather than a hard failure.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the breaker's position.
type CircuitState int

const (
	CircuitClosed CircuitState = iota // normal operation
	CircuitOpen                       // rejecting everything until the cooldown passes
	CircuitHalfOpen                   // probing whether the provider recovered
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker shields one provider from being hammered while it is down.
// A run of failures opens it; after the cooldown it lets probe requests
// through, and a run of probe successes closes it again.
//
// streak counts consecutive outcomes: negative for failures, positive for
// half-open successes. A closed-state success resets it, so only unbroken
// failure runs can trip the breaker.
type CircuitBreaker struct {
	mu       sync.Mutex
	state    CircuitState
	streak   int
	openedAt time.Time

	failLimit    int
	recoverLimit int
	cooldown     time.Duration
}

// newCircuitBreaker builds a closed breaker, substituting defaults for
// zero or negative limits.
func newCircuitBreaker(failures, recoveries int, cooldown time.Duration) *CircuitBreaker {
	if failures <= 0 {
		failures = defaultBreakerFailures
	}
	if recoveries <= 0 {
		recoveries = defaultBreakerRecoveries
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return &CircuitBreaker{
		failLimit:    failures,
		recoverLimit: recoveries,
		cooldown:     cooldown,
	}
}

// Allow reports whether a request may proceed, moving Open to HalfOpen
// once the cooldown has elapsed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if time.Since(cb.openedAt) <= cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.streak = 0
	}
	return nil
}

// Success records a completed call.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.streak = 0
	case CircuitHalfOpen:
		if cb.streak < 0 {
			cb.streak = 0
		}
		cb.streak++
		if cb.streak >= cb.recoverLimit {
			cb.state = CircuitClosed
			cb.streak = 0
		}
	}
}

// Failure records a failed call. In HalfOpen a single failure reopens the
// breaker immediately.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.openedAt = time.Now()
	switch cb.state {
	case CircuitClosed:
		if cb.streak > 0 {
			cb.streak = 0
		}
		cb.streak--
		if -cb.streak >= cb.failLimit {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.streak = 0
	}
}

// State returns the current position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed. Tests only.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.streak = 0
	cb.openedAt = time.Time{}
}
