package client

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"    // Requests pass through
	StateOpen     CircuitState = "open"      // Requests fail fast
	StateHalfOpen CircuitState = "half-open" // One probe request is allowed
)

// CircuitBreaker tracks failures per endpoint so a dead API fails fast
// instead of holding every page region until its timeout
type CircuitBreaker struct {
	mu        sync.Mutex
	circuits  map[string]*circuit
	threshold int           // Consecutive failures before opening
	cooldown  time.Duration // Time open before a half-open probe
	now       func() time.Time
}

type circuit struct {
	state           CircuitState
	failures        int
	lastStateChange time.Time
}

// NewCircuitBreaker creates a breaker opening after threshold consecutive failures
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		circuits:  make(map[string]*circuit),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a request to key may go out. An open circuit past
// its cooldown moves to half-open and lets one request through. A probe that
// reports nothing within another cooldown is given up and replaced.
func (cb *CircuitBreaker) Allow(key string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[key]
	if !ok {
		return true
	}

	switch c.state {
	case StateOpen:
		if cb.now().Sub(c.lastStateChange) < cb.cooldown {
			return false
		}
		c.state = StateHalfOpen
		c.lastStateChange = cb.now()
		return true
	case StateHalfOpen:
		if cb.now().Sub(c.lastStateChange) < cb.cooldown {
			// A probe is already in flight
			return false
		}
		c.lastStateChange = cb.now()
		return true
	default:
		return true
	}
}

// RecordSuccess closes the circuit for key
func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	delete(cb.circuits, key)
}

// RecordFailure counts a failure and opens the circuit at the threshold
func (cb *CircuitBreaker) RecordFailure(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[key]
	if !ok {
		c = &circuit{state: StateClosed, lastStateChange: cb.now()}
		cb.circuits[key] = c
	}
	c.failures++

	if c.state == StateHalfOpen || (c.state == StateClosed && c.failures >= cb.threshold) {
		c.state = StateOpen
		c.lastStateChange = cb.now()
	}
}

// State returns the current state for key
func (cb *CircuitBreaker) State(key string) CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if c, ok := cb.circuits[key]; ok {
		return c.state
	}
	return StateClosed
}

// CircuitOpenError is returned when a circuit is open
type CircuitOpenError struct {
	Endpoint string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s", e.Endpoint)
}
