package scorer

import (
	"errors"
	"sync"
	"time"

	"github.com/jsndz/notifyengine/metrics"
)

// breakerState is the circuit breaker's three states (spec.md §9 DESIGN
// NOTES): closed (calls pass through), open (calls rejected
// immediately), half_open (a single probe call is allowed through).
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned when a call is rejected without attempting
// the underlying operation.
var ErrCircuitOpen = errors.New("scorer: circuit breaker open")

// Breaker is a minimal rolling circuit breaker, closed by default,
// opening after consecutive failures and probing for recovery on a
// timer. There is no third-party circuit breaker in the example pack,
// so this is a direct, deliberately small hand-roll of the original
// implementation's failure_threshold/recovery_timeout semantics.
type Breaker struct {
	mu               sync.Mutex
	state            breakerState
	failureThreshold int
	recoveryTimeout  time.Duration
	consecutiveFails int
	openedAt         time.Time
}

func NewBreaker(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{
		state:            stateClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Allow reports whether a call may proceed, transitioning open→half_open
// once the recovery timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if time.Since(b.openedAt) >= b.recoveryTimeout {
			b.transition(stateHalfOpen)
			return true
		}
		return false
	case stateHalfOpen:
		// Only the caller that flipped us to half_open proceeds; later
		// callers wait for the probe's outcome.
		return false
	default:
		return true
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFails = 0
	if b.state != stateClosed {
		b.transition(stateClosed)
	}
}

// RecordFailure increments the failure count, opening the circuit once
// the threshold is crossed (from closed) or immediately (from
// half_open, where the probe itself failed).
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.transition(stateOpen)
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.failureThreshold {
		b.transition(stateOpen)
	}
}

func (b *Breaker) transition(to breakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == stateOpen {
		b.openedAt = time.Now()
	}
	metrics.CircuitBreakerStateChangesTotal.WithLabelValues(from.String(), to.String()).Inc()
	metrics.CircuitBreakerState.Set(float64(to))
}
