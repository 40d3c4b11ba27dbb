package broker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-lab/internal/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects requests
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed means requests flow normally
	CircuitClosed CircuitState = iota
	// CircuitHalfOpen lets one probe through after the cooldown
	CircuitHalfOpen
	// CircuitOpen means requests are rejected
	CircuitOpen
)

// String returns string representation of circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	case CircuitOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker opens after MaxFailures consecutive failures and lets a
// probe through once Cooldown has elapsed.
type CircuitBreaker struct {
	maxFailures int
	cooldown    time.Duration
	state       CircuitState
	failures    int
	lastError   error
	openedAt    time.Time
	mu          sync.Mutex
	logger      *logrus.Entry
	now         func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(maxFailures int, cooldown time.Duration, logger *logrus.Entry) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		state:       CircuitClosed,
		logger:      logger,
		now:         time.Now,
	}
}

// Allow returns ErrCircuitOpen while the breaker is open and the cooldown has not elapsed
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return nil
	}
	if cb.now().Sub(cb.openedAt) < cb.cooldown {
		return errors.Join(ErrCircuitOpen, cb.lastError)
	}
	cb.state = CircuitHalfOpen
	cb.logger.Info("Circuit breaker entering half-open state after cooldown")
	return nil
}

// RecordSuccess closes the breaker and resets the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitClosed {
		cb.logger.WithField("old_state", cb.state.String()).Info("Circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
	cb.lastError = nil
}

// RecordFailure counts a failure and opens the breaker at the threshold.
// A failed half-open probe reopens it immediately.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastError = err

	if cb.state == CircuitOpen {
		return
	}
	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
		metrics.RecordCircuitBreakerTrip()
		cb.logger.WithFields(logrus.Fields{
			"failure_count":   cb.failures,
			"cooldown_period": cb.cooldown,
			"error":           err,
		}).Error("Circuit breaker opened")
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
