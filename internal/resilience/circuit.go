package resilience

import (
	"context"
	"sync"
	"time"
)

// CircuitState is one of the three canonical circuit breaker states.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
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

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state before the circuit opens.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes in the
	// half-open state before the circuit closes.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
	// OnStateChange, if set, is invoked whenever the state transitions.
	OnStateChange func(from, to CircuitState)
	// IsFailure decides whether an error counts against the breaker.
	// Defaults to "any non-nil error is a failure".
	IsFailure func(err error) bool

	Now func() time.Time
}

func (c *CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	cfg := *c
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// CircuitMetrics snapshots the breaker's call counters.
type CircuitMetrics struct {
	State          CircuitState
	TotalCalls     int64
	TotalFailures  int64
	TotalSuccesses int64
	ConsecutiveRun int
}

// CircuitBreaker guards a collaborator against repeated failures, opening
// after FailureThreshold consecutive failures and probing again after
// Timeout has elapsed.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         CircuitState
	consecutive   int
	lastOpenedAt  time.Time
	totalCalls    int64
	totalFailures int64
	totalSuccess  int64
}

// NewCircuitBreaker builds a CircuitBreaker, applying defaults to unset
// config fields.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config.withDefaults(),
		state:  CircuitClosed,
	}
}

// Do runs op through the breaker, returning ErrCircuitOpen without calling
// op if the circuit is open.
func (cb *CircuitBreaker) Do(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}
	err := op(ctx)
	cb.afterCall(err)
	return err
}

// State returns the breaker's current state, resolving an expired Open
// timeout into HalfOpen as a side effect (matching Do's behavior).
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.resolveStateLocked()
}

// Metrics snapshots call counters without mutating state.
func (cb *CircuitBreaker) Metrics() CircuitMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitMetrics{
		State:          cb.state,
		TotalCalls:     cb.totalCalls,
		TotalFailures:  cb.totalFailures,
		TotalSuccesses: cb.totalSuccess,
		ConsecutiveRun: cb.consecutive,
	}
}

// Reset forces the breaker back to Closed and clears the consecutive-run
// counter. The lifetime totals reported by Metrics are kept.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(CircuitClosed)
	cb.consecutive = 0
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.resolveStateLocked()
	if state == CircuitOpen {
		return ErrCircuitOpen
	}
	return nil
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	isFailure := cb.config.IsFailure(err)

	switch cb.state {
	case CircuitClosed:
		if isFailure {
			cb.totalFailures++
			cb.consecutive++
			if cb.consecutive >= cb.config.FailureThreshold {
				cb.transitionLocked(CircuitOpen)
			}
		} else {
			cb.totalSuccess++
			cb.consecutive = 0
		}

	case CircuitHalfOpen:
		if isFailure {
			cb.totalFailures++
			cb.transitionLocked(CircuitOpen)
		} else {
			cb.totalSuccess++
			cb.consecutive++
			if cb.consecutive >= cb.config.SuccessThreshold {
				cb.transitionLocked(CircuitClosed)
			}
		}

	case CircuitOpen:
		// A call slipped in between resolveStateLocked and afterCall; count
		// it but don't change state transition bookkeeping twice.
		if isFailure {
			cb.totalFailures++
		} else {
			cb.totalSuccess++
		}
	}
}

func (cb *CircuitBreaker) resolveStateLocked() CircuitState {
	if cb.state == CircuitOpen && cb.config.Now().Sub(cb.lastOpenedAt) >= cb.config.Timeout {
		cb.transitionLocked(CircuitHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.consecutive = 0
	if to == CircuitOpen {
		cb.lastOpenedAt = cb.config.Now()
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
