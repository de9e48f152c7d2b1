// Package resilience provides the engine's retry, circuit breaker, and rate
// limiting primitives: the building blocks each node wraps its call to an
// external collaborator in.
package resilience

import "errors"

var (
	// ErrCircuitOpen is returned when a call is rejected because the
	// circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimited is returned when a call is rejected because its key
	// has exhausted its token bucket.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrRetriesExhausted names the case where every retry attempt failed.
	// Retrier.Do does not return it; it returns the last attempt's error.
	ErrRetriesExhausted = errors.New("resilience: retries exhausted")
)
