package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"wfengine/internal/taskerr"
)

// RetryConfig configures exponential backoff retry.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// Multiplier scales the delay after each attempt.
	Multiplier float64
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// Jitter is the fraction (0..1) of the computed delay added as random
	// noise, to avoid synchronized retries across callers.
	Jitter float64
	// RetryIf decides whether an error should trigger another attempt.
	// Defaults to taskerr.IsRetryable when the error is a *taskerr.Error,
	// and to "always retry" for any other error.
	RetryIf func(err error) bool
	// OnRetry is invoked before sleeping ahead of each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Now and Sleep let tests replace wall-clock waiting with a fake clock.
	// Both default to the real time package.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func defaultRetryIf(err error) bool {
	var terr *taskerr.Error
	if taskerr.As(err, &terr) {
		return terr.IsRetryable()
	}
	return true
}

func realSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *RetryConfig) withDefaults() RetryConfig {
	cfg := *c
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = defaultRetryIf
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = realSleep
	}
	return cfg
}

// Retrier runs operations with exponential backoff.
type Retrier struct {
	config RetryConfig
}

// NewRetrier builds a Retrier, applying defaults to unset fields.
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{config: config.withDefaults()}
}

// Do runs op, retrying on retryable errors up to MaxAttempts times.
func (r *Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.delayFor(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if err := r.config.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

func (r *Retrier) delayFor(attempt int) time.Duration {
	multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(r.config.InitialDelay) * multiplier)
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	if r.config.Jitter > 0 && delay > 0 {
		spread := float64(delay) * r.config.Jitter
		delay += time.Duration(rand.Float64() * spread)
	}
	return delay
}
