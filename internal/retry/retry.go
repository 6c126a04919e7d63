package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Default policy values, matching the tile-server tuning the tool ships
// with: small tiles, short delays.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
	DefaultFactor       = 2.0
)

// jitterFraction is the upper bound of the random slice added to each
// computed delay.
const jitterFraction = 0.25

// ExhaustedError reports that every attempt failed. It wraps the last
// error observed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Policy configures retry behavior. The zero value is not useful; call
// [Default] or fill the fields explicitly.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// Factor is the multiplicative backoff growth per attempt.
	Factor float64
}

// Default returns the policy used for tile downloads.
func Default() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Factor:       DefaultFactor,
	}
}

// Do invokes fn until it succeeds, the error is not retryable, attempts run
// out, or ctx is cancelled. A nil retryable treats every error as
// retryable. Context cancellation during backoff returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(context.Context) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	factor := p.Factor
	if factor <= 0 {
		factor = DefaultFactor
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		if err := p.sleep(ctx, attempt, factor); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// sleep waits out the backoff for the given attempt, honoring ctx.
func (p Policy) sleep(ctx context.Context, attempt int, factor float64) error {
	delay := p.delay(attempt, factor)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// delay computes the backoff for attempt (1-based) with jitter applied.
func (p Policy) delay(attempt int, factor float64) time.Duration {
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= factor
		if d >= float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	jitter := d * jitterFraction * rand.Float64()
	return time.Duration(d + jitter)
}
