// Package retry runs an operation a bounded number of times with optional
// exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 10 * time.Second
	// maxHintDelay caps server supplied delays.
	maxHintDelay = time.Minute
)

// DelayHinter is implemented by errors that carry a server requested wait,
// such as an HTTP Retry-After header.
type DelayHinter interface {
	RetryDelay() time.Duration
}

// Policy controls how Do retries an operation.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Values <= 0 mean one.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles afterwards up to MaxDelay.
	// Zero disables waiting.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
	// Sleeper replaces the timer-based wait (tests).
	Sleeper func(time.Duration)
}

// ExhaustedError reports that every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do calls fn until it succeeds, the attempts run out, or ctx is done.
// Every error except context cancellation is retried. When all attempts fail
// the returned error is an *ExhaustedError wrapping the last failure.
// An error implementing DelayHinter stretches the wait before the next
// attempt to the hinted delay.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := fn(ctx, attempt)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
		if err := policy.sleep(ctx, policy.delay(attempt, err)); err != nil {
			return zero, err
		}
	}
	return zero, &ExhaustedError{Attempts: attempts, Last: lastErr}
}

func (p Policy) delay(attempt int, err error) time.Duration {
	delay := p.backoff(attempt)
	var hinter DelayHinter
	if errors.As(err, &hinter) {
		if hint := min(hinter.RetryDelay(), maxHintDelay); hint > delay {
			delay = hint
		}
	}
	return delay
}

// backoff returns the delay after the given 1-based attempt: base, base*2, base*4, ...
func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DefaultPolicy returns a policy with the given attempt budget and a one second base delay.
func DefaultPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: defaultBaseDelay, MaxDelay: defaultMaxDelay}
}
