package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"noticiero/internal/retry"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	var calls int
	var slept []time.Duration
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleeper:     func(d time.Duration) { slept = append(slept, d) },
	}
	got, err := retry.Do(context.Background(), policy, func(context.Context, int) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("unexpected result %q after %d calls", got, calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("unexpected backoff sequence %v", slept)
	}
}

func TestDoReturnsExhaustedError(t *testing.T) {
	base := errors.New("down")
	var calls int
	_, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3}, func(context.Context, int) (int, error) {
		calls++
		return 0, base
	})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got %d (calls=%d)", exhausted.Attempts, calls)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected last error to be wrapped, got %v", err)
	}
}

type throttledError struct{ wait time.Duration }

func (e throttledError) Error() string { return "throttled" }
func (e throttledError) RetryDelay() time.Duration { return e.wait }

func TestDoHonoursDelayHint(t *testing.T) {
	var slept []time.Duration
	policy := retry.Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		Sleeper:     func(d time.Duration) { slept = append(slept, d) },
	}
	errs := []error{
		fmt.Errorf("generate: %w", throttledError{wait: 5 * time.Second}),
		throttledError{wait: 10 * time.Millisecond},
		throttledError{wait: time.Hour},
		errors.New("down"),
	}
	var calls int
	_, err := retry.Do(context.Background(), policy, func(context.Context, int) (int, error) {
		e := errs[calls]
		calls++
		return 0, e
	})
	if calls != 4 {
		t.Fatalf("every error should be retried, got %d calls (%v)", calls, err)
	}
	want := []time.Duration{5 * time.Second, 2 * time.Second, time.Minute}
	if len(slept) != len(want) {
		t.Fatalf("unexpected sleeps %v", slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleep %d = %s, want %s", i, slept[i], want[i])
		}
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleeper:     func(time.Duration) { cancel() },
	}
	_, err := retry.Do(ctx, policy, func(context.Context, int) (int, error) {
		calls++
		return 0, errors.New("flaky")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call before cancellation, got %d", calls)
	}
}

func TestDoCapsBackoff(t *testing.T) {
	var slept []time.Duration
	policy := retry.Policy{
		MaxAttempts: 5,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
		Sleeper:     func(d time.Duration) { slept = append(slept, d) },
	}
	_, _ = retry.Do(context.Background(), policy, func(context.Context, int) (int, error) {
		return 0, errors.New("down")
	})
	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("unexpected sleeps %v", slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleep %d = %s, want %s", i, slept[i], want[i])
		}
	}
}
