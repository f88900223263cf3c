// Package retry runs fallible operations under an exponential backoff policy.
//
// The delay before retry number n is BaseDelay × 1.8^n, rounded to the
// millisecond. There is no jitter and no cap: the caller bounds total wall
// time with the context it passes in.
package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"time"
)

// Growth is the multiplicative backoff factor between attempts.
const Growth = 1.8

// Policy describes how many times an operation may be retried and how long
// to wait in between.
type Policy struct {
	// Retries is the number of attempts allowed after the first one.
	Retries int
	// BaseDelay is multiplied by Growth^attempt to obtain each delay.
	BaseDelay time.Duration
}

// Delay returns the sleep that precedes retry number attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	ms := float64(p.BaseDelay) / float64(time.Millisecond) * math.Pow(Growth, float64(attempt))
	return time.Duration(math.Round(ms)) * time.Millisecond
}

// Executor applies a Policy. The zero value sleeps on the wall clock and
// classifies errors with IsRetryable.
type Executor struct {
	Policy Policy

	// Sleep waits for d or until ctx is done. Tests replace it to record delays.
	Sleep func(ctx context.Context, d time.Duration) error

	// Retryable decides whether err may consume retry budget. Defaults to IsRetryable.
	Retryable func(err error) bool

	// OnRetry is called before each backoff sleep. May be nil.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// New returns an Executor for the given policy.
func New(p Policy) *Executor {
	return &Executor{Policy: p}
}

// Do runs op until it succeeds, returns a non-retryable error, or the retry
// budget is exhausted. The last failure is returned on exhaustion.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	sleep := e.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	retryable := e.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var zero T
	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= e.Policy.Retries {
			return zero, err
		}

		delay := e.Policy.Delay(attempt + 1)
		if e.OnRetry != nil {
			e.OnRetry(attempt+1, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, errors.Join(err, serr)
		}
	}
}

// Sleep blocks for d or until ctx is done, whichever happens first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetryable reports whether err is a transient failure. Errors exposing a
// Retryable() bool method decide for themselves; network errors are retryable;
// context cancellation and everything else is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
