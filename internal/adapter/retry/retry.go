// Package retry runs calls to external model services under a timeout and
// retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how a call is attempted.
type Policy struct {
	// Attempts is the total number of tries (values below 1 mean 1).
	Attempts int

	// Backoff is the wait before the second attempt; it doubles after each failure.
	Backoff time.Duration

	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	Timeout time.Duration
}

// permanent marks an error that must not be retried.
type permanent struct {
	err error
}

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Do calls fn until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = call(ctx, p.Timeout, fn)
		if lastErr == nil {
			return nil
		}

		var perm *permanent
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("attempt %d/%d: %w", attempt, attempts, lastErr)
			case <-timer.C:
			}
			backoff *= 2
		}
	}

	if attempts > 1 {
		return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
	}
	return lastErr
}

func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
