/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations (e.g. dialing an exchange stream) with backoff between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable tells whether the error is transient. Other errors stop retrying immediately.
type IsRetryable func(error) bool

// Policy creates a fresh backoff state for a sequence of attempts.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// PolicyFunc allows using an ordinary function as Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DoWithRetry calls fn until it succeeds, the policy gives up, the error is not retryable or ctx is done.
// isRetryable and notify may be nil (every error is retried, nobody is notified).
func DoWithRetry(
	ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn func(ctx context.Context) error,
) error {
	b := backoff.WithContext(p.NewBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		err := fn(b.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, notify)
}

// ExponentialBackoffPolicy retries with exponentially growing (and randomized) intervals.
type ExponentialBackoffPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetries limits the number of retries after the first attempt, 0 means no limit.
	MaxRetries int
}

// NewBackOff implements Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0
	return withMaxRetries(eb, p.MaxRetries)
}

// ConstantBackoffPolicy retries with a fixed interval.
type ConstantBackoffPolicy struct {
	Interval   time.Duration
	MaxRetries int
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return withMaxRetries(backoff.NewConstantBackOff(p.Interval), p.MaxRetries)
}

func withMaxRetries(b backoff.BackOff, maxRetries int) backoff.BackOff {
	if maxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxRetries))
	}
	b.Reset()
	return b
}
