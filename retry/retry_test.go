/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoWithRetry(t *testing.T) {
	t.Run("succeeds after transient errors", func(t *testing.T) {
		attempts := 0
		var notified []time.Duration
		err := DoWithRetry(context.Background(), ConstantBackoffPolicy{Interval: time.Millisecond, MaxRetries: 5}, nil,
			func(_ error, d time.Duration) { notified = append(notified, d) },
			func(context.Context) error {
				attempts++
				if attempts < 3 {
					return errTransient
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
		require.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, notified)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := DoWithRetry(context.Background(), ConstantBackoffPolicy{Interval: time.Millisecond, MaxRetries: 2}, nil, nil,
			func(context.Context) error {
				attempts++
				return errTransient
			})
		require.ErrorIs(t, err, errTransient)
		require.Equal(t, 3, attempts)
	})

	t.Run("stops on not retryable error", func(t *testing.T) {
		errFatal := errors.New("fatal")
		attempts := 0
		err := DoWithRetry(context.Background(), ExponentialBackoffPolicy{InitialInterval: time.Millisecond}, func(err error) bool {
			return errors.Is(err, errTransient)
		}, nil, func(context.Context) error {
			attempts++
			return errFatal
		})
		require.ErrorIs(t, err, errFatal)
		require.Equal(t, 1, attempts)
	})

	t.Run("stops when context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := DoWithRetry(ctx, ConstantBackoffPolicy{Interval: time.Millisecond}, nil, nil, func(context.Context) error {
			attempts++
			cancel()
			return errTransient
		})
		require.Error(t, err)
		require.Equal(t, 1, attempts)
	})
}

func TestExponentialBackoffPolicy(t *testing.T) {
	b := ExponentialBackoffPolicy{InitialInterval: 10 * time.Millisecond, MaxInterval: 20 * time.Millisecond, MaxRetries: 3}.NewBackOff()
	for i := 0; i < 3; i++ {
		d := b.NextBackOff()
		require.Greater(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 30*time.Millisecond)
	}
	require.Equal(t, time.Duration(-1), b.NextBackOff())
}
