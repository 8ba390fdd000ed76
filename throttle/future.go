/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"context"
	"errors"
	"sync"
)

// ErrFutureNotDone is returned by Future.Result when the future is not resolved yet.
var ErrFutureNotDone = errors.New("future is not done")

// Future is a result of a call that will be available later.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	resp      *Response
	err       error
	callbacks []func(resp *Response, err error)
}

// NewFuture creates a new unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Completed creates an already resolved Future.
func Completed(resp *Response, err error) *Future {
	f := NewFuture()
	f.Resolve(resp, err)
	return f
}

// Resolve sets the result of the future. Only the first call has an effect, it reports whether it was so.
func (f *Future) Resolve(resp *Response, err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.resp, f.err = resp, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(resp, err)
	}
	return true
}

// Done returns a channel that is closed when the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the result of the resolved future or ErrFutureNotDone.
func (f *Future) Result() (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.resolved {
		return nil, ErrFutureNotDone
	}
	return f.resp, f.err
}

// Wait blocks until the future is resolved or the context is done.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// onComplete registers a callback that is called once the future is resolved.
// If it's already resolved, the callback is called immediately in the current goroutine.
func (f *Future) onComplete(cb func(resp *Response, err error)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	resp, err := f.resp, f.err
	f.mu.Unlock()
	cb(resp, err)
}

func (f *Future) forwardTo(target *Future) {
	f.onComplete(func(resp *Response, err error) {
		target.Resolve(resp, err)
	})
}
