/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// StatusTooManyRequests is a status code of responses produced for rejected calls.
const StatusTooManyRequests = 429

var (
	// ErrRateLimitReached may be used with errors.Is to check RateLimitError.
	ErrRateLimitReached = errors.New("rate limit reached")

	// ErrDisposed is returned when a call is submitted to a disposed Coordinator.
	ErrDisposed = errors.New("throttle coordinator is disposed")

	// ErrUnknownRule is returned when a call references a rule that is not registered in Coordinator.
	ErrUnknownRule = errors.New("unknown rate limit rule")
)

// Call describes a single outbound call subject to rate limiting.
type Call struct {
	ID      string
	Name    string
	RuleIDs []string
	Weight  int
}

// NewCall creates a new Call with a unique id.
func NewCall(name string, weight int, ruleIDs ...string) *Call {
	return &Call{ID: xid.New().String(), Name: name, RuleIDs: ruleIDs, Weight: weight}
}

// Response is an outcome of a call.
// Payload is whatever ExecuteFunc produces (e.g. *http.Response).
// For calls rejected by throttling, StatusCode is StatusTooManyRequests and Err is *RateLimitError.
type Response struct {
	StatusCode int
	Payload    interface{}
	Err        error
}

// RateLimitError describes a call rejected due to a rate limit.
type RateLimitError struct {
	RuleID     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s for rule %q, retry after %d ms", ErrRateLimitReached, e.RuleID, e.RetryAfterMillis())
}

// RetryAfterMillis returns the minimal wait time in milliseconds (rounded up).
func (e *RateLimitError) RetryAfterMillis() int64 {
	return int64((e.RetryAfter + time.Millisecond - 1) / time.Millisecond)
}

// Is allows using errors.Is(err, ErrRateLimitReached).
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitReached
}

// IsRateLimited checks whether the response was produced for a call rejected by throttling.
func IsRateLimited(resp *Response) (*RateLimitError, bool) {
	if resp == nil || resp.StatusCode != StatusTooManyRequests {
		return nil, false
	}
	var rlErr *RateLimitError
	if errors.As(resp.Err, &rlErr) {
		return rlErr, true
	}
	return nil, false
}

func newRejectionResponse(ruleID string, retryAfter time.Duration) *Response {
	return &Response{
		StatusCode: StatusTooManyRequests,
		Err:        &RateLimitError{RuleID: ruleID, RetryAfter: retryAfter},
	}
}

// ExecuteFunc performs the call. It must not block, the result is delivered via the returned Future.
type ExecuteFunc func(ctx context.Context, call *Call) *Future

// Async adapts a blocking function to ExecuteFunc by running it in a separate goroutine.
func Async(fn func(ctx context.Context, call *Call) (*Response, error)) ExecuteFunc {
	return func(ctx context.Context, call *Call) *Future {
		f := NewFuture()
		go func() {
			f.Resolve(fn(ctx, call))
		}()
		return f
	}
}
