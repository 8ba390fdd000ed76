/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/acronis/go-exchkit/throttle"
)

// DefaultRequestWeight is a weight of requests that don't specify it.
const DefaultRequestWeight = 1

// ThrottlingRoundTripperOpts represents options for ThrottlingRoundTripper.
type ThrottlingRoundTripperOpts struct {
	// DefaultRuleIDs are used for requests without rate limits in their context.
	// Such requests are not throttled if DefaultRuleIDs is empty.
	DefaultRuleIDs []string

	// DefaultWeight is used for requests without rate limits in their context. DefaultRequestWeight is used if 0.
	DefaultWeight int
}

// ThrottlingRoundTripper submits outgoing requests to throttle.Coordinator.
// Requests rejected by the coordinator get a synthesized 429 response with Retry-After header
// and JSON body like {"error":"rate limit reached","rule":"orders","retryAfterMs":120}.
// Rule ids and weight of a request are taken from its context (see NewContextWithRateLimits).
type ThrottlingRoundTripper struct {
	Delegate    http.RoundTripper
	Coordinator *throttle.Coordinator
	Opts        ThrottlingRoundTripperOpts
}

// NewThrottlingRoundTripper creates a new ThrottlingRoundTripper.
func NewThrottlingRoundTripper(delegate http.RoundTripper, coordinator *throttle.Coordinator) *ThrottlingRoundTripper {
	return NewThrottlingRoundTripperWithOpts(delegate, coordinator, ThrottlingRoundTripperOpts{})
}

// NewThrottlingRoundTripperWithOpts creates a new ThrottlingRoundTripper with options.
func NewThrottlingRoundTripperWithOpts(
	delegate http.RoundTripper, coordinator *throttle.Coordinator, opts ThrottlingRoundTripperOpts,
) *ThrottlingRoundTripper {
	if opts.DefaultWeight == 0 {
		opts.DefaultWeight = DefaultRequestWeight
	}
	return &ThrottlingRoundTripper{Delegate: delegate, Coordinator: coordinator, Opts: opts}
}

// RoundTrip executes a single HTTP transaction as soon as rate limits allow.
func (rt *ThrottlingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	limits, ok := GetRateLimitsFromContext(ctx)
	if !ok {
		limits = RateLimits{Weight: rt.Opts.DefaultWeight, RuleIDs: rt.Opts.DefaultRuleIDs}
	}
	if len(limits.RuleIDs) == 0 {
		return rt.Delegate.RoundTrip(r)
	}

	callName := GetRequestTypeFromContext(ctx)
	if callName == "" {
		callName = r.Method + " " + r.URL.Path
	}
	call := throttle.NewCall(callName, limits.Weight, limits.RuleIDs...)

	future, err := rt.Coordinator.Submit(ctx, call, throttle.Async(
		func(_ context.Context, _ *throttle.Call) (*throttle.Response, error) {
			resp, rtErr := rt.Delegate.RoundTrip(r)
			if rtErr != nil {
				return nil, rtErr
			}
			return &throttle.Response{StatusCode: resp.StatusCode, Payload: resp}, nil
		}))
	if err != nil {
		closeRequestBody(r)
		return nil, fmt.Errorf("throttle request: %w", err)
	}

	result, err := future.Wait(ctx)
	if err != nil {
		go drainAbandoned(future)
		return nil, err
	}
	if rlErr, rejected := throttle.IsRateLimited(result); rejected {
		closeRequestBody(r)
		return newRateLimitedResponse(r, rlErr), nil
	}
	return result.Payload.(*http.Response), nil
}

type rateLimitedBody struct {
	Error        string `json:"error"`
	Rule         string `json:"rule"`
	RetryAfterMs int64  `json:"retryAfterMs"`
}

func newRateLimitedResponse(r *http.Request, rlErr *throttle.RateLimitError) *http.Response {
	body, _ := json.Marshal(rateLimitedBody{
		Error:        throttle.ErrRateLimitReached.Error(),
		Rule:         rlErr.RuleID,
		RetryAfterMs: rlErr.RetryAfterMillis(),
	})
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Retry-After", strconv.FormatInt(int64((rlErr.RetryAfter+time.Second-1)/time.Second), 10))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests)),
		StatusCode:    http.StatusTooManyRequests,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}

// drainAbandoned closes the body of a response nobody waits for anymore.
func drainAbandoned(future *throttle.Future) {
	result, err := future.Wait(context.Background())
	if err != nil || result == nil {
		return
	}
	if resp, ok := result.Payload.(*http.Response); ok && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func closeRequestBody(r *http.Request) {
	if r.Body != nil {
		_ = r.Body.Close() // Per RoundTripper contract.
	}
}
