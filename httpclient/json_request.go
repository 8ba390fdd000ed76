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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/acronis/go-exchkit/throttle"
)

// ContentTypeAppJSON is a Content-Type of JSON requests and responses.
const ContentTypeAppJSON = "application/json"

const maxErrorBodySize = 255

// ClientError is returned by DoJSON for failed requests and non-2xx responses.
// For 429 responses Err is *throttle.RateLimitError, so errors.Is(err, throttle.ErrRateLimitReached) works
// both for requests rejected by ThrottlingRoundTripper and by the exchange itself.
type ClientError struct {
	Message    string
	Method     string
	URL        *url.URL
	StatusCode int
	Body       string
	Err        error
}

func (e *ClientError) wrap(message string, err error) *ClientError {
	e.Message = message
	e.Err = err
	return e
}

func (e *ClientError) Error() string {
	str := fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	if e.Err != nil {
		str += ": " + e.Err.Error()
	}
	return str
}

// Unwrap returns the next error in the error chain.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewJSONRequest marshals data to JSON and creates a new request with it as a body.
// Data may be nil for requests without body.
func NewJSONRequest(ctx context.Context, method, url string, data interface{}) (*http.Request, error) {
	var body io.Reader
	if data != nil {
		buf, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", ContentTypeAppJSON)
	}
	req.Header.Set("Accept", ContentTypeAppJSON)
	return req, nil
}

// DoJSON does the request and unmarshals JSON response into result (if it's not nil).
func DoJSON(client *http.Client, req *http.Request, result interface{}) error {
	e := &ClientError{Method: req.Method, URL: req.URL}
	resp, err := client.Do(req)
	if err != nil {
		return e.wrap("do request", err)
	}
	defer func() { _ = resp.Body.Close() }()
	e.StatusCode = resp.StatusCode

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return e.wrap("read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.Body = string(buf[:min(len(buf), maxErrorBodySize)])
		if resp.StatusCode == http.StatusTooManyRequests {
			return e.wrap("rate limited", parseRateLimitError(resp, buf))
		}
		e.Message = "unexpected status code"
		return e
	}

	if result == nil {
		return nil
	}
	if len(buf) == 0 {
		e.Message = "empty response"
		return e
	}
	if err = json.Unmarshal(buf, result); err != nil {
		return e.wrap("unmarshal response", err)
	}
	return nil
}

func parseRateLimitError(resp *http.Response, body []byte) *throttle.RateLimitError {
	rlErr := &throttle.RateLimitError{}
	if strings.Contains(resp.Header.Get("Content-Type"), ContentTypeAppJSON) {
		var parsed rateLimitedBody
		if json.Unmarshal(body, &parsed) == nil && parsed.Rule != "" {
			rlErr.RuleID = parsed.Rule
			rlErr.RetryAfter = time.Duration(parsed.RetryAfterMs) * time.Millisecond
			return rlErr
		}
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		rlErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return rlErr
}
