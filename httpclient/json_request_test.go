/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-exchkit/ratelimit"
	"github.com/acronis/go-exchkit/throttle"
)

type order struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
	OrderID  int64  `json:"orderId,omitempty"`
}

func newExchangeServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/order":
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, ContentTypeAppJSON, r.Header.Get("Content-Type"))
			assert.JSONEq(t, `{"symbol":"BTCUSDT","quantity":"0.1"}`, string(body))
			rw.Header().Set("Content-Type", ContentTypeAppJSON)
			_, _ = rw.Write([]byte(`{"symbol":"BTCUSDT","quantity":"0.1","orderId":42}`))
		case "/banned":
			rw.Header().Set("Retry-After", "7")
			rw.WriteHeader(http.StatusTooManyRequests)
		case "/empty":
		default:
			rw.WriteHeader(http.StatusBadRequest)
			_, _ = rw.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDoJSON(t *testing.T) {
	server := newExchangeServer(t)
	client := &http.Client{}

	t.Run("ok", func(t *testing.T) {
		req, err := NewJSONRequest(context.Background(), http.MethodPost, server.URL+"/order", order{Symbol: "BTCUSDT", Quantity: "0.1"})
		require.NoError(t, err)
		var result order
		require.NoError(t, DoJSON(client, req, &result))
		require.Equal(t, order{Symbol: "BTCUSDT", Quantity: "0.1", OrderID: 42}, result)
	})

	t.Run("error status", func(t *testing.T) {
		req, err := NewJSONRequest(context.Background(), http.MethodGet, server.URL+"/ticker", nil)
		require.NoError(t, err)
		require.Empty(t, req.Header.Get("Content-Type"))
		err = DoJSON(client, req, nil)
		var clientErr *ClientError
		require.True(t, errors.As(err, &clientErr))
		require.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
		require.Equal(t, `{"code":-1121,"msg":"Invalid symbol."}`, clientErr.Body)
		require.Contains(t, err.Error(), "status 400: unexpected status code")
	})

	t.Run("rate limited by exchange", func(t *testing.T) {
		req, err := NewJSONRequest(context.Background(), http.MethodGet, server.URL+"/banned", nil)
		require.NoError(t, err)
		err = DoJSON(client, req, nil)
		require.ErrorIs(t, err, throttle.ErrRateLimitReached)
		var rlErr *throttle.RateLimitError
		require.True(t, errors.As(err, &rlErr))
		require.Equal(t, 7*time.Second, rlErr.RetryAfter)
	})

	t.Run("empty response", func(t *testing.T) {
		req, err := NewJSONRequest(context.Background(), http.MethodGet, server.URL+"/empty", nil)
		require.NoError(t, err)
		require.NoError(t, DoJSON(client, req, nil))
		require.ErrorContains(t, DoJSON(client, req, &order{}), "empty response")
	})

	t.Run("marshal error", func(t *testing.T) {
		_, err := NewJSONRequest(context.Background(), http.MethodPost, server.URL, make(chan int))
		require.ErrorContains(t, err, "marshal request body")
	})
}

func TestDoJSON_RejectedByThrottling(t *testing.T) {
	server := newExchangeServer(t)
	policy := throttle.Policy{Mode: throttle.ModeReject}
	coordinator, err := throttle.NewCoordinator(
		[]ratelimit.Rule{{ID: "orders", Window: time.Minute, MaxCount: 1}}, throttle.CoordinatorOpts{Policy: &policy})
	require.NoError(t, err)
	defer coordinator.Dispose()
	client := NewWithOpts(&Config{}, Opts{Coordinator: coordinator})

	ctx := NewContextWithRateLimits(context.Background(), 1, "orders")
	newReq := func() *http.Request {
		req, reqErr := NewJSONRequest(ctx, http.MethodPost, server.URL+"/order", order{Symbol: "BTCUSDT", Quantity: "0.1"})
		require.NoError(t, reqErr)
		return req
	}
	require.NoError(t, DoJSON(client, newReq(), &order{}))

	err = DoJSON(client, newReq(), &order{})
	var rlErr *throttle.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	require.Equal(t, "orders", rlErr.RuleID)
	require.Greater(t, rlErr.RetryAfter, 50*time.Second)
}
