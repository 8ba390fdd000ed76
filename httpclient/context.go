/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"

	"github.com/acronis/go-exchkit/log"
)

type ctxKey int

const (
	ctxKeyRequestType ctxKey = iota
	ctxKeyRateLimits
	ctxKeyLogger
)

// RateLimits describes which rate limit rules a request counts against.
type RateLimits struct {
	Weight  int
	RuleIDs []string
}

// NewContextWithRateLimits creates a new context with rate limits applied to the request made with it.
func NewContextWithRateLimits(ctx context.Context, weight int, ruleIDs ...string) context.Context {
	return context.WithValue(ctx, ctxKeyRateLimits, RateLimits{Weight: weight, RuleIDs: ruleIDs})
}

// GetRateLimitsFromContext extracts rate limits from the context.
func GetRateLimitsFromContext(ctx context.Context) (RateLimits, bool) {
	limits, ok := ctx.Value(ctxKeyRateLimits).(RateLimits)
	return limits, ok
}

// NewContextWithRequestType creates a new context with request type (e.g. "placeOrder").
// It's used as a call name for throttling and in logs and metrics.
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestType, requestType)
}

// GetRequestTypeFromContext extracts request type from the context.
func GetRequestTypeFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyRequestType).(string)
	return s
}

// NewContextWithLogger creates a new context with logger.
func NewContextWithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLoggerFromContext extracts logger from the context.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	logger, _ := ctx.Value(ctxKeyLogger).(log.FieldLogger)
	return logger
}
