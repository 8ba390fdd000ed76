/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient provides an HTTP client for exchange REST APIs
// that throttles requests with throttle.Coordinator, logs and measures them.
package httpclient

import (
	"context"
	"net/http"

	"github.com/acronis/go-exchkit/log"
	"github.com/acronis/go-exchkit/throttle"
)

// DefaultRequestType is used in metrics for requests without request type in their context.
const DefaultRequestType = "unknown"

// Opts provides options for NewWithOpts function.
type Opts struct {
	// Delegate is the next RoundTripper in the chain. A clone of http.DefaultTransport is used if nil.
	Delegate http.RoundTripper

	// Coordinator throttles requests. Requests are not throttled if nil.
	Coordinator *throttle.Coordinator

	// Throttling contains options for ThrottlingRoundTripper.
	Throttling ThrottlingRoundTripperOpts

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// MetricsCollector is used when metrics are enabled in the configuration.
	MetricsCollector MetricsCollector
}

// New creates an HTTP client from the configuration.
func New(cfg *Config) *http.Client {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates an HTTP client from the configuration and options.
// Round trippers are chained as logging -> metrics -> throttling -> delegate,
// so logs and metrics include requests rejected by throttling.
func NewWithOpts(cfg *Config, opts Opts) *http.Client {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if opts.Coordinator != nil {
		delegate = NewThrottlingRoundTripperWithOpts(delegate, opts.Coordinator, opts.Throttling)
	}

	if cfg.Metrics.Enabled && opts.MetricsCollector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.MetricsCollector)
	}

	if cfg.Log.Enabled {
		logOpts := cfg.Log.TransportOpts()
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, logOpts)
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}
}
