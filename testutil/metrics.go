/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCounterValue asserts that the counter (e.g. a result of CounterVec.WithLabelValues) has the given value.
func AssertCounterValue(t assert.TestingT, counter prometheus.Counter, want float64) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.Equal(t, want, promtestutil.ToFloat64(counter))
}

// RequireCounterValue calls AssertCounterValue and fails the test immediately in case of mismatch.
func RequireCounterValue(t require.TestingT, counter prometheus.Counter, want float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if !AssertCounterValue(t, counter, want) {
		t.FailNow()
	}
}

// AssertSamplesCountInHistogram asserts that the histogram observer
// (e.g. a result of HistogramVec.WithLabelValues) contains the given number of samples.
func AssertSamplesCountInHistogram(t assert.TestingT, observer prometheus.Observer, want int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	hist, ok := observer.(prometheus.Histogram)
	if !assert.True(t, ok, "observer is not a histogram") {
		return false
	}
	reg := prometheus.NewPedanticRegistry()
	if !assert.NoError(t, reg.Register(hist)) {
		return false
	}
	families, err := reg.Gather()
	if !assert.NoError(t, err) || !assert.Len(t, families, 1) {
		return false
	}
	return assert.Equal(t, want, int(families[0].GetMetric()[0].GetHistogram().GetSampleCount()))
}

// RequireSamplesCountInHistogram calls AssertSamplesCountInHistogram and fails the test immediately in case of mismatch.
func RequireSamplesCountInHistogram(t require.TestingT, observer prometheus.Observer, want int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if !AssertSamplesCountInHistogram(t, observer, want) {
		t.FailNow()
	}
}

// RequireSeriesCount requires the collector (e.g. a CounterVec) to expose exactly the given number of series.
func RequireSeriesCount(t require.TestingT, collector prometheus.Collector, want int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, want, promtestutil.CollectAndCount(collector))
}
