/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"sort"
	"time"
)

type bucket struct {
	start  time.Time
	calls  int
	weight int
}

// Usage is a snapshot of calls accounted by Tracker within the live window.
type Usage struct {
	Calls   int
	Weight  int
	Buckets int
	Oldest  time.Time // Zero if there are no live buckets.
}

// Tracker accounts admitted calls for a single Rule using a sliding window of buckets.
type Tracker struct {
	rule Rule

	// buckets are ordered by start, keys are unique.
	buckets []bucket
	calls   int
	weight  int
}

// NewTracker creates a new Tracker for the given rule.
func NewTracker(rule Rule) (*Tracker, error) {
	rule = rule.WithDefaults()
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit rule %q: %w", rule.ID, err)
	}
	return &Tracker{rule: rule}, nil
}

// Rule returns the rule (with defaults applied) that is tracked.
func (t *Tracker) Rule() Rule {
	return t.rule
}

// RequestCall tries to admit a call of the given weight at the moment now.
// If the call can proceed, it's recorded and zero delay is returned.
// Otherwise, nothing is recorded and the minimal delay after which the call may be retried is returned.
// Error is returned only if the weight cannot be admitted by the rule at all.
func (t *Tracker) RequestCall(now time.Time, weight int) (time.Duration, error) {
	delay, err := t.ComputeDelay(now, weight)
	if err != nil || delay > 0 {
		return delay, err
	}
	t.record(now.Truncate(t.rule.Granularity), weight)
	return 0, nil
}

// ComputeDelay returns a delay that is required before a call of the given weight may be admitted.
// Zero means the call may proceed right now. Tracker state is not changed except purging of stale buckets.
func (t *Tracker) ComputeDelay(now time.Time, weight int) (time.Duration, error) {
	if err := t.rule.CheckWeight(weight); err != nil {
		return 0, err
	}
	t.Purge(now)
	if !t.wouldExceed(weight) {
		return 0, nil
	}
	return t.delayUntilOldestExpires(now), nil
}

// Purge removes buckets that are out of the window ending at now.
func (t *Tracker) Purge(now time.Time) {
	threshold := now.Add(-t.rule.Window)
	n := 0
	for n < len(t.buckets) && t.buckets[n].start.Before(threshold) {
		t.calls -= t.buckets[n].calls
		t.weight -= t.buckets[n].weight
		n++
	}
	if n == 0 {
		return
	}
	t.buckets = append(t.buckets[:0], t.buckets[n:]...)
}

// Usage returns aggregated counters over the live window ending at now.
func (t *Tracker) Usage(now time.Time) Usage {
	t.Purge(now)
	u := Usage{Calls: t.calls, Weight: t.weight, Buckets: len(t.buckets)}
	if len(t.buckets) != 0 {
		u.Oldest = t.buckets[0].start
	}
	return u
}

func (t *Tracker) wouldExceed(weight int) bool {
	if t.rule.HasCountLimit() && t.calls+1 > t.rule.MaxCount {
		return true
	}
	if t.rule.HasWeightLimit() && t.weight+weight > t.rule.MaxWeight {
		return true
	}
	return false
}

// delayUntilOldestExpires returns time left until the oldest bucket leaves the window.
// Bucket covers a range of time (not an instant), so its start is shifted by granularity.
func (t *Tracker) delayUntilOldestExpires(now time.Time) time.Duration {
	span := t.rule.Window
	if t.rule.Granularity > span {
		span = t.rule.Granularity
	}
	if len(t.buckets) == 0 {
		return span
	}
	oldestEnd := t.buckets[0].start.Add(t.rule.Granularity)
	return span - now.Sub(oldestEnd)
}

func (t *Tracker) record(key time.Time, weight int) {
	t.calls++
	t.weight += weight

	last := len(t.buckets) - 1
	switch {
	case last >= 0 && t.buckets[last].start.Equal(key):
		t.buckets[last].calls++
		t.buckets[last].weight += weight
		return
	case last < 0 || t.buckets[last].start.Before(key):
		t.buckets = append(t.buckets, bucket{start: key, calls: 1, weight: weight})
		return
	}

	// Clock went backwards, keep buckets ordered.
	i := sort.Search(len(t.buckets), func(i int) bool { return !t.buckets[i].start.Before(key) })
	if i < len(t.buckets) && t.buckets[i].start.Equal(key) {
		t.buckets[i].calls++
		t.buckets[i].weight += weight
		return
	}
	t.buckets = append(t.buckets, bucket{})
	copy(t.buckets[i+1:], t.buckets[i:])
	t.buckets[i] = bucket{start: key, calls: 1, weight: weight}
}
