/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Unbounded may be used as MaxCount or MaxWeight value to disable the corresponding limit.
// Any non-positive value has the same meaning.
const Unbounded = -1

// DefaultGranularity is used when Rule.Granularity is not specified.
const DefaultGranularity = 10 * time.Millisecond

// Configuration errors. They indicate an integration defect and must never be treated as throttling.
var (
	ErrWeightExceedsLimit = errors.New("call weight exceeds max cumulative weight of the rule")
	ErrNegativeWeight     = errors.New("call weight cannot be negative")
)

// Rule describes a single rate limit quota.
type Rule struct {
	// ID identifies the rule within a client. Calls reference rules by this value.
	ID string `mapstructure:"id" yaml:"id" json:"id"`

	// Window is a duration of the rolling window.
	Window time.Duration `mapstructure:"window" yaml:"window" json:"window"`

	// MaxCount is the maximum number of calls within the window. Non-positive value means unbounded.
	MaxCount int `mapstructure:"maxCount" yaml:"maxCount" json:"maxCount"`

	// MaxWeight is the maximum cumulative weight of calls within the window. Non-positive value means unbounded.
	MaxWeight int `mapstructure:"maxWeight" yaml:"maxWeight" json:"maxWeight"`

	// Granularity is a size of a single accounting bucket. DefaultGranularity is used if zero.
	Granularity time.Duration `mapstructure:"granularity" yaml:"granularity" json:"granularity"`
}

// HasCountLimit reports whether the number of calls is limited by the rule.
func (r Rule) HasCountLimit() bool {
	return r.MaxCount > 0
}

// HasWeightLimit reports whether the cumulative weight of calls is limited by the rule.
func (r Rule) HasWeightLimit() bool {
	return r.MaxWeight > 0
}

// WithDefaults returns a copy of the rule with default values applied to unset fields.
func (r Rule) WithDefaults() Rule {
	if r.Granularity == 0 {
		r.Granularity = DefaultGranularity
	}
	return r
}

// Validate checks the rule for consistency.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}
	if r.Window <= 0 {
		return fmt.Errorf("window should be > 0, got %s", r.Window)
	}
	if r.Granularity < 0 {
		return fmt.Errorf("granularity should be >= 0, got %s", r.Granularity)
	}
	if !r.HasCountLimit() && !r.HasWeightLimit() {
		return fmt.Errorf("at least one of max count or max weight should be > 0")
	}
	return nil
}

// CheckWeight returns an error if a call of the given weight can never be admitted by the rule.
func (r Rule) CheckWeight(weight int) error {
	if weight < 0 {
		return fmt.Errorf("rule %q: %w (got %d)", r.ID, ErrNegativeWeight, weight)
	}
	if r.HasWeightLimit() && weight > r.MaxWeight {
		return fmt.Errorf("rule %q: %w (%d > %d)", r.ID, ErrWeightExceedsLimit, weight, r.MaxWeight)
	}
	return nil
}

// String returns a short human-readable representation of the rule.
func (r Rule) String() string {
	count, weight := "unbounded", "unbounded"
	if r.HasCountLimit() {
		count = fmt.Sprintf("%d", r.MaxCount)
	}
	if r.HasWeightLimit() {
		weight = fmt.Sprintf("%d", r.MaxWeight)
	}
	return fmt.Sprintf("%s(window=%s, maxCount=%s, maxWeight=%s)", r.ID, r.Window, count, weight)
}
