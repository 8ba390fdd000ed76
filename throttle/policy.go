/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"time"
)

// Mode determines what Coordinator does with a call that would exceed a rate limit.
type Mode string

// Throttling modes.
const (
	ModeIgnore        Mode = "ignore"
	ModeReject        Mode = "reject"
	ModeDelayAndRetry Mode = "delay_and_retry"
)

// UnboundedMaxDelay may be used as Policy.MaxDelay to never reject delayed calls.
const UnboundedMaxDelay time.Duration = -1

// Policy is a coordinator-wide throttling behavior.
type Policy struct {
	Mode Mode

	// MaxDelay is the maximum delay a call may be postponed for in ModeDelayAndRetry.
	// Calls that require a longer delay are rejected. Negative value means unbounded.
	MaxDelay time.Duration
}

// DefaultPolicy returns a policy that delays calls without any bound.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeDelayAndRetry, MaxDelay: UnboundedMaxDelay}
}

// Validate validates the policy.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeIgnore, ModeReject, ModeDelayAndRetry:
		return nil
	}
	return fmt.Errorf("unknown throttling mode %q", p.Mode)
}

func (p Policy) rejects(delay time.Duration) bool {
	if p.Mode == ModeReject {
		return true
	}
	return p.MaxDelay >= 0 && delay > p.MaxDelay
}
