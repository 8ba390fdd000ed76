/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-exchkit/log"
	"github.com/acronis/go-exchkit/ratelimit"
)

// CoordinatorOpts represents options for Coordinator.
type CoordinatorOpts struct {
	// Policy is an initial throttling policy. DefaultPolicy is used if nil.
	Policy *Policy

	// Logger is used for logging throttled calls. Disabled logger is used if nil.
	Logger log.FieldLogger

	// MetricsCollector collects metrics of throttled calls. Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// Now returns the current time for rate limit accounting. time.Now is used if nil.
	Now func() time.Time
}

type ruleState struct {
	tracker *ratelimit.Tracker
	queued  *Future
}

// Coordinator applies throttling policy to outbound calls.
// It's safe for concurrent use.
type Coordinator struct {
	rules            map[string]ratelimit.Rule
	logger           log.FieldLogger
	metricsCollector MetricsCollector
	now              func() time.Time

	disposed atomic.Bool

	mu     sync.Mutex
	policy Policy
	states map[string]*ruleState
	sched  *scheduler
}

// NewCoordinator creates a new Coordinator for the given rules.
// Trackers for rules are created lazily on the first call referencing them.
func NewCoordinator(rules []ratelimit.Rule, opts CoordinatorOpts) (*Coordinator, error) {
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	rulesByID := make(map[string]ratelimit.Rule, len(rules))
	for _, rule := range rules {
		rule = rule.WithDefaults()
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("validate rate limit rule %q: %w", rule.ID, err)
		}
		if _, exists := rulesByID[rule.ID]; exists {
			return nil, fmt.Errorf("duplicate rate limit rule %q", rule.ID)
		}
		rulesByID[rule.ID] = rule
	}

	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Coordinator{
		rules:            rulesByID,
		logger:           log.NewComponentLogger(opts.Logger, "throttle"),
		metricsCollector: opts.MetricsCollector,
		now:              opts.Now,
		policy:           policy,
		states:           make(map[string]*ruleState),
	}, nil
}

// Policy returns the current throttling policy.
func (c *Coordinator) Policy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

// SetPolicy changes throttling policy. It affects calls submitted (or retried) after the change.
func (c *Coordinator) SetPolicy(policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.policy = policy
	c.mu.Unlock()
	return nil
}

// Usage returns a snapshot of the rule's live window.
// False is returned if the rule is unknown or no call has referenced it yet.
func (c *Coordinator) Usage(ruleID string) (ratelimit.Usage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[ruleID]
	if !ok {
		return ratelimit.Usage{}, false
	}
	return st.tracker.Usage(c.now()), true
}

// Submit submits the call for execution according to the throttling policy.
// Configuration errors (unknown rule, weight that can never fit the rule) and ErrDisposed are returned immediately.
// Calls rejected by throttling are not errors, the returned Future is resolved with a 429 Response for them.
// A call is recorded in the windows of its rules only when all of them admit it.
func (c *Coordinator) Submit(ctx context.Context, call *Call, exec ExecuteFunc) (*Future, error) {
	if c.disposed.Load() {
		return nil, ErrDisposed
	}
	if err := c.checkCall(call); err != nil {
		return nil, err
	}
	return c.submit(ctx, call, exec), nil
}

// Dispose releases all trackers and stops the retry worker. Submit fails after that.
// Already scheduled retries are not canceled, their futures are resolved with ErrDisposed.
func (c *Coordinator) Dispose() {
	if !c.disposed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	c.states = make(map[string]*ruleState)
	sched := c.sched
	c.sched = nil
	c.mu.Unlock()

	if sched != nil {
		sched.shutdown()
	}
	c.logger.Debug("throttle coordinator disposed")
}

func (c *Coordinator) checkCall(call *Call) error {
	if call == nil {
		return fmt.Errorf("call cannot be nil")
	}
	for _, ruleID := range call.RuleIDs {
		rule, ok := c.rules[ruleID]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownRule, ruleID)
		}
		if err := rule.CheckWeight(call.Weight); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) submit(ctx context.Context, call *Call, exec ExecuteFunc) *Future {
	c.mu.Lock()
	if c.disposed.Load() {
		c.mu.Unlock()
		return Completed(nil, ErrDisposed)
	}
	policy := c.policy
	if policy.Mode == ModeIgnore || len(call.RuleIDs) == 0 {
		c.mu.Unlock()
		return c.execute(ctx, call, exec)
	}

	// Nothing is recorded until every rule admits the call.
	now := c.now()
	states := make([]*ruleState, 0, len(call.RuleIDs))
	for _, ruleID := range call.RuleIDs {
		st, err := c.getRuleState(ruleID)
		if err != nil {
			c.mu.Unlock()
			return Completed(nil, err)
		}

		if queued := st.queued; queued != nil {
			c.mu.Unlock()
			return c.chain(ctx, call, exec, ruleID, queued)
		}

		delay, err := st.tracker.ComputeDelay(now, call.Weight)
		if err != nil {
			c.mu.Unlock()
			return Completed(nil, err)
		}
		if delay == 0 {
			states = append(states, st)
			continue
		}

		if policy.rejects(delay) {
			c.mu.Unlock()
			return c.reject(call, ruleID, delay)
		}

		future := NewFuture()
		st.queued = future
		c.getScheduler().schedule(delay, func() {
			c.retry(ctx, call, exec, ruleID, future)
		})
		c.mu.Unlock()

		c.logger.Debug("call is delayed due to rate limit", c.logFields(call, ruleID, delay)...)
		c.metricsCollector.ObserveThrottled(ruleID, OutcomeDelayed, delay)
		return future
	}
	for _, st := range states {
		_, _ = st.tracker.RequestCall(now, call.Weight) // admitted above, weight is validated by checkCall
	}
	c.mu.Unlock()

	return c.execute(ctx, call, exec)
}

// getRuleState must be called under the lock.
func (c *Coordinator) getRuleState(ruleID string) (*ruleState, error) {
	if st, ok := c.states[ruleID]; ok {
		return st, nil
	}
	rule, ok := c.rules[ruleID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownRule, ruleID)
	}
	tracker, err := ratelimit.NewTracker(rule)
	if err != nil {
		return nil, err
	}
	st := &ruleState{tracker: tracker}
	c.states[ruleID] = st
	return st, nil
}

// getScheduler must be called under the lock.
func (c *Coordinator) getScheduler() *scheduler {
	if c.sched == nil {
		c.sched = newScheduler()
	}
	return c.sched
}

func (c *Coordinator) retry(ctx context.Context, call *Call, exec ExecuteFunc, ruleID string, future *Future) {
	c.mu.Lock()
	if st, ok := c.states[ruleID]; ok && st.queued == future {
		st.queued = nil
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		future.Resolve(nil, err)
		return
	}
	c.submit(ctx, call, exec).forwardTo(future)
}

func (c *Coordinator) chain(ctx context.Context, call *Call, exec ExecuteFunc, ruleID string, queued *Future) *Future {
	c.logger.Debug("call is chained after queued call due to rate limit", c.logFields(call, ruleID, 0)...)
	c.metricsCollector.ObserveThrottled(ruleID, OutcomeChained, 0)

	future := NewFuture()
	queued.onComplete(func(_ *Response, _ error) {
		if err := ctx.Err(); err != nil {
			future.Resolve(nil, err)
			return
		}
		c.submit(ctx, call, exec).forwardTo(future)
	})
	return future
}

func (c *Coordinator) reject(call *Call, ruleID string, delay time.Duration) *Future {
	c.logger.Warn("call is rejected due to rate limit", c.logFields(call, ruleID, delay)...)
	c.metricsCollector.ObserveThrottled(ruleID, OutcomeRejected, delay)
	return Completed(newRejectionResponse(ruleID, delay), nil)
}

func (c *Coordinator) execute(ctx context.Context, call *Call, exec ExecuteFunc) *Future {
	if f := exec(ctx, call); f != nil {
		return f
	}
	return Completed(nil, fmt.Errorf("execute func returned nil future for call %q", call.Name))
}

func (c *Coordinator) logFields(call *Call, ruleID string, delay time.Duration) []log.Field {
	return []log.Field{
		log.String("call_id", call.ID),
		log.String("call", call.Name),
		log.String("rule", ruleID),
		log.Int("weight", call.Weight),
		log.Int64("delay_ms", delay.Milliseconds()),
	}
}
