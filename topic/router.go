/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

import (
	"fmt"
	"sync"

	"github.com/acronis/go-exchkit/log"
)

// Handler receives raw messages routed to a subscription.
type Handler func(raw []byte)

// Subscription is a registered filter with its handler.
type Subscription struct {
	id      uint64
	spec    Spec
	pred    Predicate
	handler Handler
}

// ID returns the id of the subscription unique within the router.
func (s *Subscription) ID() uint64 { return s.id }

// Spec returns the filter the subscription was created with.
func (s *Subscription) Spec() Spec { return s.spec }

// RouterOpts represents options for the Router.
type RouterOpts struct {
	// Factory builds predicate trees. A factory with the default pattern cache size is created if nil.
	Factory *Factory
	Logger  log.FieldLogger
}

// Router dispatches messages of a multiplexed connection to the subscriptions whose filters match them.
// Every subscription owns its predicate tree, Route feeds all trees while walking a message only once
// and stops walking as soon as every tree is decided.
// Router is safe for concurrent use, routing itself is serialized.
type Router struct {
	factory *Factory
	logger  log.FieldLogger

	mu     sync.Mutex
	subs   []*Subscription
	nextID uint64
}

// NewRouter creates a new Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Factory == nil {
		f, err := NewFactory(DefaultPatternCacheSize)
		if err != nil {
			return nil, err
		}
		opts.Factory = f
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Router{factory: opts.Factory, logger: opts.Logger}, nil
}

// Subscribe registers a handler for messages matching the filter.
func (r *Router) Subscribe(spec Spec, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("subscribe %s: handler cannot be nil", spec)
	}
	pred, err := r.factory.New(spec)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", spec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	sub := &Subscription{id: r.nextID, spec: spec, pred: pred, handler: handler}
	r.subs = append(r.subs, sub)
	r.logger.Debug("subscription is added", log.Uint64("subscription_id", sub.id), log.String("filter", spec.String()))
	return sub, nil
}

// Unsubscribe removes the subscription. It returns false if the subscription is not registered.
func (r *Router) Unsubscribe(sub *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.subs {
		if r.subs[i] == sub {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			r.logger.Debug("subscription is removed", log.Uint64("subscription_id", sub.id))
			return true
		}
	}
	return false
}

// Len returns the number of subscriptions.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Route delivers the message to every subscription whose filter matches it and returns the number of deliveries.
// Filters still undecided after the whole message was walked don't match.
// Handlers are called sequentially in subscription order after routing is done.
func (r *Router) Route(msg Message) (int, error) {
	handlers, err := r.match(msg)
	if err != nil {
		return 0, err
	}
	raw := msg.Raw()
	for _, h := range handlers {
		h(raw)
	}
	return len(handlers), nil
}

func (r *Router) match(msg Message) ([]Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	undecided := 0
	for _, sub := range r.subs {
		sub.pred.Reset()
		if !sub.pred.Status().IsTerminal() {
			undecided++
		}
	}
	if undecided > 0 {
		if err := msg.VisitFields(func(name string, v Value) bool {
			undecided = 0
			for _, sub := range r.subs {
				if !sub.pred.Evaluate(name, v).IsTerminal() {
					undecided++
				}
			}
			return undecided > 0
		}); err != nil {
			return nil, fmt.Errorf("walk message fields: %w", err)
		}
	}

	var handlers []Handler
	for _, sub := range r.subs {
		if sub.pred.Status() == Matched {
			handlers = append(handlers, sub.handler)
		}
	}
	return handlers, nil
}
