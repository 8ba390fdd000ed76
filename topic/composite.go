/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

// composite holds children of And/Or with a flag per child that is set
// once Evaluate of the child returned the status the composite doesn't need to re-check.
type composite struct {
	children []Predicate
	resolved []bool
	status   Status
}

func newComposite(children []Predicate) composite {
	return composite{
		children: append([]Predicate(nil), children...),
		resolved: make([]bool, len(children)),
	}
}

// reset resets the children and settles the composite against the ones that are
// terminal right after their own reset (Always and constant subtrees).
func (c *composite) reset(settle func(i int, st Status) bool, settled Status) {
	c.status = Undecided
	for i, child := range c.children {
		child.Reset()
		c.resolved[i] = false
	}
	all := true
	for i, child := range c.children {
		if !settle(i, child.Status()) {
			all = false
		}
		if c.status.IsTerminal() {
			return
		}
	}
	if all {
		c.status = settled
	}
}

// And matches a message when all children match.
// It resolves to CannotMatch as soon as one child can't match.
// A child that matched is never evaluated again until reset.
type And struct {
	composite
}

// NewAnd creates an AND of the children. An AND without children matches everything.
func NewAnd(children ...Predicate) *And {
	a := &And{newComposite(children)}
	a.Reset()
	return a
}

// Evaluate implements Predicate.
func (a *And) Evaluate(name string, v Value) Status {
	if a.status.IsTerminal() {
		return a.status
	}
	allMatched := true
	for i, child := range a.children {
		if a.resolved[i] {
			continue
		}
		switch child.Evaluate(name, v) {
		case Matched:
			a.resolved[i] = true
		case CannotMatch:
			a.status = CannotMatch
			return a.status
		default:
			allMatched = false
		}
	}
	if allMatched {
		a.status = Matched
	}
	return a.status
}

// Status implements Predicate.
func (a *And) Status() Status { return a.status }

// Reset implements Predicate.
// An AND whose children all match without any field (including an AND without children) is Matched.
func (a *And) Reset() {
	a.reset(func(i int, st Status) bool {
		switch st {
		case Matched:
			a.resolved[i] = true
			return true
		case CannotMatch:
			a.status = CannotMatch
		}
		return false
	}, Matched)
}

func (a *And) predicate() {}

// Or matches a message when at least one child matches.
// It resolves to CannotMatch only when every child can't match.
// A child that can't match is never evaluated again until reset.
type Or struct {
	composite
}

// NewOr creates an OR of the children. An OR without children matches nothing.
func NewOr(children ...Predicate) *Or {
	o := &Or{newComposite(children)}
	o.Reset()
	return o
}

// Evaluate implements Predicate.
func (o *Or) Evaluate(name string, v Value) Status {
	if o.status.IsTerminal() {
		return o.status
	}
	allCannotMatch := true
	for i, child := range o.children {
		if o.resolved[i] {
			continue
		}
		switch child.Evaluate(name, v) {
		case Matched:
			o.status = Matched
			return o.status
		case CannotMatch:
			o.resolved[i] = true
		default:
			allCannotMatch = false
		}
	}
	if allCannotMatch {
		o.status = CannotMatch
	}
	return o.status
}

// Status implements Predicate.
func (o *Or) Status() Status { return o.status }

// Reset implements Predicate.
// An OR whose children all can't match without any field (including an OR without children) is CannotMatch.
func (o *Or) Reset() {
	o.reset(func(i int, st Status) bool {
		switch st {
		case CannotMatch:
			o.resolved[i] = true
			return true
		case Matched:
			o.status = Matched
		}
		return false
	}, CannotMatch)
}

func (o *Or) predicate() {}
