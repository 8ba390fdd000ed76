/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

// Predicate decides whether a message belongs to a subscription by looking at its fields one by one.
// The set of implementations is closed: FieldEquals, FieldPattern, And, Or and Always.
type Predicate interface {
	// Evaluate feeds a field of the current message and returns the resulting status.
	// Once the status is terminal, it's returned as is without looking at the field.
	Evaluate(name string, v Value) Status

	// Status returns the current status without evaluating anything.
	Status() Status

	// Reset prepares the predicate (and its children) for the next message.
	Reset()

	predicate()
}

// FieldEquals matches messages where the field equals the value.
type FieldEquals struct {
	field  string
	value  string
	status Status
}

// NewFieldEquals creates a predicate matching messages where field == value.
func NewFieldEquals(field, value string) *FieldEquals {
	return &FieldEquals{field: field, value: value}
}

// Evaluate implements Predicate.
func (p *FieldEquals) Evaluate(name string, v Value) Status {
	if p.status.IsTerminal() || name != p.field {
		return p.status
	}
	p.status = resolve(!v.IsNull() && v.String() == p.value)
	return p.status
}

// Status implements Predicate.
func (p *FieldEquals) Status() Status { return p.status }

// Reset implements Predicate.
func (p *FieldEquals) Reset() { p.status = Undecided }

func (p *FieldEquals) predicate() {}

// FieldPattern matches messages where the field matches the pattern (regular expression or glob).
type FieldPattern struct {
	field   string
	pattern string
	match   func(string) bool
	status  Status
}

// Field returns the name of the field the predicate looks at.
func (p *FieldPattern) Field() string { return p.field }

// Pattern returns the source pattern.
func (p *FieldPattern) Pattern() string { return p.pattern }

// Evaluate implements Predicate.
func (p *FieldPattern) Evaluate(name string, v Value) Status {
	if p.status.IsTerminal() || name != p.field {
		return p.status
	}
	p.status = resolve(!v.IsNull() && p.match(v.String()))
	return p.status
}

// Status implements Predicate.
func (p *FieldPattern) Status() Status { return p.status }

// Reset implements Predicate.
func (p *FieldPattern) Reset() { p.status = Undecided }

func (p *FieldPattern) predicate() {}

// Always matches every message. It's stateless and may be shared.
type Always struct{}

// Evaluate implements Predicate.
func (Always) Evaluate(string, Value) Status { return Matched }

// Status implements Predicate.
func (Always) Status() Status { return Matched }

// Reset implements Predicate.
func (Always) Reset() {}

func (Always) predicate() {}

func resolve(ok bool) Status {
	if ok {
		return Matched
	}
	return CannotMatch
}
