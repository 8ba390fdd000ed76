/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

// Status is a result of evaluating a predicate against the fields seen so far.
type Status int8

// Statuses of predicates.
const (
	// Undecided means the predicate may still resolve either way.
	Undecided Status = iota
	// Matched is a terminal positive resolution.
	Matched
	// CannotMatch is a terminal negative resolution for the current message.
	CannotMatch
)

// IsTerminal reports whether the status persists until reset.
func (s Status) IsTerminal() bool {
	return s != Undecided
}

func (s Status) String() string {
	switch s {
	case Undecided:
		return "undecided"
	case Matched:
		return "matched"
	case CannotMatch:
		return "cannot-match"
	default:
		return "unknown"
	}
}
