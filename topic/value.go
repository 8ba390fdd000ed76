/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

// Value is a field value of a message. It's either a string or null.
type Value struct {
	str   string
	valid bool
}

// StringValue returns a non-null Value.
func StringValue(s string) Value {
	return Value{str: s, valid: true}
}

// NullValue returns a null Value.
func NullValue() Value {
	return Value{}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return !v.valid
}

// String returns the value text, empty string for null.
func (v Value) String() string {
	return v.str
}
