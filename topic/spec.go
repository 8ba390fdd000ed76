/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

import (
	"fmt"
	"strings"
)

// Kind is a kind of a predicate described by Spec.
type Kind string

// Kinds of predicates.
const (
	KindEq         Kind = "eq"
	KindRegexp     Kind = "regexp"
	KindGlob       Kind = "glob"
	KindAllOf      Kind = "allOf"
	KindAnyOf      Kind = "anyOf"
	KindEverything Kind = "everything"
)

// Spec is a declarative description of a subscription filter.
// It can be built with Eq, Regexp, Glob, AllOf, AnyOf and Everything or loaded from configuration:
//
//	kind: allOf
//	children:
//	  - {kind: eq, field: e, value: trade}
//	  - {kind: glob, field: s, pattern: "BTC*"}
type Spec struct {
	Kind     Kind   `mapstructure:"kind" yaml:"kind" json:"kind"`
	Field    string `mapstructure:"field" yaml:"field,omitempty" json:"field,omitempty"`
	Value    string `mapstructure:"value" yaml:"value,omitempty" json:"value,omitempty"`
	Pattern  string `mapstructure:"pattern" yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Children []Spec `mapstructure:"children" yaml:"children,omitempty" json:"children,omitempty"`
}

// Eq describes a predicate matching messages where field == value.
func Eq(field, value string) Spec {
	return Spec{Kind: KindEq, Field: field, Value: value}
}

// Regexp describes a predicate matching messages where the whole field value matches the regular expression.
func Regexp(field, pattern string) Spec {
	return Spec{Kind: KindRegexp, Field: field, Pattern: pattern}
}

// Glob describes a predicate matching messages where the field value matches the glob pattern ("*" is the only wildcard).
func Glob(field, pattern string) Spec {
	return Spec{Kind: KindGlob, Field: field, Pattern: pattern}
}

// AllOf describes an AND of the children.
func AllOf(children ...Spec) Spec {
	return Spec{Kind: KindAllOf, Children: children}
}

// AnyOf describes an OR of the children.
func AnyOf(children ...Spec) Spec {
	return Spec{Kind: KindAnyOf, Children: children}
}

// Everything describes a catch-all predicate.
func Everything() Spec {
	return Spec{Kind: KindEverything}
}

// Validate checks the description recursively. Patterns are checked by Factory.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindEq, KindRegexp, KindGlob:
		if s.Field == "" {
			return fmt.Errorf("%s predicate: field cannot be empty", s.Kind)
		}
		if len(s.Children) != 0 {
			return fmt.Errorf("%s predicate cannot have children", s.Kind)
		}
	case KindAllOf, KindAnyOf:
		for i := range s.Children {
			if err := s.Children[i].Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", s.Kind, i, err)
			}
		}
	case KindEverything:
	default:
		return fmt.Errorf("unknown predicate kind %q", s.Kind)
	}
	return nil
}

// String returns a compact representation of the filter, e.g. `allOf(e=="trade", s~"BTC*")`.
func (s Spec) String() string {
	switch s.Kind {
	case KindEq:
		return fmt.Sprintf("%s==%q", s.Field, s.Value)
	case KindRegexp:
		return fmt.Sprintf("%s=~/%s/", s.Field, s.Pattern)
	case KindGlob:
		return fmt.Sprintf("%s~%q", s.Field, s.Pattern)
	case KindAllOf, KindAnyOf:
		parts := make([]string, 0, len(s.Children))
		for _, child := range s.Children {
			parts = append(parts, child.String())
		}
		return string(s.Kind) + "(" + strings.Join(parts, ", ") + ")"
	default:
		return string(s.Kind)
	}
}
