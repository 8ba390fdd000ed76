/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru"
	"github.com/vasayxtx/go-glob"
)

// DefaultPatternCacheSize is a number of compiled patterns Factory keeps by default.
const DefaultPatternCacheSize = 256

// Factory builds a fresh predicate tree for every subscription.
// Compiled patterns are immutable, so they are cached and shared between trees.
// Factory is safe for concurrent use.
type Factory struct {
	patterns *lru.Cache
}

// NewFactory creates a Factory that caches up to cacheSize compiled patterns.
// DefaultPatternCacheSize is used if cacheSize <= 0.
func NewFactory(cacheSize int) (*Factory, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultPatternCacheSize
	}
	patterns, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create pattern cache: %w", err)
	}
	return &Factory{patterns: patterns}, nil
}

// New builds a new predicate tree described by spec.
func (f *Factory) New(spec Spec) (Predicate, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return f.build(spec)
}

func (f *Factory) build(spec Spec) (Predicate, error) {
	switch spec.Kind {
	case KindEq:
		return NewFieldEquals(spec.Field, spec.Value), nil
	case KindRegexp, KindGlob:
		match, err := f.compile(spec.Kind, spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s predicate for field %q: %w", spec.Kind, spec.Field, err)
		}
		return &FieldPattern{field: spec.Field, pattern: spec.Pattern, match: match}, nil
	case KindAllOf, KindAnyOf:
		children := make([]Predicate, 0, len(spec.Children))
		for i := range spec.Children {
			child, err := f.build(spec.Children[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if spec.Kind == KindAllOf {
			return NewAnd(children...), nil
		}
		return NewOr(children...), nil
	default:
		return Always{}, nil
	}
}

type patternKey struct {
	kind    Kind
	pattern string
}

func (f *Factory) compile(kind Kind, pattern string) (func(string) bool, error) {
	key := patternKey{kind, pattern}
	if cached, ok := f.patterns.Get(key); ok {
		return cached.(func(string) bool), nil
	}
	var match func(string) bool
	if kind == KindGlob {
		match = glob.Compile(pattern)
	} else {
		re, err := regexp.Compile(`^(?:` + pattern + `)$`)
		if err != nil {
			return nil, err
		}
		match = re.MatchString
	}
	f.patterns.Add(key, match)
	return match, nil
}

// CachedPatterns returns the number of compiled patterns in the cache.
func (f *Factory) CachedPatterns() int {
	return f.patterns.Len()
}
