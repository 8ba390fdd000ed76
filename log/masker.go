/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"regexp"
	"slices"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Mask replaces every match of RegExp with Mask.
type Mask struct {
	RegExp *regexp.Regexp
	Mask   string
}

// NewMask compiles a mask from the configuration. It panics if the regexp is invalid.
func NewMask(cfg MaskConfig) Mask {
	return Mask{regexp.MustCompile(cfg.RegExp), cfg.Mask}
}

// FieldMasker holds all masks applied when Field (lowercase) occurs in a string.
type FieldMasker struct {
	Field string
	Masks []Mask
}

func fieldMasks(cfg MaskingRuleConfig) []Mask {
	masks := make([]Mask, 0, len(cfg.Masks)+len(cfg.Formats))
	for _, maskCfg := range cfg.Masks {
		masks = append(masks, NewMask(maskCfg))
	}
	field := regexp.QuoteMeta(cfg.Field)
	for _, format := range cfg.Formats {
		switch format {
		case FieldMaskFormatHTTPHeader:
			masks = append(masks, NewMask(MaskConfig{`(?i)` + field + `: .+?\r\n`, cfg.Field + ": ***\r\n"}))
		case FieldMaskFormatJSON:
			masks = append(masks, NewMask(MaskConfig{`(?i)"` + field + `"\s*:\s*".*?[^\\]"`, `"` + cfg.Field + `": "***"`}))
		case FieldMaskFormatURLEncoded:
			masks = append(masks, NewMask(MaskConfig{`(?i)` + field + `\s*=\s*[^&\s]+`, cfg.Field + "=***"}))
		}
	}
	return masks
}

// Masker masks secrets in strings.
// Field names of all rules are looked up in a single pass,
// regexps run only for the fields that occur in the string.
type Masker struct {
	FieldMasks []FieldMasker
	matcher    *ahocorasick.Matcher
}

// NewMasker creates a Masker. Rules for the same field (case-insensitive) are merged,
// rules with an empty field are skipped.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	m := &Masker{FieldMasks: make([]FieldMasker, 0, len(rules))}
	indexes := make(map[string]int, len(rules))
	for _, rule := range rules {
		field := strings.ToLower(rule.Field)
		if field == "" {
			continue
		}
		idx, ok := indexes[field]
		if !ok {
			idx = len(m.FieldMasks)
			indexes[field] = idx
			m.FieldMasks = append(m.FieldMasks, FieldMasker{Field: field})
		}
		m.FieldMasks[idx].Masks = append(m.FieldMasks[idx].Masks, fieldMasks(rule)...)
	}
	fields := make([]string, 0, len(m.FieldMasks))
	for _, fm := range m.FieldMasks {
		fields = append(fields, fm.Field)
	}
	m.matcher = ahocorasick.NewStringMatcher(fields)
	return m
}

// Mask returns s with all secrets masked.
func (m *Masker) Mask(s string) string {
	if len(m.FieldMasks) == 0 {
		return s
	}
	hits := m.matcher.MatchThreadSafe([]byte(strings.ToLower(s)))
	if len(hits) == 0 {
		return s
	}
	slices.Sort(hits)
	for _, idx := range hits {
		for _, mask := range m.FieldMasks[idx].Masks {
			s = mask.RegExp.ReplaceAllString(s, mask.Mask)
		}
	}
	return s
}

// DefaultMasks covers credentials of signed exchange requests and user data streams.
var DefaultMasks = []MaskingRuleConfig{
	{
		Field:   "Authorization",
		Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader},
	},
	{
		Field:   "X-MBX-APIKEY",
		Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader},
	},
	{
		Field:   "apiKey",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "secretKey",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "signature",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "listenKey",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "password",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
}
