/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFactory(t *testing.T) {
	f, err := NewFactory(0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		spec  Spec
		field string
		value Value
		want  Status
	}{
		{"eq", Eq("e", "trade"), "e", StringValue("trade"), Matched},
		{"regexp full match", Regexp("s", "BTC.*"), "s", StringValue("BTCUSDT"), Matched},
		{"regexp partial match", Regexp("s", "BTC"), "s", StringValue("BTCUSDT"), CannotMatch},
		{"regexp alternation", Regexp("s", "BTC|ETH"), "s", StringValue("ETH"), Matched},
		{"regexp null", Regexp("s", ".*"), "s", NullValue(), CannotMatch},
		{"glob suffix", Glob("s", "*USDT"), "s", StringValue("BTCUSDT"), Matched},
		{"glob prefix", Glob("s", "BTC*"), "s", StringValue("ETHBTC"), CannotMatch},
		{"glob other field", Glob("s", "*"), "e", StringValue("trade"), Undecided},
		{"everything", Everything(), "e", StringValue("trade"), Matched},
		{"empty allOf", AllOf(), "e", StringValue("trade"), Matched},
		{"empty anyOf", AnyOf(), "e", StringValue("trade"), CannotMatch},
		{"anyOf", AnyOf(Eq("e", "depth"), Glob("e", "tr*")), "e", StringValue("trade"), Matched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.New(tt.spec)
			require.NoError(t, err)
			require.Equal(t, tt.want, p.Evaluate(tt.field, tt.value))
		})
	}
}

func TestFactoryErrors(t *testing.T) {
	f, err := NewFactory(10)
	require.NoError(t, err)

	tests := []struct {
		name    string
		spec    Spec
		wantErr string
	}{
		{"invalid regexp", Regexp("s", "("), `regexp predicate for field "s"`},
		{"empty field", Eq("", "x"), "eq predicate: field cannot be empty"},
		{"nested error", AllOf(Eq("e", "trade"), AnyOf(Glob("", "*"))), "allOf[1]: anyOf[0]: glob predicate: field cannot be empty"},
		{"leaf with children", Spec{Kind: KindEq, Field: "e", Children: []Spec{Everything()}}, "eq predicate cannot have children"},
		{"unknown kind", Spec{Kind: "near"}, `unknown predicate kind "near"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.New(tt.spec)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFactoryBuildsIndependentTrees(t *testing.T) {
	f, err := NewFactory(10)
	require.NoError(t, err)

	spec := AllOf(Eq("e", "trade"), Regexp("s", "BTC.*"))
	p1, err := f.New(spec)
	require.NoError(t, err)
	p2, err := f.New(spec)
	require.NoError(t, err)
	require.Equal(t, 1, f.CachedPatterns())

	require.Equal(t, CannotMatch, p1.Evaluate("e", StringValue("depth")))
	require.Equal(t, Undecided, p2.Status())
	require.Equal(t, Undecided, p2.Evaluate("e", StringValue("trade")))
	require.Equal(t, Matched, p2.Evaluate("s", StringValue("BTCUSDT")))

	_, err = f.New(Glob("s", "BTC.*"))
	require.NoError(t, err)
	require.Equal(t, 2, f.CachedPatterns())
}

func TestFactoryPatternCacheEviction(t *testing.T) {
	f, err := NewFactory(2)
	require.NoError(t, err)
	for _, pattern := range []string{"a.*", "b.*", "c.*"} {
		_, err = f.New(Regexp("s", pattern))
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.CachedPatterns())
}

func TestSpecString(t *testing.T) {
	spec := AllOf(Eq("e", "trade"), Glob("s", "BTC*"), AnyOf(Regexp("p", `\d+`), Everything()))
	require.Equal(t, `allOf(e=="trade", s~"BTC*", anyOf(p=~/\d+/, everything))`, spec.String())
}

func TestSpecFromYAML(t *testing.T) {
	var spec Spec
	require.NoError(t, yaml.Unmarshal([]byte(`
kind: allOf
children:
  - {kind: eq, field: e, value: trade}
  - {kind: glob, field: s, pattern: "BTC*"}
`), &spec))
	require.Equal(t, AllOf(Eq("e", "trade"), Glob("s", "BTC*")), spec)
}
