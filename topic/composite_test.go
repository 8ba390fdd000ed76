/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnd(t *testing.T) {
	t.Run("matches when all children match", func(t *testing.T) {
		a := NewAnd(NewFieldEquals("e", "trade"), NewFieldEquals("s", "BTC"))
		require.Equal(t, Undecided, a.Evaluate("e", StringValue("trade")))
		require.Equal(t, Undecided, a.Evaluate("x", StringValue("1")))
		require.Equal(t, Matched, a.Evaluate("s", StringValue("BTC")))
	})

	t.Run("reset and feed again", func(t *testing.T) {
		a := NewAnd(NewFieldEquals("a", "1"), NewFieldEquals("b", "2"))
		require.Equal(t, Undecided, a.Evaluate("a", StringValue("1")))
		require.Equal(t, CannotMatch, a.Evaluate("b", StringValue("3")))

		a.Reset()
		require.Equal(t, Undecided, a.Status())
		require.Equal(t, Undecided, a.Evaluate("a", StringValue("1")))
		require.Equal(t, Matched, a.Evaluate("b", StringValue("2")))
	})

	t.Run("cannot-match is kept until reset", func(t *testing.T) {
		left, right := newStub(Matched), newStub(CannotMatch)
		a := NewAnd(left, right)
		require.Equal(t, CannotMatch, a.Evaluate("f", StringValue("v")))

		right.status = Matched
		require.Equal(t, CannotMatch, a.Evaluate("f", StringValue("v")))
		require.Equal(t, CannotMatch, a.Status())
	})

	t.Run("matched child is not evaluated again", func(t *testing.T) {
		left, right := newStub(Matched), newStub(Undecided, Undecided, Matched)
		a := NewAnd(left, right)
		require.Equal(t, Undecided, a.Evaluate("f", StringValue("v")))
		require.Equal(t, Undecided, a.Evaluate("f", StringValue("v")))
		require.Equal(t, Matched, a.Evaluate("f", StringValue("v")))
		require.Equal(t, 1, left.calls)
		require.Equal(t, 3, right.calls)
	})

	t.Run("no children", func(t *testing.T) {
		a := NewAnd()
		require.Equal(t, Matched, a.Status())
		a.Reset()
		require.Equal(t, Matched, a.Status())
		require.Equal(t, Matched, a.Evaluate("f", StringValue("v")))
	})
}

func TestOr(t *testing.T) {
	t.Run("matches when any child matches", func(t *testing.T) {
		o := NewOr(NewFieldEquals("s", "BTC"), NewFieldEquals("s", "ETH"))
		require.Equal(t, Undecided, o.Evaluate("e", StringValue("trade")))
		require.Equal(t, Matched, o.Evaluate("s", StringValue("ETH")))
	})

	t.Run("cannot-match when all children cannot match", func(t *testing.T) {
		o := NewOr(NewFieldEquals("s", "BTC"), NewFieldEquals("e", "trade"))
		require.Equal(t, Undecided, o.Evaluate("s", StringValue("ETH")))
		require.Equal(t, CannotMatch, o.Evaluate("e", StringValue("depth")))
		require.Equal(t, CannotMatch, o.Evaluate("s", StringValue("BTC")))
	})

	t.Run("child that cannot match is not evaluated again", func(t *testing.T) {
		for _, pos := range []int{0, 1, 2} {
			stubs := []*stubPredicate{newStub(Undecided, Matched), newStub(Undecided, Matched), newStub(Undecided, Matched)}
			stubs[pos] = newStub(CannotMatch)
			o := NewOr(stubs[0], stubs[1], stubs[2])
			require.Equal(t, Undecided, o.Evaluate("f", StringValue("v")))

			stubs[pos].status = Matched
			stubs[pos].outcomes = []Status{Matched}
			callsBefore := stubs[pos].calls
			o.Evaluate("f", StringValue("v"))
			require.Equal(t, callsBefore, stubs[pos].calls, "child at position %d", pos)
		}
	})

	t.Run("matched is kept until reset", func(t *testing.T) {
		child := newStub(Matched)
		o := NewOr(child)
		require.Equal(t, Matched, o.Evaluate("f", StringValue("v")))
		child.status = CannotMatch
		require.Equal(t, Matched, o.Evaluate("f", StringValue("v")))
	})

	t.Run("no children", func(t *testing.T) {
		o := NewOr()
		require.Equal(t, CannotMatch, o.Status())
		o.Reset()
		require.Equal(t, CannotMatch, o.Status())
		require.Equal(t, CannotMatch, o.Evaluate("f", StringValue("v")))
	})
}

func TestCompositeResetRestoresDescendants(t *testing.T) {
	btc, eth, trade := NewFieldEquals("s", "BTC"), NewFieldEquals("s", "ETH"), NewFieldEquals("e", "trade")
	or := NewOr(eth, btc)
	and := NewAnd(or, trade)

	and.Evaluate("s", StringValue("BTC"))
	require.Equal(t, Undecided, and.Status())
	require.Equal(t, Matched, or.Status())
	require.Equal(t, Matched, btc.Status())
	require.Equal(t, CannotMatch, eth.Status())
	require.Equal(t, CannotMatch, and.Evaluate("e", StringValue("depth")))

	and.Reset()
	for _, p := range []Predicate{and, or, btc, eth, trade} {
		require.Equal(t, Undecided, p.Status())
	}

	require.Equal(t, Undecided, and.Evaluate("s", StringValue("ETH")))
	require.Equal(t, Matched, and.Evaluate("e", StringValue("trade")))
}

func TestCompositeResetClearsResolvedChildren(t *testing.T) {
	child := newStub(Matched)
	other := newStub()
	a := NewAnd(child, other)
	a.Evaluate("f", StringValue("v"))
	a.Evaluate("f", StringValue("v"))
	require.Equal(t, 1, child.calls)

	a.Reset()
	require.Equal(t, 2, child.resets)
	a.Evaluate("f", StringValue("v"))
	require.Equal(t, 2, child.calls)
}

func TestCompositeCopiesChildren(t *testing.T) {
	children := []Predicate{NewFieldEquals("s", "BTC")}
	a := NewAnd(children...)
	children[0] = NewFieldEquals("s", "ETH")
	require.Equal(t, Matched, a.Evaluate("s", StringValue("BTC")))
}

func TestCompositeSettlesOnConstantChildren(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want Status
	}{
		{"and of always", NewAnd(Always{}, Always{}), Matched},
		{"and of always and leaf", NewAnd(Always{}, NewFieldEquals("e", "trade")), Undecided},
		{"and of empty or", NewAnd(NewFieldEquals("e", "trade"), NewOr()), CannotMatch},
		{"or of always and leaf", NewOr(NewFieldEquals("e", "trade"), Always{}), Matched},
		{"or of empty ors", NewOr(NewOr(), NewOr()), CannotMatch},
		{"or of empty or and leaf", NewOr(NewOr(), NewFieldEquals("e", "trade")), Undecided},
		{"nested", NewOr(NewAnd(Always{}, NewAnd()), NewFieldEquals("e", "trade")), Matched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.pred.Status())
			tt.pred.Reset()
			require.Equal(t, tt.want, tt.pred.Status())
		})
	}

	t.Run("constant child is not evaluated again", func(t *testing.T) {
		o := NewOr(NewOr(), NewFieldEquals("e", "trade"))
		require.Equal(t, CannotMatch, o.Evaluate("e", StringValue("depth")))

		a := NewAnd(Always{}, NewFieldEquals("e", "trade"))
		require.Equal(t, Matched, a.Evaluate("e", StringValue("trade")))
	})
}
