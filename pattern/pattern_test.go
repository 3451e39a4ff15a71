package pattern_test

import (
	"testing"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/match"
	"github.com/aledsdavies/trieste/pattern"
	"github.com/aledsdavies/trieste/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	foo    = token.New(token.NewDef("foo", token.FlagNone))
	bar    = token.New(token.NewDef("bar", token.FlagNone))
	capTok = token.New(token.NewDef("capTok", token.FlagNone))
)

func children(tokens ...token.Token) *ast.Node {
	root := ast.New(token.Group)
	for _, t := range tokens {
		root.PushBack(ast.New(t))
	}
	return root
}

func tryMatch(p pattern.Pattern, parent *ast.Node) (bool, int) {
	pos := 0
	m := match.New()
	ok := p.Match(&pos, parent, m)
	return ok, pos
}

func TestTokenMatch(t *testing.T) {
	parent := children(foo, bar)
	ok, pos := tryMatch(pattern.T(foo), parent)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)

	ok, _ = tryMatch(pattern.T(bar), parent)
	assert.False(t, ok)
}

func TestSeqChaining(t *testing.T) {
	parent := children(foo, bar)
	p := pattern.Seq(pattern.T(foo), pattern.T(bar))
	ok, pos := tryMatch(p, parent)
	assert.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestCapRecordsRange(t *testing.T) {
	parent := children(foo, bar)
	p := pattern.CapName(capTok, pattern.T(foo))
	pos := 0
	m := match.New()
	ok := p.Match(&pos, parent, m)
	require.True(t, ok)
	r := m.Get(capTok)
	require.Len(t, r, 1)
	assert.Equal(t, foo, r[0].Type())
}

func TestOptFallsBackWithoutConsuming(t *testing.T) {
	parent := children(bar)
	p := pattern.Seq(pattern.OptP(pattern.T(foo)), pattern.T(bar))
	ok, pos := tryMatch(p, parent)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestRepGreedy(t *testing.T) {
	parent := children(foo, foo, foo, bar)
	p := pattern.Seq(pattern.RepP(pattern.T(foo)), pattern.T(bar))
	ok, pos := tryMatch(p, parent)
	assert.True(t, ok)
	assert.Equal(t, 4, pos)
}

func TestRepForbidsCaptures(t *testing.T) {
	assert.Panics(t, func() {
		pattern.RepP(pattern.CapName(capTok, pattern.T(foo)))
	})
}

func TestNotConsumesOneWhenPatternFails(t *testing.T) {
	parent := children(bar)
	ok, pos := tryMatch(pattern.NotP(pattern.T(foo)), parent)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestNotFailsWhenPatternMatches(t *testing.T) {
	parent := children(foo)
	ok, _ := tryMatch(pattern.NotP(pattern.T(foo)), parent)
	assert.False(t, ok)
}

func TestChoiceBacktracksToSecond(t *testing.T) {
	parent := children(bar)
	p := pattern.Or(pattern.T(foo), pattern.T(bar))
	ok, pos := tryMatch(p, parent)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestChoiceMergesPureTokenMatches(t *testing.T) {
	p := pattern.Or(pattern.T(foo), pattern.T(bar))
	_, isTokenMatch := p.(*pattern.TokenMatch)
	assert.True(t, isTokenMatch, "Or of two bare TokenMatch patterns should merge, not wrap in Choice")
}

func TestInsideAssertsParent(t *testing.T) {
	outer := ast.New(foo)
	inner := ast.New(bar)
	outer.PushBack(inner)

	pos := 0
	m := match.New()
	ok := pattern.In(foo).Match(&pos, outer, m)
	assert.True(t, ok)

	ok = pattern.In(bar).Match(&pos, outer, m)
	assert.False(t, ok)
}

func TestFirstLast(t *testing.T) {
	parent := children(foo, bar)
	m := match.New()

	pos := 0
	assert.True(t, pattern.StartPattern().Match(&pos, parent, m))

	pos = 2
	assert.True(t, pattern.EndPattern().Match(&pos, parent, m))

	pos = 1
	assert.False(t, pattern.EndPattern().Match(&pos, parent, m))
}

func TestPredDoesNotConsume(t *testing.T) {
	parent := children(foo, bar)
	pos := 0
	m := match.New()
	ok := pattern.PredP(pattern.T(foo)).Match(&pos, parent, m)
	assert.True(t, ok)
	assert.Equal(t, 0, pos, "Pred must not advance the position")
}

func TestNegPredForbidsCaptures(t *testing.T) {
	assert.Panics(t, func() {
		pattern.NegPredP(pattern.CapName(capTok, pattern.T(foo)))
	})
}

func TestChildrenMatchesIntoMatchedNode(t *testing.T) {
	parent := ast.New(token.Group)
	inner := ast.New(foo)
	inner.PushBack(ast.New(bar))
	parent.PushBack(inner)

	p := pattern.ChildrenP(pattern.T(foo), pattern.T(bar))
	ok, pos := tryMatch(p, parent)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
}
