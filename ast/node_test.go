package ast_test

import (
	"testing"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/source"
	"github.com/aledsdavies/trieste/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTop   = token.Top
	testGroup = token.Group
	ident     = token.New(token.NewDef("ident", token.FlagLookup))
	shadowDef = token.New(token.NewDef("shadow", token.FlagLookup|token.FlagShadowing))
	scoped    = token.New(token.NewDef("scoped", token.FlagSymtab))
)

func TestPushPopParent(t *testing.T) {
	root := ast.New(testGroup)
	child := ast.New(ident)
	root.PushBack(child)

	assert.Equal(t, root, child.Parent())

	popped := root.PopBack()
	assert.Equal(t, child, popped)
	assert.Nil(t, child.Parent())
}

func TestEraseSharedChildKeepsNewestParent(t *testing.T) {
	a := ast.New(testGroup)
	b := ast.New(testGroup)
	shared := ast.New(ident)

	a.PushBack(shared)
	b.PushBack(shared) // shared.parent now b

	a.Erase(0, a.Len())
	assert.Equal(t, b, shared.Parent(), "erase must not clear a shared child's parent once it points elsewhere")
}

func TestCloneDoesNotShareChildren(t *testing.T) {
	root := ast.New(testGroup)
	root.PushBack(ast.New(ident))

	clone := root.Clone()
	require.Equal(t, 1, clone.Len())
	assert.NotSame(t, root.At(0), clone.At(0))
}

func TestBindShadowing(t *testing.T) {
	top := ast.New(testTop)
	def := ast.New(shadowDef)
	top.PushBack(def)

	loc := source.FromString("x")
	ok := def.Bind(loc)
	assert.True(t, ok, "first binding is never shadowed")

	def2 := ast.New(shadowDef)
	top.PushBack(def2)
	ok2 := def2.Bind(loc)
	assert.False(t, ok2, "second binding at a shadowing location must report shadowed")
}

func TestLookupStopsAtShadowing(t *testing.T) {
	top := ast.New(testTop)
	outer := ast.New(ident)
	top.PushBack(outer)
	loc := source.FromString("x")
	outer.Bind(loc)

	inner := ast.New(scoped)
	top.PushBack(inner)
	shadow := ast.New(shadowDef)
	inner.PushBack(shadow)
	shadow.Bind(loc)

	use := ast.New(testGroup)
	inner.PushBack(use)

	results := use.LookupAt(loc, nil)
	require.Len(t, results, 1, "shadowing definition must stop upward recursion into the outer scope")
	assert.Equal(t, shadow, results[0])
}

func TestFreshRequiresTopRoot(t *testing.T) {
	notTop := ast.New(testGroup)
	assert.Panics(t, func() { notTop.Fresh() })

	top := ast.New(testTop)
	child := ast.New(testGroup)
	top.PushBack(child)

	a := child.Fresh()
	b := child.Fresh()
	assert.NotEqual(t, a.View(), b.View())
}

func TestErrorsCollectsAll(t *testing.T) {
	top := ast.New(testTop)
	msg1 := ast.NewWithLocation(token.ErrorMsg, source.FromString("bad"))
	ast1 := ast.New(testGroup)
	err1 := ast.New(token.Error)
	err1.PushBack(msg1)
	err1.PushBack(ast1)

	msg2 := ast.NewWithLocation(token.ErrorMsg, source.FromString("also bad"))
	ast2 := ast.New(testGroup)
	err2 := ast.New(token.Error)
	err2.PushBack(msg2)
	err2.PushBack(ast2)

	top.PushBack(err1)
	top.PushBack(err2)

	errs := top.Errors()
	assert.Len(t, errs, 2)
}

func TestPrintParseRoundTrip(t *testing.T) {
	top := ast.New(testTop)
	g := ast.New(testGroup)
	top.PushBack(g)
	printed := top.String()

	resolve := func(name string) (token.Token, bool) {
		switch name {
		case "top":
			return testTop, true
		case "group":
			return testGroup, true
		}
		return token.Invalid, false
	}

	src := source.Synthetic(printed)
	parsed, err := ast.BuildAST(src, 0, resolve)
	require.NoError(t, err)
	assert.Equal(t, testTop, parsed.Type())
	require.Equal(t, 1, parsed.Len())
	assert.Equal(t, testGroup, parsed.At(0).Type())
}
