package rewrite_test

import (
	"testing"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/match"
	"github.com/aledsdavies/trieste/pattern"
	"github.com/aledsdavies/trieste/rewrite"
	"github.com/aledsdavies/trieste/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	num    = token.New(token.NewDef("num", token.FlagPrint))
	add    = token.New(token.NewDef("add", token.FlagNone))
	block  = token.New(token.NewDef("block", token.FlagNone))
	target = token.New(token.NewDef("target", token.FlagNone))
)

// mergeNumsPass collapses one adjacent pair of num nodes directly inside a
// Group into a single add node wrapping them. The In(Group) guard keeps
// the rule from matching again inside a freshly built add node (whose own
// immediate container type is add, not group), so the rewrite reaches a
// fixed point instead of re-wrapping its own output forever.
func mergeNumsPass() *rewrite.Pass {
	return rewrite.New(rewrite.Rule{
		Pattern: pattern.Seq(
			pattern.In(token.Group),
			pattern.CapName(num, pattern.T(num)),
			pattern.CapName(add, pattern.T(num)),
		),
		Effect: func(m *match.Match) *ast.Node {
			n := ast.New(add)
			n.PushBack(m.Node(num))
			n.PushBack(m.Node(add))
			return n
		},
	})
}

func TestFixedPointRewriteMergesPair(t *testing.T) {
	root := ast.New(token.Group)
	root.PushBack(ast.New(num))
	root.PushBack(ast.New(num))

	p := mergeNumsPass()
	result, err := p.Run(root)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changes)

	require.Equal(t, 1, root.Len())
	assert.Equal(t, add, root.At(0).Type())
	assert.Equal(t, 2, root.At(0).Len())
}

func TestFixedPointRewriteStopsAtFixedPoint(t *testing.T) {
	root := ast.New(token.Group)
	root.PushBack(ast.New(num))
	root.PushBack(ast.New(num))
	root.PushBack(ast.New(num))
	root.PushBack(ast.New(num))

	p := mergeNumsPass()
	result, err := p.Run(root)
	require.NoError(t, err)

	// Two independent pairs merge; the two resulting add nodes are never
	// themselves num nodes, so nothing further matches.
	require.Equal(t, 2, root.Len())
	assert.Equal(t, add, root.At(0).Type())
	assert.Equal(t, add, root.At(1).Type())
	assert.Equal(t, 2, result.Changes)
}

func TestNoChangeSkipsToNextRule(t *testing.T) {
	root := ast.New(token.Group)
	root.PushBack(ast.New(num))

	calls := 0
	p := rewrite.New(
		rewrite.Rule{
			Pattern: pattern.T(num),
			Effect: func(m *match.Match) *ast.Node {
				calls++
				return ast.New(token.NoChange)
			},
		},
		rewrite.Rule{
			Pattern: pattern.T(num),
			Effect: func(m *match.Match) *ast.Node {
				return ast.New(add)
			},
		},
	)

	result, err := p.Run(root)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Equal(t, 1, root.Len())
	assert.Equal(t, add, root.At(0).Type())
	assert.Equal(t, 1, result.Changes)
}

func TestOnceRunsExactlyOneIteration(t *testing.T) {
	root := ast.New(token.Group)
	root.PushBack(ast.New(num))
	root.PushBack(ast.New(num))

	runs := 0
	p := &rewrite.Pass{
		Direction: rewrite.Once | rewrite.Topdown,
		Rules: []rewrite.Rule{{
			Pattern: pattern.T(num),
			Effect: func(m *match.Match) *ast.Node {
				runs++
				return ast.New(add)
			},
		}},
	}

	result, err := p.Run(root)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 2, runs)
}

func TestLiftSplicesIntoNamedAncestor(t *testing.T) {
	root := ast.New(block)
	mid := ast.New(num)
	root.PushBack(mid)

	payload := ast.New(add)

	p := rewrite.New(rewrite.Rule{
		Pattern: pattern.T(num),
		Effect: func(m *match.Match) *ast.Node {
			lift := ast.New(token.Lift)
			lift.PushBack(ast.New(block)) // names the target ancestor type
			lift.PushBack(payload)
			return lift
		},
	})

	_, err := p.Run(root)
	require.NoError(t, err)
	require.Equal(t, 1, root.Len())
	assert.Same(t, payload, root.At(0))
}

func TestUncollectedLiftIsAnError(t *testing.T) {
	root := ast.New(target)
	child := ast.New(num)
	root.PushBack(child)

	p := rewrite.New(rewrite.Rule{
		Pattern: pattern.T(num),
		Effect: func(m *match.Match) *ast.Node {
			lift := ast.New(token.Lift)
			lift.PushBack(ast.New(block)) // no "block" ancestor exists
			lift.PushBack(ast.New(num))
			return lift
		},
	})

	_, err := p.Run(root)
	assert.Error(t, err)
}
