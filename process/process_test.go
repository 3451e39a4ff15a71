package process_test

import (
	"testing"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/match"
	"github.com/aledsdavies/trieste/pattern"
	"github.com/aledsdavies/trieste/process"
	"github.com/aledsdavies/trieste/rewrite"
	"github.com/aledsdavies/trieste/token"
	"github.com/aledsdavies/trieste/wf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	num   = token.New(token.NewDef("proc-num", token.FlagPrint))
	add   = token.New(token.NewDef("proc-add", token.FlagNone))
	group = token.New(token.NewDef("proc-group", token.FlagNone))
)

func groupWF() wf.Wellformed {
	return wf.New(
		wf.Entry{Type: token.Top, Shape: wf.NewFields(wf.Field{Name: token.Invalid, Types: wf.Choice{group}})},
		wf.Entry{Type: group, Shape: wf.NewSequence(num, add).Min(0)},
		wf.Entry{Type: num, Shape: wf.NewFields()},
	)
}

func addedWF() wf.Wellformed {
	return groupWF().Compose(wf.New(
		wf.Entry{Type: group, Shape: wf.NewSequence(add).Min(0)},
		wf.Entry{Type: add, Shape: wf.NewFields(
			wf.Field{Name: token.Invalid, Types: wf.Choice{num}},
			wf.Field{Name: token.Invalid, Types: wf.Choice{num}},
		)},
	))
}

func mergePass() *rewrite.Pass {
	return rewrite.New(rewrite.Rule{
		Pattern: pattern.Seq(
			pattern.In(group),
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

func buildTree() *ast.Node {
	top := ast.New(token.Top)
	g := ast.New(group)
	top.PushBack(g)
	g.PushBack(ast.New(num))
	g.PushBack(ast.New(num))
	return top
}

func TestRunAppliesEveryPassAndValidates(t *testing.T) {
	pr := process.NewPassRange(
		[]process.NamedPass{
			{Name: "merge", Pass: mergePass(), WF: addedWF()},
		},
		groupWF(),
		"parse",
	)

	var seen []string
	p := process.New(pr).OnPassComplete(func(node *ast.Node, passName string, w wf.Wellformed, index int, stats process.PassStatistics) bool {
		seen = append(seen, passName)
		return true
	})

	result := p.Run(buildTree())

	require.True(t, result.OK)
	assert.Equal(t, "merge", result.LastPass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"parse", "merge"}, seen)

	g := result.AST.At(0)
	require.Equal(t, 1, g.Len())
	assert.Equal(t, add, g.At(0).Type())
}

func TestRunStopsOnCollectedError(t *testing.T) {
	badPass := rewrite.New(rewrite.Rule{
		Pattern: pattern.T(num),
		Effect: func(m *match.Match) *ast.Node {
			e := ast.New(token.Error)
			e.PushBack(ast.New(token.ErrorMsg))
			e.PushBack(ast.New(token.ErrorAst))
			return e
		},
	})

	pr := process.NewPassRange(
		[]process.NamedPass{{Name: "fail", Pass: badPass, WF: groupWF()}},
		groupWF(),
		"parse",
	)

	p := process.New(pr)
	result := p.Run(buildTree())

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Errors)
}

func TestPassRangeMoveStartAndEnd(t *testing.T) {
	passes := []process.NamedPass{
		{Name: "a", Pass: rewrite.New(), WF: groupWF()},
		{Name: "b", Pass: rewrite.New(), WF: groupWF()},
		{Name: "c", Pass: rewrite.New(), WF: groupWF()},
	}
	pr := process.NewPassRange(passes, groupWF(), "entry")

	require.True(t, pr.MoveStart("b"))
	assert.Equal(t, "b", pr.Current().Name)

	require.True(t, pr.MoveEnd("b"))
	assert.Equal(t, "b", pr.LastPass())
	assert.False(t, pr.MoveStart("c"), "c was truncated out of the range by MoveEnd")
}
