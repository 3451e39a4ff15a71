// Package calcfixture is a tiny infix-calculator pipeline used to exercise
// the checker and fuzzer packages end to end, both in their own tests and
// in cmd/trieste-fuzz. It is not a real calculator frontend: there is no
// lexer or parser here, only the three well-formedness conditions and two
// rewrite passes that fold a flat list of numbers into the shape a real
// precedence-climbing parser would have produced directly.
package calcfixture

import (
	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/match"
	"github.com/aledsdavies/trieste/pattern"
	"github.com/aledsdavies/trieste/process"
	"github.com/aledsdavies/trieste/rewrite"
	"github.com/aledsdavies/trieste/token"
	"github.com/aledsdavies/trieste/wf"
)

var (
	// Num is a leaf numeric literal.
	Num = token.New(token.NewDef("calc-num", token.FlagNone))
	// Mul is a product of two operands, built by the mul pass.
	Mul = token.New(token.NewDef("calc-mul", token.FlagNone))
	// Add is a sum of two operands, built by the add pass.
	Add = token.New(token.NewDef("calc-add", token.FlagNone))
	// Group holds the flat expression list under token.Top.
	Group = token.New(token.NewDef("calc-group", token.FlagNone))
)

// ParseWF describes a freshly parsed expression: a flat list of two or more
// numbers under a single group, with no operators yet — everything still
// to be folded by precedence.
func ParseWF() wf.Wellformed {
	return wf.New(
		wf.Entry{Type: token.Top, Shape: wf.NewFields(wf.Field{Name: token.Invalid, Types: wf.Choice{Group}})},
		wf.Entry{Type: Group, Shape: wf.NewSequence(Num).Min(2)},
		wf.Entry{Type: Num, Shape: wf.NewFields()},
	)
}

// MulWF describes the tree after the mul pass: the group now holds numbers
// and products, in any order, possibly just one leftover number if the
// group had an odd count.
func MulWF() wf.Wellformed {
	return wf.New(
		wf.Entry{Type: token.Top, Shape: wf.NewFields(wf.Field{Name: token.Invalid, Types: wf.Choice{Group}})},
		wf.Entry{Type: Group, Shape: wf.NewSequence(Num, Mul).Min(0)},
		wf.Entry{Type: Mul, Shape: wf.NewFields(
			wf.Field{Name: token.Invalid, Types: wf.Choice{Num}},
			wf.Field{Name: token.Invalid, Types: wf.Choice{Num}},
		)},
		wf.Entry{Type: Num, Shape: wf.NewFields()},
	)
}

// AddWF describes the final tree: the group holds only sums, each of two
// Num-or-Mul operands; a leftover unfolded operand is rejected.
func AddWF() wf.Wellformed {
	return wf.New(
		wf.Entry{Type: token.Top, Shape: wf.NewFields(wf.Field{Name: token.Invalid, Types: wf.Choice{Group}})},
		wf.Entry{Type: Group, Shape: wf.NewSequence(Add).Min(0)},
		wf.Entry{Type: Add, Shape: wf.NewFields(
			wf.Field{Name: token.Invalid, Types: wf.Choice{Num, Mul}},
			wf.Field{Name: token.Invalid, Types: wf.Choice{Num, Mul}},
		)},
		wf.Entry{Type: Mul, Shape: wf.NewFields(
			wf.Field{Name: token.Invalid, Types: wf.Choice{Num}},
			wf.Field{Name: token.Invalid, Types: wf.Choice{Num}},
		)},
		wf.Entry{Type: Num, Shape: wf.NewFields()},
	)
}

// MulPass folds adjacent pairs of Num siblings into a Mul, modeling
// multiplication binding tighter than addition. A group with an odd count
// of Nums is left with one unmerged Num — MulWF permits that, since the add
// pass still has to handle a lone operand.
func MulPass() *rewrite.Pass {
	return rewrite.New(rewrite.Rule{
		Pattern: pattern.Seq(
			pattern.In(Group),
			pattern.CapName(Num, pattern.T(Num)),
			pattern.CapName(Mul, pattern.T(Num)),
		),
		Effect: func(m *match.Match) *ast.Node {
			n := ast.New(Mul)
			n.PushBack(m.Node(Num))
			n.PushBack(m.Node(Mul))
			return n
		},
	})
}

// AddPass folds adjacent pairs of Num-or-Mul siblings into an Add. A group
// with an odd count is left with one unfolded operand, which AddWF
// rejects: deliberately, so fuzzing this pass exercises both a clean fold
// and a well-formedness failure.
func AddPass() *rewrite.Pass {
	operand := pattern.Or(pattern.T(Num), pattern.T(Mul))
	return rewrite.New(rewrite.Rule{
		Pattern: pattern.Seq(
			pattern.In(Group),
			pattern.CapName(Num, operand),
			pattern.CapName(Add, operand),
		),
		Effect: func(m *match.Match) *ast.Node {
			n := ast.New(Add)
			n.PushBack(m.Node(Num))
			n.PushBack(m.Node(Add))
			return n
		},
	})
}

// PassRange returns the two-stage mul-then-add pipeline, entering under
// ParseWF.
func PassRange() process.PassRange {
	return process.NewPassRange([]process.NamedPass{
		{Name: "mul", Pass: MulPass(), WF: MulWF()},
		{Name: "add", Pass: AddPass(), WF: AddWF()},
	}, ParseWF(), "parse")
}
