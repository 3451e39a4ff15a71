package fuzzer_test

import (
	"testing"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/fuzzer"
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
	num   = token.New(token.NewDef("fuzz-num", token.FlagNone))
	add   = token.New(token.NewDef("fuzz-add", token.FlagNone))
	group = token.New(token.NewDef("fuzz-group", token.FlagNone))
)

func groupWF() wf.Wellformed {
	return wf.New(
		wf.Entry{Type: token.Top, Shape: wf.NewFields(wf.Field{Name: token.Invalid, Types: wf.Choice{group}})},
		wf.Entry{Type: group, Shape: wf.NewSequence(num).Min(2)},
		wf.Entry{Type: num, Shape: wf.NewFields()},
	)
}

func addedWF() wf.Wellformed {
	return wf.New(
		wf.Entry{Type: token.Top, Shape: wf.NewFields(wf.Field{Name: token.Invalid, Types: wf.Choice{group}})},
		wf.Entry{Type: group, Shape: wf.NewSequence(add).Min(0)},
		wf.Entry{Type: add, Shape: wf.NewFields(
			wf.Field{Name: token.Invalid, Types: wf.Choice{num}},
			wf.Field{Name: token.Invalid, Types: wf.Choice{num}},
		)},
		wf.Entry{Type: num, Shape: wf.NewFields()},
	)
}

// mergePass folds adjacent pairs of num siblings inside a group into a
// single add. A group with an odd count of nums is left with one
// unmerged num, which addedWF rejects — deliberately, so fuzzing this
// pass exercises both Passed and Failed outcomes.
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

func passRange() process.PassRange {
	return process.NewPassRange([]process.NamedPass{
		{Name: "merge", Pass: mergePass(), WF: addedWF()},
	}, groupWF(), "parse")
}

func TestSinglePassClassifiesGeneratedTrees(t *testing.T) {
	reports := fuzzer.SinglePass(passRange(), 12, 1, 3)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, "merge", r.PassName)
	assert.Len(t, r.Runs, 12)
	assert.Empty(t, r.ErroredByMessage)
	assert.Equal(t, 12, r.Passed+r.Trivial+r.Failed)
}

func TestSinglePassNeverReusesASeed(t *testing.T) {
	reports := fuzzer.SinglePass(passRange(), 8, 1, 3)
	require.Len(t, reports, 1)

	seen := make(map[uint64]bool)
	for _, run := range reports[0].Runs {
		assert.False(t, seen[run.Seed], "seed %d reused across runs", run.Seed)
		seen[run.Seed] = true
	}
}

func TestSequenceStopsAtFirstFailure(t *testing.T) {
	badPass := rewrite.New(rewrite.Rule{
		Pattern: pattern.T(num),
		Effect: func(m *match.Match) *ast.Node {
			e := ast.New(token.Error)
			e.PushBack(ast.New(token.ErrorMsg))
			e.PushBack(ast.New(token.ErrorAst))
			return e
		},
	})

	pr := process.NewPassRange([]process.NamedPass{
		{Name: "fail", Pass: badPass, WF: groupWF()},
	}, groupWF(), "parse")

	report := fuzzer.Sequence(groupWF(), pr, 6, 7, 3)
	assert.Equal(t, 6, len(report.Runs))
	assert.Zero(t, report.Passed)
	assert.Equal(t, 6, report.Failed)

	for _, run := range report.Runs {
		assert.Equal(t, "fail", run.FailedPass)
		assert.Equal(t, fuzzer.Errored, run.Outcome)
	}
	assert.NotEmpty(t, report.ErrorsByPass["fail"])
}

func TestSequenceRecordsTreeSizeAndHeight(t *testing.T) {
	report := fuzzer.Sequence(groupWF(), passRange(), 5, 42, 3)
	require.Len(t, report.Runs, 5)
	for i, run := range report.Runs {
		assert.Positive(t, run.Size, "run %d", i)
		assert.GreaterOrEqual(t, run.Height, 1, "run %d", i)
	}
}
