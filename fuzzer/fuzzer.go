// Package fuzzer property-tests a pipeline by generating random trees
// against a pass's declared well-formedness and checking that running the
// pass produces a tree conforming to the next one — either one pass at a
// time, or threaded through a whole pipeline range with the first failure
// ending the run.
package fuzzer

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/logging"
	"github.com/aledsdavies/trieste/process"
	"github.com/aledsdavies/trieste/wf"
)

// Outcome classifies what happened to one generated tree.
type Outcome int

const (
	// Passed means the pass ran, made at least one change, and its output
	// conformed to the declared well-formedness with no Error nodes.
	Passed Outcome = iota
	// Trivial means the pass ran cleanly but changed nothing — usually a
	// sign the generated input never exercised the pass's rules.
	Trivial
	// Errored means the pass's output contains one or more Error nodes.
	Errored
	// Failed means the pass driver itself failed (an uncollected Lift),
	// or its output violates the declared well-formedness.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Trivial:
		return "trivial"
	case Errored:
		return "errored"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// hash is a tree's canonical fingerprint, used to deduplicate generated
// seeds so the same shape isn't fuzzed twice in one run.
type hash [32]byte

func hashTree(n *ast.Node) (hash, error) {
	b, err := ast.Marshal(n)
	if err != nil {
		return hash{}, err
	}
	return blake2b.Sum256(b), nil
}

// retryBudget bounds how many times a colliding seed is bumped before the
// generator gives up and fuzzes the duplicate anyway; this couples the
// retry budget to the seed range rather than perturbing the seed itself,
// matching the original's documented behavior.
const retryBudget = 8

func nextUniqueTree(w wf.Wellformed, seed *uint64, maxDepth int, seen map[hash]bool) *ast.Node {
	var tree *ast.Node

	for attempt := 0; ; attempt++ {
		tree = w.Gen(*seed, maxDepth)
		*seed++

		h, err := hashTree(tree)
		if err != nil {
			logging.Default.Error("fuzzer: could not hash generated tree", "err", err)
			return tree
		}

		if !seen[h] || attempt >= retryBudget {
			seen[h] = true
			return tree
		}
	}
}

// SingleRun is one generated-tree trial against one pass.
type SingleRun struct {
	Seed    uint64
	Outcome Outcome
	Message string // set for Errored (the Error node's message) and Failed
}

// SingleReport summarizes fuzzing one pass across every generated seed.
type SingleReport struct {
	PassName         string
	Runs             []SingleRun
	Passed           int
	Trivial          int
	Failed           int
	ErroredByMessage map[string]int
}

func (r *SingleReport) record(run SingleRun) {
	r.Runs = append(r.Runs, run)
	switch run.Outcome {
	case Passed:
		r.Passed++
	case Trivial:
		r.Trivial++
	case Failed:
		r.Failed++
	case Errored:
		if r.ErroredByMessage == nil {
			r.ErroredByMessage = make(map[string]int)
		}
		r.ErroredByMessage[run.Message]++
	}
}

// SinglePass fuzzes every pass remaining in pr: for each one, n trees are
// generated against its input well-formedness (deduplicated by tree hash,
// see retryBudget), the pass is run, and the output is checked against the
// pass's own well-formedness. pr is taken by value, so the caller's range
// is left where it was.
func SinglePass(pr process.PassRange, n int, startSeed uint64, maxDepth int) []SingleReport {
	var reports []SingleReport
	seed := startSeed

	for pr.HasNext() {
		current := pr.Current()
		inputWF := pr.InputWF()

		report := SingleReport{PassName: current.Name}
		seen := make(map[hash]bool)

		for i := 0; i < n; i++ {
			treeSeed := seed
			tree := nextUniqueTree(inputWF, &seed, maxDepth, seen)
			report.record(runSingle(current, treeSeed, tree))
		}

		reports = append(reports, report)
		pr.Advance()
	}

	return reports
}

func runSingle(np process.NamedPass, seed uint64, tree *ast.Node) SingleRun {
	result, err := np.Pass.Run(tree)
	if err != nil {
		return SingleRun{Seed: seed, Outcome: Failed, Message: err.Error()}
	}

	if errs := result.Node.Errors(); len(errs) > 0 {
		return SingleRun{Seed: seed, Outcome: Errored, Message: errorMessage(errs[0])}
	}

	if ok, _ := np.WF.Check(result.Node); !ok {
		return SingleRun{Seed: seed, Outcome: Failed, Message: "output violates well-formedness"}
	}

	if result.Changes == 0 {
		return SingleRun{Seed: seed, Outcome: Trivial}
	}

	return SingleRun{Seed: seed, Outcome: Passed}
}

func errorMessage(e *ast.Node) string {
	if e.Len() == 0 {
		return ""
	}
	return e.At(0).Location().View()
}

// SequenceRun is one tree threaded through a whole pipeline range.
type SequenceRun struct {
	Seed       uint64
	Outcome    Outcome
	FailedPass string // set when Outcome != Passed
	Message    string
	Size       int
	Height     int
}

// SequenceReport summarizes fuzzing a whole pipeline range.
type SequenceReport struct {
	Runs         []SequenceRun
	Passed       int
	Failed       int
	SizePassed   []int
	SizeFailed   []int
	HeightPassed []int
	HeightFailed []int
	// ErrorsByPass counts, per pass name, how many runs failed at that
	// pass keyed by message (an empty message means a well-formedness
	// violation rather than a collected Error node).
	ErrorsByPass map[string]map[string]int
}

func (r *SequenceReport) record(run SequenceRun) {
	r.Runs = append(r.Runs, run)

	if run.Outcome == Passed {
		r.Passed++
		r.SizePassed = append(r.SizePassed, run.Size)
		r.HeightPassed = append(r.HeightPassed, run.Height)
		return
	}

	r.Failed++
	r.SizeFailed = append(r.SizeFailed, run.Size)
	r.HeightFailed = append(r.HeightFailed, run.Height)

	if r.ErrorsByPass == nil {
		r.ErrorsByPass = make(map[string]map[string]int)
	}
	byMessage := r.ErrorsByPass[run.FailedPass]
	if byMessage == nil {
		byMessage = make(map[string]int)
		r.ErrorsByPass[run.FailedPass] = byMessage
	}
	byMessage[run.Message]++
}

// Sequence generates n trees against entryWF and threads each one through
// every pass in pr, failing fast at the first pass whose validation fails.
// pr is copied per run, so the caller's range is left untouched.
func Sequence(entryWF wf.Wellformed, pr process.PassRange, n int, startSeed uint64, maxDepth int) SequenceReport {
	var report SequenceReport
	seed := startSeed
	seen := make(map[hash]bool)

	for i := 0; i < n; i++ {
		treeSeed := seed
		tree := nextUniqueTree(entryWF, &seed, maxDepth, seen)
		report.record(runSequence(pr, treeSeed, tree))
	}

	return report
}

func runSequence(pr process.PassRange, seed uint64, tree *ast.Node) SequenceRun {
	size, height := treeSize(tree), treeHeight(tree)

	result := process.New(pr).Run(tree)
	if result.OK {
		return SequenceRun{Seed: seed, Outcome: Passed, Size: size, Height: height}
	}

	if errs := result.Errors; len(errs) > 0 {
		return SequenceRun{
			Seed:       seed,
			Outcome:    Errored,
			FailedPass: result.LastPass,
			Message:    errorMessage(errs[0]),
			Size:       size,
			Height:     height,
		}
	}

	return SequenceRun{
		Seed:       seed,
		Outcome:    Failed,
		FailedPass: result.LastPass,
		Size:       size,
		Height:     height,
	}
}

func treeSize(n *ast.Node) int {
	size := 1
	for _, c := range n.Children() {
		size += treeSize(c)
	}
	return size
}

func treeHeight(n *ast.Node) int {
	height := 0
	for _, c := range n.Children() {
		if h := treeHeight(c) + 1; h > height {
			height = h
		}
	}
	return height
}

// Summary renders a one-line-per-pass summary of a SinglePass run.
func Summary(reports []SingleReport) string {
	var out string
	for _, r := range reports {
		out += fmt.Sprintf("%s: %d passed, %d trivial, %d errored, %d failed\n",
			r.PassName, r.Passed, r.Trivial, len(r.Runs)-r.Passed-r.Trivial-r.Failed, r.Failed)
	}
	return out
}
