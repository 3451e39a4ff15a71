// Package process drives an ordered sequence of rewrite passes over a
// tree, validating well-formedness (symbol tables rebuilt, no Error
// nodes, shape conformance) between each one, and reporting per-pass
// statistics.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/logging"
	"github.com/aledsdavies/trieste/rewrite"
	"github.com/aledsdavies/trieste/wf"
)

// NamedPass is one stage of a pipeline: a rewrite pass plus the name it is
// reported under and the well-formedness its output must satisfy.
type NamedPass struct {
	Name string
	Pass *rewrite.Pass
	WF   wf.Wellformed
}

// PassRange is a cursor over a slice of NamedPass, tracking which
// well-formedness condition governs the tree at the current position.
type PassRange struct {
	passes    []NamedPass
	pos       int
	inputWF   wf.Wellformed
	entryName string
}

// NewPassRange builds a PassRange over the given passes, entering under
// entryWF (the well-formedness the tree must satisfy before the first
// pass runs) named entryName.
func NewPassRange(passes []NamedPass, entryWF wf.Wellformed, entryName string) PassRange {
	return PassRange{passes: passes, inputWF: entryWF, entryName: entryName}
}

// MoveStart advances the range to begin at the named pass, returning false
// if no pass has that name.
func (r *PassRange) MoveStart(name string) bool {
	for i, p := range r.passes {
		if p.Name == name {
			r.pos = i
			if i > 0 {
				r.inputWF = r.passes[i-1].WF
				r.entryName = r.passes[i-1].Name
			}
			return true
		}
	}
	return false
}

// MoveEnd truncates the range to end just after the named pass, returning
// false if no pass has that name.
func (r *PassRange) MoveEnd(name string) bool {
	for i, p := range r.passes {
		if p.Name == name {
			r.passes = r.passes[:i+1]
			return true
		}
	}
	return false
}

// HasNext reports whether there is another pass to run.
func (r *PassRange) HasNext() bool {
	return r.pos < len(r.passes)
}

// Current returns the pass at the cursor. Panics if HasNext is false.
func (r *PassRange) Current() NamedPass {
	return r.passes[r.pos]
}

// Advance moves the cursor past the current pass, remembering its
// well-formedness as the input condition for whatever comes next.
func (r *PassRange) Advance() {
	r.inputWF = r.passes[r.pos].WF
	r.entryName = r.passes[r.pos].Name
	r.pos++
}

// InputWF is the well-formedness condition the tree must satisfy at the
// cursor's current position.
func (r *PassRange) InputWF() wf.Wellformed {
	return r.inputWF
}

// EntryPassName names the pass whose output the tree currently satisfies.
func (r *PassRange) EntryPassName() string {
	return r.entryName
}

// LastPass returns the name of the final pass in the range. Panics if the
// range is empty.
func (r *PassRange) LastPass() string {
	if len(r.passes) == 0 {
		panic("process: no passes in range")
	}
	return r.passes[len(r.passes)-1].Name
}

// PassStatistics reports how a single pass behaved.
type PassStatistics struct {
	Count    int
	Changes  int
	Duration time.Duration
}

// Result is what Process.Run returns: whether every pass and validation
// succeeded, the name of the last pass attempted, the resulting tree, and
// any Error nodes collected from it.
type Result struct {
	OK       bool
	LastPass string
	AST      *ast.Node
	Errors   []*ast.Node
}

// PrintErrors renders every collected error, in the same format the
// original's ProcessResult::print_errors used, capping output at 20
// errors.
func (r Result) PrintErrors() string {
	var b []byte
	b = append(b, "Errors:\n"...)

	for i, e := range r.Errors {
		if i >= 20 {
			b = append(b, "Too many errors, stopping here\n"...)
			break
		}
		b = append(b, "----------------\n"...)
		b = append(b, ast.FormatError(e)...)
	}

	suffix := " error!"
	if len(r.Errors) != 1 {
		suffix = " errors!"
	}
	b = append(b, fmt.Sprintf("Pass %s failed with %d%s\n", r.LastPass, len(r.Errors), suffix)...)
	return string(b)
}

// PassCompleteFunc is called after each pass (including a synthetic call
// for index 0, before any pass has run) with the current tree, the pass
// just completed, its well-formedness, its 1-based index, and its
// statistics. Returning false aborts the run.
type PassCompleteFunc func(node *ast.Node, passName string, w wf.Wellformed, index int, stats PassStatistics) bool

// Process runs a PassRange over a tree, validating well-formedness
// between passes and reporting progress through a PassCompleteFunc.
type Process struct {
	passes          PassRange
	checkWellFormed bool
	onPassComplete  PassCompleteFunc
}

// New creates a Process over the given PassRange, with well-formedness
// checking on and no completion callback.
func New(passes PassRange) *Process {
	return &Process{passes: passes, checkWellFormed: true}
}

// OnPassComplete installs f as the pass-completion callback.
func (p *Process) OnPassComplete(f PassCompleteFunc) *Process {
	p.onPassComplete = f
	return p
}

// WithSummaryLog installs a completion callback that logs a progress record
// per pass (name, iterations, changes, microseconds) through
// logging.Default, and, if outputDir is
// non-empty, a numbered "<NN>_<pass>.trieste" dump of the tree after
// each pass (creating the directory if needed).
func (p *Process) WithSummaryLog(languageName, outputDir string) *Process {
	wroteHeader := false

	p.onPassComplete = func(node *ast.Node, passName string, w wf.Wellformed, index int, stats PassStatistics) bool {
		if !wroteHeader {
			logging.Default.Info("pipeline progress", "pass", "Pass", "iterations", "Iterations", "changes", "Changes", "us", "Time (us)")
			wroteHeader = true
		}
		logging.Default.Info("pass complete",
			"pass", passName,
			"iterations", stats.Count,
			"changes", stats.Changes,
			"us", stats.Duration.Microseconds(),
		)

		if outputDir == "" {
			return true
		}

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			logging.Default.Error("could not create output directory", "dir", outputDir, "err", err)
			return false
		}

		name := fmt.Sprintf("%02d_%s.trieste", index, passName)
		path := filepath.Join(outputDir, name)
		contents := languageName + "\n" + passName + "\n" + node.String()
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			logging.Default.Error("could not write pass output", "path", path, "err", err)
			return false
		}

		return true
	}

	return p
}

// CheckWellFormed turns well-formedness checking between passes on or off
// (symbol-table rebuilds and error collection always happen regardless).
func (p *Process) CheckWellFormed(b bool) *Process {
	p.checkWellFormed = b
	return p
}

func (p *Process) validate(node *ast.Node, errs *[]*ast.Node) bool {
	w := p.passes.InputWF()
	if node == nil {
		return false
	}

	w.BuildSymtab(node)
	*errs = node.Errors()
	ok := len(*errs) == 0

	if p.checkWellFormed {
		wfOK, _ := w.Check(node)
		ok = ok && wfOK
	}

	return ok
}

// Run executes every pass in the range against node, validating between
// each one, and returns the final tree and outcome.
func (p *Process) Run(node *ast.Node) Result {
	index := 0

	var errs []*ast.Node
	ok := p.validate(node, &errs)

	if p.onPassComplete != nil {
		ok = p.onPassComplete(node, p.passes.EntryPassName(), p.passes.InputWF(), 0, PassStatistics{}) && ok
	}

	lastPass := p.passes.EntryPassName()

	for ok && p.passes.HasNext() {
		index++
		pass := p.passes.Current()

		start := time.Now()
		result, err := pass.Pass.Run(node)
		duration := time.Since(start)

		if err != nil {
			logging.Default.Error("pass failed", "pass", pass.Name, "err", err)
			ok = false
			lastPass = pass.Name
			break
		}

		node = result.Node
		p.passes.Advance()

		ok = p.validate(node, &errs)

		stats := PassStatistics{Count: result.Count, Changes: result.Changes, Duration: duration}
		if p.onPassComplete != nil {
			ok = p.onPassComplete(node, pass.Name, pass.WF, index, stats) && ok
		}

		lastPass = pass.Name
	}

	return Result{OK: ok, LastPass: lastPass, AST: node, Errors: errs}
}
