// Package checker statically lints a pattern for authoring mistakes that
// would otherwise only surface as a confusing rewrite bug or an infinite
// loop at runtime: a capture inside a position that discards it, a
// repetition that can never stop, a Last assertion with more pattern after
// it, a Children match whose outer side can match more than one node, a
// rule shadowed by an earlier one in the same pass, and so on.
//
// The original implementation reifies a Pattern as an ordinary tree (a
// "pattern AST") and runs the checks as rewrite passes over that tree.
// There is no equivalent reification here: Go's Pattern is already a
// concrete struct graph, walkable by type switch, so the checks below walk
// it directly instead of rebuilding it as a second tree first.
package checker

import (
	"fmt"

	"github.com/aledsdavies/trieste/pattern"
	"github.com/aledsdavies/trieste/token"
	"github.com/aledsdavies/trieste/wf"
)

// Multiplicity estimates how many sibling nodes a pattern consumes when it
// matches: Zero (a zero-width assertion), One (always exactly one node),
// or Unknown (anywhere from zero upward, or ambiguous).
type Multiplicity int

const (
	Zero Multiplicity = iota
	One
	Unknown
)

func (m Multiplicity) String() string {
	switch m {
	case Zero:
		return "zero"
	case One:
		return "one"
	default:
		return "unknown"
	}
}

func combine(a, b Multiplicity) Multiplicity {
	switch {
	case a == Zero:
		return b
	case b == Zero:
		return a
	default:
		return Unknown
	}
}

func selfMultiplicity(p pattern.Pattern) Multiplicity {
	switch v := p.(type) {
	case *pattern.First, *pattern.Last, *pattern.Inside, *pattern.InsideStar, *pattern.Pred, *pattern.NegPred:
		return Zero
	case *pattern.Any, *pattern.RegexMatch, *pattern.TokenMatch, *pattern.Not:
		return One
	case *pattern.Opt, *pattern.Rep:
		return Unknown
	case pattern.ChildrenPattern:
		return MultiplicityOf(v.Outer())
	case pattern.Brancher:
		first, second := v.Branches()
		a, b := MultiplicityOf(first), MultiplicityOf(second)
		if a == b {
			return a
		}
		return Unknown
	case pattern.Unwrapper:
		return MultiplicityOf(v.Unwrap())
	default:
		return Unknown
	}
}

// MultiplicityOf reports p's multiplicity, including whatever follows it in
// its continuation chain.
func MultiplicityOf(p pattern.Pattern) Multiplicity {
	if p == nil {
		return Zero
	}
	return combine(selfMultiplicity(p), MultiplicityOf(p.Continuation()))
}

// Finding is one lint violation against a single pattern node.
type Finding struct {
	Message string
	Pattern pattern.Pattern
}

func (f Finding) String() string { return f.Message }

// walkState tracks which zero-width or single-consuming construct a
// pattern is currently nested inside, for the context-sensitive checks
// (no captures under Rep/Not/Pred/NegPred).
type walkState struct {
	inRep     bool
	inNot     bool
	inPred    bool
	inNegPred bool
}

func (s walkState) forbidsCapture() bool {
	return s.inRep || s.inNot || s.inPred || s.inNegPred
}

// CheckPattern walks p (and its continuation chain) looking for the
// authoring mistakes listed in the package doc. It does not catch every
// mistake pattern's own constructors (RepP, NotP, PredP, NegPredP) already
// panic on; it exists mainly to catch the ones that don't panic at
// construction time (infinite Rep, dangling Last, empty capture groups,
// multi-node Children/Not bodies, internal-token matches).
func CheckPattern(p pattern.Pattern) []Finding {
	var findings []Finding
	checkChain(p, walkState{}, &findings)
	return findings
}

func checkChain(p pattern.Pattern, st walkState, findings *[]Finding) {
	for cur := p; cur != nil; cur = cur.Continuation() {
		checkNode(cur, st, findings)
	}
}

func checkNode(p pattern.Pattern, st walkState, findings *[]Finding) {
	checkInternalTokens(p.OnlyTokens(), p, findings)

	switch v := p.(type) {
	case *pattern.Cap:
		if st.forbidsCapture() {
			*findings = append(*findings, Finding{
				Message: fmt.Sprintf("capture %s is discarded: captures inside Rep/Not/Pred/NegPred never survive to the enclosing match", v.Name()),
				Pattern: p,
			})
		}
		if MultiplicityOf(v.Unwrap()) == Zero {
			*findings = append(*findings, Finding{
				Message: fmt.Sprintf("capture %s always spans zero nodes", v.Name()),
				Pattern: p,
			})
		}
		checkChain(v.Unwrap(), st, findings)

	case *pattern.Rep:
		if MultiplicityOf(v.Unwrap()) == Zero {
			*findings = append(*findings, Finding{
				Message: "Rep body never consumes a node: this repeats forever",
				Pattern: p,
			})
		}
		checkChain(v.Unwrap(), withRep(st), findings)

	case *pattern.Not:
		if MultiplicityOf(v.Unwrap()) != One {
			*findings = append(*findings, Finding{
				Message: "Not body must match exactly one node",
				Pattern: p,
			})
		}
		checkChain(v.Unwrap(), withNot(st), findings)

	case *pattern.Pred:
		checkChain(v.Unwrap(), withPred(st), findings)

	case *pattern.NegPred:
		checkChain(v.Unwrap(), withNegPred(st), findings)

	case *pattern.Last:
		if v.Continuation() != nil {
			*findings = append(*findings, Finding{
				Message: "Last asserts end of sibling list but is followed by more pattern",
				Pattern: p,
			})
		}

	case *pattern.Children:
		if MultiplicityOf(v.Outer()) != One {
			*findings = append(*findings, Finding{
				Message: "Children's outer pattern must match exactly one node",
				Pattern: p,
			})
		}
		checkChain(v.Outer(), st, findings)
		checkChain(v.Inner(), st, findings)

	case *pattern.Choice:
		first, second := v.Branches()
		checkChain(first, st, findings)
		checkChain(second, st, findings)

	case pattern.Unwrapper:
		checkChain(v.Unwrap(), st, findings)
	}
}

func withRep(st walkState) walkState     { st.inRep = true; return st }
func withNot(st walkState) walkState     { st.inNot = true; return st }
func withPred(st walkState) walkState    { st.inPred = true; return st }
func withNegPred(st walkState) walkState { st.inNegPred = true; return st }

func checkInternalTokens(types []token.Token, p pattern.Pattern, findings *[]Finding) {
	for _, t := range types {
		if t.Has(token.FlagInternal) {
			*findings = append(*findings, Finding{
				Message: fmt.Sprintf("pattern matches %s, which is marked internal and must never be matched against directly", t),
				Pattern: p,
			})
		}
	}
}

// CheckTokensExist reports every token p references (via TokenMatch,
// RegexMatch, or an Inside assertion) that appears in neither before nor
// after, unless it is in ignored. A pattern is normally written against
// the well-formedness the tree is known to satisfy on entry (before) and
// is expected to satisfy on exit (after); a reference to a token present
// in neither usually means a typo or a token that was renamed out from
// under the rule.
func CheckTokensExist(p pattern.Pattern, before, after wf.Wellformed, ignored ...token.Token) []Finding {
	var findings []Finding
	seen := make(map[token.Token]bool)

	walkTokens(p, func(t token.Token, owner pattern.Pattern) {
		if seen[t] {
			return
		}
		seen[t] = true

		for _, ig := range ignored {
			if ig == t {
				return
			}
		}

		if before.Contains(t) || after.Contains(t) {
			return
		}

		findings = append(findings, Finding{
			Message: fmt.Sprintf("pattern references %s, which appears in neither the input nor output well-formedness", t),
			Pattern: owner,
		})
	})

	return findings
}

func walkTokens(p pattern.Pattern, visit func(token.Token, pattern.Pattern)) {
	for cur := p; cur != nil; cur = cur.Continuation() {
		for _, t := range cur.OnlyTokens() {
			visit(t, cur)
		}

		switch v := cur.(type) {
		case *pattern.Children:
			walkTokens(v.Outer(), visit)
			walkTokens(v.Inner(), visit)
		case *pattern.Choice:
			first, second := v.Branches()
			walkTokens(first, visit)
			walkTokens(second, visit)
		case pattern.Unwrapper:
			walkTokens(v.Unwrap(), visit)
		}
	}
}

// chainWalker iterates a pattern's continuation chain, transparently
// splicing through Cap nodes the way Cap.Match does: it matches the
// wrapped pattern's own chain to completion before resuming the Cap's own
// continuation, so a Cap never counts as an opaque node in a prefix
// comparison.
type chainWalker struct {
	stack []pattern.Pattern
	cur   pattern.Pattern
}

func newChainWalker(p pattern.Pattern) *chainWalker {
	w := &chainWalker{cur: p}
	w.normalize()
	return w
}

func (w *chainWalker) empty() bool { return w.cur == nil }

func (w *chainWalker) node() pattern.Pattern { return w.cur }

func (w *chainWalker) advance() {
	if w.cur == nil {
		return
	}
	w.cur = w.cur.Continuation()
	w.normalize()
}

func (w *chainWalker) normalize() {
	for {
		if w.cur == nil {
			if len(w.stack) == 0 {
				return
			}
			w.cur = w.stack[len(w.stack)-1]
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}
		cap, ok := w.cur.(*pattern.Cap)
		if !ok {
			return
		}
		w.stack = append(w.stack, cap.Continuation())
		w.cur = cap.Unwrap()
	}
}

func isAssertionType(p pattern.Pattern) bool {
	switch p.(type) {
	case *pattern.Inside, *pattern.InsideStar, *pattern.First, *pattern.Last:
		return true
	default:
		return false
	}
}

func tokensSubset(sub, super []token.Token) bool {
	for _, t := range sub {
		found := false
		for _, u := range super {
			if t == u {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IncludesPrefix reports whether prefix matches a prefix (possibly all) of
// whatever pat matches: walking both chains in lockstep, every node
// prefix produces is at least as general as pat's corresponding node. A
// rule whose pattern IncludesPrefix's a later rule's pattern makes that
// later rule unreachable, since the earlier rule always fires first and
// consumes the same nodes.
//
// This mirrors includes_prefix from the original implementation's
// checker and keeps its contract: false negatives are acceptable (an
// unusual pattern shape simply isn't recognized as shadowing), false
// positives are not, so an unhandled or ambiguous node shape returns
// false rather than guessing.
func IncludesPrefix(prefix, pat pattern.Pattern) bool {
	pw := newChainWalker(prefix)
	mw := newChainWalker(pat)

	for !pw.empty() && !mw.empty() {
		prefixNode := pw.node()
		patternNode := mw.node()

		switch v := prefixNode.(type) {
		case *pattern.Inside:
			pn, ok := patternNode.(*pattern.Inside)
			if !ok || !tokensSubset(pn.OnlyTokens(), v.OnlyTokens()) {
				return false
			}

		case *pattern.InsideStar:
			pn, ok := patternNode.(*pattern.InsideStar)
			if !ok || !tokensSubset(pn.OnlyTokens(), v.OnlyTokens()) {
				return false
			}

		case *pattern.First:
			if _, ok := patternNode.(*pattern.First); !ok {
				return false
			}

		case *pattern.Last:
			if _, ok := patternNode.(*pattern.Last); !ok {
				return false
			}

		default:
			if isAssertionType(patternNode) {
				// pat asserts something prefix doesn't test at this
				// position: pat is more specific here, so skip ahead on
				// pat's side only and retry the same prefixNode.
				mw.advance()
				continue
			}

			switch pv := prefixNode.(type) {
			case *pattern.TokenMatch:
				if !tokensSubset(patternNode.OnlyTokens(), pv.OnlyTokens()) {
					return false
				}

			case *pattern.Children:
				pc, ok := patternNode.(*pattern.Children)
				if !ok {
					return false
				}
				if !IncludesPrefix(pv.Outer(), pc.Outer()) || !IncludesPrefix(pv.Inner(), pc.Inner()) {
					return false
				}

			case *pattern.Any:
				for selfMultiplicity(patternNode) == Zero {
					mw.advance()
					if mw.empty() {
						return false
					}
					patternNode = mw.node()
				}
				if selfMultiplicity(patternNode) != One {
					return false
				}

			case *pattern.Rep:
				pr, ok := patternNode.(*pattern.Rep)
				if !ok {
					return false
				}
				if !IncludesPrefix(pv.Unwrap(), pr.Unwrap()) || !IncludesPrefix(pr.Unwrap(), pv.Unwrap()) {
					return false
				}

			case *pattern.Opt:
				po, ok := patternNode.(*pattern.Opt)
				if !ok {
					return false
				}
				if !IncludesPrefix(pv.Unwrap(), po.Unwrap()) || !IncludesPrefix(po.Unwrap(), pv.Unwrap()) {
					return false
				}

			default:
				return false
			}
		}

		pw.advance()
		mw.advance()
	}

	return pw.empty()
}

// CheckUnreachable scans an ordered rule list for shadowing: if an
// earlier pattern IncludesPrefix's a later one, the later rule can never
// fire, since the earlier rule always matches first and consumes the
// same nodes. Findings are attached to the shadowed (later) pattern.
func CheckUnreachable(patterns []pattern.Pattern) []Finding {
	var findings []Finding

	for i, prefix := range patterns {
		for j := i + 1; j < len(patterns); j++ {
			if IncludesPrefix(prefix, patterns[j]) {
				findings = append(findings, Finding{
					Message: fmt.Sprintf("rule %d is unreachable: shadowed by rule %d's pattern, which matches the same prefix first", j, i),
					Pattern: patterns[j],
				})
			}
		}
	}

	return findings
}
