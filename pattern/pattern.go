// Package pattern implements trieste's algebraic pattern-matching
// combinators: small composable matchers over a Node's sibling list, plus
// the FastPattern summary used to prune rule dispatch before running a
// full match attempt.
package pattern

import (
	"regexp"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/match"
	"github.com/aledsdavies/trieste/token"
)

// Pattern is a single matcher, optionally chained to a continuation that
// runs after it succeeds. Match advances *pos (an index into parent's
// children) and reports whether the whole chain, starting from this
// pattern, succeeded; on failure *pos is left wherever the attempt gave up
// — callers that need to retry reset *pos themselves from a saved start.
type Pattern interface {
	Match(pos *int, parent *ast.Node, m *match.Match) bool
	Clone() Pattern
	HasCapturesLocal() bool
	Continuation() Pattern
	SetContinuation(next Pattern)
	OnlyTokens() []token.Token
	CustomRep() Pattern
}

// HasCaptures reports whether p, or anything in its continuation chain,
// records a capture.
func HasCaptures(p Pattern) bool {
	if p == nil {
		return false
	}
	if p.HasCapturesLocal() {
		return true
	}
	return HasCaptures(p.Continuation())
}

// Unwrapper is implemented by patterns that wrap exactly one nested
// pattern (Cap, Opt, Rep, Not, Pred, NegPred, Action). checker uses it to
// walk the pattern tree without reaching into package-private fields.
type Unwrapper interface {
	Unwrap() Pattern
}

// ChildrenPattern is implemented by Children, whose two nested patterns
// (the outer single-node match and the inner match run against that
// node's own children) can't both fit Unwrapper.
type ChildrenPattern interface {
	Outer() Pattern
	Inner() Pattern
}

// Brancher is implemented by Choice, exposing both alternatives for
// checker's multiplicity analysis.
type Brancher interface {
	Branches() (Pattern, Pattern)
}

// base provides the shared continuation bookkeeping every concrete pattern
// embeds. It is not itself a Pattern.
type base struct {
	continuation Pattern
}

func (b *base) Continuation() Pattern { return b.continuation }

func (b *base) SetContinuation(next Pattern) {
	if b.continuation == nil {
		b.continuation = next
	} else {
		b.continuation.SetContinuation(next)
	}
}

func (b *base) matchContinuation(pos *int, parent *ast.Node, m *match.Match) bool {
	if b.continuation == nil {
		return true
	}
	return b.continuation.Match(pos, parent, m)
}

func (b *base) cloneContinuation() Pattern {
	if b.continuation == nil {
		return nil
	}
	return b.continuation.Clone()
}

func (b *base) HasCapturesLocal() bool { return false }
func (b *base) OnlyTokens() []token.Token { return nil }
func (b *base) CustomRep() Pattern { return nil }

// ---- Any ----

// Any matches a single, arbitrary child node.
type Any struct{ base }

// AnyPattern builds a pattern matching any single node.
func AnyPattern() Pattern { return &Any{} }

func (a *Any) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	if *pos >= parent.Len() {
		return false
	}
	*pos++
	return a.matchContinuation(pos, parent, m)
}

func (a *Any) Clone() Pattern {
	c := &Any{}
	c.continuation = a.cloneContinuation()
	return c
}

// ---- TokenMatch ----

// TokenMatch matches a single child node whose type is one of types.
type TokenMatch struct {
	base
	types []token.Token
}

// T builds a pattern matching a single node of any of the given tokens.
func T(types ...token.Token) Pattern {
	return &TokenMatch{types: types}
}

func (t *TokenMatch) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	if *pos >= parent.Len() {
		return false
	}
	if !parent.At(*pos).Type().In(t.types...) {
		return false
	}
	*pos++
	return t.matchContinuation(pos, parent, m)
}

func (t *TokenMatch) Clone() Pattern {
	c := &TokenMatch{types: append([]token.Token{}, t.types...)}
	c.continuation = t.cloneContinuation()
	return c
}

func (t *TokenMatch) OnlyTokens() []token.Token { return t.types }

// ---- RegexMatch ----

// RegexMatch matches a single child node of the given token whose literal
// text also matches re.
type RegexMatch struct {
	base
	typ token.Token
	re  *regexp.Regexp
}

// TRe builds a pattern matching a single node of typ whose printed text
// matches re.
func TRe(typ token.Token, re *regexp.Regexp) Pattern {
	return &RegexMatch{typ: typ, re: re}
}

func (r *RegexMatch) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	if *pos >= parent.Len() {
		return false
	}
	node := parent.At(*pos)
	if node.Type() != r.typ || !r.re.MatchString(node.Location().View()) {
		return false
	}
	*pos++
	return r.matchContinuation(pos, parent, m)
}

func (r *RegexMatch) Clone() Pattern {
	c := &RegexMatch{typ: r.typ, re: r.re}
	c.continuation = r.cloneContinuation()
	return c
}

func (r *RegexMatch) OnlyTokens() []token.Token { return []token.Token{r.typ} }

// Token returns the token type r matches against.
func (r *RegexMatch) Token() token.Token { return r.typ }

// ---- Cap ----

// Cap runs pattern, then records the span it consumed under name.
type Cap struct {
	base
	name    token.Token
	pattern Pattern
}

// CapName wraps p so that, on success, the nodes it consumed are recorded
// in the Match under name.
func CapName(name token.Token, p Pattern) Pattern {
	return &Cap{name: name, pattern: p}
}

func (c *Cap) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	start := *pos
	if !c.pattern.Match(pos, parent, m) {
		return false
	}
	m.Set(c.name, match.Range(parent.Children()[start:*pos]))
	return c.matchContinuation(pos, parent, m)
}

func (c *Cap) Clone() Pattern {
	cl := &Cap{name: c.name, pattern: c.pattern.Clone()}
	cl.continuation = c.cloneContinuation()
	return cl
}

func (c *Cap) HasCapturesLocal() bool { return true }

// Unwrap returns the pattern c captures the span of.
func (c *Cap) Unwrap() Pattern { return c.pattern }

// Name returns the capture's name.
func (c *Cap) Name() token.Token { return c.name }

// ---- Opt ----

// Opt matches pattern if possible; if it (or the rest of the chain after
// it) fails, falls back to matching nothing and continuing anyway.
type Opt struct {
	base
	pattern Pattern
}

// OptP makes p optional.
func OptP(p Pattern) Pattern {
	return &Opt{pattern: p}
}

func (o *Opt) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	start := *pos
	frame := m.AddFrame()

	if o.pattern.Match(pos, parent, m) && o.matchContinuation(pos, parent, m) {
		return true
	}

	*pos = start
	m.ReturnToFrame(frame)
	return o.matchContinuation(pos, parent, m)
}

func (o *Opt) Clone() Pattern {
	c := &Opt{pattern: o.pattern.Clone()}
	c.continuation = o.cloneContinuation()
	return c
}

// Unwrap returns the optional pattern.
func (o *Opt) Unwrap() Pattern { return o.pattern }

// ---- Rep ----

// Rep greedily repeats pattern zero or more times, with no backtracking
// over the repeat count. pattern must not contain captures: since there is
// no backtracking, a capture inside a repetition would be overwritten on
// every iteration with no way to recover an earlier one.
type Rep struct {
	base
	pattern Pattern
}

// RepP repeats p greedily. If p provides a CustomRep (e.g. Rep(Rep(x)) or
// Rep(Inside(x))), that replacement is used instead of wrapping in Rep.
// Panics if p contains captures.
func RepP(p Pattern) Pattern {
	if custom := p.CustomRep(); custom != nil {
		return custom
	}
	if HasCaptures(p) {
		panic("pattern: Rep cannot contain captures")
	}
	return &Rep{pattern: p}
}

func (r *Rep) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	for r.pattern.Match(pos, parent, m) {
	}
	return r.matchContinuation(pos, parent, m)
}

func (r *Rep) Clone() Pattern {
	c := &Rep{pattern: r.pattern.Clone()}
	c.continuation = r.cloneContinuation()
	return c
}

func (r *Rep) CustomRep() Pattern {
	// Rep(Rep(p)) collapses to Rep(p).
	return &Rep{pattern: r.pattern.Clone()}
}

// Unwrap returns the repeated pattern.
func (r *Rep) Unwrap() Pattern { return r.pattern }

// ---- Not ----

// Not matches and consumes exactly one node, provided pattern does NOT
// match at the current position. pattern must not contain captures or Rep.
type Not struct {
	base
	pattern Pattern
}

// NotP builds a negative-lookahead-then-consume-one pattern. Panics if p
// contains captures.
func NotP(p Pattern) Pattern {
	if HasCaptures(p) {
		panic("pattern: Not cannot contain captures")
	}
	return &Not{pattern: p}
}

func (n *Not) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	if *pos >= parent.Len() {
		return false
	}

	save := *pos
	frame := m.AddFrame()
	matched := n.pattern.Match(pos, parent, m)
	*pos = save
	m.ReturnToFrame(frame)

	if matched {
		return false
	}

	*pos++
	return n.matchContinuation(pos, parent, m)
}

func (n *Not) Clone() Pattern {
	c := &Not{pattern: n.pattern.Clone()}
	c.continuation = n.cloneContinuation()
	return c
}

func (n *Not) CustomRep() Pattern {
	panic("pattern: cannot repeat Not")
}

// Unwrap returns the pattern being negated.
func (n *Not) Unwrap() Pattern { return n.pattern }

// ---- Choice ----

// Choice tries first; if first (or the rest of the chain after it) fails,
// backtracks and tries second instead.
type Choice struct {
	base
	first, second Pattern
}

// Or builds a choice between a and b. If both sides are pure token
// matches with no continuation of their own, they are merged into a
// single TokenMatch instead of a Choice node.
func Or(a, b Pattern) Pattern {
	at, aOK := a.(*TokenMatch)
	bt, bOK := b.(*TokenMatch)
	if aOK && bOK && at.continuation == nil && bt.continuation == nil {
		return T(append(append([]token.Token{}, at.types...), bt.types...)...)
	}
	return &Choice{first: a, second: b}
}

func (c *Choice) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	start := *pos
	frame := m.AddFrame()

	if c.first.Match(pos, parent, m) && c.matchContinuation(pos, parent, m) {
		return true
	}

	*pos = start
	m.ReturnToFrame(frame)

	if c.second.Match(pos, parent, m) && c.matchContinuation(pos, parent, m) {
		return true
	}

	*pos = start
	m.ReturnToFrame(frame)
	return false
}

func (c *Choice) Clone() Pattern {
	cl := &Choice{first: c.first.Clone(), second: c.second.Clone()}
	cl.continuation = c.cloneContinuation()
	return cl
}

func (c *Choice) HasCapturesLocal() bool {
	return HasCaptures(c.first) || HasCaptures(c.second)
}

// Branches returns both alternatives of the choice.
func (c *Choice) Branches() (Pattern, Pattern) { return c.first, c.second }

// ---- Seq (continuation chaining) ----

// Seq chains patterns one after another: p1 must match, then p2 at the
// resulting position, and so on. Mirrors the original's clone-and-set-
// continuation behavior for its `operator*`.
func Seq(patterns ...Pattern) Pattern {
	if len(patterns) == 0 {
		panic("pattern: Seq requires at least one pattern")
	}
	head := patterns[0].Clone()
	cur := head
	for _, p := range patterns[1:] {
		cur.SetContinuation(p.Clone())
	}
	return head
}

// ---- Children ----

// Children matches a single node with outer, then matches inner against
// that node's own children from the beginning.
type Children struct {
	base
	outer, inner Pattern
}

// ChildrenP builds a pattern matching one node (per outer) whose children
// (from the start) satisfy inner.
func ChildrenP(outer, inner Pattern) Pattern {
	return &Children{outer: outer, inner: inner}
}

func (c *Children) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	start := *pos
	if !c.outer.Match(pos, parent, m) {
		return false
	}
	if *pos != start+1 {
		// outer must match exactly one node for "its children" to be
		// well defined.
		*pos = start
		return false
	}

	node := parent.At(start)
	innerPos := 0
	if !c.inner.Match(&innerPos, node, m) {
		*pos = start
		return false
	}

	return c.matchContinuation(pos, parent, m)
}

func (c *Children) Clone() Pattern {
	cl := &Children{outer: c.outer.Clone(), inner: c.inner.Clone()}
	cl.continuation = c.cloneContinuation()
	return cl
}

func (c *Children) HasCapturesLocal() bool {
	return HasCaptures(c.outer) || HasCaptures(c.inner)
}

// Outer returns the pattern matched against the node itself.
func (c *Children) Outer() Pattern { return c.outer }

// Inner returns the pattern matched against that node's own children.
func (c *Children) Inner() Pattern { return c.inner }

// ---- Inside / InsideStar ----

// Inside is a zero-width assertion that the immediately enclosing node
// (the parent whose children are being matched) is one of types.
type Inside struct {
	base
	types []token.Token
}

// In builds an Inside assertion.
func In(types ...token.Token) Pattern {
	return &Inside{types: types}
}

func (i *Inside) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	if !parent.Type().In(i.types...) {
		return false
	}
	return i.matchContinuation(pos, parent, m)
}

func (i *Inside) Clone() Pattern {
	c := &Inside{types: append([]token.Token{}, i.types...)}
	c.continuation = i.cloneContinuation()
	return c
}

func (i *Inside) OnlyTokens() []token.Token { return i.types }

func (i *Inside) CustomRep() Pattern {
	if i.continuation != nil {
		return nil
	}
	c := &InsideStar{types: append([]token.Token{}, i.types...)}
	return c
}

// InsideStar is a zero-width assertion that some ancestor (at any depth)
// is one of types.
type InsideStar struct {
	base
	types []token.Token
}

func (i *InsideStar) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	for p := parent; p != nil; p = p.Parent() {
		if p.Type().In(i.types...) {
			return i.matchContinuation(pos, parent, m)
		}
	}
	return false
}

func (i *InsideStar) Clone() Pattern {
	c := &InsideStar{types: append([]token.Token{}, i.types...)}
	c.continuation = i.cloneContinuation()
	return c
}

func (i *InsideStar) OnlyTokens() []token.Token { return i.types }

func (i *InsideStar) CustomRep() Pattern {
	panic("pattern: cannot repeat InsideStar (already a repeated ancestor search)")
}

// ---- First / Last ----

// First is a zero-width assertion that pos is at the start of parent's
// children.
type First struct{ base }

// StartPattern matches only at the beginning of the sibling list.
func StartPattern() Pattern { return &First{} }

func (f *First) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	if *pos != 0 {
		return false
	}
	return f.matchContinuation(pos, parent, m)
}

func (f *First) Clone() Pattern {
	c := &First{}
	c.continuation = f.cloneContinuation()
	return c
}

func (f *First) CustomRep() Pattern { panic("pattern: cannot repeat First") }

// Last is a zero-width assertion that pos is at the end of parent's
// children.
type Last struct{ base }

// EndPattern matches only at the end of the sibling list.
func EndPattern() Pattern { return &Last{} }

func (l *Last) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	if *pos != parent.Len() {
		return false
	}
	return l.matchContinuation(pos, parent, m)
}

func (l *Last) Clone() Pattern {
	c := &Last{}
	c.continuation = l.cloneContinuation()
	return c
}

func (l *Last) CustomRep() Pattern { panic("pattern: cannot repeat Last") }

// ---- Pred / NegPred ----

// Pred is a zero-width positive lookahead: pattern must match, but no
// position is consumed. pattern must not contain captures.
type Pred struct {
	base
	pattern Pattern
}

// PredP builds a positive lookahead. Panics if p contains captures.
func PredP(p Pattern) Pattern {
	if HasCaptures(p) {
		panic("pattern: Pred cannot contain captures")
	}
	return &Pred{pattern: p}
}

func (p *Pred) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	save := *pos
	frame := m.AddFrame()
	ok := p.pattern.Match(pos, parent, m)
	*pos = save
	m.ReturnToFrame(frame)

	if !ok {
		return false
	}
	return p.matchContinuation(pos, parent, m)
}

func (p *Pred) Clone() Pattern {
	c := &Pred{pattern: p.pattern.Clone()}
	c.continuation = p.cloneContinuation()
	return c
}

func (p *Pred) CustomRep() Pattern { panic("pattern: cannot repeat a predicate") }

// Unwrap returns the pattern being tested.
func (p *Pred) Unwrap() Pattern { return p.pattern }

// NegPred is a zero-width negative lookahead: pattern must NOT match.
// pattern must not contain captures.
type NegPred struct {
	base
	pattern Pattern
}

// NegPredP builds a negative lookahead. Panics if p contains captures.
func NegPredP(p Pattern) Pattern {
	if HasCaptures(p) {
		panic("pattern: NegPred cannot contain captures")
	}
	return &NegPred{pattern: p}
}

func (p *NegPred) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	save := *pos
	frame := m.AddFrame()
	ok := p.pattern.Match(pos, parent, m)
	*pos = save
	m.ReturnToFrame(frame)

	if ok {
		return false
	}
	return p.matchContinuation(pos, parent, m)
}

func (p *NegPred) Clone() Pattern {
	c := &NegPred{pattern: p.pattern.Clone()}
	c.continuation = p.cloneContinuation()
	return c
}

func (p *NegPred) CustomRep() Pattern { panic("pattern: cannot repeat a predicate") }

// Unwrap returns the pattern being tested.
func (p *NegPred) Unwrap() Pattern { return p.pattern }

// ---- Action ----

// Action runs pattern, then calls effect with the matched range; if effect
// returns false, the whole Action fails as if pattern itself had failed.
type Action struct {
	base
	pattern Pattern
	effect  func(match.Range) bool
}

// ActionP attaches a side-effecting predicate to p, run over the range p
// matched.
func ActionP(p Pattern, effect func(match.Range) bool) Pattern {
	return &Action{pattern: p, effect: effect}
}

func (a *Action) Match(pos *int, parent *ast.Node, m *match.Match) bool {
	start := *pos
	if !a.pattern.Match(pos, parent, m) {
		return false
	}
	if !a.effect(parent.Children()[start:*pos]) {
		return false
	}
	return a.matchContinuation(pos, parent, m)
}

func (a *Action) Clone() Pattern {
	c := &Action{pattern: a.pattern.Clone(), effect: a.effect}
	c.continuation = a.cloneContinuation()
	return c
}

func (a *Action) HasCapturesLocal() bool {
	return HasCaptures(a.pattern)
}

// Unwrap returns the pattern the action runs.
func (a *Action) Unwrap() Pattern { return a.pattern }
