// Package wf describes the well-formedness of a tree: which token a node
// may have as a parent's child, how many children it may have and of what
// type, and how those children bind into the symbol table. A Wellformed
// value is attached to each pass so the driver can check its output and
// detect a pass that produced an ill-shaped tree.
//
// The original C++ implementation builds this as a compile-time DSL of
// consteval operator overloads (wf::ops) so shapes are checked entirely at
// build time. Go has no consteval equivalent, and reproducing the operator
// DSL with run-time types would just be obfuscation; this package instead
// exposes an ordinary data structure (Shape, Fields, Sequence, Wellformed)
// built with plain constructors and composed with Wellformed.Compose.
package wf

import (
	"fmt"
	"math/rand/v2"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/token"
)

// Choice is the set of token types a child may have.
type Choice []token.Token

func (c Choice) check(node *ast.Node, errs *[]string) bool {
	if node.Type() == token.Error {
		return true
	}

	for _, t := range c {
		if node.Type() == t {
			return true
		}
	}

	*errs = append(*errs, fmt.Sprintf(
		"%sunexpected %s, expected one of %v\n%s",
		node.Location().OriginLineCol(), node.Type(), []token.Token(c), node.Location().Str(),
	))
	return false
}

func (c Choice) gen(g *Gen, depth int, node *ast.Node) {
	var t token.Token
	if depth < g.maxDepth {
		t = c[g.next()%uint32(len(c))]
	} else {
		var filtered []token.Token
		for _, cand := range c {
			if !g.nonterminals[cand] {
				filtered = append(filtered, cand)
			}
		}
		if len(filtered) == 0 {
			t = c[g.next()%uint32(len(c))]
		} else {
			t = filtered[g.next()%uint32(len(filtered))]
		}
	}

	child := ast.NewWithLocation(t, node.Fresh())
	node.PushBack(child)
}

func (c Choice) findType(name string) (token.Token, bool) {
	for _, t := range c {
		if t.String() == name {
			return t, true
		}
	}
	return token.Invalid, false
}

// Gen drives random tree generation: a seeded PRNG plus the set of
// nonterminal token types known across the whole Wellformed, consulted
// once generation has passed its depth budget so it can prefer a
// terminal alternative and let recursion end.
type Gen struct {
	rand         *rand.Rand
	maxDepth     int
	nonterminals map[token.Token]bool
}

// NewGen seeds a generator. Reusing the same seed and max depth against
// the same Wellformed reproduces the same tree.
func NewGen(seed uint64, maxDepth int) *Gen {
	return &Gen{
		rand:         rand.New(rand.NewPCG(seed, seed)),
		maxDepth:     maxDepth,
		nonterminals: make(map[token.Token]bool),
	}
}

func (g *Gen) next() uint32 {
	return g.rand.Uint32()
}

// Shape is a node's children grammar: either Fields (a fixed positional
// tuple) or a Sequence (zero or more children of the same choice).
type Shape interface {
	check(node *ast.Node, errs *[]string) bool
	gen(g *Gen, depth int, node *ast.Node)
	buildSymtab(node *ast.Node)
	terminal() bool
	findType(name string) (token.Token, bool)
	allTypes() []token.Token
}

// Field names one positional child and the set of types it may hold.
type Field struct {
	Name  token.Token
	Types Choice
}

// Fields is a fixed-arity positional shape: child i must satisfy
// Fields[i].Types, and no other children are permitted. Binding names
// which field (if any) a node must bind itself under in the parent's
// symbol table, or token.Include if the node is an include directive.
type Fields struct {
	Fields  []Field
	Binding token.Token
}

// NewFields builds a Fields shape with no binding.
func NewFields(fields ...Field) Fields {
	return Fields{Fields: fields, Binding: token.Invalid}
}

// Bound returns a copy of f with the given binding field or token.Include.
func (f Fields) Bound(binding token.Token) Fields {
	f.Binding = binding
	return f
}

func (f Fields) terminal() bool { return len(f.Fields) == 0 }

func (f Fields) check(node *ast.Node, errs *[]string) bool {
	ok := true
	children := node.Children()

	for i, field := range f.Fields {
		if i >= len(children) {
			*errs = append(*errs, fmt.Sprintf(
				"%stoo few child nodes in %s\n%s",
				node.Location().OriginLineCol(), node.Type(), node.Location().Str(),
			))
			return false
		}

		child := children[i]
		ok = field.Types.check(child, errs) && ok

		if f.Binding != token.Invalid && field.Name == f.Binding {
			defs := child.Lookup(nil)
			found := false
			for _, d := range defs {
				if d == node {
					found = true
					break
				}
			}
			if !found {
				*errs = append(*errs, fmt.Sprintf(
					"%smissing symbol table binding for %s\n%s",
					child.Location().OriginLineCol(), node.Type(), child.Location().Str(),
				))
				ok = false
			}
		}
	}

	if len(children) > len(f.Fields) {
		extra := children[len(f.Fields)]
		*errs = append(*errs, fmt.Sprintf(
			"%stoo many child nodes in %s\n%s",
			extra.Location().OriginLineCol(), node.Type(), extra.Location().Str(),
		))
		ok = false
	}

	return ok
}

func (f Fields) gen(g *Gen, depth int, node *ast.Node) {
	for _, field := range f.Fields {
		field.Types.gen(g, depth, node)
		if f.Binding != token.Invalid && f.Binding == field.Name {
			node.Bind(node.Back().Location())
		}
	}
}

func (f Fields) buildSymtab(node *ast.Node) {
	switch {
	case f.Binding == token.Include:
		node.Include()
	case f.Binding != token.Invalid:
		for i, field := range f.Fields {
			if field.Name == f.Binding {
				node.Bind(node.At(i).Location())
				return
			}
		}
	}
}

func (f Fields) findType(name string) (token.Token, bool) {
	for _, field := range f.Fields {
		if t, ok := field.Types.findType(name); ok {
			return t, true
		}
	}
	return token.Invalid, false
}

func (f Fields) allTypes() []token.Token {
	var out []token.Token
	for _, field := range f.Fields {
		out = append(out, field.Types...)
	}
	return out
}

// Sequence is a variable-arity shape: every child must satisfy Types, and
// there must be at least MinLen of them. Binding is either token.Invalid
// (no binding) or token.Include; a Sequence cannot bind a single child by
// name the way Fields can.
type Sequence struct {
	Types   Choice
	MinLen  int
	Binding token.Token
}

// NewSequence builds a Sequence shape with no minimum length and no
// binding.
func NewSequence(types ...token.Token) Sequence {
	return Sequence{Types: Choice(types), Binding: token.Invalid}
}

// Min returns a copy of s requiring at least n children.
func (s Sequence) Min(n int) Sequence {
	s.MinLen = n
	return s
}

// Included returns a copy of s that registers its node as an include.
func (s Sequence) Included() Sequence {
	s.Binding = token.Include
	return s
}

func (s Sequence) terminal() bool { return false }

func (s Sequence) check(node *ast.Node, errs *[]string) bool {
	ok := true
	for _, child := range node.Children() {
		ok = s.Types.check(child, errs) && ok
	}

	if node.Len() < s.MinLen {
		*errs = append(*errs, fmt.Sprintf(
			"%sexpected at least %d children, found %d\n%s",
			node.Location().OriginLineCol(), s.MinLen, node.Len(), node.Location().Str(),
		))
		ok = false
	}

	if s.Binding != token.Invalid && s.Binding != token.Include {
		*errs = append(*errs, fmt.Sprintf(
			"%scan't bind a %s sequence in the symbol table\n%s",
			node.Location().OriginLineCol(), node.Type(), node.Location().Str(),
		))
		ok = false
	}

	return ok
}

func (s Sequence) gen(g *Gen, depth int, node *ast.Node) {
	for i := 0; i < s.MinLen; i++ {
		s.Types.gen(g, depth, node)
	}
	for g.next()%2 == 1 {
		s.Types.gen(g, depth, node)
	}
}

func (s Sequence) buildSymtab(node *ast.Node) {
	if s.Binding == token.Include {
		node.Include()
	}
}

func (s Sequence) findType(name string) (token.Token, bool) {
	return s.Types.findType(name)
}

func (s Sequence) allTypes() []token.Token {
	return append([]token.Token(nil), s.Types...)
}

// entry pairs a node type with the shape its children must satisfy.
type entry struct {
	Type  token.Token
	Shape Shape
}

// Wellformed is an ordered list of (type, shape) entries, checked from the
// end backwards: a later entry for the same type overrides an earlier one,
// so composing a pass's redefinition of a node's shape onto a base
// Wellformed works by simple append.
type Wellformed struct {
	entries []entry
}

// Entry pairs a token with the shape of its children, for use with New.
type Entry struct {
	Type  token.Token
	Shape Shape
}

// New builds a Wellformed from an ordered list of entries.
func New(entries ...Entry) Wellformed {
	w := Wellformed{entries: make([]entry, len(entries))}
	for i, e := range entries {
		w.entries[i] = entry(e)
	}
	return w
}

// Compose appends other's entries after w's, so other's shapes take
// priority over w's for any type both define.
func (w Wellformed) Compose(other Wellformed) Wellformed {
	combined := make([]entry, 0, len(w.entries)+len(other.entries))
	combined = append(combined, w.entries...)
	combined = append(combined, other.entries...)
	return Wellformed{entries: combined}
}

func (w Wellformed) find(t token.Token) (Shape, bool) {
	for i := len(w.entries) - 1; i >= 0; i-- {
		if w.entries[i].Type == t {
			return w.entries[i].Shape, true
		}
	}
	return nil, false
}

func (w Wellformed) nonterminals() map[token.Token]bool {
	set := make(map[token.Token]bool)
	for _, e := range w.entries {
		if !e.Shape.terminal() {
			set[e.Type] = true
		}
	}
	return set
}

// Check reports whether node and its whole subtree conform to w, returning
// every violation found (not just the first). An Error node is always
// considered well-formed, since it represents a diagnostic already raised
// elsewhere in the pipeline.
func (w Wellformed) Check(node *ast.Node) (bool, []string) {
	var errs []string
	ok := w.check(node, &errs)
	return ok, errs
}

func (w Wellformed) check(node *ast.Node, errs *[]string) bool {
	if node == nil {
		return false
	}
	if node.Type() == token.Error {
		return true
	}

	ok := true
	if shape, found := w.find(node.Type()); found {
		ok = shape.check(node, errs)
	} else if !node.Empty() {
		*errs = append(*errs, fmt.Sprintf(
			"%stoo many child nodes in %s\n%s",
			node.Location().OriginLineCol(), node.Type(), node.Location().Str(),
		))
		ok = false
	}

	for _, child := range node.Children() {
		ok = w.check(child, errs) && ok
	}

	return ok
}

// Gen builds a random Top-rooted tree conforming to w.
func (w Wellformed) Gen(seed uint64, maxDepth int) *ast.Node {
	g := NewGen(seed, maxDepth)
	g.nonterminals = w.nonterminals()

	node := ast.New(token.Top)
	w.genAt(g, 0, node)
	return node
}

func (w Wellformed) genAt(g *Gen, depth int, node *ast.Node) {
	shape, found := w.find(node.Type())
	if !found {
		return
	}

	shape.gen(g, depth, node)
	for _, child := range node.Children() {
		w.genAt(g, depth+1, child)
	}
}

// BuildSymtab rebuilds the symbol table for node and its whole subtree
// from scratch, per w's bindings. Error nodes are left untouched.
func (w Wellformed) BuildSymtab(node *ast.Node) {
	if node.Type() == token.Error {
		return
	}

	node.ClearSymbols()
	if shape, found := w.find(node.Type()); found {
		shape.buildSymtab(node)
	}

	for _, child := range node.Children() {
		w.BuildSymtab(child)
	}
}

// Contains reports whether t appears anywhere in w: as an entry's own
// type, or as a type referenced by any entry's shape. Used by checker to
// confirm a pattern only matches on tokens the surrounding pipeline
// actually produces.
func (w Wellformed) Contains(t token.Token) bool {
	for _, e := range w.entries {
		if e.Type == t {
			return true
		}
		for _, candidate := range e.Shape.allTypes() {
			if candidate == t {
				return true
			}
		}
	}
	return false
}

// Resolver returns an ast.Resolver that recognizes every token type named
// anywhere in w, for use with ast.BuildAST. Unlike the original's
// per-nonterminal scoped find_type_i, this resolves names against a
// single flat table built once; see ast/parse.go for why that
// simplification is sound here.
func (w Wellformed) Resolver() ast.Resolver {
	table := make(map[string]token.Token)
	for _, e := range w.entries {
		table[e.Type.String()] = e.Type
		for _, t := range e.Shape.allTypes() {
			table[t.String()] = t
		}
	}
	return func(name string) (token.Token, bool) {
		t, ok := table[name]
		return t, ok
	}
}
