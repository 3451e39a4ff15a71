// Package ast implements the tagged tree that trieste rewrites: Node values
// carry a token, a source location, an optional symbol table, and a slice
// of children, plus a non-owning pointer back to their most recent parent.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aledsdavies/trieste/source"
	"github.com/aledsdavies/trieste/token"
)

// Node is a single tree node. The zero value is not useful; build nodes
// with New or NewWithRange.
type Node struct {
	tok      token.Token
	location source.Location
	symtab   *Symtab
	parent   *Node
	children []*Node
}

// Index names a single field of a node by the token the node must have to
// make that index meaningful — resolved against a node by AtIndex.
type Index struct {
	Type  token.Token
	Index int
}

// New creates a detached node with no location.
func New(t token.Token) *Node {
	return newNode(t, source.Location{})
}

// NewWithLocation creates a detached node at a specific source location.
func NewWithLocation(t token.Token, loc source.Location) *Node {
	return newNode(t, loc)
}

// NewWithRange creates a node whose location spans every node between first
// and last, inclusive. If the range is empty the node gets no location.
func NewWithRange(t token.Token, nodes []*Node) *Node {
	if len(nodes) == 0 {
		return New(t)
	}
	loc := nodes[0].location
	for _, n := range nodes[1:] {
		loc = loc.Union(n.location)
	}
	return newNode(t, loc)
}

func newNode(t token.Token, loc source.Location) *Node {
	n := &Node{tok: t, location: loc}
	if t.Has(token.FlagSymtab) {
		n.symtab = newSymtab()
	}
	return n
}

// Type returns the node's token.
func (n *Node) Type() token.Token {
	return n.tok
}

// Location returns the node's source location.
func (n *Node) Location() source.Location {
	return n.location
}

// SetLocation assigns a location to this node and, recursively, to every
// descendant that doesn't already have one. Used when a node is created
// without position information ahead of being spliced into a located tree.
func (n *Node) SetLocation(loc source.Location) {
	if n.location.Source == nil {
		n.location = loc
	}
	for _, c := range n.children {
		c.SetLocation(loc)
	}
}

// Extend unions loc into the node's current location.
func (n *Node) Extend(loc source.Location) {
	n.location = n.location.Union(loc)
}

// Parent returns the node's most recent parent, or nil at the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// ParentOfType walks up from n looking for the nearest ancestor with the
// given token.
func (n *Node) ParentOfType(t token.Token) *Node {
	p := n.parent
	for p != nil {
		if p.tok == t {
			return p
		}
		p = p.parent
	}
	return nil
}

// Children returns the node's children. Callers must not retain the slice
// across a mutation of n; use the accessor methods below to mutate safely.
func (n *Node) Children() []*Node {
	return n.children
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.children)
}

// Empty reports whether the node has no children.
func (n *Node) Empty() bool {
	return len(n.children) == 0
}

// At returns the child at index, panicking if out of range — mirroring the
// original's vector::at bounds-checked access, which is a programmer error
// if it fails.
func (n *Node) At(index int) *Node {
	return n.children[index]
}

// AtIndex resolves one of several (Token, index) pairs: the first pair
// whose Token matches n's own type selects which index to use. Panics if
// none match, matching the original's "invalid index" runtime_error.
func (n *Node) AtIndex(indices ...Index) *Node {
	for _, idx := range indices {
		if idx.Type == n.tok {
			return n.children[idx.Index]
		}
	}
	panic("ast: invalid index")
}

// Front returns the first child.
func (n *Node) Front() *Node {
	return n.children[0]
}

// Back returns the last child.
func (n *Node) Back() *Node {
	return n.children[len(n.children)-1]
}

// PushFront inserts node as the new first child. A nil node is a no-op.
func (n *Node) PushFront(node *Node) {
	if node == nil {
		return
	}
	n.children = append([]*Node{node}, n.children...)
	node.parent = n
}

// PushBack appends node as the new last child. A nil node is a no-op.
func (n *Node) PushBack(node *Node) {
	if node == nil {
		return
	}
	n.children = append(n.children, node)
	node.parent = n
}

// PushBackAll appends every node in nodes, in order.
func (n *Node) PushBackAll(nodes []*Node) {
	for _, c := range nodes {
		n.PushBack(c)
	}
}

// PopBack removes and returns the last child, clearing its parent pointer.
// Returns nil if the node has no children.
func (n *Node) PopBack() *Node {
	if len(n.children) == 0 {
		return nil
	}
	last := n.children[len(n.children)-1]
	n.children = n.children[:len(n.children)-1]
	last.parent = nil
	return last
}

// Erase removes children[first:last], clearing the parent pointer of any
// removed child that still points back at n — a shared child reinserted
// elsewhere in the meantime keeps its newer parent.
func (n *Node) Erase(first, last int) {
	for i := first; i < last; i++ {
		if n.children[i].parent == n {
			n.children[i].parent = nil
		}
	}
	n.children = append(n.children[:first], n.children[last:]...)
}

// Insert splices node into the child list at pos.
func (n *Node) Insert(pos int, node *Node) {
	if node == nil {
		return
	}
	node.parent = n
	n.children = append(n.children, nil)
	copy(n.children[pos+1:], n.children[pos:])
	n.children[pos] = node
}

// InsertAll splices nodes into the child list at pos, preserving order.
func (n *Node) InsertAll(pos int, nodes []*Node) {
	if len(nodes) == 0 {
		return
	}
	for _, c := range nodes {
		c.parent = n
	}
	n.children = append(n.children[:pos], append(append([]*Node{}, nodes...), n.children[pos:]...)...)
}

// Scope returns the nearest ancestor (not including n) that carries a
// symbol table.
func (n *Node) Scope() *Node {
	p := n.parent
	for p != nil {
		if p.symtab != nil {
			return p
		}
		p = p.parent
	}
	return nil
}

// Fresh returns a unique (not merely random) identifier, minted from the
// root Top node's symbol table counter. Panics if the tree's root is not a
// Top node.
func (n *Node) Fresh() source.Location {
	p := n
	for p.parent != nil {
		p = p.parent
	}
	if p.tok != token.Top {
		panic("ast: fresh requires a Top root")
	}
	return p.symtab.fresh()
}

// Clone deep-copies the subtree rooted at n. The symbol table is not
// reproduced in the clone; callers that need bindings must rebuild them
// (wf.BuildSymtab).
func (n *Node) Clone() *Node {
	c := newNode(n.tok, n.location)
	for _, child := range n.children {
		c.PushBack(child.Clone())
	}
	return c
}

// Replace swaps node1 for node2 among n's children, or removes node1 if
// node2 is nil. Panics if node1 is not a child of n.
func (n *Node) Replace(node1, node2 *Node) {
	for i, c := range n.children {
		if c == node1 {
			if node2 != nil {
				node1.parent = nil
				node2.parent = n
				n.children[i] = node2
			} else {
				n.children = append(n.children[:i], n.children[i+1:]...)
			}
			return
		}
	}
	panic("ast: node not found")
}

// String renders the node in trieste's canonical printed-AST format:
// parenthesized, with an optional netstring-encoded location and symbol
// table dump.
func (n *Node) String() string {
	var b strings.Builder
	n.print(&b, 0)
	return b.String()
}

func (n *Node) print(b *strings.Builder, level int) {
	writeIndent(b, level)
	fmt.Fprintf(b, "(%s", n.tok.String())

	if n.tok.Has(token.FlagPrint) {
		view := n.location.View()
		fmt.Fprintf(b, " %d:%s", len(view), view)
	}

	if n.symtab != nil {
		b.WriteByte('\n')
		n.symtab.print(b, level+1)
	}

	for _, c := range n.children {
		b.WriteByte('\n')
		c.print(b, level+1)
	}

	b.WriteByte(')')
}

func writeIndent(b *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

// Errors collects every Error-tagged node in the subtree rooted at n, in
// depth-first order. Unlike the original C++ implementation, this performs
// a full traversal rather than stopping at the first Error found per
// branch, so every diagnostic in the tree is reported.
func (n *Node) Errors() []*Node {
	var out []*Node
	n.collectErrors(&out)
	return out
}

func (n *Node) collectErrors(out *[]*Node) {
	for _, c := range n.children {
		c.collectErrors(out)
	}
	if n.tok == token.Error {
		*out = append(*out, n)
	}
}

// FormatError renders one Error node as "origin:line:col message\n<excerpt>",
// matching the original's errors(out) rendering. Panics if n is not an
// Error node or doesn't have the expected two children (message, ast).
func FormatError(n *Node) string {
	if n.tok != token.Error {
		panic("ast: FormatError requires an Error node")
	}
	msg := n.children[0]
	errAst := n.children[1]

	var b strings.Builder
	prefix := errAst.Location().OriginLineCol()
	if prefix != "" {
		prefix += " "
	}
	fmt.Fprintf(&b, "%s%s\n", prefix, msg.Location().View())
	b.WriteString(errAst.Location().Str())
	b.WriteByte('\n')
	return b.String()
}

// Symtab is a node's symbol table: a map from binding-site location to the
// nodes bound there, plus an includes list and a monotonic fresh-name
// counter.
type Symtab struct {
	symbols  map[string][]*Node
	order    []string // insertion order of symbols keys, for deterministic printing
	includes []*Node
	nextID   int
}

func newSymtab() *Symtab {
	return &Symtab{symbols: make(map[string][]*Node)}
}

func (s *Symtab) fresh() source.Location {
	loc := source.FromString(fmt.Sprintf("$%d", s.nextID))
	s.nextID++
	return loc
}

// Clear empties the symbol table without resetting the fresh-name counter,
// so identifiers already minted are never reused.
func (s *Symtab) Clear() {
	s.symbols = make(map[string][]*Node)
	s.order = nil
	s.includes = nil
}

func (s *Symtab) getSymbols(key string, pred func(*Node) bool) []*Node {
	nodes, ok := s.symbols[key]
	if !ok {
		return nil
	}
	var out []*Node
	for _, n := range nodes {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Symtab) getAllSymbols(pred func(*Node) bool) []*Node {
	var out []*Node
	for _, key := range s.order {
		for _, n := range s.symbols[key] {
			if pred(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// GetSymbols returns every bound node in n's symbol table matching pred.
func (n *Node) GetSymbols(pred func(*Node) bool) []*Node {
	if n.symtab == nil {
		return nil
	}
	return n.symtab.getAllSymbols(pred)
}

// GetSymbolsAt returns the nodes bound at loc's text matching pred.
func (n *Node) GetSymbolsAt(loc source.Location, pred func(*Node) bool) []*Node {
	if n.symtab == nil {
		return nil
	}
	return n.symtab.getSymbols(loc.View(), pred)
}

// ClearSymbols empties this node's own symbol table, if it has one.
func (n *Node) ClearSymbols() {
	if n.symtab != nil {
		n.symtab.Clear()
	}
}

// HasSymtab reports whether n carries its own symbol table.
func (n *Node) HasSymtab() bool {
	return n.symtab != nil
}

// Lookup performs upward symbol resolution starting from n's own location,
// stopping at (and including) until, or at the root if until is nil.
func (n *Node) Lookup(until *Node) []*Node {
	return n.LookupAt(n.location, until)
}

// LookupAt performs upward symbol resolution for loc, starting in n's
// enclosing scope.
func (n *Node) LookupAt(loc source.Location, until *Node) []*Node {
	st := n.Scope()
	if st == nil {
		return nil
	}
	return st.lookupFrom(loc, until)
}

func (n *Node) lookupFrom(loc source.Location, until *Node) []*Node {
	defBeforeUse := n.tok.Has(token.FlagDefBeforeUse)

	result := n.GetSymbolsAt(loc, func(c *Node) bool {
		if !c.tok.Has(token.FlagLookup) {
			return false
		}
		if defBeforeUse && !locationBefore(c.location, loc) {
			return false
		}
		return true
	})

	result = append(result, n.symtab.includes...)

	if defBeforeUse {
		sort.SliceStable(result, func(i, j int) bool {
			return locationBefore(result[j].location, result[i].location)
		})
	}

	shadowed := false
	for _, r := range result {
		if r.tok.Has(token.FlagShadowing) {
			shadowed = true
			break
		}
	}

	if n != until && !shadowed {
		parentScope := n.Scope()
		if parentScope != nil {
			result = append(result, parentScope.lookupFrom(loc, until)...)
		}
	}

	return result
}

// locationBefore reports whether a's start position precedes b's, within
// the same source. Locations from different sources compare as "not
// before" in either direction.
func locationBefore(a, b source.Location) bool {
	if a.Source != b.Source {
		return false
	}
	return a.Pos < b.Pos
}

// Lookdown performs scoped (non-recursive, include-ignoring) resolution in
// n's own symbol table for loc.
func (n *Node) Lookdown(loc source.Location) []*Node {
	if n.symtab == nil {
		return nil
	}
	return n.GetSymbolsAt(loc, func(c *Node) bool {
		return c.tok.Has(token.FlagLookdown)
	})
}

// Look returns every node bound at loc in n's own symbol table, ignoring
// the lookup/lookdown flags entirely.
func (n *Node) Look(loc source.Location) []*Node {
	if n.symtab == nil {
		return nil
	}
	return n.GetSymbolsAt(loc, func(*Node) bool { return true })
}

// Bind registers n in the nearest enclosing symbol table under loc,
// reporting whether the binding is non-shadowing (true) or conflicts with
// an existing shadowing definition at the same location (false). Panics if
// there is no enclosing symbol table.
func (n *Node) Bind(loc source.Location) bool {
	st := n.Scope()
	if st == nil {
		panic("ast: no symbol table")
	}

	key := loc.View()
	st.symtab.symbols[key] = append(st.symtab.symbols[key], n)
	if len(st.symtab.symbols[key]) == 1 {
		st.symtab.order = append(st.symtab.order, key)
	}
	entry := st.symtab.symbols[key]

	if len(entry) == 1 {
		return true
	}
	for _, e := range entry {
		if e.tok.Has(token.FlagShadowing) {
			return false
		}
	}
	return true
}

// Include registers n as an include in the nearest enclosing symbol table.
// Panics if there is no enclosing symbol table.
func (n *Node) Include() {
	st := n.Scope()
	if st == nil {
		panic("ast: no symbol table")
	}
	st.symtab.includes = append(st.symtab.includes, n)
}

func (s *Symtab) print(b *strings.Builder, level int) {
	writeIndent(b, level)
	b.WriteByte('{')

	for _, key := range s.order {
		nodes := s.symbols[key]
		if len(nodes) == 0 {
			continue
		}
		b.WriteByte('\n')
		writeIndent(b, level+1)
		fmt.Fprintf(b, "%s =", key)

		if len(nodes) == 1 {
			fmt.Fprintf(b, " %s", nodes[len(nodes)-1].tok.String())
		} else {
			for _, nd := range nodes {
				b.WriteByte('\n')
				writeIndent(b, level+2)
				b.WriteString(nd.tok.String())
			}
		}
	}

	for _, inc := range s.includes {
		b.WriteByte('\n')
		writeIndent(b, level+1)
		fmt.Fprintf(b, "include %s", inc.location.View())
	}

	b.WriteByte('}')
}
