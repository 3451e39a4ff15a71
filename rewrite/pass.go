// Package rewrite implements the pass driver: applying an ordered list of
// pattern/effect rules to a tree, bottom-up or top-down, once or to a
// fixed point, and propagating Lift nodes up to the ancestor they target.
package rewrite

import (
	"fmt"

	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/match"
	"github.com/aledsdavies/trieste/pattern"
	"github.com/aledsdavies/trieste/token"
)

// Direction controls traversal order and whether a pass runs once or to a
// fixed point.
type Direction uint8

const (
	// Bottomup recurses into a node's children before trying rules on it.
	Bottomup Direction = 1 << iota
	// Topdown recurses into a node's children after trying rules on it
	// (the default).
	Topdown
	// Once runs the pass exactly one time instead of iterating to a fixed
	// point.
	Once
)

func (d Direction) has(f Direction) bool { return d&f != 0 }

// Effect builds a replacement for whatever a Rule's pattern matched. The
// Match carries any captures the pattern recorded. A nil *ast.Node removes
// the matched span; a node of type token.Seq splices its children in
// place of the match; a node of type token.NoChange means "never mind",
// leaving the matched span untouched and letting the driver try the next
// rule in its place.
type Effect func(m *match.Match) *ast.Node

// Rule pairs a pattern with the effect to run when it matches.
type Rule struct {
	Pattern pattern.Pattern
	Effect  Effect
}

// Pass is an ordered list of rules plus optional per-token pre/post hooks,
// run with a given traversal Direction.
type Pass struct {
	Direction Direction
	Rules     []Rule
	Pre       map[token.Token]func(*ast.Node) int
	Post      map[token.Token]func(*ast.Node) int

	// fast holds each Rules[i]'s precomputed FastPattern, lazily filled in
	// by ensureFast so a Pass built as a struct literal (skipping New)
	// still gets dispatch pruning.
	fast []pattern.FastPattern
}

// New creates a topdown, fixed-point pass with the given rules.
func New(rules ...Rule) *Pass {
	return &Pass{Direction: Topdown, Rules: rules}
}

// ensureFast computes each rule's FastPattern once, caching it for the
// lifetime of the Pass.
func (p *Pass) ensureFast() {
	if len(p.fast) == len(p.Rules) {
		return
	}
	p.fast = make([]pattern.FastPattern, len(p.Rules))
	for i, rule := range p.Rules {
		p.fast[i] = pattern.Compute(rule.Pattern)
	}
}

// Result reports how many iterations a pass ran and how many total changes
// it made.
type Result struct {
	Node    *ast.Node
	Count   int
	Changes int
}

// Run applies the pass to node until it reaches a fixed point (no rule
// matched in a full traversal), or exactly once if Direction has Once set.
// Returns an error if a Lift node survives to the root with no matching
// ancestor to splice into.
func (p *Pass) Run(node *ast.Node) (Result, error) {
	p.ensureFast()

	count := 0
	changesSum := 0

	for {
		changes := p.apply(node)
		leftover := p.lift(node)
		if len(leftover) > 0 {
			return Result{}, fmt.Errorf("rewrite: %d lifted node(s) with no destination", len(leftover))
		}

		changesSum += changes
		count++

		if p.Direction.has(Once) {
			break
		}
		if changes == 0 {
			break
		}
	}

	return Result{Node: node, Count: count, Changes: changesSum}, nil
}

func (p *Pass) apply(node *ast.Node) int {
	if node.Type().In(token.Error, token.Lift) {
		return 0
	}

	changes := 0

	if pre, ok := p.Pre[node.Type()]; ok {
		changes += pre(node)
	}

	m := match.New()
	it := 0
	for it < node.Len() {
		child := node.At(it)
		if child.Type().In(token.Error, token.Lift) {
			it++
			continue
		}

		if p.Direction.has(Bottomup) {
			changes += p.apply(child)
		}

		replaced := -1

		for i, rule := range p.Rules {
			fp := p.fast[i]
			if len(fp.Starts) > 0 && !fp.Starts[child.Type()] {
				continue
			}
			if len(fp.Parents) > 0 && !fp.Parents[node.Type()] {
				continue
			}

			m.Reset()
			start := it
			pos := it

			if rule.Pattern.Match(&pos, node, m) {
				replacement := rule.Effect(m)

				if replacement != nil && replacement.Type() == token.NoChange {
					it = start
					continue
				}

				loc := node.At(start).Location().Union(node.At(pos - 1).Location())
				node.Erase(start, pos)
				it = start

				switch {
				case replacement == nil:
					replaced = 0
				case replacement.Type() == token.Seq:
					children := replacement.Children()
					for _, c := range children {
						c.SetLocation(loc)
					}
					replaced = len(children)
					node.InsertAll(it, children)
				default:
					replaced = 1
					replacement.SetLocation(loc)
					node.Insert(it, replacement)
				}

				changes += replaced
				break
			}
		}

		if p.Direction.has(Once) {
			if p.Direction.has(Topdown) && replaced != 0 {
				to := replaced
				if to < 1 {
					to = 1
				}
				for i := 0; i < to && it+i < node.Len(); i++ {
					changes += p.apply(node.At(it + i))
				}
			}

			if replaced >= 0 {
				it += replaced
			} else {
				it++
			}
		} else if replaced >= 0 {
			it = 0
		} else {
			if p.Direction.has(Topdown) {
				changes += p.apply(node.At(it))
			}
			it++
		}
	}

	if post, ok := p.Post[node.Type()]; ok {
		changes += post(node)
	}

	return changes
}

// lift recursively extracts Lift children from node's subtree, splicing a
// lift's payload into the ancestor it names if that ancestor is node
// itself, or returning it for the caller to try at the next level up.
func (p *Pass) lift(node *ast.Node) []*ast.Node {
	var uplift []*ast.Node
	it := 0

	for it < node.Len() {
		advance := true
		child := node.At(it)
		lifted := p.lift(child)

		if child.Type() == token.Lift {
			lifted = append([]*ast.Node{child}, lifted...)
			node.Erase(it, it+1)
			advance = false
		}

		for _, lnode := range lifted {
			if lnode.Front().Type() == node.Type() {
				rest := lnode.Children()[1:]
				node.InsertAll(it, rest)
				it += len(rest)
				advance = false
			} else {
				uplift = append(uplift, lnode)
			}
		}

		if advance {
			it++
		}
	}

	return uplift
}
