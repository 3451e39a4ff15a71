// Package match implements the capture-frame stack that pattern matching
// records its captures into, and that rewrite effects read from.
package match

import (
	"github.com/aledsdavies/trieste/ast"
	"github.com/aledsdavies/trieste/token"
)

// Range is a captured span of sibling nodes — a sub-slice of some parent's
// children, not a copy.
type Range []*ast.Node

// Front returns the first node in the range, or nil if the range is empty.
func (r Range) Front() *ast.Node {
	if len(r) == 0 {
		return nil
	}
	return r[0]
}

type frame struct {
	valid bool
	caps  map[token.Token]Range
}

// Match is a single rewrite attempt's capture state: a stack of frames, one
// per nested Opt/Choice/Rep backtracking point, addressed by index rather
// than by push/pop so a failed attempt can rewind without discarding the
// backing storage. The stack is preallocated and reused across attempts —
// callers call Reset between independent top-level match attempts, not
// between every rule.
type Match struct {
	index    int
	captures []frame
}

// New creates a Match with its frame stack preallocated.
func New() *Match {
	return &Match{captures: make([]frame, 16)}
}

// Get returns the most recently captured Range for token, searching frames
// from the current index down to 0. Returns nil if nothing was captured.
func (m *Match) Get(t token.Token) Range {
	for i := m.index; ; i-- {
		if m.captures[i].valid {
			if r, ok := m.captures[i].caps[t]; ok {
				return r
			}
		}
		if i == 0 {
			break
		}
	}
	return nil
}

// Node returns the first node of the most recent capture for token, or nil.
func (m *Match) Node(t token.Token) *ast.Node {
	return m.Get(t).Front()
}

// Set records a capture at the current frame.
func (m *Match) Set(t token.Token, r Range) {
	f := &m.captures[m.index]
	if !f.valid {
		f.caps = make(map[token.Token]Range)
		f.valid = true
	}
	f.caps[t] = r
}

// AddFrame pushes a new, empty frame and returns the index of the frame
// that was active before the push — pass this to ReturnToFrame to
// backtrack past everything captured since.
func (m *Match) AddFrame() int {
	m.index++
	if m.index == len(m.captures) {
		grown := make([]frame, m.index*2)
		copy(grown, m.captures)
		m.captures = grown
	} else {
		m.captures[m.index].valid = false
	}
	return m.index - 1
}

// ReturnToFrame discards every capture made since the frame at newIndex was
// active.
func (m *Match) ReturnToFrame(newIndex int) {
	m.index = newIndex
}

// Reset clears the match back to its initial empty state, for reuse across
// independent top-level attempts.
func (m *Match) Reset() {
	m.index = 0
	m.captures[0].valid = false
}
