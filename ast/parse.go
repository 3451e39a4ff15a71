package ast

import (
	"fmt"
	"regexp"

	"github.com/aledsdavies/trieste/source"
)

var (
	headRe   = regexp.MustCompile(`^\s*\(([^\s()]*)`)
	symtabRe = regexp.MustCompile(`^\s*\{[^}]*\}`)
	tailRe   = regexp.MustCompile(`^\s*\)`)
)

// BuildAST parses trieste's canonical printed-AST text format back into a
// tree, starting at byte offset pos in src. resolve maps a printed token
// name back to a live token.Token; any name it doesn't recognize is a
// parse error. Symbol tables in the text are skipped, not reconstructed —
// callers that need bindings should run wf.BuildSymtab afterwards.
//
// Unlike the original, this does not use per-nonterminal-scoped type
// lookup (the C++ find_type_i walks only the types reachable from the
// current node's Wellformed shape); a single flat resolver covering every
// token in use is simpler and sufficient for a tree format that already
// commits to printing fully-qualified token names.
func BuildAST(src *source.Source, pos int, resolve Resolver) (*Node, error) {
	text := src.View()
	it := pos
	end := len(text)

	var cur *Node

	for it < end {
		loc := headRe.FindStringSubmatchIndex(text[it:end])
		if loc == nil {
			l := source.New(src, it, 1)
			return nil, fmt.Errorf("%sexpected node\n%s", l.OriginLineCol(), l.Str())
		}

		typeStart, typeEnd := it+loc[2], it+loc[3]
		typeName := text[typeStart:typeEnd]
		typeLoc := source.New(src, typeStart, typeEnd-typeStart)

		t, ok := resolve(typeName)
		if !ok {
			return nil, fmt.Errorf("%sunknown type\n%s", typeLoc.OriginLineCol(), typeLoc.Str())
		}

		it += loc[1]

		identLoc := typeLoc
		if it < end && text[it] == ' ' {
			it++
			length := 0
			for it < end && text[it] >= '0' && text[it] <= '9' {
				length = length*10 + int(text[it]-'0')
				it++
			}
			if it >= end || text[it] != ':' {
				l := source.New(src, it, 1)
				return nil, fmt.Errorf("%sexpected ':'\n%s", l.OriginLineCol(), l.Str())
			}
			it++
			identLoc = source.New(src, it, length)
			it += length
		}

		node := NewWithLocation(t, identLoc)

		if cur != nil {
			cur.PushBack(node)
		}
		cur = node

		if loc := symtabRe.FindStringIndex(text[it:end]); loc != nil {
			it += loc[1]
		}

		for {
			loc := tailRe.FindStringIndex(text[it:end])
			if loc == nil {
				break
			}
			it += loc[1]
			parent := cur.Parent()
			if parent == nil {
				return cur, nil
			}
			cur = parent
		}
	}

	l := source.New(src, it, 1)
	return nil, fmt.Errorf("%sincomplete AST\n%s", l.OriginLineCol(), l.Str())
}
