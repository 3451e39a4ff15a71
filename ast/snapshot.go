package ast

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/aledsdavies/trieste/source"
	"github.com/aledsdavies/trieste/token"
)

// Snapshot is a canonical, deterministic encoding of a subtree's shape and
// literal text, independent of symbol-table bindings or source identity.
// It exists so the fuzzer can fingerprint generated trees (for dedup) and
// so tests can serialize/replay a tree without round-tripping the printed
// text format.
type Snapshot struct {
	Type     string     `cbor:"type"`
	Text     string     `cbor:"text,omitempty"`
	Children []Snapshot `cbor:"children,omitempty"`
}

// Resolver maps a snapshot's token name back to a live token.Token. Callers
// supply the set of tokens in scope for the tree being decoded (typically
// the Wellformed's token universe).
type Resolver func(name string) (token.Token, bool)

// ToSnapshot converts n into its canonical snapshot form.
func ToSnapshot(n *Node) Snapshot {
	s := Snapshot{Type: n.tok.String()}
	if n.tok.Has(token.FlagPrint) {
		s.Text = n.location.View()
	}
	for _, c := range n.children {
		s.Children = append(s.Children, ToSnapshot(c))
	}
	return s
}

// FromSnapshot rebuilds a detached Node tree from a snapshot, resolving
// token names via resolve. Returns an error if any token name is unknown.
func FromSnapshot(s Snapshot, resolve Resolver) (*Node, error) {
	t, ok := resolve(s.Type)
	if !ok {
		return nil, fmt.Errorf("ast: unknown token %q in snapshot", s.Type)
	}

	var n *Node
	if s.Text != "" {
		n = NewWithLocation(t, source.FromString(s.Text))
	} else {
		n = New(t)
	}

	for _, cs := range s.Children {
		child, err := FromSnapshot(cs, resolve)
		if err != nil {
			return nil, err
		}
		n.PushBack(child)
	}
	return n, nil
}

// Marshal encodes a tree snapshot as canonical CBOR.
func Marshal(n *Node) ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("ast: building cbor encoder: %w", err)
	}
	return mode.Marshal(ToSnapshot(n))
}

// Unmarshal decodes a canonical CBOR tree snapshot, resolving tokens via
// resolve.
func Unmarshal(data []byte, resolve Resolver) (*Node, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("ast: decoding cbor snapshot: %w", err)
	}
	return FromSnapshot(s, resolve)
}
