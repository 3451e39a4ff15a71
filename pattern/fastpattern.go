package pattern

import "github.com/aledsdavies/trieste/token"

// FastPattern summarizes what a pattern could possibly match, without
// running it: which tokens it could start on, which parent tokens it
// requires, and whether it could match nothing (pass_through) and so let
// its continuation see the same starting token. A pass uses this to skip
// running the full matcher against children it can statically rule out.
//
// A nil Starts/Parents set means "any token" (the universal set); this
// mirrors the original's "empty set means any" convention rather than
// using an explicit sentinel, which would need threading through every
// constructor below.
type FastPattern struct {
	Starts      map[token.Token]bool
	Parents     map[token.Token]bool
	PassThrough bool
}

// AnyFirst reports whether this pattern could start on any token
// whatsoever.
func (f FastPattern) AnyFirst() bool {
	return len(f.Starts) == 0 && !f.PassThrough
}

// MatchAny is the FastPattern for a pattern that consumes exactly one,
// arbitrary node (Any, TokenMatch with no continuation pass-through).
func MatchAny() FastPattern {
	return FastPattern{}
}

// MatchPred is the FastPattern for a zero-width assertion: it consumes
// nothing, so its continuation sees the current token unchanged.
func MatchPred() FastPattern {
	return FastPattern{PassThrough: true}
}

// MatchToken is the FastPattern for a pattern that only starts on one of
// the given tokens.
func MatchToken(tokens []token.Token) FastPattern {
	return FastPattern{Starts: toSet(tokens)}
}

// MatchParent is the FastPattern for a zero-width assertion on the parent
// token (Inside/InsideStar): any starting token is possible, but only
// under one of the given parents.
func MatchParent(tokens []token.Token) FastPattern {
	return FastPattern{Parents: toSet(tokens), PassThrough: true}
}

// MatchChoice combines two alternatives' FastPatterns.
func MatchChoice(lhs, rhs FastPattern) FastPattern {
	newPassThrough := lhs.PassThrough || rhs.PassThrough
	var newStarts map[token.Token]bool

	if !rhs.AnyFirst() && !lhs.AnyFirst() {
		newStarts = unionSet(lhs.Starts, rhs.Starts)
	} else {
		// any_first is an annihilator for choice.
		newPassThrough = false
	}

	var newParents map[token.Token]bool
	if len(lhs.Parents) != 0 && len(rhs.Parents) != 0 {
		newParents = unionSet(lhs.Parents, rhs.Parents)
	}

	return FastPattern{Starts: newStarts, Parents: newParents, PassThrough: newPassThrough}
}

// MatchSeq combines a pattern's FastPattern with its continuation's.
func MatchSeq(lhs, rhs FastPattern) FastPattern {
	var newStarts map[token.Token]bool
	newPassThrough := false

	if lhs.PassThrough {
		if rhs.AnyFirst() {
			newPassThrough = false
		} else {
			newStarts = unionSet(lhs.Starts, rhs.Starts)
		}
	} else {
		newStarts = lhs.Starts
	}

	var newParents map[token.Token]bool
	switch {
	case len(lhs.Parents) == 0:
		newParents = rhs.Parents
	case len(rhs.Parents) == 0:
		newParents = lhs.Parents
	default:
		newParents = map[token.Token]bool{}
		for t := range lhs.Parents {
			if rhs.Parents[t] {
				newParents[t] = true
			}
		}
	}

	return FastPattern{Starts: newStarts, Parents: newParents, PassThrough: newPassThrough}
}

// MatchOpt is the FastPattern for an optional pattern: it may start on
// pattern's tokens, or pass through entirely.
func MatchOpt(pat FastPattern) FastPattern {
	if pat.AnyFirst() {
		return pat
	}
	return FastPattern{Starts: pat.Starts, PassThrough: true}
}

func toSet(tokens []token.Token) map[token.Token]bool {
	if len(tokens) == 0 {
		return nil
	}
	s := make(map[token.Token]bool, len(tokens))
	for _, t := range tokens {
		s[t] = true
	}
	return s
}

func unionSet(a, b map[token.Token]bool) map[token.Token]bool {
	s := make(map[token.Token]bool, len(a)+len(b))
	for t := range a {
		s[t] = true
	}
	for t := range b {
		s[t] = true
	}
	return s
}

// Compute derives the FastPattern for an arbitrary pattern chain, walking
// its concrete type and continuation. Unrecognized pattern types (e.g. a
// Pattern implemented outside this package) fall back to MatchAny, which is
// always sound (it never prunes a candidate that could actually match) if
// conservative.
func Compute(p Pattern) FastPattern {
	if p == nil {
		return FastPattern{PassThrough: true}
	}

	var self FastPattern
	switch v := p.(type) {
	case *Any:
		self = MatchAny()
	case *TokenMatch:
		self = MatchToken(v.types)
	case *RegexMatch:
		self = MatchToken([]token.Token{v.typ})
	case *Cap:
		return MatchSeq(Compute(v.pattern), Compute(v.continuation))
	case *Opt:
		inner := Compute(v.pattern)
		self = MatchOpt(inner)
	case *Rep:
		// A repetition always passes through to its continuation once it
		// stops matching, regardless of how many times it matched.
		self = FastPattern{Starts: Compute(v.pattern).Starts, PassThrough: true}
	case *Not:
		self = MatchAny()
	case *Choice:
		return MatchSeq(MatchChoice(Compute(v.first), Compute(v.second)), Compute(v.continuation))
	case *Children:
		self = MatchAny()
	case *Inside:
		self = MatchParent(v.types)
	case *InsideStar:
		self = MatchParent(v.types)
	case *First:
		self = MatchPred()
	case *Last:
		self = MatchPred()
	case *Pred:
		self = MatchPred()
	case *NegPred:
		self = MatchPred()
	case *Action:
		return MatchSeq(Compute(v.pattern), Compute(v.continuation))
	default:
		self = MatchAny()
	}

	return MatchSeq(self, Compute(p.Continuation()))
}
