package loparser

import "github.com/lo-lang/locc/internal/token"

// seqStream re-wraps an already-scanned []token.Token as a fresh
// token.Stream, letting the parser re-enter a stored body_tokens sequence
// (function bodies, macro bodies, global initializers) as many times as
// needed (spec §9: "Re-parsing macro bodies at each call site is
// intentional").
type seqStream struct {
	toks []token.Token
	pos  int
	end  token.Location
}

func newSeqStream(toks []token.Token, end token.Location) token.Stream {
	return &seqStream{toks: toks, end: end}
}

// NewSeqStream is newSeqStream exported for internal/finalize, which needs
// to re-enter a global's stored InitTokens from outside this package.
func NewSeqStream(toks []token.Token, end token.Location) token.Stream {
	return newSeqStream(toks, end)
}

func (s *seqStream) Peek() (token.Token, bool) { return s.PeekN(0) }

func (s *seqStream) PeekN(n int) (token.Token, bool) {
	i := s.pos + n
	if i < 0 || i >= len(s.toks) {
		return token.Token{}, false
	}
	return s.toks[i], true
}

func (s *seqStream) Next() (token.Token, bool) {
	t, ok := s.Peek()
	if ok {
		s.pos++
	}
	return t, ok
}

func (s *seqStream) Loc() token.Location {
	if t, ok := s.Peek(); ok {
		return t.Loc
	}
	return s.end
}
