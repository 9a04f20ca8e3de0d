package loparser

import (
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/token"
)

// eat consumes the next token if it matches kind/value, returning ok=false
// (and not consuming) otherwise.
func eat(s token.Stream, kind token.Kind, value string) (token.Token, bool) {
	t, ok := s.Peek()
	if !ok || !t.Is(kind, value) {
		return token.Token{}, false
	}
	s.Next()
	return t, true
}

func eatSymbol(s token.Stream, value string) (token.Token, bool) { return eat(s, token.Symbol, value) }

// expect consumes the next token, requiring it match kind/value.
func expect(s token.Stream, kind token.Kind, value string) (token.Token, error) {
	t, ok := eat(s, kind, value)
	if !ok {
		return token.Token{}, unexpected(s, "expected %q", value)
	}
	return t, nil
}

// expectKind consumes the next token, requiring only that its Kind matches.
func expectKind(s token.Stream, kind token.Kind) (token.Token, error) {
	t, ok := s.Peek()
	if !ok {
		return token.Token{}, unexpectedEOF(s)
	}
	if t.Kind != kind {
		return token.Token{}, unexpected(s, "expected %s, found %s", kind, t.Kind)
	}
	s.Next()
	return t, nil
}

func unexpected(s token.Stream, format string, args ...any) *diag.Error {
	loc := s.Loc()
	if t, ok := s.Peek(); ok {
		loc = t.Loc
	}
	return diag.New(loc, diag.CategoryParse, format, args...)
}

func unexpectedEOF(s token.Stream) *diag.Error {
	return diag.New(s.Loc(), diag.CategoryParse, "unexpected end of file")
}

// peekIs reports whether the next token matches kind/value without
// consuming it.
func peekIs(s token.Stream, kind token.Kind, value string) bool {
	t, ok := s.Peek()
	return ok && t.Is(kind, value)
}

// collectBalanced consumes tokens from s until the matching close delimiter
// for the already-consumed open delimiter is found, returning the tokens
// strictly between them (not including open/close). Used to capture
// body_tokens for function/macro bodies without parsing them immediately.
func collectBalanced(s token.Stream, open, close string) ([]token.Token, error) {
	var out []token.Token
	depth := 1
	for {
		t, ok := s.Next()
		if !ok {
			return nil, unexpectedEOF(s)
		}
		if t.Is(token.Delim, open) {
			depth++
		} else if t.Is(token.Delim, close) {
			depth--
			if depth == 0 {
				return out, nil
			}
		}
		out = append(out, t)
	}
}
