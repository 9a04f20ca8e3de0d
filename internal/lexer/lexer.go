// Package lexer is the external collaborator spec.md §1 describes as
// out-of-scope for the compiler core: a byte-level scanner that produces a
// token.Stream. It is kept minimal and is not a subject of this repository's
// invariants — only internal/loparser and downstream are.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lo-lang/locc/internal/token"
)

// sliceStream is a token.Stream backed by a fully-scanned slice. Lexing the
// whole file up front keeps PeekN trivial and matches how short, single-file
// LO sources are in practice; re-entrant `include` handling builds one
// sliceStream per file.
type sliceStream struct {
	toks []token.Token
	pos  int
	eof  token.Location
}

func (s *sliceStream) Peek() (token.Token, bool)     { return s.PeekN(0) }
func (s *sliceStream) PeekN(n int) (token.Token, bool) {
	i := s.pos + n
	if i < 0 || i >= len(s.toks) {
		return token.Token{}, false
	}
	return s.toks[i], true
}

func (s *sliceStream) Next() (token.Token, bool) {
	t, ok := s.Peek()
	if ok {
		s.pos++
	}
	return t, ok
}

func (s *sliceStream) Loc() token.Location {
	if t, ok := s.Peek(); ok {
		return t.Loc
	}
	return s.eof
}

var operatorRunes = "=+-*/%&|!<>.:,;(){}[]@"

// twoCharOperators lists every two-rune operator the grammar recognizes, in
// the precedence table order of spec §4.2.
var twoCharOperators = []string{"==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "::", ".."}

// Lex scans fileName's contents into a token.Stream. Errors are reported as
// *diag.Error-free plain errors, wrapped by the top-level parser with a
// diag.Error since lexing is outside the compiler core's invariant set.
func Lex(fileName string, src string) (token.Stream, error) {
	l := &scanner{fileName: fileName, src: src}
	var toks []token.Token
	for {
		tok, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		toks = append(toks, tok)
	}
	return &sliceStream{toks: toks, eof: l.loc()}, nil
}

type scanner struct {
	fileName         string
	src              string
	offset           int
	line, col        int
}

func (l *scanner) loc() token.Location {
	return token.Location{FileName: l.fileName, ByteOffset: l.offset, Line: l.line + 1, Column: l.col + 1}
}

func (l *scanner) peekRune() (rune, int) {
	if l.offset >= len(l.src) {
		return 0, 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	return r, size
}

func (l *scanner) advance() {
	r, size := l.peekRune()
	if size == 0 {
		return
	}
	l.offset += size
	if r == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *scanner) skipSpaceAndComments() {
	for {
		r, size := l.peekRune()
		if size == 0 {
			return
		}
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		if r == '/' && strings.HasPrefix(l.src[l.offset:], "//") {
			for {
				r, size := l.peekRune()
				if size == 0 || r == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *scanner) next() (token.Token, bool, error) {
	l.skipSpaceAndComments()
	start := l.loc()
	r, size := l.peekRune()
	if size == 0 {
		return token.Token{}, false, nil
	}

	switch {
	case unicode.IsLetter(r) || r == '_':
		return l.scanSymbol(start), true, nil
	case unicode.IsDigit(r):
		return l.scanNumber(start), true, nil
	case r == '"':
		return l.scanString(start)
	case r == '\'':
		return l.scanChar(start)
	case strings.ContainsRune(operatorRunes, r):
		return l.scanOperator(start), true, nil
	default:
		return token.Token{}, false, fmt.Errorf("%s: unexpected character %q", start, r)
	}
}

func (l *scanner) finishLoc(start token.Location) token.Location {
	end := l.loc()
	start.Length = end.ByteOffset - start.ByteOffset
	start.EndLine, start.EndColumn = end.Line, end.Column
	return start
}

func (l *scanner) scanSymbol(start token.Location) token.Token {
	s := l.offset
	for {
		r, size := l.peekRune()
		if size == 0 || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			break
		}
		l.advance()
	}
	return token.Token{Kind: token.Symbol, Value: l.src[s:l.offset], Loc: l.finishLoc(start)}
}

func (l *scanner) scanNumber(start token.Location) token.Token {
	s := l.offset
	if strings.HasPrefix(l.src[l.offset:], "0x") {
		l.advance()
		l.advance()
		for {
			r, size := l.peekRune()
			if size == 0 || !isHexDigit(r) {
				break
			}
			l.advance()
		}
	} else {
		for {
			r, size := l.peekRune()
			if size == 0 || (!unicode.IsDigit(r) && r != '_') {
				break
			}
			l.advance()
		}
	}
	return token.Token{Kind: token.IntLiteral, Value: l.src[s:l.offset], Loc: l.finishLoc(start)}
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (l *scanner) scanString(start token.Location) (token.Token, bool, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		r, size := l.peekRune()
		if size == 0 {
			return token.Token{}, false, fmt.Errorf("%s: unterminated string literal", start)
		}
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			esc, escSize := l.peekRune()
			if escSize == 0 {
				return token.Token{}, false, fmt.Errorf("%s: unterminated string literal", start)
			}
			l.advance()
			b.WriteRune(decodeEscape(esc))
			continue
		}
		b.WriteRune(r)
		l.advance()
	}
	return token.Token{Kind: token.StringLiteral, Value: b.String(), Loc: l.finishLoc(start)}, true, nil
}

func (l *scanner) scanChar(start token.Location) (token.Token, bool, error) {
	l.advance() // opening quote
	r, size := l.peekRune()
	if size == 0 {
		return token.Token{}, false, fmt.Errorf("%s: unterminated char literal", start)
	}
	var value rune
	if r == '\\' {
		l.advance()
		esc, escSize := l.peekRune()
		if escSize == 0 {
			return token.Token{}, false, fmt.Errorf("%s: unterminated char literal", start)
		}
		l.advance()
		value = decodeEscape(esc)
	} else {
		value = r
		l.advance()
	}
	closing, closingSize := l.peekRune()
	if closingSize == 0 || closing != '\'' {
		return token.Token{}, false, fmt.Errorf("%s: malformed char literal", start)
	}
	l.advance()
	return token.Token{Kind: token.CharLiteral, Value: string(value), Loc: l.finishLoc(start)}, true, nil
}

func decodeEscape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return r
	}
}

func (l *scanner) scanOperator(start token.Location) token.Token {
	rest := l.src[l.offset:]
	for _, op := range twoCharOperators {
		if strings.HasPrefix(rest, op) {
			l.advance()
			l.advance()
			return token.Token{Kind: token.Operator, Value: op, Loc: l.finishLoc(start)}
		}
	}
	r, _ := l.peekRune()
	l.advance()
	kind := token.Operator
	if strings.ContainsRune("(){}[],;:", r) {
		kind = token.Delim
	}
	return token.Token{Kind: kind, Value: string(r), Loc: l.finishLoc(start)}
}
