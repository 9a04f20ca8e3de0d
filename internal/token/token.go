// Package token defines the lexical data model the compiler core consumes.
// The byte-level lexer that produces a Stream is an external collaborator
// (spec §1); this package only fixes the interface boundary.
package token

import "fmt"

// Location identifies a source span. It is immutable and attached to every
// Token and diagnostic.
type Location struct {
	FileName  string
	ByteOffset int
	Length     int
	Line       int
	Column     int
	EndLine    int
	EndColumn  int
}

// Internal returns the zero Location used for diagnostics that originate
// outside any source file (e.g. a missing include target).
func Internal() Location {
	return Location{FileName: "<internal>"}
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FileName, l.Line, l.Column)
}

// Kind tags the lexical category of a Token.
type Kind int

const (
	Symbol Kind = iota
	IntLiteral
	CharLiteral
	StringLiteral
	Operator
	Delim
)

func (k Kind) String() string {
	switch k {
	case Symbol:
		return "symbol"
	case IntLiteral:
		return "int-literal"
	case CharLiteral:
		return "char-literal"
	case StringLiteral:
		return "string-literal"
	case Operator:
		return "operator"
	case Delim:
		return "delim"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is one lexical unit, with its decoded value retained verbatim (the
// parser re-parses numeric/string literal payloads from Value, never from
// raw source bytes).
type Token struct {
	Kind  Kind
	Value string
	Loc   Location
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Value, t.Loc)
}

// Is reports whether t is an Operator or Delim token with the given value.
// Symbol keywords (fn, let, if, ...) are also matched by value here since
// the source language has no separate keyword kind — the parser
// disambiguates by context, exactly as a Pratt parser is expected to.
func (t Token) Is(kind Kind, value string) bool {
	return t.Kind == kind && t.Value == value
}

// Stream is the forward-only, peekable token sequence the lexer exposes.
// Peek must be idempotent; Next both returns and consumes the next token.
// Both return a zero Token with ok=false at end of input.
type Stream interface {
	Peek() (Token, bool)
	PeekN(n int) (Token, bool)
	Next() (Token, bool)
	// Loc returns the location that would be attached to an EOF error if the
	// stream were consumed from here.
	Loc() Location
}
