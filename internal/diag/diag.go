// Package diag implements the compiler's single diagnostic type: a message
// bound to a source Location, formatted the way the CLI prints it.
package diag

import (
	"fmt"

	"github.com/lo-lang/locc/internal/token"
)

// Category classifies an Error the way spec §7 groups error kinds.
type Category string

const (
	CategoryParse      Category = "parse"
	CategoryResolution Category = "resolution"
	CategoryType       Category = "type"
	CategoryStructural Category = "structural"
	CategoryIO         Category = "io"
	CategoryInternal   Category = "internal"
)

// Error is the only error type the compiler core raises. Every Error carries
// the Location it was raised at so the CLI can print
// "<path>:<line>:<col>: <category>: <message>" without re-deriving position.
type Error struct {
	Loc      token.Location
	Category Category
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Loc.FileName, e.Loc.Line, e.Loc.Column, e.Category, e.Message)
}

// New builds an Error at loc in category with a formatted message.
func New(loc token.Location, category Category, format string, args ...any) *Error {
	return &Error{Loc: loc, Category: category, Message: fmt.Sprintf(format, args...)}
}

// Internal builds a CategoryInternal error reporting a violated compiler
// invariant. callerFile/callerLine identify the Go source of the invariant,
// per spec §7 ("a compiler bug is signaled by an 'unreachable' error
// pointing to the file and line of the invariant violation").
func Internal(loc token.Location, callerFile string, callerLine int, what string) *Error {
	return New(loc, CategoryInternal, "unreachable: %s (%s:%d)", what, callerFile, callerLine)
}
