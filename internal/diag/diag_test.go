package diag

import (
	"testing"

	"github.com/lo-lang/locc/internal/token"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatsLocationCategoryAndMessage(t *testing.T) {
	loc := token.Location{FileName: "main.lo", Line: 3, Column: 7}
	err := New(loc, CategoryType, "cannot assign %s to %s", "f32", "i32")
	require.Equal(t, `main.lo:3:7: type: cannot assign f32 to i32`, err.Error())
}

func TestInternalReportsUnreachableWithCallerSite(t *testing.T) {
	loc := token.Location{FileName: "main.lo", Line: 1, Column: 1}
	err := Internal(loc, "emit.go", 120, "unresolved struct foo")
	require.Equal(t, CategoryInternal, err.Category)
	require.Contains(t, err.Error(), "unreachable: unresolved struct foo (emit.go:120)")
}

func TestErrorSatisfiesErrorInterface(t *testing.T) {
	var err error = New(token.Location{}, CategoryIO, "boom")
	require.EqualError(t, err, ":0:0: io: boom")
}
