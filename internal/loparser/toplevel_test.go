package loparser

import (
	"testing"

	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
	"github.com/stretchr/testify/require"
)

type noIncludeLoader struct{}

func (noIncludeLoader) Load(fromFile, path string) (string, string, error) {
	return "", "", diag.New(token.Location{}, diag.CategoryIO, "unexpected include of %q from %q", path, fromFile)
}

// TestParseFnDeclQualifiedMethodsOnDistinctStructsDoNotCollide is the
// regression test for Comment 4: two structs may declare a same-named
// method because each is registered under its own "Receiver::name" key
// rather than the bare method name.
func TestParseFnDeclQualifiedMethodsOnDistinctStructsDoNotCollide(t *testing.T) {
	src := `
struct Cat { legs: i32 };
struct Dog { legs: i32 };
fn Cat::legs(self): i32 { return self.legs; };
fn Dog::legs(self): i32 { return self.legs; };
`
	ctx := compctx.New(compctx.ModeCompile)
	err := ParseFile(ctx, noIncludeLoader{}, "main.lo", src)
	require.NoError(t, err)

	catFn, ok := ctx.LookupFunc("Cat::legs")
	require.True(t, ok)
	require.Equal(t, "Cat", catFn.ReceiverOf)
	require.Equal(t, lotype.StructInstance("Cat"), catFn.Params[0].Type)

	dogFn, ok := ctx.LookupFunc("Dog::legs")
	require.True(t, ok)
	require.Equal(t, "Dog", dogFn.ReceiverOf)

	_, ok = ctx.LookupFunc("legs")
	require.False(t, ok, "a qualified declaration must not also register an unqualified key")
}

// TestParseFnDeclRefSelfParamIsPointerToReceiver covers the `&self` form.
func TestParseFnDeclRefSelfParamIsPointerToReceiver(t *testing.T) {
	src := `
struct Counter { n: i32 };
fn Counter::bump(&self): void { self.n = self.n + 1; };
`
	ctx := compctx.New(compctx.ModeCompile)
	err := ParseFile(ctx, noIncludeLoader{}, "main.lo", src)
	require.NoError(t, err)

	fn, ok := ctx.LookupFunc("Counter::bump")
	require.True(t, ok)
	require.Equal(t, lotype.PointerTo(lotype.StructInstance("Counter")), fn.Params[0].Type)
}

// TestParseFnDeclPlainFunctionIsUnqualified ensures the common case (no
// "::") is untouched by the qualified-declaration support.
func TestParseFnDeclPlainFunctionIsUnqualified(t *testing.T) {
	src := `fn double(x: i32): i32 { return x * 2; };`
	ctx := compctx.New(compctx.ModeCompile)
	err := ParseFile(ctx, noIncludeLoader{}, "main.lo", src)
	require.NoError(t, err)

	fn, ok := ctx.LookupFunc("double")
	require.True(t, ok)
	require.Equal(t, "", fn.ReceiverOf)
}
