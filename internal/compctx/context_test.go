package compctx

import (
	"testing"

	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
	"github.com/lo-lang/locc/internal/wasmout"
	"github.com/stretchr/testify/require"
)

func TestQualifiedName(t *testing.T) {
	require.Equal(t, "greet", QualifiedName("", "greet"))
	require.Equal(t, "Cat::greet", QualifiedName("Cat", "greet"))
}

func TestInternStringReusesOffsetForRepeatedContent(t *testing.T) {
	ctx := New(ModeCompile)
	a := ctx.InternString("hi")
	b := ctx.InternString("hi")
	require.Equal(t, a, b)
	require.Len(t, ctx.Module.Data, 1, "a second intern of the same string must not append a second segment")
}

func TestInternStringAutoDeclaresAndExportsMemory(t *testing.T) {
	ctx := New(ModeCompile)
	require.Nil(t, ctx.Module.Memory, "no memory should exist before the first InternString")
	require.False(t, ctx.ExportMemory)

	off := ctx.InternString("hi")
	require.Equal(t, uint32(0), off)
	require.NotNil(t, ctx.Module.Memory, "InternString must auto-declare a memory so its data segment targets a real memory 0")
	require.True(t, ctx.ExportMemory, "an auto-declared memory must be auto-exported so hosts can read the interned bytes back")
	require.Equal(t, uint32(1), ctx.Module.Memory.MinPages)

	second := ctx.InternString("world")
	require.Equal(t, uint32(2), second, "the second string's offset follows the first string's byte length")
	require.Len(t, ctx.Module.Data, 2)
}

func TestEnsureMemoryIsANoOpOnceMemoryExists(t *testing.T) {
	ctx := New(ModeCompile)
	ctx.Module.Memory = &wasmout.Memory{MinPages: 4}
	ctx.EnsureMemory()
	require.Equal(t, uint32(4), ctx.Module.Memory.MinPages, "an explicitly declared memory must not be overwritten")
	require.False(t, ctx.ExportMemory, "EnsureMemory must not force an export when the source already declared its own memory")
}

func TestDeclareLocalFuncRejectsDuplicateKey(t *testing.T) {
	ctx := New(ModeCompile)
	require.NoError(t, ctx.DeclareLocalFunc("greet", &FunctionDef{Output: lotype.Void, Loc: token.Location{}}))
	err := ctx.DeclareLocalFunc("greet", &FunctionDef{Output: lotype.Void, Loc: token.Location{}})
	require.Error(t, err)
}

func TestDeclareLocalFuncQualifiedKeysDoNotCollide(t *testing.T) {
	ctx := New(ModeCompile)
	require.NoError(t, ctx.DeclareLocalFunc(QualifiedName("Cat", "greet"), &FunctionDef{ReceiverOf: "Cat", Output: lotype.I32}))
	require.NoError(t, ctx.DeclareLocalFunc(QualifiedName("Dog", "greet"), &FunctionDef{ReceiverOf: "Dog", Output: lotype.I32}))

	cat, ok := ctx.LookupFunc("Cat::greet")
	require.True(t, ok)
	require.Equal(t, "Cat", cat.ReceiverOf)

	dog, ok := ctx.LookupFunc("Dog::greet")
	require.True(t, ok)
	require.Equal(t, "Dog", dog.ReceiverOf)
}
