package loparser

import (
	"testing"

	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
	"github.com/stretchr/testify/require"
)

func newTestBlock() *BlockContext {
	ctx := compctx.New(compctx.ModeCompile)
	fn := &FnContext{Ctx: ctx, Output: lotype.Void}
	return NewFunctionBlock(fn, nil)
}

// TestBuildAssignSimpleCompoundLocal covers the plain `i += 1` path: no
// address to spill, so the combined value is built directly against lhs.
func TestBuildAssignSimpleCompoundLocal(t *testing.T) {
	bc := newTestBlock()
	def := bc.DeclareLocal("i", lotype.I32)
	lhs := loir.Instr{Kind: loir.KindLocalGet, Type: lotype.I32, LocalIndex: def.Index}
	rhs := loir.Instr{Kind: loir.KindU32Const, Type: lotype.I32, U32: 1}

	result, err := buildAssign(bc, lhs, infixOps["+="], rhs, token.Location{})
	require.NoError(t, err)
	require.Equal(t, loir.KindSet, result.Kind)
	require.Equal(t, loir.KindBinaryOp, result.Value.Kind)
	require.Equal(t, loir.OpAdd, result.Value.Op)
}

// TestBuildAssignCompoundPointerDerefSpillsAddressOnce is the regression
// test for the `*p += 1` double-evaluation bug: lhs.Address must be read
// exactly once (by the synthetic local's bind), with both the compound
// value's load and the final store reading back the same spilled local
// rather than re-evaluating the original address expression a second time.
func TestBuildAssignCompoundPointerDerefSpillsAddressOnce(t *testing.T) {
	bc := newTestBlock()
	ptrDef := bc.DeclareLocal("p", lotype.PointerTo(lotype.I32))
	addr := loir.Instr{Kind: loir.KindLocalGet, Type: lotype.PointerTo(lotype.I32), LocalIndex: ptrDef.Index}
	lhs := loir.Instr{Kind: loir.KindLoad, Type: lotype.I32, Address: &addr}
	rhs := loir.Instr{Kind: loir.KindU32Const, Type: lotype.I32, U32: 1}

	result, err := buildAssign(bc, lhs, infixOps["+="], rhs, token.Location{})
	require.NoError(t, err)

	require.Equal(t, loir.KindBlock, result.Kind, "a compound deref assignment must bind the address before reading/writing through it")
	require.Len(t, result.Body, 2)

	bindAddr := result.Body[0]
	require.Equal(t, loir.KindSet, bindAddr.Kind)
	require.Same(t, &addr, bindAddr.Value, "the bind must evaluate the original address expression exactly once")

	store := result.Body[1]
	require.Equal(t, loir.KindStore, store.Kind)
	require.Equal(t, loir.KindBinaryOp, store.Value.Kind)

	loadOperand := store.Value.Lhs
	require.Equal(t, loir.KindLoad, loadOperand.Kind)
	require.Same(t, store.Address, loadOperand.Address,
		"the store and the combined value's load must read the same spilled address local instead of each re-evaluating lhs.Address")
	require.NotSame(t, &addr, store.Address, "the store must no longer reference the original (now possibly stale) address expression")
}

// TestBuildAssignCompoundStructLoadSpillsAddressOnce mirrors the pointer
// dereference case for `base.field OP= rhs` where base is itself a pointer
// expression (e.g. a function call returning a struct pointer).
func TestBuildAssignCompoundStructLoadSpillsAddressOnce(t *testing.T) {
	bc := newTestBlock()
	ptrDef := bc.DeclareLocal("p", lotype.PointerTo(lotype.StructInstance("P")))
	base := loir.Instr{Kind: loir.KindLocalGet, Type: lotype.PointerTo(lotype.StructInstance("P")), LocalIndex: ptrDef.Index}
	lhs := loir.Instr{Kind: loir.KindStructLoad, Type: lotype.I32, Address: &base, BaseIndex: 4, FieldType: lotype.I32}
	rhs := loir.Instr{Kind: loir.KindU32Const, Type: lotype.I32, U32: 1}

	result, err := buildAssign(bc, lhs, infixOps["+="], rhs, token.Location{})
	require.NoError(t, err)
	require.Equal(t, loir.KindBlock, result.Kind)
	require.Len(t, result.Body, 2)

	store := result.Body[1]
	require.Equal(t, uint32(4), store.Offset)
	require.Same(t, store.Address, store.Value.Lhs.Address)
}

// TestBuildAssignNonCompoundLoadDoesNotSpill confirms plain `*p = v` keeps
// reusing lhs.Address directly — there is only one read site (none), so
// spilling would be pure overhead.
func TestBuildAssignNonCompoundLoadDoesNotSpill(t *testing.T) {
	bc := newTestBlock()
	ptrDef := bc.DeclareLocal("p", lotype.PointerTo(lotype.I32))
	addr := loir.Instr{Kind: loir.KindLocalGet, Type: lotype.PointerTo(lotype.I32), LocalIndex: ptrDef.Index}
	lhs := loir.Instr{Kind: loir.KindLoad, Type: lotype.I32, Address: &addr}
	rhs := loir.Instr{Kind: loir.KindU32Const, Type: lotype.I32, U32: 9}

	result, err := buildAssign(bc, lhs, infixOps["="], rhs, token.Location{})
	require.NoError(t, err)
	require.Equal(t, loir.KindStore, result.Kind)
	require.Same(t, &addr, result.Address)
}
