package finalize

import (
	"testing"

	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/wasmout"
	"github.com/stretchr/testify/require"
)

type stubResolver struct{ structs map[string]*lotype.StructDef }

func (s stubResolver) LookupStruct(name string) (*lotype.StructDef, bool) {
	d, ok := s.structs[name]
	return d, ok
}

func TestEmitU32Const(t *testing.T) {
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{loir.U32Const(42)})
	require.NoError(t, err)
	require.Equal(t, []byte{byte(wasmout.OpI32Const), 0x2a, byte(wasmout.OpEnd)}, body)
}

func TestEmitCastedI32ToI64Extends(t *testing.T) {
	inner := loir.U32Const(5)
	inner.Type = lotype.I32
	instr := inner.Casted(lotype.I64)
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{instr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpI64ExtendI32S))
}

func TestEmitCastedI64ToI32Wraps(t *testing.T) {
	inner := loir.I64Const(5)
	inner.Type = lotype.I64
	instr := inner.Casted(lotype.I32)
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{instr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpI32WrapI64))
}

func TestEmitF32ConstAndF64Const(t *testing.T) {
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{loir.F32Const(1.5)})
	require.NoError(t, err)
	require.Equal(t, []byte{byte(wasmout.OpF32Const), 0x00, 0x00, 0xc0, 0x3f, byte(wasmout.OpEnd)}, body)

	body, err = EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{loir.F64Const(0)})
	require.NoError(t, err)
	require.Equal(t, []byte{byte(wasmout.OpF64Const), 0, 0, 0, 0, 0, 0, 0, 0, byte(wasmout.OpEnd)}, body)
}

// TestEmitCastedRejectsFloatIntMismatch is the regression test for
// Comment 3: a Casted whose inner and target disagree on floatness is never
// a genuine bit-reinterpretation in this encoder (no reinterpret opcode
// exists), so it must be rejected rather than silently leaving an i32 value
// where an f32/f64 was expected.
func TestEmitCastedRejectsFloatIntMismatch(t *testing.T) {
	instr := loir.U32Const(0).Casted(lotype.F32)
	_, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{instr})
	require.Error(t, err)
}

func TestEmitBinaryAddSelectsI32(t *testing.T) {
	lhs, rhs := loir.U32Const(1), loir.U32Const(2)
	instr := loir.Instr{Kind: loir.KindBinaryOp, Type: lotype.I32, Op: loir.OpAdd, Lhs: &lhs, Rhs: &rhs}
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{instr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpI32Add))
}

func TestEmitBinarySignedVsUnsignedDivision(t *testing.T) {
	lhs, rhs := loir.U32Const(7), loir.U32Const(2)

	signedLhs := lhs
	signedLhs.Type = lotype.I32
	signedInstr := loir.Instr{Kind: loir.KindBinaryOp, Type: lotype.I32, Op: loir.OpDiv, Lhs: &signedLhs, Rhs: &rhs}
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{signedInstr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpI32DivS))

	unsignedLhs := lhs
	unsignedLhs.Type = lotype.U32
	unsignedInstr := loir.Instr{Kind: loir.KindBinaryOp, Type: lotype.U32, Op: loir.OpDiv, Lhs: &unsignedLhs, Rhs: &rhs}
	body, err = EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{unsignedInstr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpI32DivU))
}

func TestEmitIfEmptyBlockType(t *testing.T) {
	cond := loir.U32Const(1)
	instr := loir.Instr{Kind: loir.KindIf, Type: lotype.Void, Cond: &cond}
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{instr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpIf))
	require.Contains(t, body, wasmout.BlockTypeEmpty)
}

func TestEmitIfSingleComponentBlockType(t *testing.T) {
	cond := loir.U32Const(1)
	then := []loir.Instr{loir.U32Const(9)}
	els := []loir.Instr{loir.U32Const(8)}
	instr := loir.Instr{Kind: loir.KindIf, Type: lotype.I32, Cond: &cond, ThenBranch: then, ElseBranch: els}
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{instr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpElse))
}

func TestEmitIfMultiComponentBlockTypeInternsFuncType(t *testing.T) {
	mod := &wasmout.Module{}
	cond := loir.U32Const(1)
	then := []loir.Instr{loir.U32Const(1), loir.U32Const(2)}
	els := []loir.Instr{loir.U32Const(3), loir.U32Const(4)}
	resultType := lotype.TupleOf(lotype.I32, lotype.I32)
	instr := loir.Instr{Kind: loir.KindIf, Type: resultType, Cond: &cond, ThenBranch: then, ElseBranch: els}

	_, err := EmitFunctionBody(stubResolver{}, mod, []loir.Instr{instr})
	require.NoError(t, err)
	require.Len(t, mod.Types, 1)
	require.Equal(t, []lotype.Component{lotype.CompI32, lotype.CompI32}, mod.Types[0].Results)
}

func TestEmitGlobalSetThenGet(t *testing.T) {
	val := loir.U32Const(10)
	set := loir.Instr{Kind: loir.KindGlobalSet, Type: lotype.Void, GlobalIndex: 2, Value: &val}
	get := loir.Instr{Kind: loir.KindGlobalGet, Type: lotype.U32, GlobalIndex: 2}
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{set, get})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpGlobalSet))
	require.Contains(t, body, byte(wasmout.OpGlobalGet))
}

func TestEmitStoreOpcodeByType(t *testing.T) {
	addr := loir.U32Const(0)
	store := loir.Instr{Kind: loir.KindStore, Address: &addr, Value: &loir.Instr{Kind: loir.KindU32Const, Type: lotype.U8, U32: 1}}
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{store})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpI32Store8))
}

func TestEmitDropWithValue(t *testing.T) {
	val := loir.U32Const(1)
	instr := loir.Instr{Kind: loir.KindDrop, Value: &val}
	body, err := EmitFunctionBody(stubResolver{}, &wasmout.Module{}, []loir.Instr{instr})
	require.NoError(t, err)
	require.Contains(t, body, byte(wasmout.OpDrop))
}
