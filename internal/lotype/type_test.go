package lotype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubResolver map[string]*StructDef

func (s stubResolver) LookupStruct(name string) (*StructDef, bool) {
	d, ok := s[name]
	return d, ok
}

func TestEmitComponentsPrimitives(t *testing.T) {
	require.Nil(t, EmitComponents(Void, nil))
	require.Equal(t, []Component{CompI32}, EmitComponents(Bool, nil))
	require.Equal(t, []Component{CompI32}, EmitComponents(I32, nil))
	require.Equal(t, []Component{CompI64}, EmitComponents(U64, nil))
	require.Equal(t, []Component{CompF32}, EmitComponents(F32, nil))
	require.Equal(t, []Component{CompI32}, EmitComponents(PointerTo(I32), nil))
}

func TestEmitComponentsTuple(t *testing.T) {
	tup := TupleOf(I32, F64, Bool)
	require.Equal(t, []Component{CompI32, CompF64, CompI32}, EmitComponents(tup, nil))
}

func TestEmitComponentsStruct(t *testing.T) {
	r := stubResolver{
		"str": &StructDef{Name: "str", Fields: []Field{
			{Name: "ptr", Type: PointerTo(U8)},
			{Name: "len", Type: U32},
		}, FullyDefined: true},
	}
	r["str"].AssignLayout(r)
	got := EmitComponents(StructInstance("str"), r)
	require.Equal(t, []Component{CompI32, CompI32}, got)
}

func TestEmitComponentsResultConcatenatesOkThenErr(t *testing.T) {
	res := ResultOf(I32, I64)
	require.Equal(t, []Component{CompI32, CompI64}, EmitComponents(res, nil))
}

func TestSizedComponentStats(t *testing.T) {
	stats := SizedComponentStats(TupleOf(I32, F64), nil)
	require.Equal(t, 12, stats.ByteLength)
	require.Len(t, stats.Components, 2)
}

func TestAssignLayoutPrefixSums(t *testing.T) {
	r := stubResolver{}
	def := &StructDef{Name: "point", Fields: []Field{
		{Name: "x", Type: I32},
		{Name: "y", Type: I64},
		{Name: "z", Type: I32},
	}}
	def.AssignLayout(r)
	require.Equal(t, 0, def.Fields[0].FieldIndex)
	require.Equal(t, 0, def.Fields[0].ByteOffset)
	require.Equal(t, 1, def.Fields[1].FieldIndex)
	require.Equal(t, 4, def.Fields[1].ByteOffset)
	require.Equal(t, 2, def.Fields[2].FieldIndex)
	require.Equal(t, 12, def.Fields[2].ByteOffset)
}

func TestEqualStructural(t *testing.T) {
	require.True(t, Equal(TupleOf(I32, F64), TupleOf(I32, F64)))
	require.False(t, Equal(TupleOf(I32, F64), TupleOf(I32, F32)))
	require.True(t, Equal(PointerTo(I32), PointerTo(I32)))
	require.True(t, Equal(StructInstance("foo"), StructInstance("foo")))
	require.False(t, Equal(StructInstance("foo"), StructInstance("bar")))
}

func TestCompatibleForCastNarrowing(t *testing.T) {
	require.True(t, CompatibleForCast(I32, U8, nil))
	require.True(t, CompatibleForCast(Bool, I64, nil))
}

func TestCompatibleForCastWidthConversion(t *testing.T) {
	require.True(t, CompatibleForCast(I32, I64, nil))
	require.True(t, CompatibleForCast(U64, U32, nil))
	require.False(t, CompatibleForCast(I32, U64, nil))
}

func TestCompatibleForCastBitReinterpretation(t *testing.T) {
	require.True(t, CompatibleForCast(PointerTo(U8), U32, nil))
	require.True(t, CompatibleForCast(U32, PointerTo(I32), nil))
	require.False(t, CompatibleForCast(F32, F64, nil))
}

func TestStringRendersCompositeTypes(t *testing.T) {
	require.Equal(t, "i32", I32.String())
	require.Equal(t, "&i32", PointerTo(I32).String())
	require.Equal(t, "(i32, f64)", TupleOf(I32, F64).String())
}
