package loparser

import (
	"testing"

	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/stretchr/testify/require"
)

// TestDefaultValueFloatTypesUseGenuineFloatConstants is the regression test
// for the i32.const-wrapped-in-Casted bug: an F32/F64 zero value must come
// from F32Const/F64Const, never from an integer constant overlaid with
// Casted (which leaves the wrong wasm value type on the stack).
func TestDefaultValueFloatTypesUseGenuineFloatConstants(t *testing.T) {
	f32 := defaultValue(lotype.F32)
	require.Equal(t, loir.KindF32Const, f32.Kind)
	require.Equal(t, lotype.F32, f32.Type)
	require.Equal(t, float32(0), f32.F32)

	f64 := defaultValue(lotype.F64)
	require.Equal(t, loir.KindF64Const, f64.Kind)
	require.Equal(t, lotype.F64, f64.Type)
	require.Equal(t, float64(0), f64.F64)
}

func TestDefaultValueIntegerTypesStillCast(t *testing.T) {
	i64 := defaultValue(lotype.I64)
	require.Equal(t, loir.KindCasted, i64.Kind)
	require.Equal(t, loir.KindI64Const, i64.Inner.Kind)

	i32 := defaultValue(lotype.I32)
	require.Equal(t, loir.KindCasted, i32.Kind)
	require.Equal(t, loir.KindU32Const, i32.Inner.Kind)
}

func TestDefaultValueVoidAndNeverAreNoInstr(t *testing.T) {
	require.Equal(t, loir.KindNoInstr, defaultValue(lotype.Void).Kind)
	require.Equal(t, loir.KindNoInstr, defaultValue(lotype.Never).Kind)
}
