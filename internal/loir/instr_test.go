package loir

import (
	"testing"

	"github.com/lo-lang/locc/internal/lotype"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	require.Equal(t, KindU32Const, U32Const(42).Kind)
	require.Equal(t, lotype.U32, U32Const(42).Type)
	require.Equal(t, uint32(42), U32Const(42).U32)

	require.Equal(t, KindI64Const, I64Const(-7).Kind)
	require.Equal(t, int64(-7), I64Const(-7).I64)
}

func TestCastedWrapsWithoutMutatingInner(t *testing.T) {
	inner := U32Const(5)
	casted := inner.Casted(lotype.Bool)

	require.Equal(t, KindCasted, casted.Kind)
	require.Equal(t, lotype.Bool, casted.Type)
	require.NotNil(t, casted.Inner)
	require.Equal(t, KindU32Const, casted.Inner.Kind)
	require.Equal(t, lotype.U32, inner.Type, "Casted must not mutate the original instruction")
}

func TestNoInstAndUnreachableSentinels(t *testing.T) {
	require.Equal(t, KindNoInstr, NoInst.Kind)
	require.Equal(t, lotype.Void, NoInst.Type)
	require.Equal(t, KindUnreachable, Unreachable.Kind)
	require.Equal(t, lotype.Never, Unreachable.Type)
}
