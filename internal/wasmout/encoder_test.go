package wasmout

import (
	"testing"

	"github.com/lo-lang/locc/internal/lotype"
	"github.com/stretchr/testify/require"
)

func TestEncodeEmptyModule(t *testing.T) {
	m := &Module{}
	require.Equal(t, magicAndVersion, Encode(m))
}

func TestEncodeMagicAndVersionAlwaysFirst(t *testing.T) {
	m := &Module{
		Types:   []FuncType{{Results: []lotype.Component{lotype.CompI32}}},
		Code:    []Code{{Body: []byte{byte(OpI32Const), 0x2a, byte(OpEnd)}}},
		FuncTypeIndices: []int{0},
	}
	out := Encode(m)
	require.Equal(t, magicAndVersion, out[:8])
	require.Equal(t, byte(sectionType), out[8])
}

func TestDeclareFuncTypeDeduplicates(t *testing.T) {
	m := &Module{}
	a := m.DeclareFuncType(FuncType{Params: []lotype.Component{lotype.CompI32}, Results: []lotype.Component{lotype.CompI32}})
	b := m.DeclareFuncType(FuncType{Params: []lotype.Component{lotype.CompI32}, Results: []lotype.Component{lotype.CompI32}})
	c := m.DeclareFuncType(FuncType{Results: []lotype.Component{lotype.CompI64}})
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, m.Types, 2)
}

func TestAbsoluteFuncIndex(t *testing.T) {
	m := &Module{ImportFuncCount: 3}
	require.Equal(t, 3, m.AbsoluteFuncIndex(0))
	require.Equal(t, 5, m.AbsoluteFuncIndex(2))
}

func TestEncodeExportSection(t *testing.T) {
	m := &Module{
		Exports: []Export{{Name: "main", Kind: ExternFunc, Index: 0}},
	}
	out := Encode(m)
	require.Equal(t, byte(sectionExport), out[8])
}

func TestEncodeNameSectionOrdersByIndex(t *testing.T) {
	m := &Module{
		FuncNames: map[uint32]string{2: "c", 0: "a", 1: "b"},
	}
	body := encodeNameSection(m)
	require.Contains(t, string(body), "name")
	require.Contains(t, string(body), "a")
	require.Contains(t, string(body), "b")
	require.Contains(t, string(body), "c")
	require.Equal(t, []byte{4, 'n', 'a', 'm', 'e', 1, 10, 3, 0, 1, 'a', 1, 1, 'b', 2, 1, 'c'}, body)
}
