//go:build amd64 && cgo && !windows

package e2e

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-go/wasmer"
)

// runWasmer is the differential cross-check host for the same zero-argument,
// single-i32-result scenarios wasmtime_test.go exercises — the two engines
// must agree, since nothing in spec §8 is host-specific.
func runWasmer(t *testing.T, wasmBytes []byte, funcName string) int32 {
	t.Helper()
	store := wasmer.NewStore(wasmer.NewEngine())
	mod, err := wasmer.NewModule(store, wasmBytes)
	require.NoError(t, err)
	instance, err := wasmer.NewInstance(mod, wasmer.NewImportObject())
	require.NoError(t, err)
	fn, err := instance.Exports.GetFunction(funcName)
	require.NoError(t, err)
	result, err := fn()
	require.NoError(t, err)
	return result.(int32)
}

func TestScenarioArithmeticPrecedenceWasmer(t *testing.T) {
	wasm, err := compileFixture("arith")
	require.NoError(t, err)
	require.Equal(t, int32(7), runWasmer(t, wasm, "main"))
}

func TestScenarioStructFieldAccessWasmer(t *testing.T) {
	wasm, err := compileFixture("struct")
	require.NoError(t, err)
	require.Equal(t, int32(7), runWasmer(t, wasm, "test"))
}

func TestScenarioForLoopAccumulationWasmer(t *testing.T) {
	wasm, err := compileFixture("forloop")
	require.NoError(t, err)
	require.Equal(t, int32(10), runWasmer(t, wasm, "sum"))
}

func TestScenarioCatchRecoversThrownValueWasmer(t *testing.T) {
	wasm, err := compileFixture("catch")
	require.NoError(t, err)
	require.Equal(t, int32(42), runWasmer(t, wasm, "t"))
}

func TestScenarioStringLengthViaDataSegmentWasmer(t *testing.T) {
	wasm, err := compileFixture("strlen")
	require.NoError(t, err)
	require.Equal(t, int32(2), runWasmer(t, wasm, "len"))
}
