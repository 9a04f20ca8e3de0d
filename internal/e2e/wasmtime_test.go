//go:build amd64 && cgo

package e2e

import (
	"testing"

	"github.com/bytecodealliance/wasmtime-go"
	"github.com/stretchr/testify/require"
)

// runWasmtime instantiates wasm and calls the exported zero-argument,
// single-i32-result function funcName, per spec §8's scenarios 1 through 5.
func runWasmtime(t *testing.T, wasm []byte, funcName string) int32 {
	t.Helper()
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)
	mod, err := wasmtime.NewModule(engine, wasm)
	require.NoError(t, err)
	instance, err := wasmtime.NewInstance(store, mod, nil)
	require.NoError(t, err)
	fn := instance.GetExport(store, funcName).Func()
	require.NotNil(t, fn, "%s is not an exported function", funcName)
	result, err := fn.Call(store)
	require.NoError(t, err)
	return result.(int32)
}

func TestScenarioArithmeticPrecedence(t *testing.T) {
	wasm, err := compileFixture("arith")
	require.NoError(t, err)
	require.Equal(t, int32(7), runWasmtime(t, wasm, "main"))
}

func TestScenarioStructFieldAccess(t *testing.T) {
	wasm, err := compileFixture("struct")
	require.NoError(t, err)
	require.Equal(t, int32(7), runWasmtime(t, wasm, "test"))
}

func TestScenarioForLoopAccumulation(t *testing.T) {
	wasm, err := compileFixture("forloop")
	require.NoError(t, err)
	require.Equal(t, int32(10), runWasmtime(t, wasm, "sum"))
}

func TestScenarioCatchRecoversThrownValue(t *testing.T) {
	wasm, err := compileFixture("catch")
	require.NoError(t, err)
	require.Equal(t, int32(42), runWasmtime(t, wasm, "t"))
}

// TestScenarioStringLengthViaDataSegment covers spec §8 scenario 5: a global
// string literal interned into the data segment, read back through the
// user-declared `str` struct's `len` field.
func TestScenarioStringLengthViaDataSegment(t *testing.T) {
	wasm, err := compileFixture("strlen")
	require.NoError(t, err)
	require.Equal(t, int32(2), runWasmtime(t, wasm, "len"))
}

// TestScenarioDebugWritesObservedInReverseDeferOrder covers spec §8 scenario
// 6: two `defer dbg` statements unwind last-registered-first, so the host's
// env.stderr_write import must observe "b" before "a".
func TestScenarioDebugWritesObservedInReverseDeferOrder(t *testing.T) {
	wasm, err := compileFixture("dbg")
	require.NoError(t, err)

	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)
	mod, err := wasmtime.NewModule(engine, wasm)
	require.NoError(t, err)

	var writes []string
	var mem *wasmtime.Memory
	stderrWrite := wasmtime.WrapFunc(store, func(ptr, length int32) {
		data := mem.UnsafeData(store)
		writes = append(writes, string(data[ptr:ptr+length]))
	})

	instance, err := wasmtime.NewInstance(store, mod, []wasmtime.AsExtern{stderrWrite})
	require.NoError(t, err)
	mem = instance.GetExport(store, "memory").Memory()

	fn := instance.GetExport(store, "leak").Func()
	require.NotNil(t, fn)
	_, err = fn.Call(store)
	require.NoError(t, err)

	require.Equal(t, []string{"b", "a"}, writes)
}
