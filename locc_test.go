package locc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHostIO map[string]string

func (h fakeHostIO) ReadFile(name string) (string, error) {
	src, ok := h[name]
	if !ok {
		return "", errors.New("no such file: " + name)
	}
	return src, nil
}

func TestCompileProducesWasmMagicAndVersion(t *testing.T) {
	host := fakeHostIO{"main.lo": `export fn main(): i32 { return 1 + 2 * 3; };`}
	wasm, err := Compile(context.Background(), "main.lo", host)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, wasm[:8])
}

func TestCompilePropagatesReaderError(t *testing.T) {
	host := fakeHostIO{}
	_, err := Compile(context.Background(), "missing.lo", host)
	require.Error(t, err)
}

func TestCompileFollowsInclude(t *testing.T) {
	host := fakeHostIO{
		"main.lo": `include "lib.lo"; export fn main(): i32 { return helper(); };`,
		"lib.lo":  `fn helper(): i32 { return 9; };`,
	}
	wasm, err := Compile(context.Background(), "main.lo", host)
	require.NoError(t, err)
	require.NotEmpty(t, wasm)
}

func TestInspectEmitsFileAndEndEvents(t *testing.T) {
	host := fakeHostIO{"main.lo": `export fn main(): i32 { return 1; };`}
	events, err := Inspect(context.Background(), "main.lo", host)
	require.NoError(t, err)
	require.Contains(t, string(events), `"kind":"file"`)
	require.Contains(t, string(events), `"kind":"end"`)
}

func TestWithMaxIncludedFilesRejectsOverLimit(t *testing.T) {
	host := fakeHostIO{
		"a.lo": `include "b.lo"; export fn main(): i32 { return 1; };`,
		"b.lo": `include "c.lo";`,
		"c.lo": ``,
	}
	_, err := Compile(context.Background(), "a.lo", host, WithMaxIncludedFiles(1))
	require.Error(t, err)
}

func TestOptionsCloneDoesNotMutateOriginal(t *testing.T) {
	base := NewOptions()
	derived := WithMaxMacroRecursion(5)(base)
	require.Equal(t, 64, base.maxMacroRecursion)
	require.Equal(t, 5, derived.maxMacroRecursion)
}
