//go:build amd64 && cgo

// Package e2e compiles spec §8's numbered source fragments with locc and
// executes the resulting module under a real WebAssembly host, confirming
// each scenario's claimed observable outcome end to end rather than just
// inspecting the emitted bytecode.
package e2e

import (
	"context"

	"github.com/lo-lang/locc"
)

// memHostIO serves a single in-memory entry file; none of these fixtures use
// `include`, so no other lookup ever happens.
type memHostIO struct {
	name, src string
}

func (h memHostIO) ReadFile(name string) (string, error) {
	return h.src, nil
}

// fixtures are spec §8's numbered scenarios. Two differ from the scenario
// text: "dbg" exports leak so the host can call it, and "strlen" declares
// the two-word str struct that scenario assumes.
var fixtures = map[string]string{
	"arith":   `export fn main(): i32 { return 1 + 2 * 3; };`,
	"struct":  `struct P { x: i32, y: i32 }; export fn test(): i32 { let p = P { x: 3, y: 4 }; return p.x + p.y; };`,
	"catch":   `fn bad(): i32 throws i32 { throw 42; }; export fn t(): i32 { bad() catch e { return e; }; return 0; };`,
	"forloop": `export fn sum(): i32 { let s = 0; for i in 0..5 { s += i; }; return s; };`,
	"dbg":     `export fn leak(): void { defer dbg "a"; defer dbg "b"; return; };`,
	"strlen": `struct str { ptr: u32, len: u32 };
memory { min_pages: 1 };
let HELLO = "hi";
export fn len(): i32 { return HELLO.len as i32; };`,
}

func compileFixture(name string) ([]byte, error) {
	src := fixtures[name]
	return locc.Compile(context.Background(), name+".lo", memHostIO{name: name, src: src})
}
