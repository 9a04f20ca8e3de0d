package loparser

import (
	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
)

// FnContext carries the declared signature, the next local slot index, and
// the accumulated non-argument WebAssembly locals for one function body
// lowering (spec §4.4).
type FnContext struct {
	Ctx            *compctx.ModuleContext
	Output         lotype.Type
	NextLocalIndex int
	// ExtraLocals accumulates the declaration-order (type, name) of every
	// non-argument local a `let` introduces; run-length-compressed into
	// WasmLocals groups by the finalizer.
	ExtraLocals []compctx.LocalDef
	Defers      []*loir.Instr
	MacroArgs   map[string]loir.Instr // non-nil only while expanding a macro
}

// DeclareLocal introduces a new named local, returning its slot index.
func (fc *FnContext) DeclareLocal(name string, typ lotype.Type) compctx.LocalDef {
	def := compctx.LocalDef{Name: name, Type: typ, Index: fc.NextLocalIndex}
	comps := lotype.EmitComponents(typ, fc.Ctx)
	fc.NextLocalIndex += len(comps)
	fc.ExtraLocals = append(fc.ExtraLocals, def)
	return def
}

// PushDefer registers expr on the function-level defer stack (spec §4.2).
func (fc *FnContext) PushDefer(expr loir.Instr) {
	fc.Defers = append(fc.Defers, &expr)
}

// DeferredInReverse returns every registered defer expression in reverse
// registration order, the order `return`/fall-through execute them in (spec
// §4.2, §8).
func (fc *FnContext) DeferredInReverse() []loir.Instr {
	out := make([]loir.Instr, 0, len(fc.Defers))
	for i := len(fc.Defers) - 1; i >= 0; i-- {
		out = append(out, *fc.Defers[i])
	}
	return out
}

// scope is one chained named-local frame of a BlockContext.
type scope struct {
	parent *scope
	locals map[string]compctx.LocalDef
}

func (s *scope) lookup(name string) (compctx.LocalDef, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if def, ok := cur.locals[name]; ok {
			return def, true
		}
	}
	return compctx.LocalDef{}, false
}

// BlockContext is the per-function expression-parsing environment: a
// chained scope of named locals plus the current Block metadata (spec
// §3, §4.2, §4.4).
type BlockContext struct {
	Fn     *FnContext
	Parent *BlockContext
	Kind   loir.BlockKind
	names  *scope
}

// NewFunctionBlock starts the outermost BlockContext for a function body,
// seeded with its parameters as already-declared locals (spec §4.4).
func NewFunctionBlock(fn *FnContext, params map[string]compctx.LocalDef) *BlockContext {
	locals := map[string]compctx.LocalDef{}
	for name, def := range params {
		locals[name] = def
	}
	return &BlockContext{Fn: fn, Kind: loir.BlockFunction, names: &scope{locals: locals}}
}

// Child opens a nested BlockContext of the given kind (plain block, loop,
// or for-loop wrapper).
func (bc *BlockContext) Child(kind loir.BlockKind) *BlockContext {
	return &BlockContext{Fn: bc.Fn, Parent: bc, Kind: kind, names: &scope{parent: bc.names, locals: map[string]compctx.LocalDef{}}}
}

// DeclareLocal declares name in the innermost scope frame, shadowing any
// same-named local in an enclosing block.
func (bc *BlockContext) DeclareLocal(name string, typ lotype.Type) compctx.LocalDef {
	def := bc.Fn.DeclareLocal(name, typ)
	bc.names.locals[name] = def
	return def
}

// LookupLocal resolves name against the chained local scope only; macro
// arguments, which take precedence over locals in spec §4.2's symbol
// resolution order, are consulted by parseSymbolPrimary before this.
func (bc *BlockContext) LookupLocal(name string) (compctx.LocalDef, bool) {
	return bc.names.lookup(name)
}

// BreakLabel / ContinueLabel compute the label index break/continue branch
// to, by walking the enclosing block chain until a Loop- or ForLoop-typed
// block is found (spec §4.2). `for` wraps its loop one level deeper than a
// plain `loop`, so continue/break targets shift by one to skip that wrapper
// block — see parseFor in control.go.
func (bc *BlockContext) loopDepth() (int, bool) {
	depth := 0
	for cur := bc; cur != nil; cur = cur.Parent {
		switch cur.Kind {
		case loir.BlockLoop:
			return depth, true
		case loir.BlockForLoop:
			// for's synthetic wrapper block sits between the loop label (0)
			// and the outer break label (1): continue targets label 0,
			// break targets label 1, both relative to this frame.
			return depth, true
		}
		depth++
	}
	return 0, false
}

func (bc *BlockContext) ContinueLabel() (int, bool) { return bc.loopDepth() }

func (bc *BlockContext) BreakLabel() (int, bool) {
	depth, ok := bc.loopDepth()
	return depth + 1, ok
}
