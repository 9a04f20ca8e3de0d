package finalize

import (
	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/loparser"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/wasmout"
)

// Module drives every deferred piece of a ModuleContext through to a
// finished wasmout.Module (spec §4.5): function bodies, global initializers,
// and exports (including the "memory" export), in the order spec §5 requires
// (bodies and globals only after every include/import/struct/macro/function
// signature in the module is known; __DATA_SIZE__ only after every string
// literal across every body has been interned).
func Module(ctx *compctx.ModuleContext) (*wasmout.Module, error) {
	if err := resolveFunctionBodies(ctx); err != nil {
		return nil, err
	}
	if err := resolveGlobals(ctx); err != nil {
		return nil, err
	}
	if err := resolveExports(ctx); err != nil {
		return nil, err
	}
	return ctx.Module, nil
}

// resolveFunctionBodies lowers every PendingFnBody. Re-lowering strings
// inside a body may grow data_size further (a body can declare locals
// whose string defaults etc. intern new segments), so every body is parsed
// before resolveGlobals computes __DATA_SIZE__-dependent initializers.
func resolveFunctionBodies(ctx *compctx.ModuleContext) error {
	codes := make([]wasmout.Code, len(ctx.PendingBodies))
	for i, pb := range ctx.PendingBodies {
		body, extraLocals, err := loparser.ParseFunctionBody(ctx, pb)
		if err != nil {
			return err
		}
		bytecode, err := EmitFunctionBody(ctx, ctx.Module, body)
		if err != nil {
			return err
		}
		codes[i] = wasmout.Code{
			Locals: compressLocals(ctx, extraLocals),
			Body:   bytecode,
		}
	}
	ctx.Module.Code = codes
	return nil
}

// compressLocals run-length-compresses a function's non-argument locals
// into same-typed groups (spec §4.4): consecutive locals of one component
// share a LocalGroup entry, the encoding the code section requires.
func compressLocals(r lotype.Resolver, locals []compctx.LocalDef) []wasmout.LocalGroup {
	var groups []wasmout.LocalGroup
	for _, local := range locals {
		for _, comp := range lotype.EmitComponents(local.Type, r) {
			if len(groups) > 0 && groups[len(groups)-1].Type == comp {
				groups[len(groups)-1].Count++
				continue
			}
			groups = append(groups, wasmout.LocalGroup{Count: 1, Type: comp})
		}
	}
	return groups
}

// resolveGlobals re-lowers every global's initializer now that __DATA_SIZE__
// and every string literal's data-segment offset are final (spec §5).
func resolveGlobals(ctx *compctx.ModuleContext) error {
	globals := make([]wasmout.Global, len(ctx.Globals))
	for i, g := range ctx.Globals {
		sub := loparser.NewSeqStream(g.InitTokens, g.Loc)
		init, err := loparser.ParseConstExpr(ctx, sub)
		if err != nil {
			return err
		}
		if !lotype.Equal(init.Type, g.Type) {
			return diag.New(g.Loc, diag.CategoryType,
				"global %q initializer type %s does not match declared type %s", g.Name, init.Type, g.Type)
		}
		comps := lotype.EmitComponents(g.Type, ctx)
		if len(comps) != 1 {
			return diag.New(g.Loc, diag.CategoryStructural, "global %q type %s does not fit a single wasm value", g.Name, g.Type)
		}
		initBytes, err := EmitFunctionBody(ctx, ctx.Module, []loir.Instr{init})
		if err != nil {
			return err
		}
		globals[i] = wasmout.Global{Type: comps[0], Mutable: true, InitExpr: initBytes}
	}
	ctx.Module.Globals = globals
	return nil
}

// resolveExports resolves every pending `export` declaration to an absolute
// function index (spec §4.5 step 1), then appends the memory export if
// `export memory` was declared.
func resolveExports(ctx *compctx.ModuleContext) error {
	exports := make([]wasmout.Export, 0, len(ctx.Exports)+1)
	for _, e := range ctx.Exports {
		fn, ok := ctx.LookupFunc(e.InName)
		if !ok {
			return diag.New(e.Loc, diag.CategoryResolution, "export of undeclared function %q", e.InName)
		}
		exports = append(exports, wasmout.Export{
			Name:  e.AsName,
			Kind:  wasmout.ExternFunc,
			Index: uint32(fn.AbsoluteIndex(ctx.ImportedFnsCount)),
		})
	}
	if ctx.ExportMemory {
		exports = append(exports, wasmout.Export{Name: "memory", Kind: wasmout.ExternMemory, Index: 0})
	}
	ctx.Module.Exports = exports
	return nil
}
