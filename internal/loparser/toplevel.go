// Package loparser implements the single-pass parser: a Pratt expression
// parser that simultaneously resolves names, typechecks, expands macros,
// and emits loir.Instr, driven by a top-level declaration loop (spec §2,
// §4.1, §4.2).
package loparser

import (
	"path"
	"strconv"

	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/lexer"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
	"github.com/lo-lang/locc/internal/wasmout"
)

// SourceLoader resolves an `include "PATH"` target to its contents, letting
// the parser stay free of direct file-system access (spec §9).
type SourceLoader interface {
	Load(fromFile, path string) (resolvedPath, src string, err error)
}

// ParseFile lexes and parses one source file's top-level declarations into
// ctx, recursing into `include` targets through loader. Re-including an
// already-visited file is a silent no-op (spec §4.1's cycle guard).
func ParseFile(ctx *compctx.ModuleContext, loader SourceLoader, fileName, src string) error {
	norm := path.Clean(fileName)
	if _, seen := ctx.IncludedModules[norm]; seen {
		return nil
	}
	if ctx.MaxIncludedFiles > 0 && len(ctx.IncludedModules) >= ctx.MaxIncludedFiles {
		return diag.New(token.Internal(), diag.CategoryIO, "include count exceeds the limit of %d files", ctx.MaxIncludedFiles)
	}
	ctx.IncludedModules[norm] = len(ctx.IncludedModules)
	ctx.EmitInspect(compctx.InspectEvent{Kind: "file", File: fileName})

	s, err := lexer.Lex(fileName, src)
	if err != nil {
		return diag.New(token.Internal(), diag.CategoryParse, "%s: %v", fileName, err)
	}
	return parseTopLevel(ctx, loader, fileName, s)
}

func parseTopLevel(ctx *compctx.ModuleContext, loader SourceLoader, fileName string, s token.Stream) error {
	for {
		t, ok := s.Peek()
		if !ok {
			return nil
		}

		var err error
		switch {
		case t.Is(token.Symbol, "include"):
			err = parseInclude(ctx, loader, fileName, s)
		case t.Is(token.Symbol, "import"):
			err = parseImportBlock(ctx, s)
		case t.Is(token.Symbol, "memory"):
			err = parseMemoryDecl(ctx, s)
		case t.Is(token.Symbol, "fn"):
			err = parseFnDecl(ctx, s, false)
		case t.Is(token.Symbol, "export"):
			err = parseExportDecl(ctx, s)
		case t.Is(token.Symbol, "let"):
			err = parseGlobalLet(ctx, s)
		case t.Is(token.Symbol, "const"):
			err = parseConstDecl(ctx, s)
		case t.Is(token.Symbol, "type"):
			err = parseTypeAlias(ctx, s)
		case t.Is(token.Symbol, "struct"):
			err = parseStructDecl(ctx, s)
		case t.Is(token.Symbol, "macro"):
			err = parseMacroDecl(ctx, s)
		default:
			err = unexpected(s, "unexpected top-level token %s", t)
		}
		if err != nil {
			return err
		}
	}
}

func parseInclude(ctx *compctx.ModuleContext, loader SourceLoader, fromFile string, s token.Stream) error {
	s.Next() // 'include'
	pathTok, err := expectKind(s, token.StringLiteral)
	if err != nil {
		return err
	}
	eat(s, token.Delim, ";")
	if loader == nil {
		return diag.New(pathTok.Loc, diag.CategoryIO, "include %q: no source loader configured", pathTok.Value)
	}
	resolved, src, err := loader.Load(fromFile, pathTok.Value)
	if err != nil {
		return diag.New(pathTok.Loc, diag.CategoryIO, "include %q: %v", pathTok.Value, err)
	}
	ctx.EmitInspect(compctx.InspectEvent{
		Kind: "link", File: fromFile, Line: pathTok.Loc.Line, Column: pathTok.Loc.Column, Target: resolved,
	})
	return ParseFile(ctx, loader, resolved, src)
}

// parseImportBlock implements `import from "MODULE" { fn NAME(...): T; ... }`
// (spec §4.1). Every listed function becomes an imported function.
func parseImportBlock(ctx *compctx.ModuleContext, s token.Stream) error {
	s.Next() // 'import'
	if _, err := expect(s, token.Symbol, "from"); err != nil {
		return err
	}
	moduleName, err := expectKind(s, token.StringLiteral)
	if err != nil {
		return err
	}
	if _, err := expect(s, token.Delim, "{"); err != nil {
		return err
	}
	for !peekIs(s, token.Delim, "}") {
		if _, err := expect(s, token.Symbol, "fn"); err != nil {
			return err
		}
		name, err := expectKind(s, token.Symbol)
		if err != nil {
			return err
		}
		params, err := parseParamList(ctx, s, "")
		if err != nil {
			return err
		}
		output := lotype.Void
		if _, ok := eat(s, token.Delim, ":"); ok {
			output, err = ParseReturnType(ctx, nil, s)
			if err != nil {
				return err
			}
		}
		eat(s, token.Delim, ";")

		cParams := make([]lotype.Component, 0, len(params))
		for _, p := range params {
			cParams = append(cParams, lotype.EmitComponents(p.Type, ctx)...)
		}
		typeIdx := ctx.Module.DeclareFuncType(wasmout.FuncType{Params: cParams, Results: lotype.EmitComponents(output, ctx)})

		fn := &compctx.FunctionDef{Params: params, Output: output, TypeIndex: typeIdx, Loc: name.Loc}
		if err := ctx.DeclareImportedFunc(name.Value, fn); err != nil {
			return err
		}
		ctx.Module.Imports = append(ctx.Module.Imports, wasmout.Import{
			Module: moduleName.Value, Name: name.Value, Kind: wasmout.ExternFunc, TypeIndex: typeIdx,
		})
		ctx.Module.ImportFuncCount++
		ctx.Module.FuncNames[uint32(fn.FnIndex)] = name.Value
	}
	_, err = expect(s, token.Delim, "}")
	return err
}

// parseMemoryDecl implements the two `memory` forms spec §4.1 lists: the
// size declaration `memory { min_pages, max_pages }` and an active data
// segment `memory @OFFSET = "BYTES"`.
func parseMemoryDecl(ctx *compctx.ModuleContext, s token.Stream) error {
	loc, _ := s.Next() // 'memory'
	if _, ok := eat(s, token.Operator, "@"); ok {
		offsetInstr, err := ParseConstExpr(ctx, s)
		if err != nil {
			return err
		}
		if offsetInstr.Kind != loir.KindU32Const {
			return diag.New(loc.Loc, diag.CategoryStructural, "memory data-segment offset must be a constant u32")
		}
		if _, err := expect(s, token.Operator, "="); err != nil {
			return err
		}
		data, err := expectKind(s, token.StringLiteral)
		if err != nil {
			return err
		}
		ctx.EnsureMemory()
		ctx.Module.Data = append(ctx.Module.Data, wasmout.DataSegment{Offset: offsetInstr.U32, Bytes: []byte(data.Value)})
		end := offsetInstr.U32 + uint32(len(data.Value))
		if end > *ctx.DataSize {
			*ctx.DataSize = end
		}
		eat(s, token.Delim, ";")
		return nil
	}

	if _, err := expect(s, token.Delim, "{"); err != nil {
		return err
	}
	mem := &wasmout.Memory{}
	for !peekIs(s, token.Delim, "}") {
		key, err := expectKind(s, token.Symbol)
		if err != nil {
			return err
		}
		if _, err := expect(s, token.Delim, ":"); err != nil {
			return err
		}
		valTok, err := expectKind(s, token.IntLiteral)
		if err != nil {
			return err
		}
		val, err := parseUintLiteral(valTok)
		if err != nil {
			return err
		}
		switch key.Value {
		case "min_pages":
			mem.MinPages = val
		case "max_pages":
			mem.MaxPages = val
			mem.HasMax = true
		default:
			return diag.New(key.Loc, diag.CategoryStructural, "unknown memory field %q", key.Value)
		}
		if _, ok := eat(s, token.Delim, ","); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, "}"); err != nil {
		return err
	}
	ctx.Module.Memory = mem
	eat(s, token.Delim, ";")
	return nil
}

// parseExportDecl handles `export fn ...` (inline export) and
// `export existing fn NAME as "EXTERN"` (spec §4.1, §4.5 step 1).
func parseExportDecl(ctx *compctx.ModuleContext, s token.Stream) error {
	s.Next() // 'export'
	if _, ok := eatSymbol(s, "memory"); ok {
		ctx.ExportMemory = true
		eat(s, token.Delim, ";")
		return nil
	}
	if _, ok := eatSymbol(s, "existing"); ok {
		if _, err := expect(s, token.Symbol, "fn"); err != nil {
			return err
		}
		name, err := expectKind(s, token.Symbol)
		if err != nil {
			return err
		}
		if _, err := expect(s, token.Symbol, "as"); err != nil {
			return err
		}
		asName, err := expectKind(s, token.StringLiteral)
		if err != nil {
			return err
		}
		eat(s, token.Delim, ";")
		ctx.Exports = append(ctx.Exports, compctx.ExportEntry{InName: name.Value, AsName: asName.Value, Loc: name.Loc})
		return nil
	}
	return parseFnDecl(ctx, s, true)
}

// parseFnDecl parses `fn NAME(params): OUTPUT { body_tokens }` or the
// qualified method-bound form `fn A::NAME(self|&self, params): OUTPUT { ... }`
// (spec §4.1, §4.2), registering the declaration under
// compctx.QualifiedName(receiver, name) and deferring the body's lowering to
// the finalizer (spec §4.4). autoExport additionally registers an export
// entry under the function's own (unqualified) name.
func parseFnDecl(ctx *compctx.ModuleContext, s token.Stream, autoExport bool) error {
	s.Next() // 'fn'
	first, err := expectKind(s, token.Symbol)
	if err != nil {
		return err
	}
	receiver, name := "", first
	if _, ok := eat(s, token.Operator, "::"); ok {
		second, err := expectKind(s, token.Symbol)
		if err != nil {
			return err
		}
		receiver, name = first.Value, second
	}

	params, err := parseParamList(ctx, s, receiver)
	if err != nil {
		return err
	}
	output := lotype.Void
	if _, ok := eat(s, token.Delim, ":"); ok {
		output, err = ParseReturnType(ctx, nil, s)
		if err != nil {
			return err
		}
	}

	if _, err := expect(s, token.Delim, "{"); err != nil {
		return err
	}
	bodyTokens, err := collectBalanced(s, "{", "}")
	if err != nil {
		return err
	}

	cParams := make([]lotype.Component, 0, len(params))
	for _, p := range params {
		cParams = append(cParams, lotype.EmitComponents(p.Type, ctx)...)
	}
	typeIdx := ctx.Module.DeclareFuncType(wasmout.FuncType{Params: cParams, Results: lotype.EmitComponents(output, ctx)})

	key := compctx.QualifiedName(receiver, name.Value)
	fn := &compctx.FunctionDef{Params: params, Output: output, TypeIndex: typeIdx, ReceiverOf: receiver, Loc: name.Loc}
	if err := ctx.DeclareLocalFunc(key, fn); err != nil {
		return err
	}
	ctx.Module.FuncTypeIndices = append(ctx.Module.FuncTypeIndices, typeIdx)
	ctx.Module.FuncNames[uint32(ctx.Module.AbsoluteFuncIndex(fn.FnIndex))] = key

	namedLocals := make(map[string]compctx.LocalDef, len(params))
	nextLocal := 0
	for _, p := range params {
		namedLocals[p.Name] = compctx.LocalDef{Name: p.Name, Type: p.Type, Index: nextLocal}
		nextLocal += len(lotype.EmitComponents(p.Type, ctx))
	}

	ctx.PendingBodies = append(ctx.PendingBodies, &compctx.PendingFnBody{
		FnIndex: fn.FnIndex, TypeIndex: typeIdx, DeclLoc: name.Loc,
		Params: params, Output: output, BodyTokens: bodyTokens,
		NextLocalIndex: nextLocal, NamedLocals: namedLocals,
	})

	if autoExport {
		ctx.Exports = append(ctx.Exports, compctx.ExportEntry{InName: key, AsName: name.Value, Loc: name.Loc})
	}
	eat(s, token.Delim, ";")
	return nil
}

// parseParamList parses a `(params)` list. receiver is the struct name a
// qualified `A::b` declaration binds to, or "" for a plain function/import —
// it is only consulted to type a bare `self`/`&self` first parameter, which
// stands for "by value" and "by pointer" receivers respectively (spec
// §4.2's method-bound function form).
func parseParamList(ctx *compctx.ModuleContext, s token.Stream, receiver string) ([]compctx.Param, error) {
	if _, err := expect(s, token.Delim, "("); err != nil {
		return nil, err
	}
	var params []compctx.Param
	first := true
	for !peekIs(s, token.Delim, ")") {
		if first && receiver != "" {
			if _, ok := eat(s, token.Symbol, "self"); ok {
				params = append(params, compctx.Param{Name: "self", Type: lotype.StructInstance(receiver)})
				first = false
				if _, ok := eat(s, token.Delim, ","); !ok {
					break
				}
				continue
			}
			if _, ok := eat(s, token.Operator, "&"); ok {
				if _, err := expect(s, token.Symbol, "self"); err != nil {
					return nil, err
				}
				params = append(params, compctx.Param{Name: "self", Type: lotype.PointerTo(lotype.StructInstance(receiver))})
				first = false
				if _, ok := eat(s, token.Delim, ","); !ok {
					break
				}
				continue
			}
		}
		first = false
		name, err := expectKind(s, token.Symbol)
		if err != nil {
			return nil, err
		}
		if _, err := expect(s, token.Delim, ":"); err != nil {
			return nil, err
		}
		typ, err := ParseType(ctx, nil, s)
		if err != nil {
			return nil, err
		}
		params = append(params, compctx.Param{Name: name.Value, Type: typ})
		if _, ok := eat(s, token.Delim, ","); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, ")"); err != nil {
		return nil, err
	}
	return params, nil
}

// parseGlobalLet implements a top-level `let NAME = EXPR;` mutable global
// (spec §4.1). The initializer is stored as tokens and re-lowered by the
// finalizer once __DATA_SIZE__ is final (spec §5).
func parseGlobalLet(ctx *compctx.ModuleContext, s token.Stream) error {
	s.Next() // 'let'
	name, err := expectKind(s, token.Symbol)
	if err != nil {
		return err
	}
	if _, err := expect(s, token.Operator, "="); err != nil {
		return err
	}
	initTokens, err := collectExprTokens(s)
	if err != nil {
		return err
	}

	sub := newSeqStream(initTokens, name.Loc)
	probe, err := ParseConstExpr(ctx, sub)
	if err != nil {
		return err
	}

	g := &compctx.Global{Name: name.Value, Type: probe.Type, InitTokens: initTokens, Loc: name.Loc}
	if err := ctx.DeclareGlobal(g); err != nil {
		return err
	}
	ctx.Module.Globals = append(ctx.Module.Globals, wasmout.Global{})
	return nil
}

// parseConstDecl implements `const NAME = EXPR;` (spec §4.1): never occupies
// a WebAssembly slot, substituted at every use site.
func parseConstDecl(ctx *compctx.ModuleContext, s token.Stream) error {
	s.Next() // 'const'
	name, err := expectKind(s, token.Symbol)
	if err != nil {
		return err
	}
	if _, err := expect(s, token.Operator, "="); err != nil {
		return err
	}
	valueTokens, err := collectExprTokens(s)
	if err != nil {
		return err
	}
	sub := newSeqStream(valueTokens, name.Loc)
	probe, err := ParseConstExpr(ctx, sub)
	if err != nil {
		return err
	}
	return ctx.DeclareConstant(&compctx.Constant{Name: name.Value, Type: probe.Type, ValueTokens: valueTokens, Loc: name.Loc})
}

// parseTypeAlias implements `type NAME = TYPE;` (spec §4.1).
func parseTypeAlias(ctx *compctx.ModuleContext, s token.Stream) error {
	s.Next() // 'type'
	name, err := expectKind(s, token.Symbol)
	if err != nil {
		return err
	}
	if _, err := expect(s, token.Operator, "="); err != nil {
		return err
	}
	typ, err := ParseType(ctx, nil, s)
	if err != nil {
		return err
	}
	eat(s, token.Delim, ";")
	ctx.TypeScope[name.Value] = typ
	return nil
}

// parseStructDecl implements `struct NAME { field: TYPE, ... }` (spec §4.1,
// §4.3). The struct is registered before its fields are parsed so a field
// may declare a pointer back to the struct itself.
func parseStructDecl(ctx *compctx.ModuleContext, s token.Stream) error {
	s.Next() // 'struct'
	name, err := expectKind(s, token.Symbol)
	if err != nil {
		return err
	}
	def, err := ctx.DeclareStruct(name.Value, name.Loc)
	if err != nil {
		return err
	}
	if _, err := expect(s, token.Delim, "{"); err != nil {
		return err
	}
	for !peekIs(s, token.Delim, "}") {
		fieldName, err := expectKind(s, token.Symbol)
		if err != nil {
			return err
		}
		if _, err := expect(s, token.Delim, ":"); err != nil {
			return err
		}
		fieldType, err := ParseType(ctx, nil, s)
		if err != nil {
			return err
		}
		def.Fields = append(def.Fields, lotype.Field{Name: fieldName.Value, Type: fieldType})
		if _, ok := eat(s, token.Delim, ","); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, "}"); err != nil {
		return err
	}
	def.AssignLayout(ctx)
	def.FullyDefined = true
	eat(s, token.Delim, ";")
	return nil
}

// parseMacroDecl implements `macro NAME!<T, ...>(params): RETURN { body }`
// (spec §3, §4.2), or its method-bound form `macro Receiver::NAME!<...>(...)`.
func parseMacroDecl(ctx *compctx.ModuleContext, s token.Stream) error {
	s.Next() // 'macro'
	first, err := expectKind(s, token.Symbol)
	if err != nil {
		return err
	}
	receiver, name := "", first.Value
	if _, ok := eat(s, token.Operator, "::"); ok {
		second, err := expectKind(s, token.Symbol)
		if err != nil {
			return err
		}
		receiver, name = first.Value, second.Value
	}

	var typeParams []string
	if _, ok := eat(s, token.Operator, "!"); ok {
		if _, err := expect(s, token.Operator, "<"); err != nil {
			return err
		}
		for {
			tp, err := expectKind(s, token.Symbol)
			if err != nil {
				return err
			}
			typeParams = append(typeParams, tp.Value)
			if _, ok := eat(s, token.Delim, ","); !ok {
				break
			}
		}
		if _, err := expect(s, token.Operator, ">"); err != nil {
			return err
		}
	}

	typeScope := make(map[string]lotype.Type, len(typeParams))
	for _, tp := range typeParams {
		typeScope[tp] = lotype.MacroArg(tp)
	}

	if _, err := expect(s, token.Delim, "("); err != nil {
		return err
	}
	var params []compctx.Param
	for !peekIs(s, token.Delim, ")") {
		pname, err := expectKind(s, token.Symbol)
		if err != nil {
			return err
		}
		if _, err := expect(s, token.Delim, ":"); err != nil {
			return err
		}
		typ, err := ParseType(ctx, typeScope, s)
		if err != nil {
			return err
		}
		params = append(params, compctx.Param{Name: pname.Value, Type: typ})
		if _, ok := eat(s, token.Delim, ","); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, ")"); err != nil {
		return err
	}

	returnType := lotype.Void
	if _, ok := eat(s, token.Delim, ":"); ok {
		returnType, err = ParseReturnType(ctx, typeScope, s)
		if err != nil {
			return err
		}
	}

	if _, err := expect(s, token.Delim, "{"); err != nil {
		return err
	}
	bodyTokens, err := collectBalanced(s, "{", "}")
	if err != nil {
		return err
	}

	key := compctx.QualifiedName(receiver, name)
	if _, exists := ctx.Macros[key]; exists {
		return diag.New(first.Loc, diag.CategoryResolution, "duplicate definition of macro %q", key)
	}
	ctx.Macros[key] = &compctx.MacroDef{
		ReceiverType: receiver, MethodName: name, TypeParams: typeParams,
		Params: params, ReturnType: returnType, BodyTokens: bodyTokens, Loc: first.Loc,
	}
	eat(s, token.Delim, ";")
	return nil
}

// collectExprTokens captures the tokens of a top-level initializer up to
// (not including) the terminating `;`, tracking nesting depth so a nested
// `(`, `{`, or `[` containing its own `;`-free contents does not
// mis-terminate the capture.
func collectExprTokens(s token.Stream) ([]token.Token, error) {
	var out []token.Token
	depth := 0
	for {
		t, ok := s.Peek()
		if !ok {
			return nil, unexpectedEOF(s)
		}
		if depth == 0 && t.Is(token.Delim, ";") {
			s.Next()
			return out, nil
		}
		if t.Is(token.Delim, "(") || t.Is(token.Delim, "{") || t.Is(token.Delim, "[") {
			depth++
		} else if t.Is(token.Delim, ")") || t.Is(token.Delim, "}") || t.Is(token.Delim, "]") {
			depth--
		}
		s.Next()
		out = append(out, t)
	}
}

func parseUintLiteral(t token.Token) (uint32, error) {
	v, err := strconv.ParseUint(normalizeIntLiteral(t.Value), 0, 32)
	if err != nil {
		return 0, diag.New(t.Loc, diag.CategoryParse, "malformed integer literal %q", t.Value)
	}
	return uint32(v), nil
}
