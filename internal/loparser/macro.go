package loparser

import (
	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// parseMacroCall implements `name!<T1, ...>(args)` and its method-sugar
// form `receiver.name!<T1, ...>(args)` (spec §4.2). The macro body is
// re-parsed from its stored tokens at every call site with a fresh
// substitution of type arguments — never cached, since two call sites may
// instantiate with different types (spec §9).
func parseMacroCall(bc *BlockContext, s token.Stream, receiver *loir.Instr, name string, loc token.Location) (loir.Instr, error) {
	if _, err := expect(s, token.Operator, "!"); err != nil {
		return loir.Instr{}, err
	}

	receiverName := ""
	if receiver != nil && receiver.Type.Kind == lotype.KindStructInstance {
		receiverName = receiver.Type.StructName
	}
	key := compctx.QualifiedName(receiverName, name)
	macro, ok := bc.Fn.Ctx.Macros[key]
	if !ok && receiverName != "" {
		// fall back to a receiver-less macro of the same name
		macro, ok = bc.Fn.Ctx.Macros[compctx.QualifiedName("", name)]
	}
	if !ok {
		return loir.Instr{}, diag.New(loc, diag.CategoryResolution, "unknown macro %q", name)
	}

	typeArgs, err := parseMacroTypeArgs(bc, s, macro.TypeParams)
	if err != nil {
		return loir.Instr{}, err
	}

	args, err := parseArgs(bc, s)
	if err != nil {
		return loir.Instr{}, err
	}
	if receiver != nil {
		args = append([]loir.Instr{*receiver}, args...)
	}

	concreteParams := make([]compctx.Param, len(macro.Params))
	for i, p := range macro.Params {
		concreteParams[i] = compctx.Param{Name: p.Name, Type: substituteType(p.Type, typeArgs)}
	}
	if err := checkArgs(concreteParams, args, loc); err != nil {
		return loir.Instr{}, err
	}

	macroArgs := make(map[string]loir.Instr, len(concreteParams))
	for i, p := range concreteParams {
		macroArgs[p.Name] = args[i]
	}

	if err := bc.Fn.Ctx.EnterMacro(loc); err != nil {
		return loir.Instr{}, err
	}
	defer bc.Fn.Ctx.ExitMacro()

	prevMacroArgs := bc.Fn.MacroArgs
	bc.Fn.MacroArgs = macroArgs
	defer func() { bc.Fn.MacroArgs = prevMacroArgs }()

	expandCtx := bc.Child(loir.BlockPlain)
	expectedTail := substituteType(macro.ReturnType, typeArgs)
	sub := newSeqStream(macro.BodyTokens, loc)
	body, err := parseExprSequence(expandCtx, sub, expectedTail)
	if err != nil {
		return loir.Instr{}, err
	}
	if len(body) == 1 {
		return body[0], nil
	}
	return loir.Instr{Kind: loir.KindMultiValueEmit, Type: expectedTail, Values: body, Loc: loc}, nil
}

// parseMacroTypeArgs parses `<T1, T2>` against the macro's declared type
// parameter names, returning the substitution map.
func parseMacroTypeArgs(bc *BlockContext, s token.Stream, typeParams []string) (map[string]lotype.Type, error) {
	out := make(map[string]lotype.Type, len(typeParams))
	if len(typeParams) == 0 {
		return out, nil
	}
	if _, err := expect(s, token.Operator, "<"); err != nil {
		return nil, err
	}
	for i, name := range typeParams {
		typ, err := ParseType(bc.Fn.Ctx, nil, s)
		if err != nil {
			return nil, err
		}
		out[name] = typ
		if i < len(typeParams)-1 {
			if _, err := expect(s, token.Delim, ","); err != nil {
				return nil, err
			}
		}
	}
	if _, err := expect(s, token.Operator, ">"); err != nil {
		return nil, err
	}
	return out, nil
}

// substituteType replaces every MacroTypeArg leaf in t with its bound
// concrete type from args (spec §3). Types with no MacroTypeArg leaves pass
// through unchanged.
func substituteType(t lotype.Type, args map[string]lotype.Type) lotype.Type {
	switch t.Kind {
	case lotype.KindMacroTypeArg:
		if concrete, ok := args[t.MacroArgName]; ok {
			return concrete
		}
		return t
	case lotype.KindPointer:
		inner := substituteType(*t.Pointee, args)
		return lotype.PointerTo(inner)
	case lotype.KindTuple:
		elems := make([]lotype.Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = substituteType(e, args)
		}
		return lotype.TupleOf(elems...)
	case lotype.KindResult:
		ok := substituteType(*t.Ok, args)
		err := substituteType(*t.Err, args)
		return lotype.ResultOf(ok, err)
	default:
		return t
	}
}

// parseExprSequence parses a semicolon-separated expression sequence with
// no enclosing braces (a macro body's stored tokens), typechecking the
// final expression's type against expectedTail the same way a block does.
func parseExprSequence(bc *BlockContext, s token.Stream, expectedTail lotype.Type) ([]loir.Instr, error) {
	var out []loir.Instr
	for {
		if _, ok := s.Peek(); !ok {
			break
		}
		expr, err := ParseExpr(bc, s, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		if _, ok := eat(s, token.Delim, ";"); !ok {
			break
		}
	}
	var tailType lotype.Type = lotype.Void
	if len(out) > 0 {
		tailType = out[len(out)-1].Type
	}
	if tailType.Kind != lotype.KindNever && !lotype.Equal(tailType, expectedTail) {
		return nil, diag.New(s.Loc(), diag.CategoryType, "macro body tail type %s does not match declared return type %s", tailType, expectedTail)
	}
	return out, nil
}
