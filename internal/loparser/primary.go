package loparser

import (
	"strconv"

	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// parsePrimary covers every primary production listed in spec §4.2.
func parsePrimary(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	t, ok := s.Peek()
	if !ok {
		return loir.Instr{}, unexpectedEOF(s)
	}

	switch {
	case t.Kind == token.IntLiteral:
		s.Next()
		v, err := strconv.ParseUint(normalizeIntLiteral(t.Value), 0, 64)
		if err != nil {
			return loir.Instr{}, diag.New(t.Loc, diag.CategoryParse, "malformed integer literal %q", t.Value)
		}
		instr := loir.U32Const(uint32(v))
		instr.Loc = t.Loc
		return instr, nil

	case t.Kind == token.StringLiteral:
		s.Next()
		return BuildConstStrInstr(bc.Fn.Ctx, t.Value, t.Loc), nil

	case t.Kind == token.CharLiteral:
		s.Next()
		instr := loir.U32Const(uint32([]rune(t.Value)[0])).Casted(lotype.U8)
		instr.Loc = t.Loc
		return instr, nil

	case t.Is(token.Symbol, "true"):
		s.Next()
		return loir.U32Const(1).Casted(lotype.Bool), nil

	case t.Is(token.Symbol, "false"):
		s.Next()
		return loir.U32Const(0).Casted(lotype.Bool), nil

	case t.Is(token.Symbol, "__DATA_SIZE__"):
		s.Next()
		return loir.Instr{Kind: loir.KindU32ConstLazy, Type: lotype.U32, DataSizeRef: bc.Fn.Ctx.DataSize, Loc: t.Loc}, nil

	case t.Is(token.Symbol, "unreachable"):
		s.Next()
		return loir.Unreachable, nil

	case t.Is(token.Delim, "("):
		s.Next()
		inner, err := ParseExpr(bc, s, 0)
		if err != nil {
			return loir.Instr{}, err
		}
		if _, err := expect(s, token.Delim, ")"); err != nil {
			return loir.Instr{}, err
		}
		return inner, nil

	case t.Is(token.Symbol, "return"):
		return parseReturn(bc, s, t.Loc)
	case t.Is(token.Symbol, "throw"):
		return parseThrow(bc, s, t.Loc)
	case t.Is(token.Symbol, "defer"):
		s.Next()
		expr, err := ParseExpr(bc, s, 0)
		if err != nil {
			return loir.Instr{}, err
		}
		bc.Fn.PushDefer(expr)
		return loir.NoInst, nil
	case t.Is(token.Symbol, "sizeof"):
		s.Next()
		typ, err := ParseType(bc.Fn.Ctx, nil, s)
		if err != nil {
			return loir.Instr{}, err
		}
		stats := lotype.SizedComponentStats(typ, bc.Fn.Ctx)
		return loir.U32Const(uint32(stats.ByteLength)), nil
	case t.Is(token.Symbol, "if"):
		return parseIf(bc, s)
	case t.Is(token.Symbol, "loop"):
		return parseLoop(bc, s)
	case t.Is(token.Symbol, "for"):
		return parseFor(bc, s)
	case t.Is(token.Symbol, "break"):
		s.Next()
		label, ok := bc.BreakLabel()
		if !ok {
			return loir.Instr{}, diag.New(t.Loc, diag.CategoryStructural, "break outside a loop")
		}
		return loir.Instr{Kind: loir.KindBranch, Type: lotype.Never, LabelIndex: label, Loc: t.Loc}, nil
	case t.Is(token.Symbol, "continue"):
		s.Next()
		label, ok := bc.ContinueLabel()
		if !ok {
			return loir.Instr{}, diag.New(t.Loc, diag.CategoryStructural, "continue outside a loop")
		}
		return loir.Instr{Kind: loir.KindBranch, Type: lotype.Never, LabelIndex: label, Loc: t.Loc}, nil
	case t.Is(token.Symbol, "let"):
		return parseLet(bc, s)
	case t.Is(token.Symbol, "dbg"):
		s.Next()
		msg, err := expectKind(s, token.StringLiteral)
		if err != nil {
			return loir.Instr{}, err
		}
		strInstr := BuildConstStrInstr(bc.Fn.Ctx, msg.Value, msg.Loc)
		fnIndex := bc.Fn.Ctx.DebugWriteFuncIndex()
		return loir.Instr{Kind: loir.KindCall, Type: lotype.Void, FnIndex: fnIndex, Args: []loir.Instr{strInstr}, Loc: t.Loc}, nil
	case t.Is(token.Symbol, "__debug_typeof"):
		s.Next()
		inner, err := ParseExpr(bc, s, 0)
		if err != nil {
			return loir.Instr{}, err
		}
		bc.Fn.Ctx.EmitInspect(compctx.InspectEvent{
			Kind: "hover", File: t.Loc.FileName, Line: t.Loc.Line, Column: t.Loc.Column, TypeName: inner.Type.String(),
		})
		return loir.NoInst.Casted(lotype.Void), nil
	case t.Is(token.Symbol, "__memory_size"):
		s.Next()
		if _, err := expect(s, token.Delim, "("); err != nil {
			return loir.Instr{}, err
		}
		if _, err := expect(s, token.Delim, ")"); err != nil {
			return loir.Instr{}, err
		}
		return loir.Instr{Kind: loir.KindMemorySize, Type: lotype.I32, Loc: t.Loc}, nil
	case t.Is(token.Symbol, "__memory_grow"):
		s.Next()
		if _, err := expect(s, token.Delim, "("); err != nil {
			return loir.Instr{}, err
		}
		grow, err := ParseExpr(bc, s, 0)
		if err != nil {
			return loir.Instr{}, err
		}
		if _, err := expect(s, token.Delim, ")"); err != nil {
			return loir.Instr{}, err
		}
		return loir.Instr{Kind: loir.KindMemoryGrow, Type: lotype.I32, GrowBy: &grow, Loc: t.Loc}, nil

	case t.Kind == token.Symbol:
		return parseSymbolPrimary(bc, s)

	default:
		return loir.Instr{}, unexpected(s, "unexpected token %s", t)
	}
}

// parseSymbolPrimary resolves a bare identifier in the order spec §4.2
// fixes: macro-argument-scope -> local -> constant -> global -> function ->
// struct-literal.
func parseSymbolPrimary(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	name, _ := s.Next()

	if bc.Fn.MacroArgs != nil {
		if v, ok := bc.Fn.MacroArgs[name.Value]; ok {
			return v, nil
		}
	}
	if def, ok := bc.LookupLocal(name.Value); ok {
		return loir.Instr{Kind: loir.KindLocalGet, Type: def.Type, LocalIndex: def.Index, Loc: name.Loc}, nil
	}
	if cst, ok := bc.Fn.Ctx.Constants[name.Value]; ok {
		sub := newSeqStream(cst.ValueTokens, name.Loc)
		return ParseConstExpr(bc.Fn.Ctx, sub)
	}
	if g, ok := bc.Fn.Ctx.LookupGlobal(name.Value); ok {
		return loir.Instr{Kind: loir.KindGlobalGet, Type: g.Type, GlobalIndex: g.Index, Loc: name.Loc}, nil
	}

	if _, isStruct := bc.Fn.Ctx.StructDefs[name.Value]; isStruct && peekIs(s, token.Delim, "{") {
		return parseStructLiteral(bc, s, name.Value, name.Loc)
	}

	if peekIs(s, token.Operator, "!") {
		return parseMacroCall(bc, s, nil, name.Value, name.Loc)
	}
	if peekIs(s, token.Delim, "(") {
		return parseCall(bc, s, name.Value, name.Loc)
	}

	return loir.Instr{}, diag.New(name.Loc, diag.CategoryResolution, "unknown symbol %q", name.Value)
}

func parseStructLiteral(bc *BlockContext, s token.Stream, structName string, loc token.Location) (loir.Instr, error) {
	def, ok := bc.Fn.Ctx.StructDefs[structName]
	if !ok || !def.FullyDefined {
		return loir.Instr{}, diag.New(loc, diag.CategoryStructural, "use of partially defined struct %q by value", structName)
	}
	s.Next() // consume '{'
	values := make([]loir.Instr, len(def.Fields))
	seen := make([]bool, len(def.Fields))
	for !peekIs(s, token.Delim, "}") {
		fieldName, err := expectKind(s, token.Symbol)
		if err != nil {
			return loir.Instr{}, err
		}
		if _, err := expect(s, token.Delim, ":"); err != nil {
			return loir.Instr{}, err
		}
		field, ok := def.LookupField(fieldName.Value)
		if !ok {
			return loir.Instr{}, diag.New(fieldName.Loc, diag.CategoryResolution, "unknown field %q on %s", fieldName.Value, structName)
		}
		val, err := ParseExpr(bc, s, 0)
		if err != nil {
			return loir.Instr{}, err
		}
		if !lotype.Equal(val.Type, field.Type) {
			return loir.Instr{}, diag.New(fieldName.Loc, diag.CategoryType, "field %q expects %s, got %s", fieldName.Value, field.Type, val.Type)
		}
		idx := -1
		for i, f := range def.Fields {
			if f.Name == fieldName.Value {
				idx = i
			}
		}
		values[idx] = val
		seen[idx] = true
		if _, ok := eat(s, token.Delim, ","); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, "}"); err != nil {
		return loir.Instr{}, err
	}
	for i, ok := range seen {
		if !ok {
			return loir.Instr{}, diag.New(loc, diag.CategoryType, "missing field %q in %s literal", def.Fields[i].Name, structName)
		}
	}
	return loir.Instr{Kind: loir.KindMultiValueEmit, Type: lotype.StructInstance(structName), Values: values, Loc: loc}, nil
}

func parseArgs(bc *BlockContext, s token.Stream) ([]loir.Instr, error) {
	if _, err := expect(s, token.Delim, "("); err != nil {
		return nil, err
	}
	var args []loir.Instr
	for !peekIs(s, token.Delim, ")") {
		arg, err := ParseExpr(bc, s, 0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok := eat(s, token.Delim, ","); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, ")"); err != nil {
		return nil, err
	}
	return args, nil
}

func parseCall(bc *BlockContext, s token.Stream, name string, loc token.Location) (loir.Instr, error) {
	fn, ok := bc.Fn.Ctx.LookupFunc(name)
	if !ok {
		return loir.Instr{}, diag.New(loc, diag.CategoryResolution, "unknown function %q", name)
	}
	args, err := parseArgs(bc, s)
	if err != nil {
		return loir.Instr{}, err
	}
	if err := checkArgs(fn.Params, args, loc); err != nil {
		return loir.Instr{}, err
	}
	return loir.Instr{
		Kind: loir.KindCall, Type: fn.Output, FnIndex: fn.AbsoluteIndex(bc.Fn.Ctx.ImportedFnsCount),
		Args: args, ReturnType: fn.Output, Loc: loc,
	}, nil
}

func checkArgs(params []compctx.Param, args []loir.Instr, loc token.Location) error {
	if len(params) != len(args) {
		return diag.New(loc, diag.CategoryType, "expected %d argument(s), got %d", len(params), len(args))
	}
	for i, p := range params {
		if !lotype.Equal(p.Type, args[i].Type) {
			return diag.New(loc, diag.CategoryType, "argument %d: expected %s, got %s", i+1, p.Type, args[i].Type)
		}
	}
	return nil
}
