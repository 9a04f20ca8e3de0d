package loparser

import (
	"strconv"

	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// ParseConstExpr parses the restricted Pratt variant spec §4.1 describes
// for constant expressions: literals, symbol lookup (constants/globals),
// string construction, and `as` casts. Calls and control flow are rejected.
func ParseConstExpr(ctx *compctx.ModuleContext, s token.Stream) (loir.Instr, error) {
	instr, err := parseConstPrimary(ctx, s)
	if err != nil {
		return loir.Instr{}, err
	}
	for {
		if _, ok := eatSymbol(s, "as"); ok {
			target, err := ParseType(ctx, nil, s)
			if err != nil {
				return loir.Instr{}, err
			}
			if !lotype.CompatibleForCast(instr.Type, target, ctx) {
				return loir.Instr{}, diag.New(s.Loc(), diag.CategoryType,
					"cannot cast %s to %s", instr.Type, target)
			}
			instr = instr.Casted(target)
			continue
		}
		break
	}
	return instr, nil
}

func parseConstPrimary(ctx *compctx.ModuleContext, s token.Stream) (loir.Instr, error) {
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
		return BuildConstStrInstr(ctx, t.Value, t.Loc), nil

	case t.Kind == token.CharLiteral:
		s.Next()
		instr := loir.U32Const(uint32([]rune(t.Value)[0]))
		instr.Loc = t.Loc
		return instr, nil

	case t.Is(token.Symbol, "__DATA_SIZE__"):
		s.Next()
		instr := loir.Instr{Kind: loir.KindU32ConstLazy, Type: lotype.U32, DataSizeRef: ctx.DataSize, Loc: t.Loc}
		return instr, nil

	case t.Is(token.Symbol, "true"):
		s.Next()
		return loir.U32Const(1).Casted(lotype.Bool), nil

	case t.Is(token.Symbol, "false"):
		s.Next()
		return loir.U32Const(0).Casted(lotype.Bool), nil

	case t.Kind == token.Symbol:
		s.Next()
		if cst, ok := ctx.Constants[t.Value]; ok {
			sub := newSeqStream(cst.ValueTokens, t.Loc)
			return ParseConstExpr(ctx, sub)
		}
		if g, ok := ctx.LookupGlobal(t.Value); ok {
			return loir.Instr{Kind: loir.KindGlobalGet, Type: g.Type, GlobalIndex: g.Index, Loc: t.Loc}, nil
		}
		return loir.Instr{}, diag.New(t.Loc, diag.CategoryResolution, "unknown symbol %q", t.Value)

	case t.Is(token.Delim, "("):
		s.Next()
		inner, err := ParseConstExpr(ctx, s)
		if err != nil {
			return loir.Instr{}, err
		}
		if _, err := expect(s, token.Delim, ")"); err != nil {
			return loir.Instr{}, err
		}
		return inner, nil

	default:
		return loir.Instr{}, unexpected(s, "unexpected token %s in constant expression", t)
	}
}

// normalizeIntLiteral strips the digit-group underscores spec's lexer
// allows inside integer literals.
func normalizeIntLiteral(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != '_' {
			out = append(out, raw[i])
		}
	}
	return string(out)
}

// BuildConstStrInstr lowers a string literal into its data-segment pointer
// and length, as the "str" two-word struct/tuple if one is defined, or a
// bare (u32, u32) tuple otherwise (spec §8 scenario 5).
func BuildConstStrInstr(ctx *compctx.ModuleContext, value string, loc token.Location) loir.Instr {
	ptr := ctx.InternString(value)
	ptrInstr := loir.U32Const(ptr)
	lenInstr := loir.U32Const(uint32(len(value)))
	emit := loir.Instr{Kind: loir.KindMultiValueEmit, Type: lotype.TupleOf(lotype.U32, lotype.U32),
		Values: []loir.Instr{ptrInstr, lenInstr}, Loc: loc}
	if _, ok := ctx.StructDefs["str"]; ok {
		return emit.Casted(lotype.StructInstance("str"))
	}
	return emit
}
