package loparser

import (
	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

var primitiveTypes = map[string]lotype.Type{
	"never": lotype.Never,
	"void":  lotype.Void,
	"bool":  lotype.Bool,
	"i8":    lotype.I8,
	"u8":    lotype.U8,
	"i16":   lotype.I16,
	"u16":   lotype.U16,
	"i32":   lotype.I32,
	"u32":   lotype.U32,
	"i64":   lotype.I64,
	"u64":   lotype.U64,
	"f32":   lotype.F32,
	"f64":   lotype.F64,
}

// ParseType parses a TYPE production (spec §4.1): a primitive name, a
// pointer ("&T"), a tuple ("(T, T, ...)"), a struct/alias/macro-type-param
// name, or a Result via the trailing "throws E" suffix applied by the
// caller that needs one (function signatures).
func ParseType(ctx *compctx.ModuleContext, typeScope map[string]lotype.Type, s token.Stream) (lotype.Type, error) {
	if _, ok := eat(s, token.Operator, "&"); ok {
		pointee, err := ParseType(ctx, typeScope, s)
		if err != nil {
			return lotype.Type{}, err
		}
		return lotype.PointerTo(pointee), nil
	}

	if _, ok := eat(s, token.Delim, "("); ok {
		var elems []lotype.Type
		for !peekIs(s, token.Delim, ")") {
			t, err := ParseType(ctx, typeScope, s)
			if err != nil {
				return lotype.Type{}, err
			}
			elems = append(elems, t)
			if _, ok := eat(s, token.Delim, ","); !ok {
				break
			}
		}
		if _, err := expect(s, token.Delim, ")"); err != nil {
			return lotype.Type{}, err
		}
		return lotype.TupleOf(elems...), nil
	}

	name, err := expectKind(s, token.Symbol)
	if err != nil {
		return lotype.Type{}, err
	}

	if typeScope != nil {
		if t, ok := typeScope[name.Value]; ok {
			return t, nil
		}
	}
	if prim, ok := primitiveTypes[name.Value]; ok {
		return prim, nil
	}
	if alias, ok := ctx.TypeScope[name.Value]; ok {
		return alias, nil
	}
	if _, ok := ctx.StructDefs[name.Value]; ok {
		return lotype.StructInstance(name.Value), nil
	}
	return lotype.Type{}, diag.New(name.Loc, diag.CategoryResolution, "unknown type %q", name.Value)
}

// ParseReturnType parses the function-signature output type, including the
// optional "throws E" suffix that turns ok into Result{ok, err} (spec §4.1,
// scenario 3 in §8).
func ParseReturnType(ctx *compctx.ModuleContext, typeScope map[string]lotype.Type, s token.Stream) (lotype.Type, error) {
	ok, err := ParseType(ctx, typeScope, s)
	if err != nil {
		return lotype.Type{}, err
	}
	if _, has := eatSymbol(s, "throws"); has {
		errType, err := ParseType(ctx, typeScope, s)
		if err != nil {
			return lotype.Type{}, err
		}
		return lotype.ResultOf(ok, errType), nil
	}
	return ok, nil
}
