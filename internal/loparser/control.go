package loparser

import (
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// parseBlockContents parses `{ EXPR; EXPR; ... }` already past the opening
// `{`, typechecking the tail expression against expectedTail (spec §4.4).
// If the block has no terminating return/Never tail and expectedTail is
// Void, a trailing NoInstr is synthesized; mismatches raise a type error.
func parseBlockContents(bc *BlockContext, s token.Stream, expectedTail lotype.Type) ([]loir.Instr, error) {
	var out []loir.Instr
	for !peekIs(s, token.Delim, "}") {
		expr, err := ParseExpr(bc, s, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		if _, ok := eat(s, token.Delim, ";"); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, "}"); err != nil {
		return nil, err
	}

	var tailType lotype.Type = lotype.Void
	if len(out) > 0 {
		tailType = out[len(out)-1].Type
	}
	if tailType.Kind == lotype.KindNever {
		return out, nil
	}
	if !lotype.Equal(tailType, expectedTail) {
		if expectedTail.Kind == lotype.KindVoid {
			out = append(out, loir.NoInst)
			return out, nil
		}
		return nil, diag.New(s.Loc(), diag.CategoryType, "block tail type %s does not match expected %s", tailType, expectedTail)
	}
	return out, nil
}

func parseIf(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	loc, _ := s.Next() // 'if'
	cond, err := ParseExpr(bc, s, 0)
	if err != nil {
		return loir.Instr{}, err
	}
	if cond.Type.Kind != lotype.KindBool {
		return loir.Instr{}, diag.New(loc.Loc, diag.CategoryType, "if condition must be bool, got %s", cond.Type)
	}
	if _, err := expect(s, token.Delim, "{"); err != nil {
		return loir.Instr{}, err
	}
	thenCtx := bc.Child(loir.BlockPlain)
	thenBody, err := parseBlockContentsUntyped(thenCtx, s)
	if err != nil {
		return loir.Instr{}, err
	}

	var elseBody []loir.Instr
	resultType := lotype.Void
	if _, ok := eatSymbol(s, "else"); ok {
		if _, err := expect(s, token.Delim, "{"); err != nil {
			return loir.Instr{}, err
		}
		elseCtx := bc.Child(loir.BlockPlain)
		elseBody, err = parseBlockContentsUntyped(elseCtx, s)
		if err != nil {
			return loir.Instr{}, err
		}
		if len(thenBody) > 0 && len(elseBody) > 0 {
			resultType = thenBody[len(thenBody)-1].Type
		}
	}

	return loir.Instr{Kind: loir.KindIf, Type: resultType, Cond: &cond, ThenBranch: thenBody, ElseBranch: elseBody, Loc: loc.Loc}, nil
}

// parseBlockContentsUntyped parses a `{ ... }` body whose tail type is
// whatever it happens to be, deferring the typecheck to the caller (if/else
// arm agreement, loop bodies, catch bodies typecheck differently than a
// plain function-body tail).
func parseBlockContentsUntyped(bc *BlockContext, s token.Stream) ([]loir.Instr, error) {
	var out []loir.Instr
	for !peekIs(s, token.Delim, "}") {
		expr, err := ParseExpr(bc, s, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		if _, ok := eat(s, token.Delim, ";"); !ok {
			break
		}
	}
	if _, err := expect(s, token.Delim, "}"); err != nil {
		return nil, err
	}
	return out, nil
}

// parseLoop wraps a WebAssembly loop in a block so `break` can branch to
// label 1 and `continue` to label 0 (spec §4.2).
func parseLoop(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	loc, _ := s.Next() // 'loop'
	if _, err := expect(s, token.Delim, "{"); err != nil {
		return loir.Instr{}, err
	}
	loopCtx := bc.Child(loir.BlockLoop)
	body, err := parseBlockContentsUntyped(loopCtx, s)
	if err != nil {
		return loir.Instr{}, err
	}
	inner := loir.Instr{Kind: loir.KindLoop, Type: lotype.Void, Body: body, BlockKind: loir.BlockLoop, Loc: loc.Loc}
	return loir.Instr{Kind: loir.KindBlock, Type: lotype.Void, Body: []loir.Instr{inner}, BlockKind: loir.BlockPlain, Loc: loc.Loc}, nil
}

// parseFor lowers `for i in A..B { BODY }` to
// `let i = A; block { loop { if i == B { break outer } { BODY } i += 1; continue } }`
// (spec §4.2).
func parseFor(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	loc, _ := s.Next() // 'for'
	counterName, err := expectKind(s, token.Symbol)
	if err != nil {
		return loir.Instr{}, err
	}
	if _, err := expect(s, token.Symbol, "in"); err != nil {
		return loir.Instr{}, err
	}
	from, err := ParseExpr(bc, s, 30) // above assignment/comparison, below `..`
	if err != nil {
		return loir.Instr{}, err
	}
	if !from.Type.IsInteger() {
		return loir.Instr{}, diag.New(loc.Loc, diag.CategoryType, "for-loop counter must be an integer type, got %s", from.Type)
	}
	if _, err := expect(s, token.Operator, ".."); err != nil {
		return loir.Instr{}, err
	}
	to, err := ParseExpr(bc, s, 30)
	if err != nil {
		return loir.Instr{}, err
	}
	if !lotype.Equal(from.Type, to.Type) {
		return loir.Instr{}, diag.New(loc.Loc, diag.CategoryType, "for-loop bounds must share a type: %s vs %s", from.Type, to.Type)
	}
	if _, err := expect(s, token.Delim, "{"); err != nil {
		return loir.Instr{}, err
	}

	forCtx := bc.Child(loir.BlockForLoop)
	counter := forCtx.DeclareLocal(counterName.Value, from.Type)
	body, err := parseBlockContentsUntyped(forCtx, s)
	if err != nil {
		return loir.Instr{}, err
	}

	one := loir.U32Const(1)
	if from.Type.Is64() {
		one = loir.I64Const(1)
	}
	one = one.Casted(from.Type)
	counterGet := loir.Instr{Kind: loir.KindLocalGet, Type: from.Type, LocalIndex: counter.Index}
	endCheck, _ := buildBinary(counterGet, loir.OpEq, to, loc.Loc)
	breakOuter := loir.Instr{Kind: loir.KindBranch, Type: lotype.Never, LabelIndex: 2}
	guard := loir.Instr{Kind: loir.KindIf, Type: lotype.Void, Cond: &endCheck, ThenBranch: []loir.Instr{breakOuter}}

	step, _ := buildBinary(loir.Instr{Kind: loir.KindLocalGet, Type: from.Type, LocalIndex: counter.Index}, loir.OpAdd, one, loc.Loc)
	stepSet := loir.Instr{Kind: loir.KindSet, Type: lotype.Void,
		Bind:  &loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: counter.Index},
		Value: &step,
	}
	continueInner := loir.Instr{Kind: loir.KindBranch, Type: lotype.Never, LabelIndex: 0}

	loopBody := append([]loir.Instr{guard}, body...)
	loopBody = append(loopBody, stepSet, continueInner)

	initLet := loir.Instr{Kind: loir.KindSet, Type: lotype.Void,
		Bind:  &loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: counter.Index},
		Value: &from,
	}

	innerLoop := loir.Instr{Kind: loir.KindLoop, Type: lotype.Void, Body: loopBody, BlockKind: loir.BlockForLoop, Loc: loc.Loc}
	outerBlock := loir.Instr{Kind: loir.KindBlock, Type: lotype.Void, Body: []loir.Instr{innerLoop}, BlockKind: loir.BlockPlain, Loc: loc.Loc}

	return loir.Instr{Kind: loir.KindMultiValueEmit, Type: lotype.Void, Values: []loir.Instr{initLet, outerBlock}, Loc: loc.Loc}, nil
}

func parseLet(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	loc, _ := s.Next() // 'let'
	name, err := expectKind(s, token.Symbol)
	if err != nil {
		return loir.Instr{}, err
	}
	if _, err := expect(s, token.Operator, "="); err != nil {
		return loir.Instr{}, err
	}
	value, err := ParseExpr(bc, s, 0)
	if err != nil {
		return loir.Instr{}, err
	}
	def := bc.DeclareLocal(name.Value, value.Type)
	return loir.Instr{Kind: loir.KindSet, Type: lotype.Void,
		Bind:  &loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: def.Index},
		Value: &value, Loc: loc.Loc,
	}, nil
}

// parseReturn implements `return EXPR?` (spec §4.2): checks the enclosing
// function's declared output, emits `(E, default(err))` when it is a
// Result, and prepends any registered defers in reverse order.
func parseReturn(bc *BlockContext, s token.Stream, loc token.Location) (loir.Instr, error) {
	s.Next() // 'return'
	var value loir.Instr
	hasValue := !peekIs(s, token.Delim, ";") && !peekIs(s, token.Delim, "}")
	if hasValue {
		v, err := ParseExpr(bc, s, 0)
		if err != nil {
			return loir.Instr{}, err
		}
		value = v
	} else {
		value = loir.Instr{Type: lotype.Void, Kind: loir.KindNoInstr}
	}

	output := bc.Fn.Output
	var retValue loir.Instr
	if output.Kind == lotype.KindResult {
		if !lotype.Equal(value.Type, *output.Ok) {
			return loir.Instr{}, diag.New(loc, diag.CategoryType, "return type %s does not match declared ok type %s", value.Type, *output.Ok)
		}
		errDefault := defaultValue(*output.Err)
		retValue = loir.Instr{Kind: loir.KindMultiValueEmit, Type: output, Values: []loir.Instr{value, errDefault}, Loc: loc}
	} else {
		if !lotype.Equal(value.Type, output) {
			return loir.Instr{}, diag.New(loc, diag.CategoryType, "return type %s does not match declared output %s", value.Type, output)
		}
		retValue = value
	}

	defers := bc.Fn.DeferredInReverse()
	values := append(append([]loir.Instr{}, defers...), loir.Instr{Kind: loir.KindReturn, Type: lotype.Never, ReturnValue: &retValue, Loc: loc})
	if len(defers) == 0 {
		return values[0], nil
	}
	return loir.Instr{Kind: loir.KindMultiValueEmit, Type: lotype.Never, Values: values, Loc: loc}, nil
}

// parseThrow implements `throw EXPR` (spec §4.2): valid only inside a
// function whose output is Result{ok,err}; emits `(default(ok), E)`.
func parseThrow(bc *BlockContext, s token.Stream, loc token.Location) (loir.Instr, error) {
	s.Next() // 'throw'
	output := bc.Fn.Output
	if output.Kind != lotype.KindResult {
		return loir.Instr{}, diag.New(loc, diag.CategoryType, "throw used outside a function returning a result type")
	}
	value, err := ParseExpr(bc, s, 0)
	if err != nil {
		return loir.Instr{}, err
	}
	if !lotype.Equal(value.Type, *output.Err) {
		return loir.Instr{}, diag.New(loc, diag.CategoryType, "throw type %s does not match declared err type %s", value.Type, *output.Err)
	}
	okDefault := defaultValue(*output.Ok)
	retValue := loir.Instr{Kind: loir.KindMultiValueEmit, Type: output, Values: []loir.Instr{okDefault, value}, Loc: loc}

	defers := bc.Fn.DeferredInReverse()
	values := append(append([]loir.Instr{}, defers...), loir.Instr{Kind: loir.KindReturn, Type: lotype.Never, ReturnValue: &retValue, Loc: loc})
	if len(defers) == 0 {
		return values[0], nil
	}
	return loir.Instr{Kind: loir.KindMultiValueEmit, Type: lotype.Never, Values: values, Loc: loc}, nil
}

// defaultValue produces the zero value IR for typ (used for the unused half
// of a Result pair on return/throw).
func defaultValue(typ lotype.Type) loir.Instr {
	switch typ.Kind {
	case lotype.KindVoid, lotype.KindNever:
		return loir.Instr{Kind: loir.KindNoInstr, Type: typ}
	case lotype.KindI64, lotype.KindU64:
		return loir.I64Const(0).Casted(typ)
	case lotype.KindF32:
		return loir.F32Const(0)
	case lotype.KindF64:
		return loir.F64Const(0)
	default:
		return loir.U32Const(0).Casted(typ)
	}
}
