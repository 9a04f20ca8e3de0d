package loparser

import (
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// infixOp describes one infix operator's precedence class (spec §4.2's
// "increasing precedence classes" table) and whether it is a compound
// assignment.
type infixOp struct {
	bp          int
	isAssign    bool
	isCompound  bool
	compoundOp  loir.BinaryOpKind // valid when isCompound
}

var infixOps = map[string]infixOp{
	"=":  {bp: 10, isAssign: true},
	"+=": {bp: 10, isAssign: true, isCompound: true, compoundOp: loir.OpAdd},
	"-=": {bp: 10, isAssign: true, isCompound: true, compoundOp: loir.OpSub},
	"*=": {bp: 10, isAssign: true, isCompound: true, compoundOp: loir.OpMul},
	"/=": {bp: 10, isAssign: true, isCompound: true, compoundOp: loir.OpDiv},

	"==": {bp: 20},
	"!=": {bp: 20},
	"<":  {bp: 20},
	">":  {bp: 20},
	"<=": {bp: 20},
	">=": {bp: 20},

	"+": {bp: 30},
	"-": {bp: 30},

	"*": {bp: 40},
	"/": {bp: 40},
	"%": {bp: 40},

	"&": {bp: 50},
	"|": {bp: 50},
}

var binOpKindByOperator = map[string]loir.BinaryOpKind{
	"+": loir.OpAdd, "-": loir.OpSub, "*": loir.OpMul, "/": loir.OpDiv, "%": loir.OpRem,
	"&": loir.OpAnd, "|": loir.OpOr,
	"==": loir.OpEq, "!=": loir.OpNe, "<": loir.OpLt, ">": loir.OpGt, "<=": loir.OpLe, ">=": loir.OpGe,
}

// ParseExpr is the Pratt loop: the only place that knows about
// return/throw/defer ordering and infix precedence (spec §4.2, §9).
func ParseExpr(bc *BlockContext, s token.Stream, minBp int) (loir.Instr, error) {
	lhs, err := parseUnary(bc, s)
	if err != nil {
		return loir.Instr{}, err
	}

	for {
		t, ok := s.Peek()
		if !ok {
			break
		}
		op, known := infixOps[t.Value]
		if !known || t.Kind != token.Operator || op.bp < minBp {
			break
		}
		s.Next()

		if op.isAssign {
			rhs, err := ParseExpr(bc, s, op.bp)
			if err != nil {
				return loir.Instr{}, err
			}
			lhs, err = buildAssign(bc, lhs, op, rhs, t.Loc)
			if err != nil {
				return loir.Instr{}, err
			}
			continue
		}

		rhs, err := ParseExpr(bc, s, op.bp+1) // left-associative ties (spec §4.2)
		if err != nil {
			return loir.Instr{}, err
		}
		lhs, err = buildBinary(lhs, binOpKindByOperator[t.Value], rhs, t.Loc)
		if err != nil {
			return loir.Instr{}, err
		}
	}
	return lhs, nil
}

func buildBinary(lhs loir.Instr, op loir.BinaryOpKind, rhs loir.Instr, loc token.Location) (loir.Instr, error) {
	if !lotype.Equal(lhs.Type, rhs.Type) {
		return loir.Instr{}, diag.New(loc, diag.CategoryType,
			"operand types differ: %s vs %s", lhs.Type, rhs.Type)
	}
	if op == loir.OpRem && lhs.Type.IsFloat() {
		return loir.Instr{}, diag.New(loc, diag.CategoryType, "%% is undefined for floating-point operands")
	}
	resultType := lhs.Type
	switch op {
	case loir.OpEq, loir.OpNe, loir.OpLt, loir.OpGt, loir.OpLe, loir.OpGe:
		resultType = lotype.Bool
	}
	return loir.Instr{Kind: loir.KindBinaryOp, Type: resultType, Op: op, Lhs: &lhs, Rhs: &rhs, Loc: loc}, nil
}

// parseUnary handles the two prefix operators: `!` (logical/bitwise NOT,
// lowered as x == 0) and `*` (pointer dereference), then falls through to
// the postfix chain (spec §4.2).
func parseUnary(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	if t, ok := eat(s, token.Operator, "!"); ok {
		inner, err := parseUnary(bc, s)
		if err != nil {
			return loir.Instr{}, err
		}
		zero := defaultValue(inner.Type)
		return buildBinary(inner, loir.OpEq, zero, t.Loc)
	}
	if t, ok := eat(s, token.Operator, "*"); ok {
		inner, err := parseUnary(bc, s)
		if err != nil {
			return loir.Instr{}, err
		}
		if inner.Type.Kind != lotype.KindPointer {
			return loir.Instr{}, diag.New(t.Loc, diag.CategoryType, "cannot dereference non-pointer type %s", inner.Type)
		}
		load := loir.Instr{Kind: loir.KindLoad, Type: *inner.Type.Pointee, Address: &inner, Loc: t.Loc}
		return load, nil
	}
	return parsePostfix(bc, s)
}

// parsePostfix handles the postfix constructs: calls, macro invocations,
// field access, `as` casts, and `catch` (spec §4.2).
func parsePostfix(bc *BlockContext, s token.Stream) (loir.Instr, error) {
	primary, err := parsePrimary(bc, s)
	if err != nil {
		return loir.Instr{}, err
	}
	for {
		switch {
		case peekIs(s, token.Operator, "."):
			s.Next()
			primary, err = parseMemberOrMethod(bc, s, primary)
			if err != nil {
				return loir.Instr{}, err
			}
		case peekIs(s, token.Symbol, "as"):
			s.Next()
			target, err := ParseType(bc.Fn.Ctx, nil, s)
			if err != nil {
				return loir.Instr{}, err
			}
			primary, err = buildCast(primary, target, s.Loc())
			if err != nil {
				return loir.Instr{}, err
			}
		case peekIs(s, token.Symbol, "catch"):
			s.Next()
			primary, err = parseCatch(bc, s, primary)
			if err != nil {
				return loir.Instr{}, err
			}
		default:
			return primary, nil
		}
	}
}

func buildCast(from loir.Instr, target lotype.Type, loc token.Location) (loir.Instr, error) {
	if !lotype.CompatibleForCast(from.Type, target, nil) {
		return loir.Instr{}, diag.New(loc, diag.CategoryType, "cannot cast %s to %s", from.Type, target)
	}
	return from.Casted(target), nil
}

// parseCatch implements `EXPR catch e { BODY }` (spec §4.2).
func parseCatch(bc *BlockContext, s token.Stream, primary loir.Instr) (loir.Instr, error) {
	loc := s.Loc()
	if primary.Type.Kind != lotype.KindResult {
		return loir.Instr{}, diag.New(loc, diag.CategoryType, "catch on non-result type %s", primary.Type)
	}
	errName, err := expectKind(s, token.Symbol)
	if err != nil {
		return loir.Instr{}, err
	}
	if _, err := expect(s, token.Delim, "{"); err != nil {
		return loir.Instr{}, err
	}
	body := bc.Child(loir.BlockPlain)
	okType := *primary.Type.Ok
	errType := *primary.Type.Err

	// Spill the whole result pair into two consecutive locals so the ok
	// value can be reconstructed in the else arm after the err check.
	okDef := body.Fn.DeclareLocal("", okType)
	var errDef struct{ Index int }
	if errName.Value == "_" {
		errDef.Index = body.Fn.DeclareLocal("", errType).Index
	} else {
		errDef.Index = body.DeclareLocal(errName.Value, errType).Index
	}

	bodyInstrs, err := parseBlockContents(body, s, okType)
	if err != nil {
		return loir.Instr{}, err
	}

	spill := loir.Instr{Kind: loir.KindSet, Type: lotype.Void,
		Bind:  &loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: okDef.Index},
		Value: &primary, Loc: loc,
	}
	errGet := loir.Instr{Kind: loir.KindLocalGet, Type: errType, LocalIndex: errDef.Index, Loc: loc}
	zero := defaultValue(errType)
	cond, err := buildBinary(errGet, loir.OpNe, zero, loc)
	if err != nil {
		return loir.Instr{}, err
	}
	okGet := loir.Instr{Kind: loir.KindLocalGet, Type: okType, LocalIndex: okDef.Index, Loc: loc}
	ifInstr := loir.Instr{
		Kind:       loir.KindIf,
		Type:       okType,
		Cond:       &cond,
		ThenBranch: bodyInstrs,
		ElseBranch: []loir.Instr{okGet},
		Loc:        loc,
	}
	catchExpr := loir.Instr{Kind: loir.KindMultiValueEmit, Type: okType, Values: []loir.Instr{spill, ifInstr}, Loc: loc}
	return catchExpr, nil
}
