package loparser

import (
	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// ParseFunctionBody lowers one deferred function body against its final
// module context (spec §4.4): it re-enters the stored tokens, seeds the
// parameter locals, and validates the fall-through/tail-type rules a
// top-level function body is held to (stricter than a nested block's,
// since a bare Result-compatible tail is sugar for an implicit successful
// return).
func ParseFunctionBody(ctx *compctx.ModuleContext, pb *compctx.PendingFnBody) ([]loir.Instr, []compctx.LocalDef, error) {
	fn := &FnContext{Ctx: ctx, Output: pb.Output, NextLocalIndex: pb.NextLocalIndex}
	bc := NewFunctionBlock(fn, pb.NamedLocals)

	s := newSeqStream(pb.BodyTokens, pb.DeclLoc)
	body, err := parseExprSequenceRaw(bc, s)
	if err != nil {
		return nil, nil, err
	}
	body, err = finalizeBodyTail(body, pb.Output, pb.DeclLoc)
	if err != nil {
		return nil, nil, err
	}
	// Falling through runs the defers in reverse registration order: after
	// the last statement of a void function, before the tail value otherwise.
	if defers := fn.DeferredInReverse(); len(defers) > 0 {
		n := len(body)
		switch {
		case n > 0 && body[n-1].Type.Kind == lotype.KindNever:
			// every exit is a return/throw, which already ran them
		case pb.Output.Kind == lotype.KindVoid:
			body = append(body, defers...)
		default:
			tail := body[n-1]
			body = append(append(body[:n-1:n-1], defers...), tail)
		}
	}
	return body, fn.ExtraLocals, nil
}

// parseExprSequenceRaw parses a semicolon-separated expression sequence
// until the stream is exhausted, with no tail-type checking (the caller
// applies whatever rule fits its context — a macro body, a function body).
func parseExprSequenceRaw(bc *BlockContext, s token.Stream) ([]loir.Instr, error) {
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
	return out, nil
}

// finalizeBodyTail applies spec §4.4's function-body rules: a Never tail
// (an unconditional return/throw/unreachable) always satisfies any
// declared output; a bare ok-typed tail is implicitly wrapped into
// (ok, default_err) when output is a Result; a Void output tolerates a
// trailing Void statement with no explicit return at all.
func finalizeBodyTail(body []loir.Instr, output lotype.Type, loc token.Location) ([]loir.Instr, error) {
	if len(body) == 0 {
		if output.Kind == lotype.KindVoid {
			return body, nil
		}
		return nil, diag.New(loc, diag.CategoryStructural, "function falls through without returning a value of type %s", output)
	}
	tail := body[len(body)-1]
	if tail.Type.Kind == lotype.KindNever {
		return body, nil
	}

	if output.Kind == lotype.KindResult {
		if lotype.Equal(tail.Type, output) {
			return body, nil
		}
		if lotype.Equal(tail.Type, *output.Ok) {
			errDefault := defaultValue(*output.Err)
			wrapped := loir.Instr{Kind: loir.KindMultiValueEmit, Type: output, Values: []loir.Instr{tail, errDefault}, Loc: tail.Loc}
			body[len(body)-1] = wrapped
			return body, nil
		}
		return nil, diag.New(loc, diag.CategoryType, "function tail type %s does not match declared output %s", tail.Type, output)
	}

	if lotype.Equal(tail.Type, output) {
		return body, nil
	}
	if output.Kind == lotype.KindVoid {
		body = append(body, loir.NoInst)
		return body, nil
	}
	return nil, diag.New(loc, diag.CategoryType, "function tail type %s does not match declared output %s", tail.Type, output)
}
