package loparser

import (
	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// parseMemberOrMethod implements `.name` after an expression: either a
// struct field load (spec §4.2) or, when followed by `(` or `!`, the
// method-call sugar `expr.name(args)` / `expr.name!<T>(args)` that
// desugars to a plain or macro call with receiver as the first argument.
func parseMemberOrMethod(bc *BlockContext, s token.Stream, receiver loir.Instr) (loir.Instr, error) {
	name, err := expectKind(s, token.Symbol)
	if err != nil {
		return loir.Instr{}, err
	}

	if peekIs(s, token.Operator, "!") {
		return parseMacroCall(bc, s, &receiver, name.Value, name.Loc)
	}
	if peekIs(s, token.Delim, "(") {
		return parseMethodCall(bc, s, receiver, name.Value, name.Loc)
	}
	return buildFieldGet(bc, receiver, name.Value, name.Loc)
}

// buildFieldGet resolves `base.field` against either a directly addressable
// struct value (a local/global whose components sit at consecutive
// indices) or a pointer-to-struct, which loads through the pointer at the
// field's byte offset instead (spec §4.2, §4.3).
func buildFieldGet(bc *BlockContext, base loir.Instr, fieldName string, loc token.Location) (loir.Instr, error) {
	structType := base.Type
	deref := false
	if base.Type.Kind == lotype.KindPointer && base.Type.Pointee.Kind == lotype.KindStructInstance {
		structType = *base.Type.Pointee
		deref = true
	}
	if structType.Kind != lotype.KindStructInstance {
		return loir.Instr{}, diag.New(loc, diag.CategoryType, "cannot access field %q on non-struct type %s", fieldName, base.Type)
	}

	def, ok := bc.Fn.Ctx.LookupStruct(structType.StructName)
	if !ok {
		return loir.Instr{}, diag.New(loc, diag.CategoryResolution, "unknown struct %q", structType.StructName)
	}
	field, ok := def.LookupField(fieldName)
	if !ok {
		return loir.Instr{}, diag.New(loc, diag.CategoryResolution, "unknown field %q on %s", fieldName, structType.StructName)
	}

	if deref {
		return loir.Instr{
			Kind: loir.KindStructLoad, Type: field.Type, Address: &base,
			BaseIndex: field.ByteOffset, FieldType: field.Type, Loc: loc,
		}, nil
	}

	switch base.Kind {
	case loir.KindLocalGet:
		return loir.Instr{
			Kind: loir.KindStructGet, Type: field.Type, LocalIndex: base.LocalIndex,
			BaseIndex: field.FieldIndex, FieldType: field.Type, Loc: loc,
		}, nil
	default:
		return loir.Instr{}, diag.New(loc, diag.CategoryStructural,
			"field access on %q requires an addressable local or pointer value", fieldName)
	}
}

// parseMethodCall implements `receiver.name(args)`, desugaring to a plain
// call against the qualified "ReceiverType::name" function declared for
// receiver's struct type (spec §4.2), falling back to an unqualified
// function of the same name (mirroring parseMacroCall's fallback) so a
// plain helper function can still be called with method syntax.
func parseMethodCall(bc *BlockContext, s token.Stream, receiver loir.Instr, name string, loc token.Location) (loir.Instr, error) {
	receiverName := ""
	switch {
	case receiver.Type.Kind == lotype.KindStructInstance:
		receiverName = receiver.Type.StructName
	case receiver.Type.Kind == lotype.KindPointer && receiver.Type.Pointee.Kind == lotype.KindStructInstance:
		receiverName = receiver.Type.Pointee.StructName
	}
	key := compctx.QualifiedName(receiverName, name)
	fn, ok := bc.Fn.Ctx.LookupFunc(key)
	if !ok && receiverName != "" {
		fn, ok = bc.Fn.Ctx.LookupFunc(compctx.QualifiedName("", name))
	}
	if !ok {
		return loir.Instr{}, diag.New(loc, diag.CategoryResolution, "unknown function %q", name)
	}
	args, err := parseArgs(bc, s)
	if err != nil {
		return loir.Instr{}, err
	}
	allArgs := append([]loir.Instr{receiver}, args...)
	if err := checkArgs(fn.Params, allArgs, loc); err != nil {
		return loir.Instr{}, err
	}
	return loir.Instr{
		Kind: loir.KindCall, Type: fn.Output, FnIndex: fn.AbsoluteIndex(bc.Fn.Ctx.ImportedFnsCount),
		Args: allArgs, ReturnType: fn.Output, Loc: loc,
	}, nil
}
