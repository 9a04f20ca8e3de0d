// Package finalize implements spec §4.5: lowering every deferred function
// body, re-lowering global initializers once __DATA_SIZE__ is final, and
// filling in the wasmout.Module's code, globals and exports from what the
// parser left pending in the ModuleContext. Function names for the custom
// name section are recorded by the parser, not here.
package finalize

import (
	"errors"

	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/wasmout"
)

// emitter walks one function's loir.Instr tree into its WebAssembly
// bytecode, tracking only what the instruction encoding itself needs (the
// resolver for struct/field layout, the module for interning the rare
// multi-result if-block's function type).
type emitter struct {
	resolver lotype.Resolver
	module   *wasmout.Module
	buf      []byte
}

func (e *emitter) byte(b byte) { e.buf = append(e.buf, b) }
func (e *emitter) op(op wasmout.Opcode) { e.buf = append(e.buf, byte(op)) }
func (e *emitter) raw(b []byte) { e.buf = append(e.buf, b...) }

// EmitFunctionBody lowers body into a WebAssembly expression byte sequence
// terminated by `end` (spec §4.4's component-decomposition rules feed this
// at the call sites that build multi-component Set/Call/Return nodes).
func EmitFunctionBody(resolver lotype.Resolver, module *wasmout.Module, body []loir.Instr) ([]byte, error) {
	e := &emitter{resolver: resolver, module: module}
	for _, instr := range body {
		if err := e.emit(instr); err != nil {
			return nil, err
		}
	}
	e.op(wasmout.OpEnd)
	return e.buf, nil
}

func (e *emitter) emit(instr loir.Instr) error {
	switch instr.Kind {
	case loir.KindNoInstr:
		return nil

	case loir.KindUnreachable:
		e.op(wasmout.OpUnreachable)
		return nil

	case loir.KindU32Const:
		e.op(wasmout.OpI32Const)
		e.raw(wasmout.EncodeInt32(int32(instr.U32)))
		return nil

	case loir.KindU64Const:
		e.op(wasmout.OpI64Const)
		e.raw(wasmout.EncodeInt64(int64(instr.U64)))
		return nil

	case loir.KindI64Const:
		e.op(wasmout.OpI64Const)
		e.raw(wasmout.EncodeInt64(instr.I64))
		return nil

	case loir.KindF32Const:
		e.op(wasmout.OpF32Const)
		e.raw(wasmout.EncodeFloat32(instr.F32))
		return nil

	case loir.KindF64Const:
		e.op(wasmout.OpF64Const)
		e.raw(wasmout.EncodeFloat64(instr.F64))
		return nil

	case loir.KindU32ConstLazy:
		e.op(wasmout.OpI32Const)
		e.raw(wasmout.EncodeInt32(int32(*instr.DataSizeRef)))
		return nil

	case loir.KindCasted:
		return e.emitCasted(instr)

	case loir.KindLocalGet, loir.KindUntypedLocalGet:
		return e.emitSequentialLocalAccess(instr.Type, instr.LocalIndex, wasmout.OpLocalGet)

	case loir.KindGlobalGet:
		e.op(wasmout.OpGlobalGet)
		e.raw(wasmout.EncodeUint32(uint32(instr.GlobalIndex)))
		return nil

	case loir.KindGlobalSet:
		if err := e.emit(*instr.Value); err != nil {
			return err
		}
		e.op(wasmout.OpGlobalSet)
		e.raw(wasmout.EncodeUint32(uint32(instr.GlobalIndex)))
		return nil

	case loir.KindSet:
		return e.emitSet(instr)

	case loir.KindStructGet:
		return e.emitSequentialLocalAccess(instr.FieldType, instr.LocalIndex+instr.BaseIndex, wasmout.OpLocalGet)

	case loir.KindLoad:
		return e.emitLoad(instr.Type, instr.Address, instr.Offset)

	case loir.KindStructLoad:
		return e.emitLoad(instr.FieldType, instr.Address, uint32(instr.BaseIndex))

	case loir.KindStore:
		return e.emitStore(instr)

	case loir.KindBinaryOp:
		return e.emitBinary(instr)

	case loir.KindIf:
		return e.emitIf(instr)

	case loir.KindBlock:
		e.op(wasmout.OpBlock)
		e.byte(wasmout.BlockTypeEmpty)
		for _, b := range instr.Body {
			if err := e.emit(b); err != nil {
				return err
			}
		}
		e.op(wasmout.OpEnd)
		return nil

	case loir.KindLoop:
		e.op(wasmout.OpLoop)
		e.byte(wasmout.BlockTypeEmpty)
		for _, b := range instr.Body {
			if err := e.emit(b); err != nil {
				return err
			}
		}
		e.op(wasmout.OpEnd)
		return nil

	case loir.KindBranch:
		e.op(wasmout.OpBr)
		e.raw(wasmout.EncodeUint32(uint32(instr.LabelIndex)))
		return nil

	case loir.KindCall:
		for _, a := range instr.Args {
			if err := e.emit(a); err != nil {
				return err
			}
		}
		e.op(wasmout.OpCall)
		e.raw(wasmout.EncodeUint32(uint32(instr.FnIndex)))
		return nil

	case loir.KindReturn:
		if err := e.emit(*instr.ReturnValue); err != nil {
			return err
		}
		e.op(wasmout.OpReturn)
		return nil

	case loir.KindMultiValueEmit:
		for _, v := range instr.Values {
			if err := e.emit(v); err != nil {
				return err
			}
		}
		return nil

	case loir.KindMemorySize:
		e.op(wasmout.OpMemorySize)
		e.byte(0)
		return nil

	case loir.KindMemoryGrow:
		if err := e.emit(*instr.GrowBy); err != nil {
			return err
		}
		e.op(wasmout.OpMemoryGrow)
		e.byte(0)
		return nil

	case loir.KindDrop:
		if instr.Value != nil {
			if err := e.emit(*instr.Value); err != nil {
				return err
			}
		}
		e.op(wasmout.OpDrop)
		return nil

	default:
		return diag.Internal(instr.Loc, "internal/finalize/emit.go", 0, "unhandled loir.Kind in emitter")
	}
}

// emitSequentialLocalAccess reads a value occupying the components of typ
// starting at baseIndex, one wasm-level local.get per component (spec
// §4.3's flat, no-padding layout).
func (e *emitter) emitSequentialLocalAccess(typ lotype.Type, baseIndex int, op wasmout.Opcode) error {
	n := len(lotype.EmitComponents(typ, e.resolver))
	if n == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		e.op(op)
		e.raw(wasmout.EncodeUint32(uint32(baseIndex + i)))
	}
	return nil
}

// emitSet implements the Set-pattern inversion store (spec §4.2): evaluate
// Value, then local.set into Bind's base index for each component, in
// reverse order since the stack holds the last component on top.
func (e *emitter) emitSet(instr loir.Instr) error {
	if err := e.emit(*instr.Value); err != nil {
		return err
	}
	base := instr.Bind.LocalIndex
	n := len(lotype.EmitComponents(instr.Value.Type, e.resolver))
	for i := n - 1; i >= 0; i-- {
		e.op(wasmout.OpLocalSet)
		e.raw(wasmout.EncodeUint32(uint32(base + i)))
	}
	return nil
}

func (e *emitter) emitLoad(typ lotype.Type, address *loir.Instr, offset uint32) error {
	if err := e.emit(*address); err != nil {
		return err
	}
	op, align := loadOpcodeFor(typ)
	e.op(op)
	e.raw(wasmout.EncodeUint32(align))
	e.raw(wasmout.EncodeUint32(offset))
	return nil
}

func (e *emitter) emitStore(instr loir.Instr) error {
	if err := e.emit(*instr.Address); err != nil {
		return err
	}
	if err := e.emit(*instr.Value); err != nil {
		return err
	}
	op, align := storeOpcodeFor(instr.Value.Type)
	e.op(op)
	e.raw(wasmout.EncodeUint32(align))
	e.raw(wasmout.EncodeUint32(instr.Offset))
	return nil
}

func loadOpcodeFor(typ lotype.Type) (wasmout.Opcode, uint32) {
	switch typ.Kind {
	case lotype.KindI8:
		return wasmout.OpI32Load8S, 0
	case lotype.KindU8, lotype.KindBool:
		return wasmout.OpI32Load8U, 0
	case lotype.KindI16:
		return wasmout.OpI32Load16S, 1
	case lotype.KindU16:
		return wasmout.OpI32Load16U, 1
	case lotype.KindI64, lotype.KindU64:
		return wasmout.OpI64Load, 3
	case lotype.KindF32:
		return wasmout.OpF32Load, 2
	case lotype.KindF64:
		return wasmout.OpF64Load, 3
	default:
		return wasmout.OpI32Load, 2
	}
}

func storeOpcodeFor(typ lotype.Type) (wasmout.Opcode, uint32) {
	switch typ.Kind {
	case lotype.KindI8, lotype.KindU8, lotype.KindBool:
		return wasmout.OpI32Store8, 0
	case lotype.KindI16, lotype.KindU16:
		return wasmout.OpI32Store16, 1
	case lotype.KindI64, lotype.KindU64:
		return wasmout.OpI64Store, 3
	case lotype.KindF32:
		return wasmout.OpF32Store, 2
	case lotype.KindF64:
		return wasmout.OpF64Store, 3
	default:
		return wasmout.OpI32Store, 2
	}
}

func (e *emitter) emitBinary(instr loir.Instr) error {
	if err := e.emit(*instr.Lhs); err != nil {
		return err
	}
	if err := e.emit(*instr.Rhs); err != nil {
		return err
	}
	op, err := binaryOpcodeFor(instr.Op, instr.Lhs.Type)
	if err != nil {
		return diag.New(instr.Loc, diag.CategoryInternal, "%v", err)
	}
	e.op(op)
	return nil
}

func binaryOpcodeFor(op loir.BinaryOpKind, operandType lotype.Type) (wasmout.Opcode, error) {
	signed := operandType.IsSigned()
	is64 := operandType.Kind == lotype.KindI64 || operandType.Kind == lotype.KindU64
	isF32 := operandType.Kind == lotype.KindF32
	isF64 := operandType.Kind == lotype.KindF64

	switch {
	case isF32:
		switch op {
		case loir.OpAdd:
			return wasmout.OpF32Add, nil
		case loir.OpSub:
			return wasmout.OpF32Sub, nil
		case loir.OpMul:
			return wasmout.OpF32Mul, nil
		case loir.OpDiv:
			return wasmout.OpF32Div, nil
		case loir.OpEq:
			return wasmout.OpF32Eq, nil
		case loir.OpNe:
			return wasmout.OpF32Ne, nil
		case loir.OpLt:
			return wasmout.OpF32Lt, nil
		case loir.OpGt:
			return wasmout.OpF32Gt, nil
		case loir.OpLe:
			return wasmout.OpF32Le, nil
		case loir.OpGe:
			return wasmout.OpF32Ge, nil
		}
	case isF64:
		switch op {
		case loir.OpAdd:
			return wasmout.OpF64Add, nil
		case loir.OpSub:
			return wasmout.OpF64Sub, nil
		case loir.OpMul:
			return wasmout.OpF64Mul, nil
		case loir.OpDiv:
			return wasmout.OpF64Div, nil
		case loir.OpEq:
			return wasmout.OpF64Eq, nil
		case loir.OpNe:
			return wasmout.OpF64Ne, nil
		case loir.OpLt:
			return wasmout.OpF64Lt, nil
		case loir.OpGt:
			return wasmout.OpF64Gt, nil
		case loir.OpLe:
			return wasmout.OpF64Le, nil
		case loir.OpGe:
			return wasmout.OpF64Ge, nil
		}
	case is64:
		switch op {
		case loir.OpAdd:
			return wasmout.OpI64Add, nil
		case loir.OpSub:
			return wasmout.OpI64Sub, nil
		case loir.OpMul:
			return wasmout.OpI64Mul, nil
		case loir.OpDiv:
			if signed {
				return wasmout.OpI64DivS, nil
			}
			return wasmout.OpI64DivU, nil
		case loir.OpRem:
			if signed {
				return wasmout.OpI64RemS, nil
			}
			return wasmout.OpI64RemU, nil
		case loir.OpAnd:
			return wasmout.OpI64And, nil
		case loir.OpOr:
			return wasmout.OpI64Or, nil
		case loir.OpEq:
			return wasmout.OpI64Eq, nil
		case loir.OpNe:
			return wasmout.OpI64Ne, nil
		case loir.OpLt:
			if signed {
				return wasmout.OpI64LtS, nil
			}
			return wasmout.OpI64LtU, nil
		case loir.OpGt:
			if signed {
				return wasmout.OpI64GtS, nil
			}
			return wasmout.OpI64GtU, nil
		case loir.OpLe:
			if signed {
				return wasmout.OpI64LeS, nil
			}
			return wasmout.OpI64LeU, nil
		case loir.OpGe:
			if signed {
				return wasmout.OpI64GeS, nil
			}
			return wasmout.OpI64GeU, nil
		}
	default:
		switch op {
		case loir.OpAdd:
			return wasmout.OpI32Add, nil
		case loir.OpSub:
			return wasmout.OpI32Sub, nil
		case loir.OpMul:
			return wasmout.OpI32Mul, nil
		case loir.OpDiv:
			if signed {
				return wasmout.OpI32DivS, nil
			}
			return wasmout.OpI32DivU, nil
		case loir.OpRem:
			if signed {
				return wasmout.OpI32RemS, nil
			}
			return wasmout.OpI32RemU, nil
		case loir.OpAnd:
			return wasmout.OpI32And, nil
		case loir.OpOr:
			return wasmout.OpI32Or, nil
		case loir.OpEq:
			return wasmout.OpI32Eq, nil
		case loir.OpNe:
			return wasmout.OpI32Ne, nil
		case loir.OpLt:
			if signed {
				return wasmout.OpI32LtS, nil
			}
			return wasmout.OpI32LtU, nil
		case loir.OpGt:
			if signed {
				return wasmout.OpI32GtS, nil
			}
			return wasmout.OpI32GtU, nil
		case loir.OpLe:
			if signed {
				return wasmout.OpI32LeS, nil
			}
			return wasmout.OpI32LeU, nil
		case loir.OpGe:
			if signed {
				return wasmout.OpI32GeS, nil
			}
			return wasmout.OpI32GeU, nil
		}
	}
	return 0, errUnhandledBinaryOp
}

var errUnhandledBinaryOp = errors.New("no opcode for this operator/operand-type combination")

func (e *emitter) emitIf(instr loir.Instr) error {
	if err := e.emit(*instr.Cond); err != nil {
		return err
	}
	e.op(wasmout.OpIf)
	e.raw(e.blockType(instr.Type))
	for _, b := range instr.ThenBranch {
		if err := e.emit(b); err != nil {
			return err
		}
	}
	if len(instr.ElseBranch) > 0 {
		e.op(wasmout.OpElse)
		for _, b := range instr.ElseBranch {
			if err := e.emit(b); err != nil {
				return err
			}
		}
	}
	e.op(wasmout.OpEnd)
	return nil
}

// blockType returns the WebAssembly block-type encoding for an if whose
// branches leave a value of typ on the stack: the empty tag for Void, a
// single valtype byte for a one-component result, or a signed LEB128 type
// index into the module's type section for a multi-component result (spec
// §4.3 decomposes a struct/tuple/Result across several components, which
// an if's branches must still balance against one another — `catch`'s
// reconstructed ok value is the case this exists for).
func (e *emitter) blockType(typ lotype.Type) []byte {
	comps := lotype.EmitComponents(typ, e.resolver)
	switch len(comps) {
	case 0:
		return []byte{wasmout.BlockTypeEmpty}
	case 1:
		return []byte{wasmout.ValueTypeByte(comps[0])}
	default:
		typeIdx := e.module.DeclareFuncType(wasmout.FuncType{Results: comps})
		return wasmout.EncodeInt64(int64(typeIdx))
	}
}

func (e *emitter) emitCasted(instr loir.Instr) error {
	from := instr.Inner.Type
	to := instr.Type
	// A Casted between a float and a non-float is never a genuine
	// bit-reinterpretation — EmitComponents tags them with distinct
	// Component kinds (CompI32 vs CompF32), and this package has no
	// reinterpret opcode to bridge them. Every legitimate float value is
	// built directly via F32Const/F64Const instead of wrapping an integer
	// constant, so reaching this means an upstream zero/default-value
	// construction forgot to do that.
	if from.IsFloat() != to.IsFloat() {
		return diag.New(instr.Loc, diag.CategoryStructural,
			"cannot reinterpret %s as %s: not a genuine bit-reinterpretation", from, to)
	}
	if err := e.emit(*instr.Inner); err != nil {
		return err
	}
	// Bit-reinterpreting casts (same component sequence) need no
	// conversion opcode at all; only the I32<->I64 and U32<->U64
	// widen/narrow pairs from spec §4.3 require one.
	if (from.Kind == lotype.KindI32 && to.Kind == lotype.KindI64) {
		e.op(wasmout.OpI64ExtendI32S)
		return nil
	}
	if from.Kind == lotype.KindU32 && to.Kind == lotype.KindU64 {
		e.op(wasmout.OpI64ExtendI32U)
		return nil
	}
	if from.Kind == lotype.KindI64 && to.Kind == lotype.KindI32 {
		e.op(wasmout.OpI32WrapI64)
		return nil
	}
	if from.Kind == lotype.KindU64 && to.Kind == lotype.KindU32 {
		e.op(wasmout.OpI32WrapI64)
		return nil
	}
	return nil
}
