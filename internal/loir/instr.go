// Package loir implements LoInstr, the typed intermediate representation the
// expression parser emits (spec §3, §4.2). It is a single owning recursive
// tree — back-references (e.g. a spilled address local) are plain integer
// indices, never shared subtrees, per spec §9's design note.
package loir

import (
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// Kind tags an Instr variant.
type Kind int

const (
	KindU32Const Kind = iota
	KindU32ConstLazy
	KindU64Const
	KindI64Const
	KindF32Const
	KindF64Const
	KindLocalGet
	KindUntypedLocalGet
	KindGlobalGet
	KindGlobalSet
	KindSet
	KindLoad
	KindStore
	KindStructGet
	KindStructLoad
	KindCall
	KindBinaryOp
	KindIf
	KindBlock
	KindLoop
	KindBranch
	KindReturn
	KindDrop
	KindMultiValueEmit
	KindCasted
	KindMemorySize
	KindMemoryGrow
	KindNoInstr
	KindUnreachable
)

// BinaryOpKind names the WebAssembly-selected binary operator (spec §4.3
// chooses the concrete instruction from this plus the operand type).
type BinaryOpKind int

const (
	OpAdd BinaryOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

// BlockKind distinguishes the four lexical block shapes break/continue
// label resolution walks through (spec §4.2).
type BlockKind int

const (
	BlockPlain BlockKind = iota
	BlockLoop
	BlockForLoop
	BlockFunction
)

// Instr is the LoInstr tagged union. Only fields relevant to Kind are valid;
// Type is always populated — it is the type emit_components decomposes,
// memoized at parse time so lowering never re-infers it.
type Instr struct {
	Kind Kind
	Type lotype.Type
	Loc  token.Location

	// literals
	U32 uint32
	U64 uint64
	I64 int64

	// KindLocalGet / KindUntypedLocalGet / KindSet(load-bind spill) / KindStructGet(base local index)
	LocalIndex int

	// KindGlobalGet / KindGlobalSet
	GlobalIndex int

	// KindLoad / KindStore / KindStructLoad
	Align, Offset uint32
	Address       *Instr

	// KindStructGet / KindStructLoad
	BaseIndex int // field_index (StructGet, offset from LocalIndex) or byte_offset (StructLoad, offset from Address)
	FieldType lotype.Type

	// KindSet / KindGlobalSet(Value only) / KindStore(Value only)
	Bind, Value *Instr

	// KindCall
	FnIndex    int
	Args       []Instr
	ReturnType lotype.Type

	// KindBinaryOp
	Op       BinaryOpKind
	Lhs, Rhs *Instr

	// KindIf
	Cond                   *Instr
	ThenBranch, ElseBranch []Instr

	// KindBlock / KindLoop
	Body      []Instr
	BlockKind BlockKind

	// KindBranch
	LabelIndex int

	// KindReturn
	ReturnValue *Instr

	// KindMultiValueEmit
	Values []Instr

	// KindCasted
	Inner *Instr

	// KindMemoryGrow
	GrowBy *Instr

	// KindU32ConstLazy: captures a reference to the module's shared
	// data_size cursor so a late global initializer resolves to the final
	// value once all data segments are known (spec §5).
	DataSizeRef *uint32

	// KindF32Const / KindF64Const
	F32 float32
	F64 float64
}

// Casted wraps an instruction without changing its emitted bytes — it
// overlays a logical type onto a structurally identical component sequence
// (spec §3).
func (i Instr) Casted(target lotype.Type) Instr {
	cp := i
	return Instr{Kind: KindCasted, Type: target, Inner: &cp}
}

func U32Const(v uint32) Instr { return Instr{Kind: KindU32Const, Type: lotype.U32, U32: v} }
func U64Const(v uint64) Instr { return Instr{Kind: KindU64Const, Type: lotype.U64, U64: v} }
func I64Const(v int64) Instr  { return Instr{Kind: KindI64Const, Type: lotype.I64, I64: v} }

// F32Const and F64Const are the only way to synthesize a float value from
// nothing (spec has no float literal grammar yet): zero-construction sites
// like defaultValue, `!`, and catch's err-zero must go through these rather
// than faking a float with an integer Casted, which leaves the wrong wasm
// value type on the stack.
func F32Const(v float32) Instr { return Instr{Kind: KindF32Const, Type: lotype.F32, F32: v} }
func F64Const(v float64) Instr { return Instr{Kind: KindF64Const, Type: lotype.F64, F64: v} }

// NoInst is the unit value produced by statements with no runtime effect
// (defer registration, discarded casts).
var NoInst = Instr{Kind: KindNoInstr, Type: lotype.Void}

var Unreachable = Instr{Kind: KindUnreachable, Type: lotype.Never}
