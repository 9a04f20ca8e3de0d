// Package lotype implements the LO type system: the LoType tagged union,
// struct layout, and the component-decomposition rules that map a
// source-level type onto the flat WebAssembly value stack (spec §3, §4.3).
package lotype

import "fmt"

// Kind tags the variant of a Type, mirroring the primitive-enum-plus-cases
// shape of ssa.Type in the teacher's internal/engine/wazevo/ssa package.
type Kind int

const (
	KindNever Kind = iota
	KindVoid
	KindBool
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindF32
	KindF64
	KindPointer
	KindTuple
	KindStructInstance
	KindResult
	KindMacroTypeArg
)

// Type is the LoType tagged union. Only the fields relevant to Kind are
// populated; callers must switch on Kind before reading variant fields.
type Type struct {
	Kind Kind

	// KindPointer
	Pointee *Type

	// KindTuple
	Elems []Type

	// KindStructInstance — indirection into ModuleContext.StructDefs.
	StructName string

	// KindResult
	Ok, Err *Type

	// KindMacroTypeArg
	MacroArgName string
}

func Primitive(k Kind) Type { return Type{Kind: k} }

var (
	Never = Primitive(KindNever)
	Void  = Primitive(KindVoid)
	Bool  = Primitive(KindBool)
	I8    = Primitive(KindI8)
	U8    = Primitive(KindU8)
	I16   = Primitive(KindI16)
	U16   = Primitive(KindU16)
	I32   = Primitive(KindI32)
	U32   = Primitive(KindU32)
	I64   = Primitive(KindI64)
	U64   = Primitive(KindU64)
	F32   = Primitive(KindF32)
	F64   = Primitive(KindF64)
)

func PointerTo(pointee Type) Type { return Type{Kind: KindPointer, Pointee: &pointee} }
func TupleOf(elems ...Type) Type  { return Type{Kind: KindTuple, Elems: elems} }
func StructInstance(name string) Type {
	return Type{Kind: KindStructInstance, StructName: name}
}
func ResultOf(ok, err Type) Type { return Type{Kind: KindResult, Ok: &ok, Err: &err} }
func MacroArg(name string) Type  { return Type{Kind: KindMacroTypeArg, MacroArgName: name} }

// IsInteger reports whether t is one of the fixed-width integer primitives.
func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindI8, KindU8, KindI16, KindU16, KindI32, KindU32, KindI64, KindU64:
		return true
	default:
		return false
	}
}

// IsSigned reports whether t is a signed integer primitive.
func (t Type) IsSigned() bool {
	switch t.Kind {
	case KindI8, KindI16, KindI32, KindI64:
		return true
	default:
		return false
	}
}

// Is64 reports whether t occupies a 64-bit WebAssembly component.
func (t Type) Is64() bool {
	return t.Kind == KindI64 || t.Kind == KindU64 || t.Kind == KindF64
}

// IsFloat reports whether t is F32 or F64.
func (t Type) IsFloat() bool { return t.Kind == KindF32 || t.Kind == KindF64 }

// Equal is structural equality of LoType trees (spec §4.3).
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindPointer:
		return Equal(*a.Pointee, *b.Pointee)
	case KindTuple:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KindStructInstance:
		return a.StructName == b.StructName
	case KindResult:
		return Equal(*a.Ok, *b.Ok) && Equal(*a.Err, *b.Err)
	case KindMacroTypeArg:
		return a.MacroArgName == b.MacroArgName
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KindPointer:
		return "&" + t.Pointee.String()
	case KindTuple:
		s := "("
		for i, e := range t.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	case KindStructInstance:
		return t.StructName
	case KindResult:
		return fmt.Sprintf("%s throws %s", t.Ok, t.Err)
	case KindMacroTypeArg:
		return t.MacroArgName
	default:
		return [...]string{
			"never", "void", "bool", "i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64", "f32", "f64",
		}[t.Kind]
	}
}

// Component is one WebAssembly primitive type a source-level value
// decomposes into.
type Component int

const (
	CompI32 Component = iota
	CompI64
	CompF32
	CompF64
)

func (c Component) String() string {
	return [...]string{"i32", "i64", "f32", "f64"}[c]
}

// ByteSize is the packed (no-alignment-padding) byte length of a single
// component, used by SizedComponentStats.
func (c Component) ByteSize() int {
	switch c {
	case CompI32, CompF32:
		return 4
	case CompI64, CompF64:
		return 8
	default:
		panic("unreachable component")
	}
}

// Resolver looks up a struct definition by name, the indirection
// StructInstance requires (spec §3).
type Resolver interface {
	LookupStruct(name string) (*StructDef, bool)
}

// EmitComponents decomposes typ into its WebAssembly component sequence in
// layout order (spec §4.3). Resolver is needed only for StructInstance.
func EmitComponents(typ Type, r Resolver) []Component {
	switch typ.Kind {
	case KindNever, KindVoid:
		return nil
	case KindBool, KindI8, KindU8, KindI16, KindU16, KindI32, KindU32:
		return []Component{CompI32}
	case KindI64, KindU64:
		return []Component{CompI64}
	case KindF32:
		return []Component{CompF32}
	case KindF64:
		return []Component{CompF64}
	case KindPointer:
		return []Component{CompI32}
	case KindTuple:
		var out []Component
		for _, e := range typ.Elems {
			out = append(out, EmitComponents(e, r)...)
		}
		return out
	case KindStructInstance:
		def, ok := r.LookupStruct(typ.StructName)
		if !ok {
			panic("unreachable: unresolved struct " + typ.StructName)
		}
		var out []Component
		for _, f := range def.Fields {
			out = append(out, EmitComponents(f.Type, r)...)
		}
		return out
	case KindResult:
		return append(EmitComponents(*typ.Ok, r), EmitComponents(*typ.Err, r)...)
	case KindMacroTypeArg:
		panic("unreachable: MacroTypeArg outside macro scope")
	default:
		panic("unreachable: unknown type kind")
	}
}

// ComponentStats is the result of SizedComponentStats: the component
// sequence plus its packed byte length.
type ComponentStats struct {
	Components []Component
	ByteLength int
}

// SizedComponentStats additionally reports byte_length using the packed
// layout (spec §4.3), used to assign struct field byte offsets/indices at
// struct-definition time and to implement `sizeof`.
func SizedComponentStats(typ Type, r Resolver) ComponentStats {
	comps := EmitComponents(typ, r)
	size := 0
	for _, c := range comps {
		size += c.ByteSize()
	}
	return ComponentStats{Components: comps, ByteLength: size}
}

// Field is one member of a StructDef.
type Field struct {
	Name       string
	Type       Type
	FieldIndex int // prefix sum of component counts
	ByteOffset int // prefix sum of byte lengths
}

// StructDef is an ordered field list plus the fully_defined flag spec §3
// describes: flipped from false to true when the closing delimiter of the
// `struct { ... }` declaration is consumed, enabling self-referential
// pointer fields declared before the struct is complete.
type StructDef struct {
	Name          string
	Fields        []Field
	FullyDefined  bool
}

// LookupField returns the Field named name, if any.
func (d *StructDef) LookupField(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AssignLayout recomputes FieldIndex/ByteOffset for every field as the
// prefix sum of component counts / byte lengths (spec §4.3). Must be called
// whenever a field is appended to Fields.
func (d *StructDef) AssignLayout(r Resolver) {
	fieldIndex, byteOffset := 0, 0
	for i := range d.Fields {
		f := &d.Fields[i]
		f.FieldIndex = fieldIndex
		f.ByteOffset = byteOffset
		stats := SizedComponentStats(f.Type, r)
		fieldIndex += len(stats.Components)
		byteOffset += stats.ByteLength
	}
}

// CompatibleForCast reports whether a value of type from may be converted to
// type to via `as`, per the four cases in spec §4.3.
func CompatibleForCast(from, to Type, r Resolver) bool {
	// (a) any integer and Bool/I8/U8 — truncation to the 32-bit domain.
	isNarrow := func(t Type) bool { return t.Kind == KindBool || t.Kind == KindI8 || t.Kind == KindU8 }
	if (from.IsInteger() || from.Kind == KindBool) && isNarrow(to) {
		return true
	}
	if isNarrow(from) && (to.IsInteger() || to.Kind == KindBool) {
		return true
	}
	// (b) I32<->I64 with explicit sign extension/truncation.
	if (from.Kind == KindI32 && to.Kind == KindI64) || (from.Kind == KindI64 && to.Kind == KindI32) {
		return true
	}
	// (c) U32<->U64 likewise unsigned.
	if (from.Kind == KindU32 && to.Kind == KindU64) || (from.Kind == KindU64 && to.Kind == KindU32) {
		return true
	}
	// (d) bit-reinterpretation escape hatch: equal emitted component sequences.
	fc, tc := EmitComponents(from, r), EmitComponents(to, r)
	if len(fc) != len(tc) {
		return false
	}
	for i := range fc {
		if fc[i] != tc[i] {
			return false
		}
	}
	return true
}
