package wasmout

import "github.com/lo-lang/locc/internal/lotype"

// FuncType is a WebAssembly function signature, the unit of the type
// section's deduplicated table.
type FuncType struct {
	Params, Results []lotype.Component
}

func (a FuncType) Equal(b FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

// ExternKind tags what an Import/Export refers to.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0x00
	ExternTable  ExternKind = 0x01
	ExternMemory ExternKind = 0x02
	ExternGlobal ExternKind = 0x03
)

// Import is one entry of the import section. Only Func imports are needed
// by spec §4.1 ("import from \"MODULE\" { fn ... }").
type Import struct {
	Module, Name string
	Kind         ExternKind
	TypeIndex    int
}

// Memory is the single optional memory declaration (spec §4.1).
type Memory struct {
	MinPages uint32
	MaxPages uint32
	HasMax   bool
}

// Global is one entry of the global section. InitExpr is a constant
// expression byte sequence terminated by `end` (0x0B), produced by the
// finalizer from a re-lowered global initializer.
type Global struct {
	Type     lotype.Component
	Mutable  bool
	InitExpr []byte
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// LocalGroup is a run-length-compressed group of same-typed non-argument
// locals (spec §4.4).
type LocalGroup struct {
	Count uint32
	Type  lotype.Component
}

// Code is one entry of the code section: a local function's compiled body.
type Code struct {
	Locals []LocalGroup
	Body   []byte
}

// DataSegment is one active data-segment entry (spec §4.5: "active, sorted
// by emission order").
type DataSegment struct {
	Offset uint32
	Bytes  []byte
}

// Module is the growing WebAssembly module under construction (spec §3's
// "Module context lifecycle" names this "the WebAssembly module under
// construction"). FuncTypeIndices[i] is the type-section index of the i'th
// locally defined function (imports occupy the first ImportFuncCount
// absolute indices, ahead of these).
type Module struct {
	Types           []FuncType
	Imports         []Import
	ImportFuncCount int
	FuncTypeIndices []int
	Memory          *Memory
	Globals         []Global
	Exports         []Export
	Code            []Code
	Data            []DataSegment
	// FuncNames maps an absolute function index to its declared name, for
	// the custom name section (spec §4.5).
	FuncNames map[uint32]string
}

// DeclareFuncType interns ft into Types, returning its index. Equal
// signatures share one type-section entry, matching how every example
// WebAssembly encoder in the corpus deduplicates function types.
func (m *Module) DeclareFuncType(ft FuncType) int {
	for i, existing := range m.Types {
		if existing.Equal(ft) {
			return i
		}
	}
	m.Types = append(m.Types, ft)
	return len(m.Types) - 1
}

// AbsoluteFuncIndex is imported_fns_count + local_index for a local
// function, as spec §3 defines it.
func (m *Module) AbsoluteFuncIndex(localIndex int) int {
	return m.ImportFuncCount + localIndex
}
