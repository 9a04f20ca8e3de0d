// Package compctx implements the module context: the process-wide mutable
// compilation state threaded through the top-level parser, the expression
// parser, and the finalizer (spec §2, §3).
package compctx

import (
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
	"github.com/lo-lang/locc/internal/wasmout"
)

// Mode selects what the pipeline produces.
type Mode int

const (
	ModeCompile Mode = iota
	ModeInspect
)

// InspectEvent is one record of the `--inspect` JSON event stream (spec §9's
// supplemented inspect mode): "file" when a new source file is entered,
// "link" when an `include` resolves to another file, "hover" from
// `__debug_typeof`, and a final "end" record inspect.Encode appends.
type InspectEvent struct {
	Kind     string `json:"kind"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	TypeName string `json:"type,omitempty"`
	Target   string `json:"target,omitempty"`
}

// EmitInspect records ev if the context is in inspect mode; a no-op
// otherwise, so normal compilation pays nothing for it.
func (c *ModuleContext) EmitInspect(ev InspectEvent) {
	if c.Mode != ModeInspect {
		return
	}
	c.InspectEvents = append(c.InspectEvents, ev)
}

// Param is a single function/macro parameter.
type Param struct {
	Name string
	Type lotype.Type
}

// Constant is a compile-time binding substituted at use (spec §3): it never
// occupies a WebAssembly global or local slot.
type Constant struct {
	Name string
	Type lotype.Type
	// ValueTokens holds the constant expression so it can be re-parsed at
	// each use site without the caller re-scanning source text (mirrors
	// MacroDef.BodyTokens).
	ValueTokens []token.Token
	Loc         token.Location
}

// Global is a mutable WebAssembly global (spec §3, §4.1).
type Global struct {
	Name        string
	Type        lotype.Type
	Index       int
	InitTokens  []token.Token
	Loc         token.Location
}

// FunctionDef is a declared function, imported or local (spec §3).
type FunctionDef struct {
	Local      bool
	FnIndex    int // absolute index for imports, local index for locals
	Params     []Param
	Output     lotype.Type
	TypeIndex  int
	ReceiverOf string // non-empty for "A::b" method-bound functions
	Loc        token.Location
}

// AbsoluteIndex returns the function's absolute WebAssembly function index
// (spec §3: "imported_fns_count + local_index for locals, fn_index directly
// for imports").
func (f *FunctionDef) AbsoluteIndex(importedFnsCount int) int {
	if !f.Local {
		return f.FnIndex
	}
	return importedFnsCount + f.FnIndex
}

// PendingFnBody is a deferred function body awaiting the finalizer (spec §3).
type PendingFnBody struct {
	FnIndex         int // local index
	TypeIndex       int
	DeclLoc         token.Location // attached at creation time, not the closing `}` — see DESIGN.md
	Params          []Param
	Output          lotype.Type
	BodyTokens      []token.Token
	NextLocalIndex  int
	NamedLocals     map[string]LocalDef
}

// LocalDef binds a name to a type and a WebAssembly local slot index.
type LocalDef struct {
	Name  string
	Type  lotype.Type
	Index int
}

// MacroDef is a parametric template expanded at each call site (spec §3,
// §4.2). Stored verbatim; never cached across expansions with differing
// type arguments, per spec §9.
type MacroDef struct {
	ReceiverType string
	MethodName   string
	TypeParams   []string
	Params       []Param
	ReturnType   lotype.Type
	BodyTokens   []token.Token
	Loc          token.Location
}

// QualifiedName is how a macro/method function is keyed: "Receiver::name"
// for method-bound definitions, the bare name otherwise.
func QualifiedName(receiver, name string) string {
	if receiver == "" {
		return name
	}
	return receiver + "::" + name
}

// ExportEntry is a pending `export existing fn NAME as "EXTERN"` or an
// `export fn` declared inline; both resolve to a function index at finalize
// time (spec §4.5 step 1).
type ExportEntry struct {
	InName   string
	AsName   string
	Loc      token.Location
}

// ModuleContext is the process-wide mutable compilation state (spec §2,
// §3). It owns string_pool, data_size, and the growing wasmout.Module; all
// writers mutate them through this struct, matching spec §5's
// shared-resource policy.
type ModuleContext struct {
	Mode Mode

	// included_modules: normalized file path -> stable first-seen index.
	IncludedModules map[string]int

	TypeScope  map[string]lotype.Type
	StructDefs map[string]*lotype.StructDef

	Constants map[string]*Constant

	Globals       []*Global
	globalsByName map[string]*Global

	Functions       []*FunctionDef
	functionsByName map[string]*FunctionDef
	ImportedFnsCount int
	nextLocalFnIndex int

	PendingBodies []*PendingFnBody

	Macros map[string]*MacroDef

	Exports []ExportEntry

	// string_pool maps string contents to an offset in the active data
	// segment; data_size is the shared monotonically increasing cursor
	// U32ConstLazy captures a reference to (spec §5). Wrapped as a pointer
	// so lazily-resolved IR nodes built before the final value is known
	// observe the same memory when finalize reads it back (spec §9).
	StringPool map[string]uint32
	DataSize   *uint32

	Module *wasmout.Module

	ExportMemory bool

	InspectEvents []InspectEvent

	// MaxIncludedFiles and MaxMacroRecursion are the functional-options
	// limits set by the library caller (spec §2, §9); zero means
	// unlimited, the default New leaves them at.
	MaxIncludedFiles  int
	MaxMacroRecursion int
	macroDepth        int

	// debugWriteFn caches the implicit host import `dbg "..."` lowers
	// against, declared the first time a body actually uses `dbg` (spec
	// §2: "dbg compiles to a call against an imported stderr_write-shaped
	// host function").
	debugWriteFn *FunctionDef
}

// New creates an empty ModuleContext, as the driver does at process start
// (spec §5).
func New(mode Mode) *ModuleContext {
	dataSize := uint32(0)
	return &ModuleContext{
		Mode:            mode,
		IncludedModules: map[string]int{},
		TypeScope:       map[string]lotype.Type{},
		StructDefs:      map[string]*lotype.StructDef{},
		Constants:       map[string]*Constant{},
		globalsByName:   map[string]*Global{},
		functionsByName: map[string]*FunctionDef{},
		Macros:          map[string]*MacroDef{},
		StringPool:      map[string]uint32{},
		DataSize:        &dataSize,
		Module:          &wasmout.Module{FuncNames: map[uint32]string{}},
	}
}

// EnterMacro increments the macro-expansion recursion depth, failing once
// MaxMacroRecursion is exceeded (spec §9's recursion-limit note). A zero
// MaxMacroRecursion means unlimited.
func (c *ModuleContext) EnterMacro(loc token.Location) error {
	c.macroDepth++
	if c.MaxMacroRecursion > 0 && c.macroDepth > c.MaxMacroRecursion {
		return diag.New(loc, diag.CategoryStructural, "macro expansion exceeded the recursion limit of %d", c.MaxMacroRecursion)
	}
	return nil
}

// ExitMacro undoes the matching EnterMacro once expansion of one call site
// completes.
func (c *ModuleContext) ExitMacro() { c.macroDepth-- }

// LookupStruct implements lotype.Resolver.
func (c *ModuleContext) LookupStruct(name string) (*lotype.StructDef, bool) {
	d, ok := c.StructDefs[name]
	return d, ok
}

// DeclareImportedFunc registers an imported function; imports must precede
// any local function declaration (spec §4.1).
func (c *ModuleContext) DeclareImportedFunc(name string, fn *FunctionDef) error {
	if _, exists := c.functionsByName[name]; exists {
		return diag.New(fn.Loc, diag.CategoryResolution, "duplicate definition of function %q", name)
	}
	fn.Local = false
	fn.FnIndex = c.ImportedFnsCount
	c.ImportedFnsCount++
	c.Functions = append(c.Functions, fn)
	c.functionsByName[name] = fn
	return nil
}

// DeclareLocalFunc registers a locally defined function.
func (c *ModuleContext) DeclareLocalFunc(name string, fn *FunctionDef) error {
	if _, exists := c.functionsByName[name]; exists {
		return diag.New(fn.Loc, diag.CategoryResolution, "duplicate definition of function %q", name)
	}
	fn.Local = true
	fn.FnIndex = c.nextLocalFnIndex
	c.nextLocalFnIndex++
	c.Functions = append(c.Functions, fn)
	c.functionsByName[name] = fn
	return nil
}

// LookupFunc resolves a function by its (possibly qualified) name.
func (c *ModuleContext) LookupFunc(name string) (*FunctionDef, bool) {
	fn, ok := c.functionsByName[name]
	return fn, ok
}

// DeclareGlobal registers a mutable global and assigns it the next global
// slot index.
func (c *ModuleContext) DeclareGlobal(g *Global) error {
	if _, exists := c.globalsByName[g.Name]; exists {
		return diag.New(g.Loc, diag.CategoryResolution, "duplicate definition of global %q", g.Name)
	}
	if _, exists := c.Constants[g.Name]; exists {
		return diag.New(g.Loc, diag.CategoryResolution, "duplicate definition of %q", g.Name)
	}
	g.Index = len(c.Globals)
	c.Globals = append(c.Globals, g)
	c.globalsByName[g.Name] = g
	return nil
}

// LookupGlobal resolves a global by name.
func (c *ModuleContext) LookupGlobal(name string) (*Global, bool) {
	g, ok := c.globalsByName[name]
	return g, ok
}

// DeclareConstant registers a compile-time constant.
func (c *ModuleContext) DeclareConstant(cst *Constant) error {
	if _, exists := c.Constants[cst.Name]; exists {
		return diag.New(cst.Loc, diag.CategoryResolution, "duplicate definition of constant %q", cst.Name)
	}
	if _, exists := c.globalsByName[cst.Name]; exists {
		return diag.New(cst.Loc, diag.CategoryResolution, "duplicate definition of %q", cst.Name)
	}
	c.Constants[cst.Name] = cst
	return nil
}

// DeclareStruct inserts a partially defined struct, enabling pointer
// self-reference while its fields are parsed (spec §3, §4.1).
func (c *ModuleContext) DeclareStruct(name string, loc token.Location) (*lotype.StructDef, error) {
	if _, exists := c.StructDefs[name]; exists {
		return nil, diag.New(loc, diag.CategoryResolution, "duplicate definition of struct %q", name)
	}
	def := &lotype.StructDef{Name: name}
	c.StructDefs[name] = def
	return def, nil
}

// DebugWriteFuncIndex returns the absolute function index of the
// implicit `env.stderr_write(ptr: u32, len: u32)` import that every `dbg`
// statement calls, declaring the import on first use. The import is always
// appended after every user-declared import, so it never perturbs an
// already-assigned absolute index (spec §2, §9).
func (c *ModuleContext) DebugWriteFuncIndex() int {
	if c.debugWriteFn != nil {
		return c.debugWriteFn.FnIndex
	}
	typeIdx := c.Module.DeclareFuncType(wasmout.FuncType{
		Params: []lotype.Component{lotype.CompI32, lotype.CompI32},
	})
	fn := &FunctionDef{
		Local:     false,
		FnIndex:   c.ImportedFnsCount,
		Params:    []Param{{Name: "ptr", Type: lotype.U32}, {Name: "len", Type: lotype.U32}},
		Output:    lotype.Void,
		TypeIndex: typeIdx,
	}
	c.ImportedFnsCount++
	c.Functions = append(c.Functions, fn)
	c.Module.Imports = append(c.Module.Imports, wasmout.Import{
		Module: "env", Name: "stderr_write", Kind: wasmout.ExternFunc, TypeIndex: typeIdx,
	})
	c.Module.ImportFuncCount++
	c.Module.FuncNames[uint32(fn.FnIndex)] = "stderr_write"
	c.debugWriteFn = fn
	return fn.FnIndex
}

// InternString returns the data-segment offset for s, appending a new
// active data segment the first time s is seen (spec §3, §8:
// "string_pool.get(s) == string_pool.get(s)").
func (c *ModuleContext) InternString(s string) uint32 {
	if off, ok := c.StringPool[s]; ok {
		return off
	}
	c.EnsureMemory()
	off := *c.DataSize
	c.Module.Data = append(c.Module.Data, wasmout.DataSegment{Offset: off, Bytes: []byte(s)})
	*c.DataSize += uint32(len(s))
	c.StringPool[s] = off
	return off
}

// EnsureMemory auto-declares a single-page memory and exports it under
// "memory" the first time anything needs an active data segment but no
// explicit `memory { ... }` was ever declared in the source (an active data
// segment referencing a nonexistent memory 0 is an invalid module). A
// no-op once a memory exists, whether explicit or previously auto-declared.
func (c *ModuleContext) EnsureMemory() {
	if c.Module.Memory != nil {
		return
	}
	c.Module.Memory = &wasmout.Memory{MinPages: 1}
	c.ExportMemory = true
}
