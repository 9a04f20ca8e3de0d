// Package locc is the embeddable compiler surface: Compile and Inspect
// drive the whole pipeline (lex -> parse -> finalize -> encode) over a
// caller-supplied HostIO, mirroring wazero's own top-level runtime.go
// surface over its internal packages (spec §7).
package locc

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"github.com/lo-lang/locc/internal/compctx"
	"github.com/lo-lang/locc/internal/finalize"
	"github.com/lo-lang/locc/internal/inspect"
	"github.com/lo-lang/locc/internal/loparser"
	"github.com/lo-lang/locc/internal/wasmout"
)

// HostIO resolves the entry file and any `include`d file's source text.
// The compiler core never touches a filesystem directly (spec §9).
type HostIO interface {
	ReadFile(name string) (string, error)
}

// FSHostIO adapts an fs.FS (os.DirFS at the CLI boundary) to HostIO.
type FSHostIO struct{ FS fs.FS }

func (h FSHostIO) ReadFile(name string) (string, error) {
	b, err := fs.ReadFile(h.FS, name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Options controls compilation behavior (spec §2's functional-options
// idiom, following RuntimeConfig.With*). The zero value via NewOptions is
// ready to use.
type Options struct {
	maxMacroRecursion int
	maxIncludedFiles  int
}

// Option mutates a clone of Options, the wazero RuntimeConfig.With* shape.
type Option func(*Options) *Options

// NewOptions returns the default Options: 64 levels of macro-expansion
// recursion, 256 included files, matching typical wazero-style generous
// but bounded defaults.
func NewOptions() *Options {
	return &Options{maxMacroRecursion: 64, maxIncludedFiles: 256}
}

func (o *Options) clone() *Options {
	cp := *o
	return &cp
}

// WithMaxMacroRecursion bounds how many nested macro expansions a single
// call site may trigger before compilation fails, guarding against a
// self-referential macro template (spec §9's recursion-limit note).
func WithMaxMacroRecursion(n int) Option {
	return func(o *Options) *Options {
		ret := o.clone()
		ret.maxMacroRecursion = n
		return ret
	}
}

// WithMaxIncludedFiles bounds how many distinct files a compilation may
// pull in through `include`.
func WithMaxIncludedFiles(n int) Option {
	return func(o *Options) *Options {
		ret := o.clone()
		ret.maxIncludedFiles = n
		return ret
	}
}

func applyOptions(opts []Option) *Options {
	o := NewOptions()
	for _, opt := range opts {
		o = opt(o)
	}
	return o
}

// sourceLoader adapts HostIO to loparser.SourceLoader, resolving include
// paths relative to the including file's directory.
type sourceLoader struct {
	host HostIO
}

func (l *sourceLoader) Load(fromFile, includePath string) (string, string, error) {
	resolved := includePath
	if !path.IsAbs(includePath) {
		resolved = path.Join(path.Dir(fromFile), includePath)
	}
	src, err := l.host.ReadFile(resolved)
	if err != nil {
		return "", "", err
	}
	return resolved, src, nil
}

// compile runs the shared lex/parse/finalize pipeline, returning the final
// ModuleContext for either Compile (encode to bytes) or Inspect (encode the
// file/link/hover events recorded during parsing).
func compile(_ context.Context, mode compctx.Mode, entryFile string, host HostIO, opts ...Option) (*compctx.ModuleContext, *wasmout.Module, error) {
	o := applyOptions(opts)

	src, err := host.ReadFile(entryFile)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", entryFile, err)
	}

	ctx := compctx.New(mode)
	ctx.MaxIncludedFiles = o.maxIncludedFiles
	ctx.MaxMacroRecursion = o.maxMacroRecursion
	loader := &sourceLoader{host: host}
	if err := loparser.ParseFile(ctx, loader, entryFile, src); err != nil {
		return nil, nil, err
	}
	mod, err := finalize.Module(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ctx, mod, nil
}

// Compile lowers entryFile (and everything it transitively includes) into
// a WebAssembly binary module (spec §1).
func Compile(ctx context.Context, entryFile string, host HostIO, opts ...Option) ([]byte, error) {
	_, mod, err := compile(ctx, compctx.ModeCompile, entryFile, host, opts...)
	if err != nil {
		return nil, err
	}
	return wasmout.Encode(mod), nil
}

// Inspect runs the same pipeline as Compile but returns the `--inspect`
// JSON event stream instead of the binary module (spec §9's supplemented
// `--inspect` feature).
func Inspect(ctx context.Context, entryFile string, host HostIO, opts ...Option) ([]byte, error) {
	modCtx, _, err := compile(ctx, compctx.ModeInspect, entryFile, host, opts...)
	if err != nil {
		return nil, err
	}
	return inspect.Encode(modCtx)
}
