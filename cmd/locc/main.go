package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lo-lang/locc"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr, os.Args[1:]))
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer, args []string) int {
	flags := flag.NewFlagSet("locc", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "Prints usage.")

	var inspect bool
	flags.BoolVar(&inspect, "inspect", false,
		"Emit the JSON event stream (file/link/hover/end records) instead of a wasm binary.")

	var outPath string
	flags.StringVar(&outPath, "o", "", "Output path. Defaults to the entry file's name with its extension replaced.")

	var maxMacroRecursion int
	flags.IntVar(&maxMacroRecursion, "max-macro-recursion", 64, "Macro-expansion recursion limit.")

	var maxIncludedFiles int
	flags.IntVar(&maxIncludedFiles, "max-included-files", 256, "Maximum number of distinct included files.")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if help || flags.NArg() == 0 {
		printUsage(stdErr, flags)
		return 0
	}

	entryFile := flags.Arg(0)
	host := locc.FSHostIO{FS: os.DirFS(filepath.Dir(entryFile))}
	entryName := filepath.Base(entryFile)

	opts := []locc.Option{
		locc.WithMaxMacroRecursion(maxMacroRecursion),
		locc.WithMaxIncludedFiles(maxIncludedFiles),
	}

	ctx := context.Background()

	if inspect {
		events, err := locc.Inspect(ctx, entryName, host, opts...)
		if err != nil {
			fmt.Fprintln(stdErr, err)
			return 1
		}
		stdOut.Write(events)
		return 0
	}

	wasm, err := locc.Compile(ctx, entryName, host, opts...)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	if outPath == "" {
		ext := filepath.Ext(entryFile)
		outPath = entryFile[:len(entryFile)-len(ext)] + ".wasm"
	}
	if err := os.WriteFile(outPath, wasm, 0o644); err != nil {
		fmt.Fprintf(stdErr, "writing %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(w, "locc compiles a LO source file to a WebAssembly binary module.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "\tlocc [flags] <entry-file.lo>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	flags.PrintDefaults()
}
