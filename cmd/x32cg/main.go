// Command x32cg lowers a small built-in set of IR functions to x86-32
// Intel-syntax assembly text, exercising the backend as a real program
// the way the teacher's cmd/slow wires parse/compile subcommands around
// its own pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"x32cg/asm"
	"x32cg/frame"
	"x32cg/ir"
	"x32cg/lower"
	"x32cg/om1"
	"x32cg/options"
)

func main() {
	genCmd := &cli.Command{
		Name:        "gen",
		Description: "lower the built-in demo functions to x86-32 assembly",
		Action:      genAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "x32cg",
		Description: "x32cg is an x86-32 code generator backend",
		Commands: []*cli.Command{
			genCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

// genAct scans its own args by hand rather than declaring cli.Flag
// entries: every flag here is a bare toggle, and nothing in this
// program's dependency surface demonstrates the Flag API.
func genAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	flags := options.Default()
	for _, a := range c.Args {
		switch a {
		case "-sse41":
			flags.SSE = options.SSE41
		case "-o2":
			flags.Opt = options.O2
		case "-sandboxed":
			flags.Sandboxed = true
		case "-v":
			flags.Verbose = true
		default:
			return errors.New("unknown flag %q", a)
		}
	}

	funcs := demoFunctions()
	global := ir.NewGlobalContext()

	// Functions lower independently (spec.md §5): each goroutine owns
	// its own ir.Function arena and *frame.Builder, sharing only the
	// mutex-guarded FP constant pool in global. Concurrency is bounded
	// by GOMAXPROCS rather than len(funcs) so a large program doesn't
	// spawn one goroutine per function.
	built := make([]*buildResult, len(funcs))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i, f := range funcs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, f *ir.Function) {
			defer wg.Done()
			defer func() { <-sem }()
			built[i] = lowerOne(ctx, f, flags, global, flags.Verbose)
		}(i, f)
	}
	wg.Wait()

	for _, r := range built {
		if r.err != nil {
			return r.err
		}
	}

	w := asm.NewWriter()
	w.Directive("format ELF32 executable 3")
	w.Section("readable")
	w.FloatPool(global)
	w.Section("readable executable")
	for _, r := range built {
		w.Function(r.mf, r.builder)
	}

	fmt.Print(w.String())
	return nil
}

type buildResult struct {
	mf      *asm.MachineFunction
	builder *frame.Builder
	err     error
}

func lowerOne(ctx context.Context, f *ir.Function, flags options.Flags, global *ir.GlobalContext, verbose bool) *buildResult {
	if verbose {
		tlog.SpanFromContext(ctx).Printw("lowering function", "func", f.Name, "sse", flags.SSE, "opt", flags.Opt)
	}

	mf := lower.LowerFunctionWithGlobal(f, flags, global)
	if f.HasError {
		return &buildResult{err: errors.Wrap(f.FirstError, "lowering %v", f.Name)}
	}

	if flags.Opt == options.Om1 {
		om1.Allocate(f, mf)
	}

	b := frame.Build(f, mf, flags)
	return &buildResult{mf: mf, builder: b}
}
