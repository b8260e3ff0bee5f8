// Package lower implements the per-function x86-32 lowering engine:
// operand legalisation, the 64-bit splitter, arithmetic/cast/compare/
// vector-element/call/atomic lowering, and the address-mode optimiser
// (spec.md §4.1-§4.10). Every entry point takes a *Context carrying the
// function arena, the machine block being built, and the resolved
// target flags — "pass it explicitly, never ambient" per spec.md §9.
package lower

import (
	"x32cg/asm"
	"x32cg/diag"
	"x32cg/ir"
	"x32cg/options"
)

// Context is threaded through every lowering routine in this package.
type Context struct {
	Func  *ir.Function
	Block *ir.BasicBlock // the IR block being lowered, for instruction indices in diagnostics
	MF    *asm.MachineFunction
	MB    *asm.MachineBlock
	Flags options.Flags

	instrIdx int
	labelSeq int

	// Folder is built once per function (spec.md §4.10) and shared by
	// every Load/Store this Context lowers.
	Folder *AddrModeFolder

	// Global is the FP constant pool this function's float/double
	// immediates intern into. A driver lowering several functions
	// concurrently shares one Global across all of them (spec.md §5);
	// NewContext fabricates a private one when the caller doesn't care.
	Global *ir.GlobalContext
}

func NewContext(f *ir.Function, b *ir.BasicBlock, mf *asm.MachineFunction, mb *asm.MachineBlock, flags options.Flags) *Context {
	return NewContextWithGlobal(f, b, mf, mb, flags, ir.NewGlobalContext())
}

func NewContextWithGlobal(f *ir.Function, b *ir.BasicBlock, mf *asm.MachineFunction, mb *asm.MachineBlock, flags options.Flags, g *ir.GlobalContext) *Context {
	return &Context{Func: f, Block: b, MF: mf, MB: mb, Flags: flags, Folder: NewAddrModeFolder(f), Global: g}
}

// NextLabel returns a fresh, function-unique label for a synthetic
// block, without creating the block yet — callers compute every label
// a multi-block sequence needs up front, then register each with
// NewLabelBlock in the order it should appear in the output.
func (c *Context) NextLabel(tag string) string {
	c.labelSeq++
	return fmtLabel(c.Func.Name, tag, c.labelSeq)
}

// NewLabelBlock appends a fresh MachineBlock carrying exactly label and
// moves the cursor there, for lowering sequences (i64 shifts, compare
// fusion, cmpxchg loops) that need intra-instruction control flow the
// single straight-line cursor can't express. The caller is responsible
// for emitting the jump(s) that reach it.
func (c *Context) NewLabelBlock(label string) *asm.MachineBlock {
	nb := c.MF.NewBlock(ir.BlockID(-1), label)
	c.MB = nb
	return nb
}

func fmtLabel(fn, label string, seq int) string {
	return fn + "$" + label + "$" + itoaSmall(seq)
}

func itoaSmall(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func (c *Context) cursor() *asm.Cursor { return asm.NewCursor(c.MB, c.Func) }

// fail records a fatal diagnostic and leaves HasError set so every
// subsequent lower<Kind> call on this function becomes a no-op
// (spec.md §7).
func (c *Context) fail(kind diag.Kind, format string, args ...interface{}) {
	c.Func.SetError(kind, c.instrIdx, format, args...)
}

func (c *Context) failed() bool { return c.Func.HasError }
