// Package frame lays out a function's stack frame once lowering and
// register colouring have run, and implements asm.Resolver so the
// writer can render every surviving Variable as either a register or a
// [base+disp] memory operand (spec.md §4.11).
//
// Layout proceeds top to bottom in eight numbered regions: return
// address, preserved registers, alignment padding, a globals spill area
// (variables alive across more than one block), more padding, a locals
// spill area (single-block-lived variables, coalesced bank-style across
// blocks since only one block executes at a time), call-alignment
// padding, and finally alloca slots.
package frame

import (
	"sort"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

// slot is a Variable's resolved stack home, relative to ebp.
type slot struct {
	offset int32
}

// argFixup is a prolog-only copy from a value's ABI arrival location
// into the register the colourer assigned it.
type argFixup struct {
	dest    ir.Operand // Variable operand, HasReg() true
	t       ir.Type
	fromXMM bool
	xmmReg  asm.Reg
	fromOff int32 // valid when !fromXMM
}

// spillFixup stores an argument that arrived in xmm0..3 but was not
// given a register, straight into its spill slot in the prolog.
type spillFixup struct {
	t      ir.Type
	xmmReg asm.Reg
	offset int32
}

// Builder computes one function's frame and implements asm.Resolver
// against the result.
type Builder struct {
	f     *ir.Function
	mf    *asm.MachineFunction
	flags options.Flags

	slots map[ir.VarID]slot

	preserved []asm.Reg // non-ebp callee-saved registers this function clobbers
	ebpBased  bool

	argFixups   []argFixup
	spillFixups []spillFixup

	// pendingXMMArgs holds xmm-arrival arguments that never got a
	// register: layoutSpills packs them into the globals region
	// alongside ordinary spills and records the store-once fixup.
	pendingXMMArgs   []packItem
	pendingXMMArgReg map[ir.VarID]asm.Reg

	frameSize int32 // bytes subtracted by `sub esp, N` in the prolog
}

// Build computes the frame for f/mf and splices the prolog and every
// epilog directly into mf's blocks. The returned Builder is also f's
// asm.Resolver.
func Build(f *ir.Function, mf *asm.MachineFunction, flags options.Flags) *Builder {
	b := &Builder{
		f: f, mf: mf, flags: flags,
		slots:            map[ir.VarID]slot{},
		pendingXMMArgReg: map[ir.VarID]asm.Reg{},
		ebpBased:         true,
	}
	b.detectPreserved()
	b.layoutArgs()
	b.layoutSpills()
	b.emitPrologEpilog()
	mf.FrameSize = b.frameSize
	return b
}

// RegOf implements asm.Resolver.
func (b *Builder) RegOf(id ir.VarID) (asm.Reg, bool) {
	v := b.f.Var(id)
	if v != nil && v.HasReg() {
		return v.Reg, true
	}
	return 0, false
}

// FrameOperand implements asm.Resolver: every non-register Variable this
// builder saw is ebp-relative (spec.md §4.11 only defines an
// esp-relative alloca form for frames without a frame pointer, which
// this builder never produces).
func (b *Builder) FrameOperand(id ir.VarID) (asm.Reg, int32) {
	s, ok := b.slots[id]
	if !ok {
		// Referenced but never classified (e.g. a fabricated operand
		// from this package itself) — park at the frame's own base so a
		// bug here is visible as a wrong offset, not a crash.
		return asm.EBP, 0
	}
	return asm.EBP, s.offset
}

func (b *Builder) detectPreserved() {
	used := map[asm.Reg]bool{}
	for _, v := range b.f.Vars {
		if v.HasReg() && asm.IsCalleeSaved(v.Reg) {
			used[v.Reg] = true
		}
	}
	for _, r := range asm.CalleeSaved {
		if used[r] {
			b.preserved = append(b.preserved, r)
		}
	}
}

// fabricatePhys creates a fresh Variable precoloured to reg, the same
// convention lower.Context.PhysVar uses, so this package's own prolog
// operands resolve through the ordinary RegOf path.
func (b *Builder) fabricatePhys(t ir.Type, reg asm.Reg) ir.Operand {
	id := b.f.NewVar(t)
	b.f.Var(id).Reg = reg
	return ir.Var(id, t)
}

func alignUp(n, a int32) int32 {
	if a <= 1 || n%a == 0 {
		return n
	}
	return n + (a - n%a)
}

func sizeAlign(size int32) int32 {
	switch {
	case size >= 16:
		return 16
	case size >= 8:
		return 8
	case size >= 4:
		return 4
	case size >= 2:
		return 2
	default:
		return 1
	}
}

// packItem is one distinct-slot allocation request (spec.md §4.11's
// "bucketed by log2-natural-alignment, concatenated largest-first").
type packItem struct {
	id   ir.VarID
	size int32
}

// packDistinct lays out items back to back, each getting its own slot,
// largest size first, naturally aligned. Returns the region's total
// size and each item's offset from the region's start.
func packDistinct(items []packItem) (int32, map[ir.VarID]int32) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].size > items[j].size })
	offsets := make(map[ir.VarID]int32, len(items))
	var cur int32
	for _, it := range items {
		cur = alignUp(cur, sizeAlign(it.size))
		offsets[it.id] = cur
		cur += it.size
	}
	return cur, offsets
}
