package frame

import (
	"x32cg/asm"
	"x32cg/ir"
)

// argLoc is where an argument leaf Variable (a scalar, or one i32 half
// of an i64 argument) actually arrives, per the cdecl-ish contract
// lower.Call uses at every call site: the first four vector-typed
// arguments in xmm0..xmm3, everything else stack-resident.
type argLoc struct {
	xmm    bool
	reg    asm.Reg
	offset int32 // ebp-relative, valid when !xmm
}

// layoutArgs mirrors lower.Context.Call's own classification of
// CallArgs so a callee's incoming locations agree byte-for-byte with
// what every caller wrote there.
func (b *Builder) layoutArgs() {
	var vecArgs, otherArgs []ir.VarID
	for _, id := range b.f.Args {
		v := b.f.Var(id)
		if v.Type.IsVector() && len(vecArgs) < 4 {
			vecArgs = append(vecArgs, id)
		} else {
			otherArgs = append(otherArgs, id)
		}
	}

	arrival := map[ir.VarID]argLoc{}
	var order []ir.VarID // keeps classification order deterministic (map iteration isn't)

	xmmRegs := []asm.Reg{asm.XMM0, asm.XMM1, asm.XMM2, asm.XMM3}
	for i, id := range vecArgs {
		arrival[id] = argLoc{xmm: true, reg: xmmRegs[i]}
		order = append(order, id)
	}

	// Same front-to-back offset walk as lower.Context.Call's otherArgs
	// loop, so the first argument lands at the lowest address.
	relOff := map[ir.VarID]int32{}
	off := int32(0)
	for _, id := range otherArgs {
		v := b.f.Var(id)
		sz := int32(v.Type.SizeInBytes())
		if v.Type.IsVector() {
			off = alignUp(off, 16)
		} else {
			off = alignUp(off, 4)
		}
		relOff[id] = off
		off += sz
	}
	for _, id := range otherArgs {
		v := b.f.Var(id)
		base := 8 + relOff[id] // ebp+8 is the first incoming stack slot
		if v.Type == ir.I64 {
			lo, hi := b.f.SplitVar(id)
			arrival[lo] = argLoc{offset: base}
			arrival[hi] = argLoc{offset: base + 4}
			order = append(order, lo, hi)
		} else {
			arrival[id] = argLoc{offset: base}
			order = append(order, id)
		}
	}

	for _, id := range order {
		b.classifyArg(id, arrival[id])
	}
}

// classifyArg settles one argument leaf: a colour-allocated leaf needs a
// prolog fixup moving its value from the ABI arrival point into the
// assigned register (materialising an xmm-arrival argument that never
// got a register instead takes a spill fixup); an uncoloured stack
// argument just points straight at its incoming slot, at no cost.
func (b *Builder) classifyArg(id ir.VarID, loc argLoc) {
	v := b.f.Var(id)
	if v.HasReg() {
		fx := argFixup{dest: ir.Var(id, v.Type), t: v.Type}
		if loc.xmm {
			fx.fromXMM = true
			fx.xmmReg = loc.reg
		} else {
			fx.fromOff = loc.offset
		}
		b.argFixups = append(b.argFixups, fx)
		return
	}
	if loc.xmm {
		// No register: the value still needs a memory home, captured
		// out of its arrival register once, in the prolog. Queued
		// alongside the ordinary globals so layoutSpills packs it in.
		size := int32(v.Type.SizeInBytes())
		b.pendingXMMArgs = append(b.pendingXMMArgs, packItem{id: id, size: size})
		b.pendingXMMArgReg[id] = loc.reg
		return
	}
	b.slots[id] = slot{offset: loc.offset}
}
