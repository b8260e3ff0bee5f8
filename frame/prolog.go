package frame

import (
	"x32cg/asm"
	"x32cg/ir"
)

// moveMnemonic picks the right move instruction for a type crossing a
// register/memory boundary in the prolog (spec.md §4.11's "register
// argument gets a prolog mov from its stack location", generalised to
// the xmm case too).
func moveMnemonic(t ir.Type) string {
	switch {
	case t.IsVector():
		return asm.Movaps
	case t == ir.F32:
		return asm.Movss
	case t == ir.F64:
		return asm.Movsd
	default:
		return asm.Mov
	}
}

func (b *Builder) ebpMem(t ir.Type, offset int32) ir.Operand {
	base := b.fabricatePhys(ir.I32, asm.EBP)
	return ir.Mem(t, base.Var, ir.NoVar, 0, offset, true)
}

// emitPrologEpilog builds the prolog once and splices it at the head of
// the entry block, then finds every `ret` across the function (in
// block order — spec.md's "last ret in reverse order" just means "don't
// miss any exit path") and splices a matching epilog ahead of it.
func (b *Builder) emitPrologEpilog() {
	entry := b.mf.Blocks[0]
	for _, blk := range b.mf.Blocks {
		if blk.ID == b.f.Entry {
			entry = blk
			break
		}
	}

	prolog := b.buildProlog()
	entry.Instrs = append(append([]asm.MachineInstr{}, prolog...), entry.Instrs...)

	epilog := b.buildEpilog()
	for _, blk := range b.mf.Blocks {
		var out []asm.MachineInstr
		for _, instr := range blk.Instrs {
			if instr.Mnemonic == asm.Ret && len(instr.Operands) == 0 {
				out = append(out, epilog...)
			}
			out = append(out, instr)
		}
		blk.Instrs = out
	}
}

func (b *Builder) buildProlog() []asm.MachineInstr {
	var out []asm.MachineInstr
	push := func(op ir.Operand) {
		out = append(out, asm.MachineInstr{Mnemonic: asm.Push, Operands: []ir.Operand{op}})
	}
	bin := func(mn string, dst, src ir.Operand) {
		out = append(out, asm.MachineInstr{Mnemonic: mn, Operands: []ir.Operand{dst, src}})
	}

	push(b.fabricatePhys(ir.I32, asm.EBP))
	bin(asm.Mov, b.fabricatePhys(ir.I32, asm.EBP), b.fabricatePhys(ir.I32, asm.ESP))
	for _, r := range b.preserved {
		push(b.fabricatePhys(ir.I32, r))
	}
	if b.frameSize > 0 {
		bin(asm.Sub, b.fabricatePhys(ir.I32, asm.ESP), ir.ConstInt(ir.I32, uint64(b.frameSize)))
	}

	for _, fx := range b.argFixups {
		if fx.fromXMM {
			bin(moveMnemonic(fx.t), fx.dest, b.fabricatePhys(fx.t, fx.xmmReg))
		} else {
			bin(moveMnemonic(fx.t), fx.dest, b.ebpMem(fx.t, fx.fromOff))
		}
	}
	for _, fx := range b.spillFixups {
		bin(moveMnemonic(fx.t), b.ebpMem(fx.t, fx.offset), b.fabricatePhys(fx.t, fx.xmmReg))
	}

	return out
}

func (b *Builder) buildEpilog() []asm.MachineInstr {
	var out []asm.MachineInstr
	if b.frameSize > 0 {
		out = append(out, asm.MachineInstr{
			Mnemonic: asm.Add,
			Operands: []ir.Operand{b.fabricatePhys(ir.I32, asm.ESP), ir.ConstInt(ir.I32, uint64(b.frameSize))},
		})
	}
	for i := len(b.preserved) - 1; i >= 0; i-- {
		out = append(out, asm.MachineInstr{Mnemonic: asm.Pop, Operands: []ir.Operand{b.fabricatePhys(ir.I32, b.preserved[i])}})
	}
	out = append(out, asm.MachineInstr{Mnemonic: asm.Pop, Operands: []ir.Operand{b.fabricatePhys(ir.I32, asm.EBP)}})
	return out
}
