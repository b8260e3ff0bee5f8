package lower

import (
	"x32cg/asm"
	"x32cg/ir"
)

// AtomicCmpxchg lowers an IntrinsicAtomicCmpxchg per spec.md §4.8/§4.9:
// i64 expands to cmpxchg8b with edx:eax holding expected and ecx:ebx
// holding desired; everything else uses cmpxchg with eax. Per the
// original's lowerAtomicCmpxchg, the unfused form's Dest receives the
// old memory value that cmpxchg/cmpxchg8b always loads into eax/edx:eax
// regardless of success — the success boolean only exists when a
// separate `icmp eq %dest, %expected` produces it explicitly. When
// trueLabel is non-empty, the driver has fused that trailing icmp+br
// idiom (detectFusion/TryFuseCmpxchgBranch) and wants a direct `je trueLabel;
// jmp falseLabel` straight off cmpxchg's ZF instead (spec.md §4.9).
func (c *Context) AtomicCmpxchg(instr ir.Instruction, trueLabel, falseLabel string) {
	cur := c.cursor()
	addr, expected, desired := instr.Operands[0], instr.Operands[1], instr.Operands[2]

	if instr.Type == ir.I64 {
		eax := c.PhysVar(ir.I32, EAX)
		edx := c.PhysVar(ir.I32, EDX)
		ebx := c.PhysVar(ir.I32, EBX)
		ecx := c.PhysVar(ir.I32, ECX)
		cur.Bin(asm.Mov, eax, c.Legalize(c.LoOperand(expected), AllowRegMem, false, ir.NoReg))
		cur.Bin(asm.Mov, edx, c.Legalize(c.HiOperand(expected), AllowRegMem, false, ir.NoReg))
		cur.Bin(asm.Mov, ebx, c.Legalize(c.LoOperand(desired), AllowRegMem, false, ir.NoReg))
		cur.Bin(asm.Mov, ecx, c.Legalize(c.HiOperand(desired), AllowRegMem, false, ir.NoReg))
		cur.LockUnary(asm.Cmpxchg8b, addr)
	} else {
		eax := c.PhysVar(instr.Type, EAX)
		cur.Bin(asm.Mov, eax, c.Legalize(expected, AllowRegMem, false, ir.NoReg))
		cur.LockBin(asm.Cmpxchg, addr, c.Legalize(desired, AllowRegMem, false, ir.NoReg))
	}

	if trueLabel != "" {
		cur.Jcc("e", trueLabel)
		cur.Jmp(falseLabel)
		return
	}

	dest := instr.Dest
	if instr.Type == ir.I64 {
		eax := c.PhysVar(ir.I32, EAX)
		edx := c.PhysVar(ir.I32, EDX)
		if dest.Kind == ir.OperandInvalid {
			dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
		}
		cur.Bin(asm.Mov, c.LoOperand(dest), eax)
		cur.Bin(asm.Mov, c.HiOperand(dest), edx)
		return
	}
	eax := c.PhysVar(instr.Type, EAX)
	d := cur.Dest(instr.Type, &dest)
	cur.Bin(asm.Mov, d, eax)
}

// TryFuseCmpxchgBranch implements spec.md §4.9: it reports whether next,
// the instruction right after the cmpxchg, is `icmp eq %dest,
// %expected`; detectFusion checks that the icmp feeds the block's
// branch, and the fused form takes the cmpxchg's ZF straight into the
// jump with no compare. No instructions are skipped over. The
// icmp's other operand must equal the cmpxchg's own expected operand
// (NextCmp->getSrc(1) == Expected in the original) — an icmp against
// some unrelated value must not be mistaken for this idiom even though
// one side happens to read the cmpxchg's Dest.
func TryFuseCmpxchgBranch(cmpxchg ir.Instruction, next ir.Instruction) bool {
	if next.Op != ir.OpIcmp || next.ICond != ir.ICondEQ {
		return false
	}
	if len(next.Operands) != 2 {
		return false
	}
	a, b := next.Operands[0], next.Operands[1]
	if a.Kind != ir.OperandVariable || b.Kind != ir.OperandVariable {
		return false
	}
	expected := cmpxchg.Operands[1]
	if expected.Kind != ir.OperandVariable {
		return false
	}
	if a.Var == cmpxchg.Dest.Var {
		return b.Var == expected.Var
	}
	if b.Var == cmpxchg.Dest.Var {
		return a.Var == expected.Var
	}
	return false
}
