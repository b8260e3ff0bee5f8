package lower

import (
	"x32cg/asm"
	"x32cg/condcode"
	"x32cg/ir"
)

// Icmp lowers an OpIcmp instruction (spec.md §4.6): scalar 32-bit-or-
// narrower compares use the direct TableIcmp32 suffix; i64 compares
// chain a high-half compare with a low-half unsigned fallback; the
// `mov dst,1; cmp; jcc L; FakeUse(dst); mov dst,0; L:` template
// materialises the boolean unless the caller fuses it with a branch.
func (c *Context) Icmp(instr ir.Instruction) {
	if c.failed() {
		return
	}
	lhs, rhs := instr.Operands[0], instr.Operands[1]
	if lhs.Type == ir.I64 {
		c.icmp64(instr.ICond, instr.Dest, lhs, rhs)
		return
	}
	if lhs.Type.IsVector() {
		c.icmpVec(instr.ICond, instr.Type, instr.Dest, lhs, rhs)
		return
	}
	c.icmp32(instr.ICond, instr.Dest, lhs, rhs)
}

func (c *Context) icmp32(cond ir.IntCond, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	a := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
	b := c.Legalize(rhs, AllowRegMem|AllowImm, false, ir.NoReg)
	cur.Bin(asm.Cmp, a, b)
	c.materializeBool(dest, string(condcode.Icmp32(cond)))
}

// icmp64 implements the high-half-decides, low-half-breaks-ties chain:
// compare hi with the original signedness; if equal, fall through to a
// compare of lo with an always-unsigned sense (spec.md §4.6).
func (c *Context) icmp64(cond ir.IntCond, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	hiA, hiB := c.LoOperand(c.HiOperand(lhs)), c.LoOperand(c.HiOperand(rhs))
	loA, loB := c.LoOperand(lhs), c.LoOperand(rhs)

	d := cur.Dest(ir.I1, &dest)
	cur.Bin(asm.Mov, d, ir.ConstInt(ir.I1, 1))

	trueLabel := c.NextLabel("icmp64true")
	falseLabel := c.NextLabel("icmp64false")
	doneLabel := c.NextLabel("icmp64done")

	if cond == ir.ICondEQ || cond == ir.ICondNE {
		cur.Bin(asm.Cmp, hiA, hiB)
		cur.Jcc(string(condcode.Negate(condcode.Icmp32(cond))), falseLabel)
		cur.Bin(asm.Cmp, loA, loB)
		cur.Jcc(string(condcode.Negate(condcode.Icmp32(cond))), falseLabel)
		cur.Jmp(doneLabel)
	} else {
		cur.Bin(asm.Cmp, hiA, hiB)
		cur.Jcc(string(condcode.Icmp64Hi(cond)), trueLabel)
		cur.Jcc(string(condcode.Negate(condcode.Icmp64Hi(cond))), falseLabel)
		// hi equal: fall through to the unsigned low-half compare.
		cur.Bin(asm.Cmp, loA, loB)
		cur.Jcc(string(condcode.Icmp64LoUnsigned(cond)), trueLabel)
		cur.Jmp(falseLabel)

		trueB := c.NewLabelBlock(trueLabel)
		asm.NewCursor(trueB, c.Func).Jmp(doneLabel)
	}

	falseB := c.NewLabelBlock(falseLabel)
	fc := asm.NewCursor(falseB, c.Func)
	fc.Bin(asm.Mov, d, ir.ConstInt(ir.I1, 0))

	c.NewLabelBlock(doneLabel)
}

func (c *Context) icmpVec(cond ir.IntCond, t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	a := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
	b := c.Legalize(rhs, AllowRegMem, false, ir.NoReg)

	unsigned := cond == ir.ICondULT || cond == ir.ICondULE || cond == ir.ICondUGT || cond == ir.ICondUGE
	if unsigned {
		mask := highBitMask(t)
		a = c.xorWithMask(a, mask)
		b = c.xorWithMask(b, mask)
	}

	d := cur.Dest(t, &dest)
	eq := cond == ir.ICondEQ || cond == ir.ICondNE
	gt := cond == ir.ICondSGT || cond == ir.ICondUGT || cond == ir.ICondSGE || cond == ir.ICondUGE

	mn := pcmpMnemonic(t, eq)
	if eq {
		cur.Bin(asm.Movaps, d, a)
		cur.Bin(mn, d, b)
	} else if gt {
		cur.Bin(asm.Movaps, d, a)
		cur.Bin(mn, d, b)
	} else {
		cur.Bin(asm.Movaps, d, b)
		cur.Bin(mn, d, a)
	}

	if cond == ir.ICondNE || cond == ir.ICondSLE || cond == ir.ICondSGE || cond == ir.ICondULE || cond == ir.ICondUGE {
		cur.Bin(asm.Pxor, d, ir.ConstInt(t, ^uint64(0)))
	}
}

func pcmpMnemonic(t ir.Type, eq bool) string {
	switch t.ElementType() {
	case ir.I8:
		if eq {
			return asm.Pcmpeqb
		}
		return asm.Pcmpgtb
	case ir.I16:
		if eq {
			return asm.Pcmpeqw
		}
		return asm.Pcmpgtw
	default:
		if eq {
			return asm.Pcmpeqd
		}
		return asm.Pcmpgtd
	}
}

func highBitMask(t ir.Type) ir.Operand {
	switch t.ElementType() {
	case ir.I8:
		return ir.ConstInt(t, 0x8080808080808080)
	case ir.I16:
		return ir.ConstInt(t, 0x8000800080008000)
	default:
		return ir.ConstInt(t, 0x8000000080000000)
	}
}

func (c *Context) xorWithMask(op ir.Operand, mask ir.Operand) ir.Operand {
	cur := c.cursor()
	tmp := c.Func.NewTemp(op.Type)
	tv := ir.Var(tmp, op.Type)
	cur.Bin(asm.Movaps, tv, op)
	cur.Bin(asm.Pxor, tv, mask)
	return tv
}

// Fcmp lowers an OpFcmp instruction via the TableFcmp predicate (spec.md
// §4.6): one ucomiss/cmpps plus the mov-1/jcc/mov-0 template, except
// FCondONE/FCondUEQ which need a second cmpps combined with pand/por.
func (c *Context) Fcmp(instr ir.Instruction) {
	if c.failed() {
		return
	}
	lhs, rhs := instr.Operands[0], instr.Operands[1]
	if lhs.Type.IsVector() {
		c.fcmpVec(instr.FCond, instr.Type, instr.Dest, lhs, rhs)
		return
	}
	c.fcmpScalar(instr.FCond, instr.Dest, lhs, rhs)
}

func (c *Context) fcmpScalar(cond ir.FloatCond, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	a, b := lhs, rhs
	if condcode.SwapsOperands(cond) {
		a, b = rhs, lhs
	}
	ucom := asm.Ucomiss
	if lhs.Type == ir.F64 {
		ucom = asm.Ucomisd
	}
	cur.Bin(ucom, c.Legalize(a, AllowRegMem, false, ir.NoReg), c.Legalize(b, AllowRegMem, false, ir.NoReg))

	pred := condcode.Fcmp(cond)
	c.materializeBool(dest, string(pred.Suffix))
}

func (c *Context) fcmpVec(cond ir.FloatCond, t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	pred := condcode.Fcmp(cond)
	a, b := lhs, rhs
	if condcode.SwapsOperands(cond) {
		a, b = rhs, lhs
	}

	d := cur.Dest(t, &dest)
	cur.Bin(asm.Movaps, d, c.Legalize(a, AllowRegMem, false, ir.NoReg))
	cur.Tern(asm.Cmpps, d, c.Legalize(b, AllowRegMem, false, ir.NoReg), ir.ConstInt(ir.I8, uint64(pred.Imm)))

	if pred.NeedsParityFixup {
		ord := c.Func.NewTemp(t)
		ordV := ir.Var(ord, t)
		cur.Bin(asm.Movaps, ordV, c.Legalize(a, AllowRegMem, false, ir.NoReg))
		cur.Tern(asm.Cmpps, ordV, c.Legalize(b, AllowRegMem, false, ir.NoReg), ir.ConstInt(ir.I8, 7)) // ordered
		combine := asm.Pand
		if cond == ir.FCondUEQ {
			combine = asm.Por
		}
		cur.Bin(combine, d, ordV)
	}
}

// materializeBool emits the mov-1/cmp-already-emitted/jcc/FakeUse/mov-0
// template for a scalar compare whose destination is a plain i1 value
// (not fused with a following branch).
func (c *Context) materializeBool(dest ir.Operand, suffix string) {
	cur := c.cursor()
	d := cur.Dest(ir.I1, &dest)
	cur.Bin(asm.Mov, d, ir.ConstInt(ir.I1, 1))
	trueLabel := c.NextLabel("cmptrue")
	cur.Jcc(suffix, trueLabel)
	cur.Unary(asm.FakeUse, d)
	cur.Bin(asm.Mov, d, ir.ConstInt(ir.I1, 0))
	c.NewLabelBlock(trueLabel)
}

// TryFuseCompareBranch implements spec.md §4.6's fusion: if instr is an
// Icmp/Fcmp whose sole use is the immediately following conditional
// branch, the driver calls this instead of Icmp/Fcmp+materializeBool,
// eliding the dst materialisation entirely (invariant 8 of §8).
func (c *Context) TryFuseCompareBranch(cmp ir.Instruction, trueLabel, falseLabel string) {
	cur := c.cursor()
	switch cmp.Op {
	case ir.OpIcmp:
		lhs, rhs := cmp.Operands[0], cmp.Operands[1]
		a := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
		b := c.Legalize(rhs, AllowRegMem|AllowImm, false, ir.NoReg)
		cur.Bin(asm.Cmp, a, b)
		cur.Jcc(string(condcode.Icmp32(cmp.ICond)), trueLabel)
		cur.Jmp(falseLabel)
	case ir.OpFcmp:
		pred := condcode.Fcmp(cmp.FCond)
		lhs, rhs := cmp.Operands[0], cmp.Operands[1]
		a, b := lhs, rhs
		if condcode.SwapsOperands(cmp.FCond) {
			a, b = rhs, lhs
		}
		ucom := asm.Ucomiss
		if lhs.Type == ir.F64 {
			ucom = asm.Ucomisd
		}
		cur.Bin(ucom, c.Legalize(a, AllowRegMem, false, ir.NoReg), c.Legalize(b, AllowRegMem, false, ir.NoReg))
		cur.Jcc(string(pred.Suffix), trueLabel)
		cur.Jmp(falseLabel)
	}
}
