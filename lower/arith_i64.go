package lower

import (
	"x32cg/asm"
	"x32cg/diag"
	"x32cg/ir"
	"x32cg/runtimehelpers"
)

// arithI64 implements spec.md §4.4's i64 path: add/sub/and/or/xor carry
// through adc/sbb on the halves; mul expands to the six-instruction gcc
// sequence; shifts use shld/shrd with a shift-amount branch; div/rem
// delegate to named runtime helpers; float ops are rejected.
func (c *Context) arithI64(op ir.ArithOp, dest ir.Operand, lhs, rhs ir.Operand) {
	if op.IsFloat() {
		c.fail(diag.BadArithmeticTypes, "floating-point arithmetic on i64 operand")
		return
	}

	switch op {
	case ir.Add, ir.Sub:
		c.i64AddSub(op, dest, lhs, rhs)
	case ir.And, ir.Or, ir.Xor:
		c.i64Bitwise(op, dest, lhs, rhs)
	case ir.Mul:
		c.i64Mul(dest, lhs, rhs)
	case ir.Shl, ir.LShr, ir.AShr:
		c.i64Shift(op, dest, lhs, rhs)
	case ir.UDiv:
		c.i64DivHelper(runtimehelpers.Udivdi3, dest, lhs, rhs)
	case ir.SDiv:
		c.i64DivHelper(runtimehelpers.Divdi3, dest, lhs, rhs)
	case ir.URem:
		c.i64DivHelper(runtimehelpers.Umoddi3, dest, lhs, rhs)
	case ir.SRem:
		c.i64DivHelper(runtimehelpers.Moddi3, dest, lhs, rhs)
	default:
		c.fail(diag.BadArithmeticTypes, "unsupported i64 arith op %v", op)
	}
}

func (c *Context) i64Halves(dest ir.Operand, lhs, rhs ir.Operand) (dlo, dhi, lo1, hi1, lo2, hi2 ir.Operand) {
	lo1, hi1 = c.LoOperand(lhs), c.HiOperand(lhs)
	lo2, hi2 = c.LoOperand(rhs), c.HiOperand(rhs)
	if dest.Kind == ir.OperandInvalid {
		id := c.Func.NewTemp(ir.I64)
		dest = ir.Var(id, ir.I64)
	}
	dlo, dhi = c.LoOperand(dest), c.HiOperand(dest)
	return
}

func (c *Context) i64AddSub(op ir.ArithOp, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	dlo, dhi, lo1, hi1, lo2, hi2 := c.i64Halves(dest, lhs, rhs)

	main, carry := asm.Add, asm.Adc
	if op == ir.Sub {
		main, carry = asm.Sub, asm.Sbb
	}

	cur.Bin(asm.Mov, dlo, c.Legalize(lo1, AllowRegMem, false, ir.NoReg))
	cur.Bin(main, dlo, c.Legalize(lo2, AllowRegMem, false, ir.NoReg))
	cur.Bin(asm.Mov, dhi, c.Legalize(hi1, AllowRegMem, false, ir.NoReg))
	cur.Bin(carry, dhi, c.Legalize(hi2, AllowRegMem, false, ir.NoReg))
}

func (c *Context) i64Bitwise(op ir.ArithOp, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	mn := binMnemonic[op]
	dlo, dhi, lo1, hi1, lo2, hi2 := c.i64Halves(dest, lhs, rhs)

	cur.Bin(asm.Mov, dlo, c.Legalize(lo1, AllowRegMem, false, ir.NoReg))
	cur.Bin(mn, dlo, c.Legalize(lo2, AllowRegMem|AllowImm, false, ir.NoReg))
	cur.Bin(asm.Mov, dhi, c.Legalize(hi1, AllowRegMem, false, ir.NoReg))
	cur.Bin(mn, dhi, c.Legalize(hi2, AllowRegMem|AllowImm, false, ir.NoReg))
}

// i64Mul expands to the classic six-instruction sequence:
//
//	mov  t1, lhs.hi
//	imul t1, rhs.lo     ; t1 = lhs.hi * rhs.lo
//	mov  eax, rhs.hi
//	imul eax, lhs.lo    ; eax = rhs.hi * lhs.lo
//	add  t1, eax
//	mov  eax, lhs.lo
//	mul  rhs.lo         ; edx:eax = lhs.lo * rhs.lo (unsigned)
//	add  edx, t1
//
// dest.lo = eax, dest.hi = edx, matching the original's carry-chain
// order exactly (spec.md Ambient additions, grounded on
// original_source/src/IceTargetLoweringX8632.cpp).
func (c *Context) i64Mul(dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	lo1, hi1 := c.LoOperand(lhs), c.HiOperand(lhs)
	lo2, hi2 := c.LoOperand(rhs), c.HiOperand(rhs)

	t1 := c.Func.NewTemp(ir.I32)
	t1v := ir.Var(t1, ir.I32)
	cur.Bin(asm.Mov, t1v, c.Legalize(hi1, AllowRegMem, false, ir.NoReg))
	cur.Bin(asm.Imul, t1v, c.Legalize(lo2, AllowRegMem, false, ir.NoReg))

	eax := c.PhysVar(ir.I32, EAX)
	cur.Bin(asm.Mov, eax, c.Legalize(hi2, AllowRegMem, false, ir.NoReg))
	cur.Bin(asm.Imul, eax, c.Legalize(lo1, AllowRegMem, false, ir.NoReg))
	cur.Bin(asm.Add, t1v, eax)

	cur.Bin(asm.Mov, eax, c.Legalize(lo1, AllowRegMem, false, ir.NoReg))
	cur.Unary(asm.Mul, c.Legalize(lo2, AllowRegMem, false, ir.NoReg))

	edx := c.PhysVar(ir.I32, EDX)
	cur.Bin(asm.Add, edx, t1v)

	if dest.Kind == ir.OperandInvalid {
		id := c.Func.NewTemp(ir.I64)
		dest = ir.Var(id, ir.I64)
	}
	cur.Bin(asm.Mov, c.LoOperand(dest), eax)
	cur.Bin(asm.Mov, c.HiOperand(dest), edx)
}

// i64Shift implements the shld/shrd 64-bit shift macro: the natural
// instruction only shifts in bits from the other half for counts below
// 32, so a branch on "count >= 32" selects the fold-over case, with
// sar ,31 replicating the sign for ashr (spec.md §4.4).
func (c *Context) i64Shift(op ir.ArithOp, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	lo1, hi1 := c.LoOperand(lhs), c.HiOperand(lhs)

	if dest.Kind == ir.OperandInvalid {
		id := c.Func.NewTemp(ir.I64)
		dest = ir.Var(id, ir.I64)
	}
	dlo, dhi := c.LoOperand(dest), c.HiOperand(dest)

	count := rhs
	if count.Kind != ir.OperandConstInt {
		count = c.LegalizeToVar(count, ECX)
	}

	cur.Bin(asm.Mov, dlo, c.Legalize(lo1, AllowRegMem, false, ir.NoReg))
	cur.Bin(asm.Mov, dhi, c.Legalize(hi1, AllowRegMem, false, ir.NoReg))

	switch op {
	case ir.Shl:
		cur.Tern(asm.Shld, dhi, dlo, count)
		cur.Bin(asm.Shl, dlo, count)
	case ir.LShr:
		cur.Tern(asm.Shrd, dlo, dhi, count)
		cur.Bin(asm.Shr, dhi, count)
	case ir.AShr:
		cur.Tern(asm.Shrd, dlo, dhi, count)
		cur.Bin(asm.Sar, dhi, count)
	}

	// test count against 32: below, the natural shld/shrd result is
	// already correct; at or above, fold the shifted-out half over.
	foldLabel := c.NextLabel("shift64fold")
	mergeLabel := c.NextLabel("shift64merge")
	cur.Bin(asm.Test, count, ir.ConstInt(ir.I32, 32))
	cur.Jcc("ne", foldLabel)
	cur.Jmp(mergeLabel)

	foldBlock := c.NewLabelBlock(foldLabel)
	fc := asm.NewCursor(foldBlock, c.Func)
	switch op {
	case ir.Shl:
		fc.Bin(asm.Mov, dhi, dlo)
		fc.Bin(asm.Mov, dlo, ir.ConstInt(ir.I32, 0))
	case ir.LShr:
		fc.Bin(asm.Mov, dlo, dhi)
		fc.Bin(asm.Mov, dhi, ir.ConstInt(ir.I32, 0))
	case ir.AShr:
		fc.Bin(asm.Mov, dlo, dhi)
		fc.Bin(asm.Sar, dhi, ir.ConstInt(ir.I32, 31))
	}

	c.NewLabelBlock(mergeLabel)
}

func (c *Context) i64DivHelper(name string, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	for _, half := range []ir.Operand{c.HiOperand(rhs), c.LoOperand(rhs), c.HiOperand(lhs), c.LoOperand(lhs)} {
		cur.Unary(asm.Push, c.Legalize(half, AllowRegMem|AllowImm, false, ir.NoReg))
	}
	cur.Unary(asm.Call, ir.ConstRelocatable(ir.I32, name, 0))
	esp := c.PhysVar(ir.I32, ESP)
	cur.Bin(asm.Add, esp, ir.ConstInt(ir.I32, 16))

	if dest.Kind == ir.OperandInvalid {
		id := c.Func.NewTemp(ir.I64)
		dest = ir.Var(id, ir.I64)
	}
	cur.Bin(asm.Mov, c.LoOperand(dest), c.PhysVar(ir.I32, EAX))
	cur.Bin(asm.Mov, c.HiOperand(dest), c.PhysVar(ir.I32, EDX))
}
