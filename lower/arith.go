package lower

import (
	"x32cg/asm"
	"x32cg/diag"
	"x32cg/ir"
	"x32cg/runtimehelpers"
)

// Arith lowers an OpArith instruction, dispatching across the three
// axes of spec.md §4.4: i64, vector, or scalar.
func (c *Context) Arith(instr ir.Instruction) {
	if c.failed() {
		return
	}
	op := ir.ArithOp(instr.SubOp)
	t := instr.Type
	lhs, rhs := instr.Operands[0], instr.Operands[1]

	switch {
	case t == ir.I64:
		c.arithI64(op, instr.Dest, lhs, rhs)
	case t.IsVector():
		c.arithVec(op, t, instr.Dest, lhs, rhs)
	default:
		c.arithScalar(op, t, instr.Dest, lhs, rhs)
	}
}

var binMnemonic = map[ir.ArithOp]string{
	ir.Add: asm.Add, ir.Sub: asm.Sub, ir.And: asm.And, ir.Or: asm.Or, ir.Xor: asm.Xor,
}

var fpBinMnemonic32 = map[ir.ArithOp]string{
	ir.FAdd: asm.Addss, ir.FSub: asm.Subss, ir.FMul: asm.Mulss, ir.FDiv: asm.Divss,
}

var fpBinMnemonic64 = map[ir.ArithOp]string{
	ir.FAdd: asm.Addsd, ir.FSub: asm.Subsd, ir.FMul: asm.Mulsd, ir.FDiv: asm.Divsd,
}

// arithScalar implements spec.md §4.4's scalar path: standard ops map
// directly; mul pins eax for i8; shifts require the count in ecx or a
// constant; div/idiv zero/sign-extend and fetch results from edx:eax;
// fp rem calls fmod/fmodf.
func (c *Context) arithScalar(op ir.ArithOp, t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()

	if op.IsFloat() {
		if op == ir.FRem {
			helper := runtimehelpers.Fmodf
			if t == ir.F64 {
				helper = runtimehelpers.Fmod
			}
			c.callHelper(helper, []ir.Operand{lhs, rhs}, t, &dest)
			return
		}
		table := fpBinMnemonic32
		if t == ir.F64 {
			table = fpBinMnemonic64
		}
		mn, ok := table[op]
		if !ok {
			c.fail(diag.BadArithmeticTypes, "unsupported scalar fp arith op %v", op)
			return
		}
		d := cur.Dest(t, &dest)
		src := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
		cur.Bin(asm.Mov, d, src)
		cur.Bin(mn, d, c.Legalize(rhs, AllowRegMem, false, ir.NoReg))
		return
	}

	if op.IsShift() {
		c.arithShift32(op, t, dest, lhs, rhs)
		return
	}

	switch op {
	case ir.Add, ir.Sub, ir.And, ir.Or, ir.Xor:
		mn := binMnemonic[op]
		d := cur.Dest(t, &dest)
		a := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
		cur.Bin(asm.Mov, d, a)
		b := c.Legalize(rhs, AllowRegMem|AllowImm, false, ir.NoReg)
		cur.Bin(mn, d, b)

	case ir.Mul:
		c.arithMul32(t, dest, lhs, rhs)

	case ir.UDiv, ir.SDiv, ir.URem, ir.SRem:
		c.arithDiv32(op, t, dest, lhs, rhs)

	default:
		c.fail(diag.BadArithmeticTypes, "unsupported scalar arith op %v on %v", op, t)
	}
}

// arithMul32 pins the destination to eax for i8 (the encoding only
// offers a one-operand imul/mul form there); wider types use the
// three-operand imul (spec.md §4.4).
func (c *Context) arithMul32(t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	if t == ir.I8 {
		a := c.PhysVar(ir.I8, EAX)
		cur.Bin(asm.Mov, a, c.Legalize(lhs, AllowRegMem, false, ir.NoReg))
		cur.Unary(asm.Imul, c.Legalize(rhs, AllowRegMem, false, ir.NoReg))
		d := cur.Dest(t, &dest)
		cur.Bin(asm.Mov, d, c.PhysVar(ir.I8, EAX))
		return
	}
	d := cur.Dest(t, &dest)
	a := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
	cur.Bin(asm.Mov, d, a)
	b := c.Legalize(rhs, AllowRegMem|AllowImm, false, ir.NoReg)
	cur.Tern(asm.Imul, d, d, b)
}

// arithShift32 requires the shift count to be either a constant or
// legalised into ecx (spec.md §4.4, invariant 4 of §8).
func (c *Context) arithShift32(op ir.ArithOp, t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	mn := map[ir.ArithOp]string{ir.Shl: asm.Shl, ir.LShr: asm.Shr, ir.AShr: asm.Sar}[op]
	d := cur.Dest(t, &dest)
	a := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
	cur.Bin(asm.Mov, d, a)

	count := rhs
	if count.Kind != ir.OperandConstInt {
		count = c.LegalizeToVar(count, ECX)
	}
	cur.Bin(mn, d, count)
}

// arithDiv32 implements the edx:eax convention: cdq sign-extends the
// dividend before idiv, a mov of 0 zeroes edx before div, and the
// quotient/remainder are read back
// out of eax/edx (spec.md §8 invariant 3). 8-bit division is widened
// through ax rather than modelling the ah/al split directly.
// arithDiv32 widens i8 operands through i16 rather than modelling ah
// directly: an 8-bit idiv/div leaves its remainder in ah, which the
// Variable/register model here has no way to name, so an i8 dividend
// and divisor both go through the 16-bit form instead, where quotient
// and remainder land in ax/dx exactly like the wider cases.
func (c *Context) arithDiv32(op ir.ArithOp, t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	signed := op == ir.SDiv || op == ir.SRem
	wantRem := op == ir.URem || op == ir.SRem

	widenT := t
	if t == ir.I8 {
		widenT = ir.I16
	}

	extendMn := asm.Movzx
	if signed {
		extendMn = asm.Movsx
	}

	a := c.PhysVar(widenT, EAX)
	if t == ir.I8 {
		cur.Bin(extendMn, a, c.Legalize(lhs, AllowRegMem, false, ir.NoReg))
	} else {
		cur.Bin(asm.Mov, a, c.Legalize(lhs, AllowRegMem, false, ir.NoReg))
	}

	var b ir.Operand
	if t == ir.I8 {
		bTmp := c.Func.NewTemp(ir.I16)
		bv := ir.Var(bTmp, ir.I16)
		cur.Bin(extendMn, bv, c.Legalize(rhs, AllowRegMem, false, ir.NoReg))
		b = bv
	} else {
		b = c.Legalize(rhs, AllowRegMem, false, ir.NoReg)
	}

	if widenT == ir.I32 {
		edx := c.PhysVar(ir.I32, EDX)
		if signed {
			cur.Nullary(asm.Cdq)
		} else {
			cur.Bin(asm.Mov, edx, ir.ConstInt(ir.I32, 0))
		}
	} else {
		edx := c.PhysVar(ir.I16, EDX)
		if signed {
			cur.Nullary(asm.Cwd)
		} else {
			cur.Bin(asm.Mov, edx, ir.ConstInt(ir.I16, 0))
		}
	}

	divMn := asm.Div
	if signed {
		divMn = asm.Idiv
	}
	cur.Unary(divMn, b)

	resultReg := EAX
	if wantRem {
		resultReg = EDX
	}
	d := cur.Dest(t, &dest)
	cur.Bin(asm.Mov, d, c.PhysVar(t, resultReg))
}

func (c *Context) callHelper(name string, args []ir.Operand, retType ir.Type, dest *ir.Operand) {
	cur := c.cursor()
	for i := len(args) - 1; i >= 0; i-- {
		cur.Unary(asm.Push, c.Legalize(args[i], AllowRegMem|AllowImm, false, ir.NoReg))
	}
	cur.Unary(asm.Call, ir.ConstRelocatable(ir.I32, name, 0))
	if len(args) > 0 {
		esp := c.PhysVar(ir.I32, ESP)
		cur.Bin(asm.Add, esp, ir.ConstInt(ir.I32, uint64(4*len(args))))
	}
	d := cur.Dest(retType, dest)
	cur.Bin(asm.Mov, d, c.PhysVar(retType, EAX))
}
