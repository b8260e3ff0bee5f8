package lower

import (
	"x32cg/asm"
	"x32cg/diag"
	"x32cg/ir"
)

var vecIntMnemonic = map[ir.Type]map[ir.ArithOp]string{
	ir.V16I8: {ir.Add: asm.Paddb, ir.Sub: asm.Psubb, ir.And: asm.Pand, ir.Or: asm.Por, ir.Xor: asm.Pxor},
	ir.V8I16: {ir.Add: asm.Paddw, ir.Sub: asm.Psubw, ir.And: asm.Pand, ir.Or: asm.Por, ir.Xor: asm.Pxor, ir.Mul: asm.Pmullw},
	ir.V4I32: {ir.Add: asm.Paddd, ir.Sub: asm.Psubd, ir.And: asm.Pand, ir.Or: asm.Por, ir.Xor: asm.Pxor},
}

var vecFPMnemonic = map[ir.ArithOp]string{
	ir.FAdd: asm.Addps, ir.FSub: asm.Subps, ir.FMul: asm.Mulps, ir.FDiv: asm.Divps,
}

// arithVec implements spec.md §4.4's vector path: native padd/psub/
// pand/por/pxor/pmull for most integer ops; a six-instruction
// pmuludq+pshufd+shufps fallback for v4i32*v4i32 without SSE4.1; other
// integer ops (shift, div, rem) and fp rem are scalarised lane-by-lane;
// fp add/sub/mul/div map to addps/subps/mulps/divps.
func (c *Context) arithVec(op ir.ArithOp, t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()

	if op.IsFloat() {
		if op == ir.FRem {
			c.scalarizeLanes(op, t, dest, lhs, rhs)
			return
		}
		mn, ok := vecFPMnemonic[op]
		if !ok {
			c.fail(diag.BadArithmeticTypes, "unsupported vector fp op %v", op)
			return
		}
		d := cur.Dest(t, &dest)
		cur.Bin(asm.Movaps, d, c.Legalize(lhs, AllowRegMem, false, ir.NoReg))
		cur.Bin(mn, d, c.Legalize(rhs, AllowRegMem, false, ir.NoReg))
		return
	}

	if op.IsShift() || op == ir.UDiv || op == ir.SDiv || op == ir.URem || op == ir.SRem {
		c.scalarizeLanes(op, t, dest, lhs, rhs)
		return
	}

	if op == ir.Mul && t == ir.V4I32 && !c.Flags.HasSSE41() {
		c.v4i32MulFallback(dest, lhs, rhs)
		return
	}

	table, ok := vecIntMnemonic[t]
	if !ok {
		c.fail(diag.BadArithmeticTypes, "unsupported vector type %v", t)
		return
	}
	mn, ok := table[op]
	if !ok {
		if op == ir.Mul && t == ir.V4I32 {
			mn = asm.Pmulld // SSE4.1 native path
		} else {
			c.fail(diag.BadArithmeticTypes, "unsupported vector arith op %v on %v", op, t)
			return
		}
	}
	d := cur.Dest(t, &dest)
	cur.Bin(asm.Movaps, d, c.Legalize(lhs, AllowRegMem, false, ir.NoReg))
	cur.Bin(mn, d, c.Legalize(rhs, AllowRegMem, false, ir.NoReg))
}

// v4i32MulFallback implements the six-instruction sequence of spec.md
// §4.4/S3: movaps, two pshufd(,0x31), two pmuludq, shufps(,0x88),
// pshufd(,0xD8) recombines the even/odd lane products.
func (c *Context) v4i32MulFallback(dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	a := c.Legalize(lhs, AllowRegMem, false, ir.NoReg)
	b := c.Legalize(rhs, AllowRegMem, false, ir.NoReg)

	tmpA := c.Func.NewTemp(ir.V4I32)
	tmpAV := ir.Var(tmpA, ir.V4I32)
	tmpB := c.Func.NewTemp(ir.V4I32)
	tmpBV := ir.Var(tmpB, ir.V4I32)
	evens := c.Func.NewTemp(ir.V4I32)
	evensV := ir.Var(evens, ir.V4I32)

	cur.Bin(asm.Movaps, evensV, a)
	cur.Bin(asm.Pmuludq, evensV, b) // lanes 0,2

	cur.Bin(asm.Movaps, tmpAV, a)
	cur.Tern(asm.Pshufd, tmpAV, tmpAV, ir.ConstInt(ir.I8, 0x31))
	cur.Bin(asm.Movaps, tmpBV, b)
	cur.Tern(asm.Pshufd, tmpBV, tmpBV, ir.ConstInt(ir.I8, 0x31))
	cur.Bin(asm.Pmuludq, tmpAV, tmpBV) // lanes 1,3, shifted into low dword of each qword

	d := cur.Dest(ir.V4I32, &dest)
	cur.Bin(asm.Movaps, d, evensV)
	cur.Tern(asm.Shufps, d, tmpAV, ir.ConstInt(ir.I8, 0x88))
	cur.Tern(asm.Pshufd, d, d, ir.ConstInt(ir.I8, 0xD8))
}

// scalarizeLanes extracts each lane, performs the scalar op, and
// inserts the result back — the fallback for vector ops with no direct
// SSE instruction (spec.md §4.4).
func (c *Context) scalarizeLanes(op ir.ArithOp, t ir.Type, dest ir.Operand, lhs, rhs ir.Operand) {
	cur := c.cursor()
	elemT := t.ElementType()
	lanes := t.Lanes()

	d := cur.Dest(t, &dest)
	cur.Bin(asm.Movaps, d, ir.ConstUndef(t))

	for i := 0; i < lanes; i++ {
		lv := c.extractLane(lhs, elemT, i)
		rv := c.extractLane(rhs, elemT, i)
		resDest := ir.Var(c.Func.NewTemp(elemT), elemT)
		if op.IsShift() {
			c.arithShift32(op, elemT, resDest, lv, rv)
		} else {
			c.arithScalar(op, elemT, resDest, lv, rv)
		}
		c.insertLane(d, resDest, i)
	}
}
