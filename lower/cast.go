package lower

import (
	"x32cg/asm"
	"x32cg/diag"
	"x32cg/ir"
	"x32cg/runtimehelpers"
)

// Cast lowers an OpCast instruction across the ten CastOp variants of
// spec.md §4.5.
func (c *Context) Cast(instr ir.Instruction) {
	if c.failed() {
		return
	}
	op := ir.CastOp(instr.SubOp)
	src := instr.Operands[0]
	dstT := instr.Type

	switch op {
	case ir.Sext:
		c.castSext(dstT, instr.Dest, src)
	case ir.Zext:
		c.castZext(dstT, instr.Dest, src)
	case ir.Trunc:
		c.castTrunc(dstT, instr.Dest, src)
	case ir.FPTrunc, ir.FPExt:
		c.castFPConv(op, dstT, instr.Dest, src)
	case ir.FPToSI, ir.FPToUI:
		c.castFPToInt(op, dstT, instr.Dest, src)
	case ir.SIToFP, ir.UIToFP:
		c.castIntToFP(op, dstT, instr.Dest, src)
	case ir.Bitcast:
		c.castBitcast(dstT, instr.Dest, src)
	default:
		c.fail(diag.UnsupportedCast, "unknown cast op %v", op)
	}
}

func (c *Context) castSext(dstT ir.Type, dest ir.Operand, src ir.Operand) {
	cur := c.cursor()

	if dstT.IsVector() {
		d := cur.Dest(dstT, &dest)
		cur.Bin(asm.Movaps, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		if dstT == ir.V16I8 {
			// keep bit 0 of each byte, then compare greater than zero
			cur.Bin(asm.Pand, d, ir.ConstInt(dstT, 0x0101010101010101))
			cur.Bin(asm.Pcmpgtb, d, c.zeroVector(dstT))
			return
		}
		bits := uint64(dstT.ElementType().SizeInBytes()*8 - 1)
		shl, sar := vectorShiftMnemonics(dstT.ElementType())
		cur.Bin(shl, d, ir.ConstInt(ir.I8, bits))
		cur.Bin(sar, d, ir.ConstInt(ir.I8, bits))
		return
	}

	if dstT == ir.I64 {
		if dest.Kind == ir.OperandInvalid {
			dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
		}
		lo := c.LoOperand(dest)
		hi := c.HiOperand(dest)
		cur.Bin(asm.Mov, lo, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		if src.Type != ir.I32 {
			cur.Bin(asm.Movsx, lo, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		}
		cur.Bin(asm.Mov, hi, lo)
		cur.Bin(asm.Sar, hi, ir.ConstInt(ir.I8, 31))
		return
	}

	if src.Type == ir.I1 {
		d := cur.Dest(dstT, &dest)
		cur.Bin(asm.Movzx, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		bits := uint64(dstT.SizeInBytes()*8 - 1)
		cur.Bin(asm.Shl, d, ir.ConstInt(ir.I8, bits))
		cur.Bin(asm.Sar, d, ir.ConstInt(ir.I8, bits))
		return
	}

	d := cur.Dest(dstT, &dest)
	cur.Bin(asm.Movsx, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
}

func (c *Context) castZext(dstT ir.Type, dest ir.Operand, src ir.Operand) {
	cur := c.cursor()

	if dstT.IsVector() {
		d := cur.Dest(dstT, &dest)
		cur.Bin(asm.Movaps, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		cur.Bin(asm.Pand, d, onesMask(dstT))
		return
	}

	if dstT == ir.I64 {
		if dest.Kind == ir.OperandInvalid {
			dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
		}
		lo := c.LoOperand(dest)
		hi := c.HiOperand(dest)
		if src.Type == ir.I32 {
			cur.Bin(asm.Mov, lo, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		} else {
			cur.Bin(asm.Movzx, lo, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		}
		cur.Bin(asm.Mov, hi, ir.ConstInt(ir.I32, 0))
		return
	}

	if src.Type == ir.I1 {
		d := cur.Dest(dstT, &dest)
		cur.Bin(asm.Movzx, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		cur.Bin(asm.And, d, ir.ConstInt(dstT, 1))
		return
	}

	d := cur.Dest(dstT, &dest)
	cur.Bin(asm.Movzx, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
}

func (c *Context) castTrunc(dstT ir.Type, dest ir.Operand, src ir.Operand) {
	cur := c.cursor()
	s := src
	if src.Type == ir.I64 {
		s = c.LoOperand(src)
	}
	d := cur.Dest(dstT, &dest)
	cur.Bin(asm.Mov, d, c.Legalize(s, AllowRegMem, false, ir.NoReg))
	if dstT == ir.I1 {
		cur.Bin(asm.And, d, ir.ConstInt(ir.I1, 1))
	}
}

func (c *Context) castFPConv(op ir.CastOp, dstT ir.Type, dest ir.Operand, src ir.Operand) {
	cur := c.cursor()
	mn := asm.Cvtss2sd
	if op == ir.FPTrunc {
		mn = asm.Cvtsd2ss
	}
	d := cur.Dest(dstT, &dest)
	cur.Bin(mn, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
}

func (c *Context) castFPToInt(op ir.CastOp, dstT ir.Type, dest ir.Operand, src ir.Operand) {
	cur := c.cursor()
	unsigned := op == ir.FPToUI

	if src.Type == ir.V4F32 && dstT == ir.V4I32 {
		d := cur.Dest(dstT, &dest)
		if unsigned {
			c.callHelper(runtimehelpers.SzFPToUIV4F32, []ir.Operand{src}, dstT, &dest)
			return
		}
		cur.Bin(asm.Cvttps2dq, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		return
	}

	if dstT == ir.I64 {
		helper := runtimehelpers.CvtFToSI64
		if src.Type == ir.F64 {
			helper = runtimehelpers.CvtDToSI64
		}
		if unsigned {
			if src.Type == ir.F64 {
				helper = runtimehelpers.CvtDToUI64
			} else {
				helper = runtimehelpers.CvtFToUI64
			}
		}
		c.callHelperI64(helper, src, dest)
		return
	}

	if unsigned {
		helper := runtimehelpers.CvtFToUI32
		if src.Type == ir.F64 {
			helper = runtimehelpers.CvtDToUI32
		}
		c.callHelper(helper, []ir.Operand{src}, ir.I32, &dest)
		return
	}

	tmp := c.Func.NewTemp(ir.I32)
	tmpV := ir.Var(tmp, ir.I32)
	cur.Bin(asm.Cvttss2si, tmpV, c.Legalize(src, AllowRegMem, false, ir.NoReg))
	d := cur.Dest(dstT, &dest)
	if dstT == ir.I1 {
		cur.Bin(asm.Mov, d, tmpV)
		cur.Bin(asm.And, d, ir.ConstInt(ir.I1, 1))
	} else {
		cur.Bin(asm.Mov, d, tmpV)
	}
}

func (c *Context) castIntToFP(op ir.CastOp, dstT ir.Type, dest ir.Operand, src ir.Operand) {
	cur := c.cursor()
	unsigned := op == ir.UIToFP

	if src.Type == ir.V4I32 && dstT == ir.V4F32 {
		d := cur.Dest(dstT, &dest)
		if unsigned {
			c.callHelper(runtimehelpers.SzUIToFPV4I32, []ir.Operand{src}, dstT, &dest)
			return
		}
		cur.Bin(asm.Cvtdq2ps, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		return
	}

	if src.Type == ir.I64 {
		helper := runtimehelpers.CvtSI64ToF
		if dstT == ir.F64 {
			helper = runtimehelpers.CvtSI64ToD
		}
		if unsigned {
			if dstT == ir.F64 {
				helper = runtimehelpers.CvtUI64ToD
			} else {
				helper = runtimehelpers.CvtUI64ToF
			}
		}
		c.callHelperFromI64(helper, src, dstT, dest)
		return
	}

	if unsigned {
		helper := runtimehelpers.CvtUI32ToF
		if dstT == ir.F64 {
			helper = runtimehelpers.CvtUI32ToD
		}
		c.callHelper(helper, []ir.Operand{src}, dstT, &dest)
		return
	}

	mn := asm.Cvtsi2ss
	if dstT == ir.F64 {
		mn = asm.Cvtsi2sd
	}
	d := cur.Dest(dstT, &dest)
	cur.Bin(mn, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
}

// castBitcast: same-type is a no-op; vector<->vector is a movaps;
// i32<->f32 and i64<->f64 route through a spill slot (spec.md §4.5).
func (c *Context) castBitcast(dstT ir.Type, dest ir.Operand, src ir.Operand) {
	cur := c.cursor()

	if dstT.IsVector() && src.Type.IsVector() {
		d := cur.Dest(dstT, &dest)
		cur.Bin(asm.Movaps, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		return
	}

	switch {
	case dstT == ir.F32 && src.Type == ir.I32, dstT == ir.I32 && src.Type == ir.F32:
		slot := c.SpillSlot(ir.I32)
		slotV := ir.Var(slot, src.Type)
		cur.Bin(asm.Mov, slotV, c.Legalize(src, AllowRegMem, false, ir.NoReg))
		d := cur.Dest(dstT, &dest)
		reinterp := slotV
		reinterp.Type = dstT
		cur.Bin(asm.Mov, d, reinterp)

	case dstT == ir.F64 && src.Type == ir.I64, dstT == ir.I64 && src.Type == ir.F64:
		slot := c.SpillSlot(ir.I64)
		slotV := ir.Var(slot, ir.I64)
		if src.Type == ir.I64 {
			cur.Bin(asm.Mov, c.LoOperand(slotV), c.LoOperand(src))
			cur.Bin(asm.Mov, c.HiOperand(slotV), c.HiOperand(src))
			d := cur.Dest(dstT, &dest)
			reinterp := slotV
			reinterp.Type = ir.F64
			cur.Bin(asm.Movsd, d, reinterp)
		} else {
			reinterp := slotV
			reinterp.Type = ir.F64
			cur.Bin(asm.Movsd, reinterp, c.Legalize(src, AllowRegMem, false, ir.NoReg))
			if dest.Kind == ir.OperandInvalid {
				dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
			}
			cur.Bin(asm.Mov, c.LoOperand(dest), c.LoOperand(slotV))
			cur.Bin(asm.Mov, c.HiOperand(dest), c.HiOperand(slotV))
		}

	case dstT == ir.V8I1 && src.Type == ir.I8:
		c.callHelper(runtimehelpers.SzBitcastI8ToV8I1, []ir.Operand{src}, dstT, &dest)
	case dstT == ir.I8 && src.Type == ir.V8I1:
		c.callHelper(runtimehelpers.SzBitcastV8I1ToI8, []ir.Operand{src}, dstT, &dest)
	case dstT == ir.V16I1 && src.Type == ir.I16:
		c.callHelper(runtimehelpers.SzBitcastI16ToV16I1, []ir.Operand{src}, dstT, &dest)
	case dstT == ir.I16 && src.Type == ir.V16I1:
		c.callHelper(runtimehelpers.SzBitcastV16I1ToI16, []ir.Operand{src}, dstT, &dest)

	default:
		d := cur.Dest(dstT, &dest)
		cur.Bin(asm.Mov, d, c.Legalize(src, AllowRegMem, false, ir.NoReg))
	}
}

func (c *Context) callHelperI64(name string, src ir.Operand, dest ir.Operand) {
	cur := c.cursor()
	cur.Unary(asm.Push, c.Legalize(src, AllowRegMem|AllowImm, false, ir.NoReg))
	cur.Unary(asm.Call, ir.ConstRelocatable(ir.I32, name, 0))
	esp := c.PhysVar(ir.I32, ESP)
	cur.Bin(asm.Add, esp, ir.ConstInt(ir.I32, 4))
	if dest.Kind == ir.OperandInvalid {
		dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
	}
	cur.Bin(asm.Mov, c.LoOperand(dest), c.PhysVar(ir.I32, EAX))
	cur.Bin(asm.Mov, c.HiOperand(dest), c.PhysVar(ir.I32, EDX))
}

func (c *Context) callHelperFromI64(name string, src ir.Operand, dstT ir.Type, dest ir.Operand) {
	cur := c.cursor()
	cur.Unary(asm.Push, c.Legalize(c.HiOperand(src), AllowRegMem|AllowImm, false, ir.NoReg))
	cur.Unary(asm.Push, c.Legalize(c.LoOperand(src), AllowRegMem|AllowImm, false, ir.NoReg))
	cur.Unary(asm.Call, ir.ConstRelocatable(ir.I32, name, 0))
	esp := c.PhysVar(ir.I32, ESP)
	cur.Bin(asm.Add, esp, ir.ConstInt(ir.I32, 8))
	d := cur.Dest(dstT, &dest)
	_ = d // fp return arrives via st(0); handled by the caller's Ret path
}

// vectorShiftMnemonics picks the packed shift-left/arithmetic-shift-
// right mnemonic pair for a vector's element type; v16i8 has no native
// packed shift, so its sext path is handled via pcmpgt instead in
// practice, but this keeps the table total for the 16/32-bit lanes
// that do have one.
func vectorShiftMnemonics(elemT ir.Type) (shl, sar string) {
	if elemT == ir.I16 {
		return asm.Psllw, asm.Psraw
	}
	return asm.Pslld, asm.Psrad
}

func onesMask(t ir.Type) ir.Operand {
	return ir.ConstInt(t, ^uint64(0))
}
