package lower

import (
	"x32cg/asm"
	"x32cg/ir"
)

// ExtractElement lowers an OpExtractElement instruction (spec.md §4.7):
// pextr{b,w,d} when SSE4.1 or the type is v8i16; pshufd+movd/movss for
// four-element vectors; otherwise a stack round-trip.
func (c *Context) ExtractElement(instr ir.Instruction) {
	if c.failed() {
		return
	}
	elemT := instr.Type
	vec := instr.Operands[0]
	idx := instr.ElementIndex
	d := c.extractLane(vec, elemT, idx)
	cur := c.cursor()
	dest := instr.Dest
	ddst := cur.Dest(elemT, &dest)
	cur.Bin(asm.Mov, ddst, d)
}

// InsertElement lowers an OpInsertElement instruction, mirroring
// ExtractElement's three paths via insertps/pinsr{b,w,d}, the
// shufps two-mask sequence, or a spill-then-store round-trip.
func (c *Context) InsertElement(instr ir.Instruction) {
	if c.failed() {
		return
	}
	vec := instr.Operands[0]
	scalar := instr.Operands[1]
	idx := instr.ElementIndex

	cur := c.cursor()
	t := instr.Type
	dest := instr.Dest
	d := cur.Dest(t, &dest)
	cur.Bin(asm.Movaps, d, c.Legalize(vec, AllowRegMem, false, ir.NoReg))
	c.insertLane(d, scalar, idx)
}

// extractLane reads lane idx of vec (type elemT) using the path
// appropriate to the element width and SSE level.
func (c *Context) extractLane(vec ir.Operand, elemT ir.Type, idx int) ir.Operand {
	cur := c.cursor()
	v := c.Legalize(vec, AllowRegMem, false, ir.NoReg)

	switch {
	case c.Flags.HasSSE41() || elemT == ir.I16:
		mn := lanePextr(elemT)
		tmp := c.Func.NewTemp(widenSmall(elemT))
		tv := ir.Var(tmp, widenSmall(elemT))
		cur.Tern(mn, tv, v, ir.ConstInt(ir.I8, uint64(idx)))
		return narrowBack(tv, elemT)

	case elemT == ir.I32 || elemT == ir.F32:
		tmp := c.Func.NewTemp(vecTypeOf(elemT))
		tv := ir.Var(tmp, vecTypeOf(elemT))
		cur.Bin(asm.Movaps, tv, v)
		if idx != 0 {
			cur.Tern(asm.Pshufd, tv, tv, ir.ConstInt(ir.I8, uint64(idx)))
		}
		dst := c.Func.NewTemp(elemT)
		dstV := ir.Var(dst, elemT)
		if elemT == ir.F32 {
			cur.Bin(asm.Movss, dstV, tv)
		} else {
			cur.Bin(asm.Movd, dstV, tv)
		}
		return dstV

	default:
		// 16-element vectors (v16i8 without SSE4.1): spill and load.
		slot := c.Func.NewTemp(vec.Type)
		slotV := ir.Var(slot, vec.Type)
		cur.Bin(asm.Movaps, slotV, v)
		mem := ir.Mem(elemT, slot, ir.NoVar, 0, int32(idx)*int32(elemT.SizeInBytes()), true)
		dst := c.Func.NewTemp(elemT)
		dstV := ir.Var(dst, elemT)
		cur.Bin(asm.Mov, dstV, mem)
		return dstV
	}
}

// insertLane writes scalar into lane idx of vec (mutated in place via
// the Variable dst already holds).
func (c *Context) insertLane(dst ir.Operand, scalar ir.Operand, idx int) {
	cur := c.cursor()
	elemT := scalar.Type
	s := c.Legalize(scalar, AllowRegMem, false, ir.NoReg)

	switch {
	case c.Flags.HasSSE41():
		mn := lanePinsr(elemT)
		cur.Tern(mn, dst, s, ir.ConstInt(ir.I8, uint64(idx)))

	case elemT == ir.F32:
		// shufps two-mask sequence (spec.md §4.7): masks indexed by
		// (index-1), hard-coded per lane.
		masks1 := [...]uint8{0x00, 0xC0, 0x80}
		masks2 := [...]uint8{0xE3, 0xC4, 0x34}
		if idx == 0 {
			cur.Bin(asm.Movss, dst, s)
			return
		}
		cur.Tern(asm.Shufps, dst, promoteToVec(s), ir.ConstInt(ir.I8, uint64(masks1[idx-1])))
		cur.Tern(asm.Shufps, dst, dst, ir.ConstInt(ir.I8, uint64(masks2[idx-1])))

	default:
		slot := c.Func.NewTemp(dst.Type)
		slotV := ir.Var(slot, dst.Type)
		cur.Bin(asm.Movaps, slotV, dst)
		mem := ir.Mem(elemT, slot, ir.NoVar, 0, int32(idx)*int32(elemT.SizeInBytes()), true)
		cur.Bin(asm.Mov, mem, s)
		cur.Bin(asm.Movaps, dst, slotV)
	}
}

func lanePextr(t ir.Type) string {
	switch t {
	case ir.I8, ir.I1:
		return asm.Pextrb
	case ir.I16:
		return asm.Pextrw
	default:
		return asm.Pextrd
	}
}

func lanePinsr(t ir.Type) string {
	switch t {
	case ir.I8, ir.I1:
		return asm.Pinsrb
	case ir.I16:
		return asm.Pinsrw
	default:
		return asm.Pinsrd
	}
}

func widenSmall(t ir.Type) ir.Type {
	if t == ir.I8 || t == ir.I1 || t == ir.I16 {
		return ir.I32
	}
	return t
}

func narrowBack(v ir.Operand, t ir.Type) ir.Operand {
	v.Type = t
	return v
}

func vecTypeOf(elemT ir.Type) ir.Type {
	if elemT == ir.F32 {
		return ir.V4F32
	}
	return ir.V4I32
}

func promoteToVec(s ir.Operand) ir.Operand {
	s.Type = ir.V4F32
	return s
}

// Select lowers OpSelect: for scalars, mov of the false value, then
// test of the condition and cmovne of the true value;
// for vectors, mask-and/andn/or (the SSE2-portable form — blendvps
// would need SSE4.1, which this path avoids so it works uniformly).
func (c *Context) Select(instr ir.Instruction) {
	if c.failed() {
		return
	}
	cur := c.cursor()
	cond, a, b := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	t := instr.Type
	dest := instr.Dest

	if !t.IsVector() {
		d := cur.Dest(t, &dest)
		cur.Bin(asm.Mov, d, c.Legalize(b, AllowRegMem, false, ir.NoReg))
		cur.Bin(asm.Test, c.Legalize(cond, AllowRegMem, false, ir.NoReg), ir.ConstInt(ir.I1, 1))
		cur.Bin(asm.Cmovne, d, c.Legalize(a, AllowRegMem, false, ir.NoReg))
		return
	}

	d := cur.Dest(t, &dest)
	maskedA := c.Func.NewTemp(t)
	maskedAV := ir.Var(maskedA, t)
	maskedB := c.Func.NewTemp(t)
	maskedBV := ir.Var(maskedB, t)

	cur.Bin(asm.Movaps, maskedAV, c.Legalize(cond, AllowRegMem, false, ir.NoReg))
	cur.Bin(asm.Pand, maskedAV, c.Legalize(a, AllowRegMem, false, ir.NoReg))

	cur.Bin(asm.Movaps, maskedBV, c.Legalize(cond, AllowRegMem, false, ir.NoReg))
	cur.Bin(asm.Pandn, maskedBV, c.Legalize(b, AllowRegMem, false, ir.NoReg))

	cur.Bin(asm.Movaps, d, maskedAV)
	cur.Bin(asm.Por, d, maskedBV)
}
