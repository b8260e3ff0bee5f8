package lower

import (
	"x32cg/asm"
	"x32cg/ir"
)

// Alloca lowers an OpAlloca instruction: a fresh frame-resident slot
// variable of AllocaSize bytes is created (never register-assigned,
// laid out by the frame builder's region 8), and the instruction's
// destination receives its address via lea (spec.md §4.11).
func (c *Context) Alloca(instr ir.Instruction) {
	if c.failed() {
		return
	}
	cur := c.cursor()
	size := instr.Operands[0]

	slot := c.Func.NewVar(ir.I32)
	sv := c.Func.Var(slot)
	sv.IsAlloca = true
	sv.Weight = ir.WeightZero
	if size.Kind == ir.OperandConstInt {
		sv.AllocaSize = int32(size.IntVal)
	} else {
		sv.AllocaSize = 4
	}

	dest := instr.Dest
	d := cur.Dest(ir.I32, &dest)
	mem := ir.Mem(ir.I32, slot, ir.NoVar, 0, 0, false)
	cur.Bin(asm.Lea, d, mem)
}

// Assign lowers a plain copy (OpAssign): the register allocator and
// address-mode optimiser see straight-line def chains through these, so
// the lowering itself is a bare mov (i64 splits into two).
func (c *Context) Assign(instr ir.Instruction) {
	if c.failed() {
		return
	}
	cur := c.cursor()
	src := instr.Operands[0]
	dest := instr.Dest

	if instr.Type == ir.I64 {
		if dest.Kind == ir.OperandInvalid {
			dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
		}
		cur.Bin(asm.Mov, c.LoOperand(dest), c.Legalize(c.LoOperand(src), AllowRegMem|AllowImm, false, ir.NoReg))
		cur.Bin(asm.Mov, c.HiOperand(dest), c.Legalize(c.HiOperand(src), AllowRegMem|AllowImm, false, ir.NoReg))
		return
	}

	d := cur.Dest(instr.Type, &dest)
	mn := asm.Mov
	if instr.Type.IsVector() {
		mn = asm.Movaps
	}
	cur.Bin(mn, d, c.Legalize(src, AllowRegMem|AllowImm, false, ir.NoReg))
}

// Load lowers an OpLoad: the address-mode optimiser folds the pointer
// operand's definition chain into a single [base+index*scale+offset]
// memory operand before the read (spec.md §4.10). The folded operand
// still goes through Legalize so a base/index that isn't already
// register-resident gets copied into one first — otherwise a stack-
// resident pointer variable would read as its own slot address rather
// than the value stored there.
func (c *Context) Load(instr ir.Instruction) {
	if c.failed() {
		return
	}
	cur := c.cursor()
	mode := c.Folder.Fold(instr.Operands[0])
	mem := c.Legalize(mode.ToOperand(instr.Type), AllowMem, false, ir.NoReg)
	dest := instr.Dest

	if instr.Type == ir.I64 {
		if dest.Kind == ir.OperandInvalid {
			dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
		}
		loMem, hiMem := mem, mem
		loMem.Offset += 0
		hiMem.Offset += 4
		cur.Bin(asm.Mov, c.LoOperand(dest), loMem)
		cur.Bin(asm.Mov, c.HiOperand(dest), hiMem)
		return
	}

	d := cur.Dest(instr.Type, &dest)
	mn := asm.Mov
	if instr.Type.IsVector() {
		mn = asm.Movaps
	} else if instr.Type == ir.F32 {
		mn = asm.Movss
	} else if instr.Type == ir.F64 {
		mn = asm.Movsd
	}
	cur.Bin(mn, d, mem)
}

// Store lowers an OpStore, folding the destination address the same
// way as Load.
func (c *Context) Store(instr ir.Instruction) {
	if c.failed() {
		return
	}
	cur := c.cursor()
	addr, val := instr.Operands[0], instr.Operands[1]
	mode := c.Folder.Fold(addr)
	mem := c.Legalize(mode.ToOperand(val.Type), AllowMem, false, ir.NoReg)

	if val.Type == ir.I64 {
		loMem, hiMem := mem, mem
		loMem.Offset += 0
		hiMem.Offset += 4
		cur.Bin(asm.Mov, loMem, c.Legalize(c.LoOperand(val), AllowRegMem|AllowImm, false, ir.NoReg))
		cur.Bin(asm.Mov, hiMem, c.Legalize(c.HiOperand(val), AllowRegMem|AllowImm, false, ir.NoReg))
		return
	}

	mn := asm.Mov
	if val.Type.IsVector() {
		mn = asm.Movaps
	} else if val.Type == ir.F32 {
		mn = asm.Movss
	} else if val.Type == ir.F64 {
		mn = asm.Movsd
	}
	cur.Bin(mn, mem, c.Legalize(val, AllowRegMem|AllowImm, false, ir.NoReg))
}
