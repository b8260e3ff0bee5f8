package lower

import (
	"x32cg/asm"
	"x32cg/ir"
)

// Call lowers an OpCall instruction per spec.md §4.8: classify args
// (first four vector args to xmm0..xmm3, everything else pushed
// right-to-left on an aligned parameter area), size and align the
// stack, marshal, call, fetch the return value, kill scratch registers,
// undo the adjustment.
func (c *Context) Call(instr ir.Instruction) {
	if c.failed() {
		return
	}
	c.Func.NeedsStackAlignment = true
	cur := c.cursor()

	var vecArgs, otherArgs []ir.Operand
	for _, a := range instr.CallArgs {
		if a.Type.IsVector() && len(vecArgs) < 4 {
			vecArgs = append(vecArgs, a)
		} else {
			otherArgs = append(otherArgs, a)
		}
	}

	paramBytes := int32(0)
	for _, a := range otherArgs {
		sz := int32(a.Type.SizeInBytes())
		if a.Type.IsVector() {
			paramBytes = align(paramBytes, 16)
		} else {
			paramBytes = align(paramBytes, 4)
		}
		paramBytes += sz
	}
	paramBytes = align(paramBytes, 16)

	if paramBytes > 0 {
		esp := c.PhysVar(ir.I32, ESP)
		cur.Bin(asm.Sub, esp, ir.ConstInt(ir.I32, uint64(paramBytes)))
	}

	off := int32(0)
	for _, a := range otherArgs {
		sz := int32(a.Type.SizeInBytes())
		if a.Type.IsVector() {
			off = align(off, 16)
		} else {
			off = align(off, 4)
		}
		mem := ir.Mem(a.Type, ir.NoVar, ir.NoVar, 0, off, true)
		mem.Segment = ir.SegDefault
		memWithEsp := mem
		memWithEsp.Base = espBaseVar(c)
		cur.Bin(asm.Mov, memWithEsp, c.Legalize(a, AllowRegMem|AllowImm, false, ir.NoReg))
		off += sz
	}

	xmmRegs := []ir.PhysReg{asm.XMM0, asm.XMM1, asm.XMM2, asm.XMM3}
	for i, a := range vecArgs {
		v := c.LegalizeToVar(a, xmmRegs[i])
		cur.Unary(asm.FakeUse, v)
	}

	cur.Unary(asm.Call, instr.CallTarget)

	dest := instr.Dest
	if instr.HasDest {
		switch instr.Type {
		case ir.I64:
			if dest.Kind == ir.OperandInvalid {
				dest = ir.Var(c.Func.NewTemp(ir.I64), ir.I64)
			}
			cur.Bin(asm.Mov, c.LoOperand(dest), c.PhysVar(ir.I32, EAX))
			cur.Bin(asm.Mov, c.HiOperand(dest), c.PhysVar(ir.I32, EDX))
		case ir.F32, ir.F64:
			d := cur.Dest(instr.Type, &dest)
			cur.Unary(asm.Fstp, d)
		default:
			d := cur.Dest(instr.Type, &dest)
			if instr.Type.IsVector() {
				cur.Bin(asm.Movaps, d, c.PhysVar(instr.Type, asm.XMM0))
			} else {
				cur.Bin(asm.Mov, d, c.PhysVar(instr.Type, EAX))
			}
		}
	}

	scratch := append([]ir.PhysReg{EAX, ECX, EDX}, xmmRegs...)
	for _, r := range scratch {
		cur.Unary(asm.FakeKill, c.PhysVar(ir.I32, r))
	}

	if paramBytes > 0 {
		esp := c.PhysVar(ir.I32, ESP)
		cur.Bin(asm.Add, esp, ir.ConstInt(ir.I32, uint64(paramBytes)))
	}
}

func align(n, a int32) int32 {
	if n%a == 0 {
		return n
	}
	return n + (a - n%a)
}

// espBaseVar fabricates a fresh temp precoloured to esp so a store-arg
// Memory operand can use it as Base without aliasing an existing
// variable's split/legalize state.
func espBaseVar(c *Context) ir.VarID {
	id := c.Func.NewTemp(ir.I32)
	c.Func.Var(id).Reg = ESP
	return id
}
