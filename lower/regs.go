package lower

import (
	"x32cg/asm"
	"x32cg/ir"
)

// Shorthand for the physical registers the x86-32 ABI and instruction
// encodings pin specific operands to.
const (
	EAX = asm.EAX
	ECX = asm.ECX
	EDX = asm.EDX
	EBX = asm.EBX
	ESP = asm.ESP
	EBP = asm.EBP
)

// SpillSlot fabricates a fresh Variable that always lives in memory,
// never a register — used for bitcast's int/float reinterpretation
// trick and for spilling an SSE value to fetch it back through the
// x87 return convention, where the bit pattern must be addressable.
func (c *Context) SpillSlot(t ir.Type) ir.VarID {
	id := c.Func.NewVar(t)
	c.Func.Var(id).Weight = ir.WeightZero
	return id
}

// PhysVar fabricates a fresh temporary of type t precoloured to reg.
// Used whenever an instruction's ISA encoding pins an operand to a
// specific register (mul's edx:eax, div's dividend, shift counts in
// ecx, ...) rather than leaving the choice to the allocator.
func (c *Context) PhysVar(t ir.Type, reg ir.PhysReg) ir.Operand {
	id := c.Func.NewTemp(t)
	c.Func.Var(id).Reg = reg
	return ir.Var(id, t)
}
