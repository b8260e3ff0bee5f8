package lower

import "x32cg/ir"

// LoOperand and HiOperand return the 32-bit view of any i64 operand,
// splitting variables via ir.Function.SplitVar, masking/shifting
// constants, and shifting memory-operand offsets by +0/+4 respectively
// (little-endian halves). Both are idempotent (spec.md §4.3).
func (c *Context) LoOperand(op ir.Operand) ir.Operand {
	if op.Type == ir.I32 {
		return op // already a 32-bit view: lo(lo(x)) == lo(x)
	}
	switch op.Kind {
	case ir.OperandVariable:
		lo, _ := c.Func.SplitVar(op.Var)
		return ir.Var(lo, ir.I32)
	case ir.OperandConstInt:
		return ir.ConstInt(ir.I32, op.IntVal&0xffffffff)
	case ir.OperandConstRelocatable:
		return ir.ConstRelocatable(ir.I32, op.Symbol, op.Addend)
	case ir.OperandConstUndef:
		return ir.ConstUndef(ir.I32)
	case ir.OperandMemory:
		lo := op
		lo.Type = ir.I32
		return lo.WithOffset(0)
	}
	return op
}

func (c *Context) HiOperand(op ir.Operand) ir.Operand {
	switch op.Kind {
	case ir.OperandVariable:
		_, hi := c.Func.SplitVar(op.Var)
		return ir.Var(hi, ir.I32)
	case ir.OperandConstInt:
		return ir.ConstInt(ir.I32, op.IntVal>>32)
	case ir.OperandConstRelocatable:
		// A relocatable address never legally appears as an i64 value;
		// callers only reach this path for undef/zero-extended arguments.
		return ir.ConstInt(ir.I32, 0)
	case ir.OperandConstUndef:
		return ir.ConstUndef(ir.I32)
	case ir.OperandMemory:
		hi := op
		hi.Type = ir.I32
		return hi.WithOffset(4)
	}
	return op
}
