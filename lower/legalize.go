package lower

import (
	"x32cg/asm"
	"x32cg/ir"
)

// AllowedMask is the bitset of operand forms an instruction slot
// accepts (spec.md §4.1).
type AllowedMask uint8

const (
	AllowReg AllowedMask = 1 << iota
	AllowMem
	AllowImm
	AllowReloc
)

const AllowAny = AllowReg | AllowMem | AllowImm | AllowReloc
const AllowRegMem = AllowReg | AllowMem

// Legalize coerces op into a form permitted by mask, emitting whatever
// copies are necessary at the cursor. fixedReg, when != ir.NoReg, forces
// a Variable result precoloured to that physical register.
func (c *Context) Legalize(op ir.Operand, mask AllowedMask, allowOverlap bool, fixedReg ir.PhysReg) ir.Operand {
	cur := c.cursor()

	switch op.Kind {
	case ir.OperandMemory:
		if op.Base != ir.NoVar {
			base := c.Legalize(ir.Var(op.Base, ir.I32), AllowReg, allowOverlap, ir.NoReg)
			op.Base = base.Var
		}
		if op.Index != ir.NoVar {
			idx := c.Legalize(ir.Var(op.Index, ir.I32), AllowReg, allowOverlap, ir.NoReg)
			op.Index = idx.Var
		}
		if mask&AllowMem == 0 {
			return c.copyToReg(op, fixedReg)
		}
		return op

	case ir.OperandConstUndef:
		if op.Type.IsVector() {
			return c.zeroVector(op.Type)
		}
		return ir.ConstInt(op.Type, 0)

	case ir.OperandConstFloat:
		// Floating-point constants always live in the FP pool; they're
		// never materialised as an immediate (spec.md §4.1).
		op.PoolIndex = c.Global.InternFloat(float32(op.FloatVal))
		return op

	case ir.OperandConstDouble:
		op.PoolIndex = c.Global.InternDouble(op.FloatVal)
		return op

	case ir.OperandConstInt:
		if mask&AllowImm != 0 {
			return op
		}
		return c.copyToReg(op, fixedReg)

	case ir.OperandConstRelocatable:
		if mask&AllowReloc != 0 {
			return op
		}
		return c.copyToReg(op, fixedReg)

	case ir.OperandVariable:
		v := c.Func.Var(op.Var)
		if fixedReg != ir.NoReg && v.Reg != fixedReg {
			nv := c.Func.NewTemp(op.Type)
			nvv := c.Func.Var(nv)
			nvv.Reg = fixedReg
			nvv.Weight = v.Weight
			nvv.Preferred = op.Var
			nvv.PreferredAllowOverlap = allowOverlap
			cur.Bin(asm.Mov, ir.Var(nv, op.Type), op)
			return ir.Var(nv, op.Type)
		}
		if v.HasReg() || v.Weight == ir.WeightInfinite {
			return op
		}
		if mask&AllowMem != 0 {
			return op
		}
		return c.copyToReg(op, fixedReg)
	}
	return op
}

// LegalizeToVar forces op into a Variable operand, never memory or an
// immediate — the legalize_to_var wrapper of spec.md §4.1.
func (c *Context) LegalizeToVar(op ir.Operand, fixedReg ir.PhysReg) ir.Operand {
	return c.Legalize(op, AllowReg, false, fixedReg)
}

func (c *Context) copyToReg(op ir.Operand, fixedReg ir.PhysReg) ir.Operand {
	cur := c.cursor()
	id := c.Func.NewTemp(op.Type)
	if fixedReg != ir.NoReg {
		c.Func.Var(id).Reg = fixedReg
	}
	dst := ir.Var(id, op.Type)
	cur.Bin(asm.Mov, dst, op)
	return dst
}

func (c *Context) zeroVector(t ir.Type) ir.Operand {
	cur := c.cursor()
	id := c.Func.NewTemp(t)
	dst := ir.Var(id, t)
	cur.Bin(asm.Pxor, dst, dst)
	return dst
}
