package lower

import (
	"x32cg/asm"
	"x32cg/diag"
	"x32cg/ir"
	"x32cg/options"
)

// LowerFunction lowers f in isolation, with its own private FP constant
// pool. A driver lowering many functions into one translation unit
// should use LowerFunctionWithGlobal instead, so every function's float
// constants share one pool (spec.md §5).
func LowerFunction(f *ir.Function, flags options.Flags) *asm.MachineFunction {
	return LowerFunctionWithGlobal(f, flags, ir.NewGlobalContext())
}

// LowerFunctionWithGlobal walks f's blocks in order, dispatching each
// instruction to its opcode-specific lowering routine, then resolves
// phi assignments into predecessor-block copies and lowers each block's
// terminator, applying the icmp/fcmp+br and cmpxchg+br fusions of
// spec.md §4.6/§4.9 where the trailing instructions match. g is the FP
// constant pool this lowering run interns float/double immediates into
// — shared across goroutines when a driver lowers several functions
// concurrently (spec.md §5), mutex-guarded by GlobalContext itself.
func LowerFunctionWithGlobal(f *ir.Function, flags options.Flags, g *ir.GlobalContext) *asm.MachineFunction {
	mf := asm.NewMachineFunction(f.Name)
	byID := make(map[ir.BlockID]*asm.MachineBlock, len(f.Blocks))
	for _, b := range f.Blocks {
		mb := mf.NewBlock(b.ID, b.Label)
		mb.Out = b.Out
		byID[b.ID] = mb
	}

	type phiCopy struct {
		dest ir.Operand
		pred ir.BlockID
		val  ir.Operand
	}
	var phiCopies []phiCopy

	for _, b := range f.Blocks {
		mb := byID[b.ID]
		c := NewContextWithGlobal(f, b, mf, mb, flags, g)

		fk, fStart := detectFusion(b)

		seenNonPhi := false
		for i, instr := range b.Instrs {
			if f.HasError {
				break
			}
			c.instrIdx = i

			if instr.Op == ir.OpPhi {
				if seenNonPhi {
					c.fail(diag.PhiInRegularStream, "phi after non-phi instruction in block %s", b.Label)
					continue
				}
				for k, pb := range instr.PhiBlocks {
					phiCopies = append(phiCopies, phiCopy{dest: instr.Dest, pred: pb, val: instr.PhiVals[k]})
				}
				continue
			}
			seenNonPhi = true

			if fk == fusionCompareBranch && i == fStart {
				continue // lowered at the terminator below
			}
			if fk == fusionCmpxchgBranch && (i == fStart || i == fStart+1) {
				continue
			}

			c.dispatch(instr)
		}
	}

	// Resolve phi assignments: insert a mov into the predecessor's
	// machine block, ahead of that block's terminator.
	for _, pc := range phiCopies {
		pred := byID[pc.pred]
		predIR := f.Block(pc.pred)
		c := NewContextWithGlobal(f, predIR, mf, pred, flags, g)
		cur := c.cursor()
		if pc.dest.Type == ir.I64 {
			cur.Bin(asm.Mov, c.LoOperand(pc.dest), c.Legalize(c.LoOperand(pc.val), AllowRegMem|AllowImm, false, ir.NoReg))
			cur.Bin(asm.Mov, c.HiOperand(pc.dest), c.Legalize(c.HiOperand(pc.val), AllowRegMem|AllowImm, false, ir.NoReg))
		} else {
			mn := asm.Mov
			if pc.dest.Type.IsVector() {
				mn = asm.Movaps
			}
			cur.Bin(mn, pc.dest, c.Legalize(pc.val, AllowRegMem|AllowImm, false, ir.NoReg))
		}
	}

	for _, b := range f.Blocks {
		mb := byID[b.ID]
		c := NewContextWithGlobal(f, b, mf, mb, flags, g)
		fk, fStart := detectFusion(b)
		lowerTerminator(c, b, fk, fStart)
	}

	return mf
}

// dispatch routes a single non-phi instruction to its lowering entry
// point (spec.md §4.1's opcode table).
func (c *Context) dispatch(instr ir.Instruction) {
	switch instr.Op {
	case ir.OpAlloca:
		c.Alloca(instr)
	case ir.OpArith:
		c.Arith(instr)
	case ir.OpAssign:
		c.Assign(instr)
	case ir.OpCall:
		c.Call(instr)
	case ir.OpCast:
		c.Cast(instr)
	case ir.OpExtractElement:
		c.ExtractElement(instr)
	case ir.OpFcmp:
		c.Fcmp(instr)
	case ir.OpIcmp:
		c.Icmp(instr)
	case ir.OpInsertElement:
		c.InsertElement(instr)
	case ir.OpIntrinsicCall:
		c.IntrinsicCall(instr)
	case ir.OpLoad:
		c.Load(instr)
	case ir.OpSelect:
		c.Select(instr)
	case ir.OpStore:
		c.Store(instr)
	default:
		c.fail(diag.BadArithmeticTypes, "unexpected opcode %v in regular stream", instr.Op)
	}
}

type fusionKind int

const (
	fusionNone fusionKind = iota
	fusionCompareBranch
	fusionCmpxchgBranch
)

// detectFusion looks at a block's trailing instruction(s) and its Flow
// to recognise the icmp/fcmp+br and cmpxchg+cmp+br idioms (spec.md
// §4.6, §4.9): the compare/cmpxchg's destination must be exactly the
// branch condition, and it must be the block's final instruction (or
// second-to-final, for the cmpxchg+icmp pair). There is no use-count
// tracked on Variable, so this adjacency check stands in for "single
// use" (the same flag-not-count choice recorded for address-mode
// folding's multi-block-life check).
func detectFusion(b *ir.BasicBlock) (fusionKind, int) {
	n := len(b.Instrs)
	if b.Out.Kind != ir.FlowBranch || b.Out.Cond.Kind != ir.OperandVariable {
		return fusionNone, -1
	}
	if n >= 2 {
		prev, last := b.Instrs[n-2], b.Instrs[n-1]
		if prev.Op == ir.OpIntrinsicCall && prev.Intrinsic == ir.IntrinsicAtomicCmpxchg &&
			TryFuseCmpxchgBranch(prev, last) &&
			last.HasDest && last.Dest.Kind == ir.OperandVariable && last.Dest.Var == b.Out.Cond.Var {
			return fusionCmpxchgBranch, n - 2
		}
	}
	if n >= 1 {
		last := b.Instrs[n-1]
		if (last.Op == ir.OpIcmp || last.Op == ir.OpFcmp) && last.HasDest && last.Dest.Kind == ir.OperandVariable && last.Dest.Var == b.Out.Cond.Var {
			return fusionCompareBranch, n - 1
		}
	}
	return fusionNone, -1
}

func blockLabel(f *ir.Function, id ir.BlockID) string {
	return f.Block(id).Label
}

// lowerTerminator emits the machine instructions for a block's Flow,
// fusing the trailing compare or cmpxchg into the branch when
// detectFusion found one.
func lowerTerminator(c *Context, b *ir.BasicBlock, fk fusionKind, fStart int) {
	if c.failed() {
		return
	}
	cur := c.cursor()

	switch b.Out.Kind {
	case ir.FlowJmp:
		cur.Jmp(blockLabel(c.Func, b.Out.True))

	case ir.FlowBranch:
		trueLabel := blockLabel(c.Func, b.Out.True)
		falseLabel := blockLabel(c.Func, b.Out.False)
		switch fk {
		case fusionCompareBranch:
			c.TryFuseCompareBranch(b.Instrs[fStart], trueLabel, falseLabel)
		case fusionCmpxchgBranch:
			c.AtomicCmpxchg(b.Instrs[fStart], trueLabel, falseLabel)
		default:
			cond := c.Legalize(b.Out.Cond, AllowRegMem, false, ir.NoReg)
			cur.Bin(asm.Test, cond, cond)
			cur.Jcc("ne", trueLabel)
			cur.Jmp(falseLabel)
		}

	case ir.FlowReturn:
		lowerReturn(c, b.Out.Rets)
		cur.Nullary(asm.Ret)

	case ir.FlowSwitch:
		lowerSwitch(c, b.Out)

	case ir.FlowUnreachable:
		cur.Nullary(asm.Ud2)

	default:
		c.fail(diag.BadArithmeticTypes, "block %s has no terminator", b.Label)
	}
}

// lowerReturn marshals up to one return value into the ABI's return
// registers: edx:eax for i64, st(0) for fp (via fld), xmm0 for vector,
// eax otherwise. Multiple return values are not part of this ABI;
// Rets[0] is the only slot consulted.
func lowerReturn(c *Context, rets []ir.Operand) {
	if len(rets) == 0 {
		return
	}
	cur := c.cursor()
	v := rets[0]

	switch {
	case v.Type == ir.I64:
		cur.Bin(asm.Mov, c.PhysVar(ir.I32, EAX), c.Legalize(c.LoOperand(v), AllowRegMem, false, ir.NoReg))
		cur.Bin(asm.Mov, c.PhysVar(ir.I32, EDX), c.Legalize(c.HiOperand(v), AllowRegMem, false, ir.NoReg))
	case v.Type == ir.F32, v.Type == ir.F64:
		slot := c.SpillSlot(v.Type)
		slotV := ir.Var(slot, v.Type)
		mn := asm.Movss
		if v.Type == ir.F64 {
			mn = asm.Movsd
		}
		cur.Bin(mn, slotV, c.Legalize(v, AllowRegMem, false, ir.NoReg))
		cur.Unary(asm.Fld, slotV)
	case v.Type.IsVector():
		cur.Bin(asm.Movaps, c.PhysVar(v.Type, asm.XMM0), c.Legalize(v, AllowRegMem, false, ir.NoReg))
	default:
		cur.Bin(asm.Mov, c.PhysVar(v.Type, EAX), c.Legalize(v, AllowRegMem|AllowImm, false, ir.NoReg))
	}
}

// lowerSwitch expands to a linear chain of cmp/je tests followed by a
// jmp to the default, since no jump-table layout is specified.
func lowerSwitch(c *Context, flow ir.Flow) {
	cur := c.cursor()
	val := c.Legalize(flow.SwitchVal, AllowRegMem, false, ir.NoReg)
	for i, caseVal := range flow.SwitchCases {
		cur.Bin(asm.Cmp, val, ir.ConstInt(flow.SwitchVal.Type, uint64(caseVal)))
		cur.Jcc("e", blockLabel(c.Func, flow.SwitchDests[i]))
	}
	cur.Jmp(blockLabel(c.Func, flow.SwitchDefault))
}
