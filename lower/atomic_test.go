package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

// TestCmpxchgI64FusesTrailingIcmpIntoBranch covers S4: an i64
// cmpxchg8b followed by `icmp eq %dest, %expected` feeding a branch
// must fuse straight into je/jmp with no intervening cmp or
// materialised i1 (spec.md §4.9). The icmp's second operand must be
// the exact same `expected` operand passed into the cmpxchg itself.
func TestCmpxchgI64FusesTrailingIcmpIntoBranch(t *testing.T) {
	f := ir.NewFunction("f")
	addr := f.NewVar(ir.I32)
	f.Var(addr).IsArgument = true
	exp := f.NewVar(ir.I64)
	f.Var(exp).IsArgument = true
	f.Args = append(f.Args, addr, exp)

	entry := f.NewBlock("f$entry")
	l1 := f.NewBlock("f$l1")
	l2 := f.NewBlock("f$l2")

	old := f.NewVar(ir.I64)
	f.Var(old).LocalUseBlock = int32(entry.ID)
	ok := f.NewVar(ir.I1)
	f.Var(ok).LocalUseBlock = int32(entry.ID)
	mem := ir.Mem(ir.I64, addr, ir.NoVar, 0, 0, false)
	entry.Emit(ir.Instruction{
		Op: ir.OpIntrinsicCall, Type: ir.I64, Intrinsic: ir.IntrinsicAtomicCmpxchg,
		Operands: []ir.Operand{mem, ir.Var(exp, ir.I64), ir.ConstInt(ir.I64, 2)},
		Dest:     ir.Var(old, ir.I64),
		HasDest:  true,
	})
	entry.Emit(ir.Instruction{
		Op: ir.OpIcmp, Type: ir.I1, ICond: ir.ICondEQ,
		Operands: []ir.Operand{ir.Var(old, ir.I64), ir.Var(exp, ir.I64)},
		Dest:     ir.Var(ok, ir.I1),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowBranch, Cond: ir.Var(ok, ir.I1), True: l1.ID, False: l2.ID}
	l1.Out = ir.Flow{Kind: ir.FlowReturn}
	l2.Out = ir.Flow{Kind: ir.FlowReturn}

	mf := LowerFunction(f, options.Default())
	require.False(t, f.HasError)

	got := mnemonics(mf)
	require.Contains(t, got, asm.Cmpxchg8b)
	require.NotContains(t, got, asm.Cmp)

	// The setup movs loading edx:eax/ecx:ebx are expected ahead of
	// cmpxchg8b; nothing may follow it besides the fused jcc/jmp pair.
	idx := -1
	for i, mn := range got {
		if mn == asm.Cmpxchg8b {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	for _, mn := range got[idx+1:] {
		require.NotEqual(t, asm.Mov, mn, "fused cmpxchg must not materialise its destination")
	}
}

// TestCmpxchgI64UnfusedDestHoldsOldValue covers the non-fused path: per
// the original's lowerAtomicCmpxchg, Dest receives the old memory value
// cmpxchg8b always loads into edx:eax, not a success boolean — a caller
// wanting the boolean issues its own icmp against this value.
func TestCmpxchgI64UnfusedDestHoldsOldValue(t *testing.T) {
	f := ir.NewFunction("f")
	addr := f.NewVar(ir.I32)
	f.Var(addr).IsArgument = true
	f.Args = append(f.Args, addr)

	entry := f.NewBlock("f$entry")
	old := f.NewVar(ir.I64)
	f.Var(old).LocalUseBlock = int32(entry.ID)
	mem := ir.Mem(ir.I64, addr, ir.NoVar, 0, 0, false)
	entry.Emit(ir.Instruction{
		Op: ir.OpIntrinsicCall, Type: ir.I64, Intrinsic: ir.IntrinsicAtomicCmpxchg,
		Operands: []ir.Operand{mem, ir.ConstInt(ir.I64, 1), ir.ConstInt(ir.I64, 2)},
		Dest:     ir.Var(old, ir.I64),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(old, ir.I64)}}

	mf := LowerFunction(f, options.Default())
	require.False(t, f.HasError)

	got := mnemonics(mf)
	require.Contains(t, got, asm.Cmpxchg8b)

	idx := -1
	for i, mn := range got {
		if mn == asm.Cmpxchg8b {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)

	// Dest is fed straight from eax/edx, not through materializeBool's
	// mov-1/jcc/mov-0 template.
	var movedFromEax, movedFromEdx bool
	for _, blk := range mf.Blocks {
		for _, instr := range blk.Instrs {
			if instr.Mnemonic != asm.Mov || len(instr.Operands) != 2 {
				continue
			}
			src := instr.Operands[1]
			if src.Kind != ir.OperandVariable {
				continue
			}
			switch f.Var(src.Var).Reg {
			case EAX:
				movedFromEax = true
			case EDX:
				movedFromEdx = true
			}
		}
	}
	require.True(t, movedFromEax, "Dest's lo half must come from eax")
	require.True(t, movedFromEdx, "Dest's hi half must come from edx")
}

// TestTryFuseCmpxchgBranchRejectsUnrelatedComparand ensures a trailing
// icmp against something other than the cmpxchg's own expected operand
// never fuses, even though it reads the cmpxchg's Dest.
func TestTryFuseCmpxchgBranchRejectsUnrelatedComparand(t *testing.T) {
	dest := ir.Var(1, ir.I64)
	cmpxchg := ir.Instruction{
		Op: ir.OpIntrinsicCall, Intrinsic: ir.IntrinsicAtomicCmpxchg,
		Operands: []ir.Operand{{}, ir.Var(2, ir.I64), ir.ConstInt(ir.I64, 5)},
		Dest:     dest,
		HasDest:  true,
	}
	next := ir.Instruction{
		Op: ir.OpIcmp, ICond: ir.ICondEQ,
		Operands: []ir.Operand{dest, ir.Var(3, ir.I64)},
	}
	require.False(t, TryFuseCmpxchgBranch(cmpxchg, next))
}
