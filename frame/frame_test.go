package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

// TestBuildKeepsCallSiteAlignment covers S5/invariant 1: a function with
// a single i64 local and no preserved registers still leaves esp at the
// residue every lower.Context.Call site depends on. The prolog sequence
// is push-ebp, mov-ebp-esp, push each preserved register, then
// sub-esp-frameSize; given the standard entry convention of esp ≡ 12
// (mod 16) right after the call instruction's own return-address push,
// esp ends the prolog at 0 (mod 16) exactly when frameSize+reserved ≡ 8
// (mod 16) — which is what layoutSpills's padding loop enforces whenever
// NeedsStackAlignment is set, regardless of how many bytes the single
// local itself needs.
func TestBuildKeepsCallSiteAlignment(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock("f$entry")
	local := f.NewVar(ir.I64)
	f.Var(local).LocalUseBlock = int32(entry.ID)
	f.NeedsStackAlignment = true

	entry.Emit(ir.Instruction{
		Op: ir.OpAssign, Type: ir.I64,
		Operands: []ir.Operand{ir.ConstInt(ir.I64, 0)},
		Dest:     ir.Var(local, ir.I64),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn}

	mf := asm.NewMachineFunction("f")
	mb := mf.NewBlock(entry.ID, entry.Label)
	mb.Instrs = append(mb.Instrs, asm.MachineInstr{
		Mnemonic: asm.Mov,
		Operands: []ir.Operand{ir.Var(local, ir.I64), ir.ConstInt(ir.I64, 0)},
	})
	mb.Out = entry.Out

	b := Build(f, mf, options.Default())

	require.Empty(t, b.preserved)
	require.Greater(t, b.frameSize, int32(0))
	reserved := int32(4 * len(b.preserved))
	require.EqualValues(t, 8, (b.frameSize+reserved)%16)
	require.Equal(t, b.frameSize, mf.FrameSize)
}

// TestBuildOmitsAlignmentPaddingWithoutCalls confirms the padding loop
// only runs when NeedsStackAlignment is set — a leaf function that never
// calls out has no reason to pay for call-site alignment it never uses.
func TestBuildOmitsAlignmentPaddingWithoutCalls(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock("f$entry")
	local := f.NewVar(ir.I32)
	f.Var(local).LocalUseBlock = int32(entry.ID)

	entry.Emit(ir.Instruction{
		Op: ir.OpAssign, Type: ir.I32,
		Operands: []ir.Operand{ir.ConstInt(ir.I32, 1)},
		Dest:     ir.Var(local, ir.I32),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn}

	mf := asm.NewMachineFunction("f")
	mb := mf.NewBlock(entry.ID, entry.Label)
	mb.Instrs = append(mb.Instrs, asm.MachineInstr{
		Mnemonic: asm.Mov,
		Operands: []ir.Operand{ir.Var(local, ir.I32), ir.ConstInt(ir.I32, 1)},
	})
	mb.Out = entry.Out

	b := Build(f, mf, options.Default())

	require.EqualValues(t, 4, b.frameSize)
}

// TestRegOfAndFrameOperandAgreeWithColouring confirms the Resolver
// implementation reflects whatever the allocator already decided: a
// register-bound Variable resolves through RegOf, a spilled one through
// FrameOperand, and the two are mutually exclusive.
func TestRegOfAndFrameOperandAgreeWithColouring(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock("f$entry")
	inReg := f.NewVar(ir.I32)
	f.Var(inReg).Reg = asm.EBX
	spilled := f.NewVar(ir.I32)
	f.Var(spilled).LocalUseBlock = int32(entry.ID)

	entry.Emit(ir.Instruction{
		Op: ir.OpAssign, Type: ir.I32,
		Operands: []ir.Operand{ir.ConstInt(ir.I32, 2)},
		Dest:     ir.Var(spilled, ir.I32),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn}

	mf := asm.NewMachineFunction("f")
	mb := mf.NewBlock(entry.ID, entry.Label)
	mb.Instrs = append(mb.Instrs,
		asm.MachineInstr{Mnemonic: asm.Mov, Operands: []ir.Operand{ir.Var(inReg, ir.I32), ir.ConstInt(ir.I32, 9)}},
		asm.MachineInstr{Mnemonic: asm.Mov, Operands: []ir.Operand{ir.Var(spilled, ir.I32), ir.ConstInt(ir.I32, 2)}},
	)
	mb.Out = entry.Out

	b := Build(f, mf, options.Default())

	reg, ok := b.RegOf(inReg)
	require.True(t, ok)
	require.Equal(t, asm.EBX, reg)
	require.Contains(t, b.preserved, asm.EBX)

	_, ok = b.RegOf(spilled)
	require.False(t, ok)
	base, off := b.FrameOperand(spilled)
	require.Equal(t, asm.EBP, base)
	require.Less(t, off, int32(0))
}
