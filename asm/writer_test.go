package asm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/ir"
)

// stubResolver resolves every Variable straight to a caller-supplied
// register, with no spilled operands — enough to exercise the writer
// without dragging in package frame.
type stubResolver struct {
	regs map[ir.VarID]Reg
}

func (r stubResolver) RegOf(id ir.VarID) (Reg, bool) {
	reg, ok := r.regs[id]
	return reg, ok
}

func (r stubResolver) FrameOperand(id ir.VarID) (Reg, int32) {
	return EBP, 0
}

// TestFunctionElidesFakeInstructions confirms FakeUse/FakeKill never
// reach the rendered text, even when sandwiched between real
// instructions (spec.md's "the emitter elides them").
func TestFunctionElidesFakeInstructions(t *testing.T) {
	f := ir.NewFunction("f")
	a := f.NewVar(ir.I32)

	mf := NewMachineFunction("f")
	blk := mf.NewBlock(0, "f$entry")
	blk.Emit(MachineInstr{Mnemonic: Mov, Operands: []ir.Operand{ir.Var(a, ir.I32), ir.ConstInt(ir.I32, 1)}})
	blk.Emit(MachineInstr{Mnemonic: FakeUse, Operands: []ir.Operand{ir.Var(a, ir.I32)}})
	blk.Emit(MachineInstr{Mnemonic: Call, Operands: []ir.Operand{ir.ConstRelocatable(ir.Void, "foo", 0)}})
	blk.Emit(MachineInstr{Mnemonic: FakeKill, Operands: []ir.Operand{ir.Var(a, ir.I32)}})
	blk.Emit(MachineInstr{Mnemonic: Ret})

	r := stubResolver{regs: map[ir.VarID]Reg{a: EAX}}

	w := NewWriter()
	w.Function(mf, r)
	text := w.String()

	require.NotContains(t, text, FakeUse)
	require.NotContains(t, text, FakeKill)
	require.Contains(t, text, Mov)
	require.Contains(t, text, Call)
	require.Equal(t, 3, strings.Count(text, "\t"), "exactly the mov/call/ret lines should be emitted")
}

// TestFunctionRendersLockPrefix confirms IsLock prepends "lock " ahead
// of the mnemonic, for atomic read-modify-write instructions.
func TestFunctionRendersLockPrefix(t *testing.T) {
	f := ir.NewFunction("f")
	a := f.NewVar(ir.I32)

	mf := NewMachineFunction("f")
	blk := mf.NewBlock(0, "f$entry")
	blk.Emit(MachineInstr{Mnemonic: Cmpxchg, IsLock: true, Operands: []ir.Operand{ir.Var(a, ir.I32), ir.ConstInt(ir.I32, 0)}})

	r := stubResolver{regs: map[ir.VarID]Reg{a: EAX}}

	w := NewWriter()
	w.Function(mf, r)
	text := w.String()

	require.Contains(t, text, "lock cmpxchg")
}

// TestOperandTextMemoryNeedsSizeKeywordWhenAmbiguous confirms a memory
// operand only gets a "dword ptr"-style prefix when no register operand
// in the same instruction pins the size (spec.md §6).
func TestOperandTextMemoryNeedsSizeKeywordWhenAmbiguous(t *testing.T) {
	base := ir.NoVar
	mem := ir.Mem(ir.I32, base, ir.NoVar, 0, 4, true)

	r := stubResolver{}
	require.Equal(t, "dword ptr [4]", OperandText(mem, r, true))
	require.Equal(t, "[4]", OperandText(mem, r, false))
}

// TestOperandTextComposesBaseIndexScaleOffset confirms a folded
// [base+index*scale+offset] memory operand renders with the expected
// Intel-syntax shape.
func TestOperandTextComposesBaseIndexScaleOffset(t *testing.T) {
	f := ir.NewFunction("f")
	base := f.NewVar(ir.I32)
	idx := f.NewVar(ir.I32)

	mem := ir.Mem(ir.I32, base, idx, 2, 8, true)
	r := stubResolver{regs: map[ir.VarID]Reg{base: ESI, idx: EDI}}

	require.Equal(t, "[esi+edi*4+8]", OperandText(mem, r, false))
}
