package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

// TestCtlzI64DefaultsToLoHalfPlusThirtyTwo covers spec.md §4.8's i64
// ctlz: the final result must default to the lo-half count (already
// offset by 32) and only be overridden by the hi-half's direct count
// when hi is non-zero — the opposite wiring silently returns 64
// instead of 31 for a value like 0x1_00000000.
func TestCtlzI64DefaultsToLoHalfPlusThirtyTwo(t *testing.T) {
	f := ir.NewFunction("f")
	src := f.NewVar(ir.I64)
	f.Var(src).IsArgument = true
	f.Args = append(f.Args, src)

	entry := f.NewBlock("f$entry")
	dest := f.NewVar(ir.I32)
	f.Var(dest).LocalUseBlock = int32(entry.ID)
	entry.Emit(ir.Instruction{
		Op: ir.OpIntrinsicCall, Type: ir.I64, Intrinsic: ir.IntrinsicCtlz,
		Operands: []ir.Operand{ir.Var(src, ir.I64)},
		Dest:     ir.Var(dest, ir.I32),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(dest, ir.I32)}}

	mf := LowerFunction(f, options.Default())
	require.False(t, f.HasError)

	var addDest ir.VarID
	var lastMov, lastCmovne *asm.MachineInstr
	for _, blk := range mf.Blocks {
		for i := range blk.Instrs {
			instr := &blk.Instrs[i]
			switch instr.Mnemonic {
			case asm.Add:
				if instr.Operands[1].Kind == ir.OperandConstInt && instr.Operands[1].IntVal == 32 {
					addDest = instr.Operands[0].Var
				}
			case asm.Mov:
				// only movs into dest: the return's own mov eax, dest comes later
				if instr.Operands[0].Kind == ir.OperandVariable && instr.Operands[0].Var == dest {
					lastMov = instr
				}
			case asm.Cmovne:
				lastCmovne = instr
			}
		}
	}

	require.NotNil(t, lastMov)
	require.NotNil(t, lastCmovne)
	require.Equal(t, addDest, lastMov.Operands[1].Var, "final mov must default to the +32-adjusted lo-half count")
	require.NotEqual(t, addDest, lastCmovne.Operands[1].Var, "final cmovne must substitute the hi-half's direct count, not the lo-half one again")
}

// TestCttzI64DefaultsToHiHalfPlusThirtyTwo confirms cttz keeps the
// mirror-image wiring cttzI64 already had right: default to the
// hi-half count (+32), substitute lo's direct count when lo != 0.
func TestCttzI64DefaultsToHiHalfPlusThirtyTwo(t *testing.T) {
	f := ir.NewFunction("f")
	src := f.NewVar(ir.I64)
	f.Var(src).IsArgument = true
	f.Args = append(f.Args, src)

	entry := f.NewBlock("f$entry")
	dest := f.NewVar(ir.I32)
	f.Var(dest).LocalUseBlock = int32(entry.ID)
	entry.Emit(ir.Instruction{
		Op: ir.OpIntrinsicCall, Type: ir.I64, Intrinsic: ir.IntrinsicCttz,
		Operands: []ir.Operand{ir.Var(src, ir.I64)},
		Dest:     ir.Var(dest, ir.I32),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(dest, ir.I32)}}

	mf := LowerFunction(f, options.Default())
	require.False(t, f.HasError)

	var addDest ir.VarID
	var lastMov, lastCmovne *asm.MachineInstr
	for _, blk := range mf.Blocks {
		for i := range blk.Instrs {
			instr := &blk.Instrs[i]
			switch instr.Mnemonic {
			case asm.Add:
				if instr.Operands[1].Kind == ir.OperandConstInt && instr.Operands[1].IntVal == 32 {
					addDest = instr.Operands[0].Var
				}
			case asm.Mov:
				// only movs into dest: the return's own mov eax, dest comes later
				if instr.Operands[0].Kind == ir.OperandVariable && instr.Operands[0].Var == dest {
					lastMov = instr
				}
			case asm.Cmovne:
				lastCmovne = instr
			}
		}
	}

	require.NotNil(t, lastMov)
	require.NotNil(t, lastCmovne)
	require.Equal(t, addDest, lastMov.Operands[1].Var, "final mov must default to the +32-adjusted hi-half count")
	require.NotEqual(t, addDest, lastCmovne.Operands[1].Var, "final cmovne must substitute the lo-half's direct count")
}
