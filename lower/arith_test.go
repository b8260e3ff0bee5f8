package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

// buildBinArith lowers a single OpArith instruction over two i32
// arguments and returns both the IR function (so a test can inspect
// precolouring) and the lowered machine function, for the division
// and shift invariant checks below.
func buildBinArith(t *testing.T, typ ir.Type, op ir.ArithOp) (*ir.Function, *asm.MachineFunction) {
	f := ir.NewFunction("f")
	a := f.NewVar(typ)
	b := f.NewVar(typ)
	f.Var(a).IsArgument = true
	f.Var(b).IsArgument = true
	f.Args = append(f.Args, a, b)

	entry := f.NewBlock("f$entry")
	dest := f.NewVar(typ)
	f.Var(dest).LocalUseBlock = int32(entry.ID)
	entry.Emit(ir.Instruction{
		Op: ir.OpArith, Type: typ, SubOp: int(op),
		Operands: []ir.Operand{ir.Var(a, typ), ir.Var(b, typ)},
		Dest:     ir.Var(dest, typ),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(dest, typ)}}

	mf := LowerFunction(f, options.Default())
	require.False(t, f.HasError)
	return f, mf
}

// TestSignedDivSignExtendsDividendViaCdq covers invariant 3: a signed
// i32 division must sign-extend eax into edx via cdq before idiv, so
// edx never carries stale bits into the dividend (spec.md §8).
func TestSignedDivSignExtendsDividendViaCdq(t *testing.T) {
	_, mf := buildBinArith(t, ir.I32, ir.SDiv)
	got := mnemonics(mf)
	require.Contains(t, got, asm.Cdq)
	require.Contains(t, got, asm.Idiv)
	require.NotContains(t, got, asm.Div)
}

// TestUnsignedDivZeroesEdxInsteadOfCdq covers the same invariant for
// the unsigned path: edx must be an explicit mov 0, never cdq (which
// would sign-extend rather than zero-extend the dividend).
func TestUnsignedDivZeroesEdxInsteadOfCdq(t *testing.T) {
	_, mf := buildBinArith(t, ir.I32, ir.UDiv)
	got := mnemonics(mf)
	require.Contains(t, got, asm.Div)
	require.NotContains(t, got, asm.Cdq)
	require.NotContains(t, got, asm.Idiv)

	foundZeroEdx := false
	for _, blk := range mf.Blocks {
		for _, instr := range blk.Instrs {
			if instr.Mnemonic == asm.Mov && len(instr.Operands) == 2 &&
				instr.Operands[1].Kind == ir.OperandConstInt && instr.Operands[1].IntVal == 0 {
				foundZeroEdx = true
			}
		}
	}
	require.True(t, foundZeroEdx, "unsigned division must zero edx with an explicit mov")
}

// TestShiftCountMustBeConstantOrEcx covers invariant 4: a variable
// shift count is always legalised into ecx before the shift, never
// left in an arbitrary register.
func TestShiftCountMustBeConstantOrEcx(t *testing.T) {
	f, mf := buildBinArith(t, ir.I32, ir.Shl)

	var sawShift bool
	for _, blk := range mf.Blocks {
		for _, instr := range blk.Instrs {
			if instr.Mnemonic == asm.Shl {
				sawShift = true
				require.Len(t, instr.Operands, 2)
				count := instr.Operands[1]
				if count.Kind == ir.OperandVariable {
					require.Equal(t, asm.ECX, f.Var(count.Var).Reg)
				} else {
					require.Equal(t, ir.OperandConstInt, count.Kind)
				}
			}
		}
	}
	require.True(t, sawShift)
}
