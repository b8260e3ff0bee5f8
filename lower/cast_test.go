package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

func buildCast(t *testing.T, op ir.CastOp, srcT, dstT ir.Type) *asm.MachineFunction {
	f := ir.NewFunction("f")
	src := f.NewVar(srcT)
	f.Var(src).IsArgument = true
	f.Args = append(f.Args, src)

	entry := f.NewBlock("f$entry")
	dest := f.NewVar(dstT)
	f.Var(dest).LocalUseBlock = int32(entry.ID)
	entry.Emit(ir.Instruction{
		Op: ir.OpCast, Type: dstT, SubOp: int(op),
		Operands: []ir.Operand{ir.Var(src, srcT)},
		Dest:     ir.Var(dest, dstT),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(dest, dstT)}}

	mf := LowerFunction(f, options.Default())
	require.False(t, f.HasError)
	return mf
}

// TestSextI32ToI64FillsHiWithSignBit covers invariant 7: widening a
// signed i32 into i64 must replicate its sign bit across the entire
// hi half (sar 31 of a copy of lo), so a negative value round-trips
// through trunc back to the same i32 bit pattern.
func TestSextI32ToI64FillsHiWithSignBit(t *testing.T) {
	mf := buildCast(t, ir.Sext, ir.I32, ir.I64)
	got := mnemonics(mf)
	require.Contains(t, got, asm.Sar)
	require.NotContains(t, got, asm.Shr)
}

// TestZextI32ToI64ZeroesHiHalf covers the same invariant for the
// unsigned path: the hi half must be an explicit zero, never a sign
// replication, since a zext'd value must read back as the original
// unsigned i32 after truncation regardless of its sign bit.
func TestZextI32ToI64ZeroesHiHalf(t *testing.T) {
	mf := buildCast(t, ir.Zext, ir.I32, ir.I64)
	got := mnemonics(mf)
	require.NotContains(t, got, asm.Sar)

	foundZeroHi := false
	for _, blk := range mf.Blocks {
		for _, instr := range blk.Instrs {
			if instr.Mnemonic == asm.Mov && len(instr.Operands) == 2 &&
				instr.Operands[1].Kind == ir.OperandConstInt && instr.Operands[1].IntVal == 0 {
				foundZeroHi = true
			}
		}
	}
	require.True(t, foundZeroHi)
}

// TestTruncI64ToI32KeepsOnlyLoHalf covers invariant 7's other
// direction: truncating an i64 back down reads only the lo half,
// completing the round trip a prior sext/zext started.
func TestTruncI64ToI32KeepsOnlyLoHalf(t *testing.T) {
	mf := buildCast(t, ir.Trunc, ir.I64, ir.I32)
	got := mnemonics(mf)
	require.Contains(t, got, asm.Mov)
	for _, blk := range mf.Blocks {
		for _, instr := range blk.Instrs {
			for _, op := range instr.Operands {
				require.NotEqual(t, ir.I64, op.Type, "trunc's result must never reference a whole i64 operand")
			}
		}
	}
}
