package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

func newSplit64Context(f *ir.Function, b *ir.BasicBlock) *Context {
	mf := asm.NewMachineFunction(f.Name)
	mb := mf.NewBlock(b.ID, b.Label)
	return NewContext(f, b, mf, mb, options.Default())
}

// TestLoHiOperandAreIdempotentOnTheSameVariable covers invariant 6:
// splitting the same i64 Variable twice must hand back the same pair
// of 32-bit halves both times, rather than fabricating a fresh split
// on every call (spec.md §4.3).
func TestLoHiOperandAreIdempotentOnTheSameVariable(t *testing.T) {
	f := ir.NewFunction("f")
	v := f.NewVar(ir.I64)
	b := f.NewBlock("f$entry")
	c := newSplit64Context(f, b)

	op := ir.Var(v, ir.I64)
	lo1, hi1 := c.LoOperand(op), c.HiOperand(op)
	lo2, hi2 := c.LoOperand(op), c.HiOperand(op)

	require.Equal(t, lo1, lo2)
	require.Equal(t, hi1, hi2)
	require.NotEqual(t, lo1.Var, hi1.Var)
	require.Equal(t, ir.I32, lo1.Type)
	require.Equal(t, ir.I32, hi1.Type)
}

// TestLoHiOperandOnConstSplitsTheIntegerInHalf covers the constant
// side of the same invariant: a 64-bit immediate's lo/hi halves must
// be the low and high 32 bits of its value, independent of how many
// times they're requested.
func TestLoHiOperandOnConstSplitsTheIntegerInHalf(t *testing.T) {
	f := ir.NewFunction("f")
	b := f.NewBlock("f$entry")
	c := newSplit64Context(f, b)

	op := ir.ConstInt(ir.I64, 0x00000002_00000001)
	lo := c.LoOperand(op)
	hi := c.HiOperand(op)

	require.Equal(t, uint64(1), lo.IntVal)
	require.Equal(t, uint64(2), hi.IntVal)

	lo2 := c.LoOperand(op)
	require.Equal(t, lo, lo2)
}

// TestLoHiOperandOnMemoryOffsetsByWordSize covers the memory-operand
// side: lo reads the base offset, hi reads base+4, matching a little-
// endian in-memory i64 layout.
func TestLoHiOperandOnMemoryOffsetsByWordSize(t *testing.T) {
	f := ir.NewFunction("f")
	b := f.NewBlock("f$entry")
	c := newSplit64Context(f, b)

	base := f.NewVar(ir.I32)
	mem := ir.Mem(ir.I64, base, ir.NoVar, 0, 8, true)

	lo := c.LoOperand(mem)
	hi := c.HiOperand(mem)

	require.EqualValues(t, 8, lo.Offset)
	require.EqualValues(t, 12, hi.Offset)
}
