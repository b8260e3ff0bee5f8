package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/ir"
)

// buildFunc returns a single-block function and the block to emit
// address-computation instructions into before calling Fold.
func buildFunc() (*ir.Function, *ir.BasicBlock) {
	f := ir.NewFunction("f")
	b := f.NewBlock("f$entry")
	return f, b
}

func emitArith(b *ir.BasicBlock, f *ir.Function, op ir.ArithOp, a, c ir.Operand) ir.VarID {
	dest := f.NewVar(ir.I32)
	b.Emit(ir.Instruction{
		Op: ir.OpArith, Type: ir.I32, SubOp: int(op),
		Operands: []ir.Operand{a, c},
		Dest:     ir.Var(dest, ir.I32),
		HasDest:  true,
	})
	return dest
}

func TestFoldBaseConstOffset(t *testing.T) {
	f, b := buildFunc()
	base := f.NewVar(ir.I32)
	addr := emitArith(b, f, ir.Add, ir.Var(base, ir.I32), ir.ConstInt(ir.I32, 12))

	af := NewAddrModeFolder(f)
	mode := af.Fold(ir.Var(addr, ir.I32))

	require.Equal(t, base, mode.Base)
	require.Equal(t, ir.NoVar, mode.Index)
	require.True(t, mode.HasOffset)
	require.EqualValues(t, 12, mode.Offset)
}

func TestFoldIndexScaleOnly(t *testing.T) {
	f, b := buildFunc()
	idx := f.NewVar(ir.I32)
	addr := emitArith(b, f, ir.Mul, ir.Var(idx, ir.I32), ir.ConstInt(ir.I32, 4))

	af := NewAddrModeFolder(f)
	mode := af.Fold(ir.Var(addr, ir.I32))

	require.Equal(t, ir.NoVar, mode.Base)
	require.Equal(t, idx, mode.Index)
	require.EqualValues(t, 2, mode.Scale)
	require.False(t, mode.HasOffset)
}

// TestFoldBasePlusIndexTimesScale exercises p[i] built as two ordinary
// instructions (off := i*4; addr := p+off), confirming Fold composes
// the Mul it finds on one Add operand into the same AddrMode instead of
// stopping at the first unfoldable-looking Add.
func TestFoldBasePlusIndexTimesScale(t *testing.T) {
	f, b := buildFunc()
	base := f.NewVar(ir.I32)
	idx := f.NewVar(ir.I32)
	off := emitArith(b, f, ir.Mul, ir.Var(idx, ir.I32), ir.ConstInt(ir.I32, 4))
	addr := emitArith(b, f, ir.Add, ir.Var(base, ir.I32), ir.Var(off, ir.I32))

	af := NewAddrModeFolder(f)
	mode := af.Fold(ir.Var(addr, ir.I32))

	require.Equal(t, base, mode.Base)
	require.Equal(t, idx, mode.Index)
	require.EqualValues(t, 2, mode.Scale)
	require.False(t, mode.HasOffset)
}

// TestFoldBasePlusIndexTimesScalePlusOffset chains a further +const onto
// the base+index*scale pattern: addr2 := addr + 8.
func TestFoldBasePlusIndexTimesScalePlusOffset(t *testing.T) {
	f, b := buildFunc()
	base := f.NewVar(ir.I32)
	idx := f.NewVar(ir.I32)
	off := emitArith(b, f, ir.Mul, ir.Var(idx, ir.I32), ir.ConstInt(ir.I32, 4))
	addr := emitArith(b, f, ir.Add, ir.Var(base, ir.I32), ir.Var(off, ir.I32))
	addr2 := emitArith(b, f, ir.Add, ir.Var(addr, ir.I32), ir.ConstInt(ir.I32, 8))

	af := NewAddrModeFolder(f)
	mode := af.Fold(ir.Var(addr2, ir.I32))

	require.Equal(t, base, mode.Base)
	require.Equal(t, idx, mode.Index)
	require.EqualValues(t, 2, mode.Scale)
	require.True(t, mode.HasOffset)
	require.EqualValues(t, 8, mode.Offset)
}

// A scale that isn't a power of two, or exceeds 8, never folds into
// Index/Scale — the Mul is left as an ordinary instruction instead
// (spec.md §8 invariant 9: folded scale is always 0..3 log units).
func TestFoldRejectsNonPowerOfTwoScale(t *testing.T) {
	f, b := buildFunc()
	idx := f.NewVar(ir.I32)
	addr := emitArith(b, f, ir.Mul, ir.Var(idx, ir.I32), ir.ConstInt(ir.I32, 3))

	af := NewAddrModeFolder(f)
	mode := af.Fold(ir.Var(addr, ir.I32))

	require.Equal(t, addr, mode.Base)
	require.Equal(t, ir.NoVar, mode.Index)
}

// A multi-block-live base stops the walk before chasing its own def,
// even though that def would otherwise fold further — per the Open
// Question decision recorded in DESIGN.md (multi-block-live stands in
// for "multiple uses").
func TestFoldStopsAtMultiBlockLiveBase(t *testing.T) {
	f, b := buildFunc()
	base2 := f.NewVar(ir.I32)
	base := emitArith(b, f, ir.Add, ir.Var(base2, ir.I32), ir.ConstInt(ir.I32, 100))
	f.Var(base).MultiBlockLive = true
	addr := emitArith(b, f, ir.Add, ir.Var(base, ir.I32), ir.ConstInt(ir.I32, 4))

	af := NewAddrModeFolder(f)
	mode := af.Fold(ir.Var(addr, ir.I32))

	require.Equal(t, base, mode.Base)
	require.True(t, mode.HasOffset)
	require.EqualValues(t, 4, mode.Offset)
}
