package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/diag"
)

func TestNewFunctionStartsWithNoEntryBlock(t *testing.T) {
	f := NewFunction("f")
	require.Equal(t, BlockID(-1), f.Entry)
	require.Empty(t, f.Blocks)
}

func TestNewBlockSetsEntryOnlyOnce(t *testing.T) {
	f := NewFunction("f")
	first := f.NewBlock("f$entry")
	second := f.NewBlock("f$l1")

	require.Equal(t, first.ID, f.Entry)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, f.Block(second.ID), second)
}

func TestNewVarDefaultsToFiniteWeightAndNoHome(t *testing.T) {
	f := NewFunction("f")
	id := f.NewVar(I32)
	v := f.Var(id)

	require.Equal(t, NoReg, v.Reg)
	require.Equal(t, WeightFinite, v.Weight)
	require.Equal(t, NoVar, v.Lo)
	require.Equal(t, NoVar, v.Hi)
	require.False(t, v.IsSplit())
}

func TestNewTempUpgradesToInfiniteWeight(t *testing.T) {
	f := NewFunction("f")
	id := f.NewTemp(I32)
	require.Equal(t, WeightInfinite, f.Var(id).Weight)
}

func TestVarOfNoVarReturnsNil(t *testing.T) {
	f := NewFunction("f")
	require.Nil(t, f.Var(NoVar))
}

func TestSplitVarIsStableAcrossCalls(t *testing.T) {
	f := NewFunction("f")
	id := f.NewVar(I64)

	lo1, hi1 := f.SplitVar(id)
	lo2, hi2 := f.SplitVar(id)

	require.Equal(t, lo1, lo2)
	require.Equal(t, hi1, hi2)
	require.True(t, f.Var(id).IsSplit())
}

func TestSplitVarPanicsOnNonI64(t *testing.T) {
	f := NewFunction("f")
	id := f.NewVar(I32)
	require.Panics(t, func() { f.SplitVar(id) })
}

func TestSetErrorKeepsFirstError(t *testing.T) {
	f := NewFunction("f")
	f.SetError(diag.BadArithmeticTypes, 3, "first: %d", 1)
	f.SetError(diag.UnsupportedCast, 7, "second")

	require.True(t, f.HasError)
	require.Equal(t, diag.BadArithmeticTypes, f.FirstError.Kind)
	require.Equal(t, 3, f.FirstError.InstrIdx)
	require.Equal(t, "first: 1", f.FirstError.Message)
}

func TestBasicBlockLastAndDropLast(t *testing.T) {
	b := &BasicBlock{ID: 0, Label: "f$entry"}
	_, ok := b.Last()
	require.False(t, ok)

	b.Emit(Instruction{Op: OpAssign, Type: I32})
	b.Emit(Instruction{Op: OpArith, Type: I32})

	last, ok := b.Last()
	require.True(t, ok)
	require.Equal(t, OpArith, last.Op)

	b.DropLast()
	require.Len(t, b.Instrs, 1)
	last, _ = b.Last()
	require.Equal(t, OpAssign, last.Op)
}
