package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/asm"
	"x32cg/ir"
	"x32cg/options"
)

func newLegalizeContext(f *ir.Function, b *ir.BasicBlock, g *ir.GlobalContext) *Context {
	mf := asm.NewMachineFunction(f.Name)
	mb := mf.NewBlock(b.ID, b.Label)
	return NewContextWithGlobal(f, b, mf, mb, options.Default(), g)
}

// TestLegalizeInternsFloatConstantsIntoSharedPool confirms a float
// operand's PoolIndex is assigned by Legalize rather than left at its
// ConstFloat zero value, and that two Contexts sharing one GlobalContext
// (as cmd/x32cg's concurrent driver does) see the same pool.
func TestLegalizeInternsFloatConstantsIntoSharedPool(t *testing.T) {
	g := ir.NewGlobalContext()

	f1 := ir.NewFunction("f1")
	b1 := f1.NewBlock("f1$entry")
	f2 := ir.NewFunction("f2")
	b2 := f2.NewBlock("f2$entry")

	first := ir.ConstFloat(1.5)
	require.EqualValues(t, -1, first.PoolIndex)

	legalized1 := newLegalizeContext(f1, b1, g).Legalize(first, AllowMem, false, ir.NoReg)
	require.EqualValues(t, 0, legalized1.PoolIndex)

	again := ir.ConstFloat(1.5)
	legalized2 := newLegalizeContext(f2, b2, g).Legalize(again, AllowMem, false, ir.NoReg)
	require.EqualValues(t, 0, legalized2.PoolIndex, "same value interned from a different function must reuse the pool entry")

	other := ir.ConstFloat(2.5)
	legalized3 := newLegalizeContext(f2, b2, g).Legalize(other, AllowMem, false, ir.NoReg)
	require.EqualValues(t, 1, legalized3.PoolIndex)
}

// TestLegalizeInternsDoubleIntoSeparatePool confirms F64 constants use
// the double pool, independent of the float pool's indices.
func TestLegalizeInternsDoubleIntoSeparatePool(t *testing.T) {
	g := ir.NewGlobalContext()
	f := ir.NewFunction("f")
	b := f.NewBlock("f$entry")

	d := ir.ConstDouble(3.14)
	legalized := newLegalizeContext(f, b, g).Legalize(d, AllowMem, false, ir.NoReg)
	require.EqualValues(t, 0, legalized.PoolIndex)
	require.Equal(t, []float64{3.14}, g.Doubles())
	require.Empty(t, g.Floats())
}
