package condcode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"x32cg/ir"
)

func TestIcmp32Table(t *testing.T) {
	cases := []struct {
		cond ir.IntCond
		want Suffix
	}{
		{ir.ICondEQ, E},
		{ir.ICondNE, NE},
		{ir.ICondSLT, L},
		{ir.ICondSGT, G},
		{ir.ICondULT, B},
		{ir.ICondUGT, A},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Icmp32(c.cond), "cond %v", c.cond)
	}
}

// Negate must be an involution: negating twice returns the original
// suffix, and no jCC should be its own negation.
func TestNegateInvolution(t *testing.T) {
	all := []Suffix{E, NE, L, LE, G, GE, B, BE, A, AE, P, NP}
	for _, s := range all {
		require.Equal(t, s, Negate(Negate(s)), "double negate of %s", s)
		require.NotEqual(t, s, Negate(s), "negate of %s must differ", s)
	}
}

func TestFcmpSynthesizedPredicatesSwapOperands(t *testing.T) {
	swapped := []ir.FloatCond{ir.FCondOGT, ir.FCondOGE, ir.FCondULT, ir.FCondULE}
	for _, c := range swapped {
		require.True(t, SwapsOperands(c), "cond %v should swap operands", c)
	}
	require.False(t, SwapsOperands(ir.FCondOEQ))
}

func TestFcmpOneAndUeqNeedParityFixup(t *testing.T) {
	require.True(t, Fcmp(ir.FCondONE).NeedsParityFixup)
	require.True(t, Fcmp(ir.FCondUEQ).NeedsParityFixup)
	require.False(t, Fcmp(ir.FCondOEQ).NeedsParityFixup)
}

// Icmp64LoUnsigned must always compare the low halves unsigned, even
// when the overall predicate is signed (spec.md §4.3/§4.6).
func TestIcmp64LoUnsignedNeverSigned(t *testing.T) {
	require.Equal(t, B, Icmp64LoUnsigned(ir.ICondSLT))
	require.Equal(t, B, Icmp64LoUnsigned(ir.ICondULT))
	require.Equal(t, A, Icmp64LoUnsigned(ir.ICondSGT))
	require.Equal(t, E, Icmp64LoUnsigned(ir.ICondEQ))
}
