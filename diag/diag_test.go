package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStringTable(t *testing.T) {
	cases := map[Kind]string{
		UnsupportedCast:       "unsupported-cast",
		InvalidMemoryOrdering: "invalid-memory-ordering",
		PhiInRegularStream:    "phi-in-regular-stream",
		UnknownIntrinsic:      "unknown-intrinsic",
		BadArithmeticTypes:    "bad-arithmetic-types",
	}
	for k, want := range cases {
		require.Equal(t, want, k.String())
	}
}

func TestNewWrapsKindAndMessage(t *testing.T) {
	err := New(BadArithmeticTypes, "sum_array", 3, "cannot add %s and %s", "i32", "v4i32")
	require.Error(t, err)
	require.Contains(t, err.Error(), "sum_array")
	require.Contains(t, err.Error(), "bad-arithmetic-types")
	require.Contains(t, err.Error(), "cannot add i32 and v4i32")
}

func TestErrorMessageFormatsInstructionIndex(t *testing.T) {
	e := &Error{Kind: UnknownIntrinsic, Func: "f", InstrIdx: 7, Message: "no lowering for llvm.foo"}
	require.Equal(t, "f: instr #7: unknown-intrinsic: no lowering for llvm.foo", e.Error())
}
