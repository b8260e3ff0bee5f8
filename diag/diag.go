// Package diag collects the diagnostics a lowering run can raise. Every
// error is wrapped with tlog.app/go/errors so a caller gets a stack
// trace without having to have asked for one, matching how the rest of
// this module's ambient stack reports failures (see SPEC_FULL.md §7).
package diag

import (
	"fmt"

	"tlog.app/go/errors"
)

// Kind classifies a lowering failure. Grounded on the teacher's
// core.Error{Code, Severity, Message, Location}, with Severity dropped
// (every error here is fatal) and Location replaced by the originating
// function name plus instruction index, since this backend has no
// source-line tracking of its own.
type Kind int

const (
	UnsupportedCast Kind = iota
	InvalidMemoryOrdering
	PhiInRegularStream
	UnknownIntrinsic
	BadArithmeticTypes
)

func (k Kind) String() string {
	switch k {
	case UnsupportedCast:
		return "unsupported-cast"
	case InvalidMemoryOrdering:
		return "invalid-memory-ordering"
	case PhiInRegularStream:
		return "phi-in-regular-stream"
	case UnknownIntrinsic:
		return "unknown-intrinsic"
	case BadArithmeticTypes:
		return "bad-arithmetic-types"
	}
	return "unknown"
}

// Error is the diagnostic value stored on ir.Function.FirstError.
type Error struct {
	Kind     Kind
	Func     string
	InstrIdx int
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: instr #%d: %s: %s", e.Func, e.InstrIdx, e.Kind, e.Message)
}

// New builds a Kind-tagged, stack-wrapped Error for function fn at
// instruction index idx (-1 if not applicable, e.g. a whole-function
// check).
func New(kind Kind, fn string, idx int, format string, args ...any) error {
	e := &Error{Kind: kind, Func: fn, InstrIdx: idx, Message: fmt.Sprintf(format, args...)}
	return errors.Wrap(e, "lowering %s", fn)
}
