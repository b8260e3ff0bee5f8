package ir

import (
	"fmt"

	"x32cg/diag"
)

// BlockID indexes Function.Blocks.
type BlockID int32

// FlowKind is a basic block's terminator kind.
type FlowKind int

const (
	FlowInvalid FlowKind = iota
	FlowJmp
	FlowBranch
	FlowReturn
	FlowUnreachable
	FlowSwitch
)

// Flow is a basic block's terminator (spec.md §6: Br, Ret, Switch,
// Unreachable).
type Flow struct {
	Kind FlowKind

	Cond        Operand // FlowBranch
	True, False BlockID // FlowBranch / FlowJmp (True only)

	Rets []Operand // FlowReturn

	SwitchVal   Operand // FlowSwitch
	SwitchCases []int64
	SwitchDests []BlockID
	SwitchDefault BlockID
}

// BasicBlock is a straight-line sequence of Instructions ending in a Flow.
type BasicBlock struct {
	ID      BlockID
	Label   string
	Instrs  []Instruction
	Out     Flow
	Visited bool
}

// Emit appends instr at the end of the block — the "insertion cursor" of
// spec.md §2. Lowering routines never insert except at the tail of the
// current block.
func (b *BasicBlock) Emit(instr Instruction) {
	b.Instrs = append(b.Instrs, instr)
}

// Last returns the block's final instruction and true, or the zero value
// and false if the block is empty. Used by the cmpxchg+cmp+br and
// icmp+br fusions to peek at what was just lowered.
func (b *BasicBlock) Last() (Instruction, bool) {
	if len(b.Instrs) == 0 {
		return Instruction{}, false
	}
	return b.Instrs[len(b.Instrs)-1], true
}

// DropLast removes the block's final instruction; used by fusion passes
// that elide a compare once they've confirmed it feeds only a branch.
func (b *BasicBlock) DropLast() {
	b.Instrs = b.Instrs[:len(b.Instrs)-1]
}

// Function is the per-function arena: it owns every Variable and
// Instruction and is never shared across function lowering (spec.md §5).
type Function struct {
	Name         string
	Args         []VarID
	Rets         []Type
	ReturnsTwice bool

	Vars   []*Variable
	Blocks []*BasicBlock
	Entry  BlockID

	HasError   bool
	FirstError *diag.Error

	// NeedsStackAlignment is set by call lowering (spec.md §4.8/§4.11)
	// whenever this function contains a call, forcing frame padding so
	// esp is 16-byte aligned at every call site.
	NeedsStackAlignment bool
}

func NewFunction(name string) *Function {
	return &Function{Name: name, Entry: -1}
}

// NewVar allocates a fresh Variable with WeightFinite and no register or
// stack home; lowering-introduced temporaries typically upgrade Weight
// to WeightInfinite immediately afterward (spec.md §4.2).
func (f *Function) NewVar(t Type) VarID {
	id := VarID(len(f.Vars))
	f.Vars = append(f.Vars, &Variable{
		ID: id, Type: t, Reg: NoReg, Weight: WeightFinite,
		LocalUseBlock: -1, Preferred: NoVar, Lo: NoVar, Hi: NoVar,
	})
	return id
}

// NewTemp allocates an infinite-weight temporary, as spec.md §4.2's
// emitter helpers do whenever a destination operand is omitted.
func (f *Function) NewTemp(t Type) VarID {
	id := f.NewVar(t)
	f.Vars[id].Weight = WeightInfinite
	return id
}

func (f *Function) Var(id VarID) *Variable {
	if id == NoVar {
		return nil
	}
	return f.Vars[id]
}

// SplitVar lazily materialises the (lo, hi) i32 halves of an i64
// Variable with stable identity (spec.md §3, §4.3): calling it twice for
// the same Variable returns the same pair of VarIDs.
func (f *Function) SplitVar(id VarID) (lo, hi VarID) {
	v := f.Var(id)
	if v.Type != I64 {
		panic("ir: SplitVar on non-i64 variable")
	}
	if v.IsSplit() {
		return v.Lo, v.Hi
	}
	lo = f.NewVar(I32)
	hi = f.NewVar(I32)
	f.Vars[lo].Name = v.Name + "__lo"
	f.Vars[hi].Name = v.Name + "__hi"
	f.Vars[lo].Weight = v.Weight
	f.Vars[hi].Weight = v.Weight
	v.Lo, v.Hi = lo, hi
	return lo, hi
}

func (f *Function) NewBlock(label string) *BasicBlock {
	id := BlockID(len(f.Blocks))
	bb := &BasicBlock{ID: id, Label: label}
	f.Blocks = append(f.Blocks, bb)
	if f.Entry == -1 {
		f.Entry = id
	}
	return bb
}

func (f *Function) Block(id BlockID) *BasicBlock { return f.Blocks[id] }

// SetError records the first fatal error for this function's lowering
// and flips HasError; every lower.Lower* entry point checks HasError
// first and short-circuits (spec.md §7). idx is the offending
// instruction's index within its block, or -1 for a whole-function
// check with no single instruction to blame.
func (f *Function) SetError(kind diag.Kind, idx int, format string, args ...interface{}) {
	if f.HasError {
		return
	}
	f.HasError = true
	f.FirstError = &diag.Error{Kind: kind, Func: f.Name, InstrIdx: idx, Message: fmt.Sprintf(format, args...)}
}
