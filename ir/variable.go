package ir

// PhysReg names a physical x86-32 register slot by number. The mapping
// from number to mnemonic lives in the asm package; ir only needs
// identity and the "unset" sentinel.
type PhysReg int32

// NoReg marks a Variable with no assigned physical register.
const NoReg PhysReg = -1

// RegWeight models how strongly the (external) register allocator should
// prefer to keep a Variable in a register: Zero means "never", Finite is
// the ordinary case (weighted by use count elsewhere), Infinite forces a
// register and is used for lowering temporaries that must not be spilled
// mid-sequence (fake-def targets, division results, ...).
type RegWeight int

const (
	WeightZero RegWeight = iota
	WeightFinite
	WeightInfinite
)

// VarID is an arena index into Function.Vars. Using indices rather than
// pointers keeps clone/relocation cheap and avoids reference cycles in
// the Preferred back-reference (see DESIGN.md Open Question notes).
type VarID int32

// NoVar marks the absence of a Variable reference.
const NoVar VarID = -1

// Variable is a symbolic value: a register- or stack-resident SSA-ish
// name, a function argument, or a lowering-introduced temporary.
type Variable struct {
	ID   VarID
	Name string
	Type Type

	Reg    PhysReg // set iff precoloured or allocated
	Offset int32   // set iff HasOffset; mutually exclusive with Reg at emit time
	HasOffset bool

	Weight         RegWeight
	MultiBlockLive bool
	IsArgument     bool

	// LocalUseBlock identifies the single block a single-block-lived
	// Variable is confined to; -1 when MultiBlockLive or unknown. The
	// frame builder uses this (together with MultiBlockLive) to bucket
	// variables into the globals vs. locals spill areas (spec.md §4.11).
	LocalUseBlock int32

	Preferred             VarID
	PreferredAllowOverlap bool

	// IsAlloca marks a frame-resident variable created by OpAlloca:
	// AllocaSize bytes, never register-assigned, bucketed into frame
	// region 8 rather than the ordinary spill areas (spec.md §4.11).
	IsAlloca   bool
	AllocaSize int32

	// Lo/Hi are the i32 halves of an i64 Variable, lazily materialised
	// by Function.SplitVar and then stable for the Variable's lifetime.
	Lo VarID
	Hi VarID
}

func (v *Variable) HasReg() bool { return v.Reg != NoReg }

// IsSplit reports whether SplitVar has already materialised this i64
// Variable's halves.
func (v *Variable) IsSplit() bool { return v.Lo != NoVar }
