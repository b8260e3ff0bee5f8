package asm

import "x32cg/ir"

// MachineInstr is one lowered x86 instruction. Operands keep using
// ir.Operand — a Variable operand's final text (register name vs. stack
// slot) isn't decided until after register allocation and frame layout,
// so the machine list stays abstract exactly as long as the IR does
// (spec.md §4.2, mirroring how the teacher's mir.Instr keeps pir.Operand
// operands instead of lowering straight to text).
type MachineInstr struct {
	Mnemonic string
	Operands []ir.Operand // Intel order: destination first, when there is one
	Comment  string

	// IsLock prefixes the textual instruction with "lock " (spec.md §4.8/§4.9).
	IsLock bool
}

// MachineBlock is the lowered counterpart of an ir.BasicBlock: same ID
// and label, but its Instrs are machine instructions instead of IR ones.
// Out is copied from the source block unchanged; lowering turns it into
// Jmp/Jcc/Ret instructions appended to Instrs.
type MachineBlock struct {
	ID     ir.BlockID
	Label  string
	Instrs []MachineInstr
	Out    ir.Flow
}

func (b *MachineBlock) Emit(mi MachineInstr) {
	b.Instrs = append(b.Instrs, mi)
}

// MachineFunction is a Function after lowering: one MachineBlock per
// input block, plus the frame metadata the frame package fills in once
// register allocation has run.
type MachineFunction struct {
	Name   string
	Blocks []*MachineBlock

	// FrameSize is set by package frame, which also splices the prolog
	// and epilogs into Blocks; zero until then.
	FrameSize int32
}

func NewMachineFunction(name string) *MachineFunction {
	return &MachineFunction{Name: name}
}

func (mf *MachineFunction) NewBlock(id ir.BlockID, label string) *MachineBlock {
	mb := &MachineBlock{ID: id, Label: label}
	mf.Blocks = append(mf.Blocks, mb)
	return mb
}

// Cursor is the insertion point lowering routines write through (spec.md
// §4.2's "Instruction Emitters"): a fixed MachineBlock plus the owning
// Function, needed to fabricate destination temporaries on demand.
type Cursor struct {
	Block *MachineBlock
	Func  *ir.Function
}

func NewCursor(b *MachineBlock, f *ir.Function) *Cursor {
	return &Cursor{Block: b, Func: f}
}

func (c *Cursor) emit(mnemonic string, lock bool, ops ...ir.Operand) {
	c.Block.Emit(MachineInstr{Mnemonic: mnemonic, Operands: ops, IsLock: lock})
}

// Nullary emits a zero-operand instruction (ret, cdq, leave, mfence, ...).
func (c *Cursor) Nullary(mnemonic string) { c.emit(mnemonic, false) }

// Unary emits a one-operand instruction (push, pop, neg, idiv, jmp, ...).
func (c *Cursor) Unary(mnemonic string, op ir.Operand) { c.emit(mnemonic, false, op) }

// Bin emits a two-operand instruction in Intel dst, src order.
func (c *Cursor) Bin(mnemonic string, dst, src ir.Operand) { c.emit(mnemonic, false, dst, src) }

// Tern emits a three-operand instruction (shld/shrd's shift count,
// pinsrX/pextrX's lane index, cmpps's predicate immediate).
func (c *Cursor) Tern(mnemonic string, dst, src, third ir.Operand) {
	c.emit(mnemonic, false, dst, src, third)
}

// Jmp and Jcc emit an unconditional or conditional jump to a label,
// rendered as a relocatable symbol operand.
func (c *Cursor) Jmp(label string) {
	c.emit("jmp", false, ir.ConstRelocatable(ir.Void, label, 0))
}

func (c *Cursor) Jcc(suffix string, label string) {
	c.emit("j"+suffix, false, ir.ConstRelocatable(ir.Void, label, 0))
}

// LockBin emits a lock-prefixed read-modify-write instruction, used by
// atomic RMW and cmpxchg lowering (spec.md §4.9).
func (c *Cursor) LockBin(mnemonic string, dst, src ir.Operand) {
	c.emit(mnemonic, true, dst, src)
}

func (c *Cursor) LockUnary(mnemonic string, op ir.Operand) {
	c.emit(mnemonic, true, op)
}

// Comment attaches a trailing comment to the instruction just emitted;
// used sparingly, to annotate non-obvious fusions the way fasm.go
// annotates spill reloads.
func (c *Cursor) Comment(text string) {
	if n := len(c.Block.Instrs); n > 0 {
		c.Block.Instrs[n-1].Comment = text
	}
}

// Dest returns *dst if it already names a Variable or Memory location,
// otherwise fabricates an infinite-weight temporary of type t, stores it
// into *dst and returns it. This is the "destination operand is
// optional" emitter convention of spec.md §4.2: callers that don't care
// where a result lands get a fresh register-preferring temp for free.
func (c *Cursor) Dest(t ir.Type, dst *ir.Operand) ir.Operand {
	if dst.Kind != ir.OperandInvalid {
		return *dst
	}
	id := c.Func.NewTemp(t)
	*dst = ir.Var(id, t)
	return *dst
}
