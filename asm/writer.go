package asm

import (
	"fmt"
	"math"

	"x32cg/ir"
)

// llist is a singly-linked chunk of pending text. Appending to a
// builder is O(1); String() walks the list once to size and fill a
// single buffer, avoiding the O(n^2) cost of repeated string
// concatenation (same structure as the teacher's fasm.go builder).
type llist struct {
	s    []byte
	next *llist
}

type builder struct {
	head *llist
	curr *llist
}

func (b *builder) place(s string) {
	n := &llist{s: []byte(s)}
	if b.curr != nil {
		b.curr.next = n
	}
	b.curr = n
	if b.head == nil {
		b.head = n
	}
}

func (b *builder) String() string {
	size := 0
	for c := b.head; c != nil; c = c.next {
		size += len(c.s)
	}
	buf := make([]byte, size)
	i := 0
	for c := b.head; c != nil; c = c.next {
		i += copy(buf[i:], c.s)
	}
	return string(buf)
}

// Writer accumulates a whole translation unit's Intel-syntax text:
// section directives, data declarations and one fasmProc-equivalent
// block sequence per function.
type Writer struct {
	b builder
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Directive(line string) {
	w.b.place(line)
	w.b.place("\n")
}

func (w *Writer) Section(name string) { w.Directive("section '" + name + "'") }

func (w *Writer) DataDecl(label string, declared bool, sizeKeyword, content string) {
	w.b.place(label)
	if declared {
		w.b.place(" d")
	} else {
		w.b.place(" r")
	}
	w.b.place(sizeKeyword)
	w.b.place(" ")
	w.b.place(content)
	w.b.place("\n")
}

func (w *Writer) Label(name string) {
	w.b.place(name)
	w.b.place(":\n")
}

// Function renders a MachineFunction's blocks in order: label, then one
// instruction line per MachineInstr, then the block's terminator text
// (already lowered to Jmp/Jcc/Ret MachineInstrs appended by package
// lower, with package frame's epilog spliced in ahead of each ret —
// Flow itself never reaches the writer for a fully lowered function).
func (w *Writer) Function(mf *MachineFunction, r Resolver) {
	w.Directive(mf.Name + ":")
	for _, blk := range mf.Blocks {
		w.Label(blockLabel(mf.Name, blk))
		for _, instr := range blk.Instrs {
			w.instrLine(instr, r)
		}
	}
	w.b.place("\n")
}

// FloatPool emits every value g has interned as a read-only data
// declaration, labelled to match OperandText's "L$fp32$N"/"L$fp64$N"
// references. Call once, after every function sharing g has finished
// lowering, before writing any function that might reference the pool.
func (w *Writer) FloatPool(g *ir.GlobalContext) {
	for i, v := range g.Floats() {
		w.DataDecl(fmt.Sprintf("L$fp32$%d", i), true, "d", fmt.Sprintf("0x%x", math.Float32bits(v)))
	}
	for i, v := range g.Doubles() {
		w.DataDecl(fmt.Sprintf("L$fp64$%d", i), true, "q", fmt.Sprintf("0x%x", math.Float64bits(v)))
	}
}

func blockLabel(fn string, b *MachineBlock) string {
	if b.Label != "" {
		return b.Label
	}
	return fn + "$L" + itoa(int(b.ID))
}

// fakeMnemonics never reach the final text: FakeUse/FakeKill exist only
// to carry liveness information to the Om1 colourer (spec.md's "the
// emitter elides them").
func isFake(mnemonic string) bool {
	return mnemonic == FakeUse || mnemonic == FakeKill
}

func (w *Writer) instrLine(mi MachineInstr, r Resolver) {
	if isFake(mi.Mnemonic) {
		return
	}
	w.b.place("\t")
	if mi.IsLock {
		w.b.place("lock ")
	}
	w.b.place(mi.Mnemonic)
	if len(mi.Operands) > 0 {
		w.b.place(" ")
		needSize := operandSizeAmbiguous(mi)
		for i, op := range mi.Operands {
			if i > 0 {
				w.b.place(", ")
			}
			w.b.place(OperandText(op, r, needSize && op.Kind == ir.OperandMemory))
		}
	}
	if mi.Comment != "" {
		w.b.place(" ; ")
		w.b.place(mi.Comment)
	}
	w.b.place("\n")
}

// operandSizeAmbiguous reports whether none of the instruction's
// operands is a bare register, in which case a memory operand needs an
// explicit size keyword to disambiguate (spec.md §6).
func operandSizeAmbiguous(mi MachineInstr) bool {
	for _, op := range mi.Operands {
		if op.Kind == ir.OperandVariable {
			return false
		}
	}
	return true
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (w *Writer) String() string { return w.b.String() }
