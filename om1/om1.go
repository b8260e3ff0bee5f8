// Package om1 implements the "Om1" colourer (spec.md §4.12): a cheap,
// single-pass-per-direction stand-in for a real linear-scan allocator,
// used whenever options.Flags.Opt is Om1 rather than O2. It only hands
// out registers to the infinite-weight temporaries lowering fabricates
// for instructions whose ISA encoding demands a register operand (a
// fake-def target, a division result, an address-mode base); ordinary
// named variables stay on the stack and are resolved by package frame.
//
// Two passes, mirroring the last-use tracking the teacher's backend0/gen
// package does per block before emitting a function:
//
//  1. backward over the whole flattened instruction stream, recording
//     each Variable's last-use point and the set of registers any
//     precoloured Variable ever occupies (those never enter the free
//     pool at all);
//  2. forward, assigning a free register of the right class to every
//     infinite-weight Variable it meets without one, returning a
//     register to the free pool the instant its owner's last use is
//     reached.
//
// FakeKill instructions are skipped entirely by both passes: they exist
// only to tell a real allocator a call clobbers the caller-saved bank,
// so they add no use and no last-use point here (spec.md §4.12). Their
// operands are still precoloured Variables of f, so blacklisted keeps
// every register a call kills out of the free pool for the whole
// function.
package om1

import (
	"x32cg/asm"
	"x32cg/ir"
)

// Allocate walks mf and assigns a physical register to every eligible
// Variable in f, mutating Variable.Reg in place. It must run after
// lowering and before package frame, which expects HasReg() to already
// reflect the final answer for every Variable it sees.
func Allocate(f *ir.Function, mf *asm.MachineFunction) {
	flat := flatten(mf)
	lastUse := computeLastUse(flat)
	free := newFreePool(blacklisted(f))
	colour(f, flat, lastUse, free)
}

// flatten lists every MachineInstr across mf's blocks in emission
// order. Om1 treats the whole function as one linear stream: a Variable
// precoloured or coloured here keeps the same register across block
// boundaries, since nothing downstream re-examines the assignment.
func flatten(mf *asm.MachineFunction) []asm.MachineInstr {
	var out []asm.MachineInstr
	for _, blk := range mf.Blocks {
		out = append(out, blk.Instrs...)
	}
	return out
}

// collectVars returns the distinct Variable IDs an instruction's
// operands reference, in a deterministic (operand, then base-before-
// index) order.
func collectVars(mi asm.MachineInstr) []ir.VarID {
	var out []ir.VarID
	seen := map[ir.VarID]bool{}
	add := func(id ir.VarID) {
		if id == ir.NoVar || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, op := range mi.Operands {
		switch op.Kind {
		case ir.OperandVariable:
			add(op.Var)
		case ir.OperandMemory:
			add(op.Base)
			add(op.Index)
		}
	}
	return out
}

// computeLastUse scans flat backward; the first time (walking
// backward) a Variable is touched is its last use in forward order.
func computeLastUse(flat []asm.MachineInstr) map[ir.VarID]int {
	lastUse := map[ir.VarID]int{}
	for i := len(flat) - 1; i >= 0; i-- {
		mi := flat[i]
		if mi.Mnemonic == asm.FakeKill {
			continue
		}
		for _, id := range collectVars(mi) {
			if _, ok := lastUse[id]; !ok {
				lastUse[id] = i
			}
		}
	}
	return lastUse
}

// blacklisted reports every register some precoloured Variable
// occupies anywhere in f: those registers never enter the free pool,
// so Om1 never hands one out from under a fixed-register operand
// (div's dividend, a call's argument/return registers, ...).
func blacklisted(f *ir.Function) map[asm.Reg]bool {
	out := map[asm.Reg]bool{}
	for _, v := range f.Vars {
		if v.HasReg() {
			out[v.Reg] = true
		}
	}
	return out
}

// freePool tracks, per register class, which registers are currently
// unclaimed. ESP/EBP never participate: they are frame plumbing, not
// allocator-visible (asm.CalleeSaved/CallerSaved's own doc comment).
type freePool struct {
	gp  map[asm.Reg]bool
	xmm map[asm.Reg]bool
}

func newFreePool(black map[asm.Reg]bool) *freePool {
	fp := &freePool{gp: map[asm.Reg]bool{}, xmm: map[asm.Reg]bool{}}
	for _, r := range []asm.Reg{asm.EAX, asm.ECX, asm.EDX, asm.EBX, asm.ESI, asm.EDI} {
		if !black[r] {
			fp.gp[r] = true
		}
	}
	for _, r := range asm.XMMRegisters {
		if !black[r] {
			fp.xmm[r] = true
		}
	}
	return fp
}

// poolFor picks the pool (and its members in deterministic, ascending
// register-number order) a type draws from, or reports ineligible for
// types Om1 never register-allocates (i64 is always split into i32
// halves before this point; anything else keeps its WeightZero/Finite
// status and stays on the stack).
func (fp *freePool) poolFor(t ir.Type) (map[asm.Reg]bool, []asm.Reg, bool) {
	switch {
	case t.IsVector() || t.IsFloat():
		return fp.xmm, asm.XMMRegisters, true
	case t.IsInteger() && t != ir.I64:
		return fp.gp, asm.GPRegisters, true
	default:
		return nil, nil, false
	}
}

// take picks the lowest-numbered free register of t's class and
// removes it from the pool, or reports false if none is free.
func (fp *freePool) take(t ir.Type) (asm.Reg, bool) {
	pool, order, ok := fp.poolFor(t)
	if !ok {
		return 0, false
	}
	for _, r := range order {
		if pool[r] {
			delete(pool, r)
			return r, true
		}
	}
	return 0, false
}

func (fp *freePool) release(t ir.Type, r asm.Reg) {
	pool, _, ok := fp.poolFor(t)
	if !ok {
		return
	}
	pool[r] = true
}

// colour runs the forward pass: assign, then release at last use.
// coloured records which variables actually came out of the free
// pool — a precoloured Variable (a fixed-register operand like div's
// dividend) also satisfies HasReg() but must never be released back
// into circulation, since its register stays blacklisted for the
// whole function.
func colour(f *ir.Function, flat []asm.MachineInstr, lastUse map[ir.VarID]int, free *freePool) {
	coloured := map[ir.VarID]bool{}
	for i, mi := range flat {
		if mi.Mnemonic == asm.FakeKill {
			continue
		}
		ids := collectVars(mi)
		for _, id := range ids {
			v := f.Var(id)
			if v.HasReg() || v.Weight != ir.WeightInfinite {
				continue
			}
			if r, ok := free.take(v.Type); ok {
				v.Reg = r
				coloured[id] = true
			}
		}
		for _, id := range ids {
			if !coloured[id] || lastUse[id] != i {
				continue
			}
			v := f.Var(id)
			free.release(v.Type, v.Reg)
		}
	}
}
