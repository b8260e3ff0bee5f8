package frame

import (
	"x32cg/ir"
)

// scanUsed reports every VarID actually referenced by the lowered
// instruction stream — a Variable that never made it past lowering
// (dead by construction, e.g. an unread argument) needs no frame slot
// at all (spec.md §4.11's "empty-live-range" category).
func (b *Builder) scanUsed() map[ir.VarID]bool {
	used := map[ir.VarID]bool{}
	mark := func(op ir.Operand) {
		switch op.Kind {
		case ir.OperandVariable:
			used[op.Var] = true
		case ir.OperandMemory:
			if op.Base != ir.NoVar {
				used[op.Base] = true
			}
			if op.Index != ir.NoVar {
				used[op.Index] = true
			}
		}
	}
	for _, blk := range b.mf.Blocks {
		for _, instr := range blk.Instrs {
			for _, op := range instr.Operands {
				mark(op)
			}
		}
	}
	return used
}

// layoutSpills classifies every remaining Variable (not a register, not
// an argument leaf, not an alloca) into the globals or locals spill
// area, then appends the call-alignment padding and the alloca region.
func (b *Builder) layoutSpills() {
	used := b.scanUsed()

	var globals []packItem
	var allocas []packItem
	locals := map[int32][]ir.VarID{} // keyed by LocalUseBlock
	var deferred []*ir.Variable

	for _, v := range b.f.Vars {
		if v.HasReg() {
			continue
		}
		if _, isArg := b.slots[v.ID]; isArg {
			continue
		}
		if _, isPendingXMM := b.pendingXMMArgReg[v.ID]; isPendingXMM {
			continue
		}
		if v.IsAlloca {
			size := v.AllocaSize
			if size <= 0 {
				size = 4
			}
			size = alignUp(size, 16) // keeps region 7's call-alignment padding valid
			allocas = append(allocas, packItem{id: v.ID, size: size})
			continue
		}
		if !used[v.ID] {
			continue // empty live range: never referenced, no slot needed
		}
		if v.Preferred != ir.NoVar {
			deferred = append(deferred, v)
			continue
		}
		if v.MultiBlockLive {
			globals = append(globals, packItem{id: v.ID, size: int32(v.Type.SizeInBytes())})
		} else {
			locals[v.LocalUseBlock] = append(locals[v.LocalUseBlock], v.ID)
		}
	}

	for _, it := range b.pendingXMMArgs {
		globals = append(globals, it)
	}

	// reserved is the space below ebp already consumed by the preserved-
	// register pushes (ebp's own save slot sits at [ebp, ebp+4), not
	// below it, so it isn't counted here).
	reserved := int32(0)
	for range b.preserved {
		reserved += 4
	}

	cur := reserved

	globalsAlign := int32(4)
	for _, it := range globals {
		if a := sizeAlign(it.size); a > globalsAlign {
			globalsAlign = a
		}
	}
	cur = alignUp(cur, globalsAlign)
	globalsBytes, globalOffs := packDistinct(globals)
	for id, off := range globalOffs {
		b.slots[id] = slot{offset: -(cur + off)}
	}
	for id, reg := range b.pendingXMMArgReg {
		off, ok := globalOffs[id]
		if !ok {
			continue
		}
		b.spillFixups = append(b.spillFixups, spillFixup{
			t: b.f.Var(id).Type, xmmReg: reg, offset: -(cur + off),
		})
	}
	cur += globalsBytes

	// Locals: one shared bank per size bucket, sized to the busiest
	// single block (spec.md §4.11's SimpleCoalescing) — unless the
	// function calls a returns-twice function, in which case every
	// local gets its own distinct slot instead, since a longjmp back in
	// could resume a block whose locals would otherwise have been
	// overwritten by a sibling block's reuse of the same bank.
	if b.f.ReturnsTwice {
		var distinct []packItem
		for _, ids := range locals {
			for _, id := range ids {
				distinct = append(distinct, packItem{id: id, size: int32(b.f.Var(id).Type.SizeInBytes())})
			}
		}
		localsAlign := int32(4)
		for _, it := range distinct {
			if a := sizeAlign(it.size); a > localsAlign {
				localsAlign = a
			}
		}
		cur = alignUp(cur, localsAlign)
		bytes, offs := packDistinct(distinct)
		for id, off := range offs {
			b.slots[id] = slot{offset: -(cur + off)}
		}
		cur += bytes
	} else {
		cur += b.layoutCoalescedLocals(locals, cur)
	}

	// Region 7: call-site alignment padding. The prolog pushes ebp plus
	// len(preserved) registers before `sub esp, N`; ebp sits 8 bytes past
	// a 16-byte boundary, so padding cur to 8 mod 16 leaves esp 16-byte
	// aligned and lower.Context.Call's own 16-byte parameter-area rounding
	// stays valid at every call site this function makes.
	if b.f.NeedsStackAlignment {
		for (cur % 16) != 8 {
			cur++
		}
	}

	allocaBytes, allocaOffs := packDistinct(allocas)
	for id, off := range allocaOffs {
		b.slots[id] = slot{offset: -(cur + off)}
	}
	cur += allocaBytes

	for _, v := range deferred {
		if s, ok := b.slots[v.Preferred]; ok {
			b.slots[v.ID] = s
			continue
		}
		// Preferred target never got a slot of its own (e.g. it lives
		// in a register): fall back to a private slot, top-level.
		size := int32(v.Type.SizeInBytes())
		cur = alignUp(cur, sizeAlign(size))
		b.slots[v.ID] = slot{offset: -cur}
		cur += size
	}

	b.frameSize = cur - reserved
}

// layoutCoalescedLocals buckets single-block-lived variables by size,
// sizing each bucket's shared bank to the block with the most
// simultaneous locals of that size, and returns the bytes consumed.
func (b *Builder) layoutCoalescedLocals(locals map[int32][]ir.VarID, cur int32) int32 {
	type bySize map[int32][]ir.VarID
	perBlock := map[int32]bySize{}
	for blockID, ids := range locals {
		bs := bySize{}
		for _, id := range ids {
			sz := int32(b.f.Var(id).Type.SizeInBytes())
			bs[sz] = append(bs[sz], id)
		}
		perBlock[blockID] = bs
	}

	maxCount := map[int32]int{}
	for _, bs := range perBlock {
		for sz, ids := range bs {
			if len(ids) > maxCount[sz] {
				maxCount[sz] = len(ids)
			}
		}
	}

	var sizes []int32
	for sz := range maxCount {
		sizes = append(sizes, sz)
	}
	for i := 0; i < len(sizes); i++ {
		for j := i + 1; j < len(sizes); j++ {
			if sizes[j] > sizes[i] {
				sizes[i], sizes[j] = sizes[j], sizes[i]
			}
		}
	}

	bankBase := map[int32]int32{}
	start := cur
	for _, sz := range sizes {
		start = alignUp(start, sizeAlign(sz))
		bankBase[sz] = start
		start += int32(maxCount[sz]) * sz
	}

	for _, bs := range perBlock {
		for sz, ids := range bs {
			for i, id := range ids {
				off := bankBase[sz] + int32(i)*sz
				b.slots[id] = slot{offset: -off}
			}
		}
	}

	return start - cur
}
