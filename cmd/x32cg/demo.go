package main

import "x32cg/ir"

// demoFunctions builds a small, fixed set of ir.Function values by hand
// and runs them through the full pipeline. Building IR from source text
// is an external collaborator's job (spec.md §1's "IR parsing/
// construction... out of scope"); this driver exists to exercise the
// backend as a real program the way the teacher's cmd/*/main.go runs a
// handful of built-in programs through its own pipeline.
func demoFunctions() []*ir.Function {
	return []*ir.Function{addI32(), maxI32(), sumArray()}
}

func newArg(f *ir.Function, t ir.Type) ir.VarID {
	id := f.NewVar(t)
	v := f.Var(id)
	v.IsArgument = true
	f.Args = append(f.Args, id)
	return id
}

// addI32 builds `i32 add_i32(i32 a, i32 b) { return a + b; }`.
func addI32() *ir.Function {
	f := ir.NewFunction("add_i32")
	f.Rets = []ir.Type{ir.I32}

	a := newArg(f, ir.I32)
	b := newArg(f, ir.I32)

	entry := f.NewBlock("add_i32$entry")
	dest := f.NewVar(ir.I32)
	f.Var(dest).LocalUseBlock = int32(entry.ID)
	entry.Emit(ir.Instruction{
		Op: ir.OpArith, Type: ir.I32, SubOp: int(ir.Add),
		Operands: []ir.Operand{ir.Var(a, ir.I32), ir.Var(b, ir.I32)},
		Dest:     ir.Var(dest, ir.I32),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(dest, ir.I32)}}

	return f
}

// maxI32 builds `i32 max_i32(i32 a, i32 b) { if (a > b) return a; return b; }`,
// exercising icmp+branch fusion and a two-exit control flow graph.
func maxI32() *ir.Function {
	f := ir.NewFunction("max_i32")
	f.Rets = []ir.Type{ir.I32}

	a := newArg(f, ir.I32)
	b := newArg(f, ir.I32)

	entry := f.NewBlock("max_i32$entry")
	thenBlk := f.NewBlock("max_i32$then")
	elseBlk := f.NewBlock("max_i32$else")

	cond := f.NewVar(ir.I1)
	f.Var(cond).LocalUseBlock = int32(entry.ID)
	entry.Emit(ir.Instruction{
		Op: ir.OpIcmp, Type: ir.I1, ICond: ir.ICondSGT,
		Operands: []ir.Operand{ir.Var(a, ir.I32), ir.Var(b, ir.I32)},
		Dest:     ir.Var(cond, ir.I1),
		HasDest:  true,
	})
	entry.Out = ir.Flow{Kind: ir.FlowBranch, Cond: ir.Var(cond, ir.I1), True: thenBlk.ID, False: elseBlk.ID}

	thenBlk.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(a, ir.I32)}}
	elseBlk.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(b, ir.I32)}}

	return f
}

// sumArray builds `i32 sum_array(i32* p, i32 n) { i32 acc = 0; for (i32 i
// = 0; i < n; i++) acc += p[i]; return acc; }` via a loop header/body/
// exit shape and phi nodes for acc and i, exercising phi resolution,
// address-mode folding (p[i]) and multi-block-live spilling.
func sumArray() *ir.Function {
	f := ir.NewFunction("sum_array")
	f.Rets = []ir.Type{ir.I32}

	p := newArg(f, ir.I32) // pointer, modelled as an i32 address
	n := newArg(f, ir.I32)

	preheader := f.NewBlock("sum_array$preheader")
	header := f.NewBlock("sum_array$header")
	body := f.NewBlock("sum_array$body")
	exit := f.NewBlock("sum_array$exit")

	zero := f.NewVar(ir.I32)
	f.Var(zero).LocalUseBlock = int32(preheader.ID)
	preheader.Emit(ir.Instruction{
		Op: ir.OpAssign, Type: ir.I32,
		Operands: []ir.Operand{ir.ConstInt(ir.I32, 0)},
		Dest:     ir.Var(zero, ir.I32),
		HasDest:  true,
	})
	preheader.Out = ir.Flow{Kind: ir.FlowJmp, True: header.ID}

	// acc and i are defined by phis in header and read again in body: live
	// across more than one block, so the frame builder must put them in
	// the globals area rather than a block-coalesced locals bank.
	acc := f.NewVar(ir.I32)
	i := f.NewVar(ir.I32)
	f.Var(acc).Name, f.Var(i).Name = "acc", "i" // aids any future dump
	f.Var(acc).MultiBlockLive = true
	f.Var(i).MultiBlockLive = true

	cmp := f.NewVar(ir.I1)
	f.Var(cmp).LocalUseBlock = int32(header.ID)
	header.Emit(ir.Instruction{
		Op: ir.OpIcmp, Type: ir.I1, ICond: ir.ICondSLT,
		Operands: []ir.Operand{ir.Var(i, ir.I32), ir.Var(n, ir.I32)},
		Dest:     ir.Var(cmp, ir.I1),
		HasDest:  true,
	})
	header.Out = ir.Flow{Kind: ir.FlowBranch, Cond: ir.Var(cmp, ir.I1), True: body.ID, False: exit.ID}

	// off = i*4; addr = p+off — left as ordinary Arith/Assign so the
	// address-mode folder rediscovers the [base+index*4] memory form by
	// walking the def chain, the same way it would for folded IR coming
	// out of a real front end (spec.md §4.10).
	off := f.NewVar(ir.I32)
	f.Var(off).LocalUseBlock = int32(body.ID)
	body.Emit(ir.Instruction{
		Op: ir.OpArith, Type: ir.I32, SubOp: int(ir.Mul),
		Operands: []ir.Operand{ir.Var(i, ir.I32), ir.ConstInt(ir.I32, 4)},
		Dest:     ir.Var(off, ir.I32),
		HasDest:  true,
	})
	addr := f.NewVar(ir.I32)
	f.Var(addr).LocalUseBlock = int32(body.ID)
	body.Emit(ir.Instruction{
		Op: ir.OpArith, Type: ir.I32, SubOp: int(ir.Add),
		Operands: []ir.Operand{ir.Var(p, ir.I32), ir.Var(off, ir.I32)},
		Dest:     ir.Var(addr, ir.I32),
		HasDest:  true,
	})

	elem := f.NewVar(ir.I32)
	f.Var(elem).LocalUseBlock = int32(body.ID)
	body.Emit(ir.Instruction{
		Op: ir.OpLoad, Type: ir.I32,
		Operands: []ir.Operand{ir.Var(addr, ir.I32)},
		Dest:     ir.Var(elem, ir.I32),
		HasDest:  true,
	})
	accNext := f.NewVar(ir.I32)
	f.Var(accNext).LocalUseBlock = int32(body.ID)
	body.Emit(ir.Instruction{
		Op: ir.OpArith, Type: ir.I32, SubOp: int(ir.Add),
		Operands: []ir.Operand{ir.Var(acc, ir.I32), ir.Var(elem, ir.I32)},
		Dest:     ir.Var(accNext, ir.I32),
		HasDest:  true,
	})
	iNext := f.NewVar(ir.I32)
	f.Var(iNext).LocalUseBlock = int32(body.ID)
	body.Emit(ir.Instruction{
		Op: ir.OpArith, Type: ir.I32, SubOp: int(ir.Add),
		Operands: []ir.Operand{ir.Var(i, ir.I32), ir.ConstInt(ir.I32, 1)},
		Dest:     ir.Var(iNext, ir.I32),
		HasDest:  true,
	})
	body.Out = ir.Flow{Kind: ir.FlowJmp, True: header.ID}

	// Phis must precede a block's other instructions: build the pair
	// ahead of the icmp already sitting in header.Instrs and prepend.
	phis := []ir.Instruction{
		{
			Op: ir.OpPhi, Type: ir.I32,
			Dest:      ir.Var(acc, ir.I32),
			HasDest:   true,
			PhiBlocks: []ir.BlockID{preheader.ID, body.ID},
			PhiVals:   []ir.Operand{ir.Var(zero, ir.I32), ir.Var(accNext, ir.I32)},
		},
		{
			Op: ir.OpPhi, Type: ir.I32,
			Dest:      ir.Var(i, ir.I32),
			HasDest:   true,
			PhiBlocks: []ir.BlockID{preheader.ID, body.ID},
			PhiVals:   []ir.Operand{ir.ConstInt(ir.I32, 0), ir.Var(iNext, ir.I32)},
		},
	}
	header.Instrs = append(phis, header.Instrs...)

	exit.Out = ir.Flow{Kind: ir.FlowReturn, Rets: []ir.Operand{ir.Var(acc, ir.I32)}}

	return f
}
