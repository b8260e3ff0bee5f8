package lower

import "x32cg/ir"

// AddrMode is a folded [base + index*scale + offset] address, built by
// walking a Load/Store address's definition chain before it reaches
// OperandText (spec.md §4.10).
type AddrMode struct {
	Base, Index ir.VarID
	Scale       uint8 // log2, 0..3
	Offset      int32
	HasOffset   bool
}

// maxFoldDepth bounds the definition walk; dataflow in a single
// function never needs more than a handful of hops to reach a
// non-foldable def, and a hard bound keeps the walk always
// terminating regardless of pathological input.
const maxFoldDepth = 8

// AddrModeFolder indexes each Variable's single defining instruction
// (Assign or Arith) so FoldAddress can walk backward through copy and
// add/sub/mul chains without a general def-use graph.
type AddrModeFolder struct {
	f    *ir.Function
	defs map[ir.VarID]ir.Instruction
}

func NewAddrModeFolder(f *ir.Function) *AddrModeFolder {
	af := &AddrModeFolder{f: f, defs: make(map[ir.VarID]ir.Instruction)}
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if !instr.HasDest || instr.Dest.Kind != ir.OperandVariable {
				continue
			}
			switch instr.Op {
			case ir.OpAssign, ir.OpArith:
				af.defs[instr.Dest.Var] = instr
			}
		}
	}
	return af
}

// Fold walks addr's definition chain, accumulating index/scale/offset,
// and stops at a base that has multi-block liveness (the chosen
// stand-in for "multiple uses": spec.md §4.10, Open Question decision
// recorded in DESIGN.md), at an unfoldable def, or at maxFoldDepth.
func (af *AddrModeFolder) Fold(addr ir.Operand) AddrMode {
	mode := AddrMode{Base: ir.NoVar, Index: ir.NoVar}
	if addr.Kind != ir.OperandVariable {
		return mode
	}
	mode.Base = addr.Var

	for depth := 0; depth < maxFoldDepth; depth++ {
		v := af.f.Var(mode.Base)
		if v.MultiBlockLive {
			return mode
		}
		def, ok := af.defs[mode.Base]
		if !ok {
			return mode
		}

		switch def.Op {
		case ir.OpAssign:
			src := def.Operands[0]
			if src.Kind != ir.OperandVariable {
				return mode
			}
			mode.Base = src.Var

		case ir.OpArith:
			op := ir.ArithOp(def.SubOp)
			a, b := def.Operands[0], def.Operands[1]
			switch op {
			case ir.Add, ir.Sub:
				if base, k, ok := splitBaseConst(a, b); ok {
					delta := int32(k)
					if op == ir.Sub {
						delta = -delta
					}
					mode.Offset += delta
					mode.HasOffset = true
					mode.Base = base
					break
				}
				// p + i*scale: an Add whose other operand is itself a
				// Mul-by-power-of-two composes into the same AddrMode
				// rather than stopping the walk (spec.md §4.10's
				// base+index*scale+offset, not just base+offset).
				if op == ir.Add && mode.Index == ir.NoVar {
					if idx, scale, rest, ok := af.splitIndexTerm(a, b); ok {
						mode.Index = idx
						mode.Scale = scale
						switch rest.Kind {
						case ir.OperandVariable:
							mode.Base = rest.Var
						case ir.OperandConstInt:
							mode.Offset += int32(rest.IntVal)
							mode.HasOffset = true
							mode.Base = ir.NoVar
							return mode
						default:
							return mode
						}
						break
					}
				}
				return mode

			case ir.Mul:
				if mode.Index != ir.NoVar {
					// index slot already used by an outer fold; stop
					// rather than trying to compose two scales.
					return mode
				}
				base, k, ok := splitBaseConst(a, b)
				if !ok || k == 0 || k > 8 || k&(k-1) != 0 {
					return mode
				}
				mode.Index = base
				mode.Scale = log2u(uint64(k))
				mode.Base = ir.NoVar
				return mode

			default:
				return mode
			}

		default:
			return mode
		}
	}
	return mode
}

// splitBaseConst recognises (variable, constant-int) in either operand
// order, returning the variable and the constant's value.
func splitBaseConst(a, b ir.Operand) (ir.VarID, uint64, bool) {
	if a.Kind == ir.OperandVariable && b.Kind == ir.OperandConstInt {
		return a.Var, b.IntVal, true
	}
	if b.Kind == ir.OperandVariable && a.Kind == ir.OperandConstInt {
		return b.Var, a.IntVal, true
	}
	return ir.NoVar, 0, false
}

// splitIndexTerm recognises one of a, b as a Variable whose single
// definition is itself Mul(var, const-power-of-two), returning that
// var as index/scale and the other operand as the remaining term to
// keep folding (a Variable to chase further, or a constant to land in
// Offset directly).
func (af *AddrModeFolder) splitIndexTerm(a, b ir.Operand) (index ir.VarID, scale uint8, rest ir.Operand, ok bool) {
	try := func(candidate, other ir.Operand) (ir.VarID, uint8, ir.Operand, bool) {
		if candidate.Kind != ir.OperandVariable {
			return ir.NoVar, 0, ir.Operand{}, false
		}
		def, found := af.defs[candidate.Var]
		if !found || def.Op != ir.OpArith || ir.ArithOp(def.SubOp) != ir.Mul {
			return ir.NoVar, 0, ir.Operand{}, false
		}
		idx, k, split := splitBaseConst(def.Operands[0], def.Operands[1])
		if !split || k == 0 || k > 8 || k&(k-1) != 0 {
			return ir.NoVar, 0, ir.Operand{}, false
		}
		return idx, log2u(k), other, true
	}
	if idx, sc, r, done := try(a, b); done {
		return idx, sc, r, true
	}
	if idx, sc, r, done := try(b, a); done {
		return idx, sc, r, true
	}
	return ir.NoVar, 0, ir.Operand{}, false
}

func log2u(v uint64) uint8 {
	var n uint8
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// ToOperand renders the folded mode as a Memory operand of type t.
func (m AddrMode) ToOperand(t ir.Type) ir.Operand {
	return ir.Mem(t, m.Base, m.Index, m.Scale, m.Offset, m.HasOffset)
}
