package asm

import (
	"fmt"
	"strings"

	"x32cg/ir"
)

// Resolver answers, for a Variable that survived lowering, whether it
// lives in a physical register or a stack slot. Implemented by package
// frame once layout has run; asm never computes offsets itself.
type Resolver interface {
	RegOf(id ir.VarID) (Reg, bool)
	FrameOperand(id ir.VarID) (base Reg, offset int32)
}

// ptrSizeKeyword returns the Intel "size ptr" keyword a memory operand
// needs whenever its size can't be inferred from a register operand
// sharing the instruction (spec.md §6: byte/word/dword/qword ptr).
func ptrSizeKeyword(t ir.Type) string {
	switch t.SizeInBytes() {
	case 1:
		return "byte"
	case 2:
		return "word"
	case 4:
		return "dword"
	case 8:
		return "qword"
	case 16:
		return "xmmword"
	}
	return "dword"
}

// OperandText renders a single operand. needsSizeKeyword controls
// whether a bare memory operand gets a "dword ptr"-style prefix — false
// when another register operand in the same instruction already pins
// the size.
func OperandText(o ir.Operand, r Resolver, needsSizeKeyword bool) string {
	switch o.Kind {
	case ir.OperandVariable:
		if reg, ok := r.RegOf(o.Var); ok {
			return RegName(reg, o.Type)
		}
		base, off := r.FrameOperand(o.Var)
		return memText(ptrSizeKeyword(o.Type), needsSizeKeyword, RegName(base, ir.I32), ir.NoVar, 0, off, true, r)

	case ir.OperandMemory:
		baseName := ""
		if o.Base != ir.NoVar {
			if reg, ok := r.RegOf(o.Base); ok {
				baseName = RegName(reg, ir.I32)
			} else {
				b, off := r.FrameOperand(o.Base)
				baseName = RegName(b, ir.I32)
				o = o.WithOffset(off)
			}
		}
		return memText(ptrSizeKeyword(o.Type), needsSizeKeyword, baseName, o.Index, o.Scale, o.Offset, o.HasOffset, r)

	case ir.OperandConstInt:
		return fmt.Sprintf("%d", int64(o.IntVal))

	case ir.OperandConstFloat:
		return fmt.Sprintf("dword [L$fp32$%d]", o.PoolIndex)

	case ir.OperandConstDouble:
		return fmt.Sprintf("qword [L$fp64$%d]", o.PoolIndex)

	case ir.OperandConstRelocatable:
		if o.Addend != 0 {
			return fmt.Sprintf("%s+%d", o.Symbol, o.Addend)
		}
		return o.Symbol

	case ir.OperandConstUndef:
		return "0"
	}
	return "<bad-operand>"
}

func memText(sizeKeyword string, needsSizeKeyword bool, baseName string, index ir.VarID, scale uint8, offset int32, hasOffset bool, r Resolver) string {
	var sb strings.Builder
	if needsSizeKeyword {
		sb.WriteString(sizeKeyword)
		sb.WriteString(" ptr ")
	}
	sb.WriteByte('[')
	wrote := false
	if baseName != "" {
		sb.WriteString(baseName)
		wrote = true
	}
	if index != ir.NoVar {
		if reg, ok := r.RegOf(index); ok {
			if wrote {
				sb.WriteByte('+')
			}
			sb.WriteString(RegName(reg, ir.I32))
			sb.WriteString(fmt.Sprintf("*%d", 1<<scale))
			wrote = true
		}
	}
	if hasOffset {
		if offset < 0 {
			sb.WriteString(fmt.Sprintf("-%d", -offset))
		} else if offset > 0 || !wrote {
			if wrote {
				sb.WriteByte('+')
			}
			sb.WriteString(fmt.Sprintf("%d", offset))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
