package ir

// OperandKind discriminates the Operand sum type (spec.md §3). A single
// flat struct with a Kind tag replaces the source's class hierarchy, per
// the tagged-sum-type re-architecture in spec.md §9: dispatch is a type
// switch on Kind, never a virtual call.
type OperandKind int

const (
	OperandInvalid OperandKind = iota
	OperandVariable
	OperandConstInt
	OperandConstFloat
	OperandConstDouble
	OperandConstRelocatable
	OperandConstUndef
	OperandMemory
)

func (k OperandKind) String() string {
	switch k {
	case OperandVariable:
		return "var"
	case OperandConstInt:
		return "const.int"
	case OperandConstFloat:
		return "const.float"
	case OperandConstDouble:
		return "const.double"
	case OperandConstRelocatable:
		return "const.reloc"
	case OperandConstUndef:
		return "undef"
	case OperandMemory:
		return "mem"
	}
	return "<invalid-operand>"
}

// SegReg is a memory operand's optional segment override.
type SegReg int

const (
	SegDefault SegReg = iota
	SegGS
)

// Operand is the sum type of everything an instruction can read or
// write: a Variable reference, one of the constant flavours, or a
// Memory addressing expression.
type Operand struct {
	Kind OperandKind
	Type Type

	// OperandVariable
	Var VarID

	// OperandConstInt: raw 64-bit pattern, reinterpreted per Type.
	IntVal uint64

	// OperandConstFloat / OperandConstDouble
	FloatVal  float64
	PoolIndex int // assigned when the legaliser spills it to the FP pool

	// OperandConstRelocatable
	Symbol string
	Addend int64

	// OperandMemory
	Base     VarID // NoVar if absent
	Index    VarID // NoVar if absent
	Offset   int32
	HasOffset bool
	Scale    uint8 // log2 scale, 0..3 (spec.md §3: scale ∈ {1,2,4,8})
	Segment  SegReg
}

func Var(id VarID, t Type) Operand {
	return Operand{Kind: OperandVariable, Var: id, Type: t}
}

func ConstInt(t Type, v uint64) Operand {
	return Operand{Kind: OperandConstInt, Type: t, IntVal: v}
}

func ConstFloat(v float32) Operand {
	return Operand{Kind: OperandConstFloat, Type: F32, FloatVal: float64(v), PoolIndex: -1}
}

func ConstDouble(v float64) Operand {
	return Operand{Kind: OperandConstDouble, Type: F64, FloatVal: v, PoolIndex: -1}
}

func ConstRelocatable(t Type, symbol string, addend int64) Operand {
	return Operand{Kind: OperandConstRelocatable, Type: t, Symbol: symbol, Addend: addend}
}

func ConstUndef(t Type) Operand {
	return Operand{Kind: OperandConstUndef, Type: t}
}

// Mem builds a Memory operand. base/index may be NoVar; scale is a log2
// unit in {0,1,2,3}.
func Mem(t Type, base VarID, index VarID, scale uint8, offset int32, hasOffset bool) Operand {
	return Operand{
		Kind: OperandMemory, Type: t,
		Base: base, Index: index, Scale: scale,
		Offset: offset, HasOffset: hasOffset,
	}
}

func (o Operand) IsVariable() bool   { return o.Kind == OperandVariable }
func (o Operand) IsMemory() bool     { return o.Kind == OperandMemory }
func (o Operand) IsConstant() bool {
	switch o.Kind {
	case OperandConstInt, OperandConstFloat, OperandConstDouble, OperandConstRelocatable, OperandConstUndef:
		return true
	}
	return false
}

// WithOffset returns a copy of a Memory operand with its displacement
// shifted by delta, used by split64 to reach the +4 high half and by the
// address-mode optimiser while folding add/sub-by-constant chains.
func (o Operand) WithOffset(delta int32) Operand {
	o.Offset += delta
	o.HasOffset = true
	return o
}
