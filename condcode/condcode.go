// Package condcode maps IR comparison predicates to x86 condition-code
// suffixes, grounded on spec.md §4.6's three tables (32-bit integer,
// 64-bit integer via the borrow trick, and SSE float compares).
package condcode

import "x32cg/ir"

// Suffix is a jCC/setCC condition letter sequence, e.g. "e", "ne", "l".
type Suffix string

const (
	E  Suffix = "e"
	NE Suffix = "ne"
	L  Suffix = "l"
	LE Suffix = "le"
	G  Suffix = "g"
	GE Suffix = "ge"
	B  Suffix = "b"
	BE Suffix = "be"
	A  Suffix = "a"
	AE Suffix = "ae"
	P  Suffix = "p"  // parity (unordered)
	NP Suffix = "np" // ordered
)

// tableIcmp32 is the direct IntCond -> Suffix mapping valid after a
// 32-bit (or narrower) `cmp`: spec.md §4.6, table 1.
var tableIcmp32 = [...]Suffix{
	ir.ICondEQ:  E,
	ir.ICondNE:  NE,
	ir.ICondSLT: L,
	ir.ICondSLE: LE,
	ir.ICondSGT: G,
	ir.ICondSGE: GE,
	ir.ICondULT: B,
	ir.ICondULE: BE,
	ir.ICondUGT: A,
	ir.ICondUGE: AE,
}

// Icmp32 returns the suffix for an IntCond compared with a single
// 32-bit-or-narrower `cmp`.
func Icmp32(c ir.IntCond) Suffix { return tableIcmp32[c] }

// Icmp64Hi and Icmp64LoUnsigned implement the i64 compare lowering of
// spec.md §4.3/§4.6: a 64-bit signed/unsigned comparison reduces to
// comparing the high halves with the *signed-or-unsigned* sense of the
// original predicate, falling through to an unsigned low-half compare
// when the high halves are equal. Icmp64Hi keeps the original
// signedness; Icmp64LoUnsigned always compares the low halves unsigned
// (low bits carry no sign).
func Icmp64Hi(c ir.IntCond) Suffix       { return tableIcmp32[c] }
func Icmp64LoUnsigned(c ir.IntCond) Suffix {
	switch c {
	case ir.ICondEQ, ir.ICondNE:
		return tableIcmp32[c]
	case ir.ICondSLT, ir.ICondULT:
		return B
	case ir.ICondSLE, ir.ICondULE:
		return BE
	case ir.ICondSGT, ir.ICondUGT:
		return A
	case ir.ICondSGE, ir.ICondUGE:
		return AE
	}
	return E
}

// FloatPredicate describes how to synthesize an FCond from one or two
// cmpps/ucomiss predicate checks (spec.md §4.6, table 3). Most FConds
// are a single SSE immediate; FCondONE and FCondUEQ need both an
// equal-check and an ordered-check combined with an extra and/or.
type FloatPredicate struct {
	Imm        uint8 // cmpps/cmpss/cmpsd immediate predicate, 0..7
	Suffix     Suffix
	NeedsParityFixup bool // ONE/UEQ: combine with a parity check
}

var tableFcmp = [...]FloatPredicate{
	ir.FCondOEQ: {Imm: 0, Suffix: E},
	ir.FCondOLT: {Imm: 1, Suffix: B},
	ir.FCondOLE: {Imm: 2, Suffix: BE},
	ir.FCondUNO: {Imm: 3, Suffix: P},
	ir.FCondUNE: {Imm: 4, Suffix: NE},
	ir.FCondUGE: {Imm: 5, Suffix: AE},
	ir.FCondUGT: {Imm: 6, Suffix: A},
	ir.FCondORD: {Imm: 7, Suffix: NP},
	// OGT/OGE/ULT/ULE have no single SSE immediate with operands in
	// source order; they're synthesized by swapping operands and reusing
	// the OLT/OLE/UGT/UGE immediates (spec.md §4.6).
	ir.FCondOGT: {Imm: 1, Suffix: B}, // cmpps swapped(b,a), lt
	ir.FCondOGE: {Imm: 2, Suffix: BE},
	ir.FCondULT: {Imm: 6, Suffix: A},
	ir.FCondULE: {Imm: 5, Suffix: AE},
	// ONE and UEQ need two predicate checks ANDed/ORed together.
	ir.FCondONE: {Imm: 4, Suffix: NE, NeedsParityFixup: true},
	ir.FCondUEQ: {Imm: 0, Suffix: E, NeedsParityFixup: true},
}

func Fcmp(c ir.FloatCond) FloatPredicate { return tableFcmp[c] }

// SwapsOperands reports whether Fcmp's synthesis needs its two source
// operands swapped relative to the IR's (lhs, rhs) order.
func SwapsOperands(c ir.FloatCond) bool {
	switch c {
	case ir.FCondOGT, ir.FCondOGE, ir.FCondULT, ir.FCondULE:
		return true
	}
	return false
}

// Negate returns the suffix of the logical negation of s, used when a
// branch needs to jump on "not taken" (e.g. falling through to a
// default case).
func Negate(s Suffix) Suffix {
	switch s {
	case E:
		return NE
	case NE:
		return E
	case L:
		return GE
	case LE:
		return G
	case G:
		return LE
	case GE:
		return L
	case B:
		return AE
	case BE:
		return A
	case A:
		return BE
	case AE:
		return B
	case P:
		return NP
	case NP:
		return P
	}
	return s
}
