package asm

// Mnemonic constants used by the generic emitters below and by the lower
// package's per-opcode routines. Kept as plain strings — like the
// teacher's fasm.go Instr constants — rather than a closed enum, since
// new mnemonics are added at the same rate new intrinsics are.
const (
	Mov    = "mov"
	Movzx  = "movzx"
	Movsx  = "movsx"
	Lea    = "lea"
	Push   = "push"
	Pop    = "pop"
	Xchg   = "xchg"
	Cmpxchg = "cmpxchg"
	Cmpxchg8b = "cmpxchg8b"
	Xadd   = "xadd"

	Add  = "add"
	Adc  = "adc"
	Sub  = "sub"
	Sbb  = "sbb"
	Imul = "imul"
	Mul  = "mul"
	Idiv = "idiv"
	Div  = "div"
	Neg  = "neg"
	Inc  = "inc"
	Dec  = "dec"
	Cdq  = "cdq"
	Cwd  = "cwd"
	Cbw  = "cbw"

	And  = "and"
	Or   = "or"
	Xor  = "xor"
	Not  = "not"
	Shl  = "shl"
	Shr  = "shr"
	Sar  = "sar"
	Rol  = "rol"
	Ror  = "ror"
	Shld = "shld"
	Shrd = "shrd"
	Pslld = "pslld"
	Psrad = "psrad"
	Psllw = "psllw"
	Psraw = "psraw"
	Bswap = "bswap"
	Bsr  = "bsr"
	Bsf  = "bsf"
	Popcnt = "popcnt"

	Cmp  = "cmp"
	Test = "test"

	Jmp = "jmp"
	Call = "call"
	Ret  = "ret"
	Leave = "leave"

	Fld  = "fld"
	Fstp = "fstp"

	Mfence = "mfence"
	Lock   = "lock"
	Ud2    = "ud2"

	Movss  = "movss"
	Movsd  = "movsd"
	Movaps = "movaps"
	Movups = "movups"
	Movd   = "movd"
	Movq   = "movq"
	Addss  = "addss"
	Subss  = "subss"
	Mulss  = "mulss"
	Divss  = "divss"
	Addsd  = "addsd"
	Subsd  = "subsd"
	Mulsd  = "mulsd"
	Divsd  = "divsd"
	Addps  = "addps"
	Subps  = "subps"
	Mulps  = "mulps"
	Divps  = "divps"
	Andps  = "andps"
	Orps   = "orps"
	Xorps  = "xorps"
	Pand   = "pand"
	Pandn  = "pandn"
	Por    = "por"
	Pxor   = "pxor"
	Cmovne = "cmovne"
	Cmove  = "cmove"
	Paddb  = "paddb"
	Paddw  = "paddw"
	Paddd  = "paddd"
	Psubb  = "psubb"
	Psubw  = "psubw"
	Psubd  = "psubd"
	Pmullw = "pmullw"
	Pmulld = "pmulld" // SSE4.1
	Pmuludq = "pmuludq"
	Pcmpeqb = "pcmpeqb"
	Pcmpeqw = "pcmpeqw"
	Pcmpeqd = "pcmpeqd"
	Pcmpgtb = "pcmpgtb"
	Pcmpgtw = "pcmpgtw"
	Pcmpgtd = "pcmpgtd"
	Cmpps   = "cmpps"
	Shufps  = "shufps"
	Pshufd  = "pshufd"
	Punpcklbw = "punpcklbw"
	Punpcklwd = "punpcklwd"
	Punpckldq = "punpckldq"
	Pextrb = "pextrb" // SSE4.1
	Pextrw = "pextrw"
	Pextrd = "pextrd" // SSE4.1
	Pinsrb = "pinsrb" // SSE4.1
	Pinsrw = "pinsrw"
	Pinsrd = "pinsrd" // SSE4.1
	Insertps = "insertps" // SSE4.1
	Cvtsi2ss = "cvtsi2ss"
	Cvtsi2sd = "cvtsi2sd"
	Cvttss2si = "cvttss2si"
	Cvttsd2si = "cvttsd2si"
	Cvtss2sd = "cvtss2sd"
	Cvtsd2ss = "cvtsd2ss"
	Ucomiss = "ucomiss"
	Ucomisd = "ucomisd"
	Pmovsxbd = "pmovsxbd" // SSE4.1 sign-extend byte lanes to dword
	Pmovzxbd = "pmovzxbd"
	Packssdw = "packssdw"
	Packsswb = "packsswb"
	Cvttps2dq = "cvttps2dq"
	Cvtdq2ps  = "cvtdq2ps"

	Setjmp  = "setjmp"
	Longjmp = "longjmp"

	FakeDef  = "fakedef"
	FakeUse  = "fakeuse"
	FakeKill = "fakekill"
)

// ccSuffix maps ir.IntCond/FloatCond branch senses to the jCC/setCC
// suffix letters (spec.md §4.6). The tables themselves live in package
// condcode, which uses its own Suffix type.
type ccSuffix string
