// Package runtimehelpers names the exact runtime support symbols
// spec.md §6 mandates. Lowering never invents a helper name; it always
// refers to one of these constants, so a rename here is the only place
// a generated call site needs to change.
package runtimehelpers

const (
	Udivdi3 = "__udivdi3"
	Divdi3  = "__divdi3"
	Umoddi3 = "__umoddi3"
	Moddi3  = "__moddi3"

	Fmod  = "fmod"
	Fmodf = "fmodf"

	CvtFToSI64 = "cvtftosi64"
	CvtDToSI64 = "cvtdtosi64"
	CvtFToUI32 = "cvtftoui32"
	CvtFToUI64 = "cvtftoui64"
	CvtDToUI32 = "cvtdtoui32"
	CvtDToUI64 = "cvtdtoui64"
	CvtSI64ToF = "cvtsi64tof"
	CvtSI64ToD = "cvtsi64tod"
	CvtUI32ToF = "cvtui32tof"
	CvtUI32ToD = "cvtui32tod"
	CvtUI64ToF = "cvtui64tof"
	CvtUI64ToD = "cvtui64tod"

	SzFPToUIV4F32        = "Sz_fptoui_v4f32"
	SzUIToFPV4I32        = "Sz_uitofp_v4i32"
	SzBitcastV8I1ToI8    = "Sz_bitcast_v8i1_to_i8"
	SzBitcastV16I1ToI16  = "Sz_bitcast_v16i1_to_i16"
	SzBitcastI8ToV8I1    = "Sz_bitcast_i8_to_v8i1"
	SzBitcastI16ToV16I1  = "Sz_bitcast_i16_to_v16i1"

	Popcountdi2 = "__popcountdi2"
	Popcountsi2 = "__popcountsi2"

	Memcpy  = "memcpy"
	Memmove = "memmove"
	Memset  = "memset"

	Setjmp  = "setjmp"
	Longjmp = "longjmp"

	NaClReadTP     = "__nacl_read_tp"
	IceUnreachable = "ice_unreachable"
)
