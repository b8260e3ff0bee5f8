// Package ir defines the typed, three-address intermediate representation
// consumed by the lowering engine: type tags, the Operand sum type,
// Variables, Instructions and the per-function arena that owns them.
package ir

import "strconv"

// Type is the fixed enum of value types the lowering engine understands.
type Type int

const (
	InvalidType Type = iota

	Void
	I1
	I8
	I16
	I32
	I64
	F32
	F64
	V4I1
	V8I1
	V16I1
	V16I8
	V8I16
	V4I32
	V4F32

	numTypes
)

type typeAttrs struct {
	name     string
	sizeInBytes int
	elemType    Type // InvalidType if scalar
	lanes       int  // 0 if scalar
	isFloat     bool
	isInteger   bool
	isVector    bool
}

// typeTable is indexed by Type; its [numTypes] array type fixes its
// length at compile time.
var typeTable = [numTypes]typeAttrs{
	InvalidType: {name: "<invalid>"},
	Void:        {name: "void", sizeInBytes: 0},
	I1:          {name: "i1", sizeInBytes: 1, isInteger: true},
	I8:          {name: "i8", sizeInBytes: 1, isInteger: true},
	I16:         {name: "i16", sizeInBytes: 2, isInteger: true},
	I32:         {name: "i32", sizeInBytes: 4, isInteger: true},
	I64:         {name: "i64", sizeInBytes: 8, isInteger: true},
	F32:         {name: "f32", sizeInBytes: 4, isFloat: true},
	F64:         {name: "f64", sizeInBytes: 8, isFloat: true},
	V4I1:        {name: "v4i1", sizeInBytes: 16, isVector: true, elemType: I1, lanes: 4},
	V8I1:        {name: "v8i1", sizeInBytes: 16, isVector: true, elemType: I1, lanes: 8},
	V16I1:       {name: "v16i1", sizeInBytes: 16, isVector: true, elemType: I1, lanes: 16},
	V16I8:       {name: "v16i8", sizeInBytes: 16, isVector: true, elemType: I8, lanes: 16},
	V8I16:       {name: "v8i16", sizeInBytes: 16, isVector: true, elemType: I16, lanes: 8},
	V4I32:       {name: "v4i32", sizeInBytes: 16, isVector: true, elemType: I32, lanes: 4},
	V4F32:       {name: "v4f32", sizeInBytes: 16, isVector: true, elemType: F32, lanes: 4},
}

func init() {
	for t := Type(0); t < numTypes; t++ {
		if typeTable[t].name == "" {
			panic("ir: typeTable missing entry for type " + strconv.Itoa(int(t)))
		}
	}
}

func (t Type) String() string { return typeTable[t].name }

// SizeInBytes returns the storage size of t, including vector/i64 widths.
func (t Type) SizeInBytes() int { return typeTable[t].sizeInBytes }

func (t Type) IsVector() bool  { return typeTable[t].isVector }
func (t Type) IsFloat() bool   { return typeTable[t].isFloat }
func (t Type) IsInteger() bool { return typeTable[t].isInteger }
func (t Type) Is64() bool      { return t == I64 }

// ElementType returns the per-lane type of a vector type, or InvalidType
// for scalars.
func (t Type) ElementType() Type { return typeTable[t].elemType }

// Lanes returns the vector width in elements, or 0 for scalars.
func (t Type) Lanes() int { return typeTable[t].lanes }

// ElementSizeInBytes returns the per-lane size of a vector type's
// materialised (byte/word/dword) form: v*i1 is always materialised as
// one byte per lane before being narrowed back by a trunc-and.
func (t Type) ElementSizeInBytes() int {
	switch t {
	case V4I1, V8I1, V16I1, V16I8:
		return 1
	case V8I16:
		return 2
	case V4I32, V4F32:
		return 4
	}
	return 0
}
