package types

import "fmt"

// TypeID uniquely identifies a type node inside a Graph.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// IsValid reports whether the id refers to a node.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// Kind enumerates all supported kinds of type nodes.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindStruct
	KindEnum
	KindOpaque
	KindPointer
	KindFnPointer
	KindArray
	// KindGenericParam is a type parameter of a generic struct family.
	KindGenericParam
	// KindInstance is a use of a generic family with type arguments,
	// replaced by a concrete struct during monomorphization.
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindPrimitive:
		return "primitive"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindOpaque:
		return "opaque"
	case KindPointer:
		return "pointer"
	case KindFnPointer:
		return "fnptr"
	case KindArray:
		return "array"
	case KindGenericParam:
		return "generic-param"
	case KindInstance:
		return "instance"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsNominal reports whether nodes of this kind are declared by name.
func (k Kind) IsNominal() bool {
	return k == KindStruct || k == KindEnum || k == KindOpaque
}

// Primitive enumerates fixed-width scalar types.
type Primitive uint8

const (
	PrimInvalid Primitive = iota
	PrimVoid
	PrimBool
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimF32
	PrimF64
	PrimUSize
	PrimISize
)

var primitiveNames = [...]string{
	PrimInvalid: "invalid",
	PrimVoid:    "void",
	PrimBool:    "bool",
	PrimU8:      "u8",
	PrimU16:     "u16",
	PrimU32:     "u32",
	PrimU64:     "u64",
	PrimI8:      "i8",
	PrimI16:     "i16",
	PrimI32:     "i32",
	PrimI64:     "i64",
	PrimF32:     "f32",
	PrimF64:     "f64",
	PrimUSize:   "usize",
	PrimISize:   "isize",
}

// AllPrimitives lists every valid primitive in declaration order.
var AllPrimitives = []Primitive{
	PrimVoid, PrimBool,
	PrimU8, PrimU16, PrimU32, PrimU64,
	PrimI8, PrimI16, PrimI32, PrimI64,
	PrimF32, PrimF64,
	PrimUSize, PrimISize,
}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return fmt.Sprintf("Primitive(%d)", p)
}

// ParsePrimitive maps a spelling such as "u32" to a Primitive.
func ParsePrimitive(s string) (Primitive, bool) {
	for i, name := range primitiveNames {
		if i == int(PrimInvalid) {
			continue
		}
		if name == s {
			return Primitive(i), true
		}
	}
	return PrimInvalid, false
}

// IsInteger reports whether p is a fixed-width or pointer-sized integer.
func (p Primitive) IsInteger() bool {
	switch p {
	case PrimU8, PrimU16, PrimU32, PrimU64, PrimI8, PrimI16, PrimI32, PrimI64, PrimUSize, PrimISize:
		return true
	}
	return false
}

// IsSigned reports whether p is a signed integer.
func (p Primitive) IsSigned() bool {
	switch p {
	case PrimI8, PrimI16, PrimI32, PrimI64, PrimISize:
		return true
	}
	return false
}

// IsFloat reports whether p is a floating-point type.
func (p Primitive) IsFloat() bool { return p == PrimF32 || p == PrimF64 }

// Bits returns the width of fixed-width primitives, 0 for void and
// pointer-sized integers.
func (p Primitive) Bits() int {
	switch p {
	case PrimBool, PrimU8, PrimI8:
		return 8
	case PrimU16, PrimI16:
		return 16
	case PrimU32, PrimI32, PrimF32:
		return 32
	case PrimU64, PrimI64, PrimF64:
		return 64
	}
	return 0
}

// Type is a compact descriptor for any node.
type Type struct {
	Kind    Kind
	Prim    Primitive // for KindPrimitive
	Elem    TypeID    // pointer target, array element
	Len     uint32    // array length
	Mutable bool      // pointers
	Payload uint32    // index into the kind-specific info table
}

// ReprKind selects the memory representation of a struct.
type ReprKind uint8

const (
	// ReprC lays fields out in order with natural alignment.
	ReprC ReprKind = iota
	// ReprTransparent has the layout of its only non-zero-sized field.
	ReprTransparent
	// ReprPacked caps every field alignment at Repr.Align (1 when zero).
	ReprPacked
)

func (r ReprKind) String() string {
	switch r {
	case ReprC:
		return "c"
	case ReprTransparent:
		return "transparent"
	case ReprPacked:
		return "packed"
	default:
		return fmt.Sprintf("ReprKind(%d)", r)
	}
}

// Repr describes the declared representation of a struct.
type Repr struct {
	Kind  ReprKind
	Align int // packing for ReprPacked
}

// PackAlign returns the effective field alignment cap for packed structs,
// or 0 when fields keep their natural alignment.
func (r Repr) PackAlign() int {
	if r.Kind != ReprPacked {
		return 0
	}
	if r.Align <= 0 {
		return 1
	}
	return r.Align
}

func (r Repr) String() string {
	if r.Kind == ReprPacked && r.Align > 1 {
		return fmt.Sprintf("packed(%d)", r.Align)
	}
	return r.Kind.String()
}
