package types

import "slices"

// Field describes a single field inside a struct. Field order is the binary
// layout order and is never changed.
type Field struct {
	Name string
	Type TypeID
	Doc  string
}

// Origin records the generic family and arguments a synthesized struct was
// instantiated from.
type Origin struct {
	Family TypeID
	Args   []TypeID
}

// StructInfo stores metadata for a struct node.
type StructInfo struct {
	Name      string
	Namespace string
	Doc       string
	Fields    []Field
	Repr      Repr

	// TypeParams is non-empty for generic families. Families are templates and
	// are never emitted themselves.
	TypeParams []TypeID

	// Hint is an optional pattern name asserted by the front end
	// ("slice", "option", "string").
	Hint string

	// ExpectedSize and ExpectedAlign are the native layout as reported by the
	// front end, 0 when unknown.
	ExpectedSize  int
	ExpectedAlign int

	Origin *Origin
}

// IsGeneric reports whether the struct is a generic family.
func (s *StructInfo) IsGeneric() bool { return s != nil && len(s.TypeParams) > 0 }

// Variant is a single enum variant with an explicit discriminant.
type Variant struct {
	Name  string
	Value int64
	Doc   string
}

// EnumInfo stores metadata for an enum node.
type EnumInfo struct {
	Name      string
	Namespace string
	Doc       string
	Variants  []Variant
	// Base is the integer representation; PrimInvalid means the C default (i32).
	Base Primitive
}

// BaseOrDefault returns the representation primitive of the enum.
func (e *EnumInfo) BaseOrDefault() Primitive {
	if e == nil || e.Base == PrimInvalid {
		return PrimI32
	}
	return e.Base
}

// VariantByValue finds the variant with the given discriminant.
func (e *EnumInfo) VariantByValue(v int64) (Variant, bool) {
	if e == nil {
		return Variant{}, false
	}
	for _, vr := range e.Variants {
		if vr.Value == v {
			return vr, true
		}
	}
	return Variant{}, false
}

// OpaqueInfo stores metadata for a type whose layout is hidden from callers.
type OpaqueInfo struct {
	Name      string
	Namespace string
	Doc       string
}

// FnInfo describes a function pointer signature. Name is set for named
// callback typedefs and is part of the node identity.
type FnInfo struct {
	Name   string
	Doc    string
	Params []TypeID
	Ret    TypeID
}

// InstanceInfo is a generic family applied to type arguments.
type InstanceInfo struct {
	Family TypeID
	Args   []TypeID
}

// GenericParamInfo names a type parameter.
type GenericParamInfo struct {
	Name string
}

func cloneFields(fields []Field) []Field {
	if len(fields) == 0 {
		return nil
	}
	return slices.Clone(fields)
}

func cloneVariants(vs []Variant) []Variant {
	if len(vs) == 0 {
		return nil
	}
	return slices.Clone(vs)
}

func cloneTypeIDs(ids []TypeID) []TypeID {
	if len(ids) == 0 {
		return nil
	}
	return slices.Clone(ids)
}

func (s StructInfo) clone() StructInfo {
	out := s
	out.Fields = cloneFields(s.Fields)
	out.TypeParams = cloneTypeIDs(s.TypeParams)
	if s.Origin != nil {
		o := Origin{Family: s.Origin.Family, Args: cloneTypeIDs(s.Origin.Args)}
		out.Origin = &o
	}
	return out
}

func (e EnumInfo) clone() EnumInfo {
	out := e
	out.Variants = cloneVariants(e.Variants)
	return out
}

func (f FnInfo) clone() FnInfo {
	out := f
	out.Params = cloneTypeIDs(f.Params)
	return out
}

func (i InstanceInfo) clone() InstanceInfo {
	return InstanceInfo{Family: i.Family, Args: cloneTypeIDs(i.Args)}
}

// QualifiedName joins namespace and name with "::".
func QualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "::" + name
}
