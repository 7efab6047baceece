package types

import (
	"fmt"
	"strings"
)

// Graph is the frozen type graph. Structural content never changes after
// Builder.Finalize; the classifier only attaches pattern annotations.
type Graph struct {
	types    []Type
	structs  []StructInfo
	enums    []EnumInfo
	opaques  []OpaqueInfo
	fns      []FnInfo
	insts    []InstanceInfo
	params   []GenericParamInfo
	funcs    []Function
	consts   []Constant
	names    map[string]TypeID
	funcIdx  map[string]int
	prims    map[Primitive]TypeID
	patterns []Pattern
	roles    []FunctionRoles
	services []ServiceInfo

	classified bool
}

// Len returns the number of slots including the reserved NoTypeID slot.
func (g *Graph) Len() int { return len(g.types) }

// IDs returns every valid TypeID in ascending order.
func (g *Graph) IDs() []TypeID {
	if g == nil || len(g.types) <= 1 {
		return nil
	}
	out := make([]TypeID, 0, len(g.types)-1)
	for i := 1; i < len(g.types); i++ {
		out = append(out, TypeID(i))
	}
	return out
}

// Lookup returns the descriptor for a TypeID.
func (g *Graph) Lookup(id TypeID) (Type, bool) {
	if g == nil || id == NoTypeID || int(id) >= len(g.types) {
		return Type{}, false
	}
	return g.types[id], true
}

// MustLookup panics when id is invalid.
func (g *Graph) MustLookup(id TypeID) Type {
	tt, ok := g.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// Kind returns the kind of id, KindInvalid when unknown.
func (g *Graph) Kind(id TypeID) Kind {
	tt, ok := g.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

// Primitive returns the node for p. Every primitive is present in a graph.
func (g *Graph) Primitive(p Primitive) TypeID {
	if g == nil {
		return NoTypeID
	}
	return g.prims[p]
}

// IsPrimitive reports whether id is the primitive p.
func (g *Graph) IsPrimitive(id TypeID, p Primitive) bool {
	tt, ok := g.Lookup(id)
	return ok && tt.Kind == KindPrimitive && tt.Prim == p
}

// IsVoid reports whether id is void or absent.
func (g *Graph) IsVoid(id TypeID) bool {
	return id == NoTypeID || g.IsPrimitive(id, PrimVoid)
}

// Struct returns struct metadata.
func (g *Graph) Struct(id TypeID) (*StructInfo, bool) {
	tt, ok := g.Lookup(id)
	if !ok || tt.Kind != KindStruct || int(tt.Payload) >= len(g.structs) {
		return nil, false
	}
	return &g.structs[tt.Payload], true
}

// Enum returns enum metadata.
func (g *Graph) Enum(id TypeID) (*EnumInfo, bool) {
	tt, ok := g.Lookup(id)
	if !ok || tt.Kind != KindEnum || int(tt.Payload) >= len(g.enums) {
		return nil, false
	}
	return &g.enums[tt.Payload], true
}

// Opaque returns opaque metadata.
func (g *Graph) Opaque(id TypeID) (*OpaqueInfo, bool) {
	tt, ok := g.Lookup(id)
	if !ok || tt.Kind != KindOpaque || int(tt.Payload) >= len(g.opaques) {
		return nil, false
	}
	return &g.opaques[tt.Payload], true
}

// FnPointer returns the signature of a function pointer node.
func (g *Graph) FnPointer(id TypeID) (*FnInfo, bool) {
	tt, ok := g.Lookup(id)
	if !ok || tt.Kind != KindFnPointer || int(tt.Payload) >= len(g.fns) {
		return nil, false
	}
	return &g.fns[tt.Payload], true
}

// Instance returns the family and arguments of an instance node.
func (g *Graph) Instance(id TypeID) (*InstanceInfo, bool) {
	tt, ok := g.Lookup(id)
	if !ok || tt.Kind != KindInstance || int(tt.Payload) >= len(g.insts) {
		return nil, false
	}
	return &g.insts[tt.Payload], true
}

// GenericParam returns the name of a type parameter node.
func (g *Graph) GenericParam(id TypeID) (*GenericParamInfo, bool) {
	tt, ok := g.Lookup(id)
	if !ok || tt.Kind != KindGenericParam || int(tt.Payload) >= len(g.params) {
		return nil, false
	}
	return &g.params[tt.Payload], true
}

// Pointee returns the target of a pointer node.
func (g *Graph) Pointee(id TypeID) (TypeID, bool, bool) {
	tt, ok := g.Lookup(id)
	if !ok || tt.Kind != KindPointer {
		return NoTypeID, false, false
	}
	return tt.Elem, tt.Mutable, true
}

// ByName resolves a nominal type by its qualified name.
func (g *Graph) ByName(qualified string) (TypeID, bool) {
	if g == nil {
		return NoTypeID, false
	}
	id, ok := g.names[qualified]
	return id, ok
}

// Functions returns the exported functions in declaration order. The slice
// must not be modified.
func (g *Graph) Functions() []Function {
	if g == nil {
		return nil
	}
	return g.funcs
}

// Function returns the function at index i.
func (g *Graph) Function(i int) (*Function, bool) {
	if g == nil || i < 0 || i >= len(g.funcs) {
		return nil, false
	}
	return &g.funcs[i], true
}

// FunctionIndex resolves a function by native name.
func (g *Graph) FunctionIndex(name string) (int, bool) {
	if g == nil {
		return -1, false
	}
	i, ok := g.funcIdx[name]
	return i, ok
}

// Constants returns the exported constants in declaration order.
func (g *Graph) Constants() []Constant {
	if g == nil {
		return nil
	}
	return g.consts
}

// NominalName returns the bare and qualified name of a nominal node.
func (g *Graph) NominalName(id TypeID) (name, namespace string, ok bool) {
	if s, isStruct := g.Struct(id); isStruct {
		return s.Name, s.Namespace, true
	}
	if e, isEnum := g.Enum(id); isEnum {
		return e.Name, e.Namespace, true
	}
	if o, isOpaque := g.Opaque(id); isOpaque {
		return o.Name, o.Namespace, true
	}
	return "", "", false
}

// Doc returns the documentation attached to a nominal or callback node.
func (g *Graph) Doc(id TypeID) string {
	switch g.Kind(id) {
	case KindStruct:
		s, _ := g.Struct(id)
		return s.Doc
	case KindEnum:
		e, _ := g.Enum(id)
		return e.Doc
	case KindOpaque:
		o, _ := g.Opaque(id)
		return o.Doc
	case KindFnPointer:
		f, _ := g.FnPointer(id)
		return f.Doc
	}
	return ""
}

// TypeString renders a type in IR spelling ("*mut u8", "[u32; 4]", "ns::Vec").
func (g *Graph) TypeString(id TypeID) string {
	var b strings.Builder
	g.writeType(&b, id, 0)
	return b.String()
}

func (g *Graph) writeType(b *strings.Builder, id TypeID, depth int) {
	if depth > 32 {
		b.WriteString("...")
		return
	}
	tt, ok := g.Lookup(id)
	if !ok {
		fmt.Fprintf(b, "<type#%d>", id)
		return
	}
	switch tt.Kind {
	case KindPrimitive:
		b.WriteString(tt.Prim.String())
	case KindStruct, KindEnum, KindOpaque:
		name, ns, _ := g.NominalName(id)
		b.WriteString(QualifiedName(ns, name))
	case KindPointer:
		if tt.Mutable {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*")
		}
		g.writeType(b, tt.Elem, depth+1)
	case KindArray:
		b.WriteByte('[')
		g.writeType(b, tt.Elem, depth+1)
		fmt.Fprintf(b, "; %d]", tt.Len)
	case KindFnPointer:
		info, _ := g.FnPointer(id)
		if info.Name != "" {
			b.WriteString(info.Name)
			return
		}
		b.WriteString("fn(")
		for i, p := range info.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			g.writeType(b, p, depth+1)
		}
		b.WriteString(")")
		if !g.IsVoid(info.Ret) {
			b.WriteString(" -> ")
			g.writeType(b, info.Ret, depth+1)
		}
	case KindGenericParam:
		p, _ := g.GenericParam(id)
		b.WriteString(p.Name)
	case KindInstance:
		inst, _ := g.Instance(id)
		g.writeType(b, inst.Family, depth+1)
		b.WriteByte('<')
		for i, a := range inst.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			g.writeType(b, a, depth+1)
		}
		b.WriteByte('>')
	default:
		b.WriteString(tt.Kind.String())
	}
}
