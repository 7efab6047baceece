package c

import (
	"strconv"
	"strings"

	"ffigen/internal/types"
)

var primNames = map[types.Primitive]string{
	types.PrimVoid:  "void",
	types.PrimBool:  "bool",
	types.PrimU8:    "uint8_t",
	types.PrimU16:   "uint16_t",
	types.PrimU32:   "uint32_t",
	types.PrimU64:   "uint64_t",
	types.PrimI8:    "int8_t",
	types.PrimI16:   "int16_t",
	types.PrimI32:   "int32_t",
	types.PrimI64:   "int64_t",
	types.PrimF32:   "float",
	types.PrimF64:   "double",
	types.PrimUSize: "size_t",
	types.PrimISize: "ptrdiff_t",
}

// Printer spells graph types as C declarations. Name supplies the
// identifier of emittable nodes, which lets the cgo target reuse it with
// its own prefix.
type Printer struct {
	Graph *types.Graph
	Name  func(types.TypeID) string
}

// Decl declares name with type id. Pointers, arrays and function
// declarators compose, so name may already be a declarator such as
// "f(void)". An empty name spells the abstract type.
func (p Printer) Decl(id types.TypeID, name string) string {
	t, ok := p.Graph.Lookup(id)
	if !ok {
		return join("void", name)
	}
	switch t.Kind {
	case types.KindPrimitive:
		return join(primNames[t.Prim], name)
	case types.KindPointer:
		elem, _ := p.Graph.Lookup(t.Elem)
		switch {
		case elem.Kind == types.KindArray:
			return p.Decl(t.Elem, "(*"+name+")")
		case elem.Kind == types.KindPointer && !t.Mutable:
			return p.Decl(t.Elem, "const *"+name)
		case !t.Mutable:
			return "const " + p.Decl(t.Elem, "*"+name)
		}
		return p.Decl(t.Elem, "*"+name)
	case types.KindArray:
		if strings.HasPrefix(name, "*") {
			name = "(" + name + ")"
		}
		return p.Decl(t.Elem, name+"["+strconv.FormatUint(uint64(t.Len), 10)+"]")
	}
	return join(p.Name(id), name)
}

// PrimName spells a primitive that may not be interned in the graph.
func (p Printer) PrimName(k types.Primitive) string { return primNames[k] }

// Type spells id without a declarator.
func (p Printer) Type(id types.TypeID) string { return p.Decl(id, "") }

// Params renders a parameter list. Empty lists spell "void".
func (p Printer) Params(ids []types.TypeID, names []string) string {
	if len(ids) == 0 {
		return "void"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		parts[i] = p.Decl(id, name)
	}
	return strings.Join(parts, ", ")
}

// Prototype renders "ret name(params)".
func (p Printer) Prototype(ret types.TypeID, name string, params []types.TypeID, names []string) string {
	if ret == types.NoTypeID {
		ret = p.Graph.Primitive(types.PrimVoid)
	}
	return p.Decl(ret, name+"("+p.Params(params, names)+")")
}

// FnPointerTypedef renders "typedef ret (*name)(params);".
func (p Printer) FnPointerTypedef(fi *types.FnInfo, name string) string {
	return "typedef " + p.Prototype(fi.Ret, "(*"+name+")", fi.Params, nil) + ";"
}

// IsArray reports whether id is a fixed array, which C cannot pass by value.
func (p Printer) IsArray(id types.TypeID) bool {
	return p.Graph.Kind(id) == types.KindArray
}

// Literal spells a constant of type id.
func (p Printer) Literal(id types.TypeID, v types.Value) string {
	prim := types.PrimInvalid
	if t, ok := p.Graph.Lookup(id); ok && t.Kind == types.KindPrimitive {
		prim = t.Prim
	}
	switch v.Kind {
	case types.ValueBool:
		return strconv.FormatBool(v.Bool)
	case types.ValueUint:
		s := strconv.FormatUint(v.Uint, 10)
		if prim == types.PrimU64 || prim == types.PrimUSize {
			return "UINT64_C(" + s + ")"
		}
		return s + "u"
	case types.ValueInt:
		s := strconv.FormatInt(v.Int, 10)
		if prim == types.PrimI64 || prim == types.PrimISize {
			s = "INT64_C(" + s + ")"
		}
		if v.Int < 0 {
			return "(" + s + ")"
		}
		return s
	case types.ValueFloat:
		if prim == types.PrimF32 {
			return v.Literal() + "f"
		}
		return v.Literal()
	}
	return "0"
}

func join(typ, name string) string {
	if name == "" {
		return typ
	}
	return typ + " " + name
}
