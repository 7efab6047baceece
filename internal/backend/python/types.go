package python

import (
	"strconv"

	"ffigen/internal/emit"
	"ffigen/internal/types"
)

var ctypesNames = map[types.Primitive]string{
	types.PrimVoid:  "None",
	types.PrimBool:  "ctypes.c_bool",
	types.PrimU8:    "ctypes.c_uint8",
	types.PrimU16:   "ctypes.c_uint16",
	types.PrimU32:   "ctypes.c_uint32",
	types.PrimU64:   "ctypes.c_uint64",
	types.PrimI8:    "ctypes.c_int8",
	types.PrimI16:   "ctypes.c_int16",
	types.PrimI32:   "ctypes.c_int32",
	types.PrimI64:   "ctypes.c_int64",
	types.PrimF32:   "ctypes.c_float",
	types.PrimF64:   "ctypes.c_double",
	types.PrimUSize: "ctypes.c_size_t",
	types.PrimISize: "ctypes.c_ssize_t",
}

// ctype spells the ctypes type of id. Enums travel as their base integer;
// opaque and void pointers become c_void_p.
func ctype(ctx *emit.Context, id types.TypeID) string {
	g := ctx.Graph
	t, ok := g.Lookup(id)
	if !ok {
		return "None"
	}
	switch t.Kind {
	case types.KindPrimitive:
		return ctypesNames[t.Prim]
	case types.KindPointer:
		switch g.Kind(t.Elem) {
		case types.KindOpaque:
			return "ctypes.c_void_p"
		case types.KindPrimitive:
			if g.IsVoid(t.Elem) {
				return "ctypes.c_void_p"
			}
		}
		return "ctypes.POINTER(" + ctype(ctx, t.Elem) + ")"
	case types.KindArray:
		return "(" + ctype(ctx, t.Elem) + " * " + strconv.FormatUint(uint64(t.Len), 10) + ")"
	case types.KindEnum:
		e, _ := g.Enum(id)
		return ctypesNames[e.BaseOrDefault()]
	}
	return ctx.Names.Type(id)
}

// hint spells the annotation wrappers use for id.
func hint(ctx *emit.Context, id types.TypeID) string {
	g := ctx.Graph
	t, ok := g.Lookup(id)
	if !ok || ctx.Void(id) {
		return "None"
	}
	switch t.Kind {
	case types.KindPrimitive:
		switch {
		case t.Prim == types.PrimBool:
			return "bool"
		case t.Prim.IsFloat():
			return "float"
		}
		return "int"
	case types.KindStruct, types.KindEnum:
		return ctx.Names.Type(id)
	case types.KindFnPointer:
		return "typing.Callable[..., typing.Any]"
	}
	return "typing.Any"
}

// simple reports whether ctypes accepts id as a callback return type.
func simple(ctx *emit.Context, id types.TypeID) bool {
	switch ctx.Graph.Kind(id) {
	case types.KindPrimitive, types.KindPointer, types.KindEnum:
		return true
	}
	return false
}

func literal(v types.Value) string {
	switch v.Kind {
	case types.ValueBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case types.ValueFloat:
		return v.Literal()
	}
	return v.String()
}
