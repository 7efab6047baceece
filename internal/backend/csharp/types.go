package csharp

import (
	"strings"

	"ffigen/internal/emit"
	"ffigen/internal/types"
)

var csNames = map[types.Primitive]string{
	types.PrimVoid:  "void",
	types.PrimBool:  "bool",
	types.PrimU8:    "byte",
	types.PrimU16:   "ushort",
	types.PrimU32:   "uint",
	types.PrimU64:   "ulong",
	types.PrimI8:    "sbyte",
	types.PrimI16:   "short",
	types.PrimI32:   "int",
	types.PrimI64:   "long",
	types.PrimF32:   "float",
	types.PrimF64:   "double",
	types.PrimUSize: "nuint",
	types.PrimISize: "nint",
}

// cs spells id as a C# type. Every pointer crosses the boundary as IntPtr.
func cs(ctx *emit.Context, id types.TypeID) string {
	t, ok := ctx.Graph.Lookup(id)
	if !ok {
		return "void"
	}
	switch t.Kind {
	case types.KindPrimitive:
		return csNames[t.Prim]
	case types.KindPointer:
		return "IntPtr"
	case types.KindArray:
		return cs(ctx, t.Elem) + "[]"
	}
	return ctx.Names.Type(id)
}

// userCallback spells the managed delegate a caller passes for callback
// signature sig; the context parameter is hidden.
func userCallback(ctx *emit.Context, sig types.TypeID, hideContext bool) string {
	fi, _ := ctx.Graph.FnPointer(sig)
	params := fi.Params
	if hideContext && len(params) > 0 {
		params = params[:len(params)-1]
	}
	args := make([]string, 0, len(params)+1)
	for _, p := range params {
		args = append(args, cs(ctx, p))
	}
	if ctx.Void(fi.Ret) {
		if len(args) == 0 {
			return "Action"
		}
		return "Action<" + strings.Join(args, ", ") + ">"
	}
	args = append(args, cs(ctx, fi.Ret))
	return "Func<" + strings.Join(args, ", ") + ">"
}

func literal(ctx *emit.Context, id types.TypeID, v types.Value) string {
	prim := types.PrimInvalid
	if t, ok := ctx.Graph.Lookup(id); ok && t.Kind == types.KindPrimitive {
		prim = t.Prim
	}
	s := v.Literal()
	switch {
	case v.Kind == types.ValueFloat && prim == types.PrimF32:
		return s + "f"
	case v.Kind == types.ValueUint && (prim == types.PrimU64 || prim == types.PrimUSize):
		return s + "UL"
	case v.Kind == types.ValueUint && prim == types.PrimU32:
		return s + "U"
	case v.Kind == types.ValueInt && (prim == types.PrimI64 || prim == types.PrimISize):
		return s + "L"
	}
	return s
}
