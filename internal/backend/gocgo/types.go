package gocgo

import (
	"strconv"
	"strings"

	"ffigen/internal/emit"
	"ffigen/internal/types"
)

var goNames = map[types.Primitive]string{
	types.PrimBool:  "bool",
	types.PrimU8:    "uint8",
	types.PrimU16:   "uint16",
	types.PrimU32:   "uint32",
	types.PrimU64:   "uint64",
	types.PrimI8:    "int8",
	types.PrimI16:   "int16",
	types.PrimI32:   "int32",
	types.PrimI64:   "int64",
	types.PrimF32:   "float32",
	types.PrimF64:   "float64",
	types.PrimUSize: "uintptr",
	types.PrimISize: "int",
}

// cgoNames spells primitives as cgo types in exported callbacks.
var cgoNames = map[types.Primitive]string{
	types.PrimBool:  "C.bool",
	types.PrimU8:    "C.uint8_t",
	types.PrimU16:   "C.uint16_t",
	types.PrimU32:   "C.uint32_t",
	types.PrimU64:   "C.uint64_t",
	types.PrimI8:    "C.int8_t",
	types.PrimI16:   "C.int16_t",
	types.PrimI32:   "C.int32_t",
	types.PrimI64:   "C.int64_t",
	types.PrimF32:   "C.float",
	types.PrimF64:   "C.double",
	types.PrimUSize: "C.size_t",
	types.PrimISize: "C.ptrdiff_t",
}

// goType spells id as the Go type with the same memory layout. Pointers and
// function pointers are untyped.
func goType(ctx *emit.Context, id types.TypeID) string {
	t, ok := ctx.Graph.Lookup(id)
	if !ok {
		return ""
	}
	switch t.Kind {
	case types.KindPrimitive:
		return goNames[t.Prim]
	case types.KindPointer, types.KindFnPointer:
		return "unsafe.Pointer"
	case types.KindArray:
		return "[" + strconv.FormatUint(uint64(t.Len), 10) + "]" + goType(ctx, t.Elem)
	}
	return ctx.Names.Type(id)
}

// cgoType spells id as seen by an exported Go function.
func cgoType(ctx *emit.Context, id types.TypeID) string {
	t, ok := ctx.Graph.Lookup(id)
	if !ok {
		return ""
	}
	switch t.Kind {
	case types.KindPrimitive:
		return cgoNames[t.Prim]
	case types.KindPointer, types.KindFnPointer:
		return "unsafe.Pointer"
	}
	return "C." + cName(ctx, id)
}

// cName is the typedef of an emittable node in the private C header.
func cName(ctx *emit.Context, id types.TypeID) string { return "c_" + ctx.Names.Type(id) }

// funcType spells the Go closure a caller passes for callback signature sig.
func funcType(ctx *emit.Context, sig types.TypeID, hideContext bool) string {
	fi, _ := ctx.Graph.FnPointer(sig)
	params := fi.Params
	if hideContext && len(params) > 0 {
		params = params[:len(params)-1]
	}
	args := make([]string, len(params))
	for i, p := range params {
		args[i] = goType(ctx, p)
	}
	s := "func(" + strings.Join(args, ", ") + ")"
	if !ctx.Void(fi.Ret) {
		s += " " + goType(ctx, fi.Ret)
	}
	return s
}

// zero is the zero value expression of id.
func zero(ctx *emit.Context, id types.TypeID) string {
	t, _ := ctx.Graph.Lookup(id)
	switch {
	case t.Kind == types.KindPrimitive && t.Prim == types.PrimBool:
		return "false"
	case t.Kind == types.KindPrimitive:
		return "0"
	case t.Kind == types.KindPointer || t.Kind == types.KindFnPointer:
		return "nil"
	case ctx.Graph.Kind(id) == types.KindEnum:
		return "0"
	}
	return goType(ctx, id) + "{}"
}
