// Package c emits a C header declaring every type, constant and function of
// the library. The header is the reference rendering of the ABI: every
// other target must agree with its layouts.
package c

import (
	"fmt"

	"ffigen/internal/emit"
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Target is the registry id of the C emitter.
const Target = "c"

// Emitter writes a single header.
type Emitter struct {
	p      Printer
	file   string
	guard  string
	head   *emit.Writer
	decls  *emit.Writer
	defs   *emit.Writer
	consts *emit.Writer
	fns    *emit.Writer
}

// New returns a fresh C emitter.
func New() emit.Emitter { return &Emitter{} }

func (e *Emitter) Target() string { return Target }

func (e *Emitter) Style() naming.Style {
	return naming.Style{
		Type:          naming.CaseKeep,
		Function:      naming.CaseKeep,
		Method:        naming.CaseKeep,
		Field:         naming.CaseKeep,
		Param:         naming.CaseKeep,
		Constant:      naming.CaseScreaming,
		Variant:       naming.CaseScreaming,
		VariantPrefix: true,
		Reserved:      naming.Reserved(naming.CKeywords),
	}
}

func (e *Emitter) Begin(ctx *emit.Context) error {
	e.p = Printer{Graph: ctx.Graph, Name: ctx.Names.Type}
	base := ctx.Options.Module
	if base == "" {
		base = ctx.Options.Library
	}
	if base == "" {
		base = "bindings"
	}
	e.file = naming.Sanitize(naming.Snake(base)) + ".h"
	e.guard = ctx.Options.HeaderGuard
	if e.guard == "" {
		e.guard = naming.Sanitize(naming.Screaming(base)) + "_H"
	}
	for _, w := range []**emit.Writer{&e.head, &e.decls, &e.defs, &e.consts, &e.fns} {
		*w = emit.NewWriter("    ")
	}

	w := e.head
	w.Line("// Automatically generated by ffigen. Do not edit.")
	w.Linef("#ifndef %s", e.guard)
	w.Linef("#define %s", e.guard)
	w.Blank()
	w.Line("#include <stdbool.h>")
	w.Line("#include <stddef.h>")
	w.Line("#include <stdint.h>")
	w.Blank()
	w.Line("#ifdef __cplusplus")
	w.Line(`extern "C" {`)
	w.Line("#endif")
	w.Blank()
	if ctx.Guard.Present() {
		fn := ctx.Function(ctx.Guard.Function)
		w.Linef("// Value %s() returns for the API these declarations describe.", fn.Name)
		w.Linef("#define %s_API_GUARD UINT64_C(0x%016x)", naming.Sanitize(naming.Screaming(base)), ctx.Guard.Hash)
		w.Blank()
	}
	return nil
}

func (e *Emitter) DeclareType(ctx *emit.Context, id types.TypeID) error {
	switch ctx.Graph.Kind(id) {
	case types.KindStruct, types.KindOpaque:
		name := ctx.Names.Type(id)
		e.decls.Linef("typedef struct %s %s;", name, name)
	}
	return nil
}

func (e *Emitter) EmitPrimitive(*emit.Context, types.TypeID) error { return nil }

func (e *Emitter) EmitStruct(ctx *emit.Context, id types.TypeID) error {
	s, _ := ctx.Graph.Struct(id)
	name := ctx.Names.Type(id)
	w := e.defs
	w.Comment("// ", s.Doc)
	if lc := ctx.LayoutComment(id); lc != "" {
		w.Linef("// %s", lc)
	}
	pack := s.Repr.PackAlign()
	if pack > 0 {
		w.Linef("#pragma pack(push, %d)", pack)
	}
	w.Open("struct %s {", name)
	for i, f := range s.Fields {
		w.Comment("// ", f.Doc)
		w.Line(e.p.Decl(f.Type, ctx.Names.Field(id, i)) + ";")
	}
	w.Close("};")
	if pack > 0 {
		w.Line("#pragma pack(pop)")
	}
	w.Blank()
	ctx.RecordStruct(id, s.Repr)
	return nil
}

func (e *Emitter) EmitEnum(ctx *emit.Context, id types.TypeID) error {
	en, _ := ctx.Graph.Enum(id)
	name := ctx.Names.Type(id)
	w := e.defs
	w.Comment("// ", en.Doc)
	base := en.BaseOrDefault()
	if base == types.PrimI32 {
		w.Open("typedef enum %s {", name)
	} else {
		w.Linef("typedef %s %s;", primNames[base], name)
		w.Open("enum {")
	}
	for i, v := range en.Variants {
		w.Comment("// ", v.Doc)
		w.Linef("%s = %d,", ctx.Names.Variant(id, i), v.Value)
	}
	if base == types.PrimI32 {
		w.Close(fmt.Sprintf("} %s;", name))
	} else {
		w.Close("};")
	}
	w.Blank()
	return nil
}

func (e *Emitter) EmitOpaque(ctx *emit.Context, id types.TypeID) error {
	doc := ctx.Graph.Doc(id)
	if doc == "" {
		return nil
	}
	e.defs.Comment("// ", ctx.Names.Type(id)+": "+doc)
	e.defs.Blank()
	return nil
}

func (e *Emitter) EmitSlice(ctx *emit.Context, id types.TypeID) error {
	if err := e.EmitStruct(ctx, id); err != nil {
		return err
	}
	s, _ := ctx.Graph.Struct(id)
	name := ctx.Names.Type(id)
	data, length := ctx.Names.Field(id, 0), ctx.Names.Field(id, 1)
	w := e.defs
	get := ctx.Names.Local(naming.CaseKeep, name+"_get")
	w.Linef("// %s returns element i, or NULL when i is out of bounds.", get)
	w.Open("static inline %s {", e.p.Decl(s.Fields[0].Type, get+"("+name+" s, uint64_t i)"))
	w.Linef("return i < (uint64_t)s.%s ? &s.%s[i] : NULL;", length, data)
	w.Close("}")
	w.Blank()
	return nil
}

func (e *Emitter) EmitOption(ctx *emit.Context, id types.TypeID) error {
	if err := e.EmitStruct(ctx, id); err != nil {
		return err
	}
	name := ctx.Names.Type(id)
	tag := ctx.Names.Field(id, 1)
	w := e.defs
	valid := ctx.Names.Local(naming.CaseKeep, name+"_valid")
	isSome := ctx.Names.Local(naming.CaseKeep, name+"_is_some")
	w.Line("// Discriminant 1 means present and 0 absent; anything else is invalid.")
	w.Open("static inline bool %s(const %s *o) {", valid, name)
	w.Linef("return o->%s <= 1;", tag)
	w.Close("}")
	w.Open("static inline bool %s(const %s *o) {", isSome, name)
	w.Linef("return o->%s == 1;", tag)
	w.Close("}")
	w.Blank()
	return nil
}

// EmitResult adds a success test to error enums and result structs. The
// raw call already returns the code in C.
func (e *Emitter) EmitResult(ctx *emit.Context, id types.TypeID) error {
	p := ctx.Pattern(id)
	ok := ctx.Variant(p.ErrorEnum, p.Codes.Success)
	name := ctx.Names.Type(id)
	w := e.defs
	if ctx.Graph.Kind(id) == types.KindEnum {
		fn := ctx.Names.Local(naming.CaseKeep, name+"_is_ok")
		w.Open("static inline bool %s(%s code) {", fn, name)
		w.Linef("return code == %s;", ok)
		w.Close("}")
		w.Blank()
		return nil
	}
	if err := e.EmitStruct(ctx, id); err != nil {
		return err
	}
	fn := ctx.Names.Local(naming.CaseKeep, name+"_is_ok")
	w.Open("static inline bool %s(const %s *r) {", fn, name)
	w.Linef("return r->%s == %s;", ctx.Names.Field(id, 1), ok)
	w.Close("}")
	w.Blank()
	return nil
}

func (e *Emitter) EmitString(ctx *emit.Context, id types.TypeID) error {
	p := ctx.Pattern(id)
	e.defs.Linef("// Owned UTF-8 text. Release every value exactly once with %s.", ctx.Names.Function(p.Destroy))
	return e.EmitStruct(ctx, id)
}

func (e *Emitter) EmitCallback(ctx *emit.Context, id types.TypeID) error {
	fi, _ := ctx.Graph.FnPointer(id)
	for _, p := range fi.Params {
		if e.p.IsArray(p) {
			return ctx.Unsupported(id, "C cannot pass arrays by value")
		}
	}
	if e.p.IsArray(fi.Ret) {
		return ctx.Unsupported(id, "C cannot return arrays by value")
	}
	e.defs.Comment("// ", fi.Doc)
	if ctx.Pattern(id).Context {
		e.defs.Line("// The last argument is the context pointer passed with the callback.")
	}
	e.defs.Line(e.p.FnPointerTypedef(fi, ctx.Names.Type(id)))
	e.defs.Blank()
	return nil
}

func (e *Emitter) EmitConstant(ctx *emit.Context, i int) error {
	k := ctx.Graph.Constants()[i]
	e.consts.Comment("// ", k.Doc)
	e.consts.Linef("#define %s %s", ctx.Names.Constant(i), e.p.Literal(k.Type, k.Value))
	return nil
}

func (e *Emitter) EmitFunction(ctx *emit.Context, i int) error {
	return e.prototype(ctx, e.fns, i)
}

func (e *Emitter) prototype(ctx *emit.Context, w *emit.Writer, i int) error {
	fn := ctx.Function(i)
	ids := make([]types.TypeID, len(fn.Params))
	names := make([]string, len(fn.Params))
	for j, p := range fn.Params {
		if e.p.IsArray(p.Type) {
			return ctx.UnsupportedFunction(i, "C cannot pass arrays by value")
		}
		ids[j] = p.Type
		names[j] = ctx.Names.Param(i, j)
	}
	if e.p.IsArray(fn.Ret) {
		return ctx.UnsupportedFunction(i, "C cannot return arrays by value")
	}
	w.Comment("// ", fn.Doc)
	for j, p := range fn.Params {
		if p.Doc != "" {
			w.Comment("// ", names[j]+": "+p.Doc)
		}
	}
	if fn.RetDoc != "" {
		w.Comment("// ", "Returns: "+fn.RetDoc)
	}
	roles := ctx.Roles(i)
	if roles.Checked {
		w.Line("// Check the returned code before using any output.")
	}
	w.Line(e.p.Prototype(fn.Ret, ctx.Names.Function(i), ids, names) + ";")
	w.Blank()
	return nil
}

func (e *Emitter) EmitService(ctx *emit.Context, i int) error {
	svc, _ := ctx.Graph.Service(i)
	name := ctx.Names.Type(svc.Opaque)
	w := e.fns
	w.Linef("// Service %s.", name)
	w.Comment("// ", ctx.Graph.Doc(svc.Opaque))
	w.Linef("// Every handle made by a constructor must be released exactly once with %s.", ctx.Names.Function(svc.Destructor))
	w.Blank()
	var bad error
	for _, m := range ctx.Members(i) {
		if err := e.prototype(ctx, w, m); err != nil && bad == nil {
			bad = err
		}
	}
	return bad
}

func (e *Emitter) Finish(*emit.Context) ([]emit.File, error) {
	out := emit.NewWriter("    ")
	out.Raw(e.head.String())
	for _, w := range []*emit.Writer{e.decls, e.defs, e.consts, e.fns} {
		if w.Len() == 0 {
			continue
		}
		out.Raw(w.String())
		out.Blank()
	}
	out.Line("#ifdef __cplusplus")
	out.Line("}")
	out.Line("#endif")
	out.Blank()
	out.Linef("#endif // %s", e.guard)
	return []emit.File{{Path: e.file, Content: out.Bytes()}}, nil
}
