// Package gocgo emits a Go package that loads the native library with
// dlopen and calls every export through a small static C shim. Arguments
// cross the boundary by address, so Go values keep their own layout and
// only the private C header has to agree with the library.
package gocgo

import (
	"fmt"
	"go/format"
	"slices"
	"strings"

	cbackend "ffigen/internal/backend/c"
	"ffigen/internal/emit"
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Target is the registry id of the Go emitter.
const Target = "go"

// locals are identifiers the generated wrappers declare themselves.
var locals = []string{
	"l", "s", "h", "v", "r", "cb", "err", "ret", "pin", "zero", "handle", "handlePtr", "yield", "trampoline",
	"Library", "Open", "Close", "NativeError",
}

type mode int

const (
	// modeSlot runs a synchronous context-free callback through a global
	// slot held for the duration of the call.
	modeSlot mode = iota
	// modeHandle passes a cgo.Handle as the callback context.
	modeHandle
)

type export struct {
	sig  types.TypeID
	mode mode
}

// Emitter writes the Go file, the callback exports and the private header.
type Emitter struct {
	pkg     string
	p       cbackend.Printer
	imports map[string]bool
	exports map[string]export

	hdecls   *emit.Writer
	hdefs    *emit.Writer
	shims    *emit.Writer
	defs     *emit.Writer
	consts   *emit.Writer
	methods  *emit.Writer
	services *emit.Writer
	takes    []types.TypeID
}

// New returns a fresh Go emitter.
func New() emit.Emitter { return &Emitter{} }

func (e *Emitter) Target() string { return Target }

func (e *Emitter) Style() naming.Style {
	return naming.Style{
		Type:            naming.CasePascal,
		Function:        naming.CasePascal,
		Method:          naming.CasePascal,
		Field:           naming.CasePascal,
		Param:           naming.CaseCamel,
		Constant:        naming.CasePascal,
		Variant:         naming.CasePascal,
		VariantPrefix:   true,
		FunctionsScoped: true,
		Reserved:        naming.Reserved(naming.GoKeywords, naming.GoPredeclared, locals),
		EscapeSuffix:    "_",
	}
}

func (e *Emitter) Begin(ctx *emit.Context) error {
	base := ctx.Options.Module
	if base == "" {
		base = ctx.Options.Library
	}
	if base == "" {
		base = "bindings"
	}
	e.pkg = strings.ReplaceAll(naming.Sanitize(naming.Snake(base)), "_", "")
	if e.pkg == "" {
		e.pkg = "bindings"
	}
	e.p = cbackend.Printer{Graph: ctx.Graph, Name: func(id types.TypeID) string { return cName(ctx, id) }}
	e.imports = map[string]bool{"errors": true, "fmt": true, "sync": true, "unsafe": true}
	e.exports = make(map[string]export)
	for _, w := range []**emit.Writer{&e.hdecls, &e.hdefs, &e.shims, &e.defs, &e.consts, &e.methods, &e.services} {
		*w = emit.NewWriter("\t")
	}
	e.consts.Indent()
	return nil
}

// private names field i of a pattern struct, which stays unexported behind
// accessor methods.
func private(ctx *emit.Context, id types.TypeID, i int) string {
	s, _ := ctx.Graph.Struct(id)
	return ctx.Names.Local(naming.CaseCamel, s.Fields[i].Name)
}

func (e *Emitter) DeclareType(ctx *emit.Context, id types.TypeID) error {
	switch ctx.Graph.Kind(id) {
	case types.KindStruct, types.KindOpaque:
		e.hdecls.Linef("typedef struct %s %s;", cName(ctx, id), cName(ctx, id))
	}
	return nil
}

func (e *Emitter) EmitPrimitive(*emit.Context, types.TypeID) error { return nil }

// cStruct writes the header definition of struct id. Field names are
// positional; only the layout matters.
func (e *Emitter) cStruct(ctx *emit.Context, id types.TypeID) error {
	s, _ := ctx.Graph.Struct(id)
	w := e.hdefs
	pack := s.Repr.PackAlign()
	if pack > 0 {
		w.Linef("#pragma pack(push, %d)", pack)
	}
	w.Open("struct %s {", cName(ctx, id))
	for i, f := range s.Fields {
		if t, _ := ctx.Graph.Lookup(f.Type); t.Kind == types.KindArray && ctx.Graph.Kind(t.Elem) == types.KindArray {
			return ctx.Unsupported(id, "field %s: nested arrays are not supported", f.Name)
		}
		w.Linef("%s;", e.p.Decl(f.Type, fmt.Sprintf("f%d", i)))
	}
	w.Close("};")
	if pack > 0 {
		w.Line("#pragma pack(pop)")
	}
	w.Blank()
	return nil
}

// goStruct writes the Go definition of struct id with the given field
// names and records it.
func (e *Emitter) goStruct(ctx *emit.Context, id types.TypeID, names []string) {
	s, _ := ctx.Graph.Struct(id)
	w := e.defs
	w.Blank()
	w.Comment("// ", s.Doc)
	if lc := ctx.LayoutComment(id); lc != "" && s.Doc == "" {
		w.Linef("// %s has %s.", ctx.Names.Type(id), lc)
	}
	w.Open("type %s struct {", ctx.Names.Type(id))
	for i, f := range s.Fields {
		w.Comment("// ", f.Doc)
		w.Linef("%s %s", names[i], goType(ctx, f.Type))
	}
	w.Close("}")
	ctx.RecordStructAs(id, s.Repr, names)
}

func (e *Emitter) EmitStruct(ctx *emit.Context, id types.TypeID) error {
	if err := e.cStruct(ctx, id); err != nil {
		return err
	}
	s, _ := ctx.Graph.Struct(id)
	names := make([]string, len(s.Fields))
	for i := range s.Fields {
		names[i] = ctx.Names.Field(id, i)
	}
	if s.Repr.PackAlign() > 0 {
		return e.packed(ctx, id, names)
	}
	e.goStruct(ctx, id, names)
	return nil
}

var units = map[int]string{1: "uint8", 2: "uint16", 4: "uint32", 8: "uint64"}

// packed writes a packed struct as raw storage of its exact size and
// alignment, with accessors at the packed offsets.
func (e *Emitter) packed(ctx *emit.Context, id types.TypeID, names []string) error {
	s, _ := ctx.Graph.Struct(id)
	l, err := ctx.Layout.LayoutOf(id)
	if err != nil {
		return ctx.Unsupported(id, "layout: %v", err)
	}
	unit, ok := units[l.Align]
	if !ok || l.Size%l.Align != 0 {
		return ctx.Unsupported(id, "packed alignment %d", l.Align)
	}
	name := ctx.Names.Type(id)
	w := e.defs
	w.Blank()
	w.Comment("// ", s.Doc)
	w.Linef("// %s is packed (%s); its fields are reached through accessors.", name, ctx.LayoutComment(id))
	w.Open("type %s struct {", name)
	w.Linef("raw [%d]%s", l.Size/l.Align, unit)
	w.Close("}")
	for i, f := range s.Fields {
		typ := goType(ctx, f.Type)
		at := fmt.Sprintf("(*%s)(unsafe.Add(unsafe.Pointer(&s.raw), %d))", typ, l.FieldOffsets[i])
		w.Blank()
		w.Linef("func (s *%s) %s() %s { return *%s }", name, names[i], typ, at)
		w.Blank()
		w.Linef("func (s *%s) Set%s(v %s) { *%s = v }", name, names[i], typ, at)
	}
	ctx.RecordStructAs(id, s.Repr, names)
	return nil
}

func (e *Emitter) patternStruct(ctx *emit.Context, id types.TypeID) error {
	if err := e.cStruct(ctx, id); err != nil {
		return err
	}
	s, _ := ctx.Graph.Struct(id)
	names := make([]string, len(s.Fields))
	for i := range s.Fields {
		names[i] = private(ctx, id, i)
	}
	e.goStruct(ctx, id, names)
	return nil
}

func (e *Emitter) EmitEnum(ctx *emit.Context, id types.TypeID) error {
	en, _ := ctx.Graph.Enum(id)
	base := en.BaseOrDefault()
	name := ctx.Names.Type(id)
	e.hdefs.Linef("typedef %s %s;", e.p.PrimName(base), cName(ctx, id))
	e.hdefs.Blank()

	w := e.defs
	w.Blank()
	w.Comment("// ", en.Doc)
	w.Linef("type %s %s", name, goNames[base])
	w.Blank()
	w.Open("const (")
	for i, v := range en.Variants {
		w.Comment("// ", v.Doc)
		w.Linef("%s %s = %d", ctx.Names.Variant(id, i), name, v.Value)
	}
	w.Close(")")
	w.Blank()
	w.Open("func (e %s) String() string {", name)
	w.Line("switch e {")
	for i, v := range en.Variants {
		// aliases share a case with the first variant of their value
		if ctx.Variant(id, v.Value) != ctx.Names.Variant(id, i) {
			continue
		}
		w.Linef("case %s:", ctx.Names.Variant(id, i))
		w.Linef("\treturn %q", v.Name)
	}
	w.Line("}")
	w.Linef(`return fmt.Sprintf("%s(%%d)", int64(e))`, name)
	w.Close("}")
	return nil
}

func (e *Emitter) EmitOpaque(ctx *emit.Context, id types.TypeID) error {
	if ctx.Pattern(id).Kind == types.PatternService {
		return nil
	}
	w := e.defs
	w.Blank()
	w.Comment("// ", ctx.Graph.Doc(id))
	w.Linef("// %s is only handled through unsafe.Pointer.", ctx.Names.Type(id))
	return nil
}

func (e *Emitter) EmitSlice(ctx *emit.Context, id types.TypeID) error {
	if err := e.patternStruct(ctx, id); err != nil {
		return err
	}
	e.imports["iter"] = true
	p := ctx.Pattern(id)
	name := ctx.Names.Type(id)
	elem := goType(ctx, p.Elem)
	data, length := private(ctx, id, 0), private(ctx, id, 1)
	w := e.defs
	w.Blank()
	w.Linef("// New%s borrows s. The caller keeps s alive while the library uses it.", name)
	w.Open("func New%s(s []%s) %s {", name, elem, name)
	info, _ := ctx.Graph.Struct(id)
	w.Linef("return %s{%s: unsafe.Pointer(unsafe.SliceData(s)), %s: %s(len(s))}", name, data, length, goType(ctx, info.Fields[1].Type))
	w.Close("}")
	w.Blank()
	w.Linef("func (s %s) Len() int { return int(s.%s) }", name, length)
	w.Blank()
	w.Open("func (s %s) view() []%s {", name, elem)
	w.Linef("if s.%s == nil || s.%s == 0 {", data, length)
	w.Line("\treturn nil")
	w.Line("}")
	w.Linef("return unsafe.Slice((*%s)(s.%s), s.%s)", elem, data, length)
	w.Close("}")
	w.Blank()
	w.Linef("// Get returns element i, or an error wrapping ErrOutOfRange.")
	w.Open("func (s %s) Get(i int) (%s, error) {", name, elem)
	w.Linef("if i < 0 || uint64(i) >= uint64(s.%s) {", length)
	w.Linef("\tvar zero %s", elem)
	w.Linef("\treturn zero, fmt.Errorf(\"index %%d for slice of length %%d: %%w\", i, s.%s, ErrOutOfRange)", length)
	w.Line("}")
	w.Line("return s.view()[i], nil")
	w.Close("}")
	if p.Mutable {
		w.Blank()
		w.Open("func (s %s) Set(i int, v %s) error {", name, elem)
		w.Linef("if i < 0 || uint64(i) >= uint64(s.%s) {", length)
		w.Linef("\treturn fmt.Errorf(\"index %%d for slice of length %%d: %%w\", i, s.%s, ErrOutOfRange)", length)
		w.Line("}")
		w.Line("s.view()[i] = v")
		w.Line("return nil")
		w.Close("}")
	}
	w.Blank()
	w.Open("func (s %s) All() iter.Seq2[int, %s] {", name, elem)
	w.Open("return func(yield func(int, %s) bool) {", elem)
	w.Line("for i, v := range s.view() {")
	w.Line("\tif !yield(i, v) {")
	w.Line("\t\treturn")
	w.Line("\t}")
	w.Line("}")
	w.Close("}")
	w.Close("}")
	w.Blank()
	w.Linef("// Copied copies the elements into Go memory.")
	w.Linef("func (s %s) Copied() []%s { return append([]%s(nil), s.view()...) }", name, elem, elem)
	return nil
}

func (e *Emitter) EmitOption(ctx *emit.Context, id types.TypeID) error {
	if err := e.patternStruct(ctx, id); err != nil {
		return err
	}
	p := ctx.Pattern(id)
	name := ctx.Names.Type(id)
	inner := goType(ctx, p.Inner)
	value, tag := private(ctx, id, 0), private(ctx, id, 1)
	w := e.defs
	w.Blank()
	w.Linef("func Some%s(v %s) %s { return %s{%s: v, %s: 1} }", name, inner, name, name, value, tag)
	w.Blank()
	w.Linef("func None%s() %s { return %s{} }", name, name, name)
	w.Blank()
	w.Line("// Get returns the value and whether it is present.")
	w.Open("func (o %s) Get() (%s, bool, error) {", name, inner)
	w.Linef("var zero %s", inner)
	w.Linef("switch o.%s {", tag)
	w.Line("case 0:")
	w.Line("\treturn zero, false, nil")
	w.Line("case 1:")
	w.Linef("\treturn o.%s, true, nil", value)
	w.Line("}")
	w.Linef("return zero, false, fmt.Errorf(\"%s tag %%d: %%w\", o.%s, ErrUnexpectedDiscriminant)", name, tag)
	w.Close("}")
	return nil
}

func (e *Emitter) EmitResult(ctx *emit.Context, id types.TypeID) error {
	p := ctx.Pattern(id)
	name := ctx.Names.Type(id)
	w := e.defs
	if ctx.Graph.Kind(id) == types.KindStruct {
		if err := e.patternStruct(ctx, id); err != nil {
			return err
		}
		ok := goType(ctx, p.Ok)
		w.Blank()
		w.Open("func (r %s) Unwrap() (%s, error) {", name, ok)
		w.Linef("if err := r.%s.check(); err != nil {", private(ctx, id, 1))
		w.Linef("\tvar zero %s", ok)
		w.Line("\treturn zero, err")
		w.Line("}")
		w.Linef("return r.%s, nil", private(ctx, id, 0))
		w.Close("}")
		return nil
	}
	w.Blank()
	w.Open("func (e %s) check() error {", name)
	w.Line("switch e {")
	w.Linef("case %s:", ctx.Variant(id, p.Codes.Success))
	w.Line("\treturn nil")
	if p.Codes.HasPanic {
		w.Linef("case %s:", ctx.Variant(id, p.Codes.Panic))
		w.Line("\treturn &NativeError{Code: int64(e), Name: e.String(), kind: ErrNativePanic}")
	}
	if p.Codes.HasNull {
		w.Linef("case %s:", ctx.Variant(id, p.Codes.Null))
		w.Line("\treturn &NativeError{Code: int64(e), Name: e.String(), kind: ErrNullPointer}")
	}
	w.Line("}")
	w.Line("return &NativeError{Code: int64(e), Name: e.String()}")
	w.Close("}")
	return nil
}

func (e *Emitter) EmitString(ctx *emit.Context, id types.TypeID) error {
	if err := e.patternStruct(ctx, id); err != nil {
		return err
	}
	e.takes = append(e.takes, id)
	name := ctx.Names.Type(id)
	ptr, length := private(ctx, id, 0), private(ctx, id, 1)
	w := e.defs
	w.Blank()
	w.Open("func (s %s) text() string {", name)
	w.Linef("if s.%s == nil || s.%s == 0 {", ptr, length)
	w.Line("\treturn \"\"")
	w.Line("}")
	w.Linef("return string(unsafe.Slice((*byte)(s.%s), s.%s))", ptr, length)
	w.Close("}")
	return nil
}

func (e *Emitter) EmitCallback(ctx *emit.Context, id types.TypeID) error {
	fi, _ := ctx.Graph.FnPointer(id)
	for _, p := range append(slices.Clone(fi.Params), fi.Ret) {
		if ctx.Graph.Kind(p) == types.KindArray {
			return ctx.Unsupported(id, "callbacks cannot pass arrays by value")
		}
	}
	e.hdefs.Line(e.p.FnPointerTypedef(fi, cName(ctx, id)))
	e.hdefs.Blank()
	return nil
}

func (e *Emitter) EmitConstant(ctx *emit.Context, i int) error {
	k := ctx.Graph.Constants()[i]
	e.consts.Comment("// ", k.Doc)
	e.consts.Linef("%s %s = %s", ctx.Names.Constant(i), goType(ctx, k.Type), k.Value.Literal())
	return nil
}

func (e *Emitter) Finish(ctx *emit.Context) ([]emit.File, error) {
	header := e.pkg + "_types.h"
	guard := "FFIGEN_" + naming.Screaming(e.pkg) + "_TYPES_H"
	h := emit.NewWriter("    ")
	h.Line("// Code generated by ffigen. DO NOT EDIT.")
	h.Linef("#ifndef %s", guard)
	h.Linef("#define %s", guard)
	h.Blank()
	h.Line("#include <stdbool.h>")
	h.Line("#include <stddef.h>")
	h.Line("#include <stdint.h>")
	h.Blank()
	h.Raw(e.hdecls.String())
	h.Blank()
	h.Raw(e.hdefs.String())
	h.Linef("#endif // %s", guard)

	main, err := e.mainFile(ctx, header)
	if err != nil {
		return nil, err
	}
	files := []emit.File{{Path: e.pkg + ".go", Content: main}}
	if len(e.exports) > 0 {
		cb, err := e.callbacksFile(ctx, header)
		if err != nil {
			return nil, err
		}
		files = append(files, emit.File{Path: e.pkg + "_callbacks.go", Content: cb})
	}
	return append(files, emit.File{Path: header, Content: h.Bytes()}), nil
}

func (e *Emitter) mainFile(ctx *emit.Context, header string) ([]byte, error) {
	fns := ctx.Graph.Functions()
	w := emit.NewWriter("\t")
	w.Line("// Code generated by ffigen. DO NOT EDIT.")
	w.Blank()
	w.Linef("// Package %s binds the %s native library. Open loads it at run time.", e.pkg, libraryName(ctx, e.pkg))
	w.Linef("package %s", e.pkg)
	w.Blank()
	w.Line("/*")
	w.Line("#cgo LDFLAGS: -ldl")
	w.Line("#include <dlfcn.h>")
	w.Line("#include <stdlib.h>")
	w.Linef("#include %q", header)
	w.Blank()
	for _, name := range e.exportNames() {
		ex := e.exports[name]
		fi, _ := ctx.Graph.FnPointer(ex.sig)
		w.Linef("extern %s;", e.p.Prototype(fi.Ret, name, fi.Params, nil))
	}
	w.Blank()
	w.Raw(e.shims.String())
	w.Line("*/")
	w.Line(`import "C"`)
	w.Blank()
	w.Open("import (")
	for _, imp := range e.importList() {
		w.Linef("%q", imp)
	}
	w.Close(")")
	w.Blank()
	w.Raw(prelude)
	if ctx.Guard.Present() {
		w.Blank()
		w.Linef("const expectedAPIGuard uint64 = 0x%016x", ctx.Guard.Hash)
	}
	if e.consts.Len() > 0 {
		w.Blank()
		w.Line("const (")
		w.Raw(e.consts.String())
		w.Line(")")
	}
	w.Raw(e.defs.String())
	w.Blank()

	w.Line("// Library is a loaded copy of the native library. Its methods are safe for")
	w.Line("// concurrent use.")
	w.Open("type Library struct {")
	w.Line("handle unsafe.Pointer")
	w.Linef("fns    [%d]unsafe.Pointer", len(fns))
	w.Line("mu     sync.Mutex")
	w.Close("}")
	w.Blank()
	w.Linef("var symbols = [%d]string{", len(fns))
	for _, fn := range fns {
		w.Linef("\t%q,", fn.Name)
	}
	w.Line("}")
	w.Blank()
	w.Line("// Open loads the library at path and resolves every export.")
	w.Open("func Open(path string) (*Library, error) {")
	w.Line("cpath := C.CString(path)")
	w.Line("defer C.free(unsafe.Pointer(cpath))")
	w.Line("h := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)")
	w.Line("if h == nil {")
	w.Line("\treturn nil, fmt.Errorf(\"open %s: %s\", path, C.GoString(C.dlerror()))")
	w.Line("}")
	w.Line("l := &Library{handle: h}")
	w.Line("for i, name := range symbols {")
	w.Line("\tcname := C.CString(name)")
	w.Line("\tl.fns[i] = C.dlsym(h, cname)")
	w.Line("\tC.free(unsafe.Pointer(cname))")
	w.Line("\tif l.fns[i] == nil {")
	w.Line("\t\tC.dlclose(h)")
	w.Line("\t\treturn nil, fmt.Errorf(\"open %s: missing symbol %s\", path, name)")
	w.Line("\t}")
	w.Line("}")
	if ctx.Guard.Present() {
		w.Linef("if got := l.%s(); got != expectedAPIGuard {", ctx.Names.Function(ctx.Guard.Function))
		w.Line("\tC.dlclose(h)")
		w.Line("\treturn nil, fmt.Errorf(\"open %s: library hash %#x, bindings %#x: %w\", path, got, expectedAPIGuard, ErrAPIMismatch)")
		w.Line("}")
	}
	w.Line("return l, nil")
	w.Close("}")
	w.Blank()
	w.Line("// Close unloads the library. Services created from it must be closed first.")
	w.Open("func (l *Library) Close() error {")
	w.Line("if C.dlclose(l.handle) != 0 {")
	w.Line("\treturn fmt.Errorf(\"close: %s\", C.GoString(C.dlerror()))")
	w.Line("}")
	w.Line("return nil")
	w.Close("}")
	w.Blank()
	for _, id := range e.takes {
		p := ctx.Pattern(id)
		typ := ctx.Names.Type(id)
		w.Blank()
		w.Linef("// %s moves the string out of s, leaving s empty. An empty", giver(ctx, id))
		w.Line("// wrapper has already been handed to the library.")
		w.Open("func (l *Library) %s(s *%s) (%s, error) {", giver(ctx, id), typ, typ)
		w.Line("l.mu.Lock()")
		w.Line("defer l.mu.Unlock()")
		w.Linef("if s == nil || s.%s == nil {", private(ctx, id, 0))
		w.Linef("\treturn %s{}, fmt.Errorf(\"string was already released: %%w\", ErrInvalidHandle)", typ)
		w.Line("}")
		w.Line("v := *s")
		w.Linef("*s = %s{}", typ)
		w.Line("return v, nil")
		w.Close("}")
		w.Blank()
		w.Open("func (l *Library) %s(s %s) string {", taker(ctx, id), typ)
		w.Line("text := s.text()")
		w.Linef("C.%s(l.fns[%d], unsafe.Pointer(&s))", shim(ctx, p.Destroy), p.Destroy)
		w.Line("return text")
		w.Close("}")
	}
	w.Raw(e.methods.String())
	w.Raw(e.services.String())
	return gofmt(e.pkg+".go", w.Bytes())
}

func (e *Emitter) callbacksFile(ctx *emit.Context, header string) ([]byte, error) {
	w := emit.NewWriter("\t")
	w.Line("// Code generated by ffigen. DO NOT EDIT.")
	w.Blank()
	w.Linef("package %s", e.pkg)
	w.Blank()
	w.Line("/*")
	w.Linef("#include %q", header)
	w.Line("*/")
	w.Line(`import "C"`)
	w.Blank()
	w.Open("import (")
	used := map[mode]bool{}
	conversions := false
	for _, ex := range e.exports {
		used[ex.mode] = true
		fi, _ := ctx.Graph.FnPointer(ex.sig)
		conversions = conversions || len(fi.Params) > 0 || !ctx.Void(fi.Ret)
	}
	if used[modeHandle] {
		w.Line(`"runtime/cgo"`)
	}
	if used[modeSlot] {
		w.Line(`"sync"`)
	}
	if conversions {
		w.Line(`"unsafe"`)
	}
	w.Close(")")
	for _, name := range e.exportNames() {
		ex := e.exports[name]
		e.writeExport(ctx, w, name, ex)
	}
	return gofmt(e.pkg+"_callbacks.go", w.Bytes())
}

func (e *Emitter) exportNames() []string {
	out := make([]string, 0, len(e.exports))
	for k := range e.exports {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (e *Emitter) importList() []string {
	out := make([]string, 0, len(e.imports))
	for k := range e.imports {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// gofmt formats generated Go source; a failure is a generator bug.
func gofmt(path string, src []byte) ([]byte, error) {
	out, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("%s: generated invalid Go: %w", path, err)
	}
	return out, nil
}

func libraryName(ctx *emit.Context, pkg string) string {
	if ctx.Options.Library != "" {
		return ctx.Options.Library
	}
	return pkg
}

func giver(ctx *emit.Context, id types.TypeID) string {
	return ctx.Names.Local(naming.CaseCamel, "give_"+ctx.Names.Type(id))
}

func taker(ctx *emit.Context, id types.TypeID) string {
	return ctx.Names.Local(naming.CaseCamel, "take_"+ctx.Names.Type(id))
}
