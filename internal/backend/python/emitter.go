// Package python emits a ctypes module. Every native call goes through an
// explicit Library object; services become classes that own their handle.
package python

import (
	"strings"

	"ffigen/internal/emit"
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Target is the registry id of the Python emitter.
const Target = "python"

// Emitter writes a single module.
type Emitter struct {
	file     string
	head     *emit.Writer
	decls    *emit.Writer
	defs     *emit.Writer
	consts   *emit.Writer
	bind     *emit.Writer
	methods  *emit.Writer
	services *emit.Writer
	takes    []types.TypeID
}

// New returns a fresh Python emitter.
func New() emit.Emitter { return &Emitter{} }

func (e *Emitter) Target() string { return Target }

func (e *Emitter) Style() naming.Style {
	return naming.Style{
		Type:            naming.CasePascal,
		Function:        naming.CaseSnake,
		Method:          naming.CaseSnake,
		Field:           naming.CaseSnake,
		Param:           naming.CaseSnake,
		Constant:        naming.CaseScreaming,
		Variant:         naming.CaseScreaming,
		FunctionsScoped: true,
		Reserved:        naming.Reserved(naming.PythonKeywords, []string{"self", "cls", "lib", "handle", "result", "code"}),
		Taken:           naming.Reserved(preludeNames),
	}
}

// preludeNames are defined by the module header, the prelude and the
// Library and service classes.
var preludeNames = []string{
	"ctypes", "enum", "threading", "typing", "annotations", "API_GUARD",
	"NativeError", "NativePanic", "NullPointerError", "InvalidHandle",
	"UnexpectedDiscriminant", "ApiMismatch", "Library",
	"raw", "close",
}

func (e *Emitter) Begin(ctx *emit.Context) error {
	module := ctx.Options.Module
	if module == "" {
		module = ctx.Options.Library
	}
	if module == "" {
		module = "bindings"
	}
	e.file = naming.Sanitize(naming.Snake(module)) + ".py"
	for _, w := range []**emit.Writer{&e.head, &e.decls, &e.defs, &e.consts, &e.bind, &e.methods, &e.services} {
		*w = emit.NewWriter("    ")
	}
	e.bind.Indent()
	e.bind.Indent()
	e.methods.Indent()

	w := e.head
	w.Line("# Automatically generated by ffigen. Do not edit.")
	w.Linef(`"""Bindings for the %s native library."""`, module)
	w.Line("from __future__ import annotations")
	w.Blank()
	w.Line("import ctypes")
	w.Line("import enum")
	w.Line("import threading")
	w.Line("import typing")
	w.Blank()
	if ctx.Guard.Present() {
		w.Linef("API_GUARD = 0x%016x", ctx.Guard.Hash)
		w.Blank()
	}
	w.Blank()
	w.Raw(prelude)
	return nil
}

// field returns the Python name of field i. Pattern structs keep their raw
// fields private behind accessor methods.
func field(ctx *emit.Context, id types.TypeID, i int) string {
	name := ctx.Names.Field(id, i)
	if ctx.Pattern(id).IsNone() {
		return name
	}
	return "_" + name
}

func (e *Emitter) DeclareType(ctx *emit.Context, id types.TypeID) error {
	if ctx.Graph.Kind(id) != types.KindStruct {
		return nil
	}
	name := ctx.Names.Type(id)
	p := ctx.Pattern(id)
	w := e.decls
	w.Blank()
	w.Blank()
	w.Open("class %s(ctypes.Structure):", name)
	doc := ctx.Graph.Doc(id)
	if doc != "" {
		w.Linef(`"""%s"""`, oneLine(doc))
	}
	switch p.Kind {
	case types.PatternSlice:
		e.sliceMethods(ctx, w, id, p)
	case types.PatternOption:
		e.optionMethods(ctx, w, id)
	case types.PatternResult:
		w.Blank()
		w.Open("def unwrap(self) -> %s:", hint(ctx, p.Ok))
		w.Linef("%s(self.%s)", checker(ctx, p.ErrorEnum), field(ctx, id, 1))
		w.Linef("return self.%s", field(ctx, id, 0))
		w.Dedent()
	case types.PatternUtf8String:
		w.Blank()
		w.Open("def text(self) -> str:")
		w.Linef("if not self.%s:", field(ctx, id, 0))
		w.Line(`    return ""`)
		w.Linef(`return ctypes.string_at(self.%s, self.%s).decode("utf-8")`, field(ctx, id, 0), field(ctx, id, 1))
		w.Dedent()
	default:
		if doc == "" {
			w.Line("pass")
		}
	}
	w.Dedent()
	return nil
}

func (e *Emitter) sliceMethods(ctx *emit.Context, w *emit.Writer, id types.TypeID, p types.Pattern) {
	data, length := field(ctx, id, 0), field(ctx, id, 1)
	elem := hint(ctx, p.Elem)
	w.Blank()
	w.Open("def __len__(self) -> int:")
	w.Linef("return self.%s", length)
	w.Dedent()
	w.Blank()
	w.Open("def _index(self, index: int) -> int:")
	w.Linef("n = self.%s", length)
	w.Line("i = index + n if index < 0 else index")
	w.Open("if i < 0 or i >= n:")
	w.Line(`raise IndexError(f"index {index} out of range for slice of length {n}")`)
	w.Dedent()
	w.Line("return i")
	w.Dedent()
	w.Blank()
	w.Open("def __getitem__(self, i: int) -> %s:", elem)
	w.Linef("return self.%s[self._index(i)]", data)
	w.Dedent()
	if p.Mutable {
		w.Blank()
		w.Open("def __setitem__(self, i: int, value: %s) -> None:", elem)
		w.Linef("self.%s[self._index(i)] = value", data)
		w.Dedent()
	}
	w.Blank()
	w.Open("def __iter__(self) -> typing.Iterator[%s]:", elem)
	w.Open("for i in range(self.%s):", length)
	w.Linef("yield self.%s[i]", data)
	w.Dedent()
	w.Dedent()
	w.Blank()
	w.Open("def copied(self) -> typing.List[%s]:", elem)
	w.Line(`"""Copies the elements out of native memory."""`)
	w.Linef("return [self.%s[i] for i in range(self.%s)]", data, length)
	w.Dedent()
	w.Blank()
	w.Open("def first(self) -> typing.Optional[%s]:", elem)
	w.Linef("return self[0] if self.%s else None", length)
	w.Dedent()
	w.Blank()
	w.Open("def last(self) -> typing.Optional[%s]:", elem)
	w.Linef("return self[-1] if self.%s else None", length)
	w.Dedent()
	if ctx.Graph.IsPrimitive(p.Elem, types.PrimU8) {
		w.Blank()
		w.Open("def bytes(self) -> bytes:")
		w.Linef("return ctypes.string_at(self.%s, self.%s) if self.%s else b\"\"", data, length, length)
		w.Dedent()
	}
	w.Blank()
	w.Line("@classmethod")
	w.Open("def from_list(cls, items: typing.Sequence[%s]) -> %s:", elem, ctx.Names.Type(id))
	w.Line(`"""Builds a slice over a copy of items; the slice keeps the copy alive."""`)
	w.Linef("array = (%s * len(items))(*items)", ctype(ctx, p.Elem))
	w.Linef("view = cls(ctypes.cast(array, ctypes.POINTER(%s)), len(items))", ctype(ctx, p.Elem))
	w.Line("view._keep = array")
	w.Line("return view")
	w.Dedent()
}

func (e *Emitter) optionMethods(ctx *emit.Context, w *emit.Writer, id types.TypeID) {
	value, tag := field(ctx, id, 0), field(ctx, id, 1)
	p := ctx.Pattern(id)
	w.Blank()
	w.Open("def is_some(self) -> bool:")
	w.Linef("if self.%s == 1:", tag)
	w.Line("    return True")
	w.Linef("if self.%s == 0:", tag)
	w.Line("    return False")
	w.Linef("raise UnexpectedDiscriminant(self.%s)", tag)
	w.Dedent()
	w.Blank()
	w.Open("def value(self) -> %s:", hint(ctx, p.Inner))
	w.Open("if not self.is_some():")
	w.Linef(`raise ValueError("%s holds no value")`, ctx.Names.Type(id))
	w.Dedent()
	w.Linef("return self.%s", value)
	w.Dedent()
	w.Blank()
	w.Line("@classmethod")
	w.Open("def some(cls, value: %s) -> %s:", hint(ctx, p.Inner), ctx.Names.Type(id))
	w.Line("return cls(value, 1)")
	w.Dedent()
	w.Blank()
	w.Line("@classmethod")
	w.Open("def none(cls) -> %s:", ctx.Names.Type(id))
	w.Line("return cls()")
	w.Dedent()
}

func (e *Emitter) EmitPrimitive(*emit.Context, types.TypeID) error { return nil }

func (e *Emitter) EmitStruct(ctx *emit.Context, id types.TypeID) error {
	s, _ := ctx.Graph.Struct(id)
	name := ctx.Names.Type(id)
	w := e.defs
	w.Blank()
	if lc := ctx.LayoutComment(id); lc != "" {
		w.Linef("# %s: %s", name, lc)
	}
	if pack := s.Repr.PackAlign(); pack > 0 {
		w.Linef("%s._pack_ = %d", name, pack)
	}
	names := make([]string, len(s.Fields))
	w.Open("%s._fields_ = [", name)
	for i, f := range s.Fields {
		names[i] = field(ctx, id, i)
		w.Linef("(%q, %s),", names[i], ctype(ctx, f.Type))
	}
	w.Close("]")
	ctx.RecordStructAs(id, s.Repr, names)
	return nil
}

func (e *Emitter) EmitEnum(ctx *emit.Context, id types.TypeID) error {
	en, _ := ctx.Graph.Enum(id)
	w := e.defs
	w.Blank()
	w.Blank()
	w.Open("class %s(enum.IntEnum):", ctx.Names.Type(id))
	if en.Doc != "" {
		w.Linef(`"""%s"""`, oneLine(en.Doc))
		w.Blank()
	}
	for i, v := range en.Variants {
		w.Linef("%s = %d", ctx.Names.Variant(id, i), v.Value)
		if v.Doc != "" {
			w.Linef(`"""%s"""`, oneLine(v.Doc))
		}
	}
	w.Dedent()
	return nil
}

func (e *Emitter) EmitOpaque(ctx *emit.Context, id types.TypeID) error {
	if ctx.Pattern(id).Kind == types.PatternService {
		return nil
	}
	w := e.defs
	w.Blank()
	w.Comment("# ", ctx.Graph.Doc(id))
	w.Linef("%s = ctypes.c_void_p", ctx.Names.Type(id))
	return nil
}

func (e *Emitter) EmitSlice(ctx *emit.Context, id types.TypeID) error  { return e.EmitStruct(ctx, id) }
func (e *Emitter) EmitOption(ctx *emit.Context, id types.TypeID) error { return e.EmitStruct(ctx, id) }
func (e *Emitter) EmitString(ctx *emit.Context, id types.TypeID) error {
	e.takes = append(e.takes, id)
	return e.EmitStruct(ctx, id)
}

// EmitResult defines the fields of result structs and the code checker of
// error enums.
func (e *Emitter) EmitResult(ctx *emit.Context, id types.TypeID) error {
	if ctx.Graph.Kind(id) == types.KindStruct {
		return e.EmitStruct(ctx, id)
	}
	p := ctx.Pattern(id)
	enum := ctx.Names.Type(id)
	w := e.defs
	w.Blank()
	w.Blank()
	w.Open("def %s(code: int) -> None:", checker(ctx, id))
	w.Linef("if code == %s.%s:", enum, ctx.Variant(id, p.Codes.Success))
	w.Line("    return")
	if p.Codes.HasPanic {
		v := ctx.Variant(id, p.Codes.Panic)
		w.Linef("if code == %s.%s:", enum, v)
		w.Linef("    raise NativePanic(code, %q)", v)
	}
	if p.Codes.HasNull {
		v := ctx.Variant(id, p.Codes.Null)
		w.Linef("if code == %s.%s:", enum, v)
		w.Linef("    raise NullPointerError(code, %q)", v)
	}
	w.Open("try:")
	w.Linef("name = %s(code).name", enum)
	w.Close("except ValueError:")
	w.Indent()
	w.Line(`name = ""`)
	w.Dedent()
	w.Line("raise NativeError(code, name)")
	w.Dedent()
	return nil
}

func (e *Emitter) EmitCallback(ctx *emit.Context, id types.TypeID) error {
	fi, _ := ctx.Graph.FnPointer(id)
	if !ctx.Void(fi.Ret) && !simple(ctx, fi.Ret) {
		return ctx.Unsupported(id, "ctypes callbacks can only return scalars and pointers")
	}
	parts := []string{ctype(ctx, fi.Ret)}
	for _, p := range fi.Params {
		if ctx.Graph.Kind(p) == types.KindArray {
			return ctx.Unsupported(id, "ctypes cannot pass arrays by value")
		}
		parts = append(parts, ctype(ctx, p))
	}
	w := e.defs
	w.Blank()
	w.Comment("# ", fi.Doc)
	w.Linef("%s = ctypes.CFUNCTYPE(%s)", ctx.Names.Type(id), strings.Join(parts, ", "))
	return nil
}

func (e *Emitter) EmitConstant(ctx *emit.Context, i int) error {
	k := ctx.Graph.Constants()[i]
	e.consts.Comment("# ", k.Doc)
	e.consts.Linef("%s: %s = %s", ctx.Names.Constant(i), hint(ctx, k.Type), literal(k.Value))
	return nil
}

func (e *Emitter) Finish(ctx *emit.Context) ([]emit.File, error) {
	out := emit.NewWriter("    ")
	out.Raw(e.head.String())
	out.Raw(e.decls.String())
	out.Raw(e.defs.String())
	if e.consts.Len() > 0 {
		out.Blank()
		out.Blank()
		out.Raw(e.consts.String())
	}
	out.Blank()
	out.Blank()
	out.Open("class Library:")
	out.Line(`"""A loaded copy of the native library.`)
	out.Blank()
	out.Line("Wrapped methods raise on error codes; raw holds the bare functions,")
	out.Line(`which return codes unchanged."""`)
	out.Blank()
	out.Open("def __init__(self, path: str):")
	out.Line("self._dll = ctypes.CDLL(path)")
	out.Line("self.raw = self._dll")
	out.Line("self._lock = threading.Lock()")
	out.Line("self._callbacks: typing.Dict[int, typing.Any] = {}")
	out.Line("self._next_callback = 0")
	out.Line("self._bind()")
	if ctx.Guard.Present() {
		fn := ctx.Function(ctx.Guard.Function)
		out.Linef("actual = self._dll.%s()", fn.Name)
		out.Open("if actual != API_GUARD:")
		out.Line(`raise ApiMismatch(f"library API hash {actual:#x} does not match bindings {API_GUARD:#x}")`)
		out.Dedent()
	}
	out.Dedent()
	out.Blank()
	out.Open("def _bind(self) -> None:")
	if e.bind.Len() == 0 {
		out.Line("pass")
	}
	out.Dedent()
	out.Raw(e.bind.String())
	out.Blank()
	out.Raw(libraryHelpers)
	for _, id := range e.takes {
		p := ctx.Pattern(id)
		out.Blank()
		out.Open("def %s(self, value: %s) -> str:", taker(ctx, id), ctx.Names.Type(id))
		out.Open("try:")
		out.Line("return value.text()")
		out.Close("finally:")
		out.Indent()
		out.Linef("self._dll.%s(self._give_string(value))", ctx.Function(p.Destroy).Name)
		out.Dedent()
		out.Dedent()
	}
	out.Raw(e.methods.String())
	out.Dedent()
	out.Raw(e.services.String())
	return []emit.File{{Path: e.file, Content: out.Bytes()}}, nil
}

func checker(ctx *emit.Context, enum types.TypeID) string {
	return "_" + ctx.Names.Local(naming.CaseSnake, "check_"+ctx.Names.Type(enum))
}

func taker(ctx *emit.Context, id types.TypeID) string {
	return "_" + ctx.Names.Local(naming.CaseSnake, "take_"+ctx.Names.Type(id))
}

func oneLine(doc string) string {
	return strings.ReplaceAll(strings.TrimSpace(doc), "\n", " ")
}
