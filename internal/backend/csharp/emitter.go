// Package csharp emits a single C# file: types in a namespace and a
// library class that loads the native library explicitly and binds every
// export through a delegate.
package csharp

import (
	"fmt"
	"strings"

	"ffigen/internal/emit"
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Target is the registry id of the C# emitter.
const Target = "csharp"

// Emitter writes one .cs file.
type Emitter struct {
	class     string
	namespace string
	types     *emit.Writer
	consts    *emit.Writer
	delegates *emit.Writer
	loads     *emit.Writer
	methods   *emit.Writer
	services  *emit.Writer
	takes     []types.TypeID
}

// New returns a fresh C# emitter.
func New() emit.Emitter { return &Emitter{} }

func (e *Emitter) Target() string { return Target }

func (e *Emitter) Style() naming.Style {
	return naming.Style{
		Type:            naming.CasePascal,
		Function:        naming.CasePascal,
		Method:          naming.CasePascal,
		Field:           naming.CaseCamel,
		Param:           naming.CaseCamel,
		Constant:        naming.CasePascal,
		Variant:         naming.CasePascal,
		FunctionsScoped: true,
		Reserved:        naming.Reserved(naming.CSharpKeywords, []string{"code", "handle", "library", "callbacks"}),
		EscapePrefix:    "@",
		Taken:           naming.Reserved(preludeNames),
	}
}

// preludeNames are defined by the prelude, the library class and the
// imported System types the generated code refers to.
var preludeNames = []string{
	"InteropException", "NativeException", "NativePanicException", "NullPointerException",
	"InvalidHandleException", "UnexpectedDiscriminantException", "ApiMismatchException",
	"Load", "Keep", "Release", "GiveString", "TrackString", "ExpectedApiGuard",
	"nextCallback", "releasedStrings", "Dispose",
	"Exception", "IntPtr", "Marshal", "NativeLibrary", "Delegate", "Interlocked",
}

func (e *Emitter) Begin(ctx *emit.Context) error {
	e.class = ctx.Options.Class
	if e.class == "" && ctx.Options.Library != "" {
		e.class = naming.Pascal(ctx.Options.Library)
	}
	if e.class == "" {
		e.class = "Interop"
	}
	e.namespace = ctx.Options.Namespace
	if e.namespace == "" {
		e.namespace = "Bindings"
	}
	for _, w := range []**emit.Writer{&e.types, &e.consts, &e.delegates, &e.loads, &e.methods, &e.services} {
		*w = emit.NewWriter("    ")
	}
	e.consts.Indent()
	e.delegates.Indent()
	e.loads.Indent()
	e.loads.Indent()
	e.methods.Indent()
	return nil
}

func (e *Emitter) DeclareType(*emit.Context, types.TypeID) error   { return nil }
func (e *Emitter) EmitPrimitive(*emit.Context, types.TypeID) error { return nil }

func summary(w *emit.Writer, doc string) {
	if doc == "" {
		return
	}
	w.Line("/// <summary>")
	w.Comment("/// ", doc)
	w.Line("/// </summary>")
}

// structHead writes the layout attribute and opens the struct body.
func (e *Emitter) structHead(ctx *emit.Context, id types.TypeID, implements string) *emit.Writer {
	s, _ := ctx.Graph.Struct(id)
	w := e.types
	summary(w, s.Doc)
	if lc := ctx.LayoutComment(id); lc != "" {
		w.Linef("// %s", lc)
	}
	if pack := s.Repr.PackAlign(); pack > 0 {
		w.Linef("[StructLayout(LayoutKind.Sequential, Pack = %d)]", pack)
	} else {
		w.Line("[StructLayout(LayoutKind.Sequential)]")
	}
	w.Linef("public partial struct %s%s", ctx.Names.Type(id), implements)
	w.Open("{")
	return w
}

// fields writes the struct fields with their marshalling attributes.
func (e *Emitter) fields(ctx *emit.Context, id types.TypeID, visibility string) error {
	s, _ := ctx.Graph.Struct(id)
	w := e.types
	for i, f := range s.Fields {
		summary(w, f.Doc)
		t, _ := ctx.Graph.Lookup(f.Type)
		switch {
		case t.Kind == types.KindArray:
			if ctx.Graph.Kind(t.Elem) == types.KindArray {
				return ctx.Unsupported(id, "field %s: nested arrays cannot be marshalled by value", f.Name)
			}
			w.Linef("[MarshalAs(UnmanagedType.ByValArray, SizeConst = %d)]", t.Len)
		case ctx.Graph.IsPrimitive(f.Type, types.PrimBool):
			w.Line("[MarshalAs(UnmanagedType.I1)]")
		}
		w.Linef("%s%s %s;", visibility, cs(ctx, f.Type), ctx.Names.Field(id, i))
	}
	ctx.RecordStruct(id, s.Repr)
	return nil
}

func (e *Emitter) EmitStruct(ctx *emit.Context, id types.TypeID) error {
	w := e.structHead(ctx, id, "")
	err := e.fields(ctx, id, "public ")
	w.Close("}")
	w.Blank()
	return err
}

func (e *Emitter) EmitEnum(ctx *emit.Context, id types.TypeID) error {
	en, _ := ctx.Graph.Enum(id)
	w := e.types
	summary(w, en.Doc)
	w.Linef("public enum %s : %s", ctx.Names.Type(id), csNames[en.BaseOrDefault()])
	w.Open("{")
	for i, v := range en.Variants {
		summary(w, v.Doc)
		w.Linef("%s = %d,", ctx.Names.Variant(id, i), v.Value)
	}
	w.Close("}")
	w.Blank()
	return nil
}

func (e *Emitter) EmitOpaque(ctx *emit.Context, id types.TypeID) error {
	if ctx.Pattern(id).Kind == types.PatternService {
		return nil
	}
	w := e.types
	summary(w, ctx.Graph.Doc(id))
	w.Linef("// %s is only handled through IntPtr.", ctx.Names.Type(id))
	w.Blank()
	return nil
}

func (e *Emitter) EmitSlice(ctx *emit.Context, id types.TypeID) error {
	p := ctx.Pattern(id)
	name := ctx.Names.Type(id)
	elem := cs(ctx, p.Elem)
	data, length := ctx.Names.Field(id, 0), ctx.Names.Field(id, 1)
	w := e.structHead(ctx, id, fmt.Sprintf(" : IEnumerable<%s>", elem))
	if err := e.fields(ctx, id, ""); err != nil {
		return err
	}
	w.Blank()
	w.Linef("public %s(IntPtr %s, ulong %s)", name, data, length)
	w.Open("{")
	w.Linef("this.%s = %s;", data, data)
	w.Linef("this.%s = %s;", length, length)
	w.Close("}")
	w.Blank()
	w.Linef("public int Count => checked((int)%s);", length)
	w.Blank()
	w.Linef("IntPtr At(int i)")
	w.Open("{")
	w.Linef("if (i < 0 || (ulong)i >= %s)", length)
	w.Open("{")
	w.Linef(`throw new IndexOutOfRangeException($"index {i} out of range for slice of length {%s}");`, length)
	w.Close("}")
	w.Linef("return %s + i * Marshal.SizeOf<%s>();", data, elem)
	w.Close("}")
	w.Blank()
	w.Linef("public %s this[int i]", elem)
	w.Open("{")
	w.Linef("get => Marshal.PtrToStructure<%s>(At(i));", elem)
	if p.Mutable {
		w.Line("set => Marshal.StructureToPtr(value, At(i), false);")
	}
	w.Close("}")
	w.Blank()
	w.Linef("public %s[] Copied()", elem)
	w.Open("{")
	w.Linef("var copy = new %s[Count];", elem)
	w.Line("for (var i = 0; i < copy.Length; i++)")
	w.Open("{")
	w.Line("copy[i] = this[i];")
	w.Close("}")
	w.Line("return copy;")
	w.Close("}")
	w.Blank()
	w.Linef("public IEnumerator<%s> GetEnumerator()", elem)
	w.Open("{")
	w.Line("for (var i = 0; i < Count; i++)")
	w.Open("{")
	w.Line("yield return this[i];")
	w.Close("}")
	w.Close("}")
	w.Blank()
	w.Line("IEnumerator IEnumerable.GetEnumerator() => GetEnumerator();")
	w.Close("}")
	w.Blank()
	return nil
}

func (e *Emitter) EmitOption(ctx *emit.Context, id types.TypeID) error {
	p := ctx.Pattern(id)
	name := ctx.Names.Type(id)
	inner := cs(ctx, p.Inner)
	value, tag := ctx.Names.Field(id, 0), ctx.Names.Field(id, 1)
	w := e.structHead(ctx, id, "")
	if err := e.fields(ctx, id, ""); err != nil {
		return err
	}
	w.Blank()
	w.Linef("public static %s None => default;", name)
	w.Blank()
	w.Linef("public static %s Some(%s value) => new %s { %s = value, %s = 1 };", name, inner, name, value, tag)
	w.Blank()
	w.Linef("public bool IsSome => %s switch", tag)
	w.Open("{")
	w.Line("0 => false,")
	w.Line("1 => true,")
	w.Linef("_ => throw new UnexpectedDiscriminantException(%s),", tag)
	w.Close("};")
	w.Blank()
	w.Linef(`public %s Value => IsSome ? %s : throw new InvalidOperationException("%s holds no value");`, inner, value, name)
	w.Close("}")
	w.Blank()
	return nil
}

// EmitResult adds Unwrap to result structs and a Check extension to error
// enums.
func (e *Emitter) EmitResult(ctx *emit.Context, id types.TypeID) error {
	p := ctx.Pattern(id)
	name := ctx.Names.Type(id)
	w := e.types
	if ctx.Graph.Kind(id) == types.KindStruct {
		w = e.structHead(ctx, id, "")
		if err := e.fields(ctx, id, "public "); err != nil {
			return err
		}
		w.Blank()
		w.Linef("public %s Unwrap()", cs(ctx, p.Ok))
		w.Open("{")
		w.Linef("%s.Check();", ctx.Names.Field(id, 1))
		w.Linef("return %s;", ctx.Names.Field(id, 0))
		w.Close("}")
		w.Close("}")
		w.Blank()
		return nil
	}
	w.Linef("public static class %sExtensions", name)
	w.Open("{")
	w.Linef("public static void Check(this %s code)", name)
	w.Open("{")
	w.Line("switch (code)")
	w.Open("{")
	w.Linef("case %s.%s:", name, ctx.Variant(id, p.Codes.Success))
	w.Line("    return;")
	if p.Codes.HasPanic {
		v := ctx.Variant(id, p.Codes.Panic)
		w.Linef("case %s.%s:", name, v)
		w.Linef("    throw new NativePanicException((long)code, %q);", v)
	}
	if p.Codes.HasNull {
		v := ctx.Variant(id, p.Codes.Null)
		w.Linef("case %s.%s:", name, v)
		w.Linef("    throw new NullPointerException((long)code, %q);", v)
	}
	w.Line("default:")
	w.Line("    throw new NativeException((long)code, code.ToString());")
	w.Close("}")
	w.Close("}")
	w.Close("}")
	w.Blank()
	return nil
}

func (e *Emitter) EmitString(ctx *emit.Context, id types.TypeID) error {
	e.takes = append(e.takes, id)
	ptr, length := ctx.Names.Field(id, 0), ctx.Names.Field(id, 1)
	w := e.structHead(ctx, id, "")
	if err := e.fields(ctx, id, ""); err != nil {
		return err
	}
	w.Blank()
	w.Linef("internal IntPtr Pointer => %s;", ptr)
	w.Blank()
	w.Linef(`internal string Read() => %s == 0 ? "" : Marshal.PtrToStringUTF8(%s, checked((int)%s));`, length, ptr, length)
	w.Close("}")
	w.Blank()
	return nil
}

func (e *Emitter) EmitCallback(ctx *emit.Context, id types.TypeID) error {
	fi, _ := ctx.Graph.FnPointer(id)
	params := make([]string, len(fi.Params))
	for i, p := range fi.Params {
		if ctx.Graph.Kind(p) == types.KindArray {
			return ctx.Unsupported(id, "delegates cannot take arrays by value")
		}
		params[i] = fmt.Sprintf("%s x%d", cs(ctx, p), i)
	}
	w := e.types
	summary(w, fi.Doc)
	w.Line("[UnmanagedFunctionPointer(CallingConvention.Cdecl)]")
	w.Linef("public delegate %s %s(%s);", cs(ctx, fi.Ret), ctx.Names.Type(id), strings.Join(params, ", "))
	w.Blank()
	return nil
}

func (e *Emitter) EmitConstant(ctx *emit.Context, i int) error {
	k := ctx.Graph.Constants()[i]
	summary(e.consts, k.Doc)
	e.consts.Linef("public const %s %s = %s;", cs(ctx, k.Type), ctx.Names.Constant(i), literal(ctx, k.Type, k.Value))
	return nil
}

func (e *Emitter) Finish(ctx *emit.Context) ([]emit.File, error) {
	out := emit.NewWriter("    ")
	out.Line("// Automatically generated by ffigen. Do not edit.")
	out.Line("#nullable enable")
	out.Line("using System;")
	out.Line("using System.Collections;")
	out.Line("using System.Collections.Concurrent;")
	out.Line("using System.Collections.Generic;")
	out.Line("using System.Runtime.InteropServices;")
	out.Line("using System.Threading;")
	out.Blank()
	out.Linef("namespace %s;", e.namespace)
	out.Blank()
	out.Raw(prelude)
	out.Blank()
	out.Raw(e.types.String())

	out.Line("/// <summary>")
	out.Line("/// A loaded copy of the native library. Wrapped methods throw on error codes;")
	out.Line("/// the Raw delegates return codes unchanged.")
	out.Line("/// </summary>")
	out.Linef("public sealed partial class %s", e.class)
	out.Open("{")
	if ctx.Guard.Present() {
		out.Linef("public const ulong ExpectedApiGuard = 0x%016xUL;", ctx.Guard.Hash)
		out.Blank()
	}
	out.Raw(e.consts.String())
	out.Blank()
	out.Line("readonly IntPtr library;")
	out.Line("readonly ConcurrentDictionary<long, Delegate> callbacks = new();")
	out.Line("readonly HashSet<IntPtr> releasedStrings = new();")
	out.Line("long nextCallback;")
	out.Blank()
	out.Raw(e.delegates.String())
	out.Linef("public %s(string path)", e.class)
	out.Open("{")
	out.Line("library = NativeLibrary.Load(path);")
	out.Raw(e.loads.String())
	if ctx.Guard.Present() {
		out.Linef("var actual = Raw%s();", ctx.Names.Function(ctx.Guard.Function))
		out.Line("if (actual != ExpectedApiGuard)")
		out.Open("{")
		out.Line("throw new ApiMismatchException(actual, ExpectedApiGuard);")
		out.Close("}")
	}
	out.Close("}")
	out.Blank()
	out.Raw(libraryHelpers)
	for _, id := range e.takes {
		p := ctx.Pattern(id)
		out.Blank()
		out.Linef("internal string %s(%s value)", taker(ctx, id), ctx.Names.Type(id))
		out.Open("{")
		out.Line("TrackString(value.Pointer);")
		out.Line("try")
		out.Open("{")
		out.Line("return value.Read();")
		out.Close("}")
		out.Line("finally")
		out.Open("{")
		out.Line("GiveString(value.Pointer);")
		out.Linef("Raw%s(value);", ctx.Names.Function(p.Destroy))
		out.Close("}")
		out.Close("}")
	}
	out.Raw(e.methods.String())
	out.Close("}")
	out.Blank()
	out.Raw(e.services.String())
	return []emit.File{{Path: e.class + ".cs", Content: out.Bytes()}}, nil
}

func taker(ctx *emit.Context, id types.TypeID) string {
	return ctx.Names.Local(naming.CasePascal, "take_"+ctx.Names.Type(id))
}
