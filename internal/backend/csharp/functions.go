package csharp

import (
	"fmt"
	"strings"

	"ffigen/internal/emit"
	"ffigen/internal/types"
)

// site names what a wrapper body calls through: lib is "" inside the
// library class and "lib." inside services.
type site struct {
	lib   string
	bound map[int]string
}

func raw(ctx *emit.Context, i int) string { return "Raw" + ctx.Names.Function(i) }

// bindNative declares the delegate of function i, its field and the load
// in the library constructor.
func (e *Emitter) bindNative(ctx *emit.Context, i int) error {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	params := make([]string, len(fn.Params))
	for j, p := range fn.Params {
		if ctx.Graph.Kind(p.Type) == types.KindArray {
			return ctx.UnsupportedFunction(i, "delegates cannot pass arrays by value")
		}
		name := ctx.Names.Param(i, j)
		switch {
		case roles.Role(j) == types.ParamAscii:
			params[j] = "[MarshalAs(UnmanagedType.LPStr)] string " + name
		case roles.Kind == types.FnDtor && j == 0:
			params[j] = "ref IntPtr " + name
		case roles.Role(j) == types.ParamOutHandle:
			params[j] = "out IntPtr " + name
		case ctx.Graph.IsPrimitive(p.Type, types.PrimBool):
			params[j] = "[MarshalAs(UnmanagedType.I1)] bool " + name
		default:
			params[j] = cs(ctx, p.Type) + " " + name
		}
	}
	if ctx.Graph.Kind(fn.Ret) == types.KindArray {
		return ctx.UnsupportedFunction(i, "delegates cannot return arrays by value")
	}
	ret := cs(ctx, fn.Ret)
	w := e.delegates
	w.Line("[UnmanagedFunctionPointer(CallingConvention.Cdecl)]")
	if ctx.Graph.IsPrimitive(fn.Ret, types.PrimBool) {
		w.Line("[return: MarshalAs(UnmanagedType.I1)]")
	}
	w.Linef("internal delegate %s %sFn(%s);", ret, ctx.Names.Function(i), strings.Join(params, ", "))
	w.Linef("internal readonly %sFn %s;", ctx.Names.Function(i), raw(ctx, i))
	w.Blank()
	e.loads.Linef("%s = Load<%sFn>(%q);", raw(ctx, i), ctx.Names.Function(i), fn.Name)
	return nil
}

func (e *Emitter) EmitFunction(ctx *emit.Context, i int) error {
	if err := e.bindNative(ctx, i); err != nil {
		return err
	}
	w := e.methods
	w.Blank()
	e.docs(ctx, w, i, nil)
	w.Linef("public %s %s(%s)", e.returns(ctx, i), ctx.Names.Function(i), e.signature(ctx, i, nil))
	w.Open("{")
	e.body(ctx, w, i, site{})
	w.Close("}")
	return nil
}

// signature renders the wrapper parameters. Bound parameters and callback
// contexts are filled by the wrapper.
func (e *Emitter) signature(ctx *emit.Context, i int, bound map[int]string) string {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	var out []string
	for j, p := range fn.Params {
		if _, ok := bound[j]; ok {
			continue
		}
		typ := cs(ctx, p.Type)
		switch roles.Role(j) {
		case types.ParamContext:
			continue
		case types.ParamAscii:
			typ = "string"
		case types.ParamCallback:
			cb, _ := roles.CallbackAt(j)
			if cb.Context || cb.Once {
				typ = userCallback(ctx, cb.Signature, cb.Context)
			}
		}
		out = append(out, typ+" "+ctx.Names.Param(i, j))
	}
	return strings.Join(out, ", ")
}

func (e *Emitter) returns(ctx *emit.Context, i int) string {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	switch {
	case roles.Checked && ctx.Graph.Kind(fn.Ret) == types.KindEnum:
		return "void"
	case roles.Checked:
		return cs(ctx, ctx.Pattern(fn.Ret).Ok)
	case roles.RetAscii:
		return "string?"
	case ctx.Pattern(fn.Ret).Kind == types.PatternUtf8String:
		return "string"
	}
	return cs(ctx, fn.Ret)
}

func (e *Emitter) docs(ctx *emit.Context, w *emit.Writer, i int, bound map[int]string) {
	fn := ctx.Function(i)
	summary(w, fn.Doc)
	for j, p := range fn.Params {
		if _, ok := bound[j]; ok || p.Doc == "" {
			continue
		}
		w.Linef(`/// <param name="%s">%s</param>`, ctx.Names.Param(i, j), strings.Join(strings.Fields(p.Doc), " "))
	}
	if fn.RetDoc != "" {
		w.Linef("/// <returns>%s</returns>", strings.Join(strings.Fields(fn.RetDoc), " "))
	}
	if ctx.Roles(i).Checked {
		w.Line("/// <exception cref=\"NativeException\">The call returned an error code.</exception>")
	}
}

// lambdaParams names the n parameters of a trampoline lambda.
func lambdaParams(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("x%d", i)
	}
	return out
}

// body writes the call of function i: argument conversion, callback
// trampolines, the native call and result checking.
func (e *Emitter) body(ctx *emit.Context, w *emit.Writer, i int, s site) {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	var args, keys, alive []string
	context := map[int]string{}
	for j, p := range fn.Params {
		if a, ok := s.bound[j]; ok {
			args = append(args, a)
			continue
		}
		name := ctx.Names.Param(i, j)
		switch roles.Role(j) {
		case types.ParamContext:
			a := "IntPtr.Zero"
			if c, ok := context[j]; ok {
				a = c
			}
			args = append(args, a)
		case types.ParamCallback:
			cb, _ := roles.CallbackAt(j)
			if !cb.Context && !cb.Once {
				args = append(args, name)
				alive = append(alive, name)
				continue
			}
			fi, _ := ctx.Graph.FnPointer(cb.Signature)
			ps := lambdaParams(len(fi.Params))
			user := ps
			if cb.Context {
				user = ps[:len(ps)-1]
			}
			call := name + "(" + strings.Join(user, ", ") + ")"
			if !ctx.Void(fi.Ret) {
				call = "return " + call
			}
			native := name + "Fn"
			if cb.Once {
				key := name + "Key"
				w.Linef("long %s = 0;", key)
				w.Linef("%s %s = (%s) =>", ctx.Names.Type(cb.Signature), native, strings.Join(ps, ", "))
				w.Open("{")
				w.Line("try")
				w.Open("{")
				w.Line(call + ";")
				w.Close("}")
				w.Line("finally")
				w.Open("{")
				w.Linef("%sRelease(%s);", s.lib, key)
				w.Close("}")
				w.Close("};")
				w.Linef("%s = %sKeep(%s);", key, s.lib, native)
				keys = append(keys, key)
				if cb.Context {
					context[j+1] = "new IntPtr(" + key + ")"
				}
			} else {
				w.Linef("%s %s = (%s) => %s;", ctx.Names.Type(cb.Signature), native, strings.Join(ps, ", "), strings.TrimPrefix(call, "return "))
				alive = append(alive, native)
			}
			args = append(args, native)
		default:
			if ctx.Pattern(p.Type).Kind == types.PatternUtf8String {
				w.Linef("%sGiveString(%s.Pointer);", s.lib, name)
			}
			args = append(args, name)
		}
	}
	call := s.lib + raw(ctx, i) + "(" + strings.Join(args, ", ") + ")"

	if len(alive) > 0 {
		w.Line("try")
		w.Open("{")
	}
	ret := ctx.Pattern(fn.Ret)
	switch {
	case roles.Checked && ctx.Graph.Kind(fn.Ret) == types.KindEnum:
		if len(keys) == 0 {
			w.Linef("%s.Check();", call)
			break
		}
		w.Linef("var code = %s;", call)
		w.Linef("if (code != %s.%s)", ctx.Names.Type(fn.Ret), ctx.Variant(fn.Ret, ret.Codes.Success))
		w.Open("{")
		w.Line("// the callback will not run")
		for _, k := range keys {
			w.Linef("%sRelease(%s);", s.lib, k)
		}
		w.Close("}")
		w.Line("code.Check();")
	case roles.Checked:
		w.Linef("return %s.Unwrap();", call)
	case roles.RetAscii:
		w.Linef("return Marshal.PtrToStringAnsi(%s);", call)
	case ret.Kind == types.PatternUtf8String:
		w.Linef("return %s%s(%s);", s.lib, taker(ctx, fn.Ret), call)
	case ctx.Void(fn.Ret):
		w.Linef("%s;", call)
	default:
		w.Linef("return %s;", call)
	}
	if len(alive) > 0 {
		w.Close("}")
		w.Line("finally")
		w.Open("{")
		for _, a := range alive {
			w.Linef("GC.KeepAlive(%s);", a)
		}
		w.Close("}")
	}
}

func (e *Emitter) EmitService(ctx *emit.Context, i int) error {
	svc, _ := ctx.Graph.Service(i)
	for _, m := range ctx.Members(i) {
		if err := e.bindNative(ctx, m); err != nil {
			return err
		}
	}
	if n := len(ctx.Function(svc.Destructor).Params); n != 1 {
		return ctx.UnsupportedFunction(svc.Destructor, "destructor takes %d parameters; Dispose supports exactly one", n)
	}
	name := ctx.Names.Type(svc.Opaque)
	w := e.services
	w.Blank()
	summary(w, ctx.Graph.Doc(svc.Opaque))
	w.Linef("public sealed class %s : IDisposable", name)
	w.Open("{")
	w.Linef("readonly %s lib;", e.class)
	w.Line("IntPtr handle;")
	w.Blank()
	w.Linef("%s(%s lib, IntPtr handle)", name, e.class)
	w.Open("{")
	w.Line("this.lib = lib;")
	w.Line("this.handle = handle;")
	w.Close("}")

	for _, c := range svc.Ctors {
		roles := ctx.Roles(c)
		bound := map[int]string{}
		for j := range ctx.Function(c).Params {
			if roles.Role(j) == types.ParamOutHandle {
				bound[j] = "out handle"
			}
		}
		params := "lib"
		if sig := e.signature(ctx, c, bound); sig != "" {
			params += ", " + sig
		}
		w.Blank()
		e.docs(ctx, w, c, bound)
		w.Linef("public static %s %s(%s %s)", name, ctx.Names.Method(c), e.class, params)
		w.Open("{")
		w.Line("IntPtr handle;")
		e.body(ctx, w, c, site{lib: "lib.", bound: bound})
		w.Linef("return new %s(lib, handle);", name)
		w.Close("}")
	}

	w.Blank()
	w.Line("IntPtr Live()")
	w.Open("{")
	w.Line("var h = Volatile.Read(ref handle);")
	w.Line("if (h == IntPtr.Zero)")
	w.Open("{")
	w.Linef(`throw new InvalidHandleException("%s is closed");`, name)
	w.Close("}")
	w.Line("return h;")
	w.Close("}")

	for _, m := range svc.Methods {
		bound := map[int]string{0: "Live()"}
		w.Blank()
		e.docs(ctx, w, m, bound)
		w.Linef("public %s %s(%s)", e.returns(ctx, m), ctx.Names.Method(m), e.signature(ctx, m, bound))
		w.Open("{")
		e.body(ctx, w, m, site{lib: "lib.", bound: bound})
		w.Close("}")
	}

	dtor := "lib." + raw(ctx, svc.Destructor) + "(ref h)"
	if ctx.Roles(svc.Destructor).Checked {
		dtor += ".Check()"
	}
	w.Blank()
	w.Line("/// <summary>Releases the native handle. Disposing twice throws InvalidHandleException.</summary>")
	w.Line("public void Dispose()")
	w.Open("{")
	w.Line("var h = Interlocked.Exchange(ref handle, IntPtr.Zero);")
	w.Line("if (h == IntPtr.Zero)")
	w.Open("{")
	w.Linef(`throw new InvalidHandleException("%s is already closed");`, name)
	w.Close("}")
	w.Line("GC.SuppressFinalize(this);")
	w.Linef("%s;", dtor)
	w.Close("}")
	w.Blank()
	w.Linef("~%s()", name)
	w.Open("{")
	w.Line("var h = Interlocked.Exchange(ref handle, IntPtr.Zero);")
	w.Line("if (h != IntPtr.Zero)")
	w.Open("{")
	w.Linef("lib.%s(ref h);", raw(ctx, svc.Destructor))
	w.Close("}")
	w.Close("}")
	w.Close("}")
	return nil
}
