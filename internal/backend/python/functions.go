package python

import (
	"strings"

	"ffigen/internal/emit"
	"ffigen/internal/types"
)

// site names the expressions a wrapper body calls through.
type site struct {
	lib   string
	dll   string
	bound map[int]string
}

func (e *Emitter) EmitFunction(ctx *emit.Context, i int) error {
	if err := e.bindNative(ctx, i); err != nil {
		return err
	}
	fn := ctx.Function(i)
	w := e.methods
	w.Blank()
	w.Open("def %s(self%s) -> %s:", ctx.Names.Function(i), e.signature(ctx, i, nil), e.returns(ctx, i))
	e.docstring(ctx, w, fn)
	e.body(ctx, w, i, site{lib: "self", dll: "self._dll"})
	w.Dedent()
	return nil
}

// bindNative declares argtypes and restype of function i.
func (e *Emitter) bindNative(ctx *emit.Context, i int) error {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	args := make([]string, len(fn.Params))
	for j, p := range fn.Params {
		if ctx.Graph.Kind(p.Type) == types.KindArray {
			return ctx.UnsupportedFunction(i, "ctypes cannot pass arrays by value")
		}
		args[j] = ctype(ctx, p.Type)
		if roles.Role(j) == types.ParamAscii {
			args[j] = "ctypes.c_char_p"
		}
	}
	if ctx.Graph.Kind(fn.Ret) == types.KindArray {
		return ctx.UnsupportedFunction(i, "ctypes cannot return arrays by value")
	}
	ret := "None"
	if !ctx.Void(fn.Ret) {
		ret = ctype(ctx, fn.Ret)
	}
	if roles.RetAscii {
		ret = "ctypes.c_char_p"
	}
	e.bind.Linef("self._dll.%s.argtypes = [%s]", fn.Name, strings.Join(args, ", "))
	e.bind.Linef("self._dll.%s.restype = %s", fn.Name, ret)
	return nil
}

// signature renders the wrapper parameters after self/cls. Bound
// parameters and callback contexts are filled by the wrapper.
func (e *Emitter) signature(ctx *emit.Context, i int, bound map[int]string) string {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	var b strings.Builder
	for j, p := range fn.Params {
		if _, ok := bound[j]; ok {
			continue
		}
		h := hint(ctx, p.Type)
		switch roles.Role(j) {
		case types.ParamContext:
			continue
		case types.ParamAscii:
			h = "typing.Union[str, bytes]"
		}
		b.WriteString(", " + ctx.Names.Param(i, j) + ": " + h)
	}
	return b.String()
}

func (e *Emitter) returns(ctx *emit.Context, i int) string {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	switch {
	case roles.Checked && ctx.Graph.Kind(fn.Ret) == types.KindEnum:
		return "None"
	case roles.Checked:
		return hint(ctx, ctx.Pattern(fn.Ret).Ok)
	case roles.RetAscii:
		return "typing.Optional[str]"
	case ctx.Pattern(fn.Ret).Kind == types.PatternUtf8String:
		return "str"
	}
	return hint(ctx, fn.Ret)
}

func (e *Emitter) docstring(ctx *emit.Context, w *emit.Writer, fn *types.Function) {
	var lines []string
	if fn.Doc != "" {
		lines = append(lines, strings.Split(strings.TrimSpace(fn.Doc), "\n")...)
	}
	for _, p := range fn.Params {
		if p.Doc != "" {
			lines = append(lines, p.Name+": "+oneLine(p.Doc))
		}
	}
	if fn.RetDoc != "" {
		lines = append(lines, "Returns: "+oneLine(fn.RetDoc))
	}
	switch len(lines) {
	case 0:
	case 1:
		w.Linef(`"""%s"""`, lines[0])
	default:
		w.Linef(`"""%s`, lines[0])
		for _, l := range lines[1:] {
			w.Line(l)
		}
		w.Line(`"""`)
	}
}

// body writes the call of function i: argument conversion, callback
// trampolines, the native call and result checking.
func (e *Emitter) body(ctx *emit.Context, w *emit.Writer, i int, s site) {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	var args, keys []string
	for j, p := range fn.Params {
		if a, ok := s.bound[j]; ok {
			args = append(args, a)
			continue
		}
		name := ctx.Names.Param(i, j)
		switch roles.Role(j) {
		case types.ParamContext:
			args = append(args, "None")
		case types.ParamAscii:
			args = append(args, "_ascii("+name+")")
		case types.ParamCallback:
			cb, _ := roles.CallbackAt(j)
			fnType := ctx.Names.Type(cb.Signature)
			user := "*args"
			if cb.Context {
				user = "*args[:-1]"
			}
			switch {
			case cb.Once:
				key := name + "_key"
				w.Open("def %s_once(*args: typing.Any) -> typing.Any:", name)
				w.Open("try:")
				w.Linef("return %s(%s)", name, user)
				w.Close("finally:")
				w.Indent()
				w.Linef("%s._release(%s)", s.lib, key)
				w.Dedent()
				w.Dedent()
				w.Linef("%s_fn = %s(%s_once)", name, fnType, name)
				w.Linef("%s = %s._keep(%s_fn)", key, s.lib, name)
				keys = append(keys, key)
			case cb.Context:
				w.Linef("%s_fn = %s(lambda *args: %s(%s))", name, fnType, name, user)
			default:
				w.Linef("%s_fn = %s(%s)", name, fnType, name)
			}
			args = append(args, name+"_fn")
		default:
			if ctx.Pattern(p.Type).Kind == types.PatternUtf8String {
				args = append(args, s.lib+"._give_string("+name+")")
			} else {
				args = append(args, name)
			}
		}
	}
	call := s.dll + "." + fn.Name + "(" + strings.Join(args, ", ") + ")"

	ret := ctx.Pattern(fn.Ret)
	switch {
	case roles.Checked && ctx.Graph.Kind(fn.Ret) == types.KindEnum:
		check := checker(ctx, fn.Ret)
		if len(keys) == 0 {
			w.Linef("%s(%s)", check, call)
			return
		}
		w.Linef("code = %s", call)
		w.Open("if code != %s.%s:", ctx.Names.Type(fn.Ret), ctx.Variant(fn.Ret, ret.Codes.Success))
		w.Line("# the callback will not run")
		for _, k := range keys {
			w.Linef("%s._release(%s)", s.lib, k)
		}
		w.Dedent()
		w.Linef("%s(code)", check)
	case roles.Checked:
		if len(keys) == 0 {
			w.Linef("return %s.unwrap()", call)
			return
		}
		w.Linef("result = %s", call)
		w.Open("if result.%s != %s.%s:", field(ctx, fn.Ret, 1), ctx.Names.Type(ret.ErrorEnum), ctx.Variant(ret.ErrorEnum, ret.Codes.Success))
		w.Line("# the callback will not run")
		for _, k := range keys {
			w.Linef("%s._release(%s)", s.lib, k)
		}
		w.Dedent()
		w.Line("return result.unwrap()")
	case roles.RetAscii:
		w.Linef("result = %s", call)
		w.Line(`return result.decode("ascii") if result is not None else None`)
	case ret.Kind == types.PatternUtf8String:
		w.Linef("return %s.%s(%s)", s.lib, taker(ctx, fn.Ret), call)
	case ctx.Void(fn.Ret):
		w.Line(call)
	case ctx.Graph.Kind(fn.Ret) == types.KindEnum:
		w.Linef("return %s(%s)", ctx.Names.Type(fn.Ret), call)
	default:
		w.Linef("return %s", call)
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
		return ctx.UnsupportedFunction(svc.Destructor, "destructor takes %d parameters; close() supports exactly one", n)
	}
	name := ctx.Names.Type(svc.Opaque)
	check := checker(ctx, svc.ErrorEnum)
	w := e.services
	w.Blank()
	w.Blank()
	w.Open("class %s:", name)
	if doc := ctx.Graph.Doc(svc.Opaque); doc != "" {
		w.Linef(`"""%s"""`, oneLine(doc))
		w.Blank()
	}
	w.Line("_CREATE = object()")
	w.Blank()
	w.Open("def __init__(self, lib: Library, handle: ctypes.c_void_p, key: object):")
	w.Open("if key is not %s._CREATE:", name)
	w.Linef(`raise TypeError("%s is created by its constructors")`, name)
	w.Dedent()
	w.Line("self._lib = lib")
	w.Line("self._handle: typing.Optional[ctypes.c_void_p] = handle")
	w.Line("self._lock = threading.Lock()")
	w.Dedent()

	for _, c := range svc.Ctors {
		roles := ctx.Roles(c)
		bound := map[int]string{}
		for j := range ctx.Function(c).Params {
			if roles.Role(j) == types.ParamOutHandle {
				bound[j] = "ctypes.byref(handle)"
			}
		}
		w.Blank()
		w.Line("@classmethod")
		w.Open("def %s(cls, lib: Library%s) -> %s:", ctx.Names.Method(c), e.signature(ctx, c, bound), name)
		e.docstring(ctx, w, ctx.Function(c))
		w.Line("handle = ctypes.c_void_p()")
		e.body(ctx, w, c, site{lib: "lib", dll: "lib.raw", bound: bound})
		w.Line("return cls(lib, handle, cls._CREATE)")
		w.Dedent()
	}

	w.Blank()
	w.Open("def _live(self) -> ctypes.c_void_p:")
	w.Line("handle = self._handle")
	w.Open("if handle is None:")
	w.Linef(`raise InvalidHandle("%s is closed")`, name)
	w.Dedent()
	w.Line("return handle")
	w.Dedent()

	for _, m := range svc.Methods {
		bound := map[int]string{0: "self._live()"}
		w.Blank()
		w.Open("def %s(self%s) -> %s:", ctx.Names.Method(m), e.signature(ctx, m, bound), e.returns(ctx, m))
		e.docstring(ctx, w, ctx.Function(m))
		e.body(ctx, w, m, site{lib: "self._lib", dll: "self._lib.raw", bound: bound})
		w.Dedent()
	}

	w.Blank()
	w.Open("def close(self) -> None:")
	w.Line(`"""Releases the native handle. Closing twice raises InvalidHandle."""`)
	w.Open("with self._lock:")
	w.Line("handle, self._handle = self._handle, None")
	w.Dedent()
	w.Open("if handle is None:")
	w.Linef(`raise InvalidHandle("%s is already closed")`, name)
	w.Dedent()
	w.Linef("%s(self._lib.raw.%s(ctypes.byref(handle)))", check, ctx.Function(svc.Destructor).Name)
	w.Dedent()
	w.Blank()
	w.Open("def __enter__(self) -> %s:", name)
	w.Line("return self")
	w.Dedent()
	w.Blank()
	w.Open("def __exit__(self, *exc: typing.Any) -> None:")
	w.Open("if self._handle is not None:")
	w.Line("self.close()")
	w.Dedent()
	w.Dedent()
	w.Blank()
	w.Open("def __del__(self) -> None:")
	w.Open(`if getattr(self, "_handle", None) is not None:`)
	w.Open("try:")
	w.Line("self.close()")
	w.Close("except Exception:")
	w.Indent()
	w.Line("pass")
	w.Dedent()
	w.Dedent()
	w.Dedent()
	w.Dedent()
	return nil
}
