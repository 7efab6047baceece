package gocgo

import (
	"fmt"
	"strings"

	"ffigen/internal/emit"
	"ffigen/internal/types"
)

func shim(ctx *emit.Context, i int) string { return "ffigen_call_" + ctx.Function(i).Name }

func exportName(ctx *emit.Context, sig types.TypeID, m mode) string {
	if m == modeSlot {
		return "ffigenSlot" + ctx.Names.Type(sig)
	}
	return "ffigenHandle" + ctx.Names.Type(sig)
}

func siteMode(cb types.CallbackSite) mode {
	if cb.Context {
		return modeHandle
	}
	return modeSlot
}

// check rejects functions the shim cannot call.
func (e *Emitter) check(ctx *emit.Context, i int) error {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	for j, p := range fn.Params {
		if ctx.Graph.Kind(p.Type) == types.KindArray {
			return ctx.UnsupportedFunction(i, "C cannot pass arrays by value")
		}
		if cb, ok := roles.CallbackAt(j); ok && cb.Once && !cb.Context {
			return ctx.UnsupportedFunction(i, "asynchronous callback %s has no context to carry a handle", p.Name)
		}
	}
	if ctx.Graph.Kind(fn.Ret) == types.KindArray {
		return ctx.UnsupportedFunction(i, "C cannot return arrays by value")
	}
	return nil
}

// writeShim writes the static C function that calls export i through its
// resolved address. Every argument arrives by address; callbacks are
// replaced by the exported Go trampoline of their site.
func (e *Emitter) writeShim(ctx *emit.Context, i int) {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	params := []string{"void *fp"}
	ptypes := make([]types.TypeID, len(fn.Params))
	args := make([]string, len(fn.Params))
	for j, p := range fn.Params {
		ptypes[j] = p.Type
		if cb, ok := roles.CallbackAt(j); ok {
			name := exportName(ctx, cb.Signature, siteMode(cb))
			e.exports[name] = export{sig: cb.Signature, mode: siteMode(cb)}
			args[j] = fmt.Sprintf("(%s)%s", cName(ctx, cb.Signature), name)
			continue
		}
		params = append(params, fmt.Sprintf("void *a%d", j))
		args[j] = fmt.Sprintf("*(%s)a%d", e.p.Decl(p.Type, "*"), j)
	}
	target := fmt.Sprintf("((%s)fp)(%s)", e.p.Prototype(fn.Ret, "(*)", ptypes, nil), strings.Join(args, ", "))
	if !ctx.Void(fn.Ret) {
		params = append(params, "void *ret")
		target = fmt.Sprintf("*(%s)ret = %s", e.p.Decl(fn.Ret, "*"), target)
	}
	w := e.shims
	w.Linef("static void %s(%s) {", shim(ctx, i), strings.Join(params, ", "))
	w.Linef("    %s;", target)
	w.Line("}")
	w.Blank()
}

// call describes how a wrapper reaches a native function.
type call struct {
	recv   string
	bound  map[int]string
	pins   []string
	zeros  []string
	hasErr bool
}

func (c call) fail(w *emit.Writer, err string) {
	w.Linef("\treturn %s", strings.Join(append(append([]string(nil), c.zeros...), err), ", "))
}

// result returns the Go type of the success value of function i, its zero
// value and whether the wrapper can fail.
func (e *Emitter) result(ctx *emit.Context, i int) (typ, zeroValue string, fallible bool) {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	for _, p := range fn.Params {
		if ctx.Pattern(p.Type).Kind == types.PatternUtf8String {
			fallible = true
		}
	}
	switch {
	case roles.Checked && ctx.Graph.Kind(fn.Ret) == types.KindEnum:
		return "", "", true
	case roles.Checked:
		ok := ctx.Pattern(fn.Ret).Ok
		return goType(ctx, ok), zero(ctx, ok), true
	case roles.RetAscii:
		return "string", `""`, fallible
	case ctx.Pattern(fn.Ret).Kind == types.PatternUtf8String:
		return "string", `""`, fallible
	case ctx.Void(fn.Ret):
		return "", "", fallible
	}
	return goType(ctx, fn.Ret), zero(ctx, fn.Ret), fallible
}

func results(typ string, fallible bool) string {
	switch {
	case typ == "" && !fallible:
		return ""
	case typ == "":
		return " error"
	case !fallible:
		return " " + typ
	}
	return " (" + typ + ", error)"
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
		typ := goType(ctx, p.Type)
		switch roles.Role(j) {
		case types.ParamContext:
			continue
		case types.ParamAscii:
			typ = "string"
		case types.ParamCallback:
			cb, _ := roles.CallbackAt(j)
			typ = funcType(ctx, cb.Signature, cb.Context)
		default:
			if ctx.Pattern(p.Type).Kind == types.PatternUtf8String {
				typ = "*" + typ
			}
		}
		out = append(out, ctx.Names.Param(i, j)+" "+typ)
	}
	return strings.Join(out, ", ")
}

func docs(ctx *emit.Context, w *emit.Writer, name string, i int) {
	fn := ctx.Function(i)
	if fn.Doc == "" {
		return
	}
	lines := strings.Split(strings.TrimSpace(fn.Doc), "\n")
	lines[0] = name + ": " + lines[0]
	w.Comment("// ", strings.Join(lines, "\n"))
}

func (e *Emitter) EmitFunction(ctx *emit.Context, i int) error {
	if err := e.check(ctx, i); err != nil {
		return err
	}
	e.writeShim(ctx, i)
	typ, zv, fallible := e.result(ctx, i)
	name := ctx.Names.Function(i)
	w := e.methods
	w.Blank()
	docs(ctx, w, name, i)
	w.Open("func (l *Library) %s(%s)%s {", name, e.signature(ctx, i, nil), results(typ, fallible))
	c := call{recv: "l", hasErr: fallible}
	if typ != "" {
		c.zeros = []string{zv}
	}
	value := e.body(ctx, w, i, c)
	switch {
	case value != "" && fallible:
		w.Linef("return %s, nil", value)
	case value != "":
		w.Linef("return %s", value)
	case fallible:
		w.Line("return nil")
	}
	w.Close("}")
	return nil
}

// body writes argument conversion, callback registration, the shim call
// and result checking. It returns the expression of the success value.
func (e *Emitter) body(ctx *emit.Context, w *emit.Writer, i int, c call) string {
	fn := ctx.Function(i)
	roles := ctx.Roles(i)
	pins := append([]string(nil), c.pins...)
	var gives, pre, onFail []string
	contexts := map[int]string{}
	args := []string{fmt.Sprintf("%s.fns[%d]", c.recv, i)}

	for j, p := range fn.Params {
		name := ctx.Names.Param(i, j)
		if b, ok := c.bound[j]; ok {
			args = append(args, "unsafe.Pointer(&"+b+")")
			continue
		}
		switch roles.Role(j) {
		case types.ParamContext:
			v := name + "Ctx"
			if h, ok := contexts[j]; ok {
				pre = append(pre, fmt.Sprintf("%s := uintptr(%s)", v, h))
			} else {
				pre = append(pre, "var "+v+" uintptr")
			}
			args = append(args, "unsafe.Pointer(&"+v+")")
		case types.ParamAscii:
			v := name + "C"
			pre = append(pre, fmt.Sprintf("%s := C.CString(%s)", v, name), fmt.Sprintf("defer C.free(unsafe.Pointer(%s))", v))
			args = append(args, "unsafe.Pointer(&"+v+")")
		case types.ParamCallback:
			cb, _ := roles.CallbackAt(j)
			if siteMode(cb) == modeSlot {
				slot := "slot" + ctx.Names.Type(cb.Signature)
				pre = append(pre,
					slot+".Lock()",
					"defer "+slot+".Unlock()",
					slot+".fn = "+name,
					"defer func() { "+slot+".fn = nil }()")
				continue
			}
			e.imports["runtime/cgo"] = true
			h := name + "Handle"
			pre = append(pre, fmt.Sprintf("%s := cgo.NewHandle(&trampoline{fn: %s, once: %t})", h, name, cb.Once))
			if cb.Once {
				onFail = append(onFail, h+".Delete()")
			} else {
				pre = append(pre, "defer "+h+".Delete()")
			}
			contexts[j+1] = h
		default:
			switch ctx.Pattern(p.Type).Kind {
			case types.PatternUtf8String:
				owned := name + "Owned"
				gives = append(gives,
					fmt.Sprintf("%s, err := %s.%s(%s)", owned, c.recv, giver(ctx, p.Type), name),
					"if err != nil {",
					"\treturn "+strings.Join(append(append([]string(nil), c.zeros...), "err"), ", "),
					"}")
				args = append(args, "unsafe.Pointer(&"+owned+")")
				continue
			case types.PatternSlice:
				pins = append(pins, name+"."+private(ctx, p.Type, 0))
			}
			args = append(args, "unsafe.Pointer(&"+name+")")
		}
	}

	if len(pins) > 0 {
		e.imports["runtime"] = true
		w.Line("var pin runtime.Pinner")
		w.Line("defer pin.Unpin()")
		for _, p := range pins {
			w.Linef("pin.Pin(%s)", p)
		}
	}
	for _, l := range append(gives, pre...) {
		w.Line(l)
	}

	if !ctx.Void(fn.Ret) {
		if roles.RetAscii {
			w.Line("var ret *C.char")
		} else {
			w.Linef("var ret %s", goType(ctx, fn.Ret))
		}
		args = append(args, "unsafe.Pointer(&ret)")
	}
	w.Linef("C.%s(%s)", shim(ctx, i), strings.Join(args, ", "))

	ret := ctx.Pattern(fn.Ret)
	switch {
	case roles.Checked && ctx.Graph.Kind(fn.Ret) == types.KindEnum:
		w.Line("if err := ret.check(); err != nil {")
		for _, f := range onFail {
			w.Line("\t" + f)
		}
		c.fail(w, "err")
		w.Line("}")
		return ""
	case roles.Checked:
		w.Line("v, err := ret.Unwrap()")
		w.Line("if err != nil {")
		for _, f := range onFail {
			w.Line("\t" + f)
		}
		c.fail(w, "err")
		w.Line("}")
		return "v"
	case roles.RetAscii:
		return "C.GoString(ret)"
	case ret.Kind == types.PatternUtf8String:
		return fmt.Sprintf("%s.%s(ret)", c.recv, taker(ctx, fn.Ret))
	case ctx.Void(fn.Ret):
		return ""
	}
	return "ret"
}

func (e *Emitter) EmitService(ctx *emit.Context, i int) error {
	svc, _ := ctx.Graph.Service(i)
	for _, m := range ctx.Members(i) {
		if err := e.check(ctx, m); err != nil {
			return err
		}
		e.writeShim(ctx, m)
	}
	if n := len(ctx.Function(svc.Destructor).Params); n != 1 {
		return ctx.UnsupportedFunction(svc.Destructor, "destructor takes %d parameters; Close supports exactly one", n)
	}
	e.imports["runtime"] = true
	name := ctx.Names.Type(svc.Opaque)
	destroy := "destroy" + name
	w := e.services
	w.Blank()
	if doc := ctx.Graph.Doc(svc.Opaque); doc != "" {
		w.Comment("// ", name+": "+doc)
		w.Line("//")
	}
	w.Linef("// %s owns a native handle. Close releases it; a finalizer releases", name)
	w.Line("// handles that were never closed.")
	w.Open("type %s struct {", name)
	w.Line("lib    *Library")
	w.Line("once   sync.Once")
	w.Line("mu     sync.RWMutex")
	w.Line("handle unsafe.Pointer")
	w.Close("}")

	for _, ctor := range svc.Ctors {
		roles := ctx.Roles(ctor)
		bound := map[int]string{}
		for j := range ctx.Function(ctor).Params {
			if roles.Role(j) == types.ParamOutHandle {
				bound[j] = "handlePtr"
			}
		}
		fname := ctx.Names.Function(ctor)
		w.Blank()
		docs(ctx, w, fname, ctor)
		w.Open("func (l *Library) %s(%s) (*%s, error) {", fname, e.signature(ctx, ctor, bound), name)
		w.Line("var handle unsafe.Pointer")
		w.Line("handlePtr := &handle")
		value := e.body(ctx, w, ctor, call{recv: "l", bound: bound, pins: []string{"handlePtr"}, zeros: []string{"nil"}, hasErr: true})
		if value != "" {
			w.Linef("_ = %s", value)
		}
		w.Linef("s := &%s{lib: l, handle: handle}", name)
		w.Linef("runtime.SetFinalizer(s, (*%s).finalize)", name)
		w.Line("return s, nil")
		w.Close("}")
	}

	for _, m := range svc.Methods {
		typ, zv, _ := e.result(ctx, m)
		c := call{recv: "l", bound: map[int]string{0: "handle"}, hasErr: true}
		if typ != "" {
			c.zeros = []string{zv}
		}
		mname := ctx.Names.Method(m)
		w.Blank()
		docs(ctx, w, mname, m)
		w.Open("func (s *%s) %s(%s)%s {", name, mname, e.signature(ctx, m, c.bound), results(typ, true))
		w.Line("s.mu.RLock()")
		w.Line("defer s.mu.RUnlock()")
		w.Line("handle := s.handle")
		w.Line("if handle == nil {")
		c.fail(w, fmt.Sprintf("fmt.Errorf(\"%s is closed: %%w\", ErrInvalidHandle)", name))
		w.Line("}")
		w.Line("l := s.lib")
		if value := e.body(ctx, w, m, c); value != "" {
			w.Linef("return %s, nil", value)
		} else {
			w.Line("return nil")
		}
		w.Close("}")
	}

	w.Blank()
	w.Linef("// Close releases the native handle. Closing twice returns an error wrapping")
	w.Line("// ErrInvalidHandle.")
	w.Open("func (s *%s) Close() error {", name)
	w.Linef("err := fmt.Errorf(\"%s is already closed: %%w\", ErrInvalidHandle)", name)
	w.Open("s.once.Do(func() {")
	w.Line("s.mu.Lock()")
	w.Line("handle := s.handle")
	w.Line("s.handle = nil")
	w.Line("s.mu.Unlock()")
	w.Line("runtime.SetFinalizer(s, nil)")
	w.Linef("err = s.lib.%s(handle)", destroy)
	w.Close("})")
	w.Line("return err")
	w.Close("}")
	w.Blank()
	w.Linef("func (s *%s) finalize() { _ = s.Close() }", name)

	w.Blank()
	w.Open("func (l *Library) %s(handle unsafe.Pointer) error {", destroy)
	w.Line("handlePtr := &handle")
	value := e.body(ctx, w, svc.Destructor, call{recv: "l", bound: map[int]string{0: "handlePtr"}, pins: []string{"handlePtr"}, hasErr: true})
	if value != "" {
		w.Linef("_ = %s", value)
	}
	w.Line("return nil")
	w.Close("}")
	return nil
}

// writeExport writes the exported trampoline name for one callback
// signature and mode.
func (e *Emitter) writeExport(ctx *emit.Context, w *emit.Writer, name string, ex export) {
	fi, _ := ctx.Graph.FnPointer(ex.sig)
	params := make([]string, len(fi.Params))
	args := make([]string, 0, len(fi.Params))
	for i, p := range fi.Params {
		params[i] = fmt.Sprintf("x%d %s", i, cgoType(ctx, p))
		args = append(args, fmt.Sprintf("*(*%s)(unsafe.Pointer(&x%d))", goType(ctx, p), i))
	}
	ret := ""
	if !ctx.Void(fi.Ret) {
		ret = " " + cgoType(ctx, fi.Ret)
	}

	var fn string
	w.Blank()
	switch ex.mode {
	case modeSlot:
		slot := "slot" + ctx.Names.Type(ex.sig)
		w.Open("var %s struct {", slot)
		w.Line("sync.Mutex")
		w.Linef("fn %s", funcType(ctx, ex.sig, false))
		w.Close("}")
		w.Blank()
		w.Linef("//export %s", name)
		w.Open("func %s(%s)%s {", name, strings.Join(params, ", "), ret)
		fn = slot + ".fn"
	case modeHandle:
		w.Linef("//export %s", name)
		w.Open("func %s(%s)%s {", name, strings.Join(params, ", "), ret)
		w.Linef("h := cgo.Handle(uintptr(x%d))", len(fi.Params)-1)
		w.Line("cb := h.Value().(*trampoline)")
		w.Line("if cb.once {")
		w.Line("\tdefer h.Delete()")
		w.Line("}")
		fn = fmt.Sprintf("cb.fn.(%s)", funcType(ctx, ex.sig, true))
		args = args[:len(args)-1]
	}
	invoke := fn + "(" + strings.Join(args, ", ") + ")"
	if ret == "" {
		w.Line(invoke)
	} else {
		w.Linef("r := %s", invoke)
		w.Linef("return *(*%s)(unsafe.Pointer(&r))", strings.TrimPrefix(ret, " "))
	}
	w.Close("}")
}
