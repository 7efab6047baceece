package gocgo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/backend/backendtest"
	"ffigen/internal/diag"
	"ffigen/internal/emit"
	"ffigen/internal/types"
)

type generated struct {
	main, callbacks, header string
	out                     *emit.Output
}

func generate(t *testing.T, opts emit.Options) generated {
	t.Helper()
	out := backendtest.Generate(t, New(), opts)
	require.Len(t, out.Files, 3)
	return generated{
		main:      backendtest.File(t, out, "bindings.go"),
		callbacks: backendtest.File(t, out, "bindings_callbacks.go"),
		header:    backendtest.File(t, out, "bindings_types.h"),
		out:       out,
	}
}

func TestPackageName(t *testing.T) {
	out := backendtest.Generate(t, New(), emit.Options{Library: "my_native_lib"})
	src := backendtest.File(t, out, "mynativelib.go")
	assert.Contains(t, src, "package mynativelib\n")
	assert.Contains(t, src, "// Package mynativelib binds the my_native_lib native library.")
	assert.Contains(t, src, `#include "mynativelib_types.h"`)
}

func TestHeader(t *testing.T) {
	g := generate(t, emit.Options{})
	h := g.header
	assert.Contains(t, h, "#ifndef FFIGEN_BINDINGS_TYPES_H")
	assert.Contains(t, h, "typedef struct c_Vec3f32 c_Vec3f32;")
	assert.Contains(t, h, "typedef struct c_SimpleService c_SimpleService;")
	assert.Contains(t, h, "typedef int32_t c_FfiError;")
	assert.Contains(t, h, "typedef uint32_t (*c_MyCallback)(uint32_t);")
	backendtest.Before(t, h, "#pragma pack(push, 2)", "struct c_Packed2 {")
	backendtest.Before(t, h, "struct c_Vec3f32 {", "struct c_NestedArray {")
	nested := backendtest.Section(t, h, "struct c_NestedArray {", "};")
	assert.Contains(t, nested, "c_EnumDocumented f0;")
	assert.Contains(t, nested, "uint16_t f2[5];")
}

func TestShims(t *testing.T) {
	g := generate(t, emit.Options{})
	src := g.main
	assert.Contains(t, src, "#cgo LDFLAGS: -ldl")
	assert.Contains(t, src, "static void ffigen_call_vec_add(void *fp, void *a0, void *a1, void *ret) {")
	assert.Contains(t, src, "*(c_Vec *)ret = ((c_Vec (*)(c_Vec, c_CommonVec))fp)(*(c_Vec *)a0, *(c_CommonVec *)a1);")
	assert.Contains(t, src, "static void ffigen_call_primitive_void(void *fp) {")
	assert.Contains(t, src, "extern uint32_t ffigenSlotMyCallback(uint32_t);")
	assert.Contains(t, src, "static void ffigen_call_callback_1(void *fp, void *a1, void *ret) {")
	assert.Contains(t, src, "((uint32_t (*)(c_MyCallback, uint32_t))fp)((c_MyCallback)ffigenSlotMyCallback, *(uint32_t *)a1);")
	assert.Contains(t, src, "*(c_SimpleService ***)a0")
	backendtest.Before(t, src, "*/\nimport \"C\"", "var symbols = [")
}

func TestLibrary(t *testing.T) {
	src := generate(t, emit.Options{}).main
	assert.Contains(t, src, "func Open(path string) (*Library, error) {")
	assert.Contains(t, src, "C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)")
	assert.Contains(t, src, "const expectedAPIGuard uint64 = 0x")
	assert.Contains(t, src, "if got := l.ApiGuard(); got != expectedAPIGuard {")
	assert.Contains(t, src, "ErrAPIMismatch)")
	assert.Contains(t, src, `"iter"`)
	assert.Contains(t, src, `"runtime/cgo"`)

	assert.Contains(t, src, "func (l *Library) VecAdd(a Vec, b CommonVec) Vec {")
	assert.Contains(t, src, "C.ffigen_call_vec_add(l.fns[")
	assert.Contains(t, src, "func (l *Library) PrimitiveVoid() {")
	assert.Contains(t, src, "// PrimitiveVoid: Does nothing.")
	assert.Contains(t, src, "func (l *Library) RefOpaque(x unsafe.Pointer) bool {")
}

func TestPatterns(t *testing.T) {
	src := generate(t, emit.Options{}).main
	assert.Contains(t, src, "func NewSliceu32(s []uint32) Sliceu32 {")
	assert.Contains(t, src, "func (s Sliceu32) Get(i int) (uint32, error) {")
	assert.Contains(t, src, "func (s Sliceu32) All() iter.Seq2[int, uint32] {")
	assert.Contains(t, src, "func (s Sliceu32) Copied() []uint32 {")
	assert.NotContains(t, src, "func (s Sliceu32) Set(", "immutable slices have no setter")
	assert.Contains(t, src, "func (s SliceMutu8) Set(i int, v uint8) error {")
	assert.Contains(t, src, "ErrOutOfRange)")
	assert.Contains(t, src, "pin.Pin(ffiSlice.data)")

	assert.Contains(t, src, "func (o OptionInner) Get() (Inner, bool, error) {")
	assert.Contains(t, src, "ErrUnexpectedDiscriminant)")

	assert.Regexp(t, `FfiErrorNullPassed\s+FfiError = 100`, src)
	check := backendtest.Section(t, src, "func (e FfiError) check() error {", "\n}\n")
	assert.Contains(t, check, "case FfiErrorOk:")
	assert.Contains(t, check, "kind: ErrNativePanic}")
	assert.Contains(t, check, "kind: ErrNullPointer}")

	assert.Contains(t, src, "func (l *Library) PatternResult2() error {")
	assert.Contains(t, src, "func (l *Library) PatternResult1(x Resultu32) (uint32, error) {")
	assert.Contains(t, src, "v, err := ret.Unwrap()")
	assert.Contains(t, src, "func (l *Library) PatternAsciiPointerReturn() string {")
	assert.Contains(t, src, "return C.GoString(ret)")
	assert.Contains(t, src, "xC := C.CString(x)")

	assert.Contains(t, src, "func (l *Library) PatternString1(x *Utf8String) (string, error) {")
	assert.Contains(t, src, "xOwned, err := l.giveUtf8String(x)")
	assert.Contains(t, src, "unsafe.Pointer(&xOwned), unsafe.Pointer(&ret))")
	assert.Contains(t, src, "return l.takeUtf8String(ret), nil")
	take := backendtest.Section(t, src, "func (l *Library) takeUtf8String(s Utf8String) string {", "return text\n")
	backendtest.Before(t, take, "text := s.text()", "C.ffigen_call_utf8_string_destroy(")
}

func TestStringOwnershipFollowsTheWrapper(t *testing.T) {
	src := generate(t, emit.Options{})
	main := src.main
	assert.NotContains(t, main, "map[unsafe.Pointer]", "ownership is not keyed by address")
	assert.Regexp(t, `type Library struct \{\s+handle unsafe.Pointer\s+fns\s+\[\d+\]unsafe.Pointer\s+mu\s+sync.Mutex\s+\}`, main)

	give := backendtest.Section(t, main, "func (l *Library) giveUtf8String(s *Utf8String) (Utf8String, error) {", "\n}\n")
	backendtest.Before(t, give, "l.mu.Lock()", "if s == nil || s.ptr == nil {")
	backendtest.Before(t, give, "v := *s", "*s = Utf8String{}")
	assert.Contains(t, give, `"string was already released: %w", ErrInvalidHandle)`)

	destroy := backendtest.Section(t, main, "func (l *Library) Utf8StringDestroy(x *Utf8String) error {", "\n}\n")
	backendtest.Before(t, destroy, "xOwned, err := l.giveUtf8String(x)", "C.ffigen_call_utf8_string_destroy(l.fns[")
	assert.Contains(t, destroy, "unsafe.Pointer(&xOwned))")
}

func TestStringsAreGivenBeforeHandlesAreMade(t *testing.T) {
	b := types.NewBuilder()
	void := b.Void()
	u8 := b.Primitive(types.PrimU8)
	u64 := b.Primitive(types.PrimU64)
	ctx := b.Pointer(void, true)
	utf8 := b.Struct(types.StructInfo{Name: "Utf8String", Fields: []types.Field{
		{Name: "ptr", Type: b.Pointer(u8, true)},
		{Name: "len", Type: u64},
		{Name: "capacity", Type: u64},
	}})
	done := b.FnPointer("Done", []types.TypeID{u64, ctx}, void)
	b.AddFunction(types.Function{Name: "utf8_string_destroy", Params: []types.Param{{Name: "x", Type: utf8}}})
	b.AddFunction(types.Function{Name: "send", Params: []types.Param{
		{Name: "done", Type: done},
		{Name: "done_context", Type: ctx},
		{Name: "to", Type: utf8},
		{Name: "body", Type: utf8},
	}})

	out, err := emit.Generate(New(), backendtest.InputFor(t, b, emit.Options{}))
	require.NoError(t, err)
	src := backendtest.File(t, out, "bindings.go")
	send := backendtest.Section(t, src, "func (l *Library) Send(done func(uint64), to *Utf8String, body *Utf8String) error {", "\n}\n")
	backendtest.Before(t, send, "toOwned, err := l.giveUtf8String(to)", "bodyOwned, err := l.giveUtf8String(body)")
	backendtest.Before(t, send, "bodyOwned, err := l.giveUtf8String(body)", "doneHandle := cgo.NewHandle(")
	assert.Contains(t, send, "unsafe.Pointer(&toOwned), unsafe.Pointer(&bodyOwned))")
}

func TestOnceCallbackReleasedWhenResultFails(t *testing.T) {
	b := types.NewBuilder()
	void := b.Void()
	u32 := b.Primitive(types.PrimU32)
	u64 := b.Primitive(types.PrimU64)
	ctx := b.Pointer(void, true)
	status := b.Enum(types.EnumInfo{Name: "Status", Base: types.PrimI32, Variants: []types.Variant{
		{Name: "Ok", Value: 0},
		{Name: "Busy", Value: 1},
	}})
	tp := b.GenericParam("T")
	result := b.Struct(types.StructInfo{Name: "Result", TypeParams: []types.TypeID{tp}, Fields: []types.Field{
		{Name: "t", Type: tp},
		{Name: "err", Type: status},
	}})
	done := b.FnPointer("Done", []types.TypeID{u64, ctx}, void)
	b.AddFunction(types.Function{Name: "schedule", Params: []types.Param{
		{Name: "done", Type: done},
		{Name: "done_context", Type: ctx},
	}, Ret: b.Instance(result, []types.TypeID{u32}), Annotations: types.Annotations{Async: true}})

	out, err := emit.Generate(New(), backendtest.InputFor(t, b, emit.Options{}))
	require.NoError(t, err)
	src := backendtest.File(t, out, "bindings.go")
	schedule := backendtest.Section(t, src, "func (l *Library) Schedule(done func(uint64)) (uint32, error) {", "\n}\n")
	assert.NotContains(t, schedule, "defer doneHandle.Delete()")
	failed := backendtest.Section(t, schedule, "v, err := ret.Unwrap()", "return 0, err")
	assert.Contains(t, failed, "doneHandle.Delete()")
}

func TestPackedAccessors(t *testing.T) {
	g := generate(t, emit.Options{})
	assert.Regexp(t, `type Packed1 struct \{\s+raw \[3\]uint8\s+\}`, g.main)
	assert.Regexp(t, `type Packed2 struct \{\s+raw \[5\]uint16\s+\}`, g.main)
	assert.Contains(t, g.main, "func (s *Packed2) Y() uint64 { return *(*uint64)(unsafe.Add(unsafe.Pointer(&s.raw), 2)) }")
	assert.Contains(t, g.main, "func (s *Packed2) SetY(v uint64) {")

	rec, ok := lookup(t, g.out, "Packed2")
	require.True(t, ok)
	assert.Equal(t, []string{"X", "Y"}, rec.Fields)
	assert.Equal(t, 2, rec.Repr.PackAlign())

	rec, ok = lookup(t, g.out, "OptionInner")
	require.True(t, ok)
	assert.Equal(t, []string{"t", "isSome"}, rec.Fields)
}

func lookup(t *testing.T, out *emit.Output, name string) (emit.StructRecord, bool) {
	t.Helper()
	for _, r := range out.Manifest.Structs {
		if r.Name == name {
			return r, true
		}
	}
	return emit.StructRecord{}, false
}

func TestCallbacks(t *testing.T) {
	g := generate(t, emit.Options{})
	src := g.main
	sync := backendtest.Section(t, src, "func (l *Library) Callback1(callback func(uint32) uint32, x uint32) uint32 {", "\n}\n")
	assert.Contains(t, sync, "slotMyCallback.Lock()")
	assert.Contains(t, sync, "defer slotMyCallback.Unlock()")
	assert.Contains(t, sync, "slotMyCallback.fn = callback")

	ctxCb := backendtest.Section(t, src, "func (l *Library) CallbackContextual(callback func(uint32)) {", "\n}\n")
	assert.Contains(t, ctxCb, "callbackHandle := cgo.NewHandle(&trampoline{fn: callback, once: false})")
	assert.Contains(t, ctxCb, "defer callbackHandle.Delete()")
	assert.Contains(t, ctxCb, "contextCtx := uintptr(callbackHandle)")

	cb := g.callbacks
	assert.Contains(t, cb, "//export ffigenSlotMyCallback\nfunc ffigenSlotMyCallback(x0 C.uint32_t) C.uint32_t {")
	assert.Contains(t, cb, "r := slotMyCallback.fn(*(*uint32)(unsafe.Pointer(&x0)))")
	assert.Contains(t, cb, "return *(*C.uint32_t)(unsafe.Pointer(&r))")
	assert.Contains(t, cb, "func ffigenSlotCallbackSlice(x0 C.c_Sliceu8) C.uint8_t {")
	assert.Contains(t, cb, "//export ffigenHandleAsyncCallback")
	assert.Contains(t, cb, "h := cgo.Handle(uintptr(x1))")
	assert.Contains(t, cb, "cb.fn.(func(uint64))(*(*uint64)(unsafe.Pointer(&x0)))")
	assert.NotContains(t, cb, "static ", "export preambles hold declarations only")
}

func TestService(t *testing.T) {
	src := generate(t, emit.Options{}).main
	assert.Contains(t, src, "func (l *Library) SimpleServiceNewWith(someValue uint32) (*SimpleService, error) {")
	assert.Contains(t, src, "runtime.SetFinalizer(s, (*SimpleService).finalize)")
	assert.Contains(t, src, "pin.Pin(handlePtr)")

	method := backendtest.Section(t, src, "func (s *SimpleService) MethodValue(x uint32) (uint32, error) {", "\n}\n")
	assert.Contains(t, method, "s.mu.RLock()")
	assert.Contains(t, method, `return 0, fmt.Errorf("SimpleService is closed: %w", ErrInvalidHandle)`)
	assert.Contains(t, method, "unsafe.Pointer(&handle), unsafe.Pointer(&x), unsafe.Pointer(&ret))")

	async := backendtest.Section(t, src, "func (s *SimpleService) MethodAsync(x uint64, callback func(uint64)) error {", "\n}\n")
	assert.Contains(t, async, "cgo.NewHandle(&trampoline{fn: callback, once: true})")
	assert.Contains(t, async, "callbackHandle.Delete()")
	assert.NotContains(t, async, "defer callbackHandle.Delete()")

	closer := backendtest.Section(t, src, "func (s *SimpleService) Close() error {", "\n}\n")
	assert.Contains(t, closer, "s.once.Do(func() {")
	assert.Contains(t, closer, `"SimpleService is already closed: %w"`)
	assert.Contains(t, closer, "err = s.lib.destroySimpleService(handle)")
}

func TestAsyncCallbackWithoutContextIsUnsupported(t *testing.T) {
	b := types.NewBuilder()
	u32 := b.Primitive(types.PrimU32)
	done := b.FnPointer("Done", []types.TypeID{u32}, b.Void())
	b.AddFunction(types.Function{
		Name:        "run_later",
		Params:      []types.Param{{Name: "done", Type: done}},
		Annotations: types.Annotations{Async: true},
	})
	_, err := emit.Generate(New(), backendtest.InputFor(t, b, emit.Options{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrUnsupportedConstruct))
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 1)
	assert.Equal(t, Target, ds[0].Target)
	assert.Contains(t, ds[0].Message, "no context")
}
