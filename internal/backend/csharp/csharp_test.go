package csharp

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

func generate(t *testing.T, opts emit.Options) string {
	t.Helper()
	out := backendtest.Generate(t, New(), opts)
	require.Len(t, out.Files, 1)
	return string(out.Files[0].Content)
}

func TestFileLayout(t *testing.T) {
	out := backendtest.Generate(t, New(), emit.Options{Namespace: "Acme.Native", Class: "Native"})
	src := backendtest.File(t, out, "Native.cs")
	assert.Contains(t, src, "namespace Acme.Native;")
	assert.Contains(t, src, "using System.Runtime.InteropServices;")
	assert.Contains(t, src, "public sealed partial class Native")
	assert.Contains(t, src, "library = NativeLibrary.Load(path);")
	backendtest.Before(t, src, "public class InteropException : Exception", "public partial struct Vec3f32")
	backendtest.Before(t, src, "public partial struct Vec3f32", "public partial struct NestedArray")
	backendtest.Before(t, src, "public sealed partial class Native", "public sealed class SimpleService : IDisposable")

	assert.Contains(t, src, "public enum EnumDocumented : int")
	assert.Contains(t, src, "/// Variant A.")
	assert.Contains(t, src, "public partial struct CommonVec")
	assert.Contains(t, src, "[MarshalAs(UnmanagedType.ByValArray, SizeConst = 16)]\n    public byte[] data;")
	assert.Contains(t, src, "[MarshalAs(UnmanagedType.I1)]\n    public bool fieldBool;")
	assert.Contains(t, src, "public delegate uint MyCallback(uint x0);")
	assert.Contains(t, src, "public const byte U8 = 255;")
	assert.Contains(t, src, "public const float F32MinPositive = 1.1754944e-38f;")
	assert.Contains(t, src, "public const bool Enabled = true;")
}

func TestDefaults(t *testing.T) {
	out := backendtest.Generate(t, New(), emit.Options{Library: "my_lib"})
	src := backendtest.File(t, out, "MyLib.cs")
	assert.Contains(t, src, "namespace Bindings;")
	assert.Contains(t, src, "public sealed partial class MyLib")
}

func TestStructPacking(t *testing.T) {
	src := generate(t, emit.Options{})
	backendtest.Before(t, src, "[StructLayout(LayoutKind.Sequential, Pack = 1)]", "public partial struct Packed1")
	backendtest.Before(t, src, "[StructLayout(LayoutKind.Sequential, Pack = 2)]", "public partial struct Packed2")
	assert.Contains(t, src, "// size 12, align 4\n[StructLayout(LayoutKind.Sequential)]\npublic partial struct Vec3f32")
}

func TestSliceAndOption(t *testing.T) {
	src := generate(t, emit.Options{})
	slice := backendtest.Section(t, src, "public partial struct Sliceu32 : IEnumerable<uint>", "IEnumerable.GetEnumerator()")
	assert.Contains(t, slice, "if (i < 0 || (ulong)i >= len)")
	assert.Contains(t, slice, "throw new IndexOutOfRangeException(")
	assert.Contains(t, slice, "public uint[] Copied()")
	assert.NotContains(t, slice, "set =>", "immutable slices have no setter")

	mut := backendtest.Section(t, src, "public partial struct SliceMutu8 : IEnumerable<byte>", "IEnumerable.GetEnumerator()")
	assert.Contains(t, mut, "set => Marshal.StructureToPtr(value, At(i), false);")

	opt := backendtest.Section(t, src, "public partial struct OptionInner", "holds no value")
	assert.Contains(t, opt, "public bool IsSome => isSome switch")
	assert.Contains(t, opt, "_ => throw new UnexpectedDiscriminantException(isSome),")
	assert.Contains(t, opt, "public static OptionInner Some(Inner value) => new OptionInner { t = value, isSome = 1 };")
}

func TestResultsAndStrings(t *testing.T) {
	src := generate(t, emit.Options{})
	check := backendtest.Section(t, src, "public static void Check(this FfiError code)", "default:")
	assert.Contains(t, check, "case FfiError.Ok:")
	assert.Contains(t, check, "throw new NativePanicException((long)code, \"Panic\");")
	assert.Contains(t, check, "throw new NullPointerException((long)code, \"NullPassed\");")

	assert.Contains(t, src, "RawPatternResult2().Check();")
	assert.Contains(t, src, "public uint PatternResult1(Resultu32 x)")
	assert.Contains(t, src, "return RawPatternResult1(x).Unwrap();")
	assert.Contains(t, src, "public string? PatternAsciiPointerReturn()")
	assert.Contains(t, src, "return Marshal.PtrToStringAnsi(RawPatternAsciiPointerReturn());")
	assert.Contains(t, src, "[MarshalAs(UnmanagedType.LPStr)] string x")

	assert.Contains(t, src, "public string PatternString1(Utf8String x)")
	assert.Contains(t, src, "GiveString(x.Pointer);")
	assert.Contains(t, src, "return TakeUtf8String(RawPatternString1(x));")
	take := backendtest.Section(t, src, "internal string TakeUtf8String(Utf8String value)", "RawUtf8StringDestroy(value);")
	backendtest.Before(t, take, "return value.Read();", "GiveString(value.Pointer);")
	assert.Contains(t, src, `releasedStrings.Add(ptr)`)
}

func TestGuardAndCallbacks(t *testing.T) {
	src := generate(t, emit.Options{})
	assert.Contains(t, src, "public const ulong ExpectedApiGuard = 0x")
	assert.Contains(t, src, "var actual = RawApiGuard();")
	assert.Contains(t, src, "throw new ApiMismatchException(actual, ExpectedApiGuard);")
	assert.Contains(t, src, `RawCallback1 = Load<Callback1Fn>("callback_1");`)

	sync := backendtest.Section(t, src, "public uint Callback1(", "GC.KeepAlive(callback);")
	assert.Contains(t, sync, "return RawCallback1(callback, x);")

	ctxCb := backendtest.Section(t, src, "public void CallbackContextual(Action<uint> callback", "GC.KeepAlive(callbackFn);")
	assert.Contains(t, ctxCb, "MyCallbackContextual callbackFn = (x0, x1) => callback(x0);")
	assert.Contains(t, ctxCb, "RawCallbackContextual(callbackFn, IntPtr.Zero);")
}

func TestService(t *testing.T) {
	src := generate(t, emit.Options{})
	svc := backendtest.Section(t, src, "public sealed class SimpleService : IDisposable", "~SimpleService()")
	assert.Contains(t, svc, "SimpleService(Interop lib, IntPtr handle)")
	assert.NotContains(t, svc, "public SimpleService(", "services are created by their constructors")
	assert.Contains(t, svc, "public static SimpleService NewWith(Interop lib, uint someValue)")
	assert.Contains(t, svc, "lib.RawSimpleServiceNewWith(out handle, someValue).Check();")
	assert.Contains(t, svc, `throw new InvalidHandleException("SimpleService is closed");`)
	assert.Contains(t, svc, "public uint MethodValue(uint x)")
	assert.Contains(t, svc, "return lib.RawSimpleServiceMethodValue(Live(), x);")
	assert.Contains(t, svc, "var h = Interlocked.Exchange(ref handle, IntPtr.Zero);")
	assert.Contains(t, svc, `throw new InvalidHandleException("SimpleService is already closed");`)
	assert.Contains(t, svc, "lib.RawSimpleServiceDestroy(ref h).Check();")
	assert.Contains(t, src, "internal delegate FfiError SimpleServiceDestroyFn(ref IntPtr context);")
	assert.Contains(t, src, "internal delegate FfiError SimpleServiceNewWithFn(out IntPtr context, uint someValue);")

	async := backendtest.Section(t, svc, "MethodAsync(", "code.Check();")
	assert.Contains(t, async, "long callbackKey = 0;")
	assert.Contains(t, async, "lib.Release(callbackKey);")
	assert.Contains(t, async, "callbackKey = lib.Keep(callbackFn);")
	assert.Contains(t, async, "new IntPtr(callbackKey)")
	assert.Contains(t, async, "if (code != FfiError.Ok)")
}

func TestArrayParamIsUnsupported(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	b.AddFunction(types.Function{Name: "takes_array", Params: []types.Param{{Name: "x", Type: b.Array(u8, 4)}}})
	_, err := emit.Generate(New(), backendtest.InputFor(t, b, emit.Options{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrUnsupportedConstruct))
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 1)
	assert.Equal(t, Target, ds[0].Target)
}

func TestPreludeNamesAreEscaped(t *testing.T) {
	b := types.NewBuilder()
	u32 := b.Primitive(types.PrimU32)
	b.Struct(types.StructInfo{Name: "NativeException", Fields: []types.Field{{Name: "x", Type: u32}}})
	b.AddFunction(types.Function{Name: "keep", Ret: u32})
	b.AddFunction(types.Function{Name: "load", Ret: u32})

	out, err := emit.Generate(New(), backendtest.InputFor(t, b, emit.Options{}))
	require.NoError(t, err)
	src := string(out.Files[0].Content)
	assert.Contains(t, src, "public partial struct NativeException_")
	assert.Contains(t, src, "public uint Keep_()")
	assert.Contains(t, src, "public uint Load_()")
	assert.Contains(t, src, "public class NativeException : InteropException")
}
