package csharp

const prelude = `public class InteropException : Exception
{
    public InteropException(string message) : base(message) { }
}

/// <summary>A native call returned an error code.</summary>
public class NativeException : InteropException
{
    public long Code { get; }
    public string Name { get; }

    public NativeException(long code, string name) : base($"native call failed with {name} ({code})")
    {
        Code = code;
        Name = name;
    }
}

/// <summary>The native library panicked while serving the call.</summary>
public sealed class NativePanicException : NativeException
{
    public NativePanicException(long code, string name) : base(code, name) { }
}

/// <summary>The native library was handed a null pointer.</summary>
public sealed class NullPointerException : NativeException
{
    public NullPointerException(long code, string name) : base(code, name) { }
}

/// <summary>A handle or owned value was used after it was released.</summary>
public sealed class InvalidHandleException : InteropException
{
    public InvalidHandleException(string message) : base(message) { }
}

/// <summary>An option carried a discriminant other than 0 or 1.</summary>
public sealed class UnexpectedDiscriminantException : InteropException
{
    public UnexpectedDiscriminantException(byte value) : base($"unexpected option discriminant {value}") { }
}

/// <summary>The loaded library was built from a different API.</summary>
public sealed class ApiMismatchException : InteropException
{
    public ApiMismatchException(ulong actual, ulong expected)
        : base($"library API hash 0x{actual:x16} does not match bindings 0x{expected:x16}") { }
}
`

const libraryHelpers = `    T Load<T>(string name) where T : Delegate =>
        Marshal.GetDelegateForFunctionPointer<T>(NativeLibrary.GetExport(library, name));

    internal long Keep(Delegate callback)
    {
        var key = Interlocked.Increment(ref nextCallback);
        callbacks[key] = callback;
        return key;
    }

    internal void Release(long key) => callbacks.TryRemove(key, out _);

    internal void GiveString(IntPtr ptr)
    {
        lock (releasedStrings)
        {
            if (!releasedStrings.Add(ptr))
            {
                throw new InvalidHandleException("string was already released");
            }
        }
    }

    internal void TrackString(IntPtr ptr)
    {
        lock (releasedStrings)
        {
            releasedStrings.Remove(ptr);
        }
    }
`
