package python

const prelude = `class NativeError(Exception):
    """A native call returned an error code."""

    def __init__(self, code: int, name: str = ""):
        super().__init__(f"native call failed with {name or code}")
        self.code = code
        self.name = name


class NativePanic(NativeError):
    """The native library panicked while serving the call."""


class NullPointerError(NativeError):
    """The native library was handed a null pointer."""


class InvalidHandle(Exception):
    """A handle or owned value was used after it was released."""


class UnexpectedDiscriminant(Exception):
    """An option carried a discriminant other than 0 or 1."""


class ApiMismatch(Exception):
    """The loaded library was built from a different API."""


def _ascii(value: typing.Any) -> typing.Any:
    if isinstance(value, str):
        return value.encode("ascii")
    return value
`

const libraryHelpers = `    def _keep(self, trampoline: typing.Any) -> int:
        with self._lock:
            self._next_callback += 1
            key = self._next_callback
            self._callbacks[key] = trampoline
        return key

    def _release(self, key: int) -> None:
        with self._lock:
            self._callbacks.pop(key, None)

    def _give_string(self, value: typing.Any) -> typing.Any:
        with self._lock:
            if getattr(value, "_consumed", False):
                raise InvalidHandle("string was already released")
            value._consumed = True
        return value
`
