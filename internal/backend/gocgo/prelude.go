package gocgo

// prelude is written after the imports of the main file.
const prelude = `var (
	// ErrInvalidHandle reports a service or owned value used after release.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrUnexpectedDiscriminant reports an option tag other than 0 or 1.
	ErrUnexpectedDiscriminant = errors.New("unexpected option discriminant")
	// ErrOutOfRange reports a slice index outside the slice.
	ErrOutOfRange = errors.New("index out of range")
	// ErrNullPointer reports that the library was handed a null pointer.
	ErrNullPointer = errors.New("null pointer passed")
	// ErrNativePanic reports that the library panicked while serving a call.
	ErrNativePanic = errors.New("native panic")
	// ErrAPIMismatch reports a library built from a different API.
	ErrAPIMismatch = errors.New("api mismatch")
)

// NativeError is a non-success code returned by the library.
type NativeError struct {
	Code int64
	Name string
	kind error
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("native call failed with %s (%d)", e.Name, e.Code)
}

func (e *NativeError) Unwrap() error { return e.kind }

type trampoline struct {
	fn   any
	once bool
}
`
