package types

import "fmt"

// PatternKind identifies a recognized higher-level idiom layered over a raw
// struct, enum, opaque, or function pointer node.
type PatternKind uint8

const (
	PatternNone PatternKind = iota
	PatternSlice
	PatternOption
	PatternResult
	PatternUtf8String
	PatternService
	PatternCallback
)

func (k PatternKind) String() string {
	switch k {
	case PatternNone:
		return "plain"
	case PatternSlice:
		return "slice"
	case PatternOption:
		return "option"
	case PatternResult:
		return "result"
	case PatternUtf8String:
		return "utf8-string"
	case PatternService:
		return "service"
	case PatternCallback:
		return "callback"
	default:
		return fmt.Sprintf("PatternKind(%d)", k)
	}
}

// ErrorCodes describes the special variants of an error enum.
type ErrorCodes struct {
	Success  int64
	Null     int64
	HasNull  bool
	Panic    int64
	HasPanic bool
}

// Pattern is the classification attached to a single node. Only the fields
// relevant to Kind are set.
type Pattern struct {
	Kind PatternKind

	// Slice
	Elem    TypeID
	Mutable bool

	// Option
	Inner TypeID

	// Result: Ok is NoTypeID for a bare error enum.
	Ok        TypeID
	ErrorEnum TypeID
	Codes     ErrorCodes

	// Utf8String: index of the paired destroy function, -1 when absent.
	Destroy int

	// Service: index into Graph.Services.
	Service int

	// Callback
	Signature TypeID
	Context   bool
}

// IsNone reports whether the node is plain.
func (p Pattern) IsNone() bool { return p.Kind == PatternNone }

// ServiceInfo groups an opaque handle with its lifecycle functions. Function
// references are indexes into Graph.Functions.
type ServiceInfo struct {
	Opaque     TypeID
	Ctors      []int
	Destructor int
	Methods    []int
	ErrorEnum  TypeID
}

// FnKind is the role of a function after classification.
type FnKind uint8

const (
	FnFree FnKind = iota
	FnCtor
	FnDtor
	FnMethod
	FnStringDestroy
)

func (k FnKind) String() string {
	switch k {
	case FnFree:
		return "free"
	case FnCtor:
		return "ctor"
	case FnDtor:
		return "dtor"
	case FnMethod:
		return "method"
	case FnStringDestroy:
		return "string-destroy"
	default:
		return fmt.Sprintf("FnKind(%d)", k)
	}
}

// ParamRole is the role of a single parameter.
type ParamRole uint8

const (
	ParamPlain ParamRole = iota
	ParamAscii
	ParamCallback
	// ParamContext is the user-data pointer bound to the preceding callback.
	ParamContext
	// ParamSelf is the service handle of a method.
	ParamSelf
	// ParamOutHandle is the **Opaque out-parameter of a constructor.
	ParamOutHandle
)

func (r ParamRole) String() string {
	switch r {
	case ParamPlain:
		return "plain"
	case ParamAscii:
		return "ascii"
	case ParamCallback:
		return "callback"
	case ParamContext:
		return "context"
	case ParamSelf:
		return "self"
	case ParamOutHandle:
		return "out-handle"
	default:
		return fmt.Sprintf("ParamRole(%d)", r)
	}
}

// CallbackSite describes a callback parameter.
type CallbackSite struct {
	Signature TypeID
	// Context is set when the next parameter carries the callback's user data.
	Context bool
	// Once is set for completion callbacks of async functions.
	Once bool
}

// FunctionRoles is the cached classification of one function.
type FunctionRoles struct {
	Kind      FnKind
	Service   int // index into Graph.Services, -1 for none
	Params    []ParamRole
	Callbacks map[int]CallbackSite
	// Checked is set when the function returns an error enum or result struct.
	Checked  bool
	RetAscii bool
	// Method is the logical method name for service members.
	Method string
}

// CallbackAt returns the callback description of parameter i.
func (r *FunctionRoles) CallbackAt(i int) (CallbackSite, bool) {
	if r == nil || r.Callbacks == nil {
		return CallbackSite{}, false
	}
	cb, ok := r.Callbacks[i]
	return cb, ok
}

// Role returns the role of parameter i.
func (r *FunctionRoles) Role(i int) ParamRole {
	if r == nil || i < 0 || i >= len(r.Params) {
		return ParamPlain
	}
	return r.Params[i]
}
