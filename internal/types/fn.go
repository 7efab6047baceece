package types

import (
	"slices"
	"strconv"
)

// Lifecycle lets the front end state the role of a function in a service
// explicitly instead of relying on naming conventions.
type Lifecycle uint8

const (
	LifecycleNone Lifecycle = iota
	LifecycleConstructor
	LifecycleDestructor
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleConstructor:
		return "constructor"
	case LifecycleDestructor:
		return "destructor"
	default:
		return "none"
	}
}

// Annotations carry per-function flags extracted by the front end.
type Annotations struct {
	RaisesOnPanic   bool
	MustCheckResult bool
	// Async marks functions that return immediately and complete through a
	// callback parameter, possibly on a foreign thread.
	Async     bool
	Lifecycle Lifecycle
}

// Param is a named function parameter.
type Param struct {
	Name string
	Type TypeID
	Doc  string
}

// Function is an exported native symbol.
type Function struct {
	Name        string
	Doc         string
	Params      []Param
	Ret         TypeID
	RetDoc      string
	Annotations Annotations
}

func (f Function) clone() Function {
	out := f
	out.Params = slices.Clone(f.Params)
	return out
}

// ValueKind tags a constant literal.
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota
	ValueInt
	ValueUint
	ValueFloat
	ValueBool
)

// Value is a constant literal.
type Value struct {
	Kind  ValueKind
	Int   int64
	Uint  uint64
	Float float64
	Bool  bool
}

// IntValue builds a signed literal.
func IntValue(v int64) Value { return Value{Kind: ValueInt, Int: v} }

// UintValue builds an unsigned literal.
func UintValue(v uint64) Value { return Value{Kind: ValueUint, Uint: v} }

// FloatValue builds a floating-point literal.
func FloatValue(v float64) Value { return Value{Kind: ValueFloat, Float: v} }

// BoolValue builds a boolean literal.
func BoolValue(v bool) Value { return Value{Kind: ValueBool, Bool: v} }

// Literal renders the value in a C-family spelling. Floats always carry a
// decimal point so targets do not read them back as integers.
func (v Value) Literal() string {
	switch v.Kind {
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueUint:
		return strconv.FormatUint(v.Uint, 10)
	case ValueFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		for _, r := range s {
			if r == '.' || r == 'e' || r == 'n' || r == 'I' {
				return s
			}
		}
		return s + ".0"
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	default:
		return "0"
	}
}

func (v Value) String() string {
	if v.Kind == ValueInvalid {
		return "<invalid>"
	}
	return v.Literal()
}

// Constant is an exported compile-time value.
type Constant struct {
	Name  string
	Doc   string
	Type  TypeID
	Value Value
}
