package diag

import (
	"fmt"
	"strings"
)

// Error is a single generation failure. Two errors match under errors.Is when
// their codes are equal, so callers can test against the sentinels below.
type Error struct {
	Code    Code
	Node    NodeRef
	Target  string
	Message string
}

var (
	ErrInvalidIR            = &Error{Code: InvalidIR}
	ErrUnresolvedType       = &Error{Code: UnresolvedType}
	ErrDuplicateSymbol      = &Error{Code: DuplicateSymbol}
	ErrRecursiveValueType   = &Error{Code: RecursiveValueType}
	ErrUnresolvedGeneric    = &Error{Code: UnresolvedGeneric}
	ErrAmbiguousPattern     = &Error{Code: AmbiguousPattern}
	ErrUnsupportedConstruct = &Error{Code: UnsupportedConstruct}
	ErrUnknownTarget        = &Error{Code: UnknownTarget}
	ErrLayoutMismatch       = &Error{Code: LayoutMismatch}
	ErrInvalidRepr          = &Error{Code: InvalidRepr}
)

// NewErrorf builds an *Error for a node.
func NewErrorf(code Code, node NodeRef, format string, args ...any) *Error {
	return &Error{Code: code, Node: node, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.ID())
	if e.Target != "" {
		b.WriteString(" [")
		b.WriteString(e.Target)
		b.WriteByte(']')
	}
	if ref := e.Node.String(); ref != "" {
		b.WriteByte(' ')
		b.WriteString(ref)
	}
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Code.Title())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Diagnostic converts the error back into a diagnostic record.
func (e *Error) Diagnostic() Diagnostic {
	return Diagnostic{Severity: SevError, Code: e.Code, Node: e.Node, Target: e.Target, Message: e.Message}
}

// Errors carries every error diagnostic of a failed stage.
type Errors struct {
	Items []Diagnostic
}

func (e *Errors) Error() string {
	if len(e.Items) == 0 {
		return "no errors"
	}
	first := e.Items[0].Err().Error()
	if len(e.Items) == 1 {
		return first
	}
	return fmt.Sprintf("%s (and %d more)", first, len(e.Items)-1)
}

func (e *Errors) Unwrap() []error {
	out := make([]error, 0, len(e.Items))
	for _, d := range e.Items {
		out = append(out, d.Err())
	}
	return out
}

// Diagnostics extracts diagnostics from err. Errors produced by this package
// keep their codes and nodes; anything else becomes a single UnknownCode
// diagnostic.
func Diagnostics(err error) []Diagnostic {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *Errors:
		return e.Items
	case *Error:
		return []Diagnostic{e.Diagnostic()}
	}
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		var out []Diagnostic
		for _, inner := range u.Unwrap() {
			out = append(out, Diagnostics(inner)...)
		}
		return out
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		if inner := u.Unwrap(); inner != nil {
			if ds := Diagnostics(inner); len(ds) > 0 && ds[0].Code != UnknownCode {
				return ds
			}
		}
	}
	return []Diagnostic{NewError(UnknownCode, NodeRef{}, err.Error())}
}
