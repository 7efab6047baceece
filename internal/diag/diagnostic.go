package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for findings that do not stop generation.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// NodeRef identifies the offending IR node. Kind is a short noun such as
// "struct", "function", "constant" or "type"; ID is the TypeID or function
// index, and Name the IR spelling.
type NodeRef struct {
	Kind string
	ID   uint32
	Name string
}

// Node is a shorthand constructor for NodeRef.
func Node(kind string, id uint32, name string) NodeRef {
	return NodeRef{Kind: kind, ID: id, Name: name}
}

// IsZero reports whether the reference is empty.
func (n NodeRef) IsZero() bool { return n.Kind == "" && n.ID == 0 && n.Name == "" }

func (n NodeRef) String() string {
	if n.IsZero() {
		return ""
	}
	var b strings.Builder
	if n.Kind != "" {
		b.WriteString(n.Kind)
	}
	if n.Name != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n.Name)
	}
	if n.ID != 0 {
		fmt.Fprintf(&b, " (#%d)", n.ID)
	}
	return b.String()
}

type Note struct {
	Node NodeRef
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Node     NodeRef
	// Target is set when the finding only applies to one output language.
	Target string
	Notes  []Note
}

func New(sev Severity, code Code, node NodeRef, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Node:     node,
		Message:  msg,
	}
}

func NewError(code Code, node NodeRef, msg string) Diagnostic {
	return New(SevError, code, node, msg)
}

// Errorf builds an error diagnostic with a formatted message.
func Errorf(code Code, node NodeRef, format string, args ...any) Diagnostic {
	return New(SevError, code, node, fmt.Sprintf(format, args...))
}

func (d Diagnostic) WithNote(node NodeRef, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Node: node, Msg: msg})
	return d
}

func (d Diagnostic) WithTarget(target string) Diagnostic {
	d.Target = target
	return d
}

// Err converts the diagnostic into an error value.
func (d Diagnostic) Err() *Error {
	return &Error{Code: d.Code, Node: d.Node, Target: d.Target, Message: d.Message}
}
