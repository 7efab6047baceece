package emit

import (
	"fmt"

	"ffigen/internal/diag"
	"ffigen/internal/layout"
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Guard is the API guard emitted into bindings. Function is -1 when the
// library exports no guard.
type Guard struct {
	Function int
	Hash     uint64
}

// Present reports whether bindings should check the guard on load.
func (g Guard) Present() bool { return g.Function >= 0 }

// Context is the read-only state shared by all emitter operations of one
// target run, plus the manifest the emitter fills.
type Context struct {
	Target   string
	Graph    *types.Graph
	Names    *naming.Table
	Layout   *layout.LayoutEngine
	Options  Options
	Guard    Guard
	Manifest *Manifest
}

// Pattern returns the cached classification of id.
func (c *Context) Pattern(id types.TypeID) types.Pattern { return c.Graph.Pattern(id) }

// Roles returns the cached classification of function i.
func (c *Context) Roles(i int) *types.FunctionRoles { return c.Graph.FunctionRoles(i) }

// Function returns function i.
func (c *Context) Function(i int) *types.Function {
	fn, _ := c.Graph.Function(i)
	return fn
}

// Unsupported builds the error for a type the target cannot express.
func (c *Context) Unsupported(id types.TypeID, format string, args ...any) error {
	d := diag.Errorf(diag.UnsupportedConstruct, types.NodeRef(c.Graph, id), format, args...).WithTarget(c.Target)
	return d.Err()
}

// UnsupportedFunction builds the error for a function the target cannot
// express.
func (c *Context) UnsupportedFunction(i int, format string, args ...any) error {
	d := diag.Errorf(diag.UnsupportedConstruct, types.FunctionRef(c.Graph, i), format, args...).WithTarget(c.Target)
	return d.Err()
}

// RecordStruct adds struct id to the manifest with the packing the emitter
// declared.
func (c *Context) RecordStruct(id types.TypeID, repr types.Repr) {
	s, ok := c.Graph.Struct(id)
	if !ok {
		return
	}
	names := make([]string, len(s.Fields))
	for i := range s.Fields {
		names[i] = c.Names.Field(id, i)
	}
	c.RecordStructAs(id, repr, names)
}

// RecordStructAs is RecordStruct for emitters that rename the fields of
// pattern structs to keep them private.
func (c *Context) RecordStructAs(id types.TypeID, repr types.Repr, fields []string) {
	s, ok := c.Graph.Struct(id)
	if !ok {
		return
	}
	rec := StructRecord{Type: id, Name: c.Names.Type(id), Repr: repr, Fields: fields}
	for _, f := range s.Fields {
		rec.Types = append(rec.Types, f.Type)
	}
	c.Manifest.Record(rec)
}

// Variant returns the identifier of the variant of enum with the given
// discriminant, or "" when there is none.
func (c *Context) Variant(enum types.TypeID, value int64) string {
	e, ok := c.Graph.Enum(enum)
	if !ok {
		return ""
	}
	for i, v := range e.Variants {
		if v.Value == value {
			return c.Names.Variant(enum, i)
		}
	}
	return ""
}

// Void reports whether id is absent or void.
func (c *Context) Void(id types.TypeID) bool {
	return id == types.NoTypeID || c.Graph.IsVoid(id)
}

// LayoutComment renders "size N, align M" for id, or "" when the layout is
// unknown.
func (c *Context) LayoutComment(id types.TypeID) string {
	l, err := c.Layout.LayoutOf(id)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("size %d, align %d", l.Size, l.Align)
}

// Members returns the service-member functions of service i in emission
// order: constructors, methods, destructor.
func (c *Context) Members(i int) []int {
	svc, ok := c.Graph.Service(i)
	if !ok {
		return nil
	}
	out := append([]int(nil), svc.Ctors...)
	out = append(out, svc.Methods...)
	return append(out, svc.Destructor)
}
