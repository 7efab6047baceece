// Package emit drives target emitters over a classified type graph.
//
// The engine runs a declaration pass in graph order, a definition pass in
// dependency order over value-containment edges, then constants, free
// functions and services. Emitters never decide what a node means: they read
// the cached pattern and function roles from the graph.
package emit

import (
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Emitter generates bindings for one target language. Every operation may
// return a diag.UnsupportedConstruct error for constructs the target cannot
// express; the engine keeps going and reports them together.
type Emitter interface {
	Target() string
	Style() naming.Style

	Begin(ctx *Context) error
	// DeclareType runs for every emittable node before any definition.
	DeclareType(ctx *Context, id types.TypeID) error

	EmitPrimitive(ctx *Context, id types.TypeID) error
	EmitStruct(ctx *Context, id types.TypeID) error
	EmitEnum(ctx *Context, id types.TypeID) error
	EmitOpaque(ctx *Context, id types.TypeID) error
	EmitSlice(ctx *Context, id types.TypeID) error
	EmitOption(ctx *Context, id types.TypeID) error
	// EmitResult runs for result structs and, after EmitEnum, for error enums.
	EmitResult(ctx *Context, id types.TypeID) error
	EmitString(ctx *Context, id types.TypeID) error
	EmitCallback(ctx *Context, id types.TypeID) error

	EmitConstant(ctx *Context, index int) error
	// EmitFunction runs for functions that are not service members.
	EmitFunction(ctx *Context, index int) error
	EmitService(ctx *Context, index int) error

	Finish(ctx *Context) ([]File, error)
}

// File is one generated output file. Path is relative to the output
// directory.
type File struct {
	Path    string
	Content []byte
}

// Options are the per-target settings from the project manifest. Emitters
// fill in defaults for empty values.
type Options struct {
	// Library is the native library base name used to load it at runtime.
	Library string
	// Module names the output unit: python module, Go package, C header.
	Module string
	// Namespace and Class apply to C#.
	Namespace string
	Class     string
	// HeaderGuard overrides the C include guard.
	HeaderGuard string
}
