package pattern

import (
	"strings"

	"ffigen/internal/types"
)

var destroySuffixes = []string{"_destroy", "_drop", "_free", "_delete", "_dispose"}

// HasDestroySuffix reports whether a function name marks a release function.
func HasDestroySuffix(name string) bool {
	for _, s := range destroySuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

var (
	presenceNames = []string{"is_some", "present", "has_value"}
	presenceDocs  = []string{"present", "is_some", "discriminant"}
	asciiDocs     = []string{"nul-terminated", "nul terminated", "null-terminated", "null terminated", "c string", "c-string", "ascii"}
	successNames  = []string{"ok", "success"}
)

func docMentions(doc string, words []string) bool {
	if doc == "" {
		return false
	}
	lower := strings.ToLower(doc)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (c *classifier) prim(id types.TypeID) (types.Primitive, bool) {
	tt, ok := c.g.Lookup(id)
	if !ok || tt.Kind != types.KindPrimitive {
		return types.PrimInvalid, false
	}
	return tt.Prim, true
}

func (c *classifier) isPrim(id types.TypeID, p types.Primitive) bool {
	got, ok := c.prim(id)
	return ok && got == p
}

func (c *classifier) isInteger(id types.TypeID) bool {
	p, ok := c.prim(id)
	return ok && (p.IsInteger() || p == types.PrimBool)
}

func (c *classifier) isPointer(id types.TypeID) bool {
	return c.g.Kind(id) == types.KindPointer
}

// isBytePointer matches *u8 and *mut u8.
func (c *classifier) isBytePointer(id types.TypeID) bool {
	elem, _, ok := c.g.Pointee(id)
	return ok && c.isPrim(elem, types.PrimU8)
}

// errorCodes recognizes an error enum: the zero-valued variant is named
// Ok/Success or documented as success.
func errorCodes(e *types.EnumInfo) (types.ErrorCodes, bool) {
	zero, ok := e.VariantByValue(0)
	if !ok {
		return types.ErrorCodes{}, false
	}
	if !oneOf(strings.ToLower(zero.Name), successNames) && !docMentions(zero.Doc, []string{"success"}) {
		return types.ErrorCodes{}, false
	}
	codes := types.ErrorCodes{Success: 0}
	for _, v := range e.Variants {
		lower := strings.ToLower(v.Name)
		if !codes.HasPanic && strings.Contains(lower, "panic") {
			codes.Panic, codes.HasPanic = v.Value, true
		}
		if !codes.HasNull && strings.Contains(lower, "null") {
			codes.Null, codes.HasNull = v.Value, true
		}
	}
	return codes, true
}

type candidate struct {
	pattern types.Pattern
	reason  string
}

// resultStruct matches {T, E} where E is an error enum.
func (c *classifier) resultStruct(s *types.StructInfo) (candidate, bool) {
	if len(s.Fields) != 2 {
		return candidate{}, false
	}
	errEnum := s.Fields[1].Type
	codes, ok := c.errEnums[errEnum]
	if !ok {
		return candidate{}, false
	}
	return candidate{
		pattern: types.Pattern{Kind: types.PatternResult, Ok: s.Fields[0].Type, ErrorEnum: errEnum, Codes: codes},
		reason:  "fields {T, " + c.g.TypeString(errEnum) + "} end in an error enum",
	}, true
}

// option matches {T, u8} with a presence discriminant.
func (c *classifier) option(s *types.StructInfo) (candidate, bool) {
	if len(s.Fields) != 2 {
		return candidate{}, false
	}
	disc := s.Fields[1]
	p := types.Pattern{Kind: types.PatternOption, Inner: s.Fields[0].Type}
	if c.isPrim(disc.Type, types.PrimU8) &&
		(oneOf(disc.Name, presenceNames) || docMentions(disc.Doc, presenceDocs)) {
		return candidate{pattern: p, reason: "fields {T, u8 " + disc.Name + "} carry a presence flag"}, true
	}
	if s.Hint == "option" && c.isInteger(disc.Type) {
		return candidate{pattern: p, reason: "front-end hint option"}, true
	}
	return candidate{}, false
}

// slice matches {*T, u64}.
func (c *classifier) slice(s *types.StructInfo) (candidate, bool) {
	if len(s.Fields) != 2 {
		return candidate{}, false
	}
	elem, mut, ok := c.g.Pointee(s.Fields[0].Type)
	if !ok {
		return candidate{}, false
	}
	p := types.Pattern{Kind: types.PatternSlice, Elem: elem, Mutable: mut}
	if c.isPrim(s.Fields[1].Type, types.PrimU64) {
		return candidate{pattern: p, reason: "fields {*T, u64} form a slice"}, true
	}
	if s.Hint == "slice" && c.isInteger(s.Fields[1].Type) {
		return candidate{pattern: p, reason: "front-end hint slice"}, true
	}
	return candidate{}, false
}

// utf8String matches {*u8, u64 len, u64 capacity}. destroy is the paired
// release function, -1 when none exists.
func (c *classifier) utf8String(s *types.StructInfo, destroy int) (candidate, bool) {
	if len(s.Fields) != 3 || !c.isBytePointer(s.Fields[0].Type) {
		return candidate{}, false
	}
	p := types.Pattern{Kind: types.PatternUtf8String, Destroy: destroy}
	if c.isPrim(s.Fields[1].Type, types.PrimU64) && c.isPrim(s.Fields[2].Type, types.PrimU64) {
		return candidate{pattern: p, reason: "fields {*u8, u64, u64} form an owned string"}, true
	}
	if s.Hint == "string" && c.isInteger(s.Fields[1].Type) && c.isInteger(s.Fields[2].Type) {
		return candidate{pattern: p, reason: "front-end hint string"}, true
	}
	return candidate{}, false
}

// stringDestroy finds the function taking the string struct id (by value or
// pointer) as its sole parameter and named with a destroy suffix.
func (c *classifier) stringDestroy(id types.TypeID) int {
	for i, fn := range c.g.Functions() {
		if len(fn.Params) != 1 || !HasDestroySuffix(fn.Name) {
			continue
		}
		pt := fn.Params[0].Type
		if pt == id {
			return i
		}
		if elem, _, ok := c.g.Pointee(pt); ok && elem == id {
			return i
		}
	}
	return -1
}

// isAscii matches *u8 values documented as NUL-terminated.
func (c *classifier) isAscii(id types.TypeID, doc string) bool {
	return c.isBytePointer(id) && docMentions(doc, asciiDocs)
}
