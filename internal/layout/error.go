package layout

import (
	"fmt"
	"strings"

	"ffigen/internal/diag"
	"ffigen/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a type that contains itself by value.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrUnsized is a by-value use of void, an opaque type, a generic
	// family or an unresolved generic.
	LayoutErrUnsized
	// LayoutErrTransparent is a transparent struct without exactly one
	// non-zero-sized field.
	LayoutErrTransparent
	// LayoutErrPackAlign is a packed struct whose packing is not a power of two.
	LayoutErrPackAlign
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Name  string
	Cycle []string // type names, for LayoutErrRecursiveUnsized
	Value int      // offending field count or packing
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (%s)", e.Name)
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrUnsized:
		return fmt.Sprintf("%s has no size and cannot be used by value", e.Name)
	case LayoutErrTransparent:
		return fmt.Sprintf("transparent struct %s must have exactly one non-zero-sized field, has %d", e.Name, e.Value)
	case LayoutErrPackAlign:
		return fmt.Sprintf("packed struct %s: packing %d is not a power of two", e.Name, e.Value)
	default:
		return fmt.Sprintf("layout error kind=%d %s", e.Kind, e.Name)
	}
}

// Code maps the error onto the diagnostic taxonomy.
func (e *LayoutError) Code() diag.Code {
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		return diag.RecursiveValueType
	case LayoutErrUnsized:
		return diag.UnsizedValue
	case LayoutErrTransparent, LayoutErrPackAlign:
		return diag.InvalidRepr
	}
	return diag.LayoutMismatch
}
