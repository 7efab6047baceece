package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// IR document decoding
	IRInfo            Code = 1000
	InvalidIR         Code = 1001
	IRBadTypeExpr     Code = 1002
	IRBadLiteral      Code = 1003
	IRSnapshotVersion Code = 1004

	// Type graph construction
	GraphInfo          Code = 2000
	UnresolvedType     Code = 2001
	DuplicateSymbol    Code = 2002
	RecursiveValueType Code = 2003
	UnresolvedGeneric  Code = 2004
	GenericArity       Code = 2005
	NotGeneric         Code = 2006
	KindMismatch       Code = 2007

	// Pattern classification
	PatternInfo         Code = 3000
	AmbiguousPattern    Code = 3001
	NotClassified       Code = 3002
	StringDestroyAbsent Code = 3003

	// Emission
	EmitInfo             Code = 4000
	UnsupportedConstruct Code = 4001
	UnknownTarget        Code = 4002
	EmitFailed           Code = 4003
	InvalidIdentifier    Code = 4004

	// Layout
	LayoutInfo         Code = 5000
	LayoutMismatch     Code = 5001
	InvalidRepr        Code = 5002
	UnsizedValue       Code = 5003
	FieldOrderMismatch Code = 5004

	// Project and files
	ProjectInfo         Code = 6000
	ProjectManifest     Code = 6001
	ProjectIO           Code = 6002
	ProjectMissingInput Code = 6003
)

var (
	codeDescription = map[Code]string{
		UnknownCode:          "Unknown error",
		IRInfo:               "IR information",
		InvalidIR:            "Invalid IR document",
		IRBadTypeExpr:        "Malformed type expression",
		IRBadLiteral:         "Constant literal does not fit its type",
		IRSnapshotVersion:    "Unsupported IR snapshot version",
		GraphInfo:            "Type graph information",
		UnresolvedType:       "Unresolved type",
		DuplicateSymbol:      "Duplicate symbol",
		RecursiveValueType:   "Type contains itself by value",
		UnresolvedGeneric:    "Unresolved generic type",
		GenericArity:         "Wrong number of type arguments",
		NotGeneric:           "Type arguments applied to a non-generic type",
		KindMismatch:         "Name declared with a different kind",
		PatternInfo:          "Pattern information",
		AmbiguousPattern:     "Ambiguous pattern",
		NotClassified:        "Graph was not classified",
		StringDestroyAbsent:  "Owned string without a destroy function",
		EmitInfo:             "Emission information",
		UnsupportedConstruct: "Unsupported construct for target",
		UnknownTarget:        "Unknown target",
		EmitFailed:           "Emission failed",
		InvalidIdentifier:    "Identifier cannot be spelled in target",
		LayoutInfo:           "Layout information",
		LayoutMismatch:       "Layout mismatch",
		InvalidRepr:          "Invalid representation",
		UnsizedValue:         "Unsized type used by value",
		FieldOrderMismatch:   "Emitted field order differs from the IR",
		ProjectInfo:          "Project information",
		ProjectManifest:      "Invalid ffigen.toml",
		ProjectIO:            "File system error",
		ProjectMissingInput:  "No IR input given",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("GRF%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("PAT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("EMT%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
