// Package diagfmt renders diagnostics for terminals and machines.
package diagfmt

import "fmt"

// Format selects a renderer.
type Format uint8

const (
	FormatPretty Format = iota
	FormatJSON
)

// ParseFormat accepts "pretty" and "json".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("unsupported diagnostics format %q (must be pretty or json)", s)
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	// Max caps the printed entries; 0 prints everything.
	Max int
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludeNotes bool
	// Max truncates the output, not the bag.
	Max int
}
