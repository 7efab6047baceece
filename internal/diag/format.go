package diag

import (
	"strings"
)

// FormatShort renders diagnostics one line per entry:
//
//	error GRF2001 [go] struct Foo (#3): message
//	note GRF2001 function foo_new: note text
//
// Newlines inside messages are folded into spaces. Output keeps the input
// order; call Bag.Sort first for a canonical order.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, formatLine(d.Severity.String(), d.Code, d.Target, d.Node, d.Message))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			lines = append(lines, formatLine("note", d.Code, d.Target, n.Node, n.Msg))
		}
	}
	return strings.Join(lines, "\n")
}

func formatLine(sev string, code Code, target string, node NodeRef, msg string) string {
	var b strings.Builder
	b.WriteString(sev)
	b.WriteByte(' ')
	b.WriteString(code.ID())
	if target != "" {
		b.WriteString(" [")
		b.WriteString(target)
		b.WriteByte(']')
	}
	if ref := node.String(); ref != "" {
		b.WriteByte(' ')
		b.WriteString(ref)
	}
	b.WriteString(": ")
	b.WriteString(strings.Join(strings.Fields(msg), " "))
	return b.String()
}
