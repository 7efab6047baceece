package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"ffigen/internal/diag"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	codeColor    = color.New(color.Faint)
	noteColor    = color.New(color.FgBlue)
)

// Pretty writes one line per diagnostic:
//
//	error GRF2001 [go] struct Foo (#3): message
//	  note: function foo_new: note text
func Pretty(w io.Writer, diags []diag.Diagnostic, opts PrettyOpts) {
	shown := diags
	if opts.Max > 0 && len(shown) > opts.Max {
		shown = shown[:opts.Max]
	}
	for _, d := range shown {
		var b strings.Builder
		b.WriteString(sprint(severityColor(d.Severity), opts.Color, d.Severity.String()))
		b.WriteByte(' ')
		b.WriteString(sprint(codeColor, opts.Color, d.Code.ID()))
		if d.Target != "" {
			fmt.Fprintf(&b, " [%s]", d.Target)
		}
		if ref := d.Node.String(); ref != "" {
			b.WriteByte(' ')
			b.WriteString(ref)
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(strings.Fields(d.Message), " "))
		fmt.Fprintln(w, b.String())
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			line := "  " + sprint(noteColor, opts.Color, "note:")
			if ref := n.Node.String(); ref != "" {
				line += " " + ref + ":"
			}
			fmt.Fprintln(w, line+" "+n.Msg)
		}
	}
	if rest := len(diags) - len(shown); rest > 0 {
		fmt.Fprintf(w, "... and %d more (raise --max-diagnostics to see them)\n", rest)
	}
}

// sprint colors s when on, independent of color.NoColor.
func sprint(c *color.Color, on bool, s string) string {
	if !on {
		return s
	}
	cc := *c
	cc.EnableColor()
	return cc.Sprint(s)
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}
