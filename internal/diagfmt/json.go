package diagfmt

import (
	"encoding/json"
	"io"

	"ffigen/internal/diag"
)

// NodeJSON is the IR node a diagnostic points at.
type NodeJSON struct {
	Kind string `json:"kind,omitempty"`
	ID   uint32 `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type NoteJSON struct {
	Message string    `json:"message"`
	Node    *NodeJSON `json:"node,omitempty"`
}

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Target   string     `json:"target,omitempty"`
	Node     *NodeJSON  `json:"node,omitempty"`
	Notes    []NoteJSON `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of JSON output. Count includes entries cut
// by JSONOpts.Max.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeNode(n diag.NodeRef) *NodeJSON {
	if n.IsZero() {
		return nil
	}
	return &NodeJSON{Kind: n.Kind, ID: n.ID, Name: n.Name}
}

// BuildDiagnosticsOutput converts diagnostics without writing them.
func BuildDiagnosticsOutput(diags []diag.Diagnostic, opts JSONOpts) DiagnosticsOutput {
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, len(diags)), Count: len(diags)}
	for i, d := range diags {
		if opts.Max > 0 && i >= opts.Max {
			break
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Target:   d.Target,
			Node:     makeNode(d.Node),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Node: makeNode(n.Node)})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	return out
}

// JSON writes diagnostics as an indented JSON document.
func JSON(w io.Writer, diags []diag.Diagnostic, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(diags, opts))
}
