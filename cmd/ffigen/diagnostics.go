package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ffigen/internal/diag"
	"ffigen/internal/diagfmt"
)

// printError writes err to the command's stderr: diagnostics in the
// selected format, anything else as a plain error message.
func printError(root *cobra.Command, err error) {
	pf := root.PersistentFlags()
	limit, _ := pf.GetInt("max-diagnostics")
	name, _ := pf.GetString("diagnostics-format")
	format, ferr := diagfmt.ParseFormat(name)
	if ferr != nil {
		format = diagfmt.FormatPretty
	}
	w := root.ErrOrStderr()
	if !isDiagnostic(err) {
		if format == diagfmt.FormatJSON {
			err = diag.NewErrorf(diag.UnknownCode, diag.NodeRef{}, "%v", err)
		} else {
			fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
			return
		}
	}
	printDiagnostics(w, diag.Diagnostics(err), format, limit)
}

func isDiagnostic(err error) bool {
	var one *diag.Error
	var many *diag.Errors
	return errors.As(err, &one) || errors.As(err, &many)
}

// printDiagnostics renders at most limit diagnostics; 0 means all.
func printDiagnostics(w io.Writer, diags []diag.Diagnostic, format diagfmt.Format, limit int) {
	if format == diagfmt.FormatJSON {
		_ = diagfmt.JSON(w, diags, diagfmt.JSONOpts{IncludeNotes: true, Max: limit})
		return
	}
	diagfmt.Pretty(w, diags, diagfmt.PrettyOpts{Color: !color.NoColor, ShowNotes: true, Max: limit})
}
