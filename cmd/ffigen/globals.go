package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ffigen/internal/diagfmt"
	"ffigen/internal/logx"
)

type colorMode string

const (
	colorAuto colorMode = "auto"
	colorOn   colorMode = "on"
	colorOff  colorMode = "off"
)

func readColorMode(value string) (colorMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return colorAuto, nil
	case "on":
		return colorOn, nil
	case "off":
		return colorOff, nil
	default:
		return "", fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

func useColor(mode colorMode) bool {
	switch mode {
	case colorOn:
		return true
	case colorOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	color          colorMode
	quiet          bool
	timings        bool
	verbose        bool
	maxDiagnostics int
	diagFormat     diagfmt.Format
	manifest       string
}

func readGlobals(cmd *cobra.Command) (globalOptions, error) {
	pf := cmd.Root().PersistentFlags()
	var opts globalOptions
	colorFlag, err := pf.GetString("color")
	if err != nil {
		return opts, err
	}
	if opts.color, err = readColorMode(colorFlag); err != nil {
		return opts, err
	}
	if opts.quiet, err = pf.GetBool("quiet"); err != nil {
		return opts, err
	}
	if opts.timings, err = pf.GetBool("timings"); err != nil {
		return opts, err
	}
	if opts.verbose, err = pf.GetBool("verbose"); err != nil {
		return opts, err
	}
	if opts.maxDiagnostics, err = pf.GetInt("max-diagnostics"); err != nil {
		return opts, err
	}
	if opts.maxDiagnostics < 0 {
		return opts, fmt.Errorf("--max-diagnostics must not be negative")
	}
	format, err := pf.GetString("diagnostics-format")
	if err != nil {
		return opts, err
	}
	if opts.diagFormat, err = diagfmt.ParseFormat(format); err != nil {
		return opts, err
	}
	if opts.manifest, err = pf.GetString("manifest"); err != nil {
		return opts, err
	}
	return opts, nil
}

func setupGlobals(cmd *cobra.Command, _ []string) error {
	opts, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	color.NoColor = !useColor(opts.color)
	logx.Initialize(opts.verbose)
	return nil
}
