package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ffigen/internal/driver"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [ir]",
		Short: "Check an IR document without generating bindings",
		Long: `Validate runs every pre-emission check: references, generics, pattern
classification, value cycles, layouts and identifier clashes for the
selected targets.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
	pipelineFlags(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := in.config(cmd)
	if err != nil {
		return err
	}
	warn := newWarnings(in.globals.maxDiagnostics)
	cfg.Reporter = warn.reporter()

	g, err := driver.Prepare(in.doc, cfg)
	warn.print(cmd, in.globals)
	printTimings(cmd, cfg)
	if err != nil {
		return err
	}
	if !in.globals.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d types, %d functions, %d services, %d constants)\n",
			in.path, g.Len()-1, len(g.Functions()), len(g.Services()), len(g.Constants()))
	}
	return nil
}
