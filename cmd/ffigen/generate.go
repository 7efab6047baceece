package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ffigen/internal/driver"
	"ffigen/internal/emit"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [ir]",
		Short: "Generate bindings for one or more targets",
		Long: `Generate reads an IR document (YAML, JSON or a .ffir snapshot), validates
it and writes bindings into <out>/<target>/. Targets run in parallel; if any
target fails nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGenerate,
	}
	pipelineFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "output directory (default: [output].dir, else ./bindings)")
	cmd.Flags().Int("jobs", 0, "max targets generated at once (0 = all)")
	cmd.Flags().Bool("dry-run", false, "list the files that would be written")
	cmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := in.config(cmd)
	if err != nil {
		return err
	}
	if cfg.Jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	warn := newWarnings(in.globals.maxDiagnostics)
	cfg.Reporter = warn.reporter()

	var res *driver.Result
	if !in.globals.quiet && shouldUseTUI(mode, cmd.OutOrStdout()) {
		res, err = runWithUI(cmd.Context(), "ffigen generate", cmd.OutOrStdout(), in.doc, cfg)
	} else {
		res, err = driver.Run(cmd.Context(), in.doc, cfg)
	}
	warn.print(cmd, in.globals)
	printTimings(cmd, cfg)
	if err != nil {
		return err
	}

	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = in.manifest.OutputDir()
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dryRun {
		for _, o := range res.Outputs {
			for _, f := range o.Files {
				fmt.Fprintf(out, "%s\t%d bytes\n", filepath.Join(outDir, o.Target, filepath.FromSlash(f.Path)), len(f.Content))
			}
		}
		return nil
	}
	paths, err := driver.Write(outDir, res.Outputs)
	if err != nil {
		return err
	}
	if !in.globals.quiet {
		fmt.Fprintf(out, "generated %d files for %s in %s\n", len(paths), targetList(res.Outputs), outDir)
	}
	return nil
}

func targetList(outs []*emit.Output) string {
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.Target
	}
	return strings.Join(names, ", ")
}
