package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ffigen/internal/diag"
	"ffigen/internal/driver"
	"ffigen/internal/emit"
	"ffigen/internal/irfile"
	"ffigen/internal/layout"
	"ffigen/internal/observ"
	"ffigen/internal/project"
)

// input is a loaded IR document and the manifest it was found through.
type input struct {
	path     string
	doc      *irfile.Document
	manifest *project.Manifest
	globals  globalOptions
}

// loadManifest reads --manifest, else the manifest nearest to the IR
// document named on the command line, else the one above the working
// directory.
func loadManifest(globals globalOptions, args []string) (*project.Manifest, error) {
	if globals.manifest == "" {
		ir := ""
		if len(args) > 0 {
			ir = args[0]
		}
		m, _, err := project.LoadFor(ir, ".")
		return m, err
	}
	path, err := filepath.Abs(globals.manifest)
	if err != nil {
		return nil, err
	}
	cfg, err := project.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &project.Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// loadInput reads the IR named by args[0], or by [project].ir when no
// argument is given.
func loadInput(cmd *cobra.Command, args []string) (*input, error) {
	globals, err := readGlobals(cmd)
	if err != nil {
		return nil, err
	}
	m, err := loadManifest(globals, args)
	if err != nil {
		return nil, err
	}
	path := m.IRPath()
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, diag.NewErrorf(diag.ProjectMissingInput, diag.NodeRef{},
			"no IR document given; pass a path or set [project].ir in %s", project.ManifestName)
	}
	doc, err := irfile.Load(path)
	if err != nil {
		return nil, err
	}
	return &input{path: path, doc: doc, manifest: m, globals: globals}, nil
}

// pipelineFlags registers the flags shared by commands that run the
// pipeline.
func pipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("target", "t", nil, "target languages (default: [output].targets, else all)")
	cmd.Flags().String("layout", "", fmt.Sprintf("ABI target triple (%v)", layout.Triples()))
}

// config builds the pipeline configuration; flags override the manifest.
func (in *input) config(cmd *cobra.Command) (driver.Config, error) {
	cfg := driver.Config{
		Targets:        in.manifest.Targets(),
		Options:        in.manifest.Options(),
		MaxDiagnostics: in.globals.maxDiagnostics,
	}
	if cfg.Options == nil {
		cfg.Options = map[string]emit.Options{}
	}
	if in.globals.timings {
		cfg.Timer = observ.NewTimer()
	}
	if cmd.Flags().Changed("target") {
		ts, err := cmd.Flags().GetStringSlice("target")
		if err != nil {
			return cfg, err
		}
		cfg.Targets = ts
	}
	triple := ""
	if in.manifest != nil {
		triple = in.manifest.Config.Project.Layout
	}
	if cmd.Flags().Changed("layout") {
		var err error
		if triple, err = cmd.Flags().GetString("layout"); err != nil {
			return cfg, err
		}
	}
	lt, err := layout.ByTriple(triple)
	if err != nil {
		return cfg, err
	}
	cfg.Layout = lt
	return cfg, nil
}

// warnings collects classifier warnings for printing after a run.
type warnings struct{ bag *diag.Bag }

func newWarnings(limit int) *warnings { return &warnings{bag: diag.NewBag(limit)} }

func (w *warnings) reporter() diag.Reporter { return diag.BagReporter{Bag: w.bag} }

func (w *warnings) print(cmd *cobra.Command, globals globalOptions) {
	if globals.quiet || w.bag.Len() == 0 {
		return
	}
	w.bag.Sort()
	printDiagnostics(cmd.ErrOrStderr(), w.bag.Items(), globals.diagFormat, globals.maxDiagnostics)
}

func printTimings(cmd *cobra.Command, cfg driver.Config) {
	if cfg.Timer == nil {
		return
	}
	fmt.Fprint(cmd.ErrOrStderr(), cfg.Timer.Summary())
}
