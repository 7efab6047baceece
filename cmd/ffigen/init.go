package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ffigen/internal/project"
)

const starterIR = "api.yaml"

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path|name]",
		Short: "Initialize a new ffigen project",
		Long: `Initialize a new ffigen project by creating a project manifest (ffigen.toml)
and a starter IR document (api.yaml). If [path|name] is omitted, initializes
the current directory. If a non-existing name is provided, a directory will be
created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

// runInit writes ffigen.toml and, unless one exists, a starter api.yaml into
// the target directory. It refuses to touch an initialized project.
func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) > 0 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "ffigen-project"
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(project.Template(name, starterIR)), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	irPath := filepath.Join(target, starterIR)
	createdIR := false
	if _, err := os.Stat(irPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(irPath, []byte(defaultIR(name)), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", starterIR, err)
		}
		createdIR = true
	}

	rel := target
	if r, err := filepath.Rel(wd, target); err == nil {
		rel = r
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized ffigen project in %s\n", rel)
	fmt.Fprintf(out, "  - %s\n", project.ManifestName)
	if createdIR {
		fmt.Fprintf(out, "  - %s\n", starterIR)
	} else {
		fmt.Fprintf(out, "  - %s (existing)\n", starterIR)
	}
	return nil
}

// defaultIR returns a small library surface with a struct, an error enum,
// a slice parameter and a service.
func defaultIR(name string) string {
	return fmt.Sprintf(`# Interface of the native library. Run `+"`ffigen generate`"+` after editing.
version: 1
library: %q

types:
  - kind: struct
    name: Point
    doc: A point in the plane.
    fields:
      - {name: x, type: f64}
      - {name: y, type: f64}
  - kind: struct
    name: Slice
    generics: [T]
    fields:
      - {name: data, type: "*T"}
      - {name: len, type: u64}
  - kind: enum
    name: Status
    base: i32
    variants:
      - {name: Ok, value: 0}
      - {name: Fail, value: 1}
  - kind: opaque
    name: Canvas
    doc: Owns a list of points.

functions:
  - name: canvas_new
    doc: Creates an empty canvas.
    params:
      - {name: out, type: "*mut *mut Canvas"}
    ret: Status
  - name: canvas_destroy
    params:
      - {name: canvas, type: "*mut *mut Canvas"}
    ret: Status
  - name: canvas_add
    params:
      - {name: canvas, type: "*mut Canvas"}
      - {name: p, type: Point}
    ret: Status
  - name: canvas_count
    params:
      - {name: canvas, type: "*Canvas"}
    ret: u32
  - name: centroid
    params:
      - {name: points, type: "Slice<Point>"}
    ret: Point
  - name: api_guard
    ret: u64

constants:
  - {name: MAX_POINTS, type: u32, value: "1024"}
`, name)
}
