package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ffigen/internal/apiguard"
	"ffigen/internal/driver"
	"ffigen/internal/layout"
	"ffigen/internal/types"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [ir]",
		Short: "Print the classified type graph",
		Long: `Inspect prints every emittable node with its pattern and native layout,
every function with its classified role, the recognized services and the
API guard hash.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInspect,
	}
	pipelineFlags(cmd)
	cmd.Flags().String("format", "table", "output format (table|yaml)")
	return cmd
}

type inspectReport struct {
	Library   string           `yaml:"library,omitempty"`
	Layout    string           `yaml:"layout"`
	APIGuard  string           `yaml:"api_guard"`
	Types     []inspectType    `yaml:"types"`
	Functions []inspectFunc    `yaml:"functions"`
	Services  []inspectService `yaml:"services,omitempty"`
}

type inspectType struct {
	ID      types.TypeID `yaml:"id"`
	Kind    string       `yaml:"kind"`
	Name    string       `yaml:"name"`
	Pattern string       `yaml:"pattern"`
	Size    *int         `yaml:"size,omitempty"`
	Align   *int         `yaml:"align,omitempty"`
}

type inspectFunc struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"`
	Service   string `yaml:"service,omitempty"`
	Signature string `yaml:"signature"`
	Checked   bool   `yaml:"checked,omitempty"`
}

type inspectService struct {
	Name       string   `yaml:"name"`
	Ctors      []string `yaml:"ctors"`
	Destructor string   `yaml:"destructor"`
	Methods    []string `yaml:"methods"`
	ErrorEnum  string   `yaml:"error_enum,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "table" && format != "yaml" {
		return fmt.Errorf("unsupported format %q (must be table or yaml)", format)
	}
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := in.config(cmd)
	if err != nil {
		return err
	}
	g, err := driver.Prepare(in.doc, cfg)
	if err != nil {
		return err
	}
	report := buildReport(g, cfg.Layout)
	report.Library = in.doc.Library

	out := cmd.OutOrStdout()
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
	writeReport(out, report)
	return nil
}

func buildReport(g *types.Graph, lt layout.Target) inspectReport {
	report := inspectReport{
		Layout:   lt.Triple,
		APIGuard: fmt.Sprintf("0x%016x", apiguard.Hash(g)),
	}
	eng := layout.New(lt, g)
	for _, id := range g.IDs() {
		if !g.Emittable(id) {
			continue
		}
		row := inspectType{
			ID:      id,
			Kind:    g.Kind(id).String(),
			Name:    g.TypeString(id),
			Pattern: g.Pattern(id).Kind.String(),
		}
		if g.Kind(id) != types.KindOpaque {
			if l, err := eng.LayoutOf(id); err == nil {
				row.Size, row.Align = &l.Size, &l.Align
			}
		}
		report.Types = append(report.Types, row)
	}

	fns := g.Functions()
	for i := range fns {
		fn := &fns[i]
		roles := g.FunctionRoles(i)
		row := inspectFunc{
			Name:      fn.Name,
			Role:      roles.Kind.String(),
			Signature: signature(g, fn),
			Checked:   roles.Checked,
		}
		if s, ok := g.Service(roles.Service); ok {
			row.Service = g.TypeString(s.Opaque)
		}
		report.Functions = append(report.Functions, row)
	}

	fnName := func(i int) string {
		if fn, ok := g.Function(i); ok {
			return fn.Name
		}
		return ""
	}
	for _, s := range g.Services() {
		row := inspectService{
			Name:       g.TypeString(s.Opaque),
			Destructor: fnName(s.Destructor),
		}
		for _, i := range s.Ctors {
			row.Ctors = append(row.Ctors, fnName(i))
		}
		for _, i := range s.Methods {
			row.Methods = append(row.Methods, fnName(i))
		}
		if s.ErrorEnum != types.NoTypeID {
			row.ErrorEnum = g.TypeString(s.ErrorEnum)
		}
		report.Services = append(report.Services, row)
	}
	return report
}

func signature(g *types.Graph, fn *types.Function) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name + ": " + g.TypeString(p.Type)
	}
	sig := "(" + strings.Join(params, ", ") + ")"
	if !g.IsVoid(fn.Ret) {
		sig += " -> " + g.TypeString(fn.Ret)
	}
	return sig
}

func writeReport(w io.Writer, r inspectReport) {
	fmt.Fprintf(w, "layout %s, api guard %s\n\n", r.Layout, r.APIGuard)

	nodes := table{header: []string{"ID", "KIND", "NAME", "PATTERN", "SIZE", "ALIGN"}}
	for _, t := range r.Types {
		nodes.add(strconv.FormatUint(uint64(t.ID), 10), t.Kind, t.Name, t.Pattern, optInt(t.Size), optInt(t.Align))
	}
	nodes.write(w)

	fmt.Fprintln(w)
	fns := table{header: []string{"FUNCTION", "ROLE", "SERVICE", "SIGNATURE"}}
	for _, f := range r.Functions {
		role := f.Role
		if f.Checked {
			role += "!"
		}
		fns.add(f.Name, role, dash(f.Service), f.Signature)
	}
	fns.write(w)

	if len(r.Services) == 0 {
		return
	}
	fmt.Fprintln(w)
	svcs := table{header: []string{"SERVICE", "CTORS", "DTOR", "METHODS", "ERRORS"}}
	for _, s := range r.Services {
		svcs.add(s.Name, strings.Join(s.Ctors, ", "), s.Destructor, strconv.Itoa(len(s.Methods)), dash(s.ErrorEnum))
	}
	svcs.write(w)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var headerColor = color.New(color.Bold)

// table aligns cells by display width.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) write(w io.Writer) {
	widths := make([]int, len(t.header))
	for _, row := range append([][]string{t.header}, t.rows...) {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	line := func(row []string, style *color.Color) {
		var b strings.Builder
		for i, c := range row {
			cell := c
			if i < len(row)-1 {
				cell = runewidth.FillRight(c, widths[i]+2)
			}
			if style != nil {
				cell = style.Sprint(cell)
			}
			b.WriteString(cell)
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
	line(t.header, headerColor)
	for _, row := range t.rows {
		line(row, nil)
	}
}
