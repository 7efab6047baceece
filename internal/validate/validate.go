// Package validate cross-checks a classified graph before emission and the
// structs every emitter wrote after emission. Every violation is fatal; all
// of them are collected into one diag.Bag so a run reports the full list.
package validate

import (
	"errors"
	"maps"
	"slices"

	"go.uber.org/zap"

	"ffigen/internal/diag"
	"ffigen/internal/layout"
	"ffigen/internal/logx"
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Options configures a validation run.
type Options struct {
	// Layout is the ABI used to recompute layouts; the zero value means
	// layout.Default().
	Layout layout.Target
	// Styles maps target ids to naming styles. Every style is checked for
	// identifier clashes; nil skips the naming checks.
	Styles map[string]naming.Style
	// Max caps the number of collected diagnostics.
	Max int
}

func (o Options) target() layout.Target {
	if o.Layout.Triple == "" {
		return layout.Default()
	}
	return o.Layout
}

type validator struct {
	g      *types.Graph
	opts   Options
	eng    *layout.LayoutEngine
	bag    *diag.Bag
	cyclic map[types.TypeID]bool
}

func newValidator(g *types.Graph, opts Options) *validator {
	return &validator{
		g:      g,
		opts:   opts,
		eng:    layout.New(opts.target(), g),
		bag:    diag.NewBag(opts.Max),
		cyclic: make(map[types.TypeID]bool),
	}
}

// Graph runs the pre-emission checks on a monomorphized, classified graph:
// dangling references, unresolved generics, pattern consistency, value
// cycles, representation and layout sanity, and identifier clashes for every
// style in opts.
func Graph(g *types.Graph, opts Options) error {
	if g == nil {
		return diag.NewErrorf(diag.InvalidIR, diag.NodeRef{}, "no type graph")
	}
	v := newValidator(g, opts)
	v.references()
	v.generics()
	v.patterns()
	v.cycles()
	v.layouts()
	v.names()
	v.bag.Sort()
	logx.L().Debug("validated graph",
		zap.Int("types", g.Len()-1),
		zap.Int("functions", len(g.Functions())),
		zap.Int("diagnostics", v.bag.Len()))
	return v.bag.Err()
}

// merge copies the diagnostics carried by err into the bag.
func (v *validator) merge(err error) {
	for _, d := range diag.Diagnostics(err) {
		v.bag.Add(d)
	}
}

// layoutError reports a layout failure under the code the layout engine
// assigned to it.
func (v *validator) layoutError(ref diag.NodeRef, target string, err error) {
	code := diag.LayoutMismatch
	var le *layout.LayoutError
	if errors.As(err, &le) {
		code = le.Code()
	}
	d := diag.NewError(code, ref, err.Error())
	if target != "" {
		d = d.WithTarget(target)
	}
	v.bag.Add(d)
}

func (v *validator) names() {
	if len(v.opts.Styles) == 0 {
		return
	}
	logical := naming.NewLogical(v.g)
	for _, target := range slices.Sorted(maps.Keys(v.opts.Styles)) {
		_, err := logical.Table(target, v.opts.Styles[target])
		v.merge(err)
	}
}
