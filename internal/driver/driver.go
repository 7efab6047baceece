// Package driver runs the generation pipeline: IR document to type graph,
// monomorphization, classification, validation, then every requested
// target in parallel over the frozen graph.
package driver

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"ffigen/internal/backend/targets"
	"ffigen/internal/diag"
	"ffigen/internal/emit"
	"ffigen/internal/irfile"
	"ffigen/internal/layout"
	"ffigen/internal/logx"
	"ffigen/internal/mono"
	"ffigen/internal/naming"
	"ffigen/internal/observ"
	"ffigen/internal/pattern"
	"ffigen/internal/types"
	"ffigen/internal/validate"
)

// Config selects what a run generates.
type Config struct {
	// Targets lists target ids; empty means every registered target.
	Targets []string
	// Layout is the ABI; the zero value means layout.Default().
	Layout layout.Target
	// Options holds per-target emitter options keyed by target id.
	Options map[string]emit.Options
	// Registry resolves target ids; nil means targets.Default().
	Registry *emit.Registry
	// MaxDiagnostics caps each diagnostic bag; 0 keeps everything.
	MaxDiagnostics int
	// Jobs bounds parallel targets; 0 means one per target.
	Jobs int
	// Timer receives stage timings; nil disables them.
	Timer *observ.Timer
	// Reporter receives classifier warnings; nil drops them.
	Reporter diag.Reporter
	// Progress receives per-target events from Generate; nil drops them.
	Progress ProgressSink
}

func (c *Config) registry() *emit.Registry {
	if c.Registry == nil {
		c.Registry = targets.Default()
	}
	return c.Registry
}

func (c *Config) layout() layout.Target {
	if c.Layout.Triple == "" {
		return layout.Default()
	}
	return c.Layout
}

// targets returns the requested ids in order without duplicates.
func (c *Config) targets() []string {
	if len(c.Targets) == 0 {
		return c.registry().Targets()
	}
	out := make([]string, 0, len(c.Targets))
	for _, t := range c.Targets {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// TargetIDs returns the target ids a run generates, in order.
func (c Config) TargetIDs() []string {
	return c.targets()
}

// emitters instantiates one emitter per target. Every unknown id is
// reported, not just the first.
func (c *Config) emitters() ([]emit.Emitter, error) {
	reg := c.registry()
	bag := diag.NewBag(c.MaxDiagnostics)
	var out []emit.Emitter
	for _, t := range c.targets() {
		e, err := reg.New(t)
		if err != nil {
			for _, d := range diag.Diagnostics(err) {
				bag.Add(d)
			}
			continue
		}
		out = append(out, e)
	}
	if err := bag.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Styles returns the naming style of every configured target.
func (c *Config) Styles() (map[string]naming.Style, error) {
	es, err := c.emitters()
	if err != nil {
		return nil, err
	}
	out := make(map[string]naming.Style, len(es))
	for _, e := range es {
		out[e.Target()] = e.Style()
	}
	return out, nil
}

// Result is a finished generation run. Outputs follow the order of the
// configured targets.
type Result struct {
	Graph   *types.Graph
	Outputs []*emit.Output
}

// Prepare turns doc into a monomorphized, classified and validated graph.
// Naming checks run for every configured target.
func Prepare(doc *irfile.Document, cfg Config) (*types.Graph, error) {
	styles, err := cfg.Styles()
	if err != nil {
		return nil, err
	}
	t := cfg.Timer
	var g *types.Graph
	if err := t.Time("build graph", func() (err error) {
		g, err = doc.Graph()
		return err
	}); err != nil {
		return nil, err
	}
	var res *mono.Result
	if err := t.Time("monomorphize", func() (err error) {
		res, err = mono.Monomorphize(g)
		return err
	}); err != nil {
		return nil, err
	}
	g = res.Graph
	if err := t.Time("classify", func() error {
		return pattern.Classify(g, cfg.Reporter)
	}); err != nil {
		return nil, err
	}
	if err := t.Time("validate", func() error {
		return validate.Graph(g, validate.Options{Layout: cfg.layout(), Styles: styles, Max: cfg.MaxDiagnostics})
	}); err != nil {
		return nil, err
	}
	logx.L().Debug("prepared graph",
		zap.String("library", doc.Library),
		zap.Int("types", g.Len()-1),
		zap.Int("instances", res.Instances.Len()),
		zap.Int("functions", len(g.Functions())))
	return g, nil
}

// withLibrary fills empty library names of the configured targets with the
// document's library.
func (c *Config) withLibrary(lib string) {
	if lib == "" {
		return
	}
	opts := make(map[string]emit.Options, len(c.Options))
	for _, t := range c.targets() {
		o := c.Options[t]
		if o.Library == "" {
			o.Library = lib
		}
		opts[t] = o
	}
	c.Options = opts
}

// Run prepares doc and generates every configured target. Targets without
// a library name use the document's.
func Run(ctx context.Context, doc *irfile.Document, cfg Config) (*Result, error) {
	cfg.registry()
	cfg.withLibrary(doc.Library)
	g, err := Prepare(doc, cfg)
	if err != nil {
		return nil, err
	}
	outs, err := Generate(ctx, g, cfg)
	if err != nil {
		return nil, err
	}
	return &Result{Graph: g, Outputs: outs}, nil
}
