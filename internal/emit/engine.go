package emit

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ffigen/internal/apiguard"
	"ffigen/internal/depgraph"
	"ffigen/internal/diag"
	"ffigen/internal/layout"
	"ffigen/internal/logx"
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// Input is everything a target run needs. Graph must be monomorphized and
// classified; Logical must have been computed for the same graph.
type Input struct {
	Graph   *types.Graph
	Logical *naming.Logical
	Layout  layout.Target
	Options Options
}

// Output is the result of one target run.
type Output struct {
	Target   string
	Files    []File
	Manifest *Manifest
	Names    *naming.Table
}

// Generate runs e over the graph. Unsupported constructs do not stop the
// run; every error is collected and returned together, and no files are
// returned unless the run was clean.
func Generate(e Emitter, in Input) (*Output, error) {
	g := in.Graph
	if !g.Classified() {
		return nil, diag.NewErrorf(diag.NotClassified, diag.NodeRef{}, "graph has not been classified")
	}
	target := e.Target()
	names, err := in.Logical.Table(target, e.Style())
	if err != nil {
		return nil, err
	}

	guard := Guard{Function: -1}
	if i, ok := apiguard.Find(g); ok {
		guard = Guard{Function: i, Hash: apiguard.Hash(g)}
	}
	ctx := &Context{
		Target:   target,
		Graph:    g,
		Names:    names,
		Layout:   layout.New(in.Layout, g),
		Options:  in.Options,
		Guard:    guard,
		Manifest: &Manifest{Target: target},
	}
	r := &run{e: e, ctx: ctx, bag: diag.NewBag(0)}
	log := logx.L().With(zap.String("target", target))

	if r.check(e.Begin(ctx)) {
		return nil, r.bag.Err()
	}

	// declaration pass
	var emittable []types.TypeID
	for _, id := range g.IDs() {
		if g.Emittable(id) {
			emittable = append(emittable, id)
			r.check(e.DeclareType(ctx, id))
		}
	}

	reach := g.Reachable(g.Roots())
	for _, id := range g.IDs() {
		if g.Kind(id) == types.KindPrimitive && reach[id] {
			r.check(e.EmitPrimitive(ctx, id))
		}
	}

	// definition pass
	dg := depgraph.Build(g, g.Emittable)
	topo := depgraph.ToposortKahn(dg)
	if topo.Cyclic {
		for _, id := range topo.Cycles {
			r.bag.Add(diag.Errorf(diag.RecursiveValueType, types.NodeRef(g, id), "type is part of a value cycle"))
		}
		return nil, r.bag.Err()
	}
	for _, id := range topo.Order {
		r.define(id)
	}

	consts := g.Constants()
	for i := range consts {
		r.check(e.EmitConstant(ctx, i))
	}
	fns := g.Functions()
	free := 0
	for i := range fns {
		if g.FunctionRoles(i).Service >= 0 {
			continue
		}
		free++
		r.check(e.EmitFunction(ctx, i))
	}
	for i := range g.Services() {
		r.check(e.EmitService(ctx, i))
	}

	files, err := e.Finish(ctx)
	r.check(err)
	if r.bag.HasErrors() {
		r.bag.Sort()
		return nil, r.bag.Err()
	}
	log.Debug("emitted target",
		zap.Int("types", len(emittable)),
		zap.Int("functions", free),
		zap.Int("services", len(g.Services())),
		zap.Int("files", len(files)))
	return &Output{Target: target, Files: files, Manifest: ctx.Manifest, Names: names}, nil
}

type run struct {
	e   Emitter
	ctx *Context
	bag *diag.Bag
}

// define dispatches the definition of one node on its pattern.
func (r *run) define(id types.TypeID) {
	g, e, ctx := r.ctx.Graph, r.e, r.ctx
	p := g.Pattern(id)
	switch g.Kind(id) {
	case types.KindStruct:
		switch p.Kind {
		case types.PatternSlice:
			r.check(e.EmitSlice(ctx, id))
		case types.PatternOption:
			r.check(e.EmitOption(ctx, id))
		case types.PatternResult:
			r.check(e.EmitResult(ctx, id))
		case types.PatternUtf8String:
			r.check(e.EmitString(ctx, id))
		default:
			r.check(e.EmitStruct(ctx, id))
		}
	case types.KindEnum:
		r.check(e.EmitEnum(ctx, id))
		if p.Kind == types.PatternResult {
			r.check(e.EmitResult(ctx, id))
		}
	case types.KindOpaque:
		r.check(e.EmitOpaque(ctx, id))
	case types.KindFnPointer:
		r.check(e.EmitCallback(ctx, id))
	}
}

// check records err and reports whether there was one.
func (r *run) check(err error) bool {
	if err == nil {
		return false
	}
	var de *diag.Error
	if errors.As(err, &de) {
		d := de.Diagnostic()
		if d.Target == "" {
			d.Target = r.ctx.Target
		}
		r.bag.Add(d)
		return true
	}
	var many *diag.Errors
	if errors.As(err, &many) {
		for _, d := range many.Items {
			r.bag.Add(d)
		}
		return true
	}
	r.bag.Add(diag.NewError(diag.EmitFailed, diag.NodeRef{}, fmt.Sprintf("%s: %v", r.ctx.Target, err)).WithTarget(r.ctx.Target))
	return true
}
