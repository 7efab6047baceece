package driver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ffigen/internal/diag"
	"ffigen/internal/emit"
	"ffigen/internal/logx"
	"ffigen/internal/naming"
	"ffigen/internal/types"
	"ffigen/internal/validate"
)

// Generate runs every configured target over g in parallel. g must come
// from Prepare and is only read. A target failure does not cancel the
// others, so one run reports the diagnostics of every target; no output is
// returned unless all targets succeeded and every emitted struct matched
// its IR layout.
func Generate(ctx context.Context, g *types.Graph, cfg Config) ([]*emit.Output, error) {
	es, err := cfg.emitters()
	if err != nil {
		return nil, err
	}
	logical := naming.NewLogical(g)
	lt := cfg.layout()
	outs := make([]*emit.Output, len(es))
	errs := make([]error, len(es))

	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = len(es)
	}
	for _, e := range es {
		cfg.report(Event{Target: e.Target(), Stage: StageEmit, Status: StatusQueued})
	}
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(max(1, min(jobs, len(es))))
	for i, e := range es {
		grp.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			target := e.Target()
			start := time.Now()
			stage := StageEmit
			errs[i] = cfg.Timer.Time("emit "+target, func() error {
				cfg.report(Event{Target: target, Stage: StageEmit, Status: StatusWorking})
				out, err := emit.Generate(e, emit.Input{
					Graph:   g,
					Logical: logical,
					Layout:  lt,
					Options: cfg.Options[target],
				})
				if err != nil {
					return err
				}
				stage = StageCheck
				cfg.report(Event{Target: target, Stage: StageCheck, Status: StatusWorking})
				if err := validate.Manifest(g, validate.Options{Layout: lt, Max: cfg.MaxDiagnostics}, out.Manifest); err != nil {
					return err
				}
				outs[i] = out
				return nil
			})
			evt := Event{Target: target, Stage: stage, Status: StatusDone, Elapsed: time.Since(start)}
			if errs[i] != nil {
				evt.Status, evt.Err = StatusError, errs[i]
			}
			cfg.report(evt)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	bag := diag.NewBag(cfg.MaxDiagnostics)
	for i, err := range errs {
		if err == nil {
			continue
		}
		target := es[i].Target()
		for _, d := range diag.Diagnostics(err) {
			if d.Target == "" {
				d = d.WithTarget(target)
			}
			bag.Add(d)
		}
	}
	if bag.Len() > 0 {
		bag.Sort()
		return nil, bag.Err()
	}
	for _, out := range outs {
		logx.L().Debug("generated target",
			zap.String("target", out.Target),
			zap.Int("files", len(out.Files)),
			zap.Int("structs", len(out.Manifest.Structs)))
	}
	return outs, nil
}
