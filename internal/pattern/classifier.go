// Package pattern recognizes the higher-level idioms layered over raw IR
// nodes: slices, options, results, owned strings, services and callbacks.
//
// Every predicate is evaluated for every node. A node matching more than one
// predicate is reported as AmbiguousPattern; the fixed priority order
// Service > Result > Option > Slice > String only decides which match the
// report names first. Results are attached to the graph once with
// Graph.Annotate and never recomputed.
package pattern

import (
	"strings"

	"go.uber.org/zap"

	"ffigen/internal/diag"
	"ffigen/internal/logx"
	"ffigen/internal/types"
)

type classifier struct {
	g        *types.Graph
	bag      *diag.Bag
	rep      diag.Reporter
	patterns []types.Pattern
	roles    []types.FunctionRoles
	services []types.ServiceInfo
	errEnums map[types.TypeID]types.ErrorCodes
}

// Classify annotates g. Errors are returned aggregated; warnings are
// forwarded to r when it is non-nil.
func Classify(g *types.Graph, r diag.Reporter) error {
	c := &classifier{
		g:        g,
		bag:      diag.NewBag(0),
		patterns: make([]types.Pattern, g.Len()),
		roles:    make([]types.FunctionRoles, len(g.Functions())),
		errEnums: make(map[types.TypeID]types.ErrorCodes),
	}
	c.rep = diag.NewDedupReporter(diag.BagReporter{Bag: c.bag})
	for i := range c.roles {
		c.roles[i].Service = -1
	}

	c.classifyEnums()
	c.classifyServices()
	c.classifyStructs()
	c.classifyCallbacks()
	fns := g.Functions()
	for i := range fns {
		c.assignRoles(i, &fns[i])
	}

	c.bag.Sort()
	if r != nil {
		for _, d := range c.bag.Items() {
			if d.Severity < diag.SevError {
				r.Report(d)
			}
		}
	}
	if err := c.bag.Err(); err != nil {
		return err
	}
	logx.L().Debug("classified graph",
		zap.Int("services", len(c.services)),
		zap.Int("error_enums", len(c.errEnums)),
		zap.Int("functions", len(fns)))
	return g.Annotate(types.Annotation{Patterns: c.patterns, Roles: c.roles, Services: c.services})
}

func (c *classifier) classifyEnums() {
	for _, id := range c.g.IDs() {
		e, ok := c.g.Enum(id)
		if !ok {
			continue
		}
		codes, ok := errorCodes(e)
		if !ok {
			continue
		}
		c.errEnums[id] = codes
		c.patterns[id] = types.Pattern{Kind: types.PatternResult, Ok: types.NoTypeID, ErrorEnum: id, Codes: codes}
	}
}

func (c *classifier) classifyStructs() {
	for _, id := range c.g.IDs() {
		s, ok := c.g.Struct(id)
		if !ok || !c.g.Emittable(id) {
			continue
		}
		// candidates are collected in priority order
		var cands []candidate
		if m, ok := c.resultStruct(s); ok {
			cands = append(cands, m)
		}
		if m, ok := c.option(s); ok {
			cands = append(cands, m)
		}
		if m, ok := c.slice(s); ok {
			cands = append(cands, m)
		}
		destroy := c.stringDestroy(id)
		if m, ok := c.utf8String(s, destroy); ok {
			if destroy >= 0 {
				cands = append(cands, m)
				if c.roles[destroy].Service < 0 {
					c.roles[destroy].Kind = types.FnStringDestroy
				}
			} else {
				diag.ReportWarning(c.rep, diag.StringDestroyAbsent, types.NodeRef(c.g, id),
					"struct has the owned string layout but no destroy function; treated as a plain struct").
					Emit()
			}
		}
		c.resolve(id, cands)
	}
}

func (c *classifier) resolve(id types.TypeID, cands []candidate) {
	switch len(cands) {
	case 0:
		return
	case 1:
		c.patterns[id] = cands[0].pattern
		return
	}
	kinds := make([]string, len(cands))
	for i, m := range cands {
		kinds[i] = m.pattern.Kind.String()
	}
	node := types.NodeRef(c.g, id)
	b := diag.ReportError(c.rep, diag.AmbiguousPattern, node,
		"matches more than one pattern: "+strings.Join(kinds, ", "))
	for _, m := range cands {
		b.WithNote(node, m.pattern.Kind.String()+": "+m.reason)
	}
	b.Emit()
	c.patterns[id] = cands[0].pattern
}

func (c *classifier) classifyCallbacks() {
	for _, id := range c.g.IDs() {
		if c.g.Kind(id) != types.KindFnPointer || !c.g.Emittable(id) {
			continue
		}
		c.patterns[id] = types.Pattern{Kind: types.PatternCallback, Signature: id, Context: c.carriesContext(id)}
	}
}
