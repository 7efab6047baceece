package testkit

import (
	"fmt"

	"ffigen/internal/types"
)

// CheckAnnotations runs a minimal set of invariants on a classified graph:
// 1) every pattern references nodes of the right kind
// 2) every service lists valid function indexes and exactly one destructor
// 3) function roles cover every parameter and agree with service membership
func CheckAnnotations(g *types.Graph) error {
	if g == nil {
		return fmt.Errorf("nil graph")
	}
	if !g.Classified() {
		return fmt.Errorf("graph is not classified")
	}

	// 1) pattern payloads
	for _, id := range g.IDs() {
		p := g.Pattern(id)
		switch p.Kind {
		case types.PatternSlice:
			if _, ok := g.Lookup(p.Elem); !ok {
				return fmt.Errorf("slice %s: dangling element %d", g.TypeString(id), p.Elem)
			}
		case types.PatternOption:
			if _, ok := g.Lookup(p.Inner); !ok {
				return fmt.Errorf("option %s: dangling payload %d", g.TypeString(id), p.Inner)
			}
		case types.PatternResult:
			if g.Kind(p.ErrorEnum) != types.KindEnum {
				return fmt.Errorf("result %s: error type is %s", g.TypeString(id), g.Kind(p.ErrorEnum))
			}
		case types.PatternService:
			svc, ok := g.Service(p.Service)
			if !ok || svc.Opaque != id {
				return fmt.Errorf("service %s: bad service index %d", g.TypeString(id), p.Service)
			}
		case types.PatternCallback:
			if g.Kind(p.Signature) != types.KindFnPointer {
				return fmt.Errorf("callback %s: signature is %s", g.TypeString(id), g.Kind(p.Signature))
			}
		}
	}

	// 2) services
	fns := g.Functions()
	for i, svc := range g.Services() {
		if g.Kind(svc.Opaque) != types.KindOpaque {
			return fmt.Errorf("service %d: %s is not opaque", i, g.TypeString(svc.Opaque))
		}
		if len(svc.Ctors) == 0 {
			return fmt.Errorf("service %d: no constructors", i)
		}
		members := append(append([]int{svc.Destructor}, svc.Ctors...), svc.Methods...)
		for _, f := range members {
			if f < 0 || f >= len(fns) {
				return fmt.Errorf("service %d: function index %d out of range", i, f)
			}
			if r := g.FunctionRoles(f); r.Service != i {
				return fmt.Errorf("function %s: service %d, want %d", fns[f].Name, r.Service, i)
			}
		}
		if g.FunctionRoles(svc.Destructor).Kind != types.FnDtor {
			return fmt.Errorf("service %d: destructor %s has kind %s", i, fns[svc.Destructor].Name, g.FunctionRoles(svc.Destructor).Kind)
		}
	}

	// 3) roles
	for i, fn := range fns {
		r := g.FunctionRoles(i)
		if len(r.Params) != len(fn.Params) {
			return fmt.Errorf("function %s: %d roles for %d params", fn.Name, len(r.Params), len(fn.Params))
		}
		for j, role := range r.Params {
			if role == types.ParamCallback {
				if _, ok := r.CallbackAt(j); !ok {
					return fmt.Errorf("function %s: callback param %d without site", fn.Name, j)
				}
			}
			if role == types.ParamContext && (j == 0 || r.Params[j-1] != types.ParamCallback) {
				return fmt.Errorf("function %s: context param %d does not follow a callback", fn.Name, j)
			}
		}
	}
	return nil
}
