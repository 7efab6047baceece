package mono

import (
	"ffigen/internal/diag"
	"ffigen/internal/types"
)

// CheckResolved reports every function, constant or concrete struct that
// still refers to a type parameter or an unresolved instance. It runs on the
// output of Monomorphize.
func CheckResolved(g *types.Graph) error {
	bag := diag.NewBag(0)
	for i, fn := range g.Functions() {
		for _, p := range fn.Params {
			if t, bad := unresolvedIn(g, p.Type); bad {
				bag.Errorf(diag.UnresolvedGeneric, types.FunctionRef(g, i),
					"parameter %s uses unresolved generic %s", p.Name, g.TypeString(t))
			}
		}
		if t, bad := unresolvedIn(g, fn.Ret); bad {
			bag.Errorf(diag.UnresolvedGeneric, types.FunctionRef(g, i),
				"return type uses unresolved generic %s", g.TypeString(t))
		}
	}
	for _, c := range g.Constants() {
		if t, bad := unresolvedIn(g, c.Type); bad {
			bag.Errorf(diag.UnresolvedGeneric, diag.Node("constant", 0, c.Name),
				"constant type %s is generic", g.TypeString(t))
		}
	}
	for _, id := range g.IDs() {
		s, ok := g.Struct(id)
		if !ok || s.IsGeneric() {
			continue
		}
		for _, f := range s.Fields {
			if t, bad := unresolvedIn(g, f.Type); bad {
				bag.Errorf(diag.UnresolvedGeneric, types.NodeRef(g, id),
					"field %s uses unresolved generic %s", f.Name, g.TypeString(t))
			}
		}
	}
	return bag.Err()
}

// unresolvedIn looks through pointers, arrays and signatures for a type
// parameter, a generic family used without arguments, or an instance node.
func unresolvedIn(g *types.Graph, id types.TypeID) (types.TypeID, bool) {
	tt, ok := g.Lookup(id)
	if !ok {
		return id, false
	}
	switch tt.Kind {
	case types.KindGenericParam, types.KindInstance:
		return id, true
	case types.KindStruct:
		s, _ := g.Struct(id)
		return id, s.IsGeneric()
	case types.KindPointer, types.KindArray:
		return unresolvedIn(g, tt.Elem)
	case types.KindFnPointer:
		sig, _ := g.FnPointer(id)
		for _, p := range sig.Params {
			if t, bad := unresolvedIn(g, p); bad {
				return t, true
			}
		}
		return unresolvedIn(g, sig.Ret)
	}
	return id, false
}
