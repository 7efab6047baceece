package validate

import (
	"fmt"

	"ffigen/internal/depgraph"
	"ffigen/internal/diag"
	"ffigen/internal/mono"
	"ffigen/internal/types"
)

// references reports edges to TypeIDs the graph does not hold.
func (v *validator) references() {
	g := v.g
	check := func(id types.TypeID, owner diag.NodeRef, what string) {
		if _, ok := g.Lookup(id); !ok {
			v.bag.Errorf(diag.UnresolvedType, owner, "%s refers to unknown type #%d", what, id)
		}
	}
	for _, id := range g.IDs() {
		for i, ref := range g.References(id) {
			check(ref, types.NodeRef(g, id), fmt.Sprintf("edge %d", i))
		}
	}
	for i, fn := range g.Functions() {
		for _, p := range fn.Params {
			check(p.Type, types.FunctionRef(g, i), "parameter "+p.Name)
		}
		check(fn.Ret, types.FunctionRef(g, i), "return type")
	}
	for _, c := range g.Constants() {
		check(c.Type, diag.Node("constant", 0, c.Name), "constant type")
	}
}

func (v *validator) generics() {
	v.merge(mono.CheckResolved(v.g))
}

// patterns checks that classification ran and that its payloads are
// consistent: every payload names a node of the right kind and no function
// or handle belongs to two services.
func (v *validator) patterns() {
	g := v.g
	if !g.Classified() {
		v.bag.Errorf(diag.NotClassified, diag.NodeRef{}, "graph has not been classified")
		return
	}
	for _, id := range g.IDs() {
		p := g.Pattern(id)
		ref := types.NodeRef(g, id)
		switch p.Kind {
		case types.PatternSlice:
			if _, ok := g.Lookup(p.Elem); !ok {
				v.bag.Errorf(diag.AmbiguousPattern, ref, "slice element #%d does not exist", p.Elem)
			}
		case types.PatternOption:
			if _, ok := g.Lookup(p.Inner); !ok {
				v.bag.Errorf(diag.AmbiguousPattern, ref, "option payload #%d does not exist", p.Inner)
			}
		case types.PatternResult:
			if g.Kind(p.ErrorEnum) != types.KindEnum {
				v.bag.Errorf(diag.AmbiguousPattern, ref, "result error type is %s, not an enum", g.Kind(p.ErrorEnum))
			}
		case types.PatternUtf8String:
			if p.Destroy >= 0 && g.FunctionRoles(p.Destroy).Kind != types.FnStringDestroy {
				v.bag.Errorf(diag.AmbiguousPattern, ref, "string destroy function %d is not classified as one", p.Destroy)
			}
		case types.PatternService:
			if svc, ok := g.Service(p.Service); !ok || svc.Opaque != id {
				v.bag.Errorf(diag.AmbiguousPattern, ref, "service index %d does not point back at this handle", p.Service)
			}
		case types.PatternCallback:
			if g.Kind(p.Signature) != types.KindFnPointer {
				v.bag.Errorf(diag.AmbiguousPattern, ref, "callback signature is %s", g.Kind(p.Signature))
			}
		}
	}

	fns := g.Functions()
	owner := make(map[int]int)
	handles := make(map[types.TypeID]int)
	for i, svc := range g.Services() {
		ref := types.NodeRef(g, svc.Opaque)
		if prev, ok := handles[svc.Opaque]; ok {
			v.bag.Errorf(diag.AmbiguousPattern, ref, "handle is claimed by services %d and %d", prev, i)
		}
		handles[svc.Opaque] = i
		if len(svc.Ctors) == 0 {
			v.bag.Errorf(diag.AmbiguousPattern, ref, "service has no constructor")
		}
		members := append(append([]int{svc.Destructor}, svc.Ctors...), svc.Methods...)
		for _, f := range members {
			if f < 0 || f >= len(fns) {
				v.bag.Errorf(diag.AmbiguousPattern, ref, "service member %d does not exist", f)
				continue
			}
			if prev, ok := owner[f]; ok && prev != i {
				v.bag.Errorf(diag.AmbiguousPattern, types.FunctionRef(g, f), "function belongs to services %d and %d", prev, i)
			}
			owner[f] = i
		}
	}
	for i, fn := range fns {
		r := g.FunctionRoles(i)
		if len(r.Params) != len(fn.Params) {
			v.bag.Errorf(diag.AmbiguousPattern, types.FunctionRef(g, i), "%d parameter roles for %d parameters", len(r.Params), len(fn.Params))
			continue
		}
		for j, role := range r.Params {
			if role == types.ParamContext && (j == 0 || r.Params[j-1] != types.ParamCallback) {
				v.bag.Errorf(diag.AmbiguousPattern, types.FunctionRef(g, i), "context parameter %s does not follow a callback", fn.Params[j].Name)
			}
		}
	}
}

// cycles repeats the builder's value-cycle check on the monomorphized graph,
// where instances have been replaced by concrete structs.
func (v *validator) cycles() {
	g := v.g
	topo := depgraph.ToposortKahn(depgraph.Build(g, g.Emittable))
	for _, id := range topo.Cycles {
		v.cyclic[id] = true
		v.bag.Errorf(diag.RecursiveValueType, types.NodeRef(g, id), "type contains itself by value")
	}
}

// layouts computes every emittable struct and compares it with the layout
// reported by the front end.
func (v *validator) layouts() {
	g := v.g
	for _, id := range g.IDs() {
		if g.Kind(id) != types.KindStruct || !g.Emittable(id) || v.cyclic[id] {
			continue
		}
		s, _ := g.Struct(id)
		ref := types.NodeRef(g, id)
		if s.Repr.Kind == types.ReprPacked && s.Repr.Align < 0 {
			v.bag.Errorf(diag.InvalidRepr, ref, "negative packing %d", s.Repr.Align)
			continue
		}
		l, err := v.eng.LayoutOf(id)
		if err != nil {
			v.layoutError(ref, "", err)
			continue
		}
		v.expected(ref, s, l.Size, l.Align, "IR layout")
	}
}

func (v *validator) expected(ref diag.NodeRef, s *types.StructInfo, size, align int, what string) {
	if s.ExpectedSize > 0 && s.ExpectedSize != size {
		v.bag.Errorf(diag.LayoutMismatch, ref, "%s has size %d, native size is %d", what, size, s.ExpectedSize)
	}
	if s.ExpectedAlign > 0 && s.ExpectedAlign != align {
		v.bag.Errorf(diag.LayoutMismatch, ref, "%s has align %d, native align is %d", what, align, s.ExpectedAlign)
	}
}
