package pattern

import (
	"ffigen/internal/diag"
	"ffigen/internal/types"
)

// isOutHandle matches **O: a mutable pointer to a mutable pointer to O.
func (c *classifier) isOutHandle(id, opaque types.TypeID) bool {
	inner, mut, ok := c.g.Pointee(id)
	if !ok || !mut {
		return false
	}
	elem, innerMut, ok := c.g.Pointee(inner)
	return ok && innerMut && elem == opaque
}

// isSelf matches *O of either mutability.
func (c *classifier) isSelf(id, opaque types.TypeID) bool {
	elem, _, ok := c.g.Pointee(id)
	return ok && elem == opaque
}

func (c *classifier) returnsErrorEnum(fn *types.Function) bool {
	_, ok := c.errEnums[fn.Ret]
	return ok
}

func (c *classifier) outHandleCount(fn *types.Function, opaque types.TypeID) int {
	n := 0
	for _, p := range fn.Params {
		if c.isOutHandle(p.Type, opaque) {
			n++
		}
	}
	return n
}

func (c *classifier) isDestructor(fn *types.Function) bool {
	switch fn.Annotations.Lifecycle {
	case types.LifecycleDestructor:
		return len(fn.Params) == 1
	case types.LifecycleConstructor:
		return false
	}
	return len(fn.Params) == 1 && HasDestroySuffix(fn.Name)
}

// classifyServices groups each opaque type with its lifecycle functions.
// An opaque type without constructors or destructors stays plain and
// functions taking it remain free functions.
func (c *classifier) classifyServices() {
	fns := c.g.Functions()
	for _, id := range c.g.IDs() {
		if c.g.Kind(id) != types.KindOpaque || !c.g.Emittable(id) {
			continue
		}
		var ctors, dtors, methods []int
		for i := range fns {
			fn := &fns[i]
			if c.returnsErrorEnum(fn) && c.outHandleCount(fn, id) == 1 {
				if c.isDestructor(fn) {
					dtors = append(dtors, i)
				} else {
					ctors = append(ctors, i)
				}
				continue
			}
			if len(fn.Params) > 0 && c.isSelf(fn.Params[0].Type, id) {
				methods = append(methods, i)
			}
		}
		if len(ctors) == 0 && len(dtors) == 0 {
			continue
		}
		if !c.checkLifecycle(id, ctors, dtors) {
			continue
		}

		errEnum := fns[dtors[0]].Ret
		for _, i := range ctors {
			if fns[i].Ret != errEnum {
				diag.ReportError(c.rep, diag.AmbiguousPattern, types.NodeRef(c.g, id),
					"service lifecycle functions return different error enums").
					WithNote(types.FunctionRef(c.g, dtors[0]), "destructor returns "+c.g.TypeString(errEnum)).
					WithNote(types.FunctionRef(c.g, i), "constructor returns "+c.g.TypeString(fns[i].Ret)).
					Emit()
			}
		}

		idx := len(c.services)
		c.services = append(c.services, types.ServiceInfo{
			Opaque:     id,
			Ctors:      ctors,
			Destructor: dtors[0],
			Methods:    methods,
			ErrorEnum:  errEnum,
		})
		c.patterns[id] = types.Pattern{Kind: types.PatternService, Service: idx}
		for _, i := range ctors {
			c.claim(i, types.FnCtor, idx)
		}
		c.claim(dtors[0], types.FnDtor, idx)
		for _, i := range methods {
			c.claim(i, types.FnMethod, idx)
		}
	}
}

// checkLifecycle requires exactly one destructor and at least one
// constructor.
func (c *classifier) checkLifecycle(id types.TypeID, ctors, dtors []int) bool {
	node := types.NodeRef(c.g, id)
	switch {
	case len(dtors) == 0:
		b := diag.ReportError(c.rep, diag.AmbiguousPattern, node, "service has constructors but no destructor")
		for _, i := range ctors {
			b.WithNote(types.FunctionRef(c.g, i), "constructor")
		}
		b.Emit()
		return false
	case len(dtors) > 1:
		b := diag.ReportError(c.rep, diag.AmbiguousPattern, node, "service has more than one destructor")
		for _, i := range dtors {
			b.WithNote(types.FunctionRef(c.g, i), "destructor candidate")
		}
		b.Emit()
		return false
	case len(ctors) == 0:
		diag.ReportError(c.rep, diag.AmbiguousPattern, node, "service has a destructor but no constructor").
			WithNote(types.FunctionRef(c.g, dtors[0]), "destructor").
			Emit()
		return false
	}
	return true
}

// claim records function i as a member of service svc. A function claimed
// by two services is ambiguous.
func (c *classifier) claim(i int, kind types.FnKind, svc int) {
	r := &c.roles[i]
	if r.Service >= 0 && r.Service != svc {
		prev := c.services[r.Service].Opaque
		cur := c.services[svc].Opaque
		diag.ReportError(c.rep, diag.AmbiguousPattern, types.FunctionRef(c.g, i),
			"function belongs to two services").
			WithNote(types.NodeRef(c.g, prev), "first service").
			WithNote(types.NodeRef(c.g, cur), "second service").
			Emit()
		return
	}
	r.Kind = kind
	r.Service = svc
}
