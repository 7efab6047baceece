package types

// ValueDeps returns the direct by-value edges of id: struct fields and array
// elements that are not scalars, pointers or function pointers. Instance
// nodes have no value edges until they are resolved.
func (g *Graph) ValueDeps(id TypeID) []TypeID {
	tt, ok := g.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case KindStruct:
		s := &g.structs[tt.Payload]
		var out []TypeID
		for _, f := range s.Fields {
			if g.isValueEdge(f.Type) {
				out = append(out, f.Type)
			}
		}
		return out
	case KindArray:
		if g.isValueEdge(tt.Elem) {
			return []TypeID{tt.Elem}
		}
	}
	return nil
}

func (g *Graph) isValueEdge(id TypeID) bool {
	switch g.Kind(id) {
	case KindStruct, KindEnum, KindArray, KindOpaque, KindInstance, KindGenericParam:
		return true
	}
	return false
}

// NominalValueDeps returns the nominal types id embeds by value, looking
// through arrays. The result is deduplicated and keeps field order.
func (g *Graph) NominalValueDeps(id TypeID) []TypeID {
	var out []TypeID
	seen := make(map[TypeID]bool)
	var walk func(TypeID)
	walk = func(t TypeID) {
		for _, dep := range g.ValueDeps(t) {
			if g.Kind(dep) == KindArray {
				walk(dep)
				continue
			}
			if !g.Kind(dep).IsNominal() || seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
		}
	}
	walk(id)
	return out
}

// References returns every outgoing edge of id, by value or by pointer.
func (g *Graph) References(id TypeID) []TypeID {
	tt, ok := g.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case KindPointer, KindArray:
		return []TypeID{tt.Elem}
	case KindStruct:
		s := &g.structs[tt.Payload]
		out := make([]TypeID, 0, len(s.Fields))
		for _, f := range s.Fields {
			out = append(out, f.Type)
		}
		return out
	case KindFnPointer:
		fi := &g.fns[tt.Payload]
		out := make([]TypeID, 0, len(fi.Params)+1)
		out = append(out, fi.Params...)
		return append(out, fi.Ret)
	case KindInstance:
		inst := &g.insts[tt.Payload]
		out := make([]TypeID, 0, len(inst.Args)+1)
		out = append(out, inst.Family)
		return append(out, inst.Args...)
	}
	return nil
}

// Roots returns the types named directly by exported functions and constants
// in declaration order.
func (g *Graph) Roots() []TypeID {
	var out []TypeID
	for _, fn := range g.funcs {
		for _, p := range fn.Params {
			out = append(out, p.Type)
		}
		out = append(out, fn.Ret)
	}
	for _, c := range g.consts {
		out = append(out, c.Type)
	}
	return out
}

// Reachable marks every node reachable from roots. Generic families are not
// entered: their fields only make sense after substitution.
func (g *Graph) Reachable(roots []TypeID) []bool {
	seen := make([]bool, len(g.types))
	stack := append([]TypeID(nil), roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NoTypeID || int(id) >= len(seen) || seen[id] {
			continue
		}
		seen[id] = true
		if s, ok := g.Struct(id); ok && s.IsGeneric() {
			continue
		}
		stack = append(stack, g.References(id)...)
	}
	return seen
}

// IsTemplate reports whether id mentions a type parameter: generic families,
// type parameters and anything built from them.
func (g *Graph) IsTemplate(id TypeID) bool {
	tt, ok := g.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindGenericParam:
		return true
	case KindStruct:
		return g.structs[tt.Payload].IsGeneric()
	case KindPointer, KindArray:
		return g.IsTemplate(tt.Elem)
	case KindFnPointer:
		fi := &g.fns[tt.Payload]
		for _, p := range fi.Params {
			if g.IsTemplate(p) {
				return true
			}
		}
		return g.IsTemplate(fi.Ret)
	case KindInstance:
		for _, a := range g.insts[tt.Payload].Args {
			if g.IsTemplate(a) {
				return true
			}
		}
	}
	return false
}

// Emittable reports whether id is a concrete nominal or callback node that
// bindings declare: templates and unresolved instances are skipped.
func (g *Graph) Emittable(id TypeID) bool {
	switch g.Kind(id) {
	case KindStruct, KindEnum, KindOpaque, KindFnPointer:
		return !g.IsTemplate(id)
	}
	return false
}
