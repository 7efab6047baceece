package types

import (
	"maps"
	"slices"

	"ffigen/internal/diag"
)

// Derive returns a builder over a deep copy of g. Later stages use it to
// produce a new graph (for instance with generic uses resolved) while g stays
// untouched. Classification annotations are not carried over.
func (g *Graph) Derive() *Builder {
	ng := &Graph{
		types:   slices.Clone(g.types),
		structs: make([]StructInfo, len(g.structs)),
		enums:   make([]EnumInfo, len(g.enums)),
		opaques: slices.Clone(g.opaques),
		fns:     make([]FnInfo, len(g.fns)),
		insts:   make([]InstanceInfo, len(g.insts)),
		params:  slices.Clone(g.params),
		funcs:   make([]Function, len(g.funcs)),
		consts:  slices.Clone(g.consts),
		names:   maps.Clone(g.names),
		funcIdx: maps.Clone(g.funcIdx),
		prims:   maps.Clone(g.prims),
	}
	for i := range g.structs {
		ng.structs[i] = g.structs[i].clone()
	}
	for i := range g.enums {
		ng.enums[i] = g.enums[i].clone()
	}
	for i := range g.fns {
		ng.fns[i] = g.fns[i].clone()
	}
	for i := range g.insts {
		ng.insts[i] = g.insts[i].clone()
	}
	for i := range g.funcs {
		ng.funcs[i] = g.funcs[i].clone()
	}

	b := &Builder{
		g:        ng,
		index:    make(map[typeKey]TypeID, len(ng.types)),
		keyed:    make(map[string]TypeID, len(ng.fns)+len(ng.insts)+len(ng.params)),
		nominals: make(map[TypeID]bool, len(ng.names)),
		bag:      diag.NewBag(0),
	}
	for i := 1; i < len(ng.types); i++ {
		id := TypeID(i)
		tt := ng.types[i]
		switch tt.Kind {
		case KindPrimitive, KindPointer, KindArray:
			b.index[typeKey{Kind: tt.Kind, Prim: tt.Prim, Elem: tt.Elem, Len: tt.Len, Mutable: tt.Mutable}] = id
		case KindFnPointer:
			fi := ng.fns[tt.Payload]
			b.keyed[fnKey(fi.Name, fi.Params, fi.Ret)] = id
		case KindGenericParam:
			b.keyed[paramKey(ng.params[tt.Payload].Name)] = id
		case KindInstance:
			inst := ng.insts[tt.Payload]
			b.keyed[instKey(inst.Family, inst.Args)] = id
		case KindStruct, KindEnum, KindOpaque:
			b.nominals[id] = true
		}
	}
	return b
}

// View exposes the graph under construction for read access. The returned
// graph must not be retained past Finalize.
func (b *Builder) View() *Graph { return b.g }

// ResolveInstance turns the instance node inst into a concrete struct
// described by info, keeping its TypeID so every existing reference now
// points at the concrete type. The synthesized name must not collide with an
// existing nominal.
func (b *Builder) ResolveInstance(inst TypeID, info StructInfo) bool {
	tt, ok := b.g.Lookup(inst)
	if !ok || tt.Kind != KindInstance {
		return false
	}
	qualified := QualifiedName(info.Namespace, info.Name)
	if prev, exists := b.g.names[qualified]; exists {
		b.bag.Errorf(diag.DuplicateSymbol, NodeRef(b.g, inst),
			"instantiation name %s collides with %s", qualified, NodeRef(b.g, prev).String())
		return false
	}
	b.g.structs = append(b.g.structs, info.clone())
	b.g.types[inst] = Type{Kind: KindStruct, Payload: payloadIndex(len(b.g.structs) - 1)}
	b.g.names[qualified] = inst
	b.nominals[inst] = true
	return true
}
