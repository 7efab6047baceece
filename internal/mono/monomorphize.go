package mono

import (
	"slices"
	"strconv"
	"strings"

	"ffigen/internal/types"
)

// Result is a graph with every concrete generic use replaced by a
// synthesized struct.
type Result struct {
	Graph     *types.Graph
	Instances *InstantiationMap
}

type monomorphizer struct {
	b      *types.Builder
	view   *types.Graph
	insts  *InstantiationMap
	queue  []types.TypeID
	queued map[types.TypeID]bool
}

// Monomorphize resolves every concrete instance node of g. Instances are
// rewritten in place, so functions, constants and fields that referred to
// `Generic<u32>` now refer to the concrete struct `Genericu32`. Instances
// that still mention a type parameter belong to generic families and stay
// untouched. g itself is not modified.
func Monomorphize(g *types.Graph) (*Result, error) {
	m := &monomorphizer{
		b:      g.Derive(),
		insts:  NewInstantiationMap(),
		queued: make(map[types.TypeID]bool),
	}
	m.view = m.b.View()
	for _, id := range m.view.IDs() {
		m.enqueue(id)
	}
	for len(m.queue) > 0 {
		id := m.queue[0]
		m.queue = m.queue[1:]
		m.resolve(id)
	}
	out, err := m.b.Finalize()
	if err != nil {
		return nil, err
	}
	return &Result{Graph: out, Instances: m.insts}, nil
}

func (m *monomorphizer) enqueue(id types.TypeID) {
	if m.queued[id] || m.view.Kind(id) != types.KindInstance || m.view.IsTemplate(id) {
		return
	}
	m.queued[id] = true
	m.queue = append(m.queue, id)
}

func (m *monomorphizer) resolve(id types.TypeID) {
	inst, ok := m.view.Instance(id)
	if !ok {
		return
	}
	family, args := inst.Family, append([]types.TypeID(nil), inst.Args...)
	fam, ok := m.view.Struct(family)
	if !ok || !fam.IsGeneric() || len(fam.TypeParams) != len(args) {
		// reported by Finalize of the source graph
		return
	}
	subst := make(map[types.TypeID]types.TypeID, len(args))
	for i, p := range fam.TypeParams {
		subst[p] = args[i]
	}
	famName, famNS, famDoc, famRepr, famHint := fam.Name, fam.Namespace, fam.Doc, fam.Repr, fam.Hint
	famFields := append([]types.Field(nil), fam.Fields...)

	fields := make([]types.Field, len(famFields))
	for i, f := range famFields {
		fields[i] = types.Field{Name: f.Name, Doc: f.Doc, Type: m.apply(f.Type, subst)}
	}
	name := InstanceName(m.view, famName, args)
	m.insts.Record(family, args, id, name)
	m.b.ResolveInstance(id, types.StructInfo{
		Name:      name,
		Namespace: famNS,
		Doc:       famDoc,
		Fields:    fields,
		Repr:      famRepr,
		Hint:      famHint,
		Origin:    &types.Origin{Family: family, Args: args},
	})
}

// apply substitutes type parameters in t, interning every rebuilt node.
// New concrete instances are queued for resolution.
func (m *monomorphizer) apply(t types.TypeID, subst map[types.TypeID]types.TypeID) types.TypeID {
	if !m.view.IsTemplate(t) {
		return t
	}
	tt := m.view.MustLookup(t)
	switch tt.Kind {
	case types.KindGenericParam:
		if to, ok := subst[t]; ok {
			return to
		}
		return t
	case types.KindPointer:
		return m.b.Pointer(m.apply(tt.Elem, subst), tt.Mutable)
	case types.KindArray:
		return m.b.Array(m.apply(tt.Elem, subst), tt.Len)
	case types.KindFnPointer:
		sig, _ := m.view.FnPointer(t)
		name, doc, ret := sig.Name, sig.Doc, sig.Ret
		orig := append([]types.TypeID(nil), sig.Params...)
		params := make([]types.TypeID, len(orig))
		for i, p := range orig {
			params[i] = m.apply(p, subst)
		}
		newRet := m.apply(ret, subst)
		if name != "" {
			name += argsSuffix(m.view, substArgs(subst))
		}
		return m.b.FnPointerDoc(name, doc, params, newRet)
	case types.KindInstance:
		inst, _ := m.view.Instance(t)
		family := inst.Family
		orig := append([]types.TypeID(nil), inst.Args...)
		args := make([]types.TypeID, len(orig))
		for i, a := range orig {
			args[i] = m.apply(a, subst)
		}
		out := m.b.Instance(family, args)
		m.enqueue(out)
		return out
	}
	return t
}

func substArgs(subst map[types.TypeID]types.TypeID) []types.TypeID {
	keys := make([]types.TypeID, 0, len(subst))
	for k := range subst {
		keys = append(keys, k)
	}
	// parameters are interned in declaration order
	slices.Sort(keys)
	out := make([]types.TypeID, len(keys))
	for i, k := range keys {
		out[i] = subst[k]
	}
	return out
}

// InstanceName synthesizes the concrete name of family applied to args:
// the family name followed by each argument's name, `Generic<u32>` becoming
// `Genericu32`.
func InstanceName(g *types.Graph, family string, args []types.TypeID) string {
	return family + argsSuffix(g, args)
}

func argsSuffix(g *types.Graph, args []types.TypeID) string {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(argName(g, a))
	}
	return sb.String()
}

func argName(g *types.Graph, id types.TypeID) string {
	tt, ok := g.Lookup(id)
	if !ok {
		return "Invalid"
	}
	switch tt.Kind {
	case types.KindPrimitive:
		return tt.Prim.String()
	case types.KindStruct, types.KindEnum, types.KindOpaque:
		name, _, _ := g.NominalName(id)
		return name
	case types.KindPointer:
		if tt.Mutable {
			return "PtrMut" + argName(g, tt.Elem)
		}
		return "Ptr" + argName(g, tt.Elem)
	case types.KindArray:
		return argName(g, tt.Elem) + strconv.FormatUint(uint64(tt.Len), 10)
	case types.KindFnPointer:
		sig, _ := g.FnPointer(id)
		if sig.Name != "" {
			return sig.Name
		}
		return "Fn"
	case types.KindInstance:
		inst, _ := g.Instance(id)
		famName, _, _ := g.NominalName(inst.Family)
		return InstanceName(g, famName, inst.Args)
	case types.KindGenericParam:
		p, _ := g.GenericParam(id)
		return p.Name
	}
	return "Invalid"
}
