package naming

import (
	"strconv"
	"strings"

	"ffigen/internal/types"
)

// Logical holds the target-independent name of every emittable node. It is
// computed once per graph; per-target tables only re-case and escape it.
type Logical struct {
	g     *types.Graph
	names map[types.TypeID]string
}

// NewLogical assigns logical names. Nominals keep their bare IR name unless
// another emittable nominal shares it, in which case the namespace is folded
// into the name (common::Vec -> common_Vec). Anonymous callbacks get a name
// derived from their signature.
func NewLogical(g *types.Graph) *Logical {
	l := &Logical{g: g, names: make(map[types.TypeID]string)}
	bare := make(map[string]int)
	var nominals []types.TypeID
	for _, id := range g.IDs() {
		if !g.Emittable(id) {
			continue
		}
		if name, _, ok := g.NominalName(id); ok {
			bare[name]++
			nominals = append(nominals, id)
			continue
		}
		if fi, ok := g.FnPointer(id); ok && fi.Name != "" {
			bare[fi.Name]++
		}
	}
	for _, id := range nominals {
		name, ns, _ := g.NominalName(id)
		if bare[name] > 1 && ns != "" {
			name = strings.ReplaceAll(ns, "::", "_") + "_" + name
		}
		l.names[id] = name
	}
	for _, id := range g.IDs() {
		if g.Kind(id) != types.KindFnPointer || !g.Emittable(id) {
			continue
		}
		fi, _ := g.FnPointer(id)
		if fi.Name != "" {
			l.names[id] = fi.Name
			continue
		}
		l.names[id] = l.signatureName(fi)
	}
	return l
}

// Graph returns the graph the names were computed for.
func (l *Logical) Graph() *types.Graph { return l.g }

// Type returns the logical name of id, or "" for structural nodes.
func (l *Logical) Type(id types.TypeID) string { return l.names[id] }

func (l *Logical) signatureName(fi *types.FnInfo) string {
	parts := []string{"fn"}
	for _, p := range fi.Params {
		parts = append(parts, l.word(p))
	}
	if fi.Ret != types.NoTypeID && !l.g.IsVoid(fi.Ret) {
		parts = append(parts, "ret", l.word(fi.Ret))
	}
	return strings.Join(parts, "_")
}

func (l *Logical) word(id types.TypeID) string {
	tt, ok := l.g.Lookup(id)
	if !ok {
		return "x"
	}
	switch tt.Kind {
	case types.KindPrimitive:
		return tt.Prim.String()
	case types.KindPointer:
		if tt.Mutable {
			return "ptr_mut_" + l.word(tt.Elem)
		}
		return "ptr_" + l.word(tt.Elem)
	case types.KindArray:
		return l.word(tt.Elem) + "_" + strconv.FormatUint(uint64(tt.Len), 10)
	case types.KindFnPointer:
		if fi, ok := l.g.FnPointer(id); ok && fi.Name != "" {
			return Snake(fi.Name)
		}
		return "fn"
	}
	if name, _, ok := l.g.NominalName(id); ok {
		return Snake(name)
	}
	return "x"
}
