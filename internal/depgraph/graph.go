package depgraph

import (
	"slices"

	"ffigen/internal/types"
)

// Graph is the value-containment graph over emittable type nodes. An edge
// from a to b means b embeds a by value, so a must be defined first.
// Pointer edges never appear.
type Graph struct {
	Nodes []types.TypeID // sorted by TypeID
	Edges [][]int        // Edges[from] = []to, indexes into Nodes
	Indeg []int
	index map[types.TypeID]int
}

// Build collects every node accepted by include and the value edges between
// them. Struct fields and arrays are looked through; callback signatures
// depend on the nominal types they pass by value.
func Build(g *types.Graph, include func(types.TypeID) bool) Graph {
	var nodes []types.TypeID
	for _, id := range g.IDs() {
		if include(id) {
			nodes = append(nodes, id)
		}
	}
	dg := Graph{
		Nodes: nodes,
		Edges: make([][]int, len(nodes)),
		Indeg: make([]int, len(nodes)),
		index: make(map[types.TypeID]int, len(nodes)),
	}
	for i, id := range nodes {
		dg.index[id] = i
	}
	for to, id := range nodes {
		for _, dep := range valueDeps(g, id) {
			from, ok := dg.index[dep]
			if !ok || from == to {
				continue
			}
			if slices.Contains(dg.Edges[from], to) {
				continue
			}
			dg.Edges[from] = append(dg.Edges[from], to)
			dg.Indeg[to]++
		}
	}
	return dg
}

func valueDeps(g *types.Graph, id types.TypeID) []types.TypeID {
	if g.Kind(id) != types.KindFnPointer {
		return g.NominalValueDeps(id)
	}
	sig, _ := g.FnPointer(id)
	var out []types.TypeID
	add := func(t types.TypeID) {
		for g.Kind(t) == types.KindArray {
			tt := g.MustLookup(t)
			t = tt.Elem
		}
		if g.Kind(t).IsNominal() && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	for _, p := range sig.Params {
		add(p)
	}
	add(sig.Ret)
	return out
}

// Index returns the position of id in Nodes.
func (dg Graph) Index(id types.TypeID) (int, bool) {
	i, ok := dg.index[id]
	return i, ok
}
