package depgraph

import (
	"slices"

	"ffigen/internal/types"
)

type Topo struct {
	Order   []types.TypeID   // definition order
	Batches [][]types.TypeID // waves of mutually independent nodes
	Cyclic  bool
	Cycles  []types.TypeID // nodes left on a cycle
}

// ToposortKahn orders the graph with Kahn's algorithm. Every wave is sorted
// by TypeID, so the order only depends on the graph.
func ToposortKahn(g Graph) *Topo {
	nodeCount := len(g.Nodes)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]types.TypeID, 0, nodeCount),
		Batches: make([][]types.TypeID, 0),
	}

	current := make([]int, 0, nodeCount)
	for i := range nodeCount {
		if indeg[i] == 0 {
			current = append(current, i)
		}
	}

	visited := 0
	for len(current) > 0 {
		slices.Sort(current)
		batch := make([]types.TypeID, 0, len(current))
		next := make([]int, 0)
		for _, idx := range current {
			batch = append(batch, g.Nodes[idx])
			topo.Order = append(topo.Order, g.Nodes[idx])
			visited++
			for _, to := range g.Edges[idx] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		topo.Batches = append(topo.Batches, batch)
		current = next
	}

	if visited != nodeCount {
		topo.Cyclic = true
		for i := range nodeCount {
			if indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, g.Nodes[i])
			}
		}
	}
	return topo
}
