package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/types"
)

func TestDefinitionOrderFollowsValueEdges(t *testing.T) {
	b := types.NewBuilder()
	// declared outer-first so TypeID order alone would be wrong
	outer := b.Declare(types.KindStruct, "", "Outer")
	middle := b.Declare(types.KindStruct, "", "Middle")
	inner := b.Declare(types.KindStruct, "", "Inner")
	u8 := b.Primitive(types.PrimU8)
	b.DefineStruct(outer, types.StructInfo{Fields: []types.Field{{Name: "m", Type: b.Array(middle, 2)}, {Name: "i", Type: inner}}})
	b.DefineStruct(middle, types.StructInfo{Fields: []types.Field{{Name: "i", Type: inner}, {Name: "o", Type: b.Pointer(outer, false)}}})
	b.DefineStruct(inner, types.StructInfo{Fields: []types.Field{{Name: "x", Type: u8}}})
	cb := b.FnPointer("Visit", []types.TypeID{outer}, u8)
	g, err := b.Finalize()
	require.NoError(t, err)

	dg := Build(g, g.Emittable)
	topo := ToposortKahn(dg)
	require.False(t, topo.Cyclic)
	assert.Equal(t, []types.TypeID{inner, middle, outer, cb}, topo.Order)
	assert.Equal(t, [][]types.TypeID{{inner}, {middle}, {outer}, {cb}}, topo.Batches)
}

func TestIndependentNodesStayInIDOrder(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	a := b.Struct(types.StructInfo{Name: "A", Fields: []types.Field{{Name: "x", Type: u8}}})
	c := b.Struct(types.StructInfo{Name: "C", Fields: []types.Field{{Name: "x", Type: u8}}})
	e := b.Enum(types.EnumInfo{Name: "E"})
	g, err := b.Finalize()
	require.NoError(t, err)

	topo := ToposortKahn(Build(g, g.Emittable))
	assert.Equal(t, []types.TypeID{a, c, e}, topo.Order)
	require.Len(t, topo.Batches, 1)
}

func TestCycleIsReported(t *testing.T) {
	dg := Graph{
		Nodes: []types.TypeID{10, 11, 12},
		Edges: [][]int{{1}, {0}, nil},
		Indeg: []int{1, 1, 0},
	}
	topo := ToposortKahn(dg)
	assert.True(t, topo.Cyclic)
	assert.Equal(t, []types.TypeID{12}, topo.Order)
	assert.Equal(t, []types.TypeID{10, 11}, topo.Cycles)
}
