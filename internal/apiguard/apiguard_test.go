package apiguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/testkit"
	"ffigen/internal/types"
)

func TestFindGuard(t *testing.T) {
	g, err := testkit.ReferenceGraph()
	require.NoError(t, err)
	i, ok := Find(g)
	require.True(t, ok)
	assert.Equal(t, "api_guard", g.Functions()[i].Name)

	b := types.NewBuilder()
	b.AddFunction(types.Function{Name: "my_api_guard", Params: []types.Param{{Name: "x", Type: b.Primitive(types.PrimU64)}}, Ret: b.Primitive(types.PrimU64)})
	b.AddFunction(types.Function{Name: "lib_api_version", Ret: b.Primitive(types.PrimU32)})
	g, err = b.Finalize()
	require.NoError(t, err)
	_, ok = Find(g)
	assert.False(t, ok, "guards take no parameters and return u64")
}

func TestHashStableAndSensitive(t *testing.T) {
	g1, err := testkit.ReferenceGraph()
	require.NoError(t, err)
	g2, err := testkit.ReferenceGraph()
	require.NoError(t, err)
	assert.Equal(t, Hash(g1), Hash(g2))

	b := testkit.Reference()
	b.AddFunction(types.Function{Name: "extra", Ret: b.Primitive(types.PrimU8)})
	g3, err := b.Finalize()
	require.NoError(t, err)
	assert.NotEqual(t, Hash(g1), Hash(g3))

	var sb strings.Builder
	Write(&sb, g1)
	assert.Contains(t, sb.String(), "fn primitive_u8(x:u8,)u8")
	assert.Contains(t, sb.String(), "enum FFIError i32{Ok=0;NullPassed=100;Panic=200;Fail=300;}")
	assert.NotContains(t, sb.String(), "fn api_guard")
}

func TestHashIgnoresDocs(t *testing.T) {
	build := func(doc string) uint64 {
		b := types.NewBuilder()
		b.Struct(types.StructInfo{Name: "S", Doc: doc, Fields: []types.Field{{Name: "x", Type: b.Primitive(types.PrimU8)}}})
		g, err := b.Finalize()
		require.NoError(t, err)
		return Hash(g)
	}
	assert.Equal(t, build("one"), build("two"))
}
