package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/backend/backendtest"
	"ffigen/internal/backend/targets"
	"ffigen/internal/diag"
	"ffigen/internal/emit"
	"ffigen/internal/layout"
	"ffigen/internal/mono"
	"ffigen/internal/naming"
	"ffigen/internal/pattern"
	"ffigen/internal/testkit"
	"ffigen/internal/types"
)

func prepare(t *testing.T, b *types.Builder) *types.Graph {
	t.Helper()
	g, err := b.Finalize()
	require.NoError(t, err)
	res, err := mono.Monomorphize(g)
	require.NoError(t, err)
	require.NoError(t, pattern.Classify(res.Graph, nil))
	return res.Graph
}

func codes(err error) []diag.Code {
	var out []diag.Code
	for _, d := range diag.Diagnostics(err) {
		out = append(out, d.Code)
	}
	return out
}

func styles(t *testing.T) map[string]naming.Style {
	t.Helper()
	r := targets.Default()
	out := make(map[string]naming.Style)
	for _, target := range r.Targets() {
		e, err := r.New(target)
		require.NoError(t, err)
		out[target] = e.Style()
	}
	return out
}

func TestReferenceGraphIsValid(t *testing.T) {
	g := prepare(t, testkit.Reference())
	require.NoError(t, Graph(g, Options{Styles: styles(t)}))
	require.NoError(t, Graph(g, Options{Layout: layout.I686LinuxGNU()}))
}

func TestUnclassifiedGraph(t *testing.T) {
	g, err := testkit.ReferenceGraph()
	require.NoError(t, err)
	res, err := mono.Monomorphize(g)
	require.NoError(t, err)
	err = Graph(res.Graph, Options{})
	require.Error(t, err)
	assert.Contains(t, codes(err), diag.NotClassified)
}

func TestUnresolvedGenerics(t *testing.T) {
	b := types.NewBuilder()
	tp := b.GenericParam("T")
	fam := b.Struct(types.StructInfo{Name: "Generic", TypeParams: []types.TypeID{tp}, Fields: []types.Field{{Name: "x", Type: b.Pointer(tp, false)}}})
	b.AddFunction(types.Function{Name: "bare", Params: []types.Param{{Name: "g", Type: b.Pointer(fam, false)}}})
	g := prepare(t, b)

	err := Graph(g, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrUnresolvedGeneric))
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 1)
	assert.Equal(t, "bare", ds[0].Node.Name)
}

func TestReprSanity(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	u32 := b.Primitive(types.PrimU32)
	odd := b.Struct(types.StructInfo{Name: "Odd", Repr: types.Repr{Kind: types.ReprPacked, Align: 3}, Fields: []types.Field{
		{Name: "a", Type: u8},
		{Name: "b", Type: u32},
	}})
	wide := b.Struct(types.StructInfo{Name: "Wide", Repr: types.Repr{Kind: types.ReprTransparent}, Fields: []types.Field{
		{Name: "a", Type: u8},
		{Name: "b", Type: u32},
	}})
	b.AddFunction(types.Function{Name: "odd", Params: []types.Param{{Name: "x", Type: odd}}})
	b.AddFunction(types.Function{Name: "wide", Params: []types.Param{{Name: "x", Type: wide}}})
	g := prepare(t, b)

	err := Graph(g, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrInvalidRepr))
	assert.Equal(t, []diag.Code{diag.InvalidRepr, diag.InvalidRepr}, codes(err))
}

func TestExpectedLayout(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	u16 := b.Primitive(types.PrimU16)
	pair := b.Struct(types.StructInfo{Name: "Pair", ExpectedSize: 3, ExpectedAlign: 2, Fields: []types.Field{
		{Name: "a", Type: u8},
		{Name: "b", Type: u16},
	}})
	b.AddFunction(types.Function{Name: "pair", Ret: pair})
	g := prepare(t, b)

	err := Graph(g, Options{})
	require.Error(t, err)
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 1, "size 4 differs from 3, align 2 matches")
	assert.Equal(t, diag.LayoutMismatch, ds[0].Code)
	assert.Contains(t, ds[0].Message, "native size is 3")
	assert.Equal(t, "Pair", ds[0].Node.Name)
}

func TestDuplicateNamesPerTarget(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	b.AddFunction(types.Function{Name: "do_thing", Ret: u8})
	b.AddFunction(types.Function{Name: "DoThing", Ret: u8})
	g := prepare(t, b)

	require.NoError(t, Graph(g, Options{Styles: map[string]naming.Style{"keep": {}}}))

	err := Graph(g, Options{Styles: styles(t)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrDuplicateSymbol))
	targetsHit := make(map[string]bool)
	for _, d := range diag.Diagnostics(err) {
		targetsHit[d.Target] = true
	}
	assert.True(t, targetsHit["python"])
	assert.True(t, targetsHit["csharp"])
}

func TestEveryTargetManifestMatchesTheIR(t *testing.T) {
	r := targets.Default()
	for _, target := range r.Targets() {
		t.Run(target, func(t *testing.T) {
			e, err := r.New(target)
			require.NoError(t, err)
			in := backendtest.Input(t, emit.Options{Library: "reference"})
			out, err := emit.Generate(e, in)
			require.NoError(t, err)
			require.NoError(t, Manifest(in.Graph, Options{Layout: in.Layout}, out.Manifest))
		})
	}
}

func TestManifestMismatch(t *testing.T) {
	g := prepare(t, testkit.Reference())
	packed1, ok := g.ByName("Packed1")
	require.True(t, ok)
	vec3, ok := g.ByName("Vec3f32")
	require.True(t, ok)
	nested, ok := g.ByName("NestedArray")
	require.True(t, ok)
	u8 := g.Primitive(types.PrimU8)
	u16 := g.Primitive(types.PrimU16)
	f32 := g.Primitive(types.PrimF32)
	s, _ := g.Struct(nested)
	swapped := []types.TypeID{s.Fields[1].Type, s.Fields[0].Type, s.Fields[2].Type, s.Fields[3].Type}

	m := &emit.Manifest{Target: "c"}
	m.Record(emit.StructRecord{Type: packed1, Name: "Packed1", Types: []types.TypeID{u8, u16}})
	m.Record(emit.StructRecord{Type: vec3, Name: "Vec3f32", Types: []types.TypeID{f32, f32}})
	m.Record(emit.StructRecord{Type: nested, Name: "NestedArray", Types: swapped})

	err := Manifest(g, Options{}, m)
	require.Error(t, err)
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 3)
	byName := make(map[string]diag.Diagnostic)
	for _, d := range ds {
		assert.Equal(t, "c", d.Target)
		byName[d.Node.Name] = d
	}
	assert.Equal(t, diag.LayoutMismatch, byName["Packed1"].Code, "packing dropped: size 4 instead of 3")
	assert.Equal(t, diag.FieldOrderMismatch, byName["Vec3f32"].Code)
	assert.Equal(t, diag.FieldOrderMismatch, byName["NestedArray"].Code)
}

func TestManifestRecomputesWithEmittedPacking(t *testing.T) {
	g := prepare(t, testkit.Reference())
	packed2, ok := g.ByName("Packed2")
	require.True(t, ok)
	s, _ := g.Struct(packed2)
	fields := []types.TypeID{s.Fields[0].Type, s.Fields[1].Type}

	m := &emit.Manifest{Target: "python"}
	m.Record(emit.StructRecord{Type: packed2, Name: "Packed2", Repr: types.Repr{Kind: types.ReprPacked, Align: 2}, Types: fields})
	require.NoError(t, Manifest(g, Options{}, m))

	m.Record(emit.StructRecord{Type: packed2, Name: "Packed2", Repr: types.Repr{Kind: types.ReprPacked, Align: 4}, Types: fields})
	err := Manifest(g, Options{}, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrLayoutMismatch))
}
