package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/diag"
)

func TestBuilderInternsStructuralNodes(t *testing.T) {
	b := NewBuilder()
	u8 := b.Primitive(PrimU8)
	p1 := b.Pointer(u8, false)
	p2 := b.Pointer(u8, false)
	pm := b.Pointer(u8, true)
	assert.Equal(t, p1, p2)
	assert.NotEqual(t, p1, pm)
	arr := b.Array(u8, 4)
	assert.Equal(t, arr, b.Array(u8, 4))
	assert.NotEqual(t, b.Array(u8, 4), b.Array(u8, 5))

	f1 := b.FnPointer("", []TypeID{u8}, u8)
	f2 := b.FnPointer("", []TypeID{u8}, u8)
	named := b.FnPointer("MyCallback", []TypeID{u8}, u8)
	assert.Equal(t, f1, f2)
	assert.NotEqual(t, f1, named, "named callbacks keep their own node")

	g, err := b.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "*u8", g.TypeString(p1))
	assert.Equal(t, "*mut u8", g.TypeString(pm))
	assert.Equal(t, "[u8; 4]", g.TypeString(arr))
	assert.Equal(t, "fn(u8) -> u8", g.TypeString(f1))
	assert.Equal(t, "MyCallback", g.TypeString(named))
}

func TestBuilderForwardReference(t *testing.T) {
	b := NewBuilder()
	node := b.Declare(KindStruct, "", "Node")
	next := b.Pointer(node, true)
	b.DefineStruct(node, StructInfo{Fields: []Field{
		{Name: "value", Type: b.Primitive(PrimU32)},
		{Name: "next", Type: next},
	}})
	g, err := b.Finalize()
	require.NoError(t, err)

	s, ok := g.Struct(node)
	require.True(t, ok)
	assert.Equal(t, "Node", s.Name)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "next", s.Fields[1].Name)
	id, ok := g.ByName("Node")
	require.True(t, ok)
	assert.Equal(t, node, id)
}

func TestFinalizeUnresolvedType(t *testing.T) {
	b := NewBuilder()
	missing := b.Declare(KindStruct, "", "Missing")
	b.Struct(StructInfo{Name: "Holder", Fields: []Field{{Name: "m", Type: missing}}})
	b.AddFunction(Function{Name: "f", Params: []Param{{Name: "x", Type: TypeID(9999)}}})

	_, err := b.Finalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrUnresolvedType))

	ds := diag.Diagnostics(err)
	var names []string
	for _, d := range ds {
		names = append(names, d.Node.Name)
	}
	assert.Contains(t, names, "Holder")
	assert.Contains(t, names, "f")
}

func TestFinalizeDuplicateSymbol(t *testing.T) {
	b := NewBuilder()
	b.Struct(StructInfo{Name: "Vec", Fields: []Field{{Name: "x", Type: b.Primitive(PrimF32)}}})
	b.Struct(StructInfo{Name: "Vec", Fields: []Field{{Name: "y", Type: b.Primitive(PrimF32)}}})
	b.Struct(StructInfo{Name: "Vec", Namespace: "common", Fields: []Field{{Name: "z", Type: b.Primitive(PrimF32)}}})
	b.AddFunction(Function{Name: "f"})
	b.AddFunction(Function{Name: "f"})

	_, err := b.Finalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrDuplicateSymbol))
	var errs *diag.Errors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs.Items, 2, "namespaced Vec is a different symbol")
}

func TestFinalizeValueCycle(t *testing.T) {
	b := NewBuilder()
	a := b.Declare(KindStruct, "", "A")
	bb := b.Declare(KindStruct, "", "B")
	b.DefineStruct(a, StructInfo{Fields: []Field{{Name: "b", Type: bb}}})
	b.DefineStruct(bb, StructInfo{Fields: []Field{{Name: "a", Type: b.Array(a, 2)}}})

	_, err := b.Finalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrRecursiveValueType))
	assert.Contains(t, err.Error(), "A -> B")
}

func TestPointerCycleIsAllowed(t *testing.T) {
	b := NewBuilder()
	a := b.Declare(KindStruct, "", "A")
	bb := b.Declare(KindStruct, "", "B")
	b.DefineStruct(a, StructInfo{Fields: []Field{{Name: "b", Type: bb}}})
	b.DefineStruct(bb, StructInfo{Fields: []Field{{Name: "a", Type: b.Pointer(a, false)}}})
	_, err := b.Finalize()
	require.NoError(t, err)
}

func TestGenericArityAndTemplates(t *testing.T) {
	b := NewBuilder()
	tp := b.GenericParam("T")
	fam := b.Struct(StructInfo{
		Name:       "Generic",
		TypeParams: []TypeID{tp},
		Fields:     []Field{{Name: "x", Type: b.Pointer(tp, false)}},
	})
	inst := b.Instance(fam, []TypeID{b.Primitive(PrimU32)})
	assert.Equal(t, inst, b.Instance(fam, []TypeID{b.Primitive(PrimU32)}))
	b.AddFunction(Function{Name: "generic_1", Params: []Param{{Name: "x", Type: inst}}})

	g, err := b.Finalize()
	require.NoError(t, err)
	assert.True(t, g.IsTemplate(fam))
	assert.True(t, g.IsTemplate(tp))
	assert.False(t, g.IsTemplate(inst))
	assert.Equal(t, "Generic<u32>", g.TypeString(inst))
	assert.False(t, g.Emittable(fam))

	bad := NewBuilder()
	tp = bad.GenericParam("T")
	fam = bad.Struct(StructInfo{Name: "Generic", TypeParams: []TypeID{tp}, Fields: []Field{{Name: "x", Type: tp}}})
	bad.Instance(fam, []TypeID{bad.Primitive(PrimU8), bad.Primitive(PrimU8)})
	_, err = bad.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 1 type arguments, got 2")
}

func TestDeriveAndResolveInstance(t *testing.T) {
	b := NewBuilder()
	tp := b.GenericParam("T")
	fam := b.Struct(StructInfo{Name: "Generic", TypeParams: []TypeID{tp}, Fields: []Field{{Name: "x", Type: b.Pointer(tp, false)}}})
	u32 := b.Primitive(PrimU32)
	inst := b.Instance(fam, []TypeID{u32})
	g, err := b.Finalize()
	require.NoError(t, err)

	d := g.Derive()
	ptr := d.Pointer(u32, false)
	require.True(t, d.ResolveInstance(inst, StructInfo{
		Name:   "Genericu32",
		Fields: []Field{{Name: "x", Type: ptr}},
		Origin: &Origin{Family: fam, Args: []TypeID{u32}},
	}))
	assert.False(t, d.ResolveInstance(inst, StructInfo{Name: "Again"}), "already resolved")
	ng, err := d.Finalize()
	require.NoError(t, err)

	assert.Equal(t, KindInstance, g.Kind(inst), "source graph is untouched")
	assert.Equal(t, KindStruct, ng.Kind(inst))
	s, ok := ng.Struct(inst)
	require.True(t, ok)
	assert.Equal(t, "Genericu32", s.Name)
	require.NotNil(t, s.Origin)
	assert.Equal(t, fam, s.Origin.Family)
	assert.Equal(t, "*u32", ng.TypeString(s.Fields[0].Type))
	id, ok := ng.ByName("Genericu32")
	require.True(t, ok)
	assert.Equal(t, inst, id)
}

func TestAnnotateOnce(t *testing.T) {
	b := NewBuilder()
	b.AddFunction(Function{Name: "f"})
	g, err := b.Finalize()
	require.NoError(t, err)
	require.False(t, g.Classified())

	require.Error(t, g.Annotate(Annotation{}))
	a := Annotation{Patterns: make([]Pattern, g.Len()), Roles: make([]FunctionRoles, 1)}
	require.NoError(t, g.Annotate(a))
	require.True(t, g.Classified())
	require.Error(t, g.Annotate(a))
	assert.Equal(t, PatternNone, g.Pattern(TypeID(1)).Kind)
}

func TestValueDeps(t *testing.T) {
	b := NewBuilder()
	e := b.Enum(EnumInfo{Name: "E", Variants: []Variant{{Name: "A", Value: 0}}})
	inner := b.Struct(StructInfo{Name: "Inner", Fields: []Field{{Name: "x", Type: b.Primitive(PrimU8)}}})
	outer := b.Struct(StructInfo{Name: "Outer", Fields: []Field{
		{Name: "e", Type: e},
		{Name: "arr", Type: b.Array(inner, 3)},
		{Name: "p", Type: b.Pointer(inner, false)},
		{Name: "again", Type: inner},
	}})
	g, err := b.Finalize()
	require.NoError(t, err)
	assert.Equal(t, []TypeID{e, inner}, g.NominalValueDeps(outer))

	seen := g.Reachable([]TypeID{outer})
	assert.True(t, seen[inner])
	assert.True(t, seen[e])
}
