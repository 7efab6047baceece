package naming_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/diag"
	"ffigen/internal/mono"
	"ffigen/internal/naming"
	"ffigen/internal/pattern"
	"ffigen/internal/testkit"
	"ffigen/internal/types"
)

func classified(t *testing.T) *types.Graph {
	t.Helper()
	g, err := testkit.ReferenceGraph()
	require.NoError(t, err)
	res, err := mono.Monomorphize(g)
	require.NoError(t, err)
	require.NoError(t, pattern.Classify(res.Graph, nil))
	return res.Graph
}

var pascal = naming.Style{
	Type:            naming.CasePascal,
	Function:        naming.CasePascal,
	Method:          naming.CasePascal,
	Field:           naming.CasePascal,
	Param:           naming.CaseCamel,
	Constant:        naming.CasePascal,
	Variant:         naming.CasePascal,
	FunctionsScoped: true,
	Reserved:        naming.Reserved(naming.GoKeywords),
}

func TestLogicalNamespaceQualification(t *testing.T) {
	g := classified(t)
	l := naming.NewLogical(g)
	vec, ok := g.ByName("Vec")
	require.True(t, ok)
	common, ok := g.ByName("common::Vec")
	require.True(t, ok)
	assert.Equal(t, "Vec", l.Type(vec))
	assert.Equal(t, "common_Vec", l.Type(common))
	inner, ok := g.ByName("Inner")
	require.True(t, ok)
	assert.Equal(t, "Inner", l.Type(inner))
	assert.Empty(t, l.Type(g.Primitive(types.PrimU8)))
}

func TestTableIdentifiers(t *testing.T) {
	g := classified(t)
	tbl, err := naming.NewLogical(g).Table("go", pascal)
	require.NoError(t, err)

	common, _ := g.ByName("common::Vec")
	assert.Equal(t, "CommonVec", tbl.Type(common))
	ffiErr, _ := g.ByName("FFIError")
	assert.Equal(t, "FfiError", tbl.Type(ffiErr), "acronyms are title-cased like any word")
	assert.Equal(t, "NullPassed", tbl.Variant(ffiErr, 1))

	i, _ := g.FunctionIndex("simple_service_method_value")
	assert.Equal(t, "SimpleServiceMethodValue", tbl.Function(i))
	assert.Equal(t, "MethodValue", tbl.Method(i))
	j, _ := g.FunctionIndex("simple_service_new_with")
	assert.Equal(t, "someValue", tbl.Param(j, 1))

	k, _ := g.FunctionIndex("primitive_u8")
	assert.Empty(t, tbl.Method(k), "free functions have no method name")
	assert.Equal(t, "F32MinPositive", tbl.Constant(2))
}

func TestTableVariantPrefixAndEscape(t *testing.T) {
	g := classified(t)
	style := naming.Style{
		Variant:       naming.CaseScreaming,
		VariantPrefix: true,
		Reserved:      naming.Reserved(naming.CKeywords),
	}
	tbl, err := naming.NewLogical(g).Table("c", style)
	require.NoError(t, err)
	ffiErr, _ := g.ByName("FFIError")
	assert.Equal(t, "FFI_ERROR_OK", tbl.Variant(ffiErr, 0))
	assert.Equal(t, "FFI_ERROR_NULL_PASSED", tbl.Variant(ffiErr, 1))
}

func TestTableDuplicateSymbol(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	b.Struct(types.StructInfo{Name: "my_point", Fields: []types.Field{{Name: "x", Type: u8}}})
	b.Struct(types.StructInfo{Name: "MyPoint", Fields: []types.Field{
		{Name: "x_value", Type: u8},
		{Name: "XValue", Type: u8},
	}})
	g, err := b.Finalize()
	require.NoError(t, err)
	require.NoError(t, pattern.Classify(g, nil))

	_, err = naming.NewLogical(g).Table("go", pascal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrDuplicateSymbol))
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 2)
	for _, d := range ds {
		assert.Equal(t, "go", d.Target)
	}

	// the same graph is fine when casing keeps the names apart
	_, err = naming.NewLogical(g).Table("c", naming.Style{})
	require.NoError(t, err)
}
