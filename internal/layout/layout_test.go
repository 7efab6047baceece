package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/diag"
	"ffigen/internal/types"
)

func field(name string, t types.TypeID) types.Field { return types.Field{Name: name, Type: t} }

func TestPrimitiveAndPointerLayouts(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	u64 := b.Primitive(types.PrimU64)
	f32 := b.Primitive(types.PrimF32)
	ptr := b.Pointer(u8, false)
	usize := b.Primitive(types.PrimUSize)
	g, err := b.Finalize()
	require.NoError(t, err)

	cases := []struct {
		target Target
		id     types.TypeID
		size   int
		align  int
	}{
		{X86_64LinuxGNU(), u8, 1, 1},
		{X86_64LinuxGNU(), u64, 8, 8},
		{X86_64LinuxGNU(), f32, 4, 4},
		{X86_64LinuxGNU(), ptr, 8, 8},
		{X86_64LinuxGNU(), usize, 8, 8},
		{I686LinuxGNU(), u64, 8, 4},
		{I686LinuxGNU(), ptr, 4, 4},
		{Wasm32(), u64, 8, 8},
		{Wasm32(), usize, 4, 4},
	}
	for _, tc := range cases {
		e := New(tc.target, g)
		l, err := e.LayoutOf(tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.size, l.Size, "%s %s", tc.target.Triple, g.TypeString(tc.id))
		assert.Equal(t, tc.align, l.Align, "%s %s", tc.target.Triple, g.TypeString(tc.id))
	}
}

func TestStructLayoutRepr(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	u16 := b.Primitive(types.PrimU16)
	u32 := b.Primitive(types.PrimU32)
	u64 := b.Primitive(types.PrimU64)

	plain := b.Struct(types.StructInfo{Name: "Plain", Fields: []types.Field{field("a", u8), field("b", u32), field("c", u16)}})
	packed1 := b.Struct(types.StructInfo{Name: "Packed", Repr: types.Repr{Kind: types.ReprPacked},
		Fields: []types.Field{field("x", u8), field("y", u16)}})
	packed2 := b.Struct(types.StructInfo{Name: "Packed2", Repr: types.Repr{Kind: types.ReprPacked, Align: 2},
		Fields: []types.Field{field("x", u8), field("y", u64)}})
	transparent := b.Struct(types.StructInfo{Name: "Tupled", Repr: types.Repr{Kind: types.ReprTransparent},
		Fields: []types.Field{field("x0", u8), field("pad", b.Array(u32, 0))}})
	nested := b.Struct(types.StructInfo{Name: "Nested", Fields: []types.Field{field("p", plain), field("arr", b.Array(packed1, 3))}})
	e := b.Enum(types.EnumInfo{Name: "Small", Base: types.PrimU8, Variants: []types.Variant{{Name: "A"}}})
	withEnum := b.Struct(types.StructInfo{Name: "WithEnum", Fields: []types.Field{field("e", e), field("d", b.Enum(types.EnumInfo{Name: "Def"}))}})
	g, err := b.Finalize()
	require.NoError(t, err)
	eng := New(X86_64LinuxGNU(), g)

	l, err := eng.LayoutOf(plain)
	require.NoError(t, err)
	assert.Equal(t, 12, l.Size)
	assert.Equal(t, 4, l.Align)
	assert.Equal(t, []int{0, 4, 8}, l.FieldOffsets)

	l, err = eng.LayoutOf(packed1)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Size)
	assert.Equal(t, 1, l.Align)
	assert.Equal(t, []int{0, 1}, l.FieldOffsets)

	l, err = eng.LayoutOf(packed2)
	require.NoError(t, err)
	assert.Equal(t, 10, l.Size)
	assert.Equal(t, 2, l.Align)
	assert.Equal(t, []int{0, 2}, l.FieldOffsets)

	l, err = eng.LayoutOf(transparent)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Size)
	assert.Equal(t, 1, l.Align)

	l, err = eng.LayoutOf(nested)
	require.NoError(t, err)
	assert.Equal(t, 24, l.Size)
	assert.Equal(t, []int{0, 12}, l.FieldOffsets)

	l, err = eng.LayoutOf(withEnum)
	require.NoError(t, err)
	assert.Equal(t, 8, l.Size)
	assert.Equal(t, []int{0, 4}, l.FieldOffsets)

	off, err := eng.FieldOffset(plain, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, off)
}

func TestLayoutErrors(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	opaque := b.Opaque(types.OpaqueInfo{Name: "Handle"})
	byValue := b.Struct(types.StructInfo{Name: "HoldsOpaque", Fields: []types.Field{field("h", opaque)}})
	badPack := b.Struct(types.StructInfo{Name: "BadPack", Repr: types.Repr{Kind: types.ReprPacked, Align: 3},
		Fields: []types.Field{field("x", u8)}})
	twoFields := b.Struct(types.StructInfo{Name: "Two", Repr: types.Repr{Kind: types.ReprTransparent},
		Fields: []types.Field{field("a", u8), field("b", u8)}})
	g, err := b.Finalize()
	require.NoError(t, err)
	eng := New(X86_64LinuxGNU(), g)

	_, err = eng.LayoutOf(byValue)
	var lerr *LayoutError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, LayoutErrUnsized, lerr.Kind)
	assert.Equal(t, diag.UnsizedValue, lerr.Code())
	assert.Contains(t, err.Error(), "Handle")

	_, err = eng.LayoutOf(badPack)
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, LayoutErrPackAlign, lerr.Kind)
	assert.Equal(t, 3, lerr.Value)

	_, err = eng.LayoutOf(twoFields)
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, LayoutErrTransparent, lerr.Kind)
	assert.Equal(t, diag.InvalidRepr, lerr.Code())
}

func TestRecursiveAfterInstanceResolution(t *testing.T) {
	// Wrapper<T> { v: T } used as A { w: Wrapper<A> } only becomes a value
	// cycle once the instance is resolved.
	b := types.NewBuilder()
	tp := b.GenericParam("T")
	wrapper := b.Struct(types.StructInfo{Name: "Wrapper", TypeParams: []types.TypeID{tp}, Fields: []types.Field{field("v", tp)}})
	a := b.Declare(types.KindStruct, "", "A")
	inst := b.Instance(wrapper, []types.TypeID{a})
	b.DefineStruct(a, types.StructInfo{Fields: []types.Field{field("w", inst)}})
	g, err := b.Finalize()
	require.NoError(t, err)

	d := g.Derive()
	require.True(t, d.ResolveInstance(inst, types.StructInfo{Name: "WrapperA", Fields: []types.Field{field("v", a)}}))
	ng, err := d.Finalize()
	require.Error(t, err, "finalize of the derived graph sees the cycle")
	assert.Nil(t, ng)
	assert.True(t, errors.Is(err, diag.ErrRecursiveValueType))

	eng := New(X86_64LinuxGNU(), d.View())
	_, err = eng.LayoutOf(a)
	var lerr *LayoutError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, LayoutErrRecursiveUnsized, lerr.Kind)
	assert.Equal(t, []string{"A", "WrapperA", "A"}, lerr.Cycle)
}

func TestRecompute(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	u32 := b.Primitive(types.PrimU32)
	g, err := b.Finalize()
	require.NoError(t, err)
	eng := New(X86_64LinuxGNU(), g)

	l, err := eng.Recompute("X", []types.TypeID{u8, u32}, types.Repr{})
	require.NoError(t, err)
	assert.Equal(t, 8, l.Size)
	l, err = eng.Recompute("X", []types.TypeID{u8, u32}, types.Repr{Kind: types.ReprPacked})
	require.NoError(t, err)
	assert.Equal(t, 5, l.Size)
}

func TestByTriple(t *testing.T) {
	tg, err := ByTriple("")
	require.NoError(t, err)
	assert.Equal(t, "x86_64-linux-gnu", tg.Triple)
	tg, err = ByTriple("i686-linux-gnu")
	require.NoError(t, err)
	assert.Equal(t, 4, tg.PtrSize)
	_, err = ByTriple("sparc")
	require.Error(t, err)
	assert.Len(t, Triples(), 4)
}
