package c

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/backend/backendtest"
	"ffigen/internal/emit"
	"ffigen/internal/types"
)

func TestHeader(t *testing.T) {
	out := backendtest.Generate(t, New(), emit.Options{Module: "reference"})
	require.Len(t, out.Files, 1)
	h := backendtest.File(t, out, "reference.h")

	assert.Contains(t, h, "#ifndef REFERENCE_H")
	assert.Contains(t, h, "#define REFERENCE_API_GUARD UINT64_C(0x")
	assert.Contains(t, h, "typedef struct Vec3f32 Vec3f32;")
	assert.Contains(t, h, "typedef struct SimpleService SimpleService;")
	backendtest.Before(t, h, "typedef struct Vec3f32 Vec3f32;", "struct Vec3f32 {")
	backendtest.Before(t, h, "struct Vec3f32 {", "struct NestedArray {")
	assert.Contains(t, h, "// size 12, align 4")
	assert.Contains(t, h, "struct common_Vec {")

	packed := backendtest.Section(t, h, "#pragma pack(push, 1)", "#pragma pack(pop)")
	assert.Contains(t, packed, "struct Packed1 {")
	assert.Contains(t, packed, "uint16_t y;")
	assert.Contains(t, h, "#pragma pack(push, 2)")

	assert.Contains(t, h, "uint8_t data[16];")
	assert.Contains(t, h, "uint16_t field_array[5];")
	assert.Contains(t, h, "typedef enum FFIError {")
	assert.Contains(t, h, "FFI_ERROR_NULL_PASSED = 100,")
	assert.Contains(t, h, "return code == FFI_ERROR_OK;")
	assert.Contains(t, h, "typedef uint32_t (*MyCallback)(uint32_t);")
	assert.Contains(t, h, "typedef void (*MyCallbackContextual)(uint32_t, void *);")
	assert.Contains(t, h, "typedef uint8_t (*CallbackSlice)(Sliceu8);")
	backendtest.Before(t, h, "struct Sliceu8 {", "(*CallbackSlice)")

	assert.Contains(t, h, "#define U8 255u")
	assert.Contains(t, h, "#define COMPUTED_I32 (-2147483647)")
	assert.Contains(t, h, "#define F32_MIN_POSITIVE 1.1754944e-38f")
	assert.Contains(t, h, "#define ENABLED true")

	assert.Contains(t, h, "void primitive_void(void);")
	assert.Contains(t, h, "Vec vec_add(Vec a, common_Vec b);")
	assert.Contains(t, h, "const uint8_t *pattern_ascii_pointer_return(void);")
	assert.Contains(t, h, "// x: NUL-terminated input.")
	assert.Contains(t, h, "FFIError simple_service_new_with(SimpleService **context, uint32_t some_value);")
	assert.Contains(t, h, "FFIError simple_service_method_result(const SimpleService *context, uint32_t x);")
	assert.Contains(t, h, "FFIError simple_service_method_async(SimpleService *context, uint64_t x, AsyncCallback callback, void *callback_context);")
	assert.Contains(t, h, "#endif // REFERENCE_H")
}

func TestPatternHelpers(t *testing.T) {
	out := backendtest.Generate(t, New(), emit.Options{})
	h := backendtest.File(t, out, "bindings.h")

	get := backendtest.Section(t, h, "static inline const uint32_t *Sliceu32_get(Sliceu32 s, uint64_t i) {", "}")
	assert.Contains(t, get, "i < (uint64_t)s.len ? &s.data[i] : NULL")
	assert.Contains(t, h, "static inline uint8_t *SliceMutu8_get(SliceMutu8 s, uint64_t i) {")

	assert.Contains(t, h, "return o->is_some <= 1;")
	assert.Contains(t, h, "return o->is_some == 1;")
	assert.Contains(t, h, "return r->err == FFI_ERROR_OK;")
	assert.Contains(t, h, "Release every value exactly once with utf8_string_destroy.")
	backendtest.Before(t, h, "// Service SimpleService.", "FFIError simple_service_destroy(SimpleService **context);")
}

func TestManifestRecordsPacking(t *testing.T) {
	out := backendtest.Generate(t, New(), emit.Options{})
	var packed *emit.StructRecord
	for i := range out.Manifest.Structs {
		if out.Manifest.Structs[i].Name == "Packed2" {
			packed = &out.Manifest.Structs[i]
		}
	}
	require.NotNil(t, packed)
	assert.Equal(t, types.Repr{Kind: types.ReprPacked, Align: 2}, packed.Repr)
	assert.Equal(t, []string{"x", "y"}, packed.Fields)
}

func TestPrinterDeclarators(t *testing.T) {
	b := types.NewBuilder()
	u8 := b.Primitive(types.PrimU8)
	arr := b.Array(b.Array(u8, 4), 2)
	pp := b.Pointer(b.Pointer(u8, true), false)
	parr := b.Pointer(b.Array(u8, 3), true)
	g, err := b.Finalize()
	require.NoError(t, err)
	p := Printer{Graph: g, Name: func(types.TypeID) string { return "X" }}

	assert.Equal(t, "uint8_t m[2][4]", p.Decl(arr, "m"))
	assert.Equal(t, "uint8_t *const *v", p.Decl(pp, "v"))
	assert.Equal(t, "uint8_t (*a)[3]", p.Decl(parr, "a"))
	assert.Equal(t, "uint8_t", p.Type(u8))
	assert.Equal(t, "(INT64_C(-5))", p.Literal(g.Primitive(types.PrimI64), types.IntValue(-5)))
	assert.Equal(t, "UINT64_C(7)", p.Literal(g.Primitive(types.PrimU64), types.UintValue(7)))
}
