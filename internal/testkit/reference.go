package testkit

import (
	"ffigen/internal/types"
)

// Reference populates a builder with the reference library surface used
// across package tests: primitives, namespaces, packed and transparent
// structs, generics, every pattern and a service with sync and async
// methods.
func Reference() *types.Builder {
	b := types.NewBuilder()
	var (
		void  = b.Void()
		boolT = b.Primitive(types.PrimBool)
		u8    = b.Primitive(types.PrimU8)
		u16   = b.Primitive(types.PrimU16)
		u32   = b.Primitive(types.PrimU32)
		u64   = b.Primitive(types.PrimU64)
		i8    = b.Primitive(types.PrimI8)
		i32   = b.Primitive(types.PrimI32)
		i64   = b.Primitive(types.PrimI64)
		f32   = b.Primitive(types.PrimF32)
		f64   = b.Primitive(types.PrimF64)
		ctx   = b.Pointer(void, true)
	)
	tp := b.GenericParam("T")

	ffiError := b.Enum(types.EnumInfo{
		Name: "FFIError",
		Doc:  "Error codes returned by every fallible call.",
		Base: types.PrimI32,
		Variants: []types.Variant{
			{Name: "Ok", Value: 0, Doc: "Success."},
			{Name: "NullPassed", Value: 100},
			{Name: "Panic", Value: 200},
			{Name: "Fail", Value: 300},
		},
	})
	documented := b.Enum(types.EnumInfo{
		Name: "EnumDocumented",
		Doc:  "Documented enum.",
		Variants: []types.Variant{
			{Name: "A", Value: 0, Doc: "Variant A."},
			{Name: "B", Value: 1},
			{Name: "C", Value: 2},
		},
	})

	vec := b.Struct(types.StructInfo{Name: "Vec", Fields: []types.Field{
		{Name: "x", Type: f32},
		{Name: "y", Type: f32},
	}})
	commonVec := b.Struct(types.StructInfo{Name: "Vec", Namespace: "common", Fields: []types.Field{
		{Name: "x", Type: f64},
		{Name: "z", Type: f64},
	}})
	vec3 := b.Struct(types.StructInfo{Name: "Vec3f32", ExpectedSize: 12, ExpectedAlign: 4, Fields: []types.Field{
		{Name: "x", Type: f32},
		{Name: "y", Type: f32},
		{Name: "z", Type: f32},
	}})
	structDoc := b.Struct(types.StructInfo{Name: "StructDocumented", Doc: "Documented struct.", Fields: []types.Field{
		{Name: "x", Type: f32, Doc: "Documented field."},
	}})
	packed1 := b.Struct(types.StructInfo{Name: "Packed1", Repr: types.Repr{Kind: types.ReprPacked}, ExpectedSize: 3, Fields: []types.Field{
		{Name: "x", Type: u8},
		{Name: "y", Type: u16},
	}})
	packed2 := b.Struct(types.StructInfo{Name: "Packed2", Repr: types.Repr{Kind: types.ReprPacked, Align: 2}, Fields: []types.Field{
		{Name: "x", Type: u8},
		{Name: "y", Type: u64},
	}})
	tupled := b.Struct(types.StructInfo{Name: "Tupled", Repr: types.Repr{Kind: types.ReprTransparent}, Fields: []types.Field{
		{Name: "x0", Type: u8},
	}})
	array := b.Struct(types.StructInfo{Name: "Array", Fields: []types.Field{
		{Name: "data", Type: b.Array(u8, 16)},
	}})
	nested := b.Struct(types.StructInfo{Name: "NestedArray", Fields: []types.Field{
		{Name: "field_enum", Type: documented},
		{Name: "field_vec", Type: vec3},
		{Name: "field_array", Type: b.Array(u16, 5)},
		{Name: "field_bool", Type: boolT},
	}})
	inner := b.Struct(types.StructInfo{Name: "Inner", Fields: []types.Field{{Name: "x", Type: f32}}})

	generic := b.Struct(types.StructInfo{Name: "Generic", TypeParams: []types.TypeID{tp}, Fields: []types.Field{
		{Name: "x", Type: b.Pointer(tp, false)},
	}})
	slice := b.Struct(types.StructInfo{Name: "Slice", TypeParams: []types.TypeID{tp}, Hint: "slice", Fields: []types.Field{
		{Name: "data", Type: b.Pointer(tp, false)},
		{Name: "len", Type: u64},
	}})
	sliceMut := b.Struct(types.StructInfo{Name: "SliceMut", TypeParams: []types.TypeID{tp}, Hint: "slice", Fields: []types.Field{
		{Name: "data", Type: b.Pointer(tp, true)},
		{Name: "len", Type: u64},
	}})
	option := b.Struct(types.StructInfo{Name: "Option", TypeParams: []types.TypeID{tp}, Fields: []types.Field{
		{Name: "t", Type: tp},
		{Name: "is_some", Type: u8},
	}})
	result := b.Struct(types.StructInfo{Name: "Result", TypeParams: []types.TypeID{tp}, Fields: []types.Field{
		{Name: "t", Type: tp},
		{Name: "err", Type: ffiError},
	}})
	utf8 := b.Struct(types.StructInfo{Name: "Utf8String", Doc: "Owned UTF-8 string.", Fields: []types.Field{
		{Name: "ptr", Type: b.Pointer(u8, true)},
		{Name: "len", Type: u64},
		{Name: "capacity", Type: u64},
	}})
	opaque := b.Opaque(types.OpaqueInfo{Name: "Opaque", Doc: "Handle without lifecycle."})
	service := b.Opaque(types.OpaqueInfo{Name: "SimpleService", Doc: "A stateful service."})

	genU32 := b.Instance(generic, []types.TypeID{u32})
	sliceU32 := b.Instance(slice, []types.TypeID{u32})
	sliceVec := b.Instance(slice, []types.TypeID{vec3})
	sliceU8 := b.Instance(slice, []types.TypeID{u8})
	sliceMutU8 := b.Instance(sliceMut, []types.TypeID{u8})
	optInner := b.Instance(option, []types.TypeID{inner})
	resU32 := b.Instance(result, []types.TypeID{u32})

	myCallback := b.FnPointerDoc("MyCallback", "Plain callback.", []types.TypeID{u32}, u32)
	contextual := b.FnPointer("MyCallbackContextual", []types.TypeID{u32, ctx}, void)
	sliceDelegate := b.FnPointer("CallbackSlice", []types.TypeID{sliceU8}, u8)
	asyncDone := b.FnPointer("AsyncCallback", []types.TypeID{u64, ctx}, void)
	svcPtr := b.Pointer(service, true)
	svcOut := b.Pointer(svcPtr, true)
	bytePtr := b.Pointer(u8, false)

	prim := func(name string, t types.TypeID) {
		b.AddFunction(types.Function{Name: name, Params: []types.Param{{Name: "x", Type: t}}, Ret: t})
	}
	b.AddFunction(types.Function{Name: "primitive_void", Doc: "Does nothing."})
	prim("primitive_bool", boolT)
	prim("primitive_u8", u8)
	prim("primitive_u16", u16)
	prim("primitive_u32", u32)
	prim("primitive_u64", u64)
	prim("primitive_i8", i8)
	prim("primitive_i64", i64)
	prim("primitive_f32", f32)
	prim("primitive_f64", f64)

	b.AddFunction(types.Function{Name: "vec_add", Params: []types.Param{{Name: "a", Type: vec}, {Name: "b", Type: commonVec}}, Ret: vec})
	b.AddFunction(types.Function{Name: "struct_documented", Doc: "Takes a documented struct.",
		Params: []types.Param{{Name: "x", Type: structDoc}}, Ret: documented})
	b.AddFunction(types.Function{Name: "packed_to_packed", Params: []types.Param{{Name: "a", Type: packed1}}, Ret: packed2})
	b.AddFunction(types.Function{Name: "tupled", Params: []types.Param{{Name: "x", Type: tupled}}, Ret: tupled})
	b.AddFunction(types.Function{Name: "array_1", Params: []types.Param{{Name: "x", Type: array}}, Ret: u8})
	b.AddFunction(types.Function{Name: "nested_array_1", Ret: nested})
	b.AddFunction(types.Function{Name: "ref_opaque", Params: []types.Param{{Name: "x", Type: b.Pointer(opaque, false)}}, Ret: boolT})
	b.AddFunction(types.Function{Name: "generic_1", Params: []types.Param{{Name: "x", Type: genU32}}, Ret: u32})

	b.AddFunction(types.Function{Name: "pattern_ffi_slice_1", Params: []types.Param{{Name: "ffi_slice", Type: sliceU32}}, Ret: u32})
	b.AddFunction(types.Function{Name: "pattern_ffi_slice_2", Params: []types.Param{
		{Name: "ffi_slice", Type: sliceVec},
		{Name: "i", Type: i32},
	}, Ret: vec3})
	b.AddFunction(types.Function{Name: "pattern_ffi_slice_mut", Params: []types.Param{{Name: "slice", Type: sliceMutU8}}})
	b.AddFunction(types.Function{Name: "pattern_ffi_slice_delegate", Params: []types.Param{{Name: "callback", Type: sliceDelegate}}, Ret: u8})
	b.AddFunction(types.Function{Name: "pattern_ffi_option_1", Params: []types.Param{{Name: "ffi_option", Type: optInner}}, Ret: optInner})
	b.AddFunction(types.Function{Name: "pattern_result_1", Params: []types.Param{{Name: "x", Type: resU32}}, Ret: resU32})
	b.AddFunction(types.Function{Name: "pattern_result_2", Ret: ffiError})
	b.AddFunction(types.Function{Name: "pattern_ascii_pointer_1", Params: []types.Param{
		{Name: "x", Type: bytePtr, Doc: "NUL-terminated input."},
	}, Ret: u32})
	b.AddFunction(types.Function{Name: "pattern_ascii_pointer_return", Ret: bytePtr, RetDoc: "A static C string."})
	b.AddFunction(types.Function{Name: "pattern_string_1", Params: []types.Param{{Name: "x", Type: utf8}}, Ret: utf8})
	b.AddFunction(types.Function{Name: "utf8_string_destroy", Params: []types.Param{{Name: "x", Type: utf8}}})
	b.AddFunction(types.Function{Name: "callback_1", Params: []types.Param{
		{Name: "callback", Type: myCallback},
		{Name: "x", Type: u32},
	}, Ret: u32})
	b.AddFunction(types.Function{Name: "callback_contextual", Params: []types.Param{
		{Name: "callback", Type: contextual},
		{Name: "context", Type: ctx},
	}})

	b.AddFunction(types.Function{Name: "simple_service_new_with", Doc: "Creates a service.", Params: []types.Param{
		{Name: "context", Type: svcOut},
		{Name: "some_value", Type: u32},
	}, Ret: ffiError})
	b.AddFunction(types.Function{Name: "simple_service_destroy", Params: []types.Param{{Name: "context", Type: svcOut}}, Ret: ffiError})
	b.AddFunction(types.Function{Name: "simple_service_method_value", Params: []types.Param{
		{Name: "context", Type: svcPtr},
		{Name: "x", Type: u32},
	}, Ret: u32})
	b.AddFunction(types.Function{Name: "simple_service_method_result", Params: []types.Param{
		{Name: "context", Type: b.Pointer(service, false)},
		{Name: "x", Type: u32},
	}, Ret: ffiError})
	b.AddFunction(types.Function{Name: "simple_service_method_async", Params: []types.Param{
		{Name: "context", Type: svcPtr},
		{Name: "x", Type: u64},
		{Name: "callback", Type: asyncDone},
		{Name: "callback_context", Type: ctx},
	}, Ret: ffiError, Annotations: types.Annotations{Async: true}})

	b.AddFunction(types.Function{Name: "api_guard", Doc: "Returns the API hash the library was built with.", Ret: u64})

	b.AddConstant(types.Constant{Name: "U8", Type: u8, Value: types.UintValue(255)})
	b.AddConstant(types.Constant{Name: "COMPUTED_I32", Type: i32, Value: types.IntValue(-2147483647)})
	b.AddConstant(types.Constant{Name: "F32_MIN_POSITIVE", Type: f32, Value: types.FloatValue(1.1754944e-38)})
	b.AddConstant(types.Constant{Name: "ENABLED", Type: boolT, Value: types.BoolValue(true)})
	return b
}

// ReferenceGraph finalizes the reference surface.
func ReferenceGraph() (*types.Graph, error) {
	return Reference().Finalize()
}
