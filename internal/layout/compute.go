package layout

import (
	"fortio.org/safecast"

	"ffigen/internal/types"
)

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	g := e.Types
	tt, ok := g.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, e.unsized(id)
	}

	switch tt.Kind {
	case types.KindPrimitive:
		return e.primitiveLayout(id, tt.Prim)

	case types.KindPointer, types.KindFnPointer:
		return e.ptrLayout(), nil

	case types.KindEnum:
		info, _ := g.Enum(id)
		return e.primitiveLayout(id, info.BaseOrDefault())

	case types.KindArray:
		return e.arrayFixedLayout(tt.Elem, tt.Len, state)

	case types.KindStruct:
		info, _ := g.Struct(id)
		if info.IsGeneric() {
			return TypeLayout{Size: 0, Align: 1}, e.unsized(id)
		}
		return e.structLayout(id, info, state)

	default:
		// opaque, generic parameters and unresolved instances
		return TypeLayout{Size: 0, Align: 1}, e.unsized(id)
	}
}

func (e *LayoutEngine) unsized(id types.TypeID) *LayoutError {
	return &LayoutError{Kind: LayoutErrUnsized, Type: id, Name: e.Types.TypeString(id)}
}

func (e *LayoutEngine) primitiveLayout(id types.TypeID, p types.Primitive) (TypeLayout, *LayoutError) {
	switch p {
	case types.PrimVoid:
		return TypeLayout{Size: 0, Align: 1}, e.unsized(id)
	case types.PrimUSize, types.PrimISize:
		return e.ptrLayout(), nil
	case types.PrimU64, types.PrimI64, types.PrimF64:
		align := e.Target.I64Align
		if align <= 0 {
			align = 8
		}
		return TypeLayout{Size: 8, Align: align}, nil
	}
	return scalarLayoutBytes(p.Bits() / 8), nil
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func (e *LayoutEngine) arrayFixedLayout(elem types.TypeID, length uint32, state *layoutState) (TypeLayout, *LayoutError) {
	elemLayout, err := e.layoutOf(elem, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	elemAlign := elemLayout.Align
	if elemAlign <= 0 {
		elemAlign = 1
	}
	stride := roundUp(elemLayout.Size, elemAlign)
	n, convErr := safecast.Conv[int](length)
	if convErr != nil {
		n = 0
	}
	return TypeLayout{
		Size:  stride * n,
		Align: elemAlign,
	}, nil
}

func (e *LayoutEngine) structLayout(id types.TypeID, info *types.StructInfo, state *layoutState) (TypeLayout, *LayoutError) {
	fields := info.Fields
	offsets := make([]int, len(fields))
	aligns := make([]int, len(fields))
	name := info.Name
	if id != types.NoTypeID {
		name = e.Types.TypeString(id)
	}

	fieldLayouts := make([]TypeLayout, len(fields))
	for i := range fields {
		fl, err := e.layoutOf(fields[i].Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fieldLayouts[i] = fl
	}

	switch info.Repr.Kind {
	case types.ReprTransparent:
		nonZero := -1
		count := 0
		for i, fl := range fieldLayouts {
			if fl.Size > 0 {
				nonZero = i
				count++
			}
		}
		if count != 1 {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrTransparent, Type: id, Name: name, Value: count}
		}
		for i := range aligns {
			aligns[i] = fieldLayouts[i].Align
		}
		inner := fieldLayouts[nonZero]
		return TypeLayout{
			Size:         inner.Size,
			Align:        inner.Align,
			FieldOffsets: offsets,
			FieldAligns:  aligns,
		}, nil

	case types.ReprPacked:
		pack := info.Repr.PackAlign()
		if !isPowerOfTwo(pack) {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrPackAlign, Type: id, Name: name, Value: pack}
		}
		return cLayout(fieldLayouts, offsets, aligns, pack), nil
	}
	return cLayout(fieldLayouts, offsets, aligns, 0), nil
}

// cLayout places fields in order with natural alignment, capped at pack
// when pack > 0.
func cLayout(fieldLayouts []TypeLayout, offsets, aligns []int, pack int) TypeLayout {
	size := 0
	align := 1
	for i, fl := range fieldLayouts {
		fAlign := fl.Align
		if fAlign <= 0 {
			fAlign = 1
		}
		if pack > 0 {
			fAlign = min(fAlign, pack)
		}
		size = roundUp(size, fAlign)
		offsets[i] = size
		aligns[i] = fAlign
		size += fl.Size
		align = max(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{
		Size:         size,
		Align:        align,
		FieldOffsets: offsets,
		FieldAligns:  aligns,
	}
}
