package layout

import (
	"ffigen/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Struct-only:
	FieldOffsets []int
	FieldAligns  []int
}

// LayoutEngine computes memory layout for types.
type LayoutEngine struct {
	Target Target
	Types  *types.Graph

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, g *types.Graph) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Types:  g,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		stack: nil,
		index: make(map[types.TypeID]int, 32),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	layout, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}

func (e *LayoutEngine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := make([]string, 0, len(state.stack)-idx+1)
		for _, id := range state.stack[idx:] {
			if e.Types.Kind(id) == types.KindArray {
				continue
			}
			cycle = append(cycle, e.Types.TypeString(id))
		}
		cycle = append(cycle, e.Types.TypeString(t))
		err := &LayoutError{
			Kind:  LayoutErrRecursiveUnsized,
			Type:  t,
			Name:  e.Types.TypeString(t),
			Cycle: cycle,
		}
		// not cached: the same node is reachable without a cycle from other roots
		return TypeLayout{Size: 0, Align: 1}, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	layout, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, &cacheEntry{Layout: layout, Err: err})
	return layout, err
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a struct field.
func (e *LayoutEngine) FieldOffset(structT types.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(structT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}

// Recompute lays out an arbitrary field list with the given representation.
// The validator uses it to check what an emitter actually wrote against the
// IR layout.
func (e *LayoutEngine) Recompute(name string, fields []types.TypeID, repr types.Repr) (TypeLayout, error) {
	info := &types.StructInfo{Name: name, Repr: repr, Fields: make([]types.Field, len(fields))}
	for i, f := range fields {
		info.Fields[i] = types.Field{Type: f}
	}
	layout, err := e.structLayout(types.NoTypeID, info, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}
