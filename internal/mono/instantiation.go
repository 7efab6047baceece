package mono

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"ffigen/internal/types"
)

// InstantiationKey is a comparable key for instantiations.
//
// Note: Go maps cannot use slices as keys, so we store a stable ArgsKey string.
// The corresponding type arguments are stored in InstEntry.
type InstantiationKey struct {
	Family  types.TypeID
	ArgsKey string
}

// InstEntry is one concrete instantiation of a generic family.
type InstEntry struct {
	Key      InstantiationKey
	TypeArgs []types.TypeID
	// Node is the TypeID that now holds the concrete struct.
	Node types.TypeID
	Name string
}

// InstantiationMap tracks all generic instantiations of a graph.
type InstantiationMap struct {
	Entries map[InstantiationKey]*InstEntry
}

// NewInstantiationMap creates a new empty InstantiationMap.
func NewInstantiationMap() *InstantiationMap {
	return &InstantiationMap{Entries: make(map[InstantiationKey]*InstEntry)}
}

func typeArgsKey(args []types.TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte('#')
		}
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return sb.String()
}

// KeyOf builds the map key for a family applied to args.
func KeyOf(family types.TypeID, args []types.TypeID) InstantiationKey {
	return InstantiationKey{Family: family, ArgsKey: typeArgsKey(args)}
}

// Record registers an instantiation. It returns the existing entry when the
// same family and arguments were recorded before.
func (m *InstantiationMap) Record(family types.TypeID, args []types.TypeID, node types.TypeID, name string) (*InstEntry, bool) {
	key := KeyOf(family, args)
	if entry, ok := m.Entries[key]; ok {
		return entry, false
	}
	entry := &InstEntry{
		Key:      key,
		TypeArgs: slices.Clone(args),
		Node:     node,
		Name:     name,
	}
	m.Entries[key] = entry
	return entry, true
}

// Lookup finds the instantiation of family with args.
func (m *InstantiationMap) Lookup(family types.TypeID, args []types.TypeID) (*InstEntry, bool) {
	if m == nil {
		return nil, false
	}
	entry, ok := m.Entries[KeyOf(family, args)]
	return entry, ok
}

// Len returns the number of distinct instantiations.
func (m *InstantiationMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// Sorted returns the entries ordered by node.
func (m *InstantiationMap) Sorted() []*InstEntry {
	if m == nil {
		return nil
	}
	out := make([]*InstEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *InstEntry) int { return cmp.Compare(a.Node, b.Node) })
	return out
}
