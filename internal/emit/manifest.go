package emit

import (
	"slices"

	"ffigen/internal/types"
)

// StructRecord describes a struct exactly as an emitter wrote it: the field
// types in emitted order and the packing it declared.
type StructRecord struct {
	Type   types.TypeID
	Name   string
	Fields []string
	Types  []types.TypeID
	Repr   types.Repr
}

// Manifest lists the structs an emitter produced. The validator recomputes
// their layout and compares it with the IR.
type Manifest struct {
	Target  string
	Structs []StructRecord
}

// Record adds a struct. Recording the same node twice keeps the last entry.
func (m *Manifest) Record(r StructRecord) {
	r.Fields = slices.Clone(r.Fields)
	r.Types = slices.Clone(r.Types)
	for i := range m.Structs {
		if m.Structs[i].Type == r.Type {
			m.Structs[i] = r
			return
		}
	}
	m.Structs = append(m.Structs, r)
}

// Lookup returns the record of id.
func (m *Manifest) Lookup(id types.TypeID) (StructRecord, bool) {
	for _, r := range m.Structs {
		if r.Type == id {
			return r, true
		}
	}
	return StructRecord{}, false
}
