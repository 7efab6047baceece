package validate

import (
	"go.uber.org/zap"

	"ffigen/internal/diag"
	"ffigen/internal/emit"
	"ffigen/internal/logx"
	"ffigen/internal/types"
)

// Manifest runs the post-emission checks of one target. Every struct the
// emitter recorded is laid out again from the emitted field types and
// packing and compared with the IR layout and the native layout reported by
// the front end.
func Manifest(g *types.Graph, opts Options, m *emit.Manifest) error {
	if m == nil {
		return nil
	}
	v := newValidator(g, opts)
	for _, rec := range m.Structs {
		v.record(m.Target, rec)
	}
	v.bag.Sort()
	logx.L().Debug("validated manifest",
		zap.String("target", m.Target),
		zap.Int("structs", len(m.Structs)),
		zap.Int("diagnostics", v.bag.Len()))
	return v.bag.Err()
}

func (v *validator) record(target string, rec emit.StructRecord) {
	g := v.g
	ref := types.NodeRef(g, rec.Type)
	add := func(code diag.Code, format string, args ...any) {
		v.bag.Add(diag.Errorf(code, ref, format, args...).WithTarget(target))
	}
	s, ok := g.Struct(rec.Type)
	if !ok {
		add(diag.UnresolvedType, "emitted struct %s is not a struct of the graph", rec.Name)
		return
	}
	if len(rec.Types) != len(s.Fields) {
		add(diag.FieldOrderMismatch, "%s emitted with %d fields, IR has %d", rec.Name, len(rec.Types), len(s.Fields))
		return
	}
	for i, f := range s.Fields {
		if rec.Types[i] != f.Type {
			add(diag.FieldOrderMismatch, "%s field %d is %s, IR field %s is %s",
				rec.Name, i, g.TypeString(rec.Types[i]), f.Name, g.TypeString(f.Type))
			return
		}
	}

	ir, err := v.eng.LayoutOf(rec.Type)
	if err != nil {
		// reported by the pre-emission checks
		return
	}
	got, err := v.eng.Recompute(rec.Name, rec.Types, rec.Repr)
	if err != nil {
		v.layoutError(ref, target, err)
		return
	}
	if got.Size != ir.Size || got.Align != ir.Align {
		add(diag.LayoutMismatch, "%s emitted as %s has size %d align %d, IR declares %s with size %d align %d",
			rec.Name, rec.Repr, got.Size, got.Align, s.Repr, ir.Size, ir.Align)
		return
	}
	for i := range got.FieldOffsets {
		if got.FieldOffsets[i] != ir.FieldOffsets[i] {
			add(diag.FieldOrderMismatch, "%s field %s emitted at offset %d, IR offset is %d",
				rec.Name, s.Fields[i].Name, got.FieldOffsets[i], ir.FieldOffsets[i])
			return
		}
	}
	if s.ExpectedSize > 0 && s.ExpectedSize != got.Size {
		add(diag.LayoutMismatch, "%s emitted with size %d, native size is %d", rec.Name, got.Size, s.ExpectedSize)
	}
	if s.ExpectedAlign > 0 && s.ExpectedAlign != got.Align {
		add(diag.LayoutMismatch, "%s emitted with align %d, native align is %d", rec.Name, got.Align, s.ExpectedAlign)
	}
}
