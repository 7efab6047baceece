package naming

import (
	"fmt"

	"fortio.org/safecast"

	"ffigen/internal/diag"
	"ffigen/internal/types"
)

// Table maps nodes, functions and constants to identifiers for one target.
type Table struct {
	target   string
	style    Style
	types    map[types.TypeID]string
	fields   map[types.TypeID][]string
	variants map[types.TypeID][]string
	funcs    []string
	methods  []string
	params   [][]string
	consts   []string
}

type scope struct {
	target string
	used   map[string]diag.NodeRef
	bag    *diag.Bag
}

func newScope(target string, bag *diag.Bag) *scope {
	return &scope{target: target, used: make(map[string]diag.NodeRef), bag: bag}
}

func (s *scope) claim(id string, node diag.NodeRef) {
	if prev, ok := s.used[id]; ok {
		s.bag.Add(diag.Errorf(diag.DuplicateSymbol, node, "identifier %q is already used", id).
			WithNote(prev, "first use").
			WithTarget(s.target))
		return
	}
	s.used[id] = node
}

// Table builds the identifier table for target. Collisions after casing and
// escaping are reported as DuplicateSymbol.
func (l *Logical) Table(target string, style Style) (*Table, error) {
	g := l.g
	bag := diag.NewBag(0)
	t := &Table{
		target:   target,
		style:    style,
		types:    make(map[types.TypeID]string),
		fields:   make(map[types.TypeID][]string),
		variants: make(map[types.TypeID][]string),
	}
	global := newScope(target, bag)

	for _, id := range g.IDs() {
		logical := l.names[id]
		if logical == "" {
			continue
		}
		ident := t.ident(style.Type, logical)
		t.types[id] = ident
		global.claim(ident, types.NodeRef(g, id))

		if s, ok := g.Struct(id); ok {
			local := newScope(target, bag)
			names := make([]string, len(s.Fields))
			for i, f := range s.Fields {
				raw := f.Name
				if raw == "" {
					raw = fmt.Sprintf("field%d", i)
				}
				names[i] = t.ident(style.Field, raw)
				local.claim(names[i], diag.Node("field", uint32(id), s.Name+"."+raw))
			}
			t.fields[id] = names
		}
		if e, ok := g.Enum(id); ok {
			local := newScope(target, bag)
			names := make([]string, len(e.Variants))
			for i, v := range e.Variants {
				raw := v.Name
				if style.VariantPrefix {
					raw = logical + "_" + raw
				}
				names[i] = t.ident(style.Variant, raw)
				node := diag.Node("variant", uint32(id), e.Name+"::"+v.Name)
				if style.VariantPrefix {
					global.claim(names[i], node)
				} else {
					local.claim(names[i], node)
				}
			}
			t.variants[id] = names
		}
	}

	fns := g.Functions()
	t.funcs = make([]string, len(fns))
	t.methods = make([]string, len(fns))
	t.params = make([][]string, len(fns))
	members := make(map[int]*scope)
	fnScope := global
	if style.FunctionsScoped {
		fnScope = newScope(target, bag)
	}
	for i, fn := range fns {
		ref := types.FunctionRef(g, i)
		t.funcs[i] = t.ident(style.Function, fn.Name)
		fnScope.claim(t.funcs[i], ref)

		roles := g.FunctionRoles(i)
		if roles.Service >= 0 {
			method := roles.Method
			if method == "" {
				method = fn.Name
			}
			t.methods[i] = t.ident(style.Method, method)
			sc, ok := members[roles.Service]
			if !ok {
				sc = newScope(target, bag)
				members[roles.Service] = sc
			}
			sc.claim(t.methods[i], ref)
		}

		local := newScope(target, bag)
		t.params[i] = make([]string, len(fn.Params))
		for j, p := range fn.Params {
			raw := p.Name
			if raw == "" {
				raw = fmt.Sprintf("arg%d", j)
			}
			t.params[i][j] = t.ident(style.Param, raw)
			local.claim(t.params[i][j], diag.Node("param", ref.ID, fn.Name+"."+raw))
		}
	}

	consts := g.Constants()
	t.consts = make([]string, len(consts))
	for i, c := range consts {
		t.consts[i] = t.ident(style.Constant, c.Name)
		global.claim(t.consts[i], diag.Node("constant", index32(i), c.Name))
	}

	bag.Sort()
	if err := bag.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func index32(i int) uint32 {
	v, err := safecast.Conv[uint32](i)
	if err != nil {
		return 0
	}
	return v
}

func (t *Table) ident(c Casing, raw string) string {
	id := Sanitize(c.Apply(raw))
	return t.style.Escape(id)
}

// Target returns the target id the table was built for.
func (t *Table) Target() string { return t.target }

// Style returns the naming style of the table.
func (t *Table) Style() Style { return t.style }

// Type returns the identifier of an emittable node.
func (t *Table) Type(id types.TypeID) string { return t.types[id] }

// Field returns the identifier of field i of struct id.
func (t *Table) Field(id types.TypeID, i int) string {
	names := t.fields[id]
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}

// Variant returns the identifier of variant i of enum id.
func (t *Table) Variant(id types.TypeID, i int) string {
	names := t.variants[id]
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}

// Function returns the identifier of the raw binding of function i.
func (t *Table) Function(i int) string {
	if i < 0 || i >= len(t.funcs) {
		return ""
	}
	return t.funcs[i]
}

// Method returns the identifier of function i as a service member.
func (t *Table) Method(i int) string {
	if i < 0 || i >= len(t.methods) {
		return ""
	}
	return t.methods[i]
}

// Param returns the identifier of parameter j of function i.
func (t *Table) Param(i, j int) string {
	if i < 0 || i >= len(t.params) || j < 0 || j >= len(t.params[i]) {
		return ""
	}
	return t.params[i][j]
}

// Constant returns the identifier of constant i.
func (t *Table) Constant(i int) string {
	if i < 0 || i >= len(t.consts) {
		return ""
	}
	return t.consts[i]
}

// Local cases and escapes a helper identifier the emitter introduces.
func (t *Table) Local(c Casing, raw string) string { return t.ident(c, raw) }
