package irfile

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ffigen/internal/diag"
	"ffigen/internal/logx"
	"ffigen/internal/types"
)

// Build populates a fresh builder with doc. Every problem in the document is
// collected before returning; the builder is only returned when there were
// none, and it still has to be finalized.
func (d *Document) Build() (*types.Builder, error) {
	r := &resolver{
		b:         types.NewBuilder(),
		bag:       diag.NewBag(0),
		callbacks: make(map[string]*TypeDecl),
		built:     make(map[string]types.TypeID),
		building:  make(map[string]bool),
	}
	r.declare(d.Types)
	for i := range d.Types {
		r.define(&d.Types[i])
	}
	for i := range d.Functions {
		r.function(&d.Functions[i])
	}
	for i := range d.Constants {
		r.constant(&d.Constants[i])
	}
	if err := r.bag.Err(); err != nil {
		return nil, err
	}
	logx.L().Debug("decoded IR",
		zap.String("library", d.Library),
		zap.Int("types", len(d.Types)),
		zap.Int("functions", len(d.Functions)),
		zap.Int("constants", len(d.Constants)))
	return r.b, nil
}

// Graph builds and finalizes doc.
func (d *Document) Graph() (*types.Graph, error) {
	b, err := d.Build()
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

type resolver struct {
	b         *types.Builder
	bag       *diag.Bag
	callbacks map[string]*TypeDecl
	built     map[string]types.TypeID
	building  map[string]bool
}

// scope is the context a type expression is resolved in.
type scope struct {
	namespace string
	params    map[string]types.TypeID
	owner     diag.NodeRef
	what      string
}

func declRef(t *TypeDecl) diag.NodeRef {
	return diag.Node(t.Kind, 0, types.QualifiedName(t.Namespace, t.Name))
}

func (r *resolver) declare(decls []TypeDecl) {
	for i := range decls {
		t := &decls[i]
		if t.Name == "" {
			r.bag.Errorf(diag.InvalidIR, diag.Node(t.Kind, 0, ""), "type %d has no name", i)
			continue
		}
		q := types.QualifiedName(t.Namespace, t.Name)
		switch t.Kind {
		case KindStruct:
			r.b.Declare(types.KindStruct, t.Namespace, t.Name)
		case KindEnum:
			r.b.Declare(types.KindEnum, t.Namespace, t.Name)
		case KindOpaque:
			r.b.Declare(types.KindOpaque, t.Namespace, t.Name)
		case KindCallback:
			if _, dup := r.callbacks[q]; dup {
				r.bag.Errorf(diag.DuplicateSymbol, declRef(t), "callback %s is declared twice", q)
				continue
			}
			r.callbacks[q] = t
		default:
			r.bag.Errorf(diag.InvalidIR, declRef(t), "unknown kind %q (want struct, enum, opaque or callback)", t.Kind)
		}
	}
	for q, t := range r.callbacks {
		if _, clash := r.b.ByName(q); clash {
			r.bag.Errorf(diag.DuplicateSymbol, declRef(t), "%s is declared both as a callback and as a type", q)
		}
	}
}

func (r *resolver) define(t *TypeDecl) {
	if t.Name == "" {
		return
	}
	q := types.QualifiedName(t.Namespace, t.Name)
	sc := &scope{namespace: t.Namespace, owner: declRef(t)}
	switch t.Kind {
	case KindStruct:
		id, _ := r.b.ByName(q)
		info := types.StructInfo{
			Doc:           t.Doc,
			Hint:          t.Hint,
			ExpectedSize:  t.Size,
			ExpectedAlign: t.Align,
		}
		if len(t.Generics) > 0 {
			sc.params = make(map[string]types.TypeID, len(t.Generics))
			for _, name := range t.Generics {
				p := r.b.GenericParam(name)
				sc.params[name] = p
				info.TypeParams = append(info.TypeParams, p)
			}
		}
		repr, ok := parseRepr(t.Repr)
		if !ok {
			r.bag.Errorf(diag.InvalidRepr, sc.owner, "unknown repr %q", t.Repr)
		}
		info.Repr = repr
		for _, f := range t.Fields {
			sc.what = "field " + f.Name
			info.Fields = append(info.Fields, types.Field{Name: f.Name, Type: r.typeOf(f.Type, sc), Doc: f.Doc})
		}
		r.b.DefineStruct(id, info)
	case KindEnum:
		id, _ := r.b.ByName(q)
		info := types.EnumInfo{Doc: t.Doc}
		if t.Base != "" {
			p, ok := types.ParsePrimitive(t.Base)
			if !ok || !p.IsInteger() {
				r.bag.Errorf(diag.IRBadTypeExpr, sc.owner, "enum base %q is not an integer type", t.Base)
			}
			info.Base = p
		}
		for _, v := range t.Variants {
			info.Variants = append(info.Variants, types.Variant{Name: v.Name, Value: v.Value, Doc: v.Doc})
		}
		r.b.DefineEnum(id, info)
	case KindOpaque:
		id, _ := r.b.ByName(q)
		r.b.DefineOpaque(id, t.Doc)
	case KindCallback:
		r.callback(q)
	}
}

// callback builds the named callback q once, resolving its signature in the
// callback's own namespace.
func (r *resolver) callback(q string) types.TypeID {
	if id, ok := r.built[q]; ok {
		return id
	}
	t := r.callbacks[q]
	if r.building[q] {
		r.bag.Errorf(diag.IRBadTypeExpr, declRef(t), "callback %s refers to itself", q)
		return types.NoTypeID
	}
	r.building[q] = true
	defer delete(r.building, q)

	sc := &scope{namespace: t.Namespace, owner: declRef(t)}
	params := make([]types.TypeID, len(t.Args))
	for i, a := range t.Args {
		sc.what = "argument " + strconv.Itoa(i)
		params[i] = r.typeOf(a, sc)
	}
	sc.what = "return type"
	ret := r.typeOrVoid(t.Ret, sc)
	id := r.b.FnPointerDoc(t.Name, t.Doc, params, ret)
	r.built[q] = id
	return id
}

func (r *resolver) function(f *FuncDecl) {
	sc := &scope{owner: diag.Node("function", 0, f.Name)}
	fn := types.Function{
		Name:   f.Name,
		Doc:    f.Doc,
		RetDoc: f.RetDoc,
		Annotations: types.Annotations{
			Async:           f.Async,
			RaisesOnPanic:   f.RaisesOnPanic,
			MustCheckResult: f.MustCheck,
		},
	}
	if f.Name == "" {
		r.bag.Errorf(diag.InvalidIR, sc.owner, "function without a name")
	}
	switch f.Lifecycle {
	case "":
	case "constructor":
		fn.Annotations.Lifecycle = types.LifecycleConstructor
	case "destructor":
		fn.Annotations.Lifecycle = types.LifecycleDestructor
	default:
		r.bag.Errorf(diag.InvalidIR, sc.owner, "unknown lifecycle %q", f.Lifecycle)
	}
	for _, p := range f.Params {
		sc.what = "parameter " + p.Name
		fn.Params = append(fn.Params, types.Param{Name: p.Name, Type: r.typeOf(p.Type, sc), Doc: p.Doc})
	}
	sc.what = "return type"
	fn.Ret = r.typeOrVoid(f.Ret, sc)
	r.b.AddFunction(fn)
}

func (r *resolver) constant(c *ConstDecl) {
	sc := &scope{owner: diag.Node("constant", 0, c.Name), what: "type"}
	p, ok := types.ParsePrimitive(strings.TrimSpace(c.Type))
	if !ok || p == types.PrimVoid {
		r.bag.Errorf(diag.IRBadTypeExpr, sc.owner, "constant type %q is not a primitive", c.Type)
		return
	}
	v, err := literal(p, strings.TrimSpace(c.Value))
	if err != nil {
		r.bag.Errorf(diag.IRBadLiteral, sc.owner, "%s literal %q: %v", p, c.Value, err)
		return
	}
	r.b.AddConstant(types.Constant{Name: c.Name, Doc: c.Doc, Type: r.b.Primitive(p), Value: v})
}

func (r *resolver) typeOrVoid(src string, sc *scope) types.TypeID {
	if strings.TrimSpace(src) == "" {
		return r.b.Void()
	}
	return r.typeOf(src, sc)
}

// typeOf parses and resolves src, reporting problems against the scope's
// owner. It returns NoTypeID on failure.
func (r *resolver) typeOf(src string, sc *scope) types.TypeID {
	e, err := ParseType(src)
	if err != nil {
		r.bag.Errorf(diag.IRBadTypeExpr, sc.owner, "%s: %q: %v", sc.what, src, err)
		return types.NoTypeID
	}
	return r.resolve(e, sc)
}

func (r *resolver) resolve(e *Expr, sc *scope) types.TypeID {
	switch e.Kind {
	case ExprPointer:
		elem := r.resolve(e.Elem, sc)
		if elem == types.NoTypeID {
			return elem
		}
		return r.b.Pointer(elem, e.Mutable)
	case ExprArray:
		elem := r.resolve(e.Elem, sc)
		if elem == types.NoTypeID {
			return elem
		}
		return r.b.Array(elem, e.Len)
	case ExprFn:
		params := make([]types.TypeID, len(e.Params))
		for i, p := range e.Params {
			if params[i] = r.resolve(p, sc); params[i] == types.NoTypeID {
				return types.NoTypeID
			}
		}
		ret := r.b.Void()
		if e.Ret != nil {
			if ret = r.resolve(e.Ret, sc); ret == types.NoTypeID {
				return ret
			}
		}
		return r.b.FnPointer("", params, ret)
	}

	if len(e.Args) == 0 {
		if p, ok := types.ParsePrimitive(e.Path); ok {
			return r.b.Primitive(p)
		}
		if p, ok := sc.params[e.Path]; ok {
			return p
		}
	}
	id, ok := r.lookup(e.Path, sc)
	if !ok {
		r.bag.Errorf(diag.UnresolvedType, sc.owner, "%s: unknown type %s", sc.what, e.Path)
		return types.NoTypeID
	}
	if id == types.NoTypeID || len(e.Args) == 0 {
		return id
	}
	args := make([]types.TypeID, len(e.Args))
	for i, a := range e.Args {
		if args[i] = r.resolve(a, sc); args[i] == types.NoTypeID {
			return types.NoTypeID
		}
	}
	return r.b.Instance(id, args)
}

// lookup finds a nominal type or callback. Unqualified names are searched in
// the scope's namespace first. A callback whose signature failed to resolve
// is found but yields NoTypeID.
func (r *resolver) lookup(name string, sc *scope) (types.TypeID, bool) {
	candidates := []string{name}
	if sc.namespace != "" && !strings.Contains(name, "::") {
		candidates = []string{types.QualifiedName(sc.namespace, name), name}
	}
	for _, q := range candidates {
		if id, ok := r.b.ByName(q); ok {
			return id, true
		}
		if _, ok := r.callbacks[q]; ok {
			return r.callback(q), true
		}
	}
	return types.NoTypeID, false
}

func parseRepr(s string) (types.Repr, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "c", "C":
		return types.Repr{}, true
	case "transparent":
		return types.Repr{Kind: types.ReprTransparent}, true
	case "packed":
		return types.Repr{Kind: types.ReprPacked}, true
	}
	if inner, ok := strings.CutPrefix(s, "packed("); ok {
		if n, ok := strings.CutSuffix(inner, ")"); ok {
			align, err := strconv.Atoi(strings.TrimSpace(n))
			if err == nil && align > 0 {
				return types.Repr{Kind: types.ReprPacked, Align: align}, true
			}
		}
	}
	return types.Repr{}, false
}

// ReprString spells r the way parseRepr reads it.
func ReprString(r types.Repr) string {
	switch r.Kind {
	case types.ReprTransparent:
		return "transparent"
	case types.ReprPacked:
		if r.Align > 0 {
			return "packed(" + strconv.Itoa(r.Align) + ")"
		}
		return "packed"
	}
	return ""
}

// literal interprets s as a value of primitive p. Integers accept the 0x,
// 0o and 0b prefixes.
func literal(p types.Primitive, s string) (types.Value, error) {
	bits := p.Bits()
	if bits == 0 {
		bits = 64
	}
	switch {
	case p == types.PrimBool:
		v, err := strconv.ParseBool(s)
		return types.BoolValue(v), err
	case p.IsFloat():
		v, err := strconv.ParseFloat(s, 64)
		if err == nil && p == types.PrimF32 && math.Abs(v) > math.MaxFloat32 && !math.IsInf(v, 0) {
			err = strconv.ErrRange
		}
		return types.FloatValue(v), err
	case p.IsSigned():
		v, err := strconv.ParseInt(s, 0, bits)
		return types.IntValue(v), err
	case p.IsInteger():
		v, err := strconv.ParseUint(s, 0, bits)
		return types.UintValue(v), err
	}
	return types.Value{}, strconv.ErrSyntax
}
