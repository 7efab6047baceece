package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"ffigen/internal/diag"
)

type typeKey struct {
	Kind    Kind
	Prim    Primitive
	Elem    TypeID
	Len     uint32
	Mutable bool
}

// Builder assembles a type graph. Structural nodes are interned so identical
// shapes share one TypeID; nominal nodes are declared by qualified name and
// may be referenced before they are defined.
type Builder struct {
	g        *Graph
	index    map[typeKey]TypeID
	keyed    map[string]TypeID // fn pointers, instances, generic params
	nominals map[TypeID]bool   // nominal -> defined
	bag      *diag.Bag
	frozen   bool
}

// NewBuilder constructs a builder seeded with every primitive.
func NewBuilder() *Builder {
	b := &Builder{
		g: &Graph{
			names:   make(map[string]TypeID, 32),
			funcIdx: make(map[string]int, 32),
			prims:   make(map[Primitive]TypeID, len(AllPrimitives)),
		},
		index:    make(map[typeKey]TypeID, 64),
		keyed:    make(map[string]TypeID, 16),
		nominals: make(map[TypeID]bool, 32),
		bag:      diag.NewBag(0),
	}
	b.g.types = append(b.g.types, Type{Kind: KindInvalid}) // reserve 0 as NoTypeID
	for _, p := range AllPrimitives {
		b.g.prims[p] = b.intern(Type{Kind: KindPrimitive, Prim: p})
	}
	return b
}

// internRaw adds the descriptor to the storage without consulting the index.
func (b *Builder) internRaw(t Type) TypeID {
	if b.frozen {
		panic("types: builder used after Finalize")
	}
	lenTypes, err := safecast.Conv[uint32](len(b.g.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	b.g.types = append(b.g.types, t)
	return id
}

func (b *Builder) intern(t Type) TypeID {
	key := typeKey{Kind: t.Kind, Prim: t.Prim, Elem: t.Elem, Len: t.Len, Mutable: t.Mutable}
	if id, ok := b.index[key]; ok {
		return id
	}
	id := b.internRaw(t)
	b.index[key] = id
	return id
}

func payloadIndex(n int) uint32 {
	idx, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("payload index overflow: %w", err))
	}
	return idx
}

// Primitive returns the node for p.
func (b *Builder) Primitive(p Primitive) TypeID { return b.g.prims[p] }

// Void returns the void primitive.
func (b *Builder) Void() TypeID { return b.g.prims[PrimVoid] }

// Pointer returns the pointer to elem.
func (b *Builder) Pointer(elem TypeID, mutable bool) TypeID {
	return b.intern(Type{Kind: KindPointer, Elem: elem, Mutable: mutable})
}

// Array returns the fixed-size array of elem.
func (b *Builder) Array(elem TypeID, length uint32) TypeID {
	return b.intern(Type{Kind: KindArray, Elem: elem, Len: length})
}

// FnPointer interns a function pointer. Named callback typedefs with the same
// signature stay distinct so each keeps its own target name.
func (b *Builder) FnPointer(name string, params []TypeID, ret TypeID) TypeID {
	return b.FnPointerDoc(name, "", params, ret)
}

// FnPointerDoc is FnPointer with documentation for named callbacks.
func (b *Builder) FnPointerDoc(name, doc string, params []TypeID, ret TypeID) TypeID {
	if ret == NoTypeID {
		ret = b.Void()
	}
	key := fnKey(name, params, ret)
	if id, ok := b.keyed[key]; ok {
		return id
	}
	b.g.fns = append(b.g.fns, FnInfo{Name: name, Doc: doc, Params: cloneTypeIDs(params), Ret: ret})
	id := b.internRaw(Type{Kind: KindFnPointer, Payload: payloadIndex(len(b.g.fns) - 1)})
	b.keyed[key] = id
	return id
}

// GenericParam returns the type parameter with the given name.
func (b *Builder) GenericParam(name string) TypeID {
	key := paramKey(name)
	if id, ok := b.keyed[key]; ok {
		return id
	}
	b.g.params = append(b.g.params, GenericParamInfo{Name: name})
	id := b.internRaw(Type{Kind: KindGenericParam, Payload: payloadIndex(len(b.g.params) - 1)})
	b.keyed[key] = id
	return id
}

// Instance returns the application of a generic family to args. Identical
// applications share one node.
func (b *Builder) Instance(family TypeID, args []TypeID) TypeID {
	key := instKey(family, args)
	if id, ok := b.keyed[key]; ok {
		return id
	}
	b.g.insts = append(b.g.insts, InstanceInfo{Family: family, Args: cloneTypeIDs(args)})
	id := b.internRaw(Type{Kind: KindInstance, Payload: payloadIndex(len(b.g.insts) - 1)})
	b.keyed[key] = id
	return id
}

func fnKey(name string, params []TypeID, ret TypeID) string {
	return "fn:" + name + "(" + joinIDs(params) + ")" + strconv.FormatUint(uint64(ret), 10)
}

func paramKey(name string) string { return "param:" + name }

func instKey(family TypeID, args []TypeID) string {
	return "inst:" + strconv.FormatUint(uint64(family), 10) + "<" + joinIDs(args) + ">"
}

func joinIDs(ids []TypeID) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte('#')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}

// Declare returns the nominal node for a qualified name, creating an
// undefined placeholder on first use. Declaring an existing name with a
// different kind is reported at Finalize.
func (b *Builder) Declare(kind Kind, namespace, name string) TypeID {
	qualified := QualifiedName(namespace, name)
	if id, ok := b.g.names[qualified]; ok {
		if existing := b.g.types[id].Kind; existing != kind {
			b.bag.Errorf(diag.KindMismatch, diag.Node(kind.String(), uint32(id), qualified),
				"%s is already declared as %s", qualified, existing)
		}
		return id
	}
	var payload uint32
	switch kind {
	case KindStruct:
		b.g.structs = append(b.g.structs, StructInfo{Name: name, Namespace: namespace})
		payload = payloadIndex(len(b.g.structs) - 1)
	case KindEnum:
		b.g.enums = append(b.g.enums, EnumInfo{Name: name, Namespace: namespace})
		payload = payloadIndex(len(b.g.enums) - 1)
	case KindOpaque:
		b.g.opaques = append(b.g.opaques, OpaqueInfo{Name: name, Namespace: namespace})
		payload = payloadIndex(len(b.g.opaques) - 1)
	default:
		panic(fmt.Sprintf("types: Declare of non-nominal kind %s", kind))
	}
	id := b.internRaw(Type{Kind: kind, Payload: payload})
	b.g.names[qualified] = id
	b.nominals[id] = false
	return id
}

func (b *Builder) define(id TypeID, kind Kind) bool {
	defined, ok := b.nominals[id]
	if !ok || b.g.types[id].Kind != kind {
		return false
	}
	if defined {
		name, ns, _ := b.g.NominalName(id)
		b.bag.Errorf(diag.DuplicateSymbol, diag.Node(kind.String(), uint32(id), QualifiedName(ns, name)),
			"%s %s is defined more than once", kind, QualifiedName(ns, name))
		return false
	}
	b.nominals[id] = true
	return true
}

// DefineStruct fills in a declared struct. Name and namespace of info are
// ignored in favor of the declaration.
func (b *Builder) DefineStruct(id TypeID, info StructInfo) {
	if !b.define(id, KindStruct) {
		return
	}
	slot := &b.g.structs[b.g.types[id].Payload]
	name, ns := slot.Name, slot.Namespace
	*slot = info.clone()
	slot.Name, slot.Namespace = name, ns
}

// DefineEnum fills in a declared enum.
func (b *Builder) DefineEnum(id TypeID, info EnumInfo) {
	if !b.define(id, KindEnum) {
		return
	}
	slot := &b.g.enums[b.g.types[id].Payload]
	name, ns := slot.Name, slot.Namespace
	*slot = info.clone()
	slot.Name, slot.Namespace = name, ns
}

// DefineOpaque marks a declared opaque type as defined.
func (b *Builder) DefineOpaque(id TypeID, doc string) {
	if !b.define(id, KindOpaque) {
		return
	}
	b.g.opaques[b.g.types[id].Payload].Doc = doc
}

// Struct declares and defines a struct in one step.
func (b *Builder) Struct(info StructInfo) TypeID {
	id := b.Declare(KindStruct, info.Namespace, info.Name)
	b.DefineStruct(id, info)
	return id
}

// Enum declares and defines an enum in one step.
func (b *Builder) Enum(info EnumInfo) TypeID {
	id := b.Declare(KindEnum, info.Namespace, info.Name)
	b.DefineEnum(id, info)
	return id
}

// Opaque declares and defines an opaque type in one step.
func (b *Builder) Opaque(info OpaqueInfo) TypeID {
	id := b.Declare(KindOpaque, info.Namespace, info.Name)
	b.DefineOpaque(id, info.Doc)
	return id
}

// AddFunction records an exported function and returns its index.
func (b *Builder) AddFunction(fn Function) int {
	if prev, ok := b.g.funcIdx[fn.Name]; ok {
		b.bag.Errorf(diag.DuplicateSymbol, diag.Node("function", 0, fn.Name),
			"function %s is declared twice (first at index %d)", fn.Name, prev)
	} else {
		b.g.funcIdx[fn.Name] = len(b.g.funcs)
	}
	if fn.Ret == NoTypeID {
		fn.Ret = b.Void()
	}
	b.g.funcs = append(b.g.funcs, fn.clone())
	return len(b.g.funcs) - 1
}

// AddConstant records an exported constant.
func (b *Builder) AddConstant(c Constant) {
	for _, prev := range b.g.consts {
		if prev.Name == c.Name {
			b.bag.Errorf(diag.DuplicateSymbol, diag.Node("constant", 0, c.Name), "constant %s is declared twice", c.Name)
			return
		}
	}
	b.g.consts = append(b.g.consts, c)
}

// Lookup exposes the graph under construction, e.g. for front ends that
// need to inspect what they already declared.
func (b *Builder) Lookup(id TypeID) (Type, bool) { return b.g.Lookup(id) }

// ByName resolves a declared nominal.
func (b *Builder) ByName(qualified string) (TypeID, bool) { return b.g.ByName(qualified) }

// Finalize checks the graph and freezes it. Undefined or out-of-range
// references are reported as UnresolvedType, repeated declarations as
// DuplicateSymbol and by-value cycles as RecursiveValueType. The builder must
// not be used afterwards.
func (b *Builder) Finalize() (*Graph, error) {
	if b.frozen {
		return nil, fmt.Errorf("types: Finalize called twice")
	}
	g := b.g
	b.checkReferences()
	b.checkValueCycles()
	b.frozen = true
	if err := b.bag.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func (b *Builder) checkReferences() {
	g := b.g
	undefined := make(map[TypeID]bool)
	check := func(id TypeID, owner diag.NodeRef, what string) {
		if id == NoTypeID || int(id) >= len(g.types) {
			b.bag.Add(diag.Errorf(diag.UnresolvedType, owner, "%s refers to unknown type #%d", what, id))
			return
		}
		if defined, ok := b.nominals[id]; ok && !defined {
			undefined[id] = true
			name, ns, _ := g.NominalName(id)
			b.bag.Add(diag.Errorf(diag.UnresolvedType, owner, "%s refers to %s, which is declared but never defined", what, QualifiedName(ns, name)))
		}
	}

	for i := 1; i < len(g.types); i++ {
		id := TypeID(i)
		tt := g.types[i]
		switch tt.Kind {
		case KindPointer:
			// pointers to declared-only types are fine for opaque use but an
			// undefined struct or enum still cannot be emitted
			check(tt.Elem, b.nodeRef(id), "pointer")
		case KindArray:
			check(tt.Elem, b.nodeRef(id), "array element")
		case KindStruct:
			s := &g.structs[tt.Payload]
			for _, f := range s.Fields {
				check(f.Type, b.nodeRef(id), "field "+f.Name)
			}
		case KindFnPointer:
			fi := &g.fns[tt.Payload]
			for pi, p := range fi.Params {
				check(p, b.nodeRef(id), fmt.Sprintf("parameter %d", pi))
			}
			check(fi.Ret, b.nodeRef(id), "return type")
		case KindInstance:
			inst := &g.insts[tt.Payload]
			check(inst.Family, b.nodeRef(id), "generic family")
			for _, a := range inst.Args {
				check(a, b.nodeRef(id), "type argument")
			}
			if fam, ok := g.Struct(inst.Family); ok {
				if !fam.IsGeneric() {
					b.bag.Errorf(diag.NotGeneric, b.nodeRef(id), "%s takes no type arguments", fam.Name)
				} else if len(fam.TypeParams) != len(inst.Args) {
					b.bag.Errorf(diag.GenericArity, b.nodeRef(id), "%s expects %d type arguments, got %d",
						fam.Name, len(fam.TypeParams), len(inst.Args))
				}
			} else if int(inst.Family) < len(g.types) && inst.Family != NoTypeID && !undefined[inst.Family] {
				b.bag.Errorf(diag.NotGeneric, b.nodeRef(id), "type arguments applied to %s", g.types[inst.Family].Kind)
			}
		}
	}
	for i := range g.funcs {
		fn := &g.funcs[i]
		ref := diag.Node("function", uint32(i), fn.Name)
		for _, p := range fn.Params {
			check(p.Type, ref, "parameter "+p.Name)
		}
		check(fn.Ret, ref, "return type")
	}
	for _, c := range g.consts {
		check(c.Type, diag.Node("constant", 0, c.Name), "constant type")
	}
	for id, defined := range b.nominals {
		if defined || undefined[id] {
			continue
		}
		// declared, never defined and never referenced: still a dangling declaration
		name, ns, _ := g.NominalName(id)
		b.bag.Add(diag.Errorf(diag.UnresolvedType, b.nodeRef(id), "%s is declared but never defined", QualifiedName(ns, name)))
	}
	b.bag.Sort()
}

// checkValueCycles rejects structs that contain themselves by value through
// fields or arrays. Pointer edges and instance nodes are not followed; the
// validator repeats the check after monomorphization.
func (b *Builder) checkValueCycles() {
	g := b.g
	const (
		white = iota
		grey
		black
	)
	state := make([]uint8, len(g.types))
	var stack []TypeID
	var visit func(id TypeID)
	visit = func(id TypeID) {
		if int(id) >= len(state) || id == NoTypeID {
			return
		}
		switch state[id] {
		case grey:
			cycle := []string{}
			start := len(stack) - 1
			for start > 0 && stack[start] != id {
				start--
			}
			for _, s := range stack[start:] {
				cycle = append(cycle, g.TypeString(s))
			}
			cycle = append(cycle, g.TypeString(id))
			b.bag.Errorf(diag.RecursiveValueType, b.nodeRef(id), "value cycle %s", strings.Join(cycle, " -> "))
			return
		case black:
			return
		}
		state[id] = grey
		stack = append(stack, id)
		for _, dep := range g.ValueDeps(id) {
			visit(dep)
		}
		stack = stack[:len(stack)-1]
		state[id] = black
	}
	for i := 1; i < len(g.types); i++ {
		if g.types[i].Kind == KindStruct {
			visit(TypeID(i))
		}
	}
}

func (b *Builder) nodeRef(id TypeID) diag.NodeRef {
	return NodeRef(b.g, id)
}

// NodeRef builds the diagnostic reference for a type node.
func NodeRef(g *Graph, id TypeID) diag.NodeRef {
	kind := g.Kind(id)
	name := ""
	if kind != KindInvalid {
		name = g.TypeString(id)
	}
	return diag.Node(kind.String(), uint32(id), name)
}

// FunctionRef builds the diagnostic reference for a function.
func FunctionRef(g *Graph, index int) diag.NodeRef {
	name := ""
	if fn, ok := g.Function(index); ok {
		name = fn.Name
	}
	idx, err := safecast.Conv[uint32](index)
	if err != nil {
		idx = 0
	}
	return diag.Node("function", idx, name)
}
