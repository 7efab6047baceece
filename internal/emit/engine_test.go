package emit

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/diag"
	"ffigen/internal/layout"
	"ffigen/internal/mono"
	"ffigen/internal/naming"
	"ffigen/internal/pattern"
	"ffigen/internal/testkit"
	"ffigen/internal/types"
)

type recorder struct {
	calls  []string
	refuse string
}

func (r *recorder) Target() string { return "rec" }

func (r *recorder) Style() naming.Style {
	return naming.Style{Type: naming.CaseKeep, Function: naming.CaseSnake, Constant: naming.CaseScreaming}
}

func (r *recorder) log(op, name string) error {
	r.calls = append(r.calls, op+":"+name)
	return nil
}

func (r *recorder) typeOp(ctx *Context, op string, id types.TypeID) error {
	if op == r.refuse {
		return ctx.Unsupported(id, "%s is not supported", op)
	}
	return r.log(op, ctx.Names.Type(id))
}

func (r *recorder) Begin(*Context) error { return r.log("begin", "") }
func (r *recorder) DeclareType(ctx *Context, id types.TypeID) error {
	return r.log("declare", ctx.Names.Type(id))
}
func (r *recorder) EmitPrimitive(ctx *Context, id types.TypeID) error {
	return r.log("primitive", ctx.Graph.TypeString(id))
}
func (r *recorder) EmitStruct(ctx *Context, id types.TypeID) error {
	ctx.RecordStruct(id, types.Repr{})
	return r.typeOp(ctx, "struct", id)
}
func (r *recorder) EmitEnum(ctx *Context, id types.TypeID) error   { return r.typeOp(ctx, "enum", id) }
func (r *recorder) EmitOpaque(ctx *Context, id types.TypeID) error { return r.typeOp(ctx, "opaque", id) }
func (r *recorder) EmitSlice(ctx *Context, id types.TypeID) error  { return r.typeOp(ctx, "slice", id) }
func (r *recorder) EmitOption(ctx *Context, id types.TypeID) error { return r.typeOp(ctx, "option", id) }
func (r *recorder) EmitResult(ctx *Context, id types.TypeID) error { return r.typeOp(ctx, "result", id) }
func (r *recorder) EmitString(ctx *Context, id types.TypeID) error { return r.typeOp(ctx, "string", id) }
func (r *recorder) EmitCallback(ctx *Context, id types.TypeID) error {
	return r.typeOp(ctx, "callback", id)
}
func (r *recorder) EmitConstant(ctx *Context, i int) error {
	return r.log("const", ctx.Names.Constant(i))
}
func (r *recorder) EmitFunction(ctx *Context, i int) error {
	if r.refuse == "function" && ctx.Roles(i).Callbacks != nil {
		return ctx.UnsupportedFunction(i, "callbacks are not supported")
	}
	return r.log("fn", ctx.Names.Function(i))
}
func (r *recorder) EmitService(ctx *Context, i int) error {
	svc, _ := ctx.Graph.Service(i)
	return r.log("service", ctx.Names.Type(svc.Opaque))
}
func (r *recorder) Finish(*Context) ([]File, error) {
	return []File{{Path: "out.txt", Content: []byte(strings.Join(r.calls, "\n"))}}, nil
}

func referenceInput(t *testing.T) Input {
	t.Helper()
	g, err := testkit.ReferenceGraph()
	require.NoError(t, err)
	res, err := mono.Monomorphize(g)
	require.NoError(t, err)
	require.NoError(t, pattern.Classify(res.Graph, nil))
	return Input{Graph: res.Graph, Logical: naming.NewLogical(res.Graph), Layout: layout.X86_64LinuxGNU()}
}

func indexOf(t *testing.T, calls []string, call string) int {
	t.Helper()
	i := slices.Index(calls, call)
	require.GreaterOrEqual(t, i, 0, "missing call %s", call)
	return i
}

func TestGenerateOrder(t *testing.T) {
	in := referenceInput(t)
	rec := &recorder{}
	out, err := Generate(rec, in)
	require.NoError(t, err)
	require.Len(t, out.Files, 1)
	calls := rec.calls

	assert.Equal(t, "begin:", calls[0])
	lastDecl := 0
	firstDef := len(calls)
	for i, c := range calls {
		if strings.HasPrefix(c, "declare:") {
			lastDecl = i
		}
		if strings.HasPrefix(c, "struct:") || strings.HasPrefix(c, "enum:") {
			firstDef = min(firstDef, i)
		}
	}
	assert.Less(t, lastDecl, firstDef, "every declaration precedes every definition")

	// value containment
	assert.Less(t, indexOf(t, calls, "struct:Vec3f32"), indexOf(t, calls, "struct:NestedArray"))
	assert.Less(t, indexOf(t, calls, "enum:EnumDocumented"), indexOf(t, calls, "struct:NestedArray"))
	assert.Less(t, indexOf(t, calls, "struct:Inner"), indexOf(t, calls, "option:OptionInner"))
	assert.Less(t, indexOf(t, calls, "slice:Sliceu8"), indexOf(t, calls, "callback:CallbackSlice"))

	// error enums get their enum and their error type
	assert.Equal(t, indexOf(t, calls, "enum:FFIError")+1, indexOf(t, calls, "result:FFIError"))
	assert.Less(t, indexOf(t, calls, "enum:FFIError"), indexOf(t, calls, "result:Resultu32"))

	// constants, free functions, services
	lastConst := indexOf(t, calls, "const:ENABLED")
	firstFn := indexOf(t, calls, "fn:primitive_void")
	assert.Less(t, lastConst, firstFn)
	assert.Less(t, indexOf(t, calls, "fn:api_guard"), indexOf(t, calls, "service:SimpleService"))
	assert.NotContains(t, calls, "fn:simple_service_destroy", "service members are emitted with their service")
	assert.Contains(t, calls, "fn:utf8_string_destroy")
	assert.Contains(t, calls, "opaque:SimpleService")
	assert.Contains(t, calls, "primitive:u8")
	assert.NotContains(t, calls, "declare:Generic", "generic families are not emitted")

	// namespaced Vec is qualified
	assert.Contains(t, calls, "struct:Vec")
	assert.Contains(t, calls, "struct:common_Vec")

	rec2 := &recorder{}
	out2, err := Generate(rec2, in)
	require.NoError(t, err)
	assert.Equal(t, out.Files, out2.Files, "generation is deterministic")

	vec3, ok := in.Graph.ByName("Vec3f32")
	require.True(t, ok)
	rec3, ok := out.Manifest.Lookup(vec3)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y", "z"}, rec3.Fields)
}

func TestGenerateCollectsUnsupported(t *testing.T) {
	in := referenceInput(t)
	_, err := Generate(&recorder{refuse: "callback"}, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrUnsupportedConstruct))
	ds := diag.Diagnostics(err)
	assert.Len(t, ds, 4, "one per callback type")
	for _, d := range ds {
		assert.Equal(t, "rec", d.Target)
	}

	_, err = Generate(&recorder{refuse: "function"}, in)
	require.Error(t, err)
	assert.Len(t, diag.Diagnostics(err), 3, "free functions taking callbacks")
}

type failing struct{ recorder }

func (f *failing) Finish(*Context) ([]File, error) { return nil, fmt.Errorf("disk full") }

func TestGenerateWrapsPlainErrors(t *testing.T) {
	in := referenceInput(t)
	_, err := Generate(&failing{}, in)
	require.Error(t, err)
	ds := diag.Diagnostics(err)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.EmitFailed, ds[0].Code)
	assert.Contains(t, ds[0].Message, "disk full")
}

func TestGenerateRequiresClassification(t *testing.T) {
	g, err := testkit.ReferenceGraph()
	require.NoError(t, err)
	_, err = Generate(&recorder{}, Input{Graph: g, Logical: naming.NewLogical(g)})
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("rec", func() Emitter { return &recorder{} }))
	require.Error(t, r.Register("rec", func() Emitter { return &recorder{} }))
	e, err := r.New("rec")
	require.NoError(t, err)
	assert.Equal(t, "rec", e.Target())
	_, err = r.New("cobol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrUnknownTarget))
	assert.Equal(t, []string{"rec"}, r.Targets())
}

func TestWriter(t *testing.T) {
	w := NewWriter("    ")
	w.Comment("# ", "first\nsecond ")
	w.Open("class %s:", "X")
	w.Line("pass")
	w.Close("")
	w.Line("done")
	assert.Equal(t, "# first\n# second\nclass X:\n    pass\n\ndone\n", w.String())
}
