package irfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"ffigen/internal/diag"
	"ffigen/internal/testkit"
	"ffigen/internal/types"
)

func loadReference(t *testing.T) *Document {
	t.Helper()
	doc, err := Load(filepath.Join("testdata", "reference.yaml"))
	require.NoError(t, err)
	return doc
}

func decode(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func codes(err error) []diag.Code {
	var out []diag.Code
	for _, d := range diag.Diagnostics(err) {
		out = append(out, d.Code)
	}
	return out
}

func TestParseType(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"u8", "u8"},
		{"*mut u8", "*mut u8"},
		{"*const u8", "*u8"},
		{"* u8", "*u8"},
		{"*mut *mut SimpleService", "*mut *mut SimpleService"},
		{"[u16;5]", "[u16; 5]"},
		{"common::Vec", "common::Vec"},
		{"Slice<Vec3f32>", "Slice<Vec3f32>"},
		{"Pair<u8,*T>", "Pair<u8, *T>"},
		{"fn()", "fn()"},
		{"fn(u32, *mut void) -> u32", "fn(u32, *mut void) -> u32"},
		{"[[u8; 2]; 3]", "[[u8; 2]; 3]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := ParseType(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"*",
		"[u8]",
		"[u8; x]",
		"[u8; 99999999999]",
		"Slice<u8",
		"Slice<>",
		"u8 u8",
		"a::",
		"fn(u8",
		"$",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseType(src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "col ")
		})
	}
}

func TestReferenceDocumentMatchesTestkit(t *testing.T) {
	got, err := loadReference(t).Graph()
	require.NoError(t, err)
	want, err := testkit.ReferenceGraph()
	require.NoError(t, err)

	wantFns, gotFns := want.Functions(), got.Functions()
	require.Len(t, gotFns, len(wantFns))
	for i, w := range wantFns {
		g := gotFns[i]
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Doc, g.Doc, w.Name)
		assert.Equal(t, w.RetDoc, g.RetDoc, w.Name)
		assert.Equal(t, w.Annotations, g.Annotations, w.Name)
		assert.Equal(t, want.TypeString(w.Ret), got.TypeString(g.Ret), w.Name)
		require.Len(t, g.Params, len(w.Params), w.Name)
		for j, p := range w.Params {
			assert.Equal(t, p.Name, g.Params[j].Name)
			assert.Equal(t, p.Doc, g.Params[j].Doc)
			assert.Equal(t, want.TypeString(p.Type), got.TypeString(g.Params[j].Type), "%s.%s", w.Name, p.Name)
			assert.Equal(t, want.Doc(p.Type), got.Doc(g.Params[j].Type))
		}
	}

	for _, id := range want.IDs() {
		name, ns, ok := want.NominalName(id)
		if !ok {
			continue
		}
		q := types.QualifiedName(ns, name)
		gid, ok := got.ByName(q)
		require.True(t, ok, q)
		require.Equal(t, want.Kind(id), got.Kind(gid), q)
		assert.Equal(t, want.Doc(id), got.Doc(gid), q)
		if ws, isStruct := want.Struct(id); isStruct {
			gs, _ := got.Struct(gid)
			assert.Equal(t, ws.Repr, gs.Repr, q)
			assert.Equal(t, ws.Hint, gs.Hint, q)
			assert.Equal(t, ws.ExpectedSize, gs.ExpectedSize, q)
			assert.Equal(t, ws.ExpectedAlign, gs.ExpectedAlign, q)
			assert.Len(t, gs.TypeParams, len(ws.TypeParams), q)
			require.Len(t, gs.Fields, len(ws.Fields), q)
			for j, f := range ws.Fields {
				assert.Equal(t, f.Name, gs.Fields[j].Name)
				assert.Equal(t, f.Doc, gs.Fields[j].Doc)
				assert.Equal(t, want.TypeString(f.Type), got.TypeString(gs.Fields[j].Type), "%s.%s", q, f.Name)
			}
		}
		if we, isEnum := want.Enum(id); isEnum {
			ge, _ := got.Enum(gid)
			assert.Equal(t, we.Base, ge.Base, q)
			assert.Equal(t, we.Variants, ge.Variants, q)
		}
	}

	wantConsts, gotConsts := want.Constants(), got.Constants()
	require.Len(t, gotConsts, len(wantConsts))
	for i, w := range wantConsts {
		c := gotConsts[i]
		assert.Equal(t, w.Name, c.Name)
		assert.Equal(t, want.TypeString(w.Type), got.TypeString(c.Type), w.Name)
		assert.Equal(t, w.Value, c.Value, w.Name)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	doc := loadReference(t)
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, doc))

	back, err := ReadSnapshot(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, doc, back)

	path := filepath.Join(t.TempDir(), "reference"+SnapshotExt)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
}

func TestSnapshotRejectsOtherSchemas(t *testing.T) {
	data, err := msgpack.Marshal(&snapshot{Magic: snapshotMagic, Schema: snapshotSchema + 1, Doc: &Document{Version: Version}})
	require.NoError(t, err)
	_, err = ReadSnapshot(bytes.NewReader(data))
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.IRSnapshotVersion}, codes(err))

	data, err = msgpack.Marshal(&snapshot{Magic: "zip", Schema: snapshotSchema})
	require.NoError(t, err)
	_, err = ReadSnapshot(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrInvalidIR))

	_, err = ReadSnapshot(strings.NewReader("not msgpack at all"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrInvalidIR))
}

func TestYAMLRoundTrip(t *testing.T) {
	doc := loadReference(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	back, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"unknown key", "version: 1\ntypes:\n  - kind: struct\n    name: A\n    fieldz: []\n"},
		{"future version", "version: 2\n"},
		{"not a mapping", "- 1\n- 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, diag.ErrInvalidIR))
		})
	}
}

func TestJSONDocument(t *testing.T) {
	doc := decode(t, `{"version": 1, "types": [{"kind": "struct", "name": "P", "fields": [{"name": "x", "type": "u8"}]}], "functions": [{"name": "p", "ret": "P"}]}`)
	g, err := doc.Graph()
	require.NoError(t, err)
	id, ok := g.ByName("P")
	require.True(t, ok)
	fn, _ := g.Function(0)
	assert.Equal(t, id, fn.Ret)
}

func TestBuildReportsEveryProblem(t *testing.T) {
	doc := decode(t, `
types:
  - kind: struct
    name: A
    repr: packed(x)
    fields:
      - {name: x, type: Missing}
      - {name: y, type: "[u8;"}
  - kind: union
    name: U
  - kind: callback
    name: Loop
    args: [Loop]
  - kind: callback
    name: Twice
  - kind: callback
    name: Twice
  - kind: enum
    name: E
    base: f32
functions:
  - {name: f, lifecycle: sometimes}
constants:
  - {name: BIG, type: u8, value: 256}
  - {name: WHAT, type: A, value: 1}
`)
	_, err := doc.Build()
	require.Error(t, err)
	got := codes(err)
	for _, c := range []diag.Code{
		diag.InvalidRepr,
		diag.UnresolvedType,
		diag.IRBadTypeExpr,
		diag.InvalidIR,
		diag.DuplicateSymbol,
		diag.IRBadLiteral,
	} {
		assert.Contains(t, got, c)
	}
	assert.Len(t, got, 10)
}

func TestNamespaceLookup(t *testing.T) {
	doc := decode(t, `
types:
  - {kind: struct, name: Point, fields: [{name: x, type: u8}]}
  - {kind: struct, name: Point, namespace: geo, fields: [{name: x, type: f64}]}
  - {kind: struct, name: Line, namespace: geo, fields: [{name: a, type: Point}, {name: b, type: "::Point"}]}
  - {kind: struct, name: Mixed, fields: [{name: a, type: Point}, {name: b, type: "geo::Point"}]}
`)
	_, err := doc.Graph()
	require.Error(t, err, "::Point is not a valid path")

	doc.Types[2].Fields[1].Type = "Point"
	g, err := doc.Graph()
	require.NoError(t, err)
	line, _ := g.ByName("geo::Line")
	ls, _ := g.Struct(line)
	assert.Equal(t, "geo::Point", g.TypeString(ls.Fields[0].Type))
	mixed, _ := g.ByName("Mixed")
	ms, _ := g.Struct(mixed)
	assert.Equal(t, "Point", g.TypeString(ms.Fields[0].Type))
	assert.Equal(t, "geo::Point", g.TypeString(ms.Fields[1].Type))
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		prim types.Primitive
		src  string
		want types.Value
		bad  bool
	}{
		{prim: types.PrimU8, src: "0xff", want: types.UintValue(255)},
		{prim: types.PrimU8, src: "256", bad: true},
		{prim: types.PrimI8, src: "-128", want: types.IntValue(-128)},
		{prim: types.PrimI8, src: "-129", bad: true},
		{prim: types.PrimUSize, src: "0b101", want: types.UintValue(5)},
		{prim: types.PrimF64, src: "1e300", want: types.FloatValue(1e300)},
		{prim: types.PrimF32, src: "1e300", bad: true},
		{prim: types.PrimBool, src: "false", want: types.BoolValue(false)},
		{prim: types.PrimBool, src: "yes", bad: true},
	}
	for _, tt := range tests {
		t.Run(tt.prim.String()+" "+tt.src, func(t *testing.T) {
			v, err := literal(tt.prim, tt.src)
			if tt.bad {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestReprSpelling(t *testing.T) {
	for _, s := range []string{"", "transparent", "packed", "packed(4)"} {
		r, ok := parseRepr(s)
		require.True(t, ok, s)
		assert.Equal(t, s, ReprString(r))
	}
	_, ok := parseRepr("packed(0)")
	assert.False(t, ok)
}
