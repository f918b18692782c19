package candid

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestNoArgsScalarResponse(t *testing.T) {
	m, err := ParseCanisterMethod("get_value : () -> (text)")
	require.NoError(t, err)

	assert.Equal(t, "get_value", m.Identifier)
	_, ok := m.RequestArgs()
	assert.False(t, ok)
	assert.Empty(t, m.ArgTypes())

	resp := m.Response()
	assert.Equal(t, ShapeScalar, resp.Shape)
	assert.Equal(t, "text", resp.String())

	goType, err := m.GoType(resp.Elems[0], "")
	require.NoError(t, err)
	assert.Equal(t, "string", goType)
}

func TestRecordResponse(t *testing.T) {
	m, err := ParseCanisterMethod("get_snapshot : (nat64) -> (record { value : text; timestamp : nat64 })")
	require.NoError(t, err)

	req, ok := m.RequestArgs()
	require.True(t, ok)
	assert.Equal(t, ShapeScalar, req.Shape)
	assert.Equal(t, "nat64", req.String())

	resp := m.Response()
	require.Equal(t, ShapeStruct, resp.Shape)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "value", resp.Fields[0].Name)
	assert.Equal(t, "timestamp", resp.Fields[1].Name)

	types := make([]string, 0, 2)
	for _, f := range resp.Fields {
		goType, err := m.GoType(f.Type, "")
		require.NoError(t, err)
		types = append(types, goType)
	}
	assert.Equal(t, []string{"string", "uint64"}, types)

	src, err := m.CompileSource("snap", "Snap")
	require.NoError(t, err)
	flat := squash(src)
	assert.Contains(t, flat, "type SnapRequestArgsType = uint64")
	assert.Contains(t, flat, "type SnapResponseType struct { Value string `json:\"value\"` Timestamp uint64 `json:\"timestamp\"` }")
}

func TestMultipleArgsBecomeTuple(t *testing.T) {
	m, err := ParseCanisterMethod("add : (nat32, text) -> ()")
	require.NoError(t, err)

	req, ok := m.RequestArgs()
	require.True(t, ok)
	assert.Equal(t, ShapeTuple, req.Shape)
	assert.Equal(t, "(nat32, text)", req.String())
	assert.Len(t, m.ArgTypes(), 2)
	assert.Equal(t, "null", m.Response().String())
}

func TestNamedArgsAndAnnotations(t *testing.T) {
	m, err := ParseCanisterMethod(`lookup : (key : text) -> (opt nat) query`)
	require.NoError(t, err)
	assert.Equal(t, "lookup", m.Identifier)

	req, _ := m.RequestArgs()
	assert.Equal(t, "text", req.String())
	assert.Equal(t, "opt nat", m.Response().String())
}

func TestAnnotationsAreWholeWords(t *testing.T) {
	schema := `type myquery = record { hits : nat64 };`
	for _, sig := range []string{
		"lookup : () -> myquery",
		"lookup : () -> (myquery)",
		"lookup : () -> (myquery) query",
		"lookup : () -> (myquery) composite_query",
	} {
		m, err := ParseCanisterMethodWithSchema(sig, schema, nil)
		require.NoError(t, err, sig)
		assert.Equal(t, "{hits: nat64}", m.Response().String(), sig)
	}

	_, err := ParseCanisterMethod("lookup : () -> (nat) oneway query")
	assert.NoError(t, err)

	_, err = ParseCanisterMethod("lookup : () -> (nat) myquery")
	var spe *errdefs.SignatureParseError
	assert.True(t, errors.As(err, &spe), "got %v", err)
}

func TestSchemaReferences(t *testing.T) {
	schema := `
		// upstream component
		type Snapshot = record { value : Price; timestamp : nat64 };
		type Price = record { amount : nat; symbol : text };
		service : {
			get_last_snapshot : () -> (Snapshot) query;
		}
	`
	m, err := ParseCanisterMethodWithSchema("get_last_snapshot : () -> (Snapshot)", schema, nil)
	require.NoError(t, err)

	resp := m.Response()
	require.Equal(t, ShapeStruct, resp.Shape)
	assert.Equal(t, "{value: Price, timestamp: nat64}", resp.String())

	fn, err := m.Env().Method("get_last_snapshot")
	require.NoError(t, err)
	assert.Equal(t, []string{"query"}, fn.Annotations)

	src, err := m.CompileSource("lens", "")
	require.NoError(t, err)
	flat := squash(src)
	assert.Contains(t, flat, "type ResponseType = Snapshot")
	assert.Contains(t, flat, "type Snapshot struct { Value Price `json:\"value\"` Timestamp uint64 `json:\"timestamp\"` }")
	assert.Contains(t, flat, "type Price struct { Amount *big.Int `json:\"amount\"` Symbol string `json:\"symbol\"` }")
	assert.Contains(t, flat, `"math/big"`)
}

func TestCompileNested(t *testing.T) {
	m, err := ParseCanisterMethod(`get : () -> (record { owner : principal; data : blob; tags : vec text; state : variant { Active; Paused : nat32 }; inner : record { ok : bool } })`)
	require.NoError(t, err)

	src, err := m.CompileSource("nested", "X")
	require.NoError(t, err)
	flat := squash(src)
	assert.Contains(t, flat, "Owner lib.Principal `json:\"owner\"`")
	assert.Contains(t, flat, "Data []byte `json:\"data\"`")
	assert.Contains(t, flat, "Tags []string `json:\"tags\"`")
	assert.Contains(t, flat, "State XResponseTypeState `json:\"state\"`")
	assert.Contains(t, flat, "type XResponseTypeState struct { Active *struct{} `json:\"Active,omitempty\"` Paused *uint32 `json:\"Paused,omitempty\"` }")
	assert.Contains(t, flat, "type XResponseTypeInner struct { Ok bool `json:\"ok\"` }")
	assert.Contains(t, flat, `"github.com/jshufro/componentgen/lib"`)
}

func TestCompileIdempotent(t *testing.T) {
	sig := "get_snapshot : (nat64) -> (record { value : text; timestamp : nat64 })"
	a, err := ParseCanisterMethod(sig)
	require.NoError(t, err)
	b, err := ParseCanisterMethod(sig)
	require.NoError(t, err)

	ra, _ := a.RequestArgs()
	rb, _ := b.RequestArgs()
	if diff := cmp.Diff(ra, rb); diff != "" {
		t.Errorf("request args differ (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(a.Response(), b.Response()); diff != "" {
		t.Errorf("response differs (-a +b):\n%s", diff)
	}

	sa, err := a.CompileSource("snap", "")
	require.NoError(t, err)
	sb, err := a.CompileSource("snap", "")
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestCanisterSignatureErrors(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{"no colon", "get_value () -> (text)"},
		{"no arrow", "get_value : (text)"},
		{"bad name", "1get : () -> (text)"},
		{"unbalanced", "get : (record { a : nat ) -> (text)"},
		{"unbound", "get : () -> (Missing)"},
		{"keyword", "get : () -> (record)"},
		{"duplicate field", "get : () -> (record { a : nat; a : text })"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCanisterMethod(tt.sig)
			require.Error(t, err)
			var spe *errdefs.SignatureParseError
			require.True(t, errors.As(err, &spe), "got %T: %v", err, err)
			assert.Equal(t, tt.sig, spe.Signature)
		})
	}
}

func TestCompileFuncUnsupported(t *testing.T) {
	m, err := ParseCanisterMethod("get : () -> (func (nat) -> (nat))")
	require.NoError(t, err)
	_, err = m.CompileSource("x", "")
	var ute *errdefs.UnsupportedTypeError
	assert.True(t, errors.As(err, &ute))
}

type fakeResolver struct {
	seen string
}

func (f *fakeResolver) Resolve(schema string) (*Env, error) {
	f.seen = schema
	return NativeResolver{}.Resolve(schema)
}

func TestResolverReceivesSynthesizedSchema(t *testing.T) {
	r := &fakeResolver{}
	_, err := ParseCanisterMethodWithSchema("get : (nat64) -> (text)", "type Unused = nat;", r)
	require.NoError(t, err)
	assert.Equal(t, "type Unused = nat;\ntype RequestArgsType = nat64;\ntype ResponseType = text;\n", r.seen)
}

func TestCompileRecord(t *testing.T) {
	f, err := gosrc.NewFile("types.go", "balances", "example.com/balances", true)
	require.NoError(t, err)

	rec, err := CompileRecord(f, "Transfer", []RecordField{
		{Name: "from", Type: "text"},
		{Name: "value", Type: "nat"},
		{Name: "memo", Type: "opt record { note : text }"},
	}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Transfer", rec.Name)
	require.Len(t, rec.Fields, 3)
	assert.Equal(t, "From", rec.Fields[0].GoName)
	assert.Equal(t, "string", rec.Fields[0].GoType)
	assert.Equal(t, "*big.Int", rec.Fields[1].GoType)
	assert.Equal(t, "*TransferMemo", rec.Fields[2].GoType)

	src, err := f.Source()
	require.NoError(t, err)
	assert.Contains(t, squash(src), squash("type Transfer struct { From string `json:\"from\"` Value *big.Int `json:\"value\"` Memo *TransferMemo `json:\"memo\"` }"))
	assert.Contains(t, squash(src), squash("type TransferMemo struct { Note string `json:\"note\"` }"))

	_, err = CompileRecord(f, "Bad", []RecordField{{Name: "x", Type: "missing_type"}}, "", nil)
	var spe *errdefs.SignatureParseError
	assert.ErrorAs(t, err, &spe)
}

func TestResponseField(t *testing.T) {
	m, err := ParseCanisterMethod(`get : () -> (record { value : nat; meta : record { updated_at : nat64 } })`)
	require.NoError(t, err)

	selector, typ, err := m.ResponseField("value")
	require.NoError(t, err)
	assert.Equal(t, ".Value", selector)
	assert.Equal(t, "nat", typ.String())

	selector, typ, err = m.ResponseField("meta.updated_at")
	require.NoError(t, err)
	assert.Equal(t, ".Meta.UpdatedAt", selector)
	assert.Equal(t, "nat64", typ.String())

	_, _, err = m.ResponseField("missing")
	var spe *errdefs.SignatureParseError
	require.True(t, errors.As(err, &spe))
	assert.Equal(t, "missing", spe.Fragment)

	_, _, err = m.ResponseField("value.inner")
	assert.ErrorContains(t, err, "has no fields")

	scalar, err := ParseCanisterMethod("get_value : () -> (text)")
	require.NoError(t, err)
	selector, typ, err = scalar.ResponseField("")
	require.NoError(t, err)
	assert.Empty(t, selector)
	assert.Equal(t, "text", typ.String())
}
