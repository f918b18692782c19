package candid

import (
	"errors"
	"testing"

	"github.com/jshufro/componentgen/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterSchema = `
/* counter canister */
type Env = variant { Production; LocalDevelopment };
type Reading = record { 0 : nat64; 1 : text };
type List = opt record { head : int; tail : List };
type Counter = service {
	get : () -> (nat) query;
	"set value" : (nat) -> ();
};
service : (Env) -> Counter
`

func TestResolveSchema(t *testing.T) {
	env, err := NativeResolver{}.Resolve(counterSchema)
	require.NoError(t, err)
	assert.Equal(t, []string{"Env", "Reading", "List", "Counter"}, env.Names())

	reading, ok := env.Lookup("Reading")
	require.True(t, ok)
	assert.True(t, reading.(*Record).IsTuple())
	assert.Equal(t, "record { nat64; text }", reading.String())

	e, _ := env.Lookup("Env")
	assert.Equal(t, "variant { Production; LocalDevelopment }", e.String())

	list, _ := env.Lookup("List")
	assert.Equal(t, "opt record { head : int; tail : List }", list.String())

	svc, ok := env.Service()
	require.True(t, ok)
	require.Len(t, svc.Methods, 2)
	assert.Equal(t, "set value", svc.Methods[1].Name)

	get, err := env.Method("get")
	require.NoError(t, err)
	assert.Equal(t, "func () -> (nat) query", get.String())

	_, err = env.Method("missing")
	assert.Error(t, err)
}

func TestResolveFollowsReferences(t *testing.T) {
	env, err := NativeResolver{}.Resolve("type A = B; type B = C; type C = vec nat8;")
	require.NoError(t, err)
	resolved, err := env.Resolve(&Ref{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "vec nat8", resolved.String())
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"cycle", "type A = B; type B = A;"},
		{"unbound", "type A = record { x : Nope };"},
		{"duplicate", "type A = nat; type A = text;"},
		{"unterminated comment", "/* type A = nat;"},
		{"bad character", "type A = nat@;"},
		{"keyword name", "type record = nat;"},
		{"bad escape", `type A = record { "\q" : nat };`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NativeResolver{}.Resolve(tt.schema)
			var spe *errdefs.SignatureParseError
			require.True(t, errors.As(err, &spe), "got %v", err)
			assert.Equal(t, "schema", spe.Signature)
		})
	}
}

func TestBlobAndPositionalIDs(t *testing.T) {
	env, err := NativeResolver{}.Resolve("type T = record { blob; 5 : text; bool };")
	require.NoError(t, err)
	typ, _ := env.Lookup("T")
	rec := typ.(*Record)
	require.Len(t, rec.Fields, 3)
	assert.Equal(t, uint32(0), rec.Fields[0].ID)
	assert.Equal(t, "vec nat8", rec.Fields[0].Type.String())
	assert.Equal(t, uint32(5), rec.Fields[1].ID)
	assert.Equal(t, uint32(6), rec.Fields[2].ID)
	assert.False(t, rec.IsTuple())
}

func TestHash(t *testing.T) {
	assert.Equal(t, uint32(120), Hash("x"))
	assert.Equal(t, uint32(0), Hash(""))
	assert.Equal(t, uint32('a')*223+uint32('b'), Hash("ab"))
}
