package codegen

import (
	"errors"
	"testing"

	"github.com/jshufro/componentgen/abisig"
	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile(t *testing.T) *gosrc.File {
	t.Helper()
	f, err := gosrc.NewFile("runtime.go", "pool", "example.com/artifacts/pool", true)
	require.NoError(t, err)
	return f
}

func TestCoerceContractLiterals(t *testing.T) {
	tests := []struct {
		name string
		lit  manifest.Literal
		to   abisig.TargetType
		want string
	}{
		{"int to uint32", manifest.IntLiteral(42), abisig.Uint32, "uint32(42)"},
		{"negative int64", manifest.IntLiteral(-1), abisig.Int64, "int64(-1)"},
		{"hex string to uint64", manifest.StringLiteral("0x10"), abisig.Uint64, "uint64(16)"},
		{"int to uint128", manifest.IntLiteral(7), abisig.Uint128, `lib.MustBig("7")`},
		{"wide string to uint256", manifest.StringLiteral("1000000000000000000000"), abisig.Uint256, `lib.MustUint256("1000000000000000000000")`},
		{"address", manifest.StringLiteral("0x779877A7B0D9E8603169DdbD7836e478b4624789"), abisig.Address, `common.HexToAddress("0x779877A7B0D9E8603169DdbD7836e478b4624789")`},
		{"bytes", manifest.StringLiteral("0xdeadbeef"), abisig.Bytes, `common.FromHex("0xdeadbeef")`},
		{"bool", manifest.Literal{Kind: manifest.LiteralBool, Raw: "true"}, abisig.Bool, "true"},
		{"string", manifest.StringLiteral("hello"), abisig.String, `"hello"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(testFile(t), tt.lit, abiTarget(tt.to, tt.to.ABIType()))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceErrors(t *testing.T) {
	tests := []struct {
		name   string
		lit    manifest.Literal
		to     abisig.TargetType
		reason string
	}{
		{"out of range", manifest.IntLiteral(70000), abisig.Uint16, "out of range"},
		{"negative unsigned", manifest.IntLiteral(-1), abisig.Uint64, "out of range"},
		{"bool to integer", manifest.Literal{Kind: manifest.LiteralBool, Raw: "true"}, abisig.Uint32, "no conversion defined"},
		{"float to integer", manifest.Literal{Kind: manifest.LiteralFloat, Raw: "1.5"}, abisig.Uint64, "no conversion defined"},
		{"bad address", manifest.StringLiteral("0x1234"), abisig.Address, "not a 20 byte hex address"},
		{"not a number", manifest.StringLiteral("many"), abisig.Uint256, "not an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coerce(testFile(t), tt.lit, abiTarget(tt.to, tt.to.ABIType()))
			var ce *errdefs.ConversionError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.to.ABIType(), ce.To)
			assert.Equal(t, tt.reason, ce.Reason)
		})
	}
}

func TestCoerceCanisterLiterals(t *testing.T) {
	m, err := candid.ParseCanisterMethod("get : (nat64, principal, float64, nat) -> (text)")
	require.NoError(t, err)
	method := &manifest.Method{
		Identifier: "get",
		Args: []manifest.Literal{
			manifest.IntLiteral(5),
			manifest.StringLiteral("rrkah-fqaaa-aaaaa-aaaaq-cai"),
			{Kind: manifest.LiteralFloat, Raw: "0.25"},
			manifest.StringLiteral("123456789012345678901234567890"),
		},
	}
	args, err := canisterArgs(testFile(t), method, m)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"uint64(5)",
		`lib.MustPrincipal("rrkah-fqaaa-aaaaa-aaaaq-cai")`,
		"float64(0.25)",
		`lib.MustBig("123456789012345678901234567890")`,
	}, args)

	method.Args = method.Args[:1]
	_, err = canisterArgs(testFile(t), method, m)
	var me *errdefs.ManifestError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "datasource.method.args", me.Field)
}

func TestCoerceCompositeArgument(t *testing.T) {
	m, err := candid.ParseCanisterMethod("get : (record { a : nat64 }) -> (text)")
	require.NoError(t, err)
	method := &manifest.Method{Identifier: "get", Args: []manifest.Literal{manifest.IntLiteral(1)}}
	_, err = canisterArgs(testFile(t), method, m)
	var ue *errdefs.UnsupportedTypeError
	assert.True(t, errors.As(err, &ue))
}

func TestJSONLiteral(t *testing.T) {
	f := testFile(t)
	tests := []struct {
		lit  manifest.Literal
		want string
	}{
		{manifest.StringLiteral("latest"), `"latest"`},
		{manifest.IntLiteral(12), "int64(12)"},
		{manifest.Literal{Kind: manifest.LiteralInt, Raw: "100000000000000000000"}, `lib.MustBig("100000000000000000000")`},
		{manifest.Literal{Kind: manifest.LiteralBool, Raw: "false"}, "false"},
	}
	for _, tt := range tests {
		got, err := jsonLiteral(f, tt.lit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestContractArgsDeclaredWidth(t *testing.T) {
	sig, err := abisig.ParseContractMethod("f(uint24,uint8,int24,uint160):(uint256)")
	require.NoError(t, err)
	method := func(args ...manifest.Literal) *manifest.Method {
		return &manifest.Method{Identifier: "f", Args: args}
	}

	got, err := contractArgs(testFile(t), method(
		manifest.IntLiteral(1<<24-1),
		manifest.IntLiteral(255),
		manifest.IntLiteral(-(1 << 23)),
		manifest.StringLiteral("0xffffffffffffffffffffffffffffffffffffffff"),
	), sig)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"uint32(16777215)",
		"uint16(255)",
		"int32(-8388608)",
		`lib.MustUint256("1461501637330902918203684832716283019655932542975")`,
	}, got)

	tests := []struct {
		name string
		args []manifest.Literal
		to   string
	}{
		{"uint24", []manifest.Literal{manifest.IntLiteral(1 << 24), manifest.IntLiteral(0), manifest.IntLiteral(0), manifest.IntLiteral(0)}, "uint24"},
		{"uint8", []manifest.Literal{manifest.IntLiteral(0), manifest.IntLiteral(300), manifest.IntLiteral(0), manifest.IntLiteral(0)}, "uint8"},
		{"int24", []manifest.Literal{manifest.IntLiteral(0), manifest.IntLiteral(0), manifest.IntLiteral(1 << 23), manifest.IntLiteral(0)}, "int24"},
		{"uint160", []manifest.Literal{manifest.IntLiteral(0), manifest.IntLiteral(0), manifest.IntLiteral(0), manifest.StringLiteral("0x10000000000000000000000000000000000000000")}, "uint160"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := contractArgs(testFile(t), method(tt.args...), sig)
			var ce *errdefs.ConversionError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.to, ce.To)
			assert.Equal(t, "out of range", ce.Reason)
		})
	}
}
