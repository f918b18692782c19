package oracle

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	assert.Equal(t, []string{"ERC20.json", "StringOracle.json", "Uint128Oracle.json", "Uint256Oracle.json", "Uint64Oracle.json"}, BuiltinNames())

	for _, k := range Kinds {
		parsed, err := k.ABI()
		require.NoError(t, err, k)
		method, ok := parsed.Methods[UpdateMethod]
		require.True(t, ok, k)
		require.Len(t, method.Inputs, 1)
		assert.Equal(t, k.ABIType(), method.Inputs[0].Type.String())
	}

	data, ok := Builtin("ERC20.json")
	require.True(t, ok)
	erc20, err := LoadABI("ERC20.json", data)
	require.NoError(t, err)
	assert.Contains(t, erc20.Events, "Transfer")
	assert.Contains(t, erc20.Methods, "balanceOf")

	_, ok = Builtin("Missing.json")
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("uint128")
	require.NoError(t, err)
	assert.Equal(t, Uint128, k)
	assert.Equal(t, "Uint128Oracle.json", k.InterfaceFile())

	_, err = ParseKind("int256")
	var me *errdefs.ManifestError
	assert.True(t, errors.As(err, &me))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	addr, ok := r.Address(Uint256, NetworkLocal)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), addr)

	_, err := r.Resolve(Uint256, NetworkAmoy, "")
	var me *errdefs.ManifestError
	require.True(t, errors.As(err, &me))

	amoy := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	r.Set(Uint256, NetworkAmoy, amoy)
	got, err := r.Resolve(Uint256, NetworkAmoy, "")
	require.NoError(t, err)
	assert.Equal(t, amoy, got)

	explicit, err := r.Resolve(Uint256, NetworkAmoy, "0x00000000000000000000000000000000000000bb")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xbb"), explicit)

	_, err = r.Resolve(Uint256, NetworkAmoy, "not-an-address")
	assert.Error(t, err)
}

func qualify(name string) string { return "lib." + name }

func TestConvert(t *testing.T) {
	tests := []struct {
		from     string
		to       Kind
		exp      int
		expr     string
		fallible bool
	}{
		{"nat64", Uint64, 0, "uint64(v)", false},
		{"nat8", Uint256, 0, "lib.BigFromUint64(uint64(v))", false},
		{"nat", Uint256, 0, "lib.FitBig(v, 256)", true},
		{"nat", Uint128, 0, "lib.FitBig(v, 128)", true},
		{"nat", Uint64, 0, "lib.FitUint64(v)", true},
		{"text", Uint256, 0, "lib.ParseBig(v, 256)", true},
		{"text", Uint64, 0, "lib.ParseUint64(v)", true},
		{"text", String, 0, "v", false},
		{"int32", Uint128, 0, "lib.BigFromInt64(int64(v), 128)", true},
		{"int64", Uint64, 0, "lib.Int64ToUint64(int64(v))", true},
		{"float64", Uint256, 18, "lib.ScaleFloat(float64(v), 18, 256)", true},
		{"float32", Uint64, 6, "lib.ScaleFloatUint64(float64(v), 6)", true},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+string(tt.to), func(t *testing.T) {
			c, err := Convert(tt.from, tt.to, tt.exp)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, c.Expr(qualify, "v"))
			assert.Equal(t, tt.fallible, c.Fallible)
		})
	}
}

func TestConvertUnsupported(t *testing.T) {
	for _, tt := range []struct {
		from string
		to   Kind
	}{
		{"bool", Uint256},
		{"principal", Uint64},
		{"nat64", String},
		{"text", Kind("int8")},
	} {
		_, err := Convert(tt.from, tt.to, 0)
		var ce *errdefs.ConversionError
		assert.True(t, errors.As(err, &ce), "%s -> %s", tt.from, tt.to)
	}
}
