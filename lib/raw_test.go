package lib

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var token = common.HexToAddress("0x779877A7B0D9E8603169DdbD7836e478b4624789")

func TestContractReaderCall(t *testing.T) {
	parsed := mustABI(t, erc20ABI)
	caller := newFakeCaller(parsed)
	holder := common.HexToAddress("0x0000000000000000000000000000000000000001")
	caller.on("balanceOf", func(args []interface{}) []interface{} {
		if args[0].(common.Address) == holder {
			return []interface{}{big.NewInt(1234)}
		}
		return []interface{}{big.NewInt(0)}
	})
	caller.on("decimals", func([]interface{}) []interface{} {
		return []interface{}{uint8(18)}
	})

	reader := NewContractReader(token, parsed, caller)
	assert.Equal(t, token, reader.Address())

	out, err := reader.Call(context.Background(), "balanceOf", holder)
	require.NoError(t, err)
	require.Len(t, out, 1)
	balance, err := ToUint256(out[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), balance.Uint64())

	// address given as text is accepted
	out, err = reader.Call(context.Background(), "balanceOf", holder.Hex())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1234), out[0])

	out, err = reader.Call(context.Background(), "decimals")
	require.NoError(t, err)
	decimals, err := ToUint16(out[0])
	require.NoError(t, err)
	assert.Equal(t, uint16(18), decimals)

	assert.Equal(t, []string{"balanceOf", "balanceOf", "decimals"}, caller.calls)
}

func TestContractReaderErrors(t *testing.T) {
	parsed := mustABI(t, erc20ABI)
	reader := NewContractReader(token, parsed, newFakeCaller(parsed))

	_, err := reader.Call(context.Background(), "allowance")
	assert.ErrorContains(t, err, "method allowance not found")

	_, err = reader.Call(context.Background(), "balanceOf")
	assert.ErrorContains(t, err, "expected 1 arguments, got 0")

	_, err = reader.Call(context.Background(), "balanceOf", 42)
	var ce *ConversionError
	assert.ErrorAs(t, err, &ce)
}

func TestPrepareCall(t *testing.T) {
	parsed := mustABI(t, erc20ABI)
	reader := NewContractReader(token, parsed, newFakeCaller(parsed))

	var out []interface{}
	call, err := reader.Prepare("totalSupply", &out)
	require.NoError(t, err)
	data, err := call.CallData()
	require.NoError(t, err)
	assert.Equal(t, parsed.Methods["totalSupply"].ID, data)

	raw, err := parsed.Methods["totalSupply"].Outputs.Pack(big.NewInt(7))
	require.NoError(t, err)
	require.NoError(t, call.Unpack(raw))
	assert.Equal(t, []interface{}{big.NewInt(7)}, out)
}

func TestBatch(t *testing.T) {
	node := newMulticallNode(t)
	erc20 := mustABI(t, erc20ABI)
	tokenNode := newFakeCaller(erc20)
	tokenNode.on("totalSupply", func([]interface{}) []interface{} { return []interface{}{big.NewInt(1000)} })
	tokenNode.on("decimals", func([]interface{}) []interface{} { return []interface{}{uint8(6)} })
	node.contracts[token] = tokenNode

	b := BatchFor(node)
	require.NotNil(t, b)
	reader := NewContractReader(token, erc20, node)

	var supply, decimals []interface{}
	for method, dst := range map[string]*[]interface{}{"totalSupply": &supply, "decimals": &decimals} {
		call, err := reader.Prepare(method, dst)
		require.NoError(t, err)
		require.NoError(t, b.Add(call))
	}
	assert.Equal(t, 2, b.Len())

	require.NoError(t, b.Execute(context.Background()))
	assert.Equal(t, []interface{}{big.NewInt(1000)}, supply)
	assert.Equal(t, []interface{}{uint8(6)}, decimals)
	assert.Equal(t, 1, node.rounds)
	assert.ElementsMatch(t, []string{"totalSupply", "decimals"}, tokenNode.calls)
	assert.Zero(t, b.Len())

	// An empty batch does not reach the node.
	require.NoError(t, b.Execute(context.Background()))
	assert.Equal(t, 1, node.rounds)

	// A call to a missing contract fails the whole batch and still drains it.
	missing := NewContractReader(common.HexToAddress("0x01"), erc20, node)
	var out []interface{}
	call, err := missing.Prepare("totalSupply", &out)
	require.NoError(t, err)
	require.NoError(t, b.Add(call))
	assert.ErrorContains(t, b.Execute(context.Background()), "error executing multicall")
	assert.Zero(t, b.Len())

	assert.Error(t, b.Add(&Call{Method: "totalSupply"}))
}

func TestOracleWriterBatched(t *testing.T) {
	node := newMulticallNode(t)
	parsed := mustABI(t, oracleABI)
	oracleNode := newFakeCaller(parsed)
	oracleNode.on("state", func([]interface{}) []interface{} { return []interface{}{big.NewInt(77)} })
	oracleNode.on("updatedAt", func([]interface{}) []interface{} { return []interface{}{big.NewInt(1700000000)} })
	addr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	node.contracts[addr] = oracleNode

	w, err := NewOracleWriter(addr, parsed, node, "")
	require.NoError(t, err)
	state, err := w.WithBatch(BatchFor(node)).Current(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Same(big.NewInt(77)))
	assert.Equal(t, big.NewInt(1700000000), state.UpdatedAt)
	assert.Equal(t, 1, node.rounds)
}
