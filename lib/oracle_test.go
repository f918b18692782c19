package lib

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOracleWriterCurrent(t *testing.T) {
	parsed := mustABI(t, oracleABI)
	backend := newFakeCaller(parsed)
	backend.on("state", func([]interface{}) []interface{} { return []interface{}{big.NewInt(77)} })
	backend.on("updatedAt", func([]interface{}) []interface{} { return []interface{}{big.NewInt(1700000000)} })

	addr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	w, err := NewOracleWriter(addr, parsed, backend, "")
	require.NoError(t, err)
	assert.Equal(t, addr, w.Address())

	state, err := w.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1700000000), state.UpdatedAt)
	assert.True(t, state.Same(big.NewInt(77)))
	assert.True(t, state.Same(uint64(77)))
	assert.False(t, state.Same(big.NewInt(78)))
	assert.False(t, state.Same("77"))
}

func TestOracleWriterMethod(t *testing.T) {
	parsed := mustABI(t, oracleABI)
	_, err := NewOracleWriter(common.Address{}, parsed, newFakeCaller(parsed), "setValue")
	assert.ErrorContains(t, err, "method setValue not found")
	_, err = NewOracleWriter(common.Address{}, parsed, newFakeCaller(parsed), "state")
	assert.ErrorContains(t, err, "takes 0 arguments")
}

func TestOracleStateSame(t *testing.T) {
	var missing *OracleState
	assert.False(t, missing.Same("x"))
	s := &OracleState{Value: "hello"}
	assert.True(t, s.Same("hello"))
	assert.False(t, s.Same("world"))
}
