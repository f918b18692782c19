package lib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rocket-pool/rocketpool-go/rocketpool"
	"github.com/rocket-pool/rocketpool-go/utils/multicall"
	"github.com/stretchr/testify/require"
)

const erc20ABI = `[
  {"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"value","type":"uint256","indexed":false}]}
]`

const oracleABI = `[
  {"type":"function","name":"state","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"updatedAt","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"updateState","inputs":[{"name":"newState","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}
]`

func mustABI(t *testing.T, src string) *abi.ABI {
	t.Helper()
	parsed, err := ParseABI(src)
	require.NoError(t, err)
	return parsed
}

// fakeCaller answers view calls from a table of method name -> handler.
// Embedding a nil backend makes it usable where a full backend is needed,
// as long as only reads happen.
type fakeCaller struct {
	bind.ContractBackend

	abi      *abi.ABI
	handlers map[string]func(args []interface{}) []interface{}
	calls    []string
}

func newFakeCaller(contractAbi *abi.ABI) *fakeCaller {
	return &fakeCaller{abi: contractAbi, handlers: make(map[string]func([]interface{}) []interface{})}
}

func (f *fakeCaller) on(method string, h func(args []interface{}) []interface{}) {
	f.handlers[method] = h
}

func (f *fakeCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	for name, m := range f.abi.Methods {
		if !bytes.Equal(m.ID, call.Data[:4]) {
			continue
		}
		h, ok := f.handlers[name]
		if !ok {
			return nil, fmt.Errorf("no handler for %s", name)
		}
		args, err := m.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		f.calls = append(f.calls, name)
		return m.Outputs.Pack(h(args)...)
	}
	return nil, fmt.Errorf("unknown selector %x", call.Data[:4])
}

// multicallNode serves tryAggregate at Multicall3 by dispatching every
// inner call to the contract fakes registered by address.
type multicallNode struct {
	rocketpool.ExecutionClient

	abi       abi.ABI
	contracts map[common.Address]*fakeCaller
	rounds    int
}

func newMulticallNode(t *testing.T) *multicallNode {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(multicall.MulticallABI))
	require.NoError(t, err)
	return &multicallNode{abi: parsed, contracts: make(map[common.Address]*fakeCaller)}
}

func (n *multicallNode) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(31337), nil
}

func (n *multicallNode) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if call.To == nil {
		return nil, errors.New("contract creation is not supported")
	}
	if *call.To != Multicall3 {
		c, ok := n.contracts[*call.To]
		if !ok {
			return nil, fmt.Errorf("no contract at %s", call.To.Hex())
		}
		return c.CallContract(ctx, call, blockNumber)
	}
	m := n.abi.Methods["tryAggregate"]
	values, err := m.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	var in struct {
		RequireSuccess bool
		Calls          []multicall.MultiCall
	}
	if err := m.Inputs.Copy(&in, values); err != nil {
		return nil, err
	}
	n.rounds++

	type result struct {
		Success    bool
		ReturnData []byte
	}
	results := make([]result, 0, len(in.Calls))
	for _, c := range in.Calls {
		target := c.Target
		var data []byte
		contract, ok := n.contracts[target]
		if ok {
			data, err = contract.CallContract(ctx, ethereum.CallMsg{To: &target, Data: c.CallData}, blockNumber)
		}
		if !ok || err != nil {
			if in.RequireSuccess {
				return nil, errors.New("execution reverted: Multicall2 aggregate: call failed")
			}
			results = append(results, result{})
			continue
		}
		results = append(results, result{Success: true, ReturnData: data})
	}
	return m.Outputs.Pack(results)
}
