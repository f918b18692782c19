package lib

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rocket-pool/rocketpool-go/rocketpool"
	"github.com/rocket-pool/rocketpool-go/utils/multicall"
)

// Multicall3 is deployed at the same address on every public network.
var Multicall3 = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Call is one prepared contract read. Its outputs are written to
// Destination when it is executed.
type Call struct {
	Address     common.Address
	Abi         *abi.ABI
	Method      string
	Args        []interface{}
	Destination *[]interface{}
}

// CallData is the ABI encoded input of the call.
func (c *Call) CallData() ([]byte, error) {
	return c.Abi.Pack(c.Method, c.Args...)
}

// Unpack decodes raw output into the destination.
func (c *Call) Unpack(raw []byte) error {
	out, err := c.Abi.Unpack(c.Method, raw)
	if err != nil {
		return fmt.Errorf("error unpacking result of %s: %w", c.Method, err)
	}
	*c.Destination = out
	return nil
}

// ContractReader calls view methods of one contract. Arguments are the
// generated Go types and are packed into their ABI representation.
type ContractReader struct {
	address  common.Address
	abi      *abi.ABI
	contract *bind.BoundContract
}

// ParseABI parses an interface file embedded in a component.
func ParseABI(abiJSON string) (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("error parsing interface: %w", err)
	}
	return &parsed, nil
}

// NewContractReader binds the contract at address.
func NewContractReader(address common.Address, contractAbi *abi.ABI, caller bind.ContractCaller) *ContractReader {
	return &ContractReader{
		address:  address,
		abi:      contractAbi,
		contract: bind.NewBoundContract(address, *contractAbi, caller, nil, nil),
	}
}

// Address of the bound contract.
func (r *ContractReader) Address() common.Address {
	return r.address
}

// Prepare packs the arguments of a call without executing it.
func (r *ContractReader) Prepare(method string, dst *[]interface{}, args ...interface{}) (*Call, error) {
	m, ok := r.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in interface of %s", method, r.address.Hex())
	}
	packed, err := PackArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("error packing %s: %w", method, err)
	}
	return &Call{
		Address:     r.address,
		Abi:         r.abi,
		Method:      method,
		Args:        packed,
		Destination: dst,
	}, nil
}

// Call executes a view method and returns its decoded outputs.
func (r *ContractReader) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	call, err := r.Prepare(method, &out, args...)
	if err != nil {
		return nil, err
	}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, call.Method, call.Args...); err != nil {
		return nil, fmt.Errorf("error calling %s on %s: %w", method, r.address.Hex(), err)
	}
	return out, nil
}

// Batch aggregates calls into a single multicall round trip.
type Batch struct {
	lock   sync.Mutex
	client rocketpool.ExecutionClient
	mc     *multicall.MultiCaller
	calls  []*Call
}

// NewBatch creates a batch using the multicall contract at address.
func NewBatch(client rocketpool.ExecutionClient, address common.Address) (*Batch, error) {
	mc, err := multicall.NewMultiCaller(client, address)
	if err != nil {
		return nil, fmt.Errorf("error creating multicaller: %w", err)
	}
	return &Batch{client: client, mc: mc}, nil
}

// Add queues a prepared call.
func (b *Batch) Add(call *Call) error {
	if call.Destination == nil {
		return errors.New("call has no destination")
	}
	address := call.Address
	contract := &rocketpool.Contract{
		Address: &address,
		ABI:     call.Abi,
		Client:  b.client,
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.mc.AddCall(contract, call.Destination, call.Method, call.Args...); err != nil {
		return err
	}
	b.calls = append(b.calls, call)
	return nil
}

// Len is the number of queued calls.
func (b *Batch) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.calls)
}

// Execute runs every queued call and fills their destinations. The batch is
// empty afterwards, whether or not it succeeded.
func (b *Batch) Execute(ctx context.Context) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	calls := b.calls
	mc := b.mc
	b.calls = nil
	b.mc = &multicall.MultiCaller{
		Client:          mc.Client,
		ABI:             mc.ABI,
		ContractAddress: mc.ContractAddress,
	}
	if len(calls) == 0 {
		return nil
	}

	responses, err := mc.Execute(true, &bind.CallOpts{Context: ctx})
	if err != nil {
		return fmt.Errorf("error executing multicall: %w", err)
	}
	if len(responses) != len(calls) {
		return fmt.Errorf("multicall returned %d results for %d calls", len(responses), len(calls))
	}
	for i, call := range calls {
		if !responses[i].Status {
			return fmt.Errorf("call to %s on %s failed", call.Method, call.Address.Hex())
		}
		if err := call.Unpack(responses[i].ReturnDataRaw); err != nil {
			return err
		}
	}
	return nil
}
