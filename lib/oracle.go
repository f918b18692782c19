package lib

import (
	"context"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Oracle methods called by relayers.
const (
	OracleUpdateMethod    = "updateState"
	OracleStateMethod     = "state"
	OracleUpdatedAtMethod = "updatedAt"
)

// OracleState is the value an oracle currently holds.
type OracleState struct {
	Value     interface{}
	UpdatedAt *big.Int
}

// OracleWriter pushes values to an oracle contract.
type OracleWriter struct {
	address  common.Address
	abi      *abi.ABI
	method   string
	reader   *ContractReader
	contract *bind.BoundContract
	batch    *Batch
}

// NewOracleWriter binds the oracle at address. An empty method means
// OracleUpdateMethod.
func NewOracleWriter(address common.Address, oracleAbi *abi.ABI, backend bind.ContractBackend, method string) (*OracleWriter, error) {
	if method == "" {
		method = OracleUpdateMethod
	}
	m, ok := oracleAbi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in oracle interface", method)
	}
	if len(m.Inputs) != 1 {
		return nil, fmt.Errorf("oracle method %s takes %d arguments, expected 1", method, len(m.Inputs))
	}
	return &OracleWriter{
		address:  address,
		abi:      oracleAbi,
		method:   method,
		reader:   NewContractReader(address, oracleAbi, backend),
		contract: bind.NewBoundContract(address, *oracleAbi, backend, backend, backend),
	}, nil
}

// WithBatch reads the oracle state through a multicall batch.
func (w *OracleWriter) WithBatch(b *Batch) *OracleWriter {
	w.batch = b
	return w
}

// Address of the oracle.
func (w *OracleWriter) Address() common.Address {
	return w.address
}

// Current reads the held value and its update time.
func (w *OracleWriter) Current(ctx context.Context) (*OracleState, error) {
	var state, updatedAt []interface{}
	if w.batch != nil {
		for _, c := range []struct {
			method string
			dst    *[]interface{}
		}{{OracleStateMethod, &state}, {OracleUpdatedAtMethod, &updatedAt}} {
			call, err := w.reader.Prepare(c.method, c.dst)
			if err != nil {
				return nil, err
			}
			if err := w.batch.Add(call); err != nil {
				return nil, err
			}
		}
		if err := w.batch.Execute(ctx); err != nil {
			return nil, err
		}
	} else {
		var err error
		if state, err = w.reader.Call(ctx, OracleStateMethod); err != nil {
			return nil, err
		}
		if updatedAt, err = w.reader.Call(ctx, OracleUpdatedAtMethod); err != nil {
			return nil, err
		}
	}

	if len(state) != 1 || len(updatedAt) != 1 {
		return nil, fmt.Errorf("unexpected oracle state of %s", w.address.Hex())
	}
	at, err := ToBig(updatedAt[0])
	if err != nil {
		return nil, err
	}
	return &OracleState{Value: state[0], UpdatedAt: at}, nil
}

// Update sends the update transaction. value is packed against the
// argument type of the update method.
func (w *OracleWriter) Update(ctx context.Context, opts *bind.TransactOpts, value interface{}) (*types.Transaction, error) {
	packed, err := PackArgs(w.abi.Methods[w.method].Inputs, []interface{}{value})
	if err != nil {
		return nil, fmt.Errorf("error packing %s: %w", w.method, err)
	}
	txOpts := *opts
	txOpts.Context = ctx
	tx, err := w.contract.Transact(&txOpts, w.method, packed...)
	if err != nil {
		return nil, fmt.Errorf("error calling %s on %s: %w", w.method, w.address.Hex(), err)
	}
	return tx, nil
}

// Same reports whether value equals the held state.
func (s *OracleState) Same(value interface{}) bool {
	if s == nil {
		return false
	}
	if a, ok := asBig(s.Value); ok {
		b, ok := asBig(value)
		return ok && a.Cmp(b) == 0
	}
	return reflect.DeepEqual(s.Value, value)
}
