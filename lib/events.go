package lib

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogSource is the part of a node client needed to read logs.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// DecodedLog is one event with its fields by name.
type DecodedLog struct {
	Fields      map[string]interface{}
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// EventReader reads one event of one contract.
type EventReader struct {
	address common.Address
	event   abi.Event
	source  LogSource
}

// NewEventReader looks up the event in the contract interface.
func NewEventReader(address common.Address, contractAbi *abi.ABI, event string, source LogSource) (*EventReader, error) {
	e, ok := contractAbi.Events[event]
	if !ok {
		return nil, fmt.Errorf("event %s not found in interface of %s", event, address.Hex())
	}
	return &EventReader{address: address, event: e, source: source}, nil
}

// Latest is the current block height.
func (r *EventReader) Latest(ctx context.Context) (uint64, error) {
	return r.source.BlockNumber(ctx)
}

// Read decodes the events in blocks [from, to].
func (r *EventReader) Read(ctx context.Context, from, to uint64) ([]DecodedLog, error) {
	logs, err := r.source.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{r.address},
		Topics:    [][]common.Hash{{r.event.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("error filtering %s logs in blocks %d-%d: %w", r.event.Name, from, to, err)
	}

	out := make([]DecodedLog, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		decoded, err := r.Decode(l)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

// Decode unpacks the data and indexed topics of one log.
func (r *EventReader) Decode(l types.Log) (DecodedLog, error) {
	fields := make(map[string]interface{})
	if len(l.Data) > 0 {
		if err := r.event.Inputs.UnpackIntoMap(fields, l.Data); err != nil {
			return DecodedLog{}, fmt.Errorf("error unpacking %s data: %w", r.event.Name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range r.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(l.Topics) < 1+len(indexed) {
		return DecodedLog{}, fmt.Errorf("%s log has %d topics, expected %d", r.event.Name, len(l.Topics), 1+len(indexed))
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
		return DecodedLog{}, fmt.Errorf("error parsing %s topics: %w", r.event.Name, err)
	}
	return DecodedLog{
		Fields:      fields,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
	}, nil
}

// Ranges splits [from, to] into chunks of at most size blocks.
func Ranges(from, to, size uint64) [][2]uint64 {
	if from > to {
		return nil
	}
	if size == 0 {
		return [][2]uint64{{from, to}}
	}
	var out [][2]uint64
	for start := from; start <= to; start += size {
		end := start + size - 1
		if end > to || end < start {
			end = to
		}
		out = append(out, [2]uint64{start, end})
		if end == to {
			break
		}
	}
	return out
}
