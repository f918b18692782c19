package lib

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogs struct {
	logs    []types.Log
	queries []ethereum.FilterQuery
	head    uint64
}

func (f *fakeLogs) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.queries = append(f.queries, q)
	return f.logs, nil
}

func (f *fakeLogs) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func TestRanges(t *testing.T) {
	for _, tc := range []struct {
		name           string
		from, to, size uint64
		want           [][2]uint64
	}{
		{"empty", 10, 9, 5, nil},
		{"single block", 7, 7, 5, [][2]uint64{{7, 7}}},
		{"no chunking", 1, 100, 0, [][2]uint64{{1, 100}}},
		{"exact", 0, 9, 5, [][2]uint64{{0, 4}, {5, 9}}},
		{"remainder", 0, 10, 5, [][2]uint64{{0, 4}, {5, 9}, {10, 10}}},
		{"top of range", ^uint64(0) - 2, ^uint64(0), 2, [][2]uint64{{^uint64(0) - 2, ^uint64(0) - 1}, {^uint64(0), ^uint64(0)}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Ranges(tc.from, tc.to, tc.size))
		})
	}
}

func TestEventReader(t *testing.T) {
	parsed := mustABI(t, erc20ABI)
	event := parsed.Events["Transfer"]
	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(500))
	require.NoError(t, err)

	transfer := types.Log{
		Address:     token,
		Topics:      []common.Hash{event.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        data,
		BlockNumber: 42,
		Index:       3,
	}
	removed := transfer
	removed.Removed = true

	source := &fakeLogs{logs: []types.Log{transfer, removed}, head: 99}
	reader, err := NewEventReader(token, parsed, "Transfer", source)
	require.NoError(t, err)

	head, err := reader.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(99), head)

	logs, err := reader.Read(context.Background(), 40, 50)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(42), logs[0].BlockNumber)
	assert.Equal(t, uint(3), logs[0].LogIndex)
	assert.Equal(t, from, logs[0].Fields["from"])
	assert.Equal(t, to, logs[0].Fields["to"])
	assert.Equal(t, big.NewInt(500), logs[0].Fields["value"])

	require.Len(t, source.queries, 1)
	q := source.queries[0]
	assert.Equal(t, big.NewInt(40), q.FromBlock)
	assert.Equal(t, big.NewInt(50), q.ToBlock)
	assert.Equal(t, []common.Address{token}, q.Addresses)
	assert.Equal(t, [][]common.Hash{{event.ID}}, q.Topics)
}

func TestEventReaderErrors(t *testing.T) {
	parsed := mustABI(t, erc20ABI)
	_, err := NewEventReader(token, parsed, "Approval", &fakeLogs{})
	assert.ErrorContains(t, err, "event Approval not found")

	reader, err := NewEventReader(token, parsed, "Transfer", &fakeLogs{})
	require.NoError(t, err)
	data, err := parsed.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(1))
	require.NoError(t, err)
	_, err = reader.Decode(types.Log{Topics: []common.Hash{parsed.Events["Transfer"].ID}, Data: data})
	assert.ErrorContains(t, err, "has 1 topics, expected 3")
}
