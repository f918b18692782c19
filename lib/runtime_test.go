package lib

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well known development key
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestPlatformDefaults(t *testing.T) {
	p := NewPlatform(LocalDevelopment)
	defer p.Close()

	assert.Equal(t, LocalDevelopment, p.Env())
	assert.NotNil(t, p.Logger())
	assert.NotNil(t, p.HTTPClient())
	assert.IsType(t, &LocalCanisters{}, p.Canisters())

	_, err := p.Transactor(context.Background(), 31337)
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestPlatformSigner(t *testing.T) {
	key, err := ParsePrivateKey(devKey)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", crypto.PubkeyToAddress(key.PublicKey).Hex())

	fixed := time.Unix(1700000000, 0)
	p := NewPlatform(Production, WithSigner(key), WithClock(func() time.Time { return fixed }))
	assert.Equal(t, fixed, p.Now())

	opts, err := p.Transactor(context.Background(), 80002)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), opts.From)
	assert.NotNil(t, opts.Context)

	_, err = ParsePrivateKey("zz")
	assert.Error(t, err)
}

type chainBackend struct {
	Backend
	id  *big.Int
	err error
}

func (c chainBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return c.id, c.err
}

func TestCheckChain(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, CheckChain(ctx, chainBackend{id: big.NewInt(80002)}, 80002))
	assert.ErrorContains(t, CheckChain(ctx, chainBackend{id: big.NewInt(1)}, 80002), "node serves chain 1, expected 80002")
	assert.ErrorContains(t, CheckChain(ctx, chainBackend{err: errors.New("down")}, 80002), "down")
}
