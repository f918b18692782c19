package lib

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rocket-pool/rocketpool-go/rocketpool"
	"go.uber.org/zap"
)

// Backend is a node connection as used by generated components.
type Backend interface {
	bind.ContractBackend
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Runtime is everything a generated component needs from its host.
type Runtime interface {
	Logger() *zap.Logger
	Env() Env
	Now() time.Time
	// Backend connects to the node at rpcURL. Connections are shared.
	Backend(ctx context.Context, rpcURL string) (Backend, error)
	// Transactor signs transactions for the given chain.
	Transactor(ctx context.Context, chainID uint64) (*bind.TransactOpts, error)
	Canisters() CanisterCaller
	HTTPClient() *http.Client
}

// ErrNoSigner is returned by Transactor when no key is configured.
var ErrNoSigner = errors.New("no signing key configured")

// Platform is the Runtime of a process hosting components.
type Platform struct {
	logger    *zap.Logger
	env       Env
	key       *ecdsa.PrivateKey
	canisters CanisterCaller
	http      *http.Client
	now       func() time.Time

	lock    sync.Mutex
	clients map[string]*ethclient.Client
}

type PlatformOption func(*Platform)

func WithLogger(logger *zap.Logger) PlatformOption {
	return func(p *Platform) { p.logger = logger }
}

func WithSigner(key *ecdsa.PrivateKey) PlatformOption {
	return func(p *Platform) { p.key = key }
}

func WithCanisters(c CanisterCaller) PlatformOption {
	return func(p *Platform) { p.canisters = c }
}

func WithHTTPClient(c *http.Client) PlatformOption {
	return func(p *Platform) { p.http = c }
}

func WithClock(now func() time.Time) PlatformOption {
	return func(p *Platform) { p.now = now }
}

// NewPlatform creates a runtime. Without options it logs nowhere, cannot
// sign, and routes component calls in process.
func NewPlatform(env Env, opts ...PlatformOption) *Platform {
	p := &Platform{
		logger:  zap.NewNop(),
		env:     env,
		http:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
		clients: make(map[string]*ethclient.Client),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.canisters == nil {
		p.canisters = NewLocalCanisters()
	}
	return p
}

// ParsePrivateKey decodes a hex private key, with or without 0x.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func (p *Platform) Logger() *zap.Logger { return p.logger }

func (p *Platform) Env() Env { return p.env }

func (p *Platform) Now() time.Time { return p.now() }

func (p *Platform) Canisters() CanisterCaller { return p.canisters }

func (p *Platform) HTTPClient() *http.Client { return p.http }

func (p *Platform) Backend(ctx context.Context, rpcURL string) (Backend, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if c, ok := p.clients[rpcURL]; ok {
		return c, nil
	}
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", rpcURL, err)
	}
	p.clients[rpcURL] = c
	p.logger.Debug("connected to node", zap.String("url", rpcURL))
	return c, nil
}

func (p *Platform) Transactor(ctx context.Context, chainID uint64) (*bind.TransactOpts, error) {
	if p.key == nil {
		return nil, ErrNoSigner
	}
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// Close disconnects from every node.
func (p *Platform) Close() {
	p.lock.Lock()
	defer p.lock.Unlock()
	for url, c := range p.clients {
		c.Close()
		delete(p.clients, url)
	}
}

// BatchFor returns a multicall batch when the backend can serve one.
func BatchFor(backend Backend) *Batch {
	client, ok := backend.(rocketpool.ExecutionClient)
	if !ok {
		return nil
	}
	b, err := NewBatch(client, Multicall3)
	if err != nil {
		return nil
	}
	return b
}

// CheckChain fails when the node serves a different chain than want.
func CheckChain(ctx context.Context, backend Backend, want uint64) error {
	id, err := backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("error getting chain id: %w", err)
	}
	if !id.IsUint64() || id.Uint64() != want {
		return fmt.Errorf("node serves chain %s, expected %d", id, want)
	}
	return nil
}
