// Package oracle is the registry of destination oracles and built-in
// interface files.
package oracle

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jshufro/componentgen/errdefs"
)

//go:embed abi/*.json
var builtins embed.FS

// Kind of value an oracle accepts.
type Kind string

const (
	Uint256 Kind = "uint256"
	Uint128 Kind = "uint128"
	Uint64  Kind = "uint64"
	String  Kind = "string"
)

// Kinds lists every oracle kind.
var Kinds = []Kind{Uint256, Uint128, Uint64, String}

// UpdateMethod is the oracle method a relayer calls.
const UpdateMethod = "updateState"

// Chain ids with known deployments.
const (
	NetworkSepolia uint64 = 11155111
	NetworkAmoy    uint64 = 80002
	NetworkLocal   uint64 = 31337
)

var interfaceFiles = map[Kind]string{
	Uint256: "Uint256Oracle.json",
	Uint128: "Uint128Oracle.json",
	Uint64:  "Uint64Oracle.json",
	String:  "StringOracle.json",
}

// ParseKind validates an oracle kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := interfaceFiles[k]; !ok {
		return "", &errdefs.ManifestError{Field: "destination.type", Reason: fmt.Sprintf("unknown oracle type '%s'", s)}
	}
	return k, nil
}

// InterfaceFile is the name of the built-in ABI of the oracle.
func (k Kind) InterfaceFile() string {
	return interfaceFiles[k]
}

// ABIType is the solidity type of the update method argument.
func (k Kind) ABIType() string {
	return string(k)
}

// Builtin returns the contents of a built-in interface file.
func Builtin(name string) ([]byte, bool) {
	data, err := builtins.ReadFile(path.Join("abi", name))
	if err != nil {
		return nil, false
	}
	return data, true
}

// BuiltinNames lists the built-in interface files.
func BuiltinNames() []string {
	entries, err := builtins.ReadDir("abi")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// LoadABI parses an interface file.
func LoadABI(name string, data []byte) (*abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing interface file %s: %w", name, err)
	}
	return &parsed, nil
}

// ABI returns the parsed built-in interface of the oracle.
func (k Kind) ABI() (*abi.ABI, error) {
	name := k.InterfaceFile()
	data, ok := Builtin(name)
	if !ok {
		return nil, &errdefs.InterfaceResolutionError{Name: name}
	}
	return LoadABI(name, data)
}

// Registry maps oracle kinds to their deployments per network.
type Registry struct {
	mu        sync.RWMutex
	addresses map[Kind]map[uint64]common.Address
}

// NewRegistry returns a registry holding the local development deployments,
// in the order a fresh devnet assigns them.
func NewRegistry() *Registry {
	r := &Registry{addresses: make(map[Kind]map[uint64]common.Address)}
	r.Set(Uint256, NetworkLocal, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	r.Set(Uint128, NetworkLocal, common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"))
	r.Set(Uint64, NetworkLocal, common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"))
	r.Set(String, NetworkLocal, common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9"))
	return r
}

// Set records a deployment.
func (r *Registry) Set(k Kind, network uint64, addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addresses[k] == nil {
		r.addresses[k] = make(map[uint64]common.Address)
	}
	r.addresses[k][network] = addr
}

// Address returns the deployment of an oracle kind on a network.
func (r *Registry) Address(k Kind, network uint64) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.addresses[k][network]
	return addr, ok
}

// Resolve picks the explicit address when given, otherwise the registered one.
func (r *Registry) Resolve(k Kind, network uint64, explicit string) (common.Address, error) {
	if explicit != "" {
		if !common.IsHexAddress(explicit) {
			return common.Address{}, &errdefs.ManifestError{Field: "destination.oracle_address", Reason: fmt.Sprintf("'%s' is not an address", explicit)}
		}
		return common.HexToAddress(explicit), nil
	}
	if addr, ok := r.Address(k, network); ok {
		return addr, nil
	}
	return common.Address{}, &errdefs.ManifestError{
		Field:  "destination.oracle_address",
		Reason: fmt.Sprintf("no %s oracle is known on network %d; set oracle_address", k, network),
	}
}
