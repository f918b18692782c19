package codegen

import (
	"fmt"
	"path"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/oracle"
)

// Interfaces holds the interface files available to a generation pass:
// contract ABIs (.json) and interface schemas (.did).
type Interfaces struct {
	files map[string][]byte
	abis  map[string]*abi.ABI
}

func NewInterfaces() *Interfaces {
	return &Interfaces{
		files: make(map[string][]byte),
		abis:  make(map[string]*abi.ABI),
	}
}

// BuiltinInterfaces holds every built-in interface file. It panics when
// one of them does not parse.
func BuiltinInterfaces() *Interfaces {
	i, err := loadInterfaces(oracle.BuiltinNames(), oracle.Builtin)
	if err != nil {
		panic(fmt.Sprintf("codegen: %v", err))
	}
	return i
}

func loadInterfaces(names []string, read func(string) ([]byte, bool)) (*Interfaces, error) {
	i := NewInterfaces()
	for _, name := range names {
		data, ok := read(name)
		if !ok {
			return nil, &errdefs.InterfaceResolutionError{Name: name}
		}
		if err := i.Add(name, data); err != nil {
			return nil, fmt.Errorf("built-in interface %s: %w", name, err)
		}
	}
	return i, nil
}

// IsABI reports whether name is a contract interface file.
func IsABI(name string) bool {
	return path.Ext(name) == ".json"
}

// Add stores an interface file. ABI files are parsed.
func (i *Interfaces) Add(name string, data []byte) error {
	if IsABI(name) {
		parsed, err := oracle.LoadABI(name, data)
		if err != nil {
			return err
		}
		i.abis[name] = parsed
	}
	i.files[name] = data
	return nil
}

// AddParsed stores an ABI file that has already been parsed.
func (i *Interfaces) AddParsed(name string, data []byte, parsed *abi.ABI) {
	i.abis[name] = parsed
	i.files[name] = data
}

// ABI returns a parsed contract interface.
func (i *Interfaces) ABI(name string) (*abi.ABI, error) {
	if i != nil {
		if parsed, ok := i.abis[name]; ok {
			return parsed, nil
		}
	}
	return nil, &errdefs.InterfaceResolutionError{Name: name}
}

// Schema returns the text of an interface schema file.
func (i *Interfaces) Schema(name string) (string, error) {
	if i != nil {
		if data, ok := i.files[name]; ok && !IsABI(name) {
			return string(data), nil
		}
	}
	return "", &errdefs.InterfaceResolutionError{Name: name}
}

// File returns the raw contents of an interface file.
func (i *Interfaces) File(name string) ([]byte, bool) {
	if i == nil {
		return nil, false
	}
	data, ok := i.files[name]
	return data, ok
}
